package outbox

// Event is the domain event envelope written to the outbox table inside the
// booking transaction. The Kafka topic name equals EventType.
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// Event types emitted by the reservation service.
const (
	EventReservationBooked    = "reservation.booked.v1"
	EventReservationCancelled = "reservation.cancelled.v1"
)
