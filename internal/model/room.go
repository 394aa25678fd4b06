package model

// CostType selects the pricing model applied to one room within a booking.
type CostType string

const (
	CostFlat        CostType = "flat"
	CostHourly      CostType = "hourly"
	CostPerAttendee CostType = "per_attendee"
)

func (c CostType) Valid() bool {
	switch c {
	case CostFlat, CostHourly, CostPerAttendee:
		return true
	}
	return false
}

// Facility is an add-on a room offers at a fixed price, e.g. a projector.
// Names are unique within a room.
type Facility struct {
	Name      string
	CostCents int64
}

// Room is a bookable physical room. Rate fields are in minor currency units;
// zero means the rate is not configured for that pricing model.
type Room struct {
	ID                string
	Name              string
	Capacity          int
	FlatRateCents     int64
	HourlyRateCents   int64
	AttendeeRateCents int64
	Facilities        []Facility
}

// FacilityCost looks up a facility by exact name. The second return reports
// whether the room still offers it.
func (r *Room) FacilityCost(name string) (int64, bool) {
	for _, f := range r.Facilities {
		if f.Name == name {
			return f.CostCents, true
		}
	}
	return 0, false
}
