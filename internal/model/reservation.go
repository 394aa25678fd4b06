package model

import "time"

type ReservationStatus string

const (
	StatusPending   ReservationStatus = "pending"
	StatusApproved  ReservationStatus = "approved"
	StatusRejected  ReservationStatus = "rejected"
	StatusCancelled ReservationStatus = "cancelled"
)

// Blocks reports whether a reservation in this status counts toward conflict
// and availability decisions. Anything not explicitly rejected or cancelled
// blocks, including statuses added later.
func (s ReservationStatus) Blocks() bool {
	return s != StatusRejected && s != StatusCancelled
}

// Reservation is a committed booking of one room for one interval.
// Reservations created together as a multi-room booking share a BookingID.
type Reservation struct {
	ID            string
	BookingID     string
	RoomID        string
	Start         time.Time
	End           time.Time
	Status        ReservationStatus
	AttendeeCount int
	BookedBy      string
	CreatedAt     time.Time
	CancelledAt   *time.Time
	CancelReason  string
}
