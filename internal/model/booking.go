package model

import "time"

// RoomSelection is one room within a booking candidate, with the pricing
// model and facility add-ons chosen for that room.
type RoomSelection struct {
	RoomID     string
	CostType   CostType
	Facilities []string
}

// BookingCandidate is a not-yet-committed, possibly multi-room booking
// request. The interval and attendee count are shared by every selection.
type BookingCandidate struct {
	Start      time.Time
	End        time.Time
	Attendees  int
	Selections []RoomSelection
}

// FacilityCharge records the price of one requested facility as it was at
// selection time. Later changes to the room's facility list do not affect it.
type FacilityCharge struct {
	Name      string
	CostCents int64
}

// CostLine is the priced result for a single room.
type CostLine struct {
	RoomID     string
	RoomName   string
	CostType   CostType
	BaseCents  int64
	Facilities []FacilityCharge
	Hours      int64
	TotalCents int64
}

// FacilityCents sums the facility charges on the line.
func (l CostLine) FacilityCents() int64 {
	var sum int64
	for _, f := range l.Facilities {
		sum += f.CostCents
	}
	return sum
}

// CostSummary aggregates the cost lines of a multi-room booking. All amounts
// are integer minor units; nothing here ever passes through a float.
type CostSummary struct {
	BaseCents     int64
	FacilityCents int64
	GrandCents    int64
	Hours         int64
	Lines         []CostLine
}

// PricedBooking is a conflict-checked, fully priced booking ready to commit.
type PricedBooking struct {
	Candidate BookingCandidate
	Lines     []CostLine
	Summary   CostSummary
}
