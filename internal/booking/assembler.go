package booking

import (
	"fmt"

	"github.com/md-rashed-zaman/roomreserve/internal/interval"
	"github.com/md-rashed-zaman/roomreserve/internal/model"
	"github.com/md-rashed-zaman/roomreserve/internal/pricing"
)

// PriceBooking validates and prices a multi-room candidate against the
// supplied snapshots. Every selected room must clear the conflict check
// before any pricing happens: one unavailable room fails the whole booking
// with a RoomUnavailableError, and no cost is computed for any room.
//
// rooms maps room id to its record; reservationsByRoom carries each room's
// blocking reservation snapshot. Both are read-only here.
func PriceBooking(candidate model.BookingCandidate, rooms map[string]*model.Room, reservationsByRoom map[string][]model.Reservation) (*model.PricedBooking, error) {
	if len(candidate.Selections) == 0 {
		return nil, ErrNoRooms
	}
	if err := interval.Validate(candidate.Start, candidate.End); err != nil {
		return nil, err
	}
	if candidate.Attendees < 1 {
		return nil, fmt.Errorf("attendee count must be at least 1, got %d", candidate.Attendees)
	}

	// Availability is evaluated independently per room, all rooms before
	// any pricing.
	for _, sel := range candidate.Selections {
		if _, ok := rooms[sel.RoomID]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownRoom, sel.RoomID)
		}
		conflict, err := FindConflict(sel.RoomID, candidate.Start, candidate.End, reservationsByRoom[sel.RoomID])
		if err != nil {
			return nil, err
		}
		if conflict != nil {
			return nil, &RoomUnavailableError{
				RoomID:        sel.RoomID,
				ConflictStart: conflict.Start,
				ConflictEnd:   conflict.End,
			}
		}
	}

	lines := make([]model.CostLine, 0, len(candidate.Selections))
	for _, sel := range candidate.Selections {
		line, err := pricing.RoomCost(rooms[sel.RoomID], sel.CostType, candidate.Start, candidate.End, candidate.Attendees, sel.Facilities)
		if err != nil {
			return nil, fmt.Errorf("pricing room %s: %w", sel.RoomID, err)
		}
		lines = append(lines, line)
	}

	return &model.PricedBooking{
		Candidate: candidate,
		Lines:     lines,
		Summary:   pricing.Aggregate(lines),
	}, nil
}
