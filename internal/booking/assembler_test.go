package booking

import (
	"errors"
	"testing"

	"github.com/md-rashed-zaman/roomreserve/internal/model"
)

func twoRooms() map[string]*model.Room {
	return map[string]*model.Room{
		"a": {ID: "a", Name: "Alpha", Capacity: 10, FlatRateCents: 10000,
			Facilities: []model.Facility{{Name: "Projector", CostCents: 1500}}},
		"b": {ID: "b", Name: "Beta", Capacity: 20, HourlyRateCents: 5000},
	}
}

func TestPriceBooking_MultiRoom(t *testing.T) {
	candidate := model.BookingCandidate{
		Start:     at(9, 0),
		End:       at(11, 30),
		Attendees: 6,
		Selections: []model.RoomSelection{
			{RoomID: "a", CostType: model.CostFlat, Facilities: []string{"Projector"}},
			{RoomID: "b", CostType: model.CostHourly},
		},
	}

	priced, err := PriceBooking(candidate, twoRooms(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(priced.Lines) != 2 {
		t.Fatalf("expected 2 cost lines, got %d", len(priced.Lines))
	}
	// Alpha: 10000 flat + 1500 projector. Beta: 3h * 5000.
	if priced.Summary.GrandCents != 11500+15000 {
		t.Fatalf("expected grand total 26500, got %d", priced.Summary.GrandCents)
	}
	if priced.Summary.Hours != 3 {
		t.Fatalf("expected 3 hours, got %d", priced.Summary.Hours)
	}
}

func TestPriceBooking_FailsFastOnConflict(t *testing.T) {
	candidate := model.BookingCandidate{
		Start:     at(9, 0),
		End:       at(10, 0),
		Attendees: 6,
		Selections: []model.RoomSelection{
			{RoomID: "a", CostType: model.CostFlat},
			{RoomID: "b", CostType: model.CostHourly},
		},
	}
	// Room A is free, room B conflicts: no cost computed for either.
	snapshots := map[string][]model.Reservation{
		"b": {{ID: "x", RoomID: "b", Start: at(9, 30), End: at(10, 30), Status: model.StatusApproved}},
	}

	priced, err := PriceBooking(candidate, twoRooms(), snapshots)
	if priced != nil {
		t.Fatal("no priced booking should be produced when a room conflicts")
	}
	var unavailable *RoomUnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("expected RoomUnavailableError, got %v", err)
	}
	if unavailable.RoomID != "b" {
		t.Fatalf("expected the conflict to name room b, got %s", unavailable.RoomID)
	}
	if !unavailable.ConflictStart.Equal(at(9, 30)) || !unavailable.ConflictEnd.Equal(at(10, 30)) {
		t.Fatalf("conflict interval not carried: %+v", unavailable)
	}
}

func TestPriceBooking_UnknownRoom(t *testing.T) {
	candidate := model.BookingCandidate{
		Start:      at(9, 0),
		End:        at(10, 0),
		Attendees:  2,
		Selections: []model.RoomSelection{{RoomID: "ghost", CostType: model.CostFlat}},
	}

	_, err := PriceBooking(candidate, twoRooms(), nil)
	if !errors.Is(err, ErrUnknownRoom) {
		t.Fatalf("expected ErrUnknownRoom, got %v", err)
	}
}

func TestPriceBooking_NoSelections(t *testing.T) {
	candidate := model.BookingCandidate{Start: at(9, 0), End: at(10, 0), Attendees: 2}

	if _, err := PriceBooking(candidate, twoRooms(), nil); !errors.Is(err, ErrNoRooms) {
		t.Fatalf("expected ErrNoRooms, got %v", err)
	}
}

func TestPriceBooking_InvalidCandidates(t *testing.T) {
	base := model.BookingCandidate{
		Start:      at(9, 0),
		End:        at(10, 0),
		Attendees:  2,
		Selections: []model.RoomSelection{{RoomID: "a", CostType: model.CostFlat}},
	}

	inverted := base
	inverted.Start, inverted.End = base.End, base.Start
	if _, err := PriceBooking(inverted, twoRooms(), nil); err == nil {
		t.Fatal("expected error for inverted interval")
	}

	zeroAttendees := base
	zeroAttendees.Attendees = 0
	if _, err := PriceBooking(zeroAttendees, twoRooms(), nil); err == nil {
		t.Fatal("expected error for zero attendees")
	}
}
