package booking

import (
	"errors"
	"testing"
	"time"

	"github.com/md-rashed-zaman/roomreserve/internal/interval"
	"github.com/md-rashed-zaman/roomreserve/internal/model"
)

func at(h, m int) time.Time {
	return time.Date(2025, 3, 10, h, m, 0, 0, time.UTC)
}

func existing(roomID string, start, end time.Time, status model.ReservationStatus) model.Reservation {
	return model.Reservation{ID: "existing", RoomID: roomID, Start: start, End: end, Status: status}
}

func TestIsRoomAvailable_BackToBack(t *testing.T) {
	rs := []model.Reservation{existing("r1", at(9, 0), at(10, 0), model.StatusApproved)}

	// Touching the boundary is allowed.
	ok, err := IsRoomAvailable("r1", at(10, 0), at(11, 0), rs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("10:00-11:00 after a 09:00-10:00 reservation should be available")
	}

	ok, err = IsRoomAvailable("r1", at(9, 30), at(10, 30), rs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("09:30-10:30 overlapping 09:00-10:00 should not be available")
	}
}

func TestIsRoomAvailable_OtherRoomsIgnored(t *testing.T) {
	rs := []model.Reservation{existing("r2", at(9, 0), at(10, 0), model.StatusApproved)}

	ok, err := IsRoomAvailable("r1", at(9, 0), at(10, 0), rs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("reservations on another room must not block")
	}
}

func TestIsRoomAvailable_NonBlockingStatuses(t *testing.T) {
	rs := []model.Reservation{
		existing("r1", at(9, 0), at(10, 0), model.StatusCancelled),
		existing("r1", at(9, 0), at(10, 0), model.StatusRejected),
	}

	ok, err := IsRoomAvailable("r1", at(9, 0), at(10, 0), rs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("cancelled and rejected reservations must not block")
	}
}

func TestIsRoomAvailable_UnspecifiedIntervalPermissive(t *testing.T) {
	rs := []model.Reservation{existing("r1", at(9, 0), at(10, 0), model.StatusApproved)}

	ok, err := IsRoomAvailable("r1", time.Time{}, time.Time{}, rs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("an unspecified interval cannot conflict")
	}
}

func TestIsRoomAvailable_InvalidInterval(t *testing.T) {
	if _, err := IsRoomAvailable("r1", at(10, 0), at(9, 0), nil); !errors.Is(err, interval.ErrInvalidInterval) {
		t.Fatalf("expected ErrInvalidInterval, got %v", err)
	}
}

func TestFindConflict_ReturnsConflictingReservation(t *testing.T) {
	rs := []model.Reservation{
		existing("r1", at(8, 0), at(9, 0), model.StatusApproved),
		{ID: "hit", RoomID: "r1", Start: at(9, 30), End: at(11, 0), Status: model.StatusPending},
	}

	conflict, err := FindConflict("r1", at(10, 0), at(12, 0), rs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if conflict == nil || conflict.ID != "hit" {
		t.Fatalf("expected the 09:30-11:00 reservation, got %v", conflict)
	}
}
