// Package booking decides whether a candidate reservation may be committed
// and assembles the priced result. Everything here is pure: callers hand in
// the room records and reservation snapshots, and the authoritative check is
// re-run by the storage layer inside the commit transaction.
package booking

import (
	"time"

	"github.com/md-rashed-zaman/roomreserve/internal/interval"
	"github.com/md-rashed-zaman/roomreserve/internal/model"
)

// FindConflict returns the first blocking reservation of the room that
// overlaps [start, end), or nil when the room is free. Reservations for
// other rooms and non-blocking statuses are ignored. A candidate with zero
// start or end times cannot conflict: progressive form UIs probe
// availability before the interval is fully entered, and the final commit
// re-checks with real values.
func FindConflict(roomID string, start, end time.Time, reservations []model.Reservation) (*model.Reservation, error) {
	if start.IsZero() || end.IsZero() {
		return nil, nil
	}
	if err := interval.Validate(start, end); err != nil {
		return nil, err
	}
	for i := range reservations {
		r := &reservations[i]
		if r.RoomID != roomID || !r.Status.Blocks() {
			continue
		}
		overlap, err := interval.Overlaps(start, end, r.Start, r.End)
		if err != nil {
			// A malformed stored interval cannot block a booking.
			continue
		}
		if overlap {
			return r, nil
		}
	}
	return nil, nil
}

// IsRoomAvailable reports whether the room can take the candidate interval
// given the reservation snapshot.
func IsRoomAvailable(roomID string, start, end time.Time, reservations []model.Reservation) (bool, error) {
	conflict, err := FindConflict(roomID, start, end, reservations)
	if err != nil {
		return false, err
	}
	return conflict == nil, nil
}
