package booking

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNoRooms is returned for a candidate with no room selections.
	ErrNoRooms = errors.New("booking candidate selects no rooms")
	// ErrUnknownRoom is returned when a selection references a room the
	// caller did not supply a record for.
	ErrUnknownRoom = errors.New("unknown room in booking candidate")
)

// RoomUnavailableError reports the first room that conflicts with an
// existing reservation, with the conflicting interval for user-facing
// messaging.
type RoomUnavailableError struct {
	RoomID        string
	ConflictStart time.Time
	ConflictEnd   time.Time
}

func (e *RoomUnavailableError) Error() string {
	return fmt.Sprintf("room %s is already reserved from %s to %s",
		e.RoomID,
		e.ConflictStart.Format(time.RFC3339),
		e.ConflictEnd.Format(time.RFC3339),
	)
}
