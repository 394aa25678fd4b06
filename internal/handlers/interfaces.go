package handlers

import (
	"context"
	"time"

	"github.com/md-rashed-zaman/roomreserve/internal/model"
)

// RoomStore is the read surface the quote and calendar handlers need. The
// storage repository implements it; tests substitute an in-memory fake.
type RoomStore interface {
	FetchRoom(ctx context.Context, roomID string) (*model.Room, error)
	ListRooms(ctx context.Context) ([]model.Room, error)
	FetchBlockingReservations(ctx context.Context, roomID string, from, to time.Time) ([]model.Reservation, error)
}

// CalendarStore caches rendered calendar payloads. Optional: a nil store
// disables caching.
type CalendarStore interface {
	Get(ctx context.Context, roomID, fromDay string, days int) ([]byte, bool, error)
	Set(ctx context.Context, roomID, fromDay string, days int, payload []byte) error
	InvalidateRoom(ctx context.Context, roomID string) error
}
