// Package availability builds the per-room calendar view: which days inside
// a forward-looking horizon already carry reservations. The index exists for
// rendering calendars; single-candidate conflict decisions go through
// internal/booking instead, so there is exactly one overlap primitive in play.
package availability

import (
	"time"

	"github.com/md-rashed-zaman/roomreserve/internal/interval"
	"github.com/md-rashed-zaman/roomreserve/internal/model"
)

// DefaultHorizonDays is how far ahead availability is computed when the
// caller does not say otherwise.
const DefaultHorizonDays = 90

// BlockingFilter decides which reservation statuses count toward
// availability. The default blocks everything except rejected and cancelled.
type BlockingFilter func(model.Reservation) bool

func DefaultBlocking(r model.Reservation) bool {
	return r.Status.Blocks()
}

// Index answers day-granularity availability questions for one room after a
// single build pass. It is a snapshot: mutations to the underlying
// reservation list require a rebuild, which is cheap enough to do per read.
type Index struct {
	byDay        map[string][]model.Reservation
	horizonStart time.Time
	horizonEnd   time.Time
	today        time.Time
}

// BuildIndex walks the reservations once and records each one under every
// calendar day it spans inside [horizonStart, horizonStart+horizonDays).
// Per-day ordering is the input order, not chronological; callers that need
// time order must sort by Start. The current time is threaded in explicitly
// so one request sees one consistent "today".
func BuildIndex(reservations []model.Reservation, horizonStart time.Time, horizonDays int, now time.Time, blocking BlockingFilter) *Index {
	if horizonDays <= 0 {
		horizonDays = DefaultHorizonDays
	}
	if blocking == nil {
		blocking = DefaultBlocking
	}

	start := midnightOf(horizonStart)
	idx := &Index{
		byDay:        make(map[string][]model.Reservation),
		horizonStart: start,
		horizonEnd:   start.AddDate(0, 0, horizonDays),
		today:        midnightOf(now.In(horizonStart.Location())),
	}

	for _, r := range reservations {
		if !blocking(r) {
			continue
		}
		days, err := interval.DaysSpanned(r.Start, r.End)
		if err != nil {
			// A malformed stored row cannot mark any day as booked.
			continue
		}
		for _, d := range days {
			if d.Before(idx.horizonStart) || !d.Before(idx.horizonEnd) {
				continue
			}
			key := interval.DayKey(d)
			idx.byDay[key] = append(idx.byDay[key], r)
		}
	}
	return idx
}

// IsBooked reports whether at least one blocking reservation touches the day.
func (idx *Index) IsBooked(day time.Time) bool {
	return len(idx.byDay[interval.DayKey(day)]) > 0
}

// ReservationsOn returns the reservations touching the day, in insertion
// order. The slice is shared with the index and must not be mutated.
func (idx *Index) ReservationsOn(day time.Time) []model.Reservation {
	return idx.byDay[interval.DayKey(day)]
}

// IsAvailable reports whether the day can still be booked: inside the
// horizon, not in the past, and free of blocking reservations.
func (idx *Index) IsAvailable(day time.Time) bool {
	d := midnightOf(day)
	if d.Before(idx.today) {
		return false
	}
	if d.Before(idx.horizonStart) || !d.Before(idx.horizonEnd) {
		return false
	}
	return !idx.IsBooked(day)
}

// HorizonEnd is the first day past the computed window.
func (idx *Index) HorizonEnd() time.Time {
	return idx.horizonEnd
}

// BookedDays returns the day keys that carry at least one reservation.
// Ordering is unspecified.
func (idx *Index) BookedDays() []string {
	keys := make([]string, 0, len(idx.byDay))
	for k := range idx.byDay {
		keys = append(keys, k)
	}
	return keys
}

func midnightOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
