// Package interval holds the primitive time-interval operations the booking
// engine is built on. Every interval is half-open: [start, end). A reservation
// ending at 10:00 and one starting at 10:00 do not overlap, so back-to-back
// bookings on the hour are allowed.
package interval

import (
	"errors"
	"time"
)

// ErrInvalidInterval is returned whenever end is not strictly after start.
// Degenerate intervals are rejected, never silently corrected.
var ErrInvalidInterval = errors.New("interval end must be after start")

// Validate checks the shared precondition on an interval.
func Validate(start, end time.Time) error {
	if !end.After(start) {
		return ErrInvalidInterval
	}
	return nil
}

// Overlaps reports whether the two half-open intervals share at least one
// instant. Both intervals must be well-formed.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) (bool, error) {
	if err := Validate(aStart, aEnd); err != nil {
		return false, err
	}
	if err := Validate(bStart, bEnd); err != nil {
		return false, err
	}
	return aStart.Before(bEnd) && bStart.Before(aEnd), nil
}

// DaysSpanned returns every calendar date from start's day through end's day,
// inclusive, in the interval's own location. A reservation within a single
// day yields exactly one date; one crossing midnight yields one date per day
// touched.
func DaysSpanned(start, end time.Time) ([]time.Time, error) {
	if err := Validate(start, end); err != nil {
		return nil, err
	}
	first := midnightOf(start)
	last := midnightOf(end.In(start.Location()))

	var days []time.Time
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days, nil
}

// HourWindowOverlaps reports whether the one-hour window starting at
// day@hour intersects [start, end). Unlike the other operations it is total:
// a malformed interval simply cannot intersect anything.
func HourWindowOverlaps(start, end, day time.Time, hour int) bool {
	if !end.After(start) {
		return false
	}
	winStart := time.Date(day.Year(), day.Month(), day.Day(), hour, 0, 0, 0, day.Location())
	winEnd := winStart.Add(time.Hour)
	return start.Before(winEnd) && winStart.Before(end)
}

// HoursCeil returns the number of whole hours charged for the interval:
// ceil(duration / 1h), at least 1 for any positive duration.
func HoursCeil(start, end time.Time) (int64, error) {
	if err := Validate(start, end); err != nil {
		return 0, err
	}
	d := end.Sub(start)
	hours := int64(d / time.Hour)
	if d%time.Hour != 0 {
		hours++
	}
	if hours < 1 {
		hours = 1
	}
	return hours, nil
}

// DayKey formats a date the way availability data is keyed everywhere.
func DayKey(t time.Time) string {
	return t.Format("2006-01-02")
}

func midnightOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
