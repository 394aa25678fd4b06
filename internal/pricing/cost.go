// Package pricing computes what a booking costs. All arithmetic is in integer
// minor currency units (cents); converting to a display amount is the UI
// layer's problem and never feeds back into cost math.
package pricing

import (
	"fmt"
	"time"

	"github.com/md-rashed-zaman/roomreserve/internal/interval"
	"github.com/md-rashed-zaman/roomreserve/internal/model"
)

// RoomCost prices one room for the candidate interval.
//
// The base depends on the selected cost type; a room missing the rate for its
// selected type prices at 0 base rather than failing, and the caller is
// expected to refuse confirming a zero-price booking upstream. Facility names
// that the room no longer offers are skipped, not errors: a stale facility
// reference should not sink the whole booking.
func RoomCost(room *model.Room, costType model.CostType, start, end time.Time, attendees int, facilityNames []string) (model.CostLine, error) {
	if !costType.Valid() {
		return model.CostLine{}, fmt.Errorf("unknown cost type %q", costType)
	}
	hours, err := interval.HoursCeil(start, end)
	if err != nil {
		return model.CostLine{}, err
	}
	if attendees < 1 {
		return model.CostLine{}, fmt.Errorf("attendee count must be at least 1, got %d", attendees)
	}

	line := model.CostLine{
		RoomID:   room.ID,
		RoomName: room.Name,
		CostType: costType,
		Hours:    hours,
	}

	switch costType {
	case model.CostFlat:
		line.BaseCents = room.FlatRateCents
	case model.CostHourly:
		line.BaseCents = room.HourlyRateCents * hours
	case model.CostPerAttendee:
		line.BaseCents = room.AttendeeRateCents * int64(attendees)
	}

	for _, name := range facilityNames {
		cost, ok := room.FacilityCost(name)
		if !ok {
			continue
		}
		line.Facilities = append(line.Facilities, model.FacilityCharge{Name: name, CostCents: cost})
	}

	line.TotalCents = line.BaseCents + line.FacilityCents()
	return line, nil
}

// Aggregate rolls per-room cost lines into one summary. Hours comes from the
// first line: every room in a booking shares the same interval, hence the
// same hour count.
func Aggregate(lines []model.CostLine) model.CostSummary {
	summary := model.CostSummary{Lines: lines}
	for _, l := range lines {
		summary.BaseCents += l.BaseCents
		summary.FacilityCents += l.FacilityCents()
	}
	summary.GrandCents = summary.BaseCents + summary.FacilityCents
	if len(lines) > 0 {
		summary.Hours = lines[0].Hours
	}
	return summary
}
