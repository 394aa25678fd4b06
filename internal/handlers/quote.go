package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/md-rashed-zaman/roomreserve/internal/booking"
	"github.com/md-rashed-zaman/roomreserve/internal/interval"
	"github.com/md-rashed-zaman/roomreserve/internal/model"
)

// QuoteHandler prices a candidate booking against a read snapshot without
// committing anything. The estimate can go stale the moment it is returned;
// the create path re-validates inside its transaction.
type QuoteHandler struct {
	store  RoomStore
	logger *slog.Logger
}

func NewQuoteHandler(store RoomStore, logger *slog.Logger) *QuoteHandler {
	return &QuoteHandler{store: store, logger: logger}
}

type roomSelectionRequest struct {
	RoomID     string   `json:"room_id"`
	CostType   string   `json:"cost_type"`
	Facilities []string `json:"facilities"`
}

type bookingRequest struct {
	Start     string                 `json:"start"`
	End       string                 `json:"end"`
	Attendees int                    `json:"attendees"`
	Rooms     []roomSelectionRequest `json:"rooms"`
	BookedBy  string                 `json:"booked_by"`
}

type facilityChargeItem struct {
	Name      string `json:"name"`
	CostCents int64  `json:"cost_cents"`
}

type costLineItem struct {
	RoomID        string               `json:"room_id"`
	RoomName      string               `json:"room_name"`
	CostType      string               `json:"cost_type"`
	BaseCents     int64                `json:"base_cents"`
	Facilities    []facilityChargeItem `json:"facilities,omitempty"`
	Hours         int64                `json:"hours"`
	TotalCents    int64                `json:"total_cents"`
	ZeroBasePrice bool                 `json:"zero_base_price,omitempty"`
}

type costSummaryItem struct {
	BaseCents     int64 `json:"base_cents"`
	FacilityCents int64 `json:"facility_cents"`
	GrandCents    int64 `json:"grand_cents"`
	Hours         int64 `json:"hours"`
}

type quoteResponse struct {
	Lines   []costLineItem  `json:"lines"`
	Summary costSummaryItem `json:"summary"`
}

type conflictResponse struct {
	Error         string `json:"error"`
	RoomID        string `json:"room_id"`
	ConflictStart string `json:"conflict_start"`
	ConflictEnd   string `json:"conflict_end"`
}

func (h *QuoteHandler) Quote(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req bookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}

	candidate, err := parseCandidate(req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	rooms, snapshots, err := loadBookingInputs(ctx, h.store, candidate)
	if err != nil {
		if errors.Is(err, errRoomNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load booking data", http.StatusInternalServerError)
		return
	}

	priced, err := booking.PriceBooking(*candidate, rooms, snapshots)
	if err != nil {
		writePricingError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, quoteResponse{
		Lines:   costLineItems(h.logger, priced.Lines),
		Summary: summaryItem(priced.Summary),
	})
}

var errRoomNotFound = errors.New("room not found")

func parseCandidate(req bookingRequest) (*model.BookingCandidate, error) {
	start, err := time.Parse(time.RFC3339, req.Start)
	if err != nil {
		return nil, errors.New("invalid start")
	}
	end, err := time.Parse(time.RFC3339, req.End)
	if err != nil {
		return nil, errors.New("invalid end")
	}
	if err := interval.Validate(start, end); err != nil {
		return nil, errors.New("end must be after start")
	}
	if req.Attendees < 1 {
		return nil, errors.New("attendees must be at least 1")
	}
	if len(req.Rooms) == 0 {
		return nil, errors.New("at least one room is required")
	}

	candidate := &model.BookingCandidate{
		Start:     start,
		End:       end,
		Attendees: req.Attendees,
	}
	seen := make(map[string]struct{}, len(req.Rooms))
	for _, sel := range req.Rooms {
		roomID := strings.TrimSpace(sel.RoomID)
		if roomID == "" {
			return nil, errors.New("room_id required on every selection")
		}
		if _, dup := seen[roomID]; dup {
			return nil, errors.New("duplicate room in selection")
		}
		seen[roomID] = struct{}{}
		costType := model.CostType(strings.TrimSpace(sel.CostType))
		if !costType.Valid() {
			return nil, errors.New("cost_type must be flat, hourly, or per_attendee")
		}
		candidate.Selections = append(candidate.Selections, model.RoomSelection{
			RoomID:     roomID,
			CostType:   costType,
			Facilities: sel.Facilities,
		})
	}
	return candidate, nil
}

// loadBookingInputs fetches the room records and per-room blocking
// reservation snapshots a pricing pass needs.
func loadBookingInputs(ctx context.Context, store RoomStore, candidate *model.BookingCandidate) (map[string]*model.Room, map[string][]model.Reservation, error) {
	rooms := make(map[string]*model.Room, len(candidate.Selections))
	snapshots := make(map[string][]model.Reservation, len(candidate.Selections))
	for _, sel := range candidate.Selections {
		room, err := store.FetchRoom(ctx, sel.RoomID)
		if err != nil {
			return nil, nil, errRoomNotFound
		}
		rooms[sel.RoomID] = room

		reservations, err := store.FetchBlockingReservations(ctx, sel.RoomID, candidate.Start, candidate.End)
		if err != nil {
			return nil, nil, err
		}
		snapshots[sel.RoomID] = reservations
	}
	return rooms, snapshots, nil
}

func writePricingError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var unavailable *booking.RoomUnavailableError
	if errors.As(err, &unavailable) {
		writeJSON(w, http.StatusConflict, conflictResponse{
			Error:         "room unavailable",
			RoomID:        unavailable.RoomID,
			ConflictStart: unavailable.ConflictStart.UTC().Format(time.RFC3339),
			ConflictEnd:   unavailable.ConflictEnd.UTC().Format(time.RFC3339),
		})
		return
	}
	if errors.Is(err, booking.ErrUnknownRoom) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	logger.Error("pricing failed", "err", err)
	http.Error(w, err.Error(), http.StatusUnprocessableEntity)
}

func costLineItems(logger *slog.Logger, lines []model.CostLine) []costLineItem {
	items := make([]costLineItem, 0, len(lines))
	for _, l := range lines {
		item := costLineItem{
			RoomID:     l.RoomID,
			RoomName:   l.RoomName,
			CostType:   string(l.CostType),
			BaseCents:  l.BaseCents,
			Hours:      l.Hours,
			TotalCents: l.TotalCents,
		}
		for _, f := range l.Facilities {
			item.Facilities = append(item.Facilities, facilityChargeItem{Name: f.Name, CostCents: f.CostCents})
		}
		if l.BaseCents == 0 {
			// Room priced under a cost type it has no rate for. Flag it so
			// the UI layer can refuse to confirm a free booking.
			item.ZeroBasePrice = true
			logger.Warn("zero base cost line", "room_id", l.RoomID, "cost_type", l.CostType)
		}
		items = append(items, item)
	}
	return items
}

func summaryItem(s model.CostSummary) costSummaryItem {
	return costSummaryItem{
		BaseCents:     s.BaseCents,
		FacilityCents: s.FacilityCents,
		GrandCents:    s.GrandCents,
		Hours:         s.Hours,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "failed to build response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
