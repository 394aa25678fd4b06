package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/md-rashed-zaman/roomreserve/internal/availability"
	"github.com/md-rashed-zaman/roomreserve/internal/interval"
)

// CalendarHandler serves the day-granularity availability view of a room
// over a forward horizon. Responses are cached per (room, window) in Redis
// with a short TTL; the cache never feeds booking decisions.
type CalendarHandler struct {
	store  RoomStore
	cache  CalendarStore
	logger *slog.Logger
	now    func() time.Time
}

func NewCalendarHandler(store RoomStore, cache CalendarStore, logger *slog.Logger) *CalendarHandler {
	return &CalendarHandler{
		store:  store,
		cache:  cache,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

type calendarDay struct {
	Date         string          `json:"date"`
	Booked       bool            `json:"booked"`
	Available    bool            `json:"available"`
	Reservations []calendarEntry `json:"reservations,omitempty"`
}

type calendarEntry struct {
	ReservationID string `json:"reservation_id"`
	Start         string `json:"start"`
	End           string `json:"end"`
	Status        string `json:"status"`
}

type calendarResponse struct {
	RoomID string        `json:"room_id"`
	From   string        `json:"from"`
	Days   []calendarDay `json:"days"`
}

func (h *CalendarHandler) Calendar(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	roomID := strings.TrimSpace(r.URL.Query().Get("room_id"))
	if roomID == "" {
		http.Error(w, "room_id required", http.StatusBadRequest)
		return
	}

	now := h.now()
	from := now
	if raw := strings.TrimSpace(r.URL.Query().Get("from")); raw != "" {
		parsed, err := time.ParseInLocation("2006-01-02", raw, time.UTC)
		if err != nil {
			http.Error(w, "invalid from date", http.StatusBadRequest)
			return
		}
		from = parsed
	}
	days := availability.DefaultHorizonDays
	if raw := strings.TrimSpace(r.URL.Query().Get("days")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 366 {
			http.Error(w, "days must be between 1 and 366", http.StatusBadRequest)
			return
		}
		days = n
	}
	fromKey := interval.DayKey(from)

	ctx := r.Context()
	if h.cache != nil {
		if payload, hit, err := h.cache.Get(ctx, roomID, fromKey, days); err != nil {
			h.logger.Warn("calendar cache read failed", "err", err, "room_id", roomID)
		} else if hit {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write(payload)
			return
		}
	}

	if _, err := h.store.FetchRoom(ctx, roomID); err != nil {
		http.Error(w, "room not found", http.StatusNotFound)
		return
	}

	horizonStart := midnightUTC(from)
	reservations, err := h.store.FetchBlockingReservations(ctx, roomID, horizonStart, horizonStart.AddDate(0, 0, days))
	if err != nil {
		http.Error(w, "failed to load reservations", http.StatusInternalServerError)
		return
	}

	idx := availability.BuildIndex(reservations, horizonStart, days, now, nil)

	resp := calendarResponse{RoomID: roomID, From: fromKey}
	for d := horizonStart; d.Before(idx.HorizonEnd()); d = d.AddDate(0, 0, 1) {
		day := calendarDay{
			Date:      interval.DayKey(d),
			Booked:    idx.IsBooked(d),
			Available: idx.IsAvailable(d),
		}
		entries := idx.ReservationsOn(d)
		if len(entries) > 0 {
			// The index preserves insertion order; the calendar view wants
			// chronological order.
			sorted := make([]calendarEntry, 0, len(entries))
			for _, resv := range entries {
				sorted = append(sorted, calendarEntry{
					ReservationID: resv.ID,
					Start:         resv.Start.UTC().Format(time.RFC3339),
					End:           resv.End.UTC().Format(time.RFC3339),
					Status:        string(resv.Status),
				})
			}
			sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })
			day.Reservations = sorted
		}
		resp.Days = append(resp.Days, day)
	}

	body, err := json.Marshal(resp)
	if err != nil {
		http.Error(w, "failed to build response", http.StatusInternalServerError)
		return
	}

	if h.cache != nil {
		if err := h.cache.Set(ctx, roomID, fromKey, days, body); err != nil {
			h.logger.Warn("calendar cache write failed", "err", err, "room_id", roomID)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(body)
}

func midnightUTC(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
