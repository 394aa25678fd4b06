package handlers

import (
	"log/slog"
	"net/http"
)

type RoomsHandler struct {
	store  RoomStore
	logger *slog.Logger
}

func NewRoomsHandler(store RoomStore, logger *slog.Logger) *RoomsHandler {
	return &RoomsHandler{store: store, logger: logger}
}

type facilityItem struct {
	Name      string `json:"name"`
	CostCents int64  `json:"cost_cents"`
}

type roomItem struct {
	RoomID            string         `json:"room_id"`
	Name              string         `json:"name"`
	Capacity          int            `json:"capacity"`
	FlatRateCents     int64          `json:"flat_rate_cents,omitempty"`
	HourlyRateCents   int64          `json:"hourly_rate_cents,omitempty"`
	AttendeeRateCents int64          `json:"attendee_rate_cents,omitempty"`
	Facilities        []facilityItem `json:"facilities,omitempty"`
}

func (h *RoomsHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	rooms, err := h.store.ListRooms(r.Context())
	if err != nil {
		h.logger.Error("room listing failed", "err", err)
		http.Error(w, "failed to list rooms", http.StatusInternalServerError)
		return
	}

	items := make([]roomItem, 0, len(rooms))
	for _, room := range rooms {
		item := roomItem{
			RoomID:            room.ID,
			Name:              room.Name,
			Capacity:          room.Capacity,
			FlatRateCents:     room.FlatRateCents,
			HourlyRateCents:   room.HourlyRateCents,
			AttendeeRateCents: room.AttendeeRateCents,
		}
		for _, f := range room.Facilities {
			item.Facilities = append(item.Facilities, facilityItem{Name: f.Name, CostCents: f.CostCents})
		}
		items = append(items, item)
	}
	writeJSON(w, http.StatusOK, items)
}
