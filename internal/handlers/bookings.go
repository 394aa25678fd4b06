package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/md-rashed-zaman/roomreserve/internal/booking"
	"github.com/md-rashed-zaman/roomreserve/internal/model"
	"github.com/md-rashed-zaman/roomreserve/internal/outbox"
	"github.com/md-rashed-zaman/roomreserve/internal/storage"
)

// BookingHandler owns the authoritative booking path. A quote is an
// estimate over a possibly stale snapshot; Create re-runs the conflict
// check inside the insert transaction with the room rows locked, so two
// racing attempts for the same slot cannot both commit.
type BookingHandler struct {
	repo       *storage.Repository
	outboxRepo *outbox.Repository
	cache      CalendarStore
	logger     *slog.Logger
}

func NewBookingHandler(repo *storage.Repository, outboxRepo *outbox.Repository, cache CalendarStore, logger *slog.Logger) *BookingHandler {
	return &BookingHandler{
		repo:       repo,
		outboxRepo: outboxRepo,
		cache:      cache,
		logger:     logger,
	}
}

type createBookingResponse struct {
	BookingID    string          `json:"booking_id"`
	Reservations []string        `json:"reservation_ids"`
	Lines        []costLineItem  `json:"lines"`
	Summary      costSummaryItem `json:"summary"`
}

type cancelBookingRequest struct {
	ReservationID string `json:"reservation_id"`
	Reason        string `json:"reason"`
}

type cancelBookingResponse struct {
	ReservationID string `json:"reservation_id"`
	Status        string `json:"status"`
	CancelledAt   string `json:"cancelled_at"`
}

type reservationItem struct {
	ReservationID string `json:"reservation_id"`
	BookingID     string `json:"booking_id"`
	RoomID        string `json:"room_id"`
	Start         string `json:"start"`
	End           string `json:"end"`
	Status        string `json:"status"`
	Attendees     int    `json:"attendees"`
	CancelledAt   string `json:"cancelled_at,omitempty"`
	CreatedAt     string `json:"created_at"`
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
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
	tx, err := h.repo.Begin(ctx)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	idempotencyKey := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if idempotencyKey != "" {
		rec, exists, err := h.repo.LockIdempotencyKey(ctx, tx, idempotencyKey)
		if err != nil {
			http.Error(w, "failed to lock idempotency key", http.StatusInternalServerError)
			return
		}
		if exists && rec.StatusCode > 0 && len(rec.ResponsePayload) > 0 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(rec.StatusCode)
			_, _ = w.Write(rec.ResponsePayload)
			return
		}
	}

	// Authoritative conflict check: lock every selected room, then price
	// against fresh in-transaction reads. Rooms are locked in selection
	// order; clients asking for the same set lock in the same order.
	rooms := make(map[string]*model.Room, len(candidate.Selections))
	snapshots := make(map[string][]model.Reservation, len(candidate.Selections))
	for _, sel := range candidate.Selections {
		if err := h.repo.LockRoom(ctx, tx, sel.RoomID); err != nil {
			if storage.IsNotFound(err) {
				http.Error(w, "room not found: "+sel.RoomID, http.StatusNotFound)
				return
			}
			http.Error(w, "failed to lock room", http.StatusInternalServerError)
			return
		}
		room, err := h.repo.FetchRoom(ctx, sel.RoomID)
		if err != nil {
			http.Error(w, "failed to load room", http.StatusInternalServerError)
			return
		}
		rooms[sel.RoomID] = room

		fresh, err := h.repo.BlockingReservationsInTx(ctx, tx, sel.RoomID, candidate.Start, candidate.End)
		if err != nil {
			http.Error(w, "failed to load reservations", http.StatusInternalServerError)
			return
		}
		snapshots[sel.RoomID] = fresh
	}

	priced, err := booking.PriceBooking(*candidate, rooms, snapshots)
	if err != nil {
		h.finalizePricingError(ctx, tx, idempotencyKey, err)
		writePricingError(w, h.logger, err)
		return
	}

	bookingID := uuid.NewString()
	reservationIDs := make([]string, 0, len(priced.Lines))
	for _, line := range priced.Lines {
		charges := make([]model.FacilityCharge, len(line.Facilities))
		copy(charges, line.Facilities)
		resv := &model.Reservation{
			BookingID:     bookingID,
			RoomID:        line.RoomID,
			Start:         candidate.Start,
			End:           candidate.End,
			Status:        model.StatusPending,
			AttendeeCount: candidate.Attendees,
			BookedBy:      strings.TrimSpace(req.BookedBy),
		}
		id, err := h.repo.CreateReservation(ctx, tx, resv, charges)
		if err != nil {
			if storage.IsConflict(err) {
				// The exclusion constraint caught what the locked re-read
				// somehow missed. Same outcome as a validator conflict.
				writeJSON(w, http.StatusConflict, conflictResponse{
					Error:  "room unavailable",
					RoomID: line.RoomID,
				})
				return
			}
			http.Error(w, "failed to create reservation", http.StatusInternalServerError)
			return
		}
		reservationIDs = append(reservationIDs, id)
	}

	evtPayload, err := json.Marshal(map[string]any{
		"booking_id":      bookingID,
		"reservation_ids": reservationIDs,
		"start":           candidate.Start.UTC().Format(time.RFC3339),
		"end":             candidate.End.UTC().Format(time.RFC3339),
		"attendees":       candidate.Attendees,
		"grand_cents":     priced.Summary.GrandCents,
	})
	if err != nil {
		http.Error(w, "failed to build event payload", http.StatusInternalServerError)
		return
	}
	if err := h.outboxRepo.Insert(ctx, tx, outbox.Event{
		AggregateType: "booking",
		AggregateID:   bookingID,
		EventType:     outbox.EventReservationBooked,
		Payload:       evtPayload,
	}); err != nil {
		http.Error(w, "failed to write outbox event", http.StatusInternalServerError)
		return
	}

	respBody, err := json.Marshal(createBookingResponse{
		BookingID:    bookingID,
		Reservations: reservationIDs,
		Lines:        costLineItems(h.logger, priced.Lines),
		Summary:      summaryItem(priced.Summary),
	})
	if err != nil {
		http.Error(w, "failed to build response", http.StatusInternalServerError)
		return
	}
	if idempotencyKey != "" {
		if err := h.repo.FinalizeIdempotency(ctx, tx, idempotencyKey, bookingID, http.StatusCreated, respBody); err != nil {
			http.Error(w, "failed to finalize idempotency key", http.StatusInternalServerError)
			return
		}
	}

	if err := tx.Commit(ctx); err != nil {
		http.Error(w, "failed to commit", http.StatusInternalServerError)
		return
	}

	h.invalidateCalendars(ctx, candidate.Selections)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_, _ = w.Write(respBody)
}

func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req cancelBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.ReservationID = strings.TrimSpace(req.ReservationID)
	if req.ReservationID == "" {
		http.Error(w, "reservation_id required", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	tx, err := h.repo.Begin(ctx)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	resv, err := h.repo.GetReservationForUpdate(ctx, tx, req.ReservationID)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "reservation not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load reservation", http.StatusInternalServerError)
		return
	}

	if resv.Status == model.StatusCancelled && resv.CancelledAt != nil {
		h.writeCancelResponse(w, resv.ID, resv.CancelledAt.UTC())
		return
	}
	if !resv.Status.Blocks() {
		http.Error(w, "reservation cannot be cancelled", http.StatusConflict)
		return
	}

	cancelledAt, err := h.repo.CancelReservation(ctx, tx, resv.ID, strings.TrimSpace(req.Reason))
	if err != nil {
		http.Error(w, "failed to cancel reservation", http.StatusInternalServerError)
		return
	}

	cancelPayload, err := json.Marshal(map[string]any{
		"reservation_id": resv.ID,
		"booking_id":     resv.BookingID,
		"room_id":        resv.RoomID,
		"start":          resv.Start.UTC().Format(time.RFC3339),
		"end":            resv.End.UTC().Format(time.RFC3339),
		"cancelled_at":   cancelledAt.UTC().Format(time.RFC3339),
		"reason":         strings.TrimSpace(req.Reason),
	})
	if err != nil {
		http.Error(w, "failed to build cancellation event", http.StatusInternalServerError)
		return
	}
	if err := h.outboxRepo.Insert(ctx, tx, outbox.Event{
		AggregateType: "booking",
		AggregateID:   resv.BookingID,
		EventType:     outbox.EventReservationCancelled,
		Payload:       cancelPayload,
	}); err != nil {
		http.Error(w, "failed to write outbox event", http.StatusInternalServerError)
		return
	}

	if err := tx.Commit(ctx); err != nil {
		http.Error(w, "failed to commit", http.StatusInternalServerError)
		return
	}

	h.invalidateCalendars(ctx, []model.RoomSelection{{RoomID: resv.RoomID}})
	h.writeCancelResponse(w, resv.ID, cancelledAt.UTC())
}

func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	roomID := strings.TrimSpace(r.URL.Query().Get("room_id"))
	limit := 50
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	reservations, err := h.repo.ListReservations(r.Context(), roomID, limit)
	if err != nil {
		http.Error(w, "failed to list reservations", http.StatusInternalServerError)
		return
	}

	items := make([]reservationItem, 0, len(reservations))
	for _, resv := range reservations {
		item := reservationItem{
			ReservationID: resv.ID,
			BookingID:     resv.BookingID,
			RoomID:        resv.RoomID,
			Start:         resv.Start.UTC().Format(time.RFC3339),
			End:           resv.End.UTC().Format(time.RFC3339),
			Status:        string(resv.Status),
			Attendees:     resv.AttendeeCount,
			CreatedAt:     resv.CreatedAt.UTC().Format(time.RFC3339),
		}
		if resv.CancelledAt != nil {
			item.CancelledAt = resv.CancelledAt.UTC().Format(time.RFC3339)
		}
		items = append(items, item)
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *BookingHandler) invalidateCalendars(ctx context.Context, selections []model.RoomSelection) {
	if h.cache == nil {
		return
	}
	for _, sel := range selections {
		if err := h.cache.InvalidateRoom(ctx, sel.RoomID); err != nil {
			h.logger.Warn("calendar cache invalidation failed", "err", err, "room_id", sel.RoomID)
		}
	}
}

func (h *BookingHandler) finalizePricingError(ctx context.Context, tx pgx.Tx, idempotencyKey string, err error) {
	if idempotencyKey == "" {
		return
	}
	var unavailable *booking.RoomUnavailableError
	status := http.StatusUnprocessableEntity
	if errors.As(err, &unavailable) {
		status = http.StatusConflict
	}
	body, mErr := json.Marshal(map[string]string{"error": err.Error()})
	if mErr != nil {
		return
	}
	if fErr := h.repo.FinalizeIdempotency(ctx, tx, idempotencyKey, "", status, body); fErr != nil {
		h.logger.Error("failed to finalize idempotency (error)", "err", fErr)
		return
	}
	_ = tx.Commit(ctx)
}

func (h *BookingHandler) writeCancelResponse(w http.ResponseWriter, reservationID string, cancelledAt time.Time) {
	writeJSON(w, http.StatusOK, cancelBookingResponse{
		ReservationID: reservationID,
		Status:        string(model.StatusCancelled),
		CancelledAt:   cancelledAt.Format(time.RFC3339),
	})
}
