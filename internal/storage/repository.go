// Package storage is the persistence boundary of the reservation engine.
// The engine itself works on snapshots; the authoritative conflict check
// happens here, inside the same transaction that inserts the reservation,
// with the room row locked and a fresh read of its blocking reservations.
// A Postgres exclusion constraint on (room_id, tstzrange) backstops the
// check so two racing bookings can never both commit.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/md-rashed-zaman/roomreserve/internal/model"
	"github.com/md-rashed-zaman/roomreserve/libs/db"
)

type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

// FetchRoom loads a room with its current rates and ordered facility list.
func (r *Repository) FetchRoom(ctx context.Context, roomID string) (*model.Room, error) {
	var room model.Room
	err := r.pool.QueryRow(ctx, `
		SELECT id::text, name, capacity,
			COALESCE(flat_rate_cents, 0),
			COALESCE(hourly_rate_cents, 0),
			COALESCE(attendee_rate_cents, 0)
		FROM rooms
		WHERE id = $1
	`, roomID).Scan(&room.ID, &room.Name, &room.Capacity,
		&room.FlatRateCents, &room.HourlyRateCents, &room.AttendeeRateCents)
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT name, cost_cents
		FROM room_facilities
		WHERE room_id = $1
		ORDER BY position ASC
	`, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var f model.Facility
		if err := rows.Scan(&f.Name, &f.CostCents); err != nil {
			return nil, err
		}
		room.Facilities = append(room.Facilities, f)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return &room, nil
}

func (r *Repository) ListRooms(ctx context.Context) ([]model.Room, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, name, capacity,
			COALESCE(flat_rate_cents, 0),
			COALESCE(hourly_rate_cents, 0),
			COALESCE(attendee_rate_cents, 0)
		FROM rooms
		ORDER BY name ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rooms []model.Room
	for rows.Next() {
		var room model.Room
		if err := rows.Scan(&room.ID, &room.Name, &room.Capacity,
			&room.FlatRateCents, &room.HourlyRateCents, &room.AttendeeRateCents); err != nil {
			return nil, err
		}
		rooms = append(rooms, room)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}

	for i := range rooms {
		full, err := r.FetchRoom(ctx, rooms[i].ID)
		if err != nil {
			return nil, err
		}
		rooms[i].Facilities = full.Facilities
	}
	return rooms, nil
}

const reservationColumns = `
	id::text, booking_id::text, room_id::text, start_time, end_time, status,
	attendee_count, COALESCE(booked_by, ''), created_at, cancelled_at,
	COALESCE(cancellation_reason, '')`

// FetchBlockingReservations returns the room's non-cancelled, non-rejected
// reservations intersecting [from, to), in creation order. Half-open on both
// sides of the comparison, matching the engine's overlap semantics.
func (r *Repository) FetchBlockingReservations(ctx context.Context, roomID string, from, to time.Time) ([]model.Reservation, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+reservationColumns+`
		FROM reservations
		WHERE room_id = $1
			AND status NOT IN ('rejected', 'cancelled')
			AND start_time < $3
			AND end_time > $2
		ORDER BY created_at ASC
	`, roomID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanReservations(rows)
}

// LockRoom takes a row lock on the room for the duration of the transaction,
// serialising concurrent booking attempts for the same room.
func (r *Repository) LockRoom(ctx context.Context, tx pgx.Tx, roomID string) error {
	var id string
	return tx.QueryRow(ctx, `
		SELECT id::text FROM rooms WHERE id = $1 FOR UPDATE
	`, roomID).Scan(&id)
}

// BlockingReservationsInTx re-reads the room's blocking reservations inside
// the commit transaction. This, not the earlier UI-facing snapshot, is what
// the final conflict decision runs against.
func (r *Repository) BlockingReservationsInTx(ctx context.Context, tx pgx.Tx, roomID string, from, to time.Time) ([]model.Reservation, error) {
	rows, err := tx.Query(ctx, `
		SELECT `+reservationColumns+`
		FROM reservations
		WHERE room_id = $1
			AND status NOT IN ('rejected', 'cancelled')
			AND start_time < $3
			AND end_time > $2
		ORDER BY created_at ASC
	`, roomID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanReservations(rows)
}

// CreateReservation inserts one reservation plus its facility charge
// snapshot. Charges are copied at booking time so later facility price
// changes never retroactively alter committed bookings.
func (r *Repository) CreateReservation(ctx context.Context, tx pgx.Tx, resv *model.Reservation, charges []model.FacilityCharge) (string, error) {
	if resv.ID == "" {
		resv.ID = uuid.NewString()
	}
	var id string
	err := tx.QueryRow(ctx, `
		INSERT INTO reservations
			(id, booking_id, room_id, start_time, end_time, status, attendee_count, booked_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id::text
	`, resv.ID, resv.BookingID, resv.RoomID, resv.Start, resv.End,
		resv.Status, resv.AttendeeCount, resv.BookedBy).Scan(&id)
	if err != nil {
		return "", err
	}

	for _, c := range charges {
		if _, err := tx.Exec(ctx, `
			INSERT INTO reservation_facilities (reservation_id, name, cost_cents)
			VALUES ($1, $2, $3)
		`, id, c.Name, c.CostCents); err != nil {
			return "", err
		}
	}
	return id, nil
}

func (r *Repository) GetReservationForUpdate(ctx context.Context, tx pgx.Tx, reservationID string) (model.Reservation, error) {
	row := tx.QueryRow(ctx, `
		SELECT `+reservationColumns+`
		FROM reservations
		WHERE id = $1
		FOR UPDATE
	`, reservationID)
	return scanReservation(row)
}

func (r *Repository) CancelReservation(ctx context.Context, tx pgx.Tx, reservationID, reason string) (time.Time, error) {
	var cancelledAt time.Time
	err := tx.QueryRow(ctx, `
		UPDATE reservations
		SET status = 'cancelled',
			cancelled_at = now(),
			cancellation_reason = $2
		WHERE id = $1
		RETURNING cancelled_at
	`, reservationID, reason).Scan(&cancelledAt)
	return cancelledAt, err
}

func (r *Repository) ListReservations(ctx context.Context, roomID string, limit int) ([]model.Reservation, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+reservationColumns+`
		FROM reservations
		WHERE ($1 = '' OR room_id::text = $1)
		ORDER BY start_time DESC
		LIMIT $2
	`, roomID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanReservations(rows)
}

type IdempotencyRecord struct {
	IdempotencyKey  string
	BookingID       string
	StatusCode      int
	ResponsePayload []byte
}

// LockIdempotencyKey claims the key inside the transaction, returning the
// stored record when a previous attempt already finished.
func (r *Repository) LockIdempotencyKey(ctx context.Context, tx pgx.Tx, key string) (IdempotencyRecord, bool, error) {
	rec, err := r.selectIdempotencyForUpdate(ctx, tx, key)
	if err == nil {
		return rec, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return IdempotencyRecord{}, false, err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO booking_idempotency_keys (idempotency_key)
		VALUES ($1)
		ON CONFLICT (idempotency_key) DO NOTHING
	`, key)
	if err != nil {
		return IdempotencyRecord{}, false, err
	}

	rec, err = r.selectIdempotencyForUpdate(ctx, tx, key)
	if err != nil {
		return IdempotencyRecord{}, false, err
	}
	return rec, false, nil
}

func (r *Repository) FinalizeIdempotency(ctx context.Context, tx pgx.Tx, key, bookingID string, statusCode int, response []byte) error {
	_, err := tx.Exec(ctx, `
		UPDATE booking_idempotency_keys
		SET booking_id = $2,
			status_code = $3,
			response_payload = $4,
			updated_at = now()
		WHERE idempotency_key = $1
	`, key, nullIfEmpty(bookingID), statusCode, response)
	return err
}

// IsConflict reports whether the error is the reservations_no_overlap
// exclusion constraint firing (SQLSTATE 23P01).
func IsConflict(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23P01"
}

func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

func (r *Repository) selectIdempotencyForUpdate(ctx context.Context, tx pgx.Tx, key string) (IdempotencyRecord, error) {
	var rec IdempotencyRecord
	var responseText string
	err := tx.QueryRow(ctx, `
		SELECT idempotency_key,
			COALESCE(booking_id::text, ''),
			COALESCE(status_code, 0),
			COALESCE(response_payload::text, '')
		FROM booking_idempotency_keys
		WHERE idempotency_key = $1
		FOR UPDATE
	`, key).Scan(&rec.IdempotencyKey, &rec.BookingID, &rec.StatusCode, &responseText)
	if err != nil {
		return IdempotencyRecord{}, err
	}
	if responseText != "" {
		rec.ResponsePayload = []byte(responseText)
	}
	return rec, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReservation(row rowScanner) (model.Reservation, error) {
	var resv model.Reservation
	var cancelledAt *time.Time
	err := row.Scan(
		&resv.ID,
		&resv.BookingID,
		&resv.RoomID,
		&resv.Start,
		&resv.End,
		&resv.Status,
		&resv.AttendeeCount,
		&resv.BookedBy,
		&resv.CreatedAt,
		&cancelledAt,
		&resv.CancelReason,
	)
	if err != nil {
		return model.Reservation{}, err
	}
	resv.CancelledAt = cancelledAt
	return resv, nil
}

func scanReservations(rows pgx.Rows) ([]model.Reservation, error) {
	var out []model.Reservation
	for rows.Next() {
		resv, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, resv)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
