package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/md-rashed-zaman/roomreserve/internal/model"
)

type fakeStore struct {
	rooms        map[string]*model.Room
	reservations map[string][]model.Reservation
}

func (f *fakeStore) FetchRoom(_ context.Context, roomID string) (*model.Room, error) {
	room, ok := f.rooms[roomID]
	if !ok {
		return nil, errRoomNotFound
	}
	return room, nil
}

func (f *fakeStore) ListRooms(_ context.Context) ([]model.Room, error) {
	out := make([]model.Room, 0, len(f.rooms))
	for _, r := range f.rooms {
		out = append(out, *r)
	}
	return out, nil
}

func (f *fakeStore) FetchBlockingReservations(_ context.Context, roomID string, _, _ time.Time) ([]model.Reservation, error) {
	return f.reservations[roomID], nil
}

func testStore() *fakeStore {
	return &fakeStore{
		rooms: map[string]*model.Room{
			"alpha": {ID: "alpha", Name: "Alpha", Capacity: 10, FlatRateCents: 10000,
				Facilities: []model.Facility{{Name: "Projector", CostCents: 1500}}},
			"beta": {ID: "beta", Name: "Beta", Capacity: 20, HourlyRateCents: 5000},
		},
		reservations: map[string][]model.Reservation{},
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func postQuote(t *testing.T, h *QuoteHandler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings/quote", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Quote(rec, req)
	return rec
}

func TestQuote_MultiRoom(t *testing.T) {
	h := NewQuoteHandler(testStore(), discardLogger())

	rec := postQuote(t, h, `{
		"start": "2025-03-10T09:00:00Z",
		"end": "2025-03-10T11:30:00Z",
		"attendees": 6,
		"rooms": [
			{"room_id": "alpha", "cost_type": "flat", "facilities": ["Projector", "Unknown"]},
			{"room_id": "beta", "cost_type": "hourly"}
		]
	}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp quoteResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Lines, 2)
	// Alpha: 10000 flat + 1500 projector, the unknown facility skipped.
	assert.Equal(t, int64(11500), resp.Lines[0].TotalCents)
	require.Len(t, resp.Lines[0].Facilities, 1)
	// Beta: 3 billed hours at 5000.
	assert.Equal(t, int64(15000), resp.Lines[1].TotalCents)
	assert.Equal(t, int64(26500), resp.Summary.GrandCents)
	assert.Equal(t, int64(3), resp.Summary.Hours)
}

func TestQuote_Conflict(t *testing.T) {
	store := testStore()
	store.reservations["beta"] = []model.Reservation{{
		ID: "existing", RoomID: "beta",
		Start:  time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC),
		End:    time.Date(2025, 3, 10, 10, 30, 0, 0, time.UTC),
		Status: model.StatusApproved,
	}}
	h := NewQuoteHandler(store, discardLogger())

	rec := postQuote(t, h, `{
		"start": "2025-03-10T09:00:00Z",
		"end": "2025-03-10T10:00:00Z",
		"attendees": 2,
		"rooms": [
			{"room_id": "alpha", "cost_type": "flat"},
			{"room_id": "beta", "cost_type": "hourly"}
		]
	}`)
	require.Equal(t, http.StatusConflict, rec.Code)

	var resp conflictResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "beta", resp.RoomID)
	assert.Equal(t, "2025-03-10T09:30:00Z", resp.ConflictStart)
}

func TestQuote_BackToBackAllowed(t *testing.T) {
	store := testStore()
	store.reservations["alpha"] = []model.Reservation{{
		ID: "existing", RoomID: "alpha",
		Start:  time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC),
		End:    time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC),
		Status: model.StatusApproved,
	}}
	h := NewQuoteHandler(store, discardLogger())

	rec := postQuote(t, h, `{
		"start": "2025-03-10T10:00:00Z",
		"end": "2025-03-10T11:00:00Z",
		"attendees": 2,
		"rooms": [{"room_id": "alpha", "cost_type": "flat"}]
	}`)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestQuote_ZeroBaseFlagged(t *testing.T) {
	store := testStore()
	// Alpha has no hourly rate configured.
	h := NewQuoteHandler(store, discardLogger())

	rec := postQuote(t, h, `{
		"start": "2025-03-10T09:00:00Z",
		"end": "2025-03-10T10:00:00Z",
		"attendees": 2,
		"rooms": [{"room_id": "alpha", "cost_type": "hourly"}]
	}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp quoteResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Lines, 1)
	assert.True(t, resp.Lines[0].ZeroBasePrice)
	assert.Equal(t, int64(0), resp.Lines[0].BaseCents)
}

func TestQuote_BadRequests(t *testing.T) {
	h := NewQuoteHandler(testStore(), discardLogger())

	cases := map[string]string{
		"unparsable json": `{`,
		"missing rooms":   `{"start":"2025-03-10T09:00:00Z","end":"2025-03-10T10:00:00Z","attendees":2,"rooms":[]}`,
		"inverted times":  `{"start":"2025-03-10T10:00:00Z","end":"2025-03-10T09:00:00Z","attendees":2,"rooms":[{"room_id":"alpha","cost_type":"flat"}]}`,
		"zero attendees":  `{"start":"2025-03-10T09:00:00Z","end":"2025-03-10T10:00:00Z","attendees":0,"rooms":[{"room_id":"alpha","cost_type":"flat"}]}`,
		"bad cost type":   `{"start":"2025-03-10T09:00:00Z","end":"2025-03-10T10:00:00Z","attendees":2,"rooms":[{"room_id":"alpha","cost_type":"weekly"}]}`,
		"duplicate room":  `{"start":"2025-03-10T09:00:00Z","end":"2025-03-10T10:00:00Z","attendees":2,"rooms":[{"room_id":"alpha","cost_type":"flat"},{"room_id":"alpha","cost_type":"flat"}]}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rec := postQuote(t, h, body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestQuote_UnknownRoom(t *testing.T) {
	h := NewQuoteHandler(testStore(), discardLogger())

	rec := postQuote(t, h, `{
		"start": "2025-03-10T09:00:00Z",
		"end": "2025-03-10T10:00:00Z",
		"attendees": 2,
		"rooms": [{"room_id": "ghost", "cost_type": "flat"}]
	}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
