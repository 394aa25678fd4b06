package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/md-rashed-zaman/roomreserve/internal/model"
)

type fakeCache struct {
	entries     map[string][]byte
	invalidated []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[string][]byte{}}
}

func cacheKey(roomID, fromDay string, days int) string {
	return fmt.Sprintf("%s|%s|%d", roomID, fromDay, days)
}

func (f *fakeCache) Get(_ context.Context, roomID, fromDay string, days int) ([]byte, bool, error) {
	data, ok := f.entries[cacheKey(roomID, fromDay, days)]
	return data, ok, nil
}

func (f *fakeCache) Set(_ context.Context, roomID, fromDay string, days int, payload []byte) error {
	f.entries[cacheKey(roomID, fromDay, days)] = payload
	return nil
}

func (f *fakeCache) InvalidateRoom(_ context.Context, roomID string) error {
	f.invalidated = append(f.invalidated, roomID)
	for k := range f.entries {
		if strings.HasPrefix(k, roomID+"|") {
			delete(f.entries, k)
		}
	}
	return nil
}

func calendarRequest(t *testing.T, h *CalendarHandler, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	h.Calendar(rec, req)
	return rec
}

func fixedClock(h *CalendarHandler, now time.Time) {
	h.now = func() time.Time { return now }
}

func TestCalendar_MarksSpannedDays(t *testing.T) {
	store := testStore()
	store.reservations["alpha"] = []model.Reservation{{
		ID: "multi", RoomID: "alpha",
		Start:  time.Date(2025, 3, 10, 22, 0, 0, 0, time.UTC),
		End:    time.Date(2025, 3, 12, 2, 0, 0, 0, time.UTC),
		Status: model.StatusApproved,
	}}
	h := NewCalendarHandler(store, nil, discardLogger())
	fixedClock(h, time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))

	rec := calendarRequest(t, h, "/api/v1/rooms/calendar?room_id=alpha&from=2025-03-08&days=7")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp calendarResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Days, 7)

	byDate := map[string]calendarDay{}
	for _, d := range resp.Days {
		byDate[d.Date] = d
	}
	for _, date := range []string{"2025-03-10", "2025-03-11", "2025-03-12"} {
		assert.True(t, byDate[date].Booked, "expected %s booked", date)
		assert.False(t, byDate[date].Available)
		require.Len(t, byDate[date].Reservations, 1)
		assert.Equal(t, "multi", byDate[date].Reservations[0].ReservationID)
	}
	assert.False(t, byDate["2025-03-09"].Booked)
	assert.True(t, byDate["2025-03-09"].Available)
}

func TestCalendar_PastDaysUnavailable(t *testing.T) {
	h := NewCalendarHandler(testStore(), nil, discardLogger())
	fixedClock(h, time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC))

	rec := calendarRequest(t, h, "/api/v1/rooms/calendar?room_id=alpha&from=2025-03-08&days=5")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp calendarResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	byDate := map[string]calendarDay{}
	for _, d := range resp.Days {
		byDate[d.Date] = d
	}
	assert.False(t, byDate["2025-03-09"].Available, "yesterday is not bookable")
	assert.True(t, byDate["2025-03-10"].Available, "today is bookable")
	assert.True(t, byDate["2025-03-11"].Available)
}

func TestCalendar_CacheRoundTrip(t *testing.T) {
	store := testStore()
	cache := newFakeCache()
	h := NewCalendarHandler(store, cache, discardLogger())
	fixedClock(h, time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))

	first := calendarRequest(t, h, "/api/v1/rooms/calendar?room_id=alpha&from=2025-03-08&days=7")
	require.Equal(t, http.StatusOK, first.Code)

	// Second read must be served from the cache even if the store changes.
	store.reservations["alpha"] = []model.Reservation{{
		ID: "new", RoomID: "alpha",
		Start:  time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC),
		End:    time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC),
		Status: model.StatusApproved,
	}}
	second := calendarRequest(t, h, "/api/v1/rooms/calendar?room_id=alpha&from=2025-03-08&days=7")
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
}

func TestCalendar_BadRequests(t *testing.T) {
	h := NewCalendarHandler(testStore(), nil, discardLogger())

	assert.Equal(t, http.StatusBadRequest, calendarRequest(t, h, "/api/v1/rooms/calendar").Code)
	assert.Equal(t, http.StatusBadRequest, calendarRequest(t, h, "/api/v1/rooms/calendar?room_id=alpha&from=notadate").Code)
	assert.Equal(t, http.StatusBadRequest, calendarRequest(t, h, "/api/v1/rooms/calendar?room_id=alpha&days=0").Code)
	assert.Equal(t, http.StatusNotFound, calendarRequest(t, h, "/api/v1/rooms/calendar?room_id=ghost").Code)
}
