// internal/api/router_test.go
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/jason-s-yu/bluff/internal/cache"
	"github.com/jason-s-yu/bluff/internal/database"
	"github.com/jason-s-yu/bluff/internal/game"
	"github.com/jason-s-yu/bluff/internal/models"
	"github.com/jason-s-yu/bluff/internal/ws"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fakeActions struct {
	gotRoom  string
	gotLimit int
	recs     []cache.RoomActionRecord
	err      error
}

func (f *fakeActions) RecentActions(_ context.Context, roomName string, limit int) ([]cache.RoomActionRecord, error) {
	f.gotRoom, f.gotLimit = roomName, limit
	return f.recs, f.err
}

type fakeResults struct {
	res []database.GameResult
	err error
}

func (f *fakeResults) RecentResults(context.Context, int) ([]database.GameResult, error) {
	return f.res, f.err
}

func newTestRouter(t *testing.T, opts Options) (http.Handler, *ws.Hub) {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	hub := ws.NewHub(ws.Options{Logger: logger, Game: game.Options{PasswordCost: bcrypt.MinCost}})
	opts.Logger = logger
	return NewRouter(hub, opts), hub
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthAndRooms(t *testing.T) {
	h, hub := newTestRouter(t, Options{})
	require.NoError(t, hub.Coordinator().CreateRoom(uuid.New(), "alpha", "pw", models.Identity{Username: "a", Avatar: "a"}))

	rec := get(t, h, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"rooms":1`)

	rec = get(t, h, "/rooms")
	require.Equal(t, http.StatusOK, rec.Code)
	var rooms []game.RoomSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rooms))
	require.Len(t, rooms, 1)
	assert.True(t, rooms[0].IsPrivate)
	assert.NotContains(t, rec.Body.String(), "pw")
}

func TestRoomActions(t *testing.T) {
	actions := &fakeActions{recs: []cache.RoomActionRecord{{RoomName: "alpha", ActionType: "discard"}}}
	h, _ := newTestRouter(t, Options{Actions: actions})

	rec := get(t, h, "/rooms/alpha/actions?limit=5")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alpha", actions.gotRoom)
	assert.Equal(t, 5, actions.gotLimit)
	assert.Contains(t, rec.Body.String(), `"actionType":"discard"`)

	rec = get(t, h, "/rooms/alpha/actions?limit=0")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	actions.err = errors.New("redis down")
	rec = get(t, h, "/rooms/alpha/actions")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, defaultLimit, actions.gotLimit)
}

func TestResults(t *testing.T) {
	h, _ := newTestRouter(t, Options{Results: &fakeResults{}})
	rec := get(t, h, "/results")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestDisabledHistoriesAre404(t *testing.T) {
	h, _ := newTestRouter(t, Options{})
	assert.Equal(t, http.StatusNotFound, get(t, h, "/results").Code)
	assert.Equal(t, http.StatusNotFound, get(t, h, "/rooms/alpha/actions").Code)
}

func TestCORSPreflight(t *testing.T) {
	h, _ := newTestRouter(t, Options{AllowOrigins: []string{"http://localhost:3000"}})

	req := httptest.NewRequest(http.MethodOptions, "/rooms", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/rooms", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
