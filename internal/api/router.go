// internal/api/router.go
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jason-s-yu/bluff/internal/cache"
	"github.com/jason-s-yu/bluff/internal/database"
	"github.com/jason-s-yu/bluff/internal/ws"
	"github.com/sirupsen/logrus"
)

const (
	defaultLimit = 50
	maxLimit     = 500
)

// ActionHistory reads back recorded room actions.
type ActionHistory interface {
	RecentActions(ctx context.Context, roomName string, limit int) ([]cache.RoomActionRecord, error)
}

// ResultHistory reads back finished games.
type ResultHistory interface {
	RecentResults(ctx context.Context, limit int) ([]database.GameResult, error)
}

// Options configures the router. Nil histories disable their endpoints.
type Options struct {
	AllowOrigins []string
	Actions      ActionHistory
	Results      ResultHistory
	Logger       logrus.FieldLogger
}

type server struct {
	hub     *ws.Hub
	actions ActionHistory
	results ResultHistory
	log     logrus.FieldLogger
}

// NewRouter mounts the websocket endpoint and the read-only HTTP endpoints.
func NewRouter(hub *ws.Hub, opts Options) http.Handler {
	s := &server{hub: hub, actions: opts.Actions, results: opts.Results, log: opts.Logger}
	if s.log == nil {
		s.log = logrus.StandardLogger()
	}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors(opts.AllowOrigins))
	r.Use(s.requestLogger)

	r.Get("/ws", hub.ServeWS)
	r.Get("/healthz", s.health)
	r.Get("/rooms", s.listRooms)
	r.Get("/rooms/{roomName}/actions", s.roomActions)
	r.Get("/results", s.recentResults)
	return r
}

func (s *server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"clients": s.hub.ClientCount(),
		"rooms":   s.hub.Coordinator().Directory().Len(),
	})
}

func (s *server) listRooms(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.hub.Coordinator().ListRooms())
}

func (s *server) roomActions(w http.ResponseWriter, r *http.Request) {
	if s.actions == nil {
		writeError(w, http.StatusNotFound, "action history is not enabled")
		return
	}
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}
	roomName := chi.URLParam(r, "roomName")
	recs, err := s.actions.RecentActions(r.Context(), roomName, limit)
	if err != nil {
		s.log.WithError(err).WithField("room", roomName).Error("Failed reading room actions.")
		writeError(w, http.StatusBadGateway, "failed to read action history")
		return
	}
	if recs == nil {
		recs = []cache.RoomActionRecord{}
	}
	writeJSON(w, http.StatusOK, recs)
}

func (s *server) recentResults(w http.ResponseWriter, r *http.Request) {
	if s.results == nil {
		writeError(w, http.StatusNotFound, "result storage is not enabled")
		return
	}
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}
	res, err := s.results.RecentResults(r.Context(), limit)
	if err != nil {
		s.log.WithError(err).Error("Failed reading game results.")
		writeError(w, http.StatusBadGateway, "failed to read game results")
		return
	}
	if res == nil {
		res = []database.GameResult{}
	}
	writeJSON(w, http.StatusOK, res)
}

func parseLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultLimit, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 || n > maxLimit {
		writeError(w, http.StatusBadRequest, "limit must be between 1 and "+strconv.Itoa(maxLimit))
		return 0, false
	}
	return n, true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// requestLogger logs plain HTTP requests. Websocket upgrades log through the hub.
func (s *server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/ws" {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   ww.Status(),
			"duration": time.Since(start),
		}).Debug("HTTP request.")
	})
}

// cors allows the listed origins and answers preflight requests.
func cors(allow []string) func(http.Handler) http.Handler {
	allowSet := map[string]struct{}{}
	for _, a := range allow {
		if a != "" {
			allowSet[a] = struct{}{}
		}
	}
	_, allowAll := allowSet["*"]
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if origin := r.Header.Get("Origin"); origin != "" {
				if _, ok := allowSet[origin]; ok || allowAll {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Set("Vary", "Origin")
				}
			}
			if r.Method == http.MethodOptions {
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
				w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
