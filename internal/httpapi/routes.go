package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/DoyleJ11/vulture-market/internal/hub"
	"github.com/DoyleJ11/vulture-market/internal/ws"
)

// SetupRoutes wires the API. db may be nil, which drops the leaderboard.
// origins are passed to the websocket origin check.
func SetupRoutes(h *hub.Hub, log *zap.Logger, db Archive, origins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	// Public routes
	r.Post("/sessions", CreateSession(h, log))
	r.Get("/sessions/{code}", GetSession(h))
	r.Get("/healthz", Healthz(db))
	r.Get("/ws", ws.Handler(h, log, origins))
	if db != nil {
		r.Get("/leaderboard", Leaderboard(db, log))
	}
	return r
}
