package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/DoyleJ11/vulture-market/internal/hub"
	"github.com/DoyleJ11/vulture-market/internal/store"
	"github.com/DoyleJ11/vulture-market/internal/ws"
)

const (
	defaultLeaderboard = 10
	maxLeaderboard     = 100
	pingTimeout        = 2 * time.Second
)

// Archive is the slice of the results store the API reads from.
type Archive interface {
	Ping(ctx context.Context) error
	TopScores(ctx context.Context, limit int) ([]store.TopScore, error)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func CreateSession(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := h.Create(r.Context())
		if err != nil {
			log.Error("create session", zap.Error(err))
			http.Error(w, "failed to create session", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusCreated, struct {
			Code string `json:"code"`
			ID   string `json:"id"`
		}{Code: s.Code(), ID: s.ID()})
	}
}

func GetSession(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := h.Get(r.Context(), chi.URLParam(r, "code"))
		if err != nil {
			http.Error(w, "hub unavailable", http.StatusServiceUnavailable)
			return
		}
		if s == nil {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
		v, err := s.State(r.Context())
		if err != nil {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, ws.Snapshot(v))
	}
}

func Leaderboard(db Archive, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := defaultLeaderboard
		if q := r.URL.Query().Get("limit"); q != "" {
			n, err := strconv.Atoi(q)
			if err != nil || n < 1 {
				http.Error(w, "bad limit", http.StatusBadRequest)
				return
			}
			limit = min(n, maxLeaderboard)
		}
		rows, err := db.TopScores(r.Context(), limit)
		if err != nil {
			log.Error("leaderboard", zap.Error(err))
			http.Error(w, "leaderboard unavailable", http.StatusInternalServerError)
			return
		}
		if rows == nil {
			rows = []store.TopScore{}
		}
		writeJSON(w, http.StatusOK, rows)
	}
}

// Healthz reports 200, or 503 when the archive is configured but unreachable.
func Healthz(db Archive) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
			defer cancel()
			if err := db.Ping(ctx); err != nil {
				http.Error(w, "database unreachable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	}
}
