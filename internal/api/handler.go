// Package api serves pre-game and realtime squares odds over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/charleschow/squares-odds/internal/core/digits"
	"github.com/charleschow/squares-odds/internal/core/live"
	"github.com/charleschow/squares-odds/internal/core/odds"
	"github.com/charleschow/squares-odds/internal/core/teams"
	"github.com/charleschow/squares-odds/internal/telemetry"
)

// PregameBuilder is satisfied by *pregame.Service.
type PregameBuilder interface {
	Build(ctx context.Context, home, away string, rows, cols digits.Labels) (odds.Result, error)
}

// SnapshotFetcher is satisfied by *live.Fetcher.
type SnapshotFetcher interface {
	Fetch(ctx context.Context, req live.Request) (*live.Snapshot, error)
}

// RealtimeBuilder is satisfied by *realtime.Engine.
type RealtimeBuilder interface {
	Build(base odds.Result, snap *live.Snapshot, rows, cols digits.Labels) odds.RealtimeResult
}

type Handler struct {
	pregame  PregameBuilder
	fetcher  SnapshotFetcher
	realtime RealtimeBuilder
	ws       http.Handler
	metrics  http.Handler
	started  time.Time
}

func NewHandler(pregame PregameBuilder, fetcher SnapshotFetcher, realtime RealtimeBuilder, ws, metrics http.Handler) *Handler {
	return &Handler{
		pregame:  pregame,
		fetcher:  fetcher,
		realtime: realtime,
		ws:       ws,
		metrics:  metrics,
		started:  time.Now(),
	}
}

func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /odds", h.handleOdds)
	mux.HandleFunc("GET /realtime", h.handleRealtime)
	mux.HandleFunc("GET /health", h.handleHealth)
	if h.ws != nil {
		mux.Handle("GET /ws", h.ws)
	}
	if h.metrics != nil {
		mux.Handle("GET /metrics", h.metrics)
	}
}

type oddsQuery struct {
	home, away string
	rows, cols digits.Labels
	date       string
	event      string
}

func parseQuery(r *http.Request) (oddsQuery, error) {
	q := r.URL.Query()
	oq := oddsQuery{home: q.Get("home"), away: q.Get("away"), date: q.Get("date"), event: q.Get("event")}
	if oq.home == "" || oq.away == "" {
		return oq, errors.New("home and away are required")
	}
	var err error
	if oq.rows, err = digits.ParseLabels(q.Get("rows")); err != nil {
		return oq, err
	}
	if oq.cols, err = digits.ParseLabels(q.Get("cols")); err != nil {
		return oq, err
	}
	return oq, nil
}

func (h *Handler) handleOdds(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	res, err := h.pregame.Build(r.Context(), q.home, q.away, q.rows, q.cols)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// realtimeResponse carries either a realtime result or, when no live event
// exists yet, the pre-game result.
type realtimeResponse struct {
	Live     bool                 `json:"live"`
	Realtime *odds.RealtimeResult `json:"realtime,omitempty"`
	Pregame  *odds.Result         `json:"pregame,omitempty"`
	Warning  string               `json:"warning,omitempty"`
}

func (h *Handler) handleRealtime(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	base, err := h.pregame.Build(r.Context(), q.home, q.away, q.rows, q.cols)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	snap, err := h.fetcher.Fetch(r.Context(), live.Request{Home: q.home, Away: q.away, Date: q.date, EventID: q.event})
	if err != nil {
		telemetry.Warnf("api: live fetch %s@%s: %v", q.away, q.home, err)
		writeJSON(w, http.StatusOK, realtimeResponse{Pregame: &base, Warning: "live data unavailable: " + err.Error()})
		return
	}
	if snap == nil {
		writeJSON(w, http.StatusOK, realtimeResponse{Pregame: &base})
		return
	}
	res := h.realtime.Build(base, snap, q.rows, q.cols).AgedAt(time.Now())
	writeJSON(w, http.StatusOK, realtimeResponse{Live: true, Realtime: &res})
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"uptime_seconds": int(time.Since(h.started).Seconds()),
	})
}

func statusFor(err error) int {
	if errors.Is(err, teams.ErrUnsupportedTeam) || errors.Is(err, digits.ErrInvalidLabels) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		telemetry.Warnf("api: encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
