// Package process wires the odds service's shared infrastructure: provider
// clients, the model cache, the pre-game service, live sessions, the
// realtime observer and the HTTP surface.
package process

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/charleschow/squares-odds/internal/adapters/outbound/espn"
	"github.com/charleschow/squares-odds/internal/adapters/outbound/httpx"
	"github.com/charleschow/squares-odds/internal/adapters/outbound/nflverse"
	"github.com/charleschow/squares-odds/internal/adapters/outbound/sportsdb"
	"github.com/charleschow/squares-odds/internal/api"
	"github.com/charleschow/squares-odds/internal/config"
	"github.com/charleschow/squares-odds/internal/core/history"
	"github.com/charleschow/squares-odds/internal/core/live"
	"github.com/charleschow/squares-odds/internal/core/pregame"
	"github.com/charleschow/squares-odds/internal/core/realtime"
	"github.com/charleschow/squares-odds/internal/core/teams"
	"github.com/charleschow/squares-odds/internal/events"
	"github.com/charleschow/squares-odds/internal/fanout"
	"github.com/charleschow/squares-odds/internal/store"
	"github.com/charleschow/squares-odds/internal/telemetry"
)

const sweepInterval = 10 * time.Minute

// App holds every long-lived component of the service.
type App struct {
	Config   *config.Config
	Bus      *events.Bus
	Registry *teams.Registry
	Store    store.Store

	Pregame  *pregame.Service
	Fetcher  *live.Fetcher
	Sessions *live.Manager
	Engine   *realtime.Engine
	Fanout   *fanout.Server
}

// New builds the component graph from cfg. The returned App owns the cache
// store; call Close when done.
func New(cfg *config.Config) (*App, error) {
	weights, err := config.LoadModelWeights(cfg.ModelWeightsPath)
	if err != nil {
		telemetry.Warnf("Model weights: %v (using defaults)", err)
		weights = config.DefaultModelWeights()
	}

	st, err := store.Open(cfg.CacheBackend, cfg.CachePath, cfg.RedisAddr)
	if err != nil {
		return nil, fmt.Errorf("open %s cache: %w", cfg.CacheBackend, err)
	}

	bus := events.NewBus()
	reg := teams.NFL()

	// ── Provider clients ───────────────────────────────────────
	nflverseHTTP := httpx.New("nflverse", cfg.ProviderTimeout, cfg.ProviderRPS)
	espnHTTP := httpx.New("espn", cfg.ProviderTimeout, cfg.ProviderRPS)
	sportsdbHTTP := httpx.New("sportsdb", cfg.ProviderTimeout, cfg.ProviderRPS)

	nflverseClient := nflverse.NewClient(nflverseHTTP, cfg.GamesURL, cfg.MoneylineURL)
	espnClient := espn.NewClient(espnHTTP, cfg.ESPNBaseURL)
	sportsdbClient := sportsdb.NewClient(sportsdbHTTP, cfg.SportsDBBaseURL)

	// ── Pre-game ───────────────────────────────────────────────
	pre := pregame.NewService(pregame.Options{
		Registry: reg,
		History:  history.NewBuilder(nflverseClient, reg),
		Stats:    espnClient,
		Form:     sportsdbClient,
		Cache:    pregame.NewModelCache(st, cfg.ModelTTL),
		Weights:  weights,
		Bus:      bus,
	})

	// ── Live + realtime ────────────────────────────────────────
	fetcher := live.NewFetcher(espnClient, reg)
	sessions := live.NewManager(fetcher, reg, bus)
	engine := realtime.New()
	realtime.NewObserver(engine, pre, bus).Attach()

	// ── Fanout ─────────────────────────────────────────────────
	fan := fanout.NewServer(bus, sessions, pre)

	return &App{
		Config:   cfg,
		Bus:      bus,
		Registry: reg,
		Store:    st,
		Pregame:  pre,
		Fetcher:  fetcher,
		Sessions: sessions,
		Engine:   engine,
		Fanout:   fan,
	}, nil
}

// Handler returns the HTTP routes for the API, the fanout socket and metrics.
func (a *App) Handler() http.Handler {
	mux := http.NewServeMux()
	h := api.NewHandler(a.Pregame, a.Fetcher, a.Engine, http.HandlerFunc(a.Fanout.HandleWS), telemetry.Metrics.Handler())
	h.RegisterRoutes(mux)
	return mux
}

// Sweep periodically drops expired rows from a SQLite cache. Other backends
// expire entries themselves. Blocks until ctx is cancelled.
func (a *App) Sweep(ctx context.Context) {
	sq, ok := a.Store.(*store.SQLiteStore)
	if !ok {
		return
	}
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := sq.Sweep(ctx)
			if err != nil {
				telemetry.Warnf("Cache sweep: %v", err)
			} else if n > 0 {
				telemetry.Debugf("Cache sweep removed %d expired entries", n)
			}
		}
	}
}

// Close stops every live session and releases the cache store.
func (a *App) Close() {
	a.Sessions.Close()
	if err := a.Store.Close(); err != nil {
		telemetry.Warnf("Cache close: %v", err)
	}
}
