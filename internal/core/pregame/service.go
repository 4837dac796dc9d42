// Package pregame assembles the pre-game squares odds for a matchup from the
// league baseline, both teams' scoring contexts and a points simulation.
package pregame

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/charleschow/squares-odds/internal/config"
	"github.com/charleschow/squares-odds/internal/core/digits"
	"github.com/charleschow/squares-odds/internal/core/history"
	"github.com/charleschow/squares-odds/internal/core/odds"
	"github.com/charleschow/squares-odds/internal/core/teams"
	"github.com/charleschow/squares-odds/internal/events"
	"github.com/charleschow/squares-odds/internal/memo"
	"github.com/charleschow/squares-odds/internal/telemetry"
)

const (
	fallbackHomePoints = 23
	fallbackAwayPoints = 21

	statsTTL = 6 * time.Hour
)

// Service builds pre-game results. At most one computation per matchup runs
// at a time; concurrent callers share it.
type Service struct {
	reg     *teams.Registry
	history HistoryLoader
	stats   StatsSource
	form    FormSource
	cache   *ModelCache
	weights config.ModelWeights
	bus     *events.Bus
	now     func() time.Time

	statsMemo *memo.Cache[history.TeamStats]
	group     singleflight.Group
}

type Options struct {
	Registry *teams.Registry
	History  HistoryLoader
	Stats    StatsSource // optional
	Form     FormSource  // optional
	Cache    *ModelCache
	Weights  config.ModelWeights
	Bus      *events.Bus // optional; receives EventPregameOdds
}

func NewService(opts Options) *Service {
	if opts.Registry == nil {
		opts.Registry = teams.NFL()
	}
	if opts.Weights == (config.ModelWeights{}) {
		opts.Weights = config.DefaultModelWeights()
	}
	if opts.Cache == nil {
		opts.Cache = NewModelCache(nil, 30*time.Minute)
	}
	return &Service{
		reg:       opts.Registry,
		history:   opts.History,
		stats:     opts.Stats,
		form:      opts.Form,
		cache:     opts.Cache,
		weights:   opts.Weights,
		bus:       opts.Bus,
		now:       time.Now,
		statsMemo: memo.New[history.TeamStats](statsTTL),
	}
}

// Build returns the matchup's pre-game result rendered on rows/cols. The
// only error is an unsupported team; every source failure becomes a warning.
func (s *Service) Build(ctx context.Context, home, away string, rows, cols digits.Labels) (odds.Result, error) {
	h, err := s.reg.Resolve(home)
	if err != nil {
		return odds.Result{}, err
	}
	a, err := s.reg.Resolve(away)
	if err != nil {
		return odds.Result{}, err
	}
	key := teams.MatchupKey(h, a)

	if r, ok := s.cache.Get(ctx, key); ok {
		return r.WithLabels(rows, cols), nil
	}

	v, _, _ := s.group.Do(key, func() (any, error) {
		if r, ok := s.cache.Get(ctx, key); ok {
			return r, nil
		}
		r := s.compute(context.WithoutCancel(ctx), h, a)
		if !isFallback(r) {
			s.cache.Set(ctx, key, r)
		}
		s.publish(key, r)
		return r, nil
	})
	return v.(odds.Result).WithLabels(rows, cols), nil
}

func isFallback(r odds.Result) bool {
	return len(r.Sources) == 1 && r.Sources[0] == odds.SourceFallback
}

func (s *Service) publish(key string, r odds.Result) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(events.Event{
		ID:        r.ID.String(),
		Type:      events.EventPregameOdds,
		Matchup:   key,
		Timestamp: s.now().UTC(),
		Payload:   r,
	})
}

// gathered holds every source fetched for one build. Errors are kept per
// source; none of them fails the build on its own.
type gathered struct {
	games    []history.GameRecord
	gamesErr error
	lines    []history.MoneylineRecord
	linesErr error

	homeStats, awayStats *history.TeamStats
	homeForm, awayForm   *history.RecentForm

	mu       sync.Mutex
	warnings []string
}

func (g *gathered) warn(source, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	telemetry.Warnf("pregame: %s", msg)
	telemetry.Metrics.SourceFailures.WithLabelValues(source).Inc()
	g.mu.Lock()
	g.warnings = append(g.warnings, msg)
	g.mu.Unlock()
}

// gather fetches every source concurrently.
func (s *Service) gather(ctx context.Context, home, away teams.Team) *gathered {
	g := &gathered{}
	var eg errgroup.Group

	eg.Go(func() error {
		g.games, g.gamesErr = s.history.LoadGames(ctx)
		return nil
	})
	eg.Go(func() error {
		g.lines, g.linesErr = s.history.LoadMoneylines(ctx)
		return nil
	})
	if s.stats != nil {
		eg.Go(func() error {
			g.homeStats = s.teamStats(ctx, g, home)
			return nil
		})
		eg.Go(func() error {
			g.awayStats = s.teamStats(ctx, g, away)
			return nil
		})
	}
	if s.form != nil {
		eg.Go(func() error {
			g.homeForm = s.recentForm(ctx, g, home)
			return nil
		})
		eg.Go(func() error {
			g.awayForm = s.recentForm(ctx, g, away)
			return nil
		})
	}
	eg.Wait()

	if g.linesErr != nil {
		g.warn(odds.SourceMoneylines, "moneylines unavailable: %v", g.linesErr)
	}
	return g
}

func (s *Service) teamStats(ctx context.Context, g *gathered, t teams.Team) *history.TeamStats {
	st, err := s.statsMemo.Do(ctx, t.ESPNID, func(ctx context.Context) (history.TeamStats, error) {
		return s.stats.TeamStatistics(ctx, t.ESPNID)
	})
	if err != nil {
		g.warn(odds.SourceTeamStats, "team stats unavailable for %s: %v", t.Code, err)
		return nil
	}
	return &st
}

func (s *Service) recentForm(ctx context.Context, g *gathered, t teams.Team) *history.RecentForm {
	f, err := s.form.RecentForm(ctx, t)
	if err != nil {
		g.warn(odds.SourceRecentForm, "recent form unavailable for %s: %v", t.Code, err)
		return nil
	}
	return &f
}

// compute never fails: anything that goes wrong past team resolution
// collapses to the fallback model.
func (s *Service) compute(ctx context.Context, home, away teams.Team) (res odds.Result) {
	start := s.now()
	g := s.gather(ctx, home, away)

	defer func() {
		if r := recover(); r != nil {
			telemetry.Errorf("pregame: build %s-%s panicked: %v", home.Code, away.Code, r)
			res = s.fallback(home, away, append(g.warnings, fmt.Sprintf("model assembly failed: %v", r)))
		}
		telemetry.Metrics.PregameBuilds.WithLabelValues(string(res.Mode)).Inc()
		telemetry.Metrics.PregameBuildTime.Observe(s.now().Sub(start).Seconds())
	}()

	if g.gamesErr != nil {
		g.warn(odds.SourceHistorical, "historical games unavailable: %v", g.gamesErr)
		return s.fallback(home, away, g.warnings)
	}
	model, err := history.Build(g.games, g.lines)
	if err != nil {
		g.warn(odds.SourceHistorical, "historical model failed: %v", err)
		return s.fallback(home, away, g.warnings)
	}
	return s.assemble(model, g, home, away)
}

func (s *Service) assemble(model history.Model, g *gathered, home, away teams.Team) odds.Result {
	sources := []string{odds.SourceHistorical}
	warnings := append([]string(nil), g.warnings...)

	hs := sideInputs{stats: g.homeStats, form: g.homeForm}
	as := sideInputs{stats: g.awayStats, form: g.awayForm}
	var homeCtx, awayCtx bool
	hs.context, homeCtx = model.Team(home.Code)
	as.context, awayCtx = model.Team(away.Code)

	avail := Availability{
		TeamContext: homeCtx && awayCtx,
		TeamStats:   hs.stats != nil && as.stats != nil,
		RecentForm:  hs.form != nil && as.form != nil,
	}
	if avail.TeamContext {
		sources = append(sources, odds.SourceTeamContext)
	} else {
		warnings = append(warnings, fmt.Sprintf("no recent games on record for %s", missingContext(home, away, homeCtx, awayCtx)))
	}

	if g.linesErr == nil {
		hp, hok := model.Market[home.Code]
		ap, aok := model.Market[away.Code]
		if hok && aok {
			hs.market, as.market = &hp, &ap
			avail.Moneylines = true
			sources = append(sources, odds.SourceMoneylines)
		} else {
			warnings = append(warnings, "no moneyline history for this matchup")
		}
	}
	if avail.TeamStats {
		sources = append(sources, odds.SourceTeamStats)
	}
	if avail.RecentForm {
		sources = append(sources, odds.SourceRecentForm)
	}

	expHome, expAway := expectedPoints(s.weights.Points, hs, as, model.LeagueAvgPoints)
	bw := BlendWeights(s.weights.Matrix, avail)
	matrix := digits.Blend(bw[:], []digits.Matrix{
		model.Baseline,
		teamMatrix(s.weights.Vector, hs, as),
		odds.PoissonMatrix(expHome, expAway),
	})

	telemetry.Infof("pregame: built %s-%s from %d games, weights %.2f/%.2f/%.2f, expected %.1f-%.1f",
		home.Code, away.Code, model.GamesUsed, bw[0], bw[1], bw[2], expHome, expAway)

	return odds.Result{
		ID:                 uuid.New(),
		HomeCode:           home.Code,
		AwayCode:           away.Code,
		Matrix:             matrix,
		GeneratedAt:        s.now().UTC(),
		Mode:               odds.ModeFor(sources),
		Sources:            sources,
		Warnings:           warnings,
		ExpectedHomePoints: expHome,
		ExpectedAwayPoints: expAway,
	}
}

func missingContext(home, away teams.Team, homeOK, awayOK bool) string {
	switch {
	case !homeOK && !awayOK:
		return home.Code + " and " + away.Code
	case !homeOK:
		return home.Code
	default:
		return away.Code
	}
}

// fallback is the simulation-only model used when history cannot be built.
func (s *Service) fallback(home, away teams.Team, warnings []string) odds.Result {
	warnings = append(append([]string(nil), warnings...),
		fmt.Sprintf("using fallback simulation model (%d-%d expected final)", fallbackHomePoints, fallbackAwayPoints))
	return odds.Result{
		ID:                 uuid.New(),
		HomeCode:           home.Code,
		AwayCode:           away.Code,
		Matrix:             odds.PoissonMatrix(fallbackHomePoints, fallbackAwayPoints),
		GeneratedAt:        s.now().UTC(),
		Mode:               odds.ModeBaseline,
		Sources:            []string{odds.SourceFallback},
		Warnings:           warnings,
		ExpectedHomePoints: fallbackHomePoints,
		ExpectedAwayPoints: fallbackAwayPoints,
	}
}
