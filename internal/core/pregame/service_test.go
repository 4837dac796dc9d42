package pregame

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/charleschow/squares-odds/internal/core/digits"
	"github.com/charleschow/squares-odds/internal/core/history"
	"github.com/charleschow/squares-odds/internal/core/odds"
	"github.com/charleschow/squares-odds/internal/core/teams"
	"github.com/charleschow/squares-odds/internal/events"
	"github.com/charleschow/squares-odds/internal/store"
)

type fakeHistory struct {
	games    []history.GameRecord
	lines    []history.MoneylineRecord
	gamesErr error
	linesErr error
	calls    atomic.Int32
	gate     chan struct{}
}

func (f *fakeHistory) LoadGames(context.Context) ([]history.GameRecord, error) {
	f.calls.Add(1)
	if f.gate != nil {
		<-f.gate
	}
	return f.games, f.gamesErr
}

func (f *fakeHistory) LoadMoneylines(context.Context) ([]history.MoneylineRecord, error) {
	return f.lines, f.linesErr
}

type fakeStats struct{ err error }

func (f fakeStats) TeamStatistics(_ context.Context, id string) (history.TeamStats, error) {
	if f.err != nil {
		return history.TeamStats{}, f.err
	}
	if id == "26" {
		return history.TeamStats{PointsPerGame: 26, ThirdDownPct: 44, RedZonePct: 60}, nil
	}
	return history.TeamStats{PointsPerGame: 19, ThirdDownPct: 36, RedZonePct: 50}, nil
}

type fakeForm struct{ err error }

func (f fakeForm) RecentForm(_ context.Context, t teams.Team) (history.RecentForm, error) {
	if f.err != nil {
		return history.RecentForm{}, f.err
	}
	return history.RecentForm{Games: 5, AvgFor: 24, AvgAgainst: 18, Offense: digits.UniformVector(), Defense: digits.UniformVector()}, nil
}

func score(n int) *int { return &n }

func sampleHistory() *fakeHistory {
	var games []history.GameRecord
	var lines []history.MoneylineRecord
	results := [][2]int{{24, 17}, {31, 20}, {14, 10}, {27, 24}, {20, 13}, {17, 16}}
	for i, r := range results {
		season := 2020 + i
		id := fmt.Sprintf("%d_01_NE_SEA", season)
		games = append(games,
			history.GameRecord{GameID: id, Season: season, Week: 1, HomeTeam: "SEA", AwayTeam: "NE", HomeScore: score(r[0]), AwayScore: score(r[1])},
			history.GameRecord{GameID: fmt.Sprintf("%d_02_KC_DEN", season), Season: season, Week: 2, HomeTeam: "DEN", AwayTeam: "KC", HomeScore: score(r[1]), AwayScore: score(r[0])},
		)
		lines = append(lines,
			history.MoneylineRecord{GameID: id, Season: season, Side: "home", Team: "SEA", BetType: "moneyline", Odds: decimal.NewFromInt(-150)},
			history.MoneylineRecord{GameID: id, Season: season, Side: "away", Team: "NE", BetType: "moneyline", Odds: decimal.NewFromInt(130)},
		)
	}
	return &fakeHistory{games: games, lines: lines}
}

func newTestService(h HistoryLoader, stats StatsSource, form FormSource) *Service {
	return NewService(Options{
		History: h,
		Stats:   stats,
		Form:    form,
		Cache:   NewModelCache(store.NewMemoryStore(), 30*time.Minute),
	})
}

func TestBuildFullMode(t *testing.T) {
	h := sampleHistory()
	bus := events.NewBus()
	var published int
	bus.Subscribe(events.EventPregameOdds, func(events.Event) error { published++; return nil })

	svc := NewService(Options{History: h, Stats: fakeStats{}, Form: fakeForm{}, Bus: bus})
	rows, _ := digits.ParseLabels("5,0,1,2,3,4,6,7,8,9")
	res, err := svc.Build(context.Background(), "Seahawks", "Patriots", rows, digits.IdentityLabels())
	if err != nil {
		t.Fatal(err)
	}
	if res.Mode != odds.ModeFull {
		t.Errorf("mode = %s sources = %v warnings = %v", res.Mode, res.Sources, res.Warnings)
	}
	want := []string{odds.SourceHistorical, odds.SourceTeamContext, odds.SourceMoneylines, odds.SourceTeamStats, odds.SourceRecentForm}
	if fmt.Sprint(res.Sources) != fmt.Sprint(want) {
		t.Errorf("sources = %v", res.Sources)
	}
	if math.Abs(res.Matrix.Sum()-1) > 1e-9 || math.Abs(res.Board.Sum()-100) > 1e-6 {
		t.Errorf("matrix sum %v board sum %v", res.Matrix.Sum(), res.Board.Sum())
	}
	if math.Abs(res.Board[0][3]-100*res.Matrix[5][3]) > 1e-6 {
		t.Errorf("board not on row labels: %v vs %v", res.Board[0][3], 100*res.Matrix[5][3])
	}
	if res.ExpectedHomePoints <= res.ExpectedAwayPoints {
		t.Errorf("favored home team expected %v-%v", res.ExpectedHomePoints, res.ExpectedAwayPoints)
	}
	if published != 1 {
		t.Errorf("published %d pregame events", published)
	}
}

func TestBuildCachedByMatchupOnly(t *testing.T) {
	h := sampleHistory()
	svc := newTestService(h, nil, nil)
	ctx := context.Background()

	first, err := svc.Build(ctx, "SEA", "NE", digits.IdentityLabels(), digits.IdentityLabels())
	if err != nil {
		t.Fatal(err)
	}
	rows, _ := digits.ParseLabels("9,8,7,6,5,4,3,2,1,0")
	second, err := svc.Build(ctx, "Seattle Seahawks", "New England Patriots", rows, digits.IdentityLabels())
	if err != nil {
		t.Fatal(err)
	}
	if h.calls.Load() != 1 {
		t.Errorf("history loaded %d times, want 1", h.calls.Load())
	}
	if first.ID != second.ID {
		t.Error("cache miss on relabeled request")
	}
	if second.RowLabels != rows || math.Abs(second.Board[0][0]-first.Board[9][0]) > 1e-9 {
		t.Error("cached result not remapped onto new labels")
	}
	if first.Mode != odds.ModeFull || len(first.Sources) != 3 {
		t.Errorf("history, team context and moneylines should be full mode, got %s (%v)", first.Mode, first.Sources)
	}
}

func TestBuildUnsupportedTeamFailsFast(t *testing.T) {
	h := sampleHistory()
	svc := newTestService(h, fakeStats{}, fakeForm{})
	_, err := svc.Build(context.Background(), "Martians", "Patriots", digits.IdentityLabels(), digits.IdentityLabels())
	if !errors.Is(err, teams.ErrUnsupportedTeam) {
		t.Fatalf("err = %v", err)
	}
	var ute *teams.UnsupportedTeamError
	if !errors.As(err, &ute) || ute.Input != "Martians" {
		t.Errorf("error does not carry input: %v", err)
	}
	if h.calls.Load() != 0 {
		t.Error("unsupported team reached a data source")
	}
}

func TestBuildAllSourcesDown(t *testing.T) {
	down := errors.New("connection refused")
	h := &fakeHistory{gamesErr: down, linesErr: down}
	svc := newTestService(h, fakeStats{err: down}, fakeForm{err: down})

	res, err := svc.Build(context.Background(), "SEA", "NE", digits.IdentityLabels(), digits.IdentityLabels())
	if err != nil {
		t.Fatalf("fallback must not error: %v", err)
	}
	if res.Mode != odds.ModeBaseline {
		t.Errorf("mode = %s", res.Mode)
	}
	if len(res.Sources) != 1 || res.Sources[0] != odds.SourceFallback {
		t.Errorf("sources = %v", res.Sources)
	}
	if len(res.Warnings) == 0 {
		t.Error("no warnings")
	}
	if res.ExpectedHomePoints != 23 || res.ExpectedAwayPoints != 21 {
		t.Errorf("fallback expected %v-%v", res.ExpectedHomePoints, res.ExpectedAwayPoints)
	}

	svc.Build(context.Background(), "SEA", "NE", digits.IdentityLabels(), digits.IdentityLabels())
	if h.calls.Load() != 2 {
		t.Errorf("fallback results should not be cached; history calls = %d", h.calls.Load())
	}
}

func TestBuildSecondarySourcesDown(t *testing.T) {
	h := sampleHistory()
	h.linesErr = errors.New("timeout")
	svc := newTestService(h, fakeStats{err: errors.New("502")}, fakeForm{err: errors.New("no team")})

	res, err := svc.Build(context.Background(), "SEA", "NE", digits.IdentityLabels(), digits.IdentityLabels())
	if err != nil {
		t.Fatal(err)
	}
	if fmt.Sprint(res.Sources) != fmt.Sprint([]string{odds.SourceHistorical, odds.SourceTeamContext}) {
		t.Errorf("sources = %v", res.Sources)
	}
	// moneylines, two team stats, two forms
	if len(res.Warnings) != 5 {
		t.Errorf("warnings = %q", res.Warnings)
	}
}

func TestBuildSingleComputationPerMatchup(t *testing.T) {
	h := sampleHistory()
	h.gate = make(chan struct{})
	svc := newTestService(h, nil, nil)

	var wg sync.WaitGroup
	ids := make([]string, 8)
	for i := range ids {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := svc.Build(context.Background(), "SEA", "NE", digits.IdentityLabels(), digits.IdentityLabels())
			if err != nil {
				t.Error(err)
				return
			}
			ids[i] = r.ID.String()
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(h.gate)
	wg.Wait()

	if h.calls.Load() != 1 {
		t.Errorf("history loaded %d times", h.calls.Load())
	}
	for _, id := range ids[1:] {
		if id != ids[0] {
			t.Fatalf("callers saw different results: %v", ids)
		}
	}
}
