package history

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/charleschow/squares-odds/internal/core/digits"
	"github.com/charleschow/squares-odds/internal/core/odds"
	"github.com/charleschow/squares-odds/internal/core/teams"
	"github.com/charleschow/squares-odds/internal/memo"
)

const (
	baselineSeasons = 15

	teamWindowSeasons = 6
	teamWindowGames   = 48
	teamDecay         = 18.0

	marketSeasons = 8

	datasetTTL = 6 * time.Hour
)

// ErrNoCompletedGames means the results dataset loaded but held nothing usable.
var ErrNoCompletedGames = errors.New("no completed games in historical dataset")

// Builder loads the historical datasets through a memoized Source and
// derives the model. Datasets are shared across matchups; the team window is
// recomputed per build because it is cheap.
type Builder struct {
	src   Source
	reg   *teams.Registry
	games *memo.Cache[[]GameRecord]
	lines *memo.Cache[[]MoneylineRecord]
}

func NewBuilder(src Source, reg *teams.Registry) *Builder {
	return &Builder{
		src:   src,
		reg:   reg,
		games: memo.New[[]GameRecord](datasetTTL),
		lines: memo.New[[]MoneylineRecord](datasetTTL),
	}
}

func (b *Builder) LoadGames(ctx context.Context) ([]GameRecord, error) {
	return b.games.Do(ctx, "games", func(ctx context.Context) ([]GameRecord, error) {
		recs, err := b.src.Games(ctx)
		if err != nil {
			return nil, err
		}
		return b.canonicalGames(recs), nil
	})
}

func (b *Builder) LoadMoneylines(ctx context.Context) ([]MoneylineRecord, error) {
	return b.lines.Do(ctx, "moneylines", func(ctx context.Context) ([]MoneylineRecord, error) {
		recs, err := b.src.Moneylines(ctx)
		if err != nil {
			return nil, err
		}
		return b.canonicalLines(recs), nil
	})
}

func (b *Builder) canon(code string) string {
	if c := b.reg.Canonical(code); c != "" {
		return c
	}
	return strings.ToUpper(strings.TrimSpace(code))
}

func (b *Builder) canonicalGames(recs []GameRecord) []GameRecord {
	out := make([]GameRecord, len(recs))
	for i, g := range recs {
		g.HomeTeam = b.canon(g.HomeTeam)
		g.AwayTeam = b.canon(g.AwayTeam)
		out[i] = g
	}
	return out
}

func (b *Builder) canonicalLines(recs []MoneylineRecord) []MoneylineRecord {
	out := make([]MoneylineRecord, 0, len(recs))
	for _, r := range recs {
		if !strings.EqualFold(strings.TrimSpace(r.BetType), "moneyline") {
			continue
		}
		if r.Team == "" {
			r.Team = teamFromGameID(r.GameID, r.Side)
		}
		r.Team = b.canon(r.Team)
		if r.Season == 0 {
			r.Season = seasonFromGameID(r.GameID)
		}
		out = append(out, r)
	}
	return out
}

// Build derives the model. games must be non-empty; lines may be nil.
func Build(games []GameRecord, lines []MoneylineRecord) (Model, error) {
	baseline, latest, used, leagueAvg := BuildBaseline(games)
	if used == 0 {
		return Model{}, ErrNoCompletedGames
	}
	return Model{
		Baseline:        baseline,
		Teams:           BuildTeamContexts(games, latest),
		Market:          BuildMarket(lines),
		LatestSeason:    latest,
		LeagueAvgPoints: leagueAvg,
		GamesUsed:       used,
	}, nil
}

func latestSeason(games []GameRecord) int {
	latest := 0
	for _, g := range games {
		if g.Completed() && g.Season > latest {
			latest = g.Season
		}
	}
	return latest
}

// BaselineWeight is the per-game weight of a season age seasons before the
// latest one.
func BaselineWeight(age int) float64 {
	return clamp(1.1-0.05*float64(age), 0.35, 1.1)
}

// BuildBaseline returns the add-one smoothed league digit matrix over the last
// fifteen seasons, the latest season seen, the number of games used and the
// weighted average points per team per game.
func BuildBaseline(games []GameRecord) (digits.Matrix, int, int, float64) {
	latest := latestSeason(games)

	var counts digits.Matrix
	for h := range digits.Size {
		for a := range digits.Size {
			counts[h][a] = 1
		}
	}

	var used int
	var ptsSum, ptsWeight float64
	for _, g := range games {
		if !g.Completed() {
			continue
		}
		age := latest - g.Season
		if age < 0 || age >= baselineSeasons {
			continue
		}
		w := BaselineWeight(age)
		counts[digits.Digit(*g.HomeScore)][digits.Digit(*g.AwayScore)] += w
		ptsSum += w * float64(*g.HomeScore+*g.AwayScore)
		ptsWeight += 2 * w
		used++
	}

	leagueAvg := 21.5
	if ptsWeight > 0 {
		leagueAvg = ptsSum / ptsWeight
	}
	return counts.Normalize(), latest, used, leagueAvg
}

// recencyLess orders games newest first.
func recencyLess(a, b GameRecord) bool {
	if a.Season != b.Season {
		return a.Season > b.Season
	}
	if a.Date != "" && b.Date != "" && a.Date != b.Date {
		return a.Date > b.Date
	}
	return a.Week > b.Week
}

// BuildTeamContexts computes every team's context from its last 48 games in
// the last six seasons, weighting the game at recency rank i by exp(-i/18).
func BuildTeamContexts(games []GameRecord, latest int) map[string]TeamContext {
	perTeam := make(map[string][]GameRecord)
	for _, g := range games {
		if !g.Completed() || latest-g.Season >= teamWindowSeasons || g.Season > latest {
			continue
		}
		perTeam[g.HomeTeam] = append(perTeam[g.HomeTeam], g)
		perTeam[g.AwayTeam] = append(perTeam[g.AwayTeam], g)
	}

	out := make(map[string]TeamContext, len(perTeam))
	for code, gs := range perTeam {
		sort.SliceStable(gs, func(i, j int) bool { return recencyLess(gs[i], gs[j]) })
		if len(gs) > teamWindowGames {
			gs = gs[:teamWindowGames]
		}

		off := digits.NewSmoothedHistogram(1)
		def := digits.NewSmoothedHistogram(1)
		var forSum, againstSum, wSum float64
		for i, g := range gs {
			w := math.Exp(-float64(i) / teamDecay)
			pf, pa := *g.HomeScore, *g.AwayScore
			if g.AwayTeam == code {
				pf, pa = pa, pf
			}
			off.Add(pf, w)
			def.Add(pa, w)
			forSum += w * float64(pf)
			againstSum += w * float64(pa)
			wSum += w
		}

		out[code] = TeamContext{
			Code:       code,
			Offense:    off.Vector(),
			Defense:    def.Vector(),
			AvgFor:     forSum / wSum,
			AvgAgainst: againstSum / wSum,
			SampleSize: len(gs),
		}
	}
	return out
}

// MarketWeight is the linear recency weight of a season in the market window.
func MarketWeight(season, earliest int) float64 {
	return clamp(1+0.12*float64(season-earliest), 0.4, 2.2)
}

// BuildMarket returns each team's recency-weighted mean implied win
// probability over the last eight seasons of moneylines. When both sides of a
// game are quoted the pair is de-vigged first.
func BuildMarket(lines []MoneylineRecord) map[string]float64 {
	latest := 0
	for _, l := range lines {
		if l.Season > latest {
			latest = l.Season
		}
	}
	if latest == 0 {
		return map[string]float64{}
	}

	type quote struct {
		team   string
		season int
		p      float64
	}
	byGame := make(map[string][]quote)
	var order []string
	earliest := latest
	for _, l := range lines {
		if latest-l.Season >= marketSeasons {
			continue
		}
		p, err := odds.ImpliedFromAmerican(l.Odds)
		if err != nil || l.Team == "" {
			continue
		}
		key := l.GameID
		if key == "" {
			key = fmt.Sprintf("%d-%s-%s", l.Season, l.Team, l.Side)
		}
		if _, ok := byGame[key]; !ok {
			order = append(order, key)
		}
		byGame[key] = append(byGame[key], quote{team: l.Team, season: l.Season, p: p})
		if l.Season < earliest {
			earliest = l.Season
		}
	}

	sum := make(map[string]float64)
	weight := make(map[string]float64)
	for _, key := range order {
		qs := byGame[key]
		if len(qs) == 2 && qs[0].team != qs[1].team {
			qs[0].p, qs[1].p = odds.RemoveVig2(qs[0].p, qs[1].p)
		}
		for _, q := range qs {
			w := MarketWeight(q.season, earliest)
			sum[q.team] += w * q.p
			weight[q.team] += w
		}
	}

	out := make(map[string]float64, len(sum))
	for team, s := range sum {
		out[team] = clamp(s/weight[team], 0.01, 0.99)
	}
	return out
}

// seasonFromGameID reads the season prefix of "2023_01_DET_KC".
func seasonFromGameID(id string) int {
	prefix, _, _ := strings.Cut(id, "_")
	n, _ := strconv.Atoi(prefix)
	return n
}

// teamFromGameID picks the away (third) or home (fourth) code of a game id.
func teamFromGameID(id, side string) string {
	parts := strings.Split(id, "_")
	if len(parts) < 4 {
		return ""
	}
	switch strings.ToLower(strings.TrimSpace(side)) {
	case "home":
		return parts[3]
	case "away":
		return parts[2]
	}
	return ""
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
