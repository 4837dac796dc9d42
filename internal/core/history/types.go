// Package history turns season game results and closing moneylines into
// the league baseline digit matrix, per-team scoring contexts and
// market-implied team strength.
package history

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/charleschow/squares-odds/internal/core/digits"
)

// GameRecord is one row of the season results dataset. Scores are nil for
// games that have not been played.
type GameRecord struct {
	GameID     string
	Season     int
	GameType   string
	Week       int
	Date       string // YYYY-MM-DD
	HomeTeam   string
	AwayTeam   string
	HomeScore  *int
	AwayScore  *int
	TotalLine  *float64
	SpreadLine *float64
}

func (g GameRecord) Completed() bool {
	return g.HomeScore != nil && g.AwayScore != nil
}

// MoneylineRecord is one closing moneyline quote for one side of a game.
type MoneylineRecord struct {
	GameID  string
	Season  int
	Side    string // "home" or "away"
	Team    string
	BetType string
	Odds    decimal.Decimal
}

// Source loads the raw datasets. Either call may fail independently.
type Source interface {
	Games(ctx context.Context) ([]GameRecord, error)
	Moneylines(ctx context.Context) ([]MoneylineRecord, error)
}

// TeamContext summarizes a team's recent scoring from a recency-weighted
// window of its games.
type TeamContext struct {
	Code       string        `json:"code"`
	Offense    digits.Vector `json:"offense"`
	Defense    digits.Vector `json:"defense"`
	AvgFor     float64       `json:"avg_for"`
	AvgAgainst float64       `json:"avg_against"`
	SampleSize int           `json:"sample_size"`
}

// Model is everything the pre-game assembler needs from history.
type Model struct {
	Baseline        digits.Matrix
	Teams           map[string]TeamContext
	Market          map[string]float64 // team code -> implied win probability
	LatestSeason    int
	LeagueAvgPoints float64
	GamesUsed       int
}

// Team returns the context for code, or an empty one with uniform vectors.
func (m Model) Team(code string) (TeamContext, bool) {
	tc, ok := m.Teams[code]
	if !ok || tc.SampleSize == 0 {
		return TeamContext{
			Code:       code,
			Offense:    digits.UniformVector(),
			Defense:    digits.UniformVector(),
			AvgFor:     m.LeagueAvgPoints,
			AvgAgainst: m.LeagueAvgPoints,
		}, false
	}
	return tc, true
}

// TeamStats are season efficiency numbers from a team statistics provider.
// Zero means not reported.
type TeamStats struct {
	PointsPerGame        float64 `json:"points_per_game"`
	ThirdDownPct         float64 `json:"third_down_pct"`
	RedZonePct           float64 `json:"red_zone_pct"`
	TurnoverDifferential float64 `json:"turnover_differential"`
}

// RecentForm summarizes a team's last few completed games from a
// recent-results provider.
type RecentForm struct {
	Games      int           `json:"games"`
	AvgFor     float64       `json:"avg_for"`
	AvgAgainst float64       `json:"avg_against"`
	Offense    digits.Vector `json:"offense"`
	Defense    digits.Vector `json:"defense"`
}
