package pregame

import (
	"context"

	"github.com/charleschow/squares-odds/internal/core/history"
	"github.com/charleschow/squares-odds/internal/core/teams"
)

// HistoryLoader supplies the shared historical datasets.
// Satisfied by *history.Builder.
type HistoryLoader interface {
	LoadGames(ctx context.Context) ([]history.GameRecord, error)
	LoadMoneylines(ctx context.Context) ([]history.MoneylineRecord, error)
}

// StatsSource looks up season efficiency numbers by provider team id.
// Satisfied by *espn.Client.
type StatsSource interface {
	TeamStatistics(ctx context.Context, teamID string) (history.TeamStats, error)
}

// FormSource summarizes a team's most recent results.
// Satisfied by *sportsdb.Client.
type FormSource interface {
	RecentForm(ctx context.Context, team teams.Team) (history.RecentForm, error)
}
