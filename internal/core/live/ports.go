package live

import (
	"context"

	"github.com/charleschow/squares-odds/internal/adapters/outbound/espn"
)

// Provider abstracts the live game feed.
// Satisfied by *espn.Client.
type Provider interface {
	Scoreboard(ctx context.Context, date string) (*espn.Scoreboard, error)
	Summary(ctx context.Context, eventID string) (*espn.Summary, error)
}
