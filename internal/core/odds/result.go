// Package odds defines the computation results handed to board renderers and
// the probability helpers shared by the pre-game and realtime engines.
package odds

import (
	"time"

	"github.com/google/uuid"

	"github.com/charleschow/squares-odds/internal/core/digits"
)

type SourceMode string

const (
	ModeFull     SourceMode = "full"
	ModeBaseline SourceMode = "baseline"
)

// Source names recorded in Result.Sources.
const (
	SourceHistorical  = "historical_games"
	SourceTeamContext = "team_context"
	SourceMoneylines  = "moneylines"
	SourceTeamStats   = "team_stats"
	SourceRecentForm  = "recent_form"
	SourceFallback    = "fallback_model"
	SourceLive        = "live_snapshot"
)

// fullModeSources is the number of independent sources needed for ModeFull.
const fullModeSources = 3

// ModeFor returns ModeFull when at least three distinct sources contributed.
func ModeFor(sources []string) SourceMode {
	seen := make(map[string]struct{}, len(sources))
	for _, s := range sources {
		if s == SourceFallback {
			continue
		}
		seen[s] = struct{}{}
	}
	if len(seen) >= fullModeSources {
		return ModeFull
	}
	return ModeBaseline
}

// Result is a pre-game squares odds computation.
type Result struct {
	ID          uuid.UUID     `json:"id"`
	HomeCode    string        `json:"home_code"`
	AwayCode    string        `json:"away_code"`
	Matrix      digits.Matrix `json:"matrix"`
	Board       digits.Board  `json:"board"`
	RowLabels   digits.Labels `json:"row_labels"`
	ColLabels   digits.Labels `json:"col_labels"`
	GeneratedAt time.Time     `json:"generated_at"`
	Mode        SourceMode    `json:"source_mode"`
	Sources     []string      `json:"sources_used"`
	Warnings    []string      `json:"warnings"`

	ExpectedHomePoints float64 `json:"expected_home_points"`
	ExpectedAwayPoints float64 `json:"expected_away_points"`
}

// WithLabels returns a copy of r rendered onto another label permutation.
// The digit matrix is shared by value; slices are copied so callers may
// append warnings without touching a cached result.
func (r Result) WithLabels(rows, cols digits.Labels) Result {
	out := r
	out.RowLabels = rows
	out.ColLabels = cols
	out.Board = digits.ToBoard(r.Matrix, rows, cols)
	out.Sources = append([]string(nil), r.Sources...)
	out.Warnings = append([]string(nil), r.Warnings...)
	return out
}

// RealtimeResult extends Result with the live context it was derived from.
type RealtimeResult struct {
	Result

	BaseID             uuid.UUID `json:"base_id"`
	EventID            string    `json:"event_id"`
	Status             string    `json:"status"`
	Period             int       `json:"period"`
	Clock              string    `json:"clock"`
	HomeScore          int       `json:"home_score"`
	AwayScore          int       `json:"away_score"`
	SnapshotAt         time.Time `json:"snapshot_at"`
	SnapshotAgeSeconds float64   `json:"snapshot_age_seconds"`
	LiveWeight         float64   `json:"live_weight"`
	SimulationRuns     int       `json:"simulation_runs"`
	Seed               uint64    `json:"seed"`
	Features           any       `json:"features"`
}

// AgedAt stamps the snapshot age as seen at now. Age is a property of
// delivery, so it is applied where a result is served rather than where it
// is computed.
func (r RealtimeResult) AgedAt(now time.Time) RealtimeResult {
	r.SnapshotAgeSeconds = max(0, now.Sub(r.SnapshotAt).Seconds())
	return r
}
