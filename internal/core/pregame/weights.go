package pregame

import (
	"github.com/charleschow/squares-odds/internal/config"
)

// Availability records which secondary inputs made it into a build.
type Availability struct {
	TeamContext bool
	Moneylines  bool
	TeamStats   bool
	RecentForm  bool
}

// Weight shifted to the baseline for each missing input, taken from the
// component that input would have informed.
const (
	missingTeamContextShift = 0.05
	missingMoneylineShift   = 0.03
	missingTeamStatsShift   = 0.04
	missingRecentFormShift  = 0.02
)

// BlendWeights returns normalized {baseline, team, sim} weights for the
// available inputs.
func BlendWeights(base config.MatrixWeights, avail Availability) [3]float64 {
	baseline, team, sim := base.Baseline, base.Team, base.Sim

	shift := func(from *float64, amount float64) {
		moved := min(*from, amount)
		*from -= moved
		baseline += moved
	}
	if !avail.TeamContext {
		shift(&team, missingTeamContextShift)
	}
	if !avail.RecentForm {
		shift(&team, missingRecentFormShift)
	}
	if !avail.Moneylines {
		shift(&sim, missingMoneylineShift)
	}
	if !avail.TeamStats {
		shift(&sim, missingTeamStatsShift)
	}

	sum := baseline + team + sim
	if sum <= 0 {
		return [3]float64{1, 0, 0}
	}
	return [3]float64{baseline / sum, team / sum, sim / sum}
}
