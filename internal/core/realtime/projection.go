package realtime

import (
	"math"
)

// Outcome is one kind of scoring event and its point value.
type Outcome struct {
	Name   string  `json:"name"`
	Points int     `json:"points"`
	Weight float64 `json:"weight"`
}

// baseMix is the league share of scoring events by kind.
var baseMix = []Outcome{
	{Name: "field_goal", Points: 3, Weight: 0.36},
	{Name: "touchdown_xp", Points: 7, Weight: 0.53},
	{Name: "touchdown_two", Points: 8, Weight: 0.035},
	{Name: "touchdown_no_xp", Points: 6, Weight: 0.055},
	{Name: "safety", Points: 2, Weight: 0.02},
}

const (
	trailingWindow = 12 * 60
	protectWindow  = 9 * 60
	marginScale    = 17.0

	// NFL teams average a little over two offensive plays per game minute.
	leaguePace        = 2.2
	leagueScoringRate = 0.06
)

// Profile is one side's scoring model for the rest of the game.
type Profile struct {
	ExpectedPoints float64   `json:"expected_points"`
	ExpectedEvents float64   `json:"expected_events"`
	Mix            []Outcome `json:"mix"`
	cumulative     []float64
}

// lateness is 0 until window seconds remain and rises linearly to 1 at the
// final whistle.
func lateness(remaining, window float64) float64 {
	return clamp((window-remaining)/window, 0, 1)
}

// OutcomeMix shifts the league mix for game state: a trailing team late
// needs touchdowns, a leading team late settles for field goals.
func OutcomeMix(margin int, remaining float64) []Outcome {
	mix := make([]Outcome, len(baseMix))
	copy(mix, baseMix)

	size := math.Min(math.Abs(float64(margin)), marginScale) / marginScale
	switch {
	case margin < 0:
		u := lateness(remaining, trailingWindow) * (0.4 + 0.6*size)
		mix[0].Weight -= 0.16 * u
		mix[1].Weight += 0.09 * u
		mix[2].Weight += 0.05 * u
		mix[3].Weight += 0.02 * u
	case margin > 0:
		u := lateness(remaining, protectWindow) * (0.4 + 0.6*size)
		mix[0].Weight += 0.10 * u
		mix[1].Weight -= 0.08 * u
		mix[2].Weight -= 0.02 * u
	}

	var sum float64
	for i := range mix {
		mix[i].Weight = math.Max(mix[i].Weight, 0.001)
		sum += mix[i].Weight
	}
	for i := range mix {
		mix[i].Weight /= sum
	}
	return mix
}

func meanPoints(mix []Outcome) float64 {
	var m float64
	for _, o := range mix {
		m += o.Weight * float64(o.Points)
	}
	return m
}

type sideState struct {
	score    int
	margin   int // own score minus opponent's
	pregame  float64
	features SideFeatures
}

// ExpectedAdditional estimates the points a side adds from here. It blends
// the time-prorated pre-game expectation with the observed in-game scoring
// rate, then scales by momentum, scoring rate, pace and turnover/penalty
// pressure, plus late-game urgency.
func ExpectedAdditional(s sideState, f Features) float64 {
	rem := f.RemainingSeconds
	if rem <= 0 {
		return 0
	}
	remMin := rem / 60
	elapsedMin := f.ElapsedSeconds / 60

	prorated := s.pregame * rem / float64(3600)
	observed := prorated
	if elapsedMin >= 1 {
		observed = float64(s.score) / elapsedMin * remMin
	}
	late := lateness(rem, trailingWindow)
	b := clamp(0.1+0.5*f.ElapsedFraction+0.2*late, 0, 0.8)
	est := (1-b)*prorated + b*observed

	est *= 1 + 0.08*s.features.Momentum
	est *= clamp(1+1.5*(s.features.ScoringRate-leagueScoringRate), 0.8, 1.25)
	if f.Pace > 0 {
		est *= clamp(1+0.04*(f.Pace-leaguePace), 0.85, 1.2)
	}
	est *= clamp(1-0.15*s.features.PenaltyRate-0.3*s.features.TurnoverRate, 0.6, 1)

	size := math.Min(math.Abs(float64(s.margin)), marginScale) / marginScale
	switch {
	case s.margin < 0:
		est *= 1 + 0.35*late*(0.3+0.7*size)
	case s.margin > 0:
		est *= 1 - 0.25*lateness(rem, protectWindow)*size
	}

	return clamp(est, 0, capFor(rem))
}

// capFor bounds additional points by the time left: a touchdown is always
// possible, beyond that roughly one point per minute.
func capFor(remaining float64) float64 {
	return 8 + remaining/60
}

// NewProfile turns expected additional points into an event rate for the
// game-state mix.
func NewProfile(expected float64, margin int, remaining float64) Profile {
	mix := OutcomeMix(margin, remaining)
	p := Profile{ExpectedPoints: expected, Mix: mix}
	if mp := meanPoints(mix); mp > 0 {
		p.ExpectedEvents = expected / mp
	}
	p.cumulative = make([]float64, len(mix))
	var c float64
	for i, o := range mix {
		c += o.Weight
		p.cumulative[i] = c
	}
	return p
}

// points samples one scoring event's value from u in [0, 1).
func (p Profile) points(u float64) int {
	for i, c := range p.cumulative {
		if u < c {
			return p.Mix[i].Points
		}
	}
	return p.Mix[len(p.Mix)-1].Points
}
