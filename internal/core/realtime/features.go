package realtime

import (
	"math"

	"github.com/charleschow/squares-odds/internal/core/live"
	"github.com/charleschow/squares-odds/internal/core/sentiment"
)

const (
	featureWindow   = 80
	featureHalfLife = 13.0
	momentumCap     = 2.6
	paceCap         = 10.0

	momentumScoring   = 1.0
	momentumExplosive = 0.6
	momentumSentiment = 0.8
	momentumPenalty   = 0.5
	momentumTurnover  = 1.1

	aggregateSentimentGain = 0.8
	penaltyPressureGain    = 0.6
	turnoverPressureGain   = 0.9
)

// SideFeatures are the recency-weighted play aggregates for one team.
type SideFeatures struct {
	Plays        int     `json:"plays"`
	ScoringRate  float64 `json:"scoring_rate"`
	PenaltyRate  float64 `json:"penalty_rate"`
	TurnoverRate float64 `json:"turnover_rate"`
	Momentum     float64 `json:"momentum"`
}

// Features is everything the engine derives from a snapshot before
// simulating. When ClockKnown is false the remaining time is an estimate
// from the middle of the current period.
type Features struct {
	Home             SideFeatures        `json:"home"`
	Away             SideFeatures        `json:"away"`
	Pace             float64             `json:"pace"`
	ElapsedSeconds   float64             `json:"elapsed_seconds"`
	RemainingSeconds float64             `json:"remaining_seconds"`
	ElapsedFraction  float64             `json:"elapsed_fraction"`
	ClockKnown       bool                `json:"clock_known"`
	PlaysConsidered  int                 `json:"plays_considered"`
	Sentiment        sentiment.Aggregate `json:"sentiment"`
}

// Extract derives features from the trailing plays and clock of snap.
func Extract(snap *live.Snapshot) Features {
	f := Features{Sentiment: snap.Sentiment}
	f.RemainingSeconds, f.ClockKnown = remaining(snap)
	f.ElapsedSeconds = elapsed(snap, f.RemainingSeconds)
	if total := f.ElapsedSeconds + f.RemainingSeconds; total > 0 {
		f.ElapsedFraction = clamp(f.ElapsedSeconds/total, 0, 1)
	}

	plays := snap.Plays
	if len(plays) > featureWindow {
		plays = plays[len(plays)-featureWindow:]
	}
	f.PlaysConsidered = len(plays)

	var acc [2]struct{ w, scoring, penalty, turnover, momentum float64 }
	var counts [2]int
	for i := len(plays) - 1; i >= 0; i-- {
		p := plays[i]
		side := -1
		switch p.TeamCode {
		case "":
		case snap.HomeCode:
			side = 0
		case snap.AwayCode:
			side = 1
		}
		if side < 0 {
			continue
		}
		age := float64(len(plays) - 1 - i)
		w := math.Pow(0.5, age/featureHalfLife)
		a := &acc[side]
		counts[side]++
		a.w += w
		a.scoring += w * b2f(p.Scoring)
		a.penalty += w * b2f(p.Penalty)
		a.turnover += w * b2f(p.Turnover)

		delta := momentumSentiment * p.Sentiment
		if p.Scoring {
			delta += momentumScoring
		}
		if p.Explosive {
			delta += momentumExplosive
		}
		if p.Penalty {
			delta -= momentumPenalty
		}
		a.momentum += w * delta
		if p.Turnover {
			a.momentum -= w * momentumTurnover
			acc[1-side].momentum += w * momentumTurnover
		}
	}

	sides := [2]*SideFeatures{&f.Home, &f.Away}
	mood := [2]float64{snap.Sentiment.Home, snap.Sentiment.Away}
	for i, sf := range sides {
		a := acc[i]
		sf.Plays = counts[i]
		if a.w > 0 {
			sf.ScoringRate = a.scoring / a.w
			sf.PenaltyRate = a.penalty / a.w
			sf.TurnoverRate = a.turnover / a.w
		}
		m := a.momentum + aggregateSentimentGain*mood[i] -
			penaltyPressureGain*sf.PenaltyRate - turnoverPressureGain*sf.TurnoverRate
		sf.Momentum = clamp(m, -momentumCap, momentumCap)
	}

	if minutes := f.ElapsedSeconds / 60; minutes >= 1 {
		f.Pace = clamp(float64(len(snap.Plays))/minutes, 0, paceCap)
	}
	return f
}

// remaining returns the snapshot's game seconds left, estimating from the
// middle of the current period when the clock is unknown.
func remaining(snap *live.Snapshot) (float64, bool) {
	if r := snap.Clock.GameSecondsRemaining; r != nil {
		return float64(*r), true
	}
	p := snap.Clock.Period
	half := float64(live.PeriodSeconds) / 2
	switch {
	case p >= 1 && p <= live.RegulationPeriods:
		return float64((live.RegulationPeriods-p)*live.PeriodSeconds) + half, false
	case p > live.RegulationPeriods:
		return half, false
	default:
		return float64(live.GameSeconds) / 2, false
	}
}

func elapsed(snap *live.Snapshot, remaining float64) float64 {
	if snap.Status == live.StatusPregame {
		return 0
	}
	if p := snap.Clock.Period; p > live.RegulationPeriods {
		return float64(live.GameSeconds) + float64(live.PeriodSeconds) - remaining
	}
	return math.Max(0, float64(live.GameSeconds)-remaining)
}

func b2f(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
