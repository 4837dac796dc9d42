package pregame

import (
	"math"

	"github.com/charleschow/squares-odds/internal/config"
	"github.com/charleschow/squares-odds/internal/core/digits"
	"github.com/charleschow/squares-odds/internal/core/history"
)

const (
	minExpectedPoints = 10
	maxExpectedPoints = 45

	// Points per team per 100% implied-probability edge.
	marketEdgePoints = 4.5

	thirdDownEdgePoints = 6.0
	redZoneEdgePoints   = 5.0
	turnoverEdgePoints  = 0.3
	maxStatEdgePoints   = 4.0
)

// sideInputs is everything known about one team for a build. Nil pointers
// mark sources that failed.
type sideInputs struct {
	context history.TeamContext
	stats   *history.TeamStats
	form    *history.RecentForm
	market  *float64
}

type weighted struct {
	w float64
	v digits.Vector
}

// blendVectors mixes vectors by weight; the result is renormalized so
// dropped inputs hand their share to the rest.
func blendVectors(parts []weighted) digits.Vector {
	var out digits.Vector
	for _, p := range parts {
		if p.w <= 0 {
			continue
		}
		for i := range digits.Size {
			out[i] += p.w * p.v[i]
		}
	}
	return out.Normalize()
}

// scoringVector is the side's blended scoring-digit distribution against
// this opponent.
func scoringVector(w config.VectorWeights, own, opp sideInputs) digits.Vector {
	parts := []weighted{
		{w.Offense, own.context.Offense},
		{w.OpponentDefense, opp.context.Defense},
	}
	if own.form != nil {
		parts = append(parts, weighted{w.FormOffense, own.form.Offense})
	}
	if opp.form != nil {
		parts = append(parts, weighted{w.FormDefense, opp.form.Defense})
	}
	return blendVectors(parts)
}

// teamMatrix is the outer product of both sides' blended vectors.
func teamMatrix(w config.VectorWeights, home, away sideInputs) digits.Matrix {
	return digits.Outer(scoringVector(w, home, away), scoringVector(w, away, home))
}

// basePoints blends the side's expected final points before matchup edges.
func basePoints(w config.PointsWeights, own, opp sideInputs, league float64) float64 {
	var sum, wsum float64
	add := func(weight, v float64) {
		if weight <= 0 || v <= 0 || math.IsNaN(v) {
			return
		}
		sum += weight * v
		wsum += weight
	}
	add(w.TeamFor, own.context.AvgFor)
	add(w.OpponentAgainst, opp.context.AvgAgainst)
	if own.stats != nil {
		add(w.TeamStats, own.stats.PointsPerGame)
	}
	if own.form != nil {
		add(w.Form, own.form.AvgFor)
	}
	add(w.League, league)
	if wsum == 0 {
		return league
	}
	return sum / wsum
}

// fraction accepts percentages as either 0..1 or 0..100.
func fraction(p float64) float64 {
	if p > 1 {
		return p / 100
	}
	return p
}

// statEdge is the home side's points edge from third-down, red-zone and
// turnover numbers. The away side receives the negation.
func statEdge(home, away *history.TeamStats) float64 {
	if home == nil || away == nil {
		return 0
	}
	var edge float64
	if home.ThirdDownPct > 0 && away.ThirdDownPct > 0 {
		edge += thirdDownEdgePoints * (fraction(home.ThirdDownPct) - fraction(away.ThirdDownPct))
	}
	if home.RedZonePct > 0 && away.RedZonePct > 0 {
		edge += redZoneEdgePoints * (fraction(home.RedZonePct) - fraction(away.RedZonePct))
	}
	edge += turnoverEdgePoints * (home.TurnoverDifferential - away.TurnoverDifferential)
	return clamp(edge, -maxStatEdgePoints, maxStatEdgePoints)
}

// marketEdge is the home side's points shift from implied win probability.
func marketEdge(home, away *float64) float64 {
	if home == nil || away == nil {
		return 0
	}
	return marketEdgePoints * (*home - *away)
}

// expectedPoints returns both sides' expected final points, clamped to a
// plausible NFL range.
func expectedPoints(w config.PointsWeights, home, away sideInputs, league float64) (float64, float64) {
	h := basePoints(w, home, away, league)
	a := basePoints(w, away, home, league)

	edge := statEdge(home.stats, away.stats)/2 + marketEdge(home.market, away.market)
	h += edge
	a -= edge
	return clamp(h, minExpectedPoints, maxExpectedPoints), clamp(a, minExpectedPoints, maxExpectedPoints)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
