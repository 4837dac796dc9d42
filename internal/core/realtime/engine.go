// Package realtime re-estimates squares odds from a live snapshot: it
// simulates the rest of the game from the current score and blends the
// result with the pre-game prior.
package realtime

import (
	"encoding/binary"
	"math"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"

	"github.com/charleschow/squares-odds/internal/core/digits"
	"github.com/charleschow/squares-odds/internal/core/live"
	"github.com/charleschow/squares-odds/internal/core/odds"
	"github.com/charleschow/squares-odds/internal/telemetry"
)

const (
	extraPossessionWindow = 120
	extraPossessionProb   = 0.22

	pregameLiveWeight = 0.2
	minLiveWeight     = 0.36
	maxLiveWeight     = 0.95
	lateWindow        = 600
	lateWeightFloor   = 0.9
	lateWeightCeil    = 0.99
)

// Projection is the engine's per-side forecast, reported with the features.
type Projection struct {
	Features
	HomeProfile Profile `json:"home_profile"`
	AwayProfile Profile `json:"away_profile"`
}

type Engine struct{}

func New() *Engine {
	return &Engine{}
}

// SnapshotSeed hashes the fields that identify a game state. Re-fetching an
// unchanged game yields the same seed.
func SnapshotSeed(s *live.Snapshot) uint64 {
	d := xxhash.New()
	write := func(v string) {
		d.WriteString(v)
		d.Write([]byte{0})
	}
	write(s.EventID)
	write(string(s.Status))
	write(strconv.Itoa(s.HomeScore))
	write(strconv.Itoa(s.AwayScore))
	write(strconv.Itoa(s.Clock.Period))
	write(s.Clock.Display)
	write(s.LastPlayID())
	write(strconv.Itoa(len(s.Plays)))
	return d.Sum64()
}

// RunsFor scales simulation effort with the time left.
func RunsFor(remaining float64) int {
	switch {
	case remaining <= 8*60:
		return 12000
	case remaining <= 20*60:
		return 10000
	default:
		return 8000
	}
}

// LiveWeight is the share of the final matrix taken from the live
// simulation. It rises with elapsed time and is pinned near 1 late.
func LiveWeight(snap *live.Snapshot, f Features) float64 {
	switch snap.Status {
	case live.StatusFinal, live.StatusPostponed:
		return 1
	case live.StatusPregame:
		return pregameLiveWeight
	}
	rem := f.RemainingSeconds
	if f.ClockKnown && rem <= lateWindow {
		return lateWeightFloor + (lateWeightCeil-lateWeightFloor)*(1-rem/lateWindow)
	}
	total := float64(snap.HomeScore + snap.AwayScore)
	diff := math.Abs(float64(snap.HomeScore - snap.AwayScore))
	w := minLiveWeight +
		0.42*f.ElapsedFraction +
		0.07*clamp(total/50, 0, 1) +
		0.05*clamp(diff/21, 0, 1) +
		0.05*lateness(rem, 30*60)
	return clamp(w, minLiveWeight, maxLiveWeight)
}

// Build derives a realtime result from the pre-game base and a snapshot,
// rendered onto the caller's labels. It depends only on its inputs; the
// snapshot age is left zero for the serving layer to stamp with AgedAt.
func (e *Engine) Build(base odds.Result, snap *live.Snapshot, rows, cols digits.Labels) odds.RealtimeResult {
	f := Extract(snap)
	seed := SnapshotSeed(snap)
	proj := Projection{Features: f}

	var liveMatrix digits.Matrix
	var expHome, expAway float64
	var weight float64
	runs := 0

	if snap.Status.Finished() {
		liveMatrix = digits.Cell(snap.HomeScore, snap.AwayScore)
		weight = 1
		expHome, expAway = float64(snap.HomeScore), float64(snap.AwayScore)
	} else {
		home := sideState{score: snap.HomeScore, margin: snap.HomeScore - snap.AwayScore, pregame: base.ExpectedHomePoints, features: f.Home}
		away := sideState{score: snap.AwayScore, margin: snap.AwayScore - snap.HomeScore, pregame: base.ExpectedAwayPoints, features: f.Away}
		addHome := ExpectedAdditional(home, f)
		addAway := ExpectedAdditional(away, f)
		proj.HomeProfile = NewProfile(addHome, home.margin, f.RemainingSeconds)
		proj.AwayProfile = NewProfile(addAway, away.margin, f.RemainingSeconds)

		runs = RunsFor(f.RemainingSeconds)
		start := time.Now()
		liveMatrix = simulate(seed, runs, snap, f, proj.HomeProfile, proj.AwayProfile)
		telemetry.Metrics.SimulationTime.Observe(time.Since(start).Seconds())

		weight = LiveWeight(snap, f)
		expHome = (1-weight)*base.ExpectedHomePoints + weight*(float64(snap.HomeScore)+addHome)
		expAway = (1-weight)*base.ExpectedAwayPoints + weight*(float64(snap.AwayScore)+addAway)
	}

	matrix := digits.Mix(base.Matrix, liveMatrix, weight)

	sources := append([]string(nil), base.Sources...)
	sources = append(sources, odds.SourceLive)

	var seedBytes [8]byte
	binary.BigEndian.PutUint64(seedBytes[:], seed)

	res := odds.Result{
		ID:                 uuid.NewSHA1(base.ID, seedBytes[:]),
		HomeCode:           base.HomeCode,
		AwayCode:           base.AwayCode,
		Matrix:             matrix,
		GeneratedAt:        snap.FetchedAt,
		Mode:               odds.ModeFor(sources),
		Sources:            sources,
		Warnings:           append([]string(nil), base.Warnings...),
		ExpectedHomePoints: expHome,
		ExpectedAwayPoints: expAway,
	}
	if !f.ClockKnown && !snap.Status.Finished() && snap.Status != live.StatusPregame {
		res.Warnings = append(res.Warnings, "live clock unavailable; remaining time estimated from the current period")
	}

	return odds.RealtimeResult{
		Result:         res.WithLabels(rows, cols),
		BaseID:         base.ID,
		EventID:        snap.EventID,
		Status:         string(snap.Status),
		Period:         snap.Clock.Period,
		Clock:          snap.Clock.Display,
		HomeScore:      snap.HomeScore,
		AwayScore:      snap.AwayScore,
		SnapshotAt:     snap.FetchedAt,
		LiveWeight:     weight,
		SimulationRuns: runs,
		Seed:           seed,
		Features:       proj,
	}
}

// simulate runs the seeded Monte Carlo and returns the final digit
// histogram.
func simulate(seed uint64, runs int, snap *live.Snapshot, f Features, home, away Profile) digits.Matrix {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	// Late one-possession game: the side projected to finish behind gets a
	// chance at one more score.
	extra := -1
	if f.RemainingSeconds <= extraPossessionWindow {
		ph := float64(snap.HomeScore) + home.ExpectedPoints
		pa := float64(snap.AwayScore) + away.ExpectedPoints
		switch {
		case ph < pa:
			extra = 0
		case pa < ph:
			extra = 1
		}
	}

	var counts digits.Matrix
	for range runs {
		h := snap.HomeScore + drawPoints(rng, home)
		a := snap.AwayScore + drawPoints(rng, away)
		if extra >= 0 && rng.Float64() < extraPossessionProb {
			if extra == 0 {
				h += home.points(rng.Float64())
			} else {
				a += away.points(rng.Float64())
			}
		}
		counts[digits.Digit(h)][digits.Digit(a)]++
	}
	return counts.Normalize()
}

func drawPoints(rng *rand.Rand, p Profile) int {
	n := poisson(rng, p.ExpectedEvents)
	total := 0
	for range n {
		total += p.points(rng.Float64())
	}
	return total
}

// poisson draws by Knuth's product method; event means here stay small.
func poisson(rng *rand.Rand, lambda float64) int {
	if lambda <= 0 {
		return 0
	}
	limit := math.Exp(-lambda)
	k := 0
	for p := rng.Float64(); p > limit; p *= rng.Float64() {
		k++
	}
	return k
}
