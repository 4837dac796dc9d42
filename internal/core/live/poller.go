package live

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charleschow/squares-odds/internal/telemetry"
)

const (
	failureStep = 2 * time.Second
	maxBackoff  = 90 * time.Second
)

// ErrPollInFlight is returned when a poll is requested while one is running.
var ErrPollInFlight = errors.New("live: poll already in flight")

// SnapshotFetcher is satisfied by *Fetcher.
type SnapshotFetcher interface {
	Fetch(ctx context.Context, req Request) (*Snapshot, error)
}

// Poller runs one self-rescheduling fetch loop. At most one fetch is in
// flight at a time; overlapping Poll calls return ErrPollInFlight.
type Poller struct {
	fetcher SnapshotFetcher
	req     Request
	handle  func(*Snapshot)

	busy atomic.Bool

	mu       sync.Mutex
	failures int
	last     *Snapshot
}

// NewPoller calls handle with every snapshot it fetches, including nil when
// no event is found.
func NewPoller(fetcher SnapshotFetcher, req Request, handle func(*Snapshot)) *Poller {
	return &Poller{fetcher: fetcher, req: req, handle: handle}
}

// Poll performs a single fetch cycle.
func (p *Poller) Poll(ctx context.Context) (*Snapshot, error) {
	if !p.busy.CompareAndSwap(false, true) {
		return nil, ErrPollInFlight
	}
	defer p.busy.Store(false)

	snap, err := p.fetcher.Fetch(ctx, p.req)

	p.mu.Lock()
	if err != nil {
		p.failures++
	} else {
		p.failures = 0
		p.last = snap
	}
	p.mu.Unlock()

	if err != nil {
		telemetry.Metrics.PollFailures.Inc()
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if snap != nil {
		telemetry.Metrics.SnapshotsProcessed.Inc()
	}
	if p.handle != nil {
		p.handle(snap)
	}
	return snap, nil
}

// NextDelay is the status cadence of the last good snapshot, plus a capped
// exponential increment per consecutive failure.
func (p *Poller) NextDelay() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return nextDelay(p.last, p.failures)
}

func nextDelay(last *Snapshot, failures int) time.Duration {
	d := PollInterval(last)
	if failures > 0 {
		d += time.Duration(float64(failureStep) * math.Pow(2, float64(min(failures-1, 6))))
	}
	return min(d, maxBackoff)
}

// Failures is the count of consecutive failed fetches.
func (p *Poller) Failures() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.failures
}

// Run polls until ctx is cancelled or the game is finished.
func (p *Poller) Run(ctx context.Context) {
	for {
		snap, err := p.Poll(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil && !errors.Is(err, ErrPollInFlight) {
			telemetry.Warnf("live: poll %s@%s failed (%d in a row): %v", p.req.Away, p.req.Home, p.Failures(), err)
		}
		if snap != nil && snap.Status.Finished() {
			telemetry.Infof("live: %s@%s is %s, stopping poll loop", p.req.Away, p.req.Home, snap.Status)
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(p.NextDelay()):
		}
	}
}
