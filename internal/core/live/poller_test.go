package live

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/charleschow/squares-odds/internal/core/teams"
	"github.com/charleschow/squares-odds/internal/events"
)

type scriptedFetcher struct {
	mu      sync.Mutex
	results []error
	snap    *Snapshot
	block   chan struct{}
	calls   int
}

func (f *scriptedFetcher) Fetch(ctx context.Context, _ Request) (*Snapshot, error) {
	f.mu.Lock()
	f.calls++
	var err error
	if len(f.results) > 0 {
		err = f.results[0]
		f.results = f.results[1:]
	}
	block := f.block
	f.mu.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return f.snap, nil
}

func TestPollerBusyGuard(t *testing.T) {
	f := &scriptedFetcher{block: make(chan struct{}), snap: &Snapshot{Status: StatusInProgress}}
	p := NewPoller(f, Request{}, nil)

	done := make(chan error, 1)
	go func() {
		_, err := p.Poll(context.Background())
		done <- err
	}()
	for !p.busy.Load() {
		time.Sleep(time.Millisecond)
	}
	if _, err := p.Poll(context.Background()); !errors.Is(err, ErrPollInFlight) {
		t.Errorf("overlapping poll err = %v, want ErrPollInFlight", err)
	}
	close(f.block)
	if err := <-done; err != nil {
		t.Fatal(err)
	}
}

func TestPollerBackoffResets(t *testing.T) {
	boom := errors.New("boom")
	rem := 30 * 60
	f := &scriptedFetcher{
		results: []error{boom, boom, nil},
		snap:    &Snapshot{Status: StatusInProgress, Clock: Clock{GameSecondsRemaining: &rem}},
	}
	var handled int
	p := NewPoller(f, Request{}, func(*Snapshot) { handled++ })
	ctx := context.Background()

	p.Poll(ctx)
	first := p.NextDelay()
	p.Poll(ctx)
	second := p.NextDelay()
	if p.Failures() != 2 {
		t.Fatalf("failures = %d", p.Failures())
	}
	if !(second > first && first > PollInterval(nil)) {
		t.Errorf("backoff not growing: %s then %s", first, second)
	}

	if _, err := p.Poll(ctx); err != nil {
		t.Fatal(err)
	}
	if p.Failures() != 0 || handled != 1 {
		t.Errorf("failures = %d handled = %d after success", p.Failures(), handled)
	}
	if got := p.NextDelay(); got != 12*time.Second {
		t.Errorf("delay after recovery = %s, want status cadence", got)
	}
}

func TestNextDelayCapped(t *testing.T) {
	if got := nextDelay(nil, 50); got != maxBackoff {
		t.Errorf("delay = %s, want cap %s", got, maxBackoff)
	}
}

func TestManagerSharesAndStopsSessions(t *testing.T) {
	f := &scriptedFetcher{block: make(chan struct{}), snap: &Snapshot{Status: StatusInProgress}}
	bus := events.NewBus()
	m := NewManager(f, teams.NFL(), bus)
	ctx := context.Background()

	key, release1, err := m.Acquire(ctx, Request{Home: "SEA", Away: "NE"})
	if err != nil {
		t.Fatal(err)
	}
	_, release2, err := m.Acquire(ctx, Request{Home: "Seahawks", Away: "Patriots"})
	if err != nil {
		t.Fatal(err)
	}
	if key != "SEA-NE" || m.Active() != 1 {
		t.Fatalf("key = %s active = %d", key, m.Active())
	}
	gen := m.Generation(key)

	release1()
	release1()
	if m.Active() != 1 {
		t.Fatal("session stopped while still held")
	}
	release2()
	if m.Active() != 0 {
		t.Fatal("session still running after last release")
	}
	if m.Generation(key) == gen {
		t.Error("stopping a session must bump its generation")
	}

	var published int
	bus.Subscribe(events.EventSnapshot, func(events.Event) error {
		published++
		return nil
	})
	m.deliver(key, gen, &Snapshot{})
	if published != 0 {
		t.Error("stale generation snapshot was published")
	}
	close(f.block)

	if _, _, err := m.Acquire(ctx, Request{Home: "Martians", Away: "NE"}); !errors.Is(err, teams.ErrUnsupportedTeam) {
		t.Errorf("err = %v", err)
	}
}
