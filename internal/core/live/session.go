package live

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/charleschow/squares-odds/internal/core/teams"
	"github.com/charleschow/squares-odds/internal/events"
	"github.com/charleschow/squares-odds/internal/telemetry"
)

// SnapshotEvent is the payload of events.EventSnapshot. Snapshot is nil when
// the feed has no event for the matchup yet.
type SnapshotEvent struct {
	Request    Request
	Snapshot   *Snapshot
	Generation uint64
}

type session struct {
	req      Request
	gen      uint64
	refs     int
	cancel   context.CancelFunc
	poller   *Poller
	latest   *Snapshot
	latestAt time.Time
}

// Manager keeps at most one poll loop per matchup and publishes snapshots
// on the bus. Each start bumps the matchup's generation; results from an
// older generation are dropped instead of published.
type Manager struct {
	fetcher SnapshotFetcher
	reg     *teams.Registry
	bus     *events.Bus

	mu       sync.Mutex
	sessions map[string]*session
	gens     map[string]uint64
}

func NewManager(fetcher SnapshotFetcher, reg *teams.Registry, bus *events.Bus) *Manager {
	return &Manager{
		fetcher:  fetcher,
		reg:      reg,
		bus:      bus,
		sessions: make(map[string]*session),
		gens:     make(map[string]uint64),
	}
}

// Acquire starts (or joins) the matchup's poll loop and returns its key and
// a release func. The loop stops when the last holder releases.
func (m *Manager) Acquire(ctx context.Context, req Request) (string, func(), error) {
	home, err := m.reg.Resolve(req.Home)
	if err != nil {
		return "", nil, err
	}
	away, err := m.reg.Resolve(req.Away)
	if err != nil {
		return "", nil, err
	}
	key := teams.MatchupKey(home, away)

	m.mu.Lock()
	s, ok := m.sessions[key]
	if !ok {
		m.gens[key]++
		s = &session{req: req, gen: m.gens[key]}
		loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		s.cancel = cancel
		gen := s.gen
		s.poller = NewPoller(m.fetcher, req, func(snap *Snapshot) {
			m.deliver(key, gen, snap)
		})
		m.sessions[key] = s
		telemetry.Metrics.ActiveSessions.Inc()
		telemetry.Infof("live: session %s started (generation %d)", key, gen)
		go m.run(loopCtx, key, gen, s.poller)
	}
	s.refs++
	m.mu.Unlock()

	var once sync.Once
	return key, func() { once.Do(func() { m.release(key, s) }) }, nil
}

func (m *Manager) run(ctx context.Context, key string, gen uint64, p *Poller) {
	p.Run(ctx)
	m.mu.Lock()
	s, ok := m.sessions[key]
	current := ok && s.gen == gen
	if current {
		delete(m.sessions, key)
		m.gens[key]++
		telemetry.Metrics.ActiveSessions.Dec()
	}
	m.mu.Unlock()
	if current {
		m.bus.Publish(events.Event{
			ID:        uuid.NewString(),
			Type:      events.EventSessionClosed,
			Matchup:   key,
			Timestamp: time.Now().UTC(),
		})
	}
}

func (m *Manager) release(key string, s *session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.refs--
	if s.refs > 0 {
		return
	}
	if cur, ok := m.sessions[key]; ok && cur == s {
		delete(m.sessions, key)
		m.gens[key]++
		telemetry.Metrics.ActiveSessions.Dec()
		telemetry.Infof("live: session %s stopped", key)
	}
	s.cancel()
}

// deliver publishes snap unless the session that produced it is stale.
func (m *Manager) deliver(key string, gen uint64, snap *Snapshot) {
	m.mu.Lock()
	s, ok := m.sessions[key]
	if !ok || s.gen != gen {
		m.mu.Unlock()
		telemetry.Debugf("live: dropping stale snapshot for %s (generation %d)", key, gen)
		return
	}
	s.latest = snap
	s.latestAt = time.Now()
	req := s.req
	m.mu.Unlock()

	m.bus.Publish(events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventSnapshot,
		Matchup:   key,
		Timestamp: time.Now().UTC(),
		Payload:   SnapshotEvent{Request: req, Snapshot: snap, Generation: gen},
	})
}

// Latest returns the most recent snapshot of a running session.
func (m *Manager) Latest(key string) (*Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[key]
	if !ok || s.latest == nil {
		return nil, false
	}
	return s.latest, true
}

// Generation is the matchup's current generation counter.
func (m *Manager) Generation(key string) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gens[key]
}

// Active is the number of running sessions.
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Close stops every session.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, s := range m.sessions {
		s.cancel()
		delete(m.sessions, key)
		m.gens[key]++
		telemetry.Metrics.ActiveSessions.Dec()
	}
}
