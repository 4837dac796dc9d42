package pregame

import (
	"context"
	"encoding/json"
	"time"

	"github.com/charleschow/squares-odds/internal/core/odds"
	"github.com/charleschow/squares-odds/internal/memo"
	"github.com/charleschow/squares-odds/internal/store"
	"github.com/charleschow/squares-odds/internal/telemetry"
)

const cacheNamespace = "squares-odds:pregame:v1:"

// cachedModel is the persisted form of a pre-game result.
type cachedModel struct {
	Result    odds.Result `json:"result"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// ModelCache is read-through over an in-process layer and a persistent
// store. Entries are replaced on expiry, never updated in place.
type ModelCache struct {
	mem   *memo.Cache[odds.Result]
	store store.Store
	ttl   time.Duration
	now   func() time.Time
}

// NewModelCache wraps st, which may be nil for an in-process cache only.
func NewModelCache(st store.Store, ttl time.Duration) *ModelCache {
	return &ModelCache{
		mem:   memo.New[odds.Result](ttl),
		store: st,
		ttl:   ttl,
		now:   time.Now,
	}
}

// WithClock replaces the time source of both layers.
func (c *ModelCache) WithClock(now func() time.Time) *ModelCache {
	c.now = now
	c.mem.WithClock(now)
	return c
}

func cacheKey(matchup string) string { return cacheNamespace + matchup }

// Get returns a cached result for the matchup key. Corrupt or expired
// persisted entries are deleted and reported as a miss.
func (c *ModelCache) Get(ctx context.Context, matchup string) (odds.Result, bool) {
	if r, ok := c.mem.Get(matchup); ok {
		telemetry.Metrics.CacheLookups.WithLabelValues("memory", "hit").Inc()
		return r, true
	}
	telemetry.Metrics.CacheLookups.WithLabelValues("memory", "miss").Inc()
	if c.store == nil {
		return odds.Result{}, false
	}

	key := cacheKey(matchup)
	data, found, err := c.store.Get(ctx, key)
	if err != nil {
		telemetry.Warnf("pregame: cache read %s: %v", key, err)
		return odds.Result{}, false
	}
	if !found {
		telemetry.Metrics.CacheLookups.WithLabelValues("persistent", "miss").Inc()
		return odds.Result{}, false
	}

	var cm cachedModel
	if err := json.Unmarshal(data, &cm); err != nil || cm.ExpiresAt.IsZero() {
		telemetry.Warnf("pregame: evicting corrupt cache entry %s", key)
		c.evict(ctx, key)
		telemetry.Metrics.CacheLookups.WithLabelValues("persistent", "corrupt").Inc()
		return odds.Result{}, false
	}
	if !c.now().Before(cm.ExpiresAt) {
		c.evict(ctx, key)
		telemetry.Metrics.CacheLookups.WithLabelValues("persistent", "expired").Inc()
		return odds.Result{}, false
	}

	telemetry.Metrics.CacheLookups.WithLabelValues("persistent", "hit").Inc()
	c.mem.SetUntil(matchup, cm.Result, cm.ExpiresAt)
	return cm.Result, true
}

// Set stores r in both layers.
func (c *ModelCache) Set(ctx context.Context, matchup string, r odds.Result) {
	c.mem.Set(matchup, r)
	if c.store == nil {
		return
	}
	data, err := json.Marshal(cachedModel{Result: r, ExpiresAt: c.now().Add(c.ttl)})
	if err != nil {
		telemetry.Warnf("pregame: encode cache entry %s: %v", matchup, err)
		return
	}
	if err := c.store.Set(ctx, cacheKey(matchup), data, c.ttl); err != nil {
		telemetry.Warnf("pregame: cache write %s: %v", matchup, err)
	}
}

func (c *ModelCache) evict(ctx context.Context, key string) {
	if err := c.store.Delete(ctx, key); err != nil {
		telemetry.Warnf("pregame: cache delete %s: %v", key, err)
	}
}
