package pregame

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/charleschow/squares-odds/internal/core/digits"
	"github.com/charleschow/squares-odds/internal/core/odds"
	"github.com/charleschow/squares-odds/internal/store"
)

func TestModelCachePersistentLayer(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	now := time.Date(2025, 10, 5, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	r := odds.Result{ID: uuid.New(), HomeCode: "SEA", AwayCode: "NE", Matrix: digits.Uniform(), ExpectedHomePoints: 23}
	NewModelCache(st, 30*time.Minute).WithClock(clock).Set(ctx, "SEA-NE", r)

	// A fresh process sees the persisted entry.
	c2 := NewModelCache(st, 30*time.Minute).WithClock(clock)
	got, ok := c2.Get(ctx, "SEA-NE")
	if !ok || got.ID != r.ID || got.ExpectedHomePoints != 23 {
		t.Fatalf("persisted get = %+v, %v", got, ok)
	}

	now = now.Add(31 * time.Minute)
	c3 := NewModelCache(st, 30*time.Minute).WithClock(clock)
	if _, ok := c3.Get(ctx, "SEA-NE"); ok {
		t.Error("expired entry served")
	}
	if _, found, _ := st.Get(ctx, cacheKey("SEA-NE")); found {
		t.Error("expired entry not cleared from the store")
	}
}

func TestModelCacheEvictsCorrupt(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	key := cacheKey("SEA-NE")
	if err := st.Set(ctx, key, []byte("{not json"), time.Hour); err != nil {
		t.Fatal(err)
	}

	c := NewModelCache(st, 30*time.Minute)
	if _, ok := c.Get(ctx, "SEA-NE"); ok {
		t.Fatal("corrupt entry served")
	}
	if _, found, _ := st.Get(ctx, key); found {
		t.Error("corrupt entry not evicted")
	}
}

func TestModelCacheMemoryOnly(t *testing.T) {
	ctx := context.Background()
	c := NewModelCache(nil, time.Minute)
	if _, ok := c.Get(ctx, "SEA-NE"); ok {
		t.Fatal("empty cache hit")
	}
	c.Set(ctx, "SEA-NE", odds.Result{HomeCode: "SEA"})
	if got, ok := c.Get(ctx, "SEA-NE"); !ok || got.HomeCode != "SEA" {
		t.Errorf("get = %+v, %v", got, ok)
	}
}
