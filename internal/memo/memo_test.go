package memo

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestDo_CollapsesConcurrentCalls(t *testing.T) {
	c := New[int](time.Minute)
	var calls atomic.Int32
	release := make(chan struct{})

	var wg sync.WaitGroup
	results := make([]int, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := c.Do(context.Background(), "k", func(context.Context) (int, error) {
				calls.Add(1)
				<-release
				return 42, nil
			})
			if err != nil {
				t.Errorf("Do: %v", err)
			}
			results[i] = v
		}(i)
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := calls.Load(); n != 1 {
		t.Errorf("fn ran %d times, want 1", n)
	}
	for i, v := range results {
		if v != 42 {
			t.Errorf("caller %d got %d", i, v)
		}
	}
}

func TestDo_ExpiresAfterTTL(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	c := New[int](time.Minute).WithClock(func() time.Time { return now })

	n := 0
	fn := func(context.Context) (int, error) { n++; return n, nil }

	v1, _ := c.Do(context.Background(), "k", fn)
	v2, _ := c.Do(context.Background(), "k", fn)
	if v1 != 1 || v2 != 1 {
		t.Fatalf("second call should hit cache: %d %d", v1, v2)
	}

	now = now.Add(time.Minute)
	v3, _ := c.Do(context.Background(), "k", fn)
	if v3 != 2 {
		t.Errorf("expired entry should recompute, got %d", v3)
	}
}

func TestDo_ErrorsNotCached(t *testing.T) {
	c := New[string](time.Minute)
	boom := errors.New("boom")

	if _, err := c.Do(context.Background(), "k", func(context.Context) (string, error) { return "", boom }); !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	v, err := c.Do(context.Background(), "k", func(context.Context) (string, error) { return "ok", nil })
	if err != nil || v != "ok" {
		t.Errorf("retry after error: %q %v", v, err)
	}
}

func TestDo_CallerCancellation(t *testing.T) {
	c := New[int](time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Do(ctx, "k", func(context.Context) (int, error) {
		time.Sleep(10 * time.Millisecond)
		return 1, nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
