package events

import (
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/charleschow/squares-odds/internal/telemetry"
)

// Handler processes an event. A returned error or a panic is logged and
// counted; dispatch continues with the next handler.
type Handler func(Event) error

// Bus is a synchronous in-process event bus. Handlers run in registration
// order on the publisher's goroutine, which for snapshots is a live poll
// loop, so a failing simulation or fanout write must not unwind it.
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
	now      func() time.Time
}

func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
		now:      time.Now,
	}
}

// Subscribe registers a handler for a given event type.
func (b *Bus) Subscribe(eventType EventType, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], h)
}

// Publish stamps a missing ID and Timestamp, then dispatches e to every
// handler registered for its type. Downstream consumers age realtime
// results against the timestamp.
func (b *Bus) Publish(e Event) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = b.now().UTC()
	}

	b.mu.RLock()
	handlers := b.handlers[e.Type]
	b.mu.RUnlock()

	for _, h := range handlers {
		if err := dispatch(h, e); err != nil {
			telemetry.Warnf("events: %s handler for %s: %v", e.Type, e.Matchup, err)
		}
	}
}

func dispatch(h Handler, e Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			telemetry.Metrics.HandlerFailures.WithLabelValues(string(e.Type), "panic").Inc()
			telemetry.Debugf("events: panic stack\n%s", debug.Stack())
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	if err = h(e); err != nil {
		telemetry.Metrics.HandlerFailures.WithLabelValues(string(e.Type), "error").Inc()
	}
	return err
}
