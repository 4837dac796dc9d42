package realtime

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/charleschow/squares-odds/internal/core/digits"
	"github.com/charleschow/squares-odds/internal/core/live"
	"github.com/charleschow/squares-odds/internal/core/odds"
	"github.com/charleschow/squares-odds/internal/events"
)

// BaseSource supplies the pre-game prior. Satisfied by *pregame.Service.
type BaseSource interface {
	Build(ctx context.Context, home, away string, rows, cols digits.Labels) (odds.Result, error)
}

// Observer turns published snapshots into realtime results on the bus.
// Results are rendered on identity labels; subscribers re-label per viewer.
type Observer struct {
	engine  *Engine
	base    BaseSource
	bus     *events.Bus
	timeout time.Duration
}

func NewObserver(engine *Engine, base BaseSource, bus *events.Bus) *Observer {
	return &Observer{engine: engine, base: base, bus: bus, timeout: 30 * time.Second}
}

// Attach subscribes the observer to snapshot events.
func (o *Observer) Attach() {
	o.bus.Subscribe(events.EventSnapshot, o.handle)
}

func (o *Observer) handle(e events.Event) error {
	ev, ok := e.Payload.(live.SnapshotEvent)
	if !ok {
		return fmt.Errorf("realtime: unexpected payload %T", e.Payload)
	}
	if ev.Snapshot == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), o.timeout)
	defer cancel()

	ident := digits.IdentityLabels()
	base, err := o.base.Build(ctx, ev.Request.Home, ev.Request.Away, ident, ident)
	if err != nil {
		return fmt.Errorf("realtime: base model for %s: %w", e.Matchup, err)
	}
	res := o.engine.Build(base, ev.Snapshot, ident, ident)
	o.bus.Publish(events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventRealtimeOdds,
		Matchup:   e.Matchup,
		Timestamp: time.Now().UTC(),
		Payload:   res,
	})
	return nil
}
