package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/charleschow/squares-odds/internal/config"
	"github.com/charleschow/squares-odds/internal/core/digits"
	"github.com/charleschow/squares-odds/internal/core/live"
	"github.com/charleschow/squares-odds/internal/core/odds"
	"github.com/charleschow/squares-odds/internal/events"
	"github.com/charleschow/squares-odds/internal/fanout"
	"github.com/charleschow/squares-odds/internal/process"
	"github.com/charleschow/squares-odds/internal/telemetry"
)

func main() {
	home := flag.String("home", "", "home team (code, name or alias)")
	away := flag.String("away", "", "away team (code, name or alias)")
	rowsFlag := flag.String("rows", "", "home digit labels, e.g. 5,0,1,2,3,4,6,7,8,9")
	colsFlag := flag.String("cols", "", "away digit labels")
	date := flag.String("date", "", "game date YYYY-MM-DD for the live lookup")
	event := flag.String("event", "", "provider event id override")
	liveMode := flag.Bool("live", false, "blend the current game state into the board")
	watch := flag.String("watch", "", "host:port of a running squares service to stream updates from")
	cache := flag.String("cache", "memory", "model cache backend (memory, sqlite, redis)")
	asJSON := flag.Bool("json", false, "print the raw result as JSON")
	flag.Parse()

	if *home == "" || *away == "" {
		fmt.Fprintln(os.Stderr, "usage: go run ./cmd/inspect_odds -home KC -away BUF [-rows ...] [-cols ...] [-live] [-watch localhost:8088] [-json]")
		os.Exit(1)
	}

	rows, err := digits.ParseLabels(*rowsFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "rows: %v\n", err)
		os.Exit(1)
	}
	cols, err := digits.ParseLabels(*colsFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cols: %v\n", err)
		os.Exit(1)
	}

	cfg := config.Load()
	telemetry.Init(telemetry.ParseLogLevel(cfg.LogLevel))

	if *watch != "" {
		watchBoard(*watch, *home, *away, rows, cols, *asJSON)
		return
	}

	cfg.CacheBackend = *cache
	app, err := process.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "startup: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	base, err := app.Pregame.Build(ctx, *home, *away, rows, cols)
	if err != nil {
		fmt.Fprintf(os.Stderr, "pre-game: %v\n", err)
		os.Exit(1)
	}
	if !*liveMode {
		emit(os.Stdout, base, *asJSON)
		return
	}

	snap, err := app.Fetcher.Fetch(ctx, live.Request{Home: *home, Away: *away, Date: *date, EventID: *event})
	if err != nil {
		fmt.Fprintf(os.Stderr, "live: %v (showing pre-game)\n", err)
		emit(os.Stdout, base, *asJSON)
		return
	}
	if snap == nil {
		fmt.Fprintln(os.Stderr, "live: no event found (showing pre-game)")
		emit(os.Stdout, base, *asJSON)
		return
	}
	emit(os.Stdout, app.Engine.Build(base, snap, rows, cols).AgedAt(time.Now()), *asJSON)
}

// watchBoard streams updates from a running service until interrupted.
func watchBoard(addr, home, away string, rows, cols digits.Labels, asJSON bool) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := events.NewBus()
	show := func(e events.Event) error {
		fmt.Printf("--- %s %s %s ---\n", e.Type, e.Matchup, e.Timestamp.Format(time.RFC3339))
		if e.Payload != nil {
			emit(os.Stdout, e.Payload, asJSON)
		}
		return nil
	}
	bus.Subscribe(events.EventPregameOdds, show)
	bus.Subscribe(events.EventRealtimeOdds, show)
	bus.Subscribe(events.EventSessionClosed, func(e events.Event) error {
		fmt.Printf("--- %s closed ---\n", e.Matchup)
		cancel()
		return nil
	})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	fanout.NewClient(addr, home, away, rows, cols, bus).ConnectWithRetry(ctx)
}

func emit(w io.Writer, v any, asJSON bool) {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		_ = enc.Encode(v)
		return
	}
	switch r := v.(type) {
	case odds.RealtimeResult:
		fmt.Fprintf(w, "%s %d - %s %d  [%s  Q%d %s]  live weight %.2f  runs %d  age %.0fs\n",
			r.HomeCode, r.HomeScore, r.AwayCode, r.AwayScore, r.Status, r.Period, r.Clock,
			r.LiveWeight, r.SimulationRuns, r.SnapshotAgeSeconds)
		printResult(w, r.Result)
	case odds.Result:
		printResult(w, r)
	default:
		fmt.Fprintf(w, "%v\n", v)
	}
}

func printResult(w io.Writer, r odds.Result) {
	fmt.Fprintf(w, "%s (home, rows) vs %s (away, cols)  mode=%s  expected %.1f-%.1f\n",
		r.HomeCode, r.AwayCode, r.Mode, r.ExpectedHomePoints, r.ExpectedAwayPoints)
	fmt.Fprintf(w, "sources: %s\n", strings.Join(r.Sources, ", "))
	for _, warn := range r.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warn)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', tabwriter.AlignRight)
	fmt.Fprint(tw, "\t")
	for _, c := range r.ColLabels {
		fmt.Fprintf(tw, "%d\t", c)
	}
	fmt.Fprintln(tw)
	for i, row := range r.Board {
		fmt.Fprintf(tw, "%d\t", r.RowLabels[i])
		for _, p := range row {
			fmt.Fprintf(tw, "%.2f\t", p)
		}
		fmt.Fprintln(tw)
	}
	_ = tw.Flush()

	h, a := r.Matrix.ArgMax()
	fmt.Fprintf(w, "best square: home %d / away %d (%.2f%%)\n", h, a, 100*r.Matrix[h][a])
}
