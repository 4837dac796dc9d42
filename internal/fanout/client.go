package fanout

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"time"

	"github.com/gorilla/websocket"

	"github.com/charleschow/squares-odds/internal/core/digits"
	"github.com/charleschow/squares-odds/internal/events"
	"github.com/charleschow/squares-odds/internal/telemetry"
)

const (
	minBackoff = 1 * time.Second
	maxBackoff = 30 * time.Second
)

// Client watches one matchup on a fanout server and republishes received
// events onto a local in-process bus.
type Client struct {
	addr string
	home string
	away string
	rows digits.Labels
	cols digits.Labels
	bus  *events.Bus
}

func NewClient(addr, home, away string, rows, cols digits.Labels, bus *events.Bus) *Client {
	return &Client{addr: addr, home: home, away: away, rows: rows, cols: cols, bus: bus}
}

// ConnectWithRetry connects to the fanout server and reconnects on failure
// with exponential backoff. Blocks until ctx is cancelled.
func (c *Client) ConnectWithRetry(ctx context.Context) {
	attempt := 0
	for {
		if ctx.Err() != nil {
			return
		}

		connStart := time.Now()
		err := c.connect(ctx)
		if ctx.Err() != nil {
			return
		}

		if time.Since(connStart) > time.Minute {
			attempt = 0
		}

		attempt++
		backoff := time.Duration(float64(minBackoff) * math.Pow(2, float64(min(attempt-1, 5))))
		if backoff > maxBackoff {
			backoff = maxBackoff
		}

		if err != nil {
			telemetry.Warnf("fanout: connection lost (attempt %d): %v, retrying in %s", attempt, err, backoff)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
	}
}

func (c *Client) wsURL() string {
	q := url.Values{}
	q.Set("home", c.home)
	q.Set("away", c.away)
	q.Set("rows", c.rows.String())
	q.Set("cols", c.cols.String())
	return fmt.Sprintf("ws://%s/ws?%s", c.addr, q.Encode())
}

func (c *Client) connect(ctx context.Context) error {
	u := c.wsURL()
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", u, err)
	}
	defer conn.Close()

	telemetry.Infof("fanout: watching %s@%s on %s", c.away, c.home, c.addr)

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read: %w", err)
		}

		evt, err := UnmarshalEvent(msg)
		if err != nil {
			telemetry.Warnf("fanout: unmarshal error: %v", err)
			continue
		}

		c.bus.Publish(evt)
	}
}
