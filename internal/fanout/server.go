// Package fanout pushes odds updates to board viewers over WebSocket. Each
// viewer subscribes to one matchup with its own label permutation.
package fanout

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/charleschow/squares-odds/internal/core/digits"
	"github.com/charleschow/squares-odds/internal/core/live"
	"github.com/charleschow/squares-odds/internal/core/odds"
	"github.com/charleschow/squares-odds/internal/events"
	"github.com/charleschow/squares-odds/internal/telemetry"
)

const (
	clientSendBuf = 64
	writeDeadline = 5 * time.Second
	pongWait      = 30 * time.Second
	pingInterval  = 20 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(_ *http.Request) bool { return true },
}

// Sessions starts live polling for a matchup. Satisfied by *live.Manager.
type Sessions interface {
	Acquire(ctx context.Context, req live.Request) (string, func(), error)
}

// BaseSource supplies the pre-game result sent on connect.
// Satisfied by *pregame.Service.
type BaseSource interface {
	Build(ctx context.Context, home, away string, rows, cols digits.Labels) (odds.Result, error)
}

type viewer struct {
	matchup string
	conn    *websocket.Conn
	send    chan []byte
	done    chan struct{}
	release func()

	mu   sync.Mutex
	rows digits.Labels
	cols digits.Labels
}

func (v *viewer) labels() (digits.Labels, digits.Labels) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.rows, v.cols
}

// Server fans out odds events to connected viewers of the same matchup.
type Server struct {
	sessions Sessions
	base     BaseSource

	mu      sync.Mutex
	clients map[*viewer]struct{}
}

func NewServer(bus *events.Bus, sessions Sessions, base BaseSource) *Server {
	s := &Server{
		sessions: sessions,
		base:     base,
		clients:  make(map[*viewer]struct{}),
	}
	bus.Subscribe(events.EventRealtimeOdds, s.forward)
	bus.Subscribe(events.EventPregameOdds, s.forward)
	bus.Subscribe(events.EventSessionClosed, s.forward)
	return s
}

// forward is called on the publisher's goroutine. It renders the event once
// per distinct label permutation and enqueues it to matching viewers
// without blocking.
func (s *Server) forward(evt events.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rendered := make(map[[2]digits.Labels][]byte)
	for c := range s.clients {
		if c.matchup != evt.Matchup {
			continue
		}
		rows, cols := c.labels()
		key := [2]digits.Labels{rows, cols}
		data, ok := rendered[key]
		if !ok {
			var err error
			data, err = MarshalEvent(evt, rows, cols)
			if err != nil {
				telemetry.Warnf("fanout: marshal error: %v", err)
				return nil
			}
			rendered[key] = data
		}
		select {
		case c.send <- data:
		default:
			telemetry.Metrics.FanoutDrops.Inc()
			telemetry.Warnf("fanout: dropping message for slow viewer of %s", c.matchup)
		}
	}
	return nil
}

// HandleWS upgrades a viewer connection:
// /ws?home=SEA&away=NE&rows=5,0,1,...&cols=...&date=&event=
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	rows, err := digits.ParseLabels(q.Get("rows"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	cols, err := digits.ParseLabels(q.Get("cols"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	req := live.Request{Home: q.Get("home"), Away: q.Get("away"), Date: q.Get("date"), EventID: q.Get("event")}
	matchup, release, err := s.sessions.Acquire(r.Context(), req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		release()
		telemetry.Warnf("fanout: upgrade failed: %v", err)
		return
	}

	c := &viewer{
		matchup: matchup,
		conn:    conn,
		send:    make(chan []byte, clientSendBuf),
		done:    make(chan struct{}),
		release: release,
		rows:    rows,
		cols:    cols,
	}

	s.mu.Lock()
	s.clients[c] = struct{}{}
	n := len(s.clients)
	s.mu.Unlock()
	telemetry.Metrics.FanoutClients.Inc()
	telemetry.Infof("fanout: viewer connected to %s (%d total)", matchup, n)

	go s.sendInitial(c, req)
	go s.writePump(c)
	go s.readPump(c)
}

// sendInitial queues the pre-game board so a new viewer has something to
// render before the first live update.
func (s *Server) sendInitial(c *viewer, req live.Request) {
	if s.base == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	rows, cols := c.labels()
	res, err := s.base.Build(ctx, req.Home, req.Away, rows, cols)
	if err != nil {
		telemetry.Warnf("fanout: initial odds for %s: %v", c.matchup, err)
		return
	}
	data, err := MarshalEvent(events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventPregameOdds,
		Matchup:   c.matchup,
		Timestamp: time.Now().UTC(),
		Payload:   res,
	}, rows, cols)
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	case <-c.done:
	}
}

// writePump drains the viewer's send channel and writes to the WS connection.
// It owns the viewer lifecycle: on exit it removes the viewer from the map
// (so forward never sends to a stale channel) and closes the connection.
func (s *Server) writePump(c *viewer) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		s.removeClient(c)
		c.conn.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				telemetry.Warnf("fanout: write error for %s: %v", c.matchup, err)
				return
			}
		case <-c.done:
			return
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump keeps the connection alive by reading pongs / close frames and
// applies label updates sent by the viewer.
// On exit it signals writePump via c.done (never closes c.send).
func (s *Server) readPump(c *viewer) {
	defer close(c.done)

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var lm LabelsMessage
		if err := json.Unmarshal(msg, &lm); err != nil || lm.Type != "labels" {
			continue
		}
		rows, errR := digits.ParseLabels(lm.Rows)
		cols, errC := digits.ParseLabels(lm.Cols)
		if errR != nil || errC != nil {
			telemetry.Debugf("fanout: ignoring invalid labels from viewer of %s", c.matchup)
			continue
		}
		c.mu.Lock()
		c.rows, c.cols = rows, cols
		c.mu.Unlock()
	}
}

func (s *Server) removeClient(c *viewer) {
	s.mu.Lock()
	_, ok := s.clients[c]
	delete(s.clients, c)
	s.mu.Unlock()
	if !ok {
		return
	}
	c.release()
	telemetry.Metrics.FanoutClients.Dec()
	telemetry.Infof("fanout: viewer of %s disconnected", c.matchup)
}

// Viewers is the number of connected viewers.
func (s *Server) Viewers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}
