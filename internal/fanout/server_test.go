package fanout

import (
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/charleschow/squares-odds/internal/core/digits"
	"github.com/charleschow/squares-odds/internal/core/live"
	"github.com/charleschow/squares-odds/internal/core/odds"
	"github.com/charleschow/squares-odds/internal/core/teams"
	"github.com/charleschow/squares-odds/internal/events"
)

type fakeSessions struct {
	acquired atomic.Int32
	released atomic.Int32
}

func (f *fakeSessions) Acquire(_ context.Context, req live.Request) (string, func(), error) {
	if req.Home == "Martians" {
		return "", nil, &teams.UnsupportedTeamError{Input: req.Home}
	}
	f.acquired.Add(1)
	return "SEA-NE", func() { f.released.Add(1) }, nil
}

func skewed() digits.Matrix {
	var m digits.Matrix
	for h := range digits.Size {
		for a := range digits.Size {
			m[h][a] = 1
		}
	}
	m[4][0] = 50
	return m.Normalize()
}

func TestMarshalEventRelabels(t *testing.T) {
	rows, _ := digits.ParseLabels("5,0,1,2,3,4,6,7,8,9")
	snapAt := time.Date(2025, 10, 5, 22, 15, 0, 0, time.UTC)
	res := odds.RealtimeResult{Result: odds.Result{HomeCode: "SEA", Matrix: skewed()}, EventID: "401", SnapshotAt: snapAt}

	evtAt := snapAt.Add(7 * time.Second)
	data, err := MarshalEvent(events.Event{Type: events.EventRealtimeOdds, Matchup: "SEA-NE", Timestamp: evtAt, Payload: res}, rows, digits.IdentityLabels())
	if err != nil {
		t.Fatal(err)
	}
	evt, err := UnmarshalEvent(data)
	if err != nil {
		t.Fatal(err)
	}
	got := evt.Payload.(odds.RealtimeResult)
	if got.EventID != "401" || got.RowLabels != rows {
		t.Errorf("payload = %+v", got)
	}
	if got.SnapshotAgeSeconds != 7 {
		t.Errorf("age = %v, want 7 (event time minus snapshot time)", got.SnapshotAgeSeconds)
	}
	if got.Board[5][0] < got.Board[0][0]*10 {
		t.Errorf("peak not at row of label 4: %v", got.Board[5][0])
	}
	if math.Abs(got.Board.Sum()-100) > 1e-6 {
		t.Errorf("board sums to %v", got.Board.Sum())
	}

	if _, err := UnmarshalEvent([]byte(`{"type":"mystery"}`)); err == nil {
		t.Error("unknown type accepted")
	}
}

func TestServerForwardsToMatchupViewers(t *testing.T) {
	bus := events.NewBus()
	sessions := &fakeSessions{}
	srv := NewServer(bus, sessions, nil)
	hs := httptest.NewServer(http.HandlerFunc(srv.HandleWS))
	defer hs.Close()

	wsURL := "ws" + strings.TrimPrefix(hs.URL, "http") + "/ws?home=SEA&away=NE&rows=5,0,1,2,3,4,6,7,8,9"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for srv.Viewers() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	bus.Publish(events.Event{Type: events.EventRealtimeOdds, Matchup: "KC-DEN", Payload: odds.RealtimeResult{EventID: "other"}})
	bus.Publish(events.Event{Type: events.EventRealtimeOdds, Matchup: "SEA-NE", Payload: odds.RealtimeResult{Result: odds.Result{Matrix: skewed()}, EventID: "401"}})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}
	evt, err := UnmarshalEvent(msg)
	if err != nil {
		t.Fatal(err)
	}
	res := evt.Payload.(odds.RealtimeResult)
	if res.EventID != "401" {
		t.Fatalf("received event for %s", res.EventID)
	}
	if res.RowLabels[0] != 5 || res.Board[5][0] < res.Board[0][0] {
		t.Errorf("board not rendered on viewer labels: rows %v", res.RowLabels)
	}

	conn.Close()
	deadline = time.Now().Add(2 * time.Second)
	for sessions.released.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if sessions.released.Load() != 1 {
		t.Error("session not released on disconnect")
	}
}

func TestServerRejectsBadRequests(t *testing.T) {
	srv := NewServer(events.NewBus(), &fakeSessions{}, nil)
	cases := map[string]string{
		"bad labels":  "/ws?home=SEA&away=NE&rows=1,1,2",
		"unsupported": "/ws?home=Martians&away=NE",
	}
	for name, target := range cases {
		rec := httptest.NewRecorder()
		srv.HandleWS(rec, httptest.NewRequest(http.MethodGet, target, nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status %d", name, rec.Code)
		}
	}
}
