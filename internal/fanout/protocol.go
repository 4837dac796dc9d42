package fanout

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/charleschow/squares-odds/internal/core/digits"
	"github.com/charleschow/squares-odds/internal/core/odds"
	"github.com/charleschow/squares-odds/internal/events"
)

// Envelope is the wire format for events sent over the fanout WebSocket.
type Envelope struct {
	Type      string          `json:"type"`
	ID        string          `json:"id,omitempty"`
	Matchup   string          `json:"matchup,omitempty"`
	Timestamp time.Time       `json:"ts"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// LabelsMessage is sent by a viewer when its board's labels are reshuffled.
type LabelsMessage struct {
	Type string `json:"type"` // "labels"
	Rows string `json:"rows"`
	Cols string `json:"cols"`
}

// MarshalEvent serializes an Event into a JSON-encoded Envelope, rendering
// odds payloads onto the viewer's labels. Realtime payloads are aged at the
// event timestamp.
func MarshalEvent(evt events.Event, rows, cols digits.Labels) ([]byte, error) {
	payload := evt.Payload
	switch p := payload.(type) {
	case odds.Result:
		payload = p.WithLabels(rows, cols)
	case odds.RealtimeResult:
		p.Result = p.Result.WithLabels(rows, cols)
		if !evt.Timestamp.IsZero() {
			p = p.AgedAt(evt.Timestamp)
		}
		payload = p
	}

	env := Envelope{
		Type:      string(evt.Type),
		ID:        evt.ID,
		Matchup:   evt.Matchup,
		Timestamp: evt.Timestamp,
	}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal payload: %w", err)
		}
		env.Payload = raw
	}
	return json.Marshal(env)
}

// UnmarshalEvent deserializes a JSON Envelope back into a typed Event.
func UnmarshalEvent(data []byte) (events.Event, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return events.Event{}, fmt.Errorf("unmarshal envelope: %w", err)
	}

	evt := events.Event{
		ID:        env.ID,
		Type:      events.EventType(env.Type),
		Matchup:   env.Matchup,
		Timestamp: env.Timestamp,
	}

	switch evt.Type {
	case events.EventRealtimeOdds:
		var r odds.RealtimeResult
		if err := json.Unmarshal(env.Payload, &r); err != nil {
			return evt, fmt.Errorf("unmarshal realtime_odds: %w", err)
		}
		evt.Payload = r
	case events.EventPregameOdds:
		var r odds.Result
		if err := json.Unmarshal(env.Payload, &r); err != nil {
			return evt, fmt.Errorf("unmarshal pregame_odds: %w", err)
		}
		evt.Payload = r
	case events.EventSessionClosed:
	default:
		return evt, fmt.Errorf("unknown event type: %s", env.Type)
	}

	return evt, nil
}
