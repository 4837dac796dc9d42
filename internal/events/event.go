package events

import "time"

// Event is the envelope that flows through the event bus.
type Event struct {
	ID        string
	Type      EventType
	Matchup   string // teams.MatchupKey, e.g. "SEA-NE"
	Timestamp time.Time
	Payload   any
}

type EventType string

const (
	// A poll loop captured a fresh live snapshot. Payload: live.SnapshotEvent.
	EventSnapshot EventType = "snapshot"
	// A pre-game result was computed or served from cache. Payload: odds.Result.
	EventPregameOdds EventType = "pregame_odds"
	// A realtime result was derived from a snapshot. Payload: odds.RealtimeResult.
	EventRealtimeOdds EventType = "realtime_odds"
	// A session's poll loop stopped. Payload: nil.
	EventSessionClosed EventType = "session_closed"
)
