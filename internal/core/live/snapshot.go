// Package live captures the state of an in-progress game as an immutable
// snapshot and keeps a poll loop per matchup running while anyone watches.
package live

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/charleschow/squares-odds/internal/core/sentiment"
)

type Status string

const (
	StatusPregame    Status = "pregame"
	StatusInProgress Status = "in_progress"
	StatusHalftime   Status = "halftime"
	StatusFinal      Status = "final"
	StatusPostponed  Status = "postponed"
	StatusUnknown    Status = "unknown"
)

// Finished reports whether the score can no longer change.
func (s Status) Finished() bool {
	return s == StatusFinal || s == StatusPostponed
}

const (
	PeriodSeconds     = 900
	RegulationPeriods = 4
	GameSeconds       = RegulationPeriods * PeriodSeconds
)

// Clock is the game clock at capture. Nil seconds mean the provider clock
// could not be parsed; treat them as unknown, never as zero.
type Clock struct {
	Period                 int    `json:"period"`
	Display                string `json:"display"`
	PeriodSecondsRemaining *int   `json:"period_seconds_remaining"`
	GameSecondsRemaining   *int   `json:"game_seconds_remaining"`
}

// Play is one normalized play-by-play entry. An empty TeamCode means the
// play could not be attributed to either side.
type Play struct {
	ID        string  `json:"id"`
	Text      string  `json:"text"`
	TeamCode  string  `json:"team_code,omitempty"`
	Period    int     `json:"period"`
	Clock     string  `json:"clock"`
	Scoring   bool    `json:"scoring"`
	Penalty   bool    `json:"penalty"`
	Turnover  bool    `json:"turnover"`
	Explosive bool    `json:"explosive"`
	Yards     *int    `json:"yards,omitempty"`
	Sentiment float64 `json:"sentiment"`
}

// Snapshot is one capture of a live game. Plays are oldest first.
type Snapshot struct {
	EventID   string              `json:"event_id"`
	FetchedAt time.Time           `json:"fetched_at"`
	Status    Status              `json:"status"`
	Detail    string              `json:"detail"`
	HomeCode  string              `json:"home_code"`
	AwayCode  string              `json:"away_code"`
	HomeName  string              `json:"home_name"`
	AwayName  string              `json:"away_name"`
	HomeScore int                 `json:"home_score"`
	AwayScore int                 `json:"away_score"`
	Clock     Clock               `json:"clock"`
	Plays     []Play              `json:"plays"`
	Sentiment sentiment.Aggregate `json:"sentiment"`
}

// LastPlayID is empty when the snapshot carries no plays.
func (s *Snapshot) LastPlayID() string {
	if len(s.Plays) == 0 {
		return ""
	}
	return s.Plays[len(s.Plays)-1].ID
}

// MapStatus folds the provider's coarse state and free-text detail into a
// Status. A halftime detail inside an "in" state wins.
func MapStatus(state, detail string) Status {
	d := strings.ToLower(detail)
	if strings.Contains(d, "postpone") || strings.Contains(d, "cancel") || strings.Contains(d, "suspend") {
		return StatusPostponed
	}
	switch strings.ToLower(strings.TrimSpace(state)) {
	case "pre":
		return StatusPregame
	case "in":
		if strings.Contains(d, "halftime") {
			return StatusHalftime
		}
		return StatusInProgress
	case "post":
		return StatusFinal
	}
	return StatusUnknown
}

var clockRe = regexp.MustCompile(`^\s*(\d{1,2}):(\d{2})\s*$`)

// ParseClock converts "m:ss" or "mm:ss" into seconds left in the period,
// clamped to [0, 900]. It returns nil when the text is not a clock.
func ParseClock(display string) *int {
	m := clockRe.FindStringSubmatch(display)
	if m == nil {
		return nil
	}
	mins, _ := strconv.Atoi(m[1])
	secs, _ := strconv.Atoi(m[2])
	if secs >= 60 {
		return nil
	}
	total := min(max(mins*60+secs, 0), PeriodSeconds)
	return &total
}

// RemainingGameSeconds derives the seconds left in the game. It returns nil
// when the period clock is unknown for a game in progress.
func RemainingGameSeconds(status Status, period int, periodSeconds *int) *int {
	v := func(n int) *int { return &n }
	switch status {
	case StatusFinal, StatusPostponed:
		return v(0)
	case StatusPregame:
		return v(GameSeconds)
	case StatusHalftime:
		return v(GameSeconds / 2)
	}
	if periodSeconds == nil || period < 1 {
		return nil
	}
	if period <= RegulationPeriods {
		return v((RegulationPeriods-period)*PeriodSeconds + *periodSeconds)
	}
	return v(*periodSeconds)
}

// PollInterval is how long to wait before the next poll given the last
// snapshot. A nil snapshot (no event found) polls at the idle cadence.
func PollInterval(s *Snapshot) time.Duration {
	if s == nil {
		return 60 * time.Second
	}
	switch s.Status {
	case StatusInProgress:
		rem := s.Clock.GameSecondsRemaining
		switch {
		case rem != nil && *rem <= 8*60:
			return 5 * time.Second
		case rem != nil && *rem <= 20*60:
			return 8 * time.Second
		default:
			return 12 * time.Second
		}
	case StatusHalftime:
		return 20 * time.Second
	case StatusPregame:
		return 45 * time.Second
	default:
		return 60 * time.Second
	}
}
