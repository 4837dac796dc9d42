package live

import (
	"context"
	"strings"
	"time"

	"github.com/charleschow/squares-odds/internal/adapters/outbound/espn"
	"github.com/charleschow/squares-odds/internal/core/sentiment"
	"github.com/charleschow/squares-odds/internal/core/teams"
	"github.com/charleschow/squares-odds/internal/telemetry"
)

// Fetcher locates a matchup's event on the live feed and normalizes it into
// a Snapshot.
type Fetcher struct {
	provider Provider
	reg      *teams.Registry
	now      func() time.Time
}

func NewFetcher(provider Provider, reg *teams.Registry) *Fetcher {
	return &Fetcher{provider: provider, reg: reg, now: time.Now}
}

// Request identifies the game to fetch. Date (YYYY-MM-DD or YYYYMMDD) and
// EventID are optional; EventID bypasses team matching.
type Request struct {
	Home    string
	Away    string
	Date    string
	EventID string
}

// Fetch returns the current snapshot, or nil with no error when no matching
// event is on the feed. Unsupported teams and transport failures are errors.
func (f *Fetcher) Fetch(ctx context.Context, req Request) (*Snapshot, error) {
	home, err := f.reg.Resolve(req.Home)
	if err != nil {
		return nil, err
	}
	away, err := f.reg.Resolve(req.Away)
	if err != nil {
		return nil, err
	}
	m := sentiment.Matchup{Home: home, Away: away}

	ev, err := f.locate(ctx, req, m)
	if err != nil {
		return nil, err
	}
	eventID := strings.TrimSpace(req.EventID)
	if ev == nil && eventID == "" {
		return nil, nil
	}
	if ev != nil {
		eventID = ev.ID
	}

	sum, err := f.provider.Summary(ctx, eventID)
	if err != nil {
		if ev == nil {
			return nil, err
		}
		telemetry.Warnf("live: summary for %s failed, using scoreboard only: %v", eventID, err)
		sum = nil
	}
	if ev == nil && (sum == nil || sum.Header == nil || len(sum.Header.Competitions) == 0) {
		return nil, nil
	}
	return f.build(eventID, ev, sum, m), nil
}

// locate scans the dated scoreboard, then the undated one.
func (f *Fetcher) locate(ctx context.Context, req Request, m sentiment.Matchup) (*espn.Event, error) {
	dates := []string{""}
	if d := compactDate(req.Date); d != "" {
		dates = []string{d, ""}
	}
	for _, d := range dates {
		sb, err := f.provider.Scoreboard(ctx, d)
		if err != nil {
			return nil, err
		}
		if ev := findEvent(sb, req.EventID, m); ev != nil {
			return ev, nil
		}
	}
	return nil, nil
}

func compactDate(d string) string {
	return strings.ReplaceAll(strings.TrimSpace(d), "-", "")
}

func findEvent(sb *espn.Scoreboard, eventID string, m sentiment.Matchup) *espn.Event {
	if sb == nil {
		return nil
	}
	eventID = strings.TrimSpace(eventID)
	for i := range sb.Events {
		ev := &sb.Events[i]
		if eventID != "" {
			if ev.ID == eventID {
				return ev
			}
			continue
		}
		if len(ev.Competitions) == 0 {
			continue
		}
		h, a := sides(ev.Competitions[0].Competitors)
		if h != nil && a != nil && isTeam(h.Team, m.Home) && isTeam(a.Team, m.Away) {
			return ev
		}
	}
	return nil
}

func sides(cs []espn.Competitor) (home, away *espn.Competitor) {
	for i := range cs {
		switch strings.ToLower(cs[i].HomeAway) {
		case "home":
			home = &cs[i]
		case "away":
			away = &cs[i]
		}
	}
	return home, away
}

func isTeam(ref espn.TeamRef, t teams.Team) bool {
	if ref.ID != "" && ref.ID == t.ESPNID {
		return true
	}
	for _, c := range t.Codes() {
		if strings.EqualFold(c, ref.Abbreviation) {
			return true
		}
	}
	return false
}

// build prefers summary-derived status, clock and scores, falling back to
// the scoreboard event.
func (f *Fetcher) build(eventID string, ev *espn.Event, sum *espn.Summary, m sentiment.Matchup) *Snapshot {
	var comp *espn.Competition
	var status *espn.Status
	if ev != nil {
		status = ev.Status
		if len(ev.Competitions) > 0 {
			comp = &ev.Competitions[0]
			if comp.Status != nil {
				status = comp.Status
			}
		}
	}
	if sum != nil && sum.Header != nil && len(sum.Header.Competitions) > 0 {
		sc := &sum.Header.Competitions[0]
		if len(sc.Competitors) > 0 {
			comp = sc
		}
		if sc.Status != nil {
			status = sc.Status
		}
	}

	snap := &Snapshot{
		EventID:   eventID,
		FetchedAt: f.now().UTC(),
		Status:    StatusUnknown,
		HomeCode:  m.Home.Code,
		AwayCode:  m.Away.Code,
		HomeName:  m.Home.FullName(),
		AwayName:  m.Away.FullName(),
	}
	if comp != nil {
		h, a := sides(comp.Competitors)
		if h != nil {
			snap.HomeScore = h.Score.Int()
		}
		if a != nil {
			snap.AwayScore = a.Score.Int()
		}
	}
	if status != nil {
		snap.Detail = status.Type.Detail
		if snap.Detail == "" {
			snap.Detail = status.Type.Description
		}
		snap.Status = MapStatus(status.Type.State, snap.Detail)
		snap.Clock.Period = status.Period
		snap.Clock.Display = status.DisplayClock
		snap.Clock.PeriodSecondsRemaining = ParseClock(status.DisplayClock)
	}
	snap.Clock.GameSecondsRemaining = RemainingGameSeconds(snap.Status, snap.Clock.Period, snap.Clock.PeriodSecondsRemaining)

	var sit *espn.Situation
	if comp != nil {
		sit = comp.Situation
	}
	raw := gatherPlays(sum, sit)
	snap.Plays = make([]Play, len(raw))
	for i, p := range raw {
		snap.Plays[i] = normalizePlay(p, m)
	}
	snap.Sentiment = sentiment.Analyze(sentimentEntries(snap.Plays), m)
	return snap
}
