// Package sportsdb reads recent results per team from TheSportsDB and turns
// them into a short-term form summary.
package sportsdb

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charleschow/squares-odds/internal/adapters/outbound/httpx"
	"github.com/charleschow/squares-odds/internal/core/digits"
	"github.com/charleschow/squares-odds/internal/core/history"
	"github.com/charleschow/squares-odds/internal/core/teams"
	"github.com/charleschow/squares-odds/internal/memo"
)

const (
	league   = "NFL"
	idTTL    = 24 * time.Hour
	formTTL  = time.Hour
	maxGames = 10
	// Recency decay over the returned games, most recent first.
	formDecay = 4.0
)

type searchResponse struct {
	Teams []teamRecord `json:"teams"`
}

type teamRecord struct {
	ID        string `json:"idTeam"`
	Name      string `json:"strTeam"`
	Short     string `json:"strTeamShort"`
	Alternate string `json:"strAlternate"`
	League    string `json:"strLeague"`
}

type eventsResponse struct {
	Results []eventRecord `json:"results"`
}

type eventRecord struct {
	ID         string `json:"idEvent"`
	Date       string `json:"dateEvent"`
	HomeTeamID string `json:"idHomeTeam"`
	AwayTeamID string `json:"idAwayTeam"`
	HomeTeam   string `json:"strHomeTeam"`
	AwayTeam   string `json:"strAwayTeam"`
	HomeScore  string `json:"intHomeScore"`
	AwayScore  string `json:"intAwayScore"`
}

type Client struct {
	http    *httpx.Client
	baseURL string
	ids     *memo.Cache[string]
	forms   *memo.Cache[history.RecentForm]
}

func NewClient(http *httpx.Client, baseURL string) *Client {
	return &Client{
		http:    http,
		baseURL: strings.TrimRight(baseURL, "/"),
		ids:     memo.New[string](idTTL),
		forms:   memo.New[history.RecentForm](formTTL),
	}
}

// RecentForm returns the team's form over its last completed games.
func (c *Client) RecentForm(ctx context.Context, team teams.Team) (history.RecentForm, error) {
	return c.forms.Do(ctx, team.Code, func(ctx context.Context) (history.RecentForm, error) {
		id, err := c.TeamID(ctx, team)
		if err != nil {
			return history.RecentForm{}, err
		}
		return c.formByID(ctx, id)
	})
}

// TeamID searches by full team name and picks the NFL entry.
func (c *Client) TeamID(ctx context.Context, team teams.Team) (string, error) {
	return c.ids.Do(ctx, team.Code, func(ctx context.Context) (string, error) {
		u := c.baseURL + "/searchteams.php?t=" + url.QueryEscape(team.FullName())
		var resp searchResponse
		if err := c.http.GetJSON(ctx, u, &resp); err != nil {
			return "", fmt.Errorf("sportsdb search %s: %w", team.Code, err)
		}
		rec, ok := matchTeam(resp.Teams, team)
		if !ok {
			return "", fmt.Errorf("sportsdb search %s: no matching team", team.Code)
		}
		return rec.ID, nil
	})
}

// matchTeam prefers league-filtered exact name matches, then falls back to
// a nickname token match across every result.
func matchTeam(recs []teamRecord, team teams.Team) (teamRecord, bool) {
	full := teams.Normalize(team.FullName())
	var nfl []teamRecord
	for _, r := range recs {
		if strings.EqualFold(strings.TrimSpace(r.League), league) {
			nfl = append(nfl, r)
		}
	}
	for _, r := range nfl {
		if teams.Normalize(r.Name) == full || strings.EqualFold(r.Short, team.Code) {
			return r, true
		}
	}
	nick := teams.Normalize(team.Name)
	for _, pool := range [][]teamRecord{nfl, recs} {
		for _, r := range pool {
			if teams.ContainsToken(teams.Normalize(r.Name), nick) ||
				teams.ContainsToken(teams.Normalize(r.Alternate), nick) {
				return r, true
			}
		}
	}
	return teamRecord{}, false
}

func (c *Client) formByID(ctx context.Context, id string) (history.RecentForm, error) {
	u := c.baseURL + "/eventslast.php?id=" + url.QueryEscape(id)
	var resp eventsResponse
	if err := c.http.GetJSON(ctx, u, &resp); err != nil {
		return history.RecentForm{}, fmt.Errorf("sportsdb events %s: %w", id, err)
	}
	form, ok := summarize(id, resp.Results)
	if !ok {
		return history.RecentForm{}, fmt.Errorf("sportsdb events %s: no completed games", id)
	}
	return form, nil
}

// summarize folds completed events (most recent first) into a form summary
// from the perspective of teamID.
func summarize(teamID string, events []eventRecord) (history.RecentForm, bool) {
	off := digits.NewSmoothedHistogram(1)
	def := digits.NewSmoothedHistogram(1)
	var forSum, againstSum, wsum float64
	n := 0
	for _, ev := range events {
		if n == maxGames {
			break
		}
		hs, errH := strconv.Atoi(strings.TrimSpace(ev.HomeScore))
		as, errA := strconv.Atoi(strings.TrimSpace(ev.AwayScore))
		if errH != nil || errA != nil {
			continue
		}
		var pf, pa int
		switch teamID {
		case ev.HomeTeamID:
			pf, pa = hs, as
		case ev.AwayTeamID:
			pf, pa = as, hs
		default:
			continue
		}
		w := math.Exp(-float64(n) / formDecay)
		off.Add(pf, w)
		def.Add(pa, w)
		forSum += w * float64(pf)
		againstSum += w * float64(pa)
		wsum += w
		n++
	}
	if n == 0 {
		return history.RecentForm{}, false
	}
	return history.RecentForm{
		Games:      n,
		AvgFor:     forSum / wsum,
		AvgAgainst: againstSum / wsum,
		Offense:    off.Vector(),
		Defense:    def.Vector(),
	}, true
}
