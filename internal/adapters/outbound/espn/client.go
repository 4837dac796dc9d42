// Package espn reads the public scoreboard, game summary and team statistics
// endpoints for NFL games.
package espn

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/charleschow/squares-odds/internal/adapters/outbound/httpx"
	"github.com/charleschow/squares-odds/internal/core/history"
)

type Client struct {
	http    *httpx.Client
	baseURL string
}

func NewClient(http *httpx.Client, baseURL string) *Client {
	return &Client{http: http, baseURL: strings.TrimRight(baseURL, "/")}
}

// Scoreboard lists events. date is YYYYMMDD; empty means the provider's
// current slate.
func (c *Client) Scoreboard(ctx context.Context, date string) (*Scoreboard, error) {
	u := c.baseURL + "/scoreboard"
	if date != "" {
		u += "?dates=" + url.QueryEscape(date)
	}
	var sb Scoreboard
	if err := c.http.GetJSON(ctx, u, &sb); err != nil {
		return nil, fmt.Errorf("espn scoreboard: %w", err)
	}
	return &sb, nil
}

// Summary returns the play-by-play summary for one event.
func (c *Client) Summary(ctx context.Context, eventID string) (*Summary, error) {
	u := c.baseURL + "/summary?event=" + url.QueryEscape(eventID)
	var s Summary
	if err := c.http.GetJSON(ctx, u, &s); err != nil {
		return nil, fmt.Errorf("espn summary %s: %w", eventID, err)
	}
	return &s, nil
}

var (
	pointsPerGameNames = []string{"totalPointsPerGame", "pointsPerGame", "totalPoints"}
	thirdDownNames     = []string{"thirdDownConvPct", "thirdDownConversionPct"}
	redZoneNames       = []string{"redzoneScoringPct", "redZoneScoringPct", "redzoneEfficiencyPct", "redZoneEfficiencyPct"}
	turnoverDiffNames  = []string{"turnOverDifferential", "turnoverDifferential", "turnoverDiff"}
)

// TeamStatistics returns season efficiency numbers for an ESPN team id.
func (c *Client) TeamStatistics(ctx context.Context, teamID string) (history.TeamStats, error) {
	u := c.baseURL + "/teams/" + url.PathEscape(teamID) + "/statistics"
	var resp statisticsResponse
	if err := c.http.GetJSON(ctx, u, &resp); err != nil {
		return history.TeamStats{}, fmt.Errorf("espn team statistics %s: %w", teamID, err)
	}

	cats := resp.Results.Stats.Categories
	if len(cats) == 0 && resp.Statistics != nil {
		cats = resp.Statistics.Splits.Categories
	}
	if len(cats) == 0 {
		return history.TeamStats{}, fmt.Errorf("espn team statistics %s: no categories in response", teamID)
	}

	stats := history.TeamStats{
		PointsPerGame:        lookupStat(cats, pointsPerGameNames),
		ThirdDownPct:         lookupStat(cats, thirdDownNames),
		RedZonePct:           lookupStat(cats, redZoneNames),
		TurnoverDifferential: lookupStat(cats, turnoverDiffNames),
	}
	if stats.PointsPerGame == 0 && stats.ThirdDownPct == 0 && stats.RedZonePct == 0 {
		return history.TeamStats{}, fmt.Errorf("espn team statistics %s: no usable stats", teamID)
	}
	return stats, nil
}

// lookupStat finds the first named stat in any category, preferring the
// per-game normalized value over the raw one.
func lookupStat(cats []statCategory, names []string) float64 {
	for _, name := range names {
		for _, cat := range cats {
			for _, s := range cat.Stats {
				if !strings.EqualFold(s.Name, name) {
					continue
				}
				if s.PerGameValue != nil {
					return *s.PerGameValue
				}
				if s.Value != nil {
					return *s.Value
				}
			}
		}
	}
	return 0
}
