// Package nflverse loads the season results and closing moneyline flat files.
package nflverse

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charleschow/squares-odds/internal/adapters/outbound/httpx"
	"github.com/charleschow/squares-odds/internal/core/history"
	"github.com/charleschow/squares-odds/internal/core/odds"
	"github.com/charleschow/squares-odds/internal/telemetry"
)

// Client implements history.Source over two CSV URLs.
type Client struct {
	http         *httpx.Client
	gamesURL     string
	moneylineURL string
}

func NewClient(http *httpx.Client, gamesURL, moneylineURL string) *Client {
	return &Client{http: http, gamesURL: gamesURL, moneylineURL: moneylineURL}
}

func (c *Client) Games(ctx context.Context) ([]history.GameRecord, error) {
	body, err := c.http.Get(ctx, c.gamesURL)
	if err != nil {
		return nil, fmt.Errorf("games dataset: %w", err)
	}
	games, err := ParseGames(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	telemetry.Infof("nflverse: loaded %d game records", len(games))
	return games, nil
}

func (c *Client) Moneylines(ctx context.Context) ([]history.MoneylineRecord, error) {
	body, err := c.http.Get(ctx, c.moneylineURL)
	if err != nil {
		return nil, fmt.Errorf("moneyline dataset: %w", err)
	}
	lines, err := ParseMoneylines(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	telemetry.Infof("nflverse: loaded %d moneyline records", len(lines))
	return lines, nil
}

// table is a header-indexed CSV reader tolerant of ragged rows.
type table struct {
	r   *csv.Reader
	col map[string]int
}

func newTable(r io.Reader) (*table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return &table{r: cr, col: col}, nil
}

func (t *table) has(names ...string) bool {
	for _, n := range names {
		if _, ok := t.col[n]; !ok {
			return false
		}
	}
	return true
}

// field returns the first present column among names.
func (t *table) field(row []string, names ...string) string {
	for _, n := range names {
		if i, ok := t.col[n]; ok && i < len(row) {
			v := strings.TrimSpace(row[i])
			if v != "" && !strings.EqualFold(v, "NA") {
				return v
			}
		}
	}
	return ""
}

func optInt(s string) *int {
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil {
			return nil
		}
		n = int(f)
	}
	return &n
}

func optFloat(s string) *float64 {
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &f
}

// ParseGames reads the season results file. Rows with an unreadable season or
// missing team codes are skipped.
func ParseGames(r io.Reader) ([]history.GameRecord, error) {
	t, err := newTable(r)
	if err != nil {
		return nil, fmt.Errorf("games dataset: %w", err)
	}
	if !t.has("season", "home_team", "away_team", "home_score", "away_score") {
		return nil, errors.New("games dataset: missing required columns")
	}

	var out []history.GameRecord
	for {
		row, err := t.r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("games dataset: %w", err)
		}

		season, err := strconv.Atoi(t.field(row, "season"))
		if err != nil {
			continue
		}
		home, away := t.field(row, "home_team"), t.field(row, "away_team")
		if home == "" || away == "" {
			continue
		}
		week, _ := strconv.Atoi(t.field(row, "week"))

		out = append(out, history.GameRecord{
			GameID:     t.field(row, "game_id"),
			Season:     season,
			GameType:   t.field(row, "game_type"),
			Week:       week,
			Date:       t.field(row, "gameday", "date"),
			HomeTeam:   home,
			AwayTeam:   away,
			HomeScore:  optInt(t.field(row, "home_score")),
			AwayScore:  optInt(t.field(row, "away_score")),
			TotalLine:  optFloat(t.field(row, "total_line")),
			SpreadLine: optFloat(t.field(row, "spread_line")),
		})
	}
	return out, nil
}

// ParseMoneylines reads the closing line file, keeping moneyline rows only.
func ParseMoneylines(r io.Reader) ([]history.MoneylineRecord, error) {
	t, err := newTable(r)
	if err != nil {
		return nil, fmt.Errorf("moneyline dataset: %w", err)
	}
	if !t.has("game_id") {
		return nil, errors.New("moneyline dataset: missing game_id column")
	}

	var out []history.MoneylineRecord
	for {
		row, err := t.r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("moneyline dataset: %w", err)
		}

		betType := t.field(row, "bet_type", "type", "market")
		if betType != "" && !strings.EqualFold(betType, "moneyline") {
			continue
		}
		american, err := odds.ParseAmerican(t.field(row, "odds", "american_odds", "line", "price"))
		if err != nil {
			continue
		}

		id := t.field(row, "game_id")
		season, _ := strconv.Atoi(t.field(row, "season"))
		if season == 0 {
			prefix, _, _ := strings.Cut(id, "_")
			season, _ = strconv.Atoi(prefix)
		}

		out = append(out, history.MoneylineRecord{
			GameID:  id,
			Season:  season,
			Side:    strings.ToLower(t.field(row, "side")),
			Team:    t.field(row, "team", "team_abbr"),
			BetType: "moneyline",
			Odds:    american,
		})
	}
	return out, nil
}
