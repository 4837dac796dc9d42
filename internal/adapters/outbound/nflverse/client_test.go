package nflverse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charleschow/squares-odds/internal/adapters/outbound/httpx"
)

const gamesCSV = `game_id,season,game_type,week,gameday,away_team,away_score,home_team,home_score,total_line,spread_line
2023_01_DET_KC,2023,REG,1,2023-09-07,DET,21,KC,20,53.0,6.5
"2023_02_NE_MIA",2023,REG,2,2023-09-17,"NE",17,"MIA",24,46.5,NA
2025_05_SEA_SF,2025,REG,5,2025-10-05,SEA,NA,SF,NA,,
bad,season,REG,1,,A,1,B,2,,
`

const moneylineCSV = `game_id,side,bet_type,odds
2023_01_DET_KC,home,moneyline,-180
2023_01_DET_KC,away,moneyline,+155
2023_01_DET_KC,home,spread,-110
2023_02_NE_MIA,home,moneyline,"-145"
2023_02_NE_MIA,away,moneyline,n/a
`

func TestParseGames(t *testing.T) {
	games, err := ParseGames(strings.NewReader(gamesCSV))
	if err != nil {
		t.Fatal(err)
	}
	if len(games) != 3 {
		t.Fatalf("got %d games, want 3", len(games))
	}

	g := games[0]
	if g.HomeTeam != "KC" || *g.HomeScore != 20 || *g.AwayScore != 21 || g.Week != 1 || g.Date != "2023-09-07" {
		t.Errorf("first game = %+v", g)
	}
	if *g.SpreadLine != 6.5 || *g.TotalLine != 53 {
		t.Errorf("lines = %v %v", *g.SpreadLine, *g.TotalLine)
	}
	if games[1].HomeTeam != "MIA" || games[1].SpreadLine != nil {
		t.Errorf("quoted row = %+v", games[1])
	}
	if games[2].Completed() {
		t.Error("NA scores should leave the game unplayed")
	}
}

func TestParseGames_MissingColumns(t *testing.T) {
	if _, err := ParseGames(strings.NewReader("season,home_team\n2023,KC\n")); err == nil {
		t.Error("expected missing column error")
	}
}

func TestParseMoneylines(t *testing.T) {
	lines, err := ParseMoneylines(strings.NewReader(moneylineCSV))
	if err != nil {
		t.Fatal(err)
	}
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3", len(lines))
	}
	if lines[0].Season != 2023 || lines[0].Side != "home" || lines[0].Odds.IntPart() != -180 {
		t.Errorf("first line = %+v", lines[0])
	}
	if lines[1].Odds.IntPart() != 155 {
		t.Errorf("+155 parsed as %s", lines[1].Odds)
	}
}

func TestClient_FetchesOverHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/games.csv":
			w.Write([]byte(gamesCSV))
		case "/moneylines.csv":
			w.Write([]byte(moneylineCSV))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	hc := httpx.New("nflverse", 2*time.Second, 100)
	c := NewClient(hc, srv.URL+"/games.csv", srv.URL+"/moneylines.csv")

	games, err := c.Games(context.Background())
	if err != nil || len(games) != 3 {
		t.Fatalf("games: %d %v", len(games), err)
	}
	lines, err := c.Moneylines(context.Background())
	if err != nil || len(lines) != 3 {
		t.Fatalf("lines: %d %v", len(lines), err)
	}

	bad := NewClient(hc, srv.URL+"/missing.csv", srv.URL+"/missing.csv")
	if _, err := bad.Games(context.Background()); err == nil {
		t.Error("expected error for 404")
	}
}
