package sportsdb

import (
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charleschow/squares-odds/internal/adapters/outbound/httpx"
	"github.com/charleschow/squares-odds/internal/core/teams"
)

const searchJSON = `{"teams":[
 {"idTeam":"900","strTeam":"Seattle Seahawks Academy","strLeague":"NCAA"},
 {"idTeam":"134949","strTeam":"Seattle Seahawks","strTeamShort":"SEA","strLeague":"NFL"}]}`

const eventsJSON = `{"results":[
 {"idEvent":"1","dateEvent":"2025-10-05","idHomeTeam":"134949","idAwayTeam":"2","intHomeScore":"24","intAwayScore":"17"},
 {"idEvent":"2","dateEvent":"2025-09-28","idHomeTeam":"3","idAwayTeam":"134949","intHomeScore":"20","intAwayScore":"13"},
 {"idEvent":"3","dateEvent":"2025-09-21","idHomeTeam":"134949","idAwayTeam":"4","intHomeScore":null,"intAwayScore":null}]}`

func seahawks(t *testing.T) teams.Team {
	t.Helper()
	team, err := teams.NFL().Resolve("SEA")
	if err != nil {
		t.Fatal(err)
	}
	return team
}

func TestRecentForm(t *testing.T) {
	var searches atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/searchteams.php":
			searches.Add(1)
			w.Write([]byte(searchJSON))
		case "/eventslast.php":
			if r.URL.Query().Get("id") != "134949" {
				http.Error(w, "wrong id", http.StatusBadRequest)
				return
			}
			w.Write([]byte(eventsJSON))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewClient(httpx.New("sportsdb", 2*time.Second, 100), srv.URL)
	form, err := c.RecentForm(context.Background(), seahawks(t))
	if err != nil {
		t.Fatal(err)
	}
	if form.Games != 2 {
		t.Fatalf("games = %d, want 2", form.Games)
	}
	w1 := math.Exp(-1.0 / formDecay)
	wantFor := (24 + w1*13) / (1 + w1)
	if math.Abs(form.AvgFor-wantFor) > 1e-9 {
		t.Errorf("avg for = %v, want %v", form.AvgFor, wantFor)
	}
	if form.Offense[4] <= form.Offense[5] {
		t.Errorf("offense digit 4 should outweigh digit 5: %v", form.Offense)
	}

	if _, err := c.RecentForm(context.Background(), seahawks(t)); err != nil {
		t.Fatal(err)
	}
	if searches.Load() != 1 {
		t.Errorf("searches = %d, want memoized single search", searches.Load())
	}
}

func TestMatchTeamFallsBackToNickname(t *testing.T) {
	recs := []teamRecord{{ID: "7", Name: "Seahawks", League: "American NFL"}}
	got, ok := matchTeam(recs, seahawks(t))
	if !ok || got.ID != "7" {
		t.Errorf("matchTeam = %+v, %v", got, ok)
	}
	if _, ok := matchTeam([]teamRecord{{ID: "8", Name: "Seattle Sounders", League: "MLS"}}, seahawks(t)); ok {
		t.Error("unrelated team matched")
	}
}

func TestSummarizeNoCompletedGames(t *testing.T) {
	if _, ok := summarize("1", []eventRecord{{HomeTeamID: "1", HomeScore: "", AwayScore: ""}}); ok {
		t.Error("expected no form from unplayed games")
	}
}
