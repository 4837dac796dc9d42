package live

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/charleschow/squares-odds/internal/adapters/outbound/espn"
	"github.com/charleschow/squares-odds/internal/core/sentiment"
	"github.com/charleschow/squares-odds/internal/core/teams"
)

const (
	MaxPlays       = 160
	explosiveYards = 20
)

var (
	scoringRe  = regexp.MustCompile(`(?i)\btouchdown\b|\bfield goal is good\b|\bsafety\b|\btwo-point conversion\b.*\bsucceeds\b`)
	penaltyRe  = regexp.MustCompile(`(?i)\bpenalty\b|\bpenalized\b|\bpenalties\b`)
	turnoverRe = regexp.MustCompile(`(?i)\bintercept(ed|ion)\b|\bfumbles?\b|\bturnover on downs\b|\bmuffed\b`)
	noGoodRe   = regexp.MustCompile(`(?i)\bno good\b|\bnullified\b`)
	gainRe     = regexp.MustCompile(`(?i)\bfor (-?\d+) yards?\b`)
	lossRe     = regexp.MustCompile(`(?i)\bfor (?:a )?loss of (\d+) yards?\b`)
)

// gatherPlays collects plays from drives, the flat play lists and the last
// play pointer, deduplicated and ordered by period. At most MaxPlays of the
// most recent are kept.
func gatherPlays(sum *espn.Summary, sit *espn.Situation) []espn.Play {
	var raw []espn.Play
	if sum != nil {
		if sum.Drives != nil {
			for _, d := range sum.Drives.Previous {
				raw = append(raw, d.Plays...)
			}
			if sum.Drives.Current != nil {
				raw = append(raw, sum.Drives.Current.Plays...)
			}
		}
		raw = append(raw, sum.Plays...)
		raw = append(raw, sum.ScoringPlays...)
		if sum.Situation != nil && sum.Situation.LastPlay != nil {
			raw = append(raw, *sum.Situation.LastPlay)
		}
	}
	if sit != nil && sit.LastPlay != nil {
		raw = append(raw, *sit.LastPlay)
	}

	seen := make(map[string]struct{}, len(raw))
	out := make([]espn.Play, 0, len(raw))
	for _, p := range raw {
		if strings.TrimSpace(p.Text) == "" && p.ID == "" {
			continue
		}
		key := playKey(p)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return playPeriod(out[i]) < playPeriod(out[j])
	})
	if len(out) > MaxPlays {
		out = out[len(out)-MaxPlays:]
	}
	return out
}

func playKey(p espn.Play) string {
	if id := strings.TrimSpace(p.ID.String()); id != "" {
		return id
	}
	return fmt.Sprintf("%d-%s-%s", playPeriod(p), playClock(p), strings.TrimSpace(p.Text))
}

func playPeriod(p espn.Play) int {
	if p.Period == nil {
		return 0
	}
	return p.Period.Number
}

func playClock(p espn.Play) string {
	if p.Clock == nil {
		return ""
	}
	return p.Clock.DisplayValue
}

// normalizePlay flags and attributes one provider play.
func normalizePlay(p espn.Play, m sentiment.Matchup) Play {
	text := strings.TrimSpace(p.Text)
	typ := ""
	if p.Type != nil {
		typ = strings.ToLower(p.Type.Text)
	}

	out := Play{
		ID:     playKey(p),
		Text:   text,
		Period: playPeriod(p),
		Clock:  playClock(p),
	}

	if p.ScoringPlay != nil {
		out.Scoring = *p.ScoringPlay
	} else {
		out.Scoring = scoringRe.MatchString(text) && !noGoodRe.MatchString(text)
	}
	out.Penalty = strings.Contains(typ, "penalty") || penaltyRe.MatchString(text)
	out.Turnover = strings.Contains(typ, "interception") || strings.Contains(typ, "fumble recovery (opponent)") ||
		turnoverRe.MatchString(text)

	if p.StatYardage != nil {
		y := *p.StatYardage
		out.Yards = &y
	} else if y, ok := parseYards(text); ok {
		out.Yards = &y
	}
	if out.Yards != nil && abs(*out.Yards) >= explosiveYards {
		out.Explosive = true
	}

	explicit := providerTeamCode(p, m)
	switch sentiment.Attribute(sentiment.Entry{Text: text, TeamCode: explicit}, m) {
	case sentiment.SideHome:
		out.TeamCode = m.Home.Code
	case sentiment.SideAway:
		out.TeamCode = m.Away.Code
	}
	out.Sentiment = sentiment.ScoreText(text)
	return out
}

// providerTeamCode maps the provider's play team (by abbreviation or id) to
// one of the matchup's canonical codes.
func providerTeamCode(p espn.Play, m sentiment.Matchup) string {
	ref := p.Team
	if ref == nil && p.Start != nil {
		ref = p.Start.Team
	}
	if ref == nil {
		return ""
	}
	for _, t := range []teams.Team{m.Home, m.Away} {
		if ref.ID != "" && ref.ID == t.ESPNID {
			return t.Code
		}
		if ref.Abbreviation != "" {
			for _, c := range t.Codes() {
				if strings.EqualFold(c, ref.Abbreviation) {
					return t.Code
				}
			}
		}
	}
	return ""
}

func parseYards(text string) (int, bool) {
	if m := lossRe.FindStringSubmatch(text); m != nil {
		n, err := strconv.Atoi(m[1])
		return -n, err == nil
	}
	if m := gainRe.FindStringSubmatch(text); m != nil {
		n, err := strconv.Atoi(m[1])
		return n, err == nil
	}
	return 0, false
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// sentimentEntries turns normalized plays into aggregator input.
func sentimentEntries(plays []Play) []sentiment.Entry {
	out := make([]sentiment.Entry, len(plays))
	for i, p := range plays {
		out[i] = sentiment.Entry{Text: p.Text, TeamCode: p.TeamCode}
	}
	return out
}
