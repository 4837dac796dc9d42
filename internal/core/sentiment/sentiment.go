// Package sentiment scores play-by-play text for valence and rolls the
// scores up per side of a game.
package sentiment

import (
	"math"
	"strings"
	"unicode"

	"github.com/charleschow/squares-odds/internal/core/teams"
)

const (
	// minTokens keeps two-word strings like "touchdown good" from saturating.
	minTokens = 4
	gain      = 2.2

	// recencyHalfLife is measured in entries within one side's bucket.
	recencyHalfLife = 14.0
)

// Valence is scored for the team a play is attributed to, which is the
// side in possession. Every form of an event word carries the same sign.
var positiveTerms = setOf(
	"touchdown", "td", "good", "complete", "completed", "completion", "gain", "gains",
	"first", "converted", "conversion", "scores", "scored", "score", "big", "long",
	"breaks", "break", "explosive", "deep", "sprint", "leaps", "diving", "spectacular",
	"return", "returned", "recovered", "touchback", "success",
)

var negativeTerms = setOf(
	"incomplete", "penalty", "penalized", "holding", "false", "offside", "offsides",
	"fumble", "fumbles", "fumbled", "interception", "intercepted", "loss", "lost",
	"punt", "punts", "no", "missed", "miss", "blocked", "safety", "injury", "injured",
	"turnover", "sack", "sacked", "stuffed", "dropped", "drop", "unsportsmanlike",
	"delay", "illegal", "interference", "failed", "short", "wide", "challenge",
	"overturned",
)

func setOf(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}

// Tokenize lower-cases text and splits on anything that is not a letter or
// digit.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// ScoreText returns the valence of text in [-1, 1]. Empty text scores 0.
func ScoreText(text string) float64 {
	tokens := Tokenize(text)
	if len(tokens) == 0 {
		return 0
	}

	var net int
	for _, tok := range tokens {
		if _, ok := positiveTerms[tok]; ok {
			net++
		}
		if _, ok := negativeTerms[tok]; ok {
			net--
		}
	}

	norm := float64(max(len(tokens), minTokens))
	return clamp(float64(net)/norm*gain, -1, 1)
}

// Entry is one piece of text optionally tagged with the team it belongs to.
type Entry struct {
	Text     string
	TeamCode string
}

// Matchup tells the aggregator which side is which.
type Matchup struct {
	Home teams.Team
	Away teams.Team
}

// Aggregate is the recency-weighted mood of a game. Home and Away are in
// [-1, 1]; Neutral is the unattributed mean mapped into [0, 1].
type Aggregate struct {
	Home    float64 `json:"home"`
	Away    float64 `json:"away"`
	Neutral float64 `json:"neutral"`
}

// Calm is the aggregate reported for a side with no attributed text.
func Calm() Aggregate {
	return Aggregate{Home: 0, Away: 0, Neutral: 1}
}

type Side int

const (
	SideNeutral Side = iota
	SideHome
	SideAway
)

// Attribute assigns an entry to a side: an explicit team code wins, then a
// mention of exactly one team in the text. Both or neither → neutral.
func Attribute(e Entry, m Matchup) Side {
	if code := strings.ToUpper(strings.TrimSpace(e.TeamCode)); code != "" {
		if hasCode(m.Home, code) {
			return SideHome
		}
		if hasCode(m.Away, code) {
			return SideAway
		}
	}

	homeHit := m.Home.MentionedIn(e.Text)
	awayHit := m.Away.MentionedIn(e.Text)
	switch {
	case homeHit && !awayHit:
		return SideHome
	case awayHit && !homeHit:
		return SideAway
	default:
		return SideNeutral
	}
}

func hasCode(t teams.Team, code string) bool {
	for _, c := range t.Codes() {
		if strings.EqualFold(c, code) {
			return true
		}
	}
	return false
}

// Analyze scores every entry, buckets it by side and returns the
// recency-weighted mean per bucket. entries are ordered oldest first.
func Analyze(entries []Entry, m Matchup) Aggregate {
	type scored struct {
		side  Side
		score float64
	}
	all := make([]scored, len(entries))
	for i, e := range entries {
		all[i] = scored{side: Attribute(e, m), score: ScoreText(e.Text)}
	}

	var sum, weight [3]float64
	var age [3]int
	for i := len(all) - 1; i >= 0; i-- {
		s := all[i]
		w := math.Pow(0.5, float64(age[s.side])/recencyHalfLife)
		age[s.side]++
		sum[s.side] += w * s.score
		weight[s.side] += w
	}

	out := Calm()
	if weight[SideHome] > 0 {
		out.Home = clamp(sum[SideHome]/weight[SideHome], -1, 1)
	}
	if weight[SideAway] > 0 {
		out.Away = clamp(sum[SideAway]/weight[SideAway], -1, 1)
	}
	if weight[SideNeutral] > 0 {
		mean := clamp(sum[SideNeutral]/weight[SideNeutral], -1, 1)
		out.Neutral = (mean + 1) / 2
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
