package espn

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Scoreboard is the subset of the scoreboard response the fetcher reads.
type Scoreboard struct {
	Events []Event `json:"events"`
}

type Event struct {
	ID           string        `json:"id"`
	Date         string        `json:"date"`
	Name         string        `json:"name"`
	Status       *Status       `json:"status"`
	Competitions []Competition `json:"competitions"`
}

type Competition struct {
	ID          string       `json:"id"`
	Competitors []Competitor `json:"competitors"`
	Status      *Status      `json:"status"`
	Situation   *Situation   `json:"situation"`
}

type Competitor struct {
	HomeAway string    `json:"homeAway"`
	Score    FlexValue `json:"score"`
	Team     TeamRef   `json:"team"`
}

type TeamRef struct {
	ID               string `json:"id"`
	Abbreviation     string `json:"abbreviation"`
	DisplayName      string `json:"displayName"`
	ShortDisplayName string `json:"shortDisplayName"`
	Name             string `json:"name"`
}

type Status struct {
	Clock        float64    `json:"clock"`
	DisplayClock string     `json:"displayClock"`
	Period       int        `json:"period"`
	Type         StatusType `json:"type"`
}

type StatusType struct {
	Name        string `json:"name"`
	State       string `json:"state"` // "pre", "in", "post"
	Completed   bool   `json:"completed"`
	Description string `json:"description"`
	Detail      string `json:"detail"`
	ShortDetail string `json:"shortDetail"`
}

type Situation struct {
	LastPlay *Play `json:"lastPlay"`
}

// Summary is the per-event summary response.
type Summary struct {
	Header       *SummaryHeader `json:"header"`
	Drives       *Drives        `json:"drives"`
	Plays        []Play         `json:"plays"`
	ScoringPlays []Play         `json:"scoringPlays"`
	Situation    *Situation     `json:"situation"`
}

type SummaryHeader struct {
	ID           string        `json:"id"`
	Competitions []Competition `json:"competitions"`
}

type Drives struct {
	Previous []Drive `json:"previous"`
	Current  *Drive  `json:"current"`
}

type Drive struct {
	ID    string   `json:"id"`
	Team  *TeamRef `json:"team"`
	Plays []Play   `json:"plays"`
}

type Play struct {
	ID          FlexValue   `json:"id"`
	Text        string      `json:"text"`
	Type        *PlayType   `json:"type"`
	Period      *PlayPeriod `json:"period"`
	Clock       *PlayClock  `json:"clock"`
	ScoringPlay *bool       `json:"scoringPlay"`
	StatYardage *int        `json:"statYardage"`
	Team        *TeamRef    `json:"team"`
	Start       *PlayStart  `json:"start"`
	ScoreValue  int         `json:"scoreValue"`
	HomeScore   *int        `json:"homeScore"`
	AwayScore   *int        `json:"awayScore"`
}

type PlayType struct {
	ID           string `json:"id"`
	Text         string `json:"text"`
	Abbreviation string `json:"abbreviation"`
}

type PlayPeriod struct {
	Number int `json:"number"`
}

type PlayClock struct {
	DisplayValue string `json:"displayValue"`
}

type PlayStart struct {
	Team *TeamRef `json:"team"`
}

// FlexValue decodes a JSON string or number into its string form. ESPN sends
// scores and play ids as either.
type FlexValue string

func (f *FlexValue) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexValue(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = FlexValue(n.String())
	return nil
}

func (f FlexValue) String() string { return string(f) }

// Int parses the value as an integer, returning 0 when it is not one.
func (f FlexValue) Int() int {
	s := strings.TrimSpace(string(f))
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	if x, err := strconv.ParseFloat(s, 64); err == nil {
		return int(x)
	}
	return 0
}

type statisticsResponse struct {
	Results struct {
		Stats struct {
			Categories []statCategory `json:"categories"`
		} `json:"stats"`
	} `json:"results"`
	Statistics *struct {
		Splits struct {
			Categories []statCategory `json:"categories"`
		} `json:"splits"`
	} `json:"statistics"`
}

type statCategory struct {
	Name  string     `json:"name"`
	Stats []statItem `json:"stats"`
}

type statItem struct {
	Name         string   `json:"name"`
	Value        *float64 `json:"value"`
	PerGameValue *float64 `json:"perGameValue"`
}
