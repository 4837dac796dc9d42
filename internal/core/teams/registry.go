package teams

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnsupportedTeam = errors.New("unsupported team")

// UnsupportedTeamError carries the identifier that could not be resolved.
type UnsupportedTeamError struct {
	Input string
}

func (e *UnsupportedTeamError) Error() string {
	return fmt.Sprintf("unsupported team %q", e.Input)
}

func (e *UnsupportedTeamError) Unwrap() error { return ErrUnsupportedTeam }

// Team is one NFL franchise. Code is the nflverse abbreviation used by the
// historical datasets; ESPNCode and ESPNID address the live provider.
type Team struct {
	Code        string
	Name        string // nickname, e.g. "Seahawks"
	City        string
	ESPNCode    string
	ESPNID      string
	LegacyCodes []string // relocations and provider spellings
}

func (t Team) FullName() string { return t.City + " " + t.Name }

// Codes lists every abbreviation the team is known by, canonical first.
func (t Team) Codes() []string {
	out := []string{t.Code}
	if t.ESPNCode != t.Code {
		out = append(out, t.ESPNCode)
	}
	return append(out, t.LegacyCodes...)
}

// Tokens returns the normalized names used to attribute free text to the
// team: nickname and full name. Codes are matched separately by MentionedIn.
func (t Team) Tokens() []string {
	return []string{Normalize(t.Name), Normalize(t.FullName())}
}

// MentionedIn reports whether free text names the team. Names match in any
// case. Codes match only as upper-case words in mixed-case text, since NO,
// NE and LA are also ordinary words ("no gain", "No huddle").
func (t Team) MentionedIn(text string) bool {
	norm := Normalize(text)
	for _, tok := range t.Tokens() {
		if ContainsToken(norm, tok) {
			return true
		}
	}
	if !hasLower(text) {
		return false
	}
	for _, w := range strings.FieldsFunc(text, isSeparator) {
		for _, c := range t.Codes() {
			if w == strings.ToUpper(c) {
				return true
			}
		}
	}
	return false
}

var nfl = []Team{
	{Code: "ARI", Name: "Cardinals", City: "Arizona", ESPNCode: "ARI", ESPNID: "22", LegacyCodes: []string{"PHO"}},
	{Code: "ATL", Name: "Falcons", City: "Atlanta", ESPNCode: "ATL", ESPNID: "1"},
	{Code: "BAL", Name: "Ravens", City: "Baltimore", ESPNCode: "BAL", ESPNID: "33"},
	{Code: "BUF", Name: "Bills", City: "Buffalo", ESPNCode: "BUF", ESPNID: "2"},
	{Code: "CAR", Name: "Panthers", City: "Carolina", ESPNCode: "CAR", ESPNID: "29"},
	{Code: "CHI", Name: "Bears", City: "Chicago", ESPNCode: "CHI", ESPNID: "3"},
	{Code: "CIN", Name: "Bengals", City: "Cincinnati", ESPNCode: "CIN", ESPNID: "4"},
	{Code: "CLE", Name: "Browns", City: "Cleveland", ESPNCode: "CLE", ESPNID: "5"},
	{Code: "DAL", Name: "Cowboys", City: "Dallas", ESPNCode: "DAL", ESPNID: "6"},
	{Code: "DEN", Name: "Broncos", City: "Denver", ESPNCode: "DEN", ESPNID: "7"},
	{Code: "DET", Name: "Lions", City: "Detroit", ESPNCode: "DET", ESPNID: "8"},
	{Code: "GB", Name: "Packers", City: "Green Bay", ESPNCode: "GB", ESPNID: "9", LegacyCodes: []string{"GNB"}},
	{Code: "HOU", Name: "Texans", City: "Houston", ESPNCode: "HOU", ESPNID: "34"},
	{Code: "IND", Name: "Colts", City: "Indianapolis", ESPNCode: "IND", ESPNID: "11"},
	{Code: "JAX", Name: "Jaguars", City: "Jacksonville", ESPNCode: "JAX", ESPNID: "30", LegacyCodes: []string{"JAC"}},
	{Code: "KC", Name: "Chiefs", City: "Kansas City", ESPNCode: "KC", ESPNID: "12", LegacyCodes: []string{"KAN"}},
	{Code: "LV", Name: "Raiders", City: "Las Vegas", ESPNCode: "LV", ESPNID: "13", LegacyCodes: []string{"OAK", "LVR"}},
	{Code: "LAC", Name: "Chargers", City: "Los Angeles", ESPNCode: "LAC", ESPNID: "24", LegacyCodes: []string{"SD", "SDG"}},
	{Code: "LA", Name: "Rams", City: "Los Angeles", ESPNCode: "LAR", ESPNID: "14", LegacyCodes: []string{"STL", "RAM"}},
	{Code: "MIA", Name: "Dolphins", City: "Miami", ESPNCode: "MIA", ESPNID: "15"},
	{Code: "MIN", Name: "Vikings", City: "Minnesota", ESPNCode: "MIN", ESPNID: "16"},
	{Code: "NE", Name: "Patriots", City: "New England", ESPNCode: "NE", ESPNID: "17", LegacyCodes: []string{"NWE"}},
	{Code: "NO", Name: "Saints", City: "New Orleans", ESPNCode: "NO", ESPNID: "18", LegacyCodes: []string{"NOR"}},
	{Code: "NYG", Name: "Giants", City: "New York", ESPNCode: "NYG", ESPNID: "19"},
	{Code: "NYJ", Name: "Jets", City: "New York", ESPNCode: "NYJ", ESPNID: "20"},
	{Code: "PHI", Name: "Eagles", City: "Philadelphia", ESPNCode: "PHI", ESPNID: "21"},
	{Code: "PIT", Name: "Steelers", City: "Pittsburgh", ESPNCode: "PIT", ESPNID: "23"},
	{Code: "SF", Name: "49ers", City: "San Francisco", ESPNCode: "SF", ESPNID: "25", LegacyCodes: []string{"SFO"}},
	{Code: "SEA", Name: "Seahawks", City: "Seattle", ESPNCode: "SEA", ESPNID: "26"},
	{Code: "TB", Name: "Buccaneers", City: "Tampa Bay", ESPNCode: "TB", ESPNID: "27", LegacyCodes: []string{"TAM"}},
	{Code: "TEN", Name: "Titans", City: "Tennessee", ESPNCode: "TEN", ESPNID: "10"},
	{Code: "WAS", Name: "Commanders", City: "Washington", ESPNCode: "WSH", ESPNID: "28"},
}

// Registry resolves free-text identifiers to teams.
type Registry struct {
	teams  []Team
	byKey  map[string]int // normalized code/name/full name/alias -> index
	byCode map[string]int // upper-case code (any spelling) -> index
}

// NFL returns a registry of the current 32 franchises.
func NFL() *Registry {
	return NewRegistry(nfl, nflAliases)
}

// NewRegistry indexes teams plus extra normalized aliases (alias -> Code).
func NewRegistry(ts []Team, aliases map[string]string) *Registry {
	r := &Registry{
		teams:  append([]Team(nil), ts...),
		byKey:  make(map[string]int),
		byCode: make(map[string]int),
	}
	for i, t := range r.teams {
		for _, c := range t.Codes() {
			r.byCode[strings.ToUpper(c)] = i
			r.byKey[Normalize(c)] = i
		}
		r.byKey[Normalize(t.Name)] = i
		r.byKey[Normalize(t.FullName())] = i
	}
	for alias, code := range aliases {
		if i, ok := r.byCode[strings.ToUpper(code)]; ok {
			r.byKey[Normalize(alias)] = i
		}
	}
	return r
}

// Resolve maps a code, nickname, full name or known alias to a team. Exact
// matches win; otherwise a unique suffix match ("Seattle Seahawks" ends with
// "Seahawks", "seahawks" is a suffix of the full name) is accepted. Anything
// else is an UnsupportedTeamError.
func (r *Registry) Resolve(input string) (Team, error) {
	key := Normalize(input)
	if key == "" {
		return Team{}, &UnsupportedTeamError{Input: input}
	}
	if i, ok := r.byKey[key]; ok {
		return r.teams[i], nil
	}

	match := -1
	for i, t := range r.teams {
		full := Normalize(t.FullName())
		name := Normalize(t.Name)
		if strings.HasSuffix(key, " "+name) || strings.HasSuffix(full, " "+key) {
			if match >= 0 && match != i {
				return Team{}, &UnsupportedTeamError{Input: input}
			}
			match = i
		}
	}
	if match < 0 {
		return Team{}, &UnsupportedTeamError{Input: input}
	}
	return r.teams[match], nil
}

// ByCode looks a team up by any of its abbreviations, case-insensitively.
func (r *Registry) ByCode(code string) (Team, bool) {
	i, ok := r.byCode[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return Team{}, false
	}
	return r.teams[i], true
}

// Canonical maps any provider abbreviation to the canonical code, or "".
func (r *Registry) Canonical(code string) string {
	t, ok := r.ByCode(code)
	if !ok {
		return ""
	}
	return t.Code
}

func (r *Registry) All() []Team {
	return append([]Team(nil), r.teams...)
}

// MatchupKey identifies a home/away pairing for caching and fanout routing.
func MatchupKey(home, away Team) string {
	return home.Code + "-" + away.Code
}
