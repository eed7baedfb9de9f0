package collector

import "sort"

// teamIDs maps MLB team abbreviations to Fangraphs team identifiers
var teamIDs = map[string]int{
	"ARI": 15, "ATL": 16, "BAL": 2, "BOS": 3, "CHC": 17, "CIN": 18,
	"CLE": 5, "COL": 19, "CWS": 4, "DET": 6, "HOU": 21, "KC": 7,
	"LAA": 1, "LAD": 22, "MIA": 20, "MIL": 23, "MIN": 8, "NYM": 24,
	"NYY": 10, "OAK": 11, "PHI": 26, "PIT": 27, "SD": 25, "SEA": 12,
	"SF": 28, "STL": 29, "TB": 30, "TEX": 13, "TOR": 14, "WSH": 20,
}

// Levels lists the organizational levels a roster can be collected at
var Levels = []string{"MLB", "AAA", "AA", "A+", "A", "SS"}

// MLBTeams returns the team abbreviations in sorted order. WSH shares a
// Fangraphs ID with MIA upstream, so it is excluded from enumeration.
func MLBTeams() []string {
	teams := make([]string, 0, len(teamIDs))
	for abbr := range teamIDs {
		if abbr == "WSH" {
			continue
		}
		teams = append(teams, abbr)
	}
	sort.Strings(teams)
	return teams
}

// TeamID returns the Fangraphs identifier for a team abbreviation
func TeamID(abbr string) (int, bool) {
	id, ok := teamIDs[abbr]
	return id, ok
}
