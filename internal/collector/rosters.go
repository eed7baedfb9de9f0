package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/dugoutdata/dugout/internal/canonical"
	"github.com/dugoutdata/dugout/internal/engine"
	"github.com/dugoutdata/dugout/internal/logger"
)

const depthChartURL = "https://www.fangraphs.com/api/depth-charts/roster"

// RosterCollector keeps team depth-chart rosters in sync, one unit per
// (team, level) pair
type RosterCollector struct {
	client  *http.Client
	baseURL string
	season  int
	teams   []string
	levels  []string
	logger  *logger.Logger
}

// NewRosterCollector creates a roster collector for the given season and
// levels. An empty level list defaults to MLB only.
func NewRosterCollector(season int, levels []string) *RosterCollector {
	if len(levels) == 0 {
		levels = []string{"MLB"}
	}
	return &RosterCollector{
		client:  newHTTPClient(),
		baseURL: depthChartURL,
		season:  season,
		teams:   MLBTeams(),
		levels:  levels,
		logger:  logger.GetLogger().Collector(),
	}
}

// Name returns the collector namespace
func (c *RosterCollector) Name() string {
	return "rosters"
}

// Units returns one unit per team and level
func (c *RosterCollector) Units(ctx context.Context) ([]engine.UnitKey, error) {
	units := make([]engine.UnitKey, 0, len(c.teams)*len(c.levels))
	for _, team := range c.teams {
		for _, level := range c.levels {
			units = append(units, engine.UnitKey{team, level})
		}
	}
	return units, nil
}

// Fetch retrieves the depth-chart roster for one (team, level) unit
func (c *RosterCollector) Fetch(ctx context.Context, key engine.UnitKey) (interface{}, error) {
	if len(key) != 2 {
		return nil, engine.NewPermanentFetchError(fmt.Sprintf("malformed roster unit key %v", key), nil)
	}
	team, level := key[0], key[1]

	teamID, ok := TeamID(team)
	if !ok {
		return nil, engine.NewPermanentFetchError(fmt.Sprintf("unknown team %q", team), nil)
	}

	q := url.Values{}
	q.Set("teamid", strconv.Itoa(teamID))
	q.Set("loaddate", "")
	q.Set("position", "ALL")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, engine.NewPermanentFetchError("failed to build roster request", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, engine.NewTransientFetchError("roster request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, classifyHTTPStatus(resp.StatusCode, c.baseURL)
	}

	var players []interface{}
	if err := json.NewDecoder(resp.Body).Decode(&players); err != nil {
		return nil, engine.NewPermanentFetchError("roster payload is not a player list", err)
	}

	players = filterLevel(players, level)

	c.logger.Debug().
		Str("team", team).
		Str("level", level).
		Int("players", len(players)).
		Msg("Fetched roster")

	return map[string]interface{}{
		"team_abbr":            team,
		"level":                level,
		"season":               c.season,
		"collection_timestamp": time.Now().UTC().Format(time.RFC3339),
		"players":              players,
		"metadata": map[string]interface{}{
			"total_players": len(players),
			"source":        "depth-charts",
		},
	}, nil
}

// VolatileFields excludes request-echoed and per-fetch fields: the
// collection timestamp, the API's loaddate echo on every player row, and the
// derived player count
func (c *RosterCollector) VolatileFields() []canonical.FieldPath {
	return []canonical.FieldPath{
		"collection_timestamp",
		"players[].loaddate",
		"metadata.total_players",
	}
}

// ArtifactPath returns the root-relative artifact location for a unit
func (c *RosterCollector) ArtifactPath(key engine.UnitKey) string {
	return fmt.Sprintf("rosters/%d_%s_%s.json", c.season, key[0], key[1])
}

// filterLevel keeps only players whose mlevel matches the requested level.
// The depth-chart endpoint returns the whole organization in one response.
func filterLevel(players []interface{}, level string) []interface{} {
	filtered := make([]interface{}, 0, len(players))
	for _, p := range players {
		obj, ok := p.(map[string]interface{})
		if !ok {
			continue
		}
		if mlevel, _ := obj["mlevel"].(string); mlevel == level {
			filtered = append(filtered, p)
		}
	}
	return filtered
}
