package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/dugoutdata/dugout/internal/artifact"
	"github.com/dugoutdata/dugout/internal/canonical"
	"github.com/dugoutdata/dugout/internal/engine"
	"github.com/dugoutdata/dugout/internal/logger"
)

const splitsBaseURL = "https://www.fangraphs.com/_next/data/foRilIlBm_hTorbyeu3KF/players"

// RoleHitters and RolePitchers namespace player-grained units by role
const (
	RoleHitters  = "hitters"
	RolePitchers = "pitchers"
)

// SplitsCollector keeps per-player splits in sync. Units are player-grained
// (role, player id) so traded players stay addressable, and enumeration comes
// from the previously collected MLB roster artifacts.
type SplitsCollector struct {
	client    *http.Client
	baseURL   string
	artifacts *artifact.Store
	season    int
	logger    *logger.Logger

	mu     sync.Mutex
	routes map[string]string // player id -> name route for URL building
}

// NewSplitsCollector creates a splits collector that enumerates players from
// the roster artifacts in the given store
func NewSplitsCollector(artifacts *artifact.Store, season int) *SplitsCollector {
	return &SplitsCollector{
		client:    newHTTPClient(),
		baseURL:   splitsBaseURL,
		artifacts: artifacts,
		season:    season,
		logger:    logger.GetLogger().Collector(),
		routes:    make(map[string]string),
	}
}

// Name returns the collector namespace
func (c *SplitsCollector) Name() string {
	return "splits"
}

// Units enumerates every active MLB player found in the roster artifacts.
// Teams without a collected roster are skipped; run the rosters collector
// first to get full coverage.
func (c *SplitsCollector) Units(ctx context.Context) ([]engine.UnitKey, error) {
	var units []engine.UnitKey
	seen := make(map[string]bool)

	for _, team := range MLBTeams() {
		rel := fmt.Sprintf("rosters/%d_%s_MLB.json", c.season, team)

		var roster struct {
			Players []map[string]interface{} `json:"players"`
		}
		if err := c.artifacts.Read(rel, &roster); err != nil {
			if errors.Is(err, artifact.ErrNotFound) {
				c.logger.Debug().Str("team", team).Msg("No roster artifact yet, skipping team")
				continue
			}
			return nil, fmt.Errorf("failed to read roster artifact for %s: %w", team, err)
		}

		for _, p := range roster.Players {
			id := stringField(p, "playerid")
			name := stringField(p, "player")
			if id == "" || name == "" || seen[id] {
				continue
			}
			seen[id] = true

			c.mu.Lock()
			c.routes[id] = sanitizeNameRoute(name)
			c.mu.Unlock()

			units = append(units, engine.UnitKey{roleForPosition(stringField(p, "position")), id})
		}
	}

	if len(units) == 0 {
		return nil, fmt.Errorf("no players found in roster artifacts; run the rosters collector first")
	}

	return units, nil
}

// Fetch retrieves the splits payload for one player
func (c *SplitsCollector) Fetch(ctx context.Context, key engine.UnitKey) (interface{}, error) {
	if len(key) != 2 {
		return nil, engine.NewPermanentFetchError(fmt.Sprintf("malformed splits unit key %v", key), nil)
	}
	role, playerID := key[0], key[1]

	c.mu.Lock()
	route, ok := c.routes[playerID]
	c.mu.Unlock()
	if !ok {
		return nil, engine.NewPermanentFetchError(fmt.Sprintf("player %s not present in roster enumeration", playerID), nil)
	}

	url := fmt.Sprintf("%s/%s/%s/splits.json", c.baseURL, route, playerID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, engine.NewPermanentFetchError("failed to build splits request", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Referer", fmt.Sprintf("https://www.fangraphs.com/players/%s/splits-tool", route))

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, engine.NewTransientFetchError("splits request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, classifyHTTPStatus(resp.StatusCode, url)
	}

	var payload map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, engine.NewPermanentFetchError("splits payload is not valid JSON", err)
	}

	return map[string]interface{}{
		"player_id":            playerID,
		"role":                 role,
		"season":               c.season,
		"collection_timestamp": time.Now().UTC().Format(time.RFC3339),
		"splits":               payload,
	}, nil
}

// VolatileFields excludes the collection timestamp and the build-id echo the
// page payload carries on every response
func (c *SplitsCollector) VolatileFields() []canonical.FieldPath {
	return []canonical.FieldPath{
		"collection_timestamp",
		"splits.buildId",
	}
}

// ArtifactPath nests player artifacts by role
func (c *SplitsCollector) ArtifactPath(key engine.UnitKey) string {
	return fmt.Sprintf("splits/%s/%s.json", key[0], key[1])
}

// roleForPosition maps a roster position to the role namespace
func roleForPosition(position string) string {
	switch strings.ToUpper(position) {
	case "P", "SP", "RP", "SP/RP":
		return RolePitchers
	default:
		return RoleHitters
	}
}

// sanitizeNameRoute converts a display name into the URL route form used by
// the splits endpoint
func sanitizeNameRoute(name string) string {
	route := strings.ToLower(name)
	route = strings.ReplaceAll(route, " ", "-")
	route = strings.ReplaceAll(route, ".", "")
	route = strings.ReplaceAll(route, "'", "")
	return route
}

// stringField reads a string-ish field from a raw player object. Numeric IDs
// arrive as JSON numbers and are rendered without an exponent.
func stringField(obj map[string]interface{}, key string) string {
	switch v := obj[key].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		return strings.TrimSuffix(fmt.Sprintf("%.0f", v), ".")
	default:
		return ""
	}
}
