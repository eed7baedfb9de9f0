package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/dugoutdata/dugout/internal/canonical"
	"github.com/dugoutdata/dugout/internal/engine"
	"github.com/dugoutdata/dugout/internal/logger"
)

const statsAPIBase = "https://statsapi.mlb.com/api/v1"

// BoxscoreCollector keeps per-date game schedules and box-score summaries in
// sync, one unit per calendar date
type BoxscoreCollector struct {
	client   *http.Client
	baseURL  string
	daysBack int
	now      func() time.Time
	logger   *logger.Logger
}

// NewBoxscoreCollector creates a collector covering the last daysBack days
// up to and including yesterday
func NewBoxscoreCollector(daysBack int) *BoxscoreCollector {
	if daysBack <= 0 {
		daysBack = 3
	}
	return &BoxscoreCollector{
		client:   newHTTPClient(),
		baseURL:  statsAPIBase,
		daysBack: daysBack,
		now:      time.Now,
		logger:   logger.GetLogger().Collector(),
	}
}

// Name returns the collector namespace
func (c *BoxscoreCollector) Name() string {
	return "boxscores"
}

// Units returns one unit per date in the lookback window
func (c *BoxscoreCollector) Units(ctx context.Context) ([]engine.UnitKey, error) {
	yesterday := c.now().UTC().AddDate(0, 0, -1)

	units := make([]engine.UnitKey, 0, c.daysBack)
	for i := c.daysBack - 1; i >= 0; i-- {
		date := yesterday.AddDate(0, 0, -i).Format("2006-01-02")
		units = append(units, engine.UnitKey{date})
	}
	return units, nil
}

// Fetch retrieves the schedule for one date. A date with no games is a valid
// empty record, not a failure: absence of games is real data and hash-gates
// like anything else, while network and server problems surface as fetch
// errors.
func (c *BoxscoreCollector) Fetch(ctx context.Context, key engine.UnitKey) (interface{}, error) {
	if len(key) != 1 {
		return nil, engine.NewPermanentFetchError(fmt.Sprintf("malformed boxscore unit key %v", key), nil)
	}
	date := key[0]

	if _, err := time.Parse("2006-01-02", date); err != nil {
		return nil, engine.NewPermanentFetchError(fmt.Sprintf("invalid date %q", date), err)
	}

	q := url.Values{}
	q.Set("sportId", "1")
	q.Set("date", date)
	q.Set("hydrate", "linescore,decisions")

	endpoint := c.baseURL + "/schedule?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, engine.NewPermanentFetchError("failed to build schedule request", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, engine.NewTransientFetchError("schedule request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, classifyHTTPStatus(resp.StatusCode, endpoint)
	}

	var payload struct {
		Dates []struct {
			Games []interface{} `json:"games"`
		} `json:"dates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, engine.NewPermanentFetchError("schedule payload is not valid JSON", err)
	}

	games := []interface{}{}
	for _, d := range payload.Dates {
		games = append(games, d.Games...)
	}

	if len(games) == 0 {
		c.logger.Debug().Str("date", date).Msg("No games found for date")
	}

	return map[string]interface{}{
		"date":                 date,
		"collection_timestamp": time.Now().UTC().Format(time.RFC3339),
		"games":                games,
		"metadata": map[string]interface{}{
			"total_games": len(games),
		},
	}, nil
}

// VolatileFields excludes the collection timestamp and derived game count
func (c *BoxscoreCollector) VolatileFields() []canonical.FieldPath {
	return []canonical.FieldPath{
		"collection_timestamp",
		"metadata.total_games",
	}
}

// ArtifactPath returns the root-relative artifact location for a date
func (c *BoxscoreCollector) ArtifactPath(key engine.UnitKey) string {
	return fmt.Sprintf("boxscores/%s.json", key[0])
}
