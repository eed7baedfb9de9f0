package collector

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dugoutdata/dugout/internal/canonical"
	"github.com/dugoutdata/dugout/internal/engine"
)

func TestRosterUnits(t *testing.T) {
	c := NewRosterCollector(2025, []string{"MLB", "AAA"})

	units, err := c.Units(context.Background())
	require.NoError(t, err)

	assert.Len(t, units, 29*2)
	assert.Contains(t, units, engine.UnitKey{"TEX", "MLB"})
	assert.Contains(t, units, engine.UnitKey{"TEX", "AAA"})
}

func TestRosterUnitsDefaultLevel(t *testing.T) {
	c := NewRosterCollector(2025, nil)

	units, err := c.Units(context.Background())
	require.NoError(t, err)
	assert.Len(t, units, 29)
	assert.Equal(t, "MLB", units[0][1])
}

func TestRosterFetch(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		json.NewEncoder(w).Encode([]interface{}{
			map[string]interface{}{"player": "Corey Seager", "mlevel": "MLB", "loaddate": "2025-04-11"},
			map[string]interface{}{"player": "Prospect Kid", "mlevel": "AAA", "loaddate": "2025-04-11"},
		})
	}))
	defer server.Close()

	c := NewRosterCollector(2025, []string{"MLB"})
	c.baseURL = server.URL

	rec, err := c.Fetch(context.Background(), engine.UnitKey{"TEX", "MLB"})
	require.NoError(t, err)

	assert.Contains(t, gotQuery, "teamid=13")

	record, ok := rec.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "TEX", record["team_abbr"])
	assert.Equal(t, "MLB", record["level"])
	assert.Equal(t, 2025, record["season"])
	assert.NotEmpty(t, record["collection_timestamp"])

	players, ok := record["players"].([]interface{})
	require.True(t, ok)
	assert.Len(t, players, 1, "only the requested level must be kept")

	meta, ok := record["metadata"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, 1, meta["total_players"])
}

func TestRosterFetchUnknownTeam(t *testing.T) {
	c := NewRosterCollector(2025, []string{"MLB"})

	_, err := c.Fetch(context.Background(), engine.UnitKey{"XXX", "MLB"})
	require.Error(t, err)

	var fe *engine.FetchError
	require.ErrorAs(t, err, &fe)
	assert.False(t, fe.Transient)
}

func TestRosterFetchServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	c := NewRosterCollector(2025, []string{"MLB"})
	c.baseURL = server.URL

	_, err := c.Fetch(context.Background(), engine.UnitKey{"TEX", "MLB"})
	require.Error(t, err)

	var fe *engine.FetchError
	require.ErrorAs(t, err, &fe)
	assert.True(t, fe.Transient)
}

func TestRosterVolatileFields(t *testing.T) {
	c := NewRosterCollector(2025, nil)

	fields := c.VolatileFields()
	assert.Contains(t, fields, canonical.FieldPath("collection_timestamp"))
	assert.Contains(t, fields, canonical.FieldPath("players[].loaddate"))
	assert.Contains(t, fields, canonical.FieldPath("metadata.total_players"))
}

func TestRosterArtifactPath(t *testing.T) {
	c := NewRosterCollector(2025, nil)
	assert.Equal(t, "rosters/2025_TEX_MLB.json", c.ArtifactPath(engine.UnitKey{"TEX", "MLB"}))
}

func TestFilterLevel(t *testing.T) {
	players := []interface{}{
		map[string]interface{}{"player": "A", "mlevel": "MLB"},
		map[string]interface{}{"player": "B", "mlevel": "AAA"},
		map[string]interface{}{"player": "C", "mlevel": "MLB"},
		"not an object",
	}

	mlb := filterLevel(players, "MLB")
	assert.Len(t, mlb, 2)

	aaa := filterLevel(players, "AAA")
	assert.Len(t, aaa, 1)

	assert.Empty(t, filterLevel(players, "SS"))
}
