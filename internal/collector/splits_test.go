package collector

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dugoutdata/dugout/internal/artifact"
	"github.com/dugoutdata/dugout/internal/engine"
)

func writeRoster(t *testing.T, store *artifact.Store, team string, players []map[string]interface{}) {
	t.Helper()
	_, err := store.Write("rosters/2025_"+team+"_MLB.json", map[string]interface{}{
		"team_abbr": team,
		"players":   players,
	})
	require.NoError(t, err)
}

func TestSplitsUnits(t *testing.T) {
	store := artifact.New(t.TempDir())
	writeRoster(t, store, "TEX", []map[string]interface{}{
		{"playerid": "26288", "player": "Corey Seager", "position": "SS"},
		{"playerid": "31757", "player": "Jacob deGrom", "position": "SP"},
	})
	writeRoster(t, store, "SEA", []map[string]interface{}{
		{"playerid": "30243", "player": "Julio Rodriguez", "position": "CF"},
	})

	c := NewSplitsCollector(store, 2025)

	units, err := c.Units(context.Background())
	require.NoError(t, err)

	assert.Len(t, units, 3)
	assert.Contains(t, units, engine.UnitKey{RoleHitters, "26288"})
	assert.Contains(t, units, engine.UnitKey{RolePitchers, "31757"})
	assert.Contains(t, units, engine.UnitKey{RoleHitters, "30243"})
}

func TestSplitsUnitsDeduplicatesPlayers(t *testing.T) {
	store := artifact.New(t.TempDir())

	// Player appearing on two rosters mid-trade must yield one unit
	shared := map[string]interface{}{"playerid": "12345", "player": "Traded Guy", "position": "2B"}
	writeRoster(t, store, "TEX", []map[string]interface{}{shared})
	writeRoster(t, store, "SEA", []map[string]interface{}{shared})

	c := NewSplitsCollector(store, 2025)

	units, err := c.Units(context.Background())
	require.NoError(t, err)
	assert.Len(t, units, 1)
}

func TestSplitsUnitsNumericIDs(t *testing.T) {
	store := artifact.New(t.TempDir())
	writeRoster(t, store, "TEX", []map[string]interface{}{
		{"playerid": 26288, "player": "Corey Seager", "position": "SS"},
	})

	c := NewSplitsCollector(store, 2025)

	units, err := c.Units(context.Background())
	require.NoError(t, err)
	require.Len(t, units, 1)
	assert.Equal(t, "26288", units[0][1])
}

func TestSplitsUnitsNoRosters(t *testing.T) {
	c := NewSplitsCollector(artifact.New(t.TempDir()), 2025)

	_, err := c.Units(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rosters collector")
}

func TestSplitsFetch(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewEncoder(w).Encode(map[string]interface{}{
			"buildId":   "foRilIlBm_hTorbyeu3KF",
			"pageProps": map[string]interface{}{"splits": []interface{}{}},
		})
	}))
	defer server.Close()

	store := artifact.New(t.TempDir())
	writeRoster(t, store, "TEX", []map[string]interface{}{
		{"playerid": "26288", "player": "Corey Seager", "position": "SS"},
	})

	c := NewSplitsCollector(store, 2025)
	c.baseURL = server.URL

	_, err := c.Units(context.Background())
	require.NoError(t, err)

	rec, err := c.Fetch(context.Background(), engine.UnitKey{RoleHitters, "26288"})
	require.NoError(t, err)

	assert.Equal(t, "/corey-seager/26288/splits.json", gotPath)

	record, ok := rec.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "26288", record["player_id"])
	assert.Equal(t, RoleHitters, record["role"])
	assert.NotNil(t, record["splits"])
}

func TestSplitsFetchUnknownPlayer(t *testing.T) {
	c := NewSplitsCollector(artifact.New(t.TempDir()), 2025)

	_, err := c.Fetch(context.Background(), engine.UnitKey{RoleHitters, "99999"})
	require.Error(t, err)

	var fe *engine.FetchError
	require.ErrorAs(t, err, &fe)
	assert.False(t, fe.Transient)
}

func TestSplitsArtifactPath(t *testing.T) {
	c := NewSplitsCollector(artifact.New(t.TempDir()), 2025)

	assert.Equal(t, "splits/hitters/26288.json", c.ArtifactPath(engine.UnitKey{RoleHitters, "26288"}))
	assert.Equal(t, "splits/pitchers/31757.json", c.ArtifactPath(engine.UnitKey{RolePitchers, "31757"}))
}

func TestRoleForPosition(t *testing.T) {
	assert.Equal(t, RolePitchers, roleForPosition("P"))
	assert.Equal(t, RolePitchers, roleForPosition("SP"))
	assert.Equal(t, RolePitchers, roleForPosition("RP"))
	assert.Equal(t, RolePitchers, roleForPosition("sp"))
	assert.Equal(t, RoleHitters, roleForPosition("SS"))
	assert.Equal(t, RoleHitters, roleForPosition("C"))
	assert.Equal(t, RoleHitters, roleForPosition(""))
}

func TestSanitizeNameRoute(t *testing.T) {
	assert.Equal(t, "corey-seager", sanitizeNameRoute("Corey Seager"))
	assert.Equal(t, "jp-crawford", sanitizeNameRoute("J.P. Crawford"))
	assert.Equal(t, "logan-ohoppe", sanitizeNameRoute("Logan O'Hoppe"))
}

func TestStringField(t *testing.T) {
	obj := map[string]interface{}{
		"str":   "hello",
		"num":   json.Number("26288"),
		"float": float64(26288),
		"other": true,
	}

	assert.Equal(t, "hello", stringField(obj, "str"))
	assert.Equal(t, "26288", stringField(obj, "num"))
	assert.Equal(t, "26288", stringField(obj, "float"))
	assert.Equal(t, "", stringField(obj, "other"))
	assert.Equal(t, "", stringField(obj, "missing"))
}
