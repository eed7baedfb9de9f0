package artifact

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteReadRoundtrip(t *testing.T) {
	store := New(t.TempDir())

	record := map[string]interface{}{
		"team_abbr": "TEX",
		"season":    float64(2025),
	}

	size, err := store.Write("rosters/2025_TEX_MLB.json", record)
	require.NoError(t, err)
	assert.Positive(t, size)

	var out map[string]interface{}
	require.NoError(t, store.Read("rosters/2025_TEX_MLB.json", &out))
	assert.Equal(t, record, out)
}

func TestWriteCreatesNestedDirs(t *testing.T) {
	root := t.TempDir()
	store := New(root)

	_, err := store.Write("splits/hitters/12345.json", map[string]interface{}{"ok": true})
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(root, "splits", "hitters", "12345.json"))
	assert.NoError(t, err)
}

func TestWriteSizeMatchesFile(t *testing.T) {
	root := t.TempDir()
	store := New(root)

	size, err := store.Write("boxscores/2025-04-11.json", map[string]interface{}{"games": []interface{}{}})
	require.NoError(t, err)

	info, err := os.Stat(filepath.Join(root, "boxscores", "2025-04-11.json"))
	require.NoError(t, err)
	assert.Equal(t, info.Size(), size)
}

func TestReadNotFound(t *testing.T) {
	store := New(t.TempDir())

	var out map[string]interface{}
	err := store.Read("rosters/missing.json", &out)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReadCorrupt(t *testing.T) {
	root := t.TempDir()
	store := New(root)

	require.NoError(t, os.WriteFile(filepath.Join(root, "bad.json"), []byte("{oops"), 0o644))

	var out map[string]interface{}
	err := store.Read("bad.json", &out)
	require.Error(t, err)

	var perr *PersistenceError
	assert.ErrorAs(t, err, &perr)
	assert.Equal(t, "read", perr.Op)
}

func TestWriteRemovesOldSnapshots(t *testing.T) {
	root := t.TempDir()
	store := New(root)

	dir := filepath.Join(root, "rosters")
	require.NoError(t, os.MkdirAll(dir, 0o755))

	// Timestamped copies left behind by earlier collection schemes
	snap1 := filepath.Join(dir, "2025_TEX_MLB_20250410T0700.json")
	snap2 := filepath.Join(dir, "2025_TEX_MLB_20250411T0700.json")
	require.NoError(t, os.WriteFile(snap1, []byte("{}"), 0o644))
	require.NoError(t, os.WriteFile(snap2, []byte("{}"), 0o644))

	_, err := store.Write("rosters/2025_TEX_MLB.json", map[string]interface{}{"team_abbr": "TEX"})
	require.NoError(t, err)

	assert.NoFileExists(t, snap1)
	assert.NoFileExists(t, snap2)
	assert.FileExists(t, filepath.Join(dir, "2025_TEX_MLB.json"))
}

func TestWriteReplacesExisting(t *testing.T) {
	store := New(t.TempDir())

	_, err := store.Write("a.json", map[string]interface{}{"v": float64(1)})
	require.NoError(t, err)
	_, err = store.Write("a.json", map[string]interface{}{"v": float64(2)})
	require.NoError(t, err)

	var out map[string]interface{}
	require.NoError(t, store.Read("a.json", &out))
	assert.Equal(t, float64(2), out["v"])
}

func TestWriteFailureIsPersistenceError(t *testing.T) {
	root := t.TempDir()
	store := New(root)

	// A regular file where a directory is needed makes MkdirAll fail
	require.NoError(t, os.WriteFile(filepath.Join(root, "rosters"), []byte("x"), 0o644))

	_, err := store.Write("rosters/2025_TEX_MLB.json", map[string]interface{}{})
	require.Error(t, err)

	var perr *PersistenceError
	assert.ErrorAs(t, err, &perr)
	assert.Equal(t, "write", perr.Op)
}

func TestAbs(t *testing.T) {
	store := New("/data/artifacts")
	assert.Equal(t, filepath.Join("/data/artifacts", "rosters", "x.json"), store.Abs("rosters/x.json"))
}
