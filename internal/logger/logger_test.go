package logger

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitWithDefaults(t *testing.T) {
	require.NoError(t, Init(nil))
	assert.NotNil(t, GetLogger())
}

func TestInitInvalidLevel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Level = "shouty"
	require.Error(t, Init(cfg))
}

func TestInitLevels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error"} {
		cfg := DefaultConfig()
		cfg.Level = level
		require.NoError(t, Init(cfg), "level %s", level)
	}
}

func TestInitFileOutput(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Output = filepath.Join(t.TempDir(), "logs", "dugout.log")
	cfg.Color = false

	require.NoError(t, Init(cfg))
	GetLogger().Info().Msg("hello")

	assert.FileExists(t, cfg.Output)
}

func TestGetLoggerLazyInit(t *testing.T) {
	globalLogger = nil
	assert.NotNil(t, GetLogger())
}

func TestComponentLoggers(t *testing.T) {
	require.NoError(t, Init(DefaultConfig()))
	l := GetLogger()

	assert.NotNil(t, l.Engine())
	assert.NotNil(t, l.HashStore())
	assert.NotNil(t, l.Artifact())
	assert.NotNil(t, l.Collector())
	assert.NotNil(t, l.RunLog())
}

func TestDefaultConfigLevel(t *testing.T) {
	cfg := DefaultConfig()
	level, err := zerolog.ParseLevel(cfg.Level)
	require.NoError(t, err)
	assert.Equal(t, zerolog.WarnLevel, level)
}
