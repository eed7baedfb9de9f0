package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dugoutdata/dugout/internal/hashstore"
)

func TestDecideNoPriorRecord(t *testing.T) {
	decision, reason := Decide("abc", nil, false)
	assert.Equal(t, Update, decision)
	assert.Equal(t, "no prior record", reason)
}

func TestDecideHashUnchanged(t *testing.T) {
	prior := &hashstore.Record{ContentHash: "abc"}
	decision, reason := Decide("abc", prior, false)
	assert.Equal(t, Skip, decision)
	assert.Equal(t, "hash unchanged", reason)
}

func TestDecideHashChanged(t *testing.T) {
	prior := &hashstore.Record{ContentHash: "0123456789abcdef"}
	decision, reason := Decide("fedcba9876543210", prior, false)
	assert.Equal(t, Update, decision)
	assert.Equal(t, "hash changed: 01234567 -> fedcba98", reason)
}

func TestDecideForced(t *testing.T) {
	prior := &hashstore.Record{ContentHash: "abc"}

	// Forced wins even when the hash matches
	decision, reason := Decide("abc", prior, true)
	assert.Equal(t, Update, decision)
	assert.Equal(t, "forced", reason)

	decision, _ = Decide("abc", nil, true)
	assert.Equal(t, Update, decision)
}

func TestDecisionString(t *testing.T) {
	assert.Equal(t, "skip", Skip.String())
	assert.Equal(t, "update", Update.String())
}
