package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackoffDelayDoubles(t *testing.T) {
	policy := BackoffPolicy{MaxRetries: 3, Base: time.Second}

	assert.Equal(t, time.Second, policy.Delay(0))
	assert.Equal(t, 2*time.Second, policy.Delay(1))
	assert.Equal(t, 4*time.Second, policy.Delay(2))
}

func TestLookupProfile(t *testing.T) {
	p, err := LookupProfile("balanced")
	require.NoError(t, err)
	assert.Equal(t, 8, p.MaxConcurrency)
	assert.Equal(t, 200*time.Millisecond, p.InterRequestDelay)
}

func TestLookupProfileUnknown(t *testing.T) {
	_, err := LookupProfile("ludicrous")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ludicrous")
	assert.Contains(t, err.Error(), "balanced")
}

func TestProfileNamesSorted(t *testing.T) {
	assert.Equal(t, []string{"aggressive", "balanced", "conservative", "stealth"}, ProfileNames())
}

func TestProfileOptions(t *testing.T) {
	p, err := LookupProfile("stealth")
	require.NoError(t, err)

	retry := BackoffPolicy{MaxRetries: 2, Base: 500 * time.Millisecond}
	opts := p.Options(retry)

	assert.Equal(t, 2, opts.MaxConcurrency)
	assert.Equal(t, 500*time.Millisecond, opts.InterRequestDelay)
	assert.Equal(t, retry, opts.Retry)
	assert.False(t, opts.Forced)
}

func TestUnitKeyString(t *testing.T) {
	assert.Equal(t, "TEX/MLB", UnitKey{"TEX", "MLB"}.String())
	assert.Equal(t, "2025-04-11", UnitKey{"2025-04-11"}.String())
}
