package engine

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/dugoutdata/dugout/internal/canonical"
)

// UnitKey identifies one addressable piece of remote data kept in sync, e.g.
// ("TEX", "MLB") for a team roster or ("2025-04-11") for a date's box scores.
type UnitKey []string

// String returns the display form of the key
func (k UnitKey) String() string {
	return strings.Join(k, "/")
}

// SyncOptions carries all tunables for one batch run. Always passed by value;
// there is no process-wide mutable state beyond the named profile table below.
type SyncOptions struct {
	// Bounded worker count
	MaxConcurrency int

	// Minimum spacing applied after each completed unit per worker slot, so
	// aggregate request rate stays near MaxConcurrency / InterRequestDelay
	InterRequestDelay time.Duration

	// Retry policy for transient fetch failures
	Retry BackoffPolicy

	// Per-attempt fetch timeout
	FetchTimeout time.Duration

	// Field paths stripped before hashing
	VolatileFields []canonical.FieldPath

	// Forced makes every unit an Update regardless of stored hashes
	Forced bool

	// Clock abstraction for delays and backoff; nil means the real clock.
	// Tests inject a fake so retry timing is verified without real sleeps.
	Clock clockwork.Clock

	// OnProgress, when set, is invoked after every completed unit
	OnProgress func(Progress)
}

// BackoffPolicy is an explicit, independently testable retry policy:
// Base * 2^attempt between attempts, up to MaxRetries retries.
type BackoffPolicy struct {
	MaxRetries int
	Base       time.Duration
}

// Delay returns the wait before the retry following the given zero-based
// failed attempt
func (p BackoffPolicy) Delay(attempt int) time.Duration {
	return p.Base * (1 << attempt)
}

// clock returns the configured clock or the real one
func (o *SyncOptions) clock() clockwork.Clock {
	if o.Clock != nil {
		return o.Clock
	}
	return clockwork.NewRealClock()
}

// Profile is a named performance preset: worker count against request
// spacing. Presets exist purely to construct SyncOptions; they are never
// mutated at runtime.
type Profile struct {
	Name              string
	MaxConcurrency    int
	InterRequestDelay time.Duration
	FetchTimeout      time.Duration
}

var profiles = map[string]Profile{
	"stealth":      {Name: "stealth", MaxConcurrency: 2, InterRequestDelay: 500 * time.Millisecond, FetchTimeout: 30 * time.Second},
	"conservative": {Name: "conservative", MaxConcurrency: 4, InterRequestDelay: 300 * time.Millisecond, FetchTimeout: 30 * time.Second},
	"balanced":     {Name: "balanced", MaxConcurrency: 8, InterRequestDelay: 200 * time.Millisecond, FetchTimeout: 30 * time.Second},
	"aggressive":   {Name: "aggressive", MaxConcurrency: 16, InterRequestDelay: 50 * time.Millisecond, FetchTimeout: 30 * time.Second},
}

// LookupProfile returns the named performance profile
func LookupProfile(name string) (Profile, error) {
	p, ok := profiles[name]
	if !ok {
		return Profile{}, fmt.Errorf("unknown performance profile %q (available: %s)", name, strings.Join(ProfileNames(), ", "))
	}
	return p, nil
}

// ProfileNames returns the available profile names in sorted order
func ProfileNames() []string {
	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Options converts a profile into SyncOptions with the given retry policy
func (p Profile) Options(retry BackoffPolicy) SyncOptions {
	return SyncOptions{
		MaxConcurrency:    p.MaxConcurrency,
		InterRequestDelay: p.InterRequestDelay,
		FetchTimeout:      p.FetchTimeout,
		Retry:             retry,
	}
}
