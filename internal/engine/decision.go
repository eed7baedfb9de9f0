package engine

import (
	"fmt"

	"github.com/dugoutdata/dugout/internal/canonical"
	"github.com/dugoutdata/dugout/internal/hashstore"
)

// Decision is the outcome of comparing a fresh hash against the stored one
type Decision int

const (
	// Skip means the stored artifact is still valid and nothing is written
	Skip Decision = iota

	// Update means the artifact and sidecar must be rewritten
	Update
)

// String returns a human-readable decision name
func (d Decision) String() string {
	if d == Update {
		return "update"
	}
	return "skip"
}

// Decide compares a freshly computed content hash against the prior sidecar
// record and returns the decision with a human-readable reason. Pure
// function, no I/O: this is the single place "what counts as a change" lives.
func Decide(freshHash string, prior *hashstore.Record, forced bool) (Decision, string) {
	if forced {
		return Update, "forced"
	}

	if prior == nil {
		return Update, "no prior record"
	}

	if freshHash == prior.ContentHash {
		return Skip, "hash unchanged"
	}

	return Update, fmt.Sprintf("hash changed: %s -> %s",
		canonical.ShortPrefix(prior.ContentHash), canonical.ShortPrefix(freshHash))
}
