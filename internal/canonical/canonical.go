// Package canonical computes deterministic content hashes for JSON-shaped
// records. Records are normalized to a tagged tree, volatile fields are
// stripped, and the remainder is serialized with sorted keys before hashing,
// so two logically equal records always produce the same digest regardless of
// field insertion order.
package canonical

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// ShortHashLen is the prefix length used in reason strings and display output.
// Sidecar files always store the full digest.
const ShortHashLen = 8

// FieldPath addresses a field to exclude before hashing. Segments are joined
// with dots; a segment ending in "[]" descends into every element of the
// array at that key, e.g. "players[].loaddate" or
// "metadata.collection_timestamp".
type FieldPath string

func (p FieldPath) segments() []string {
	return strings.Split(string(p), ".")
}

// Hasher computes content hashes with a fixed set of volatile field paths
type Hasher struct {
	volatile []FieldPath
}

// NewHasher creates a hasher that strips the given volatile field paths
func NewHasher(volatile ...FieldPath) *Hasher {
	return &Hasher{volatile: volatile}
}

// Hash returns the full SHA-256 hex digest of the record after volatile-field
// stripping and canonical serialization. Records that cannot be serialized
// (NaN, Inf, cycles, unsupported types) fail with a MalformedRecordError.
func (h *Hasher) Hash(record interface{}) (string, error) {
	tree, err := Normalize(record)
	if err != nil {
		return "", err
	}

	for _, path := range h.volatile {
		stripPath(tree, path.segments())
	}

	// encoding/json sorts map keys and emits compact output, which gives us
	// the canonical byte form for free once the tree is map-and-slice shaped
	data, err := json.Marshal(tree)
	if err != nil {
		return "", &MalformedRecordError{Reason: "canonical serialization failed", Cause: err}
	}

	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// Normalize converts an arbitrary record into a tagged tree of
// map[string]interface{}, []interface{}, json.Number, string, bool, and nil.
// Numbers pass through json.Number so float formatting never perturbs the
// digest.
func Normalize(record interface{}) (interface{}, error) {
	data, err := json.Marshal(record)
	if err != nil {
		return nil, &MalformedRecordError{Reason: "record is not JSON-serializable", Cause: err}
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var tree interface{}
	if err := dec.Decode(&tree); err != nil {
		return nil, &MalformedRecordError{Reason: "record normalization failed", Cause: err}
	}

	return tree, nil
}

// ShortPrefix returns the display prefix of a full hash
func ShortPrefix(hash string) string {
	if len(hash) <= ShortHashLen {
		return hash
	}
	return hash[:ShortHashLen]
}

// stripPath removes the addressed field from the tree in place. Missing
// intermediate keys are ignored; a volatile path that does not exist in a
// given record is not an error.
func stripPath(node interface{}, segs []string) {
	if len(segs) == 0 {
		return
	}

	obj, ok := node.(map[string]interface{})
	if !ok {
		return
	}

	seg := segs[0]

	if key, wildcard := strings.CutSuffix(seg, "[]"); wildcard {
		arr, ok := obj[key].([]interface{})
		if !ok {
			return
		}
		if len(segs) == 1 {
			// "players[]" with no trailing segment strips the array itself
			delete(obj, key)
			return
		}
		for _, elem := range arr {
			stripPath(elem, segs[1:])
		}
		return
	}

	if len(segs) == 1 {
		delete(obj, seg)
		return
	}

	stripPath(obj[seg], segs[1:])
}

// MalformedRecordError indicates a fetched record could not be canonically
// serialized. Retrying cannot fix a structural problem, so the engine treats
// this as terminal for the unit.
type MalformedRecordError struct {
	Reason string
	Cause  error
}

// Error implements the error interface
func (e *MalformedRecordError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("malformed record: %s: %v", e.Reason, e.Cause)
	}
	return fmt.Sprintf("malformed record: %s", e.Reason)
}

// Unwrap returns the underlying error for error unwrapping
func (e *MalformedRecordError) Unwrap() error {
	return e.Cause
}
