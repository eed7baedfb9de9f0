// Package collector contains the concrete data collectors. Each collector
// enumerates its sync units, fetches raw records over HTTP, and declares the
// volatile fields the engine must strip before hashing. The engine never
// knows about any of this; collectors are injected as fetch functions.
package collector

import (
	"context"
	"net/http"
	"time"

	"github.com/dugoutdata/dugout/internal/canonical"
	"github.com/dugoutdata/dugout/internal/engine"
)

const userAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/139.0.0.0 Safari/537.36"

// Collector is the contract a concrete collector fulfills toward the driver
type Collector interface {
	// Name is the collector namespace, used for hash and artifact layout
	Name() string

	// Units enumerates every sync unit this collector is responsible for
	Units(ctx context.Context) ([]engine.UnitKey, error)

	// Fetch retrieves the raw record for one unit. Retryability is signaled
	// through engine.FetchError's Transient flag.
	Fetch(ctx context.Context, key engine.UnitKey) (interface{}, error)

	// VolatileFields lists field paths excluded from content hashing
	VolatileFields() []canonical.FieldPath

	// ArtifactPath maps a unit key to its root-relative artifact path
	ArtifactPath(key engine.UnitKey) string
}

// newHTTPClient returns the shared client configuration for collectors.
// Per-attempt timeouts come from the engine's context, so no client-level
// timeout is set here.
func newHTTPClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        32,
			MaxIdleConnsPerHost: 8,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// classifyHTTPStatus converts an unexpected response status into the proper
// fetch error class: 5xx and 429 may succeed on retry, anything else in the
// 4xx range means the request itself is wrong and retrying cannot help.
func classifyHTTPStatus(status int, url string) error {
	if status >= 500 || status == http.StatusTooManyRequests {
		return engine.NewTransientFetchError("server error "+http.StatusText(status)+" from "+url, nil)
	}
	return engine.NewPermanentFetchError("unexpected status "+http.StatusText(status)+" from "+url, nil)
}
