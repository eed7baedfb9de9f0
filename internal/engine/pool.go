// Package engine implements the hash-gated incremental synchronization core:
// a bounded worker pool that fetches each unit, hashes the result with
// volatile fields stripped, compares against the stored sidecar, and persists
// artifact plus sidecar only when the content actually changed.
package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/dugoutdata/dugout/internal/artifact"
	"github.com/dugoutdata/dugout/internal/canonical"
	"github.com/dugoutdata/dugout/internal/hashstore"
	"github.com/dugoutdata/dugout/internal/logger"
)

// FetchFunc retrieves the raw record for one unit. Implementations signal
// retryability through FetchError's Transient flag.
type FetchFunc func(ctx context.Context, key UnitKey) (interface{}, error)

// Pool runs the decide/fetch/persist cycle for batches of units with bounded
// concurrency. Workers share no mutable state except the outcome aggregate,
// which is guarded by a mutex; sidecar and artifact paths are unique per unit
// key, so file access is contention-free by construction.
type Pool struct {
	hashes    *hashstore.Store
	artifacts *artifact.Store
	pathFor   func(UnitKey) string
	logger    *logger.Logger
}

// NewPool creates a worker pool bound to a hash store, an artifact store, and
// a function mapping unit keys to root-relative artifact paths
func NewPool(hashes *hashstore.Store, artifacts *artifact.Store, pathFor func(UnitKey) string) *Pool {
	return &Pool{
		hashes:    hashes,
		artifacts: artifacts,
		pathFor:   pathFor,
		logger:    logger.GetLogger().Engine(),
	}
}

// Run executes the full sync cycle for every unit and returns the aggregated
// outcome. Individual unit failures never abort the batch; only systemic
// problems (no fetcher, unusable hash directory) return an error. Cancelling
// the context stops dispatch of new units while in-flight units finish their
// current attempt.
func (p *Pool) Run(ctx context.Context, units []UnitKey, fetch FetchFunc, opts SyncOptions) (*BatchOutcome, error) {
	if fetch == nil {
		return nil, fmt.Errorf("no fetch function provided")
	}
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = 1
	}
	if err := p.hashes.EnsureDir(); err != nil {
		return nil, err
	}

	clock := opts.clock()
	hasher := canonical.NewHasher(opts.VolatileFields...)

	outcome := &BatchOutcome{Started: clock.Now()}
	var mu sync.Mutex

	record := func(u UnitOutcome) {
		mu.Lock()
		defer mu.Unlock()

		switch u.Status {
		case StatusUpdated:
			outcome.Updated++
		case StatusSkipped:
			outcome.Skipped++
		case StatusFailed:
			outcome.Failed++
		}
		outcome.Units = append(outcome.Units, u)

		if opts.OnProgress != nil {
			opts.OnProgress(Progress{
				Done:    len(outcome.Units),
				Total:   len(units),
				Updated: outcome.Updated,
				Skipped: outcome.Skipped,
				Failed:  outcome.Failed,
				Elapsed: clock.Now().Sub(outcome.Started),
			})
		}
	}

	jobs := make(chan UnitKey)
	var wg sync.WaitGroup

	for i := 0; i < opts.MaxConcurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for key := range jobs {
				record(p.processUnit(ctx, key, fetch, hasher, opts))

				// Rate limit per worker slot: spacing applies after each
				// completed unit, not per dispatch
				if opts.InterRequestDelay > 0 && ctx.Err() == nil {
					select {
					case <-clock.After(opts.InterRequestDelay):
					case <-ctx.Done():
					}
				}
			}
		}()
	}

dispatch:
	for _, key := range units {
		select {
		case jobs <- key:
		case <-ctx.Done():
			mu.Lock()
			outcome.Cancelled = true
			mu.Unlock()
			break dispatch
		}
	}
	close(jobs)
	wg.Wait()

	outcome.Finished = clock.Now()

	p.logger.Info().
		Str("namespace", p.hashes.Namespace()).
		Int("updated", outcome.Updated).
		Int("skipped", outcome.Skipped).
		Int("failed", outcome.Failed).
		Bool("cancelled", outcome.Cancelled).
		Dur("duration", outcome.Finished.Sub(outcome.Started)).
		Msg("Batch completed")

	return outcome, nil
}

// processUnit runs the fetch -> hash -> decide -> persist cycle for one unit
// to its terminal state
func (p *Pool) processUnit(ctx context.Context, key UnitKey, fetch FetchFunc, hasher *canonical.Hasher, opts SyncOptions) UnitOutcome {
	rec, err := p.fetchWithRetry(ctx, key, fetch, opts)
	if err != nil {
		p.logger.Warn().Err(err).Str("unit", key.String()).Msg("Fetch failed")
		return UnitOutcome{Key: key, Status: StatusFailed, Reason: "fetch failed", Err: err}
	}

	freshHash, err := hasher.Hash(rec)
	if err != nil {
		// Structural problem; retrying cannot fix it
		p.logger.Warn().Err(err).Str("unit", key.String()).Msg("Record could not be hashed")
		return UnitOutcome{Key: key, Status: StatusFailed, Reason: "malformed record", Err: err}
	}

	prior := p.hashes.Load(key)

	decision, reason := Decide(freshHash, prior, opts.Forced)
	if decision == Skip {
		p.logger.Debug().Str("unit", key.String()).Str("reason", reason).Msg("Skipping unit")
		return UnitOutcome{Key: key, Status: StatusSkipped, Reason: reason}
	}

	rel := p.pathFor(key)
	size, err := p.artifacts.Write(rel, rec)
	if err != nil {
		// A successful fetch that cannot be durably stored is not a success
		p.logger.Error().Err(err).Str("unit", key.String()).Msg("Artifact write failed")
		return UnitOutcome{Key: key, Status: StatusFailed, Reason: "artifact write failed", Err: err}
	}

	if err := p.hashes.Save(key, freshHash, size, p.artifacts.Abs(rel)); err != nil {
		// The artifact is safely on disk; a stale sidecar only costs one
		// extra re-fetch next run, so this downgrades to a warning
		p.logger.Warn().Err(err).Str("unit", key.String()).Msg("Hash sidecar write failed, next run will re-fetch")
	}

	p.logger.Debug().Str("unit", key.String()).Str("reason", reason).Msg("Updated unit")
	return UnitOutcome{Key: key, Status: StatusUpdated, Reason: reason}
}

// fetchWithRetry calls the fetcher with a per-attempt timeout, retrying
// transient failures with exponential backoff. Batch cancellation suppresses
// further retries but never interrupts an attempt already in flight.
func (p *Pool) fetchWithRetry(ctx context.Context, key UnitKey, fetch FetchFunc, opts SyncOptions) (interface{}, error) {
	clock := opts.clock()

	var lastErr error
	for attempt := 0; ; attempt++ {
		attemptCtx := context.WithoutCancel(ctx)
		if opts.FetchTimeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(attemptCtx, opts.FetchTimeout)
			rec, err := fetch(attemptCtx, key)
			cancel()
			if err == nil {
				return rec, nil
			}
			lastErr = err
		} else {
			rec, err := fetch(attemptCtx, key)
			if err == nil {
				return rec, nil
			}
			lastErr = err
		}

		if !isTransient(lastErr) {
			return nil, lastErr
		}
		if attempt >= opts.Retry.MaxRetries {
			return nil, fmt.Errorf("all %d attempts failed: %w", attempt+1, lastErr)
		}
		if ctx.Err() != nil {
			return nil, lastErr
		}

		delay := opts.Retry.Delay(attempt)
		p.logger.Debug().
			Str("unit", key.String()).
			Int("attempt", attempt+1).
			Dur("backoff", delay).
			Err(lastErr).
			Msg("Retrying transient fetch failure")

		select {
		case <-clock.After(delay):
		case <-ctx.Done():
			return nil, lastErr
		}
	}
}
