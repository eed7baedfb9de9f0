package engine

import "time"

// Status is the terminal state of one unit's sync cycle
type Status string

const (
	StatusUpdated Status = "updated"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

// UnitOutcome records the terminal state of one unit
type UnitOutcome struct {
	Key    UnitKey `json:"unit_key"`
	Status Status  `json:"status"`
	Reason string  `json:"reason,omitempty"`
	Err    error   `json:"-"`
}

// Progress is a point-in-time snapshot of a running batch
type Progress struct {
	Done    int
	Total   int
	Updated int
	Skipped int
	Failed  int
	Elapsed time.Duration
}

// BatchOutcome aggregates per-unit terminal states for one batch run.
// Counts are updated exactly once per unit. Constructed per run, never
// persisted by the engine itself.
type BatchOutcome struct {
	Updated   int
	Skipped   int
	Failed    int
	Cancelled bool
	Started   time.Time
	Finished  time.Time
	Units     []UnitOutcome
}

// Total returns the number of units that reached a terminal state
func (o *BatchOutcome) Total() int {
	return o.Updated + o.Skipped + o.Failed
}

// FailedUnits returns the outcomes of units that failed, for driver reporting
func (o *BatchOutcome) FailedUnits() []UnitOutcome {
	var failed []UnitOutcome
	for _, u := range o.Units {
		if u.Status == StatusFailed {
			failed = append(failed, u)
		}
	}
	return failed
}
