// Package execution implements the Parallel Executor: the top-level
// component that drives the scheduler, dispatches waves onto a worker pool,
// detects optimistic-execution conflicts, re-executes the losers serially,
// and emits results in original transaction order.
package execution

import (
	"errors"

	"github.com/lightchain-engine/pte/pkg/access"
)

// ErrInvalidInput is returned by ExecuteBatch when its preconditions are
// violated: a nil state handle or a nil executor function. Configuration
// is not rejected; non-positive numeric options are replaced by defaults.
var ErrInvalidInput = errors.New("execution: invalid input")

// ErrEngineCorruption is returned by ExecuteBatch when it detects a
// Snapshot Manager invariant violation it cannot recover from — e.g. a
// commit failing during the single-threaded serial fallback phase, where no
// concurrent writer could legitimately have raced it. It is fatal and no
// BatchOutcome is returned with it. Canonical state is not rolled back:
// commits made by earlier transactions of the batch remain in place.
var ErrEngineCorruption = errors.New("execution: engine corruption")

// Transaction is opaque to the engine; it is stored by reference alongside
// its TxIndex and handed to the injected executor unmodified.
type Transaction = any

// FallbackReason records why a transaction was routed to serial re-execution.
type FallbackReason string

const (
	ReasonAccessSetOverflow FallbackReason = "access_set_overflow"
	ReasonStaleOverlay      FallbackReason = "stale_overlay"
	ReasonLateConflict      FallbackReason = "late_conflict"
	ReasonExecutorError     FallbackReason = "executor_error"
)

// ExecutionResult is the outcome of one transaction's terminal attempt.
// Fields mirror spec.md §3 exactly: tx_index, success, gas_used, output,
// read_set, write_set, committed.
type ExecutionResult struct {
	TxIndex   int
	Success   bool
	GasUsed   uint64
	Output    []byte
	Access    access.Set
	Committed bool

	// Fallback records whether this result came from serial re-execution,
	// for the ExecutorRejected/FallbackExecuted distinction in spec.md §7.
	// Reason is set (to ReasonExecutorError) only when the fallback attempt
	// itself failed with an executor error or an access-set overflow; it
	// does not record why the transaction was sent to fallback, which is
	// reported through Hooks.OnFallback instead.
	Fallback bool
	Reason   FallbackReason
	Err      error
}

// Stats are the aggregate counters spec.md §3/§6 requires: wave count,
// speedup estimate, conflict count, fallbacks.
type Stats struct {
	RunID             string
	WaveCount         int
	TotalTxs          int
	FallbackCount     int
	ConflictCount     int
	EstimatedSpeedup  float64
	WorkerUtilization map[int]float64
}

// BatchOutcome is the ordered vector of ExecutionResults, one per input
// transaction, plus the aggregate Stats.
type BatchOutcome struct {
	Results []ExecutionResult
	Stats   Stats
}
