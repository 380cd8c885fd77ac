package execution

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/lightchain-engine/pte/pkg/access"
	"github.com/lightchain-engine/pte/pkg/depgraph"
	"github.com/lightchain-engine/pte/pkg/scheduler"
	"github.com/lightchain-engine/pte/pkg/snapshot"
)

// ExecutorFunc is the injected EVM-style executor: given a transaction and
// a state view, it runs the transaction to completion and reports whether
// it succeeded, how much gas it used, and its output. A non-nil error
// signals an executor-level fault (panic, non-deterministic failure) rather
// than an ordinary business rejection — return success=false for that.
type ExecutorFunc func(ctx context.Context, tx Transaction, view snapshot.View) (success bool, gasUsed uint64, output []byte, err error)

// Executor is the Parallel Executor: it owns the worker pool for the
// duration of one ExecuteBatch call and produces a BatchOutcome whose final
// state is equivalent to strict serial execution in original order.
type Executor struct {
	cfg *Config
}

// New returns an Executor configured by cfg. A nil cfg selects
// DefaultConfig.
func New(cfg *Config) *Executor {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Executor{cfg: cfg}
}

// ExecuteBatch drives the full pipeline described in spec.md §4.5: an
// optional optimistic prepass to harvest access sets, dependency graph
// construction, wave-by-wave dispatch with ascending-TxIndex commit
// serialization, and a per-wave serial fallback queue for losers. It
// returns a BatchOutcome ordered by TxIndex, or a batch-level error
// (ErrInvalidInput, ErrEngineCorruption) if the call cannot proceed or
// detects an unrecoverable invariant violation.
func (e *Executor) ExecuteBatch(ctx context.Context, batch []Transaction, base *snapshot.Manager, run ExecutorFunc) (BatchOutcome, error) {
	if base == nil || run == nil {
		return BatchOutcome{}, ErrInvalidInput
	}
	cfg := e.cfg.normalized()
	runID := uuid.NewString()

	n := len(batch)
	if n == 0 {
		return BatchOutcome{Stats: Stats{RunID: runID}}, nil
	}

	start := time.Now()
	pool := newWorkerPool(cfg.MaxParallelism)

	results := make([]ExecutionResult, n)
	durations := make([]time.Duration, n)

	var schedule scheduler.Schedule
	if cfg.RunOptimisticPrepass {
		entries := e.prepass(ctx, batch, base, run, cfg, pool)
		graph := depgraph.Build(entries)
		schedule = scheduler.Build(graph, n, cfg.WaveSizeCap)
	} else {
		schedule = naiveSchedule(n, cfg.WaveSizeCap)
	}

	conflictCount := 0
	waveCount := 0

	for waveIdx, wave := range schedule {
		waveCount++
		if cfg.Hooks.OnWaveStart != nil {
			cfg.Hooks.OnWaveStart(waveIdx, len(wave))
		}
		log.Debug("dispatching wave", "run", runID, "wave", waveIdx, "size", len(wave))

		overlays := make([]*snapshot.Overlay, n)
		attemptErr := make([]error, n)
		attemptSuccess := make([]bool, n)
		attemptGas := make([]uint64, n)
		attemptOutput := make([][]byte, n)

		g, gctx := errgroup.WithContext(ctx)
		for _, txIdx := range wave {
			txIdx := txIdx
			g.Go(func() error {
				wid := pool.acquire()
				tracker := access.New(cfg.AccessSetCap)
				overlay := base.Child(tracker)
				success, gasUsed, output, err, dur := runAttempt(gctx, run, batch[txIdx], overlay)
				pool.release(wid, dur)

				overlays[txIdx] = overlay
				attemptErr[txIdx] = err
				attemptSuccess[txIdx] = success
				attemptGas[txIdx] = gasUsed
				attemptOutput[txIdx] = output
				durations[txIdx] = dur
				return nil
			})
		}
		_ = g.Wait() // task errors are carried per-tx in attemptErr, never returned from Go()

		var fallbackQueue []int

		for _, txIdx := range wave {
			overlay := overlays[txIdx]

			switch {
			case attemptErr[txIdx] != nil:
				fallbackQueue = append(fallbackQueue, txIdx)
				e.recordFallback(cfg, txIdx, ReasonExecutorError)

			case overlay.Overflowed():
				fallbackQueue = append(fallbackQueue, txIdx)
				e.recordFallback(cfg, txIdx, ReasonAccessSetOverflow)

			case revalidateReads(base, overlay):
				// Re-check this first, even for an attempt the executor
				// itself rejected: a business rejection reached through
				// stale reads is just as much a late conflict as a stale
				// write would be, and must not become the final answer.
				conflictCount++
				fallbackQueue = append(fallbackQueue, txIdx)
				e.recordFallback(cfg, txIdx, ReasonLateConflict)

			case !attemptSuccess[txIdx]:
				// ExecutorRejected: the injected executor itself declined
				// the transaction. No writes ever touch canonical state.
				results[txIdx] = ExecutionResult{
					TxIndex: txIdx, Success: false,
					GasUsed: attemptGas[txIdx], Output: attemptOutput[txIdx],
					Access: overlay.AccessSet(), Committed: true,
				}
				e.recordCommit(cfg, txIdx, true)

			default:
				if err := base.Commit(overlay); err != nil {
					conflictCount++
					fallbackQueue = append(fallbackQueue, txIdx)
					e.recordFallback(cfg, txIdx, ReasonStaleOverlay)
					continue
				}
				results[txIdx] = ExecutionResult{
					TxIndex: txIdx, Success: true,
					GasUsed: attemptGas[txIdx], Output: attemptOutput[txIdx],
					Access: overlay.AccessSet(), Committed: true,
				}
				e.recordCommit(cfg, txIdx, true)
			}
		}

		// Drain this wave's fallback queue strictly in TxIndex order
		// against the now-updated canonical state before the next wave
		// begins — spec.md §5's cross-wave happens-before guarantee.
		for _, txIdx := range fallbackQueue {
			res, dur, err := e.runFallback(ctx, run, txIdx, batch[txIdx], base, cfg)
			if err != nil {
				return BatchOutcome{}, err
			}
			results[txIdx] = res
			durations[txIdx] = dur
			e.recordCommit(cfg, txIdx, res.Committed)
		}
	}

	elapsed := time.Since(start)
	stats := Stats{
		RunID:             runID,
		WaveCount:         waveCount,
		TotalTxs:          n,
		FallbackCount:     fallbackCount(results),
		ConflictCount:     conflictCount,
		WorkerUtilization: pool.utilization(elapsed),
	}
	if elapsed > 0 {
		stats.EstimatedSpeedup = float64(sumDurations(durations)) / float64(elapsed)
	}
	if cfg.Hooks.OnBatchComplete != nil {
		cfg.Hooks.OnBatchComplete(stats)
	}
	log.Info("batch complete", "run", runID, "txs", n, "waves", waveCount, "fallbacks", stats.FallbackCount, "speedup", stats.EstimatedSpeedup)

	return BatchOutcome{Results: results, Stats: stats}, nil
}

// prepass runs every transaction once against unmutated canonical state,
// purely to harvest access sets for dependency-graph construction. Results
// (success, gas, output, writes) are discarded: real execution happens
// fresh in the wave dispatch loop, since by the time most waves run,
// canonical state has already advanced past what the prepass saw.
func (e *Executor) prepass(ctx context.Context, batch []Transaction, base *snapshot.Manager, run ExecutorFunc, cfg *Config, pool *workerPool) []depgraph.Entry {
	entries := make([]depgraph.Entry, len(batch))
	g, gctx := errgroup.WithContext(ctx)
	for i, tx := range batch {
		i, tx := i, tx
		g.Go(func() error {
			wid := pool.acquire()
			tracker := access.New(cfg.AccessSetCap)
			overlay := base.Child(tracker)
			_, _, _, _, dur := runAttempt(gctx, run, tx, overlay)
			pool.release(wid, dur)
			entries[i] = depgraph.Entry{TxIndex: i, Set: tracker.Set()}
			return nil
		})
	}
	_ = g.Wait()
	return entries
}

// runFallback re-executes tx serially against the current canonical state.
// Per spec.md §7, each transaction may be fallbacked at most once per
// batch — this is that one attempt. A failure here (executor error or
// access-set overflow, which would be deterministic so a retry cannot
// help) is recorded as ExecutorRejected rather than tried again.
func (e *Executor) runFallback(ctx context.Context, run ExecutorFunc, txIdx int, tx Transaction, base *snapshot.Manager, cfg *Config) (ExecutionResult, time.Duration, error) {
	tracker := access.New(cfg.AccessSetCap)
	overlay := base.Child(tracker)
	success, gasUsed, output, err, dur := runAttempt(ctx, run, tx, overlay)

	if err != nil || overlay.Overflowed() {
		return ExecutionResult{
			TxIndex: txIdx, Success: false, GasUsed: gasUsed, Output: output,
			Access: overlay.AccessSet(), Committed: true,
			Fallback: true, Reason: ReasonExecutorError, Err: err,
		}, dur, nil
	}

	if !success {
		return ExecutionResult{
			TxIndex: txIdx, Success: false, GasUsed: gasUsed, Output: output,
			Access: overlay.AccessSet(), Committed: true, Fallback: true,
		}, dur, nil
	}

	// Serial re-execution races nothing: no concurrent overlay can have
	// advanced canonical state underneath this one, so a stale-overlay
	// failure here means the manager's own invariants broke.
	if err := base.Commit(overlay); err != nil {
		return ExecutionResult{}, dur, fmt.Errorf("%w: fallback commit for tx %d: %v", ErrEngineCorruption, txIdx, err)
	}

	return ExecutionResult{
		TxIndex: txIdx, Success: true, GasUsed: gasUsed, Output: output,
		Access: overlay.AccessSet(), Committed: true, Fallback: true,
	}, dur, nil
}

func (e *Executor) recordFallback(cfg *Config, txIdx int, reason FallbackReason) {
	if cfg.Hooks.OnFallback != nil {
		cfg.Hooks.OnFallback(txIdx, reason)
	}
}

func (e *Executor) recordCommit(cfg *Config, txIdx int, ok bool) {
	if cfg.Hooks.OnTxCommit != nil {
		cfg.Hooks.OnTxCommit(txIdx, ok)
	}
}

// runAttempt executes run with panic recovery, turning a panic into an
// ExecutorError rather than letting it escape the worker pool.
func runAttempt(ctx context.Context, run ExecutorFunc, tx Transaction, view snapshot.View) (success bool, gasUsed uint64, output []byte, err error, dur time.Duration) {
	start := time.Now()
	defer func() {
		dur = time.Since(start)
		if r := recover(); r != nil {
			success = false
			err = fmt.Errorf("execution: executor panicked: %v", r)
		}
	}()
	success, gasUsed, output, err = run(ctx, tx, view)
	return
}

// revalidateReads re-reads every location overlay observed via fallthrough
// to canonical state and compares it against what the attempt actually
// saw. A mismatch means some other transaction committed a conflicting
// write after this overlay forked but the staleness check on writes alone
// wouldn't catch it — e.g. the overlay only read the location, as in
// spec.md Scenario D.
func revalidateReads(base *snapshot.Manager, overlay *snapshot.Overlay) bool {
	for loc, observed := range overlay.ObservedReads() {
		current, _ := base.Get(loc)
		if !reflect.DeepEqual(observed, current) {
			return true
		}
	}
	return false
}

// naiveSchedule is used when the optimistic prepass is disabled: with no
// harvested access sets there is no dependency graph to level, so
// transactions are grouped into wave-size-cap chunks in original order and
// any real conflicts are caught by commit-time revalidation instead of
// being avoided up front.
func naiveSchedule(n, waveSizeCap int) scheduler.Schedule {
	if waveSizeCap <= 0 {
		waveSizeCap = scheduler.DefaultWaveSizeCap
	}
	sched := make(scheduler.Schedule, 0, (n+waveSizeCap-1)/waveSizeCap)
	for start := 0; start < n; start += waveSizeCap {
		end := start + waveSizeCap
		if end > n {
			end = n
		}
		wave := make(scheduler.Wave, end-start)
		for i := start; i < end; i++ {
			wave[i-start] = i
		}
		sched = append(sched, wave)
	}
	return sched
}

func fallbackCount(results []ExecutionResult) int {
	n := 0
	for _, r := range results {
		if r.Fallback {
			n++
		}
	}
	return n
}

func sumDurations(ds []time.Duration) time.Duration {
	var total time.Duration
	for _, d := range ds {
		total += d
	}
	return total
}
