// Package control implements the engine's operator-facing control surface:
// enable_parallel_execution, get_parallel_stats, and
// estimate_parallel_improvement from spec.md §6, as a plain Go API rather
// than a transport-bound RPC service — the embedding node wires these onto
// whatever RPC surface it already runs.
package control

import (
	"context"
	"sync"

	"github.com/lightchain-engine/pte/pkg/depgraph"
	"github.com/lightchain-engine/pte/pkg/execution"
	"github.com/lightchain-engine/pte/pkg/scheduler"
	"github.com/lightchain-engine/pte/pkg/snapshot"
)

// CumulativeStats accumulates execution.Stats across every ExecuteBatch call
// routed through a Controller: batches executed, total txs, total
// fallbacks, and the running averages get_parallel_stats reports.
type CumulativeStats struct {
	BatchesExecuted  int
	TotalTxs         int
	TotalFallbacks   int
	AverageWaveCount float64
	AverageSpeedup   float64

	waveCountSum float64
	speedupSum   float64
}

// EstimateResult is the projected outcome of estimate_parallel_improvement:
// dependency analysis alone, with no transaction actually executed and no
// state touched.
type EstimateResult struct {
	TxCount          int
	ProjectedWaves   int
	ProjectedSpeedup float64
}

// Controller wraps a Parallel Executor with the enable/disable toggle and
// cumulative accounting spec.md §6 names. It is safe for concurrent use.
type Controller struct {
	mu      sync.Mutex
	enabled bool
	cfg     *execution.Config
	stats   CumulativeStats
}

// NewController returns a Controller in the enabled state, using cfg for
// every ExecuteBatch call it routes. A nil cfg selects execution.DefaultConfig.
func NewController(cfg *execution.Config) *Controller {
	if cfg == nil {
		cfg = execution.DefaultConfig()
	}
	return &Controller{enabled: true, cfg: cfg}
}

// SetEnabled realizes enable_parallel_execution(bool). Disabling does not
// stop in-flight calls; it only changes how the next ExecuteBatch call runs.
func (c *Controller) SetEnabled(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enabled = enabled
}

// Enabled reports the current toggle state.
func (c *Controller) Enabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled
}

// ExecuteBatch runs batch through the Parallel Executor when enabled. When
// disabled, it forces deterministic_single_thread_mode so the batch still
// executes, strictly serially, rather than refusing the call — correctness
// on the disabled path costs nothing since it is never the parallel one.
// Either way, the resulting Stats feed the cumulative counters Stats
// returns.
func (c *Controller) ExecuteBatch(ctx context.Context, batch []execution.Transaction, base *snapshot.Manager, run execution.ExecutorFunc) (execution.BatchOutcome, error) {
	c.mu.Lock()
	runCfg := *c.cfg
	if !c.enabled {
		runCfg.DeterministicSingleThreadMode = true
	}
	c.mu.Unlock()

	outcome, err := execution.New(&runCfg).ExecuteBatch(ctx, batch, base, run)
	if err != nil {
		return outcome, err
	}

	c.record(outcome.Stats)
	return outcome, nil
}

func (c *Controller) record(s execution.Stats) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats.BatchesExecuted++
	c.stats.TotalTxs += s.TotalTxs
	c.stats.TotalFallbacks += s.FallbackCount
	c.stats.waveCountSum += float64(s.WaveCount)
	c.stats.speedupSum += s.EstimatedSpeedup
	n := float64(c.stats.BatchesExecuted)
	c.stats.AverageWaveCount = c.stats.waveCountSum / n
	c.stats.AverageSpeedup = c.stats.speedupSum / n
}

// Stats realizes get_parallel_stats: a snapshot of the cumulative counters
// accumulated across every ExecuteBatch call this Controller has routed.
func (c *Controller) Stats() CumulativeStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// EstimateImprovement realizes estimate_parallel_improvement: it runs
// already-harvested access-set entries through the Dependency Graph Builder
// and Batch Scheduler alone, with no executor call and no state mutation,
// and projects the wave count and theoretical speedup a real ExecuteBatch
// call over the same batch would achieve.
func (c *Controller) EstimateImprovement(entries []depgraph.Entry) EstimateResult {
	c.mu.Lock()
	waveSizeCap := c.cfg.WaveSizeCap
	c.mu.Unlock()
	if waveSizeCap <= 0 {
		waveSizeCap = scheduler.DefaultWaveSizeCap
	}

	n := len(entries)
	if n == 0 {
		return EstimateResult{}
	}

	graph := depgraph.Build(entries)
	sched := scheduler.Build(graph, n, waveSizeCap)

	speedup := 1.0
	if len(sched) > 0 {
		speedup = float64(n) / float64(len(sched))
	}

	return EstimateResult{
		TxCount:          n,
		ProjectedWaves:   len(sched),
		ProjectedSpeedup: speedup,
	}
}
