package execution

import "runtime"

// Hooks are optional observation callbacks for operator tooling, per
// spec.md §6. Any of them may be nil; the executor checks before calling.
type Hooks struct {
	OnWaveStart     func(waveIndex, waveSize int)
	OnTxCommit      func(txIndex int, committedOk bool)
	OnFallback      func(txIndex int, reason FallbackReason)
	OnBatchComplete func(stats Stats)
}

// Config recognizes the options spec.md §4.5 names: max_parallelism,
// wave_size_cap, access_set_cap, run_optimistic_prepass, and
// deterministic_single_thread_mode.
type Config struct {
	MaxParallelism int
	WaveSizeCap    int
	AccessSetCap   int

	RunOptimisticPrepass          bool
	DeterministicSingleThreadMode bool

	Hooks Hooks
}

// DefaultConfig mirrors the teacher's DefaultParallelConfig shape: sized to
// the host's CPU count, prepass on, deterministic mode off.
func DefaultConfig() *Config {
	return &Config{
		MaxParallelism:                runtime.NumCPU(),
		WaveSizeCap:                   100,
		AccessSetCap:                  10_000,
		RunOptimisticPrepass:          true,
		DeterministicSingleThreadMode: false,
	}
}

// normalized returns a copy of cfg with non-positive numeric fields
// defaulted and deterministic_single_thread_mode's forced overrides applied:
// wave size 1, prepass disabled, max parallelism 1.
func (c *Config) normalized() *Config {
	out := *c
	if out.MaxParallelism <= 0 {
		out.MaxParallelism = runtime.NumCPU()
	}
	if out.WaveSizeCap <= 0 {
		out.WaveSizeCap = 100
	}
	if out.AccessSetCap <= 0 {
		out.AccessSetCap = 10_000
	}
	if out.DeterministicSingleThreadMode {
		out.WaveSizeCap = 1
		out.RunOptimisticPrepass = false
		out.MaxParallelism = 1
	}
	return &out
}
