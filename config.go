// Package parbench configuration constants
package parbench

import (
	"os"
	"strconv"
)

// Cache sizes for different levels (in bytes)
const (
	// L1 cache size per core (typical for modern CPUs)
	L1CacheSize = 32 * 1024 // 32KB

	// L2 cache size per core (typical for modern CPUs)
	L2CacheSize = 256 * 1024 // 256KB

	// L3 cache size (shared, typical for modern CPUs)
	L3CacheSize = 8 * 1024 * 1024 // 8MB

	// Cache line size used for padding per-thread state
	CacheLineSize = 64

	// Default size of a CacheFlusher, in bytes. 8x a typical L3 evicts most of it.
	CacheFlushSize = 8 * L3CacheSize
)

// Timing protocol defaults
const (
	// Warmup calls discarded before measuring
	DefaultWarmupIters = 3

	// Timed trials; the fastest one is kept
	DefaultTrialIters = 10
)

// Tolerance defaults for comparing parallel results against the reference
const (
	DefaultAbsTolerance = 1e-9
	DefaultRelTolerance = 1e-6
)

// Performance tuning parameters
const (
	// Tile edge for the blocked matrix multiply
	MatrixTileSize = 64

	// Base size below which the recursive matrix multiply stops splitting
	RecursiveBaseSize = 64

	// Inner steps of the lightest task of the tasks kernel
	TaskUnit = 256

	// Unroll factor for the default summation kernel
	LoopUnrollFactor = 4

	// Chunk size used by the dynamic+nowait matrix-vector variant
	DefaultDynamicChunk = 64
)

// Allocation limits
const (
	// Largest single buffer the harness will try to allocate
	MaxBufferBytes = 16 << 30 // 16GiB
)

// UnrollFactors lists the unroll factors SumUnrolled supports.
var UnrollFactors = []int{1, 2, 4, 8, 16, 32}

// TileSizes lists the tile edges swept by the tiling experiment.
var TileSizes = []int{16, 32, 64, 128}

// Environment overrides. Invalid values are ignored, as are non-positive
// ones except for PARBENCH_WARMUP, which may be zero.
const (
	EnvWarmup = "PARBENCH_WARMUP"
	EnvTrials = "PARBENCH_TRIALS"
	EnvTolAbs = "PARBENCH_TOL_ABS"
	EnvTolRel = "PARBENCH_TOL_REL"
)

// DefaultRunConfig returns a single-threaded static configuration with the
// timing protocol and tolerance resolved from the environment, falling back
// to the package defaults.
func DefaultRunConfig() RunConfig {
	return RunConfig{
		Threads:   1,
		Policy:    Static(0),
		Reduction: LocalMerge,
		Sync:      Barrier,
		Warmup:    envInt(EnvWarmup, DefaultWarmupIters, 0),
		Trials:    envInt(EnvTrials, DefaultTrialIters, 1),
		Tolerance: Tolerance{
			Abs: envFloat64(EnvTolAbs, DefaultAbsTolerance),
			Rel: envFloat64(EnvTolRel, DefaultRelTolerance),
		},
	}
}

func envFloat64(key string, def float64) float64 {
	if s := os.Getenv(key); s != "" {
		if v, err := strconv.ParseFloat(s, 64); err == nil && v > 0 {
			return v
		}
	}
	return def
}

func envInt(key string, def, least int) int {
	if s := os.Getenv(key); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v >= least {
			return v
		}
	}
	return def
}
