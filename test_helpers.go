package parbench

import (
	"testing"
)

// NewHarnessOrFail builds a harness and fails the test if unsuccessful. The
// harness is closed when the test ends.
func NewHarnessOrFail(t testing.TB, spec KernelSpec, opts ...Option) *Harness {
	t.Helper()
	h, err := NewHarness(spec, opts...)
	if err != nil {
		t.Fatalf("NewHarness(%s) failed: %v", spec.Label(), err)
	}
	t.Cleanup(func() { h.Close() })
	return h
}

// RunOrFail runs one configuration and fails the test on a fatal error.
// A tolerance failure is left on the report for the caller to inspect.
func RunOrFail(t testing.TB, h *Harness, cfg RunConfig) *Report {
	t.Helper()
	r, err := h.Run(cfg)
	if err != nil {
		t.Fatalf("Run(threads=%d, policy=%s, strategy=%s) failed: %v",
			cfg.Threads, cfg.Policy, cfg.Strategy(), err)
	}
	return r
}

// NewTeamOrFail creates a team and fails the test if unsuccessful
func NewTeamOrFail(t testing.TB, size int, opts ...TeamOption) *Team {
	t.Helper()
	team, err := NewTeam(size, opts...)
	if err != nil {
		t.Fatalf("NewTeam(%d) failed: %v", size, err)
	}
	return team
}

// QuickRunConfig is a short protocol for tests: one warmup, three trials
func QuickRunConfig(threads int, p Policy, r Reduction, s Sync) RunConfig {
	return RunConfig{
		Threads:   threads,
		Policy:    p,
		Reduction: r,
		Sync:      s,
		Warmup:    1,
		Trials:    3,
		Tolerance: DefaultTolerance(),
	}
}
