//go:build !linux

// Package parbench provides performance counter stubs for non-Linux platforms
package parbench

// threadCounters stub for non-Linux platforms
type threadCounters struct{}

// openThreadCounters always fails outside Linux
func openThreadCounters() (*threadCounters, error) {
	return nil, NewExecutionError("openThreadCounters", "hardware counters require Linux perf events", nil)
}

// readAndClose returns empty counters on non-Linux platforms
func (tc *threadCounters) readAndClose() HardwareCounters {
	return HardwareCounters{}
}
