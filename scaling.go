package parbench

import "fmt"

// Derived performance metrics. Every function here is a pure function of
// its arguments; elapsed times are in seconds.

// Counts is the static work model of a kernel: bytes moved and operations
// performed by one call.
type Counts struct {
	Bytes float64 `json:"bytes"`
	Flops float64 `json:"flops"`
}

// Metrics is the derived record of one configuration
type Metrics struct {
	BandwidthGBs float64 `json:"bandwidth_gbs"`
	MFLOPS       float64 `json:"mflops"`
	Speedup      float64 `json:"speedup"`
	Efficiency   float64 `json:"efficiency"`
}

func (m Metrics) String() string {
	return fmt.Sprintf("%.3f GB/s, %.1f MFLOP/s, speedup %.3f, efficiency %.3f",
		m.BandwidthGBs, m.MFLOPS, m.Speedup, m.Efficiency)
}

// Bandwidth returns GB/s for bytes moved in elapsed seconds
func Bandwidth(bytes, elapsed float64) float64 {
	if elapsed <= 0 {
		return 0
	}
	return bytes / elapsed / 1e9
}

// MFLOPS returns millions of operations per second
func MFLOPS(ops, elapsed float64) float64 {
	if elapsed <= 0 {
		return 0
	}
	return ops / elapsed / 1e6
}

// Speedup returns sequential / parallel
func Speedup(sequential, parallel float64) float64 {
	if parallel <= 0 {
		return 0
	}
	return sequential / parallel
}

// Efficiency returns speedup / threads
func Efficiency(speedup float64, threads int) float64 {
	if threads <= 0 {
		return 0
	}
	return speedup / float64(threads)
}

// ComputeMetrics derives all four metrics for a parallel run against the
// sequential baseline.
func ComputeMetrics(c Counts, sequential, parallel float64, threads int) Metrics {
	speedup := Speedup(sequential, parallel)
	return Metrics{
		BandwidthGBs: Bandwidth(c.Bytes, parallel),
		MFLOPS:       MFLOPS(c.Flops, parallel),
		Speedup:      speedup,
		Efficiency:   Efficiency(speedup, threads),
	}
}

// AmdahlSpeedup is the strong-scaling bound 1 / (fs + (1-fs)/p) for a
// serial fraction fs on p processors.
func AmdahlSpeedup(fs float64, p int) float64 {
	if p <= 0 {
		return 0
	}
	return 1 / (fs + (1-fs)/float64(p))
}

// GustafsonSpeedup is the weak-scaling speedup fs + p(1-fs)
func GustafsonSpeedup(fs float64, p int) float64 {
	return fs + float64(p)*(1-fs)
}

// SerialFraction returns the share of total time spent in the part that
// cannot be parallelized.
func SerialFraction(serial, total float64) float64 {
	if total <= 0 {
		return 0
	}
	return serial / total
}

// KarpFlatt estimates the serial fraction from a measured speedup on p
// processors: (1/S - 1/p) / (1 - 1/p). It is undefined for p = 1.
func KarpFlatt(speedup float64, p int) float64 {
	if p <= 1 || speedup <= 0 {
		return 0
	}
	inv := 1 / float64(p)
	return (1/speedup - inv) / (1 - inv)
}
