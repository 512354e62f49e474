package parbench

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/floats/scalar"
)

func TestSpeedupAndEfficiency(t *testing.T) {
	assert.Equal(t, 4.0, Speedup(2.0, 0.5))
	assert.Equal(t, 1.0, Efficiency(4.0, 4))
	assert.Equal(t, 0.5, Efficiency(2.0, 4))
	assert.Zero(t, Speedup(1, 0), "no division by a zero time")
	assert.Zero(t, Efficiency(1, 0))
}

func TestThroughput(t *testing.T) {
	// 8e9 bytes in 2s is 4 GB/s; 3e6 flops in 1ms is 3000 MFLOP/s
	assert.Equal(t, 4.0, Bandwidth(8e9, 2))
	assert.InDelta(t, 3000.0, MFLOPS(3e6, 1e-3), 1e-9)
	assert.Zero(t, Bandwidth(1, 0))
	assert.Zero(t, MFLOPS(1, -1))
}

func TestComputeMetrics(t *testing.T) {
	m := ComputeMetrics(Counts{Bytes: 1e9, Flops: 1e9}, 4, 1, 8)
	assert.Equal(t, 4.0, m.Speedup)
	assert.Equal(t, 0.5, m.Efficiency)
	assert.Equal(t, 1.0, m.BandwidthGBs)
	assert.Equal(t, 1000.0, m.MFLOPS)
}

func TestScalingLaws(t *testing.T) {
	tests := []struct {
		fs        float64
		p         int
		amdahl    float64
		gustafson float64
	}{
		{0, 8, 8, 8},
		{1, 8, 1, 1},
		{0.1, 4, 1 / (0.1 + 0.9/4), 3.7},
		{0.5, 2, 4.0 / 3, 1.5},
	}
	for _, tt := range tests {
		assert.True(t, scalar.EqualWithinAbs(tt.amdahl, AmdahlSpeedup(tt.fs, tt.p), 1e-12), "amdahl fs=%g p=%d", tt.fs, tt.p)
		assert.True(t, scalar.EqualWithinAbs(tt.gustafson, GustafsonSpeedup(tt.fs, tt.p), 1e-12), "gustafson fs=%g p=%d", tt.fs, tt.p)
	}
	assert.Zero(t, AmdahlSpeedup(0.1, 0))
}

func TestSerialFractionEstimates(t *testing.T) {
	assert.Equal(t, 0.25, SerialFraction(1, 4))
	assert.Zero(t, SerialFraction(1, 0))

	// Karp-Flatt recovers the serial fraction from an Amdahl speedup
	for _, fs := range []float64{0.05, 0.2, 0.5} {
		s := AmdahlSpeedup(fs, 16)
		assert.InDelta(t, fs, KarpFlatt(s, 16), 1e-12)
	}
	assert.Zero(t, KarpFlatt(2, 1))
}
