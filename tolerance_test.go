package parbench

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToleranceWithin(t *testing.T) {
	tests := []struct {
		name     string
		a, b     float64
		tol      Tolerance
		expected bool
	}{
		{"Exact_Equal", 1.0, 1.0, DefaultTolerance(), true},
		{"Within_AbsTol", 1e-12, 2e-12, DefaultTolerance(), true},
		{"Within_RelTol", 1e7, 1e7 + 1, DefaultTolerance(), true},
		{"Outside_Both", 1.0, 1.001, DefaultTolerance(), false},
		{"NaN", math.NaN(), math.NaN(), DefaultTolerance(), false},
		{"Inf_Equal", math.Inf(1), math.Inf(1), DefaultTolerance(), true},
		{"Zero_Tolerance", 1.0, math.Nextafter(1, 2), Tolerance{}, false},
		{"Loose_Rel", 100, 109, Tolerance{Rel: 0.1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.tol.Within(tt.a, tt.b))
		})
	}
}

func TestVerifyScalar(t *testing.T) {
	o := VerifyScalar(1e7+1, 1e7, DefaultTolerance())
	assert.True(t, o.Pass)
	assert.Equal(t, 1.0, o.MaxDiff)
	assert.Equal(t, -1, o.FirstMismatch)
	assert.NoError(t, o.Err("Verify"))

	o = VerifyScalar(2, 1, DefaultTolerance())
	assert.False(t, o.Pass)
	assert.Equal(t, 1, o.Mismatches)
	err := o.Err("Verify")
	require.Error(t, err)
	assert.True(t, IsToleranceError(err))
	assert.False(t, IsFatal(err))
}

func TestVerifyBuffer(t *testing.T) {
	want := []float64{1, 2, 3, 4}

	o := VerifyBuffer([]float64{1, 2, 3, 4 + 1e-12}, want, DefaultTolerance())
	assert.True(t, o.Pass)
	assert.Equal(t, 4, o.Compared)
	assert.InDelta(t, 1e-12, o.MaxDiff, 1e-15)

	o = VerifyBuffer([]float64{1, 2.5, 3, 5}, want, DefaultTolerance())
	assert.False(t, o.Pass)
	assert.Equal(t, 2, o.Mismatches)
	assert.Equal(t, 1, o.FirstMismatch)
	assert.Equal(t, 1.0, o.MaxDiff)
	assert.Contains(t, o.String(), "FAIL: 2/4")

	o = VerifyBuffer([]float64{1, 2}, want, DefaultTolerance())
	assert.False(t, o.Pass)
	assert.True(t, math.IsInf(o.MaxDiff, 1))

	assert.True(t, VerifyBuffer(nil, nil, DefaultTolerance()).Pass)
}

func TestVerifyDispatchesOnShape(t *testing.T) {
	tol := DefaultTolerance()
	assert.True(t, Verify(Output{Scalar: 3}, Output{Scalar: 3}, tol).Pass)
	assert.False(t, Verify(Output{Buffer: []float64{1}}, Output{Scalar: 1}, tol).Pass)
	assert.True(t, Verify(Output{Buffer: []float64{1}}, Output{Buffer: []float64{1}}, tol).Pass)
}
