package parbench

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskCostClasses(t *testing.T) {
	tests := []struct {
		n    int
		want []int
	}{
		{1, []int{1}},
		{3, []int{1, 5, 20}},
		{4, []int{1, 1, 5, 5}},
		{7, []int{1, 1, 1, 5, 5, 5, 20}},
		{9, []int{1, 1, 1, 5, 5, 5, 20, 20, 20}},
	}
	for _, tt := range tests {
		got := make([]int, tt.n)
		total := 0
		for i := range got {
			got[i] = TaskCost(i, tt.n) / TaskUnit
			total += TaskCost(i, tt.n)
		}
		assert.Equal(t, tt.want, got, "n=%d", tt.n)
		assert.Equal(t, float64(total), TaskSteps(tt.n), "n=%d", tt.n)
	}
}

func TestRunTasksComposes(t *testing.T) {
	const n = 12
	whole := RunTasks(0, n, n)
	assert.Greater(t, whole, 0.0)
	assert.InEpsilon(t, whole, RunTasks(0, 5, n)+RunTasks(5, n, n), 1e-12)
}

func TestTasksExposeStaticImbalance(t *testing.T) {
	const n, threads = 30, 3
	load := func(p Policy) []int {
		assigned, err := Drain(n, threads, p)
		require.NoError(t, err)
		costs := make([]int, threads)
		for id, chunks := range assigned {
			for _, c := range chunks {
				for i := c.Start; i < c.End; i++ {
					costs[id] += TaskCost(i, n)
				}
			}
		}
		return costs
	}

	// One contiguous range per thread hands the last thread every heavy task
	static := load(Static(0))
	assert.Equal(t, 20*static[0], static[2])

	// Single-task claims interleave the classes
	dynamic := load(Dynamic(1))
	assert.Equal(t, []int{79 * TaskUnit, 83 * TaskUnit, 98 * TaskUnit}, dynamic)
	assert.Less(t, slices.Max(dynamic), slices.Max(static))
}
