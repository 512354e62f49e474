package parbench

import (
	"errors"
	"runtime"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHardwareCountersArithmetic(t *testing.T) {
	c := HardwareCounters{Cycles: 1000, Instructions: 2500, CacheReferences: 200, CacheMisses: 50}
	assert.Equal(t, 2.5, c.IPC())
	assert.Equal(t, 0.25, c.CacheMissRate())

	c.Add(HardwareCounters{Cycles: 1000, Instructions: 500, LLCMisses: 8})
	assert.Equal(t, uint64(2000), c.Cycles)
	assert.Equal(t, uint64(3000), c.Instructions)
	assert.Equal(t, uint64(8), c.LLCMisses)

	per := c.PerCall(4)
	assert.Equal(t, uint64(500), per.Cycles)
	assert.Equal(t, uint64(2), per.LLCMisses)
	assert.Equal(t, c, c.PerCall(0))

	assert.Zero(t, HardwareCounters{}.IPC())
	assert.Zero(t, HardwareCounters{}.CacheMissRate())
	assert.Contains(t, c.String(), "IPC:               1.50")
}

func TestCounterAggregate(t *testing.T) {
	agg := NewCounterAggregate()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			agg.add(HardwareCounters{Cycles: 10, Instructions: 20})
		}()
	}
	wg.Wait()

	total, err := agg.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, uint64(80), total.Cycles)
	assert.Equal(t, 8, agg.Workers())

	first := errors.New("paranoid")
	agg.markUnavailable(first)
	agg.markUnavailable(errors.New("second"))
	_, err = agg.Snapshot()
	assert.Same(t, first, err)

	agg.Reset()
	total, err = agg.Snapshot()
	assert.NoError(t, err)
	assert.Zero(t, total)
	assert.Zero(t, agg.Workers())
}

func TestTeamHardwareCounters(t *testing.T) {
	agg := NewCounterAggregate()
	team := NewTeamOrFail(t, 2, WithHardwareCounters(agg))

	data := make([]float64, 1<<16)
	for i := range data {
		data[i] = 1
	}
	got, err := team.Reduce(len(data), Static(0), Strategy{LocalMerge, Barrier}, OpSum, func(c Chunk) float64 {
		return Sum(data[c.Start:c.End])
	})
	require.NoError(t, err)
	assert.Equal(t, float64(len(data)), got)

	total, err := agg.Snapshot()
	if err != nil {
		t.Skipf("hardware counters unavailable on %s: %v", runtime.GOOS, err)
	}
	assert.Equal(t, 2, agg.Workers())
	assert.Greater(t, total.Instructions, uint64(0))
}
