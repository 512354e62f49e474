package parbench

import (
	"fmt"
	"math"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func flatten(assigned [][]Chunk) []Chunk {
	var all []Chunk
	for _, cs := range assigned {
		all = append(all, cs...)
	}
	return all
}

func TestPartitionCoverage(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	schedules := []Schedule{ScheduleStatic, ScheduleDynamic, ScheduleGuided}

	for i := 0; i < 500; i++ {
		n := 1 + rng.Intn(5000)
		threads := 1 + rng.Intn(16)
		chunk := rng.Intn(n + 1)
		p := Policy{Schedule: schedules[rng.Intn(len(schedules))], Chunk: chunk}

		assigned, err := Drain(n, threads, p)
		require.NoError(t, err)
		require.NoError(t, CheckCoverage(n, flatten(assigned)), "n=%d threads=%d policy=%s", n, threads, p)
	}
}

func TestPartitionEdgeCases(t *testing.T) {
	tests := []struct {
		name    string
		n       int
		threads int
		policy  Policy
	}{
		{"N=1 many threads", 1, 8, Static(0)},
		{"N smaller than P", 3, 8, Static(0)},
		{"N equals P", 8, 8, Static(0)},
		{"prime N", 997, 4, Static(0)},
		{"chunk larger than N", 10, 4, Dynamic(100)},
		{"chunk equals N", 10, 4, Static(10)},
		{"one thread dynamic", 100, 1, Dynamic(7)},
		{"guided N=1", 1, 4, Guided(0)},
		{"guided large chunk", 50, 3, Guided(64)},
		{"static chunk MaxInt", 10, 4, Static(math.MaxInt)},
		{"dynamic chunk MaxInt/2", 10, 4, Dynamic(math.MaxInt >> 1)},
		{"guided chunk MaxInt", 10, 4, Guided(math.MaxInt)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assigned, err := Drain(tt.n, tt.threads, tt.policy)
			require.NoError(t, err)
			assert.NoError(t, CheckCoverage(tt.n, flatten(assigned)))
		})
	}
}

func TestStaticDefaultIsContiguous(t *testing.T) {
	// N=10, P=4: ceil(10/4)=3 gives [0,3) [3,6) [6,9) [9,10)
	assigned, err := Drain(10, 4, Static(0))
	require.NoError(t, err)
	assert.Equal(t, [][]Chunk{
		{{0, 3}},
		{{3, 6}},
		{{6, 9}},
		{{9, 10}},
	}, assigned)

	// Threads past the end get nothing
	assigned, err = Drain(2, 4, Static(0))
	require.NoError(t, err)
	assert.Equal(t, []Chunk{{0, 1}}, assigned[0])
	assert.Equal(t, []Chunk{{1, 2}}, assigned[1])
	assert.Empty(t, assigned[2])
	assert.Empty(t, assigned[3])
}

func TestStaticRoundRobin(t *testing.T) {
	assigned, err := Drain(10, 2, Static(2))
	require.NoError(t, err)
	assert.Equal(t, []Chunk{{0, 2}, {4, 6}, {8, 10}}, assigned[0])
	assert.Equal(t, []Chunk{{2, 4}, {6, 8}}, assigned[1])
}

func TestDynamicChunkSizes(t *testing.T) {
	assigned, err := Drain(10, 3, Dynamic(4))
	require.NoError(t, err)
	all := flatten(assigned)
	require.Len(t, all, 3)
	for _, c := range all[:2] {
		assert.Equal(t, 4, c.Len())
	}
	assert.Equal(t, 2, all[2].Len(), "last chunk is truncated")

	// Chunk 0 behaves as 1
	assigned, err = Drain(5, 2, Dynamic(0))
	require.NoError(t, err)
	assert.Len(t, flatten(assigned), 5)
}

func TestHugeChunkClaimsWholeSpaceOnce(t *testing.T) {
	for _, p := range []Policy{Static(math.MaxInt), Dynamic(math.MaxInt >> 1), Guided(math.MaxInt)} {
		t.Run(p.String(), func(t *testing.T) {
			assigned, err := Drain(10, 4, p)
			require.NoError(t, err)
			assert.Equal(t, []Chunk{{0, 10}}, flatten(assigned))
		})
	}

	// Workers must never see a chunk outside the space
	team := NewTeamOrFail(t, 4)
	data := make([]float64, 10)
	for i := range data {
		data[i] = 1
	}
	got, err := team.Reduce(len(data), Dynamic(math.MaxInt>>1), Strategy{LocalMerge, Barrier}, OpSum, func(c Chunk) float64 {
		return Sum(data[c.Start:c.End])
	})
	require.NoError(t, err)
	assert.Equal(t, 10.0, got)
}

func TestGuidedShrinks(t *testing.T) {
	part, err := NewPartitioner(1000, 4, Guided(1))
	require.NoError(t, err)

	var sizes []int
	for {
		c, ok := part.Next(0)
		if !ok {
			break
		}
		sizes = append(sizes, c.Len())
	}

	// ceil(1000/8) first, then never growing
	assert.Equal(t, 125, sizes[0])
	for i := 1; i < len(sizes); i++ {
		assert.LessOrEqual(t, sizes[i], sizes[i-1], "claim %d grew", i)
	}
	assert.Equal(t, 1, sizes[len(sizes)-1])
}

func TestGuidedMinimumChunk(t *testing.T) {
	assigned, err := Drain(100, 2, Guided(10))
	require.NoError(t, err)
	all := flatten(assigned)
	require.NoError(t, CheckCoverage(100, all))
	for _, c := range all {
		if c.End != 100 {
			assert.GreaterOrEqual(t, c.Len(), 10, "chunk %v below the minimum", c)
		}
	}
}

func TestPartitionConcurrentClaims(t *testing.T) {
	const n = 100_000
	for _, p := range []Policy{Dynamic(1), Dynamic(17), Guided(1), Guided(8), Static(3)} {
		for _, threads := range []int{1, 2, 4, 8} {
			t.Run(fmt.Sprintf("%s/P%d", p, threads), func(t *testing.T) {
				part, err := NewPartitioner(n, threads, p)
				require.NoError(t, err)

				claims := make([][]Chunk, threads)
				var wg sync.WaitGroup
				for id := 0; id < threads; id++ {
					wg.Add(1)
					go func(id int) {
						defer wg.Done()
						for {
							c, ok := part.Next(id)
							if !ok {
								return
							}
							claims[id] = append(claims[id], c)
						}
					}(id)
				}
				wg.Wait()

				require.NoError(t, CheckCoverage(n, flatten(claims)))
			})
		}
	}
}

func TestCheckCoverageViolations(t *testing.T) {
	tests := []struct {
		name   string
		chunks []Chunk
		want   Chunk
	}{
		{"gap", []Chunk{{0, 3}, {4, 10}}, Chunk{4, 10}},
		{"overlap", []Chunk{{0, 5}, {4, 10}}, Chunk{4, 10}},
		{"empty", []Chunk{{0, 10}, {10, 10}}, Chunk{10, 10}},
		{"out of range", []Chunk{{0, 5}, {5, 11}}, Chunk{5, 11}},
		{"short", []Chunk{{0, 5}}, Chunk{5, 10}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckCoverage(10, tt.chunks)
			require.Error(t, err)
			assert.True(t, IsCoverageError(err))

			var be *BenchError
			require.ErrorAs(t, err, &be)
			assert.Equal(t, tt.want, be.Context)
		})
	}

	assert.NoError(t, CheckCoverage(10, []Chunk{{5, 10}, {0, 5}}), "order does not matter")
}

func TestPartitionerRejectsDegenerateInput(t *testing.T) {
	_, err := NewPartitioner(0, 4, Static(0))
	assert.True(t, IsDegenerateInput(err))

	_, err = NewPartitioner(10, 0, Static(0))
	assert.ErrorIs(t, err, ErrZeroThreads)

	_, err = NewPartitioner(10, 2, Dynamic(-1))
	assert.True(t, IsInvalidArgError(err))

	_, err = NewPartitioner(10, 2, Policy{Schedule: Schedule(9)})
	assert.True(t, IsInvalidArgError(err))
}

func TestPolicyText(t *testing.T) {
	tests := []struct {
		in   string
		want Policy
	}{
		{"static", Static(0)},
		{"dynamic,64", Dynamic(64)},
		{"Guided, 8", Guided(8)},
	}
	for _, tt := range tests {
		p, err := ParsePolicy(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, p)
	}
	assert.Equal(t, "dynamic,64", Dynamic(64).String())

	_, err := ParsePolicy("dynamic,x")
	assert.True(t, IsInvalidArgError(err))
	_, err = ParsePolicy("auto")
	assert.True(t, IsInvalidArgError(err))
}
