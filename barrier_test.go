package parbench

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBarrierReusable(t *testing.T) {
	const workers, rounds = 8, 50
	b := newBarrier(workers)
	var arrived atomic.Int64
	var wg sync.WaitGroup
	violations := atomic.Int64{}

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for r := 1; r <= rounds; r++ {
				arrived.Add(1)
				b.Wait()
				// Nobody leaves round r before everyone reached it
				if arrived.Load() < int64(r*workers) {
					violations.Add(1)
				}
				b.Wait()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(workers*rounds), arrived.Load())
	assert.Zero(t, violations.Load())
}

func TestBarrierSingleParticipant(t *testing.T) {
	b := newBarrier(1)
	for i := 0; i < 3; i++ {
		b.Wait()
	}
}
