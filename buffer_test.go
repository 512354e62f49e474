package parbench

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuffer(t *testing.T) {
	buf, err := NewBuffer[float32](10)
	require.NoError(t, err)
	assert.Equal(t, 10, buf.Len())
	assert.Equal(t, 40, buf.Bytes())

	buf.Fill(2.5)
	assert.Equal(t, []float64{2.5, 2.5, 2.5, 2.5, 2.5, 2.5, 2.5, 2.5, 2.5, 2.5}, buf.Float64s())

	buf.Zero()
	for _, v := range buf.Data() {
		assert.Zero(t, v)
	}

	buf.Release()
	assert.Zero(t, buf.Len())
}

func TestBufferAllocationFailure(t *testing.T) {
	_, err := NewBuffer[float64](-1)
	assert.True(t, IsAllocationError(err))

	if strconv.IntSize < 64 {
		t.Skip("limit is beyond the 32-bit address space")
	}
	limit := uint64(MaxBufferBytes) / 8
	_, err = NewBuffer[float64](int(limit + 1))
	require.Error(t, err)
	assert.True(t, IsAllocationError(err))
	assert.True(t, IsFatal(err))
}

func TestElemType(t *testing.T) {
	assert.Equal(t, 8, Float64.Size())
	assert.Equal(t, 4, Float32.Size())
	assert.Equal(t, 4, Int32.Size())
	assert.Equal(t, "int32", Int32.String())
}

func TestCacheFlusher(t *testing.T) {
	f, err := NewCacheFlusher(64 * 1024)
	require.NoError(t, err)
	assert.Equal(t, 64*1024, f.Size())

	f.Flush()
	f.Flush()
	assert.Equal(t, byte(2), f.data[0], "second pass leaves its mark on the first line")

	def, err := NewCacheFlusher(0)
	require.NoError(t, err)
	assert.Equal(t, CacheFlushSize, def.Size())
}
