package safeconv

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIntSliceToUint32SliceClamps(t *testing.T) {
	assert.Equal(t, []uint32{0, 7, math.MaxUint32}, IntSliceToUint32Slice([]int{-3, 7, math.MaxUint32 + 10}))
}

func TestIdWidening(t *testing.T) {
	assert.Equal(t, []int{1, 5, 2}, Uint32SliceToIntSlice([]uint32{1, 5, 2}))
	assert.Equal(t, []int64{1, 5, 2}, IntSliceToInt64Slice([]int{1, 5, 2}))
}

func TestDurationConversions(t *testing.T) {
	assert.Equal(t, uint64(0), DurationToU64(-time.Second))
	assert.Equal(t, uint64(1500), DurationToU64(1500*time.Nanosecond))
	assert.Equal(t, time.Duration(math.MaxInt64), U64ToDuration(math.MaxUint64))
	assert.Equal(t, 2*time.Millisecond, U64ToDuration(uint64(2*time.Millisecond)))
}
