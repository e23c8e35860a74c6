package label

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBitmapRoundTrip[W BitmapWord](t *testing.T, groupSize string) {
	rng := rand.New(rand.NewSource(7))
	const numKeys = 1 << 10
	ranges := makeRanges(rng, numKeys, 1000)
	ids := shuffledIDs(rng, numKeys)

	pool := NewBitmap[W, uint64](uint64(numKeys))
	size := numKeys * 8 / 10

	for i := 0; i < size; i++ {
		ptr := pool.Append(ids[i], ranges[i])
		*ptr = uint64(i)
	}

	for i := 0; i < size; i++ {
		ptr, numMatch, ok := pool.CompareAndGet(ids[i], ranges[i])
		require.True(t, ok, "group size %s key %d", groupSize, i)
		assert.Equal(t, uint64(i), *ptr)
		assert.EqualValues(t, len(ranges[i]), numMatch)
	}
}

func TestBitmapRoundTrip8(t *testing.T)  { testBitmapRoundTrip[uint8](t, "8") }
func TestBitmapRoundTrip16(t *testing.T) { testBitmapRoundTrip[uint16](t, "16") }
func TestBitmapRoundTrip32(t *testing.T) { testBitmapRoundTrip[uint32](t, "32") }
func TestBitmapRoundTrip64(t *testing.T) { testBitmapRoundTrip[uint64](t, "64") }

func TestBitmapAppendReallocatesGroupInOrder(t *testing.T) {
	pool := NewBitmap[uint8, uint32](16)

	p0 := pool.Append(0, []byte("aa\x00"))
	*p0 = 100
	p3 := pool.Append(3, []byte("bbb\x00"))
	*p3 = 300
	p1 := pool.Append(1, []byte("c\x00"))
	*p1 = 10

	got0, _, ok0 := pool.CompareAndGet(0, []byte("aa\x00"))
	require.True(t, ok0)
	assert.Equal(t, uint32(100), *got0)

	got1, _, ok1 := pool.CompareAndGet(1, []byte("c\x00"))
	require.True(t, ok1)
	assert.Equal(t, uint32(10), *got1)

	got3, _, ok3 := pool.CompareAndGet(3, []byte("bbb\x00"))
	require.True(t, ok3)
	assert.Equal(t, uint32(300), *got3)
}

func TestBitmapDoubleAppendPanics(t *testing.T) {
	pool := NewBitmap[uint8, uint16](8)
	pool.Append(2, []byte("x\x00"))
	assert.Panics(t, func() { pool.Append(2, []byte("y\x00")) })
}

func TestBitmapMissingIDIsNotFound(t *testing.T) {
	pool := NewBitmap[uint8, uint16](8)
	_, _, ok := pool.CompareAndGet(5, []byte("z\x00"))
	assert.False(t, ok)
}
