package pathtrie

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pathtrie/pathtrie/label"
)

func newTestDict(t *testing.T, fixedLen uint64) *Dict[uint64] {
	t.Helper()
	settings := Settings{NumKeys: 2000, LoadFactor: 0.8, FixedLen: fixedLen, Width1st: 6}
	return New[uint64](settings, func(n uint64) label.Pool[uint64] { return label.NewPlain[uint64](n) })
}

func TestUpdateThenFindRoundTrip(t *testing.T) {
	d := newTestDict(t, 32)

	*d.Update([]byte("alpha")) = 1
	*d.Update([]byte("beta")) = 2
	*d.Update([]byte("gamma")) = 3

	v, ok := d.Find([]byte("alpha"))
	require.True(t, ok)
	assert.EqualValues(t, 1, v)

	v, ok = d.Find([]byte("beta"))
	require.True(t, ok)
	assert.EqualValues(t, 2, v)

	_, ok = d.Find([]byte("delta"))
	assert.False(t, ok)

	assert.EqualValues(t, 3, d.NumKeys())
}

func TestUpdateSameKeyOverwritesInPlace(t *testing.T) {
	d := newTestDict(t, 32)

	ptr := d.Update([]byte("same-key"))
	*ptr = 10
	assert.EqualValues(t, 1, d.NumKeys())

	ptr2 := d.Update([]byte("same-key"))
	*ptr2 = 20
	assert.EqualValues(t, 1, d.NumKeys(), "updating an existing key must not create a new one")

	v, ok := d.Find([]byte("same-key"))
	require.True(t, ok)
	assert.EqualValues(t, 20, v)
}

func TestSharedPrefixBranches(t *testing.T) {
	d := newTestDict(t, 32)

	*d.Update([]byte("category")) = 1
	*d.Update([]byte("cat")) = 2
	*d.Update([]byte("catalog")) = 3

	v, ok := d.Find([]byte("category"))
	require.True(t, ok)
	assert.EqualValues(t, 1, v)

	v, ok = d.Find([]byte("cat"))
	require.True(t, ok)
	assert.EqualValues(t, 2, v)

	v, ok = d.Find([]byte("catalog"))
	require.True(t, ok)
	assert.EqualValues(t, 3, v)

	_, ok = d.Find([]byte("ca"))
	assert.False(t, ok)
	_, ok = d.Find([]byte("categories"))
	assert.False(t, ok)
}

func TestLongLabelsChainThroughStepNodes(t *testing.T) {
	d := newTestDict(t, 4) // small fixed_len forces step chaining for any key over 4 bytes

	long1 := bytes.Repeat([]byte("x"), 50)
	long2 := append(bytes.Repeat([]byte("x"), 49), 'y')

	*d.Update(long1) = 111
	*d.Update(long2) = 222

	v, ok := d.Find(long1)
	require.True(t, ok)
	assert.EqualValues(t, 111, v)

	v, ok = d.Find(long2)
	require.True(t, ok)
	assert.EqualValues(t, 222, v)

	assert.Greater(t, d.NumSteps(), uint64(0))
}

func TestEmptyKeyIsStorableAtRoot(t *testing.T) {
	d := newTestDict(t, 32)
	*d.Update(nil) = 42

	v, ok := d.Find(nil)
	require.True(t, ok)
	assert.EqualValues(t, 42, v)
}

func TestManyRandomKeysRoundTrip(t *testing.T) {
	d := newTestDict(t, 16)
	rng := rand.New(rand.NewSource(99))

	keys := make([][]byte, 0, 500)
	seen := map[string]bool{}
	for len(keys) < 500 {
		n := 1 + rng.Intn(60)
		k := make([]byte, n)
		for i := range k {
			k[i] = byte('a' + rng.Intn(26))
		}
		if seen[string(k)] {
			continue
		}
		seen[string(k)] = true
		keys = append(keys, k)
	}

	for i, k := range keys {
		*d.Update(k) = uint64(i)
	}
	assert.EqualValues(t, len(keys), d.NumKeys())

	for i, k := range keys {
		v, ok := d.Find(k)
		require.True(t, ok, "key %q", k)
		assert.EqualValues(t, i, v)
	}
}

func TestAlphabetCapacityExhaustionPanics(t *testing.T) {
	d := newTestDict(t, 32)
	assert.Panics(t, func() {
		for i := 0; i < 260; i++ {
			*d.Update([]byte{byte(i % 256), byte(i / 256)}) = uint64(i)
		}
	})
}
