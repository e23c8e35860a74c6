package pathtrie

import (
	"math/rand"
	"testing"

	set3 "github.com/TomTonic/Set3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pathtrie/pathtrie/label"
)

// Singleton: one key, and near-misses on both sides of it must be absent.
func TestScenarioSingletonKey(t *testing.T) {
	d := newTestDict(t, 32)
	*d.Update([]byte("alpha")) = 7

	v, ok := d.Find([]byte("alpha"))
	require.True(t, ok)
	assert.EqualValues(t, 7, v)

	_, ok = d.Find([]byte("alph"))
	assert.False(t, ok)
	_, ok = d.Find([]byte("alphaa"))
	assert.False(t, ok)
}

// Random stress: a large deduplicated, shuffled corpus all round-trips,
// and a disjoint corpus is reported absent in full.
func TestScenarioRandomStressDisjointAbsence(t *testing.T) {
	d := newTestDict(t, 32)
	rng := rand.New(rand.NewSource(7))

	inserted := set3.Empty[string]()
	keys := make([][]byte, 0, 1024)
	for inserted.Len() < 1024 {
		k := randomUpperCaseKey(rng, 1000)
		s := string(k)
		if inserted.Contains(s) {
			continue
		}
		inserted.Add(s)
		keys = append(keys, k)
	}
	rng.Shuffle(len(keys), func(i, j int) { keys[i], keys[j] = keys[j], keys[i] })

	for i, k := range keys {
		*d.Update(k) = uint64(i + 1)
	}
	for i, k := range keys {
		v, ok := d.Find(k)
		require.True(t, ok, "key %q", k)
		assert.EqualValues(t, i+1, v)
	}

	disjoint := set3.Empty[string]()
	missed := make([][]byte, 0, 256)
	for disjoint.Len() < 256 {
		k := randomUpperCaseKey(rng, 1000)
		s := string(k)
		if inserted.Contains(s) || disjoint.Contains(s) {
			continue
		}
		disjoint.Add(s)
		missed = append(missed, k)
	}
	for _, k := range missed {
		_, ok := d.Find(k)
		assert.False(t, ok, "disjoint key %q unexpectedly found", k)
	}
}

func randomUpperCaseKey(rng *rand.Rand, maxLen int) []byte {
	n := rng.Intn(maxLen)
	k := make([]byte, n)
	for i := range k {
		k[i] = byte('A' + rng.Intn(26))
	}
	return k
}

// Alphabet cap: the 253rd distinct byte value seen must be fatal. The
// first key is stored whole at the root without assigning any codes, so
// an empty key goes in first and every byte below is branched on.
func TestScenarioAlphabetCapOverflow(t *testing.T) {
	d := newTestDict(t, 32)
	*d.Update(nil) = 0
	assert.NotPanics(t, func() {
		for i := 0; i < 252; i++ {
			*d.Update([]byte{byte(i)}) = uint64(i)
		}
	})
	assert.Panics(t, func() {
		*d.Update([]byte{252}) = 999
	})
}

// update returns the same cell on a repeat call: the second pointer
// reads back the first write, and a later write through it is visible
// to Find.
func TestScenarioUpdateReturnsSameCell(t *testing.T) {
	d := newTestDict(t, 32)

	first := d.Update([]byte("k"))
	*first = 5

	second := d.Update([]byte("k"))
	assert.EqualValues(t, 5, *second)

	*second = 9
	v, ok := d.Find([]byte("k"))
	require.True(t, ok)
	assert.EqualValues(t, 9, v)
}

// Distinctness: two different keys never share a value cell.
func TestInvariantDistinctKeysDistinctCells(t *testing.T) {
	d := newTestDict(t, 32)
	a := d.Update([]byte("first"))
	b := d.Update([]byte("second"))
	*a = 1
	*b = 2

	assert.NotSame(t, a, b)
	assert.EqualValues(t, 1, *a)
	assert.EqualValues(t, 2, *b)
}

// Prefix sensitivity: "ab" and "abc" are distinct keys with independent
// cells, here with the longer key inserted first.
func TestInvariantPrefixSensitivity(t *testing.T) {
	d := newTestDict(t, 32)
	*d.Update([]byte("abc")) = 100
	*d.Update([]byte("ab")) = 200

	v, ok := d.Find([]byte("ab"))
	require.True(t, ok)
	assert.EqualValues(t, 200, v)

	v, ok = d.Find([]byte("abc"))
	require.True(t, ok)
	assert.EqualValues(t, 100, v)
}

// Label pool ordering: appends within one bitmap group land in the
// buffer in id order, regardless of insertion order.
func TestInvariantLabelPoolOrdersByID(t *testing.T) {
	pool := label.NewBitmap[uint8, uint64](8)
	*pool.Append(2, []byte("c")) = 3
	*pool.Append(0, []byte("a")) = 1
	*pool.Append(1, []byte("b")) = 2

	for id, want := range map[uint64]uint64{0: 1, 1: 2, 2: 3} {
		v, _, ok := pool.CompareAndGet(id, nil)
		require.True(t, ok, "id %d", id)
		assert.EqualValues(t, want, *v)
	}
}
