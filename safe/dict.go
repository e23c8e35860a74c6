// Package safe wraps pathtrie.Dict with a sync.RWMutex so it can be
// shared by concurrent readers and a single writer, the way the
// reference trie's own author notes it was never designed to be used
// directly: the unsynchronized core assumes one goroutine at a time.
package safe

import (
	"io"
	"sync"

	"github.com/pathtrie/pathtrie"
	"github.com/pathtrie/pathtrie/label"
)

// Dict guards a pathtrie.Dict with a sync.RWMutex. Find takes the read
// lock and copies the value out before releasing it, since the
// underlying label pool's pointers are documented as live only until
// the next mutation — a guarantee that cannot survive past the unlock.
// Update takes the write lock for the whole operation.
type Dict[V label.Value] struct {
	mu   sync.RWMutex
	dict *pathtrie.Dict[V]
}

// New builds a safe.Dict around a freshly constructed pathtrie.Dict.
func New[V label.Value](settings pathtrie.Settings, newPool func(numSlots uint64) label.Pool[V]) *Dict[V] {
	return &Dict[V]{dict: pathtrie.New(settings, newPool)}
}

// Find looks up key, returning its value and true on a hit.
func (d *Dict[V]) Find(key []byte) (V, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.dict.Find(key)
}

// Update sets key's value, creating the key if absent.
func (d *Dict[V]) Update(key []byte, value V) {
	d.mu.Lock()
	defer d.mu.Unlock()
	*d.dict.Update(key) = value
}

// NumKeys returns the number of distinct keys stored.
func (d *Dict[V]) NumKeys() uint64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.dict.NumKeys()
}

// NumSteps returns the number of step nodes created for long labels.
func (d *Dict[V]) NumSteps() uint64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.dict.NumSteps()
}

// NumChars returns the number of distinct key bytes that have been
// assigned an edge-symbol code (see pathtrie.Dict.NumChars).
func (d *Dict[V]) NumChars() byte {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.dict.NumChars()
}

// ShowStat writes human-readable counters under the read lock.
func (d *Dict[V]) ShowStat(w io.Writer) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	d.dict.ShowStat(w)
}
