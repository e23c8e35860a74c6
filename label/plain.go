package label

import (
	"unsafe"

	"github.com/pathtrie/pathtrie/pderr"
)

// Plain is the uncompacted label pool: one independently allocated
// []byte per node id, holding the node's residual label bytes followed
// immediately by its value. A nil slice means the node has no label yet.
type Plain[V Value] struct {
	pools     [][]byte
	numLabels uint64
	sumBytes  uint64
}

// NewPlain allocates a Plain pool addressable by node ids in [0, size).
func NewPlain[V Value](size uint64) *Plain[V] {
	return &Plain[V]{pools: make([][]byte, size)}
}

func (*Plain[V]) Name() string { return "LabelPool_Plain" }

// CompareAndGet matches qlabel against the label stored at id, returning
// a live pointer into the pool's own backing array on a full match.
// numMatch is the number of leading bytes the two agree on, set whether
// or not the match is exact; callers use it to advance past the
// already-shared prefix when qlabel diverges partway through a stored
// label.
//
// A query longer than the stored label is treated as a miss at
// numMatch == len(storedLabel): the reference implementation's raw
// pointer walk happens to stop there too in the common case (the byte
// just past a label belongs to the value and almost never equals the
// next key byte), but Go's bounds-checked slices make that accidental
// termination explicit instead of relying on it.
//
// The returned pointer is valid only until the next Append to this
// pool: growth never moves an existing node's own slice, but Go gives
// no guarantee once the caller has released the pool itself.
func (p *Plain[V]) CompareAndGet(id uint64, qlabel []byte) (value *V, numMatch uint64, ok bool) {
	buf := p.pools[id]
	if buf == nil {
		return nil, 0, false
	}
	vsz := valueSize[V]()
	if len(qlabel) == 0 {
		return asValue[V](buf), 0, true
	}

	storedLen := uint64(len(buf)) - vsz
	limit := minU64(storedLen, uint64(len(qlabel)))
	for numMatch < limit {
		if qlabel[numMatch] != buf[numMatch] {
			return nil, numMatch, false
		}
		numMatch++
	}
	if numMatch < uint64(len(qlabel)) {
		// Stored label fully consumed without exhausting the query: a
		// genuine divergence point, not a hit.
		return nil, numMatch, false
	}
	return asValue[V](buf[numMatch:]), numMatch, true
}

// Append stores qlabel at id, which must not already hold a label, and
// returns a pointer to the zero-valued slot reserved for its value.
func (p *Plain[V]) Append(id uint64, qlabel []byte) *V {
	if p.pools[id] != nil {
		pderr.Invariant("label already exists at id %d", id)
	}
	p.numLabels++

	vsz := valueSize[V]()
	buf := make([]byte, uint64(len(qlabel))+vsz)
	copy(buf, qlabel)
	p.sumBytes += uint64(len(buf))
	p.pools[id] = buf

	return asValue[V](buf[len(qlabel):])
}

func asValue[V Value](tail []byte) *V {
	return (*V)(unsafe.Pointer(&tail[0]))
}

func (p *Plain[V]) NumPtrs() uint64   { return uint64(len(p.pools)) }
func (p *Plain[V]) NumLabels() uint64 { return p.numLabels }
func (p *Plain[V]) SumBytes() uint64  { return p.sumBytes }

// AverageLength is sum_bytes / num_labels, for statistics reporting.
func (p *Plain[V]) AverageLength() float64 {
	if p.numLabels == 0 {
		return 0
	}
	return float64(p.sumBytes) / float64(p.numLabels)
}
