package label

import (
	"math/bits"
	"unsafe"

	"github.com/pathtrie/pathtrie/pderr"
	"github.com/pathtrie/pathtrie/vbyte"
)

// BitmapWord selects a Bitmap pool's group size: consecutive node ids are
// batched kGroupSize = 8*sizeof(W) at a time, sharing one occupancy word
// and one contiguous buffer. Larger W means fewer groups (fewer bitmap
// words and buffer headers) at the cost of a longer linear scan and a
// larger buffer copy on every append; smaller W is the opposite trade. Instantiate Bitmap[uint8, V] through Bitmap[uint64, V]
// for the four group sizes the reference pool offers.
type BitmapWord interface {
	~uint8 | ~uint16 | ~uint32 | ~uint64
}

func groupSizeOf[W BitmapWord]() uint64 {
	var zero W
	return uint64(unsafe.Sizeof(zero)) * 8
}

func getBit[W BitmapWord](w W, i uint64) bool {
	return (uint64(w)>>i)&1 != 0
}

func setBit[W BitmapWord](w *W, i uint64) {
	*w |= W(uint64(1) << i)
}

func popcountBelow[W BitmapWord](w W, i uint64) uint64 {
	return uint64(bits.OnesCount64(uint64(w) & (uint64(1)<<i - 1)))
}

func popcountAll[W BitmapWord](w W) uint64 {
	return uint64(bits.OnesCount64(uint64(w)))
}

// Bitmap is a sparsetable-style label pool: ids are partitioned into
// fixed-size groups, each with one occupancy bitmap and one buffer
// holding its occupied entries back-to-back as
// [vbyte-length][label bytes, terminator excluded][value]. Accessing a
// label costs an O(group size) popcount-and-walk; appending to an
// already-populated group reallocates that group's whole buffer, which
// is why a pointer previously returned by CompareAndGet or Append must
// be treated as invalidated by any later Append into the same group.
type Bitmap[W BitmapWord, V Value] struct {
	pools     [][]byte
	bitmap    []W
	groupSize uint64
	numLabels uint64
	sumBytes  uint64
}

// NewBitmap allocates a Bitmap pool addressable by node ids in [0, size).
func NewBitmap[W BitmapWord, V Value](size uint64) *Bitmap[W, V] {
	g := groupSizeOf[W]()
	n := size/g + 1
	return &Bitmap[W, V]{
		pools:     make([][]byte, n),
		bitmap:    make([]W, n),
		groupSize: g,
	}
}

func (b *Bitmap[W, V]) Name() string { return "LabelPool_Bitmap" }

// CompareAndGet matches qlabel against the label stored at id. See Plain
// for the numMatch/ok contract; the only wrinkle here is that the stored
// buffer never contains the key's terminator byte, so a full match must
// also check that the query's next byte (not a stored one) is 0.
func (b *Bitmap[W, V]) CompareAndGet(id uint64, qlabel []byte) (value *V, numMatch uint64, ok bool) {
	group := id / b.groupSize
	offset := id % b.groupSize

	if !getBit(b.bitmap[group], offset) {
		return nil, 0, false
	}

	ptr := b.pools[group]
	loc := popcountBelow(b.bitmap[group], offset)
	vsz := valueSize[V]()

	pos := uint64(0)
	for i := uint64(0); i < loc; i++ {
		l, n := vbyte.Decode(ptr[pos:])
		pos += uint64(n) + l + vsz
	}
	storedLen, n := vbyte.Decode(ptr[pos:])
	pos += uint64(n)
	entryLabel := ptr[pos : pos+storedLen]
	valuePtr := asValue[V](ptr[pos+storedLen:])

	if len(qlabel) == 0 {
		return valuePtr, 0, true
	}

	limit := minU64(uint64(len(qlabel)), storedLen)
	for numMatch < limit {
		if entryLabel[numMatch] != qlabel[numMatch] {
			return nil, numMatch, false
		}
		numMatch++
	}
	if numMatch == storedLen && numMatch < uint64(len(qlabel)) && qlabel[numMatch] == 0 {
		return valuePtr, numMatch + 1, true
	}
	return nil, numMatch, false
}

// Append stores qlabel (its trailing terminator, if any, is dropped —
// callers pass it anyway so CompareAndGet can reconstruct a full match)
// at id, whose group must not already hold an entry there.
func (b *Bitmap[W, V]) Append(id uint64, qlabel []byte) *V {
	group := id / b.groupSize
	offset := id % b.groupSize

	if getBit(b.bitmap[group], offset) {
		pderr.Invariant("label already exists at id %d", id)
	}
	b.numLabels++
	setBit(&b.bitmap[group], offset)

	labelLen := uint64(0)
	if len(qlabel) > 0 {
		labelLen = uint64(len(qlabel)) - 1
	}
	vsz := valueSize[V]()
	entrySize := uint64(vbyte.Size(labelLen)) + labelLen + vsz
	b.sumBytes += entrySize

	if b.pools[group] == nil {
		buf := make([]byte, entrySize)
		n := vbyte.Encode(buf, labelLen)
		copy(buf[n:], qlabel[:labelLen])
		b.pools[group] = buf
		return asValue[V](buf[uint64(n)+labelLen:])
	}

	loc := popcountBelow(b.bitmap[group], offset)
	numExisting := popcountAll(b.bitmap[group]) - 1 // the bit we just set

	orig := b.pools[group]
	var frontLen, backLen uint64
	pos := uint64(0)
	for i := uint64(0); i < numExisting; i++ {
		l, n := vbyte.Decode(orig[pos:])
		entryLen := uint64(n) + l + vsz
		if i < loc {
			frontLen += entryLen
		} else {
			backLen += entryLen
		}
		pos += entryLen
	}

	newBuf := make([]byte, frontLen+backLen+entrySize)
	copy(newBuf, orig[:frontLen])

	off := frontLen
	n := vbyte.Encode(newBuf[off:], labelLen)
	off += uint64(n)
	copy(newBuf[off:], qlabel[:labelLen])
	off += labelLen
	valueOff := off
	off += vsz

	copy(newBuf[off:], orig[frontLen:frontLen+backLen])
	b.pools[group] = newBuf

	return asValue[V](newBuf[valueOff:])
}

func (b *Bitmap[W, V]) NumPtrs() uint64   { return uint64(len(b.pools)) }
func (b *Bitmap[W, V]) NumLabels() uint64 { return b.numLabels }
func (b *Bitmap[W, V]) SumBytes() uint64  { return b.sumBytes }

// AverageLength is sum_bytes / num_ptrs, for statistics reporting — it
// divides by the group count (num_ptrs) rather than the label count,
// giving average bytes per group buffer rather than per entry.
func (b *Bitmap[W, V]) AverageLength() float64 {
	if len(b.pools) == 0 {
		return 0
	}
	return float64(b.sumBytes) / float64(len(b.pools))
}
