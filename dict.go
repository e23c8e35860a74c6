// Package pathtrie implements a path-decomposed dynamic trie: an
// in-memory dictionary from zero-terminated byte keys to fixed-width
// values, built on a hash-addressed slot table (package slot) and a
// pluggable label pool (package label) that stores each key's residual
// suffix instead of giving it its own chain of single-byte trie edges.
//
// The design follows Poyias and Raman's m-Bonsai tries combined with
// path decomposition: most of a key's bytes live compactly in the label
// pool, and the trie itself only branches where two keys actually
// diverge.
package pathtrie

import (
	"fmt"
	"io"

	"github.com/pathtrie/pathtrie/label"
	"github.com/pathtrie/pathtrie/pderr"
	"github.com/pathtrie/pathtrie/slot"
)

// adjustAlphabet reserves headroom in the symbol space for slot.StepSymbol:
// an alphabet of (fixed_len<<8)-adjustAlphabet leaves slot.StepSymbol = 0xFF
// outside the range of symbols produced from real key bytes.
const adjustAlphabet = 3

// labelMax is the largest number of distinct key bytes a Dict can track,
// three below the sentinel (0xFF) that marks "no code assigned yet".
const labelMax = 0xFF - adjustAlphabet

// Settings fixes a Dict's capacity and label layout at construction.
type Settings struct {
	// NumKeys is the expected number of keys the dictionary will hold;
	// together with LoadFactor it sizes the underlying slot table.
	NumKeys uint64
	// LoadFactor is the target num_nodes/num_slots ratio at NumKeys
	// insertions. Must be in (0, 1).
	LoadFactor float64
	// FixedLen is the byte length of one trie "step": labels longer
	// than FixedLen chain through intermediate step nodes. Must be a
	// power of two.
	FixedLen uint64
	// Width1st is the number of bits used to store a slot's inline
	// displacement before falling back to the auxiliary overflow map.
	Width1st uint
}

func (s Settings) showStat(w io.Writer) {
	fmt.Fprintln(w, "Show statistics of Settings")
	fmt.Fprintf(w, " - num_keys:\t%d\n", s.NumKeys)
	fmt.Fprintf(w, " - load_factor:\t%f\n", s.LoadFactor)
	fmt.Fprintf(w, " - fixed_len:\t%d\n", s.FixedLen)
	fmt.Fprintf(w, " - width_1st:\t%d\n", s.Width1st)
}

// Dict is the path-decomposed dynamic trie dictionary. It is not safe
// for concurrent use; see package safe for a locking wrapper.
type Dict[V label.Value] struct {
	settings Settings
	trie     *slot.Table
	pool     label.Pool[V]

	numKeys  uint64
	numSteps uint64

	alphabet [256]byte
	numChars byte
}

// New builds a Dict from settings. newPool is called once, with the
// slot table's actual capacity, to construct the label pool backing it
// — callers choose label.NewPlain or label.NewBitmap[W] here.
func New[V label.Value](settings Settings, newPool func(numSlots uint64) label.Pool[V]) *Dict[V] {
	if settings.FixedLen == 0 || settings.FixedLen&(settings.FixedLen-1) != 0 {
		pderr.Config("fixed_len must be a power of two, got %d", settings.FixedLen)
	}
	if settings.LoadFactor <= 0 || settings.LoadFactor >= 1 {
		pderr.Config("load_factor must be in (0, 1), got %f", settings.LoadFactor)
	}

	numSlots := uint64(float64(settings.NumKeys) / settings.LoadFactor)
	if numSlots == 0 {
		numSlots = 1
	}
	alphabetSize := settings.FixedLen<<8 - adjustAlphabet
	trie := slot.New(numSlots, alphabetSize, settings.Width1st)

	d := &Dict[V]{
		settings: settings,
		trie:     trie,
		pool:     newPool(trie.NumSlots()),
	}
	for i := range d.alphabet {
		d.alphabet[i] = 0xFF
	}
	return d
}

func appendTerminator(key []byte) []byte {
	full := make([]byte, len(key)+1)
	copy(full, key)
	return full
}

func (d *Dict[V]) makeSymbol(b byte, offset uint64) uint64 {
	symbol := uint64(d.alphabet[b]) | (offset << 8)
	if symbol == slot.StepSymbol {
		pderr.Invariant("computed symbol collides with the step symbol")
	}
	return symbol
}

// Find looks up key, returning its value and true on a hit.
func (d *Dict[V]) Find(key []byte) (V, bool) {
	var zero V
	full := appendTerminator(key)
	nodeID := d.trie.RootID()

	i := uint64(0)
	for i < uint64(len(full)) {
		value, numMatch, ok := d.pool.CompareAndGet(nodeID, full[i:])
		if ok {
			return *value, true
		}
		i += numMatch

		for d.settings.FixedLen <= numMatch {
			child, found := d.trie.GetChild(nodeID, slot.StepSymbol)
			if !found {
				return zero, false
			}
			nodeID = child
			numMatch -= d.settings.FixedLen
		}

		b := full[i]
		if d.alphabet[b] == 0xFF {
			return zero, false
		}
		child, found := d.trie.GetChild(nodeID, d.makeSymbol(b, numMatch))
		if !found {
			return zero, false
		}
		nodeID = child
		i++
	}

	value, _, ok := d.pool.CompareAndGet(nodeID, nil)
	if !ok {
		return zero, false
	}
	return *value, true
}

// Update returns a pointer to key's value slot, creating it (zero-valued)
// if key is not already present. The returned pointer is a handle into
// the label pool: callers write through it to set or change the value,
// but must treat it as invalidated by any later Update call (a Bitmap
// pool may reallocate the group it lives in).
func (d *Dict[V]) Update(key []byte) *V {
	full := appendTerminator(key)
	nodeID := d.trie.RootID()

	if d.numKeys == 0 {
		d.numKeys++
		return d.pool.Append(nodeID, full)
	}

	i := uint64(0)
	for i < uint64(len(full)) {
		value, numMatch, ok := d.pool.CompareAndGet(nodeID, full[i:])
		if ok {
			return value
		}
		i += numMatch

		for d.settings.FixedLen <= numMatch {
			childID, created := d.trie.AddChild(nodeID, slot.StepSymbol)
			if created {
				d.numSteps++
			}
			nodeID = childID
			numMatch -= d.settings.FixedLen
		}

		b := full[i]
		if d.alphabet[b] == 0xFF {
			if d.numChars >= labelMax {
				pderr.Capacity("alphabet exhausted: more than %d distinct key bytes seen", labelMax)
			}
			d.alphabet[b] = d.numChars
			d.numChars++
		}

		childID, created := d.trie.AddChild(nodeID, d.makeSymbol(b, numMatch))
		i++
		if created {
			d.numKeys++
			return d.pool.Append(childID, full[i:])
		}
		nodeID = childID
	}

	if value, _, ok := d.pool.CompareAndGet(nodeID, nil); ok {
		return value
	}
	d.numKeys++
	return d.pool.Append(nodeID, nil)
}

// NumKeys returns the number of distinct keys stored.
func (d *Dict[V]) NumKeys() uint64 { return d.numKeys }

// NumSteps returns the number of step nodes created to chain labels
// longer than Settings.FixedLen.
func (d *Dict[V]) NumSteps() uint64 { return d.numSteps }

// NumChars returns the number of distinct key bytes that have been
// assigned an edge-symbol code, i.e. bytes at which some key branched
// off a stored label. Bytes that only occur inside stored labels are not
// counted.
func (d *Dict[V]) NumChars() byte { return d.numChars }

// ShowStat writes human-readable counters for the dictionary and its
// trie and label pool; the format is not contractual.
func (d *Dict[V]) ShowStat(w io.Writer) {
	d.settings.showStat(w)
	fmt.Fprintf(w, "Show statistics of Dict_%s\n", d.pool.Name())
	fmt.Fprintf(w, " - num_keys:\t%d\n", d.NumKeys())
	fmt.Fprintf(w, " - num_steps:\t%d\n", d.NumSteps())
	fmt.Fprintf(w, " - num_chars:\t%d\n", d.NumChars())
	d.trie.ShowStat(w)
	fmt.Fprintf(w, "Show statistics of %s\n", d.pool.Name())
	fmt.Fprintf(w, " - num_ptrs:\t%d\n", d.pool.NumPtrs())
	fmt.Fprintf(w, " - num_labels:\t%d\n", d.pool.NumLabels())
	fmt.Fprintf(w, " - sum_bytes:\t%d\n", d.pool.SumBytes())
	fmt.Fprintf(w, " - ave_length:\t%f\n", d.pool.AverageLength())
}
