// Package slot implements the compact trie: a hash table of trie edges
// addressed by (parent-node-id, edge-symbol) pairs, stored as
// quotient/displacement pairs in a bit-packed slot array and resolved by
// linear probing (the "Bonsai" quotienting scheme of Poyias & Raman).
// Node ids are slot positions; there is no separate node array.
package slot

import (
	"fmt"
	"io"

	"github.com/pathtrie/pathtrie/bitvector"
	"github.com/pathtrie/pathtrie/pderr"
)

// StepSymbol chains "step" nodes along labels that exceed fixed_len bytes.
// Its low byte is 0xFF, which the dictionary's alphabet map reserves as
// "byte never assigned a code yet."
const StepSymbol uint64 = 0xFF

// Table is the fixed-capacity slot table. Capacity is set at construction
// from the caller's (num_slots, alphabet_size, width_1st) and never grows;
// reaching num_nodes == num_slots is a fatal capacity error.
type Table struct {
	slots *bitvector.Vector
	aux   map[uint64]uint32 // slot id -> displacement, for probe runs >= maxDsp1

	numSlots     uint64
	numNodes     uint64
	alphabetSize uint64
	widthFirst   uint
	maxDsp1      uint64
	emptyMark    uint64
	rootID       uint64

	prime      uint64
	multiplier uint64
}

// New allocates a Table with room for numSlots nodes (including the root)
// over an alphabet of alphabetSize symbols, using width_1st bits to store
// the inline (non-overflowed) displacement.
func New(numSlots, alphabetSize uint64, widthFirst uint) *Table {
	if numSlots == 0 {
		pderr.Config("num_slots must be > 0")
	}
	if widthFirst == 0 || widthFirst > 64 {
		pderr.Config("width_1st must satisfy 0 < width_1st <= 64, got %d", widthFirst)
	}

	emptyMark := alphabetSize + 1
	widthQuo := ceilLog2(emptyMark + 1)
	widthSlot := widthQuo + widthFirst
	if widthSlot > 64 {
		pderr.Config("slot width %d (alphabet_size=%d, width_1st=%d) exceeds 64 bits", widthSlot, alphabetSize, widthFirst)
	}

	cMax := alphabetSize*numSlots + numSlots - 1
	prime := nextPrime(cMax)
	multiplier := ^uint64(0) / prime

	t := &Table{
		aux:          make(map[uint64]uint32),
		numSlots:     numSlots,
		numNodes:     1, // the root
		alphabetSize: alphabetSize,
		widthFirst:   widthFirst,
		maxDsp1:      (uint64(1) << widthFirst) - 1,
		emptyMark:    emptyMark,
		rootID:       numSlots / 2,
		prime:        prime,
		multiplier:   multiplier,
	}
	t.slots = bitvector.NewFilled(uint(numSlots), widthSlot, emptyMark<<widthFirst)
	return t
}

func ceilLog2(n uint64) uint {
	if n <= 1 {
		return 1
	}
	bits := uint(0)
	v := n - 1
	for v > 0 {
		bits++
		v >>= 1
	}
	return bits
}

// RootID returns the designated root node id, num_slots/2.
func (t *Table) RootID() uint64 { return t.rootID }

// NumSlots returns the fixed slot capacity.
func (t *Table) NumSlots() uint64 { return t.numSlots }

// NumNodes returns the number of occupied slots, including the root.
func (t *Table) NumNodes() uint64 { return t.numNodes }

func (t *Table) quo(pos uint64) uint64 {
	return t.slots.Get(uint(pos)) >> t.widthFirst
}

func (t *Table) dsp(pos uint64) uint64 {
	d := t.slots.Get(uint(pos)) & t.maxDsp1
	if d < t.maxDsp1 {
		return d
	}
	if v, ok := t.aux[pos]; ok {
		return uint64(v)
	}
	// Not reached for correctly maintained slots; see spec.md §9 open
	// questions. Treated as "not a match" by every caller.
	return ^uint64(0)
}

func (t *Table) writeSlot(pos, quo, dsp uint64) {
	val := quo << t.widthFirst
	if dsp < t.maxDsp1 {
		val |= dsp
	} else {
		val |= t.maxDsp1
		t.aux[pos] = uint32(dsp)
	}
	t.slots.Set(uint(pos), val)
}

func (t *Table) next(pos uint64) uint64 {
	pos++
	if pos >= t.numSlots {
		return 0
	}
	return pos
}

// GetChild looks up the child reached from node via symbol, returning
// (childID, true) if the edge exists.
func (t *Table) GetChild(node, symbol uint64) (uint64, bool) {
	if symbol >= t.alphabetSize {
		pderr.Invariant("symbol %d out of range [0, %d)", symbol, t.alphabetSize)
	}
	hv := t.hash(node, symbol)
	if hv.quo >= t.emptyMark {
		pderr.Invariant("hashed quotient %d collides with the empty-slot sentinel %d", hv.quo, t.emptyMark)
	}

	pos, cnt := hv.rem, uint64(0)
	for {
		if pos == t.rootID {
			pos, cnt = t.next(pos), cnt+1
			continue
		}
		quo := t.quo(pos)
		if quo == t.emptyMark {
			return 0, false
		}
		if quo == hv.quo && t.dsp(pos) == cnt {
			return pos, true
		}
		pos, cnt = t.next(pos), cnt+1
	}
}

// AddChild inserts the edge (node, symbol) if absent, returning the new or
// pre-existing child id and whether it was newly created. It panics with a
// CapacityError when an insertion brings num_nodes up to num_slots.
func (t *Table) AddChild(node, symbol uint64) (uint64, bool) {
	if symbol >= t.alphabetSize {
		pderr.Invariant("symbol %d out of range [0, %d)", symbol, t.alphabetSize)
	}
	hv := t.hash(node, symbol)
	if hv.quo >= t.emptyMark {
		pderr.Invariant("hashed quotient %d collides with the empty-slot sentinel %d", hv.quo, t.emptyMark)
	}

	pos, cnt := hv.rem, uint64(0)
	for {
		if pos == t.rootID {
			pos, cnt = t.next(pos), cnt+1
			continue
		}
		quo := t.quo(pos)
		if quo == t.emptyMark {
			t.writeSlot(pos, hv.quo, cnt)
			t.numNodes++
			if t.numNodes == t.numSlots {
				pderr.Capacity("slot table exhausted: num_nodes reached num_slots=%d", t.numSlots)
			}
			return pos, true
		}
		if quo == hv.quo && t.dsp(pos) == cnt {
			return pos, false
		}
		pos, cnt = t.next(pos), cnt+1
	}
}

// AverageDisplacement reports the mean probe distance across occupied
// slots, for statistics reporting.
func (t *Table) AverageDisplacement() float64 {
	var used, sum uint64
	for i := uint64(0); i < t.numSlots; i++ {
		if t.quo(i) != t.emptyMark {
			used++
			sum += t.dsp(i)
		}
	}
	if used == 0 {
		return 0
	}
	return float64(sum) / float64(used)
}

// ShowStat writes human-readable counters; the format is not contractual.
func (t *Table) ShowStat(w io.Writer) {
	fmt.Fprintln(w, "Show statistics of slot.Table")
	fmt.Fprintf(w, " - num_nodes:\t%d\n", t.numNodes)
	fmt.Fprintf(w, " - num_slots:\t%d\n", t.numSlots)
	fmt.Fprintf(w, " - num_auxs:\t%d\n", len(t.aux))
	fmt.Fprintf(w, " - load_factor:\t%f\n", float64(t.numNodes)/float64(t.numSlots))
	fmt.Fprintf(w, " - slot_width:\t%d\n", t.slots.Width())
	fmt.Fprintf(w, " - slot_memory:\t%d\n", t.slots.SizeBytes())
	fmt.Fprintf(w, " - aux_memory:\t%d\n", uint64(len(t.aux))*12)
	fmt.Fprintf(w, " - average_dsp:\t%f\n", t.AverageDisplacement())
}
