package slot

import "math/bits"

// quotientRemainder is the Bonsai quotienting hash of a (node, symbol) pair:
// c = symbol*numSlots + node is a bijection into [0, alphabetSize*numSlots +
// numSlots), which a single invertible multiplication modulo a prime just
// above that range mixes before splitting into a slot position (rem) and a
// quotient used to disambiguate collisions at that position (quo).
type quotientRemainder struct {
	rem uint64
	quo uint64
}

func (t *Table) hash(nodeID, symbol uint64) quotientRemainder {
	c := symbol*t.numSlots + nodeID
	cPrime := mulModU64(c%t.prime, t.multiplier, t.prime)
	return quotientRemainder{
		rem: cPrime % t.numSlots,
		quo: cPrime / t.numSlots,
	}
}

// mulModU64 computes (a*b) mod m without overflowing 64 bits, using the
// full 128-bit product from math/bits and reducing it word by word.
func mulModU64(a, b, m uint64) uint64 {
	hi, lo := bits.Mul64(a, b)
	_, rem := bits.Div64(hi%m, lo, m)
	return rem
}

// nextPrime returns the smallest prime strictly greater than n, by trial
// division — this runs once per Table construction, not on any hot path.
func nextPrime(n uint64) uint64 {
	cand := n + 1
	if cand <= 2 {
		return 2
	}
	if cand%2 == 0 {
		cand++
	}
	for !isPrime(cand) {
		cand += 2
	}
	return cand
}

func isPrime(n uint64) bool {
	if n < 2 {
		return false
	}
	if n == 2 {
		return true
	}
	if n%2 == 0 {
		return false
	}
	for i := uint64(3); i*i <= n; i += 2 {
		if n%i == 0 {
			return false
		}
	}
	return true
}
