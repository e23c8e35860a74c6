package pathtrie

import (
	"encoding/binary"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Key is a byte slice used as a dictionary key. Use the provided
// constructors to build Keys from strings or fixed-width integers;
// Find and Update also accept a plain []byte directly.
//
// Integer encoding policy
// -----------------------
// FromInt64 and FromUint64 both produce an 8-byte big-endian
// representation, offset by `1<<63` before encoding (signed values go
// through int64 first) so that a Key built from either constructor
// looks the same for the same numeric value.
type Key []byte

// FromBytes returns a copy of the provided byte slice as a Key. If b is
// nil this returns an empty (zero-length) Key (not nil).
func FromBytes(b []byte) Key {
	if b == nil {
		return []byte{}
	}
	kb := make([]byte, len(b))
	copy(kb, b)
	return Key(kb)
}

// FromString returns a Key produced from the provided string after
// normalizing it to Unicode NFC. The resulting Key contains the UTF-8
// encoding of the normalized string.
func FromString(s string) Key {
	s = norm.NFC.String(s)
	return FromBytes([]byte(s))
}

// FromInt64 converts an int64 to an 8-byte big-endian Key.
func FromInt64(i int64) Key {
	var b [8]byte
	const offset = uint64(1) << 63
	binary.BigEndian.PutUint64(b[:], uint64(i)+offset)
	return FromBytes(b[:])
}

// FromUint64 converts a uint64 to an 8-byte big-endian Key.
func FromUint64(u uint64) Key {
	var b [8]byte
	const offset = uint64(1) << 63
	binary.BigEndian.PutUint64(b[:], u+offset)
	return FromBytes(b[:])
}

// Bytes returns a copy of the Key as a byte slice.
func (k Key) Bytes() []byte {
	if k == nil {
		return nil
	}
	b := make([]byte, len(k))
	copy(b, k)
	return b
}

// Clone returns an independent copy of the Key. If k is nil, Clone returns nil.
func (k Key) Clone() Key {
	if k == nil {
		return nil
	}
	kb := make([]byte, len(k))
	copy(kb, k)
	return Key(kb)
}

// String returns the Key as a string of uppercase hex byte-pairs, comma
// separated and bracketed (e.g. `[01,AB,00]`).
func (k Key) String() string {
	if len(k) == 0 {
		return "[]"
	}
	var sb strings.Builder
	sb.WriteByte('[')
	const hex = "0123456789ABCDEF"
	for i, b := range k {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteByte(hex[b>>4])
		sb.WriteByte(hex[b&0x0F])
	}
	sb.WriteByte(']')
	return sb.String()
}

// Equal reports whether k and other have the same contents.
func (k Key) Equal(other Key) bool {
	if len(k) != len(other) {
		return false
	}
	for i := range k {
		if k[i] != other[i] {
			return false
		}
	}
	return true
}

// IsEmpty returns whether the Key is empty or nil.
func (k Key) IsEmpty() bool { return len(k) == 0 }
