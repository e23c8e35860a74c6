// Package pderr defines the fatal error types shared by the trie, the
// label pool, and the dictionary façade. All three fail fast: a
// configuration mistake or a capacity overrun is a programmer error,
// not a recoverable condition, so it is reported by panicking with one
// of these typed values rather than by an error return. Callers that
// want to trap it anyway can recover() and errors.As against the
// concrete type.
package pderr

import "fmt"

// ConfigError marks a malformed construction parameter (a non-power-of-two
// fixed_len, an out-of-range bit-vector width, an unsupported group size).
type ConfigError struct {
	msg string
}

func (e *ConfigError) Error() string { return "pathtrie: config error: " + e.msg }

// Config constructs and panics with a ConfigError.
func Config(format string, args ...any) {
	panic(&ConfigError{msg: fmt.Sprintf(format, args...)})
}

// CapacityError marks the slot table reaching its fixed capacity, or the
// alphabet growing past its 252-code ceiling.
type CapacityError struct {
	msg string
}

func (e *CapacityError) Error() string { return "pathtrie: capacity error: " + e.msg }

// Capacity constructs and panics with a CapacityError.
func Capacity(format string, args ...any) {
	panic(&CapacityError{msg: fmt.Sprintf(format, args...)})
}

// InvariantError marks a broken internal invariant: a double-append to an
// occupied label slot, an out-of-range symbol, an unresolvable displacement.
// It indicates a bug in the caller or in this package, never a logical miss.
type InvariantError struct {
	msg string
}

func (e *InvariantError) Error() string { return "pathtrie: invariant violated: " + e.msg }

// Invariant constructs and panics with an InvariantError.
func Invariant(format string, args ...any) {
	panic(&InvariantError{msg: fmt.Sprintf(format, args...)})
}
