package xorshift

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput is returned when a sequence is nil or empty.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidArgument is returned for a non-positive range size or an unparsable seed.
	ErrInvalidArgument = errors.New("invalid argument")
)

// Result pairs an operation's value with the seed to use for the next call.
type Result[T any] struct {
	Value T
	Seed  Seed
}

// RandomInRange returns seed mod size in [0, size).
// The value and the next seed are both derived from the same sanitized seed.
func RandomInRange(size int, seed Seed) (Result[int], error) {
	if size <= 0 {
		return Result[int]{}, fmt.Errorf("range size %d: %w", size, ErrInvalidArgument)
	}
	seed = seed.Sanitize()
	return Result[int]{
		Value: int(uint64(seed) % uint64(size)),
		Seed:  Step(seed),
	}, nil
}

// Shuffle returns a seeded permutation of a copy of items; items is left untouched.
//
// The draw for each swap is taken modulo the index before it is decremented,
// so recorded seeds only reproduce with exactly this order.
func Shuffle[T any](items []T, seed Seed) (Result[[]T], error) {
	if len(items) == 0 {
		return Result[[]T]{}, fmt.Errorf("shuffle: %w", ErrInvalidInput)
	}

	out := make([]T, len(items))
	copy(out, items)

	seed = seed.Sanitize()
	for index := len(out); index != 0; {
		r := int(uint64(seed) % uint64(index))
		index--
		out[index], out[r] = out[r], out[index]
		seed = Step(seed)
	}

	return Result[[]T]{Value: out, Seed: seed}, nil
}

// ElementOf picks items[seed mod len(items)].
func ElementOf[T any](items []T, seed Seed) (Result[T], error) {
	if len(items) == 0 {
		return Result[T]{}, fmt.Errorf("element of: %w", ErrInvalidInput)
	}
	seed = seed.Sanitize()
	return Result[T]{
		Value: items[uint64(seed)%uint64(len(items))],
		Seed:  Step(seed),
	}, nil
}
