// Package xorshift is a repeatable xorshift32 generator.
//
// Every operation is a pure function of the seed it is handed and returns the
// next seed alongside its value, so callers thread the chain themselves:
//
//	res, _ := xorshift.Shuffle(deck, seed)
//	pick, _ := xorshift.ElementOf(deck, res.Seed)
//
// There is no package state. The same seed always yields the same results.
// Not suitable for cryptographic use.
package xorshift

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
)

// Max is the largest seed and the value zero sanitizes to.
const Max Seed = 0xFFFFFFFF

// Seed is a generator state. Sanitized seeds are never zero.
type Seed uint32

// Sanitize reduces any integer into [1, Max]: |v| mod Max, with zero mapped to Max.
func Sanitize(v int64) Seed {
	var u uint64
	if v < 0 {
		// -(v+1)+1 keeps math.MinInt64 from overflowing.
		u = uint64(-(v + 1)) + 1
	} else {
		u = uint64(v)
	}
	return Seed(u % uint64(Max)).Sanitize()
}

// Sanitize maps the zero state to Max. Any other 32-bit value is already in range.
func (s Seed) Sanitize() Seed {
	if s == 0 {
		return Max
	}
	return s
}

func (s Seed) String() string { return strconv.FormatUint(uint64(s), 10) }

// Step advances s by one xorshift32 round (13, 17, 5).
func Step(s Seed) Seed {
	x := uint32(s.Sanitize())
	x ^= x << 13
	x ^= x >> 17
	x ^= x << 5
	return Seed(x)
}

// GenerateSeed returns a fresh seed from the runtime's random source.
func GenerateSeed() Seed {
	return Seed(rand.Uint32N(uint32(Max)) + 1)
}

// ParseSeed reads a decimal integer, negative values included, and sanitizes it.
func ParseSeed(s string) (Seed, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse seed %q: %w", s, ErrInvalidArgument)
	}
	return Sanitize(v), nil
}
