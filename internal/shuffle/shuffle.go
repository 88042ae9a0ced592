// Package shuffle produces the question order of an attempt.
package shuffle

import "math/rand/v2"

// Rand returns a uniform random integer in [0, n).
type Rand func(n int) int

// Default is backed by the auto-seeded global generator.
var Default Rand = rand.IntN

// Shuffle returns a uniformly random permutation of s using Fisher–Yates. s is left untouched.
func Shuffle[T any](s []T, r Rand) []T {
	if r == nil {
		r = Default
	}

	out := make([]T, len(s))
	copy(out, s)
	for i := len(out) - 1; i > 0; i-- {
		j := r(i + 1)
		out[i], out[j] = out[j], out[i]
	}

	return out
}
