package exam

import (
	"math/rand/v2"
	"slices"
)

// Select returns count distinct items drawn uniformly at random from pool.
// pool is not modified. count must not exceed len(pool).
func Select[T any](pool []T, count int, rng *rand.Rand) []T {
	shuffled := slices.Clone(pool)
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	return shuffled[:count]
}
