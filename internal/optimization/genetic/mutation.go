package genetic

import "math/rand"

// SwapMutate swaps two distinct random positions of ind in place with
// probability rate. Tours shorter than two points are left alone.
// It reports whether a swap happened.
func SwapMutate(ind Individual, rate float64, rng *rand.Rand) bool {
	if rng.Float64() >= rate {
		return false
	}
	n := len(ind)
	if n < 2 {
		return false
	}

	i := rng.Intn(n)
	j := rng.Intn(n)
	for j == i {
		j = rng.Intn(n)
	}
	ind[i], ind[j] = ind[j], ind[i]
	return true
}
