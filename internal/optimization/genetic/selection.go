package genetic

import "math/rand"

// DefaultTournamentSize is binary tournament selection
const DefaultTournamentSize = 2

// TournamentSelect draws k indices uniformly with replacement and returns the
// member with the lowest fitness among them. On ties the first draw wins.
// The returned individual is shared with pop and must not be modified.
func TournamentSelect(pop Population, fitness []float64, k int, rng *rand.Rand) Individual {
	if k < 1 {
		k = DefaultTournamentSize
	}

	best := -1
	for i := 0; i < k; i++ {
		candidate := rng.Intn(len(pop))
		if best < 0 || fitness[candidate] < fitness[best] {
			best = candidate
		}
	}
	return pop[best]
}
