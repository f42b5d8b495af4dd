package genetic

import (
	"math/rand"
	"sort"
)

// Population is the ordered set of individuals of one generation
type Population []Individual

// NewRandomPopulation draws size random tours over n points
func NewRandomPopulation(size, n int, rng *rand.Rand) Population {
	pop := make(Population, size)
	for i := range pop {
		pop[i] = NewRandomIndividual(n, rng)
	}
	return pop
}

// Fittest returns copies of the k individuals with the lowest fitness,
// best first. Equal fitness keeps population order.
func (p Population) Fittest(fitness []float64, k int) []Individual {
	if k > len(p) {
		k = len(p)
	}

	order := make([]int, len(p))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return fitness[order[a]] < fitness[order[b]]
	})

	out := make([]Individual, k)
	for i := 0; i < k; i++ {
		out[i] = p[order[i]].Clone()
	}
	return out
}

// Clone deep-copies the population
func (p Population) Clone() Population {
	out := make(Population, len(p))
	for i, ind := range p {
		out[i] = ind.Clone()
	}
	return out
}
