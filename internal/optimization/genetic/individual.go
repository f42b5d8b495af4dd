package genetic

import (
	"math/rand"

	"github.com/copyleftdev/tspga/internal/optimization"
)

// Individual is a tour: a permutation of the point indices [0, n)
type Individual []int

// NewRandomIndividual returns a uniformly random permutation of [0, n)
func NewRandomIndividual(n int, rng *rand.Rand) Individual {
	return Individual(rng.Perm(n))
}

// Clone returns an independent copy of ind
func (ind Individual) Clone() Individual {
	return append(Individual(nil), ind...)
}

// Validate checks that ind holds every index in [0, n) exactly once.
func (ind Individual) Validate(n int) error {
	const op = "Individual.Validate"

	if len(ind) != n {
		return optimization.WrapErrorf(optimization.ErrInvariantViolation, "length %d, want %d", len(ind), n).WithOperation(op)
	}
	seen := make([]bool, n)
	for pos, v := range ind {
		if v < 0 || v >= n {
			return optimization.WrapErrorf(optimization.ErrInvariantViolation, "value %d at position %d is out of range", v, pos).WithOperation(op)
		}
		if seen[v] {
			return optimization.WrapErrorf(optimization.ErrInvariantViolation, "value %d repeated at position %d", v, pos).WithOperation(op)
		}
		seen[v] = true
	}
	return nil
}
