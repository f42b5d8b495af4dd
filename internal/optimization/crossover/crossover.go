// Package crossover implements permutation-preserving recombination
// operators for tour individuals.
//
// Both operators build children in a partial buffer whose empty slots are
// tracked explicitly, then complete them with the same repair step: empty
// slots are filled left to right with the donor parent's values in the
// donor's order, skipping values the child already holds. Because the donor
// is itself a permutation, the repair always consumes exactly the missing
// values, so every child is a permutation whatever mask or cut points were
// drawn.
package crossover

import (
	"math/rand"

	"github.com/copyleftdev/tspga/internal/optimization"
)

// Operator recombines two parent permutations into two child permutations.
// Children are always freshly allocated; parents are never modified.
type Operator interface {
	// Crossover draws whatever randomness the operator needs from rng and
	// returns two children
	Crossover(p1, p2 []int, rng *rand.Rand) ([]int, []int)

	// Name returns the short operator name ("uox", "pmx")
	Name() string
}

// New returns the operator for mode
func New(mode optimization.CrossoverMode) (Operator, error) {
	switch mode {
	case optimization.CrossoverUOX:
		return UniformOrder{}, nil
	case optimization.CrossoverPMX:
		return PartiallyMapped{}, nil
	}
	return nil, optimization.WrapErrorf(optimization.ErrInvalidConfig, "no crossover operator for mode %d", int(mode)).
		WithOperation("New").
		WithComponent("crossover")
}

// partial is a child permutation under construction.
type partial struct {
	vals []int
	// filled[i] reports whether vals[i] holds a value
	filled []bool
	// present[v] reports whether value v is already somewhere in vals
	present []bool
}

func newPartial(n int) *partial {
	return &partial{
		vals:    make([]int, n),
		filled:  make([]bool, n),
		present: make([]bool, n),
	}
}

func (c *partial) set(i, v int) {
	c.vals[i] = v
	c.filled[i] = true
	c.present[v] = true
}

// setIfAbsent places v at i unless the child already contains v.
func (c *partial) setIfAbsent(i, v int) {
	if !c.present[v] {
		c.set(i, v)
	}
}

// fillFrom completes the child from donor: empty slots, left to right, take
// donor values in donor order that the child does not yet contain.
func (c *partial) fillFrom(donor []int) []int {
	j := 0
	for i := range c.vals {
		if c.filled[i] {
			continue
		}
		for c.present[donor[j]] {
			j++
		}
		c.set(i, donor[j])
		j++
	}
	return c.vals
}

func checkParents(p1, p2 []int) {
	if len(p1) != len(p2) {
		panic(optimization.NewErrorf("parent lengths differ: %d != %d", len(p1), len(p2)).
			WithOperation("Crossover").
			WithComponent("crossover"))
	}
}

func checkMask(mask []bool, n int) {
	if len(mask) != n {
		panic(optimization.NewErrorf("mask length %d does not match parent length %d", len(mask), n).
			WithOperation("UniformOrderWithMask").
			WithComponent("crossover"))
	}
}

func checkCuts(c1, c2, n int) {
	if c1 < 0 || c1 > c2 || c2 > n {
		panic(optimization.NewErrorf("cut points must satisfy 0 <= c1 <= c2 <= %d, got c1=%d c2=%d", n, c1, c2).
			WithOperation("PartiallyMappedWithCuts").
			WithComponent("crossover"))
	}
}
