package crossover

import "math/rand"

// UniformOrder is uniform order crossover (UOX).
//
// A coin is flipped for every position. Where it lands 1, child1 keeps
// parent1's value and child2 keeps parent2's value. The remaining slots of
// child1 are filled in parent2's order and those of child2 in parent1's order.
type UniformOrder struct{}

// Name returns "uox"
func (UniformOrder) Name() string { return "uox" }

// Crossover draws one coin flip per position and applies the mask
func (UniformOrder) Crossover(p1, p2 []int, rng *rand.Rand) ([]int, []int) {
	checkParents(p1, p2)

	mask := make([]bool, len(p1))
	for i := range mask {
		mask[i] = rng.Intn(2) == 1
	}
	return UniformOrderWithMask(p1, p2, mask)
}

// UniformOrderWithMask performs UOX with a caller-supplied mask, where
// mask[i] == true keeps position i from the child's own parent. The mask
// must be as long as the parents.
func UniformOrderWithMask(p1, p2 []int, mask []bool) ([]int, []int) {
	checkParents(p1, p2)
	checkMask(mask, len(p1))

	n := len(p1)
	c1, c2 := newPartial(n), newPartial(n)
	for i := 0; i < n; i++ {
		if mask[i] {
			c1.set(i, p1[i])
			c2.set(i, p2[i])
		}
	}

	return c1.fillFrom(p2), c2.fillFrom(p1)
}
