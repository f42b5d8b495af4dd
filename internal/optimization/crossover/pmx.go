package crossover

import "math/rand"

// PartiallyMapped is partially-mapped crossover (PMX).
//
// A segment [c1, c2) of parent2 is transplanted into child1 and the same
// segment of parent1 into child2. Outside the segment each child first takes
// the other parent's value at the same position when it is not already
// present, and the slots still empty are filled in the segment donor's order.
type PartiallyMapped struct{}

// Name returns "pmx"
func (PartiallyMapped) Name() string { return "pmx" }

// Crossover draws 0 <= c1 <= c2 <= n and applies PMX over [c1, c2).
func (PartiallyMapped) Crossover(p1, p2 []int, rng *rand.Rand) ([]int, []int) {
	checkParents(p1, p2)

	n := len(p1)
	if n == 0 {
		return []int{}, []int{}
	}
	c1 := rng.Intn(n)
	c2 := c1 + rng.Intn(n-c1+1)
	return PartiallyMappedWithCuts(p1, p2, c1, c2)
}

// PartiallyMappedWithCuts performs PMX with caller-supplied cut points.
// Empty (c1 == c2) and full (c1 == 0, c2 == n) segments are valid; cuts
// outside 0 <= c1 <= c2 <= n panic.
func PartiallyMappedWithCuts(p1, p2 []int, c1, c2 int) ([]int, []int) {
	checkParents(p1, p2)
	checkCuts(c1, c2, len(p1))

	n := len(p1)
	child1, child2 := newPartial(n), newPartial(n)
	for i := c1; i < c2; i++ {
		child1.set(i, p2[i])
		child2.set(i, p1[i])
	}

	for i := 0; i < n; i++ {
		if !child1.filled[i] {
			child1.setIfAbsent(i, p1[i])
		}
		if !child2.filled[i] {
			child2.setIfAbsent(i, p2[i])
		}
	}

	return child1.fillFrom(p2), child2.fillFrom(p1)
}
