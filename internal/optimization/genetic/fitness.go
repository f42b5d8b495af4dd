package genetic

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/copyleftdev/tspga/internal/optimization"
	"github.com/copyleftdev/tspga/internal/optimization/distance"
)

// TourLength returns the length of the closed tour ind, including the edge
// from the last point back to the first. Lower is fitter.
func TourLength(oracle distance.Oracle, ind Individual) float64 {
	n := len(ind)
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += oracle.Distance(ind[i], ind[(i+1)%n])
	}
	return sum
}

// Evaluate returns the fitness vector of pop, index-aligned with it
func Evaluate(oracle distance.Oracle, pop Population) []float64 {
	fitness := make([]float64, len(pop))
	for i, ind := range pop {
		fitness[i] = TourLength(oracle, ind)
	}
	return fitness
}

// summarize reduces a fitness vector to the statistics recorded per generation
func summarize(generation int, fitness []float64) optimization.Evaluation {
	return optimization.Evaluation{
		Generation: generation,
		Best:       floats.Min(fitness),
		Average:    stat.Mean(fitness, nil),
		Worst:      floats.Max(fitness),
	}
}
