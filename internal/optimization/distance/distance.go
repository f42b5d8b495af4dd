// Package distance provides the precomputed Euclidean distance table that
// fitness evaluation queries.
package distance

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/copyleftdev/tspga/internal/optimization"
)

// Oracle answers distance queries between point indices
type Oracle interface {
	// NumPoints returns the number of points n; valid indices are [0, n)
	NumPoints() int

	// Distance returns the distance between points i and j. It is symmetric.
	Distance(i, j int) float64
}

// Point is a location in the plane
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Euclidean returns the straight-line distance between a and b
func Euclidean(a, b Point) float64 {
	return floats.Distance([]float64{a.X, a.Y}, []float64{b.X, b.Y}, 2)
}

// Matrix implements Oracle over a fixed point set. All pairwise distances
// are computed once at construction.
type Matrix struct {
	points []Point
	table  *mat.SymDense
}

// NewMatrix precomputes the distance table for points. The points slice is
// copied.
func NewMatrix(points []Point) (*Matrix, error) {
	if len(points) == 0 {
		return nil, optimization.WrapError(optimization.ErrInvalidConfig, "at least one point is required").
			WithOperation("NewMatrix").
			WithComponent("distance")
	}

	n := len(points)
	table := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			table.SetSym(i, j, Euclidean(points[i], points[j]))
		}
	}

	return &Matrix{
		points: append([]Point(nil), points...),
		table:  table,
	}, nil
}

// NumPoints returns the number of points in the table
func (m *Matrix) NumPoints() int {
	return len(m.points)
}

// Distance returns the precomputed distance between points i and j.
// An index outside [0, n) is a programming error and panics.
func (m *Matrix) Distance(i, j int) float64 {
	m.check(i)
	m.check(j)
	return m.table.At(i, j)
}

// Point returns the coordinates of point i.
func (m *Matrix) Point(i int) Point {
	m.check(i)
	return m.points[i]
}

// Points resolves a tour of indices to coordinates, in tour order.
func (m *Matrix) Points(tour []int) []Point {
	out := make([]Point, len(tour))
	for k, i := range tour {
		out[k] = m.Point(i)
	}
	return out
}

func (m *Matrix) check(i int) {
	if i < 0 || i >= len(m.points) {
		panic(optimization.WrapError(optimization.ErrIndexOutOfRange, fmt.Sprintf("index %d not in [0, %d)", i, len(m.points))).
			WithOperation("Distance").
			WithComponent("distance"))
	}
}
