package distance

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copyleftdev/tspga/internal/optimization"
)

func unitSquare() []Point {
	return []Point{{0, 0}, {1, 0}, {1, 1}, {0, 1}}
}

func TestEuclidean(t *testing.T) {
	tests := []struct {
		name     string
		a, b     Point
		expected float64
	}{
		{name: "same point", a: Point{1, 2}, b: Point{1, 2}, expected: 0},
		{name: "axis aligned", a: Point{0, 0}, b: Point{3, 0}, expected: 3},
		{name: "pythagorean", a: Point{0, 0}, b: Point{3, 4}, expected: 5},
		{name: "negative coordinates", a: Point{-1, -1}, b: Point{2, 3}, expected: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, Euclidean(tt.a, tt.b), 1e-12)
			assert.InDelta(t, tt.expected, Euclidean(tt.b, tt.a), 1e-12)
		})
	}
}

func TestNewMatrix(t *testing.T) {
	m, err := NewMatrix(unitSquare())
	require.NoError(t, err)
	require.Equal(t, 4, m.NumPoints())

	assert.Equal(t, 0.0, m.Distance(2, 2))
	assert.InDelta(t, 1.0, m.Distance(0, 1), 1e-12)
	assert.InDelta(t, math.Sqrt2, m.Distance(0, 2), 1e-12)

	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			assert.Equal(t, m.Distance(i, j), m.Distance(j, i), "distance must be symmetric")
		}
	}
}

func TestNewMatrixCopiesPoints(t *testing.T) {
	pts := unitSquare()
	m, err := NewMatrix(pts)
	require.NoError(t, err)

	pts[0] = Point{100, 100}
	assert.Equal(t, Point{0, 0}, m.Point(0))
}

func TestNewMatrixEmpty(t *testing.T) {
	m, err := NewMatrix(nil)
	assert.Nil(t, m)
	require.Error(t, err)
	assert.True(t, errors.Is(err, optimization.ErrInvalidConfig))
}

func TestDistanceOutOfRangePanics(t *testing.T) {
	m, err := NewMatrix(unitSquare())
	require.NoError(t, err)

	for _, idx := range [][2]int{{-1, 0}, {0, 4}, {4, 4}} {
		func() {
			defer func() {
				rec := recover()
				require.NotNil(t, rec, "expected panic for %v", idx)
				perr, ok := rec.(error)
				require.True(t, ok)
				assert.True(t, errors.Is(perr, optimization.ErrIndexOutOfRange))
			}()
			m.Distance(idx[0], idx[1])
		}()
	}
}

func TestPoints(t *testing.T) {
	m, err := NewMatrix(unitSquare())
	require.NoError(t, err)

	got := m.Points([]int{2, 0, 3, 1})
	assert.Equal(t, []Point{{1, 1}, {0, 0}, {0, 1}, {1, 0}}, got)
}

func TestMatrixImplementsOracle(t *testing.T) {
	var _ Oracle = (*Matrix)(nil)
}
