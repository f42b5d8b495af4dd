package optimization

import (
	"context"
	"fmt"
	"strings"
)

// Optimizer defines the interface for tour optimization algorithms
type Optimizer interface {
	// Optimize runs the optimization process until the generation budget is
	// spent or ctx is cancelled
	Optimize(ctx context.Context) (*OptimizationResult, error)

	// GetBestSolution returns the best solution found so far
	GetBestSolution() *Solution

	// GetHistory returns the per-generation statistics recorded so far
	GetHistory() []Evaluation

	// Stop gracefully stops the optimization process
	Stop()
}

// CrossoverMode selects the permutation crossover operator for a run.
type CrossoverMode int

const (
	// CrossoverUOX is uniform order crossover.
	CrossoverUOX CrossoverMode = 0
	// CrossoverPMX is partially-mapped crossover.
	CrossoverPMX CrossoverMode = 1
)

// String returns the short operator name used in reports.
func (m CrossoverMode) String() string {
	switch m {
	case CrossoverUOX:
		return "uox"
	case CrossoverPMX:
		return "pmx"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Valid reports whether m names a known operator.
func (m CrossoverMode) Valid() bool {
	return m == CrossoverUOX || m == CrossoverPMX
}

// ParseCrossoverMode accepts "uox"/"pmx" as well as the numeric forms "0"/"1".
func ParseCrossoverMode(s string) (CrossoverMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "uox", "0":
		return CrossoverUOX, nil
	case "pmx", "1":
		return CrossoverPMX, nil
	}
	return 0, WrapErrorf(ErrInvalidConfig, "unknown crossover mode %q", s).WithOperation("ParseCrossoverMode")
}

// OptimizerConfig contains configuration for a genetic run
type OptimizerConfig struct {
	// Number of individuals per generation (even, so breeding lands on it exactly)
	PopulationSize int

	// Number of full generations before the final evaluation pass
	MaxGenerations int

	// Probability in [0,1] that a parent pair is recombined
	CrossoverRate float64

	// Probability in [0,1] that a child receives a swap mutation
	MutationRate float64

	// Operator used when a pair is recombined
	CrossoverMode CrossoverMode

	// Candidates drawn per tournament; 0 means binary tournament
	TournamentSize int

	// Random seed for reproducibility; 0 seeds from the clock
	RandomSeed int64
}

// DefaultOptimizerConfig mirrors the defaults of the command-line solver.
func DefaultOptimizerConfig() OptimizerConfig {
	return OptimizerConfig{
		PopulationSize: 50,
		MaxGenerations: 1000,
		CrossoverRate:  1.0,
		MutationRate:   0.1,
		CrossoverMode:  CrossoverUOX,
		TournamentSize: 2,
	}
}

// Validate rejects configurations that cannot run. elitism is the number of
// individuals carried over unchanged each generation.
func (c OptimizerConfig) Validate(elitism int) error {
	const op = "OptimizerConfig.Validate"

	invalid := func(format string, args ...interface{}) error {
		return WrapErrorf(ErrInvalidConfig, format, args...).WithOperation(op)
	}

	if c.PopulationSize <= 0 {
		return invalid("population size must be positive, got %d", c.PopulationSize)
	}
	if c.PopulationSize < elitism {
		return invalid("population size %d is smaller than elitism %d", c.PopulationSize, elitism)
	}
	if (c.PopulationSize-elitism)%2 != 0 {
		return invalid("population size %d leaves an odd breeding remainder of %d", c.PopulationSize, c.PopulationSize-elitism)
	}
	if c.MaxGenerations < 0 {
		return invalid("max generations must not be negative, got %d", c.MaxGenerations)
	}
	if c.CrossoverRate < 0 || c.CrossoverRate > 1 {
		return invalid("crossover rate must be in [0,1], got %v", c.CrossoverRate)
	}
	if c.MutationRate < 0 || c.MutationRate > 1 {
		return invalid("mutation rate must be in [0,1], got %v", c.MutationRate)
	}
	if !c.CrossoverMode.Valid() {
		return invalid("crossover mode must be 0 (uox) or 1 (pmx), got %d", int(c.CrossoverMode))
	}
	if c.TournamentSize < 0 {
		return invalid("tournament size must not be negative, got %d", c.TournamentSize)
	}
	return nil
}

// Status is the lifecycle state of a run.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether no further transitions can happen.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// Solution is a tour and its length
type Solution struct {
	Tour  []int
	Value float64
}

// Clone returns a deep copy of s.
func (s *Solution) Clone() *Solution {
	if s == nil {
		return nil
	}
	return &Solution{
		Tour:  append([]int(nil), s.Tour...),
		Value: s.Value,
	}
}

// Evaluation holds the fitness statistics of one generation
type Evaluation struct {
	Generation int
	Best       float64
	Average    float64
	Worst      float64
}

// ProgressFunc is called once per recorded generation. best is a copy and
// may be retained.
type ProgressFunc func(eval Evaluation, best *Solution)

// OptimizationResult contains the result of a completed run
type OptimizationResult struct {
	BestSolution *Solution
	History      []Evaluation
	Generations  int
	Config       OptimizerConfig
}

// BestSeries returns the best fitness of every recorded generation.
func (r *OptimizationResult) BestSeries() []float64 {
	out := make([]float64, len(r.History))
	for i, e := range r.History {
		out[i] = e.Best
	}
	return out
}

// AverageSeries returns the average fitness of every recorded generation.
func (r *OptimizationResult) AverageSeries() []float64 {
	out := make([]float64, len(r.History))
	for i, e := range r.History {
		out[i] = e.Average
	}
	return out
}
