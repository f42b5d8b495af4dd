// Package genetic implements a generational genetic algorithm over tour
// permutations: tournament selection, UOX/PMX crossover, swap mutation and
// elitism.
package genetic

import (
	"context"
	"math/rand"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"

	"github.com/copyleftdev/tspga/internal/optimization"
	"github.com/copyleftdev/tspga/internal/optimization/crossover"
	"github.com/copyleftdev/tspga/internal/optimization/distance"
)

// Elitism is the number of fittest individuals copied unchanged into every
// next generation.
const Elitism = 2

// Optimizer runs the evolution loop for one problem instance. It is
// single-use and not safe for concurrent use; observe a running optimizer
// through WithProgress.
type Optimizer struct {
	// Configuration
	config optimization.OptimizerConfig

	// Distance table used by fitness evaluation
	oracle distance.Oracle

	// Operator applied to recombined pairs
	operator crossover.Operator

	// Random number generator, the only source of randomness in a run
	rng *rand.Rand

	// Current generation
	population Population
	generation int
	status     optimization.Status

	// Best solution found
	bestSolution *optimization.Solution

	// Per-generation statistics
	history []optimization.Evaluation

	progress optimization.ProgressFunc
	logger   *zap.Logger

	// For cancellation
	cancel context.CancelFunc
}

// NewOptimizer validates config and draws the initial random population.
func NewOptimizer(oracle distance.Oracle, config optimization.OptimizerConfig) (*Optimizer, error) {
	const op = "NewOptimizer"

	if config.TournamentSize == 0 {
		config.TournamentSize = DefaultTournamentSize
	}
	if err := config.Validate(Elitism); err != nil {
		return nil, err
	}
	if oracle == nil || oracle.NumPoints() < 2 {
		return nil, optimization.WrapError(optimization.ErrInvalidConfig, "at least two points are required").
			WithOperation(op).
			WithComponent("genetic")
	}

	operator, err := crossover.New(config.CrossoverMode)
	if err != nil {
		return nil, err
	}

	// Initialize random number generator
	rng := rand.New(rand.NewSource(config.RandomSeed))
	if config.RandomSeed == 0 {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	return &Optimizer{
		config:     config,
		oracle:     oracle,
		operator:   operator,
		rng:        rng,
		population: NewRandomPopulation(config.PopulationSize, oracle.NumPoints(), rng),
		status:     optimization.StatusPending,
		history:    make([]optimization.Evaluation, 0, config.MaxGenerations+1),
		logger:     zap.NewNop(),
	}, nil
}

// WithLogger sets the logger used for run and per-generation messages.
func (o *Optimizer) WithLogger(logger *zap.Logger) *Optimizer {
	if logger != nil {
		o.logger = logger.Named("genetic")
	}
	return o
}

// WithProgress registers fn to be called after every recorded generation.
func (o *Optimizer) WithProgress(fn optimization.ProgressFunc) *Optimizer {
	o.progress = fn
	return o
}

// Config returns the effective configuration, defaults applied
func (o *Optimizer) Config() optimization.OptimizerConfig {
	return o.config
}

// Status returns the lifecycle state of the run
func (o *Optimizer) Status() optimization.Status {
	return o.status
}

// Optimize runs MaxGenerations generations followed by a final evaluation
// pass. ctx is checked once per generation boundary.
func (o *Optimizer) Optimize(ctx context.Context) (*optimization.OptimizationResult, error) {
	if o.status != optimization.StatusPending {
		return nil, optimization.WrapErrorf(optimization.ErrAlreadyStarted, "status is %s", o.status).
			WithOperation("Optimize").
			WithComponent("genetic")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	// Create a cancellable context
	ctx, o.cancel = context.WithCancel(ctx)
	defer o.cancel()

	o.status = optimization.StatusRunning
	o.logger.Info("Starting genetic optimization",
		zap.Int("points", o.oracle.NumPoints()),
		zap.Int("population_size", o.config.PopulationSize),
		zap.Int("max_generations", o.config.MaxGenerations),
		zap.Float64("crossover_rate", o.config.CrossoverRate),
		zap.Float64("mutation_rate", o.config.MutationRate),
		zap.String("crossover_mode", o.operator.Name()),
	)

	for o.generation < o.config.MaxGenerations {
		if err := ctx.Err(); err != nil {
			o.status = optimization.StatusCancelled
			o.logger.Info("Genetic optimization cancelled", zap.Int("generation", o.generation))
			return nil, err
		}

		fitness := o.evaluate()
		next, err := o.breed(fitness)
		if err != nil {
			o.status = optimization.StatusFailed
			return nil, err
		}
		o.population = next
		o.generation++
	}

	o.evaluate()
	o.status = optimization.StatusCompleted

	o.logger.Info("Genetic optimization completed",
		zap.Int("generations", o.generation),
		zap.Float64("best_fitness", o.bestSolution.Value),
	)

	return &optimization.OptimizationResult{
		BestSolution: o.bestSolution.Clone(),
		History:      o.GetHistory(),
		Generations:  o.generation,
		Config:       o.config,
	}, nil
}

// evaluate computes the fitness vector of the current population and records
// its statistics.
func (o *Optimizer) evaluate() []float64 {
	fitness := Evaluate(o.oracle, o.population)

	eval := summarize(o.generation, fitness)
	o.history = append(o.history, eval)

	best := floats.MinIdx(fitness)
	o.updateBestSolution(o.population[best], fitness[best])

	o.logger.Debug("Generation evaluated",
		zap.Int("generation", eval.Generation),
		zap.Float64("best_fitness", eval.Best),
		zap.Float64("average_fitness", eval.Average),
		zap.Float64("worst_fitness", eval.Worst),
	)

	if o.progress != nil {
		o.progress(eval, o.bestSolution.Clone())
	}
	return fitness
}

// breed builds the next population: PopulationSize-Elitism children followed
// by the elites. Validation guarantees the breeding target is even, so
// appending children in pairs lands on it exactly.
func (o *Optimizer) breed(fitness []float64) (Population, error) {
	elites := o.population.Fittest(fitness, Elitism)
	target := o.config.PopulationSize - Elitism

	next := make(Population, 0, o.config.PopulationSize)
	for len(next) < target {
		p1 := TournamentSelect(o.population, fitness, o.config.TournamentSize, o.rng)
		p2 := TournamentSelect(o.population, fitness, o.config.TournamentSize, o.rng)

		c1, c2, err := o.reproduce(p1, p2)
		if err != nil {
			return nil, err
		}
		next = append(next, c1, c2)
	}

	return append(next, elites...), nil
}

// reproduce recombines (with probability CrossoverRate) and mutates one
// parent pair. Children never share memory with the parents.
func (o *Optimizer) reproduce(p1, p2 Individual) (Individual, Individual, error) {
	var c1, c2 Individual
	if o.rng.Float64() < o.config.CrossoverRate {
		a, b := o.operator.Crossover(p1, p2, o.rng)
		c1, c2 = Individual(a), Individual(b)
	} else {
		c1, c2 = p1.Clone(), p2.Clone()
	}

	SwapMutate(c1, o.config.MutationRate, o.rng)
	SwapMutate(c2, o.config.MutationRate, o.rng)

	n := o.oracle.NumPoints()
	for _, child := range []Individual{c1, c2} {
		if err := child.Validate(n); err != nil {
			o.logger.Error("Child is not a permutation",
				zap.Int("generation", o.generation),
				zap.String("crossover_mode", o.operator.Name()),
				zap.Error(err),
			)
			return nil, nil, optimization.WrapErrorf(err, "generation %d produced an invalid child", o.generation).
				WithComponent("genetic")
		}
	}
	return c1, c2, nil
}

// GetBestSolution returns the best solution found so far
func (o *Optimizer) GetBestSolution() *optimization.Solution {
	return o.bestSolution.Clone()
}

// GetHistory returns the statistics recorded so far, one entry per
// evaluated generation
func (o *Optimizer) GetHistory() []optimization.Evaluation {
	return append([]optimization.Evaluation(nil), o.history...)
}

// Stop cancels a running optimization at the next generation boundary
func (o *Optimizer) Stop() {
	if o.cancel != nil {
		o.cancel()
	}
}

// updateBestSolution updates the best solution if the new tour is shorter
func (o *Optimizer) updateBestSolution(tour Individual, value float64) {
	if o.bestSolution == nil || value < o.bestSolution.Value {
		o.bestSolution = &optimization.Solution{
			Tour:  append([]int(nil), tour...),
			Value: value,
		}
	}
}
