package main

import (
	"flag"
	"fmt"
	"io"

	"github.com/copyleftdev/tspga/internal/config"
	"github.com/copyleftdev/tspga/internal/optimization"
)

// CLIFlags holds the command line flags of the solver
type CLIFlags struct {
	// Input / output
	Input  *string
	Output *string

	// GA settings
	MaxGenerations *int
	PopulationSize *int
	CrossoverRate  *float64
	MutationRate   *float64
	CrossoverMode  *string
	TournamentSize *int
	Seed           *int64

	// Console
	Quiet *bool
}

// parseFlags parses args. Defaults come from the GA_* environment settings
// in cfg, so flags only need to name what differs.
func parseFlags(args []string, cfg *config.Config, output io.Writer) (*CLIFlags, error) {
	fs := flag.NewFlagSet("tspga", flag.ContinueOnError)
	fs.SetOutput(output)

	f := &CLIFlags{
		Input:  fs.String("i", "", "the input .tsp file (required)"),
		Output: fs.String("o", "", "optional output file for the best tour and the bests and averages (.txt or .xlsx)"),

		MaxGenerations: fs.Int("mx", cfg.GA.MaxGenerations, "the maximum number of generations to run for"),
		PopulationSize: fs.Int("ps", cfg.GA.PopulationSize, "the population size"),
		CrossoverRate:  fs.Float64("cr", cfg.GA.CrossoverRate, "the crossover rate"),
		MutationRate:   fs.Float64("mr", cfg.GA.MutationRate, "the mutation rate"),
		CrossoverMode:  fs.String("cm", cfg.GA.CrossoverMode, "the mode of crossover, 0 or uox, 1 or pmx"),
		TournamentSize: fs.Int("k", cfg.GA.TournamentSize, "the number of candidates drawn per tournament"),
		Seed:           fs.Int64("seed", cfg.GA.Seed, "random seed, 0 seeds from the clock"),

		Quiet: fs.Bool("quiet", false, "do not print per-generation statistics"),
	}

	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "usage: tspga -i <file.tsp> [flags]")
		fmt.Fprintln(fs.Output(), "run a genetic algorithm to solve the travelling salesman problem")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if *f.Input == "" {
		fs.Usage()
		return nil, fmt.Errorf("the input file (-i) is required")
	}
	return f, nil
}

// OptimizerConfig converts the flags into the engine's configuration.
func (f *CLIFlags) OptimizerConfig() (optimization.OptimizerConfig, error) {
	mode, err := optimization.ParseCrossoverMode(*f.CrossoverMode)
	if err != nil {
		return optimization.OptimizerConfig{}, err
	}
	return optimization.OptimizerConfig{
		PopulationSize: *f.PopulationSize,
		MaxGenerations: *f.MaxGenerations,
		CrossoverRate:  *f.CrossoverRate,
		MutationRate:   *f.MutationRate,
		CrossoverMode:  mode,
		TournamentSize: *f.TournamentSize,
		RandomSeed:     *f.Seed,
	}, nil
}
