// Command tspga solves a TSPLIB instance with the genetic algorithm and
// optionally writes the best tour and per-generation statistics to a file.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/copyleftdev/tspga/internal/config"
	"github.com/copyleftdev/tspga/internal/errors"
	"github.com/copyleftdev/tspga/internal/logging"
	"github.com/copyleftdev/tspga/internal/optimization"
	"github.com/copyleftdev/tspga/internal/optimization/genetic"
	"github.com/copyleftdev/tspga/internal/report"
	"github.com/copyleftdev/tspga/internal/tspfile"
)

// Exit codes
const (
	exitOK        = 0
	exitFailure   = 1
	exitUsage     = 2
	exitCancelled = 130
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "Failed to load configuration: %v\n", err)
		return exitFailure
	}

	flags, err := parseFlags(args, cfg, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		fmt.Fprintln(stderr, err)
		return exitUsage
	}

	logger, err := logging.NewLogger(&logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		fmt.Fprintf(stderr, "Failed to initialize logger: %v\n", err)
		return exitFailure
	}

	optCfg, err := flags.OptimizerConfig()
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitUsage
	}

	instance, err := tspfile.ParseFile(*flags.Input)
	if err != nil {
		logger.Error("Failed to read instance", errors.Fields(err))
		return exitFailure
	}
	if len(instance.Points) < 2 {
		logger.Error("Instance needs at least two points", map[string]interface{}{
			"instance": instance.Name,
			"points":   len(instance.Points),
		})
		fmt.Fprintf(stderr, "%s has %d point(s), at least two are required\n", *flags.Input, len(instance.Points))
		return exitFailure
	}
	matrix, err := instance.Matrix()
	if err != nil {
		logger.Error("Failed to build distance table", errors.Fields(err))
		return exitFailure
	}

	optimizer, err := genetic.NewOptimizer(matrix, optCfg)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitUsage
	}
	optimizer.WithLogger(logging.NewZapLogger(logger.WithField("instance", instance.Name)))
	if !*flags.Quiet {
		optimizer.WithProgress(func(eval optimization.Evaluation, _ *optimization.Solution) {
			fmt.Fprintf(stdout, "Generation %d  best %.4f  average %.4f  worst %.4f\n",
				eval.Generation, eval.Best, eval.Average, eval.Worst)
		})
	}

	printBanner(stdout, instance, optimizer.Config())

	start := time.Now()
	result, err := optimizer.Optimize(ctx)
	code := exitOK
	switch {
	case err == nil:
	case ctx.Err() != nil:
		// Report what was found before the interrupt; every recorded
		// generation was also bred, so the count equals the history length.
		history := optimizer.GetHistory()
		logger.Warn("Run cancelled", map[string]interface{}{"generations": len(history)})
		result = &optimization.OptimizationResult{
			BestSolution: optimizer.GetBestSolution(),
			History:      history,
			Generations:  len(history),
			Config:       optimizer.Config(),
		}
		code = exitCancelled
	default:
		logger.Error("Run failed", map[string]interface{}{"error": err.Error()})
		return exitFailure
	}

	rep := report.New(instance.Name, matrix, result)
	fmt.Fprintln(stdout)
	report.RenderSummary(stdout, rep)
	every := optCfg.MaxGenerations / 10
	report.RenderConvergence(stdout, rep, every)

	logger.Info("Run finished", map[string]interface{}{
		"instance":     instance.Name,
		"best_fitness": rep.BestFitness(),
		"generations":  result.Generations,
		"elapsed_ms":   time.Since(start).Milliseconds(),
	})

	if *flags.Output != "" {
		if err := report.WriteFile(*flags.Output, rep); err != nil {
			logger.Error("Failed to write report", errors.Fields(err))
			return exitFailure
		}
		fmt.Fprintf(stdout, "Report written to %s\n", *flags.Output)
	}
	return code
}

func printBanner(w io.Writer, instance *tspfile.Instance, cfg optimization.OptimizerConfig) {
	fmt.Fprintln(w, "-----------------------------")
	fmt.Fprintln(w, "Running Travelling Salesman:", instance.Name)
	fmt.Fprintln(w, "Points:", len(instance.Points))
	fmt.Fprintln(w, "Population Size:", cfg.PopulationSize)
	fmt.Fprintln(w, "Crossover Rate:", cfg.CrossoverRate)
	fmt.Fprintln(w, "Mutation Rate:", cfg.MutationRate)
	fmt.Fprintln(w, "Crossover Mode:", cfg.CrossoverMode)
	fmt.Fprintln(w, "-----------------------------")
}
