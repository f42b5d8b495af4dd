// Package report writes the outcome of a solver run as a plain-text result
// file, an xlsx workbook, or console tables.
package report

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/copyleftdev/tspga/internal/errors"
	"github.com/copyleftdev/tspga/internal/optimization"
	"github.com/copyleftdev/tspga/internal/optimization/distance"
)

const component = "report"

// Report is everything a result file shows about one run.
type Report struct {
	// Name of the instance
	Name string
	// Config echoes the settings the run used
	Config optimization.OptimizerConfig
	// Result holds the best solution and per-generation statistics
	Result *optimization.OptimizationResult
	// Tour is the best tour resolved to coordinates, without the closing point
	Tour []distance.Point
}

// New resolves the best tour of result against m and builds a Report.
func New(name string, m *distance.Matrix, result *optimization.OptimizationResult) *Report {
	r := &Report{Name: name, Result: result}
	if result != nil {
		r.Config = result.Config
		if result.BestSolution != nil {
			r.Tour = m.Points(result.BestSolution.Tour)
		}
	}
	return r
}

// BestFitness returns the length of the best tour, or 0 when the run
// recorded nothing.
func (r *Report) BestFitness() float64 {
	if r.Result == nil || r.Result.BestSolution == nil {
		return 0
	}
	return r.Result.BestSolution.Value
}

func (r *Report) history() []optimization.Evaluation {
	if r.Result == nil {
		return nil
	}
	return r.Result.History
}

// WriteFile writes r to path, choosing the xlsx workbook for ".xlsx" and
// the text format otherwise. Missing parent directories are created.
func WriteFile(path string, r *Report) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "create directory %s", dir).WithOperation("WriteFile").WithComponent(component)
		}
	}

	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return WriteXLSX(path, r)
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create report").WithOperation("WriteFile").WithComponent(component)
	}
	if err := WriteText(f, r); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return errors.Wrap(err, "close report").WithOperation("WriteFile").WithComponent(component)
	}
	return nil
}

// WriteText writes the result file format: run settings, the best fitness,
// the best tour as a closed list of coordinates, then one "best average"
// line per recorded generation.
func WriteText(w io.Writer, r *Report) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "NAME: %s\n", r.Name)
	fmt.Fprintf(bw, "NUMBER OF GENERATIONS: %d\n", r.Config.MaxGenerations)
	fmt.Fprintf(bw, "POPULATION SIZE: %d\n", r.Config.PopulationSize)
	fmt.Fprintf(bw, "CROSSOVER RATE: %s\n", formatFloat(r.Config.CrossoverRate))
	fmt.Fprintf(bw, "MUTATION RATE: %s\n", formatFloat(r.Config.MutationRate))
	fmt.Fprintf(bw, "CROSSOVER MODE: %s\n", r.Config.CrossoverMode)

	fmt.Fprintf(bw, "\nBEST SOLUTION FITNESS: %s\n", formatFloat(r.BestFitness()))
	bw.WriteString("[BEST_SOLUTION]\n")
	for _, p := range r.Tour {
		fmt.Fprintf(bw, "%s %s\n", formatFloat(p.X), formatFloat(p.Y))
	}
	if len(r.Tour) > 0 {
		fmt.Fprintf(bw, "%s %s\n", formatFloat(r.Tour[0].X), formatFloat(r.Tour[0].Y))
	}

	bw.WriteString("\n[BESTS_AND_AVERAGES]\n")
	for _, e := range r.history() {
		fmt.Fprintf(bw, "%s %s\n", formatFloat(e.Best), formatFloat(e.Average))
	}

	if err := bw.Flush(); err != nil {
		return errors.Wrap(err, "write report").WithOperation("WriteText").WithComponent(component)
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
