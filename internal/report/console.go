package report

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// RenderSummary prints the run settings and the best fitness as a table.
func RenderSummary(w io.Writer, r *Report) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("TRAVELLING SALESMAN: " + r.Name)
	t.SetStyle(table.StyleRounded)

	generations := 0
	if r.Result != nil {
		generations = r.Result.Generations
	}

	t.AppendRows([]table.Row{
		{"Points", len(r.Tour)},
		{"Population size", r.Config.PopulationSize},
		{"Generations", fmt.Sprintf("%d / %d", generations, r.Config.MaxGenerations)},
		{"Crossover rate", r.Config.CrossoverRate},
		{"Mutation rate", r.Config.MutationRate},
		{"Crossover mode", r.Config.CrossoverMode.String()},
	})
	t.AppendSeparator()
	t.AppendRow(table.Row{"Best solution fitness", fmt.Sprintf("%.4f", r.BestFitness())})

	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 22, Align: text.AlignLeft},
		{Number: 2, WidthMin: 16, Align: text.AlignRight},
	})

	t.Render()
}

// RenderConvergence prints every every-th generation plus the last one.
// every below 1 prints all generations.
func RenderConvergence(w io.Writer, r *Report, every int) {
	if every < 1 {
		every = 1
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("CONVERGENCE")
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Generation", "Best", "Average", "Worst"})

	history := r.history()
	for i, e := range history {
		if i%every != 0 && i != len(history)-1 {
			continue
		}
		t.AppendRow(table.Row{
			e.Generation,
			fmt.Sprintf("%.4f", e.Best),
			fmt.Sprintf("%.4f", e.Average),
			fmt.Sprintf("%.4f", e.Worst),
		})
	}

	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
	})

	t.Render()
}
