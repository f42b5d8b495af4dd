package report

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/copyleftdev/tspga/internal/optimization"
	"github.com/copyleftdev/tspga/internal/optimization/distance"
)

func squareReport(t *testing.T) *Report {
	t.Helper()

	m, err := distance.NewMatrix([]distance.Point{{X: 0, Y: 0}, {X: 1, Y: 1}, {X: 1, Y: 0}, {X: 0, Y: 1}})
	require.NoError(t, err)

	cfg := optimization.DefaultOptimizerConfig()
	cfg.PopulationSize = 4
	cfg.MaxGenerations = 2
	cfg.MutationRate = 0.25
	cfg.CrossoverMode = optimization.CrossoverPMX

	result := &optimization.OptimizationResult{
		BestSolution: &optimization.Solution{Tour: []int{0, 2, 1, 3}, Value: 4},
		History: []optimization.Evaluation{
			{Generation: 0, Best: 4.828427, Average: 5.5, Worst: 6},
			{Generation: 1, Best: 4, Average: 4.75, Worst: 5.5},
			{Generation: 2, Best: 4, Average: 4.25, Worst: 4.828427},
		},
		Generations: 2,
		Config:      cfg,
	}
	return New("square4", m, result)
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, squareReport(t)))

	want := strings.Join([]string{
		"NAME: square4",
		"NUMBER OF GENERATIONS: 2",
		"POPULATION SIZE: 4",
		"CROSSOVER RATE: 1",
		"MUTATION RATE: 0.25",
		"CROSSOVER MODE: pmx",
		"",
		"BEST SOLUTION FITNESS: 4",
		"[BEST_SOLUTION]",
		"0 0",
		"1 0",
		"1 1",
		"0 1",
		"0 0",
		"",
		"[BESTS_AND_AVERAGES]",
		"4.828427 5.5",
		"4 4.75",
		"4 4.25",
		"",
	}, "\n")
	assert.Equal(t, want, buf.String())
}

func TestWriteTextEmptyResult(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, &Report{Name: "none"}))

	out := buf.String()
	assert.Contains(t, out, "BEST SOLUTION FITNESS: 0\n[BEST_SOLUTION]\n\n[BESTS_AND_AVERAGES]\n")
}

func TestWriteFileText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs", "pmx", "run1.txt")
	require.NoError(t, WriteFile(path, squareReport(t)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "NAME: square4\n"))
}

func TestWriteFileXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "square4.xlsx")
	require.NoError(t, WriteFile(path, squareReport(t)))

	fx, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer fx.Close()

	assert.Equal(t, []string{SummarySheet, TourSheet, ConvergenceSheet}, fx.GetSheetList())

	v, err := fx.GetCellValue(SummarySheet, "B2")
	require.NoError(t, err)
	assert.Equal(t, "square4", v)

	v, err = fx.GetCellValue(SummarySheet, "B7")
	require.NoError(t, err)
	assert.Equal(t, "pmx", v)

	v, err = fx.GetCellValue(SummarySheet, "B8")
	require.NoError(t, err)
	assert.Equal(t, "4", v)

	tour, err := fx.GetRows(TourSheet)
	require.NoError(t, err)
	require.Len(t, tour, 6, "header, four points and the closing point")
	assert.Equal(t, []string{"Order", "X", "Y"}, tour[0])
	assert.Equal(t, tour[1][1:], tour[5][1:])

	conv, err := fx.GetRows(ConvergenceSheet)
	require.NoError(t, err)
	require.Len(t, conv, 4)
	assert.Equal(t, []string{"2", "4", "4.25", "4.828427"}, conv[3])
}

func TestRenderSummary(t *testing.T) {
	var buf bytes.Buffer
	RenderSummary(&buf, squareReport(t))

	out := buf.String()
	assert.Contains(t, out, "square4")
	assert.Contains(t, out, "2 / 2")
	assert.Contains(t, out, "pmx")
	assert.Contains(t, out, "4.0000")
}

func TestRenderConvergenceSampling(t *testing.T) {
	r := squareReport(t)
	for g := 3; g <= 10; g++ {
		r.Result.History = append(r.Result.History, optimization.Evaluation{Generation: g, Best: 4, Average: 4, Worst: 4})
	}

	var buf bytes.Buffer
	RenderConvergence(&buf, r, 4)

	out := buf.String()
	assert.Contains(t, out, "4.8284")
	// generations 0, 4, 8 and the final 10
	rows := 0
	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, "4.0000") || strings.Contains(line, "4.8284") {
			rows++
		}
	}
	assert.Equal(t, 4, rows)
}
