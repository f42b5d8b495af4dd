package report

import (
	"github.com/xuri/excelize/v2"

	"github.com/copyleftdev/tspga/internal/errors"
)

// Sheet names of the workbook written by WriteXLSX.
const (
	SummarySheet     = "Summary"
	TourSheet        = "Tour"
	ConvergenceSheet = "Convergence"
)

// WriteXLSX writes r as a workbook with a Summary sheet of settings, a Tour
// sheet of the closed best tour and a Convergence sheet of per-generation
// statistics.
func WriteXLSX(path string, r *Report) error {
	fx := excelize.NewFile()
	defer fx.Close()

	fx.SetSheetName(fx.GetSheetName(0), SummarySheet)
	if _, err := fx.NewSheet(TourSheet); err != nil {
		return wrapXLSX(err, "create tour sheet")
	}
	if _, err := fx.NewSheet(ConvergenceSheet); err != nil {
		return wrapXLSX(err, "create convergence sheet")
	}

	headerStyle, err := fx.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"2F4F4F"}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
		},
	})
	if err != nil {
		return wrapXLSX(err, "create header style")
	}

	if err := writeSummarySheet(fx, r, headerStyle); err != nil {
		return err
	}
	if err := writeTourSheet(fx, r, headerStyle); err != nil {
		return err
	}
	if err := writeConvergenceSheet(fx, r, headerStyle); err != nil {
		return err
	}

	if err := fx.SaveAs(path); err != nil {
		return wrapXLSX(err, "save workbook")
	}
	return nil
}

func writeSummarySheet(fx *excelize.File, r *Report, headerStyle int) error {
	rows := [][]interface{}{
		{"Name", r.Name},
		{"Number of generations", r.Config.MaxGenerations},
		{"Population size", r.Config.PopulationSize},
		{"Crossover rate", r.Config.CrossoverRate},
		{"Mutation rate", r.Config.MutationRate},
		{"Crossover mode", r.Config.CrossoverMode.String()},
		{"Best solution fitness", r.BestFitness()},
	}

	fx.SetColWidth(SummarySheet, "A", "A", 24)
	fx.SetColWidth(SummarySheet, "B", "B", 20)
	if err := writeRow(fx, SummarySheet, 1, []interface{}{"Setting", "Value"}); err != nil {
		return err
	}
	fx.SetCellStyle(SummarySheet, "A1", "B1", headerStyle)
	for i, row := range rows {
		if err := writeRow(fx, SummarySheet, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func writeTourSheet(fx *excelize.File, r *Report, headerStyle int) error {
	if err := writeRow(fx, TourSheet, 1, []interface{}{"Order", "X", "Y"}); err != nil {
		return err
	}
	fx.SetCellStyle(TourSheet, "A1", "C1", headerStyle)

	n := len(r.Tour)
	for i := 0; i < n; i++ {
		p := r.Tour[i]
		if err := writeRow(fx, TourSheet, i+2, []interface{}{i, p.X, p.Y}); err != nil {
			return err
		}
	}
	if n > 0 {
		if err := writeRow(fx, TourSheet, n+2, []interface{}{n, r.Tour[0].X, r.Tour[0].Y}); err != nil {
			return err
		}
	}
	return nil
}

func writeConvergenceSheet(fx *excelize.File, r *Report, headerStyle int) error {
	fx.SetColWidth(ConvergenceSheet, "A", "D", 14)
	if err := writeRow(fx, ConvergenceSheet, 1, []interface{}{"Generation", "Best", "Average", "Worst"}); err != nil {
		return err
	}
	fx.SetCellStyle(ConvergenceSheet, "A1", "D1", headerStyle)

	for i, e := range r.history() {
		if err := writeRow(fx, ConvergenceSheet, i+2, []interface{}{e.Generation, e.Best, e.Average, e.Worst}); err != nil {
			return err
		}
	}
	return nil
}

func writeRow(fx *excelize.File, sheet string, row int, values []interface{}) error {
	for col, v := range values {
		cell, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			return wrapXLSX(err, "cell name")
		}
		if err := fx.SetCellValue(sheet, cell, v); err != nil {
			return wrapXLSX(err, "set "+sheet+"!"+cell)
		}
	}
	return nil
}

func wrapXLSX(err error, msg string) error {
	return errors.Wrap(err, msg).WithOperation("WriteXLSX").WithComponent(component)
}
