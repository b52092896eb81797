package report

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/yourusername/pitwall/internal/analysis"
	"github.com/yourusername/pitwall/internal/features"
)

// Workbook sheet names
const (
	SheetSummary      = "Summary"
	SheetLapTimeModel = "LapTimeModel"
	SheetStyles       = "Styles"
	SheetGridWin      = "GridWin"
)

const columnWidth = 18

// WriteWorkbook writes the report tables to an Excel workbook
func WriteWorkbook(r *analysis.Report, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return err
	}
	sheets := []struct {
		name string
		rows [][]any
	}{
		{SheetSummary, summaryRows(r)},
		{SheetLapTimeModel, lapTimeRows(r.LapTime)},
		{SheetStyles, styleRows(r.Styles)},
		{SheetGridWin, gridRows(r.Grid)},
	}
	for i, sheet := range sheets {
		if i > 0 {
			if _, err := f.NewSheet(sheet.name); err != nil {
				return fmt.Errorf("failed to add sheet %s: %w", sheet.name, err)
			}
		}
		if err := writeRows(f, sheet.name, sheet.rows); err != nil {
			return fmt.Errorf("failed to fill sheet %s: %w", sheet.name, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	width := 0
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		values := row
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return err
		}
		width = max(width, len(row))
	}
	if width == 0 {
		return nil
	}
	last, err := excelize.ColumnNumberToName(width)
	if err != nil {
		return err
	}
	return f.SetColWidth(sheet, "A", last, columnWidth)
}

func summaryRows(r *analysis.Report) [][]any {
	h := r.Headline()
	rows := [][]any{
		{"Run ID", r.RunID.String()},
		{"Source", r.Source},
		{"Started", r.StartedAt},
		{"Finished", r.FinishedAt},
		{"Seasons", fmt.Sprintf("%d-%d", r.Dataset.FirstYear, r.Dataset.LastYear)},
		{"Skipped rows", r.Dataset.Skipped},
		{},
		{"Table", "Rows"},
	}
	for _, table := range sortedKeys(r.Dataset.RowCounts) {
		rows = append(rows, []any{table, r.Dataset.RowCounts[table]})
	}
	rows = append(rows,
		[]any{},
		[]any{"OLS test R²", h.OLSTestR2},
		[]any{"GBM test R²", h.GBMTestR2},
		[]any{"GBM test RMSE (ms)", h.GBMTestRMSEMs},
		[]any{"Style clusters", h.StyleClusters},
		[]any{"Silhouette", h.Silhouette},
		[]any{"Grid chi-square", h.GridChiSquare},
		[]any{"Grid p-value", h.GridPValue},
		[]any{"Cramér's V", h.GridCramersV},
		[]any{"Pole win rate", h.PoleWinRate},
	)
	return rows
}

func lapTimeRows(lt *analysis.LapTimeResult) [][]any {
	if lt == nil {
		return nil
	}
	rows := [][]any{
		{"Model", "Train R²", "Test R²", "Test RMSE (log)", "Test MAE (log)", "Test RMSE (ms)"},
	}
	for _, m := range []analysis.ModelResult{lt.OLS, lt.GBM} {
		rows = append(rows, []any{m.Name, m.Train.R2, m.Test.R2, m.Test.RMSE, m.Test.MAE, m.RMSEMs})
	}

	rows = append(rows, []any{}, []any{"Feature", "Estimate", "Std error", "t", "p"})
	for _, c := range lt.Coefficients {
		rows = append(rows, []any{c.Feature, c.Estimate, c.StdError, c.TStat, c.PValue})
	}

	rows = append(rows, []any{}, []any{"Feature", "GBM gain share"})
	for _, imp := range lt.Importance {
		rows = append(rows, []any{imp.Feature, imp.Gain})
	}
	return rows
}

func styleRows(st *analysis.StyleResult) [][]any {
	if st == nil {
		return nil
	}
	header := []any{"Cluster", "Size", "Description"}
	for _, name := range features.StyleFeatureNames {
		header = append(header, name)
	}
	rows := [][]any{header}
	for _, c := range st.Clusters {
		row := []any{c.ID, c.Size, c.Description}
		for _, v := range c.Centroid {
			row = append(row, v)
		}
		rows = append(rows, row)
	}

	rows = append(rows, []any{}, []any{"Cluster", "Driver", "Starts"})
	for _, c := range st.Clusters {
		for _, m := range c.Members {
			rows = append(rows, []any{c.ID, m.Name, m.Starts})
		}
	}

	if st.Selection != nil {
		rows = append(rows, []any{}, []any{"k", "Inertia", "Silhouette"})
		for i, k := range st.Selection.Ks {
			rows = append(rows, []any{k, st.Selection.Inertia[i], st.Selection.Silhouette[i]})
		}
	}
	return rows
}

func gridRows(g *analysis.GridResult) [][]any {
	if g == nil {
		return nil
	}
	rows := [][]any{{"Grid", "Starts", "Wins", "Win rate", "CI low", "CI high"}}
	for _, p := range g.Positions {
		rows = append(rows, []any{p.Label, p.Starts, p.Wins, p.WinRate.Estimate, p.WinRate.Low, p.WinRate.High})
	}

	rows = append(rows, []any{}, []any{"Bucket", "Starts", "Wins", "Win rate"})
	for _, b := range g.Buckets {
		rows = append(rows, []any{b.Label, b.Starts, b.Wins, b.WinRate.Estimate})
	}

	rows = append(rows, []any{}, []any{"Decade", "Poles", "Wins", "Win rate", "CI low", "CI high"})
	for _, d := range g.PoleByDecade {
		rows = append(rows, []any{d.Decade, d.Starts, d.Wins, d.WinRate.Estimate, d.WinRate.Low, d.WinRate.High})
	}

	rows = append(rows,
		[]any{},
		[]any{"Chi-square", g.ChiSquare.Statistic},
		[]any{"Degrees of freedom", g.ChiSquare.DF},
		[]any{"p-value", g.ChiSquare.PValue},
		[]any{"Cramér's V", g.ChiSquare.CramersV},
		[]any{"Verdict", g.Verdict},
	)
	return rows
}
