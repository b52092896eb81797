// Package report renders an analysis.Report as console tables, JSON, an
// Excel workbook, PNG figures and an HTML dashboard.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/yourusername/pitwall/internal/analysis"
	"github.com/yourusername/pitwall/internal/dataset"
	"github.com/yourusername/pitwall/internal/features"
	"github.com/yourusername/pitwall/internal/stats"
)

// consoleMembers is the number of drivers listed per style cluster
const consoleMembers = 5

// WriteConsole prints every section of the report as tables
func WriteConsole(w io.Writer, r *analysis.Report) error {
	sections := []func(*analysis.Report) string{
		datasetSection,
		edaSection,
		lapTimeSection,
		stylesSection,
		gridSection,
	}

	header := fmt.Sprintf("pitwall analysis %s (%s, %s)\n\n", r.RunID, r.Source, r.Duration().Round(time.Millisecond))
	if _, err := io.WriteString(w, header); err != nil {
		return err
	}
	for _, section := range sections {
		out := section(r)
		if out == "" {
			continue
		}
		if _, err := io.WriteString(w, out+"\n\n"); err != nil {
			return err
		}
	}
	return nil
}

func newTable(title string) table.Writer {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.SetTitle(title)
	tbl.Style().Title.Align = text.AlignLeft
	return tbl
}

func count(n int) string {
	return humanize.Comma(int64(n))
}

func ms(v float64) string {
	return humanize.CommafWithDigits(v, 0)
}

func percent(v float64) string {
	return fmt.Sprintf("%.1f%%", v*100)
}

func interval(ci stats.Interval) string {
	return fmt.Sprintf("%s [%s, %s]", percent(ci.Estimate), percent(ci.Low), percent(ci.High))
}

func datasetSection(r *analysis.Report) string {
	tbl := newTable("Dataset")
	tbl.AppendHeader(table.Row{"Table", "Rows"})
	for _, name := range dataset.Tables {
		tbl.AppendRow(table.Row{name, count(r.Dataset.RowCounts[name])})
	}
	tbl.AppendFooter(table.Row{
		fmt.Sprintf("Seasons %d-%d", r.Dataset.FirstYear, r.Dataset.LastYear),
		fmt.Sprintf("%s skipped", count(r.Dataset.Skipped)),
	})
	return tbl.Render()
}

func edaSection(r *analysis.Report) string {
	eda := r.EDA
	if eda == nil {
		return ""
	}
	var parts []string

	dist := newTable("Distributions (ms)")
	dist.AppendHeader(table.Row{"Sample", "Count", "Mean", "Std", "P5", "Median", "P95"})
	for _, row := range []struct {
		name string
		s    stats.Summary
	}{
		{"Lap times", eda.LapTimes},
		{"Pit stops", eda.PitStops},
	} {
		dist.AppendRow(table.Row{row.name, count(row.s.Count), ms(row.s.Mean), ms(row.s.Std), ms(row.s.P5), ms(row.s.Median), ms(row.s.P95)})
	}
	parts = append(parts, dist.Render())

	circuits := newTable("Lap times by circuit (ms)")
	circuits.AppendHeader(table.Row{"Circuit", "Laps", "Median", "P95"})
	for _, c := range eda.CircuitLapTimes {
		circuits.AppendRow(table.Row{c.Name, count(c.LapTimes.Count), ms(c.LapTimes.Median), ms(c.LapTimes.P95)})
	}
	parts = append(parts, circuits.Render())

	leaders := newTable("Most wins")
	leaders.AppendHeader(table.Row{"#", "Driver", "Wins", "Constructor", "Wins"})
	for i := 0; i < max(len(eda.TopDrivers), len(eda.TopConstructors)); i++ {
		row := table.Row{i + 1, "", "", "", ""}
		if i < len(eda.TopDrivers) {
			row[1], row[2] = eda.TopDrivers[i].Name, eda.TopDrivers[i].Count
		}
		if i < len(eda.TopConstructors) {
			row[3], row[4] = eda.TopConstructors[i].Name, eda.TopConstructors[i].Count
		}
		leaders.AppendRow(row)
	}
	parts = append(parts, leaders.Render())

	points := newTable("Constructor points")
	points.AppendHeader(table.Row{"Constructor", "Points"})
	for _, p := range eda.ConstructorPoints {
		points.AppendRow(table.Row{p.Name, p.Points.StringFixed(1)})
	}
	parts = append(parts, points.Render())

	return strings.Join(parts, "\n\n")
}

func lapTimeSection(r *analysis.Report) string {
	lt := r.LapTime
	if lt == nil {
		return ""
	}
	var parts []string

	models := newTable(fmt.Sprintf("Lap time models (%s train / %s test laps)", count(lt.TrainRows), count(lt.TestRows)))
	models.AppendHeader(table.Row{"Model", "Train R²", "Test R²", "Test RMSE (log)", "Test MAE (log)", "Test RMSE (ms)"})
	for _, m := range []analysis.ModelResult{lt.OLS, lt.GBM} {
		models.AppendRow(table.Row{
			strings.ToUpper(m.Name),
			fmt.Sprintf("%.4f", m.Train.R2),
			fmt.Sprintf("%.4f", m.Test.R2),
			fmt.Sprintf("%.5f", m.Test.RMSE),
			fmt.Sprintf("%.5f", m.Test.MAE),
			ms(m.RMSEMs),
		})
	}
	parts = append(parts, models.Render())

	coef := newTable("OLS standardised coefficients")
	coef.AppendHeader(table.Row{"Feature", "Estimate", "Std error", "t", "p"})
	for _, c := range lt.Coefficients {
		coef.AppendRow(table.Row{
			c.Feature,
			fmt.Sprintf("%.5f", c.Estimate),
			fmt.Sprintf("%.5f", c.StdError),
			fmt.Sprintf("%.2f", c.TStat),
			fmt.Sprintf("%.3g", c.PValue),
		})
	}
	if len(lt.ConstantFeatures) > 0 {
		coef.AppendFooter(table.Row{"Constant, not fitted: " + strings.Join(lt.ConstantFeatures, ", ")})
	}
	parts = append(parts, coef.Render())

	imp := newTable("Gradient boosting feature importance")
	imp.AppendHeader(table.Row{"Feature", "Gain share"})
	for _, i := range lt.Importance {
		imp.AppendRow(table.Row{i.Feature, percent(i.Gain)})
	}
	parts = append(parts, imp.Render())

	return strings.Join(parts, "\n\n")
}

func stylesSection(r *analysis.Report) string {
	st := r.Styles
	if st == nil {
		return ""
	}

	tbl := newTable(fmt.Sprintf("Driver styles (%d drivers, k=%d, silhouette %.3f)", st.Drivers, st.K, st.Silhouette))
	header := table.Row{"Cluster", "Size", "Style"}
	for _, name := range features.StyleFeatureNames {
		header = append(header, name)
	}
	header = append(header, "Drivers")
	tbl.AppendHeader(header)

	for _, c := range st.Clusters {
		row := table.Row{c.ID, c.Size, c.Description}
		for _, v := range c.Centroid {
			row = append(row, fmt.Sprintf("%.3g", v))
		}
		names := make([]string, 0, consoleMembers)
		for _, m := range c.Members[:min(consoleMembers, len(c.Members))] {
			names = append(names, m.Name)
		}
		row = append(row, strings.Join(names, ", "))
		tbl.AppendRow(row)
	}
	return tbl.Render()
}

func gridSection(r *analysis.Report) string {
	g := r.Grid
	if g == nil {
		return ""
	}
	var parts []string

	ci := fmt.Sprintf("Win rate (%.0f%% CI)", g.Confidence*100)
	positions := newTable(fmt.Sprintf("Win probability by grid position (%s starts)", count(g.Starts)))
	positions.AppendHeader(table.Row{"Grid", "Starts", "Wins", ci})
	for _, p := range g.Positions {
		positions.AppendRow(table.Row{p.Label, count(p.Starts), count(p.Wins), interval(p.WinRate)})
	}
	parts = append(parts, positions.Render())

	decades := newTable("Pole position conversion by decade")
	decades.AppendHeader(table.Row{"Decade", "Poles", "Wins", ci})
	for _, d := range g.PoleByDecade {
		decades.AppendRow(table.Row{fmt.Sprintf("%ds", d.Decade), d.Starts, d.Wins, interval(d.WinRate)})
	}
	parts = append(parts, decades.Render())

	parts = append(parts, g.Verdict)
	if g.ChiSquare.LowExpected > 0 {
		parts = append(parts, fmt.Sprintf("Warning: %d cells have an expected count below 5", g.ChiSquare.LowExpected))
	}
	return strings.Join(parts, "\n\n")
}
