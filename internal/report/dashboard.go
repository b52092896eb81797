package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/yourusername/pitwall/internal/analysis"
)

const (
	chartWidth  = "100%"
	chartHeight = "480px"
)

// WriteDashboard writes the interactive HTML dashboard to path
func WriteDashboard(r *analysis.Report, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create dashboard: %w", err)
	}
	if err := RenderDashboard(file, r); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// RenderDashboard renders the dashboard page with one chart per study
func RenderDashboard(w io.Writer, r *analysis.Report) error {
	page := components.NewPage()
	page.PageTitle = "pitwall analysis " + r.RunID.String()

	if r.EDA != nil && len(r.EDA.LapTimeHistogram) > 0 {
		page.AddCharts(lapTimeChart(r.EDA))
	}
	if r.LapTime != nil && len(r.LapTime.Sample) > 0 {
		page.AddCharts(predictionChart(r.LapTime))
	}
	if r.Styles != nil && r.Styles.Selection != nil {
		page.AddCharts(kSelectionChart(r.Styles.Selection.Ks, r.Styles.Selection.Inertia, r.Styles.Selection.Silhouette))
	}
	if r.Grid != nil && len(r.Grid.Positions) > 0 {
		page.AddCharts(gridChart(r.Grid))
	}

	if err := page.Render(w); err != nil {
		return fmt.Errorf("failed to render dashboard: %w", err)
	}
	return nil
}

func baseOptions(title, subtitle, xName, yName string) []charts.GlobalOpts {
	return []charts.GlobalOpts{
		charts.WithInitializationOpts(opts.Initialization{Width: chartWidth, Height: chartHeight}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Right: "5%"}),
		charts.WithXAxisOpts(opts.XAxis{Name: xName}),
		charts.WithYAxisOpts(opts.YAxis{Name: yName}),
	}
}

func lapTimeChart(eda *analysis.EDAResult) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(baseOptions("Lap time distribution", "5th to 95th percentile", "Lap time (s)", "Laps")...)

	labels := make([]string, len(eda.LapTimeHistogram))
	values := make([]opts.BarData, len(eda.LapTimeHistogram))
	for i, b := range eda.LapTimeHistogram {
		labels[i] = strconv.FormatFloat((b.Low+b.High)/2, 'f', 1, 64)
		values[i] = opts.BarData{Value: b.Count}
	}
	bar.SetXAxis(labels).AddSeries("Laps", values)
	return bar
}

func predictionChart(lt *analysis.LapTimeResult) *charts.Scatter {
	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(baseOptions("Predicted vs actual lap time", "Test set sample", "Actual (s)", "Predicted (s)")...)
	scatter.SetGlobalOptions(
		charts.WithXAxisOpts(opts.XAxis{Name: "Actual (s)", Type: "value"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Predicted (s)", Type: "value"}),
	)

	ols := make([]opts.ScatterData, len(lt.Sample))
	gbm := make([]opts.ScatterData, len(lt.Sample))
	for i, s := range lt.Sample {
		ols[i] = opts.ScatterData{Value: []any{s.ActualMs / 1000, s.OLSMs / 1000}, SymbolSize: 4}
		gbm[i] = opts.ScatterData{Value: []any{s.ActualMs / 1000, s.GBMMs / 1000}, SymbolSize: 4}
	}
	scatter.AddSeries("OLS", ols).AddSeries("Gradient boosting", gbm)
	return scatter
}

func kSelectionChart(ks []int, inertia, silhouette []float64) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(baseOptions("Choosing k for driver styles", "Inertia and mean silhouette per k", "k", "")...)
	line.ExtendYAxis(opts.YAxis{Name: "Silhouette", Type: "value"})

	labels := make([]string, len(ks))
	inertiaData := make([]opts.LineData, len(ks))
	silhouetteData := make([]opts.LineData, len(ks))
	for i, k := range ks {
		labels[i] = strconv.Itoa(k)
		inertiaData[i] = opts.LineData{Value: inertia[i]}
		silhouetteData[i] = opts.LineData{Value: silhouette[i], YAxisIndex: 1}
	}
	line.SetXAxis(labels).
		AddSeries("Inertia", inertiaData).
		AddSeries("Silhouette", silhouetteData, charts.WithLineChartOpts(opts.LineChart{YAxisIndex: 1}))
	return line
}

func gridChart(g *analysis.GridResult) *charts.Line {
	line := charts.NewLine()
	subtitle := fmt.Sprintf("%.0f%% Wilson interval; %s", g.Confidence*100, g.Verdict)
	line.SetGlobalOptions(baseOptions("Win probability by grid position", subtitle, "Grid position", "P(win)")...)

	labels := make([]string, len(g.Positions))
	estimate := make([]opts.LineData, len(g.Positions))
	low := make([]opts.LineData, len(g.Positions))
	high := make([]opts.LineData, len(g.Positions))
	for i, p := range g.Positions {
		labels[i] = p.Label
		estimate[i] = opts.LineData{Value: p.WinRate.Estimate}
		low[i] = opts.LineData{Value: p.WinRate.Low}
		high[i] = opts.LineData{Value: p.WinRate.High}
	}
	dashed := charts.WithLineStyleOpts(opts.LineStyle{Type: "dashed", Opacity: opts.Float(0.6)})
	line.SetXAxis(labels).
		AddSeries("Win rate", estimate).
		AddSeries("Lower bound", low, dashed).
		AddSeries("Upper bound", high, dashed)
	return line
}
