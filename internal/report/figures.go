package report

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/yourusername/pitwall/internal/analysis"
)

// Figure file names
const (
	FigureLapTimeHistogram  = "lap_time_histogram.png"
	FigurePredictedVsActual = "predicted_vs_actual.png"
	FigureKSelection        = "k_selection.png"
	FigureGridWin           = "grid_win_probability.png"
)

var (
	colorPrimary   = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	colorSecondary = color.RGBA{R: 255, G: 127, B: 14, A: 255}
	colorReference = color.RGBA{R: 128, G: 128, B: 128, A: 255}
)

const (
	figureWidth  = 8 * vg.Inch
	figureHeight = 5 * vg.Inch
)

// WriteFigures saves every figure the report has data for into dir and
// returns the written paths
func WriteFigures(r *analysis.Report, dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	builders := []struct {
		name  string
		build func(*analysis.Report) (*plot.Plot, error)
	}{
		{FigureLapTimeHistogram, lapTimeHistogram},
		{FigurePredictedVsActual, predictedVsActual},
		{FigureKSelection, kSelection},
		{FigureGridWin, gridWinProbability},
	}

	var written []string
	for _, b := range builders {
		p, err := b.build(r)
		if err != nil {
			return written, fmt.Errorf("failed to build %s: %w", b.name, err)
		}
		if p == nil {
			continue
		}
		path := filepath.Join(dir, b.name)
		if err := p.Save(figureWidth, figureHeight, path); err != nil {
			return written, fmt.Errorf("failed to save %s: %w", b.name, err)
		}
		written = append(written, path)
	}
	return written, nil
}

func lapTimeHistogram(r *analysis.Report) (*plot.Plot, error) {
	if r.EDA == nil || len(r.EDA.LapTimeHistogram) == 0 {
		return nil, nil
	}

	bins := make([]plotter.HistogramBin, len(r.EDA.LapTimeHistogram))
	for i, b := range r.EDA.LapTimeHistogram {
		bins[i] = plotter.HistogramBin{Min: b.Low, Max: b.High, Weight: float64(b.Count)}
	}
	hist := &plotter.Histogram{
		Bins:      bins,
		Width:     bins[0].Max - bins[0].Min,
		FillColor: colorPrimary,
		LineStyle: plotter.DefaultLineStyle,
	}

	p := plot.New()
	p.Title.Text = "Lap time distribution (5th to 95th percentile)"
	p.X.Label.Text = "Lap time (s)"
	p.Y.Label.Text = "Laps"
	p.Add(plotter.NewGrid(), hist)
	return p, nil
}

func predictedVsActual(r *analysis.Report) (*plot.Plot, error) {
	if r.LapTime == nil || len(r.LapTime.Sample) == 0 {
		return nil, nil
	}

	sample := r.LapTime.Sample
	ols := make(plotter.XYs, len(sample))
	gbm := make(plotter.XYs, len(sample))
	lo, hi := sample[0].ActualMs, sample[0].ActualMs
	for i, s := range sample {
		ols[i] = plotter.XY{X: s.ActualMs / 1000, Y: s.OLSMs / 1000}
		gbm[i] = plotter.XY{X: s.ActualMs / 1000, Y: s.GBMMs / 1000}
		lo = floats.Min([]float64{lo, s.ActualMs, s.OLSMs, s.GBMMs})
		hi = floats.Max([]float64{hi, s.ActualMs, s.OLSMs, s.GBMMs})
	}

	p := plot.New()
	p.Title.Text = "Predicted vs actual lap time (test set)"
	p.X.Label.Text = "Actual (s)"
	p.Y.Label.Text = "Predicted (s)"
	p.Add(plotter.NewGrid())

	for _, series := range []struct {
		name  string
		xys   plotter.XYs
		color color.Color
	}{
		{"OLS", ols, colorSecondary},
		{"Gradient boosting", gbm, colorPrimary},
	} {
		scatter, err := plotter.NewScatter(series.xys)
		if err != nil {
			return nil, err
		}
		scatter.GlyphStyle.Color = series.color
		scatter.GlyphStyle.Radius = vg.Points(1.5)
		scatter.GlyphStyle.Shape = draw.CircleGlyph{}
		p.Add(scatter)
		p.Legend.Add(series.name, scatter)
	}

	diagonal, err := plotter.NewLine(plotter.XYs{{X: lo / 1000, Y: lo / 1000}, {X: hi / 1000, Y: hi / 1000}})
	if err != nil {
		return nil, err
	}
	diagonal.LineStyle.Color = colorReference
	diagonal.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}
	p.Add(diagonal)
	p.Legend.Top = true
	p.Legend.Left = true
	return p, nil
}

func kSelection(r *analysis.Report) (*plot.Plot, error) {
	if r.Styles == nil || r.Styles.Selection == nil || len(r.Styles.Selection.Ks) == 0 {
		return nil, nil
	}

	sel := r.Styles.Selection
	maxInertia := floats.Max(sel.Inertia)
	inertia := make(plotter.XYs, len(sel.Ks))
	silhouette := make(plotter.XYs, len(sel.Ks))
	for i, k := range sel.Ks {
		scaled := 0.0
		if maxInertia > 0 {
			scaled = sel.Inertia[i] / maxInertia
		}
		inertia[i] = plotter.XY{X: float64(k), Y: scaled}
		silhouette[i] = plotter.XY{X: float64(k), Y: sel.Silhouette[i]}
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Choosing k for driver styles (best k=%d)", sel.BestK)
	p.X.Label.Text = "k"
	p.Y.Label.Text = "Score"
	p.Add(plotter.NewGrid())

	for _, series := range []struct {
		name  string
		xys   plotter.XYs
		color color.Color
	}{
		{"Inertia (share of max)", inertia, colorSecondary},
		{"Silhouette", silhouette, colorPrimary},
	} {
		line, points, err := plotter.NewLinePoints(series.xys)
		if err != nil {
			return nil, err
		}
		line.LineStyle.Color = series.color
		points.GlyphStyle.Color = series.color
		p.Add(line, points)
		p.Legend.Add(series.name, line, points)
	}
	return p, nil
}

// winRates adapts grid bands to plotter.XYer and plotter.YErrorer,
// placing band i at x=i
type winRates []analysis.GridBand

func (w winRates) Len() int { return len(w) }

func (w winRates) XY(i int) (float64, float64) {
	return float64(i), w[i].WinRate.Estimate
}

func (w winRates) YError(i int) (float64, float64) {
	ci := w[i].WinRate
	return ci.Estimate - ci.Low, ci.High - ci.Estimate
}

func gridWinProbability(r *analysis.Report) (*plot.Plot, error) {
	if r.Grid == nil || len(r.Grid.Positions) == 0 {
		return nil, nil
	}

	rates := winRates(r.Grid.Positions)
	points, err := plotter.NewScatter(rates)
	if err != nil {
		return nil, err
	}
	points.GlyphStyle.Color = colorPrimary
	points.GlyphStyle.Shape = draw.CircleGlyph{}

	bars, err := plotter.NewYErrorBars(rates)
	if err != nil {
		return nil, err
	}
	bars.LineStyle.Color = colorPrimary

	labels := make([]string, len(rates))
	for i, band := range rates {
		labels[i] = band.Label
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Win probability by grid position (%.0f%% Wilson intervals)", r.Grid.Confidence*100)
	p.X.Label.Text = "Grid position"
	p.Y.Label.Text = "P(win)"
	p.Y.Min = 0
	p.Add(plotter.NewGrid(), bars, points)
	p.NominalX(labels...)
	return p, nil
}
