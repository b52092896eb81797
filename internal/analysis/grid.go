package analysis

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/yourusername/pitwall/internal/config"
	"github.com/yourusername/pitwall/internal/dataset"
	"github.com/yourusername/pitwall/internal/features"
	"github.com/yourusername/pitwall/internal/stats"
)

// GridBand is a range of starting positions with its win record.
// MaxGrid 0 means the band is open-ended.
type GridBand struct {
	Label   string         `json:"label"`
	MinGrid int            `json:"min_grid"`
	MaxGrid int            `json:"max_grid"`
	Starts  int            `json:"starts"`
	Wins    int            `json:"wins"`
	WinRate stats.Interval `json:"win_rate"`
}

func (b GridBand) contains(grid int) bool {
	return grid >= b.MinGrid && (b.MaxGrid == 0 || grid <= b.MaxGrid)
}

// DecadeRate is the pole position conversion rate of one decade
type DecadeRate struct {
	Decade  int            `json:"decade"`
	Starts  int            `json:"starts"`
	Wins    int            `json:"wins"`
	WinRate stats.Interval `json:"win_rate"`
}

// GridResult is the outcome of the grid position study
type GridResult struct {
	Starts       int                    `json:"starts"`
	Wins         int                    `json:"wins"`
	Confidence   float64                `json:"confidence"`
	Alpha        float64                `json:"alpha"`
	Positions    []GridBand             `json:"positions"`
	Buckets      []GridBand             `json:"buckets"`
	ChiSquare    *stats.ChiSquareResult `json:"chi_square"`
	PoleByDecade []DecadeRate           `json:"pole_by_decade"`
	Significant  bool                   `json:"significant"`
	Verdict      string                 `json:"verdict"`
}

// chiSquareBands groups starting positions so that every cell of the
// contingency table has a usable expected count
var chiSquareBands = []GridBand{
	{Label: "1", MinGrid: 1, MaxGrid: 1},
	{Label: "2", MinGrid: 2, MaxGrid: 2},
	{Label: "3", MinGrid: 3, MaxGrid: 3},
	{Label: "4-5", MinGrid: 4, MaxGrid: 5},
	{Label: "6-10", MinGrid: 6, MaxGrid: 10},
	{Label: "11+", MinGrid: 11},
}

// GridStudy tests whether starting position and winning are independent.
// It reports win rates with Wilson intervals for each position up to
// cfg.MaxGrid (later positions are folded into the last row), a chi-square
// test over bucketed positions and pole conversion per decade.
func GridStudy(ctx context.Context, ds *dataset.Dataset, cfg config.GridConfig) (*GridResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	outcomes := features.GridOutcomes(ds, cfg)
	if len(outcomes) == 0 {
		return nil, fmt.Errorf("no grid starts from %d onwards", cfg.MinYear)
	}

	res := &GridResult{Confidence: cfg.Confidence, Alpha: cfg.Alpha}
	positions := positionBands(cfg.MaxGrid)
	buckets := append([]GridBand(nil), chiSquareBands...)
	decades := map[int]*DecadeRate{}

	for _, o := range outcomes {
		res.Starts++
		if o.Won {
			res.Wins++
		}
		tally(positions, o)
		tally(buckets, o)
		if o.Grid == 1 {
			decade := o.Year - o.Year%10
			d, ok := decades[decade]
			if !ok {
				d = &DecadeRate{Decade: decade}
				decades[decade] = d
			}
			d.Starts++
			if o.Won {
				d.Wins++
			}
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var err error
	if res.Positions, err = withIntervals(positions, cfg.Confidence); err != nil {
		return nil, err
	}
	if res.Buckets, err = withIntervals(buckets, cfg.Confidence); err != nil {
		return nil, err
	}

	table := make([][]float64, len(res.Buckets))
	for i, b := range res.Buckets {
		table[i] = []float64{float64(b.Wins), float64(b.Starts - b.Wins)}
	}
	res.ChiSquare, err = stats.ChiSquareIndependence(table)
	if err != nil {
		return nil, fmt.Errorf("grid independence test: %w", err)
	}

	for _, d := range decades {
		if d.WinRate, err = stats.Wilson(d.Wins, d.Starts, cfg.Confidence); err != nil {
			return nil, err
		}
		res.PoleByDecade = append(res.PoleByDecade, *d)
	}
	sort.Slice(res.PoleByDecade, func(i, j int) bool {
		return res.PoleByDecade[i].Decade < res.PoleByDecade[j].Decade
	})

	res.Significant = res.ChiSquare.PValue < cfg.Alpha
	res.Verdict = verdict(res)
	return res, nil
}

// positionBands returns one band per position below maxGrid and an
// open-ended band from maxGrid onwards
func positionBands(maxGrid int) []GridBand {
	bands := make([]GridBand, 0, maxGrid)
	for g := 1; g < maxGrid; g++ {
		bands = append(bands, GridBand{Label: strconv.Itoa(g), MinGrid: g, MaxGrid: g})
	}
	return append(bands, GridBand{Label: strconv.Itoa(maxGrid) + "+", MinGrid: maxGrid})
}

func tally(bands []GridBand, o features.GridOutcome) {
	for i := range bands {
		if bands[i].contains(o.Grid) {
			bands[i].Starts++
			if o.Won {
				bands[i].Wins++
			}
			return
		}
	}
}

// withIntervals drops empty bands and attaches Wilson intervals to the rest
func withIntervals(bands []GridBand, confidence float64) ([]GridBand, error) {
	out := make([]GridBand, 0, len(bands))
	for _, b := range bands {
		if b.Starts == 0 {
			continue
		}
		ci, err := stats.Wilson(b.Wins, b.Starts, confidence)
		if err != nil {
			return nil, fmt.Errorf("grid %s: %w", b.Label, err)
		}
		b.WinRate = ci
		out = append(out, b)
	}
	return out, nil
}

// effectSize labels Cramér's V using Cohen's thresholds for a 2-column table
func effectSize(v float64) string {
	switch {
	case v < 0.1:
		return "negligible"
	case v < 0.3:
		return "small"
	case v < 0.5:
		return "medium"
	default:
		return "large"
	}
}

func verdict(res *GridResult) string {
	chi := res.ChiSquare
	test := fmt.Sprintf("chi2=%.1f, df=%d, p=%.3g, Cramér's V=%.3f (%s effect)",
		chi.Statistic, chi.DF, chi.PValue, chi.CramersV, effectSize(chi.CramersV))
	if !res.Significant {
		return fmt.Sprintf("No evidence that grid position affects winning at alpha=%.2f: %s", res.Alpha, test)
	}

	msg := fmt.Sprintf("Grid position is associated with winning at alpha=%.2f: %s", res.Alpha, test)
	if len(res.Positions) > 0 && res.Positions[0].MinGrid == 1 {
		pole := res.Positions[0].WinRate
		msg += fmt.Sprintf("; pole sitters win %.1f%% of races (%.0f%% CI %.1f%%-%.1f%%)",
			pole.Estimate*100, res.Confidence*100, pole.Low*100, pole.High*100)
	}
	return msg
}
