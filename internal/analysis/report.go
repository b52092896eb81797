// Package analysis runs the exploratory analysis and the three research
// studies over a loaded dataset and gathers their results into a Report.
package analysis

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/pitwall/internal/dataset"
)

// Report is the complete output of one pipeline run
type Report struct {
	RunID      uuid.UUID       `json:"run_id"`
	Source     string          `json:"source"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
	Dataset    dataset.Summary `json:"dataset"`
	EDA        *EDAResult      `json:"eda"`
	LapTime    *LapTimeResult  `json:"lap_time"`
	Styles     *StyleResult    `json:"styles"`
	Grid       *GridResult     `json:"grid"`
}

// Duration returns how long the run took
func (r *Report) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Headline condenses a report into the figures stored with each run
type Headline struct {
	Rows           int     `json:"rows"`
	Seasons        int     `json:"seasons"`
	LapRows        int     `json:"lap_rows"`
	OLSTestR2      float64 `json:"ols_test_r2"`
	GBMTestR2      float64 `json:"gbm_test_r2"`
	GBMTestRMSEMs  float64 `json:"gbm_test_rmse_ms"`
	StyleClusters  int     `json:"style_clusters"`
	Silhouette     float64 `json:"silhouette"`
	GridChiSquare  float64 `json:"grid_chi_square"`
	GridPValue     float64 `json:"grid_p_value"`
	GridCramersV   float64 `json:"grid_cramers_v"`
	PoleWinRate    float64 `json:"pole_win_rate"`
	GridAssociated bool    `json:"grid_associated"`
}

// Headline extracts the key figures of the report
func (r *Report) Headline() Headline {
	h := Headline{Seasons: r.Dataset.Seasons}
	for _, n := range r.Dataset.RowCounts {
		h.Rows += n
	}
	if r.LapTime != nil {
		h.LapRows = r.LapTime.Rows
		h.OLSTestR2 = r.LapTime.OLS.Test.R2
		h.GBMTestR2 = r.LapTime.GBM.Test.R2
		h.GBMTestRMSEMs = r.LapTime.GBM.RMSEMs
	}
	if r.Styles != nil {
		h.StyleClusters = r.Styles.K
		h.Silhouette = r.Styles.Silhouette
	}
	if r.Grid != nil {
		h.GridChiSquare = r.Grid.ChiSquare.Statistic
		h.GridPValue = r.Grid.ChiSquare.PValue
		h.GridCramersV = r.Grid.ChiSquare.CramersV
		h.GridAssociated = r.Grid.Significant
		if len(r.Grid.Positions) > 0 && r.Grid.Positions[0].MinGrid == 1 {
			h.PoleWinRate = r.Grid.Positions[0].WinRate.Estimate
		}
	}
	return h
}

// HeadlineJSON returns the headline encoded for storage
func (r *Report) HeadlineJSON() (json.RawMessage, error) {
	return json.Marshal(r.Headline())
}
