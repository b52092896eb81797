package features

import (
	"github.com/yourusername/pitwall/internal/config"
	"github.com/yourusername/pitwall/internal/dataset"
)

// GridOutcome is one race start and whether it was converted into a win
type GridOutcome struct {
	RaceID int  `json:"race_id"`
	Year   int  `json:"year"`
	Grid   int  `json:"grid"`
	Won    bool `json:"won"`
}

// GridOutcomes returns every start from a grid slot in races from
// cfg.MinYear onwards. Pit-lane starts (grid 0) are excluded.
func GridOutcomes(ds *dataset.Dataset, cfg config.GridConfig) []GridOutcome {
	out := make([]GridOutcome, 0, len(ds.Results))
	for i := range ds.Results {
		res := &ds.Results[i]
		if !res.StartedFromGrid() {
			continue
		}
		race, ok := ds.Race(res.RaceID)
		if !ok || race.Year < cfg.MinYear {
			continue
		}
		out = append(out, GridOutcome{RaceID: res.RaceID, Year: race.Year, Grid: res.Grid, Won: res.Won()})
	}
	return out
}
