package analysis

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/yourusername/pitwall/internal/cluster"
	"github.com/yourusername/pitwall/internal/config"
	"github.com/yourusername/pitwall/internal/dataset"
	"github.com/yourusername/pitwall/internal/features"
	"github.com/yourusername/pitwall/internal/stats"
)

// averageProfile is the largest standardised centroid value still described as average
const averageProfile = 0.25

// ClusterMember is one driver assigned to a style cluster
type ClusterMember struct {
	DriverID int    `json:"driver_id"`
	Name     string `json:"name"`
	Starts   int    `json:"starts"`
}

// StyleCluster describes one racing style
type StyleCluster struct {
	ID   int `json:"id"`
	Size int `json:"size"`
	// Centroid is in the original feature units, in StyleFeatureNames order
	Centroid []float64 `json:"centroid"`
	// Standardised is the centroid in standard deviations from the field mean
	Standardised []float64       `json:"standardised"`
	Description  string          `json:"description"`
	Members      []ClusterMember `json:"members"`
}

// StyleResult is the outcome of the driver style clustering study
type StyleResult struct {
	Drivers    int      `json:"drivers"`
	Features   []string `json:"features"`
	K          int      `json:"k"`
	Inertia    float64  `json:"inertia"`
	Silhouette float64  `json:"silhouette"`
	// Selection is nil when the number of clusters is fixed by configuration
	Selection *cluster.Selection `json:"selection,omitempty"`
	Clusters  []StyleCluster     `json:"clusters"`
	Imputed   int                `json:"imputed_values"`
}

// StyleStudy clusters drivers on standardised career style features. The
// number of clusters is cfg.K when set, otherwise the k in [KMin, KMax]
// with the best silhouette. Clusters are ordered by size. The silhouette is
// left at zero when every driver is its own cluster.
func StyleStudy(ctx context.Context, ds *dataset.Dataset, cfg config.StylesConfig, outlierFactor float64) (*StyleResult, error) {
	styles, err := features.BuildStyleFeatures(ds, cfg, outlierFactor)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var scaler stats.StandardScaler
	z, err := scaler.FitTransform(features.StyleMatrix(styles))
	if err != nil {
		return nil, err
	}

	base := cluster.KMeans{NInit: cfg.NInit, MaxIter: cfg.MaxIter, Tol: 1e-4, Seed: cfg.Seed}
	res := &StyleResult{Drivers: len(styles), Features: features.StyleFeatureNames, K: cfg.K}
	for _, s := range styles {
		res.Imputed += s.Imputed
	}

	if res.K == 0 {
		res.Selection, err = cluster.SelectK(ctx, z, cfg.KMin, cfg.KMax, base)
		if err != nil {
			return nil, fmt.Errorf("failed to select cluster count: %w", err)
		}
		res.K = res.Selection.BestK
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	km := base
	km.K = res.K
	fit, err := km.Fit(z)
	if err != nil {
		return nil, fmt.Errorf("failed to cluster drivers: %w", err)
	}
	res.Inertia = fit.Inertia
	if res.K > 1 && res.K < res.Drivers {
		if res.Silhouette, err = cluster.Silhouette(z, fit.Labels); err != nil {
			return nil, err
		}
	}

	res.Clusters = describeClusters(styles, fit, &scaler)
	return res, nil
}

func describeClusters(styles []features.DriverStyle, fit *cluster.Result, scaler *stats.StandardScaler) []StyleCluster {
	k, _ := fit.Centroids.Dims()
	clusters := make([]StyleCluster, k)
	for c := range clusters {
		centroid := mat.Row(nil, c, fit.Centroids)
		clusters[c] = StyleCluster{
			ID:           c,
			Centroid:     scaler.InverseTransformRow(centroid),
			Standardised: centroid,
			Description:  describeCentroid(centroid),
		}
	}

	for i, label := range fit.Labels {
		s := styles[i]
		clusters[label].Size++
		clusters[label].Members = append(clusters[label].Members, ClusterMember{
			DriverID: s.DriverID, Name: s.Name, Starts: s.Starts,
		})
	}

	for c := range clusters {
		members := clusters[c].Members
		sort.Slice(members, func(i, j int) bool {
			if members[i].Starts != members[j].Starts {
				return members[i].Starts > members[j].Starts
			}
			return members[i].Name < members[j].Name
		})
	}
	sort.SliceStable(clusters, func(i, j int) bool {
		return clusters[i].Size > clusters[j].Size
	})
	return clusters
}

// describeCentroid names the two features furthest from the field average,
// e.g. "high win_rate, low dnf_rate"
func describeCentroid(z []float64) string {
	order := make([]int, len(z))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return math.Abs(z[order[a]]) > math.Abs(z[order[b]])
	})

	var parts []string
	for _, j := range order[:min(2, len(order))] {
		if math.Abs(z[j]) < averageProfile {
			break
		}
		level := "high"
		if z[j] < 0 {
			level = "low"
		}
		parts = append(parts, level+" "+features.StyleFeatureNames[j])
	}
	if len(parts) == 0 {
		return "close to the field average"
	}
	return strings.Join(parts, ", ")
}
