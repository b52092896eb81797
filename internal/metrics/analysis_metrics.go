package metrics

import "github.com/prometheus/client_golang/prometheus"

// Study result gauges
var (
	ModelScore = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "lap_model_score",
		Help:      "Test-set score of each lap time model by metric",
	}, []string{"model", "metric"})
	ClusterCount = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "style_clusters",
		Help:      "Number of driver style clusters selected",
	})
	ClusterSilhouette = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "style_silhouette",
		Help:      "Mean silhouette of the selected driver style clustering",
	})
	GridChiSquare = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "grid_chi_square",
		Help:      "Chi-square statistic of grid position against winning",
	})
	GridPValue = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "grid_p_value",
		Help:      "p-value of the grid position independence test",
	})
)

// RecordModelScores records the test-set scores of a lap time model.
func RecordModelScores(model string, r2, rmse, mae float64) {
	ModelScore.WithLabelValues(model, "r2").Set(r2)
	ModelScore.WithLabelValues(model, "rmse").Set(rmse)
	ModelScore.WithLabelValues(model, "mae").Set(mae)
}

// RecordClustering records the selected style clustering.
func RecordClustering(k int, silhouette float64) {
	ClusterCount.Set(float64(k))
	ClusterSilhouette.Set(silhouette)
}

// RecordGridTest records the grid independence test.
func RecordGridTest(chiSquare, pValue float64) {
	GridChiSquare.Set(chiSquare)
	GridPValue.Set(pValue)
}
