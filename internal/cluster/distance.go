// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cluster

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// Metric selects the pairwise distance.
type Metric string

const (
	// MetricCorrelation is 1 - Pearson correlation, the workflow's gene distance.
	MetricCorrelation Metric = "correlation"
	// MetricEuclidean is the L2 distance, used for sample columns.
	MetricEuclidean Metric = "euclidean"
)

// Distances computes the symmetric pairwise distance matrix over the given
// vectors. Constant vectors have undefined correlation; their correlation
// distance is treated as the maximum (2).
func Distances(vectors [][]float64, metric Metric) ([][]float64, error) {
	n := len(vectors)
	if n == 0 {
		return nil, fmt.Errorf("no vectors to compare")
	}
	width := len(vectors[0])
	for i, v := range vectors {
		if len(v) != width {
			return nil, fmt.Errorf("vector %d has length %d, want %d", i, len(v), width)
		}
	}

	d := make([][]float64, n)
	for i := range d {
		d[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			var dist float64
			switch metric {
			case MetricEuclidean:
				var ss float64
				for k := range vectors[i] {
					diff := vectors[i][k] - vectors[j][k]
					ss += diff * diff
				}
				dist = math.Sqrt(ss)
			case MetricCorrelation:
				r := stat.Correlation(vectors[i], vectors[j], nil)
				if math.IsNaN(r) {
					dist = 2
				} else {
					dist = 1 - r
				}
			default:
				return nil, fmt.Errorf("unknown metric %q", metric)
			}
			d[i][j] = dist
			d[j][i] = dist
		}
	}
	return d, nil
}
