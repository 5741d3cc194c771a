// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pseudobulk aggregates single-cell columns into one column per
// sample and attaches sample metadata, producing the matrix the PCA and
// differential-expression stages consume.
package pseudobulk

import (
	"fmt"
	"io"

	"github.com/pdiddy/expression-engine/internal/matrix"
	"github.com/pdiddy/expression-engine/pkg/types"
)

// Options control the aggregation.
type Options struct {
	// Agg is the per-sample statistic: mean (default) or sum.
	Agg types.Aggregation

	// Log2 applies log2(x+1) after aggregation.
	Log2 bool
}

// Aggregate collapses the cells of m into one column per sample in the
// order of samples. assigned maps cell barcode to sample ID. A target
// sample with zero assigned cells is an error.
func Aggregate(m *matrix.Matrix, assigned map[string]string, samples []types.Sample, opts Options, w io.Writer) (*matrix.Matrix, error) {
	agg := opts.Agg
	if agg == "" {
		agg = types.AggMean
	}
	if agg != types.AggMean && agg != types.AggSum {
		return nil, fmt.Errorf("unknown aggregation %q", agg)
	}

	colsOf := make(map[string][]int, len(samples))
	for j, bc := range m.Cols() {
		if id, ok := assigned[bc]; ok {
			colsOf[id] = append(colsOf[id], j)
		}
	}

	nr, _ := m.Dims()
	ids := make([]string, len(samples))
	values := make([]float64, nr*len(samples))
	for k, s := range samples {
		cols := colsOf[s.ID]
		if len(cols) == 0 {
			return nil, fmt.Errorf("sample %s has no assigned cells", s.ID)
		}
		ids[k] = s.ID
		for i := 0; i < nr; i++ {
			var sum float64
			for _, j := range cols {
				sum += m.At(i, j)
			}
			if agg == types.AggMean {
				sum /= float64(len(cols))
			}
			values[i*len(samples)+k] = sum
		}
		fmt.Fprintf(w, "aggregated %s: %d cells\n", s.ID, len(cols))
	}

	pb, err := matrix.New(m.Rows(), ids, values)
	if err != nil {
		return nil, err
	}
	if opts.Log2 {
		pb.Log2p1()
	}
	fmt.Fprintf(w, "pseudo-bulk matrix: %d genes x %d samples (%s%s)\n",
		nr, len(samples), agg, log2Suffix(opts.Log2))
	return pb, nil
}

func log2Suffix(enabled bool) string {
	if enabled {
		return ", log2(x+1)"
	}
	return ""
}
