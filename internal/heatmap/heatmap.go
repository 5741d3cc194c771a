// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package heatmap builds the clustered, z-scored expression heatmap of the
// top differentially expressed genes.
package heatmap

import (
	"fmt"
	"io"

	"github.com/pdiddy/expression-engine/internal/cluster"
	"github.com/pdiddy/expression-engine/internal/matrix"
	"github.com/pdiddy/expression-engine/pkg/types"
)

const defaultTopN = 50

// Options select the genes and the clustering behavior.
type Options struct {
	// TopN selects the highest-ranked genes by adjusted p-value when
	// Genes is empty (default 50).
	TopN int

	// Genes explicitly names the rows to plot.
	Genes []string

	// Linkage is the agglomeration rule (default average).
	Linkage cluster.Linkage
}

// Build selects genes, z-scores each row, clusters genes (1-Pearson) and
// samples (Euclidean), and returns the matrix in clustered order.
func Build(pb *matrix.Matrix, de []types.DEResult, opts Options, w io.Writer) (*matrix.Matrix, error) {
	genes := opts.Genes
	if len(genes) == 0 {
		topN := opts.TopN
		if topN <= 0 {
			topN = defaultTopN
		}
		if topN > len(de) {
			topN = len(de)
		}
		if topN == 0 {
			return nil, fmt.Errorf("no differential-expression results to select genes from")
		}
		// de is already sorted by adjusted p-value.
		genes = make([]string, topN)
		for i := 0; i < topN; i++ {
			genes[i] = de[i].Gene
		}
	}

	idx := make([]int, 0, len(genes))
	for _, g := range genes {
		i, ok := pb.RowIndex(g)
		if !ok {
			return nil, fmt.Errorf("gene %q not in matrix", g)
		}
		idx = append(idx, i)
	}
	if len(idx) < 2 {
		return nil, fmt.Errorf("heatmap needs at least 2 genes, have %d", len(idx))
	}

	m, err := pb.SubsetRows(idx)
	if err != nil {
		return nil, err
	}
	m.ZScoreRows()

	linkage := opts.Linkage
	if linkage == "" {
		linkage = cluster.LinkageAverage
	}

	// Cluster genes on correlation distance.
	nr, nc := m.Dims()
	rows := make([][]float64, nr)
	for i := range rows {
		rows[i] = m.Row(i)
	}
	geneDist, err := cluster.Distances(rows, cluster.MetricCorrelation)
	if err != nil {
		return nil, fmt.Errorf("gene distances: %w", err)
	}
	geneDendro, err := cluster.Cluster(geneDist, linkage)
	if err != nil {
		return nil, fmt.Errorf("clustering genes: %w", err)
	}

	// Cluster samples on Euclidean distance.
	colVecs := make([][]float64, nc)
	for j := range colVecs {
		colVecs[j] = m.Col(j)
	}
	sampleDist, err := cluster.Distances(colVecs, cluster.MetricEuclidean)
	if err != nil {
		return nil, fmt.Errorf("sample distances: %w", err)
	}
	sampleDendro, err := cluster.Cluster(sampleDist, linkage)
	if err != nil {
		return nil, fmt.Errorf("clustering samples: %w", err)
	}

	ordered, err := m.SubsetRows(geneDendro.LeafOrder())
	if err != nil {
		return nil, err
	}
	ordered, err = ordered.SubsetCols(sampleDendro.LeafOrder())
	if err != nil {
		return nil, err
	}

	fmt.Fprintf(w, "heatmap: %d genes x %d samples, %s linkage\n", nr, nc, linkage)
	return ordered, nil
}
