// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package diffexp tests per-gene differential expression between two
// condition groups of a log2 pseudo-bulk matrix: Welch t-test, log2 fold
// change, Cohen's d, and Benjamini-Hochberg correction.
package diffexp

import (
	"fmt"
	"io"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/pdiddy/expression-engine/internal/matrix"
	"github.com/pdiddy/expression-engine/pkg/types"
)

// minGroupSize is the smallest group a t-test accepts.
const minGroupSize = 2

// Options selects the compared groups.
type Options struct {
	// GroupA and GroupB are the conditions compared; fold change is
	// reported as A relative to B.
	GroupA types.Condition
	GroupB types.Condition
}

// Run tests every gene of the log2 pseudo-bulk matrix m. Sample conditions
// come from meta, keyed by column label. Results are sorted by adjusted
// p-value, ties broken by raw p-value and gene name.
func Run(m *matrix.Matrix, meta map[string]types.Sample, opts Options, w io.Writer) ([]types.DEResult, error) {
	if opts.GroupA == opts.GroupB {
		return nil, fmt.Errorf("groups are identical: %q", opts.GroupA)
	}

	var colsA, colsB []int
	for j, col := range m.Cols() {
		s, ok := meta[col]
		if !ok {
			return nil, fmt.Errorf("sample %q has no metadata", col)
		}
		switch s.Condition {
		case opts.GroupA:
			colsA = append(colsA, j)
		case opts.GroupB:
			colsB = append(colsB, j)
		}
	}
	if len(colsA) < minGroupSize || len(colsB) < minGroupSize {
		return nil, fmt.Errorf("need at least %d samples per group, have %d %s and %d %s",
			minGroupSize, len(colsA), opts.GroupA, len(colsB), opts.GroupB)
	}

	fmt.Fprintf(w, "testing %d genes: %d %s vs %d %s samples\n",
		len(m.Rows()), len(colsA), opts.GroupA, len(colsB), opts.GroupB)

	genes := m.Rows()
	results := make([]types.DEResult, len(genes))
	pvals := make([]float64, len(genes))

	a := make([]float64, len(colsA))
	b := make([]float64, len(colsB))
	for i, gene := range genes {
		for k, j := range colsA {
			a[k] = m.At(i, j)
		}
		for k, j := range colsB {
			b[k] = m.At(i, j)
		}
		r := testGene(gene, a, b)
		results[i] = r
		pvals[i] = r.PValue
	}

	adj := BenjaminiHochberg(pvals)
	for i := range results {
		results[i].AdjP = adj[i]
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].AdjP != results[j].AdjP {
			return results[i].AdjP < results[j].AdjP
		}
		if results[i].PValue != results[j].PValue {
			return results[i].PValue < results[j].PValue
		}
		return results[i].Gene < results[j].Gene
	})
	return results, nil
}

// testGene computes the per-gene statistics. Genes with zero variance in
// both groups get t=0, p=1.
func testGene(gene string, a, b []float64) types.DEResult {
	meanA, varA := stat.MeanVariance(a, nil)
	meanB, varB := stat.MeanVariance(b, nil)
	na, nb := float64(len(a)), float64(len(b))

	r := types.DEResult{
		Gene:   gene,
		Log2FC: meanA - meanB,
		MeanA:  meanA,
		MeanB:  meanB,
		PValue: 1,
	}

	seA, seB := varA/na, varB/nb
	se := math.Sqrt(seA + seB)
	if se > 0 {
		r.TStat = (meanA - meanB) / se
		df := (seA + seB) * (seA + seB) /
			(seA*seA/(na-1) + seB*seB/(nb-1))
		t := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
		r.PValue = 2 * t.Survival(math.Abs(r.TStat))
		if r.PValue > 1 {
			r.PValue = 1
		}
	}

	pooled := ((na-1)*varA + (nb-1)*varB) / (na + nb - 2)
	if pooled > 0 {
		r.CohenD = (meanA - meanB) / math.Sqrt(pooled)
	}
	return r
}
