// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pca computes principal components of a pseudo-bulk matrix with
// samples as observations and genes as variables.
package pca

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"strconv"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/pdiddy/expression-engine/internal/matrix"
)

// Result holds the decomposition outputs.
type Result struct {
	// Scores is samples x K: the projection of each sample onto the
	// first K components.
	Scores *matrix.Matrix

	// Loadings is genes x K: each gene's weight in each component.
	Loadings *matrix.Matrix

	// Explained is the proportion of total variance per kept component.
	Explained []float64
}

// Compute runs PCA on the genes-by-samples matrix pb. Samples are the
// observations. k <= 0 defaults to min(10, samples-1); scale standardizes
// genes to unit variance before the decomposition.
func Compute(pb *matrix.Matrix, k int, scale bool) (*Result, error) {
	genes := pb.Rows()
	samples := pb.Cols()
	n, d := len(samples), len(genes)
	if n < 2 {
		return nil, fmt.Errorf("PCA needs at least 2 samples, have %d", n)
	}

	maxK := n - 1
	if d < maxK {
		maxK = d
	}
	if k <= 0 {
		k = 10
	}
	if k > maxK {
		k = maxK
	}

	// Observation matrix: one row per sample, column-centered (and
	// optionally standardized) per gene.
	x := mat.NewDense(n, d, nil)
	for g := 0; g < d; g++ {
		col := pb.Row(g)
		mean, variance := stat.MeanVariance(col, nil)
		sd := math.Sqrt(variance)
		for s := 0; s < n; s++ {
			v := col[s] - mean
			if scale && sd > 0 {
				v /= sd
			}
			x.Set(s, g, v)
		}
	}

	var pc stat.PC
	if ok := pc.PrincipalComponents(x, nil); !ok {
		return nil, fmt.Errorf("principal component decomposition failed")
	}

	var vecs mat.Dense
	pc.VectorsTo(&vecs)
	vars := pc.VarsTo(nil)

	var total float64
	for _, v := range vars {
		total += v
	}
	if total == 0 {
		return nil, fmt.Errorf("matrix has no variance")
	}
	explained := make([]float64, k)
	for i := 0; i < k; i++ {
		explained[i] = vars[i] / total
	}

	pcNames := make([]string, k)
	for i := range pcNames {
		pcNames[i] = fmt.Sprintf("PC%d", i+1)
	}

	// Scores: centered observations projected onto the kept components.
	vecsK := vecs.Slice(0, d, 0, k)
	var proj mat.Dense
	proj.Mul(x, vecsK)
	scores := make([]float64, n*k)
	for s := 0; s < n; s++ {
		for i := 0; i < k; i++ {
			scores[s*k+i] = proj.At(s, i)
		}
	}
	scoresM, err := matrix.New(samples, pcNames, scores)
	if err != nil {
		return nil, err
	}

	loadings := make([]float64, d*k)
	for g := 0; g < d; g++ {
		for i := 0; i < k; i++ {
			loadings[g*k+i] = vecs.At(g, i)
		}
	}
	loadingsM, err := matrix.New(genes, pcNames, loadings)
	if err != nil {
		return nil, err
	}

	return &Result{Scores: scoresM, Loadings: loadingsM, Explained: explained}, nil
}

// WriteVarianceCSV writes the explained-variance table.
func WriteVarianceCSV(res *Result, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if err := cw.Write([]string{"component", "proportion", "cumulative"}); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	var cum float64
	for i, p := range res.Explained {
		cum += p
		record := []string{
			fmt.Sprintf("PC%d", i+1),
			strconv.FormatFloat(p, 'g', 6, 64),
			strconv.FormatFloat(cum, 'g', 6, 64),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing PC%d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadVarianceCSV loads the explained-variance proportions from a file
// written by WriteVarianceCSV.
func ReadVarianceCSV(path string) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("%s has no variance rows", path)
	}
	props := make([]float64, 0, len(records)-1)
	for _, rec := range records[1:] {
		v, err := strconv.ParseFloat(rec[1], 64)
		if err != nil {
			return nil, fmt.Errorf("%s: parsing %q: %w", path, rec[1], err)
		}
		props = append(props, v)
	}
	return props, nil
}
