// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package counts implements single-cell preprocessing: QC filtering,
// log-normalization, and cell-to-sample assignment.
package counts

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/pdiddy/expression-engine/internal/matrix"
	"github.com/pdiddy/expression-engine/pkg/types"
)

// QCReport summarizes what QC dropped.
type QCReport struct {
	CellsIn          int
	CellsLowFeatures int
	CellsHighMito    int
	CellsOut         int
	GenesIn          int
	GenesRare        int
	GenesOut         int
}

// QC filters cells and genes the way the single-cell workflow does:
// cells with fewer than MinFeatures detected genes or a mitochondrial
// fraction above MaxMitoFraction are dropped, then genes detected in
// fewer than MinCells of the surviving cells are dropped.
func QC(m *matrix.Matrix, cfg types.CountsConfig, w io.Writer) (*matrix.Matrix, QCReport, error) {
	nr, nc := m.Dims()
	rep := QCReport{CellsIn: nc, GenesIn: nr}

	mitoPrefix := cfg.MitoPrefix
	if mitoPrefix == "" {
		mitoPrefix = "MT-"
	}
	var mitoRows []int
	for i, gene := range m.Rows() {
		if strings.HasPrefix(strings.ToUpper(gene), strings.ToUpper(mitoPrefix)) {
			mitoRows = append(mitoRows, i)
		}
	}

	totals := m.ColSums()

	var keepCols []int
	for j := 0; j < nc; j++ {
		features := 0
		for i := 0; i < nr; i++ {
			if m.At(i, j) > 0 {
				features++
			}
		}
		if features < cfg.MinFeatures {
			rep.CellsLowFeatures++
			continue
		}

		if cfg.MaxMitoFraction > 0 && totals[j] > 0 {
			var mito float64
			for _, i := range mitoRows {
				mito += m.At(i, j)
			}
			if mito/totals[j] > cfg.MaxMitoFraction {
				rep.CellsHighMito++
				continue
			}
		}
		keepCols = append(keepCols, j)
	}
	if len(keepCols) == 0 {
		return nil, rep, fmt.Errorf("QC removed every cell (%d low-feature, %d high-mito)",
			rep.CellsLowFeatures, rep.CellsHighMito)
	}

	filtered, err := m.SubsetCols(keepCols)
	if err != nil {
		return nil, rep, err
	}

	var keepRows []int
	for i := 0; i < nr; i++ {
		cells := 0
		for j := range keepCols {
			if filtered.At(i, j) > 0 {
				cells++
			}
		}
		if cells < cfg.MinCells {
			rep.GenesRare++
			continue
		}
		keepRows = append(keepRows, i)
	}
	if len(keepRows) == 0 {
		return nil, rep, fmt.Errorf("QC removed every gene")
	}

	out, err := filtered.SubsetRows(keepRows)
	if err != nil {
		return nil, rep, err
	}

	rep.CellsOut = len(keepCols)
	rep.GenesOut = len(keepRows)
	fmt.Fprintf(w, "QC: %d/%d cells kept (%d low-feature, %d high-mito dropped), %d/%d genes kept (%d rare dropped)\n",
		rep.CellsOut, rep.CellsIn, rep.CellsLowFeatures, rep.CellsHighMito,
		rep.GenesOut, rep.GenesIn, rep.GenesRare)
	return out, rep, nil
}

// LogNormalize scales each cell to scaleFactor total counts and applies
// ln(1+x) in place, the LogNormalize scheme of the source workflow.
// Cells with zero total are left untouched.
func LogNormalize(m *matrix.Matrix, scaleFactor float64) {
	if scaleFactor <= 0 {
		scaleFactor = 1e4
	}
	totals := m.ColSums()
	nr, nc := m.Dims()
	for j := 0; j < nc; j++ {
		if totals[j] == 0 {
			continue
		}
		scale := scaleFactor / totals[j]
		for i := 0; i < nr; i++ {
			m.Set(i, j, math.Log1p(m.At(i, j)*scale))
		}
	}
}
