// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package matrix implements the labeled expression matrix shared by all
// analysis stages: genes as rows, cells or samples as columns, dense
// float64 storage backed by gonum.
package matrix

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Matrix is a dense gene-by-column expression matrix with row and column
// labels. Rows are genes; columns are cells (before aggregation) or
// samples (after).
type Matrix struct {
	rows     []string
	cols     []string
	rowIndex map[string]int
	colIndex map[string]int
	data     *mat.Dense
}

// New builds a Matrix from labels and row-major values. The values slice
// must have len(rows)*len(cols) elements.
func New(rows, cols []string, values []float64) (*Matrix, error) {
	if len(values) != len(rows)*len(cols) {
		return nil, fmt.Errorf("matrix shape mismatch: %d values for %d x %d", len(values), len(rows), len(cols))
	}
	if len(rows) == 0 || len(cols) == 0 {
		return nil, fmt.Errorf("matrix must have at least one row and one column")
	}
	m := &Matrix{
		rows: append([]string(nil), rows...),
		cols: append([]string(nil), cols...),
		data: mat.NewDense(len(rows), len(cols), values),
	}
	m.reindex()
	return m, nil
}

func (m *Matrix) reindex() {
	m.rowIndex = make(map[string]int, len(m.rows))
	for i, r := range m.rows {
		m.rowIndex[r] = i
	}
	m.colIndex = make(map[string]int, len(m.cols))
	for j, c := range m.cols {
		m.colIndex[c] = j
	}
}

// Rows returns the row (gene) labels. The slice must not be modified.
func (m *Matrix) Rows() []string { return m.rows }

// Cols returns the column (cell or sample) labels. The slice must not be modified.
func (m *Matrix) Cols() []string { return m.cols }

// Dims returns the row and column counts.
func (m *Matrix) Dims() (r, c int) { return m.data.Dims() }

// At returns the value at row i, column j.
func (m *Matrix) At(i, j int) float64 { return m.data.At(i, j) }

// Set assigns the value at row i, column j.
func (m *Matrix) Set(i, j int, v float64) { m.data.Set(i, j, v) }

// Dense exposes the underlying gonum matrix for numeric routines.
func (m *Matrix) Dense() *mat.Dense { return m.data }

// RowIndex returns the index of the named row.
func (m *Matrix) RowIndex(name string) (int, bool) {
	i, ok := m.rowIndex[name]
	return i, ok
}

// ColIndex returns the index of the named column.
func (m *Matrix) ColIndex(name string) (int, bool) {
	j, ok := m.colIndex[name]
	return j, ok
}

// Row copies row i into a new slice.
func (m *Matrix) Row(i int) []float64 {
	return mat.Row(nil, i, m.data)
}

// Col copies column j into a new slice.
func (m *Matrix) Col(j int) []float64 {
	return mat.Col(nil, j, m.data)
}

// SubsetRows returns a new Matrix containing the given row indices, in order.
func (m *Matrix) SubsetRows(idx []int) (*Matrix, error) {
	_, nc := m.Dims()
	rows := make([]string, len(idx))
	values := make([]float64, 0, len(idx)*nc)
	for k, i := range idx {
		if i < 0 || i >= len(m.rows) {
			return nil, fmt.Errorf("row index %d out of range", i)
		}
		rows[k] = m.rows[i]
		values = append(values, m.data.RawRowView(i)...)
	}
	return New(rows, m.cols, values)
}

// SubsetCols returns a new Matrix containing the given column indices, in order.
func (m *Matrix) SubsetCols(idx []int) (*Matrix, error) {
	nr, _ := m.Dims()
	cols := make([]string, len(idx))
	for k, j := range idx {
		if j < 0 || j >= len(m.cols) {
			return nil, fmt.Errorf("column index %d out of range", j)
		}
		cols[k] = m.cols[j]
	}
	values := make([]float64, nr*len(idx))
	for i := 0; i < nr; i++ {
		for k, j := range idx {
			values[i*len(idx)+k] = m.data.At(i, j)
		}
	}
	return New(m.rows, cols, values)
}

// SubsetColsByName returns a new Matrix with the named columns, in the
// given order. Unknown names are an error.
func (m *Matrix) SubsetColsByName(names []string) (*Matrix, error) {
	idx := make([]int, len(names))
	for k, name := range names {
		j, ok := m.colIndex[name]
		if !ok {
			return nil, fmt.Errorf("unknown column %q", name)
		}
		idx[k] = j
	}
	return m.SubsetCols(idx)
}

// ColSums returns the per-column totals.
func (m *Matrix) ColSums() []float64 {
	nr, nc := m.Dims()
	sums := make([]float64, nc)
	for i := 0; i < nr; i++ {
		row := m.data.RawRowView(i)
		for j := 0; j < nc; j++ {
			sums[j] += row[j]
		}
	}
	return sums
}

// Log2p1 applies log2(x+1) in place.
func (m *Matrix) Log2p1() {
	m.data.Apply(func(_, _ int, v float64) float64 {
		return math.Log2(v + 1)
	}, m.data)
}

// ZScoreRows centers and scales each row to zero mean and unit variance
// in place. Constant rows become all zeros.
func (m *Matrix) ZScoreRows() {
	nr, nc := m.Dims()
	for i := 0; i < nr; i++ {
		row := m.data.RawRowView(i)
		var sum float64
		for _, v := range row {
			sum += v
		}
		mean := sum / float64(nc)
		var ss float64
		for _, v := range row {
			d := v - mean
			ss += d * d
		}
		var sd float64
		if nc > 1 {
			sd = math.Sqrt(ss / float64(nc-1))
		}
		for j := range row {
			if sd == 0 {
				row[j] = 0
				continue
			}
			row[j] = (row[j] - mean) / sd
		}
	}
}

// Clone returns a deep copy.
func (m *Matrix) Clone() *Matrix {
	c := &Matrix{
		rows: append([]string(nil), m.rows...),
		cols: append([]string(nil), m.cols...),
		data: mat.DenseCopyOf(m.data),
	}
	c.reindex()
	return c
}
