// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package matrix

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
)

// ReadCSV parses the canonical counts CSV: a header row whose first cell
// names the row dimension (conventionally "gene") followed by column
// labels, then one row per gene with the gene ID in the first cell.
func ReadCSV(r io.Reader) (*Matrix, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}
	if len(header) < 2 {
		return nil, fmt.Errorf("CSV header has %d columns, need at least 2", len(header))
	}
	cols := append([]string(nil), header[1:]...)

	var (
		rows   []string
		values []float64
	)
	for line := 2; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading CSV line %d: %w", line, err)
		}
		if len(record) != len(cols)+1 {
			return nil, fmt.Errorf("CSV line %d has %d fields, want %d", line, len(record), len(cols)+1)
		}
		rows = append(rows, record[0])
		for _, field := range record[1:] {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("CSV line %d: parsing %q: %w", line, field, err)
			}
			values = append(values, v)
		}
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("CSV contains no data rows")
	}
	return New(rows, cols, values)
}

// ReadCSVFile opens and parses a canonical counts CSV.
func ReadCSVFile(path string) (*Matrix, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	m, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return m, nil
}

// WriteCSV writes the matrix in the canonical counts CSV layout.
func (m *Matrix) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)

	header := append([]string{"gene"}, m.cols...)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing CSV header: %w", err)
	}

	nr, nc := m.Dims()
	record := make([]string, nc+1)
	for i := 0; i < nr; i++ {
		record[0] = m.rows[i]
		row := m.data.RawRowView(i)
		for j := 0; j < nc; j++ {
			record[j+1] = strconv.FormatFloat(row[j], 'g', -1, 64)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing CSV row %s: %w", m.rows[i], err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCSVFile writes the matrix to path. The parent directory must exist.
func (m *Matrix) WriteCSVFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := m.WriteCSV(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
