// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pseudobulk

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/pdiddy/expression-engine/internal/matrix"
	"github.com/pdiddy/expression-engine/pkg/types"
)

// Metadata rows carried between the gene header and the expression rows.
// The first cell of each names the field; the notebooks hard-coded these
// vectors, here they travel with the matrix.
const (
	metaCondition = "condition"
	metaPatient   = "patient"
	metaStage     = "stage"
)

// WriteCSV writes a pseudo-bulk matrix with its sample metadata rows.
func WriteCSV(m *matrix.Matrix, meta map[string]types.Sample, w io.Writer) error {
	cw := csv.NewWriter(w)

	cols := m.Cols()
	if err := cw.Write(append([]string{"gene"}, cols...)); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	row := func(name string, get func(types.Sample) string) error {
		record := make([]string, len(cols)+1)
		record[0] = name
		for j, id := range cols {
			record[j+1] = get(meta[id])
		}
		return cw.Write(record)
	}
	if err := row(metaCondition, func(s types.Sample) string { return string(s.Condition) }); err != nil {
		return fmt.Errorf("writing condition row: %w", err)
	}
	if err := row(metaPatient, func(s types.Sample) string { return s.Patient }); err != nil {
		return fmt.Errorf("writing patient row: %w", err)
	}
	if err := row(metaStage, func(s types.Sample) string { return s.Stage }); err != nil {
		return fmt.Errorf("writing stage row: %w", err)
	}

	nr, nc := m.Dims()
	record := make([]string, nc+1)
	for i := 0; i < nr; i++ {
		record[0] = m.Rows()[i]
		for j := 0; j < nc; j++ {
			record[j+1] = strconv.FormatFloat(m.At(i, j), 'g', -1, 64)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing row %s: %w", m.Rows()[i], err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCSVFile writes the pseudo-bulk CSV to path.
func WriteCSVFile(m *matrix.Matrix, meta map[string]types.Sample, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := WriteCSV(m, meta, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadCSV parses a pseudo-bulk CSV, separating the metadata rows from the
// expression matrix.
func ReadCSV(r io.Reader) (*matrix.Matrix, map[string]types.Sample, error) {
	cr := csv.NewReader(r)

	header, err := cr.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("reading header: %w", err)
	}
	if len(header) < 2 {
		return nil, nil, fmt.Errorf("header has %d columns, need at least 2", len(header))
	}
	cols := append([]string(nil), header[1:]...)

	meta := make(map[string]types.Sample, len(cols))
	for _, id := range cols {
		meta[id] = types.Sample{ID: id}
	}

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
			return nil, nil, fmt.Errorf("reading line %d: %w", line, err)
		}

		switch record[0] {
		case metaCondition:
			for j, id := range cols {
				s := meta[id]
				s.Condition = types.Condition(record[j+1])
				meta[id] = s
			}
			continue
		case metaPatient:
			for j, id := range cols {
				s := meta[id]
				s.Patient = record[j+1]
				meta[id] = s
			}
			continue
		case metaStage:
			for j, id := range cols {
				s := meta[id]
				s.Stage = record[j+1]
				meta[id] = s
			}
			continue
		}

		rows = append(rows, record[0])
		for _, field := range record[1:] {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, nil, fmt.Errorf("line %d: parsing %q: %w", line, field, err)
			}
			values = append(values, v)
		}
	}
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("pseudo-bulk CSV contains no gene rows")
	}

	m, err := matrix.New(rows, cols, values)
	if err != nil {
		return nil, nil, err
	}
	return m, meta, nil
}

// ReadCSVFile opens and parses a pseudo-bulk CSV.
func ReadCSVFile(path string) (*matrix.Matrix, map[string]types.Sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	m, meta, err := ReadCSV(f)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return m, meta, nil
}
