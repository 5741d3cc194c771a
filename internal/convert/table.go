// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"compress/gzip"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pdiddy/expression-engine/internal/matrix"
)

// TableConverter reads a dense delimited table with genes as rows: the
// first column is the gene ID, the header row names the cells or samples.
// Tab and comma delimiters are detected from the extension; .gz input is
// decompressed.
type TableConverter struct{}

// Convert reads the table at rawPath.
func (t *TableConverter) Convert(rawPath string) (*matrix.Matrix, error) {
	f, err := os.Open(rawPath)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", rawPath, err)
	}
	defer f.Close()

	var r io.Reader = f
	name := rawPath
	if filepath.Ext(name) == ".gz" {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("decompressing %s: %w", rawPath, err)
		}
		defer gz.Close()
		r = gz
		name = strings.TrimSuffix(name, ".gz")
	}

	cr := csv.NewReader(r)
	cr.ReuseRecord = true
	if ext := filepath.Ext(name); ext == ".tsv" || ext == ".txt" {
		cr.Comma = '\t'
	}

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header of %s: %w", rawPath, err)
	}
	if len(header) < 2 {
		return nil, fmt.Errorf("%s header has %d columns, need at least 2", rawPath, len(header))
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
			return nil, fmt.Errorf("reading %s line %d: %w", rawPath, line, err)
		}
		rows = append(rows, strings.Trim(record[0], `"`))
		for _, field := range record[1:] {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("%s line %d: parsing %q: %w", rawPath, line, field, err)
			}
			values = append(values, v)
		}
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s contains no data rows", rawPath)
	}
	return matrix.New(rows, cols, values)
}
