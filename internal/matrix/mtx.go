// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package matrix

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ReadMatrixMarket parses a sparse MatrixMarket coordinate file (the
// matrix.mtx of a 10x triple) together with its row and column labels.
// Entries are one-based "row col value" triples; unlisted entries are zero.
func ReadMatrixMarket(r io.Reader, rows, cols []string) (*Matrix, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	// Header line: %%MatrixMarket matrix coordinate <field> general
	if !sc.Scan() {
		return nil, fmt.Errorf("empty MatrixMarket file")
	}
	header := sc.Text()
	if !strings.HasPrefix(header, "%%MatrixMarket") {
		return nil, fmt.Errorf("not a MatrixMarket file: %q", header)
	}
	if !strings.Contains(header, "coordinate") {
		return nil, fmt.Errorf("unsupported MatrixMarket format: %q", header)
	}

	// Skip comment lines, then read the size line.
	var sizeLine string
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "%") {
			continue
		}
		sizeLine = line
		break
	}
	if sizeLine == "" {
		return nil, fmt.Errorf("MatrixMarket file has no size line")
	}
	fields := strings.Fields(sizeLine)
	if len(fields) != 3 {
		return nil, fmt.Errorf("malformed MatrixMarket size line: %q", sizeLine)
	}
	nr, err := strconv.Atoi(fields[0])
	if err != nil {
		return nil, fmt.Errorf("parsing row count: %w", err)
	}
	nc, err := strconv.Atoi(fields[1])
	if err != nil {
		return nil, fmt.Errorf("parsing column count: %w", err)
	}
	nnz, err := strconv.Atoi(fields[2])
	if err != nil {
		return nil, fmt.Errorf("parsing entry count: %w", err)
	}

	if len(rows) != nr {
		return nil, fmt.Errorf("matrix declares %d rows but %d row labels given", nr, len(rows))
	}
	if len(cols) != nc {
		return nil, fmt.Errorf("matrix declares %d columns but %d column labels given", nc, len(cols))
	}

	values := make([]float64, nr*nc)
	seen := 0
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "%") {
			continue
		}
		f := strings.Fields(line)
		if len(f) != 3 {
			return nil, fmt.Errorf("malformed MatrixMarket entry: %q", line)
		}
		i, err := strconv.Atoi(f[0])
		if err != nil {
			return nil, fmt.Errorf("parsing entry row: %w", err)
		}
		j, err := strconv.Atoi(f[1])
		if err != nil {
			return nil, fmt.Errorf("parsing entry column: %w", err)
		}
		v, err := strconv.ParseFloat(f[2], 64)
		if err != nil {
			return nil, fmt.Errorf("parsing entry value: %w", err)
		}
		if i < 1 || i > nr || j < 1 || j > nc {
			return nil, fmt.Errorf("MatrixMarket entry (%d,%d) out of bounds %dx%d", i, j, nr, nc)
		}
		values[(i-1)*nc+(j-1)] = v
		seen++
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading MatrixMarket file: %w", err)
	}
	if seen != nnz {
		return nil, fmt.Errorf("MatrixMarket file declares %d entries, found %d", nnz, seen)
	}

	return New(rows, cols, values)
}

// ReadLabelColumn reads the first tab-separated column of each line,
// the layout of 10x barcodes.tsv and features.tsv files. For features
// files with a second symbol column, preferSecond selects it.
func ReadLabelColumn(r io.Reader, preferSecond bool) ([]string, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var labels []string
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r\n")
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		label := fields[0]
		if preferSecond && len(fields) > 1 && fields[1] != "" {
			label = fields[1]
		}
		labels = append(labels, label)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading labels: %w", err)
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("label file is empty")
	}
	return labels, nil
}
