// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pdiddy/expression-engine/internal/matrix"
)

// TenxConverter reads a 10x Genomics directory: matrix.mtx, barcodes.tsv,
// and features.tsv (or the older genes.tsv), each optionally gzipped.
type TenxConverter struct{}

// candidate file names, checked with and without a .gz suffix.
var (
	tenxMatrixNames  = []string{"matrix.mtx"}
	tenxFeatureNames = []string{"features.tsv", "genes.tsv"}
	tenxBarcodeNames = []string{"barcodes.tsv"}
)

// Convert reads the triple from rawPath, which must be a directory.
func (t *TenxConverter) Convert(rawPath string) (*matrix.Matrix, error) {
	info, err := os.Stat(rawPath)
	if err != nil {
		return nil, fmt.Errorf("inspecting %s: %w", rawPath, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("mtx backend expects a directory, %s is a file", rawPath)
	}

	features, err := readTenxLabels(rawPath, tenxFeatureNames, true)
	if err != nil {
		return nil, fmt.Errorf("reading features: %w", err)
	}
	barcodes, err := readTenxLabels(rawPath, tenxBarcodeNames, false)
	if err != nil {
		return nil, fmt.Errorf("reading barcodes: %w", err)
	}

	r, closeFn, err := openTenxFile(rawPath, tenxMatrixNames)
	if err != nil {
		return nil, fmt.Errorf("opening matrix: %w", err)
	}
	defer closeFn()

	m, err := matrix.ReadMatrixMarket(r, features, barcodes)
	if err != nil {
		return nil, fmt.Errorf("parsing matrix.mtx: %w", err)
	}
	return m, nil
}

// openTenxFile opens the first of names (or names+".gz") that exists under
// dir, transparently decompressing gzip.
func openTenxFile(dir string, names []string) (io.Reader, func() error, error) {
	for _, name := range names {
		for _, candidate := range []string{name, name + ".gz"} {
			path := filepath.Join(dir, candidate)
			f, err := os.Open(path)
			if err != nil {
				continue
			}
			if filepath.Ext(candidate) != ".gz" {
				return f, f.Close, nil
			}
			gz, err := gzip.NewReader(f)
			if err != nil {
				f.Close()
				return nil, nil, fmt.Errorf("decompressing %s: %w", path, err)
			}
			closeFn := func() error {
				gz.Close()
				return f.Close()
			}
			return gz, closeFn, nil
		}
	}
	return nil, nil, fmt.Errorf("none of %v found in %s", names, dir)
}

func readTenxLabels(dir string, names []string, preferSecond bool) ([]string, error) {
	r, closeFn, err := openTenxFile(dir, names)
	if err != nil {
		return nil, err
	}
	defer closeFn()
	return matrix.ReadLabelColumn(r, preferSecond)
}
