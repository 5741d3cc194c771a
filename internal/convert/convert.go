// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package convert turns raw expression downloads into the canonical counts
// CSV, with pluggable backends for the formats repositories ship: 10x
// MatrixMarket triples, dense TSV tables, and Seurat .rds objects.
package convert

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/expression-engine/internal/matrix"
	"github.com/pdiddy/expression-engine/pkg/types"
)

const (
	// countsDir is the subdirectory under the datasets base for canonical CSVs.
	countsDir = "counts"
	// rawDir is the subdirectory under the datasets base for raw downloads.
	rawDir = "raw"
)

// Converter parses one raw format into a labeled counts matrix.
type Converter interface {
	// Convert reads the raw matrix at rawPath (a file or directory,
	// depending on the backend) and returns the counts matrix.
	Convert(rawPath string) (*matrix.Matrix, error)
}

// BatchResult holds the outcome of a batch conversion run.
type BatchResult struct {
	Converted int
	Skipped   int
	Failed    int
}

// Total returns the total number of datasets processed.
func (r BatchResult) Total() int {
	return r.Converted + r.Skipped + r.Failed
}

// HasFailures reports whether any datasets failed conversion.
func (r BatchResult) HasFailures() bool {
	return r.Failed > 0
}

// ConvertDataset converts a single raw download to the canonical counts
// CSV under datasetsDir/counts/. If the CSV already exists, conversion is
// skipped and ConversionNone is returned.
func ConvertDataset(c Converter, ds types.Dataset, datasetsDir string, w io.Writer) types.ConversionStatus {
	outDir := filepath.Join(datasetsDir, countsDir)
	base := ds.Accession
	if base == "" {
		base = strings.TrimSuffix(filepath.Base(ds.RawPath), filepath.Ext(ds.RawPath))
	}
	csvPath := filepath.Join(outDir, base+".csv")

	if _, err := os.Stat(csvPath); err == nil {
		fmt.Fprintf(w, "skipped: %s (already exists)\n", base)
		return types.ConversionNone
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		fmt.Fprintf(w, "failed:  %s (%v)\n", base, err)
		return types.ConversionFailed
	}

	m, err := c.Convert(ds.RawPath)
	if err != nil {
		fmt.Fprintf(w, "failed:  %s (%v)\n", base, err)
		return types.ConversionFailed
	}

	if err := m.WriteCSVFile(csvPath); err != nil {
		fmt.Fprintf(w, "failed:  %s (%v)\n", base, err)
		return types.ConversionFailed
	}

	nr, nc := m.Dims()
	fmt.Fprintf(w, "converted: %s (%d genes x %d columns)\n", base, nr, nc)
	return types.ConversionDone
}

// ConvertBatch processes a list of datasets through the converter, printing
// per-dataset status to w and returning a summary.
func ConvertBatch(c Converter, datasets []types.Dataset, datasetsDir string, w io.Writer) BatchResult {
	var result BatchResult
	for _, ds := range datasets {
		switch ConvertDataset(c, ds, datasetsDir, w) {
		case types.ConversionDone:
			result.Converted++
		case types.ConversionNone:
			result.Skipped++
		case types.ConversionFailed:
			result.Failed++
		}
	}
	fmt.Fprintf(w, "\nBatch summary: %d converted, %d skipped, %d failed (total: %d)\n",
		result.Converted, result.Skipped, result.Failed, result.Total())
	return result
}

// ConvertPaths builds Dataset records from raw paths and delegates to
// ConvertBatch. Each path becomes a minimal Dataset with the accession
// derived from the filename.
func ConvertPaths(c Converter, rawPaths []string, datasetsDir string, w io.Writer) BatchResult {
	datasets := make([]types.Dataset, len(rawPaths))
	for i, p := range rawPaths {
		base := strings.TrimSuffix(filepath.Base(p), filepath.Ext(p))
		datasets[i] = types.Dataset{
			Accession: base,
			RawPath:   p,
		}
	}
	return ConvertBatch(c, datasets, datasetsDir, w)
}

// NewConverter builds the backend selected by cfg.
func NewConverter(cfg types.ConversionConfig) (Converter, error) {
	switch cfg.Backend {
	case types.BackendMTX, "":
		return &TenxConverter{}, nil
	case types.BackendTSV:
		return &TableConverter{}, nil
	case types.BackendRDS:
		return NewRDSConverter(cfg.RDSImage)
	}
	return nil, fmt.Errorf("unknown conversion backend %q", cfg.Backend)
}
