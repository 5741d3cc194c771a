// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pdiddy/expression-engine/internal/matrix"
	"github.com/pdiddy/expression-engine/pkg/types"
)

// --- test helpers ---

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func writeGzip(t *testing.T, path, content string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	gz := gzip.NewWriter(f)
	if _, err := gz.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := gz.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
}

const testMTX = `%%MatrixMarket matrix coordinate integer general
2 3 3
1 1 4
2 2 7
1 3 2
`

func tenxDir(t *testing.T, gzipped bool) string {
	t.Helper()
	dir := t.TempDir()
	features := "ENSG1\tTP53\nENSG2\tEGFR\n"
	barcodes := "AAAC-1\nGGGT-1\nTTTC-2\n"
	if gzipped {
		writeGzip(t, filepath.Join(dir, "matrix.mtx.gz"), testMTX)
		writeGzip(t, filepath.Join(dir, "features.tsv.gz"), features)
		writeGzip(t, filepath.Join(dir, "barcodes.tsv.gz"), barcodes)
	} else {
		writeFile(t, filepath.Join(dir, "matrix.mtx"), testMTX)
		writeFile(t, filepath.Join(dir, "features.tsv"), features)
		writeFile(t, filepath.Join(dir, "barcodes.tsv"), barcodes)
	}
	return dir
}

// --- TenxConverter ---

func TestTenxConvert(t *testing.T) {
	m, err := (&TenxConverter{}).Convert(tenxDir(t, false))
	if err != nil {
		t.Fatal(err)
	}

	if nr, nc := m.Dims(); nr != 2 || nc != 3 {
		t.Fatalf("dims = %d x %d", nr, nc)
	}
	// Gene symbols come from the second features column.
	if m.Rows()[0] != "TP53" || m.Rows()[1] != "EGFR" {
		t.Fatalf("genes = %v", m.Rows())
	}
	if m.Cols()[0] != "AAAC-1" {
		t.Fatalf("barcodes = %v", m.Cols())
	}
	if m.At(0, 0) != 4 || m.At(1, 1) != 7 || m.At(0, 2) != 2 {
		t.Fatal("values misplaced")
	}
	if m.At(1, 0) != 0 {
		t.Fatal("unlisted entry not zero")
	}
}

func TestTenxConvertGzipped(t *testing.T) {
	m, err := (&TenxConverter{}).Convert(tenxDir(t, true))
	if err != nil {
		t.Fatal(err)
	}
	if nr, nc := m.Dims(); nr != 2 || nc != 3 {
		t.Fatalf("dims = %d x %d", nr, nc)
	}
}

func TestTenxConvertGenesTSVFallback(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "matrix.mtx"), testMTX)
	writeFile(t, filepath.Join(dir, "genes.tsv"), "ENSG1\tTP53\nENSG2\tEGFR\n")
	writeFile(t, filepath.Join(dir, "barcodes.tsv"), "AAAC-1\nGGGT-1\nTTTC-2\n")

	m, err := (&TenxConverter{}).Convert(dir)
	if err != nil {
		t.Fatal(err)
	}
	if m.Rows()[0] != "TP53" {
		t.Fatalf("genes = %v", m.Rows())
	}
}

func TestTenxConvertMissingFiles(t *testing.T) {
	if _, err := (&TenxConverter{}).Convert(t.TempDir()); err == nil {
		t.Fatal("expected error for empty directory")
	}

	file := filepath.Join(t.TempDir(), "matrix.mtx")
	writeFile(t, file, testMTX)
	if _, err := (&TenxConverter{}).Convert(file); err == nil {
		t.Fatal("expected error for non-directory input")
	}
}

// --- TableConverter ---

func TestTableConvertCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "expr.csv")
	writeFile(t, path, "gene,c1,c2\nTP53,1,2\nEGFR,3,4\n")

	m, err := (&TableConverter{}).Convert(path)
	if err != nil {
		t.Fatal(err)
	}
	if m.At(1, 1) != 4 {
		t.Fatalf("At(1,1) = %v", m.At(1, 1))
	}
}

func TestTableConvertGzippedTSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "expr.tsv.gz")
	writeGzip(t, path, "gene\tc1\tc2\n\"TP53\"\t1\t2\n")

	m, err := (&TableConverter{}).Convert(path)
	if err != nil {
		t.Fatal(err)
	}
	// Quotes around gene IDs are stripped.
	if m.Rows()[0] != "TP53" {
		t.Fatalf("genes = %v", m.Rows())
	}
	if m.At(0, 1) != 2 {
		t.Fatalf("At(0,1) = %v", m.At(0, 1))
	}
}

func TestTableConvertRejectsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "expr.csv")
	writeFile(t, path, "gene,c1\n")
	if _, err := (&TableConverter{}).Convert(path); err == nil {
		t.Fatal("expected error for table with no rows")
	}
}

// --- batch orchestration ---

// stubConverter fails for raw paths containing "bad".
type stubConverter struct{}

func (stubConverter) Convert(rawPath string) (*matrix.Matrix, error) {
	if strings.Contains(rawPath, "bad") {
		return nil, os.ErrNotExist
	}
	return matrix.New([]string{"g"}, []string{"c"}, []float64{1})
}

func TestConvertBatch(t *testing.T) {
	datasetsDir := t.TempDir()
	datasets := []types.Dataset{
		{Accession: "GSE1", RawPath: "good1"},
		{Accession: "GSE2", RawPath: "bad"},
		{Accession: "GSE3", RawPath: "good2"},
	}

	result := ConvertBatch(stubConverter{}, datasets, datasetsDir, io.Discard)
	if result.Converted != 2 || result.Failed != 1 || result.Skipped != 0 {
		t.Fatalf("result = %+v", result)
	}
	if !result.HasFailures() || result.Total() != 3 {
		t.Fatalf("summary = %+v", result)
	}

	if _, err := os.Stat(filepath.Join(datasetsDir, "counts", "GSE1.csv")); err != nil {
		t.Fatalf("missing output CSV: %v", err)
	}

	// Re-running skips existing CSVs.
	again := ConvertBatch(stubConverter{}, datasets[:1], datasetsDir, io.Discard)
	if again.Skipped != 1 || again.Converted != 0 {
		t.Fatalf("rerun result = %+v", again)
	}
}

func TestNewConverter(t *testing.T) {
	if _, err := NewConverter(types.ConversionConfig{Backend: types.BackendMTX}); err != nil {
		t.Fatal(err)
	}
	if _, err := NewConverter(types.ConversionConfig{}); err != nil {
		t.Fatal("empty backend should default to mtx")
	}
	if _, err := NewConverter(types.ConversionConfig{Backend: "loom"}); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}
