// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package counts

import (
	"fmt"
	"io"
	"os"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/expression-engine/internal/matrix"
	"github.com/pdiddy/expression-engine/pkg/types"
)

// LoadSampleMap reads an explicit barcode-to-sample YAML map.
func LoadSampleMap(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading sample map: %w", err)
	}
	m := make(map[string]string)
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing sample map: %w", err)
	}
	return m, nil
}

// Assign maps each cell barcode to a sample ID. An explicit sampleMap wins;
// otherwise the barcode suffix after the last '-' is matched against the
// samples' BarcodeSuffix fields. Barcodes that match no target sample are
// reported as unassigned and dropped by FilterToSamples.
func Assign(barcodes []string, samples []types.Sample, sampleMap map[string]string) map[string]string {
	bySuffix := make(map[string]string, len(samples))
	for _, s := range samples {
		if s.BarcodeSuffix != "" {
			bySuffix[s.BarcodeSuffix] = s.ID
		}
	}

	assigned := make(map[string]string, len(barcodes))
	for _, bc := range barcodes {
		if sampleMap != nil {
			if id, ok := sampleMap[bc]; ok {
				assigned[bc] = id
			}
			continue
		}
		if i := strings.LastIndex(bc, "-"); i >= 0 {
			if id, ok := bySuffix[bc[i+1:]]; ok {
				assigned[bc] = id
			}
		}
	}
	return assigned
}

// FilterToSamples keeps only the cells assigned to a target sample, the
// workflow's "filter to target samples" step. It prints per-sample cell
// counts to w.
func FilterToSamples(m *matrix.Matrix, assigned map[string]string, samples []types.Sample, w io.Writer) (*matrix.Matrix, error) {
	target := make(map[string]bool, len(samples))
	for _, s := range samples {
		target[s.ID] = true
	}

	var keep []int
	perSample := make(map[string]int)
	for j, bc := range m.Cols() {
		id, ok := assigned[bc]
		if !ok || !target[id] {
			continue
		}
		keep = append(keep, j)
		perSample[id]++
	}
	if len(keep) == 0 {
		return nil, fmt.Errorf("no cells assigned to the %d target samples", len(samples))
	}

	for _, s := range samples {
		fmt.Fprintf(w, "  %s: %d cells\n", s.ID, perSample[s.ID])
	}
	fmt.Fprintf(w, "kept %d/%d cells across %d samples\n", len(keep), len(m.Cols()), len(samples))

	return m.SubsetCols(keep)
}
