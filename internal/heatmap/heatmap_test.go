// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package heatmap

import (
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/pdiddy/expression-engine/internal/matrix"
	"github.com/pdiddy/expression-engine/pkg/types"
)

func heatmapInput(t *testing.T) (*matrix.Matrix, []types.DEResult) {
	t.Helper()
	// Two correlated up genes, one anti-correlated, one flat decoy.
	pb, err := matrix.New(
		[]string{"UP1", "UP2", "DOWN", "FLAT"},
		[]string{"T1", "T2", "N1", "N2"},
		[]float64{
			8, 9, 2, 3,
			7, 8, 1, 2,
			2, 1, 8, 9,
			5, 5, 5, 5,
		})
	if err != nil {
		t.Fatal(err)
	}
	de := []types.DEResult{
		{Gene: "UP1", AdjP: 0.001},
		{Gene: "UP2", AdjP: 0.002},
		{Gene: "DOWN", AdjP: 0.003},
		{Gene: "FLAT", AdjP: 0.9},
	}
	return pb, de
}

func TestBuildSelectsTopGenes(t *testing.T) {
	pb, de := heatmapInput(t)

	m, err := Build(pb, de, Options{TopN: 3}, io.Discard)
	if err != nil {
		t.Fatal(err)
	}

	nr, nc := m.Dims()
	if nr != 3 || nc != 4 {
		t.Fatalf("dims = %d x %d", nr, nc)
	}
	for _, g := range m.Rows() {
		if g == "FLAT" {
			t.Fatal("low-ranked gene included")
		}
	}
}

func TestBuildZScoresRows(t *testing.T) {
	pb, de := heatmapInput(t)
	m, err := Build(pb, de, Options{TopN: 3}, io.Discard)
	if err != nil {
		t.Fatal(err)
	}

	nr, nc := m.Dims()
	for i := 0; i < nr; i++ {
		var sum float64
		for j := 0; j < nc; j++ {
			sum += m.At(i, j)
		}
		if math.Abs(sum) > 1e-9 {
			t.Fatalf("row %d not centered: sum %v", i, sum)
		}
	}
}

func TestBuildClustersCorrelatedGenes(t *testing.T) {
	pb, de := heatmapInput(t)
	m, err := Build(pb, de, Options{TopN: 3}, io.Discard)
	if err != nil {
		t.Fatal(err)
	}

	pos := make(map[string]int)
	for i, g := range m.Rows() {
		pos[g] = i
	}
	if d := pos["UP1"] - pos["UP2"]; d != 1 && d != -1 {
		t.Fatalf("correlated genes not adjacent: %v", m.Rows())
	}

	// Samples cluster by condition: tumor pair together, normal pair together.
	cpos := make(map[string]int)
	for j, c := range m.Cols() {
		cpos[c] = j
	}
	if d := cpos["T1"] - cpos["T2"]; d != 1 && d != -1 {
		t.Fatalf("tumor samples not adjacent: %v", m.Cols())
	}
}

func TestBuildExplicitGenes(t *testing.T) {
	pb, de := heatmapInput(t)
	m, err := Build(pb, de, Options{Genes: []string{"UP1", "DOWN"}}, io.Discard)
	if err != nil {
		t.Fatal(err)
	}
	if nr, _ := m.Dims(); nr != 2 {
		t.Fatalf("got %d genes", nr)
	}

	if _, err := Build(pb, de, Options{Genes: []string{"UP1", "MISSING"}}, io.Discard); err == nil {
		t.Fatal("expected error for gene absent from matrix")
	}
}

func TestBuildNeedsResults(t *testing.T) {
	pb, _ := heatmapInput(t)
	if _, err := Build(pb, nil, Options{}, io.Discard); err == nil {
		t.Fatal("expected error with no DE results")
	}
	if _, err := Build(pb, []types.DEResult{{Gene: "UP1"}}, Options{TopN: 1}, io.Discard); err == nil {
		t.Fatal("expected error for a single gene")
	}
}

func TestRenderWritesPNG(t *testing.T) {
	pb, de := heatmapInput(t)
	m, err := Build(pb, de, Options{TopN: 3}, io.Discard)
	if err != nil {
		t.Fatal(err)
	}

	meta := map[string]types.Sample{
		"T1": {ID: "T1", Condition: types.ConditionTumor},
		"T2": {ID: "T2", Condition: types.ConditionTumor},
		"N1": {ID: "N1", Condition: types.ConditionNormal},
		"N2": {ID: "N2", Condition: types.ConditionNormal},
	}
	path := filepath.Join(t.TempDir(), "heatmap.png")
	if err := Render(m, meta, "toy", path); err != nil {
		t.Fatal(err)
	}
	if fi, err := os.Stat(path); err != nil || fi.Size() == 0 {
		t.Fatalf("heatmap file missing or empty: %v", err)
	}
}
