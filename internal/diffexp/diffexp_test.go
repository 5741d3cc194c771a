// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package diffexp

import (
	"io"
	"math"
	"testing"

	"github.com/pdiddy/expression-engine/internal/matrix"
	"github.com/pdiddy/expression-engine/pkg/types"
)

func TestTestGeneWelch(t *testing.T) {
	// Hand-checked Welch t-test: a=[1,2,3,4], b=[2,4,6,8].
	r := testGene("TP53", []float64{1, 2, 3, 4}, []float64{2, 4, 6, 8})

	if got, want := r.TStat, -1.7320508; math.Abs(got-want) > 1e-6 {
		t.Fatalf("t = %v, want %v", got, want)
	}
	// Welch df is about 4.41; the two-sided p lands near 0.156.
	if r.PValue < 0.14 || r.PValue > 0.18 {
		t.Fatalf("p = %v, want ~0.156", r.PValue)
	}
	if got, want := r.Log2FC, -2.5; got != want {
		t.Fatalf("log2FC = %v, want %v", got, want)
	}
	// Pooled sd is sqrt(25/6), so d = -2.5/sqrt(25/6) = -sqrt(1.5).
	if got, want := r.CohenD, -math.Sqrt(1.5); math.Abs(got-want) > 1e-9 {
		t.Fatalf("Cohen's d = %v, want %v", got, want)
	}
}

func TestTestGeneZeroVariance(t *testing.T) {
	r := testGene("FLAT", []float64{3, 3, 3}, []float64{3, 3, 3})
	if r.TStat != 0 || r.PValue != 1 {
		t.Fatalf("constant gene: t=%v p=%v, want 0 and 1", r.TStat, r.PValue)
	}
	if r.CohenD != 0 {
		t.Fatalf("constant gene: d=%v, want 0", r.CohenD)
	}
}

func TestBenjaminiHochberg(t *testing.T) {
	adj := BenjaminiHochberg([]float64{0.01, 0.04, 0.03, 0.05})
	want := []float64{0.04, 0.05, 0.05, 0.05}
	for i := range want {
		if math.Abs(adj[i]-want[i]) > 1e-12 {
			t.Fatalf("adj[%d] = %v, want %v (all: %v)", i, adj[i], want[i], adj)
		}
	}

	if got := BenjaminiHochberg(nil); got != nil {
		t.Fatalf("empty input = %v", got)
	}
}

func TestBenjaminiHochbergMonotone(t *testing.T) {
	p := []float64{0.001, 0.7, 0.02, 0.9, 0.04}
	adj := BenjaminiHochberg(p)
	for i := range p {
		for j := range p {
			if p[i] < p[j] && adj[i] > adj[j] {
				t.Fatalf("monotonicity violated: p=%v adj=%v", p, adj)
			}
		}
		if adj[i] > 1 {
			t.Fatalf("adj[%d] = %v exceeds 1", i, adj[i])
		}
	}
}

func deMatrix(t *testing.T) (*matrix.Matrix, map[string]types.Sample) {
	t.Helper()
	m, err := matrix.New(
		[]string{"UP", "FLAT"},
		[]string{"T1", "T2", "N1", "N2"},
		[]float64{
			8, 9, 2, 3,
			5, 5, 5, 5,
		})
	if err != nil {
		t.Fatal(err)
	}
	meta := map[string]types.Sample{
		"T1": {ID: "T1", Condition: types.ConditionTumor},
		"T2": {ID: "T2", Condition: types.ConditionTumor},
		"N1": {ID: "N1", Condition: types.ConditionNormal},
		"N2": {ID: "N2", Condition: types.ConditionNormal},
	}
	return m, meta
}

func TestRunOrdersBySignificance(t *testing.T) {
	m, meta := deMatrix(t)
	opts := Options{GroupA: types.ConditionTumor, GroupB: types.ConditionNormal}

	results, err := Run(m, meta, opts, io.Discard)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results", len(results))
	}

	if results[0].Gene != "UP" {
		t.Fatalf("first gene = %s, want UP", results[0].Gene)
	}
	if results[0].Log2FC != 6 {
		t.Fatalf("UP log2FC = %v, want 6", results[0].Log2FC)
	}
	if !results[0].Up() {
		t.Fatal("UP not reported as up-regulated")
	}
	if results[1].Gene != "FLAT" || results[1].PValue != 1 {
		t.Fatalf("FLAT result = %+v", results[1])
	}
	if results[0].AdjP > results[1].AdjP {
		t.Fatal("results not ordered by adjusted p")
	}
}

func TestRunRejectsSmallGroups(t *testing.T) {
	m, err := matrix.New([]string{"g"}, []string{"T1", "N1", "N2"}, []float64{1, 2, 3})
	if err != nil {
		t.Fatal(err)
	}
	meta := map[string]types.Sample{
		"T1": {Condition: types.ConditionTumor},
		"N1": {Condition: types.ConditionNormal},
		"N2": {Condition: types.ConditionNormal},
	}
	opts := Options{GroupA: types.ConditionTumor, GroupB: types.ConditionNormal}
	if _, err := Run(m, meta, opts, io.Discard); err == nil {
		t.Fatal("expected error for undersized group")
	}
}

func TestRunRejectsIdenticalGroups(t *testing.T) {
	m, meta := deMatrix(t)
	opts := Options{GroupA: types.ConditionTumor, GroupB: types.ConditionTumor}
	if _, err := Run(m, meta, opts, io.Discard); err == nil {
		t.Fatal("expected error for identical groups")
	}
}

func TestRunRejectsMissingMetadata(t *testing.T) {
	m, meta := deMatrix(t)
	delete(meta, "N2")
	opts := Options{GroupA: types.ConditionTumor, GroupB: types.ConditionNormal}
	if _, err := Run(m, meta, opts, io.Discard); err == nil {
		t.Fatal("expected error for sample without metadata")
	}
}
