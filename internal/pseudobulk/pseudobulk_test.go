// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pseudobulk

import (
	"io"
	"math"
	"path/filepath"
	"testing"

	"github.com/pdiddy/expression-engine/internal/matrix"
	"github.com/pdiddy/expression-engine/pkg/types"
)

func cellMatrix(t *testing.T) *matrix.Matrix {
	t.Helper()
	m, err := matrix.New(
		[]string{"TP53", "EGFR"},
		[]string{"AAAC-1", "GGGT-1", "TTTC-2"},
		[]float64{
			2, 4, 8,
			0, 6, 10,
		})
	if err != nil {
		t.Fatal(err)
	}
	return m
}

var testSamples = []types.Sample{
	{ID: "S1", Condition: types.ConditionTumor, BarcodeSuffix: "1"},
	{ID: "S2", Condition: types.ConditionNormal, BarcodeSuffix: "2"},
}

var testAssigned = map[string]string{
	"AAAC-1": "S1",
	"GGGT-1": "S1",
	"TTTC-2": "S2",
}

func TestAggregateMean(t *testing.T) {
	pb, err := Aggregate(cellMatrix(t), testAssigned, testSamples, Options{Agg: types.AggMean}, io.Discard)
	if err != nil {
		t.Fatal(err)
	}

	if got := pb.Cols(); got[0] != "S1" || got[1] != "S2" {
		t.Fatalf("sample order = %v", got)
	}
	// TP53: mean(2,4)=3 for S1; 8 for S2.
	if pb.At(0, 0) != 3 || pb.At(0, 1) != 8 {
		t.Fatalf("TP53 row = %v, %v", pb.At(0, 0), pb.At(0, 1))
	}
	// EGFR: mean(0,6)=3 for S1.
	if pb.At(1, 0) != 3 {
		t.Fatalf("EGFR S1 = %v", pb.At(1, 0))
	}
}

func TestAggregateSumWithLog2(t *testing.T) {
	pb, err := Aggregate(cellMatrix(t), testAssigned, testSamples, Options{Agg: types.AggSum, Log2: true}, io.Discard)
	if err != nil {
		t.Fatal(err)
	}
	// TP53 S1: sum(2,4)=6 then log2(7).
	if got, want := pb.At(0, 0), math.Log2(7); math.Abs(got-want) > 1e-12 {
		t.Fatalf("log2 sum = %v, want %v", got, want)
	}
}

func TestAggregateEmptySample(t *testing.T) {
	samples := append(testSamples, types.Sample{ID: "S3", BarcodeSuffix: "3"})
	if _, err := Aggregate(cellMatrix(t), testAssigned, samples, Options{}, io.Discard); err == nil {
		t.Fatal("expected error for sample with no cells")
	}
}

func TestAggregateUnknownStatistic(t *testing.T) {
	if _, err := Aggregate(cellMatrix(t), testAssigned, testSamples, Options{Agg: "median"}, io.Discard); err == nil {
		t.Fatal("expected error for unknown aggregation")
	}
}

func TestCSVRoundTripWithMetadata(t *testing.T) {
	pb, err := Aggregate(cellMatrix(t), testAssigned, testSamples, Options{Log2: true}, io.Discard)
	if err != nil {
		t.Fatal(err)
	}

	meta := map[string]types.Sample{
		"S1": {ID: "S1", Condition: types.ConditionTumor, Patient: "P01", Stage: "IA"},
		"S2": {ID: "S2", Condition: types.ConditionNormal, Patient: "P01", Stage: ""},
	}

	path := filepath.Join(t.TempDir(), "pb.csv")
	if err := WriteCSVFile(pb, meta, path); err != nil {
		t.Fatal(err)
	}

	got, gotMeta, err := ReadCSVFile(path)
	if err != nil {
		t.Fatal(err)
	}

	if nr, nc := got.Dims(); nr != 2 || nc != 2 {
		t.Fatalf("dims = %d x %d", nr, nc)
	}
	if got.Rows()[0] != "TP53" {
		t.Fatalf("genes = %v", got.Rows())
	}
	if math.Abs(got.At(0, 0)-pb.At(0, 0)) > 1e-12 {
		t.Fatalf("value drift: %v != %v", got.At(0, 0), pb.At(0, 0))
	}

	s1 := gotMeta["S1"]
	if s1.Condition != types.ConditionTumor || s1.Patient != "P01" || s1.Stage != "IA" {
		t.Fatalf("S1 metadata = %+v", s1)
	}
	if gotMeta["S2"].Condition != types.ConditionNormal {
		t.Fatalf("S2 metadata = %+v", gotMeta["S2"])
	}
}
