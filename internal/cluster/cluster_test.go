// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cluster

import (
	"math"
	"testing"
)

// toyDist has two tight pairs {0,1} and {2,3} far from each other.
var toyDist = [][]float64{
	{0, 1, 9, 10},
	{1, 0, 10, 9},
	{9, 10, 0, 2},
	{10, 9, 2, 0},
}

func TestClusterLeafOrderGroupsPairs(t *testing.T) {
	dg, err := Cluster(toyDist, LinkageAverage)
	if err != nil {
		t.Fatal(err)
	}

	order := dg.LeafOrder()
	if len(order) != 4 {
		t.Fatalf("leaf order = %v", order)
	}
	pos := make(map[int]int, 4)
	for i, leaf := range order {
		pos[leaf] = i
	}
	if abs(pos[0]-pos[1]) != 1 {
		t.Fatalf("leaves 0 and 1 not adjacent: %v", order)
	}
	if abs(pos[2]-pos[3]) != 1 {
		t.Fatalf("leaves 2 and 3 not adjacent: %v", order)
	}
}

func TestClusterMergeHeights(t *testing.T) {
	dg, err := Cluster(toyDist, LinkageAverage)
	if err != nil {
		t.Fatal(err)
	}
	if len(dg.merges) != 3 {
		t.Fatalf("got %d merges", len(dg.merges))
	}
	// Closest pair (0,1) at height 1 merges first, then (2,3) at 2,
	// then the pair clusters at the average of {9,10,10,9} = 9.5.
	if dg.merges[0].height != 1 || dg.merges[1].height != 2 {
		t.Fatalf("merge heights = %v, %v", dg.merges[0].height, dg.merges[1].height)
	}
	if dg.merges[2].height != 9.5 {
		t.Fatalf("final merge height = %v, want 9.5", dg.merges[2].height)
	}
}

func TestClusterSingleVsComplete(t *testing.T) {
	single, err := Cluster(toyDist, LinkageSingle)
	if err != nil {
		t.Fatal(err)
	}
	complete, err := Cluster(toyDist, LinkageComplete)
	if err != nil {
		t.Fatal(err)
	}
	// Final inter-group distance: min is 9, max is 10.
	if single.merges[2].height != 9 {
		t.Fatalf("single final height = %v, want 9", single.merges[2].height)
	}
	if complete.merges[2].height != 10 {
		t.Fatalf("complete final height = %v, want 10", complete.merges[2].height)
	}
}

func TestCut(t *testing.T) {
	dg, err := Cluster(toyDist, LinkageAverage)
	if err != nil {
		t.Fatal(err)
	}

	labels, err := dg.Cut(2)
	if err != nil {
		t.Fatal(err)
	}
	if labels[0] != labels[1] || labels[2] != labels[3] {
		t.Fatalf("pairs split: %v", labels)
	}
	if labels[0] == labels[2] {
		t.Fatalf("groups merged: %v", labels)
	}

	all, err := dg.Cut(4)
	if err != nil {
		t.Fatal(err)
	}
	seen := make(map[int]bool)
	for _, l := range all {
		seen[l] = true
	}
	if len(seen) != 4 {
		t.Fatalf("k=n labels = %v", all)
	}

	one, err := dg.Cut(1)
	if err != nil {
		t.Fatal(err)
	}
	for _, l := range one {
		if l != 0 {
			t.Fatalf("k=1 labels = %v", one)
		}
	}

	if _, err := dg.Cut(0); err == nil {
		t.Fatal("expected error for k=0")
	}
	if _, err := dg.Cut(5); err == nil {
		t.Fatal("expected error for k>n")
	}
}

func TestClusterRejectsBadInput(t *testing.T) {
	if _, err := Cluster(nil, LinkageAverage); err == nil {
		t.Fatal("expected error for empty matrix")
	}
	if _, err := Cluster([][]float64{{0, 1}, {1}}, LinkageAverage); err == nil {
		t.Fatal("expected error for ragged matrix")
	}
}

func TestClusterSingleLeaf(t *testing.T) {
	dg, err := Cluster([][]float64{{0}}, LinkageAverage)
	if err != nil {
		t.Fatal(err)
	}
	if got := dg.LeafOrder(); len(got) != 1 || got[0] != 0 {
		t.Fatalf("leaf order = %v", got)
	}
}

func TestParseLinkage(t *testing.T) {
	if l, err := ParseLinkage(""); err != nil || l != LinkageAverage {
		t.Fatalf("default linkage = %v, %v", l, err)
	}
	if _, err := ParseLinkage("ward"); err == nil {
		t.Fatal("expected error for unsupported linkage")
	}
}

func TestDistancesCorrelation(t *testing.T) {
	vectors := [][]float64{
		{1, 2, 3},
		{2, 4, 6}, // perfectly correlated with the first
		{3, 2, 1}, // perfectly anti-correlated
		{5, 5, 5}, // constant: NaN correlation
	}
	d, err := Distances(vectors, MetricCorrelation)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(d[0][1]) > 1e-12 {
		t.Fatalf("correlated distance = %v, want 0", d[0][1])
	}
	if math.Abs(d[0][2]-2) > 1e-12 {
		t.Fatalf("anti-correlated distance = %v, want 2", d[0][2])
	}
	if d[0][3] != 2 {
		t.Fatalf("constant-vector distance = %v, want 2", d[0][3])
	}
	if d[1][0] != d[0][1] {
		t.Fatal("distance matrix not symmetric")
	}
}

func TestDistancesEuclidean(t *testing.T) {
	d, err := Distances([][]float64{{0, 0}, {3, 4}}, MetricEuclidean)
	if err != nil {
		t.Fatal(err)
	}
	if d[0][1] != 5 {
		t.Fatalf("euclidean = %v, want 5", d[0][1])
	}
}

func TestDistancesRejectsRagged(t *testing.T) {
	if _, err := Distances([][]float64{{1, 2}, {1}}, MetricEuclidean); err == nil {
		t.Fatal("expected error for ragged vectors")
	}
	if _, err := Distances([][]float64{{1, 2}, {3, 4}}, "cosine"); err == nil {
		t.Fatal("expected error for unknown metric")
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
