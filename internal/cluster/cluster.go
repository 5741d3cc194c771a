// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package cluster implements agglomerative hierarchical clustering used to
// order heatmap rows and columns. gonum supplies the distance primitives;
// the linkage loop is the textbook O(n^2)-per-merge algorithm, which is
// ample for matrices of a few hundred genes and tens of samples.
package cluster

import (
	"fmt"
	"sort"
)

// Linkage selects how inter-cluster distance is updated after a merge.
type Linkage string

const (
	LinkageAverage  Linkage = "average"
	LinkageComplete Linkage = "complete"
	LinkageSingle   Linkage = "single"
)

// ParseLinkage validates a linkage name.
func ParseLinkage(s string) (Linkage, error) {
	switch Linkage(s) {
	case LinkageAverage, LinkageComplete, LinkageSingle:
		return Linkage(s), nil
	case "":
		return LinkageAverage, nil
	}
	return "", fmt.Errorf("unknown linkage %q (want average, complete, or single)", s)
}

// merge records one agglomeration step.
type merge struct {
	a, b   int // cluster ids merged (leaf ids are 0..n-1)
	height float64
}

// Dendrogram is the result of hierarchical clustering over n leaves.
type Dendrogram struct {
	n      int
	merges []merge
	order  []int
}

// LeafOrder returns the leaf indices in dendrogram order.
func (d *Dendrogram) LeafOrder() []int { return d.order }

// Cluster agglomerates the n x n distance matrix dist into a dendrogram.
// dist must be symmetric with a zero diagonal.
func Cluster(dist [][]float64, linkage Linkage) (*Dendrogram, error) {
	n := len(dist)
	if n == 0 {
		return nil, fmt.Errorf("empty distance matrix")
	}
	for i := range dist {
		if len(dist[i]) != n {
			return nil, fmt.Errorf("distance matrix row %d has %d entries, want %d", i, len(dist[i]), n)
		}
	}
	if n == 1 {
		return &Dendrogram{n: 1, order: []int{0}}, nil
	}

	// Working copy: d[i][j] is the current inter-cluster distance.
	d := make([][]float64, n)
	for i := range d {
		d[i] = append([]float64(nil), dist[i]...)
	}

	type node struct {
		id     int
		size   int
		leaves []int
	}
	active := make(map[int]*node, n)
	for i := 0; i < n; i++ {
		active[i] = &node{id: i, size: 1, leaves: []int{i}}
	}

	dg := &Dendrogram{n: n}
	nextID := n
	slot := make(map[int]int, n) // cluster id -> row in d
	for i := 0; i < n; i++ {
		slot[i] = i
	}

	ids := func() []int {
		out := make([]int, 0, len(active))
		for id := range active {
			out = append(out, id)
		}
		sort.Ints(out)
		return out
	}

	for len(active) > 1 {
		// Find the closest active pair.
		best := -1.0
		var ba, bb int
		for _, a := range ids() {
			for _, b := range ids() {
				if b <= a {
					continue
				}
				dd := d[slot[a]][slot[b]]
				if best < 0 || dd < best {
					best, ba, bb = dd, a, b
				}
			}
		}

		na, nb := active[ba], active[bb]
		merged := &node{
			id:     nextID,
			size:   na.size + nb.size,
			leaves: append(append([]int(nil), na.leaves...), nb.leaves...),
		}
		nextID++

		// Update distances from the merged cluster to the rest, reusing
		// cluster a's row (Lance-Williams update for the chosen linkage).
		sa, sb := slot[ba], slot[bb]
		for _, c := range ids() {
			if c == ba || c == bb {
				continue
			}
			sc := slot[c]
			dac, dbc := d[sa][sc], d[sb][sc]
			var dn float64
			switch linkage {
			case LinkageComplete:
				dn = max(dac, dbc)
			case LinkageSingle:
				dn = min(dac, dbc)
			default: // average
				dn = (float64(na.size)*dac + float64(nb.size)*dbc) / float64(merged.size)
			}
			d[sa][sc] = dn
			d[sc][sa] = dn
		}

		dg.merges = append(dg.merges, merge{a: ba, b: bb, height: best})
		delete(active, ba)
		delete(active, bb)
		active[merged.id] = merged
		slot[merged.id] = sa

		if len(active) == 1 {
			dg.order = merged.leaves
		}
	}

	return dg, nil
}

// Cut assigns each leaf to one of k clusters by replaying merges until k
// clusters remain. Labels are 0..k-1 in leaf-order of first appearance.
func (d *Dendrogram) Cut(k int) ([]int, error) {
	if k < 1 || k > d.n {
		return nil, fmt.Errorf("cannot cut %d leaves into %d clusters", d.n, k)
	}

	// Merged cluster ids are assigned consecutively from n in merge order.
	members := make(map[int][]int, d.n)
	for i := 0; i < d.n; i++ {
		members[i] = []int{i}
	}
	clusters := d.n
	for i, m := range d.merges {
		if clusters == k {
			break
		}
		merged := append(append([]int(nil), members[m.a]...), members[m.b]...)
		delete(members, m.a)
		delete(members, m.b)
		members[d.n+i] = merged
		clusters--
	}

	// Label clusters by first appearance in dendrogram leaf order.
	leafCluster := make(map[int]int, d.n)
	for cid, leaves := range members {
		for _, leaf := range leaves {
			leafCluster[leaf] = cid
		}
	}
	labels := make([]int, d.n)
	next := 0
	assigned := make(map[int]int)
	for _, leaf := range d.order {
		cid := leafCluster[leaf]
		lbl, ok := assigned[cid]
		if !ok {
			lbl = next
			assigned[cid] = lbl
			next++
		}
		labels[leaf] = lbl
	}
	return labels, nil
}
