// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package diffexp

import "sort"

// BenjaminiHochberg returns the adjusted p-values for the input, in the
// input's order. Adjusted values are p*n/rank with a cumulative-minimum
// pass from the largest p downward, so the output is monotone in p and
// capped at 1.
func BenjaminiHochberg(p []float64) []float64 {
	n := len(p)
	if n == 0 {
		return nil
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return p[order[a]] < p[order[b]] })

	adj := make([]float64, n)
	minSoFar := 1.0
	for rank := n; rank >= 1; rank-- {
		i := order[rank-1]
		v := p[i] * float64(n) / float64(rank)
		if v < minSoFar {
			minSoFar = v
		}
		adj[i] = minSoFar
	}
	return adj
}
