// Package lut builds the per-query asymmetric-distance lookup table:
// given a query vector and a codebook, produce an M×K table of
// squared subvector distances so that scoring any candidate code
// sequence costs M lookups and M-1 additions instead of O(D)
// floating-point operations.
//
// A fresh table is built once per query/centroid rather than lazily
// rebuilt from a cache keyed on whether the query changed.
package lut

import "github.com/vecengine/ivfadc/internal/vecmath"

// Codebook is the subset of *codebook.Codebook the LUT builder needs,
// expressed as an interface so this package has no import-cycle
// dependency on the codebook package's concrete type.
type Codebook interface {
	SubDim() int
	Centroid(pos, code int) []float32
}

// Table is a built M×K lookup table. M and K are not read from the
// Codebook interface; callers pass them to Build directly since they
// already know them from loading the codebook.
type Table struct {
	m, k int
	l    []float32 // flattened M*K
}

// Build computes L[p,k] = ||q[p*d:(p+1)*d) - centroid(p,k)||^2 for a
// codebook of shape (m, k) and a query vector of length m*d.
func Build(cb Codebook, m, k int, q []float32) *Table {
	d := cb.SubDim()
	l := make([]float32, m*k)
	for p := 0; p < m; p++ {
		sub := q[p*d : (p+1)*d]
		for c := 0; c < k; c++ {
			l[p*k+c] = vecmath.SquaredEuclidean(sub, cb.Centroid(p, c))
		}
	}
	return &Table{m: m, k: k, l: l}
}

// Sum scores a code sequence against the table: sum over positions p
// of L[p, codes[p]].
func (t *Table) Sum(codes []int32) float32 {
	var sum float32
	for p, c := range codes {
		sum += t.l[p*t.k+int(c)]
	}
	return sum
}
