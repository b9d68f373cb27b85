// Package codebook implements the in-memory PQ/residual-PQ codebook
// model: an M*K entry table keyed by pos*K+code, with optional
// per-centroid counts for the online mean update used by insert_batch.
//
// Centroids are stored flattened into a single entries slice matching
// the catalog's (pos,code,vector) row shape directly, rather than as
// one slice of K vectors per subspace. M and K are structural
// parameters fixed by whatever the catalog already stores; this
// package never trains a codebook from scratch, only loads, encodes
// against, and incrementally updates one.
package codebook

import (
	"context"
	"fmt"

	"github.com/vecengine/ivfadc/internal/catalog"
	"github.com/vecengine/ivfadc/internal/ivfadcerr"
	"github.com/vecengine/ivfadc/internal/vecmath"
)

// Codebook holds M*K centroids of dimension d = D/M, plus optional
// per-centroid counts.
type Codebook struct {
	M, K, D int
	d       int // subvector length, D/M
	vectors [][]float32
	counts  []int
}

// Load reads a codebook from the catalog and validates the structural
// invariants it must hold: M must divide D, and every position has
// exactly K entries.
func Load(ctx context.Context, adapter catalog.Adapter, name string) (*Codebook, error) {
	m, k, entries, err := adapter.LoadCodebook(ctx, name)
	if err != nil {
		return nil, ivfadcerr.Catalog("codebook", "LoadCodebook", err)
	}
	return fromEntries(name, m, k, entries, nil)
}

// LoadWithCounts is Load plus per-centroid counts, used by insert_batch.
func LoadWithCounts(ctx context.Context, adapter catalog.Adapter, name string) (*Codebook, error) {
	m, k, entries, counts, err := adapter.LoadCodebookWithCounts(ctx, name)
	if err != nil {
		return nil, ivfadcerr.Catalog("codebook", "LoadCodebookWithCounts", err)
	}
	return fromEntries(name, m, k, entries, counts)
}

func fromEntries(name string, m, k int, entries []catalog.CodebookEntry, counts []int) (*Codebook, error) {
	if m <= 0 || k <= 0 {
		return nil, ivfadcerr.Invariant("codebook", "Load", "%s: non-positive M=%d or K=%d", name, m, k)
	}
	if len(entries) != m*k {
		return nil, ivfadcerr.Invariant("codebook", "Load", "%s: expected %d entries (M*K), got %d", name, m*k, len(entries))
	}
	d := 0
	vectors := make([][]float32, m*k)
	for _, e := range entries {
		if e.Pos < 0 || e.Pos >= m || e.Code < 0 || e.Code >= k {
			return nil, ivfadcerr.Invariant("codebook", "Load", "%s: entry (pos=%d,code=%d) out of range for M=%d,K=%d", name, e.Pos, e.Code, m, k)
		}
		if d == 0 {
			d = len(e.Vector)
		} else if len(e.Vector) != d {
			return nil, ivfadcerr.Invariant("codebook", "Load", "%s: inconsistent subvector length", name)
		}
		vectors[e.Pos*k+e.Code] = e.Vector
	}
	for i, v := range vectors {
		if v == nil {
			return nil, ivfadcerr.Invariant("codebook", "Load", "%s: missing entry at index %d", name, i)
		}
	}
	cb := &Codebook{M: m, K: k, D: d * m, d: d, vectors: vectors}
	if counts != nil {
		if len(counts) != m*k {
			return nil, ivfadcerr.Invariant("codebook", "Load", "%s: expected %d counts, got %d", name, m*k, len(counts))
		}
		cb.counts = append([]int(nil), counts...)
	}
	return cb, nil
}

// SubDim returns D/M, the length of one subvector.
func (cb *Codebook) SubDim() int { return cb.d }

// Centroid returns the centroid vector for (pos, code).
func (cb *Codebook) Centroid(pos, code int) []float32 {
	return cb.vectors[pos*cb.K+code]
}

// Count returns the training-sample count for (pos, code). Zero if
// this codebook was loaded without counts.
func (cb *Codebook) Count(pos, code int) int {
	if cb.counts == nil {
		return 0
	}
	return cb.counts[pos*cb.K+code]
}

// Validate checks that a vector dimension d is divisible by M and
// agrees with the loaded centroid dimension, returning an
// InternalInvariant error otherwise. Load does not call it; callers
// run it explicitly.
func (cb *Codebook) Validate(d int) error {
	if d%cb.M != 0 {
		return ivfadcerr.Invariant("codebook", "Validate", "D=%d not divisible by M=%d", d, cb.M)
	}
	if d/cb.M != cb.d {
		return ivfadcerr.Invariant("codebook", "Validate", "computed subvector length %d disagrees with loaded centroids (%d)", d/cb.M, cb.d)
	}
	return nil
}

// EncodeVector returns the per-position nearest-centroid code for v,
// via per-position argmin squared distance — the PQ-encode step used by
// both cluster assignment and insert_batch.
func (cb *Codebook) EncodeVector(v []float32) []int32 {
	codes := make([]int32, cb.M)
	for p := 0; p < cb.M; p++ {
		sub := v[p*cb.d : (p+1)*cb.d]
		best := 0
		bestDist := float32(0)
		for k := 0; k < cb.K; k++ {
			dist := vecmath.SquaredEuclidean(sub, cb.Centroid(p, k))
			if k == 0 || dist < bestDist {
				best = k
				bestDist = dist
			}
		}
		codes[p] = int32(best)
	}
	return codes
}

// UpdateMean applies the online mean update for vector
// x encoded as codes: for each position p, the centroid at
// (p, codes[p]) moves to the running mean of every x ever assigned to
// it, and its count increments.
func (cb *Codebook) UpdateMean(x []float32, codes []int32) error {
	if len(codes) != cb.M {
		return ivfadcerr.Invariant("codebook", "UpdateMean", "code length %d != M %d", len(codes), cb.M)
	}
	if cb.counts == nil {
		cb.counts = make([]int, cb.M*cb.K)
	}
	for p := 0; p < cb.M; p++ {
		code := int(codes[p])
		idx := p*cb.K + code
		sub := x[p*cb.d : (p+1)*cb.d]
		centroid := cb.vectors[idx]
		count := cb.counts[idx]
		updated := make([]float32, cb.d)
		for i := range updated {
			updated[i] = (centroid[i]*float32(count) + sub[i]) / float32(count+1)
		}
		cb.vectors[idx] = updated
		cb.counts[idx] = count + 1
	}
	return nil
}

// Entries returns the codebook flattened back into catalog rows, for
// UpsertCodebook.
func (cb *Codebook) Entries() ([]catalog.CodebookEntry, []int) {
	entries := make([]catalog.CodebookEntry, 0, cb.M*cb.K)
	for p := 0; p < cb.M; p++ {
		for k := 0; k < cb.K; k++ {
			entries = append(entries, catalog.CodebookEntry{Pos: p, Code: k, Vector: cb.vectors[p*cb.K+k]})
		}
	}
	counts := cb.counts
	if counts == nil {
		counts = make([]int, cb.M*cb.K)
	}
	return entries, counts
}

func (cb *Codebook) String() string {
	return fmt.Sprintf("codebook(M=%d,K=%d,D=%d)", cb.M, cb.K, cb.D)
}
