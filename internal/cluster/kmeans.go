// Package cluster implements K-means over PQ codes (cluster_pq) and
// nearest-group assignment (grouping_pq). Both reuse the ADC LUT
// machinery with centroid/group vectors playing the role of the query.
package cluster

import (
	"context"
	"math/rand"

	"github.com/vecengine/ivfadc/internal/catalog"
	"github.com/vecengine/ivfadc/internal/codebook"
	"github.com/vecengine/ivfadc/internal/ivfadcerr"
	"github.com/vecengine/ivfadc/internal/lut"
)

const lloydIterations = 10 // cluster_pq always runs exactly this many Lloyd iterations

// Result is one output cluster: its centroid and the ids assigned to
// it in the final iteration.
type Result struct {
	Centroid []float32
	IDs      []int32
}

// KMeans runs cluster_pq(ids, k): samples k initial centroids from
// ids uniformly without replacement, then runs a fixed 10 Lloyd
// iterations assigning by ADC distance to the PQ codes. rng is
// injected so callers (and tests) control the sampling seed, rather
// than reseeding from wall-clock time on every call — determinism
// under a caller-supplied seed makes this testable at no real cost.
func KMeans(ctx context.Context, adapter catalog.Adapter, pq *codebook.Codebook, ids []int32, k int, rng *rand.Rand) ([]Result, error) {
	return KMeansWithProgress(ctx, adapter, pq, ids, k, rng, nil)
}

// ProgressFunc is called once after each completed Lloyd iteration,
// with the 1-based iteration number and the fixed total (always
// lloydIterations). Used by cmd/ivfadc-cli to drive a progress bar;
// nil is a valid no-op.
type ProgressFunc func(iteration, total int)

// KMeansWithProgress is KMeans with an iteration callback.
func KMeansWithProgress(ctx context.Context, adapter catalog.Adapter, pq *codebook.Codebook, ids []int32, k int, rng *rand.Rand, onIteration ProgressFunc) ([]Result, error) {
	if len(ids) < k {
		return nil, ivfadcerr.Invalid("cluster_pq", "KMeans", "|ids| (%d) < k (%d)", len(ids), k)
	}

	originalName, err := adapter.ResolveTable(ctx, catalog.Original)
	if err != nil {
		return nil, ivfadcerr.Catalog("cluster_pq", "ResolveTable", err)
	}
	pqName, err := adapter.ResolveTable(ctx, catalog.PqQuantization)
	if err != nil {
		return nil, ivfadcerr.Catalog("cluster_pq", "ResolveTable", err)
	}

	seedIDs := sampleWithoutReplacement(ids, k, rng)
	seedRows, err := adapter.LoadVectorsByID(ctx, originalName, seedIDs)
	if err != nil {
		return nil, ivfadcerr.Catalog("cluster_pq", "LoadVectorsByID(seed)", err)
	}
	vecBySeed := make(map[int32][]float32, len(seedRows))
	for _, row := range seedRows {
		vecBySeed[row.ID] = row.Vector
	}
	centroids := make([][]float32, k)
	for i, id := range seedIDs {
		v, ok := vecBySeed[id]
		if !ok {
			return nil, ivfadcerr.Catalog("cluster_pq", "LoadVectorsByID(seed)", errMissingSeed(id))
		}
		centroids[i] = append([]float32(nil), v...)
	}

	// Join of PQ code + original vector, fetched once up front rather
	// than once per id per iteration.
	codeRows, err := adapter.LoadQuantizationByIDs(ctx, pqName, ids)
	if err != nil {
		return nil, ivfadcerr.Catalog("cluster_pq", "LoadQuantizationByIDs", err)
	}
	origRows, err := adapter.LoadVectorsByID(ctx, originalName, ids)
	if err != nil {
		return nil, ivfadcerr.Catalog("cluster_pq", "LoadVectorsByID", err)
	}
	origByID := make(map[int32][]float32, len(origRows))
	for _, row := range origRows {
		origByID[row.ID] = row.Vector
	}

	type member struct {
		id     int32
		code   []int32
		vector []float32
	}
	members := make([]member, 0, len(codeRows))
	for _, row := range codeRows {
		v, ok := origByID[row.ID]
		if !ok {
			continue // MissingData: id has a code but no original vector, silently dropped
		}
		members = append(members, member{id: row.ID, code: row.Code, vector: v})
	}

	d := pq.SubDim() * pq.M
	assign := make([]int, len(members))

	for iter := 0; iter < lloydIterations; iter++ {
		tables := make([]*lut.Table, k)
		for c := 0; c < k; c++ {
			tables[c] = lut.Build(pq, pq.M, pq.K, centroids[c])
		}

		sums := make([][]float32, k)
		counts := make([]int, k)
		for c := range sums {
			sums[c] = make([]float32, d)
		}

		for i, m := range members {
			best := 0
			bestDist := tables[0].Sum(m.code)
			for c := 1; c < k; c++ {
				dist := tables[c].Sum(m.code)
				if dist < bestDist {
					best = c
					bestDist = dist
				}
			}
			assign[i] = best
			counts[best]++
			for j, x := range m.vector {
				sums[best][j] += x
			}
		}

		for c := 0; c < k; c++ {
			if counts[c] == 0 {
				centroids[c] = make([]float32, d)
				continue
			}
			mean := make([]float32, d)
			for j := range mean {
				mean[j] = sums[c][j] / float32(counts[c])
			}
			centroids[c] = mean
		}

		if onIteration != nil {
			onIteration(iter+1, lloydIterations)
		}
	}

	results := make([]Result, k)
	for c := 0; c < k; c++ {
		results[c].Centroid = centroids[c]
	}
	for i, m := range members {
		c := assign[i]
		results[c].IDs = append(results[c].IDs, m.id)
	}
	return results, nil
}

func sampleWithoutReplacement(ids []int32, k int, rng *rand.Rand) []int32 {
	pool := append([]int32(nil), ids...)
	for i := 0; i < k; i++ {
		j := i + rng.Intn(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:k]
}

type missingSeedErr struct{ id int32 }

func (e missingSeedErr) Error() string { return "seed id not found in original vectors table" }
func errMissingSeed(id int32) error    { return missingSeedErr{id: id} }
