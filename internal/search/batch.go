package search

import (
	"context"

	"github.com/vecengine/ivfadc/internal/catalog"
	"github.com/vecengine/ivfadc/internal/codebook"
	"github.com/vecengine/ivfadc/internal/ivfadcerr"
	"github.com/vecengine/ivfadc/internal/lut"
	"github.com/vecengine/ivfadc/internal/topk"
	"github.com/vecengine/ivfadc/internal/vecmath"
	"github.com/vecengine/ivfadc/internal/visited"
)

// PerQueryResult is one query's result rows within a batch search
// response.
type PerQueryResult struct {
	QueryID int32
	Rows    []topk.Entry
}

type batchQueryState struct {
	queryID int32
	vector  []float32
	reg     *topk.Register
	visited *visited.Set
	found   int
	table   *lut.Table // this query's current cell's residual LUT
	cellID  int32
}

// Batch runs ivfadc_batch_search(ids, k): fetches the normalized
// vectors for ids and advances every unfinished query one coarse cell
// per wave, coalescing the catalog fetch for every cell needed that
// wave into a single LoadQuantizationByCoarseIDs call.
//
// The coarse-to-queries map is an append-based map[int32][]int rather
// than a fixed-size array with a sentinel value marking an empty
// slot — a sentinel of, say, zero would be ambiguous with a valid
// query index of 0, where a map needs no sentinel and cannot collide.
func Batch(ctx context.Context, adapter catalog.Adapter, residualCB *codebook.Codebook, ids []int32, k int) ([]PerQueryResult, error) {
	normalizedName, err := adapter.ResolveTable(ctx, catalog.Normalized)
	if err != nil {
		return nil, ivfadcerr.Catalog("ivfadc_batch_search", "ResolveTable", err)
	}
	vecRows, err := adapter.LoadVectorsByID(ctx, normalizedName, ids)
	if err != nil {
		return nil, ivfadcerr.Catalog("ivfadc_batch_search", "LoadVectorsByID", err)
	}
	vecByID := make(map[int32][]float32, len(vecRows))
	for _, row := range vecRows {
		vecByID[row.ID] = row.Vector
	}

	cells, err := adapter.LoadCoarseQuantizer(ctx)
	if err != nil {
		return nil, ivfadcerr.Catalog("ivfadc_batch_search", "LoadCoarseQuantizer", err)
	}
	residualName, err := adapter.ResolveTable(ctx, catalog.ResidualQuantization)
	if err != nil {
		return nil, ivfadcerr.Catalog("ivfadc_batch_search", "ResolveTable", err)
	}

	states := make([]*batchQueryState, 0, len(ids))
	for _, id := range ids {
		v, ok := vecByID[id]
		if !ok {
			continue // unknown query id, silently dropped (MissingData)
		}
		states = append(states, &batchQueryState{
			queryID: id,
			vector:  v,
			reg:     topk.New(k),
			visited: visited.New(),
		})
	}

	for {
		unfinished := make([]*batchQueryState, 0, len(states))
		for _, st := range states {
			if st.found < k {
				unfinished = append(unfinished, st)
			}
		}
		if len(unfinished) == 0 {
			break
		}

		cellToQueries := make(map[int32][]int) // coarse cell id -> indices into unfinished
		var residual []float32
		for i, st := range unfinished {
			cell, ok := nearestUnvisited(cells, st.vector, st.visited)
			if !ok {
				st.found = k // no cells left to probe; stop revisiting this query
				continue
			}
			st.visited.Insert(cell.ID)
			residual = vecmath.Residual(nil, st.vector, cell.Vector)
			st.table = lut.Build(residualCB, residualCB.M, residualCB.K, residual)
			st.cellID = cell.ID
			cellToQueries[cell.ID] = append(cellToQueries[cell.ID], i)
		}
		if len(cellToQueries) == 0 {
			break
		}

		cellIDs := make([]int32, 0, len(cellToQueries))
		for id := range cellToQueries {
			cellIDs = append(cellIDs, id)
		}

		rows, err := adapter.LoadQuantizationByCoarseIDs(ctx, residualName, cellIDs)
		if err != nil {
			return nil, ivfadcerr.Catalog("ivfadc_batch_search", "LoadQuantizationByCoarseIDs", err)
		}

		for _, row := range rows {
			queryIdxs, ok := cellToQueries[row.CoarseID]
			if !ok {
				continue
			}
			for _, qi := range queryIdxs {
				st := unfinished[qi]
				st.reg.Offer(row.ID, st.table.Sum(row.Code))
				st.found++
			}
		}
	}

	results := make([]PerQueryResult, 0, len(states))
	for _, st := range states {
		results = append(results, PerQueryResult{QueryID: st.queryID, Rows: st.reg.Entries()})
	}
	return results, nil
}
