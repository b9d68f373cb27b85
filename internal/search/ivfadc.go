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

// nearestUnvisited picks the coarse centroid minimizing squared
// distance to q among entries not already in v, with ties broken by
// lower coarse id. cells must be non-empty.
func nearestUnvisited(cells []catalog.VectorRow, q []float32, v *visited.Set) (catalog.VectorRow, bool) {
	best := -1
	bestDist := float32(0)
	for i, cell := range cells {
		if v.Contains(cell.ID) {
			continue
		}
		d := vecmath.SquaredEuclidean(q, cell.Vector)
		if best == -1 || d < bestDist || (d == bestDist && cell.ID < cells[best].ID) {
			best = i
			bestDist = d
		}
	}
	if best == -1 {
		return catalog.VectorRow{}, false
	}
	return cells[best], true
}

// IVFADC runs ivfadc_search(q, k): probes coarse cells one at a time,
// nearest-unvisited-first, scoring each cell's residual-quantization
// rows via a freshly built residual ADC LUT, until the number of rows
// inspected reaches k. This is "k rows inspected", not "k distinct
// improvements to the register" — a cell can be probed and contribute
// zero register improvements yet still count toward k, which is
// preserved here deliberately.
func IVFADC(ctx context.Context, adapter catalog.Adapter, residualCB *codebook.Codebook, q []float32, k int) ([]topk.Entry, error) {
	cells, err := adapter.LoadCoarseQuantizer(ctx)
	if err != nil {
		return nil, ivfadcerr.Catalog("ivfadc_search", "LoadCoarseQuantizer", err)
	}
	residualName, err := adapter.ResolveTable(ctx, catalog.ResidualQuantization)
	if err != nil {
		return nil, ivfadcerr.Catalog("ivfadc_search", "ResolveTable", err)
	}

	reg := topk.New(k)
	v := visited.New()
	found := 0
	var residual []float32

	for found < k {
		cell, ok := nearestUnvisited(cells, q, v)
		if !ok {
			break // every coarse cell has been probed; nothing left to inspect
		}
		v.Insert(cell.ID)

		residual = vecmath.Residual(residual, q, cell.Vector)
		table := lut.Build(residualCB, residualCB.M, residualCB.K, residual)

		rows, err := adapter.LoadQuantizationByCoarseIDs(ctx, residualName, []int32{cell.ID})
		if err != nil {
			return nil, ivfadcerr.Catalog("ivfadc_search", "LoadQuantizationByCoarseIDs", err)
		}
		for _, row := range rows {
			reg.Offer(row.ID, table.Sum(row.Code))
		}
		found += len(rows)
	}
	return reg.Entries(), nil
}
