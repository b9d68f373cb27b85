// Package search implements the engine's scan-based query operations:
// PQ search, filtered PQ search, IVFADC search, and IVFADC batch
// search. Every operation builds an ADC LUT via internal/lut, scans
// rows, and maintains a result set via internal/topk.
package search

import (
	"context"

	"github.com/vecengine/ivfadc/internal/catalog"
	"github.com/vecengine/ivfadc/internal/codebook"
	"github.com/vecengine/ivfadc/internal/ivfadcerr"
	"github.com/vecengine/ivfadc/internal/lut"
	"github.com/vecengine/ivfadc/internal/topk"
)

// PQ runs pq_search(q, k): an exhaustive ADC scan over the PQ
// quantization table.
func PQ(ctx context.Context, adapter catalog.Adapter, cb *codebook.Codebook, q []float32, k int) ([]topk.Entry, error) {
	name, err := adapter.ResolveTable(ctx, catalog.PqQuantization)
	if err != nil {
		return nil, ivfadcerr.Catalog("pq_search", "ResolveTable", err)
	}
	table := lut.Build(cb, cb.M, cb.K, q)
	reg := topk.New(k)

	scanner, err := adapter.ScanQuantization(ctx, name)
	if err != nil {
		return nil, ivfadcerr.Catalog("pq_search", "ScanQuantization", err)
	}
	defer scanner.Close()

	for {
		row, ok, err := scanner.Next()
		if err != nil {
			return nil, ivfadcerr.Catalog("pq_search", "scan", err)
		}
		if !ok {
			break
		}
		reg.Offer(row.ID, table.Sum(row.Code))
	}
	return reg.Entries(), nil
}

// PQIn runs pq_search_in(q, k, ids): the ID-filtered variant of PQ
// search. The scan is restricted to rows whose id is in ids, fetched
// directly by id rather than scanned in full.
func PQIn(ctx context.Context, adapter catalog.Adapter, cb *codebook.Codebook, q []float32, k int, ids []int32) ([]topk.Entry, error) {
	name, err := adapter.ResolveTable(ctx, catalog.PqQuantization)
	if err != nil {
		return nil, ivfadcerr.Catalog("pq_search_in", "ResolveTable", err)
	}
	rows, err := adapter.LoadQuantizationByIDs(ctx, name, ids)
	if err != nil {
		return nil, ivfadcerr.Catalog("pq_search_in", "LoadQuantizationByIDs", err)
	}
	table := lut.Build(cb, cb.M, cb.K, q)
	reg := topk.New(k)
	for _, row := range rows {
		reg.Offer(row.ID, table.Sum(row.Code))
	}
	// Rows referencing unknown ids are simply absent from the catalog
	// response and are silently absorbed rather than treated as an error.
	return reg.Entries(), nil
}
