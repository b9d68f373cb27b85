package search

import (
	"context"
	"testing"

	"github.com/vecengine/ivfadc/internal/catalog"
	"github.com/vecengine/ivfadc/internal/catalog/memcatalog"
	"github.com/vecengine/ivfadc/internal/codebook"
)

func seedBatchFixture(t *testing.T) (*memcatalog.Catalog, *codebook.Codebook) {
	t.Helper()
	cat := memcatalog.New(func(string) ([]float32, []float32, bool) { return nil, nil, false })
	cat.SeedCoarseQuantizer([]catalog.VectorRow{
		{ID: 0, Vector: []float32{0, 0, 0, 0}},
		{ID: 1, Vector: []float32{1, 1, 1, 1}},
	})
	cat.SeedCodebook(catalog.ResidualCodebook, 2, 2, []catalog.CodebookEntry{
		{Pos: 0, Code: 0, Vector: []float32{0, 0}},
		{Pos: 0, Code: 1, Vector: []float32{1, 0}},
		{Pos: 1, Code: 0, Vector: []float32{0, 0}},
		{Pos: 1, Code: 1, Vector: []float32{0, 1}},
	}, nil)
	cat.SeedQuantization(catalog.ResidualQuantization, "near-c1", []int32{0, 0}, 1)
	cat.SeedQuantization(catalog.ResidualQuantization, "near-c0", []int32{0, 0}, 0)

	cat.SeedVector(catalog.Normalized, "q-near-c1", []float32{1, 1, 1, 1})
	cat.SeedVector(catalog.Normalized, "q-near-c0", []float32{0, 0, 0, 0})

	name, err := cat.ResolveTable(context.Background(), catalog.ResidualCodebook)
	if err != nil {
		t.Fatal(err)
	}
	cb, err := codebook.Load(context.Background(), cat, name)
	if err != nil {
		t.Fatal(err)
	}
	return cat, cb
}

func TestBatchCoalescesQueriesInSameWave(t *testing.T) {
	cat, cb := seedBatchFixture(t)
	// memcatalog shares one token id space across tables: near-c1 and
	// near-c0 take ids 0 and 1, so the query vectors are at ids 2
	// (q-near-c1) and 3 (q-near-c0).
	results, err := Batch(context.Background(), cat, cb, []int32{2, 3}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	byQuery := make(map[int32][]float32)
	for _, r := range results {
		dists := make([]float32, len(r.Rows))
		for i, e := range r.Rows {
			dists[i] = e.Distance
		}
		byQuery[r.QueryID] = dists
	}
	if byQuery[2][0] != 0 {
		t.Fatalf("query 2 top distance = %v, want 0", byQuery[2][0])
	}
	if byQuery[3][0] != 0 {
		t.Fatalf("query 3 top distance = %v, want 0", byQuery[3][0])
	}
}

func TestBatchDropsUnknownQueryIDs(t *testing.T) {
	cat, cb := seedBatchFixture(t)
	results, err := Batch(context.Background(), cat, cb, []int32{2, 999}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1 (unknown id silently dropped)", len(results))
	}
	if results[0].QueryID != 2 {
		t.Fatalf("got query id %d, want 2", results[0].QueryID)
	}
}
