package search

import (
	"context"
	"testing"

	"github.com/vecengine/ivfadc/internal/catalog"
	"github.com/vecengine/ivfadc/internal/catalog/memcatalog"
	"github.com/vecengine/ivfadc/internal/codebook"
)

func seedTermFixture(t *testing.T) (*memcatalog.Catalog, *codebook.Codebook) {
	t.Helper()
	cat := memcatalog.New(func(string) ([]float32, []float32, bool) { return nil, nil, false })
	cat.SeedCodebook(catalog.Codebook, 2, 2, []catalog.CodebookEntry{
		{Pos: 0, Code: 0, Vector: []float32{0, 0}},
		{Pos: 0, Code: 1, Vector: []float32{1, 0}},
		{Pos: 1, Code: 0, Vector: []float32{0, 0}},
		{Pos: 1, Code: 1, Vector: []float32{0, 1}},
	}, nil)
	cat.SeedQuantization(catalog.PqQuantization, "big", []int32{1, 1}, 0) // distance 0 from q
	cat.SeedQuantization(catalog.PqQuantization, "small", []int32{1, 0}, 0) // distance 1 from q

	name, err := cat.ResolveTable(context.Background(), catalog.Codebook)
	if err != nil {
		t.Fatal(err)
	}
	cb, err := codebook.Load(context.Background(), cat, name)
	if err != nil {
		t.Fatal(err)
	}
	return cat, cb
}

func TestPQTermsMinOverGroup(t *testing.T) {
	cat, cb := seedTermFixture(t)
	q := []float32{1, 0, 0, 1}
	groups := [][]string{{"small", "big"}}
	entries, err := PQTerms(context.Background(), cat, cb, q, 1, groups)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if entries[0].Distance != 0 {
		t.Fatalf("group distance = %v, want 0 (min over small=1, big=0)", entries[0].Distance)
	}
	if entries[0].Term != "small big" {
		t.Fatalf("term = %q, want joined group string", entries[0].Term)
	}
}

func TestPQTermsDropsUnknownTokenGroup(t *testing.T) {
	cat, cb := seedTermFixture(t)
	q := []float32{1, 0, 0, 1}
	groups := [][]string{{"nonexistent"}, {"big"}}
	entries, err := PQTerms(context.Background(), cat, cb, q, 5, groups)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1 (unknown-only group dropped)", len(entries))
	}
	if entries[0].Term != "big" {
		t.Fatalf("term = %q, want %q", entries[0].Term, "big")
	}
}
