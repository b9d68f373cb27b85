package search

import (
	"context"
	"testing"

	"github.com/vecengine/ivfadc/internal/catalog"
	"github.com/vecengine/ivfadc/internal/catalog/memcatalog"
	"github.com/vecengine/ivfadc/internal/codebook"
)

// seedScenario1 builds a small D=4,M=2,K=2 codebook and PQ
// quantization table: centroid(0,0)=[0,0], centroid(0,1)=[1,0],
// centroid(1,0)=[0,0], centroid(1,1)=[0,1], rows
// (1,[0,0]),(2,[1,0]),(3,[0,1]),(4,[1,1]).
func seedScenario1(t *testing.T) (*memcatalog.Catalog, *codebook.Codebook) {
	t.Helper()
	cat := memcatalog.New(func(string) ([]float32, []float32, bool) { return nil, nil, false })
	cat.SeedCodebook(catalog.Codebook, 2, 2, []catalog.CodebookEntry{
		{Pos: 0, Code: 0, Vector: []float32{0, 0}},
		{Pos: 0, Code: 1, Vector: []float32{1, 0}},
		{Pos: 1, Code: 0, Vector: []float32{0, 0}},
		{Pos: 1, Code: 1, Vector: []float32{0, 1}},
	}, nil)
	cat.SeedQuantization(catalog.PqQuantization, "t1", []int32{0, 0}, 0)
	cat.SeedQuantization(catalog.PqQuantization, "t2", []int32{1, 0}, 0)
	cat.SeedQuantization(catalog.PqQuantization, "t3", []int32{0, 1}, 0)
	cat.SeedQuantization(catalog.PqQuantization, "t4", []int32{1, 1}, 0)

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

func TestPQScenario1(t *testing.T) {
	cat, cb := seedScenario1(t)
	entries, err := PQ(context.Background(), cat, cb, []float32{1, 0, 0, 1}, 2)
	if err != nil {
		t.Fatal(err)
	}
	// ids are seeded in token order t1..t4, which memcatalog assigns
	// 0..3 -- id4 (token t4) has distance 0, id2 (token t2) ties id3
	// at distance 1 and wins by ascending id.
	if entries[0].ID != 3 || entries[0].Distance != 0 {
		t.Fatalf("entries[0] = %+v, want {3 0} (token t4 -> id 3)", entries[0])
	}
	if entries[1].ID != 1 || entries[1].Distance != 1 {
		t.Fatalf("entries[1] = %+v, want {1 1} (token t2 -> id 1)", entries[1])
	}
}

func TestPQScenario2(t *testing.T) {
	cat, cb := seedScenario1(t)
	entries, err := PQ(context.Background(), cat, cb, []float32{0, 0, 0, 0}, 4)
	if err != nil {
		t.Fatal(err)
	}
	wantDist := []float32{0, 1, 1, 2}
	for i, w := range wantDist {
		if entries[i].Distance != w {
			t.Fatalf("entries[%d].Distance = %v, want %v", i, entries[i].Distance, w)
		}
	}
}

func TestPQInRestrictsToGivenIDs(t *testing.T) {
	cat, cb := seedScenario1(t)
	// t2 -> id1, t4 -> id3 in seed order (0-indexed ids t1=0,t2=1,t3=2,t4=3).
	entries, err := PQIn(context.Background(), cat, cb, []float32{1, 0, 0, 1}, 3, []int32{1, 3})
	if err != nil {
		t.Fatal(err)
	}
	if entries[0].ID != 3 || entries[0].Distance != 0 {
		t.Fatalf("entries[0] = %+v, want {3 0}", entries[0])
	}
	if entries[1].ID != 1 || entries[1].Distance != 1 {
		t.Fatalf("entries[1] = %+v, want {1 1}", entries[1])
	}
	// third slot stays a sentinel: only two ids qualified.
	if entries[2].ID != -1 {
		t.Fatalf("entries[2] = %+v, want sentinel", entries[2])
	}
}

func TestPQEmptyTableYieldsSentinels(t *testing.T) {
	cat := memcatalog.New(func(string) ([]float32, []float32, bool) { return nil, nil, false })
	cat.SeedCodebook(catalog.Codebook, 2, 2, []catalog.CodebookEntry{
		{Pos: 0, Code: 0, Vector: []float32{0, 0}},
		{Pos: 0, Code: 1, Vector: []float32{1, 0}},
		{Pos: 1, Code: 0, Vector: []float32{0, 0}},
		{Pos: 1, Code: 1, Vector: []float32{0, 1}},
	}, nil)
	name, _ := cat.ResolveTable(context.Background(), catalog.Codebook)
	cb, err := codebook.Load(context.Background(), cat, name)
	if err != nil {
		t.Fatal(err)
	}
	entries, err := PQ(context.Background(), cat, cb, []float32{1, 0, 0, 1}, 2)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if e.ID != -1 {
			t.Fatalf("expected sentinel, got %+v", e)
		}
	}
}
