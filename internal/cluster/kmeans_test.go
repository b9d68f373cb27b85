package cluster

import (
	"context"
	"math/rand"
	"testing"

	"github.com/vecengine/ivfadc/internal/catalog"
	"github.com/vecengine/ivfadc/internal/catalog/memcatalog"
	"github.com/vecengine/ivfadc/internal/codebook"
)

func seedKMeansFixture(t *testing.T) (*memcatalog.Catalog, *codebook.Codebook) {
	t.Helper()
	cat := memcatalog.New(func(string) ([]float32, []float32, bool) { return nil, nil, false })
	cat.SeedCodebook(catalog.Codebook, 2, 2, []catalog.CodebookEntry{
		{Pos: 0, Code: 0, Vector: []float32{0, 0}},
		{Pos: 0, Code: 1, Vector: []float32{1, 0}},
		{Pos: 1, Code: 0, Vector: []float32{0, 0}},
		{Pos: 1, Code: 1, Vector: []float32{0, 1}},
	}, nil)
	// ids 0..3, two clearly separated clusters by original vector.
	cat.SeedQuantization(catalog.PqQuantization, "t1", []int32{0, 0}, 0)
	cat.SeedQuantization(catalog.PqQuantization, "t2", []int32{1, 0}, 0)
	cat.SeedQuantization(catalog.PqQuantization, "t3", []int32{0, 0}, 0)
	cat.SeedQuantization(catalog.PqQuantization, "t4", []int32{1, 0}, 0)

	cat.SeedVector(catalog.Original, "t1", []float32{0, 0, 0, 0})
	cat.SeedVector(catalog.Original, "t2", []float32{10, 0, 0, 0})
	cat.SeedVector(catalog.Original, "t3", []float32{0, 0, 0, 1})
	cat.SeedVector(catalog.Original, "t4", []float32{10, 0, 0, 1})

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

func TestKMeansPartitionsInput(t *testing.T) {
	cat, cb := seedKMeansFixture(t)
	ids := []int32{0, 1, 2, 3}
	results, err := KMeans(context.Background(), cat, cb, ids, 2, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatal(err)
	}
	seen := make(map[int32]bool)
	total := 0
	for _, r := range results {
		for _, id := range r.IDs {
			if seen[id] {
				t.Fatalf("id %d assigned to more than one cluster", id)
			}
			seen[id] = true
			total++
		}
	}
	if total != len(ids) {
		t.Fatalf("output covers %d ids, want %d (partition property)", total, len(ids))
	}
}

func TestKMeansRejectsFewerIDsThanK(t *testing.T) {
	cat, cb := seedKMeansFixture(t)
	_, err := KMeans(context.Background(), cat, cb, []int32{0, 1}, 3, rand.New(rand.NewSource(1)))
	if err == nil {
		t.Fatal("expected InvalidArgument error for |ids| < k")
	}
}

func TestKMeansWithProgressInvokesCallbackTenTimes(t *testing.T) {
	cat, cb := seedKMeansFixture(t)
	calls := 0
	_, err := KMeansWithProgress(context.Background(), cat, cb, []int32{0, 1, 2, 3}, 2, rand.New(rand.NewSource(1)), func(iteration, total int) {
		calls++
		if total != lloydIterations {
			t.Fatalf("total = %d, want %d", total, lloydIterations)
		}
	})
	if err != nil {
		t.Fatal(err)
	}
	if calls != lloydIterations {
		t.Fatalf("callback invoked %d times, want %d", calls, lloydIterations)
	}
}
