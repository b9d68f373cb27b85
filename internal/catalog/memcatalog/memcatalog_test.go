package memcatalog

import (
	"context"
	"testing"

	"github.com/vecengine/ivfadc/internal/catalog"
)

func TestResolveTableReturnsDefaultNames(t *testing.T) {
	cat := New(func(string) ([]float32, []float32, bool) { return nil, nil, false })
	name, err := cat.ResolveTable(context.Background(), catalog.PqQuantization)
	if err != nil {
		t.Fatal(err)
	}
	if name != "pq_quantization" {
		t.Fatalf("got %q, want %q", name, "pq_quantization")
	}
}

func TestTokenizeUnderscoreTokenAndUnknownTerm(t *testing.T) {
	cat := New(func(term string) ([]float32, []float32, bool) {
		if term == "hello world" {
			return []float32{1, 0}, []float32{2, 0}, true
		}
		return nil, nil, false
	})
	res, err := cat.Tokenize(context.Background(), "hello world")
	if err != nil {
		t.Fatal(err)
	}
	if res.Token != "hello_world" {
		t.Fatalf("token = %q, want %q", res.Token, "hello_world")
	}
	if _, err := cat.Tokenize(context.Background(), "unknown"); err == nil {
		t.Fatal("expected error for unrecognized term")
	}
}

func TestInsertQuantizationReusesIDForRepeatedToken(t *testing.T) {
	cat := New(func(string) ([]float32, []float32, bool) { return nil, nil, false })
	name, _ := cat.ResolveTable(context.Background(), catalog.PqQuantization)
	if err := cat.InsertQuantization(context.Background(), name, []catalog.InsertQuantizationRow{
		{Token: "a", Code: []int32{0, 1}},
	}); err != nil {
		t.Fatal(err)
	}
	vecName, _ := cat.ResolveTable(context.Background(), catalog.Normalized)
	if err := cat.InsertVectors(context.Background(), vecName, []catalog.InsertVectorRow{
		{Token: "a", Vector: []float32{1, 2}},
	}); err != nil {
		t.Fatal(err)
	}
	quantRows, err := cat.LoadQuantizationByIDs(context.Background(), name, []int32{0})
	if err != nil {
		t.Fatal(err)
	}
	vecRows, err := cat.LoadVectorsByID(context.Background(), vecName, []int32{0})
	if err != nil {
		t.Fatal(err)
	}
	if len(quantRows) != 1 || len(vecRows) != 1 {
		t.Fatalf("token %q across two tables should share id 0: quant=%+v vec=%+v", "a", quantRows, vecRows)
	}
}

func TestScanQuantizationIsDeterministicallyOrdered(t *testing.T) {
	cat := New(func(string) ([]float32, []float32, bool) { return nil, nil, false })
	name, _ := cat.ResolveTable(context.Background(), catalog.PqQuantization)
	cat.SeedQuantization(catalog.PqQuantization, "c", []int32{0}, 0)
	cat.SeedQuantization(catalog.PqQuantization, "a", []int32{0}, 0)
	cat.SeedQuantization(catalog.PqQuantization, "b", []int32{0}, 0)

	for run := 0; run < 3; run++ {
		scanner, err := cat.ScanQuantization(context.Background(), name)
		if err != nil {
			t.Fatal(err)
		}
		var ids []int32
		for {
			row, ok, err := scanner.Next()
			if err != nil {
				t.Fatal(err)
			}
			if !ok {
				break
			}
			ids = append(ids, row.ID)
		}
		scanner.Close()
		for i := 1; i < len(ids); i++ {
			if ids[i] < ids[i-1] {
				t.Fatalf("run %d: scan order not ascending: %v", run, ids)
			}
		}
	}
}
