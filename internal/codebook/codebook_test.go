package codebook

import (
	"testing"

	"github.com/vecengine/ivfadc/internal/catalog"
)

// scenario1Entries builds a small D=4,M=2,K=2 reference codebook:
// centroid(0,0)=[0,0], centroid(0,1)=[1,0], centroid(1,0)=[0,0], centroid(1,1)=[0,1].
func scenario1Entries() []catalog.CodebookEntry {
	return []catalog.CodebookEntry{
		{Pos: 0, Code: 0, Vector: []float32{0, 0}},
		{Pos: 0, Code: 1, Vector: []float32{1, 0}},
		{Pos: 1, Code: 0, Vector: []float32{0, 0}},
		{Pos: 1, Code: 1, Vector: []float32{0, 1}},
	}
}

func TestFromEntries(t *testing.T) {
	cb, err := fromEntries("codebook", 2, 2, scenario1Entries(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if cb.SubDim() != 2 {
		t.Fatalf("SubDim() = %d, want 2", cb.SubDim())
	}
	if got := cb.Centroid(1, 1); got[0] != 0 || got[1] != 1 {
		t.Fatalf("Centroid(1,1) = %v, want [0 1]", got)
	}
}

func TestEncodeVector(t *testing.T) {
	cb, err := fromEntries("codebook", 2, 2, scenario1Entries(), nil)
	if err != nil {
		t.Fatal(err)
	}
	// id 4's vector in scenario 1 is exactly centroid(0,1)++centroid(1,1).
	codes := cb.EncodeVector([]float32{1, 0, 0, 1})
	if codes[0] != 1 || codes[1] != 1 {
		t.Fatalf("codes = %v, want [1 1]", codes)
	}
}

func TestUpdateMean(t *testing.T) {
	cb, err := fromEntries("codebook", 2, 2, scenario1Entries(), make([]int, 4))
	if err != nil {
		t.Fatal(err)
	}
	if err := cb.UpdateMean([]float32{2, 0, 0, 3}, []int32{1, 1}); err != nil {
		t.Fatal(err)
	}
	// centroid(0,1) was [1,0] with count 0 -> ([1,0]*0 + [2,0]) / 1 = [2,0]
	got := cb.Centroid(0, 1)
	if got[0] != 2 || got[1] != 0 {
		t.Fatalf("Centroid(0,1) = %v, want [2 0]", got)
	}
	if cb.Count(0, 1) != 1 {
		t.Fatalf("Count(0,1) = %d, want 1", cb.Count(0, 1))
	}
}

func TestValidateDivisibility(t *testing.T) {
	cb, _ := fromEntries("codebook", 2, 2, scenario1Entries(), nil)
	if err := cb.Validate(4); err != nil {
		t.Fatal(err)
	}
	if err := cb.Validate(5); err == nil {
		t.Fatal("expected InternalInvariant for D=5, M=2")
	}
}

func TestLoadRejectsShortEntries(t *testing.T) {
	entries := scenario1Entries()[:3]
	if _, err := fromEntries("codebook", 2, 2, entries, nil); err == nil {
		t.Fatal("expected error for M*K entry count mismatch")
	}
}
