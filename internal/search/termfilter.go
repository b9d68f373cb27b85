package search

import (
	"context"
	"math"

	"github.com/vecengine/ivfadc/internal/catalog"
	"github.com/vecengine/ivfadc/internal/codebook"
	"github.com/vecengine/ivfadc/internal/ivfadcerr"
	"github.com/vecengine/ivfadc/internal/lut"
)

// TermEntry is one result row of the term-filtered search: the
// joined multi-token string and its score.
type TermEntry struct {
	Term     string
	Distance float32
}

// termRegister mirrors topk.Register's insertion/tie-break rule but
// keys entries by a term string instead of an int32 id. It is kept as
// a near-duplicate rather than forced through a shared generic with
// topk.Register, since the id and term cases never need to interoperate.
type termRegister struct {
	entries []TermEntry
	worst   float32
}

func newTermRegister(k int) *termRegister {
	entries := make([]TermEntry, k)
	for i := range entries {
		entries[i] = TermEntry{Distance: float32(math.Inf(1))}
	}
	return &termRegister{entries: entries, worst: float32(math.Inf(1))}
}

func (r *termRegister) offer(term string, distance float32) {
	k := len(r.entries)
	if k == 0 || distance >= r.worst {
		return
	}
	i := k - 1
	for i >= 0 && r.entries[i].Distance > distance {
		i--
	}
	i++
	for j := k - 2; j >= i; j-- {
		r.entries[j+1] = r.entries[j]
	}
	r.entries[i] = TermEntry{Term: term, Distance: distance}
	r.worst = r.entries[k-1].Distance
}

// PQTerms runs pq_search_in_cplx(q, k, terms): each termGroups[i] is
// one token group, already split into tokens; a group's distance is
// the minimum distance over its known tokens. Unknown tokens are
// silently skipped; a group with no known tokens is dropped entirely.
// Register slots that no group filled are left out of the result, so
// it holds fewer than k entries when fewer than k groups qualify.
func PQTerms(ctx context.Context, adapter catalog.Adapter, cb *codebook.Codebook, q []float32, k int, termGroups [][]string) ([]TermEntry, error) {
	name, err := adapter.ResolveTable(ctx, catalog.PqQuantization)
	if err != nil {
		return nil, ivfadcerr.Catalog("pq_search_in_cplx", "ResolveTable", err)
	}

	tokenSet := make(map[string]struct{})
	for _, group := range termGroups {
		for _, tok := range group {
			tokenSet[tok] = struct{}{}
		}
	}
	tokens := make([]string, 0, len(tokenSet))
	for tok := range tokenSet {
		tokens = append(tokens, tok)
	}

	rows, err := adapter.LoadQuantizationByTokens(ctx, name, tokens)
	if err != nil {
		return nil, ivfadcerr.Catalog("pq_search_in_cplx", "LoadQuantizationByTokens", err)
	}

	table := lut.Build(cb, cb.M, cb.K, q)
	distByToken := make(map[string]float32, len(rows))
	for _, row := range rows {
		distByToken[row.Token] = table.Sum(row.Code)
	}

	reg := newTermRegister(k)
	for _, group := range termGroups {
		best := float32(0)
		found := false
		for _, tok := range group {
			d, ok := distByToken[tok]
			if !ok {
				continue // unknown token, silently skipped
			}
			if !found || d < best {
				best = d
				found = true
			}
		}
		if !found {
			continue // group has no known tokens, dropped
		}
		reg.offer(joinTerms(group), best)
	}
	out := reg.entries
	for len(out) > 0 && math.IsInf(float64(out[len(out)-1].Distance), 1) {
		out = out[:len(out)-1]
	}
	return out, nil
}

func joinTerms(group []string) string {
	out := group[0]
	for _, tok := range group[1:] {
		out += " " + tok
	}
	return out
}
