package cluster

import (
	"context"
	"sort"

	"github.com/vecengine/ivfadc/internal/catalog"
	"github.com/vecengine/ivfadc/internal/codebook"
	"github.com/vecengine/ivfadc/internal/ivfadcerr"
	"github.com/vecengine/ivfadc/internal/lut"
)

// Assignment is one grouping_pq output row.
type Assignment struct {
	ID            int32
	AssignedGroup int32
}

// Grouping runs grouping_pq(ids, group_ids): fetches each group id's
// full vector, builds one ADC LUT per group, and assigns every input
// id to the group whose LUT sum is minimum. A missing group id is
// fatal, not silently dropped.
//
// Ties are broken by the lowest group id: group ids are sorted
// ascending before scoring, and the first minimum found wins.
func Grouping(ctx context.Context, adapter catalog.Adapter, pq *codebook.Codebook, ids []int32, groupIDs []int32) ([]Assignment, error) {
	sortedGroups := append([]int32(nil), groupIDs...)
	sort.Slice(sortedGroups, func(i, j int) bool { return sortedGroups[i] < sortedGroups[j] })

	normalizedName, err := adapter.ResolveTable(ctx, catalog.Normalized)
	if err != nil {
		return nil, ivfadcerr.Catalog("grouping_pq", "ResolveTable", err)
	}
	groupRows, err := adapter.LoadVectorsByID(ctx, normalizedName, sortedGroups)
	if err != nil {
		return nil, ivfadcerr.Catalog("grouping_pq", "LoadVectorsByID(groups)", err)
	}
	if len(groupRows) != len(sortedGroups) {
		return nil, ivfadcerr.New(ivfadcerr.MissingData, "grouping_pq", "LoadVectorsByID(groups)").
			WithCause(errGroupIDsMissing)
	}
	vecByGroup := make(map[int32][]float32, len(groupRows))
	for _, row := range groupRows {
		vecByGroup[row.ID] = row.Vector
	}

	tables := make([]*lut.Table, len(sortedGroups))
	for i, gid := range sortedGroups {
		tables[i] = lut.Build(pq, pq.M, pq.K, vecByGroup[gid])
	}

	pqName, err := adapter.ResolveTable(ctx, catalog.PqQuantization)
	if err != nil {
		return nil, ivfadcerr.Catalog("grouping_pq", "ResolveTable", err)
	}
	codeRows, err := adapter.LoadQuantizationByIDs(ctx, pqName, ids)
	if err != nil {
		return nil, ivfadcerr.Catalog("grouping_pq", "LoadQuantizationByIDs", err)
	}

	out := make([]Assignment, 0, len(codeRows))
	for _, row := range codeRows {
		best := 0
		bestDist := tables[0].Sum(row.Code)
		for g := 1; g < len(tables); g++ {
			dist := tables[g].Sum(row.Code)
			if dist < bestDist {
				best = g
				bestDist = dist
			}
		}
		out = append(out, Assignment{ID: row.ID, AssignedGroup: sortedGroups[best]})
	}
	return out, nil
}

var errGroupIDsMissing = groupIDsMissingErr{}

type groupIDsMissingErr struct{}

func (groupIDsMissingErr) Error() string { return "group ids do not exist" }
