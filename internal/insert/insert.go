// Package insert implements the incremental insertion pipeline for
// insert_batch: tokenize, PQ- and residual-encode, update both
// codebooks' online means, and persist everything transactionally.
package insert

import (
	"context"

	"github.com/vecengine/ivfadc/internal/catalog"
	"github.com/vecengine/ivfadc/internal/codebook"
	"github.com/vecengine/ivfadc/internal/ivfadcerr"
	"github.com/vecengine/ivfadc/internal/vecmath"
)

// Batch runs insert_batch(terms). On any failure the transaction is
// rolled back and no codebook, quantization, or vector state becomes
// observable.
func Batch(ctx context.Context, adapter catalog.Adapter, pqCB, residualCB *codebook.Codebook, terms []string) error {
	tx, err := adapter.Begin(ctx)
	if err != nil {
		return ivfadcerr.Catalog("insert_batch", "Begin", err)
	}
	if err := run(ctx, adapter, pqCB, residualCB, terms); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return ivfadcerr.Catalog("insert_batch", "Commit", err)
	}
	return nil
}

func run(ctx context.Context, adapter catalog.Adapter, pqCB, residualCB *codebook.Codebook, terms []string) error {
	type tokenized struct {
		normalized, unnormalized []float32
		token                    string
	}
	tokens := make([]tokenized, 0, len(terms))
	for _, term := range terms {
		tr, err := adapter.Tokenize(ctx, term)
		if err != nil {
			return ivfadcerr.Catalog("insert_batch", "Tokenize", err)
		}
		tokens = append(tokens, tokenized{normalized: tr.Normalized, unnormalized: tr.Unnormalized, token: tr.Token})
	}

	cells, err := adapter.LoadCoarseQuantizer(ctx)
	if err != nil {
		return ivfadcerr.Catalog("insert_batch", "LoadCoarseQuantizer", err)
	}
	if len(cells) == 0 {
		return ivfadcerr.Invariant("insert_batch", "LoadCoarseQuantizer", "coarse quantizer is empty")
	}

	pqRows := make([]catalog.InsertQuantizationRow, 0, len(tokens))
	residualRows := make([]catalog.InsertQuantizationRow, 0, len(tokens))
	normRows := make([]catalog.InsertVectorRow, 0, len(tokens))
	unnormRows := make([]catalog.InsertVectorRow, 0, len(tokens))

	for _, tok := range tokens {
		v := tok.normalized
		coarseID, coarseVec := nearestCoarse(v, cells)
		residual := vecmath.Residual(nil, v, coarseVec)

		pqCodes := pqCB.EncodeVector(v)
		residualCodes := residualCB.EncodeVector(residual)

		if err := pqCB.UpdateMean(v, pqCodes); err != nil {
			return ivfadcerr.Invariant("insert_batch", "UpdateMean(pq)", "%v", err)
		}
		if err := residualCB.UpdateMean(residual, residualCodes); err != nil {
			return ivfadcerr.Invariant("insert_batch", "UpdateMean(residual)", "%v", err)
		}

		pqRows = append(pqRows, catalog.InsertQuantizationRow{Token: tok.token, Code: pqCodes})
		residualRows = append(residualRows, catalog.InsertQuantizationRow{Token: tok.token, Code: residualCodes, CoarseID: coarseID})
		normRows = append(normRows, catalog.InsertVectorRow{Token: tok.token, Vector: tok.normalized})
		unnormRows = append(unnormRows, catalog.InsertVectorRow{Token: tok.token, Vector: tok.unnormalized})
	}

	pqName, err := adapter.ResolveTable(ctx, catalog.PqQuantization)
	if err != nil {
		return ivfadcerr.Catalog("insert_batch", "ResolveTable", err)
	}
	residualName, err := adapter.ResolveTable(ctx, catalog.ResidualQuantization)
	if err != nil {
		return ivfadcerr.Catalog("insert_batch", "ResolveTable", err)
	}
	normalizedName, err := adapter.ResolveTable(ctx, catalog.Normalized)
	if err != nil {
		return ivfadcerr.Catalog("insert_batch", "ResolveTable", err)
	}
	originalName, err := adapter.ResolveTable(ctx, catalog.Original)
	if err != nil {
		return ivfadcerr.Catalog("insert_batch", "ResolveTable", err)
	}
	codebookName, err := adapter.ResolveTable(ctx, catalog.Codebook)
	if err != nil {
		return ivfadcerr.Catalog("insert_batch", "ResolveTable", err)
	}
	residualCodebookName, err := adapter.ResolveTable(ctx, catalog.ResidualCodebook)
	if err != nil {
		return ivfadcerr.Catalog("insert_batch", "ResolveTable", err)
	}

	if err := adapter.InsertQuantization(ctx, pqName, pqRows); err != nil {
		return ivfadcerr.Catalog("insert_batch", "InsertQuantization(pq)", err)
	}
	if err := adapter.InsertQuantization(ctx, residualName, residualRows); err != nil {
		return ivfadcerr.Catalog("insert_batch", "InsertQuantization(residual)", err)
	}
	if err := adapter.InsertVectors(ctx, normalizedName, normRows); err != nil {
		return ivfadcerr.Catalog("insert_batch", "InsertVectors(normalized)", err)
	}
	if err := adapter.InsertVectors(ctx, originalName, unnormRows); err != nil {
		return ivfadcerr.Catalog("insert_batch", "InsertVectors(original)", err)
	}
	pqEntries, pqCounts := pqCB.Entries()
	if err := adapter.UpsertCodebook(ctx, codebookName, pqEntries, pqCounts); err != nil {
		return ivfadcerr.Catalog("insert_batch", "UpsertCodebook(pq)", err)
	}
	residualEntries, residualCounts := residualCB.Entries()
	if err := adapter.UpsertCodebook(ctx, residualCodebookName, residualEntries, residualCounts); err != nil {
		return ivfadcerr.Catalog("insert_batch", "UpsertCodebook(residual)", err)
	}
	return nil
}

func nearestCoarse(v []float32, cells []catalog.VectorRow) (int32, []float32) {
	best := 0
	bestDist := vecmath.SquaredEuclidean(v, cells[0].Vector)
	for i := 1; i < len(cells); i++ {
		d := vecmath.SquaredEuclidean(v, cells[i].Vector)
		if d < bestDist {
			best = i
			bestDist = d
		}
	}
	return cells[best].ID, cells[best].Vector
}
