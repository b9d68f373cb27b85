package catalog

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimitedAdapter wraps an Adapter with a token-bucket throttle
// (golang.org/x/time/rate.Limiter) on every catalog call, applied as a
// decorator around the Adapter interface rather than HTTP middleware —
// there is no HTTP surface on this side of the catalog boundary. This
// exists to protect a remote catalog from the burst
// ivfadc_batch_search's coalesced wave fetches and insert_batch's
// multi-table commit can produce.
type RateLimitedAdapter struct {
	Adapter
	limiter *rate.Limiter
}

// NewRateLimitedAdapter wraps adapter with a limiter allowing
// ratePerSecond calls per second, up to burst at once.
func NewRateLimitedAdapter(adapter Adapter, ratePerSecond float64, burst int) *RateLimitedAdapter {
	return &RateLimitedAdapter{
		Adapter: adapter,
		limiter: rate.NewLimiter(rate.Limit(ratePerSecond), burst),
	}
}

func (r *RateLimitedAdapter) ResolveTable(ctx context.Context, role TableRole) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return r.Adapter.ResolveTable(ctx, role)
}

func (r *RateLimitedAdapter) LoadCodebook(ctx context.Context, name string) (int, int, []CodebookEntry, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return 0, 0, nil, err
	}
	return r.Adapter.LoadCodebook(ctx, name)
}

func (r *RateLimitedAdapter) LoadCodebookWithCounts(ctx context.Context, name string) (int, int, []CodebookEntry, []int, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return 0, 0, nil, nil, err
	}
	return r.Adapter.LoadCodebookWithCounts(ctx, name)
}

func (r *RateLimitedAdapter) LoadCoarseQuantizer(ctx context.Context) ([]VectorRow, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return r.Adapter.LoadCoarseQuantizer(ctx)
}

func (r *RateLimitedAdapter) LoadVectorsByID(ctx context.Context, name string, ids []int32) ([]VectorRow, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return r.Adapter.LoadVectorsByID(ctx, name, ids)
}

func (r *RateLimitedAdapter) LoadQuantizationByIDs(ctx context.Context, name string, ids []int32) ([]QuantizationRow, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return r.Adapter.LoadQuantizationByIDs(ctx, name, ids)
}

func (r *RateLimitedAdapter) LoadQuantizationByCoarseIDs(ctx context.Context, name string, coarseIDs []int32) ([]ResidualQuantizationRow, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return r.Adapter.LoadQuantizationByCoarseIDs(ctx, name, coarseIDs)
}

func (r *RateLimitedAdapter) LoadQuantizationByTokens(ctx context.Context, name string, tokens []string) ([]TokenQuantizationRow, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return r.Adapter.LoadQuantizationByTokens(ctx, name, tokens)
}

func (r *RateLimitedAdapter) ScanQuantization(ctx context.Context, name string) (QuantizationScanner, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return r.Adapter.ScanQuantization(ctx, name)
}

func (r *RateLimitedAdapter) InsertQuantization(ctx context.Context, name string, rows []InsertQuantizationRow) error {
	if err := r.limiter.Wait(ctx); err != nil {
		return err
	}
	return r.Adapter.InsertQuantization(ctx, name, rows)
}

func (r *RateLimitedAdapter) InsertVectors(ctx context.Context, name string, rows []InsertVectorRow) error {
	if err := r.limiter.Wait(ctx); err != nil {
		return err
	}
	return r.Adapter.InsertVectors(ctx, name, rows)
}

func (r *RateLimitedAdapter) UpsertCodebook(ctx context.Context, name string, entries []CodebookEntry, counts []int) error {
	if err := r.limiter.Wait(ctx); err != nil {
		return err
	}
	return r.Adapter.UpsertCodebook(ctx, name, entries, counts)
}

func (r *RateLimitedAdapter) Tokenize(ctx context.Context, term string) (TokenizeResult, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return TokenizeResult{}, err
	}
	return r.Adapter.Tokenize(ctx, term)
}

func (r *RateLimitedAdapter) Begin(ctx context.Context) (Tx, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return r.Adapter.Begin(ctx)
}
