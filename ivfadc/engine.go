package ivfadc

import (
	"context"
	"math/rand"
	"time"

	"github.com/rs/zerolog"

	"github.com/vecengine/ivfadc/internal/catalog"
	"github.com/vecengine/ivfadc/internal/cluster"
	"github.com/vecengine/ivfadc/internal/codebook"
	"github.com/vecengine/ivfadc/internal/insert"
	"github.com/vecengine/ivfadc/internal/ivfadcerr"
	"github.com/vecengine/ivfadc/internal/obs"
	"github.com/vecengine/ivfadc/internal/search"
	"github.com/vecengine/ivfadc/internal/topk"
)

// Engine is the top-level handle applications hold: a catalog adapter
// plus the observability wiring needed to run the engine's eight
// entry points against it. It owns no storage of its own — every
// vector, codebook, and quantization row lives behind the catalog.
type Engine struct {
	adapter catalog.Adapter
	logger  zerolog.Logger
	metrics *obs.Metrics
}

// New constructs an Engine over adapter. Catalog and codebooks are
// read fresh on every call — the engine itself assumes no cache;
// metrics/logging are opt-in via Option.
func New(adapter catalog.Adapter, opts ...Option) (*Engine, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}
	if cfg.rateLimitSet {
		adapter = catalog.NewRateLimitedAdapter(adapter, cfg.rateLimit, cfg.rateBurst)
	}
	return &Engine{adapter: adapter, logger: cfg.logger, metrics: cfg.metrics}, nil
}

func (e *Engine) observe(entryPoint string, start time.Time, err error) {
	if e.metrics == nil {
		return
	}
	code := ""
	if c, ok := ivfadcerr.CodeOf(err); ok {
		code = c.String()
	} else if err != nil {
		code = "unknown"
	}
	e.metrics.ObserveQuery(entryPoint, time.Since(start).Seconds(), code)
}

func (e *Engine) loadPQCodebook(ctx context.Context) (*codebook.Codebook, error) {
	name, err := e.adapter.ResolveTable(ctx, catalog.Codebook)
	if err != nil {
		return nil, ivfadcerr.Catalog("engine", "ResolveTable(Codebook)", err)
	}
	return codebook.Load(ctx, e.adapter, name)
}

func (e *Engine) loadResidualCodebook(ctx context.Context) (*codebook.Codebook, error) {
	name, err := e.adapter.ResolveTable(ctx, catalog.ResidualCodebook)
	if err != nil {
		return nil, ivfadcerr.Catalog("engine", "ResolveTable(ResidualCodebook)", err)
	}
	return codebook.Load(ctx, e.adapter, name)
}

// PQSearch runs pq_search(q, k).
func (e *Engine) PQSearch(ctx context.Context, q []float32, k int) ([]topk.Entry, error) {
	start := time.Now()
	e.logger.Debug().Int("k", k).Msg("pq_search: start")
	cb, err := e.loadPQCodebook(ctx)
	if err != nil {
		e.observe("pq_search", start, err)
		return nil, err
	}
	entries, err := search.PQ(ctx, e.adapter, cb, q, k)
	e.observe("pq_search", start, err)
	return entries, err
}

// PQSearchIn runs pq_search_in(q, k, ids).
func (e *Engine) PQSearchIn(ctx context.Context, q []float32, k int, ids []int32) ([]topk.Entry, error) {
	start := time.Now()
	cb, err := e.loadPQCodebook(ctx)
	if err != nil {
		e.observe("pq_search_in", start, err)
		return nil, err
	}
	entries, err := search.PQIn(ctx, e.adapter, cb, q, k, ids)
	e.observe("pq_search_in", start, err)
	return entries, err
}

// PQSearchInCplx runs pq_search_in_cplx(q, k, terms).
// Each termGroups[i] is one multi-token group, already split into tokens.
func (e *Engine) PQSearchInCplx(ctx context.Context, q []float32, k int, termGroups [][]string) ([]search.TermEntry, error) {
	start := time.Now()
	cb, err := e.loadPQCodebook(ctx)
	if err != nil {
		e.observe("pq_search_in_cplx", start, err)
		return nil, err
	}
	entries, err := search.PQTerms(ctx, e.adapter, cb, q, k, termGroups)
	e.observe("pq_search_in_cplx", start, err)
	return entries, err
}

// IVFADCSearch runs ivfadc_search(q, k).
func (e *Engine) IVFADCSearch(ctx context.Context, q []float32, k int) ([]topk.Entry, error) {
	start := time.Now()
	cb, err := e.loadResidualCodebook(ctx)
	if err != nil {
		e.observe("ivfadc_search", start, err)
		return nil, err
	}
	entries, err := search.IVFADC(ctx, e.adapter, cb, q, k)
	e.observe("ivfadc_search", start, err)
	return entries, err
}

// IVFADCBatchSearch runs ivfadc_batch_search(ids, k).
func (e *Engine) IVFADCBatchSearch(ctx context.Context, ids []int32, k int) ([]search.PerQueryResult, error) {
	start := time.Now()
	cb, err := e.loadResidualCodebook(ctx)
	if err != nil {
		e.observe("ivfadc_batch_search", start, err)
		return nil, err
	}
	results, err := search.Batch(ctx, e.adapter, cb, ids, k)
	e.observe("ivfadc_batch_search", start, err)
	return results, err
}

// ClusterPQ runs cluster_pq(ids, k). rng seeds the
// uniform-without-replacement initial centroid sample; pass
// rand.New(rand.NewSource(seed)) for reproducible tests.
func (e *Engine) ClusterPQ(ctx context.Context, ids []int32, k int, rng *rand.Rand) ([]cluster.Result, error) {
	return e.ClusterPQWithProgress(ctx, ids, k, rng, nil)
}

// ClusterPQWithProgress is ClusterPQ with a per-Lloyd-iteration
// callback, used by cmd/ivfadc-cli to drive a progress bar across
// the fixed 10 iterations.
func (e *Engine) ClusterPQWithProgress(ctx context.Context, ids []int32, k int, rng *rand.Rand, onIteration cluster.ProgressFunc) ([]cluster.Result, error) {
	start := time.Now()
	cb, err := e.loadPQCodebook(ctx)
	if err != nil {
		e.observe("cluster_pq", start, err)
		return nil, err
	}
	results, err := cluster.KMeansWithProgress(ctx, e.adapter, cb, ids, k, rng, onIteration)
	if e.metrics != nil && err == nil {
		e.metrics.ClusterIterations.Add(10)
	}
	e.observe("cluster_pq", start, err)
	return results, err
}

// GroupingPQ runs grouping_pq(ids, group_ids).
func (e *Engine) GroupingPQ(ctx context.Context, ids []int32, groupIDs []int32) ([]cluster.Assignment, error) {
	start := time.Now()
	cb, err := e.loadPQCodebook(ctx)
	if err != nil {
		e.observe("grouping_pq", start, err)
		return nil, err
	}
	assignments, err := cluster.Grouping(ctx, e.adapter, cb, ids, groupIDs)
	e.observe("grouping_pq", start, err)
	return assignments, err
}

// InsertBatch runs insert_batch(terms), returning 0 on success to
// match a language-neutral signature (the error, if any, carries the
// ivfadcerr.Code of the failure).
func (e *Engine) InsertBatch(ctx context.Context, terms []string) (int, error) {
	start := time.Now()
	pqCB, err := e.loadPQCodebookWithCounts(ctx)
	if err != nil {
		e.observe("insert_batch", start, err)
		return 1, err
	}
	residualName, err := e.adapter.ResolveTable(ctx, catalog.ResidualCodebook)
	if err != nil {
		wrapped := ivfadcerr.Catalog("engine", "ResolveTable(ResidualCodebook)", err)
		e.observe("insert_batch", start, wrapped)
		return 1, wrapped
	}
	residualCB, err := codebook.LoadWithCounts(ctx, e.adapter, residualName)
	if err != nil {
		e.observe("insert_batch", start, err)
		return 1, err
	}

	err = insert.Batch(ctx, e.adapter, pqCB, residualCB, terms)
	if e.metrics != nil {
		if err != nil {
			e.metrics.InsertBatchErrors.Inc()
		} else {
			e.metrics.InsertedTerms.Add(float64(len(terms)))
		}
	}
	e.observe("insert_batch", start, err)
	if err != nil {
		return 1, err
	}
	return 0, nil
}

func (e *Engine) loadPQCodebookWithCounts(ctx context.Context) (*codebook.Codebook, error) {
	name, err := e.adapter.ResolveTable(ctx, catalog.Codebook)
	if err != nil {
		return nil, ivfadcerr.Catalog("engine", "ResolveTable(Codebook)", err)
	}
	return codebook.LoadWithCounts(ctx, e.adapter, name)
}
