// Package memcatalog is an in-memory reference implementation of
// catalog.Adapter, used as the test fixture standing in for an
// external collaborator catalog. Storage is a handful of plain Go
// maps behind a single sync.RWMutex, covering the full table set the
// Adapter interface describes.
package memcatalog

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/vecengine/ivfadc/internal/catalog"
)

// Tokenizer maps a term to its normalized/unnormalized vectors. Real
// deployments plug in an embedding lookup here; tests plug in a fixed
// map.
type Tokenizer func(term string) (normalized, unnormalized []float32, ok bool)

// Catalog is a single-process, mutex-guarded implementation of
// catalog.Adapter backed by plain Go maps and slices.
type Catalog struct {
	mu sync.RWMutex

	tableNames map[catalog.TableRole]string

	vectors       map[string]map[int32][]float32    // table name -> id -> vector
	quantizations map[string]map[int32][]int32       // table name -> id -> code
	coarseIDs     map[string]map[int32]int32         // residual table name -> id -> coarse_id
	codebooks     map[string][]catalog.CodebookEntry // table name -> entries
	codebookMK    map[string][2]int                  // table name -> (m,k)
	codebookCnts  map[string][]int                   // table name -> counts
	coarse        []catalog.VectorRow

	byToken map[string]int32 // token -> id, shared id space across all tables
	nextID  int32

	tokenizer Tokenizer
}

// New returns an empty Catalog using the default logical table names
// and the given tokenizer.
func New(tokenizer Tokenizer) *Catalog {
	return &Catalog{
		tableNames: map[catalog.TableRole]string{
			catalog.Original:             "original_vectors",
			catalog.Normalized:           "normalized_vectors",
			catalog.PqQuantization:       "pq_quantization",
			catalog.Codebook:             "codebook",
			catalog.ResidualQuantization: "residual_quantization",
			catalog.CoarseQuantization:   "coarse_quantization",
			catalog.ResidualCodebook:     "residual_codebook",
		},
		vectors:       make(map[string]map[int32][]float32),
		quantizations: make(map[string]map[int32][]int32),
		coarseIDs:     make(map[string]map[int32]int32),
		codebooks:     make(map[string][]catalog.CodebookEntry),
		codebookMK:    make(map[string][2]int),
		codebookCnts:  make(map[string][]int),
		byToken:       make(map[string]int32),
		tokenizer:     tokenizer,
	}
}

// SeedCoarseQuantizer installs the coarse centroid list directly, for
// test setup.
func (c *Catalog) SeedCoarseQuantizer(cells []catalog.VectorRow) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.coarse = cells
}

// SeedCodebook installs a codebook directly, for test setup.
func (c *Catalog) SeedCodebook(role catalog.TableRole, m, k int, entries []catalog.CodebookEntry, counts []int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	name := c.tableNames[role]
	c.codebooks[name] = entries
	c.codebookMK[name] = [2]int{m, k}
	if counts != nil {
		c.codebookCnts[name] = counts
	}
}

// SeedQuantization installs PQ/residual quantization rows directly,
// keyed by token, for test setup.
func (c *Catalog) SeedQuantization(role catalog.TableRole, token string, code []int32, coarseID int32) int32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	name := c.tableNames[role]
	id, ok := c.byToken[token]
	if !ok {
		id = c.nextID
		c.nextID++
		c.byToken[token] = id
	}
	if c.quantizations[name] == nil {
		c.quantizations[name] = make(map[int32][]int32)
	}
	c.quantizations[name][id] = code
	if role == catalog.ResidualQuantization {
		if c.coarseIDs[name] == nil {
			c.coarseIDs[name] = make(map[int32]int32)
		}
		c.coarseIDs[name][id] = coarseID
	}
	return id
}

// SeedVector installs a vector row directly, keyed by token.
func (c *Catalog) SeedVector(role catalog.TableRole, token string, v []float32) int32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	name := c.tableNames[role]
	id, ok := c.byToken[token]
	if !ok {
		id = c.nextID
		c.nextID++
		c.byToken[token] = id
	}
	if c.vectors[name] == nil {
		c.vectors[name] = make(map[int32][]float32)
	}
	c.vectors[name][id] = v
	return id
}

func (c *Catalog) ResolveTable(ctx context.Context, role catalog.TableRole) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	name, ok := c.tableNames[role]
	if !ok {
		return "", fmt.Errorf("memcatalog: unknown table role %v", role)
	}
	return name, nil
}

func (c *Catalog) LoadCodebook(ctx context.Context, name string) (int, int, []catalog.CodebookEntry, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	mk, ok := c.codebookMK[name]
	if !ok {
		return 0, 0, nil, fmt.Errorf("memcatalog: no codebook %q", name)
	}
	return mk[0], mk[1], append([]catalog.CodebookEntry(nil), c.codebooks[name]...), nil
}

func (c *Catalog) LoadCodebookWithCounts(ctx context.Context, name string) (int, int, []catalog.CodebookEntry, []int, error) {
	m, k, entries, err := c.LoadCodebook(ctx, name)
	if err != nil {
		return 0, 0, nil, nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	counts := c.codebookCnts[name]
	if counts == nil {
		counts = make([]int, m*k)
	}
	return m, k, entries, append([]int(nil), counts...), nil
}

func (c *Catalog) LoadCoarseQuantizer(ctx context.Context) ([]catalog.VectorRow, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]catalog.VectorRow(nil), c.coarse...), nil
}

func (c *Catalog) LoadVectorsByID(ctx context.Context, name string, ids []int32) ([]catalog.VectorRow, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	table := c.vectors[name]
	out := make([]catalog.VectorRow, 0, len(ids))
	for _, id := range ids {
		if v, ok := table[id]; ok {
			out = append(out, catalog.VectorRow{ID: id, Vector: v})
		}
	}
	return out, nil
}

func (c *Catalog) LoadQuantizationByIDs(ctx context.Context, name string, ids []int32) ([]catalog.QuantizationRow, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	table := c.quantizations[name]
	out := make([]catalog.QuantizationRow, 0, len(ids))
	for _, id := range ids {
		if code, ok := table[id]; ok {
			out = append(out, catalog.QuantizationRow{ID: id, Code: code})
		}
	}
	return out, nil
}

func (c *Catalog) LoadQuantizationByCoarseIDs(ctx context.Context, name string, coarseIDs []int32) ([]catalog.ResidualQuantizationRow, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	wanted := make(map[int32]struct{}, len(coarseIDs))
	for _, id := range coarseIDs {
		wanted[id] = struct{}{}
	}
	table := c.quantizations[name]
	coarse := c.coarseIDs[name]
	out := make([]catalog.ResidualQuantizationRow, 0)
	for id, code := range table {
		cid := coarse[id]
		if _, ok := wanted[cid]; ok {
			out = append(out, catalog.ResidualQuantizationRow{ID: id, Code: code, CoarseID: cid})
		}
	}
	// A real catalog scan is deterministic (e.g. a primary-key-ordered
	// table scan); sort ascending by id so this fixture's tie-break
	// behavior is well-defined too, rather than depending on Go's
	// randomized map iteration order.
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (c *Catalog) LoadQuantizationByTokens(ctx context.Context, name string, tokens []string) ([]catalog.TokenQuantizationRow, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	table := c.quantizations[name]
	out := make([]catalog.TokenQuantizationRow, 0, len(tokens))
	for _, tok := range tokens {
		id, ok := c.byToken[tok]
		if !ok {
			continue
		}
		code, ok := table[id]
		if !ok {
			continue
		}
		out = append(out, catalog.TokenQuantizationRow{Token: tok, Code: code})
	}
	return out, nil
}

// scanner is a pre-materialized snapshot of a quantization table,
// sufficient for the "finite, not restartable" contract ScanQuantization
// requires.
type scanner struct {
	rows []catalog.QuantizationRow
	pos  int
}

func (s *scanner) Next() (catalog.QuantizationRow, bool, error) {
	if s.pos >= len(s.rows) {
		return catalog.QuantizationRow{}, false, nil
	}
	row := s.rows[s.pos]
	s.pos++
	return row, true, nil
}

func (s *scanner) Close() error { return nil }

func (c *Catalog) ScanQuantization(ctx context.Context, name string) (catalog.QuantizationScanner, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rows := make([]catalog.QuantizationRow, 0, len(c.quantizations[name]))
	for id, code := range c.quantizations[name] {
		rows = append(rows, catalog.QuantizationRow{ID: id, Code: code})
	}
	// Deterministic ascending-id order, matching a real table scan
	// rather than Go's randomized map iteration (see the same note on
	// LoadQuantizationByCoarseIDs).
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })
	return &scanner{rows: rows}, nil
}

func (c *Catalog) InsertQuantization(ctx context.Context, name string, rows []catalog.InsertQuantizationRow) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.quantizations[name] == nil {
		c.quantizations[name] = make(map[int32][]int32)
	}
	for _, row := range rows {
		id, ok := c.byToken[row.Token]
		if !ok {
			id = c.nextID
			c.nextID++
			c.byToken[row.Token] = id
		}
		c.quantizations[name][id] = row.Code
		if row.CoarseID != 0 || name == c.tableNames[catalog.ResidualQuantization] {
			if c.coarseIDs[name] == nil {
				c.coarseIDs[name] = make(map[int32]int32)
			}
			c.coarseIDs[name][id] = row.CoarseID
		}
	}
	return nil
}

func (c *Catalog) InsertVectors(ctx context.Context, name string, rows []catalog.InsertVectorRow) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.vectors[name] == nil {
		c.vectors[name] = make(map[int32][]float32)
	}
	for _, row := range rows {
		id, ok := c.byToken[row.Token]
		if !ok {
			id = c.nextID
			c.nextID++
			c.byToken[row.Token] = id
		}
		c.vectors[name][id] = row.Vector
	}
	return nil
}

func (c *Catalog) UpsertCodebook(ctx context.Context, name string, entries []catalog.CodebookEntry, counts []int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	maxPos, maxCode := 0, 0
	for _, e := range entries {
		if e.Pos > maxPos {
			maxPos = e.Pos
		}
		if e.Code > maxCode {
			maxCode = e.Code
		}
	}
	c.codebooks[name] = entries
	c.codebookMK[name] = [2]int{maxPos + 1, maxCode + 1}
	c.codebookCnts[name] = counts
	return nil
}

func (c *Catalog) Tokenize(ctx context.Context, term string) (catalog.TokenizeResult, error) {
	norm, unnorm, ok := c.tokenizer(term)
	if !ok {
		return catalog.TokenizeResult{}, fmt.Errorf("memcatalog: unknown term %q", term)
	}
	return catalog.TokenizeResult{
		Normalized:   norm,
		Unnormalized: unnorm,
		Token:        normalizeToken(term),
	}, nil
}

// normalizeToken mirrors the original extension's
// replace(term,' ','_') token convention.
func normalizeToken(term string) string {
	out := make([]rune, 0, len(term))
	for _, r := range term {
		if r == ' ' {
			r = '_'
		}
		out = append(out, r)
	}
	return string(out)
}

type noopTx struct{}

func (noopTx) Commit(ctx context.Context) error   { return nil }
func (noopTx) Rollback(ctx context.Context) error { return nil }

// Begin returns a no-op Tx: this in-memory catalog applies every write
// immediately, so there's nothing to stage. A real backing catalog
// (e.g. Postgres) would return a handle wrapping a real transaction
// here.
func (c *Catalog) Begin(ctx context.Context) (catalog.Tx, error) {
	return noopTx{}, nil
}
