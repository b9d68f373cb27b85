// Package ivfadc is the public entry point for the PQ/IVFADC vector
// search engine: it wires the internal codebook, LUT, search, cluster
// and insert components behind the engine's eight query/insert
// operations, against a caller-supplied catalog.Adapter.
//
// Construction uses a functional-options pattern: Option func(*engineConfig) error.
package ivfadc
