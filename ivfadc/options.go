package ivfadc

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/vecengine/ivfadc/internal/obs"
)

// Option configures an Engine at construction time.
type Option func(*engineConfig) error

type engineConfig struct {
	logger       zerolog.Logger
	metrics      *obs.Metrics
	rateLimit    float64
	rateBurst    int
	rateLimitSet bool
}

func defaultConfig() *engineConfig {
	return &engineConfig{
		logger: obs.Nop(),
	}
}

// WithLogger sets the Engine's zerolog.Logger. The only log line the
// Engine writes is a debug-level "pq_search: start" in PQSearch. The
// default is a no-op logger (matching a library that must not force
// log output on an embedding application).
func WithLogger(logger zerolog.Logger) Option {
	return func(c *engineConfig) error {
		c.logger = logger
		return nil
	}
}

// WithMetrics enables Prometheus metrics collection into m. The
// option itself registers nothing; obs.NewMetrics, which builds m,
// registers against the default registry.
func WithMetrics(m *obs.Metrics) Option {
	return func(c *engineConfig) error {
		c.metrics = m
		return nil
	}
}

// WithCatalogRateLimit wraps the configured catalog adapter in a
// catalog.RateLimitedAdapter allowing ratePerSecond calls per second
// with the given burst, throttling ivfadc_batch_search's waves and
// insert_batch's multi-table commit.
func WithCatalogRateLimit(ratePerSecond float64, burst int) Option {
	return func(c *engineConfig) error {
		if ratePerSecond <= 0 || burst <= 0 {
			return fmt.Errorf("ivfadc: rate limit and burst must be positive, got %v/%d", ratePerSecond, burst)
		}
		c.rateLimit = ratePerSecond
		c.rateBurst = burst
		c.rateLimitSet = true
		return nil
	}
}
