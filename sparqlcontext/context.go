// Package sparqlcontext carries the per-query dependencies every stage
// of the pipeline needs — a logger and the SERVICE client's transport
// settings — the same way the teacher threads a *sql.Context through
// parse/analyze/execute instead of reaching for package globals.
package sparqlcontext

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// ServiceConfig bounds one SPARQL SERVICE round-trip (§4.7).
type ServiceConfig struct {
	// Timeout bounds a single request. Zero means the default (30s).
	Timeout time.Duration
	// MaxRetries bounds retries on transient failure (network, aborted,
	// 5xx). Zero means the default (2).
	MaxRetries int
	// RetryDelay is the fixed delay between retries. Zero means the
	// default (1s).
	RetryDelay time.Duration
}

const (
	defaultServiceTimeout    = 30 * time.Second
	defaultServiceMaxRetries = 2
	defaultServiceRetryDelay = 1 * time.Second
)

// WithDefaults fills any zero field of c with the §4.7 transport
// policy defaults.
func (c ServiceConfig) WithDefaults() ServiceConfig {
	if c.Timeout <= 0 {
		c.Timeout = defaultServiceTimeout
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = defaultServiceMaxRetries
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = defaultServiceRetryDelay
	}
	return c
}

// Context is the per-query handle threaded through translate/optimize/
// execute. It embeds a context.Context for cancellation/deadlines (the
// only cancellable operation is a SERVICE round-trip, §5) and carries a
// logger and the SERVICE transport config, injected rather than global.
type Context struct {
	context.Context
	logger  *logrus.Entry
	Service ServiceConfig
}

// New wraps parent with a logger and service config. A nil logger
// falls back to logrus' standard logger's entry, matching the
// teacher's ctx.GetLogger() fallback.
func New(parent context.Context, logger *logrus.Entry, svc ServiceConfig) *Context {
	if parent == nil {
		parent = context.Background()
	}
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Context{Context: parent, logger: logger, Service: svc.WithDefaults()}
}

// Background returns a Context suitable for tests and simple embedded
// use: context.Background(), the standard logger, and default service
// settings.
func Background() *Context {
	return New(context.Background(), nil, ServiceConfig{})
}

// Logger returns this query's logger.
func (c *Context) Logger() *logrus.Entry { return c.logger }

// WithLogger returns a copy of c using logger instead.
func (c *Context) WithLogger(logger *logrus.Entry) *Context {
	cp := *c
	cp.logger = logger
	return &cp
}
