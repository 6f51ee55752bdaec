package tessera

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Option is a functional option for configuring the Engine.
type Option func(*engineConfig)

// engineConfig holds the internal configuration for an Engine.
type engineConfig struct {
	parsers          []Parser
	defaultParser    string
	source           TemplateSource
	watch            bool
	libraries        []Library
	syntaxes         []ExpressionSyntax
	cache            TemplateCache
	converter        Converter
	enrichers        []ContextEnricher
	registerer       prometheus.Registerer
	metricsNamespace string
	maxIncludeDepth  int
	logger           *zap.Logger
}

// defaultEngineConfig returns the default engine configuration.
func defaultEngineConfig() *engineConfig {
	return &engineConfig{
		defaultParser:    DefaultParserName,
		metricsNamespace: DefaultMetricsNS,
		maxIncludeDepth:  DefaultMaxIncludeDepth,
	}
}

// WithLogger sets the logger for the engine.
// Default: nil (no logging)
func WithLogger(logger *zap.Logger) Option {
	return func(c *engineConfig) {
		c.logger = logger
	}
}

// WithParser registers a parser under its name.
// Default: the text parser is always registered.
func WithParser(p Parser) Option {
	return func(c *engineConfig) {
		c.parsers = append(c.parsers, p)
	}
}

// WithDefaultParser sets the parser used when a render names none.
// Default: "text"
func WithDefaultParser(name string) Option {
	return func(c *engineConfig) {
		if name != "" {
			c.defaultParser = name
		}
	}
}

// WithSource sets the template source.
// Default: an empty MemorySource
func WithSource(src TemplateSource) Option {
	return func(c *engineConfig) {
		c.source = src
	}
}

// WithWatch enables cache invalidation on source changes when the source
// implements WatchableSource.
// Default: false
func WithWatch(enabled bool) Option {
	return func(c *engineConfig) {
		c.watch = enabled
	}
}

// WithLibrary registers a plugin library.
func WithLibrary(lib Library) Option {
	return func(c *engineConfig) {
		c.libraries = append(c.libraries, lib)
	}
}

// WithSyntax adds an expression syntax. Syntaxes added first win identical
// overlapping occurrences.
// Default: VariableSyntax and StarlarkSyntax
func WithSyntax(s ExpressionSyntax) Option {
	return func(c *engineConfig) {
		c.syntaxes = append(c.syntaxes, s)
	}
}

// WithCache sets the template cache.
// Default: a SyncCache
func WithCache(cache TemplateCache) Option {
	return func(c *engineConfig) {
		c.cache = cache
	}
}

// WithConverter sets the converter used for typed action parameters.
// Default: nil (typed parameters must already have the declared type)
func WithConverter(conv Converter) Option {
	return func(c *engineConfig) {
		c.converter = conv
	}
}

// WithEnricher adds a context enricher. Enrichers run in registration
// order before a render and in reverse order after it.
func WithEnricher(e ContextEnricher) Option {
	return func(c *engineConfig) {
		c.enrichers = append(c.enrichers, e)
	}
}

// WithMetrics registers prometheus collectors with reg and instruments the
// cache and renders.
// Default: nil (no metrics)
func WithMetrics(reg prometheus.Registerer) Option {
	return func(c *engineConfig) {
		c.registerer = reg
	}
}

// WithMetricsNamespace sets the metric name prefix.
// Default: "tessera"
func WithMetricsNamespace(ns string) Option {
	return func(c *engineConfig) {
		if ns != "" {
			c.metricsNamespace = ns
		}
	}
}

// WithMaxIncludeDepth limits nested includes.
// Use 0 for unlimited depth.
// Default: 32
func WithMaxIncludeDepth(depth int) Option {
	return func(c *engineConfig) {
		c.maxIncludeDepth = depth
	}
}
