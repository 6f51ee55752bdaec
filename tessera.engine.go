package tessera

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Engine is the template processor. It owns the registry, the parsers,
// the template source and the template cache, and renders templates into
// writers. An Engine is safe for concurrent renders as long as each render
// uses its own Context and Writer.
type Engine struct {
	registry        *Registry
	parsers         map[string]Parser
	defaultParser   string
	source          TemplateSource
	syntaxes        []ExpressionSyntax
	cache           TemplateCache
	converter       Converter
	enrichers       []ContextEnricher
	metrics         *Metrics
	maxIncludeDepth int
	logger          *zap.Logger

	stopOnce sync.Once
	stopped  atomic.Bool
	stopErr  error
}

// New creates a new Engine with the given options.
func New(opts ...Option) (*Engine, error) {
	config := defaultEngineConfig()
	for _, opt := range opts {
		opt(config)
	}

	logger := config.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	registry := NewRegistry(logger)
	for _, lib := range config.libraries {
		if err := registry.RegisterLibrary(lib); err != nil {
			return nil, err
		}
	}

	parsers := map[string]Parser{DefaultParserName: NewTextParser()}
	custom := make(map[string]bool, len(config.parsers))
	for _, p := range config.parsers {
		if custom[p.Name()] {
			return nil, NewResolutionError(ErrMsgDuplicateParser, p.Name())
		}
		custom[p.Name()] = true
		parsers[p.Name()] = p
	}
	if _, ok := parsers[config.defaultParser]; !ok {
		return nil, NewResolutionError(ErrMsgUnknownParser, config.defaultParser)
	}

	syntaxes := config.syntaxes
	if len(syntaxes) == 0 {
		syntaxes = []ExpressionSyntax{NewVariableSyntax(), NewStarlarkSyntax()}
	}
	seen := make(map[string]bool, len(syntaxes))
	for _, s := range syntaxes {
		if seen[s.Name()] {
			return nil, NewResolutionError(ErrMsgDuplicateSyntax, s.Name())
		}
		seen[s.Name()] = true
	}

	source := config.source
	if source == nil {
		source = NewMemorySource(nil)
	}

	cache := config.cache
	if cache == nil {
		cache = NewSyncCache()
	}

	var metrics *Metrics
	if config.registerer != nil {
		m, err := NewMetrics(config.metricsNamespace, config.registerer)
		if err != nil {
			return nil, newEngineError(KindCache, ErrMsgCacheUnavailable, err)
		}
		metrics = m
		cache = NewMetricsCache(cache, metrics)
	}

	e := &Engine{
		registry:        registry,
		parsers:         parsers,
		defaultParser:   config.defaultParser,
		source:          source,
		syntaxes:        syntaxes,
		cache:           cache,
		converter:       config.converter,
		enrichers:       config.enrichers,
		metrics:         metrics,
		maxIncludeDepth: config.maxIncludeDepth,
		logger:          logger,
	}

	if config.watch {
		if ws, ok := source.(WatchableSource); ok {
			if err := ws.Watch(e.invalidate); err != nil {
				return nil, err
			}
		}
	}

	logger.Debug(LogMsgEngineCreated,
		zap.String(LogFieldParser, e.defaultParser),
		zap.Strings(LogFieldAction, registry.ActionNames()))
	return e, nil
}

// MustNew creates a new Engine and panics if there's an error.
func MustNew(opts ...Option) *Engine {
	engine, err := New(opts...)
	if err != nil {
		panic(err)
	}
	return engine
}

// Registry returns the engine's registry.
func (e *Engine) Registry() *Registry { return e.registry }

// Source returns the template source.
func (e *Engine) Source() TemplateSource { return e.source }

// Cache returns the template cache.
func (e *Engine) Cache() TemplateCache { return e.cache }

// Logger returns the engine logger.
func (e *Engine) Logger() *zap.Logger { return e.logger }

// invalidate drops cached templates after a source change.
func (e *Engine) invalidate(name string) {
	n := e.cache.InvalidateTemplate(name)
	e.logger.Debug(LogMsgSourceChanged,
		zap.String(LogFieldTemplate, name),
		zap.Int(LogFieldEvicted, n))
}

// parser returns the named parser; "" selects the default parser.
func (e *Engine) parser(name string) (Parser, error) {
	if name == "" {
		name = e.defaultParser
	}
	p, ok := e.parsers[name]
	if !ok {
		return nil, NewResolutionError(ErrMsgUnknownParser, name)
	}
	return p, nil
}

// Template returns the parsed template, parsing and caching it on a miss.
func (e *Engine) Template(ctx context.Context, name, parserName string) (*Template, error) {
	p, err := e.parser(parserName)
	if err != nil {
		return nil, err
	}
	key := CacheKey{Template: name, Parser: p.Name()}
	if tmpl, ok := e.cache.FindTemplate(key); ok {
		e.logger.Debug(LogMsgCacheHit, zap.String(LogFieldTemplate, name), zap.String(LogFieldParser, key.Parser))
		return tmpl, nil
	}
	e.logger.Debug(LogMsgCacheMiss, zap.String(LogFieldTemplate, name), zap.String(LogFieldParser, key.Parser))

	tmpl, err := p.ParseTemplate(ctx, name, &ParseEnv{
		Source:   e.source,
		Registry: e.registry,
		Syntaxes: e.syntaxes,
		Logger:   e.logger,
	})
	if err != nil {
		return nil, err
	}
	if err := e.cache.StoreTemplate(key, tmpl); err != nil {
		e.logger.Warn(LogMsgCacheStoreFailed, zap.String(LogFieldTemplate, name), zap.Error(err))
		return nil, err
	}
	return tmpl, nil
}

// ProcessTemplate renders the named template into w using execCtx.
//
// On success w is closed. On failure w is cleared and then closed, both
// best-effort, and the error is returned as a member of the engine's
// error family. An empty parserName selects the default parser.
func (e *Engine) ProcessTemplate(ctx context.Context, name, parserName string, execCtx *Context, w Writer) (err error) {
	if w == nil {
		return NewExecutionError(ErrMsgNilWriter, "", nil)
	}
	if parserName == "" {
		parserName = e.defaultParser
	}

	renderID := uuid.NewString()
	logger := e.logger.With(zap.String(LogFieldRenderID, renderID))
	start := time.Now()
	logger.Debug(LogMsgRenderStart,
		zap.String(LogFieldTemplate, name),
		zap.String(LogFieldParser, parserName))

	defer func() {
		elapsed := time.Since(start)
		if e.metrics != nil {
			e.metrics.ObserveRender(parserName, elapsed, err)
		}
		if err != nil {
			logger.Debug(LogMsgRenderFailed, zap.String(LogFieldTemplate, name), zap.Error(err))
			return
		}
		logger.Debug(LogMsgRenderEnd,
			zap.String(LogFieldTemplate, name),
			zap.Duration(LogFieldDuration, elapsed))
	}()

	if err := e.process(ctx, name, parserName, execCtx, w); err != nil {
		if cerr := w.Clear(); cerr != nil {
			logger.Warn(LogMsgWriterClearFailed, zap.Error(cerr))
		}
		if cerr := w.Close(); cerr != nil {
			logger.Warn(LogMsgWriterCloseFailed, zap.Error(cerr))
		}
		return WithOrigin(WrapEngineError(err, ErrMsgExecutionFailed, ""), name)
	}
	if err := w.Close(); err != nil {
		return WrapEngineError(err, ErrMsgExecutionFailed, "")
	}
	return nil
}

// process runs a render with the writer chain bound to execCtx.
func (e *Engine) process(ctx context.Context, name, parserName string, execCtx *Context, w Writer) error {
	if e.stopped.Load() {
		return NewExecutionError(ErrMsgEngineStopped, "", nil)
	}
	if execCtx == nil {
		return NewContextError(ErrMsgNilContext, "")
	}
	tmpl, err := e.Template(ctx, name, parserName)
	if err != nil {
		return err
	}

	prev := execCtx.bindWriters(NewWriterChain(w))
	defer execCtx.bindWriters(prev)
	return e.runTemplate(ctx, tmpl, execCtx)
}

// Render renders the named template with vars and returns the output.
func (e *Engine) Render(ctx context.Context, name, parserName string, vars map[string]any) (string, error) {
	w := NewBufferWriter()
	if err := e.ProcessTemplate(ctx, name, parserName, NewContextWithVariables(vars), w); err != nil {
		return "", err
	}
	return w.String(), nil
}

// RenderTo renders the named template with vars into out. Output reaches
// out only when the render succeeds.
func (e *Engine) RenderTo(ctx context.Context, out io.Writer, name, parserName string, vars map[string]any) error {
	return e.ProcessTemplate(ctx, name, parserName, NewContextWithVariables(vars), NewStreamWriter(out))
}

// Include renders a template into a child context of the invocation's
// context. vars are set in the child's default scope; nothing else of the
// parent is visible. Output goes to the current writer.
func (e *Engine) Include(inv *Invocation, name, parserName string, vars map[string]any) error {
	parent := inv.Context()
	if e.maxIncludeDepth > 0 && parent.Depth() >= e.maxIncludeDepth {
		return newEngineError(KindExecution, ErrMsgIncludeDepth, nil).
			WithMetadata(MetaKeyAction, inv.Name()).
			WithMetadata(MetaKeyTemplate, name)
	}
	tmpl, err := e.Template(inv.GoContext(), name, parserName)
	if err != nil {
		return err
	}

	child := parent.CreateSubcontext()
	for k, v := range vars {
		child.SetVariable(k, v)
	}
	e.logger.Debug(LogMsgIncludeStart,
		zap.String(LogFieldTemplate, name),
		zap.Int(LogFieldDepth, child.Depth()))
	return e.runTemplate(inv.GoContext(), tmpl, child)
}

// runTemplate brackets a template walk with the enrichers. AfterTemplate
// runs in reverse order for every enricher whose BeforeTemplate succeeded.
func (e *Engine) runTemplate(ctx context.Context, tmpl *Template, c *Context) (err error) {
	if _, ok := c.ImplicitObject(ImplicitFunctions); !ok {
		if err := c.AddImplicitObject(ImplicitFunctions, e.registry); err != nil {
			return err
		}
	}

	ran := 0
	defer func() {
		for i := ran - 1; i >= 0; i-- {
			aerr := e.enrichers[i].AfterTemplate(c)
			if aerr == nil {
				continue
			}
			if err == nil {
				err = wrapEnricherError(aerr)
				continue
			}
			e.logger.Warn(LogMsgEnricherAfterFailed,
				zap.String(LogFieldTemplate, tmpl.Name),
				zap.Error(aerr))
		}
	}()

	for _, en := range e.enrichers {
		if err := en.BeforeTemplate(c); err != nil {
			return wrapEnricherError(err)
		}
		ran++
	}
	return e.renderNodes(ctx, tmpl.Name, tmpl.Nodes, c)
}

// wrapEnricherError turns foreign enricher failures into context errors.
func wrapEnricherError(err error) error {
	if KindOf(err) != "" {
		return err
	}
	return newEngineError(KindContext, ErrMsgEnricherFailed, err)
}

// renderNodes walks nodes depth-first. Text is written as is, expressions
// are evaluated and stringified, actions run through the pipeline.
func (e *Engine) renderNodes(ctx context.Context, template string, nodes []Node, c *Context) error {
	for _, n := range nodes {
		if err := ctx.Err(); err != nil {
			return withLocation(NewExecutionError(ErrMsgRenderCancelled, "", err), template, n.LineNumber())
		}
		switch node := n.(type) {
		case *TextNode:
			if _, err := c.Writer().WriteString(node.Text); err != nil {
				return withLocation(WrapEngineError(err, ErrMsgExecutionFailed, ""), template, node.Line)
			}
		case *ExpressionNode:
			v, err := node.Expr.Evaluate(c)
			if err != nil {
				return withLocation(WrapEngineError(err, ErrMsgExpressionFailed, ""), template, node.Line)
			}
			if _, err := c.Writer().WriteString(Stringify(v)); err != nil {
				return withLocation(WrapEngineError(err, ErrMsgExecutionFailed, ""), template, node.Line)
			}
		case *ActionNode:
			if err := e.runAction(ctx, template, node, c); err != nil {
				return err
			}
		}
	}
	return nil
}

// Stop disables the libraries and closes the cache and the source. Renders
// started afterwards fail. Only the first call has an effect.
func (e *Engine) Stop() error {
	e.stopOnce.Do(func() {
		e.stopped.Store(true)

		var errs []error
		if err := e.registry.DisableAll(); err != nil {
			errs = append(errs, err)
		}
		if err := e.cache.Close(); err != nil {
			e.logger.Warn(LogMsgCacheCloseFailed, zap.Error(err))
			errs = append(errs, err)
		}
		if err := e.source.Close(); err != nil {
			e.logger.Warn(LogMsgSourceCloseFailed, zap.Error(err))
			errs = append(errs, err)
		}
		e.stopErr = errors.Join(errs...)
		e.logger.Debug(LogMsgEngineStopped)
	})
	return e.stopErr
}
