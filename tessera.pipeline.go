package tessera

import (
	"context"
	"strconv"

	"go.uber.org/zap"
)

// Invocation is the per-execution state of one action node. It is created
// when the node is reached during a render and discarded afterwards.
type Invocation struct {
	engine       *Engine
	goCtx        context.Context
	template     string
	node         *ActionNode
	factory      ActionFactory
	ctx          *Context
	action       Action
	params       Params
	interceptors []Interceptor
	proceeded    [2]bool
}

// Context returns the execution context the action runs in.
func (inv *Invocation) Context() *Context { return inv.ctx }

// Writer returns the current writer.
func (inv *Invocation) Writer() Writer { return inv.ctx.Writer() }

// WriteString writes s to the current writer.
func (inv *Invocation) WriteString(s string) error {
	_, err := inv.ctx.Writer().WriteString(s)
	return err
}

// Node returns the action node being executed.
func (inv *Invocation) Node() *ActionNode { return inv.node }

// Name returns the action name.
func (inv *Invocation) Name() string { return inv.node.Name }

// Template returns the name of the template the node belongs to.
func (inv *Invocation) Template() string { return inv.template }

// Params returns the parameters bound during creation. It is nil before
// creation has run.
func (inv *Invocation) Params() Params { return inv.params }

// Action returns the action instance, or nil when creation was skipped.
func (inv *Invocation) Action() Action { return inv.action }

// Engine returns the engine running the invocation.
func (inv *Invocation) Engine() *Engine { return inv.engine }

// GoContext returns the context.Context of the render.
func (inv *Invocation) GoContext() context.Context { return inv.goCtx }

// Logger returns the engine logger.
func (inv *Invocation) Logger() *zap.Logger { return inv.engine.logger }

// Proceeded reports whether the default behavior of phase has run.
func (inv *Invocation) Proceeded(phase Phase) bool {
	return inv.proceeded[phase]
}

// Evaluate re-evaluates the named node parameter in the current context.
// Literal parameters yield their text; expression parameters see variable
// changes made since creation.
func (inv *Invocation) Evaluate(name string) (any, error) {
	p, ok := inv.node.Param(name)
	if !ok {
		return nil, newParameterError(ErrMsgMissingParameter, inv.node.Name, name)
	}
	v, err := p.Value(inv.ctx)
	if err != nil {
		return nil, WrapEngineError(err, ErrMsgExpressionFailed, inv.node.Name)
	}
	return v, nil
}

// RenderBody renders the node's children in the invocation's context.
func (inv *Invocation) RenderBody() error {
	return inv.RenderBodyIn(inv.ctx)
}

// RenderBodyIn renders the node's children in c, which must belong to the
// same render.
func (inv *Invocation) RenderBodyIn(c *Context) error {
	return inv.engine.renderNodes(inv.goCtx, inv.template, inv.node.Children, c)
}

// Include renders another template into a child context of this
// invocation's context, writing to the current writer.
func (inv *Invocation) Include(name, parser string, vars map[string]any) error {
	return inv.engine.Include(inv, name, parser, vars)
}

// runAction drives one action node through resolution, creation and
// execution. Errors abort the remaining phases.
func (e *Engine) runAction(goCtx context.Context, template string, node *ActionNode, c *Context) error {
	inv, err := e.resolveInvocation(goCtx, template, node, c)
	if err != nil {
		return withLocation(err, template, node.Line)
	}
	e.logger.Debug(LogMsgActionResolved,
		zap.String(LogFieldAction, node.Name),
		zap.Int(LogFieldInterceptN, len(inv.interceptors)))

	for _, phase := range phaseOrder {
		if err := inv.runPhase(phase); err != nil {
			e.logger.Debug(LogMsgActionAborted,
				zap.String(LogFieldAction, node.Name),
				zap.String(LogFieldPhase, phase.String()),
				zap.Error(err))
			return withLocation(err, template, node.Line)
		}
	}
	return nil
}

// resolveInvocation binds the node's factory and instantiates the
// interceptors of its contributions in authoring order.
func (e *Engine) resolveInvocation(goCtx context.Context, template string, node *ActionNode, c *Context) (*Invocation, error) {
	factory := node.Factory
	if factory == nil {
		f, err := e.registry.ResolveAction(node.Name)
		if err != nil {
			return nil, err
		}
		factory = f
	}

	inv := &Invocation{
		engine:   e,
		goCtx:    goCtx,
		template: template,
		node:     node,
		factory:  factory,
		ctx:      c,
	}

	for _, ref := range node.Contributions {
		cf := ref.Factory
		if cf == nil {
			f, err := e.registry.ResolveContribution(ref.Name)
			if err != nil {
				return nil, err
			}
			cf = f
		}
		args, err := bindParams(ref.Name, nil, ref.Args, c, nil)
		if err != nil {
			return nil, err
		}
		ic, err := cf.NewInterceptor(args)
		if err != nil {
			return nil, WithOrigin(WrapEngineError(err, ErrMsgInterceptorFailed, node.Name), ref.Name)
		}
		if ic.Phases() == 0 {
			return nil, WithOrigin(NewExecutionError(ErrMsgNoPhases, node.Name, nil), ref.Name)
		}
		inv.interceptors = append(inv.interceptors, ic)
	}
	return inv, nil
}

// runPhase composes the interceptors declaring phase around its default.
func (inv *Invocation) runPhase(phase Phase) error {
	var active []Interceptor
	for _, ic := range inv.interceptors {
		if ic.Phases().Has(phase) {
			active = append(active, ic)
		}
	}

	logger := inv.engine.logger
	logger.Debug(LogMsgPhaseStart,
		zap.String(LogFieldAction, inv.node.Name),
		zap.String(LogFieldPhase, phase.String()),
		zap.Int(LogFieldInterceptN, len(active)))

	final := func() error {
		inv.proceeded[phase] = true
		if phase == PhaseCreation {
			return inv.create()
		}
		return inv.execute()
	}

	if err := buildChain(inv, phase, active, final)(); err != nil {
		return newPhaseError(err, inv.node.Name, phase)
	}
	if !inv.proceeded[phase] {
		logger.Debug(LogMsgPhaseSkipped,
			zap.String(LogFieldAction, inv.node.Name),
			zap.String(LogFieldPhase, phase.String()))
	}
	return nil
}

// create is the default behavior of the creation phase.
func (inv *Invocation) create() error {
	params, err := bindParams(inv.node.Name, inv.factory.Params(), inv.node.Params, inv.ctx, inv.engine.converter)
	if err != nil {
		return err
	}
	inv.params = params
	action, err := inv.factory.NewAction(inv)
	if err != nil {
		return WrapEngineError(err, ErrMsgCreationFailed, inv.node.Name)
	}
	inv.action = action
	return nil
}

// execute is the default behavior of the execution phase. Without an
// action instance there is nothing to run.
func (inv *Invocation) execute() error {
	if inv.action == nil {
		return nil
	}
	if err := inv.action.Execute(inv); err != nil {
		return WrapEngineError(err, ErrMsgActionFailed, inv.node.Name)
	}
	return nil
}

// newPhaseError wraps foreign errors raised inside a phase chain.
func newPhaseError(err error, action string, phase Phase) error {
	if KindOf(err) != "" {
		return err
	}
	return newEngineError(KindExecution, ErrMsgInterceptorFailed, err).
		WithMetadata(MetaKeyAction, action).
		WithMetadata(MetaKeyPhase, phase.String())
}

// withLocation attaches template and line metadata to a family error
// that does not carry a template yet.
func withLocation(err error, template string, line int) error {
	if _, ok := Metadata(err, MetaKeyTemplate); ok || KindOf(err) == "" {
		return err
	}
	err = withMetadata(err, MetaKeyTemplate, template)
	if line > 0 {
		err = withMetadata(err, MetaKeyLine, strconv.Itoa(line))
	}
	return err
}
