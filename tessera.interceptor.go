package tessera

import "errors"

// Phase is a life-cycle stage of an action that interceptors may wrap.
type Phase int

// Action phases
const (
	PhaseCreation Phase = iota
	PhaseExecution
)

// Phase names
const (
	PhaseNameCreation  = "creation"
	PhaseNameExecution = "execution"
)

// String returns the phase name
func (p Phase) String() string {
	if p == PhaseCreation {
		return PhaseNameCreation
	}
	return PhaseNameExecution
}

// phaseOrder lists the phases in the order the pipeline runs them.
var phaseOrder = []Phase{PhaseCreation, PhaseExecution}

// PhaseSet is a non-empty set of phases.
type PhaseSet uint8

// NewPhaseSet builds a set from phases. An empty set is rejected: an
// interceptor must take part in at least one phase.
func NewPhaseSet(phases ...Phase) (PhaseSet, error) {
	var s PhaseSet
	for _, p := range phases {
		s |= 1 << uint(p)
	}
	if s == 0 {
		return 0, NewExecutionError(ErrMsgNoPhases, "", nil)
	}
	return s, nil
}

// MustPhaseSet builds a set and panics when it is empty.
func MustPhaseSet(phases ...Phase) PhaseSet {
	s, err := NewPhaseSet(phases...)
	if err != nil {
		panic(err)
	}
	return s
}

// BothPhases is the set containing creation and execution.
var BothPhases = MustPhaseSet(PhaseCreation, PhaseExecution)

// Has reports whether p is in the set.
func (s PhaseSet) Has(p Phase) bool {
	return s&(1<<uint(p)) != 0
}

// Interceptor wraps one or more phases of an action. Calling
// chain.Proceed runs the next interceptor or, at the end of the chain, the
// phase's default behavior. Returning without proceeding skips the wrapped
// behavior for that phase.
type Interceptor interface {
	Phases() PhaseSet
	Intercept(inv *Invocation, phase Phase, chain *Chain) error
}

// Chain is the continuation handed to an interceptor.
type Chain struct {
	proceed func() error
}

// Proceed runs the remainder of the chain.
func (c *Chain) Proceed() error {
	return c.proceed()
}

// buildChain composes interceptors around final and returns the entry
// point. Interceptors run in slice order, outermost first.
func buildChain(inv *Invocation, phase Phase, interceptors []Interceptor, final func() error) func() error {
	var at func(i int) func() error
	at = func(i int) func() error {
		if i == len(interceptors) {
			return final
		}
		next := &Chain{proceed: at(i + 1)}
		ic := interceptors[i]
		return func() error {
			return ic.Intercept(inv, phase, next)
		}
	}
	return at(0)
}

// interceptorFunc is the Interceptor built by NewInterceptor.
type interceptorFunc struct {
	phases PhaseSet
	fn     func(inv *Invocation, phase Phase, chain *Chain) error
}

// NewInterceptor builds an interceptor from a function.
func NewInterceptor(phases PhaseSet, fn func(inv *Invocation, phase Phase, chain *Chain) error) (Interceptor, error) {
	if phases == 0 {
		return nil, NewExecutionError(ErrMsgNoPhases, "", nil)
	}
	return &interceptorFunc{phases: phases, fn: fn}, nil
}

func (i *interceptorFunc) Phases() PhaseSet { return i.phases }

func (i *interceptorFunc) Intercept(inv *Invocation, phase Phase, chain *Chain) error {
	return i.fn(inv, phase, chain)
}

// ContributionFactory attaches an interceptor to an action instance. It is
// called once per invocation with the contribution's bound arguments.
type ContributionFactory interface {
	Name() string
	NewInterceptor(args Params) (Interceptor, error)
}

// funcContributionFactory is the ContributionFactory built by
// NewContributionFactory.
type funcContributionFactory struct {
	name   string
	create func(args Params) (Interceptor, error)
}

// NewContributionFactory builds a contribution factory from a function.
func NewContributionFactory(name string, create func(args Params) (Interceptor, error)) ContributionFactory {
	return &funcContributionFactory{name: name, create: create}
}

func (f *funcContributionFactory) Name() string { return f.name }

func (f *funcContributionFactory) NewInterceptor(args Params) (Interceptor, error) {
	return f.create(args)
}

// SubstituteWriter makes w the current writer while fn runs. The previous
// writer is always restored, and w is closed exactly once afterwards
// unless it is decorative. Errors from fn take precedence over cleanup
// errors, which are joined otherwise.
func SubstituteWriter(inv *Invocation, w Writer, fn func() error) (err error) {
	c := inv.Context()
	c.PushWriter(w)
	defer func() {
		popped, popErr := c.PopWriter()
		var closeErr error
		if popped != nil && !IsDecorative(popped) {
			closeErr = popped.Close()
		}
		if err == nil {
			err = errors.Join(popErr, closeErr)
		}
	}()
	return fn()
}

// WriterInterceptor substitutes the writer for the execution phase of the
// action it is attached to.
type WriterInterceptor struct {
	NewWriter func(inv *Invocation, inner Writer) (Writer, error)
}

// Phases implements Interceptor.
func (w *WriterInterceptor) Phases() PhaseSet {
	return MustPhaseSet(PhaseExecution)
}

// Intercept implements Interceptor.
func (w *WriterInterceptor) Intercept(inv *Invocation, phase Phase, chain *Chain) error {
	sub, err := w.NewWriter(inv, inv.Writer())
	if err != nil {
		return err
	}
	return SubstituteWriter(inv, sub, chain.Proceed)
}
