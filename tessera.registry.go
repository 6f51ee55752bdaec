package tessera

import (
	"errors"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Function is a named helper callable from expressions.
type Function struct {
	Name string
	Fn   func(args ...any) (any, error)
}

// Library is a plugin contributing actions, contributions and functions.
// Disable releases held resources and is called once at engine stop.
type Library interface {
	Name() string
	Actions() []ActionFactory
	Contributions() []ContributionFactory
	Functions() []Function
	Disable() error
}

// DynamicLibrary synthesizes action factories by name, for plugins whose
// action set is open-ended (name-based includes, wildcard elements).
type DynamicLibrary interface {
	Library
	LookupAction(name string) (ActionFactory, bool)
}

// Registry maps names to factories. It is populated at configuration time
// and safe for concurrent lookups.
type Registry struct {
	mu        sync.RWMutex
	actions   map[string]ActionFactory
	contribs  map[string]ContributionFactory
	funcs     map[string]Function
	libraries []Library
	dynamic   []DynamicLibrary
	logger    *zap.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		actions:  make(map[string]ActionFactory),
		contribs: make(map[string]ContributionFactory),
		funcs:    make(map[string]Function),
		logger:   logger,
	}
}

// RegisterLibrary registers every factory of lib. Name collisions with
// already registered factories are errors; nothing of lib is registered
// in that case.
func (r *Registry) RegisterLibrary(lib Library) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, a := range lib.Actions() {
		if a == nil {
			return WithOrigin(NewResolutionError(ErrMsgNilFactory, lib.Name()), lib.Name())
		}
		if _, exists := r.actions[a.Name()]; exists {
			return WithOrigin(NewResolutionError(ErrMsgDuplicateAction, a.Name()), lib.Name())
		}
	}
	for _, c := range lib.Contributions() {
		if c == nil {
			return WithOrigin(NewResolutionError(ErrMsgNilFactory, lib.Name()), lib.Name())
		}
		if _, exists := r.contribs[c.Name()]; exists {
			return WithOrigin(NewResolutionError(ErrMsgDuplicateContrib, c.Name()), lib.Name())
		}
	}
	for _, f := range lib.Functions() {
		if _, exists := r.funcs[f.Name]; exists {
			return WithOrigin(NewResolutionError(ErrMsgDuplicateFunction, f.Name), lib.Name())
		}
	}

	for _, a := range lib.Actions() {
		r.actions[a.Name()] = a
	}
	for _, c := range lib.Contributions() {
		r.contribs[c.Name()] = c
	}
	for _, f := range lib.Functions() {
		r.funcs[f.Name] = f
	}
	r.libraries = append(r.libraries, lib)
	if dyn, ok := lib.(DynamicLibrary); ok {
		r.dynamic = append(r.dynamic, dyn)
	}

	r.logger.Debug(LogMsgLibraryRegistered, zap.String(LogFieldLibrary, lib.Name()))
	return nil
}

// RegisterAction registers a single action factory.
func (r *Registry) RegisterAction(f ActionFactory) error {
	if f == nil {
		return NewResolutionError(ErrMsgNilFactory, "")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.actions[f.Name()]; exists {
		return NewResolutionError(ErrMsgDuplicateAction, f.Name())
	}
	r.actions[f.Name()] = f
	return nil
}

// RegisterContribution registers a single contribution factory.
func (r *Registry) RegisterContribution(f ContributionFactory) error {
	if f == nil {
		return NewResolutionError(ErrMsgNilFactory, "")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.contribs[f.Name()]; exists {
		return NewResolutionError(ErrMsgDuplicateContrib, f.Name())
	}
	r.contribs[f.Name()] = f
	return nil
}

// RegisterFunction registers a single expression function.
func (r *Registry) RegisterFunction(f Function) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.funcs[f.Name]; exists {
		return NewResolutionError(ErrMsgDuplicateFunction, f.Name)
	}
	r.funcs[f.Name] = f
	return nil
}

// ResolveAction returns the factory registered under name. Statically
// registered factories win; otherwise exactly one dynamic library must
// recognize the name.
func (r *Registry) ResolveAction(name string) (ActionFactory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if f, ok := r.actions[name]; ok {
		return f, nil
	}

	var (
		found ActionFactory
		owner string
	)
	for _, lib := range r.dynamic {
		f, ok := lib.LookupAction(name)
		if !ok {
			continue
		}
		if found != nil {
			return nil, WithOrigin(NewResolutionError(ErrMsgAmbiguousAction, name), owner+","+lib.Name())
		}
		found, owner = f, lib.Name()
	}
	if found == nil {
		return nil, NewResolutionError(ErrMsgUnknownAction, name)
	}
	return found, nil
}

// ResolveContribution returns the contribution factory registered under name.
func (r *Registry) ResolveContribution(name string) (ContributionFactory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.contribs[name]
	if !ok {
		return nil, NewResolutionError(ErrMsgUnknownContribution, name)
	}
	return f, nil
}

// Function returns the function registered under name.
func (r *Registry) Function(name string) (Function, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.funcs[name]
	return f, ok
}

// Functions returns all registered functions sorted by name.
func (r *Registry) Functions() []Function {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Function, 0, len(r.funcs))
	for _, f := range r.funcs {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ActionNames returns the statically registered action names, sorted.
func (r *Registry) ActionNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.actions))
	for name := range r.actions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DisableAll disables every registered library in reverse registration
// order and returns the joined errors.
func (r *Registry) DisableAll() error {
	r.mu.Lock()
	libs := r.libraries
	r.libraries = nil
	r.dynamic = nil
	r.mu.Unlock()

	var errs []error
	for i := len(libs) - 1; i >= 0; i-- {
		if err := libs[i].Disable(); err != nil {
			r.logger.Warn(LogMsgLibraryDisableError,
				zap.String(LogFieldLibrary, libs[i].Name()),
				zap.Error(err))
			errs = append(errs, WithOrigin(WrapEngineError(err, ErrMsgExecutionFailed, ""), libs[i].Name()))
		}
	}
	return errors.Join(errs...)
}
