package tessera

import "sort"

// ContextID is the handle of a context record inside its tree.
type ContextID int

// ScopeID identifies a scope. IDs are unique within a context tree, so a
// scope of one context cannot be used with another.
type ScopeID int

// noParent marks the root record of a tree.
const noParent ContextID = -1

// contextTree is the arena holding every context record of one render
// call, including the subcontexts created for inclusions.
type contextTree struct {
	records   []*contextRecord
	nextScope ScopeID
	writers   *WriterChain
}

// contextRecord is one node of the tree.
type contextRecord struct {
	parent   ContextID
	scopes   []scopeRecord // outermost first
	vars     map[ScopeID]map[string]any
	implicit map[string]any
	depth    int // inclusion depth, 0 for the root
}

// scopeRecord describes one named scope.
type scopeRecord struct {
	id      ScopeID
	name    string
	visible bool
}

// Context is a handle on one execution context. It owns a stack of named
// scopes, a variable table per scope and a table of implicit objects kept
// in a namespace disjoint from variables.
//
// Variable lookup never crosses into the parent context; values move from
// parent to child only through InheritVariable. A Context belongs to a
// single render and is not safe for concurrent use.
type Context struct {
	tree *contextTree
	id   ContextID
}

// ContextEnricher installs ambient implicit objects around every render,
// including included subtemplates. A well-behaved enricher reuses the
// object already carried by a parent context (see LookupInheritedImplicit)
// instead of creating a fresh instance per inclusion.
type ContextEnricher interface {
	BeforeTemplate(c *Context) error
	AfterTemplate(c *Context) error
}

// NewContext creates a root context with a single visible default scope.
func NewContext() *Context {
	tree := &contextTree{}
	return tree.newContext(noParent, 0)
}

// NewContextWithVariables creates a root context and sets vars in its
// default scope.
func NewContextWithVariables(vars map[string]any) *Context {
	c := NewContext()
	for k, v := range vars {
		c.SetVariable(k, v)
	}
	return c
}

// newContext appends a record to the arena.
func (t *contextTree) newContext(parent ContextID, depth int) *Context {
	rec := &contextRecord{
		parent:   parent,
		vars:     make(map[ScopeID]map[string]any),
		implicit: make(map[string]any),
		depth:    depth,
	}
	t.records = append(t.records, rec)
	c := &Context{tree: t, id: ContextID(len(t.records) - 1)}
	c.pushScope(DefaultScopeName, true)
	return c
}

// record returns the record backing c.
func (c *Context) record() *contextRecord {
	return c.tree.records[c.id]
}

// ID returns the handle of this context within its tree.
func (c *Context) ID() ContextID {
	return c.id
}

// CreateSubcontext creates a child context. The child starts with an empty
// default scope and sees none of the parent's variables.
func (c *Context) CreateSubcontext() *Context {
	return c.tree.newContext(c.id, c.record().depth+1)
}

// Parent returns the parent context, or nil for a root context.
func (c *Context) Parent() *Context {
	p := c.record().parent
	if p == noParent {
		return nil
	}
	return &Context{tree: c.tree, id: p}
}

// Depth returns the inclusion depth; 0 for a root context.
func (c *Context) Depth() int {
	return c.record().depth
}

// AddScope pushes a new innermost scope. Invisible scopes are skipped by
// FindVariable and only reachable through their ScopeID.
func (c *Context) AddScope(name string, visible bool) (ScopeID, error) {
	for _, s := range c.record().scopes {
		if s.name == name {
			return 0, NewContextError(ErrMsgDuplicateScope, name)
		}
	}
	return c.pushScope(name, visible), nil
}

// pushScope appends a scope without checking for duplicates.
func (c *Context) pushScope(name string, visible bool) ScopeID {
	id := c.tree.nextScope
	c.tree.nextScope++
	rec := c.record()
	rec.scopes = append(rec.scopes, scopeRecord{id: id, name: name, visible: visible})
	rec.vars[id] = make(map[string]any)
	return id
}

// RemoveScope drops a scope and its variables. The default scope cannot
// be removed.
func (c *Context) RemoveScope(id ScopeID) error {
	rec := c.record()
	for i, s := range rec.scopes {
		if s.id != id {
			continue
		}
		if i == 0 {
			return NewContextError(ErrMsgUnknownScope, s.name)
		}
		rec.scopes = append(rec.scopes[:i], rec.scopes[i+1:]...)
		delete(rec.vars, id)
		return nil
	}
	return NewContextError(ErrMsgUnknownScope, "")
}

// Scope returns the ID of the named scope.
func (c *Context) Scope(name string) (ScopeID, bool) {
	for _, s := range c.record().scopes {
		if s.name == name {
			return s.id, true
		}
	}
	return 0, false
}

// innermost returns the innermost scope ID.
func (c *Context) innermost() ScopeID {
	scopes := c.record().scopes
	return scopes[len(scopes)-1].id
}

// SetVariable sets a variable in the innermost scope.
func (c *Context) SetVariable(name string, value any) {
	c.record().vars[c.innermost()][name] = value
}

// SetScopedVariable sets a variable in the given scope of this context.
func (c *Context) SetScopedVariable(scope ScopeID, name string, value any) error {
	vars, ok := c.record().vars[scope]
	if !ok {
		return NewContextError(ErrMsgUnknownScope, name)
	}
	vars[name] = value
	return nil
}

// Variable returns a variable of the innermost scope only.
func (c *Context) Variable(name string) (any, bool) {
	v, ok := c.record().vars[c.innermost()][name]
	return v, ok
}

// ScopedVariable returns a variable of the given scope.
func (c *Context) ScopedVariable(scope ScopeID, name string) (any, bool) {
	vars, ok := c.record().vars[scope]
	if !ok {
		return nil, false
	}
	v, ok := vars[name]
	return v, ok
}

// FindVariable searches the visible scopes of this context from innermost
// to outermost. It never consults the parent context.
func (c *Context) FindVariable(name string) (any, bool) {
	rec := c.record()
	for i := len(rec.scopes) - 1; i >= 0; i-- {
		s := rec.scopes[i]
		if !s.visible {
			continue
		}
		if v, ok := rec.vars[s.id][name]; ok {
			return v, true
		}
	}
	return nil, false
}

// DeleteVariable removes a variable from the innermost scope.
func (c *Context) DeleteVariable(name string) {
	delete(c.record().vars[c.innermost()], name)
}

// InheritVariable copies a variable visible in the parent context into the
// innermost scope of this one. It reports whether the parent had it.
func (c *Context) InheritVariable(name string) bool {
	parent := c.Parent()
	if parent == nil {
		return false
	}
	v, ok := parent.FindVariable(name)
	if !ok {
		return false
	}
	c.SetVariable(name, v)
	return true
}

// Variables returns a snapshot of every variable FindVariable can see.
func (c *Context) Variables() map[string]any {
	rec := c.record()
	out := make(map[string]any)
	for _, s := range rec.scopes {
		if !s.visible {
			continue
		}
		for k, v := range rec.vars[s.id] {
			out[k] = v
		}
	}
	return out
}

// VariableNames returns the sorted names of all visible variables.
func (c *Context) VariableNames() []string {
	vars := c.Variables()
	names := make([]string, 0, len(vars))
	for k := range vars {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// ImplicitName returns the reserved-namespace key of an implicit object.
func ImplicitName(name string) string {
	return ImplicitPrefix + name
}

// AddImplicitObject installs an ambient object in this context.
func (c *Context) AddImplicitObject(name string, value any) error {
	key := ImplicitName(name)
	rec := c.record()
	if _, exists := rec.implicit[key]; exists {
		return NewContextError(ErrMsgDuplicateImplicit, name)
	}
	rec.implicit[key] = value
	return nil
}

// RemoveImplicitObject removes an implicit object from this context and
// reports whether it was present.
func (c *Context) RemoveImplicitObject(name string) bool {
	key := ImplicitName(name)
	rec := c.record()
	if _, exists := rec.implicit[key]; !exists {
		return false
	}
	delete(rec.implicit, key)
	return true
}

// ImplicitObject returns an implicit object installed in this context.
func (c *Context) ImplicitObject(name string) (any, bool) {
	v, ok := c.record().implicit[ImplicitName(name)]
	return v, ok
}

// RequireImplicitObject returns an implicit object of this context or a
// context error when it is missing.
func (c *Context) RequireImplicitObject(name string) (any, error) {
	v, ok := c.ImplicitObject(name)
	if !ok {
		return nil, NewContextError(ErrMsgMissingImplicit, name)
	}
	return v, nil
}

// LookupInheritedImplicit searches the ancestors of this context, nearest
// first, for an implicit object. Enrichers use it to reuse the instance
// installed for an enclosing template.
func (c *Context) LookupInheritedImplicit(name string) (any, bool) {
	for p := c.Parent(); p != nil; p = p.Parent() {
		if v, ok := p.ImplicitObject(name); ok {
			return v, true
		}
	}
	return nil, false
}

// Writer returns the current writer of the render this context belongs
// to, or nil outside a render.
func (c *Context) Writer() Writer {
	if c.tree.writers == nil {
		return nil
	}
	return c.tree.writers.Current()
}

// PushWriter makes w the current writer for the whole render.
func (c *Context) PushWriter(w Writer) {
	c.tree.writers.Push(w)
}

// PopWriter restores the previous writer and returns the removed one.
func (c *Context) PopWriter() (Writer, error) {
	if c.tree.writers == nil {
		return nil, NewContextError(ErrMsgPopRootWriter, "")
	}
	return c.tree.writers.Pop()
}

// bindWriters installs a writer chain and returns the previous one.
func (c *Context) bindWriters(chain *WriterChain) *WriterChain {
	prev := c.tree.writers
	c.tree.writers = chain
	return prev
}
