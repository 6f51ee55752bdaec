// Package basic is a small plugin library for tessera: variable handling,
// conditionals, loops, includes and a few output contributions.
//
// Register it with the engine:
//
//	lib := basic.New()
//	engine := tessera.MustNew(
//	    tessera.WithLibrary(lib),
//	    tessera.WithConverter(basic.NewConverter()),
//	    tessera.WithEnricher(basic.NewClockEnricher(nil)),
//	)
package basic

import (
	"strings"

	tessera "github.com/itsatony/go-tessera"
)

// Library implements tessera.DynamicLibrary.
type Library struct {
	disabled bool
}

// New creates the library.
func New() *Library {
	return &Library{}
}

// Name implements tessera.Library.
func (l *Library) Name() string { return LibraryName }

// Actions implements tessera.Library.
func (l *Library) Actions() []tessera.ActionFactory {
	return []tessera.ActionFactory{
		setAction(),
		ifAction(),
		eachAction(),
		includeAction(),
		echoAction(),
		scopeAction(),
		nowAction(),
	}
}

// Contributions implements tessera.Library.
func (l *Library) Contributions() []tessera.ContributionFactory {
	return []tessera.ContributionFactory{
		skipContribution(),
		whenContribution(),
		indentContribution(),
		captureContribution(),
		sanitizeContribution(),
	}
}

// Functions implements tessera.Library.
func (l *Library) Functions() []tessera.Function {
	return []tessera.Function{
		{Name: FuncUpper, Fn: stringFunc(strings.ToUpper)},
		{Name: FuncLower, Fn: stringFunc(strings.ToLower)},
		{Name: FuncTrim, Fn: stringFunc(strings.TrimSpace)},
		{Name: FuncJoin, Fn: join},
	}
}

// LookupAction resolves "@name" to an include of the template "name".
// Every parameter of the action becomes a variable of the included
// template.
func (l *Library) LookupAction(name string) (tessera.ActionFactory, bool) {
	template, ok := strings.CutPrefix(name, DynamicIncludePrefix)
	if !ok || template == "" {
		return nil, false
	}
	return tessera.NewSimpleAction(name, nil, func(inv *tessera.Invocation) error {
		return inv.Include(template, "", inv.Params())
	}), true
}

// Disable implements tessera.Library.
func (l *Library) Disable() error {
	l.disabled = true
	return nil
}

// Disabled reports whether Disable has been called.
func (l *Library) Disabled() bool {
	return l.disabled
}
