package tessera

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

// testLibrary is a configurable Library for tests.
type testLibrary struct {
	name       string
	actions    []ActionFactory
	contribs   []ContributionFactory
	functions  []Function
	disableErr error
	disabled   int
}

func (l *testLibrary) Name() string                         { return l.name }
func (l *testLibrary) Actions() []ActionFactory             { return l.actions }
func (l *testLibrary) Contributions() []ContributionFactory { return l.contribs }
func (l *testLibrary) Functions() []Function                { return l.functions }

func (l *testLibrary) Disable() error {
	l.disabled++
	return l.disableErr
}

// dynamicLibrary recognizes names with a fixed prefix.
type dynamicLibrary struct {
	testLibrary
	prefix string
}

func (l *dynamicLibrary) LookupAction(name string) (ActionFactory, bool) {
	if len(name) <= len(l.prefix) || name[:len(l.prefix)] != l.prefix {
		return nil, false
	}
	return NewSimpleAction(name, nil, func(inv *Invocation) error {
		return inv.WriteString(l.name + ":" + name[len(l.prefix):])
	}), true
}

// closeCountingWriter is a non-decorative writer recording its lifecycle.
type closeCountingWriter struct {
	BufferWriter
	closes int
	clears int
}

func (w *closeCountingWriter) Close() error {
	w.closes++
	return w.BufferWriter.Close()
}

func (w *closeCountingWriter) Clear() error {
	w.clears++
	return w.BufferWriter.Clear()
}

var errBoom = errors.New("boom")

// writeAction writes a fixed text.
func writeAction(name, text string) ActionFactory {
	return NewSimpleAction(name, nil, func(inv *Invocation) error {
		return inv.WriteString(text)
	})
}

// bodyAction renders its body.
func bodyAction(name string) ActionFactory {
	return NewSimpleAction(name, nil, func(inv *Invocation) error {
		return inv.RenderBody()
	})
}

// failAction fails on execution.
func failAction(name string) ActionFactory {
	return NewSimpleAction(name, nil, func(*Invocation) error {
		return errBoom
	})
}

// includeAction includes the template named by its "template" parameter;
// the other parameters become variables.
func includeAction(name string) ActionFactory {
	return NewSimpleAction(name, nil, func(inv *Invocation) error {
		vars := make(map[string]any)
		for k, v := range inv.Params() {
			if k != "template" {
				vars[k] = v
			}
		}
		return inv.Include(inv.Params().GetString("template"), "", vars)
	})
}

// neverProceed intercepts both phases and never proceeds.
func neverProceed(name string) ContributionFactory {
	return NewContributionFactory(name, func(Params) (Interceptor, error) {
		return NewInterceptor(BothPhases, func(*Invocation, Phase, *Chain) error { return nil })
	})
}

// newTestEngine creates an engine over an in-memory source.
func newTestEngine(t *testing.T, templates map[string]string, opts ...Option) *Engine {
	t.Helper()
	all := append([]Option{WithSource(NewMemorySource(templates))}, opts...)
	engine, err := New(all...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = engine.Stop() })
	return engine
}

// renderString renders name with vars and requires success.
func renderString(t *testing.T, e *Engine, name string, vars map[string]any) string {
	t.Helper()
	out, err := e.Render(context.Background(), name, "", vars)
	require.NoError(t, err)
	return out
}
