// Package tessera is the execution core of a template engine with a
// pluggable action pipeline.
//
// Templates are parsed once per (name, parser) pair, cached, and rendered
// against a scoped execution context. Text is written as is, expressions
// are evaluated and stringified, and action nodes run through a two-phase
// interception pipeline.
//
// # Basic Usage
//
//	src := tessera.NewMemorySource(map[string]string{
//	    "hello": "Hello ${name|World}!\n",
//	})
//	engine := tessera.MustNew(tessera.WithSource(src))
//	defer engine.Stop()
//
//	out, err := engine.Render(ctx, "hello", "", map[string]any{"name": "Alice"})
//	// out: "Hello Alice!\n"
//
// # Text Templates
//
// The default parser is line oriented. Lines starting with "%" are
// instructions naming an action, its parameters and its contributions:
//
//	% set greeting=Hello
//	% each items=${people} var=p +indent(prefix="  ") {
//	${greeting}, ${p.name}!
//	% }
//
// # Expressions
//
// Two expression syntaxes are registered by default: ${path|default} for
// variable lookups and #{expr} for Starlark expressions, which see every
// visible variable and every registered function.
//
// # Actions and Contributions
//
// Actions are created by an ActionFactory registered through a Library.
// Contributions attach an Interceptor to one action instance; an
// interceptor wraps the creation phase, the execution phase or both, and
// skips the wrapped behavior by not calling Chain.Proceed:
//
//	skip := tessera.NewContributionFactory("skip", func(tessera.Params) (tessera.Interceptor, error) {
//	    return tessera.NewInterceptor(tessera.BothPhases,
//	        func(*tessera.Invocation, tessera.Phase, *tessera.Chain) error { return nil })
//	})
//
// # Errors
//
// Every error crossing the public API belongs to one family discriminated
// by kind (parse, resolution, execution, context, cache). Use KindOf or
// IsKind to inspect it and Metadata to read attached details.
package tessera
