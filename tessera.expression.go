package tessera

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/itsatony/go-cuserr"
	"github.com/itsatony/go-tessera/internal"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// Expression is a compiled expression evaluated against a context.
// Implementations must be immutable so templates can be shared.
type Expression interface {
	Evaluate(c *Context) (any, error)
	Source() string
}

// ExpressionSyntax recognizes and compiles one expression notation.
// FindOccurrences reports byte spans over the original text; Compile
// receives the text of one reported span, delimiters included.
type ExpressionSyntax interface {
	Name() string
	FindOccurrences(text string) []Span
	Compile(source string) (Expression, error)
}

// Span is a half-open byte range over scanned text.
type Span = internal.Span

// Occurrence is a span tagged with the index of its recognizing syntax.
type Occurrence = internal.Occurrence

// Expression syntax names and delimiters
const (
	SyntaxNameVariable = "variable"
	SyntaxNameStarlark = "starlark"

	VariableOpen     = "${"
	StarlarkOpen     = "#{"
	ExpressionNest   = '{'
	ExpressionClose  = '}'
	PathSeparator    = "."
	DefaultSeparator = "|"
)

// ImplicitFunctions is the implicit object through which expressions reach
// the engine's function registry.
const ImplicitFunctions = "functions"

// FunctionSet looks up registered functions. *Registry implements it.
type FunctionSet interface {
	Function(name string) (Function, bool)
	Functions() []Function
}

// syntaxFinder adapts an ExpressionSyntax to the internal scanner.
type syntaxFinder struct {
	syntax ExpressionSyntax
}

func (f syntaxFinder) FindOccurrences(text string) []internal.Span {
	return f.syntax.FindOccurrences(text)
}

// ScanExpressions returns the occurrences of every syntax over text, ordered
// by (begin, end). Overlapping occurrences are all reported.
func ScanExpressions(text string, syntaxes []ExpressionSyntax) []Occurrence {
	finders := make([]internal.Finder, len(syntaxes))
	for i, s := range syntaxes {
		finders[i] = syntaxFinder{syntax: s}
	}
	return internal.ScanOccurrences(text, finders)
}

// ResolveOverlaps selects a non-overlapping subset of occurrences: leftmost
// begin first, then the longest span, then the syntax registered first.
func ResolveOverlaps(occurrences []Occurrence) []Occurrence {
	return internal.ResolveOverlaps(occurrences)
}

// Stringify renders an expression value as output text. nil renders as
// the empty string.
func Stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case []any:
		parts := make([]string, len(val))
		for i, item := range val {
			parts[i] = Stringify(item)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return fmt.Sprint(val)
	}
}

// ResolvePath resolves a dot-notation path. The first segment is looked up
// with FindVariable; later segments descend into maps and lists.
func ResolvePath(c *Context, path string) (any, bool) {
	parts := strings.Split(path, PathSeparator)
	current, ok := c.FindVariable(parts[0])
	if !ok {
		return nil, false
	}
	for _, part := range parts[1:] {
		if part == "" {
			continue
		}
		switch v := current.(type) {
		case map[string]any:
			if current, ok = v[part]; !ok {
				return nil, false
			}
		case map[string]string:
			s, found := v[part]
			if !found {
				return nil, false
			}
			current = s
		case []any:
			idx, err := strconv.Atoi(part)
			if err != nil || idx < 0 || idx >= len(v) {
				return nil, false
			}
			current = v[idx]
		default:
			return nil, false
		}
	}
	return current, true
}

// newExpressionError reports a failed evaluation.
func newExpressionError(msg, source string, cause error) *cuserr.CustomError {
	return newEngineError(KindExecution, msg, cause).
		WithMetadata(MetaKeyFragment, source)
}

// VariableSyntax implements ${path} and ${path|default}.
type VariableSyntax struct{}

// NewVariableSyntax creates the variable syntax.
func NewVariableSyntax() *VariableSyntax {
	return &VariableSyntax{}
}

// Name implements ExpressionSyntax.
func (s *VariableSyntax) Name() string { return SyntaxNameVariable }

// FindOccurrences implements ExpressionSyntax.
func (s *VariableSyntax) FindOccurrences(text string) []Span {
	return internal.FindDelimited(text, VariableOpen, ExpressionNest, ExpressionClose)
}

// Compile implements ExpressionSyntax.
func (s *VariableSyntax) Compile(source string) (Expression, error) {
	body, ok := unwrapDelimited(source, VariableOpen)
	if !ok {
		return nil, NewParseError(ErrMsgInvalidExpression, Location{}, source, nil)
	}
	expr := &variableExpression{source: source}
	if idx := strings.Index(body, DefaultSeparator); idx >= 0 {
		expr.fallback = body[idx+len(DefaultSeparator):]
		expr.hasFallback = true
		body = body[:idx]
	}
	expr.path = strings.TrimSpace(body)
	if expr.path == "" {
		return nil, NewParseError(ErrMsgInvalidExpression, Location{}, source, nil)
	}
	return expr, nil
}

// variableExpression is a compiled ${...} reference.
type variableExpression struct {
	source      string
	path        string
	fallback    string
	hasFallback bool
}

func (e *variableExpression) Source() string { return e.source }

func (e *variableExpression) Evaluate(c *Context) (any, error) {
	if v, ok := ResolvePath(c, e.path); ok {
		return v, nil
	}
	if e.hasFallback {
		return e.fallback, nil
	}
	return nil, newExpressionError(ErrMsgVariableNotFound, e.source, nil).
		WithMetadata(MetaKeyName, e.path)
}

// StarlarkSyntax implements #{expr}, evaluated as a Starlark expression.
// Visible variables and registered functions are predeclared.
type StarlarkSyntax struct{}

// NewStarlarkSyntax creates the Starlark syntax.
func NewStarlarkSyntax() *StarlarkSyntax {
	return &StarlarkSyntax{}
}

// Name implements ExpressionSyntax.
func (s *StarlarkSyntax) Name() string { return SyntaxNameStarlark }

// FindOccurrences implements ExpressionSyntax.
func (s *StarlarkSyntax) FindOccurrences(text string) []Span {
	return internal.FindDelimited(text, StarlarkOpen, ExpressionNest, ExpressionClose)
}

// Compile checks the expression syntax once so malformed expressions fail
// at parse time.
func (s *StarlarkSyntax) Compile(source string) (Expression, error) {
	body, ok := unwrapDelimited(source, StarlarkOpen)
	if !ok || strings.TrimSpace(body) == "" {
		return nil, NewParseError(ErrMsgInvalidExpression, Location{}, source, nil)
	}
	body = strings.TrimSpace(body)
	if _, err := syntax.ParseExpr(StarlarkFilename, body, 0); err != nil {
		return nil, NewParseError(ErrMsgInvalidExpression, Location{}, source, err)
	}
	return &starlarkExpression{source: source, body: body}, nil
}

// StarlarkFilename names evaluated expressions in Starlark diagnostics.
const StarlarkFilename = "<expr>"

// starlarkExpression is a compiled #{...} expression.
type starlarkExpression struct {
	source string
	body   string
}

func (e *starlarkExpression) Source() string { return e.source }

func (e *starlarkExpression) Evaluate(c *Context) (any, error) {
	predeclared := make(starlark.StringDict)
	obj, ok := c.ImplicitObject(ImplicitFunctions)
	if !ok {
		obj, ok = c.LookupInheritedImplicit(ImplicitFunctions)
	}
	if ok {
		if fns, ok := obj.(FunctionSet); ok {
			for _, fn := range fns.Functions() {
				predeclared[fn.Name] = starlarkBuiltin(fn)
			}
		}
	}
	for name, v := range c.Variables() {
		sv, err := ToStarlark(v)
		if err != nil {
			return nil, newExpressionError(ErrMsgExpressionFailed, e.source, err)
		}
		predeclared[name] = sv
	}

	thread := &starlark.Thread{Name: StarlarkThreadName}
	val, err := starlark.Eval(thread, StarlarkFilename, e.body, predeclared)
	if err != nil {
		return nil, newExpressionError(ErrMsgExpressionFailed, e.source, err)
	}
	return FromStarlark(val), nil
}

// StarlarkThreadName names the Starlark thread of an evaluation.
const StarlarkThreadName = "tessera"

// starlarkBuiltin exposes a Function to Starlark. Keyword arguments are
// not supported.
func starlarkBuiltin(fn Function) *starlark.Builtin {
	return starlark.NewBuiltin(fn.Name, func(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		if len(kwargs) > 0 {
			return nil, fmt.Errorf("%s: %s", b.Name(), ErrMsgKeywordArguments)
		}
		goArgs := make([]any, len(args))
		for i, a := range args {
			goArgs[i] = FromStarlark(a)
		}
		out, err := fn.Fn(goArgs...)
		if err != nil {
			return nil, fmt.Errorf("%s: %s: %w", b.Name(), ErrMsgFunctionFailed, err)
		}
		return ToStarlark(out)
	})
}

// ToStarlark converts a Go value to a Starlark value. Unknown types are
// converted through their string form.
func ToStarlark(v any) (starlark.Value, error) {
	switch val := v.(type) {
	case nil:
		return starlark.None, nil
	case starlark.Value:
		return val, nil
	case string:
		return starlark.String(val), nil
	case bool:
		return starlark.Bool(val), nil
	case int:
		return starlark.MakeInt(val), nil
	case int32:
		return starlark.MakeInt64(int64(val)), nil
	case int64:
		return starlark.MakeInt64(val), nil
	case float64:
		return starlark.Float(val), nil
	case []string:
		items := make([]starlark.Value, len(val))
		for i, s := range val {
			items[i] = starlark.String(s)
		}
		return starlark.NewList(items), nil
	case []any:
		items := make([]starlark.Value, len(val))
		for i, item := range val {
			sv, err := ToStarlark(item)
			if err != nil {
				return nil, err
			}
			items[i] = sv
		}
		return starlark.NewList(items), nil
	case map[string]string:
		dict := starlark.NewDict(len(val))
		for k, s := range val {
			if err := dict.SetKey(starlark.String(k), starlark.String(s)); err != nil {
				return nil, err
			}
		}
		return dict, nil
	case map[string]any:
		dict := starlark.NewDict(len(val))
		for k, item := range val {
			sv, err := ToStarlark(item)
			if err != nil {
				return nil, err
			}
			if err := dict.SetKey(starlark.String(k), sv); err != nil {
				return nil, err
			}
		}
		return dict, nil
	default:
		return starlark.String(fmt.Sprint(val)), nil
	}
}

// FromStarlark converts a Starlark value to a plain Go value.
func FromStarlark(v starlark.Value) any {
	switch val := v.(type) {
	case nil, starlark.NoneType:
		return nil
	case starlark.String:
		return string(val)
	case starlark.Bool:
		return bool(val)
	case starlark.Int:
		if i, ok := val.Int64(); ok {
			return int(i)
		}
		return val.String()
	case starlark.Float:
		return float64(val)
	case *starlark.List:
		items := make([]any, val.Len())
		for i := 0; i < val.Len(); i++ {
			items[i] = FromStarlark(val.Index(i))
		}
		return items
	case starlark.Tuple:
		items := make([]any, len(val))
		for i, item := range val {
			items[i] = FromStarlark(item)
		}
		return items
	case *starlark.Dict:
		out := make(map[string]any, val.Len())
		for _, item := range val.Items() {
			key := item[0].String()
			if s, ok := item[0].(starlark.String); ok {
				key = string(s)
			}
			out[key] = FromStarlark(item[1])
		}
		return out
	default:
		return val.String()
	}
}

// unwrapDelimited strips open and the closing brace from source.
func unwrapDelimited(source, open string) (string, bool) {
	if !strings.HasPrefix(source, open) || !strings.HasSuffix(source, string(ExpressionClose)) {
		return "", false
	}
	return source[len(open) : len(source)-1], true
}

// interpolation concatenates literal text and expression output.
type interpolation struct {
	source string
	parts  []Node
}

func (e *interpolation) Source() string { return e.source }

func (e *interpolation) Evaluate(c *Context) (any, error) {
	var sb strings.Builder
	for _, p := range e.parts {
		switch n := p.(type) {
		case *TextNode:
			sb.WriteString(n.Text)
		case *ExpressionNode:
			v, err := n.Expr.Evaluate(c)
			if err != nil {
				return nil, err
			}
			sb.WriteString(Stringify(v))
		}
	}
	return sb.String(), nil
}
