package tessera

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.starlark.net/starlark"
)

// spanSyntax reports fixed spans; Compile yields the literal source.
type spanSyntax struct {
	name  string
	spans []Span
}

func (s *spanSyntax) Name() string                           { return s.name }
func (s *spanSyntax) FindOccurrences(string) []Span          { return s.spans }
func (s *spanSyntax) Compile(src string) (Expression, error) { return literalExpr(src), nil }

type literalExpr string

func (e literalExpr) Evaluate(*Context) (any, error) { return "<" + string(e) + ">", nil }
func (e literalExpr) Source() string                 { return string(e) }

func TestScanExpressions_OverlapRule(t *testing.T) {
	first := &spanSyntax{name: "first", spans: []Span{{Begin: 0, End: 4}, {Begin: 10, End: 14}}}
	second := &spanSyntax{name: "second", spans: []Span{{Begin: 0, End: 8}, {Begin: 2, End: 6}, {Begin: 10, End: 14}}}

	all := ScanExpressions("0123456789abcdef", []ExpressionSyntax{first, second})
	require.Len(t, all, 5)
	assert.Equal(t, Span{Begin: 0, End: 4}, all[0].Span, "aggregate order is (begin, end) ascending")

	got := ResolveOverlaps(all)
	want := []Occurrence{
		{Span: Span{Begin: 0, End: 8}, Syntax: 1},
		{Span: Span{Begin: 10, End: 14}, Syntax: 0},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ResolveOverlaps() mismatch (-want +got):\n%s", diff)
	}
}

func TestScanExpressions_DefaultSyntaxes(t *testing.T) {
	syntaxes := []ExpressionSyntax{NewVariableSyntax(), NewStarlarkSyntax()}
	text := "a ${x} b #{y + 1} c ${m|{d}}"
	occ := ResolveOverlaps(ScanExpressions(text, syntaxes))
	require.Len(t, occ, 3)
	assert.Equal(t, "${x}", text[occ[0].Begin:occ[0].End])
	assert.Equal(t, 1, occ[1].Syntax)
	assert.Equal(t, "${m|{d}}", text[occ[2].Begin:occ[2].End])
}

func TestVariableSyntax(t *testing.T) {
	s := NewVariableSyntax()
	c := NewContextWithVariables(map[string]any{
		"name":  "Alice",
		"user":  map[string]any{"address": map[string]string{"city": "Oslo"}},
		"items": []any{"a", "b"},
	})

	tests := []struct {
		source string
		want   any
	}{
		{"${name}", "Alice"},
		{"${ name }", "Alice"},
		{"${user.address.city}", "Oslo"},
		{"${items.1}", "b"},
		{"${missing|fallback}", "fallback"},
		{"${missing|}", ""},
		{"${name|fallback}", "Alice"},
		{"${missing|{x}}", "{x}"},
	}
	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			expr, err := s.Compile(tt.source)
			require.NoError(t, err)
			assert.Equal(t, tt.source, expr.Source())
			got, err := expr.Evaluate(c)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("missing without default", func(t *testing.T) {
		expr, err := s.Compile("${user.phone}")
		require.NoError(t, err)
		_, err = expr.Evaluate(c)
		require.Error(t, err)
		assert.True(t, IsKind(err, KindExecution))
		assert.Contains(t, err.Error(), ErrMsgVariableNotFound)
		name, _ := Metadata(err, MetaKeyName)
		assert.Equal(t, "user.phone", name)
	})

	t.Run("index out of range", func(t *testing.T) {
		expr, _ := s.Compile("${items.5}")
		_, err := expr.Evaluate(c)
		assert.Error(t, err)
	})

	t.Run("empty path", func(t *testing.T) {
		_, err := s.Compile("${ }")
		require.Error(t, err)
		assert.True(t, IsKind(err, KindParse))
	})
}

func TestStarlarkSyntax(t *testing.T) {
	s := NewStarlarkSyntax()
	c := NewContextWithVariables(map[string]any{
		"name":  "Bob",
		"n":     20,
		"items": []any{1, 2, 3},
		"cfg":   map[string]any{"debug": true},
	})

	tests := []struct {
		source string
		want   any
	}{
		{"#{1 + 2}", 3},
		{"#{name + '!'}", "Bob!"},
		{"#{n * 2 + 2}", 42},
		{"#{n / 8}", 2.5},
		{"#{[x * 2 for x in items]}", []any{2, 4, 6}},
		{"#{cfg['debug']}", true},
		{"#{'yes' if n > 10 else 'no'}", "yes"},
		{"#{None}", nil},
		{"#{{'k': 1}}", map[string]any{"k": 1}},
	}
	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			expr, err := s.Compile(tt.source)
			require.NoError(t, err)
			got, err := expr.Evaluate(c)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("syntax error at compile time", func(t *testing.T) {
		_, err := s.Compile("#{1 +}")
		require.Error(t, err)
		assert.True(t, IsKind(err, KindParse))
	})

	t.Run("runtime error", func(t *testing.T) {
		expr, err := s.Compile("#{undefined_name}")
		require.NoError(t, err)
		_, err = expr.Evaluate(c)
		require.Error(t, err)
		assert.True(t, IsKind(err, KindExecution))
	})

	t.Run("functions from implicit object", func(t *testing.T) {
		r := NewRegistry(nil)
		require.NoError(t, r.RegisterFunction(Function{Name: "shout", Fn: func(args ...any) (any, error) {
			return strings.ToUpper(args[0].(string)) + "!", nil
		}}))
		root := NewContextWithVariables(map[string]any{"name": "ann"})
		require.NoError(t, root.AddImplicitObject(ImplicitFunctions, r))

		expr, err := s.Compile("#{shout(name)}")
		require.NoError(t, err)
		got, err := expr.Evaluate(root)
		require.NoError(t, err)
		assert.Equal(t, "ANN!", got)

		child := root.CreateSubcontext()
		child.SetVariable("name", "kid")
		got, err = expr.Evaluate(child)
		require.NoError(t, err)
		assert.Equal(t, "KID!", got, "functions are inherited by subcontexts")

		kw, err := s.Compile("#{shout(x=name)}")
		require.NoError(t, err)
		_, err = kw.Evaluate(root)
		require.Error(t, err)
		assert.True(t, IsKind(err, KindExecution))
		assert.Contains(t, err.Error(), ErrMsgExpressionFailed)
	})
}

func TestStarlarkConversion(t *testing.T) {
	values := []any{
		nil, "s", true, 7, 1.5,
		[]any{"a", 1},
		map[string]any{"k": []any{"v"}},
	}
	for _, v := range values {
		sv, err := ToStarlark(v)
		require.NoError(t, err)
		assert.Equal(t, v, FromStarlark(sv))
	}

	sv, err := ToStarlark([]string{"x"})
	require.NoError(t, err)
	assert.Equal(t, []any{"x"}, FromStarlark(sv))

	sv, err = ToStarlark(map[string]string{"k": "v"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"k": "v"}, FromStarlark(sv))

	assert.Equal(t, []any{1, "a"}, FromStarlark(starlark.Tuple{starlark.MakeInt(1), starlark.String("a")}))
}

func TestStringify(t *testing.T) {
	tests := []struct {
		value any
		want  string
	}{
		{nil, ""},
		{"s", "s"},
		{3, "3"},
		{2.5, "2.5"},
		{10.0, "10"},
		{true, "true"},
		{[]any{"a", 1, nil}, "[a, 1, ]"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Stringify(tt.value))
	}
}

func TestInterpolationParameter(t *testing.T) {
	env := &ParseEnv{Syntaxes: []ExpressionSyntax{NewVariableSyntax(), NewStarlarkSyntax()}}
	c := NewContextWithVariables(map[string]any{"first": "Ada", "n": 2})

	literal, err := env.CompileParameter("p", "plain", Location{})
	require.NoError(t, err)
	assert.False(t, literal.IsExpression())
	assert.Equal(t, "plain", literal.Source())

	single, err := env.CompileParameter("p", "${n}", Location{})
	require.NoError(t, err)
	v, err := single.Value(c)
	require.NoError(t, err)
	assert.Equal(t, 2, v, "a single expression keeps its type")

	mixed, err := env.CompileParameter("p", "${first} #{n + 1}x", Location{})
	require.NoError(t, err)
	v, err = mixed.Value(c)
	require.NoError(t, err)
	assert.Equal(t, "Ada 3x", v)
	assert.Equal(t, "${first} #{n + 1}x", mixed.Source())

	_, err = env.CompileParameter("p", "#{1 +}", Location{Template: "t", Line: 2})
	require.Error(t, err)
	assert.True(t, IsKind(err, KindParse))
}
