package tessera

import (
	"context"

	"go.uber.org/zap"
)

// Parser turns template text into a Template. Parsers are stateless
// across calls and may be used by concurrent renders.
//
// ParseTemplate returns a parse error for unresolvable names and malformed
// content, and a resolution error for unknown action or contribution names.
type Parser interface {
	Name() string
	ParseTemplate(ctx context.Context, name string, env *ParseEnv) (*Template, error)
}

// ParseEnv gives a parser access to the engine's configuration.
type ParseEnv struct {
	Source   TemplateSource
	Registry *Registry
	Syntaxes []ExpressionSyntax
	Logger   *zap.Logger
}

// CompileText splits text into literal and expression nodes. Competing
// expression occurrences are resolved with ResolveOverlaps.
func (env *ParseEnv) CompileText(text string, loc Location) ([]Node, error) {
	occurrences := ResolveOverlaps(ScanExpressions(text, env.Syntaxes))

	nodes := make([]Node, 0, 2*len(occurrences)+1)
	pos := 0
	for _, o := range occurrences {
		if o.Begin > pos {
			nodes = append(nodes, &TextNode{Text: text[pos:o.Begin], Line: loc.Line})
		}
		syntax := env.Syntaxes[o.Syntax]
		source := text[o.Begin:o.End]
		expr, err := syntax.Compile(source)
		if err != nil {
			return nil, NewParseError(ErrMsgInvalidExpression, loc, source, err)
		}
		nodes = append(nodes, &ExpressionNode{Expr: expr, Syntax: syntax.Name(), Line: loc.Line})
		pos = o.End
	}
	if pos < len(text) {
		nodes = append(nodes, &TextNode{Text: text[pos:], Line: loc.Line})
	}
	return nodes, nil
}

// CompileParameter builds a parameter from its written value. A value
// consisting of a single expression is expression-backed; text mixing
// literals and expressions becomes an interpolation evaluated to a
// string; anything else is literal.
func (env *ParseEnv) CompileParameter(name, value string, loc Location) (Parameter, error) {
	nodes, err := env.CompileText(value, loc)
	if err != nil {
		return Parameter{}, err
	}
	switch {
	case len(nodes) == 0:
		return LiteralParam(name, ""), nil
	case len(nodes) == 1 && nodes[0].Type() == NodeTypeText:
		return LiteralParam(name, value), nil
	case len(nodes) == 1:
		return ExpressionParam(name, nodes[0].(*ExpressionNode).Expr), nil
	default:
		return ExpressionParam(name, &interpolation{source: value, parts: nodes}), nil
	}
}
