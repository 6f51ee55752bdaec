package tessera

// NodeType identifies template node variants
type NodeType int

// Node type constants
const (
	NodeTypeText NodeType = iota
	NodeTypeExpression
	NodeTypeAction
)

// Node type string names for debugging
const (
	NodeTypeNameText       = "TEXT"
	NodeTypeNameExpression = "EXPRESSION"
	NodeTypeNameAction     = "ACTION"
)

// String returns the string representation of the node type
func (n NodeType) String() string {
	switch n {
	case NodeTypeExpression:
		return NodeTypeNameExpression
	case NodeTypeAction:
		return NodeTypeNameAction
	default:
		return NodeTypeNameText
	}
}

// Node is an element of a parsed template. Nodes are built once by a
// parser and never modified afterwards, so a cached template can be
// rendered by any number of goroutines at the same time.
type Node interface {
	Type() NodeType
	LineNumber() int
}

// TextNode is literal output.
type TextNode struct {
	Text string
	Line int
}

// Type implements Node.
func (n *TextNode) Type() NodeType { return NodeTypeText }

// LineNumber implements Node.
func (n *TextNode) LineNumber() int { return n.Line }

// ExpressionNode is an expression whose value is written to the output.
type ExpressionNode struct {
	Expr   Expression
	Syntax string
	Line   int
}

// Type implements Node.
func (n *ExpressionNode) Type() NodeType { return NodeTypeExpression }

// LineNumber implements Node.
func (n *ExpressionNode) LineNumber() int { return n.Line }

// Parameter is a named action or contribution argument backed either by a
// literal string or by an expression evaluated at use.
type Parameter struct {
	Name    string
	Literal string
	Expr    Expression
}

// LiteralParam creates a literal parameter.
func LiteralParam(name, value string) Parameter {
	return Parameter{Name: name, Literal: value}
}

// ExpressionParam creates an expression-backed parameter.
func ExpressionParam(name string, expr Expression) Parameter {
	return Parameter{Name: name, Expr: expr}
}

// IsExpression reports whether the parameter is expression-backed.
func (p Parameter) IsExpression() bool {
	return p.Expr != nil
}

// Value returns the literal, or evaluates the expression against c.
func (p Parameter) Value(c *Context) (any, error) {
	if p.Expr == nil {
		return p.Literal, nil
	}
	return p.Expr.Evaluate(c)
}

// Source returns the text the parameter was written as.
func (p Parameter) Source() string {
	if p.Expr == nil {
		return p.Literal
	}
	return p.Expr.Source()
}

// ContributionRef attaches a contribution to an action node.
type ContributionRef struct {
	Name    string
	Factory ContributionFactory
	Args    []Parameter
}

// ActionNode is an executable node.
type ActionNode struct {
	Name          string
	Factory       ActionFactory
	Params        []Parameter
	Contributions []ContributionRef // authoring order
	Children      []Node
	Line          int
}

// Type implements Node.
func (n *ActionNode) Type() NodeType { return NodeTypeAction }

// LineNumber implements Node.
func (n *ActionNode) LineNumber() int { return n.Line }

// Param returns the parameter with the given name.
func (n *ActionNode) Param(name string) (Parameter, bool) {
	for _, p := range n.Params {
		if p.Name == name {
			return p, true
		}
	}
	return Parameter{}, false
}

// Template is an immutable parsed template.
type Template struct {
	Name   string
	Parser string
	Nodes  []Node
}

// NewTemplate creates a template.
func NewTemplate(name, parser string, nodes []Node) *Template {
	return &Template{Name: name, Parser: parser, Nodes: nodes}
}

// Key returns the cache key identifying this template.
func (t *Template) Key() CacheKey {
	return CacheKey{Template: t.Name, Parser: t.Parser}
}

// Walk visits every node depth-first until fn returns false.
func (t *Template) Walk(fn func(Node) bool) {
	walkNodes(t.Nodes, fn)
}

// walkNodes visits nodes depth-first and reports whether to continue.
func walkNodes(nodes []Node, fn func(Node) bool) bool {
	for _, n := range nodes {
		if !fn(n) {
			return false
		}
		if a, ok := n.(*ActionNode); ok {
			if !walkNodes(a.Children, fn) {
				return false
			}
		}
	}
	return true
}

// NodeCount returns the total number of nodes in the template.
func (t *Template) NodeCount() int {
	count := 0
	t.Walk(func(Node) bool {
		count++
		return true
	})
	return count
}
