package tessera

import (
	"context"
	"errors"
	"strings"

	"github.com/itsatony/go-tessera/internal"
	"go.uber.org/zap"
)

// Text template syntax
const (
	InstructionPrefix = "%"
	EscapedPrefix     = "%%"
	CommentPrefix     = "#"
	BlockOpen         = "{"
	BlockClose        = "}"
	ContributionMark  = "+"
	ParamAssign       = "="
)

// instructionTokenizer splits an instruction line into words. Double
// quotes group words and are stripped; parentheses and braces group
// without being stripped, and everything inside them is kept as written.
var instructionTokenizer = internal.MustNewTokenizer(internal.SplitConfig{
	Separators: []string{`\s+`},
	Escape:     internal.CharBackslash,
	Quotes: []internal.QuotePair{
		{Open: internal.CharDoubleQuote, Close: internal.CharDoubleQuote},
		{Open: internal.CharOpenParen, Close: internal.CharCloseParen, Keep: true},
		{Open: '{', Close: '}', Keep: true},
	},
})

// argumentTokenizer splits the argument list of a contribution.
var argumentTokenizer = internal.MustNewTokenizer(internal.SplitConfig{
	Separators: []string{`,\s*`},
	Escape:     internal.CharBackslash,
	Quotes: []internal.QuotePair{
		{Open: internal.CharDoubleQuote, Close: internal.CharDoubleQuote},
		{Open: internal.CharOpenParen, Close: internal.CharCloseParen, Keep: true},
		{Open: '{', Close: '}', Keep: true},
	},
})

// TextParser parses the line-oriented text template language.
//
// Lines starting with "%" are instructions, every other line is output
// text in which expressions are expanded:
//
//	% set name=World
//	Hello ${name}!
//	% each items=${list} var=item +indent(prefix="  ") {
//	- ${item}
//	% }
//	% # a comment
//	%% a line starting with a literal percent sign
//
// An instruction ending in "{" opens a body closed by "% }".
type TextParser struct{}

// NewTextParser creates the text parser.
func NewTextParser() *TextParser {
	return &TextParser{}
}

// Name implements Parser.
func (p *TextParser) Name() string { return DefaultParserName }

// ParseTemplate implements Parser.
func (p *TextParser) ParseTemplate(ctx context.Context, name string, env *ParseEnv) (*Template, error) {
	if err := ValidateTemplateName(name); err != nil {
		return nil, err
	}
	text, err := env.Source.Load(ctx, name)
	if err != nil {
		return nil, err
	}
	nodes, err := p.Parse(name, text, env)
	if err != nil {
		return nil, err
	}
	tmpl := NewTemplate(name, p.Name(), nodes)

	logger := env.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Debug(LogMsgTemplateParsed,
		zap.String(LogFieldTemplate, name),
		zap.Int(LogFieldNodes, tmpl.NodeCount()))
	return tmpl, nil
}

// openBlock is an action node whose body is being collected.
type openBlock struct {
	node *ActionNode
}

// Parse parses text without consulting a source.
func (p *TextParser) Parse(name, text string, env *ParseEnv) ([]Node, error) {
	var (
		root  []Node
		stack []openBlock
	)
	appendNodes := func(nodes ...Node) {
		if len(stack) == 0 {
			root = append(root, nodes...)
			return
		}
		top := stack[len(stack)-1].node
		top.Children = append(top.Children, nodes...)
	}

	lines := strings.SplitAfter(text, "\n")
	for i, line := range lines {
		if line == "" {
			continue
		}
		loc := Location{Template: name, Line: i + 1}

		if !strings.HasPrefix(line, InstructionPrefix) {
			nodes, err := env.CompileText(line, loc)
			if err != nil {
				return nil, err
			}
			appendNodes(nodes...)
			continue
		}
		if strings.HasPrefix(line, EscapedPrefix) {
			nodes, err := env.CompileText(line[len(InstructionPrefix):], loc)
			if err != nil {
				return nil, err
			}
			appendNodes(nodes...)
			continue
		}

		body := strings.TrimSpace(line[len(InstructionPrefix):])
		switch {
		case body == "":
			return nil, NewParseError(ErrMsgInvalidInstruction, loc, strings.TrimRight(line, "\n"), nil)
		case strings.HasPrefix(body, CommentPrefix):
			continue
		case body == BlockClose:
			if len(stack) == 0 {
				return nil, NewParseError(ErrMsgUnbalancedBlock, loc, body, nil)
			}
			stack = stack[:len(stack)-1]
			continue
		}

		node, opens, err := p.parseInstruction(body, loc, env)
		if err != nil {
			return nil, err
		}
		appendNodes(node)
		if opens {
			stack = append(stack, openBlock{node: node})
		}
	}

	if len(stack) > 0 {
		open := stack[len(stack)-1].node
		return nil, NewParseError(ErrMsgUnclosedBlock, Location{Template: name, Line: open.Line}, open.Name, nil)
	}
	return root, nil
}

// parseInstruction parses "name key=value ... +contrib(k=v, ...) [{]".
func (p *TextParser) parseInstruction(body string, loc Location, env *ParseEnv) (*ActionNode, bool, error) {
	opens := false
	if body == BlockOpen {
		return nil, false, NewParseError(ErrMsgInvalidInstruction, loc, body, nil)
	}
	if strings.HasSuffix(body, " "+BlockOpen) || strings.HasSuffix(body, "\t"+BlockOpen) {
		opens = true
		body = strings.TrimSpace(strings.TrimSuffix(body, BlockOpen))
	}

	words, err := splitWords(instructionTokenizer, body, loc)
	if err != nil {
		return nil, false, err
	}

	node := &ActionNode{Name: words[0], Line: loc.Line}
	factory, err := env.Registry.ResolveAction(node.Name)
	if err != nil {
		return nil, false, withLocation(err, loc.Template, loc.Line)
	}
	node.Factory = factory

	for _, word := range words[1:] {
		if strings.HasPrefix(word, ContributionMark) {
			ref, err := p.parseContribution(word, loc, env)
			if err != nil {
				return nil, false, err
			}
			node.Contributions = append(node.Contributions, ref)
			continue
		}
		param, err := parseAssignment(word, loc, env)
		if err != nil {
			return nil, false, err
		}
		node.Params = append(node.Params, param)
	}
	return node, opens, nil
}

// parseContribution parses "+name" or "+name(k=v, ...)".
func (p *TextParser) parseContribution(word string, loc Location, env *ParseEnv) (ContributionRef, error) {
	spec := strings.TrimPrefix(word, ContributionMark)
	ref := ContributionRef{Name: spec}

	if open := strings.IndexRune(spec, internal.CharOpenParen); open >= 0 {
		if !strings.HasSuffix(spec, string(internal.CharCloseParen)) {
			return ContributionRef{}, NewParseError(ErrMsgInvalidContribution, loc, word, nil)
		}
		ref.Name = spec[:open]
		inner := strings.TrimSpace(spec[open+1 : len(spec)-1])
		if inner != "" {
			args, err := splitWords(argumentTokenizer, inner, loc)
			if err != nil {
				return ContributionRef{}, err
			}
			for _, arg := range args {
				param, err := parseAssignment(arg, loc, env)
				if err != nil {
					return ContributionRef{}, err
				}
				ref.Args = append(ref.Args, param)
			}
		}
	}
	if ref.Name == "" {
		return ContributionRef{}, NewParseError(ErrMsgInvalidContribution, loc, word, nil)
	}

	factory, err := env.Registry.ResolveContribution(ref.Name)
	if err != nil {
		return ContributionRef{}, withLocation(err, loc.Template, loc.Line)
	}
	ref.Factory = factory
	return ref, nil
}

// parseAssignment parses "key=value" into a parameter.
func parseAssignment(word string, loc Location, env *ParseEnv) (Parameter, error) {
	key, value, ok := strings.Cut(word, ParamAssign)
	if !ok || key == "" {
		return Parameter{}, NewParseError(ErrMsgInvalidParameter, loc, word, nil)
	}
	return env.CompileParameter(key, value, loc)
}

// splitWords tokenizes text, dropping empty tokens.
func splitWords(t *internal.Tokenizer, text string, loc Location) ([]string, error) {
	segments, err := t.Split(text)
	if err != nil {
		fragment := text
		msg := ErrMsgInvalidInstruction
		var terr *internal.TokenizerError
		if errors.As(err, &terr) {
			fragment = terr.Fragment
			msg = terr.Message
		}
		return nil, NewParseError(msg, loc, fragment, err)
	}
	var words []string
	for _, token := range internal.Tokens(segments) {
		if token != "" {
			words = append(words, token)
		}
	}
	if len(words) == 0 {
		return nil, NewParseError(ErrMsgInvalidInstruction, loc, text, nil)
	}
	return words, nil
}
