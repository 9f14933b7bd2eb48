package mountpoint

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
)

// tree-sitter-javascript node kinds the tree distinguishes.
const (
	jsNodeString         = "string"
	jsNodeIdentifier     = "identifier"
	jsNodeCallExpression = "call_expression"
	jsNodeArguments      = "arguments"
	jsNodeComment        = "comment"
	jsNodeParenthesized  = "parenthesized_expression"
	jsNodeError          = "ERROR"
)

const nearSnippetMaxBytes = 40

// Span is a half-open byte range [Start, End) of the parsed source.
type Span struct {
	Start int
	End   int
}

// Node is one of *StringLit, *CallExpr, *Ident or *Other.
type Node interface {
	Span() Span
	node()
}

// StringLit is a quoted string literal. Template strings are not StringLits.
type StringLit struct {
	span  Span
	Value string // decoded value
	Quote byte   // ' or "
	Body  string // source text between the quotes, escapes intact
}

// Ident is a plain identifier reference.
type Ident struct {
	span Span
	Name string
}

// CallExpr is a function call. Args holds the argument expressions without
// comments; Arguments is the whole argument list node and is what Walk visits.
type CallExpr struct {
	span      Span
	Callee    Node
	Arguments Node
	Args      []Node
	Optional  bool // f?.(x)
}

// Other is any grammar node the rewriter does not inspect.
type Other struct {
	span     Span
	Kind     string
	Children []Node
}

func (n *StringLit) Span() Span { return n.span }
func (n *Ident) Span() Span     { return n.span }
func (n *CallExpr) Span() Span  { return n.span }
func (n *Other) Span() Span     { return n.span }

func (*StringLit) node() {}
func (*Ident) node()     {}
func (*CallExpr) node()  {}
func (*Other) node()     {}

// Walk visits n and its descendants in source order. Returning false from fn
// skips the children of the node just visited.
func Walk(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	switch n := n.(type) {
	case *CallExpr:
		Walk(n.Callee, fn)
		Walk(n.Arguments, fn)
	case *Other:
		for _, c := range n.Children {
			Walk(c, fn)
		}
	}
}

// Parse parses JavaScript source into the tagged tree. The root is an *Other
// of kind "program" whose children are the top-level statements.
func Parse(ctx context.Context, src []byte) (Node, error) {
	return parse(ctx, "", src)
}

func parse(ctx context.Context, file string, src []byte) (Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("javascript parse canceled before start: %w", err)
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(javascript.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("javascript parse interrupted: %w", ctxErr)
		}
		return nil, fmt.Errorf("tree-sitter parse failed: %w", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return nil, newParseError(file, firstErrorNode(root), src)
	}
	return convert(root, src), nil
}

func convert(n *sitter.Node, src []byte) Node {
	span := Span{Start: int(n.StartByte()), End: int(n.EndByte())}

	switch n.Type() {
	case jsNodeString:
		text := string(src[span.Start:span.End])
		body := text[1 : len(text)-1]
		return &StringLit{span: span, Value: decodeString(body), Quote: text[0], Body: body}

	case jsNodeIdentifier:
		return &Ident{span: span, Name: n.Content(src)}

	case jsNodeCallExpression:
		call := &CallExpr{span: span}
		if fn := n.ChildByFieldName("function"); fn != nil {
			call.Callee = convert(fn, src)
		}
		call.Optional = n.ChildByFieldName("optional_chain") != nil
		if args := n.ChildByFieldName("arguments"); args != nil {
			call.Arguments = convert(args, src)
			if other, ok := call.Arguments.(*Other); ok && args.Type() == jsNodeArguments {
				for _, c := range other.Children {
					if o, ok := c.(*Other); ok && o.Kind == jsNodeComment {
						continue
					}
					call.Args = append(call.Args, c)
				}
			}
		}
		return call
	}

	other := &Other{span: span, Kind: n.Type()}
	count := int(n.NamedChildCount())
	if count > 0 {
		other.Children = make([]Node, 0, count)
	}
	for i := 0; i < count; i++ {
		if c := n.NamedChild(i); c != nil {
			other.Children = append(other.Children, convert(c, src))
		}
	}
	return other
}

// unparen strips redundant parentheses: ("/") is the literal "/".
func unparen(n Node) Node {
	for {
		o, ok := n.(*Other)
		if !ok || o.Kind != jsNodeParenthesized {
			return n
		}
		var inner Node
		for _, c := range o.Children {
			if co, ok := c.(*Other); ok && co.Kind == jsNodeComment {
				continue
			}
			if inner != nil {
				return n
			}
			inner = c
		}
		if inner == nil {
			return n
		}
		n = inner
	}
}

func firstErrorNode(n *sitter.Node) *sitter.Node {
	if n.Type() == jsNodeError || n.IsMissing() {
		return n
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if c == nil || (!c.HasError() && !c.IsMissing()) {
			continue
		}
		if found := firstErrorNode(c); found != nil {
			return found
		}
	}
	return n
}

func newParseError(file string, n *sitter.Node, src []byte) *ParseError {
	pt := n.StartPoint()
	pe := &ParseError{
		File:   file,
		Line:   int(pt.Row) + 1,
		Column: int(pt.Column) + 1,
		Reason: "unexpected input",
	}
	if n.IsMissing() {
		pe.Reason = "missing " + n.Type()
	}

	start := int(n.StartByte())
	end := int(n.EndByte())
	if end <= start {
		end = min(start+nearSnippetMaxBytes, len(src))
	}
	near := string(src[start:min(end, start+nearSnippetMaxBytes)])
	if i := strings.IndexAny(near, "\r\n"); i >= 0 {
		near = near[:i]
	}
	pe.Near = strings.TrimSpace(near)
	return pe
}
