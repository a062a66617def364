// Package cst defines the concrete syntax tree produced by the parser.
// Every node is either a leaf wrapping one token.Token or a compound node
// carrying a kind tag from the closed set in spec §3 and an ordered child
// sequence. The CST preserves every token seen, including keywords and
// punctuation — it is a faithful reshaping of the token stream, not yet a
// semantic tree (that is the Abstract Lowerer's job, package ast).
package cst

import "github.com/nyxlang/nyxc/token"

// Kind is the closed set of compound CST node kinds.
type Kind int

const (
	Root Kind = iota
	Alias
	Bound
	Comment
	Decode
	Documentation
	Encode
	Identifier
	Import
	List
	Match
	Module
	Namespace
	Pattern
	Repetition
	Rule
	SExpr
	Storage
	Validate
)

var kindNames = [...]string{
	"Root", "Alias", "Bound", "Comment", "Decode", "Documentation",
	"Encode", "Identifier", "Import", "List", "Match", "Module",
	"Namespace", "Pattern", "Repetition", "Rule", "SExpr", "Storage",
	"Validate",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Kind(?)"
}

// Node is either a Leaf (one token) or a Compound (a kind tag plus
// ordered children). Both satisfy this interface.
type Node interface {
	// Pos returns the location of the node's first leaf.
	Pos() token.Position
	isNode()
}

// Leaf wraps a single token, retained verbatim from the token stream.
type Leaf struct {
	Tok token.Token
}

func (l *Leaf) Pos() token.Position { return l.Tok.Pos }
func (*Leaf) isNode()               {}

// NewLeaf wraps t as a CST leaf.
func NewLeaf(t token.Token) *Leaf { return &Leaf{Tok: t} }

// Compound is a typed interior node: a kind tag and an ordered child
// sequence. Its location is inherited from its first child.
type Compound struct {
	Kind     Kind
	Children []Node
}

func (c *Compound) Pos() token.Position {
	if len(c.Children) == 0 {
		return token.Position{}
	}
	return c.Children[0].Pos()
}
func (*Compound) isNode() {}

// NewCompound builds a compound node of the given kind over children.
func NewCompound(kind Kind, children ...Node) *Compound {
	return &Compound{Kind: kind, Children: children}
}

// Is reports whether n is a compound node of the given kind.
func Is(n Node, kind Kind) bool {
	c, ok := n.(*Compound)
	return ok && c.Kind == kind
}

// IsToken reports whether n is a leaf wrapping a token of the given kind.
func IsToken(n Node, kind token.Kind) bool {
	l, ok := n.(*Leaf)
	return ok && l.Tok.Kind == kind
}

// Tree is the parser's top-level output: an ordered list of top-level
// nodes, each one of Alias, Comment, Documentation, Import, Module,
// Namespace, Rule.
type Tree struct {
	Items []Node
}
