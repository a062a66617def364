package cst

import (
	"github.com/nyxlang/nyxc/diag"
	"github.com/nyxlang/nyxc/nyxerr"
	"github.com/nyxlang/nyxc/token"
)

// Parser consumes the full token vector in memory and produces a Tree.
// Each production below is a small explicit state machine, named and
// shaped after the original implementation's src/syntax/parser.cpp:
// every transition either consumes the next token, recurses into a
// sub-parser, or commits a partial structure; any unexpected token emits
// a diagnostic and fails the top-level parse.
type Parser struct {
	toks []token.Token
	pos  int
	sink diag.Sink
}

// NewParser builds a Parser over toks. toks must not contain the final
// EOF sentinel; Parse stops when it runs out of tokens.
func NewParser(toks []token.Token, sink diag.Sink) *Parser {
	return &Parser{toks: toks, sink: sink}
}

func (p *Parser) cur() token.Token {
	if p.pos >= len(p.toks) {
		return token.Token{Kind: token.EOF}
	}
	return p.toks[p.pos]
}

func (p *Parser) at(n int) token.Token {
	if p.pos+n >= len(p.toks) {
		return token.Token{Kind: token.EOF}
	}
	return p.toks[p.pos+n]
}

func (p *Parser) advance() token.Token {
	t := p.cur()
	if p.pos < len(p.toks) {
		p.pos++
	}
	return t
}

// skipEOL advances past EndOfLine tokens, used inside bracketed forms
// where newlines are not significant.
func (p *Parser) skipEOL() {
	for p.cur().Kind == token.EndOfLine {
		p.pos++
	}
}

func (p *Parser) unexpected(t token.Token) error {
	err := nyxerr.New(nyxerr.Parse, "unexpected token '%s'", t.Text).
		WithCaret(t.Pos.File, t.Pos.Line, t.Pos.Column, t.Pos.Text)
	if p.sink != nil {
		p.sink.Report(err)
	}
	return err
}

// Parse consumes the whole token vector and returns the CST root, one of
// Alias, Comment, Documentation, Import, Module, Namespace, Rule per
// top-level item.
func (p *Parser) Parse() (*Tree, error) {
	tree := &Tree{}
	for p.cur().Kind != token.EOF {
		if p.cur().Kind == token.EndOfLine {
			p.pos++
			continue
		}
		item, err := p.parseTopLevel()
		if err != nil {
			return nil, err
		}
		if item != nil {
			tree.Items = append(tree.Items, item)
		}
	}
	return tree, nil
}

func (p *Parser) parseTopLevel() (Node, error) {
	switch p.cur().Kind {
	case token.Alias:
		return p.parseAlias()
	case token.Comment:
		return p.parseCommentRun()
	case token.DocStart:
		return p.parseDocumentation()
	case token.Import:
		return p.parseImport()
	case token.Module:
		return p.parseModule()
	case token.Namespace:
		return p.parseNamespace()
	case token.Identifier:
		return p.parseRule()
	default:
		return nil, p.unexpected(p.cur())
	}
}

// parseAlias: '@alias' Identifier Identifier EOL.
func (p *Parser) parseAlias() (Node, error) {
	kw := p.advance()
	first, err := p.parseIdentifier()
	if err != nil {
		return nil, err
	}
	second, err := p.parseIdentifier()
	if err != nil {
		return nil, err
	}
	if p.cur().Kind != token.EndOfLine && p.cur().Kind != token.EOF {
		return nil, p.unexpected(p.cur())
	}
	return NewCompound(Alias, NewLeaf(kw), first, second), nil
}

// parseCommentRun merges consecutive single-line '#' comments separated
// only by EOL into one Comment node.
func (p *Parser) parseCommentRun() (Node, error) {
	var children []Node
	for p.cur().Kind == token.Comment {
		children = append(children, NewLeaf(p.advance()))
		for p.cur().Kind == token.EndOfLine && p.at(1).Kind == token.Comment {
			p.pos++
		}
	}
	return NewCompound(Comment, children...), nil
}

// parseDocumentation: '#++' ... comment lines ... '#--'.
func (p *Parser) parseDocumentation() (Node, error) {
	var children []Node
	children = append(children, NewLeaf(p.advance())) // #++
	for {
		switch p.cur().Kind {
		case token.EndOfLine:
			p.pos++
		case token.Comment:
			children = append(children, NewLeaf(p.advance()))
		case token.DocEnd:
			children = append(children, NewLeaf(p.advance()))
			return NewCompound(Documentation, children...), nil
		case token.EOF:
			return nil, p.unexpected(p.cur())
		default:
			return nil, p.unexpected(p.cur())
		}
	}
}

// parseIdentifier: one or more Identifier tokens separated by '.'; the
// dots are discarded, only identifier tokens are retained.
func (p *Parser) parseIdentifier() (Node, error) {
	if p.cur().Kind != token.Identifier {
		return nil, p.unexpected(p.cur())
	}
	var children []Node
	children = append(children, NewLeaf(p.advance()))
	for p.cur().Kind == token.Dot {
		p.pos++
		if p.cur().Kind != token.Identifier {
			return nil, p.unexpected(p.cur())
		}
		children = append(children, NewLeaf(p.advance()))
	}
	return NewCompound(Identifier, children...), nil
}

func (p *Parser) expectEOL() error {
	if p.cur().Kind != token.EndOfLine && p.cur().Kind != token.EOF {
		return p.unexpected(p.cur())
	}
	if p.cur().Kind == token.EndOfLine {
		p.pos++
	}
	return nil
}

// parseModule: '@module' Identifier EOL.
func (p *Parser) parseModule() (Node, error) {
	kw := p.advance()
	ident, err := p.parseIdentifier()
	if err != nil {
		return nil, err
	}
	if err := p.expectEOL(); err != nil {
		return nil, err
	}
	return NewCompound(Module, NewLeaf(kw), ident), nil
}

// parseNamespace: '@namespace' Identifier EOL.
func (p *Parser) parseNamespace() (Node, error) {
	kw := p.advance()
	ident, err := p.parseIdentifier()
	if err != nil {
		return nil, err
	}
	if err := p.expectEOL(); err != nil {
		return nil, err
	}
	return NewCompound(Namespace, NewLeaf(kw), ident), nil
}

// parseImport: '@import' Identifier ['from' Identifier] ['as' Identifier] EOL.
// 'from' and 'as' are plain identifiers recognised by text, not dedicated
// keyword lexemes — this matches tokenizer.cpp, which never tags them.
func (p *Parser) parseImport() (Node, error) {
	kw := p.advance()
	children := []Node{NewLeaf(kw)}

	module, err := p.parseIdentifier()
	if err != nil {
		return nil, err
	}
	children = append(children, module)

	if p.cur().Kind == token.Identifier && p.cur().Text == "from" {
		children = append(children, NewLeaf(p.advance()))
		ns, err := p.parseIdentifier()
		if err != nil {
			return nil, err
		}
		children = append(children, ns)
	}
	if p.cur().Kind == token.Identifier && p.cur().Text == "as" {
		children = append(children, NewLeaf(p.advance()))
		alias, err := p.parseIdentifier()
		if err != nil {
			return nil, err
		}
		children = append(children, alias)
	}
	if err := p.expectEOL(); err != nil {
		return nil, err
	}
	return NewCompound(Import, children...), nil
}

// parseRule: Identifier '{' section* '}'.
func (p *Parser) parseRule() (Node, error) {
	name, err := p.parseIdentifier()
	if err != nil {
		return nil, err
	}
	if p.cur().Kind != token.OpenCurly {
		return nil, p.unexpected(p.cur())
	}
	p.pos++
	children := []Node{name}

	for {
		p.skipEOL()
		switch p.cur().Kind {
		case token.CloseCurly:
			p.pos++
			return NewCompound(Rule, children...), nil
		case token.Pattern:
			sec, err := p.parsePatternSection()
			if err != nil {
				return nil, err
			}
			children = append(children, sec)
		case token.Storage:
			sec, err := p.parseStorageSection()
			if err != nil {
				return nil, err
			}
			children = append(children, sec)
		case token.Encode:
			sec, err := p.parseCodeSection(token.Encode, Encode)
			if err != nil {
				return nil, err
			}
			children = append(children, sec)
		case token.Decode:
			sec, err := p.parseCodeSection(token.Decode, Decode)
			if err != nil {
				return nil, err
			}
			children = append(children, sec)
		case token.Validate:
			sec, err := p.parseCodeSection(token.Validate, Validate)
			if err != nil {
				return nil, err
			}
			children = append(children, sec)
		case token.EOF:
			return nil, p.unexpected(p.cur())
		default:
			return nil, p.unexpected(p.cur())
		}
	}
}

// parsePatternSection: 'pattern:' alternative ('|' alternative)*.
func (p *Parser) parsePatternSection() (Node, error) {
	kw := p.advance()
	children := []Node{NewLeaf(kw)}
	for {
		alt, err := p.parseAlternative()
		if err != nil {
			return nil, err
		}
		children = append(children, alt)
		p.skipEOL()
		if p.cur().Kind == token.BitwiseOr {
			p.pos++
			continue
		}
		break
	}
	return NewCompound(Pattern, children...), nil
}

// parseAlternative parses one sequence of pattern elements, stopping at
// '|', a section keyword, or the rule's closing brace.
func (p *Parser) parseAlternative() (Node, error) {
	var elems []Node
	for {
		p.skipEOL()
		switch p.cur().Kind {
		case token.BitwiseOr, token.CloseCurly, token.Pattern, token.Encode, token.Decode, token.Storage, token.Validate, token.EOF:
			return NewCompound(List, elems...), nil
		}
		elem, err := p.parsePatternElement()
		if err != nil {
			return nil, err
		}
		elems = append(elems, elem)
	}
}

// parsePatternElement: literal token | '(' element* ')' | match form,
// optionally followed by a repetition ('{...}') and/or a binding ('=> ident').
func (p *Parser) parsePatternElement() (Node, error) {
	var base Node
	var err error

	switch p.cur().Kind {
	case token.Identifier, token.StringLiteral,
		token.DecimalLiteral, token.OctalLiteral, token.OctalPattern,
		token.BinaryLiteral, token.BinaryPattern,
		token.HexadecimalLiteral, token.HexadecimalPattern, token.FloatLiteral:
		base = NewLeaf(p.advance())
	case token.OpenParen:
		base, err = p.parsePatternList()
		if err != nil {
			return nil, err
		}
	case token.Match:
		base, err = p.parseMatch()
		if err != nil {
			return nil, err
		}
	default:
		return nil, p.unexpected(p.cur())
	}

	if p.cur().Kind == token.OpenCurly {
		base, err = p.parseRepetition(base)
		if err != nil {
			return nil, err
		}
	}
	if p.cur().Kind == token.Bind {
		bind := p.advance()
		p.skipEOL()
		if p.cur().Kind != token.Identifier {
			return nil, p.unexpected(p.cur())
		}
		name := p.advance()
		base = NewCompound(Bound, base, NewLeaf(bind), NewLeaf(name))
	}
	return base, nil
}

// parsePatternList: '(' element* ')'.
func (p *Parser) parsePatternList() (Node, error) {
	open := p.advance()
	children := []Node{NewLeaf(open)}
	for {
		p.skipEOL()
		if p.cur().Kind == token.CloseParen {
			children = append(children, NewLeaf(p.advance()))
			return NewCompound(List, children...), nil
		}
		if p.cur().Kind == token.EOF {
			return nil, p.unexpected(p.cur())
		}
		elem, err := p.parsePatternElement()
		if err != nil {
			return nil, err
		}
		children = append(children, elem)
	}
}

// parseRepetition: '{' (NUMBER [',' (NUMBER|'*')] | '?' | '+' | '*') '}'.
func (p *Parser) parseRepetition(base Node) (Node, error) {
	open := p.advance()
	children := []Node{base, NewLeaf(open)}
	for p.cur().Kind != token.CloseCurly {
		if p.cur().Kind == token.EOF {
			return nil, p.unexpected(p.cur())
		}
		children = append(children, NewLeaf(p.advance()))
	}
	children = append(children, NewLeaf(p.advance()))
	return NewCompound(Repetition, children...), nil
}

// parseMatch: '@match' '(' Identifier ')' '{' (key '=>' Identifier)+ '}'.
func (p *Parser) parseMatch() (Node, error) {
	kw := p.advance()
	if p.cur().Kind != token.OpenParen {
		return nil, p.unexpected(p.cur())
	}
	p.pos++
	discriminant, err := p.parseIdentifier()
	if err != nil {
		return nil, err
	}
	if p.cur().Kind != token.CloseParen {
		return nil, p.unexpected(p.cur())
	}
	p.pos++
	if p.cur().Kind != token.OpenCurly {
		return nil, p.unexpected(p.cur())
	}
	p.pos++

	children := []Node{NewLeaf(kw), discriminant}
	for {
		p.skipEOL()
		if p.cur().Kind == token.CloseCurly {
			p.pos++
			return NewCompound(Match, children...), nil
		}
		if p.cur().Kind == token.EOF {
			return nil, p.unexpected(p.cur())
		}
		key := p.advance()
		if p.cur().Kind != token.Bind {
			return nil, p.unexpected(p.cur())
		}
		bind := p.advance()
		p.skipEOL()
		value, err := p.parseIdentifier()
		if err != nil {
			return nil, err
		}
		children = append(children, NewCompound(List, NewLeaf(key), NewLeaf(bind), value))
	}
}

// parseStorageSection: 'storage:' (item | '[' item* ']').
func (p *Parser) parseStorageSection() (Node, error) {
	kw := p.advance()
	children := []Node{NewLeaf(kw)}
	if p.cur().Kind == token.OpenBracket {
		open := p.advance()
		inner := []Node{NewLeaf(open)}
		for {
			p.skipEOL()
			if p.cur().Kind == token.CloseBracket {
				inner = append(inner, NewLeaf(p.advance()))
				break
			}
			if p.cur().Kind == token.EOF {
				return nil, p.unexpected(p.cur())
			}
			item, err := p.parseStorageItem()
			if err != nil {
				return nil, err
			}
			inner = append(inner, item)
		}
		children = append(children, NewCompound(List, inner...))
		return NewCompound(Storage, children...), nil
	}
	item, err := p.parseStorageItem()
	if err != nil {
		return nil, err
	}
	children = append(children, item)
	return NewCompound(Storage, children...), nil
}

func (p *Parser) parseStorageItem() (Node, error) {
	if p.cur().Kind != token.Identifier {
		return nil, p.unexpected(p.cur())
	}
	name := p.advance()
	children := []Node{NewLeaf(name)}
	if p.cur().Kind == token.Bind {
		children = append(children, NewLeaf(p.advance()))
		typ, err := p.parseIdentifier()
		if err != nil {
			return nil, err
		}
		children = append(children, typ)
	}
	return NewCompound(Bound, children...), nil
}

// parseCodeSection: one of 'encode:'/'decode:'/'validate:' followed by a
// single s-expression.
func (p *Parser) parseCodeSection(_ token.Kind, kind Kind) (Node, error) {
	kw := p.advance()
	p.skipEOL()
	sexpr, err := p.parseSExpr()
	if err != nil {
		return nil, err
	}
	return NewCompound(kind, NewLeaf(kw), sexpr), nil
}

// isSExprAtom reports whether k is in the closed set of operator and
// literal lexemes usable inside an s-expression, per spec §4.2.
func isSExprAtom(k token.Kind) bool {
	return token.IsOperator(k) || token.IsNumeric(k, false) ||
		k == token.Identifier || k == token.StringLiteral
}

// parseSExpr: strictly parenthesised; children are operator/literal
// tokens from the whitelist, dotted identifiers, or nested s-expressions.
func (p *Parser) parseSExpr() (Node, error) {
	if p.cur().Kind != token.OpenParen {
		return nil, p.unexpected(p.cur())
	}
	open := p.advance()
	children := []Node{NewLeaf(open)}
	for {
		p.skipEOL()
		switch {
		case p.cur().Kind == token.CloseParen:
			children = append(children, NewLeaf(p.advance()))
			return NewCompound(SExpr, children...), nil
		case p.cur().Kind == token.OpenParen:
			nested, err := p.parseSExpr()
			if err != nil {
				return nil, err
			}
			children = append(children, nested)
		case p.cur().Kind == token.Identifier:
			ident, err := p.parseIdentifier()
			if err != nil {
				return nil, err
			}
			children = append(children, ident)
		case isSExprAtom(p.cur().Kind):
			children = append(children, NewLeaf(p.advance()))
		case p.cur().Kind == token.EOF:
			return nil, p.unexpected(p.cur())
		default:
			return nil, p.unexpected(p.cur())
		}
	}
}
