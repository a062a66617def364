// Package ast defines the abstract syntax tree produced by lowering a
// cst.Tree. The AST discards syntactic noise (punctuation, section
// keywords, comments), normalises repetition and binding onto a common
// PatternElement, and keeps only source locations needed for diagnostics.
// Types are ported from the original implementation's abstract.h, with
// its compound/lookup mix-in templates flattened into plain Go slices and
// maps per spec Design Notes §9.
package ast

import (
	"strings"

	"github.com/nyxlang/nyxc/token"
)

// Identifier is an ordered sequence of name components; canonical form is
// the dot-joined string. Invariant 1: every Identifier has >=1 component.
type Identifier struct {
	Parts []string
	Pos   token.Position
}

func NewIdentifier(pos token.Position, parts ...string) Identifier {
	return Identifier{Parts: append([]string{}, parts...), Pos: pos}
}

func (id Identifier) String() string { return strings.Join(id.Parts, ".") }

func (id Identifier) IsSimple() bool { return len(id.Parts) == 1 }

// Join builds a new identifier a.b by concatenating the parts of a and b,
// used when synthesising FQNs for import-derived aliases.
func Join(a, b Identifier) Identifier {
	parts := append(append([]string{}, a.Parts...), b.Parts...)
	return Identifier{Parts: parts, Pos: a.Pos}
}

// Import is one @import statement: a module path, an optional single
// imported element name, and an optional local alias.
type Import struct {
	Module  Identifier
	Element *Identifier
	Alias   *Identifier
	Pos     token.Position
}

func (im Import) HasElement() bool { return im.Element != nil }
func (im Import) HasAlias() bool   { return im.Alias != nil }

// Alias maps a new local name to an original identifier.
type Alias struct {
	Original Identifier
	New      Identifier
}

// PatternElement is the common shape shared by SimplePattern,
// CompoundPattern and Match: an optional repetition bound (always defined
// after lowering, invariant 4) and an optional binding name.
type PatternElement struct {
	Min, Max string // numeric strings; Max == "-1" means unbounded
	Binding  string // empty if unbound
	Pos      token.Position

	// Exactly one of the following is set, discriminating the variant.
	Simple   *SimplePattern
	Compound *CompoundPattern
	Match    *Match
}

func (p *PatternElement) IsSimple() bool   { return p.Simple != nil }
func (p *PatternElement) IsCompound() bool { return p.Compound != nil }
func (p *PatternElement) IsMatch() bool    { return p.Match != nil }

// SimplePattern is a single literal token or a single identifier
// reference. Exactly one of Token/Ident is set.
type SimplePattern struct {
	Token *token.Token
	Ident *Identifier
}

func (s *SimplePattern) IsToken() bool      { return s.Token != nil }
func (s *SimplePattern) IsIdentifier() bool { return s.Ident != nil }

// CompoundPattern is an ordered sequence of pattern elements (from a
// parenthesised list).
type CompoundPattern struct {
	Elements []*PatternElement
}

// MatchCase is one `key => identifier` arm of a @match form. Key is
// either a numeric or string literal token.
type MatchCase struct {
	Key   token.Token
	Value Identifier
}

// Match is a @match form: a discriminant identifier and an ordered list
// of cases.
type Match struct {
	Discriminant Identifier
	Cases        []MatchCase
}

// StorageField is one named field, optionally bound to a type identifier.
type StorageField struct {
	Name string
	Type *Identifier
}

func (f StorageField) HasType() bool { return f.Type != nil }

// Sexpr is one s-expression atom: a token, an identifier, or a nested
// s-expression (its own atom slice). Exactly one of the three is set.
// This is the flattened equivalent of the original's linked-list-of-
// variants representation (Design Notes §9): a plain slice preserves
// insertion order and nesting equally well.
type Sexpr struct {
	Tok   *token.Token
	Ident *Identifier
	Sub   []Sexpr
}

func (s Sexpr) IsToken() bool      { return s.Tok != nil }
func (s Sexpr) IsIdentifier() bool { return s.Ident != nil }
func (s Sexpr) IsSexpr() bool      { return s.Tok == nil && s.Ident == nil }

// Code is a code snippet's head: the top-level s-expression of an
// encode/decode/validate section.
type Code struct {
	Sexpr Sexpr
}

// Rule is one named rule: identifier, ordered alternatives (the pattern
// list), optional storage fields, and optional encode/decode/validate
// code.
type Rule struct {
	Name       string
	Pos        token.Position
	Pattern    []*PatternElement // one entry per '|'-separated alternative
	Storage    []StorageField
	HasStorage bool
	Encode     *Code
	Decode     *Code
	Validate   *Code
}

func (r *Rule) HasEncode() bool   { return r.Encode != nil }
func (r *Rule) HasDecode() bool   { return r.Decode != nil }
func (r *Rule) HasValidate() bool { return r.Validate != nil }

// NamespaceKind distinguishes emitted namespaces from pure-reference
// modules.
type NamespaceKind int

const (
	EmitNamespace NamespaceKind = iota
	ModuleNamespace
)

// Namespace groups rules under one identifier, along with the alias and
// import tables built while lowering @alias/@import statements (and, for
// every named namespace, aliases synthesised by the registry from @import
// statements — see package registry).
type Namespace struct {
	Identifier Identifier
	Kind       NamespaceKind

	ruleOrder []string
	rules     map[string]*Rule

	aliasOrder []string
	aliases    map[string]Alias

	Imports []Import
}

func NewNamespace(ident Identifier, kind NamespaceKind) *Namespace {
	return &Namespace{
		Identifier: ident,
		Kind:       kind,
		rules:      map[string]*Rule{},
		aliases:    map[string]Alias{},
	}
}

// AddRule inserts or overwrites a rule by name (invariant 3: the last
// definition wins; a duplicate name is not a semantic error here).
func (ns *Namespace) AddRule(r *Rule) {
	if _, exists := ns.rules[r.Name]; !exists {
		ns.ruleOrder = append(ns.ruleOrder, r.Name)
	}
	ns.rules[r.Name] = r
}

func (ns *Namespace) Rule(name string) (*Rule, bool) {
	r, ok := ns.rules[name]
	return r, ok
}

// Rules returns the namespace's rules in source/insertion order.
func (ns *Namespace) Rules() []*Rule {
	out := make([]*Rule, 0, len(ns.ruleOrder))
	for _, name := range ns.ruleOrder {
		out = append(out, ns.rules[name])
	}
	return out
}

// AddAlias inserts or overwrites an alias by its new (local) name
// (invariant 2: at most one entry per new-name; redefinition warns,
// per spec §9 Open Questions, rather than erroring).
func (ns *Namespace) AddAlias(a Alias, warn func(format string, args ...any)) {
	key := a.New.String()
	if _, exists := ns.aliases[key]; exists && warn != nil {
		warn("alias %q redefined in namespace %q", key, ns.Identifier.String())
	}
	if _, exists := ns.aliases[key]; !exists {
		ns.aliasOrder = append(ns.aliasOrder, key)
	}
	ns.aliases[key] = a
}

func (ns *Namespace) Alias(name string) (Alias, bool) {
	a, ok := ns.aliases[name]
	return a, ok
}

// Aliases returns the namespace's aliases in insertion order.
func (ns *Namespace) Aliases() []Alias {
	out := make([]Alias, 0, len(ns.aliasOrder))
	for _, name := range ns.aliasOrder {
		out = append(out, ns.aliases[name])
	}
	return out
}

// SyntaxTree is one file's lowered AST: a mapping from namespace name to
// namespace. A nameless default namespace is always present (the current
// namespace before any @namespace/@module statement).
type SyntaxTree struct {
	FileName string

	order      []string
	namespaces map[string]*Namespace
}

func NewSyntaxTree(fileName string) *SyntaxTree {
	t := &SyntaxTree{FileName: fileName, namespaces: map[string]*Namespace{}}
	def := NewNamespace(Identifier{}, EmitNamespace)
	t.namespaces[""] = def
	t.order = []string{""}
	return t
}

func (t *SyntaxTree) Namespace(name string) (*Namespace, bool) {
	ns, ok := t.namespaces[name]
	return ns, ok
}

// AddNamespace inserts (or returns the existing) namespace by identifier,
// becoming the tree's new current namespace in the lowerer.
func (t *SyntaxTree) AddNamespace(ident Identifier, kind NamespaceKind) *Namespace {
	key := ident.String()
	if ns, ok := t.namespaces[key]; ok {
		ns.Kind = kind
		return ns
	}
	ns := NewNamespace(ident, kind)
	t.namespaces[key] = ns
	t.order = append(t.order, key)
	return ns
}

// Namespaces returns every namespace in the tree in insertion order,
// including the default nameless one.
func (t *SyntaxTree) Namespaces() []*Namespace {
	out := make([]*Namespace, 0, len(t.order))
	for _, key := range t.order {
		out = append(out, t.namespaces[key])
	}
	return out
}
