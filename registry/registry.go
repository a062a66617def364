// Package registry drives file discovery via imports, parses each
// transitively reachable file once, and builds the global fully-qualified
// name index described in spec §4.4. The parse/normalize/alias-synthesis
// algorithm is ported from the original implementation's
// src/registry.cpp.
package registry

import (
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/nyxlang/nyxc/ast"
	"github.com/nyxlang/nyxc/cst"
	"github.com/nyxlang/nyxc/diag"
	"github.com/nyxlang/nyxc/fs"
	"github.com/nyxlang/nyxc/invariant"
	"github.com/nyxlang/nyxc/lexer"
	"github.com/nyxlang/nyxc/nyxerr"
	"github.com/nyxlang/nyxc/token"
)

// builtinModule is the mandatory built-in module always parsed via
// filesystem search, regardless of whether the requested file imports it,
// matching Registry::parse's unconditional second parse call.
const builtinModule = "nyx.nyx"

// EntryKind discriminates what a fully qualified name resolves to.
type EntryKind int

const (
	EntryNamespace EntryKind = iota
	EntryRule
	EntryField
	EntryAlias
)

// Entry is one value in the global FQN index.
type Entry struct {
	Kind      EntryKind
	FQN       string
	OwnerFQN  string // owning namespace FQN, for Rule/Field/Alias entries
	Namespace *ast.Namespace
	Rule      *ast.Rule
	Field     *ast.StorageField
	Alias     *ast.Alias
}

// Registry owns every parsed AST, keyed by filename, plus the global FQN
// index built once all transitively reachable files have parsed
// successfully.
type Registry struct {
	fsys fs.FileSystem
	sink diag.Sink

	parsed  map[string]*ast.SyntaxTree
	emit    map[string]*ast.Namespace
	modules map[string]*ast.Namespace
	global  map[string]Entry
}

func New(fsys fs.FileSystem, sink diag.Sink) *Registry {
	return &Registry{
		fsys:    fsys,
		sink:    sink,
		parsed:  map[string]*ast.SyntaxTree{},
		emit:    map[string]*ast.Namespace{},
		modules: map[string]*ast.Namespace{},
		global:  map[string]Entry{},
	}
}

func (r *Registry) ASTs() map[string]*ast.SyntaxTree { return r.parsed }
func (r *Registry) Namespaces() map[string]*ast.Namespace { return r.emit }
func (r *Registry) Modules() map[string]*ast.Namespace    { return r.modules }

func (r *Registry) report(err *nyxerr.Error) error {
	if r.sink != nil {
		r.sink.Report(err)
	}
	return err
}

// Load parses filename (as a literal path, not searched) plus every file
// it transitively imports (always searched), then the mandatory built-in
// module, then builds the global FQN index.
func (r *Registry) Load(filename string) error {
	if err := r.parseFile(filename, false); err != nil {
		return err
	}
	if err := r.parseFile(builtinModule, true); err != nil {
		return err
	}
	r.normalize(r.emit)
	r.normalize(r.modules)
	return nil
}

func (r *Registry) parseFile(name string, search bool) error {
	if _, ok := r.parsed[name]; ok {
		return nil
	}

	path := name
	if search {
		located, ok := r.fsys.Locate(name)
		if !ok {
			return r.report(nyxerr.New(nyxerr.IO, "failed to locate %q on the search path", name))
		}
		path = located
	}

	content, err := r.fsys.ReadFile(path)
	if err != nil {
		return r.report(nyxerr.Wrap(nyxerr.IO, err, "failed to open %q for reading", path))
	}

	lx := lexer.New(path, content)
	var toks []token.Token
	for {
		t := lx.Next()
		if t.Kind == token.EOF {
			break
		}
		toks = append(toks, t)
	}

	tree, err := cst.NewParser(toks, r.sink).Parse()
	if err != nil {
		return err
	}
	syn, err := ast.Lower(tree, path, r.sink)
	if err != nil {
		return err
	}
	r.parsed[name] = syn

	for _, ns := range syn.Namespaces() {
		if ns.Identifier.String() == "" {
			continue
		}
		switch ns.Kind {
		case ast.EmitNamespace:
			r.emit[ns.Identifier.String()] = ns
		case ast.ModuleNamespace:
			r.modules[ns.Identifier.String()] = ns
		}
		for _, imp := range ns.Imports {
			r.synthesizeAlias(ns, imp)
			importName := imp.Module.String() + ".nyx"
			if err := r.parseFile(importName, true); err != nil {
				return err
			}
		}
	}
	return nil
}

// synthesizeAlias implements the four import-to-alias rules from spec
// §4.4 / testable property 5.
func (r *Registry) synthesizeAlias(ns *ast.Namespace, imp ast.Import) {
	warn := func(format string, args ...any) {
		if r.sink != nil {
			r.sink.Report(nyxerr.New(nyxerr.Lowering, format, args...))
		}
	}
	switch {
	case imp.HasAlias() && imp.HasElement():
		// @import E from M as A  ->  A -> M.E
		original := ast.Join(imp.Module, *imp.Element)
		ns.AddAlias(ast.Alias{Original: original, New: *imp.Alias}, warn)
	case imp.HasAlias():
		// @import M as A  ->  A -> M
		ns.AddAlias(ast.Alias{Original: imp.Module, New: *imp.Alias}, warn)
	case imp.HasElement():
		// @import E from M  ->  E -> M.E
		original := ast.Join(imp.Module, *imp.Element)
		ns.AddAlias(ast.Alias{Original: original, New: *imp.Element}, warn)
	default:
		// plain @import M: no alias synthesised
	}
}

// normalize builds the global FQN index from a side-index (emit or
// modules), per Registry::normalize: for every namespace, every rule,
// every rule's storage field, and every alias defined in it.
func (r *Registry) normalize(side map[string]*ast.Namespace) {
	for fqn, ns := range side {
		r.global[fqn] = Entry{Kind: EntryNamespace, FQN: fqn, Namespace: ns}
		for _, rule := range ns.Rules() {
			ruleFQN := fqn + "." + rule.Name
			ruleCopy := rule
			r.global[ruleFQN] = Entry{Kind: EntryRule, FQN: ruleFQN, OwnerFQN: fqn, Rule: ruleCopy}
			for i := range rule.Storage {
				field := rule.Storage[i]
				fieldFQN := ruleFQN + "." + field.Name
				r.global[fieldFQN] = Entry{Kind: EntryField, FQN: fieldFQN, OwnerFQN: ruleFQN, Field: &field}
			}
		}
		for _, a := range ns.Aliases() {
			alias := a
			aliasFQN := ast.Join(ns.Identifier, alias.New).String()
			r.global[aliasFQN] = Entry{Kind: EntryAlias, FQN: aliasFQN, OwnerFQN: fqn, Alias: &alias}
		}
	}
}

// Global returns the direct global FQN lookup.
func (r *Registry) Global(fqn string) (Entry, bool) {
	e, ok := r.global[fqn]
	return e, ok
}

// BadResolve reports the sentinel "not found" value.
func (r *Registry) BadResolve() Entry { return Entry{} }

// Resolve looks up ident within the scope of ns, per the two-branch
// policy in spec §4.4.
func (r *Registry) Resolve(ns *ast.Namespace, ident ast.Identifier) (Entry, bool) {
	invariant.NotNil(ns, "ns")
	if ident.IsSimple() {
		name := ident.Parts[0]
		if rule, ok := ns.Rule(name); ok {
			fqn := ns.Identifier.String() + "." + name
			return Entry{Kind: EntryRule, FQN: fqn, OwnerFQN: ns.Identifier.String(), Rule: rule}, true
		}
		if alias, ok := ns.Alias(name); ok {
			if alias.Original.IsSimple() {
				return r.Resolve(ns, alias.Original)
			}
			return r.Global(alias.Original.String())
		}
		return r.Global("nyx." + name)
	}

	first := ident.Parts[0]
	rest := strings.Join(ident.Parts[1:], ".")
	if alias, ok := ns.Alias(first); ok {
		return r.Global(alias.Original.String() + "." + rest)
	}
	return r.Global(ident.String())
}

// SuggestFQN returns the closest fully qualified name to name found
// among every entry in the global index, for "did you mean" diagnostics
// on a failed resolution. Returns "" if the index is empty or nothing
// ranks as a plausible match.
func (r *Registry) SuggestFQN(name string) string {
	candidates := make([]string, 0, len(r.global))
	for fqn := range r.global {
		candidates = append(candidates, fqn)
	}
	sort.Strings(candidates) // deterministic tie-break among equal ranks

	ranks := fuzzy.RankFindFold(name, candidates)
	if len(ranks) == 0 {
		return ""
	}
	sort.Stable(ranks)
	return ranks[0].Target
}
