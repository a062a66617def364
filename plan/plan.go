// Package plan implements the Planner (spec §4.5): it traces rule-level
// dependencies across the Registry's resolved namespaces into a DAG,
// computes each rule's depth (longest path to a leaf), and flattens the
// graph into one deterministic dependency-ordered Plan per namespace,
// ready for a codegen host to consume. Ported from the original
// implementation's src/plan.cpp, with one deliberate deviation recorded
// in SPEC_FULL.md: ties in the depth-descending order break on
// FQN-ascending via sort.SliceStable, not the original's unstable
// std::sort on depth alone.
package plan

import (
	"fmt"
	"sort"

	"github.com/nyxlang/nyxc/ast"
	"github.com/nyxlang/nyxc/invariant"
	"github.com/nyxlang/nyxc/nyxerr"
	"github.com/nyxlang/nyxc/registry"
)

// StorageField is the plan-level projection of ast.StorageField: a name
// plus the dot-separated parts of its optional type identifier.
type StorageField struct {
	Name string
	Type []string
}

// ImportRef is the plan-level projection of an ast.Import.
type ImportRef struct {
	Module  []string
	Element []string
	Alias   []string
}

// Rule is one dependency-ordered, stage-lowered rule ready for codegen.
type Rule struct {
	Name     string
	Pattern  []*Stage
	Storage  []StorageField
	Encode   *ast.Code
	Decode   *ast.Code
	Validate *ast.Code
}

// Namespace is one emitted namespace's rules, already topologically
// sorted so that every rule appears after everything it depends on.
type Namespace struct {
	Parts   []string
	Imports []ImportRef
	Rules   []Rule
}

// Plan is the complete, dependency-ordered output of one compilation,
// covering every emitted namespace reachable from the entry file.
type Plan struct {
	Namespaces []Namespace
}

// dependency is one node of the rule-level dependency graph: a rule
// owned by a specific namespace, plus the set of other rules it
// references directly (identifiers resolved through registry.Resolve).
type dependency struct {
	fqn   string
	space *ast.Namespace
	rule  *ast.Rule
	needs []*dependency
}

// planner holds the mutable state threaded through dependency tracing:
// the registry being traced and a memo table so each rule gets exactly
// one dependency node regardless of how many places reference it.
type planner struct {
	reg  *registry.Registry
	deps map[string]*dependency
}

// Generate builds a Plan from a fully loaded Registry, per the algorithm
// in spec §4.5: trace dependencies for every rule in every emitted
// namespace, compute depths, flatten in (depth desc, FQN asc) order, and
// assemble per-namespace rule lists preserving first-reachable order.
func Generate(reg *registry.Registry) (*Plan, error) {
	p := &planner{reg: reg, deps: map[string]*dependency{}}

	var roots []*dependency
	for _, fqn := range sortedKeys(reg.Namespaces()) {
		ns := reg.Namespaces()[fqn]
		for _, rule := range ns.Rules() {
			d, err := p.ensure(ns, rule)
			if err != nil {
				return nil, err
			}
			roots = append(roots, d)
		}
	}

	depths := map[string]int{}
	for _, d := range roots {
		computeDepth(d, depths, map[string]bool{})
	}
	for _, d := range p.deps {
		computeDepth(d, depths, map[string]bool{})
	}

	order := make([]*dependency, 0, len(p.deps))
	for _, d := range p.deps {
		order = append(order, d)
	}
	sort.SliceStable(order, func(i, j int) bool {
		di, dj := depths[order[i].fqn], depths[order[j].fqn]
		if di != dj {
			return di > dj
		}
		return order[i].fqn < order[j].fqn
	})

	spaces := map[string][]*dependency{}
	seen := map[string]bool{}
	var add func(d *dependency)
	add = func(d *dependency) {
		if seen[d.fqn] {
			return
		}
		seen[d.fqn] = true
		for _, need := range d.needs {
			add(need)
		}
		spaceKey := d.space.Identifier.String()
		spaces[spaceKey] = append(spaces[spaceKey], d)
	}
	for _, d := range order {
		add(d)
	}

	out := &Plan{}
	for _, fqn := range sortedKeys(reg.Namespaces()) {
		ns := reg.Namespaces()[fqn]
		pn := Namespace{Parts: append([]string{}, ns.Identifier.Parts...)}
		for _, imp := range ns.Imports {
			pn.Imports = append(pn.Imports, toImportRef(imp))
		}
		for _, d := range spaces[fqn] {
			r, err := buildPlanRule(d.rule)
			if err != nil {
				return nil, err
			}
			pn.Rules = append(pn.Rules, r)
		}
		out.Namespaces = append(out.Namespaces, pn)
	}
	return out, nil
}

func sortedKeys(m map[string]*ast.Namespace) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func toImportRef(imp ast.Import) ImportRef {
	ref := ImportRef{Module: append([]string{}, imp.Module.Parts...)}
	if imp.HasElement() {
		ref.Element = append([]string{}, imp.Element.Parts...)
	}
	if imp.HasAlias() {
		ref.Alias = append([]string{}, imp.Alias.Parts...)
	}
	return ref
}

func buildPlanRule(r *ast.Rule) (Rule, error) {
	stages, err := BuildPattern(r.Pattern)
	if err != nil {
		return Rule{}, err
	}
	return Rule{
		Name:     r.Name,
		Pattern:  stages,
		Storage:  BuildStorage(r.Storage),
		Encode:   r.Encode,
		Decode:   r.Decode,
		Validate: r.Validate,
	}, nil
}

// ensure returns the memoized dependency node for rule, tracing its
// pattern's identifier references the first time it is visited. The node
// is inserted into the memo table before recursing so that a rule that
// (directly or indirectly) references itself does not loop forever.
func (p *planner) ensure(ns *ast.Namespace, rule *ast.Rule) (*dependency, error) {
	fqn := ns.Identifier.String() + "." + rule.Name
	if d, ok := p.deps[fqn]; ok {
		return d, nil
	}
	d := &dependency{fqn: fqn, space: ns, rule: rule}
	p.deps[fqn] = d

	for _, alt := range rule.Pattern {
		if err := p.trace(ns, alt, d); err != nil {
			return nil, err
		}
	}
	return d, nil
}

func (p *planner) trace(ns *ast.Namespace, elem *ast.PatternElement, target *dependency) error {
	switch {
	case elem.IsSimple():
		s := elem.Simple
		if s.IsIdentifier() {
			return p.traceIdentifier(ns, *s.Ident, target)
		}
		return nil

	case elem.IsCompound():
		for _, child := range elem.Compound.Elements {
			if err := p.trace(ns, child, target); err != nil {
				return err
			}
		}
		return nil

	case elem.IsMatch():
		for _, c := range elem.Match.Cases {
			if err := p.traceIdentifier(ns, c.Value, target); err != nil {
				return err
			}
		}
		return nil
	}
	return nyxerr.New(nyxerr.Internal, "pattern element has no variant set while tracing dependencies")
}

// traceIdentifier resolves ident in ns's scope and records the rule it
// names as a dependency of target. Per the resolved Open Question in
// spec §9, an alias is followed and recursed into (rather than ignored,
// as the original implementation does for sibling-namespace aliases):
// the aliased identifier is re-resolved in its defining namespace's own
// scope, and that resolution's rule (if any) becomes the dependency.
func (p *planner) traceIdentifier(ns *ast.Namespace, ident ast.Identifier, target *dependency) error {
	entry, ok := p.reg.Resolve(ns, ident)
	if !ok {
		err := nyxerr.New(nyxerr.Dependency, "%q does not resolve to a defined rule or type in namespace %q",
			ident.String(), ns.Identifier.String())
		if suggestion := p.reg.SuggestFQN(ident.String()); suggestion != "" {
			err = err.WithContext("didYouMean", suggestion)
		}
		return err
	}

	switch entry.Kind {
	case registry.EntryRule:
		owner := p.namespaceFor(entry.OwnerFQN)
		invariant.NotNil(owner, fmt.Sprintf("owning namespace for resolved rule %q", entry.FQN))
		dep, err := p.ensure(owner, entry.Rule)
		if err != nil {
			return err
		}
		target.needs = append(target.needs, dep)
		return nil

	case registry.EntryAlias:
		if entry.OwnerFQN == "nyx" {
			// built-in primitive namespace: nothing to depend on
			return nil
		}
		owner := p.namespaceFor(entry.OwnerFQN)
		invariant.NotNil(owner, fmt.Sprintf("owning namespace for resolved alias %q", entry.FQN))
		return p.traceIdentifier(owner, entry.Alias.Original, target)

	case registry.EntryNamespace, registry.EntryField:
		return nyxerr.New(nyxerr.Dependency, "%q refers to a namespace or field, not a rule or type", ident.String())
	}
	return nyxerr.New(nyxerr.Internal, "unreachable resolve kind")
}

func (p *planner) namespaceFor(fqn string) *ast.Namespace {
	if ns, ok := p.reg.Namespaces()[fqn]; ok {
		return ns
	}
	if ns, ok := p.reg.Modules()[fqn]; ok {
		return ns
	}
	return nil
}

// computeDepth memoizes each node's depth (1 for a leaf with no
// dependencies, 1+max(child depths) otherwise) into depths, guarding
// against a reference cycle with visiting so a mutually recursive pair of
// rules terminates instead of looping: the back edge counts as depth 1 and
// no error is reported.
func computeDepth(d *dependency, depths map[string]int, visiting map[string]bool) int {
	if v, ok := depths[d.fqn]; ok {
		return v
	}
	if visiting[d.fqn] {
		return 1
	}
	visiting[d.fqn] = true
	max := 0
	for _, need := range d.needs {
		if cd := computeDepth(need, depths, visiting); cd > max {
			max = cd
		}
	}
	depths[d.fqn] = 1 + max
	visiting[d.fqn] = false
	return depths[d.fqn]
}
