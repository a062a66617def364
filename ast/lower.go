package ast

import (
	"strconv"

	"github.com/nyxlang/nyxc/cst"
	"github.com/nyxlang/nyxc/diag"
	"github.com/nyxlang/nyxc/invariant"
	"github.com/nyxlang/nyxc/nyxerr"
	"github.com/nyxlang/nyxc/token"
)

// Lower walks tree and builds a SyntaxTree, starting with a nameless
// default namespace as the current namespace (spec §4.3).
func Lower(tree *cst.Tree, fileName string, sink diag.Sink) (*SyntaxTree, error) {
	out := NewSyntaxTree(fileName)
	current, _ := out.Namespace("")

	warn := func(format string, args ...any) {
		if sink != nil {
			sink.Report(nyxerr.New(nyxerr.Lowering, format, args...))
		}
	}

	for _, item := range tree.Items {
		c, ok := item.(*cst.Compound)
		if !ok {
			continue
		}
		switch c.Kind {
		case cst.Namespace:
			ident := lowerIdentifier(c.Children[1])
			current = out.AddNamespace(ident, EmitNamespace)
		case cst.Module:
			ident := lowerIdentifier(c.Children[1])
			current = out.AddNamespace(ident, ModuleNamespace)
		case cst.Import:
			imp := lowerImport(c)
			current.Imports = append(current.Imports, imp)
		case cst.Alias:
			original := lowerIdentifier(c.Children[1])
			newName := lowerIdentifier(c.Children[2])
			current.AddAlias(Alias{Original: original, New: newName}, warn)
		case cst.Comment, cst.Documentation:
			// discarded
		case cst.Rule:
			rule, err := lowerRule(c, sink)
			if err != nil {
				return nil, err
			}
			current.AddRule(rule)
		}
	}
	return out, nil
}

func lowerIdentifier(n cst.Node) Identifier {
	c := n.(*cst.Compound)
	parts := make([]string, 0, len(c.Children))
	for _, ch := range c.Children {
		parts = append(parts, ch.(*cst.Leaf).Tok.Text)
	}
	invariant.Invariant(len(parts) > 0, "identifier at %s:%d has no components (invariant 1)",
		c.Pos().File, c.Pos().Line)
	return Identifier{Parts: parts, Pos: c.Pos()}
}

func lowerImport(c *cst.Compound) Import {
	// children: [kw, ident, ("from" leaf, module)?, ("as" leaf, alias)?]
	// "@import E from M": ident is the element E, unless there is no
	// "from" clause, in which case ident is itself the module M.
	first := lowerIdentifier(c.Children[1])
	imp := Import{Module: first, Pos: c.Pos()}
	i := 2
	for i < len(c.Children) {
		leaf, ok := c.Children[i].(*cst.Leaf)
		if !ok {
			break
		}
		switch leaf.Tok.Text {
		case "from":
			imp.Module = lowerIdentifier(c.Children[i+1])
			imp.Element = &first
			i += 2
		case "as":
			alias := lowerIdentifier(c.Children[i+1])
			imp.Alias = &alias
			i += 2
		default:
			i++
		}
	}
	return imp
}

func lowerRule(c *cst.Compound, sink diag.Sink) (*Rule, error) {
	nameIdent := lowerIdentifier(c.Children[0])
	if !nameIdent.IsSimple() {
		return nil, report(sink, nyxerr.New(nyxerr.Lowering,
			"rule name %q must be a simple name, not dotted", nameIdent.String()).
			WithCaret(nameIdent.Pos.File, nameIdent.Pos.Line, nameIdent.Pos.Column, nameIdent.Pos.Text))
	}
	rule := &Rule{Name: nameIdent.Parts[0], Pos: nameIdent.Pos}

	seen := map[cst.Kind]token.Position{}
	for _, sec := range c.Children[1:] {
		sc, ok := sec.(*cst.Compound)
		if !ok {
			continue
		}
		if prior, dup := seen[sc.Kind]; dup {
			return nil, report(sink, nyxerr.New(nyxerr.Lowering,
				"duplicate %s section in rule %q (first at %d:%d)", sc.Kind, rule.Name, prior.Line, prior.Column).
				WithCaret(sc.Pos().File, sc.Pos().Line, sc.Pos().Column, sc.Pos().Text))
		}
		seen[sc.Kind] = sc.Pos()

		switch sc.Kind {
		case cst.Pattern:
			pattern, err := lowerPatternSection(sc, sink)
			if err != nil {
				return nil, err
			}
			assertPatternElementsBounded(pattern)
			rule.Pattern = pattern
		case cst.Storage:
			fields, err := lowerStorageSection(sc)
			if err != nil {
				return nil, err
			}
			rule.Storage = fields
			rule.HasStorage = true
		case cst.Encode:
			rule.Encode = &Code{Sexpr: lowerSexpr(sc.Children[1])}
		case cst.Decode:
			rule.Decode = &Code{Sexpr: lowerSexpr(sc.Children[1])}
		case cst.Validate:
			rule.Validate = &Code{Sexpr: lowerSexpr(sc.Children[1])}
		}
	}
	return rule, nil
}

// assertPatternElementsBounded checks invariant 4 (every PatternElement's
// Min/Max repetition bound is defined once lowering completes), recursing
// into compound children.
func assertPatternElementsBounded(elems []*PatternElement) {
	for _, e := range elems {
		invariant.Postcondition(e.Min != "" && e.Max != "",
			"pattern element at %s:%d has no repetition bound after lowering (invariant 4)",
			e.Pos.File, e.Pos.Line)
		if e.IsCompound() {
			assertPatternElementsBounded(e.Compound.Elements)
		}
	}
}

func report(sink diag.Sink, err *nyxerr.Error) error {
	if sink != nil {
		sink.Report(err)
	}
	return err
}

func lowerPatternSection(sc *cst.Compound, sink diag.Sink) ([]*PatternElement, error) {
	var alts []*PatternElement
	for _, alt := range sc.Children[1:] {
		elem, err := lowerAlternative(alt.(*cst.Compound), sink)
		if err != nil {
			return nil, err
		}
		alts = append(alts, elem)
	}
	return alts, nil
}

// lowerAlternative lowers one '|'-separated alternative (a cst.List of
// pattern elements, implicit concatenation) into one PatternElement.
func lowerAlternative(list *cst.Compound, sink diag.Sink) (*PatternElement, error) {
	if len(list.Children) == 1 {
		return lowerPatternElementNode(list.Children[0], sink)
	}
	elems := make([]*PatternElement, 0, len(list.Children))
	for _, ch := range list.Children {
		e, err := lowerPatternElementNode(ch, sink)
		if err != nil {
			return nil, err
		}
		elems = append(elems, e)
	}
	return &PatternElement{Min: "1", Max: "1", Pos: list.Pos(), Compound: &CompoundPattern{Elements: elems}}, nil
}

func lowerPatternElementNode(n cst.Node, sink diag.Sink) (*PatternElement, error) {
	switch v := n.(type) {
	case *cst.Leaf:
		t := v.Tok
		if t.Kind == token.Identifier {
			id := Identifier{Parts: []string{t.Text}, Pos: t.Pos}
			return &PatternElement{Min: "1", Max: "1", Pos: t.Pos, Simple: &SimplePattern{Ident: &id}}, nil
		}
		return &PatternElement{Min: "1", Max: "1", Pos: t.Pos, Simple: &SimplePattern{Token: &t}}, nil

	case *cst.Compound:
		switch v.Kind {
		case cst.List:
			// parenthesised group: children[0] is '(' , last is ')'
			inner := v.Children[1 : len(v.Children)-1]
			elems := make([]*PatternElement, 0, len(inner))
			for _, ch := range inner {
				e, err := lowerPatternElementNode(ch, sink)
				if err != nil {
					return nil, err
				}
				elems = append(elems, e)
			}
			return &PatternElement{Min: "1", Max: "1", Pos: v.Pos(), Compound: &CompoundPattern{Elements: elems}}, nil

		case cst.Match:
			return lowerMatch(v, sink)

		case cst.Repetition:
			base, err := lowerPatternElementNode(v.Children[0], sink)
			if err != nil {
				return nil, err
			}
			inner := v.Children[2 : len(v.Children)-1]
			min, max, err := normalizeRepetition(inner, sink)
			if err != nil {
				return nil, err
			}
			base.Min, base.Max = min, max
			return base, nil

		case cst.Bound:
			base, err := lowerPatternElementNode(v.Children[0], sink)
			if err != nil {
				return nil, err
			}
			base.Binding = v.Children[2].(*cst.Leaf).Tok.Text
			return base, nil
		}
	}
	return nil, report(sink, nyxerr.New(nyxerr.Internal, "unexpected CST node in pattern position"))
}

func normalizeRepetition(toks []cst.Node, sink diag.Sink) (string, string, error) {
	text := func(n cst.Node) token.Token { return n.(*cst.Leaf).Tok }

	switch len(toks) {
	case 1:
		t := text(toks[0])
		switch t.Kind {
		case token.Question:
			return "0", "1", nil
		case token.Times:
			return "0", "-1", nil
		case token.Plus:
			return "1", "-1", nil
		case token.DecimalLiteral, token.OctalLiteral, token.HexadecimalLiteral:
			return t.Text, t.Text, nil
		}
	case 3:
		min := text(toks[0])
		max := text(toks[2])
		if max.Kind == token.Times {
			return min.Text, "-1", nil
		}
		return min.Text, max.Text, nil
	}
	return "", "", report(sink, nyxerr.New(nyxerr.Lowering, "malformed repetition"))
}

func lowerMatch(v *cst.Compound, sink diag.Sink) (*PatternElement, error) {
	discriminant := lowerIdentifier(v.Children[1])
	var cases []MatchCase
	for _, c := range v.Children[2:] {
		cc, ok := c.(*cst.Compound)
		if !ok || len(cc.Children) != 3 {
			return nil, report(sink, nyxerr.New(nyxerr.Lowering, "malformed match case"))
		}
		key := cc.Children[0].(*cst.Leaf).Tok
		if !token.IsNumeric(key.Kind, false) && key.Kind != token.StringLiteral {
			return nil, report(sink, nyxerr.New(nyxerr.Lowering, "match case key must be numeric or string, got %s", key.Kind))
		}
		value := lowerIdentifier(cc.Children[2])
		cases = append(cases, MatchCase{Key: key, Value: value})
	}
	if len(cases) == 0 {
		return nil, report(sink, nyxerr.New(nyxerr.Lowering, "match has no cases"))
	}
	return &PatternElement{Min: "1", Max: "1", Pos: v.Pos(), Match: &Match{Discriminant: discriminant, Cases: cases}}, nil
}

func lowerStorageSection(sc *cst.Compound) ([]StorageField, error) {
	body := sc.Children[1]
	if bc, ok := body.(*cst.Compound); ok && bc.Kind == cst.List {
		inner := bc.Children[1 : len(bc.Children)-1]
		fields := make([]StorageField, 0, len(inner))
		for _, item := range inner {
			fields = append(fields, lowerStorageItem(item.(*cst.Compound)))
		}
		return fields, nil
	}
	return []StorageField{lowerStorageItem(body.(*cst.Compound))}, nil
}

func lowerStorageItem(c *cst.Compound) StorageField {
	name := c.Children[0].(*cst.Leaf).Tok.Text
	if len(c.Children) == 1 {
		return StorageField{Name: name}
	}
	typ := lowerIdentifier(c.Children[2])
	return StorageField{Name: name, Type: &typ}
}

func lowerSexpr(n cst.Node) Sexpr {
	switch v := n.(type) {
	case *cst.Leaf:
		t := v.Tok
		return Sexpr{Tok: &t}
	case *cst.Compound:
		if v.Kind == cst.Identifier {
			id := lowerIdentifier(v)
			return Sexpr{Ident: &id}
		}
		// SExpr: strip surrounding parens
		inner := v.Children[1 : len(v.Children)-1]
		sub := make([]Sexpr, 0, len(inner))
		for _, ch := range inner {
			sub = append(sub, lowerSexpr(ch))
		}
		return Sexpr{Sub: sub}
	}
	return Sexpr{}
}

// toSize derives a primitive numeric type's byte width from the bit count
// after the first character of its name (u8/i8 -> 1, u16/i16 -> 2, ...).
// Per spec §9 Open Questions, unknown primitive names are rejected
// explicitly rather than silently defaulting: only u8, i8, u16, i16, u32,
// i32, u64, i64, f32 and f64 are accepted.
func toSize(name string) (int, bool) {
	if len(name) < 2 {
		return 0, false
	}
	switch name[0] {
	case 'u', 'i', 'f':
	default:
		return 0, false
	}
	bits, err := strconv.Atoi(name[1:])
	if err != nil || strconv.Itoa(bits) != name[1:] ||
		(bits != 8 && bits != 16 && bits != 32 && bits != 64) {
		return 0, false
	}
	if name[0] == 'f' && bits != 32 && bits != 64 {
		return 0, false
	}
	return bits / 8, true
}

// ToSize exposes toSize for the planner's Reference stage construction.
func ToSize(name string) (int, bool) { return toSize(name) }
