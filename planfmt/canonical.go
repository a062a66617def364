// Package planfmt serializes a plan.Plan into the canonical on-disk
// format a codegen host reads: deterministic CBOR encoding, a BLAKE2b
// content hash for plan-determinism checks, JSON-Schema validation of
// the serialized shape, and semver-based format-version negotiation.
// Grounded on the opal reference repository's plan-serialization package
// (core/planfmt/canonical.go, writer.go, idfactory.go): two-pass
// canonicalization (build canonical form, then hash it) and a CBOR
// canonical encoder for byte-stable output.
package planfmt

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"golang.org/x/crypto/blake2b"

	"github.com/nyxlang/nyxc/plan"
)

// FormatVersion is the on-disk plan format's semver, bumped on any
// change to CanonicalPlan's shape.
const FormatVersion = "v1.0.0"

// Stage type tags, matching the keyed-table shape a codegen host
// deserializes against.
const (
	TagExactMatch   = "ExactMatch"
	TagPatternMatch = "PatternMatch"
	TagGroup        = "Group"
	TagSelect       = "Select"
	TagNumeric      = "Numeric"
	TagIdentifier   = "Identifier"
)

// CanonicalPlan is the serialization-ready form of a plan.Plan: plain
// structs and slices only, field order fixed by declaration, ready for
// deterministic CBOR encoding.
type CanonicalPlan struct {
	FormatVersion string
	Namespaces    []CanonicalNamespace
}

type CanonicalNamespace struct {
	Name    string
	Imports []CanonicalImport
	Rules   []CanonicalRule
}

type CanonicalImport struct {
	Module  string
	Element string
	Alias   string
}

type CanonicalRule struct {
	Name     string
	Pattern  []CanonicalStage
	Storage  []CanonicalField
	Encode   bool // present/absent only; code bodies are a codegen concern
	Decode   bool
	Validate bool
}

type CanonicalField struct {
	Name string
	Type string
}

type CanonicalStage struct {
	Type    string
	Min     string
	Max     string
	Binding string

	Bytes string // hex, ExactMatch

	Mask  string // hex, PatternMatch
	Value string // hex, PatternMatch

	Children []CanonicalStage // Group

	Discriminant string                // Select
	Cases        []CanonicalSelectCase // Select

	Ref    string // Numeric | Identifier
	Size   int    // Numeric
	Order  string // Numeric
	Signed bool   // Numeric
}

type CanonicalSelectCase struct {
	Key    string
	Target string
}

// Canonicalize converts a plan.Plan into its serialization-ready form.
// Namespace and rule order is preserved from the Planner's dependency
// order (already deterministic, per spec invariant 6); nothing here
// re-sorts it.
func Canonicalize(p *plan.Plan) *CanonicalPlan {
	cp := &CanonicalPlan{FormatVersion: FormatVersion, Namespaces: []CanonicalNamespace{}}
	for _, ns := range p.Namespaces {
		cp.Namespaces = append(cp.Namespaces, canonicalizeNamespace(ns))
	}
	return cp
}

func canonicalizeNamespace(ns plan.Namespace) CanonicalNamespace {
	cn := CanonicalNamespace{Name: joinParts(ns.Parts), Imports: []CanonicalImport{}, Rules: []CanonicalRule{}}
	for _, imp := range ns.Imports {
		cn.Imports = append(cn.Imports, CanonicalImport{
			Module:  joinParts(imp.Module),
			Element: joinParts(imp.Element),
			Alias:   joinParts(imp.Alias),
		})
	}
	for _, r := range ns.Rules {
		cn.Rules = append(cn.Rules, canonicalizeRule(r))
	}
	return cn
}

func canonicalizeRule(r plan.Rule) CanonicalRule {
	cr := CanonicalRule{
		Name:     r.Name,
		Pattern:  []CanonicalStage{},
		Storage:  []CanonicalField{},
		Encode:   r.Encode != nil,
		Decode:   r.Decode != nil,
		Validate: r.Validate != nil,
	}
	for _, s := range r.Pattern {
		cr.Pattern = append(cr.Pattern, canonicalizeStage(s))
	}
	for _, f := range r.Storage {
		cr.Storage = append(cr.Storage, CanonicalField{Name: f.Name, Type: joinParts(f.Type)})
	}
	return cr
}

func canonicalizeStage(s *plan.Stage) CanonicalStage {
	cs := CanonicalStage{Min: s.Min, Max: s.Max, Binding: s.Binding, Children: []CanonicalStage{}}
	switch s.Kind {
	case plan.StagePrimitive:
		cs.Type = TagExactMatch
		cs.Bytes = hexEncode(s.Bytes)
	case plan.StageWildcard:
		cs.Type = TagPatternMatch
		cs.Mask = hexEncode(s.Mask)
		cs.Value = hexEncode(s.Value)
	case plan.StageGroup:
		cs.Type = TagGroup
		for _, c := range s.Children {
			cs.Children = append(cs.Children, canonicalizeStage(c))
		}
	case plan.StageSelect:
		cs.Type = TagSelect
		cs.Discriminant = s.Discriminant
		for _, c := range s.Cases {
			cs.Cases = append(cs.Cases, CanonicalSelectCase{Key: c.Key, Target: c.Target})
		}
	case plan.StageReference:
		if s.IsPrimitiveType {
			cs.Type = TagNumeric
			cs.Size = s.Size
			cs.Order = s.Order
			cs.Signed = s.Signed
		} else {
			cs.Type = TagIdentifier
		}
		cs.Ref = s.Ref
	}
	return cs
}

func joinParts(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += "."
		}
		out += p
	}
	return out
}

const hexDigits = "0123456789abcdef"

func hexEncode(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	out := make([]byte, len(b)*2)
	for i, v := range b {
		out[i*2] = hexDigits[v>>4]
		out[i*2+1] = hexDigits[v&0x0f]
	}
	return string(out)
}

// MarshalBinary produces a deterministic CBOR encoding of the canonical
// plan: same Plan in, same bytes out, every time (testable property 9).
func (cp *CanonicalPlan) MarshalBinary() ([]byte, error) {
	encMode, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		return nil, fmt.Errorf("planfmt: failed to create CBOR encoder: %w", err)
	}
	type canonicalPlanAlias CanonicalPlan
	data, err := encMode.Marshal((*canonicalPlanAlias)(cp))
	if err != nil {
		return nil, fmt.Errorf("planfmt: CBOR encoding failed: %w", err)
	}
	return data, nil
}

// Hash computes the BLAKE2b-256 content hash of the canonical plan's
// CBOR encoding, the plan's fingerprint for determinism checks and
// cache keys.
func (cp *CanonicalPlan) Hash() ([32]byte, error) {
	data, err := cp.MarshalBinary()
	if err != nil {
		return [32]byte{}, err
	}
	return blake2b.Sum256(data), nil
}
