package plan

import (
	"strconv"
	"strings"

	"github.com/nyxlang/nyxc/ast"
	"github.com/nyxlang/nyxc/nyxerr"
	"github.com/nyxlang/nyxc/token"
)

// StageKind discriminates the five execution-level stage variants from
// spec §3.
type StageKind int

const (
	StagePrimitive StageKind = iota
	StageWildcard
	StageGroup
	StageSelect
	StageReference
)

// SelectCase is one `key => identifier` arm of a Select stage.
type SelectCase struct {
	Key    string
	Target string
}

// Stage is the lowered execution-level form of one pattern element.
// Exactly the fields relevant to Kind are populated; every stage carries
// Min/Max/Binding regardless of kind.
type Stage struct {
	Kind    StageKind
	Min     string
	Max     string
	Binding string

	Bytes []byte // Primitive

	Mask  []byte // Wildcard
	Value []byte // Wildcard

	Children []*Stage // Group

	Discriminant string       // Select
	Cases        []SelectCase // Select

	Ref             string // Reference: rule/type name
	IsPrimitiveType bool
	Size            int    // Reference, primitive: byte width
	Order           string // "machine" | "little" | "big"
	Signed          bool
}

// referenceFor classifies an identifier used in a reference position: a
// fixed primitive (optionally suffixed with endianness 'l'/'b') or a
// named rule/type reference.
func referenceFor(name string, min, max, binding string) *Stage {
	base := name
	order := "machine"
	if n := len(name); n > 0 {
		switch name[n-1] {
		case 'l', 'L':
			base, order = name[:n-1], "little"
		case 'b', 'B':
			base, order = name[:n-1], "big"
		}
	}
	if size, ok := ast.ToSize(base); ok {
		return &Stage{
			Kind: StageReference, Min: min, Max: max, Binding: binding,
			Ref: name, IsPrimitiveType: true, Size: size, Order: order,
			Signed: strings.HasPrefix(base, "i"),
		}
	}
	return &Stage{Kind: StageReference, Min: min, Max: max, Binding: binding, Ref: name}
}

// buildSimpleToken builds a Primitive or Wildcard stage from a literal
// token, per the Stage-construction rules in spec §4.5. FloatLiteral in a
// pattern position is rejected rather than fabricating bytes, per the
// resolved Open Question in spec §9.
func buildSimpleToken(t token.Token, min, max, binding string) (*Stage, error) {
	switch t.Kind {
	case token.StringLiteral:
		text := t.Text
		if len(text) >= 2 {
			text = text[1 : len(text)-1]
		}
		return &Stage{Kind: StagePrimitive, Min: min, Max: max, Binding: binding, Bytes: []byte(text)}, nil

	case token.DecimalLiteral, token.OctalLiteral, token.BinaryLiteral, token.HexadecimalLiteral:
		bytes, err := packLiteral(t)
		if err != nil {
			return nil, err
		}
		return &Stage{Kind: StagePrimitive, Min: min, Max: max, Binding: binding, Bytes: bytes}, nil

	case token.OctalPattern, token.BinaryPattern, token.HexadecimalPattern:
		mask, value, err := packWildcard(t)
		if err != nil {
			return nil, err
		}
		return &Stage{Kind: StageWildcard, Min: min, Max: max, Binding: binding, Mask: mask, Value: value}, nil

	case token.FloatLiteral:
		return nil, nyxerr.New(nyxerr.Lowering,
			"float literal %q cannot appear in a pattern position", t.Text).
			WithCaret(t.Pos.File, t.Pos.Line, t.Pos.Column, t.Pos.Text)

	default:
		return nil, nyxerr.New(nyxerr.Internal, "unexpected literal kind %s in pattern", t.Kind)
	}
}

// packLiteral parses a non-wildcard numeric literal and packs it into the
// minimum number of big-endian bytes, leading zero bytes stripped.
func packLiteral(t token.Token) ([]byte, error) {
	text, base := digitsAndBase(t.Kind, t.Text)
	if text == "" {
		text = "0"
	}
	val, err := strconv.ParseUint(text, base, 64)
	if err != nil {
		return nil, nyxerr.New(nyxerr.Lowering, "malformed numeric literal %q: %v", t.Text, err)
	}
	return packMinimalBytes(val), nil
}

func packMinimalBytes(val uint64) []byte {
	if val == 0 {
		return []byte{0}
	}
	var buf [8]byte
	for i := 7; i >= 0; i-- {
		buf[i] = byte(val)
		val >>= 8
	}
	i := 0
	for i < 7 && buf[i] == 0 {
		i++
	}
	return append([]byte{}, buf[i:]...)
}

func digitsAndBase(kind token.Kind, text string) (string, int) {
	switch kind {
	case token.OctalLiteral:
		return text, 8
	case token.BinaryLiteral:
		return strings.TrimPrefix(strings.TrimPrefix(text, "0b"), "0B"), 2
	case token.HexadecimalLiteral:
		return strings.TrimPrefix(strings.TrimPrefix(text, "0x"), "0X"), 16
	default:
		return text, 10
	}
}

// packWildcard computes the (mask, value) byte pair from a wildcard
// pattern literal's '*' digit positions, per spec testable property / S6.
func packWildcard(t token.Token) (mask, value []byte, err error) {
	var digits string
	var bitsPerDigit int
	switch t.Kind {
	case token.OctalPattern:
		digits, bitsPerDigit = t.Text, 3
	case token.BinaryPattern:
		digits = strings.TrimPrefix(strings.TrimPrefix(t.Text, "0b"), "0B")
		bitsPerDigit = 1
	case token.HexadecimalPattern:
		digits = strings.TrimPrefix(strings.TrimPrefix(t.Text, "0x"), "0X")
		bitsPerDigit = 4
	default:
		return nil, nil, nyxerr.New(nyxerr.Internal, "not a wildcard pattern kind")
	}

	var maskBits, valueBits strings.Builder
	for _, d := range digits {
		if d == '*' {
			maskBits.WriteString(strings.Repeat("0", bitsPerDigit))
			valueBits.WriteString(strings.Repeat("0", bitsPerDigit))
			continue
		}
		v, convErr := strconv.ParseUint(string(d), 16, 8)
		if convErr != nil {
			return nil, nil, nyxerr.New(nyxerr.Lowering, "malformed wildcard digit %q in %q", string(d), t.Text)
		}
		maskBits.WriteString(strings.Repeat("1", bitsPerDigit))
		valueBits.WriteString(padBits(v, bitsPerDigit))
	}

	maskStr := padLeftToByte(maskBits.String(), '1')
	valueStr := padLeftToByte(valueBits.String(), '0')
	return bitsToBytes(maskStr), bitsToBytes(valueStr), nil
}

func padBits(v uint64, width int) string {
	s := strconv.FormatUint(v, 2)
	if len(s) < width {
		s = strings.Repeat("0", width-len(s)) + s
	}
	return s[len(s)-width:]
}

func padLeftToByte(bits string, pad byte) string {
	rem := len(bits) % 8
	if rem == 0 {
		return bits
	}
	return strings.Repeat(string(pad), 8-rem) + bits
}

func bitsToBytes(bits string) []byte {
	out := make([]byte, len(bits)/8)
	for i := range out {
		v, _ := strconv.ParseUint(bits[i*8:i*8+8], 2, 8)
		out[i] = byte(v)
	}
	return out
}

// buildStage lowers one ast.PatternElement into a plan Stage, applying
// the compound-literal collapse optimisation described in spec §4.3/§4.5.
func buildStage(elem *ast.PatternElement) (*Stage, error) {
	switch {
	case elem.IsSimple():
		s := elem.Simple
		if s.IsToken() {
			return buildSimpleToken(*s.Token, elem.Min, elem.Max, elem.Binding)
		}
		return referenceFor(s.Ident.String(), elem.Min, elem.Max, elem.Binding), nil

	case elem.IsCompound():
		if bytes, ok := collapseLiteralRun(elem.Compound.Elements); ok {
			return &Stage{Kind: StagePrimitive, Min: elem.Min, Max: elem.Max, Binding: elem.Binding, Bytes: bytes}, nil
		}
		children := make([]*Stage, 0, len(elem.Compound.Elements))
		for _, child := range elem.Compound.Elements {
			cs, err := buildStage(child)
			if err != nil {
				return nil, err
			}
			children = append(children, cs)
		}
		return &Stage{Kind: StageGroup, Min: elem.Min, Max: elem.Max, Binding: elem.Binding, Children: children}, nil

	case elem.IsMatch():
		cases := make([]SelectCase, 0, len(elem.Match.Cases))
		for _, c := range elem.Match.Cases {
			cases = append(cases, SelectCase{Key: c.Key.Text, Target: c.Value.String()})
		}
		return &Stage{
			Kind: StageSelect, Min: elem.Min, Max: elem.Max, Binding: elem.Binding,
			Discriminant: elem.Match.Discriminant.String(), Cases: cases,
		}, nil
	}
	return nil, nyxerr.New(nyxerr.Internal, "pattern element has no variant set")
}

// collapseLiteralRun reports whether every child is a fixed-repetition
// (1,1) literal SimplePattern, and if so returns the concatenation of
// their bytes (testable property 10).
func collapseLiteralRun(elements []*ast.PatternElement) ([]byte, bool) {
	var buf []byte
	for _, e := range elements {
		if e.Min != "1" || e.Max != "1" || e.Binding != "" {
			return nil, false
		}
		if !e.IsSimple() || !e.Simple.IsToken() {
			return nil, false
		}
		t := *e.Simple.Token
		switch t.Kind {
		case token.OctalPattern, token.BinaryPattern, token.HexadecimalPattern, token.FloatLiteral:
			return nil, false
		}
		stage, err := buildSimpleToken(t, "1", "1", "")
		if err != nil || stage.Kind != StagePrimitive {
			return nil, false
		}
		buf = append(buf, stage.Bytes...)
	}
	return buf, true
}

// buildAlternate builds one Alternate (root Stage) from a rule's
// alternative.
func buildAlternate(elem *ast.PatternElement) (*Stage, error) {
	return buildStage(elem)
}

// BuildPattern lowers a rule's full alternative list into plan stages.
func BuildPattern(elems []*ast.PatternElement) ([]*Stage, error) {
	out := make([]*Stage, 0, len(elems))
	for _, e := range elems {
		s, err := buildAlternate(e)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// BuildStorage converts a rule's storage fields into plan form: ordered
// (name, type parts) pairs.
func BuildStorage(fields []ast.StorageField) []StorageField {
	out := make([]StorageField, 0, len(fields))
	for _, f := range fields {
		sf := StorageField{Name: f.Name}
		if f.HasType() {
			sf.Type = append([]string{}, f.Type.Parts...)
		}
		out = append(out, sf)
	}
	return out
}
