package plan

import (
	"fmt"
	"testing"

	"github.com/nyxlang/nyxc/ast"
	"github.com/nyxlang/nyxc/fs"
	"github.com/nyxlang/nyxc/registry"
	"github.com/nyxlang/nyxc/token"
)

type memFS struct{ files map[string]string }

func (m *memFS) Locate(name string) (string, bool) {
	_, ok := m.files[name]
	return name, ok
}

func (m *memFS) ReadFile(path string) (string, error) {
	c, ok := m.files[path]
	if !ok {
		return "", fmt.Errorf("no such file: %s", path)
	}
	return c, nil
}

var _ fs.FileSystem = (*memFS)(nil)

func loadRegistry(t *testing.T, files map[string]string) *registry.Registry {
	t.Helper()
	if _, ok := files["nyx.nyx"]; !ok {
		files["nyx.nyx"] = ""
	}
	reg := registry.New(&memFS{files: files}, nil)
	if err := reg.Load("main.nyx"); err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	return reg
}

func TestGenerateOrdersDependenciesBeforeDependents(t *testing.T) {
	reg := loadRegistry(t, map[string]string{
		"main.nyx": "@namespace demo\n" +
			"leaf {\n" +
			"pattern: 0x01\n" +
			"}\n" +
			"mid {\n" +
			"pattern: leaf\n" +
			"}\n" +
			"top {\n" +
			"pattern: mid\n" +
			"}\n",
	})
	p, err := Generate(reg)
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if len(p.Namespaces) != 1 {
		t.Fatalf("expected 1 namespace, got %d", len(p.Namespaces))
	}
	ns := p.Namespaces[0]
	var names []string
	for _, r := range ns.Rules {
		names = append(names, r.Name)
	}
	want := []string{"leaf", "mid", "top"}
	if len(names) != len(want) {
		t.Fatalf("rule order = %v, want %v", names, want)
	}
	pos := map[string]int{}
	for i, n := range names {
		pos[n] = i
	}
	if !(pos["leaf"] < pos["mid"] && pos["mid"] < pos["top"]) {
		t.Errorf("expected dependency-first order, got %v", names)
	}
}

func TestGenerateUnresolvedReferenceErrors(t *testing.T) {
	reg := loadRegistry(t, map[string]string{
		"main.nyx": "@namespace demo\n" +
			"top {\n" +
			"pattern: doesNotExist\n" +
			"}\n",
	})
	if _, err := Generate(reg); err == nil {
		t.Fatal("expected Generate to fail on an unresolved pattern reference")
	}
}

func TestGeneratePrimitiveAndReferenceStages(t *testing.T) {
	reg := loadRegistry(t, map[string]string{
		"main.nyx": "@namespace demo\n" +
			"leaf {\n" +
			"pattern: 0x01\n" +
			"}\n" +
			"top {\n" +
			"pattern: leaf\n" +
			"}\n",
	})
	p, err := Generate(reg)
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	ns := p.Namespaces[0]
	var leaf, top *Rule
	for i := range ns.Rules {
		switch ns.Rules[i].Name {
		case "leaf":
			leaf = &ns.Rules[i]
		case "top":
			top = &ns.Rules[i]
		}
	}
	if leaf == nil || top == nil {
		t.Fatal("missing expected rules")
	}
	if len(leaf.Pattern) != 1 || leaf.Pattern[0].Kind != StagePrimitive {
		t.Fatalf("leaf pattern = %+v, want a single Primitive stage", leaf.Pattern)
	}
	if len(leaf.Pattern[0].Bytes) != 1 || leaf.Pattern[0].Bytes[0] != 0x01 {
		t.Errorf("leaf bytes = %v, want [0x01]", leaf.Pattern[0].Bytes)
	}
	if len(top.Pattern) != 1 || top.Pattern[0].Kind != StageReference || top.Pattern[0].Ref != "leaf" {
		t.Fatalf("top pattern = %+v, want a Reference stage to 'leaf'", top.Pattern)
	}
}

func literalElem(min, max, binding string, kind token.Kind, text string) *ast.PatternElement {
	tok := token.Token{Kind: kind, Text: text}
	return &ast.PatternElement{Min: min, Max: max, Binding: binding, Simple: &ast.SimplePattern{Token: &tok}}
}

func TestBuildStageCollapsesFixedLiteralRun(t *testing.T) {
	compound := &ast.PatternElement{
		Min: "1", Max: "1",
		Compound: &ast.CompoundPattern{
			Elements: []*ast.PatternElement{
				literalElem("1", "1", "", token.DecimalLiteral, "1"),
				literalElem("1", "1", "", token.DecimalLiteral, "2"),
			},
		},
	}
	stage, err := buildStage(compound)
	if err != nil {
		t.Fatalf("buildStage() error: %v", err)
	}
	if stage.Kind != StagePrimitive {
		t.Fatalf("expected collapsed run to produce a Primitive stage, got %v", stage.Kind)
	}
	if want := []byte{0x01, 0x02}; string(stage.Bytes) != string(want) {
		t.Errorf("Bytes = %v, want %v", stage.Bytes, want)
	}
}

func TestBuildStageDoesNotCollapseWithWildcardChild(t *testing.T) {
	compound := &ast.PatternElement{
		Min: "1", Max: "1",
		Compound: &ast.CompoundPattern{
			Elements: []*ast.PatternElement{
				literalElem("1", "1", "", token.DecimalLiteral, "1"),
				literalElem("1", "1", "", token.HexadecimalPattern, "0x1*"),
			},
		},
	}
	stage, err := buildStage(compound)
	if err != nil {
		t.Fatalf("buildStage() error: %v", err)
	}
	if stage.Kind != StageGroup {
		t.Fatalf("expected a Group stage when a child is a wildcard, got %v", stage.Kind)
	}
	if len(stage.Children) != 2 {
		t.Fatalf("expected 2 children, got %d", len(stage.Children))
	}
	if stage.Children[1].Kind != StageWildcard {
		t.Errorf("expected second child to be a Wildcard stage, got %v", stage.Children[1].Kind)
	}
}

func TestBuildStageDoesNotCollapseWithBoundChild(t *testing.T) {
	compound := &ast.PatternElement{
		Min: "1", Max: "1",
		Compound: &ast.CompoundPattern{
			Elements: []*ast.PatternElement{
				literalElem("1", "1", "x", token.DecimalLiteral, "1"),
			},
		},
	}
	stage, err := buildStage(compound)
	if err != nil {
		t.Fatalf("buildStage() error: %v", err)
	}
	if stage.Kind != StageGroup {
		t.Fatalf("a bound child must prevent collapsing, got %v", stage.Kind)
	}
}

func TestPackWildcardHexAlignedByte(t *testing.T) {
	mask, value, err := packWildcard(token.Token{Kind: token.HexadecimalPattern, Text: "0x1*"})
	if err != nil {
		t.Fatalf("packWildcard() error: %v", err)
	}
	if len(mask) != 1 || mask[0] != 0xF0 {
		t.Errorf("mask = %v, want [0xF0]", mask)
	}
	if len(value) != 1 || value[0] != 0x10 {
		t.Errorf("value = %v, want [0x10]", value)
	}
}

func TestPackWildcardPadsToWholeByte(t *testing.T) {
	mask, value, err := packWildcard(token.Token{Kind: token.HexadecimalPattern, Text: "0x*"})
	if err != nil {
		t.Fatalf("packWildcard() error: %v", err)
	}
	if len(mask) != 1 || mask[0] != 0xF0 {
		t.Errorf("mask = %v, want [0xF0] (left-padded with mask=1 bits)", mask)
	}
	if len(value) != 1 || value[0] != 0x00 {
		t.Errorf("value = %v, want [0x00]", value)
	}
}

func TestPackLiteralStripsLeadingZeroBytes(t *testing.T) {
	bytes, err := packLiteral(token.Token{Kind: token.DecimalLiteral, Text: "1"})
	if err != nil {
		t.Fatalf("packLiteral() error: %v", err)
	}
	if len(bytes) != 1 || bytes[0] != 0x01 {
		t.Errorf("packLiteral(1) = %v, want [0x01]", bytes)
	}

	bytes, err = packLiteral(token.Token{Kind: token.DecimalLiteral, Text: "256"})
	if err != nil {
		t.Fatalf("packLiteral() error: %v", err)
	}
	if want := []byte{0x01, 0x00}; string(bytes) != string(want) {
		t.Errorf("packLiteral(256) = %v, want %v", bytes, want)
	}
}

func TestReferenceForClassifiesFixedPrimitives(t *testing.T) {
	s := referenceFor("u16b", "1", "1", "")
	if !s.IsPrimitiveType || s.Size != 2 || s.Order != "big" || s.Signed {
		t.Errorf("u16b misclassified: %+v", s)
	}
	s = referenceFor("i32l", "1", "1", "")
	if !s.IsPrimitiveType || s.Size != 4 || s.Order != "little" || !s.Signed {
		t.Errorf("i32l misclassified: %+v", s)
	}
	s = referenceFor("someRule", "1", "1", "")
	if s.IsPrimitiveType {
		t.Errorf("someRule should not classify as a primitive: %+v", s)
	}
}

func TestBuildSimpleTokenRejectsFloatLiteral(t *testing.T) {
	_, err := buildSimpleToken(token.Token{Kind: token.FloatLiteral, Text: "1.5"}, "1", "1", "")
	if err == nil {
		t.Fatal("expected an error for a float literal in pattern position")
	}
}
