package cst

import (
	"testing"

	"github.com/nyxlang/nyxc/diag"
	"github.com/nyxlang/nyxc/lexer"
	"github.com/nyxlang/nyxc/token"
)

func tokenize(src string) []token.Token {
	l := lexer.New("test.nyx", src)
	var toks []token.Token
	for {
		t := l.Next()
		if t.Kind == token.EOF {
			break
		}
		toks = append(toks, t)
	}
	return toks
}

func TestParseNamespace(t *testing.T) {
	tree, err := NewParser(tokenize("@namespace demo.frame\n"), nil).Parse()
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if len(tree.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(tree.Items))
	}
	if !Is(tree.Items[0], Namespace) {
		t.Fatalf("expected Namespace, got %v", tree.Items[0])
	}
}

func TestParseDottedIdentifier(t *testing.T) {
	tree, err := NewParser(tokenize("@module a.b.c\n"), nil).Parse()
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	mod := tree.Items[0].(*Compound)
	ident := mod.Children[1].(*Compound)
	if len(ident.Children) != 3 {
		t.Fatalf("expected 3 identifier parts, got %d", len(ident.Children))
	}
	for i, want := range []string{"a", "b", "c"} {
		leaf := ident.Children[i].(*Leaf)
		if leaf.Tok.Text != want {
			t.Errorf("part %d = %q, want %q", i, leaf.Tok.Text, want)
		}
	}
}

func TestParseRuleWithPatternStorageEncode(t *testing.T) {
	src := "frame {\n" +
		"pattern: 0x7e header => h\n" +
		"storage: [len payload]\n" +
		"encode: (+ 1 2)\n" +
		"}\n"
	tree, err := NewParser(tokenize(src), nil).Parse()
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	rule := tree.Items[0].(*Compound)
	if rule.Kind != Rule {
		t.Fatalf("expected Rule, got %v", rule.Kind)
	}
	var sawPattern, sawStorage, sawEncode bool
	for _, c := range rule.Children[1:] {
		switch c.(*Compound).Kind {
		case Pattern:
			sawPattern = true
		case Storage:
			sawStorage = true
		case Encode:
			sawEncode = true
		}
	}
	if !sawPattern || !sawStorage || !sawEncode {
		t.Errorf("missing expected sections: pattern=%v storage=%v encode=%v", sawPattern, sawStorage, sawEncode)
	}
}

func TestParseAlternationAndRepetition(t *testing.T) {
	src := "frame {\n" +
		"pattern: header{2,4} | \"AB\"\n" +
		"}\n"
	tree, err := NewParser(tokenize(src), nil).Parse()
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	rule := tree.Items[0].(*Compound)
	pattern := rule.Children[1].(*Compound)
	// [0]=kw, [1]=first alternative, [2]=second alternative
	if len(pattern.Children) != 3 {
		t.Fatalf("expected keyword + 2 alternatives, got %d children", len(pattern.Children))
	}
}

func TestUnexpectedTokenReportsCaret(t *testing.T) {
	collector := diag.NewCollector()
	_, err := NewParser(tokenize("@namespace\n"), collector).Parse()
	if err == nil {
		t.Fatal("expected a parse error")
	}
	if collector.Len() != 1 {
		t.Fatalf("expected 1 collected diagnostic, got %d", collector.Len())
	}
}

func TestParseMatch(t *testing.T) {
	src := "frame {\n" +
		"pattern: @match (kind) { 1 => a.rule 2 => b.rule }\n" +
		"}\n"
	tree, err := NewParser(tokenize(src), nil).Parse()
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	rule := tree.Items[0].(*Compound)
	pattern := rule.Children[1].(*Compound)
	alt := pattern.Children[1].(*Compound)
	elem := alt.Children[0].(*Compound)
	if elem.Kind != Match {
		t.Fatalf("expected Match, got %v", elem.Kind)
	}
}
