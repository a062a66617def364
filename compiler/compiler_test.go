package compiler

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile(%s): %v", name, err)
	}
	return path
}

func TestCompileProducesOneResultPerInput(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "nyx.nyx", "")
	input := writeFile(t, dir, "input.nyx", "@namespace demo\nframe {\npattern: 0x7e\n}\n")

	results, err := Compile(Options{Inputs: []string{input}, SysRoot: dir}, nil)
	if err != nil {
		t.Fatalf("Compile() error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	r := results[0]
	if r.Input != input {
		t.Errorf("Input = %q, want %q", r.Input, input)
	}
	if len(r.Plan.Namespaces) != 1 || len(r.Plan.Namespaces[0].Rules) != 1 {
		t.Fatalf("unexpected plan shape: %+v", r.Plan)
	}
	var zero [32]byte
	if r.Hash == zero {
		t.Error("expected a non-zero content hash")
	}
}

func TestCompileFailsOnUnresolvedImport(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "nyx.nyx", "")
	input := writeFile(t, dir, "input.nyx", "@namespace demo\n@import missing\nframe {\npattern: 0x7e\n}\n")

	if _, err := Compile(Options{Inputs: []string{input}, SysRoot: dir}, nil); err == nil {
		t.Fatal("expected Compile to fail when an import cannot be located")
	}
}

func TestPluginOptionArgsIncludesOutdirWhenNonDefault(t *testing.T) {
	args := PluginOptionArgs(Options{Opt: []string{"a=b"}, OutDir: "/tmp/out"})
	want := []string{"a=b", "outdir=/tmp/out"}
	if len(args) != len(want) {
		t.Fatalf("args = %v, want %v", args, want)
	}
	for i := range want {
		if args[i] != want[i] {
			t.Errorf("args[%d] = %q, want %q", i, args[i], want[i])
		}
	}
}

func TestPluginOptionArgsOmitsDefaultOutdir(t *testing.T) {
	args := PluginOptionArgs(Options{OutDir: "."})
	if len(args) != 0 {
		t.Errorf("args = %v, want empty for default outdir", args)
	}
}

func TestResolvedLanguageDefault(t *testing.T) {
	if got := ResolvedLanguage(Options{}); got != "c++" {
		t.Errorf("ResolvedLanguage(empty) = %q, want c++", got)
	}
	if got := ResolvedLanguage(Options{Language: "rust"}); got != "rust" {
		t.Errorf("ResolvedLanguage(rust) = %q, want rust", got)
	}
}
