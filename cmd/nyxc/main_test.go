package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nyxlang/nyxc/compiler"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile(%s): %v", name, err)
	}
	return path
}

func TestRunSucceedsOnValidInput(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "nyx.nyx", "")
	input := writeFile(t, dir, "input.nyx", "@namespace demo\nframe {\npattern: 0x7e\n}\n")

	if err := run(compiler.Options{Inputs: []string{input}, SysRoot: dir}); err != nil {
		t.Errorf("run() error: %v", err)
	}
}

func TestRunPropagatesCompileErrors(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "nyx.nyx", "")
	input := writeFile(t, dir, "input.nyx", "@namespace demo\nframe {\npattern: nope\n}\n")

	if err := run(compiler.Options{Inputs: []string{input}, SysRoot: dir}); err == nil {
		t.Error("expected run() to surface a compilation error")
	}
}
