package fs

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile(%s): %v", name, err)
	}
}

func TestLocateSearchOrder(t *testing.T) {
	cwd := t.TempDir()
	sysRoot := t.TempDir()
	include := t.TempDir()

	writeFile(t, sysRoot, "shared.nyx", "sysroot version")
	writeFile(t, include, "shared.nyx", "include version")
	writeFile(t, include, "onlyInclude.nyx", "include only")

	oldWd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(cwd); err != nil {
		t.Fatal(err)
	}
	defer os.Chdir(oldWd)

	fsys := NewOSFileSystem(sysRoot, []string{include})

	path, ok := fsys.Locate("shared.nyx")
	if !ok {
		t.Fatal("expected to locate shared.nyx")
	}
	content, err := fsys.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if content != "sysroot version" {
		t.Errorf("expected sysroot to take priority over include dirs, got %q", content)
	}

	if _, ok := fsys.Locate("onlyInclude.nyx"); !ok {
		t.Error("expected to find a file only present in an include directory")
	}

	if _, ok := fsys.Locate("missing.nyx"); ok {
		t.Error("expected Locate to fail for a nonexistent file")
	}
}

func TestLocatePrefersCurrentDirectory(t *testing.T) {
	cwd := t.TempDir()
	sysRoot := t.TempDir()

	writeFile(t, cwd, "a.nyx", "cwd version")
	writeFile(t, sysRoot, "a.nyx", "sysroot version")

	oldWd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(cwd); err != nil {
		t.Fatal(err)
	}
	defer os.Chdir(oldWd)

	fsys := NewOSFileSystem(sysRoot, nil)
	path, ok := fsys.Locate("a.nyx")
	if !ok {
		t.Fatal("expected to locate a.nyx")
	}
	content, err := fsys.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if content != "cwd version" {
		t.Errorf("expected current directory to take priority, got %q", content)
	}
}

func TestNormalizeTrimsTrailingSlash(t *testing.T) {
	fsys := NewOSFileSystem("/sys/root/", []string{"/inc/a/", "", "/inc/b"})
	if fsys.SysRoot != "/sys/root" {
		t.Errorf("SysRoot = %q, want trimmed", fsys.SysRoot)
	}
	if len(fsys.Include) != 2 {
		t.Fatalf("expected empty include entries to be dropped, got %v", fsys.Include)
	}
	if fsys.Include[0] != "/inc/a" || fsys.Include[1] != "/inc/b" {
		t.Errorf("unexpected include dirs: %v", fsys.Include)
	}
}
