// Package fs defines the filesystem collaborator interface the Registry
// consumes (spec §6) and a real implementation searching the current
// directory, a system root, and user include directories in order,
// mirroring the original implementation's Filesystem class
// (inc/nyx/filesystem.h / src/filesystem.cpp).
package fs

import (
	"os"
	"path/filepath"
	"strings"
)

// FileSystem locates source files by name and reads their contents. The
// core never touches the OS filesystem except through this interface.
type FileSystem interface {
	// Locate searches for name and returns its resolved path, or ok=false
	// if no matching regular file exists on any searched path.
	Locate(name string) (path string, ok bool)
	// ReadFile returns the contents of a path previously returned by
	// Locate (or the literal path given on the command line).
	ReadFile(path string) (string, error)
}

// OSFileSystem searches, in order: the current directory, the system
// root, then each user include directory. Paths are normalised to strip
// trailing slashes and drop empty entries.
type OSFileSystem struct {
	SysRoot string
	Include []string
}

// NewOSFileSystem builds an OSFileSystem, normalising sysRoot and every
// include directory.
func NewOSFileSystem(sysRoot string, include []string) *OSFileSystem {
	fsys := &OSFileSystem{SysRoot: normalize(sysRoot)}
	for _, dir := range include {
		if n := normalize(dir); n != "" {
			fsys.Include = append(fsys.Include, n)
		}
	}
	return fsys
}

func normalize(dir string) string {
	return strings.TrimRight(dir, "/")
}

func (f *OSFileSystem) searchPaths() []string {
	paths := []string{"."}
	if f.SysRoot != "" {
		paths = append(paths, f.SysRoot)
	}
	paths = append(paths, f.Include...)
	return paths
}

func (f *OSFileSystem) Locate(name string) (string, bool) {
	for _, dir := range f.searchPaths() {
		candidate := filepath.Join(dir, name)
		info, err := os.Stat(candidate)
		if err != nil {
			continue
		}
		if info.Mode().IsRegular() {
			return candidate, true
		}
	}
	return "", false
}

func (f *OSFileSystem) ReadFile(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
