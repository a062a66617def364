// Package compiler wires the pipeline together — filesystem, tokenizer,
// parser, lowerer, registry, and planner — into the single entry point
// a CLI or other driver calls. It takes no dependency on cobra or the
// process environment (os.Args, flags); every external input arrives
// through Options, matching the teacher's convention of an environment-
// free core behind a thin cmd/ driver.
package compiler

import (
	"github.com/nyxlang/nyxc/diag"
	"github.com/nyxlang/nyxc/fs"
	"github.com/nyxlang/nyxc/plan"
	"github.com/nyxlang/nyxc/planfmt"
	"github.com/nyxlang/nyxc/registry"
)

// Options binds the CLI surface described in spec.md §6. Flags map
// directly onto these fields; no field reaches into the process
// environment on its own.
type Options struct {
	// Inputs is the positional argument list: files to compile.
	Inputs []string

	// Include is the ordered list of -I/--include directories.
	Include []string

	// Language selects the output plugin (-l/--lang/--language).
	// Defaults to "c++" if empty.
	Language string

	// OutDir is the base output directory (-o/--outdir). Defaults to
	// "." if empty; injected into plugin options as "outdir=<dir>"
	// only when set to something other than the default.
	OutDir string

	// Opt holds pass-through plugin options (-O/--opt/--option),
	// repeatable.
	Opt []string

	// SysRoot overrides the system import directory
	// (-S/--sysroot). Defaults to "/usr/include/nyx" if empty.
	SysRoot string
}

const defaultSysRoot = "/usr/include/nyx"
const defaultLanguage = "c++"
const defaultOutDir = "."

// Result is one successfully compiled input file: its plan and the
// plan's content hash. Diagnostics for a failed input go to the sink.
type Result struct {
	Input string
	Plan  *plan.Plan
	Hash  [32]byte
}

// Compile runs the full pipeline for every input file in opts, each
// against its own Registry (imports are per-entry-file, per spec
// §4.4), and returns one Result per input in the same order. A nil
// error and a non-empty Results slice means every input compiled
// successfully; diagnostics for failures were already reported to
// sink as they occurred.
func Compile(opts Options, sink diag.Sink) ([]Result, error) {
	sysRoot := opts.SysRoot
	if sysRoot == "" {
		sysRoot = defaultSysRoot
	}
	fsys := fs.NewOSFileSystem(sysRoot, opts.Include)

	var results []Result
	for _, input := range opts.Inputs {
		reg := registry.New(fsys, sink)
		if err := reg.Load(input); err != nil {
			return results, err
		}
		p, err := plan.Generate(reg)
		if err != nil {
			return results, err
		}
		cp := planfmt.Canonicalize(p)
		if err := planfmt.Validate(cp); err != nil {
			return results, err
		}
		hash, err := cp.Hash()
		if err != nil {
			return results, err
		}
		results = append(results, Result{Input: input, Plan: p, Hash: hash})
	}
	return results, nil
}

// PluginOptionArgs renders the -O/--opt pass-through list plus any
// outdir injection into the flat "key=value" argument list a plugin
// receives, per spec.md §6.
func PluginOptionArgs(opts Options) []string {
	args := append([]string{}, opts.Opt...)
	if opts.OutDir != "" && opts.OutDir != defaultOutDir {
		args = append(args, "outdir="+opts.OutDir)
	}
	return args
}

// ResolvedLanguage returns opts.Language, or the default plugin
// language if unset.
func ResolvedLanguage(opts Options) string {
	if opts.Language == "" {
		return defaultLanguage
	}
	return opts.Language
}
