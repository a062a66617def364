// Command nyxc compiles nyx format descriptions into a dependency-
// ordered Plan for a codegen plugin to consume. It is a thin driver
// over package compiler: flag parsing and process exit codes only.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nyxlang/nyxc/compiler"
	"github.com/nyxlang/nyxc/diag"
	"github.com/nyxlang/nyxc/planfmt"
)

// version is the nyxc build version, printed by -v/--ver/--version.
const version = "0.1.0"

func main() {
	opts := compiler.Options{}
	var showVersion bool

	rootCmd := &cobra.Command{
		Use:   "nyxc [flags] file...",
		Short: "Compile nyx format descriptions into a plan",
		RunE: func(cmd *cobra.Command, args []string) error {
			if showVersion {
				fmt.Printf("nyxc %s (plan format %s)\n", version, planfmt.FormatVersion)
				return nil
			}
			if len(args) == 0 {
				return fmt.Errorf("no input files given")
			}
			opts.Inputs = args
			return run(opts)
		},
	}

	rootCmd.Flags().StringSliceVarP(&opts.Include, "include", "I", nil, "append a user include directory")
	rootCmd.Flags().StringVarP(&opts.Language, "lang", "l", "", "select output plugin language (default c++)")
	rootCmd.Flags().StringVarP(&opts.OutDir, "outdir", "o", "", "base output directory (default .)")
	rootCmd.Flags().StringArrayVarP(&opts.Opt, "opt", "O", nil, "pass through to the plugin")
	rootCmd.Flags().StringVarP(&opts.SysRoot, "sysroot", "S", "", "override the system import directory")
	rootCmd.Flags().BoolVarP(&showVersion, "version", "v", false, "print version and exit")

	// --language and --ver are accepted as long-form aliases for
	// --lang and --version respectively, per spec.md §6.
	rootCmd.Flags().StringVar(&opts.Language, "language", "", "alias of --lang")
	rootCmd.Flags().BoolVar(&showVersion, "ver", false, "alias of --version")
	rootCmd.Flags().StringArrayVar(&opts.Opt, "option", nil, "alias of --opt")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "nyxc: %v\n", err)
		os.Exit(1)
	}
}

func run(opts compiler.Options) error {
	sink := diag.NewWriter(os.Stderr)
	results, err := compiler.Compile(opts, sink)
	if err != nil {
		return err
	}
	for _, r := range results {
		fmt.Printf("%s: %d namespace(s), plan hash %x\n", r.Input, len(r.Plan.Namespaces), r.Hash)
	}
	return nil
}
