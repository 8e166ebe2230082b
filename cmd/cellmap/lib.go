package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"cellmap/internal/diag"
	"cellmap/internal/diagfmt"
	"cellmap/internal/driver"
	"cellmap/internal/memlib"
	"cellmap/internal/source"
)

var libCmd = &cobra.Command{
	Use:   "lib",
	Short: "Inspect RAM cell libraries",
}

var libCheckCmd = &cobra.Command{
	Use:   "check --lib file.txt [--lib ...] [-D define]",
	Short: "Parse libraries and report diagnostics",
	RunE:  runLibCheck,
}

var libDumpCmd = &cobra.Command{
	Use:   "dump --lib file.txt [--lib ...] [-D define]",
	Short: "Re-emit parsed libraries in canonical form",
	RunE:  runLibDump,
}

func init() {
	for _, c := range []*cobra.Command{libCheckCmd, libDumpCmd} {
		c.Flags().StringArray("lib", nil, "library file with RAM cell definitions (repeatable)")
		c.Flags().StringArrayP("define", "D", nil, "enable a condition checked by ifdef/ifndef (repeatable)")
	}
	libCmd.AddCommand(libCheckCmd)
	libCmd.AddCommand(libDumpCmd)
}

func loadLibFromFlags(cmd *cobra.Command) (*memlib.Library, *source.FileSet, *diag.Bag, error) {
	paths, err := cmd.Flags().GetStringArray("lib")
	if err != nil {
		return nil, nil, nil, err
	}
	if len(paths) == 0 {
		return nil, nil, nil, fmt.Errorf("at least one --lib is required")
	}
	defines, err := cmd.Flags().GetStringArray("define")
	if err != nil {
		return nil, nil, nil, err
	}

	fs := source.NewFileSet()
	bag := diag.NewBag(100)
	lib, err := driver.LoadLibraries(fs, paths, defines, diag.BagReporter{Bag: bag})
	return lib, fs, bag, err
}

func renderBag(cmd *cobra.Command, fs *source.FileSet, bag *diag.Bag) {
	quiet, _ := cmd.Root().PersistentFlags().GetBool("quiet")
	if bag == nil || quiet || bag.Len() == 0 {
		return
	}
	bag.Sort()
	diagfmt.Pretty(os.Stderr, bag, fs, diagfmt.PrettyOpts{Color: useColor(cmd, os.Stderr)})
}

func runLibCheck(cmd *cobra.Command, _ []string) error {
	lib, fs, bag, err := loadLibFromFlags(cmd)
	renderBag(cmd, fs, bag)
	if err != nil {
		return err
	}
	quiet, _ := cmd.Root().PersistentFlags().GetBool("quiet")
	if !quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "ok: %d ram definitions\n", len(lib.RamDefs))
	}
	return nil
}

func runLibDump(cmd *cobra.Command, _ []string) error {
	lib, fs, bag, err := loadLibFromFlags(cmd)
	renderBag(cmd, fs, bag)
	if err != nil {
		return err
	}
	return memlib.Dump(cmd.OutOrStdout(), lib)
}
