package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"cellmap/internal/diag"
	"cellmap/internal/driver"
	"cellmap/internal/observ"
	"cellmap/internal/project"
	"cellmap/internal/source"
)

var mapCmd = &cobra.Command{
	Use:   "map [flags] design.toml",
	Short: "Map a design's memories to RAM cells",
	Long: `Map parses the RAM cell libraries and computes, for every memory in
the design, the set of viable mapping candidates prior to geometry
selection. Libraries and defines default to the cellmap.toml manifest
next to the design.`,
	Args: cobra.ExactArgs(1),
	RunE: runMap,
}

func init() {
	mapCmd.Flags().StringArray("lib", nil, "library file with RAM cell definitions (repeatable)")
	mapCmd.Flags().StringArrayP("define", "D", nil, "enable a condition checked by ifdef/ifndef (repeatable)")
	mapCmd.Flags().Bool("verbose", false, "print per-candidate mapping trace")
	mapCmd.Flags().Int("jobs", 0, "maximum concurrent memory mappings (0 = number of CPUs)")
	mapCmd.Flags().Bool("no-cache", false, "bypass the parsed-library disk cache")
}

func runMap(cmd *cobra.Command, args []string) error {
	designPath := args[0]
	paths, _ := cmd.Flags().GetStringArray("lib")
	defines, _ := cmd.Flags().GetStringArray("define")
	verbose, _ := cmd.Flags().GetBool("verbose")
	jobs, _ := cmd.Flags().GetInt("jobs")
	noCache, _ := cmd.Flags().GetBool("no-cache")
	quiet, _ := cmd.Root().PersistentFlags().GetBool("quiet")
	timings, _ := cmd.Root().PersistentFlags().GetBool("timings")

	// Fall back to the manifest next to the design.
	if len(paths) == 0 {
		if mpath, ok := project.FindManifest(filepath.Dir(designPath)); ok {
			manifest, err := project.LoadManifest(mpath)
			if err != nil {
				return err
			}
			paths = manifest.Libraries
			defines = append(defines, manifest.Defines...)
		}
	}
	if len(paths) == 0 {
		return fmt.Errorf("no libraries: pass --lib or provide %s next to the design", project.ManifestName)
	}

	timer := observ.NewTimer()

	var cache *driver.LibCache
	if !noCache {
		// Cache failures are not fatal; parsing covers for them.
		cache, _ = driver.OpenLibCache("cellmap")
	}

	phase := timer.Begin("parse libraries")
	fs := source.NewFileSet()
	bag := diag.NewBag(100)
	lib, err := driver.LoadLibrariesCached(cache, fs, paths, defines, diag.BagReporter{Bag: bag})
	timer.End(phase, fmt.Sprintf("%d files", len(paths)))
	renderBag(cmd, fs, bag)
	if err != nil {
		return err
	}

	phase = timer.Begin("load design")
	design, err := driver.LoadDesign(designPath)
	timer.End(phase, "")
	if err != nil {
		return err
	}

	phase = timer.Begin("map memories")
	results, err := driver.MapDesign(cmd.Context(), design, lib, driver.MapOptions{
		Jobs:  jobs,
		Trace: verbose,
	})
	timer.End(phase, fmt.Sprintf("%d memories", len(results)))
	if err != nil {
		return err
	}

	for _, res := range results {
		if !quiet {
			note := ""
			if res.LogicOK {
				note = " (logic fallback ok)"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s.%s: %d candidates%s\n", res.Module, res.MemID, len(res.Cfgs), note)
		}
		for _, line := range res.TraceLines {
			fmt.Fprintln(os.Stderr, line)
		}
	}

	if timings {
		fmt.Fprint(os.Stderr, timer.Summary())
	}
	return nil
}
