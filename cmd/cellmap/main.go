package main

import (
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"cellmap/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "cellmap",
	Short: "Memory-to-RAM-cell mapping toolchain",
	Long:  `cellmap maps abstract memories to RAM primitives described in a cell library`,
}

func main() {
	rootCmd.Version = version.Version

	rootCmd.AddCommand(libCmd)
	rootCmd.AddCommand(mapCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	rootCmd.PersistentFlags().Bool("quiet", false, "suppress non-essential output")
	rootCmd.PersistentFlags().Bool("timings", false, "show timing information")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func useColor(cmd *cobra.Command, f *os.File) bool {
	colorFlag, _ := cmd.Root().PersistentFlags().GetString("color")
	return colorFlag == "on" || (colorFlag == "auto" && isTerminal(f))
}
