package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Version information - will be set at build time
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "lifecycle",
		Short: "Lifecycle hook registry tooling",
		Long: `Lifecycle inspects the hook registry of an application built on the
lifecycle engine: it lists registered hooks per type, validates watched
field paths against type schemas, and checks database connectivity.`,
	}

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(hooksCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(dbCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
