// Command bigtime is the BigTime time-clock client: an embedded database
// for employees and shifts, a background sync daemon that reconciles it
// with a central server, and a companion server mode for the central side.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "bigtime",
	Short: "Offline-first time clock with background sync",
	Long: `BigTime keeps employee and shift data in a local database and
reconciles it with a central server whenever one is reachable. All
commands work offline; changes queue locally and sync later.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "bigtime.yaml",
		"path to the configuration file")
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
