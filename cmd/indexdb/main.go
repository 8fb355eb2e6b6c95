// Command indexdb is the reference CLI over pkg/indexdb: import unit
// artifacts, watch a store directory, run queries, and inspect/repair
// a database, grounded in cuemby-warren/cmd/warren/main.go's cobra
// root-command shape. gc follows cmd/warren-migrate/main.go's
// standalone-tool idiom: it sweeps workdirs without opening the
// Artifact Repository. stats and dump-provider-files open the database
// read-only through pkg/indexdb.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cuemby/indexdb/pkg/log"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "indexdb",
	Short:   "A persistent, incrementally-updated source symbol index",
	Version: "dev",
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")

	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(gcCmd)
	rootCmd.AddCommand(dumpProviderFilesCmd)
	rootCmd.AddCommand(serveMetricsCmd)
}

func initLogging() {
	level, _ := rootCmd.PersistentFlags().GetString("log-level")
	jsonOut, _ := rootCmd.PersistentFlags().GetBool("log-json")
	log.Init(log.Config{Level: log.Level(level), JSONOutput: jsonOut})
}
