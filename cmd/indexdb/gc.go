package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cuemby/indexdb/internal/repo"
)

// gcCmd is a standalone sweep, grounded in cmd/warren-migrate/main.go's
// idiom of a small tool that opens the on-disk state directly rather
// than through the full Repository lifecycle: it only needs
// CleanupStaleWorkdirs, so it calls straight into internal/repo
// without going through pkg/indexdb.Open.
var gcCmd = &cobra.Command{
	Use:   "gc",
	Short: "Remove stale pid-scoped workdirs left behind by crashed processes (§4.6 step 4)",
	RunE: func(cmd *cobra.Command, args []string) error {
		dbDir, _ := cmd.Flags().GetString("db")
		if err := repo.CleanupStaleWorkdirs(dbDir); err != nil {
			return fmt.Errorf("gc: %w", err)
		}
		fmt.Println("gc complete")
		return nil
	},
}

func init() {
	addDBFlag(gcCmd)
}
