package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Ingest every unit artifact currently in --store and exit",
	Long: `import opens the database, lets the initial directory scan
drain through the ingest queue, and closes again — a one-shot
equivalent of running watch and stopping once the backlog clears.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		storeDir, _ := cmd.Flags().GetString("store")
		dbDir, _ := cmd.Flags().GetString("db")

		db, err := openWritable(storeDir, dbDir)
		if err != nil {
			return fmt.Errorf("open: %w", err)
		}
		defer db.Close()

		db.PollForUnitChangesAndWait()

		stats, err := db.Stats()
		if err != nil {
			return fmt.Errorf("stats: %w", err)
		}
		fmt.Println("Import complete.")
		for _, name := range statsOrder {
			if n, ok := stats[name]; ok {
				fmt.Printf("  %-28s %d\n", name, n)
			}
		}
		return nil
	},
}

func init() {
	addStoreFlags(importCmd)
}
