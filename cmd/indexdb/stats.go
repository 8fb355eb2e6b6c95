package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cuemby/indexdb/internal/schema"
)

// statsOrder is schema.AllBuckets rendered as plain names, so output
// lists sub-databases in schema declaration order rather than map
// iteration order.
var statsOrder = bucketNames()

func bucketNames() []string {
	names := make([]string, 0, len(schema.AllBuckets))
	for _, b := range schema.AllBuckets {
		names = append(names, string(b))
	}
	return names
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print per-sub-database key counts and map-size policy (§6 printStats)",
	RunE: func(cmd *cobra.Command, args []string) error {
		storeDir, _ := cmd.Flags().GetString("store")
		dbDir, _ := cmd.Flags().GetString("db")

		db, err := openReadOnly(storeDir, dbDir)
		if err != nil {
			return fmt.Errorf("open: %w", err)
		}
		defer db.Close()

		stats, err := db.Stats()
		if err != nil {
			return err
		}

		fmt.Printf("map size:    %d bytes\n", db.MapSize())
		fmt.Printf("growths:     %d\n", db.Growths())
		fmt.Println("sub-databases:")
		for _, name := range statsOrder {
			fmt.Printf("  %-28s %d\n", name, stats[name])
		}
		return nil
	},
}

func init() {
	statsCmd.Flags().String("store", "", "Directory of unit artifact files (unused for stats, accepted for symmetry)")
	addDBFlag(statsCmd)
}
