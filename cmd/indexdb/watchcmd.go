package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cuemby/indexdb/internal/schema"
	"github.com/cuemby/indexdb/pkg/events"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Open the database and ingest unit artifacts as they change, until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		storeDir, _ := cmd.Flags().GetString("store")
		dbDir, _ := cmd.Flags().GetString("db")
		verbose, _ := cmd.Flags().GetBool("print-events")

		db, err := openWritable(storeDir, dbDir)
		if err != nil {
			return fmt.Errorf("open: %w", err)
		}
		defer db.Close()

		if verbose {
			sub := db.Delegate().Subscribe()
			defer db.Delegate().Unsubscribe(sub)
			go func() {
				for ev := range sub {
					printEvent(ev)
				}
			}()
		}

		fmt.Printf("watching %s, indexing into %s. Press Ctrl+C to stop.\n", storeDir, dbDir)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		<-sigCh

		fmt.Println("\nshutting down...")
		return nil
	},
}

func printEvent(ev *events.Event) {
	switch ev.Type {
	case events.EventUnitOutOfDate:
		if ood, ok := ev.Payload.(events.OutOfDate); ok {
			fmt.Printf("[out-of-date] %s: %s\n", ood.UnitName, ood.Trigger.Description)
			return
		}
	case events.EventProcessedStoreUnit:
		if info, ok := ev.Payload.(*schema.UnitInfo); ok {
			fmt.Printf("[stored] %s\n", info.Name)
			return
		}
	}
	fmt.Printf("[%s] %s\n", ev.Type, ev.Message)
}

func init() {
	addStoreFlags(watchCmd)
	watchCmd.Flags().Bool("print-events", true, "Print delegate notifications as they arrive")
}
