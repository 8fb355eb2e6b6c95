package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cuemby/indexdb/pkg/log"
	"github.com/cuemby/indexdb/pkg/metrics"
	"github.com/cuemby/indexdb/pkg/reconciler"
)

var serveMetricsCmd = &cobra.Command{
	Use:   "serve-metrics",
	Short: "Watch --store into --db and serve /metrics, with a background workdir cleanup sweeper",
	RunE: func(cmd *cobra.Command, args []string) error {
		storeDir, _ := cmd.Flags().GetString("store")
		dbDir, _ := cmd.Flags().GetString("db")
		addr, _ := cmd.Flags().GetString("addr")
		sweepPeriod, _ := cmd.Flags().GetDuration("sweep-period")

		db, err := openWritable(storeDir, dbDir)
		if err != nil {
			return fmt.Errorf("open: %w", err)
		}
		defer db.Close()

		sweeper := reconciler.NewSweeper([]string{dbDir}, sweepPeriod)
		sweeper.Start()
		defer sweeper.Stop()

		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		srv := &http.Server{Addr: addr, Handler: mux}

		errCh := make(chan error, 1)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				errCh <- err
			}
		}()
		fmt.Printf("serving metrics on http://%s/metrics\n", addr)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

		select {
		case <-sigCh:
			fmt.Println("\nshutting down...")
		case err := <-errCh:
			log.Errorf("metrics server error: %v", err)
		}

		return srv.Shutdown(context.Background())
	},
}

func init() {
	addStoreFlags(serveMetricsCmd)
	serveMetricsCmd.Flags().String("addr", "127.0.0.1:9090", "Metrics listen address")
	serveMetricsCmd.Flags().Duration("sweep-period", 0, "Workdir cleanup sweep period (default 5m)")
}
