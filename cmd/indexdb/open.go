package main

import (
	"github.com/spf13/cobra"

	"github.com/cuemby/indexdb/pkg/indexdb"
)

func addStoreFlags(cmd *cobra.Command) {
	cmd.Flags().String("store", "", "Directory of unit artifact files (required)")
	cmd.Flags().String("db", "", "Database root directory (required)")
	cmd.MarkFlagRequired("store")
	cmd.MarkFlagRequired("db")
}

func addDBFlag(cmd *cobra.Command) {
	cmd.Flags().String("db", "", "Database root directory (required)")
	cmd.MarkFlagRequired("db")
}

// openWritable opens a non-readonly DB over storeDir/dbDir with the
// CLI's JSON artifact reader and the default fsnotify watcher.
func openWritable(storeDir, dbDir string) (*indexdb.DB, error) {
	rd := newFSReader(storeDir)
	return indexdb.Open(storeDir, dbDir, indexdb.Options{Reader: rd})
}

// openReadOnly opens a readonly DB for query/diagnostic commands. The
// reader still backs on-demand record decoding inside the Query
// Engine (e.g. resolving a symbol's kind from its provider record).
func openReadOnly(storeDir, dbDir string) (*indexdb.DB, error) {
	rd := newFSReader(storeDir)
	return indexdb.Open(storeDir, dbDir, indexdb.Options{ReadOnly: true, Reader: rd})
}
