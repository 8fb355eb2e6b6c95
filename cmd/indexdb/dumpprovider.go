package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var dumpProviderFilesCmd = &cobra.Command{
	Use:   "dump-provider-files PROVIDER",
	Short: "List every (file, unit, modtime) association a provider holds (§6 dumpProviderFileAssociations)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		storeDir, _ := cmd.Flags().GetString("store")
		dbDir, _ := cmd.Flags().GetString("db")

		db, err := openReadOnly(storeDir, dbDir)
		if err != nil {
			return fmt.Errorf("open: %w", err)
		}
		defer db.Close()

		assocs, err := db.DumpProviderFileAssociations(args[0])
		if err != nil {
			return err
		}
		if len(assocs) == 0 {
			fmt.Println("no file associations found")
			return nil
		}
		for _, a := range assocs {
			fmt.Printf("%-8s %-40s %-24s %d\n", systemTag(a.IsSystem), a.FilePath, a.UnitName, a.ModTime)
		}
		return nil
	},
}

func systemTag(isSystem bool) string {
	if isSystem {
		return "[system]"
	}
	return "[user]"
}

func init() {
	dumpProviderFilesCmd.Flags().String("store", "", "Directory of unit artifact files (unused, accepted for symmetry)")
	addDBFlag(dumpProviderFilesCmd)
}
