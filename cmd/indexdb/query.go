package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cuemby/indexdb/internal/query"
	"github.com/cuemby/indexdb/internal/rtxn"
	"github.com/cuemby/indexdb/pkg/indexdb"
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Run a read-only query against the index (§4.7)",
}

func init() {
	for _, c := range []*cobra.Command{
		queryOccurrenceCmd, queryCanonicalCmd, queryFilesOfUnitCmd,
		queryUnitsContainingFileCmd, queryIncludesCmd, queryOverridesCmd,
		queryCallsCmd,
	} {
		c.Flags().String("store", "", "Directory of unit artifact files (unused, accepted for symmetry)")
		addDBFlag(c)
		queryCmd.AddCommand(c)
	}
}

func withDB(cmd *cobra.Command, fn func(db *indexdb.DB) error) error {
	storeDir, _ := cmd.Flags().GetString("store")
	dbDir, _ := cmd.Flags().GetString("db")
	db, err := openReadOnly(storeDir, dbDir)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	defer db.Close()
	return fn(db)
}

func printOccurrences(occs []query.Occurrence) {
	if len(occs) == 0 {
		fmt.Println("no occurrences found")
		return
	}
	for _, o := range occs {
		fmt.Printf("%-50s %-24s %s\n", o.USR, o.Name, o.FilePath)
	}
}

var queryOccurrenceCmd = &cobra.Command{
	Use:   "occurrence USR",
	Short: "List occurrences of USR matching --roles",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rolesCSV, _ := cmd.Flags().GetString("roles")
		return withDB(cmd, func(db *indexdb.DB) error {
			occs, err := db.OccurrenceByUSR(args[0], parseRoles(rolesCSV))
			if err != nil {
				return err
			}
			printOccurrences(occs)
			return nil
		})
	},
}

func init() {
	queryOccurrenceCmd.Flags().String("roles", "", "Comma-separated role filter (e.g. declaration,definition)")
}

var queryCanonicalCmd = &cobra.Command{
	Use:   "canonical [USR|--name NAME|--pattern PATTERN|--kind KIND]",
	Short: "Resolve canonical occurrence(s) by USR, name, pattern, or kind",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		pattern, _ := cmd.Flags().GetString("pattern")
		kind, _ := cmd.Flags().GetString("kind")
		ignoreCase, _ := cmd.Flags().GetBool("ignore-case")
		subsequence, _ := cmd.Flags().GetBool("subsequence")

		return withDB(cmd, func(db *indexdb.DB) error {
			var (
				occs []query.Occurrence
				err  error
			)
			switch {
			case len(args) == 1:
				occs, err = db.CanonicalByUSR(args[0])
			case name != "":
				occs, err = db.CanonicalByName(name)
			case pattern != "":
				occs, err = db.CanonicalByPattern(pattern, rtxn.MatchOptions{
					IgnoreCase:  ignoreCase,
					Subsequence: subsequence,
				})
			case kind != "":
				occs, err = db.CanonicalByKind(parseSymbolKind(kind))
			default:
				return fmt.Errorf("one of USR, --name, --pattern, or --kind is required")
			}
			if err != nil {
				return err
			}
			printOccurrences(occs)
			return nil
		})
	},
}

func init() {
	queryCanonicalCmd.Flags().String("name", "", "Exact symbol name")
	queryCanonicalCmd.Flags().String("pattern", "", "Substring/prefix pattern over symbol names")
	queryCanonicalCmd.Flags().String("kind", "", "Global symbol kind (class, function, ...)")
	queryCanonicalCmd.Flags().Bool("ignore-case", false, "Case-insensitive pattern match")
	queryCanonicalCmd.Flags().Bool("subsequence", false, "Subsequence rather than substring pattern match")
}

var queryFilesOfUnitCmd = &cobra.Command{
	Use:   "files-of-unit UNIT_NAME",
	Short: "List the files a unit contains",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(cmd, func(db *indexdb.DB) error {
			paths, err := db.FilesOfUnit(args[0])
			if err != nil {
				return err
			}
			for _, p := range paths {
				fmt.Println(p)
			}
			return nil
		})
	},
}

var queryUnitsContainingFileCmd = &cobra.Command{
	Use:   "units-containing-file PATH",
	Short: "List the units that contain PATH",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(cmd, func(db *indexdb.DB) error {
			units, err := db.UnitsContainingFile(args[0])
			if err != nil {
				return err
			}
			for _, u := range units {
				fmt.Println(u)
			}
			return nil
		})
	},
}

var queryIncludesCmd = &cobra.Command{
	Use:   "includes PATH",
	Short: "List the files PATH includes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(cmd, func(db *indexdb.DB) error {
			paths, err := db.FileIncludes(args[0])
			if err != nil {
				return err
			}
			for _, p := range paths {
				fmt.Println(p)
			}
			return nil
		})
	},
}

var queryOverridesCmd = &cobra.Command{
	Use:   "overrides USR",
	Short: "List USR's occurrences that carry an override-of/base-of relation (ancestors are not followed)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		instanceMethod, _ := cmd.Flags().GetBool("instance-method")
		return withDB(cmd, func(db *indexdb.DB) error {
			occs, err := db.OverrideAncestry(args[0], instanceMethod)
			if err != nil {
				return err
			}
			printOccurrences(occs)
			return nil
		})
	},
}

func init() {
	queryOverridesCmd.Flags().Bool("instance-method", true, "USR names an instance method (vs. a class)")
}

var queryCallsCmd = &cobra.Command{
	Use:   "calls USR",
	Short: "List call sites of USR, optionally expanding through dynamic-dispatch overrides",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dynamic, _ := cmd.Flags().GetBool("dynamic")
		return withDB(cmd, func(db *indexdb.DB) error {
			sites, err := db.CallOccurrences(args[0], dynamic)
			if err != nil {
				return err
			}
			if len(sites) == 0 {
				fmt.Println("no call sites found")
				return nil
			}
			for _, s := range sites {
				fmt.Printf("%-50s %-24s %s\n", s.USR, s.ReceiverUSR, s.FilePath)
			}
			return nil
		})
	},
}

func init() {
	queryCallsCmd.Flags().Bool("dynamic", false, "Expand through dynamic-dispatch overrides")
}
