// Package cli implements parkingctl, the operator command line: schema
// migration, a one-shot status sweep for external cron and dev tokens.
package cli

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/hitman711/parkinglot/internal/config"
	"github.com/hitman711/parkinglot/internal/database"
)

var outputJSON bool

// openDB is replaced in tests.
var openDB = func() (*sql.DB, error) {
	c := config.LoadDB()
	return database.Open(c.User, c.Pass, c.Host, c.Port, c.Name)
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "parkingctl",
		Short:        "Operate the parking reservation service",
		SilenceUsage: true,
	}
	root.PersistentFlags().BoolVar(&outputJSON, "json", false, "Output JSON")
	root.AddCommand(migrateCmd())
	root.AddCommand(sweepCmd())
	root.AddCommand(tokenCmd())
	return root
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
