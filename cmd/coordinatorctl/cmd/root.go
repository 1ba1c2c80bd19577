package cmd

import (
	"encoding/json"
	"io"

	"github.com/spf13/cobra"

	"go-query-coordinator/internal/config"
)

// RootCmd is the root Cobra command that gets called from the main func.
// All other sub-commands should be registered here.
func RootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "coordinatorctl",
		Short:        "coordinatorctl inspects the query catalog, manages indexes and runs query batches.",
		SilenceUsage: true,
	}

	cmd.AddCommand(
		catalogCmd(),
		indexesCmd(),
		runCmd(),
	)

	return cmd
}

// targetFlags select the database commands run against.
type targetFlags struct {
	driver string
	dsn    string
}

func (t *targetFlags) register(cmd *cobra.Command) {
	defaults := config.Defaults().Target
	cmd.Flags().StringVar(&t.driver, "driver", defaults.Driver, "Database driver, pgx or sqlite3")
	cmd.Flags().StringVar(&t.dsn, "dsn", defaults.DSN, "Data source name of the target database")
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
