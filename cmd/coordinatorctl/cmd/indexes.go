package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"go-query-coordinator/internal/catalog"
	"go-query-coordinator/internal/model"
	"go-query-coordinator/internal/store"
)

func indexesCmd() *cobra.Command {
	var (
		target targetFlags
		apply  bool
	)
	cmd := &cobra.Command{
		Use:   "indexes",
		Short: "Print the index creation statements, or apply them to a database",
		Long: `Print one CREATE INDEX statement per declared index, in catalog order.

With --apply the statements are executed one by one against the target database.
Statements are idempotent, so applying twice is safe.`,
		Example: `coordinatorctl indexes
coordinatorctl indexes --apply --driver pgx --dsn postgres://localhost/analytics`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			indexes := catalog.Indexes()
			statements := indexes.GenerateCreationStatements()
			if !apply {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), strings.Join(statements, "\n\n"))
				return err
			}

			db, err := store.OpenTarget(target.driver, target.dsn)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := store.NewSQLAccessor(db, model.DefaultRetryConfig).Apply(cmd.Context(), statements); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "applied %d index statements (catalog version %d)\n", len(statements), indexes.Version)
			return err
		},
	}
	target.register(cmd)
	cmd.Flags().BoolVar(&apply, "apply", false, "Execute the statements against the target database")
	return cmd
}
