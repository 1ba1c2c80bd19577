package cmd

import (
	"github.com/spf13/cobra"

	"go-query-coordinator/internal/catalog"
	"go-query-coordinator/internal/model"
)

func catalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog [query type]",
		Short: "Print the predefined queries, optionally of one type, as JSON",
		Example: `coordinatorctl catalog
coordinatorctl catalog trending_analysis`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return printJSON(cmd.OutOrStdout(), catalog.All())
			}
			t, err := model.ParseQueryType(args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), catalog.ForType(t))
		},
	}
	return cmd
}
