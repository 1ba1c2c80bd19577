package cmd

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"go-query-coordinator/internal/catalog"
	"go-query-coordinator/internal/config"
	"go-query-coordinator/internal/coordinator"
	"go-query-coordinator/internal/model"
	"go-query-coordinator/internal/store"
	"go-query-coordinator/pkg/utils"
)

type runOutput struct {
	Results []model.QueryResult   `json:"results"`
	Advice  []model.AdvisorReport `json:"advice"`
}

func runCmd() *cobra.Command {
	var (
		target   targetFlags
		queryIDs []string
		params   []string
		priority string
		timeout  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run catalog queries as one batch and print the results with the advisor output",
		Long: `Run catalog queries as one batch against the target database.

Each --param is bound to every selected query that declares a parameter of that name.`,
		Example: `coordinatorctl run --query user_category_affinity --param user_id=u-17
coordinatorctl run --query slowest_screens --query screen_load_times --param limit=10 --param hours=24 --dsn postgres://db.internal/analytics`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := model.ParsePriority(priority)
			if err != nil {
				return err
			}
			assignments, err := utils.ParseAssignments(params)
			if err != nil {
				return err
			}
			requests, err := buildRequests(queryIDs, assignments)
			if err != nil {
				return err
			}

			db, err := store.OpenTarget(target.driver, target.dsn)
			if err != nil {
				return err
			}
			defer db.Close()

			cfg := config.Defaults()
			cfg.Target.Driver = target.driver
			cfg.Target.DSN = target.dsn
			cfg.Cache.Enabled = false
			c, err := coordinator.New(cfg, store.NewSQLAccessor(db, cfg.Target.Retry))
			if err != nil {
				return err
			}
			queries, err := c.ResolveQueries(requests)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			c.Start(ctx)
			results, err := c.SubmitBatch(ctx, queries, p)

			shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancelShutdown()
			if shutdownErr := c.Shutdown(shutdownCtx); err == nil {
				err = shutdownErr
			}
			if err != nil {
				return err
			}

			out := runOutput{Results: results, Advice: []model.AdvisorReport{}}
			seen := make(map[model.QueryType]bool)
			for _, q := range queries {
				if !seen[q.Type] {
					seen[q.Type] = true
					out.Advice = append(out.Advice, c.Analyze(q.Type))
				}
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	target.register(cmd)
	cmd.Flags().StringSliceVar(&queryIDs, "query", nil, "Catalog query id to run (repeatable)")
	cmd.Flags().StringArrayVar(&params, "param", nil, "Parameter as name=value (repeatable)")
	cmd.Flags().StringVar(&priority, "priority", model.PriorityHigh.String(), "Batch priority: high, medium or low")
	cmd.Flags().DurationVar(&timeout, "timeout", time.Minute, "Give up waiting for results after this long")
	_ = cmd.MarkFlagRequired("query")
	return cmd
}

// buildRequests binds every assignment to the selected queries declaring it.
// An assignment no selected query declares is rejected.
func buildRequests(queryIDs []string, assignments []utils.Assignment) ([]coordinator.QueryRequest, error) {
	requests := make([]coordinator.QueryRequest, 0, len(queryIDs))
	used := make(map[string]bool, len(assignments))
	for _, id := range queryIDs {
		q, ok := catalog.Lookup(id)
		if !ok {
			return nil, errors.Wrapf(coordinator.ErrUnknownQuery, "%q", id)
		}
		req := coordinator.QueryRequest{ID: id}
		for _, a := range assignments {
			for _, declared := range q.Parameters {
				if declared.Name == a.Name {
					req.Parameters = append(req.Parameters, model.Parameter{Name: a.Name, Value: a.Value})
					used[a.Name] = true
				}
			}
		}
		requests = append(requests, req)
	}
	for _, a := range assignments {
		if !used[a.Name] {
			return nil, errors.Wrapf(model.ErrUnknownParameter, "no selected query declares %q", a.Name)
		}
	}
	return requests, nil
}
