package cli

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/omarriaga/blazer/internal/datasource"
)

func newRunCommand(a *app) *cobra.Command {
	var (
		refresh  bool
		format   string
		userID   string
		userName string
		queryID  string
	)

	cmd := &cobra.Command{
		Use:   "run <data-source> <statement>",
		Short: "Run a SQL statement against a data source",
		Long: `Execute a SQL statement against a configured data source.

Results may be served from cache depending on the source's cache
policy; --refresh forces re-execution.`,
		Example: `  # Run against the "main" source
  blazer run main "SELECT count(*) FROM users"

  # Bypass the cache
  blazer run main "SELECT count(*) FROM users" --refresh

  # Output as JSON
  blazer run main "SELECT * FROM events" --format json`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := a.Registry()
			if err != nil {
				return err
			}
			ds, err := reg.Get(args[0])
			if err != nil {
				return err
			}

			runID := uuid.NewString()
			a.logger.Debug("running statement", "run_id", runID, "data_source", args[0])

			start := time.Now()
			res, err := ds.RunStatement(cmd.Context(), args[1], datasource.RunOptions{
				RefreshCache: refresh,
				UserID:       userID,
				UserName:     userName,
				QueryID:      queryID,
			})
			if err != nil {
				return err
			}
			if res.Error != "" {
				return fmt.Errorf("statement failed: %s", res.Error)
			}

			if err := renderResult(cmd.OutOrStdout(), res, format); err != nil {
				return err
			}
			a.logger.Debug("statement finished", "run_id", runID, "elapsed", time.Since(start))
			return nil
		},
	}

	cmd.Flags().BoolVar(&refresh, "refresh", false, "Bypass the cache and re-execute")
	cmd.Flags().StringVarP(&format, "format", "f", "table", "Output format: table, json, csv")
	cmd.Flags().StringVar(&userID, "user-id", "", "User id for the diagnostic SQL comment")
	cmd.Flags().StringVar(&userName, "user-name", "", "User name for the diagnostic SQL comment")
	cmd.Flags().StringVar(&queryID, "query-id", "", "Query id for the diagnostic SQL comment")

	return cmd
}
