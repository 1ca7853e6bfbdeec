package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCostCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cost <data-source> <statement>",
		Short: "Estimate the planner cost of a statement",
		Long: `Run EXPLAIN for a statement and report the planner's total cost.

Only Postgres and Redshift sources report a cost; other adapters
print "unsupported".`,
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

			cost, ok := ds.Cost(cmd.Context(), args[1])
			if !ok {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "unsupported")
				return nil
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%g\n", cost)
			return nil
		},
	}
	return cmd
}
