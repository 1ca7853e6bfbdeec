package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newTablesCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tables <data-source>",
		Short: "List tables visible to a data source",
		Long: `List the tables in the schemas a data source searches.

The schema list comes from the source's "schemas" setting when present,
otherwise from the connection URL or the adapter's default.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := a.Registry()
			if err != nil {
				return err
			}
			ds, err := reg.Get(args[0])
			if err != nil {
				return err
			}

			tables, err := ds.Tables(cmd.Context())
			if err != nil {
				return err
			}

			if len(tables) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "(no tables)")
				return nil
			}
			for _, name := range tables {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
	return cmd
}
