package cli

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newSourcesCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sources",
		Short: "List configured data sources",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := a.Registry()
			if err != nil {
				return err
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"ID", "Name", "Adapter", "Cache"})

			for _, id := range reg.List() {
				ds, err := reg.Get(id)
				if err != nil {
					return err
				}
				t.AppendRow(table.Row{ds.ID(), ds.Name(), ds.AdapterKind(), ds.Policy().Mode})
			}
			t.Render()
			return nil
		},
	}
	return cmd
}
