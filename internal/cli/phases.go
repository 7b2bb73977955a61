package cli

import (
	"github.com/olekukonko/tablewriter"
	"github.com/randalmurphal/triggerflow/pkg/triggerflow"
	"github.com/spf13/cobra"
)

func newPhasesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "phases",
		Short: "List the lifecycle phases",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.Header("Phase", "Timing", "Operation")
			for _, p := range triggerflow.Phases() {
				if err := table.Append(p.String(), p.Timing().String(), p.Operation().String()); err != nil {
					return err
				}
			}
			return table.Render()
		},
	}
}
