package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/domains/entity/etecg"
)

func newInspectCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect FILE",
		Short: "Parse an ECG file and print per-lead statistics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := c.parseFile(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			rows, cols := m.Shape()
			table := newTable(fmt.Sprintf("Shape (%d, %d)", rows, cols), "Lead", "Min", "Max", "Mean", "Std")
			for _, lead := range etecg.Transpose(m) {
				s := lead.Stats()
				table.addRow(nil, lead.Label,
					fmt.Sprintf("%.4f", s.Min),
					fmt.Sprintf("%.4f", s.Max),
					fmt.Sprintf("%.4f", s.Mean),
					fmt.Sprintf("%.4f", s.Std),
				)
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), table.render())
			return err
		},
	}
}
