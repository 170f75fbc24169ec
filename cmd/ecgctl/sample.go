package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/domains/modules/mdingest"
)

func newSampleCmd(c *cli) *cobra.Command {
	var (
		seed   int64
		output string
	)

	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Write a synthetic 4096x12 recording as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("seed") {
				seed = time.Now().UnixNano()
			}
			m := mdingest.NewSeededSampler(seed).Generate()

			var w io.Writer = cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("create output file: %w", err)
				}
				defer f.Close()
				w = f
			}

			if err := mdingest.EncodeCSV(w, m); err != nil {
				return fmt.Errorf("write sample: %w", err)
			}
			if output != "" {
				c.log.Infof(cmd.Context(), "[ecgctl] sample written to %s (seed=%d)", output, seed)
			}
			return nil
		},
	}

	cmd.Flags().Int64Var(&seed, "seed", 0, "random seed (defaults to the current time)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (defaults to stdout)")
	return cmd
}
