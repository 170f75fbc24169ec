package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/domains/entity/etprediction"
	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/domains/modules/mdclassify"
	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/infra/classifier"
)

func newClassifyCmd(c *cli) *cobra.Command {
	var (
		url     string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "classify FILE",
		Short: "Classify an ECG file and print the annotated risk table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			m, err := c.parseFile(ctx, args[0])
			if err != nil {
				return err
			}

			client := classifier.NewClient(url, timeout, c.log)
			outcome := mdclassify.Classify(ctx, client, m)
			if !outcome.Succeeded() {
				return fmt.Errorf("classification failed (%s): %s", outcome.FailureKind, outcome.FailureReason)
			}
			if len(outcome.Records) == 0 {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), "No predictions returned.")
				return err
			}

			table := newTable("Risk Assessment", "Condition", "Name", "Probability", "Risk")
			for _, row := range etprediction.Annotate(outcome.Records[0]) {
				table.addRow(tierStyle(row.Tier), row.Condition, row.FullName, row.Display, string(row.Tier))
			}

			out := table.render()
			if outcome.Message != "" {
				out += "\n" + outcome.Message
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), out)
			return err
		},
	}

	cmd.Flags().StringVar(&url, "url", "http://localhost:5000", "classifier base URL")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "classifier request timeout")
	return cmd
}
