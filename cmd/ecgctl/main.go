package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/domains/entity/etecg"
	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/domains/modules/mdingest"
	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/pkg/logger"
)

// cli 命令共享的状态
type cli struct {
	lenient  bool
	logLevel string
	log      logger.Logger
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// newRootCmd 创建 ecgctl 根命令
func newRootCmd() *cobra.Command {
	c := &cli{log: logger.NewNop()}

	root := &cobra.Command{
		Use:   "ecgctl",
		Short: "Inspect, classify and generate 12-lead ECG recordings",
		Long: `ecgctl works with 4096x12 ECG recordings offline.

Available subcommands:
  inspect  - Parse a file and print per-lead statistics
  classify - Send a file to the classifier and print the risk table
  sample   - Write a synthetic recording as CSV`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if c.logLevel == "" {
				return nil
			}
			l, err := logger.NewZapLogger(c.logLevel)
			if err != nil {
				return fmt.Errorf("create logger: %w", err)
			}
			c.log = l
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = c.log.Sync()
		},
	}

	root.PersistentFlags().BoolVar(&c.lenient, "lenient", false, "silently drop malformed CSV rows")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "enable structured logs at this level (debug, info, warn, error)")

	root.AddCommand(
		newInspectCmd(c),
		newClassifyCmd(c),
		newSampleCmd(c),
	)
	return root
}

// parseFile 读取并解析 ECG 文件
func (c *cli) parseFile(ctx context.Context, path string) (etecg.SampleMatrix, error) {
	parser := mdingest.NewParser(mdingest.Config{LenientCSV: c.lenient}, c.log)
	return parser.ParseReader(ctx, func() (io.ReadCloser, error) {
		return os.Open(path)
	})
}
