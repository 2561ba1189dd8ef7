package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"dreamgate/internal/config"
	"dreamgate/internal/logging"
)

var (
	cfgPath   string
	debugFlag bool

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "dreamgate",
	Short: "Constrained narrative elaboration engine",
	Long: `dreamgate elaborates narrative seeds under a constraint genome: every
expansion must pass a fail-closed guard chain, survive a pathogen scan
for narrative drift, and spend from depletable recursion budgets that
only high-quality insights can refill.

Commands:
  extract   Show the constraint genome parsed from a seed
  scan      Scan text for narrative drift pathogens
  grow      Run a growth pass over one or more seeds
  history   Show persisted snapshots for a scene`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgPath)
		if err != nil {
			return err
		}
		if debugFlag {
			cfg.Debug = true
		}
		logger, err = logging.New(cfg.Debug)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "dreamgate.yaml", "Path to config file")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "Enable debug logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
