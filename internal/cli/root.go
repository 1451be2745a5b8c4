package cli

import (
	"context"
	"fmt"

	"github.com/alanmeadows/shipcheck/internal/config"
	"github.com/alanmeadows/shipcheck/internal/logging"
	"github.com/spf13/cobra"
)

var (
	verbose    bool
	logFormat  string
	configPath string
	appConfig  *config.Config

	rootCmd = &cobra.Command{
		Use:   "shipcheck",
		Short: "Pre-flight checks for package releases",
		Long: `Shipcheck verifies that a release can go ahead: the version bump is
valid and moves forward, pre-releases are not published without a
dist-tag, and the release tag does not already exist in git.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose/debug output")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", logging.FormatAuto, "Log format: auto, text or json")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a config file (replaces .shipcheck/shipcheck.jsonc)")
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if err := logging.Setup(verbose, logFormat); err != nil {
			return err
		}
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		appConfig = cfg
		return nil
	}

	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(historyCmd)
}

// Execute runs the root command with ctx.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}
