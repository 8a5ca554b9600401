package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"script2vid/pkg/config"
	"script2vid/pkg/logging"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "script2vid",
	Short: "Turn written scripts into narrated videos",
	Long: `script2vid converts a title and script into a narrated slideshow video
with subtitles and a thumbnail, and publishes the artifacts to object storage.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		logger, err := logging.New(logging.Config{Level: logLevel(""), Encoding: "console"})
		if err != nil {
			return err
		}
		zap.ReplaceGlobals(logger)
		return nil
	}
}

func Execute() error {
	defer func() { _ = zap.L().Sync() }()
	return rootCmd.Execute()
}

// loadConfig reads configuration and swaps the bootstrap logger for the
// configured one.
func loadConfig(ctx context.Context) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(logging.Config{
		Level:      logLevel(cfg.Log.Level),
		Encoding:   cfg.Log.Encoding,
		OutputPath: cfg.Log.OutputPath,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("build logger: %w", err)
	}
	zap.ReplaceGlobals(logger)
	return cfg, logger, nil
}

func logLevel(configured string) string {
	if verbose {
		return "debug"
	}
	if configured == "" {
		return "info"
	}
	return configured
}
