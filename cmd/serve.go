package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"script2vid/internal/api"
	"script2vid/internal/app"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and pipeline workers",
	Long: `Serve the video generation API. Submissions are queued and processed by a
bounded worker pool; results are polled via GET /videos/:id.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, logger, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	built, err := app.BuildService(ctx, cfg, logger, reg)
	if err != nil {
		return err
	}
	defer func() {
		if err := built.Close(); err != nil {
			logger.Warn("Failed to close resources", zap.Error(err))
		}
	}()

	opts := api.RouterOptions{
		Service:  built.Service,
		Gatherer: reg,
		Logger:   logger.Named("http"),
	}
	if built.Local != nil {
		opts.FilesDir = built.Local.Root()
	}
	server := api.NewServer(cfg.Server.Addr, api.NewRouter(opts), logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	logger.Info("Starting server",
		zap.String("addr", cfg.Server.Addr),
		zap.String("storage", cfg.Storage.Backend),
		zap.String("store", cfg.Store.Backend),
		zap.Int("workers", cfg.Pipeline.Workers),
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case <-sigChan:
		logger.Info("Shutting down...")
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			_ = built.Service.Shutdown(context.Background())
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown failed", zap.Error(err))
	}
	if err := built.Service.Shutdown(shutdownCtx); err != nil {
		logger.Error("Pipelines still running at shutdown", zap.Error(err))
		return err
	}
	return nil
}
