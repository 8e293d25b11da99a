package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mikey/content-safety/internal/adapters/filter"
	"github.com/mikey/content-safety/internal/adapters/httpapi"
	"github.com/mikey/content-safety/internal/config"
	"github.com/mikey/content-safety/internal/di"
	"github.com/mikey/content-safety/internal/jobs"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	var configFile string

	rootCmd := &cobra.Command{
		Use:   "content-safety",
		Short: "Content safety service: URL and email analysis over HTTP and SMTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			// Build the dependency injection container
			container, err := di.BuildContainer(configFile)
			if err != nil {
				return fmt.Errorf("failed to build dependency container: %w", err)
			}
			return container.Invoke(run)
		},
		SilenceUsage: true,
	}
	rootCmd.Flags().StringVarP(&configFile, "config", "c", "", "Path to config file (default: search standard locations)")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Application error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main application function that gets all dependencies injected
func run(
	logger *zap.Logger,
	cfg *config.Config,
	server *httpapi.Server,
	smtpFilter *filter.SMTPFilter,
	registry *jobs.Registry,
	cleanup *di.Cleanup,
) error {
	defer logger.Sync()
	defer cleanup.Run()

	serverCfg, err := cfg.GetServer()
	if err != nil {
		return err
	}

	if err := server.Start(); err != nil {
		logger.Error("Failed to start HTTP API", zap.Error(err))
		return err
	}
	if smtpFilter != nil {
		if err := smtpFilter.Start(); err != nil {
			logger.Error("Failed to start SMTP filter", zap.Error(err))
			return err
		}
	}

	// Handle graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	logger.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), serverCfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Failed to stop HTTP API", zap.Error(err))
	}
	if smtpFilter != nil {
		if err := smtpFilter.Stop(); err != nil {
			logger.Error("Failed to stop SMTP filter", zap.Error(err))
		}
	}
	if err := registry.Shutdown(shutdownCtx); err != nil {
		logger.Error("Failed to stop job registry", zap.Error(err))
	}

	logger.Info("Shutdown complete")
	return nil
}
