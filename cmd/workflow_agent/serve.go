package main

import (
	"context"
	"fmt"

	"github.com/jonathan/workflow-generator/internal/app"
	"github.com/jonathan/workflow-generator/internal/config"
	"github.com/jonathan/workflow-generator/internal/observability"
	"github.com/jonathan/workflow-generator/internal/server"
	"github.com/jonathan/workflow-generator/internal/server/ratelimit"
	"github.com/spf13/cobra"
)

var (
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server that accepts generation jobs and reports their progress and results.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides PORT)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if servePort != 0 {
		cfg.Port = servePort
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to start generation engine: %w", err)
	}
	defer a.Close()

	checks := make(map[string]server.HealthCheck, len(a.HealthChecks))
	for name, check := range a.HealthChecks {
		checks[name] = check
	}

	srv := server.New(server.Config{
		Port:      cfg.Port,
		RateLimit: ratelimit.LoadConfig(),
	}, server.Deps{
		Jobs:         a.Jobs,
		Budget:       a.Monitor,
		Metrics:      a.Metrics,
		Logger:       logger,
		HealthChecks: checks,
	})
	return srv.Start(ctx)
}

// loadConfig reads configuration from the environment and the tuning file.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}
