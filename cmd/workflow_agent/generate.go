package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/jonathan/workflow-generator/internal/app"
	"github.com/jonathan/workflow-generator/internal/jobs"
	"github.com/jonathan/workflow-generator/internal/llm"
	"github.com/jonathan/workflow-generator/internal/observability"
	"github.com/jonathan/workflow-generator/internal/pipeline"
	"github.com/jonathan/workflow-generator/internal/schemas"
	"github.com/jonathan/workflow-generator/internal/types"
	"github.com/spf13/cobra"
)

var (
	generateJobFile string
	generateOutput  string
	generateVerbose bool
	generateOffline bool
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a workflow for one job file",
	Long: `Run a single generation job synchronously and write the resulting workflow as JSON.

With --offline no model provider is contacted, so only jobs matching a
blueprint can succeed.`,
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringVarP(&generateJobFile, "job", "j", "", "Path to job JSON file (required)")
	generateCmd.Flags().StringVarP(&generateOutput, "out", "o", "", "Path to write the workflow JSON (default stdout)")
	generateCmd.Flags().BoolVarP(&generateVerbose, "verbose", "v", false, "Print analysis, attempts and validation to stderr")
	generateCmd.Flags().BoolVar(&generateOffline, "offline", false, "Blueprint generation only, no model calls")

	if err := generateCmd.MarkFlagRequired("job"); err != nil {
		panic(fmt.Sprintf("failed to mark job flag as required: %v", err))
	}
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	req, err := readIntake(generateJobFile)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	stderr := cmd.ErrOrStderr()
	logger := observability.NewLoggerTo(stderr, cfg.LogLevel, cfg.LogFormat)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var opts []app.Option
	if generateOffline {
		opts = append(opts, app.WithProviders(map[llm.ProviderName]llm.Provider{}))
	}
	a, err := app.New(ctx, cfg, logger, opts...)
	if err != nil {
		return fmt.Errorf("failed to start generation engine: %w", err)
	}
	defer a.Close()

	var onProgress pipeline.ProgressCallback
	if generateVerbose {
		onProgress = func(ev pipeline.ProgressEvent) {
			_, _ = fmt.Fprintf(stderr, "[%3d%%] %s: %s\n", ev.Progress, ev.Stage, ev.Message)
		}
	}

	rec, err := a.Jobs.Run(ctx, *req, onProgress)
	if err != nil {
		return err
	}

	if generateVerbose && rec.Result != nil {
		p := observability.NewPrinter(stderr)
		p.PrintAnalysis(rec.Result.Analysis)
		p.PrintAttempts(rec.Result.Attempts)
		p.PrintValidation(rec.Result.Validation)
		p.PrintWorkflow(rec.Result.Workflow)
		p.PrintBudget(a.Monitor.Snapshot())
	}

	if rec.Status != types.StatusCompleted {
		if rec.Error != nil {
			return fmt.Errorf("generation failed (%s): %s", rec.Error.Reason, rec.Error.Message)
		}
		return fmt.Errorf("generation failed with status %s", rec.Status)
	}

	out, err := json.MarshalIndent(rec.Result.Workflow, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal workflow: %w", err)
	}
	out = append(out, '\n')

	if generateOutput == "" {
		_, err = cmd.OutOrStdout().Write(out)
		return err
	}
	if err := os.WriteFile(generateOutput, out, 0o644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	_, _ = fmt.Fprintf(stderr, "Workflow written to %s\n", generateOutput)
	return nil
}

// readIntake loads a job file and checks it against the intake schema.
func readIntake(path string) (*jobs.IntakeRequest, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read job file: %w", err)
	}
	if err := schemas.ValidateJob(string(content)); err != nil {
		return nil, err
	}
	var req jobs.IntakeRequest
	if err := json.Unmarshal(content, &req); err != nil {
		return nil, fmt.Errorf("failed to parse job file: %w", err)
	}
	return &req, nil
}
