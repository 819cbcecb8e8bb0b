package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jonathan/workflow-generator/internal/assembler"
	"github.com/jonathan/workflow-generator/internal/blueprint"
	"github.com/jonathan/workflow-generator/internal/complexity"
	"github.com/jonathan/workflow-generator/internal/observability"
	"github.com/jonathan/workflow-generator/internal/types"
	"github.com/spf13/cobra"
)

var (
	analyzeJobFile string
	analyzeJSON    bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Score a job's complexity without generating anything",
	Long: `Classify a job file, resolve its workflow pattern and report whether a
blueprint would handle it. Nothing is sent to a model provider.`,
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeJobFile, "job", "j", "", "Path to job JSON file (required)")
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "Print the report as JSON")

	if err := analyzeCmd.MarkFlagRequired("job"); err != nil {
		panic(fmt.Sprintf("failed to mark job flag as required: %v", err))
	}
	rootCmd.AddCommand(analyzeCmd)
}

// AnalyzeReport is the output of the analyze command.
type AnalyzeReport struct {
	Analysis  *types.ComplexityAnalysis `json:"analysis"`
	Pattern   string                    `json:"pattern"`
	Blueprint string                    `json:"blueprint,omitempty"`
}

func runAnalyze(cmd *cobra.Command, _ []string) error {
	req, err := readIntake(analyzeJobFile)
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	job := &types.Job{
		ProcessDescription:      strings.TrimSpace(req.ProcessDescription),
		BusinessContext:         req.BusinessContext,
		AutomationOpportunities: req.AutomationOpportunities,
		PatternHint:             strings.TrimSpace(req.PatternHint),
	}

	report := AnalyzeReport{
		Analysis: complexity.New(cfg.Tuning.Complexity).Analyze(job),
		Pattern:  assembler.ResolvePattern(job),
	}
	if m, ok := blueprint.MatchJob(job); ok {
		report.Blueprint = m.Blueprint.Name
	}

	out := cmd.OutOrStdout()
	if analyzeJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	observability.NewPrinter(out).PrintAnalysis(report.Analysis)
	_, _ = fmt.Fprintf(out, "Pattern:   %s\n", report.Pattern)
	if report.Blueprint != "" {
		_, _ = fmt.Fprintf(out, "Blueprint: %s (no model call needed)\n", report.Blueprint)
	} else {
		_, _ = fmt.Fprintf(out, "Blueprint: none (model generation)\n")
	}
	return nil
}
