// Package main provides the entry point for the workflow generator API server and CLI.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "workflow_agent",
	Short: "Automation workflow generator",
	Long: "workflow_agent turns plain-language process descriptions into validated automation workflows, " +
		"using deterministic blueprints where possible and tiered language models otherwise.",
	SilenceUsage: true,
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
