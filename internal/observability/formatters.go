// Package observability provides logging, metrics, and formatted output
// for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/jonathan/workflow-generator/internal/cost"
	"github.com/jonathan/workflow-generator/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 8
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(strings.TrimRight(content, "\n"), "\n") {
		if utf8.RuneCountInString(line) > boxWidth-4 {
			line = string([]rune(line)[:boxWidth-7]) + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintAnalysis outputs the complexity score and the factors that fired.
func (p *Printer) PrintAnalysis(a *types.ComplexityAnalysis) {
	if a == nil {
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Score:          %d\n", a.Score)
	fmt.Fprintf(&sb, "Classification: %s\n", a.Classification)
	fmt.Fprintf(&sb, "Tier:           %s\n", a.RecommendedTier)

	var fired []types.ComplexityFactor
	for _, f := range a.Factors {
		if f.Contribution > 0 {
			fired = append(fired, f)
		}
	}
	if len(fired) > 0 {
		sb.WriteString("\nFactors:\n")
		for _, f := range fired {
			fmt.Fprintf(&sb, "  • %-20s +%d\n", f.Name, f.Contribution)
		}
	}

	p.printBox("COMPLEXITY ANALYSIS", sb.String())
}

// PrintAttempts outputs one line per provider call.
func (p *Printer) PrintAttempts(attempts []types.GenerationAttempt) {
	if len(attempts) == 0 {
		return
	}

	var sb strings.Builder
	var total float64
	for i, a := range attempts {
		fmt.Fprintf(&sb, "%d. %s/%s %s (%dms, $%.4f)\n", i+1, a.Tier, a.Provider, a.Outcome, a.DurationMs, a.CostUSD)
		total += a.CostUSD
	}
	fmt.Fprintf(&sb, "\nTotal cost: $%.4f\n", total)

	p.printBox("GENERATION ATTEMPTS", sb.String())
}

// PrintValidation outputs repairs applied and remaining errors.
func (p *Printer) PrintValidation(v *types.ValidationResult) {
	if v == nil {
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Valid: %t\n", v.Valid)
	if len(v.RepairsApplied) > 0 {
		sb.WriteString("\nRepairs:\n")
		for _, r := range v.RepairsApplied {
			fmt.Fprintf(&sb, "  ✓ %s\n", r.Description)
		}
	}
	if len(v.Errors) > 0 {
		sb.WriteString("\nErrors:\n")
		count := min(len(v.Errors), maxItemsToShow)
		for _, e := range v.Errors[:count] {
			if e.NodeID != "" {
				fmt.Fprintf(&sb, "  ✗ [%s] %s\n", e.NodeID, e.Code)
			} else {
				fmt.Fprintf(&sb, "  ✗ %s\n", e.Code)
			}
		}
		if len(v.Errors) > maxItemsToShow {
			fmt.Fprintf(&sb, "  ... and %d more\n", len(v.Errors)-maxItemsToShow)
		}
	}

	p.printBox("VALIDATION", sb.String())
}

// PrintWorkflow outputs the node graph of a draft.
func (p *Printer) PrintWorkflow(w *types.WorkflowDraft) {
	if w == nil {
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Name: %s\n", w.Name)
	fmt.Fprintf(&sb, "Path: %s", w.Metadata.GenerationPath)
	if w.Metadata.ModelUsed != "" {
		fmt.Fprintf(&sb, " (%s)", w.Metadata.ModelUsed)
	}
	sb.WriteString("\n\nNodes:\n")
	for _, n := range w.Nodes {
		fmt.Fprintf(&sb, "  • %s [%s] %s\n", n.ID, n.Type, n.Name)
	}
	if len(w.Connections) > 0 {
		sb.WriteString("\nConnections:\n")
		for _, c := range w.Connections {
			fmt.Fprintf(&sb, "  %s → %s\n", c.From, c.To)
		}
	}

	p.printBox("WORKFLOW", sb.String())
}

// PrintBudget outputs the current budget window.
func (p *Printer) PrintBudget(s cost.BudgetState) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Spend:    $%.4f\n", s.DailySpendUSD)
	if s.DailyLimitUSD > 0 {
		fmt.Fprintf(&sb, "Limit:    $%.2f\n", s.DailyLimitUSD)
	} else {
		sb.WriteString("Limit:    none\n")
	}
	if s.PerCallLimitUSD > 0 {
		fmt.Fprintf(&sb, "Per call: $%.2f\n", s.PerCallLimitUSD)
	}
	fmt.Fprintf(&sb, "Attempts: %d\n", s.Attempts)

	p.printBox("BUDGET", sb.String())
}
