package assembler

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/jonathan/workflow-generator/internal/catalog"
	"github.com/jonathan/workflow-generator/internal/types"
)

// Scale is the documentation budget for one classification.
type Scale struct {
	Items        int
	CharsPerItem int
}

// ScalingTable sizes the documentation payload by classification.
var ScalingTable = map[types.Classification]Scale{
	types.ClassificationSimple:  {Items: 4, CharsPerItem: 600},
	types.ClassificationComplex: {Items: 8, CharsPerItem: 1200},
}

// DocItem is one truncated piece of node documentation.
type DocItem struct {
	NodeType string `json:"node_type"`
	Title    string `json:"title"`
	Text     string `json:"text"`
}

// Payload is the bounded documentation context for one job.
type Payload struct {
	Pattern  string    `json:"pattern"`
	Items    []DocItem `json:"items"`
	Scale    Scale     `json:"scale"`
	Degraded bool      `json:"documentation_degraded"`
}

// TotalChars returns the number of documentation characters in the payload.
func (p *Payload) TotalChars() int {
	n := 0
	for _, it := range p.Items {
		n += len([]rune(it.Text))
	}
	return n
}

// Assembler fetches documentation from a catalog.
type Assembler struct {
	catalog     catalog.Catalog
	concurrency int
	logger      *slog.Logger
}

// New creates an Assembler. concurrency bounds parallel catalog lookups.
func New(c catalog.Catalog, concurrency int, logger *slog.Logger) *Assembler {
	if concurrency <= 0 {
		concurrency = 4
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Assembler{catalog: c, concurrency: concurrency, logger: logger}
}

// Assemble builds the documentation payload. Catalog unavailability is
// absorbed: the payload comes back empty with Degraded set. The only error
// returned is the caller's context error.
func (a *Assembler) Assemble(ctx context.Context, analysis *types.ComplexityAnalysis, job *types.Job) (*Payload, error) {
	pattern := ResolvePattern(job)
	rule, _ := Rule(pattern)

	scale := ScalingTable[types.ClassificationSimple]
	if analysis.IsComplex() {
		scale = ScalingTable[types.ClassificationComplex]
	}

	payload := &Payload{Pattern: pattern, Scale: scale, Items: []DocItem{}}
	if a.catalog == nil {
		payload.Degraded = true
		return payload, nil
	}

	ids := rule.Docs
	if len(ids) > scale.Items {
		ids = ids[:scale.Items]
	}

	results := make([]*catalog.Entry, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)
	for i, id := range ids {
		g.Go(func() error {
			entry, err := a.catalog.Lookup(gctx, id)
			switch {
			case err == nil:
				results[i] = entry
				return nil
			case errors.Is(err, catalog.ErrNotFound):
				return nil
			default:
				return err
			}
		})
	}

	if err := g.Wait(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		a.logger.Warn("documentation catalog unavailable, continuing without docs",
			"pattern", pattern, "error", err)
		payload.Degraded = true
		return payload, nil
	}

	for _, e := range results {
		if e == nil {
			continue
		}
		payload.Items = append(payload.Items, DocItem{
			NodeType: e.NodeType,
			Title:    e.Title,
			Text:     Truncate(e.Documentation, scale.CharsPerItem),
		})
	}
	return payload, nil
}

// ResolvePattern honours a known pattern hint, otherwise detects one.
func ResolvePattern(job *types.Job) string {
	if job == nil {
		return PatternGeneral
	}
	if job.PatternHint != "" {
		if _, ok := Rule(job.PatternHint); ok {
			return job.PatternHint
		}
	}
	return DetectPattern(job.ProcessDescription, job.AutomationOpportunities)
}

// Truncate shortens s to at most limit runes, marking the cut with "...".
func Truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	if limit <= 3 {
		return string(r[:limit])
	}
	return string(r[:limit-3]) + "..."
}
