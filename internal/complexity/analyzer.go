package complexity

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jonathan/workflow-generator/internal/llm"
	"github.com/jonathan/workflow-generator/internal/types"
)

// Analyzer scores jobs. It is stateless and safe for concurrent use.
type Analyzer struct {
	cfg Config
}

// New creates an Analyzer. cfg is used as given; start from DefaultConfig
// to override single values. A zero weight disables its factor.
func New(cfg Config) *Analyzer {
	return &Analyzer{cfg: cfg}
}

// Config returns the effective configuration.
func (a *Analyzer) Config() Config {
	return a.cfg
}

// signals is everything extracted from a job before factors are evaluated.
type signals struct {
	steps        int
	integrations []string
	text         string
	industryText string
	volume       float64
	hasVolume    bool
}

// factor is one entry of the fixed evaluation list.
type factor struct {
	name   string
	weight func(Config) int
	check  func(Config, signals) (bool, string)
}

// factors is evaluated in this order; each factor is independent of the others.
var factors = []factor{
	{
		name:   FactorStepCount,
		weight: func(c Config) int { return c.StepCountWeight },
		check: func(c Config, s signals) (bool, string) {
			return s.steps >= c.StepCountThreshold, fmt.Sprintf("%d steps", s.steps)
		},
	},
	{
		name:   FactorIntegrations,
		weight: func(c Config) int { return c.IntegrationWeight },
		check: func(c Config, s signals) (bool, string) {
			return len(s.integrations) >= c.IntegrationThreshold, describeIntegrations(s.integrations)
		},
	},
	{
		name:   FactorAIProcessing,
		weight: func(c Config) int { return c.AIProcessingWeight },
		check: func(_ Config, s signals) (bool, string) {
			kw := aiMatcher.find(s.text)
			return kw != "", quoteKeyword(kw)
		},
	},
	{
		name:   FactorRegulated,
		weight: func(c Config) int { return c.RegulatedWeight },
		check: func(_ Config, s signals) (bool, string) {
			kw := regulatedMatcher.find(s.industryText)
			return kw != "", quoteKeyword(kw)
		},
	},
	{
		name:   FactorHighVolume,
		weight: func(c Config) int { return c.VolumeWeight },
		check: func(c Config, s signals) (bool, string) {
			if !s.hasVolume {
				return false, "no volume stated"
			}
			return s.volume > float64(c.VolumeThreshold), fmt.Sprintf("volume %g", s.volume)
		},
	},
	{
		name:   FactorConditional,
		weight: func(c Config) int { return c.ConditionalWeight },
		check: func(_ Config, s signals) (bool, string) {
			kw := conditionalMatcher.find(s.text)
			return kw != "", quoteKeyword(kw)
		},
	},
	{
		name:   FactorMultiPlatform,
		weight: func(c Config) int { return c.MultiPlatformWeight },
		check: func(_ Config, s signals) (bool, string) {
			if kw := multiPlatformMatcher.find(s.text); kw != "" {
				return true, quoteKeyword(kw)
			}
			if a, b, ok := fanOut(s.text); ok {
				return true, fmt.Sprintf("same data to %s and %s", a, b)
			}
			return false, "no sync or fan-out wording"
		},
	},
}

// Analyze scores a job. A nil job or missing business context contributes zero.
func (a *Analyzer) Analyze(job *types.Job) *types.ComplexityAnalysis {
	s := extractSignals(job)

	analysis := &types.ComplexityAnalysis{
		Factors: make([]types.ComplexityFactor, 0, len(factors)),
	}
	var triggered []string
	for _, f := range factors {
		weight := f.weight(a.cfg)
		hit, detail := f.check(a.cfg, s)
		contribution := 0
		if hit {
			contribution = weight
			triggered = append(triggered, fmt.Sprintf("%s +%d (%s)", f.name, weight, detail))
		}
		analysis.Score += contribution
		analysis.Factors = append(analysis.Factors, types.ComplexityFactor{
			Name:         f.name,
			Weight:       weight,
			Contribution: contribution,
			Detail:       detail,
		})
	}

	if analysis.Score >= a.cfg.ComplexThreshold {
		analysis.Classification = types.ClassificationComplex
		analysis.RecommendedTier = llm.TierAdvanced
	} else {
		analysis.Classification = types.ClassificationSimple
		analysis.RecommendedTier = llm.TierStandard
	}

	if len(triggered) == 0 {
		analysis.Rationale = fmt.Sprintf("score 0 (threshold %d): no complexity factors triggered", a.cfg.ComplexThreshold)
	} else {
		analysis.Rationale = fmt.Sprintf("score %d (threshold %d): %s",
			analysis.Score, a.cfg.ComplexThreshold, strings.Join(triggered, "; "))
	}
	return analysis
}

func extractSignals(job *types.Job) signals {
	if job == nil {
		return signals{}
	}

	var sb strings.Builder
	sb.WriteString(job.ProcessDescription)
	seen := make(map[string]bool)
	var integrations []string
	add := func(name string) {
		if name == "" || seen[name] {
			return
		}
		seen[name] = true
		integrations = append(integrations, name)
	}

	for _, opp := range job.AutomationOpportunities {
		sb.WriteString("\n")
		sb.WriteString(opp.Title)
		sb.WriteString("\n")
		sb.WriteString(opp.Description)
		for _, integ := range opp.Integrations {
			add(canonicalIntegration(integ))
		}
	}
	text := sb.String()
	for _, m := range integrationMatcher.re.FindAllString(text, -1) {
		add(canonicalIntegration(m))
	}

	s := signals{
		steps:        len(job.AutomationOpportunities),
		integrations: integrations,
		text:         text,
		industryText: job.ProcessDescription,
	}
	if bc := job.BusinessContext; bc != nil {
		s.industryText = bc.Industry + "\n" + bc.Department + "\n" + job.ProcessDescription
		s.volume, s.hasVolume = ParseVolume(bc.Volume)
	}
	return s
}

// ParseVolume reads the leading number of a free-text volume such as
// "12,000/day", "5k emails" or "2.5M rows". It reports false when no number leads.
func ParseVolume(v string) (float64, bool) {
	v = strings.TrimSpace(strings.ToLower(v))
	v = strings.TrimPrefix(v, "~")
	v = strings.TrimPrefix(v, "about ")
	v = strings.TrimPrefix(v, "approximately ")

	end := 0
	for end < len(v) && (v[end] >= '0' && v[end] <= '9' || v[end] == ',' || v[end] == '.') {
		end++
	}
	if end == 0 {
		return 0, false
	}
	n, err := strconv.ParseFloat(strings.ReplaceAll(v[:end], ",", ""), 64)
	if err != nil {
		return 0, false
	}

	rest := strings.TrimSpace(v[end:])
	unitEnd := 0
	for unitEnd < len(rest) && rest[unitEnd] >= 'a' && rest[unitEnd] <= 'z' {
		unitEnd++
	}
	switch rest[:unitEnd] {
	case "k", "thousand":
		n *= 1e3
	case "m", "mm", "million":
		n *= 1e6
	}
	return n, true
}

func describeIntegrations(names []string) string {
	if len(names) == 0 {
		return "no integrations"
	}
	return strings.Join(names, ", ")
}

func quoteKeyword(kw string) string {
	if kw == "" {
		return "no match"
	}
	return fmt.Sprintf("matched %q", kw)
}
