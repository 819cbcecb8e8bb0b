// Package repair applies a fixed, ordered set of automatic fixes to a
// workflow draft and re-validates it.
package repair

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/jonathan/workflow-generator/internal/blueprint"
	"github.com/jonathan/workflow-generator/internal/types"
	"github.com/jonathan/workflow-generator/internal/validation"
)

// DefaultWorkflowName is used when a draft has no name and no fallback is set.
const DefaultWorkflowName = "Automated workflow"

// Func fixes every issue of one code and describes what it changed.
// It returns nothing when there was nothing it could fix.
type Func func(d *types.WorkflowDraft, issues []types.ValidationIssue) []types.RepairRecord

// Rule binds an issue code to its repair.
type Rule struct {
	Code string
	Fix  Func
}

// Repairer runs the registry over drafts.
type Repairer struct {
	rules        []Rule
	fallbackName string
}

// New returns a Repairer using the built-in registry. fallbackName names
// drafts that arrive without one.
func New(fallbackName string) *Repairer {
	if strings.TrimSpace(fallbackName) == "" {
		fallbackName = DefaultWorkflowName
	}
	r := &Repairer{fallbackName: fallbackName}
	r.rules = []Rule{
		{Code: validation.CodeMissingWorkflowName, Fix: r.nameWorkflow},
		{Code: validation.CodeMissingNodeName, Fix: nameNodes},
		{Code: validation.CodeDuplicateNodeID, Fix: renameDuplicates},
		{Code: validation.CodeDanglingConnection, Fix: dropDangling},
		{Code: validation.CodeMissingRetryPolicy, Fix: injectRetryPolicy},
	}
	return r
}

// Codes lists the repairable issue codes in application order.
func (r *Repairer) Codes() []string {
	out := make([]string, len(r.rules))
	for i, rule := range r.rules {
		out[i] = rule.Code
	}
	return out
}

// Run validates the draft, applies each registered repair at most once, and
// validates again. The draft is modified in place. Issues without a repair
// stay in the result and make it invalid.
func (r *Repairer) Run(d *types.WorkflowDraft) *types.ValidationResult {
	result := &types.ValidationResult{
		Errors:         []types.ValidationIssue{},
		RepairsApplied: []types.RepairRecord{},
	}

	issues := validation.Check(d)
	if d != nil && len(issues) > 0 {
		byCode := make(map[string][]types.ValidationIssue)
		for _, is := range issues {
			byCode[is.Code] = append(byCode[is.Code], is)
		}
		for _, rule := range r.rules {
			matched := byCode[rule.Code]
			if len(matched) == 0 {
				continue
			}
			result.RepairsApplied = append(result.RepairsApplied, rule.Fix(d, matched)...)
		}
		if len(result.RepairsApplied) > 0 {
			issues = validation.Check(d)
		}
	}

	if len(issues) > 0 {
		result.Errors = issues
	}
	result.Valid = len(result.Errors) == 0
	return result
}

// Run repairs a draft with the default registry.
func Run(d *types.WorkflowDraft) *types.ValidationResult {
	return New("").Run(d)
}

func (r *Repairer) nameWorkflow(d *types.WorkflowDraft, _ []types.ValidationIssue) []types.RepairRecord {
	d.Name = r.fallbackName
	return []types.RepairRecord{{
		Code:        validation.CodeMissingWorkflowName,
		Description: fmt.Sprintf("named workflow %q", d.Name),
	}}
}

func nameNodes(d *types.WorkflowDraft, _ []types.ValidationIssue) []types.RepairRecord {
	var out []types.RepairRecord
	for i := range d.Nodes {
		n := &d.Nodes[i]
		if strings.TrimSpace(n.Name) != "" || n.ID == "" {
			continue
		}
		n.Name = humanize(n.Type)
		if n.Name == "" {
			n.Name = humanize(n.ID)
		}
		out = append(out, types.RepairRecord{
			Code:        validation.CodeMissingNodeName,
			Description: fmt.Sprintf("named node %q %q", n.ID, n.Name),
		})
	}
	return out
}

// renameDuplicates keeps the first node with an id and gives later ones a
// numeric suffix, then rewires connections so every copy stays reachable.
func renameDuplicates(d *types.WorkflowDraft, _ []types.ValidationIssue) []types.RepairRecord {
	used := make(map[string]bool, len(d.Nodes))
	for _, n := range d.Nodes {
		used[n.ID] = true
	}
	// copies maps a duplicated id to its nodes' ids in draft order.
	copies := make(map[string][]string)
	var out []types.RepairRecord
	for i := range d.Nodes {
		n := &d.Nodes[i]
		if n.ID == "" {
			continue
		}
		old := n.ID
		if _, dup := copies[old]; !dup {
			copies[old] = []string{old}
			continue
		}
		for k := 2; ; k++ {
			candidate := fmt.Sprintf("%s_%d", old, k)
			if !used[candidate] {
				n.ID = candidate
				break
			}
		}
		used[n.ID] = true
		copies[old] = append(copies[old], n.ID)
		out = append(out, types.RepairRecord{
			Code:        validation.CodeDuplicateNodeID,
			Description: fmt.Sprintf("renamed duplicate node id %q to %q", old, n.ID),
		})
	}
	rewireCopies(d.Connections, copies)
	return out
}

// rewireCopies spreads connections over renamed copies in connection order:
// the k-th edge into a duplicated id enters its k-th copy, and edges out of
// it leave from the copy entered most recently. trigger -> step -> step
// becomes trigger -> step -> step_2.
func rewireCopies(conns []types.Connection, copies map[string][]string) {
	entered := make(map[string]int)
	current := make(map[string]string)
	for i := range conns {
		c := &conns[i]
		if ids := copies[c.From]; len(ids) > 1 {
			if cur, ok := current[c.From]; ok {
				c.From = cur
			}
		}
		if ids := copies[c.To]; len(ids) > 1 {
			orig := c.To
			k := min(entered[orig], len(ids)-1)
			entered[orig]++
			c.To = ids[k]
			current[orig] = c.To
		}
	}
}

func dropDangling(d *types.WorkflowDraft, _ []types.ValidationIssue) []types.RepairRecord {
	ids := make(map[string]bool, len(d.Nodes))
	for _, n := range d.Nodes {
		if n.ID != "" {
			ids[n.ID] = true
		}
	}
	kept := d.Connections[:0]
	var out []types.RepairRecord
	for _, c := range d.Connections {
		if ids[c.From] && ids[c.To] {
			kept = append(kept, c)
			continue
		}
		out = append(out, types.RepairRecord{
			Code:        validation.CodeDanglingConnection,
			Description: fmt.Sprintf("removed connection %s -> %s", c.From, c.To),
		})
	}
	d.Connections = kept
	return out
}

func injectRetryPolicy(d *types.WorkflowDraft, _ []types.ValidationIssue) []types.RepairRecord {
	var out []types.RepairRecord
	for i := range d.Nodes {
		n := &d.Nodes[i]
		if !validation.IsHTTPNode(n.Type) || validation.HasRetryPolicy(n.Parameters) {
			continue
		}
		if n.Parameters == nil {
			n.Parameters = make(map[string]any)
		}
		for k, v := range blueprint.RetryPolicy() {
			n.Parameters[k] = v
		}
		out = append(out, types.RepairRecord{
			Code:        validation.CodeMissingRetryPolicy,
			Description: fmt.Sprintf("added default retry policy to node %q", n.ID),
		})
	}
	return out
}

// humanize turns "httpRequest" or "send_email" into "Http Request" / "Send Email".
func humanize(s string) string {
	if i := strings.LastIndex(s, "."); i >= 0 {
		s = s[i+1:]
	}
	var words []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			cur[0] = unicode.ToUpper(cur[0])
			words = append(words, string(cur))
			cur = nil
		}
	}
	for _, r := range s {
		switch {
		case r == '_' || r == '-' || r == ' ':
			flush()
		case unicode.IsUpper(r) && len(cur) > 0:
			flush()
			cur = append(cur, r)
		default:
			cur = append(cur, r)
		}
	}
	flush()
	return strings.Join(words, " ")
}
