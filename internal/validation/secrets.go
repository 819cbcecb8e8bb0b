package validation

import (
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// secretPattern is one credential format.
type secretPattern struct {
	name string
	re   *regexp.Regexp
}

var secretPatterns = []secretPattern{
	{"private key", regexp.MustCompile(`-----BEGIN [A-Z ]*PRIVATE KEY-----`)},
	{"AWS access key", regexp.MustCompile(`\b(?:AKIA|ASIA)[0-9A-Z]{16}\b`)},
	{"GitHub token", regexp.MustCompile(`\bgh[pousr]_[A-Za-z0-9]{36,}\b`)},
	{"Slack token", regexp.MustCompile(`\bxox[abposr]-[A-Za-z0-9-]{10,}`)},
	{"Google API key", regexp.MustCompile(`\bAIza[0-9A-Za-z_-]{35}\b`)},
	{"Stripe live key", regexp.MustCompile(`\b[rs]k_live_[0-9A-Za-z]{20,}\b`)},
	{"API secret key", regexp.MustCompile(`\bsk-[A-Za-z0-9_-]{20,}`)},
	{"bearer token", regexp.MustCompile(`(?i)\bbearer\s+[A-Za-z0-9._~+/-]{20,}=*`)},
}

// sensitiveKey matches parameter names whose values must come from
// credentials or expressions, never literals.
var sensitiveKey = regexp.MustCompile(`(?i)^(?:x-)?(api[_-]?key|secret|client[_-]?secret|password|passwd|access[_-]?token|auth[_-]?token|token|private[_-]?key|authorization)$`)

// expression matches one run-time {{ ... }} segment.
var expression = regexp.MustCompile(`\{\{.*?\}\}`)

// authScheme is the scheme word that may precede a credential.
var authScheme = regexp.MustCompile(`(?i)^(?:bearer|basic|token)\b\s*`)

// secretFinding is a literal secret found at a parameter path.
type secretFinding struct {
	Path string
	Kind string
}

// findSecrets walks node parameters and reports literal credentials. Only
// the literal text around {{ }} expressions is inspected.
func findSecrets(params map[string]any) []secretFinding {
	var out []secretFinding
	walkParams("", params, func(path, key, value string) {
		literal := literalText(value)
		if literal == "" {
			return
		}
		if kind := secretKind(key, literal); kind != "" {
			out = append(out, secretFinding{Path: path, Kind: kind})
			return
		}
		for _, q := range queryParams(literal) {
			if kind := secretKind(q.name, q.value); kind != "" {
				out = append(out, secretFinding{Path: path + "?" + q.name, Kind: kind})
			}
		}
	})
	return out
}

func secretKind(key, literal string) string {
	for _, p := range secretPatterns {
		if p.re.MatchString(literal) {
			return p.name
		}
	}
	if sensitiveKey.MatchString(key) && len(authScheme.ReplaceAllString(literal, "")) >= 8 {
		return "literal " + key
	}
	return ""
}

// literalText strips n8n expression syntax from a value and returns what is
// left. A value that is wholly an expression yields "".
func literalText(v string) string {
	v = strings.TrimPrefix(v, "=")
	return strings.TrimSpace(expression.ReplaceAllString(v, ""))
}

type queryParam struct {
	name, value string
}

// queryParams returns the literal query parameters of a URL-like value in
// their written order.
func queryParams(v string) []queryParam {
	_, query, ok := strings.Cut(v, "?")
	if !ok {
		return nil
	}
	var out []queryParam
	for _, pair := range strings.Split(query, "&") {
		name, value, _ := strings.Cut(pair, "=")
		if n, err := url.QueryUnescape(name); err == nil {
			name = n
		}
		if v, err := url.QueryUnescape(value); err == nil {
			value = v
		}
		if value = strings.TrimSpace(value); value != "" {
			out = append(out, queryParam{name: name, value: value})
		}
	}
	return out
}

func walkParams(prefix string, v any, visit func(path, key, value string)) {
	switch t := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		// Header and query lists use {"name": "X-API-Key", "value": "..."}.
		pairName, _ := t["name"].(string)
		for _, k := range keys {
			path := k
			if prefix != "" {
				path = prefix + "." + k
			}
			if s, ok := t[k].(string); ok {
				key := k
				if k == "value" && pairName != "" {
					key = pairName
				}
				visit(path, key, s)
				continue
			}
			walkParams(path, t[k], visit)
		}
	case []any:
		for i, e := range t {
			path := prefix + "[" + strconv.Itoa(i) + "]"
			if s, ok := e.(string); ok {
				visit(path, lastKey(prefix), s)
				continue
			}
			walkParams(path, e, visit)
		}
	}
}

func lastKey(path string) string {
	if i := strings.LastIndexAny(path, ".]"); i >= 0 {
		return path[i+1:]
	}
	return path
}
