package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// HTTPCatalog looks up node documentation from a remote catalog service.
// GET {baseURL}/nodes/{nodeType} must answer with a JSON Entry; documentation
// marked as HTML is reduced to plain text.
type HTTPCatalog struct {
	baseURL string
	client  *http.Client
}

// NewHTTPCatalog creates a catalog client with the given per-request timeout.
func NewHTTPCatalog(baseURL string, timeout time.Duration) *HTTPCatalog {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPCatalog{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

type httpEntry struct {
	Entry
	Format string `json:"format,omitempty"`
}

// Lookup fetches one entry. Transport failures and 5xx responses are reported
// as ErrUnavailable; 404 as ErrNotFound.
func (c *HTTPCatalog) Lookup(ctx context.Context, nodeType string) (*Entry, error) {
	endpoint := fmt.Sprintf("%s/nodes/%s", c.baseURL, url.PathEscape(nodeType))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create catalog request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: status %d for %s", ErrUnavailable, resp.StatusCode, nodeType)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var he httpEntry
	if err := json.Unmarshal(body, &he); err != nil {
		return nil, fmt.Errorf("%w: malformed entry for %s: %v", ErrUnavailable, nodeType, err)
	}
	if he.NodeType == "" {
		he.NodeType = nodeType
	}
	if he.Format == "html" || looksLikeHTML(he.Documentation) {
		text, err := HTMLToText(he.Documentation)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		he.Documentation = text
	}
	return &he.Entry, nil
}

// HTMLToText extracts readable text from an HTML fragment, dropping scripts and styles.
func HTMLToText(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML documentation: %w", err)
	}
	doc.Find("script, style, nav").Remove()

	var parts []string
	doc.Find("h1, h2, h3, h4, p, li, pre, td").Each(func(_ int, s *goquery.Selection) {
		if t := strings.Join(strings.Fields(s.Text()), " "); t != "" {
			parts = append(parts, t)
		}
	})
	if len(parts) == 0 {
		return strings.Join(strings.Fields(doc.Text()), " "), nil
	}
	return strings.Join(parts, "\n"), nil
}

func looksLikeHTML(s string) bool {
	t := strings.TrimSpace(s)
	return strings.HasPrefix(t, "<") && strings.Contains(t, ">")
}
