// Package catalog provides read-only lookups of workflow node documentation.
package catalog

import (
	"context"
	"errors"
)

var (
	// ErrNotFound means the catalog has no entry for the node type.
	ErrNotFound = errors.New("catalog: node type not found")
	// ErrUnavailable means the catalog could not be reached or answered badly.
	ErrUnavailable = errors.New("catalog: unavailable")
)

// Entry is the documentation for one node type.
type Entry struct {
	NodeType      string `json:"node_type"`
	Title         string `json:"title"`
	Documentation string `json:"documentation"`
}

// Catalog looks up node documentation by node type.
type Catalog interface {
	Lookup(ctx context.Context, nodeType string) (*Entry, error)
}
