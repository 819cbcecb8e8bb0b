// Package schemas validates workflow drafts and job documents against
// embedded JSON Schemas.
package schemas

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed workflow.schema.json
var workflowSchema string

//go:embed job.schema.json
var jobSchema string

// rootPath names the document itself in a Problem.
const rootPath = "(root)"

// Problem is one schema violation. Path uses dotted notation, e.g.
// "connections.0".
type Problem struct {
	Path   string
	Detail string
}

// ShapeError reports that a document does not match its schema.
type ShapeError struct {
	Document string
	Problems []Problem
}

func (e *ShapeError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s validation failed:", e.Document)
	for i, p := range e.Problems {
		fmt.Fprintf(&sb, "\n  %d. %s: %s", i+1, p.Path, p.Detail)
	}
	return sb.String()
}

// CompileError means an embedded schema is itself broken.
type CompileError struct {
	Document string
	Err      error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("compile %s schema: %v", e.Document, e.Err)
}

func (e *CompileError) Unwrap() error { return e.Err }

// document is an embedded schema compiled on first use.
type document struct {
	name   string
	source string

	once   sync.Once
	schema *gojsonschema.Schema
	err    error
}

func (d *document) compile() (*gojsonschema.Schema, error) {
	d.once.Do(func() {
		schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(d.source))
		if err != nil {
			d.err = &CompileError{Document: d.name, Err: err}
			return
		}
		d.schema = schema
	})
	return d.schema, d.err
}

func (d *document) check(raw string) error {
	schema, err := d.compile()
	if err != nil {
		return err
	}
	result, err := schema.Validate(gojsonschema.NewStringLoader(raw))
	if err != nil {
		// Unparseable input never reaches the schema.
		return &ShapeError{Document: d.name, Problems: []Problem{{Path: rootPath, Detail: err.Error()}}}
	}
	if result.Valid() {
		return nil
	}
	shapeErr := &ShapeError{Document: d.name}
	for _, re := range result.Errors() {
		path := re.Field()
		if path == "" {
			path = rootPath
		}
		shapeErr.Problems = append(shapeErr.Problems, Problem{Path: path, Detail: re.Description()})
	}
	return shapeErr
}

var (
	workflowDoc = &document{name: "workflow", source: workflowSchema}
	jobDoc      = &document{name: "job", source: jobSchema}
)

// ValidateWorkflow checks raw JSON against the workflow draft schema.
func ValidateWorkflow(raw string) error { return workflowDoc.check(raw) }

// ValidateJob checks a raw job document against the intake schema.
func ValidateJob(raw string) error { return jobDoc.check(raw) }
