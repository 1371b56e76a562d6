package treeio

import (
	"fmt"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"github.com/Sumatoshi-tech/hyperdiff/pkg/uast/pkg/node"
	"github.com/Sumatoshi-tech/hyperdiff/pkg/uast/pkg/spec"
)

// Violation is one schema error.
type Violation struct {
	Field       string `json:"field"       yaml:"field"`
	Description string `json:"description" yaml:"description"`
}

var compiledSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	raw, err := spec.UASTSchemaFS.ReadFile(spec.SchemaFile)
	if err != nil {
		return nil, fmt.Errorf("read embedded schema: %w", err)
	}

	schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, fmt.Errorf("compile embedded schema: %w", err)
	}

	return schema, nil
})

// Validate checks the document against the embedded UAST schema. A nil
// slice means the document is valid.
func (d *Document) Validate() ([]Violation, error) {
	schema, err := compiledSchema()
	if err != nil {
		return nil, err
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(d.value))
	if err != nil {
		return nil, fmt.Errorf("validate tree: %w", err)
	}

	if result.Valid() {
		return nil, nil
	}

	out := make([]Violation, 0, len(result.Errors()))
	for _, verr := range result.Errors() {
		out = append(out, Violation{Field: verr.Field(), Description: verr.Description()})
	}

	return out, nil
}

// ValidTree returns the tree of d, or ErrInvalidTree with the first
// violation.
func (d *Document) ValidTree() (*node.Node, error) {
	violations, err := d.Validate()
	if err != nil {
		return nil, err
	}

	if len(violations) > 0 {
		return nil, fmt.Errorf("%w: %s: %s (%d violations)",
			ErrInvalidTree, violations[0].Field, violations[0].Description, len(violations))
	}

	return d.Root, nil
}
