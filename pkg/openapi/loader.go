package openapi

import (
	"context"
	"fmt"
	"sort"

	"github.com/getkin/kin-openapi/openapi3"
)

// Document is a loaded and validated OpenAPI document.
type Document struct {
	location string
	spec     *openapi3.T
}

// Load reads src, parses it (JSON or YAML) and validates the result.
func Load(ctx context.Context, src Source) (*Document, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	data, err := src.read(ctx)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyDocument, src.Location())
	}

	loader := openapi3.NewLoader()
	loader.Context = ctx
	spec, err := loader.LoadFromData(data)
	if err != nil {
		return nil, fmt.Errorf("openapi: load %s: %w", src.Location(), err)
	}
	if err := spec.Validate(ctx, openapi3.DisableExamplesValidation()); err != nil {
		return nil, fmt.Errorf("openapi: validate %s: %w", src.Location(), err)
	}
	return &Document{location: src.Location(), spec: spec}, nil
}

// Location names the source the document was loaded from.
func (d *Document) Location() string {
	return d.location
}

// Operations lists the operationIds in the document, sorted.
func (d *Document) Operations() []string {
	var ids []string
	d.eachOperation(func(_, _ string, op *openapi3.Operation) bool {
		if op.OperationID != "" {
			ids = append(ids, op.OperationID)
		}
		return true
	})
	sort.Strings(ids)
	return ids
}

func (d *Document) eachOperation(fn func(method, path string, op *openapi3.Operation) bool) {
	if d.spec.Paths == nil {
		return
	}
	paths := d.spec.Paths.Map()
	keys := make([]string, 0, len(paths))
	for path := range paths {
		keys = append(keys, path)
	}
	sort.Strings(keys)
	for _, path := range keys {
		item := paths[path]
		if item == nil {
			continue
		}
		ops := item.Operations()
		methods := make([]string, 0, len(ops))
		for method := range ops {
			methods = append(methods, method)
		}
		sort.Strings(methods)
		for _, method := range methods {
			if op := ops[method]; op != nil && !fn(method, path, op) {
				return
			}
		}
	}
}
