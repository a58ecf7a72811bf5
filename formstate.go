// Package formstate is the quick-start entry point: it loads a form
// definition, builds a controller bound to every declared field and submits
// value maps through it.
package formstate

import (
	"context"
	"sync"

	"github.com/goliatone/go-formstate/pkg/controller"
	"github.com/goliatone/go-formstate/pkg/formspec"
	"github.com/goliatone/go-formstate/pkg/render"
)

// Issue aliases render.Issue for callers reporting invalid fields.
type Issue = render.Issue

// Form is a definition with its bound controller.
type Form struct {
	def        *formspec.Definition
	controller *controller.Controller
	release    controller.Unsubscribe

	mu        sync.Mutex
	submitted map[string]any
}

// Load reads the definition at path, resolving its schema reference, and
// builds a Form for it.
func Load(ctx context.Context, path string, opts ...controller.Option) (*Form, error) {
	def, err := formspec.LoadFile(ctx, path)
	if err != nil {
		return nil, err
	}
	return New(def, opts...)
}

// New builds a controller for def and binds every field. opts are applied
// after the ones the definition implies.
func New(def *formspec.Definition, opts ...controller.Option) (*Form, error) {
	f := &Form{def: def}
	cfg, err := def.Config()
	if err != nil {
		return nil, err
	}
	cfg.OnSubmit = func(_ context.Context, fields map[string]any, _ *controller.Controller) error {
		f.mu.Lock()
		f.submitted = fields
		f.mu.Unlock()
		return nil
	}
	c, err := controller.New(cfg, append(def.Options(), opts...)...)
	if err != nil {
		return nil, err
	}
	release, err := def.Bind(c, nil)
	if err != nil {
		return nil, err
	}
	f.controller = c
	f.release = release
	return f, nil
}

// Definition returns the loaded definition.
func (f *Form) Definition() *formspec.Definition { return f.def }

// Controller returns the bound controller.
func (f *Form) Controller() *controller.Controller { return f.controller }

// Submit fills values in declaration order and submits the form. It returns
// the submitted fields, or nil plus the issues in declaration order when the
// form is invalid.
func (f *Form) Submit(ctx context.Context, values map[string]any) (map[string]any, []Issue, error) {
	if err := f.def.Fill(f.controller, values); err != nil {
		return nil, nil, err
	}
	f.mu.Lock()
	f.submitted = nil
	f.mu.Unlock()
	if _, err := f.controller.Submit(ctx); err != nil {
		return nil, nil, err
	}
	f.mu.Lock()
	submitted := f.submitted
	f.mu.Unlock()
	if submitted == nil {
		return nil, render.IssuesFor(f.controller, f.def.Keys()), nil
	}
	return submitted, nil, nil
}

// Close releases the field registrations.
func (f *Form) Close() {
	if f.release != nil {
		f.release()
	}
}
