// Package testsupport holds fixture and golden-file helpers shared by tests
// that drive form definitions end to end.
package testsupport

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	formstate "github.com/goliatone/go-formstate"
	"github.com/goliatone/go-formstate/pkg/controller"
	"github.com/goliatone/go-formstate/pkg/formspec"
)

// MustLoadForm reads a definition fixture and resolves its schema reference.
func MustLoadForm(t *testing.T, path string) *formspec.Definition {
	t.Helper()

	def, err := LoadForm(path)
	if err != nil {
		t.Fatalf("load form: %v", err)
	}
	return def
}

// LoadForm returns a Definition without requiring testing.T, allowing
// callers to wire fixtures in setup functions.
func LoadForm(path string) (*formspec.Definition, error) {
	if path == "" {
		return nil, errors.New("testsupport: form path is required")
	}
	def, err := formspec.LoadFile(context.Background(), path)
	if err != nil {
		return nil, fmt.Errorf("testsupport: %w", err)
	}
	return def, nil
}

// MustLoadValues reads a YAML or JSON values fixture.
func MustLoadValues(t *testing.T, path string) map[string]any {
	t.Helper()

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open values: %v", err)
	}
	defer f.Close()
	values, err := formspec.LoadValues(f)
	if err != nil {
		t.Fatalf("load values: %v", err)
	}
	return values
}

// Harness wraps a formstate.Form for tests.
type Harness struct {
	Def        *formspec.Definition
	Controller *controller.Controller
	form       *formstate.Form
}

// NewHarness builds and binds a controller for def. Bindings are released
// when the test ends.
func NewHarness(t *testing.T, def *formspec.Definition, opts ...controller.Option) *Harness {
	t.Helper()

	form, err := formstate.New(def, opts...)
	if err != nil {
		t.Fatalf("new form: %v", err)
	}
	t.Cleanup(form.Close)
	return &Harness{Def: def, Controller: form.Controller(), form: form}
}

// Submit fills values in declaration order and submits. It returns the
// submitted fields, or nil when the form stayed invalid.
func (h *Harness) Submit(t *testing.T, values map[string]any) map[string]any {
	t.Helper()

	submitted, _, err := h.form.Submit(context.Background(), values)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	return submitted
}

// MustReadGolden reads a golden file and returns its raw bytes.
func MustReadGolden(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read golden: %v", err)
	}
	return data
}

// WriteMaybeGolden updates a golden file when UPDATE_GOLDENS is set. Returns
// true if the golden was written (test should exit early).
func WriteMaybeGolden(t *testing.T, path string, data []byte) bool {
	t.Helper()
	if os.Getenv("UPDATE_GOLDENS") == "" {
		return false
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir golden dir: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write golden: %v", err)
	}
	return true
}

// AssertGolden compares got against the golden file at path, rewriting it
// instead when UPDATE_GOLDENS is set.
func AssertGolden(t *testing.T, path string, got []byte) {
	t.Helper()
	if WriteMaybeGolden(t, path, got) {
		return
	}
	if diff := cmp.Diff(string(MustReadGolden(t, path)), string(got)); diff != "" {
		t.Fatalf("golden %s mismatch (-want +got):\n%s", filepath.Base(path), diff)
	}
}
