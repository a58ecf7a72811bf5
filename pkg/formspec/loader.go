package formspec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formstate/pkg/controller"
	"github.com/goliatone/go-formstate/pkg/openapi"
	"github.com/goliatone/go-formstate/pkg/rules"
)

var fieldTypes = map[controller.FieldType]bool{
	controller.FieldText:     true,
	controller.FieldPassword: true,
	controller.FieldTextArea: true,
	controller.FieldCheckbox: true,
	controller.FieldSelect:   true,
	controller.FieldRadio:    true,
}

// Load parses a definition. Unknown keys are rejected. A schema reference is
// left unresolved; see ResolveSchema.
func Load(r io.Reader) (*Definition, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var def Definition
	if err := dec.Decode(&def); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty document", ErrInvalidDefinition)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidDefinition, err)
	}
	if err := def.normalise(); err != nil {
		return nil, err
	}
	return &def, nil
}

// LoadFile reads a definition from disk and resolves its schema reference
// relative to the file.
func LoadFile(ctx context.Context, path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("formspec: read %s: %w", path, err)
	}
	def, err := Load(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := def.ResolveSchema(ctx, filepath.Dir(path)); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return def, nil
}

// ResolveSchema loads the referenced OpenAPI operation, relative to baseDir,
// and merges its request-body properties into the field list. It is a no-op
// without a schema reference.
func (d *Definition) ResolveSchema(ctx context.Context, baseDir string) error {
	if d.Schema == nil || d.form != nil {
		return nil
	}
	location := d.Schema.File
	if !filepath.IsAbs(location) {
		location = filepath.Join(baseDir, location)
	}
	doc, err := openapi.Load(ctx, openapi.SourceFromFile(location))
	if err != nil {
		return fmt.Errorf("formspec: schema: %w", err)
	}
	form, err := doc.Form(d.Schema.Operation)
	if err != nil {
		return fmt.Errorf("formspec: schema: %w", err)
	}
	d.mergeSchema(form)
	return d.checkRules()
}

func (d *Definition) mergeSchema(form *openapi.Form) {
	d.form = form
	declared := make(map[string]int, len(d.Fields))
	for i, f := range d.Fields {
		declared[f.Key] = i
	}
	for _, prop := range form.Fields {
		i, ok := declared[prop.Key]
		if !ok {
			f := Field{
				Key:        prop.Key,
				Type:       string(prop.ControlType()),
				Label:      prop.Label(),
				Help:       prop.Description,
				Initial:    prop.Default,
				fromSchema: true,
			}
			if f.Type == string(controller.FieldSelect) {
				f.Options = enumOptions(prop.Key, prop.Enum)
			}
			d.Fields = append(d.Fields, f)
			continue
		}
		f := &d.Fields[i]
		if f.Initial == nil && prop.HasDefault {
			f.Initial = prop.Default
		}
		if f.Help == "" {
			f.Help = prop.Description
		}
		if len(f.Options) == 0 && len(prop.Enum) > 0 && (f.Type == string(controller.FieldSelect) || f.Type == string(controller.FieldRadio)) {
			f.Options = enumOptions(prop.Key, prop.Enum)
		}
	}
}

func enumOptions(key string, values []any) []Option {
	out := make([]Option, 0, len(values))
	for _, v := range values {
		out = append(out, Option{ID: fmt.Sprintf("%s-%v", key, v), Value: v, Label: fmt.Sprint(v)})
	}
	return out
}

func (d *Definition) normalise() error {
	if d.PollInterval < 0 {
		return fmt.Errorf("%w: negative pollInterval", ErrInvalidDefinition)
	}
	if d.Schema != nil && (strings.TrimSpace(d.Schema.File) == "" || strings.TrimSpace(d.Schema.Operation) == "") {
		return fmt.Errorf("%w: schema needs file and operation", ErrInvalidDefinition)
	}
	if len(d.Fields) == 0 && d.Schema == nil {
		return fmt.Errorf("%w: no fields", ErrInvalidDefinition)
	}

	seen := make(map[string]bool, len(d.Fields))
	for i := range d.Fields {
		f := &d.Fields[i]
		f.Key = strings.TrimSpace(f.Key)
		if f.Key == "" {
			return fmt.Errorf("%w: field %d has no key", ErrInvalidDefinition, i)
		}
		if seen[f.Key] {
			return fmt.Errorf("%w: field %q declared twice", ErrInvalidDefinition, f.Key)
		}
		seen[f.Key] = true
		if err := f.normalise(); err != nil {
			return fmt.Errorf("%w: field %q: %v", ErrInvalidDefinition, f.Key, err)
		}
	}
	if d.Schema == nil {
		return d.checkRules()
	}
	return nil
}

func (f *Field) normalise() error {
	if f.Type == "" {
		f.Type = string(controller.FieldText)
	}
	if !fieldTypes[f.ControlType()] {
		return fmt.Errorf("unknown type %q", f.Type)
	}
	choice := f.Type == string(controller.FieldSelect) || f.Type == string(controller.FieldRadio)
	if !choice && len(f.Options) > 0 {
		return fmt.Errorf("options are only valid for select and radio fields")
	}
	if f.Type == string(controller.FieldRadio) && len(f.Options) == 0 {
		return fmt.Errorf("radio field needs options")
	}
	ids := make(map[string]bool, len(f.Options))
	for i := range f.Options {
		opt := &f.Options[i]
		if opt.ID == "" {
			opt.ID = fmt.Sprintf("%s-%v", f.Key, opt.Value)
		}
		if opt.Label == "" {
			opt.Label = fmt.Sprint(opt.Value)
		}
		if ids[opt.ID] {
			return fmt.Errorf("option id %q used twice", opt.ID)
		}
		ids[opt.ID] = true
	}
	if f.Type == string(controller.FieldCheckbox) && f.Initial == nil {
		f.Initial = false
	}
	for _, check := range f.Validate {
		if _, err := buildCheck(check); err != nil {
			return err
		}
	}
	return nil
}

// checkRules compiles every rule and makes sure it only names known fields.
func (d *Definition) checkRules() error {
	known := make(map[string]bool, len(d.Fields))
	for _, f := range d.Fields {
		known[f.Key] = true
	}
	for _, f := range d.Fields {
		for kind, src := range map[string]string{"disableIf": f.DisableIf, "hideIf": f.HideIf} {
			if strings.TrimSpace(src) == "" {
				continue
			}
			rule, err := rules.Compile(src)
			if err != nil {
				return fmt.Errorf("%w: field %q: %s: %v", ErrInvalidDefinition, f.Key, kind, err)
			}
			for _, ident := range rule.Fields() {
				root, _, _ := strings.Cut(ident, ".")
				if !known[ident] && !known[root] {
					return fmt.Errorf("%w: field %q: %s references unknown field %q", ErrInvalidDefinition, f.Key, kind, ident)
				}
			}
		}
	}
	return nil
}

// LoadValues parses a YAML (or JSON) mapping of field values, as used for
// non-interactive runs.
func LoadValues(r io.Reader) (map[string]any, error) {
	values := map[string]any{}
	if err := yaml.NewDecoder(r).Decode(&values); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("formspec: values: %w", err)
	}
	return values, nil
}
