package openapi

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/goliatone/go-formstate/pkg/controller"
)

// orderExtension is the schema extension that positions a property; lower
// values come first and unordered properties follow by name.
const orderExtension = "x-formstate-order"

// Form is the request body of one operation seen as a flat form.
type Form struct {
	OperationID string
	Method      string
	Path        string
	Summary     string
	Fields      []Field
}

// Field describes one top-level property of the request body.
type Field struct {
	Key         string
	Type        string
	Format      string
	Title       string
	Description string
	Enum        []any
	Required    bool
	Default     any
	HasDefault  bool

	schema *openapi3.Schema
}

// Form returns the request-body form of operationID.
func (d *Document) Form(operationID string) (*Form, error) {
	var form *Form
	var err error
	d.eachOperation(func(method, path string, op *openapi3.Operation) bool {
		if op.OperationID != operationID {
			return true
		}
		form, err = buildForm(method, path, op)
		return false
	})
	if err != nil {
		return nil, err
	}
	if form == nil {
		return nil, fmt.Errorf("%w: %q in %s", ErrOperationNotFound, operationID, d.location)
	}
	return form, nil
}

func buildForm(method, path string, op *openapi3.Operation) (*Form, error) {
	schema := requestSchema(op)
	if schema == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoRequestSchema, op.OperationID)
	}
	props, required := flatten(schema)
	if len(props) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoRequestSchema, op.OperationID)
	}

	form := &Form{
		OperationID: op.OperationID,
		Method:      method,
		Path:        path,
		Summary:     op.Summary,
	}
	for key, ref := range props {
		if ref == nil || ref.Value == nil {
			continue
		}
		s := ref.Value
		form.Fields = append(form.Fields, Field{
			Key:         key,
			Type:        schemaType(s),
			Format:      s.Format,
			Title:       s.Title,
			Description: s.Description,
			Enum:        append([]any(nil), s.Enum...),
			Required:    required[key],
			Default:     s.Default,
			HasDefault:  s.Default != nil,
			schema:      s,
		})
	}
	sort.SliceStable(form.Fields, func(i, j int) bool {
		oi, iok := order(form.Fields[i].schema)
		oj, jok := order(form.Fields[j].schema)
		switch {
		case iok && jok && oi != oj:
			return oi < oj
		case iok != jok:
			return iok
		}
		return form.Fields[i].Key < form.Fields[j].Key
	})
	return form, nil
}

func requestSchema(op *openapi3.Operation) *openapi3.Schema {
	if op.RequestBody == nil || op.RequestBody.Value == nil {
		return nil
	}
	content := op.RequestBody.Value.Content
	for _, mediaType := range []string{"application/json", "application/x-www-form-urlencoded", "multipart/form-data"} {
		if mt, ok := content[mediaType]; ok && mt.Schema != nil {
			return mt.Schema.Value
		}
	}
	keys := make([]string, 0, len(content))
	for key := range content {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if mt := content[key]; mt != nil && mt.Schema != nil {
			return mt.Schema.Value
		}
	}
	return nil
}

// flatten merges the properties and required lists of s and its allOf
// members.
func flatten(s *openapi3.Schema) (openapi3.Schemas, map[string]bool) {
	props := openapi3.Schemas{}
	required := map[string]bool{}
	var walk func(*openapi3.Schema)
	walk = func(s *openapi3.Schema) {
		if s == nil {
			return
		}
		for key, ref := range s.Properties {
			props[key] = ref
		}
		for _, key := range s.Required {
			required[key] = true
		}
		for _, ref := range s.AllOf {
			if ref != nil {
				walk(ref.Value)
			}
		}
	}
	walk(s)
	return props, required
}

func schemaType(s *openapi3.Schema) string {
	if s.Type == nil {
		return ""
	}
	for _, t := range s.Type.Slice() {
		if t != openapi3.TypeNull {
			return t
		}
	}
	return ""
}

func order(s *openapi3.Schema) (float64, bool) {
	raw, ok := s.Extensions[orderExtension]
	if !ok {
		return 0, false
	}
	switch v := raw.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	}
	return 0, false
}

// Label is the title, falling back to the key.
func (f Field) Label() string {
	if f.Title != "" {
		return f.Title
	}
	return f.Key
}

// ControlType picks the input kind for the property.
func (f Field) ControlType() controller.FieldType {
	switch {
	case f.Type == openapi3.TypeBoolean:
		return controller.FieldCheckbox
	case len(f.Enum) > 0:
		return controller.FieldSelect
	case f.Format == "password":
		return controller.FieldPassword
	case f.Format == "textarea" || (f.schema != nil && f.schema.MaxLength != nil && *f.schema.MaxLength > 200):
		return controller.FieldTextArea
	}
	return controller.FieldText
}

// Validator checks a field value against the property schema. String input
// is coerced for number, integer, boolean and array schemas first. A blank
// value is only an error for required properties.
func (f Field) Validator() controller.ValidateFunc {
	return func(value any, _ map[string]any) controller.Outcome {
		if blank(value) {
			if f.Required {
				return controller.Message{Content: "required"}
			}
			return nil
		}
		v, err := coerce(value, f.Type)
		if err != nil {
			return controller.Message{Content: err.Error()}
		}
		if f.schema == nil {
			return nil
		}
		if err := f.schema.VisitJSON(v); err != nil {
			return controller.Message{Content: reason(err)}
		}
		return nil
	}
}

// InitialValues collects schema defaults.
func (f *Form) InitialValues() map[string]any {
	out := make(map[string]any)
	for _, field := range f.Fields {
		if field.HasDefault {
			out[field.Key] = field.Default
		}
	}
	return out
}

// Validators returns one validator per field.
func (f *Form) Validators() map[string]controller.ValidateFunc {
	out := make(map[string]controller.ValidateFunc, len(f.Fields))
	for _, field := range f.Fields {
		out[field.Key] = field.Validator()
	}
	return out
}

// Field looks a field up by key.
func (f *Form) Field(key string) (Field, bool) {
	for _, field := range f.Fields {
		if field.Key == key {
			return field, true
		}
	}
	return Field{}, false
}

func blank(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	}
	return false
}

func coerce(value any, typ string) (any, error) {
	switch typ {
	case openapi3.TypeInteger:
		f, ok := toNumber(value)
		if !ok || f != float64(int64(f)) {
			return nil, errors.New("must be a whole number")
		}
		return f, nil
	case openapi3.TypeNumber:
		f, ok := toNumber(value)
		if !ok {
			return nil, errors.New("must be a number")
		}
		return f, nil
	case openapi3.TypeBoolean:
		switch v := value.(type) {
		case bool:
			return v, nil
		case string:
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				return nil, errors.New("must be true or false")
			}
			return b, nil
		}
		return nil, errors.New("must be true or false")
	case openapi3.TypeArray:
		switch v := value.(type) {
		case []any:
			return v, nil
		case []string:
			out := make([]any, len(v))
			for i, s := range v {
				out[i] = s
			}
			return out, nil
		case string:
			var out []any
			for _, part := range strings.Split(v, ",") {
				if part = strings.TrimSpace(part); part != "" {
					out = append(out, part)
				}
			}
			return out, nil
		}
		return value, nil
	case openapi3.TypeString:
		if s, ok := value.(string); ok {
			return s, nil
		}
		return fmt.Sprint(value), nil
	}
	return value, nil
}

func toNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	}
	return 0, false
}

// reason extracts the human-readable part of a kin-openapi validation error.
func reason(err error) string {
	var schemaErr *openapi3.SchemaError
	if errors.As(err, &schemaErr) && schemaErr.Reason != "" {
		return schemaErr.Reason
	}
	var multi openapi3.MultiError
	if errors.As(err, &multi) && len(multi) > 0 {
		return reason(multi[0])
	}
	return err.Error()
}
