package formspec

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formstate/pkg/controller"
	"github.com/goliatone/go-formstate/pkg/openapi"
)

// Definition is a parsed form definition.
type Definition struct {
	Name             string         `yaml:"name"`
	Title            string         `yaml:"title"`
	ValidateOnChange bool           `yaml:"validateOnChange"`
	PollInterval     time.Duration  `yaml:"pollInterval"`
	Schema           *SchemaRef     `yaml:"schema"`
	Extras           map[string]any `yaml:"extras"`
	Fields           []Field        `yaml:"fields"`

	form *openapi.Form
}

// SchemaRef points at an OpenAPI operation whose request body contributes
// fields. File is resolved relative to the definition.
type SchemaRef struct {
	File      string `yaml:"file"`
	Operation string `yaml:"operation"`
}

// Field declares one form field.
type Field struct {
	Key       string   `yaml:"key"`
	Type      string   `yaml:"type"`
	Label     string   `yaml:"label"`
	Help      string   `yaml:"help"`
	Initial   any      `yaml:"initial"`
	Options   []Option `yaml:"options"`
	DisableIf string   `yaml:"disableIf"`
	HideIf    string   `yaml:"hideIf"`
	Validate  []Check  `yaml:"validate"`

	// fromSchema is set for fields contributed by the OpenAPI operation.
	fromSchema bool
}

// Option is a select or radio choice.
type Option struct {
	ID    string `yaml:"id"`
	Value any    `yaml:"value"`
	Label string `yaml:"label"`
}

// Check is one entry of a field's validate list. In YAML it is either a bare
// name (`required`) or a single-key map carrying the argument
// (`minLength: 3`), optionally with a `message` override.
type Check struct {
	Name    string
	Arg     any
	Message string
}

// UnmarshalYAML accepts the scalar and mapping forms of a check.
func (c *Check) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		c.Name = node.Value
		return nil
	case yaml.MappingNode:
		var raw map[string]any
		if err := node.Decode(&raw); err != nil {
			return err
		}
		for key, value := range raw {
			if key == "message" {
				msg, ok := value.(string)
				if !ok {
					return fmt.Errorf("line %d: message must be a string", node.Line)
				}
				c.Message = msg
				continue
			}
			if c.Name != "" {
				return fmt.Errorf("line %d: check declares both %q and %q", node.Line, c.Name, key)
			}
			c.Name = key
			c.Arg = value
		}
		if c.Name == "" {
			return fmt.Errorf("line %d: check without a name", node.Line)
		}
		return nil
	}
	return fmt.Errorf("line %d: check must be a name or a map", node.Line)
}

// ControlType is the controller field type of the declaration.
func (f Field) ControlType() controller.FieldType {
	return controller.FieldType(f.Type)
}

// Title is the label, falling back to the key.
func (f Field) Title() string {
	if f.Label != "" {
		return f.Label
	}
	return f.Key
}

// FromSchema reports whether the field was contributed by the OpenAPI
// operation rather than declared.
func (f Field) FromSchema() bool {
	return f.fromSchema
}
