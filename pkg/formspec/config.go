package formspec

import (
	"fmt"
	"strings"
	"sync"

	"github.com/goliatone/go-formstate/pkg/controller"
	"github.com/goliatone/go-formstate/pkg/rules"
	"github.com/goliatone/go-formstate/pkg/validators"
)

// Config compiles the definition into a controller configuration. OnSubmit
// and SetController are left for the caller.
func (d *Definition) Config() (controller.Config, error) {
	cfg := controller.Config{
		InitialValues:    make(map[string]any),
		Validation:       make(map[string]controller.ValidateFunc),
		ValidateOnChange: d.ValidateOnChange,
	}
	disable := make(map[string]string)
	hide := make(map[string]string)

	for _, f := range d.Fields {
		if f.Initial != nil {
			cfg.InitialValues[f.Key] = f.Initial
		}
		if strings.TrimSpace(f.DisableIf) != "" {
			disable[f.Key] = f.DisableIf
		}
		if strings.TrimSpace(f.HideIf) != "" {
			hide[f.Key] = f.HideIf
		}
		fn, err := d.validator(f)
		if err != nil {
			return controller.Config{}, fmt.Errorf("%w: field %q: %v", ErrInvalidDefinition, f.Key, err)
		}
		if fn != nil {
			cfg.Validation[f.Key] = fn
		}
	}

	var err error
	if cfg.DisableIf, err = rules.CompileAll(disable, d.Extras); err != nil {
		return controller.Config{}, fmt.Errorf("%w: disableIf: %v", ErrInvalidDefinition, err)
	}
	if cfg.HideIf, err = rules.CompileAll(hide, d.Extras); err != nil {
		return controller.Config{}, fmt.Errorf("%w: hideIf: %v", ErrInvalidDefinition, err)
	}
	return cfg, nil
}

// Options returns the controller options the definition implies.
func (d *Definition) Options() []controller.Option {
	var opts []controller.Option
	if d.PollInterval > 0 {
		opts = append(opts, controller.WithPollInterval(d.PollInterval))
	}
	return opts
}

// Field returns the declaration for key.
func (d *Definition) Field(key string) (Field, bool) {
	for _, f := range d.Fields {
		if f.Key == key {
			return f, true
		}
	}
	return Field{}, false
}

func (d *Definition) validator(f Field) (controller.ValidateFunc, error) {
	var chain []controller.ValidateFunc
	for _, check := range f.Validate {
		fn, err := buildCheck(check)
		if err != nil {
			return nil, err
		}
		chain = append(chain, fn)
	}
	if d.form != nil {
		if prop, ok := d.form.Field(f.Key); ok {
			chain = append(chain, prop.Validator())
		}
	}
	if f.Type == string(controller.FieldSelect) && len(f.Options) > 0 {
		values := make([]any, len(f.Options))
		for i, opt := range f.Options {
			values[i] = opt.Value
		}
		chain = append(chain, validators.OneOf(values...))
	}
	switch len(chain) {
	case 0:
		return nil, nil
	case 1:
		return chain[0], nil
	}
	return validators.Chain(chain...), nil
}

func buildCheck(c Check) (controller.ValidateFunc, error) {
	var fn controller.ValidateFunc
	switch c.Name {
	case "required":
		fn = validators.Required()
	case "email":
		fn = validators.Email()
	case "minLength", "maxLength":
		n, ok := intArg(c.Arg)
		if !ok || n < 0 {
			return nil, fmt.Errorf("%s needs a non-negative integer", c.Name)
		}
		if c.Name == "minLength" {
			fn = validators.MinLength(n)
		} else {
			fn = validators.MaxLength(n)
		}
	case "pattern":
		expr, ok := c.Arg.(string)
		if !ok {
			return nil, fmt.Errorf("pattern needs a string")
		}
		var err error
		if fn, err = validators.Pattern(expr); err != nil {
			return nil, err
		}
	case "oneOf":
		values, ok := c.Arg.([]any)
		if !ok || len(values) == 0 {
			return nil, fmt.Errorf("oneOf needs a list")
		}
		fn = validators.OneOf(values...)
	case "equals":
		other, ok := c.Arg.(string)
		if !ok || other == "" {
			return nil, fmt.Errorf("equals needs a field key")
		}
		fn = validators.Equals(other)
	default:
		return nil, fmt.Errorf("unknown check %q", c.Name)
	}
	if c.Message != "" {
		fn = validators.WithMessage(fn, c.Message)
	}
	return fn, nil
}

func intArg(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case uint64:
		return int(n), true
	case float64:
		if n == float64(int(n)) {
			return int(n), true
		}
	}
	return 0, false
}

// Bind registers every field key with c and declares radio options so the
// controller can track per-option state and the default selection. onSelect
// runs when the controller re-asserts an option; it may be nil. The returned
// function undoes the registrations.
func (d *Definition) Bind(c *controller.Controller, onSelect func(key, id string)) (controller.Unsubscribe, error) {
	var undo []func()
	release := func() {
		for i := len(undo) - 1; i >= 0; i-- {
			undo[i]()
		}
	}

	for _, f := range d.Fields {
		key := f.Key
		registrations := 1
		if f.Type == string(controller.FieldRadio) {
			registrations = len(f.Options)
		}
		for i := 0; i < registrations; i++ {
			if !c.RegisterKey(key, f.ControlType()) {
				release()
				return nil, fmt.Errorf("%w: %q", ErrDuplicateKey, key)
			}
			undo = append(undo, func() { c.UnregisterKey(key) })
		}
		if f.Type != string(controller.FieldRadio) {
			continue
		}
		for _, opt := range f.Options {
			id := opt.ID
			unsubscribe := c.SubscribeIsSelected(controller.Selection{
				Key:   key,
				ID:    id,
				Value: opt.Value,
				Action: func() {
					if onSelect != nil {
						onSelect(key, id)
					}
				},
			})
			undo = append(undo, func() { unsubscribe() })
		}
	}

	var once sync.Once
	return func() { once.Do(release) }, nil
}

// Keys lists the field keys in declaration order.
func (d *Definition) Keys() []string {
	out := make([]string, len(d.Fields))
	for i, f := range d.Fields {
		out[i] = f.Key
	}
	return out
}

// Fill sets values on c in declaration order, the way a user filling the form
// top to bottom would. Radio values select the option carrying that value.
// Keys not declared by the definition are rejected.
func (d *Definition) Fill(c *controller.Controller, values map[string]any) error {
	for key := range values {
		if _, ok := d.Field(key); !ok {
			return fmt.Errorf("%w: %q", ErrUnknownField, key)
		}
	}
	for _, f := range d.Fields {
		value, ok := values[f.Key]
		if !ok {
			continue
		}
		if f.Type != string(controller.FieldRadio) {
			c.SetFieldValue(f.Key, value)
			continue
		}
		opt, found := f.option(value)
		if !found {
			return fmt.Errorf("%w: %q has no option %v", ErrUnknownOption, f.Key, value)
		}
		c.SelectOption(f.Key, opt.ID, opt.Value)
	}
	return nil
}

func (f Field) option(value any) (Option, bool) {
	for _, opt := range f.Options {
		if fmt.Sprint(opt.Value) == fmt.Sprint(value) {
			return opt, true
		}
	}
	return Option{}, false
}
