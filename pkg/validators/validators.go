// Package validators provides controller.ValidateFunc constructors for the
// common field checks. Checks other than Required treat an empty value as
// valid so they compose with Required through Chain.
package validators

import (
	"context"
	"fmt"
	"net/mail"
	"reflect"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/goliatone/go-formstate/pkg/controller"
)

// Required rejects nil, blank strings, false and empty collections.
func Required() controller.ValidateFunc {
	return func(value any, _ map[string]any) controller.Outcome {
		if isEmpty(value) {
			return controller.Message{Content: "required"}
		}
		return nil
	}
}

// MinLength rejects strings shorter than n characters.
func MinLength(n int) controller.ValidateFunc {
	return stringCheck(func(s string) string {
		if utf8.RuneCountInString(s) < n {
			return fmt.Sprintf("must be at least %d characters", n)
		}
		return ""
	})
}

// MaxLength rejects strings longer than n characters.
func MaxLength(n int) controller.ValidateFunc {
	return stringCheck(func(s string) string {
		if utf8.RuneCountInString(s) > n {
			return fmt.Sprintf("must be at most %d characters", n)
		}
		return ""
	})
}

// Pattern rejects strings the expression does not match.
func Pattern(expr string) (controller.ValidateFunc, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("validators: pattern %q: %w", expr, err)
	}
	return stringCheck(func(s string) string {
		if !re.MatchString(s) {
			return "invalid format"
		}
		return ""
	}), nil
}

// MustPattern is Pattern for expressions known to compile.
func MustPattern(expr string) controller.ValidateFunc {
	fn, err := Pattern(expr)
	if err != nil {
		panic(err)
	}
	return fn
}

// Email rejects values that are not a bare address with a dotted domain.
func Email() controller.ValidateFunc {
	return stringCheck(func(s string) string {
		addr, err := mail.ParseAddress(s)
		if err != nil || addr.Address != strings.TrimSpace(s) || addr.Name != "" {
			return "invalid email"
		}
		domain := addr.Address[strings.LastIndexByte(addr.Address, '@')+1:]
		if !strings.Contains(domain, ".") || strings.HasSuffix(domain, ".") {
			return "invalid email"
		}
		return ""
	})
}

// OneOf rejects values not in allowed. Numbers compare by value regardless of
// their Go type, so YAML ints match JSON floats.
func OneOf(allowed ...any) controller.ValidateFunc {
	return func(value any, _ map[string]any) controller.Outcome {
		if isEmpty(value) {
			return nil
		}
		for _, candidate := range allowed {
			if equal(value, candidate) {
				return nil
			}
		}
		return controller.Message{Content: "must be one of " + list(allowed)}
	}
}

// Equals rejects values that differ from the current value of another field,
// for confirmation inputs.
func Equals(otherKey string) controller.ValidateFunc {
	return func(value any, fields map[string]any) controller.Outcome {
		if !equal(value, fields[otherKey]) {
			return controller.Message{Content: fmt.Sprintf("must match %s", otherKey)}
		}
		return nil
	}
}

// Chain runs fns in order and returns the first outcome that is not valid. A
// Pending outcome ends the chain.
func Chain(fns ...controller.ValidateFunc) controller.ValidateFunc {
	return func(value any, fields map[string]any) controller.Outcome {
		for _, fn := range fns {
			if fn == nil {
				continue
			}
			out := fn(value, fields)
			if _, pending := out.(controller.Pending); pending {
				return out
			}
			if !controller.Resolve(out).IsValid {
				return out
			}
		}
		return nil
	}
}

// WithMessage replaces the content of a failing outcome.
func WithMessage(fn controller.ValidateFunc, content any) controller.ValidateFunc {
	return func(value any, fields map[string]any) controller.Outcome {
		out := fn(value, fields)
		switch out.(type) {
		case nil, controller.Pending:
			return out
		}
		if controller.Resolve(out).IsValid {
			return out
		}
		return controller.Result{IsValid: false, Content: content}
	}
}

// CheckFunc is a blocking check run off the caller's goroutine by Async.
type CheckFunc func(ctx context.Context, value any, fields map[string]any) (controller.Result, error)

// Async wraps check into a Pending outcome showing placeholder until it
// resolves. The value and fields are captured when validation starts.
func Async(placeholder any, check CheckFunc) controller.ValidateFunc {
	return func(value any, fields map[string]any) controller.Outcome {
		return controller.Pending{
			Content: placeholder,
			Promise: func(ctx context.Context) (controller.Result, error) {
				return check(ctx, value, fields)
			},
		}
	}
}

func stringCheck(check func(string) string) controller.ValidateFunc {
	return func(value any, _ map[string]any) controller.Outcome {
		s := toString(value)
		if s == "" {
			return nil
		}
		if msg := check(s); msg != "" {
			return controller.Message{Content: msg}
		}
		return nil
	}
}

func isEmpty(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case bool:
		return !v
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() == 0
	case reflect.Pointer:
		return rv.IsNil()
	}
	return false
}

func toString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	}
	return fmt.Sprint(value)
}

func equal(a, b any) bool {
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			return fa == fb
		}
	}
	return reflect.DeepEqual(a, b)
}

func toFloat(v any) (float64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}

func list(values []any) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = toString(v)
	}
	return strings.Join(parts, ", ")
}
