package rules

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

type node interface {
	eval(ctx Context) bool
}

type orNode struct{ left, right node }

func (n orNode) eval(ctx Context) bool { return n.left.eval(ctx) || n.right.eval(ctx) }

type andNode struct{ left, right node }

func (n andNode) eval(ctx Context) bool { return n.left.eval(ctx) && n.right.eval(ctx) }

type notNode struct{ inner node }

func (n notNode) eval(ctx Context) bool { return !n.inner.eval(ctx) }

type truthyNode struct{ ident string }

func (n truthyNode) eval(ctx Context) bool {
	v, _ := ctx.lookup(n.ident)
	return truthy(v)
}

// compareNode tests equality against a literal, coercing the field value to
// the literal's type.
type compareNode struct {
	ident string
	lit   any
}

func (n compareNode) eval(ctx Context) bool {
	v, _ := ctx.lookup(n.ident)
	switch want := n.lit.(type) {
	case nil:
		return isNil(v)
	case bool:
		return truthy(v) == want
	case float64:
		got, ok := number(v)
		return ok && got == want
	case string:
		return text(v) == want
	}
	return false
}

func (c Context) lookup(ident string) (any, bool) {
	if rest, ok := cutPrefixFold(ident, "extras."); ok {
		return lookupPath(c.Extras, rest)
	}
	return lookupPath(c.Values, ident)
}

func cutPrefixFold(s, prefix string) (string, bool) {
	if len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix) {
		return s[len(prefix):], true
	}
	return s, false
}

// lookupPath prefers an exact key match, then walks nested maps by dots.
func lookupPath(values map[string]any, path string) (any, bool) {
	if len(values) == 0 || path == "" {
		return nil, false
	}
	if v, ok := values[path]; ok {
		return v, true
	}
	var current any = values
	for _, part := range strings.Split(path, ".") {
		switch m := current.(type) {
		case map[string]any:
			next, ok := m[part]
			if !ok {
				return nil, false
			}
			current = next
		case map[string]string:
			next, ok := m[part]
			if !ok {
				return nil, false
			}
			current = next
		default:
			return nil, false
		}
	}
	return current, true
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		s := strings.TrimSpace(t)
		if b, err := strconv.ParseBool(s); err == nil {
			return b
		}
		return s != ""
	}
	if f, ok := number(v); ok {
		return f != 0
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() > 0
	case reflect.Pointer:
		return !rv.IsNil()
	}
	return true
}

func number(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int8:
		return float64(t), true
	case int16:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case uint:
		return float64(t), true
	case uint8:
		return float64(t), true
	case uint16:
		return float64(t), true
	case uint32:
		return float64(t), true
	case uint64:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	}
	return 0, false
}

func text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	}
	return fmt.Sprint(v)
}
