package render

import (
	"fmt"
	"sort"
	"strings"
)

// Nest expands dotted field keys into nested maps so `address.city` is
// encoded as {"address": {"city": ...}}. A key that is both a leaf and a
// prefix of another key is an error.
func Nest(values map[string]any) (map[string]any, error) {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	out := make(map[string]any, len(values))
	for _, key := range keys {
		if err := setPath(out, key, values[key]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func setPath(root map[string]any, path string, value any) error {
	segments := strings.Split(path, ".")
	current := root
	for i, segment := range segments {
		if segment == "" {
			return fmt.Errorf("render: empty segment in key %q", path)
		}
		if i == len(segments)-1 {
			if _, exists := current[segment]; exists {
				return fmt.Errorf("render: key %q collides with a nested key", path)
			}
			current[segment] = value
			return nil
		}
		next, exists := current[segment]
		if !exists {
			child := make(map[string]any)
			current[segment] = child
			current = child
			continue
		}
		child, ok := next.(map[string]any)
		if !ok {
			return fmt.Errorf("render: key %q collides with leaf %q", path, strings.Join(segments[:i+1], "."))
		}
		current = child
	}
	return nil
}
