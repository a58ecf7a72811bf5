package render

import (
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"
)

// Encoder serialises field values.
type Encoder interface {
	Name() string
	ContentType() string
	Encode(values map[string]any) ([]byte, error)
}

// Registry stores encoders by name.
type Registry struct {
	mu       sync.RWMutex
	encoders map[string]Encoder
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{encoders: make(map[string]Encoder)}
}

// DefaultRegistry holds the json, form and pretty encoders.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.MustRegister(JSONEncoder{})
	r.MustRegister(FormEncoder{})
	r.MustRegister(PrettyEncoder{})
	return r
}

// Register adds an encoder by its Name(). Duplicate names return an error.
func (r *Registry) Register(enc Encoder) error {
	if enc == nil {
		return fmt.Errorf("render: encoder is required")
	}
	name := enc.Name()
	if name == "" {
		return fmt.Errorf("render: encoder name is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.encoders[name]; exists {
		return fmt.Errorf("render: encoder %q already registered", name)
	}
	r.encoders[name] = enc
	return nil
}

// MustRegister panics on registration failure.
func (r *Registry) MustRegister(enc Encoder) {
	if err := r.Register(enc); err != nil {
		panic(err)
	}
}

// Get retrieves an encoder by name.
func (r *Registry) Get(name string) (Encoder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	enc, ok := r.encoders[name]
	if !ok {
		return nil, fmt.Errorf("render: encoder %q not found", name)
	}
	return enc, nil
}

// List returns the sorted encoder names.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.encoders))
	for name := range r.encoders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// JSONEncoder writes a JSON object.
type JSONEncoder struct{}

func (JSONEncoder) Name() string        { return "json" }
func (JSONEncoder) ContentType() string { return "application/json" }

func (JSONEncoder) Encode(values map[string]any) ([]byte, error) {
	return json.Marshal(values)
}

// FormEncoder writes application/x-www-form-urlencoded. Nested maps use
// dotted keys and slices repeat a `key[]` entry per item; nil values are
// omitted.
type FormEncoder struct{}

func (FormEncoder) Name() string        { return "form" }
func (FormEncoder) ContentType() string { return "application/x-www-form-urlencoded" }

func (FormEncoder) Encode(values map[string]any) ([]byte, error) {
	out := url.Values{}
	flatten("", values, out)
	return []byte(out.Encode()), nil
}

func flatten(prefix string, value any, out url.Values) {
	switch v := value.(type) {
	case nil:
	case map[string]any:
		for key, val := range v {
			flatten(join(prefix, key), val, out)
		}
	case []any:
		for _, val := range v {
			out.Add(prefix+"[]", fmt.Sprint(val))
		}
	case []string:
		for _, val := range v {
			out.Add(prefix+"[]", val)
		}
	default:
		out.Set(prefix, fmt.Sprint(v))
	}
}

// PrettyEncoder writes one sorted `key=value` line per leaf.
type PrettyEncoder struct{}

func (PrettyEncoder) Name() string        { return "pretty" }
func (PrettyEncoder) ContentType() string { return "text/plain" }

func (PrettyEncoder) Encode(values map[string]any) ([]byte, error) {
	var b strings.Builder
	writePretty(&b, "", values)
	return []byte(b.String()), nil
}

func writePretty(b *strings.Builder, prefix string, value any) {
	switch v := value.(type) {
	case map[string]any:
		keys := make([]string, 0, len(v))
		for key := range v {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			writePretty(b, join(prefix, key), v[key])
		}
	case []any:
		for i, val := range v {
			writePretty(b, fmt.Sprintf("%s[%d]", prefix, i), val)
		}
	case nil:
		if prefix != "" {
			fmt.Fprintf(b, "%s=\n", prefix)
		}
	default:
		if prefix != "" {
			fmt.Fprintf(b, "%s=%v\n", prefix, v)
		}
	}
}

func join(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}
