package render

import (
	"errors"
	"fmt"
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	messagePolicyOnce sync.Once
	messagePolicy     *bluemonday.Policy
)

// Message turns validation content into display text. Validators may return
// strings, errors, fmt.Stringers or arbitrary values; markup is stripped.
// Falsy content (nil, false, "") yields "".
func Message(content any) string {
	var raw string
	switch v := content.(type) {
	case nil:
		return ""
	case string:
		raw = v
	case bool:
		if !v {
			return ""
		}
		raw = "invalid"
	case error:
		raw = v.Error()
	case fmt.Stringer:
		raw = v.String()
	case []string:
		raw = strings.Join(MergeMessages(v), "; ")
	default:
		raw = fmt.Sprint(v)
	}
	return sanitize(raw)
}

func sanitize(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	cleaned := policy().Sanitize(trimmed)
	return strings.Join(strings.Fields(html.UnescapeString(cleaned)), " ")
}

func policy() *bluemonday.Policy {
	messagePolicyOnce.Do(func() {
		messagePolicy = bluemonday.StrictPolicy()
	})
	return messagePolicy
}

// MergeMessages concatenates message slices, trimming whitespace and dropping
// empties and duplicates while preserving order.
func MergeMessages(existing []string, extras ...string) []string {
	combined := make([]string, 0, len(existing)+len(extras))
	combined = append(combined, existing...)
	combined = append(combined, extras...)
	return normalizeMessages(combined)
}

func normalizeMessages(messages []string) []string {
	if len(messages) == 0 {
		return nil
	}
	out := make([]string, 0, len(messages))
	seen := make(map[string]struct{}, len(messages))
	for _, message := range messages {
		trimmed := strings.TrimSpace(message)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// ErrorMessages flattens err, unwrapping joined errors, into messages.
func ErrorMessages(err error) []string {
	if err == nil {
		return nil
	}
	var joined interface{ Unwrap() []error }
	if errors.As(err, &joined) {
		var out []string
		for _, inner := range joined.Unwrap() {
			out = append(out, ErrorMessages(inner)...)
		}
		return normalizeMessages(out)
	}
	return normalizeMessages([]string{Message(err)})
}
