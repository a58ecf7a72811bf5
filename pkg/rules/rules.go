// Package rules compiles the small boolean expressions used by form
// definitions for disableIf and hideIf into controller predicates.
//
// Supported syntax:
//   - truthiness: `newsletter`, `!newsletter`
//   - equality: `plan == "pro"`, `age != 18`, `coupon == null`
//   - composition: `a && (b || !c)`
//
// Identifiers are field keys, resolved against the controller's field values
// with dot-path traversal into nested maps. The `extras.` prefix resolves
// against caller-supplied values such as roles or feature flags. A bare word
// on the right-hand side of a comparison is read as a string.
package rules

import (
	"fmt"
	"sort"
	"strings"

	"github.com/goliatone/go-formstate/pkg/controller"
)

// Context is the input a rule is evaluated against.
type Context struct {
	Values map[string]any
	Extras map[string]any
}

// Rule is a compiled expression. It is immutable and safe for concurrent use.
type Rule struct {
	src    string
	root   node
	idents []string
}

// Compile parses src.
func Compile(src string) (*Rule, error) {
	trimmed := strings.TrimSpace(src)
	if trimmed == "" {
		return nil, ErrEmptyRule
	}
	tokens, err := lex(trimmed)
	if err != nil {
		return nil, err
	}
	root, idents, err := parse(tokens)
	if err != nil {
		return nil, err
	}
	return &Rule{src: trimmed, root: root, idents: dedupe(idents)}, nil
}

// MustCompile is Compile for rules known to be valid. It panics on error.
func MustCompile(src string) *Rule {
	r, err := Compile(src)
	if err != nil {
		panic(err)
	}
	return r
}

// String returns the source expression.
func (r *Rule) String() string {
	return r.src
}

// Fields lists the identifiers the rule reads, excluding extras, sorted.
func (r *Rule) Fields() []string {
	out := make([]string, 0, len(r.idents))
	for _, ident := range r.idents {
		if _, ok := cutPrefixFold(ident, "extras."); ok {
			continue
		}
		out = append(out, ident)
	}
	return dedupe(out)
}

// Eval evaluates the rule.
func (r *Rule) Eval(ctx Context) bool {
	return r.root.eval(ctx)
}

// Predicate binds extras to the rule and adapts it to the controller.
func (r *Rule) Predicate(extras map[string]any) controller.Predicate {
	return func(fields map[string]any) bool {
		return r.Eval(Context{Values: fields, Extras: extras})
	}
}

// CompileAll compiles a key → expression map into controller predicates.
// Errors name the offending key.
func CompileAll(src map[string]string, extras map[string]any) (map[string]controller.Predicate, error) {
	if len(src) == 0 {
		return nil, nil
	}
	keys := make([]string, 0, len(src))
	for key := range src {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	out := make(map[string]controller.Predicate, len(src))
	for _, key := range keys {
		r, err := Compile(src[key])
		if err != nil {
			return nil, fmt.Errorf("rules: field %q: %w", key, err)
		}
		out[key] = r.Predicate(extras)
	}
	return out, nil
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
