package rules

import "errors"

var (
	// ErrSyntax reports a malformed rule expression.
	ErrSyntax = errors.New("rules: syntax error")
	// ErrEmptyRule is returned by Compile for blank input.
	ErrEmptyRule = errors.New("rules: empty rule")
)
