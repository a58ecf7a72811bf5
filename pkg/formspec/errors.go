package formspec

import "errors"

var (
	// ErrInvalidDefinition wraps every structural problem found while
	// loading a definition.
	ErrInvalidDefinition = errors.New("formspec: invalid definition")
	// ErrDuplicateKey is returned by Bind when the controller already has a
	// conflicting registration.
	ErrDuplicateKey = errors.New("formspec: duplicate field key")
	// ErrUnknownField is returned by Fill for keys the definition does not
	// declare.
	ErrUnknownField = errors.New("formspec: unknown field")
	// ErrUnknownOption is returned by Fill when a radio value matches none
	// of its options.
	ErrUnknownOption = errors.New("formspec: unknown option")
)
