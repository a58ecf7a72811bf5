package controller

import "errors"

var (
	// ErrInvalidConfig wraps construction errors.
	ErrInvalidConfig = errors.New("controller: invalid config")
	// ErrEmptyKey is raised when a subscription names no field.
	ErrEmptyKey = errors.New("controller: field key is empty")
	// ErrNilAction is raised when a subscription carries no callback.
	ErrNilAction = errors.New("controller: listener action is nil")
	// ErrEmptyOptionID is raised when a radio option is registered without an id.
	ErrEmptyOptionID = errors.New("controller: radio option id is empty")
)
