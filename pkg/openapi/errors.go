package openapi

import "errors"

var (
	// ErrEmptyDocument is returned when a source yields no bytes.
	ErrEmptyDocument = errors.New("openapi: document is empty")
	// ErrOperationNotFound is returned when no operation carries the
	// requested operationId.
	ErrOperationNotFound = errors.New("openapi: operation not found")
	// ErrNoRequestSchema is returned for operations without an object
	// request-body schema.
	ErrNoRequestSchema = errors.New("openapi: operation has no object request body")
)
