// Package openapi derives form configuration from the request body of an
// OpenAPI 3 operation: ordered field descriptors, initial values taken from
// schema defaults, and validators that check input against the property
// schemas.
package openapi
