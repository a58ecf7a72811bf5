// Package render presents controller state: validation content becomes plain
// text messages, invalid fields are collected into issues, and field values
// are encoded for output.
package render
