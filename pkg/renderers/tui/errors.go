package tui

import "errors"

var (
	// ErrAborted signals the user aborted input (e.g., Ctrl+C).
	ErrAborted = errors.New("tui: aborted")
	// ErrInvalid is returned when the form is still invalid after the
	// configured number of correction rounds.
	ErrInvalid = errors.New("tui: form is invalid")
	// ErrNoChoices is returned when a select or radio field has no enabled,
	// visible option left to choose from.
	ErrNoChoices = errors.New("tui: no selectable option")
)
