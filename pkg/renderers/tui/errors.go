package tui

import "errors"

var (
	// ErrAborted signals the user aborted input (e.g., Ctrl+C).
	ErrAborted = errors.New("tui: aborted")
	// ErrInvalid is returned when the form still fails validation after the
	// configured number of correction rounds.
	ErrInvalid = errors.New("tui: submission invalid")
)
