package prompt

import "errors"

var (
	// ErrAborted signals the user aborted input (e.g., Ctrl+C).
	ErrAborted = errors.New("prompt: aborted")
	// ErrTooManyAttempts is returned when a form is still invalid after the
	// allowed number of rounds.
	ErrTooManyAttempts = errors.New("prompt: too many invalid attempts")
)
