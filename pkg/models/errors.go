package models

import "errors"

var (
	// ErrInvalidTransition indicates a workflow status change the state machine forbids.
	ErrInvalidTransition = errors.New("invalid workflow status transition")

	// ErrTaskTerminal indicates an attempt to move a task run out of a terminal state.
	ErrTaskTerminal = errors.New("task run is in a terminal state")
)
