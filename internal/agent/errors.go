package agent

import (
	"errors"

	"gridbot.ai/internal/agent/navigate"
)

var (
	// ErrSensing marks a scan the world could not fully serve.
	ErrSensing = errors.New("sensing failure")
	// ErrAction marks a move, act, deposit or relocation the world rejected.
	ErrAction = errors.New("action failure")
	// ErrNavigationUndetermined marks a task whose target is the agent's own cell.
	ErrNavigationUndetermined = navigate.ErrUndetermined
)
