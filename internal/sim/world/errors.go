package world

import (
	"fmt"

	"gridbot.ai/internal/protocol"
)

// ActionError is a rejected world request. Code is one of the protocol error
// codes so it can travel over the wire unchanged.
type ActionError struct {
	Code string
	Op   string
	Msg  string
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("%s: %s (%s)", e.Op, e.Msg, e.Code)
}

func reject(code, op, format string, args ...any) *ActionError {
	return &ActionError{Code: code, Op: op, Msg: fmt.Sprintf(format, args...)}
}

func blocked(op, format string, args ...any) *ActionError {
	return reject(protocol.ErrBlocked, op, format, args...)
}

func invalidTarget(op, format string, args ...any) *ActionError {
	return reject(protocol.ErrInvalidTarget, op, format, args...)
}

func noResource(op, format string, args ...any) *ActionError {
	return reject(protocol.ErrNoResource, op, format, args...)
}

func badRequest(op, format string, args ...any) *ActionError {
	return reject(protocol.ErrBadRequest, op, format, args...)
}
