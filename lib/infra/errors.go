package infra

import "errors"

// Precondition violations shared by the containers. There is no I/O
// below them, so nothing here is retryable.
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrInvalidState    = errors.New("invalid state")
)
