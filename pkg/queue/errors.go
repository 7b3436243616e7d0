package queue

import "errors"

var (
	ErrQueueClosed       = errors.New("queue: manager is closed")
	ErrInvalidTransition = errors.New("queue: invalid state transition")
	ErrAttemptsExhausted = errors.New("queue: transaction exceeded its attempt budget")
	ErrUnknownTransaction = errors.New("queue: unknown transaction id")
)
