package interview

import "errors"

var (
	// ErrStageTimeout is returned by a stage handler when its exchange
	// with the node did not complete within the per-stage timeout
	// (default 30s).
	ErrStageTimeout = errors.New("interview: stage timed out waiting on the node")

	// ErrNodeDead is returned by RunNode once a node's interview has
	// exhausted its retry budget and is marked dead, with no further
	// attempts until user intervention.
	ErrNodeDead = errors.New("interview: node is marked dead, awaiting user intervention")

	// ErrNotReadyToRetry is returned by RunNode when called before a
	// failed node's backoff has elapsed.
	ErrNotReadyToRetry = errors.New("interview: node is backed off, not yet due for retry")

	// ErrUnknownStage is returned when a stage has no registered
	// handler.
	ErrUnknownStage = errors.New("interview: no handler registered for stage")
)
