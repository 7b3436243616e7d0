package driver

import "errors"

var (
	ErrStorageRequired = errors.New("driver: storage is required")
	ErrTransportRequired = errors.New("driver: transport is required")
	ErrAlreadyStarted  = errors.New("driver: already started")
	ErrNotStarted      = errors.New("driver: not started")
	ErrNodeNotFound    = errors.New("driver: node not found")
)
