package node

import "errors"

// Errors returned by node/ValueDB operations.
var (
	ErrEndpointNotFound = errors.New("node: endpoint not found")
	ErrEndpointExists   = errors.New("node: endpoint already exists")
	ErrNodeNotFound     = errors.New("node: node not found")
	ErrNodeExists       = errors.New("node: node already exists")
	ErrInvalidNodeID    = errors.New("node: node id out of range [1, 255]")
	ErrValueNotFound    = errors.New("node: value not found")
	ErrStageRegression  = errors.New("node: interview stage may only advance")
	ErrInvalidListeningCombo = errors.New("node: isListening and isFrequentListening are mutually exclusive")
)
