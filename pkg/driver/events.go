package driver

import "github.com/gozwave/core/pkg/node"

// ValueEvent is the application-facing projection of a node.Change,
// carrying only the valueId and new/previous value.
type ValueEvent struct {
	ValueID  node.ValueID
	Kind     node.ChangeKind
	Value    any
	Previous any
}

func valueEventFrom(c node.Change) ValueEvent {
	return ValueEvent{
		ValueID:  c.ValueID,
		Kind:     c.Kind,
		Value:    c.Value,
		Previous: c.Previous,
	}
}
