// Package node implements the Node model and ValueDB: Nodes own a set
// of Endpoints, each reporting supported/controlled Command Classes,
// and a per-node ValueDB of (valueId -> value, metadata) pairs
// consulted by application listeners.
package node

// InterviewStage is a totally ordered enumeration. It may only advance
// monotonically; a reset to an earlier stage is a deliberate
// re-interview operation.
type InterviewStage int

const (
	InterviewStageNone InterviewStage = iota
	InterviewStageProtocolInfo
	InterviewStageNodeInfo
	InterviewStageCommandClasses
	InterviewStageEndpoints
	InterviewStageStatic
	InterviewStageCache
	InterviewStageDynamic
	InterviewStageComplete
)

func (s InterviewStage) String() string {
	switch s {
	case InterviewStageNone:
		return "none"
	case InterviewStageProtocolInfo:
		return "protocol-info"
	case InterviewStageNodeInfo:
		return "node-info"
	case InterviewStageCommandClasses:
		return "command-classes"
	case InterviewStageEndpoints:
		return "endpoints"
	case InterviewStageStatic:
		return "static"
	case InterviewStageCache:
		return "cache"
	case InterviewStageDynamic:
		return "dynamic"
	case InterviewStageComplete:
		return "complete"
	default:
		return "unknown"
	}
}

// Before reports whether s is strictly earlier in the ordering than o.
func (s InterviewStage) Before(o InterviewStage) bool { return s < o }

// ValueType is the declared type of a Value's payload.
type ValueType int

const (
	ValueTypeBoolean ValueType = iota
	ValueTypeNumber
	ValueTypeString
	ValueTypeBuffer
	ValueTypeDuration
)

func (t ValueType) String() string {
	switch t {
	case ValueTypeBoolean:
		return "boolean"
	case ValueTypeNumber:
		return "number"
	case ValueTypeString:
		return "string"
	case ValueTypeBuffer:
		return "buffer"
	case ValueTypeDuration:
		return "duration"
	default:
		return "unknown"
	}
}

