// Package message implements the typed host<->controller message
// layer: dispatch on function opcode to a structured payload, and
// back. The codec is pure — it performs no I/O — and is built around an
// extensible registry table so new functions can be added without
// touching the dispatch logic.
package message

import "github.com/gozwave/core/pkg/frame"

// Type mirrors frame.Type: a Message is either a Request or a Response.
type Type = frame.Type

const (
	Request  = frame.TypeRequest
	Response = frame.TypeResponse
)

// Function identifies a Serial API command by its one-byte opcode.
type Function uint8

// A representative subset of Z-Wave Serial API function IDs, enough to
// exercise the codec's registry, the send queue, and SendData-class
// transactions end to end. Implementers extend this table for the
// full command set; the registry is the extension point, not this
// list.
const (
	FuncGetControllerVersion     Function = 0x15
	FuncGetControllerCapabilities Function = 0x05
	FuncSerialAPIGetCapabilities Function = 0x07
	FuncGetSUCNodeID            Function = 0x56
	FuncMemoryGetID             Function = 0x20
	FuncGetNodeProtocolInfo     Function = 0x41
	FuncRequestNodeInfo         Function = 0x60
	FuncApplicationUpdate       Function = 0x49 // callback: NIF, routing changes
	FuncSendData                Function = 0x13
	FuncSendDataMulti           Function = 0x14
	FuncApplicationCommandHandler Function = 0x04 // unsolicited CC report
)

// String returns a human-readable function name for logging.
func (f Function) String() string {
	switch f {
	case FuncGetControllerVersion:
		return "GetControllerVersion"
	case FuncGetControllerCapabilities:
		return "GetControllerCapabilities"
	case FuncSerialAPIGetCapabilities:
		return "SerialAPIGetCapabilities"
	case FuncGetSUCNodeID:
		return "GetSUCNodeID"
	case FuncMemoryGetID:
		return "MemoryGetID"
	case FuncGetNodeProtocolInfo:
		return "GetNodeProtocolInfo"
	case FuncRequestNodeInfo:
		return "RequestNodeInfo"
	case FuncApplicationUpdate:
		return "ApplicationUpdate"
	case FuncSendData:
		return "SendData"
	case FuncSendDataMulti:
		return "SendDataMulti"
	case FuncApplicationCommandHandler:
		return "ApplicationCommandHandler"
	default:
		return "Unknown"
	}
}
