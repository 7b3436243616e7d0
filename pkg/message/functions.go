package message

import "encoding/binary"

// GetControllerVersionResponse is the Response payload for
// FuncGetControllerVersion.
type GetControllerVersionResponse struct {
	LibraryType uint8
	Version     string
}

// GetControllerCapabilitiesResponse is the Response payload for
// FuncGetControllerCapabilities.
type GetControllerCapabilitiesResponse struct {
	Capabilities uint8
}

// MemoryGetIDResponse is the Response payload for FuncMemoryGetID.
type MemoryGetIDResponse struct {
	HomeID uint32
	NodeID uint8
}

// GetNodeProtocolInfoRequest is the Request payload for
// FuncGetNodeProtocolInfo.
type GetNodeProtocolInfoRequest struct {
	NodeID uint8
}

// GetNodeProtocolInfoResponse is the Response payload for
// FuncGetNodeProtocolInfo.
type GetNodeProtocolInfoResponse struct {
	IsListening          bool
	IsFrequentListening  bool
	IsRouting            bool
	MaxBaudRate          uint32
	ProtocolVersion      uint8
	IsBeaming            bool
	DeviceClassBasic     uint8
	DeviceClassGeneric   uint8
	DeviceClassSpecific  uint8
}

// RequestNodeInfoRequest is the Request payload for FuncRequestNodeInfo.
type RequestNodeInfoRequest struct {
	NodeID uint8
}

// ApplicationUpdateRequest is the callback Request payload for
// FuncApplicationUpdate (NIF received, routing changed, etc).
type ApplicationUpdateRequest struct {
	Status        uint8
	NodeID        uint8
	SupportedCCs  []uint8
	ControlledCCs []uint8
}

// ccMarkSupportControl is the NIF's support/control mark: Command
// Classes before it are supported, everything after it is controlled.
const ccMarkSupportControl = 0xEF

// splitCommandClasses divides a NIF's Command Class list on the
// support/control mark. A list with no mark is entirely supported.
func splitCommandClasses(raw []byte) (supported, controlled []uint8) {
	for i, b := range raw {
		if b == ccMarkSupportControl {
			return append([]uint8(nil), raw[:i]...), append([]uint8(nil), raw[i+1:]...)
		}
	}
	return append([]uint8(nil), raw...), nil
}

// SendDataRequest is the Request payload for FuncSendData: a
// controller-addressed transmit of a Command Class payload to NodeID.
type SendDataRequest struct {
	NodeID       uint8
	CCPayload    []byte
	TXOptions    uint8
}

// TransmitStatus is the terminal status reported by a SendData
// callback.
type TransmitStatus uint8

const (
	TransmitStatusOK      TransmitStatus = 0x00
	TransmitStatusNoAck   TransmitStatus = 0x01
	TransmitStatusFail    TransmitStatus = 0x02
	TransmitStatusNotIdle TransmitStatus = 0x03
	TransmitStatusNoRoute TransmitStatus = 0x04
	// TransmitStatusOther covers any value not named above, decoded for
	// forward compatibility and treated as Fail by the transaction FSM.
	TransmitStatusOther TransmitStatus = 0xFF
)

// ParseTransmitStatus maps a raw status byte to a TransmitStatus,
// falling back to TransmitStatusOther for unrecognized values.
func ParseTransmitStatus(b byte) TransmitStatus {
	switch b {
	case 0x00, 0x01, 0x02, 0x03, 0x04:
		return TransmitStatus(b)
	default:
		return TransmitStatusOther
	}
}

// SendDataCallback is the callback Request payload for FuncSendData.
type SendDataCallback struct {
	Status TransmitStatus
}

// ApplicationCommandHandlerRequest is the unsolicited Request payload
// for FuncApplicationCommandHandler: a Command Class report from a
// node, delivered outside of any transaction.
type ApplicationCommandHandlerRequest struct {
	NodeID    uint8
	CCPayload []byte
}

// RegisterDefaults populates r with entries for the functions in
// pkg/message/enums.go, except SerialAPIGetCapabilities, GetSUCNodeID
// and SendDataMulti, which get none.
func RegisterDefaults(r *Registry) {
	_ = r.Register(FuncGetControllerVersion, Entry{
		ParseResponse: func(p []byte) (any, error) {
			if len(p) < 2 {
				return nil, ErrPayloadTooShort
			}
			return &GetControllerVersionResponse{
				LibraryType: p[len(p)-1],
				Version:     string(p[:len(p)-1]),
			}, nil
		},
		SerializeRequest: func(v any) ([]byte, error) { return nil, nil },
	})

	_ = r.Register(FuncGetControllerCapabilities, Entry{
		ParseResponse: func(p []byte) (any, error) {
			if len(p) < 1 {
				return nil, ErrPayloadTooShort
			}
			return &GetControllerCapabilitiesResponse{Capabilities: p[0]}, nil
		},
		SerializeRequest: func(v any) ([]byte, error) { return nil, nil },
	})

	_ = r.Register(FuncMemoryGetID, Entry{
		ParseResponse: func(p []byte) (any, error) {
			if len(p) < 5 {
				return nil, ErrPayloadTooShort
			}
			return &MemoryGetIDResponse{
				HomeID: binary.BigEndian.Uint32(p[0:4]),
				NodeID: p[4],
			}, nil
		},
		SerializeRequest: func(v any) ([]byte, error) { return nil, nil },
	})

	_ = r.Register(FuncGetNodeProtocolInfo, Entry{
		SerializeRequest: func(v any) ([]byte, error) {
			req, ok := v.(*GetNodeProtocolInfoRequest)
			if !ok {
				return nil, ErrMalformedPayload
			}
			return []byte{req.NodeID}, nil
		},
		ParseResponse: func(p []byte) (any, error) {
			if len(p) < 6 {
				return nil, ErrPayloadTooShort
			}
			caps := p[0]
			return &GetNodeProtocolInfoResponse{
				IsListening:         caps&0x80 != 0,
				IsRouting:           caps&0x40 != 0,
				MaxBaudRate:         baudRateFromBits(caps),
				ProtocolVersion:     caps & 0x07,
				IsFrequentListening: p[1]&0x60 != 0,
				IsBeaming:           p[1]&0x10 != 0,
				DeviceClassBasic:    p[3],
				DeviceClassGeneric:  p[4],
				DeviceClassSpecific: p[5],
			}, nil
		},
	})

	_ = r.Register(FuncRequestNodeInfo, Entry{
		SerializeRequest: func(v any) ([]byte, error) {
			req, ok := v.(*RequestNodeInfoRequest)
			if !ok {
				return nil, ErrMalformedPayload
			}
			return []byte{req.NodeID}, nil
		},
	})

	_ = r.Register(FuncApplicationUpdate, Entry{
		HasCallback: true,
		ParseRequest: func(p []byte) (any, error) {
			if len(p) < 3 {
				return nil, ErrPayloadTooShort
			}
			nodeID := p[1]
			ccLen := int(p[2])
			if len(p) < 3+ccLen {
				return nil, ErrPayloadTooShort
			}
			supported, controlled := splitCommandClasses(p[3 : 3+ccLen])
			return &ApplicationUpdateRequest{
				Status:        p[0],
				NodeID:        nodeID,
				SupportedCCs:  supported,
				ControlledCCs: controlled,
			}, nil
		},
	})

	_ = r.Register(FuncSendData, Entry{
		HasCallback: true,
		SerializeRequest: func(v any) ([]byte, error) {
			req, ok := v.(*SendDataRequest)
			if !ok {
				return nil, ErrMalformedPayload
			}
			buf := make([]byte, 0, 3+len(req.CCPayload))
			buf = append(buf, req.NodeID, byte(len(req.CCPayload)))
			buf = append(buf, req.CCPayload...)
			buf = append(buf, req.TXOptions)
			return buf, nil
		},
		ParseResponse: func(p []byte) (any, error) {
			if len(p) < 1 {
				return nil, ErrPayloadTooShort
			}
			return struct{ Accepted bool }{Accepted: p[0] != 0}, nil
		},
		ParseRequest: func(p []byte) (any, error) {
			if len(p) < 1 {
				return nil, ErrPayloadTooShort
			}
			return &SendDataCallback{Status: ParseTransmitStatus(p[0])}, nil
		},
	})

	_ = r.Register(FuncApplicationCommandHandler, Entry{
		ParseRequest: func(p []byte) (any, error) {
			if len(p) < 2 {
				return nil, ErrPayloadTooShort
			}
			nodeID := p[0]
			ccLen := int(p[1])
			if len(p) < 2+ccLen {
				return nil, ErrPayloadTooShort
			}
			return &ApplicationCommandHandlerRequest{
				NodeID:    nodeID,
				CCPayload: append([]byte(nil), p[2:2+ccLen]...),
			}, nil
		},
	})
}

// baudRateFromBits decodes the legacy max-baud-rate bit in the
// capabilities byte (40 kbps if routing-capable, 9.6 kbps otherwise;
// newer controllers report baud rate via a separate function not
// modeled here).
func baudRateFromBits(caps byte) uint32 {
	if caps&0x40 != 0 {
		return 40000
	}
	return 9600
}
