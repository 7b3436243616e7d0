package cc

import (
	"encoding/binary"
	"sync/atomic"
)

var supervisionSessionCounter uint32

func nextSupervisionSessionID() int {
	n := atomic.AddUint32(&supervisionSessionCounter, 1)
	return int(n & 0x3F)
}

func wrapMultiChannel(inner []byte, source, dest uint8) []byte {
	out := make([]byte, 0, 4+len(inner))
	out = append(out, byte(CCIDMultiChannel), byte(CmdMultiChannelCmdEncap), source, dest)
	return append(out, inner...)
}

func wrapSupervision(inner []byte, sessionID int, statusUpdates bool) []byte {
	sessionByte := byte(sessionID & 0x3F)
	if statusUpdates {
		sessionByte |= 0x80
	}
	out := make([]byte, 0, 4+len(inner))
	out = append(out, byte(CCIDSupervision), byte(CmdSupervisionGet), sessionByte, byte(len(inner)))
	return append(out, inner...)
}

func wrapCRC16(inner []byte) []byte {
	frame := make([]byte, 0, 2+len(inner))
	frame = append(frame, byte(CCIDCRC16Encap), byte(CmdCRC16Encap))
	frame = append(frame, inner...)
	crc := crc16CCITT(frame)
	out := make([]byte, len(frame)+2)
	copy(out, frame)
	binary.BigEndian.PutUint16(out[len(frame):], crc)
	return out
}

func securityWrapperCCID(class SecurityClass) CCID {
	if class == SecurityClassS0 {
		return CCIDSecurity
	}
	return CCIDSecurity2
}

func securityWrapperCmd(class SecurityClass) CommandID {
	if class == SecurityClassS0 {
		return CmdSecurityMessageEncap
	}
	return CmdSecurity2MessageEncap
}

// Encode serializes req through the registry and applies every
// requested encapsulation in the fixed order documented on
// EncodeRequest. It returns one or more frame bodies (CCID + CommandID
// + payload) ready for the send queue; more than one means Transport
// Service segmentation was necessary. The second return value is the
// Supervision session ID assigned when req.RequestSupervision is set,
// or -1 otherwise, so a caller can correlate the eventual Supervision
// Report back to this write.
func (c *Codec) Encode(req EncodeRequest, versionOf func(CCID) uint8) ([][]byte, int, error) {
	var negotiated uint8
	if versionOf != nil {
		negotiated = versionOf(req.CCID)
	}

	def, ok := c.registry.Lookup(req.CCID, req.CommandID, negotiated)
	if !ok {
		return nil, -1, ErrUnknownCC
	}
	if def.Serialize == nil {
		return nil, -1, ErrNoSerializer
	}
	payload, err := def.Serialize(req.Value)
	if err != nil {
		return nil, -1, err
	}

	inner := make([]byte, 0, 2+len(payload))
	inner = append(inner, byte(req.CCID), byte(req.CommandID))
	inner = append(inner, payload...)

	if req.RequestCRC16 {
		inner = wrapCRC16(inner)
	}

	if req.EndpointIndex != 0 {
		inner = wrapMultiChannel(inner, 0, req.EndpointIndex)
	}

	supervisionSessionID := -1
	if req.RequestSupervision {
		supervisionSessionID = nextSupervisionSessionID()
		inner = wrapSupervision(inner, supervisionSessionID, false)
	}

	mtu := MTUUnencrypted
	if req.SecurityClass != SecurityClassNone {
		if c.security == nil {
			return nil, -1, ErrNotSecure
		}
		secPayload, err := c.security.Encrypt(req.NodeID, req.SecurityClass, inner)
		if err != nil {
			return nil, -1, err
		}
		wrapped := make([]byte, 0, 2+len(secPayload))
		wrapped = append(wrapped, byte(securityWrapperCCID(req.SecurityClass)), byte(securityWrapperCmd(req.SecurityClass)))
		inner = append(wrapped, secPayload...)
		if req.SecurityClass == SecurityClassS0 {
			mtu = MTUSecureS0
		}
	}

	if len(inner) <= mtu {
		return [][]byte{inner}, supervisionSessionID, nil
	}
	if c.reassembler == nil {
		return nil, -1, ErrMalformedCC
	}
	tsSessionID := byte(nextSupervisionSessionID())
	return Segment(inner, mtu, tsSessionID), supervisionSessionID, nil
}

// Decode unwraps raw (a single DATA frame's Command Class bytes) down
// to its innermost application CC, peeling off any encapsulation
// layers it finds along the way. It returns (nil, nil) when raw is one
// segment of a still-incomplete Transport Service datagram.
func (c *Codec) Decode(nodeID uint8, raw []byte, versionOf func(CCID) uint8) (*Instance, error) {
	inst := &Instance{NodeID: nodeID}
	payload, err := c.unwrapTransportService(nodeID, raw)
	if err != nil || payload == nil {
		return nil, err
	}
	if err := c.decodeLayer(inst, payload, versionOf); err != nil {
		return nil, err
	}
	return inst, nil
}

func (c *Codec) unwrapTransportService(nodeID uint8, raw []byte) ([]byte, error) {
	if err := validatePayload(len(raw) >= 2); err != nil {
		return nil, err
	}
	if CCID(raw[0]) != CCIDTransportService {
		return raw, nil
	}
	if c.reassembler == nil {
		return nil, ErrMalformedCC
	}
	complete, full, err := c.reassembler.Feed(nodeID, CommandID(raw[1]), raw[2:])
	if err != nil {
		return nil, err
	}
	if !complete {
		return nil, nil
	}
	return full, nil
}

func (c *Codec) decodeLayer(inst *Instance, payload []byte, versionOf func(CCID) uint8) error {
	if err := validatePayload(len(payload) >= 2); err != nil {
		return err
	}
	ccid := CCID(payload[0])
	cmd := CommandID(payload[1])
	body := payload[2:]

	switch {
	case ccid == CCIDMultiChannel && cmd == CmdMultiChannelCmdEncap:
		if err := validatePayload(len(body) >= 2); err != nil {
			return err
		}
		source, dest := body[0], body[1]
		inst.Encapsulation = append(inst.Encapsulation, EncapLayer{CCID: ccid, SourceEndpoint: source, DestEndpoint: dest})
		inst.EndpointIndex = dest
		return c.decodeLayer(inst, body[2:], versionOf)

	case ccid == CCIDSupervision && cmd == CmdSupervisionGet:
		if err := validatePayload(len(body) >= 2); err != nil {
			return err
		}
		sessionID := int(body[0] & 0x3F)
		statusUpdates := body[0]&0x80 != 0
		ccLen := int(body[1])
		if err := validatePayload(len(body) >= 2+ccLen); err != nil {
			return err
		}
		inst.SupervisionRequested = true
		inst.SupervisionSessionID = sessionID
		inst.Encapsulation = append(inst.Encapsulation, EncapLayer{
			CCID:                 ccid,
			SupervisionSessionID: sessionID,
			StatusUpdates:        statusUpdates,
		})
		return c.decodeLayer(inst, body[2:2+ccLen], versionOf)

	case ccid == CCIDCRC16Encap && cmd == CmdCRC16Encap:
		if err := validatePayload(len(body) >= 2); err != nil {
			return err
		}
		ccLen := len(body) - 2
		inner := body[:ccLen]
		want := binary.BigEndian.Uint16(body[ccLen:])
		got := crc16CCITT(payload[:2+ccLen])
		if err := validatePayload(got == want); err != nil {
			return err
		}
		inst.Encapsulation = append(inst.Encapsulation, EncapLayer{CCID: ccid})
		return c.decodeLayer(inst, inner, versionOf)

	case (ccid == CCIDSecurity && cmd == CmdSecurityMessageEncap) ||
		(ccid == CCIDSecurity2 && cmd == CmdSecurity2MessageEncap):
		if c.security == nil {
			return ErrNotSecure
		}
		inner, class, err := c.security.Decrypt(inst.NodeID, ccid, body)
		if err != nil {
			return err
		}
		inst.Encapsulation = append(inst.Encapsulation, EncapLayer{CCID: ccid, SecurityClass: class})
		return c.decodeLayer(inst, inner, versionOf)

	default:
		var negotiated uint8
		if versionOf != nil {
			negotiated = versionOf(ccid)
		}
		def, ok := c.registry.Lookup(ccid, cmd, negotiated)
		if !ok {
			return ErrUnknownCC
		}
		if def.Parse == nil {
			return ErrUnknownCC
		}
		value, err := def.Parse(body, Context{NodeID: inst.NodeID, EndpointIndex: inst.EndpointIndex})
		if err != nil {
			return err
		}
		inst.Inner = Raw{CCID: ccid, CommandID: cmd, Payload: body}
		inst.Value = value
		return nil
	}
}
