package cc

import (
	"encoding/binary"
	"sync"
	"time"
)

// reassemblyTimeout bounds how long a Transport Service datagram may
// take to reassemble before the partial segments are discarded (spec
// §4.3 Transport Service).
const reassemblyTimeout = 800 * time.Millisecond

type reassemblySession struct {
	sessionID uint8
	total     int
	received  int
	buf       []byte
	deadline  time.Time
}

// Reassembler tracks in-flight Transport Service datagrams, one per
// node (a node has at most one fragmented datagram outstanding at a
// time in practice). Segment bodies are laid out as:
//
//	First segment:      [lenHi, lenLo, sessionID, data...]
//	Subsequent segment:  [lenHi, lenLo, sessionID, offsetHi, offsetLo, data...]
type Reassembler struct {
	mu       sync.Mutex
	sessions map[uint8]*reassemblySession
	clock    func() time.Time
}

// NewReassembler creates an empty Reassembler.
func NewReassembler() *Reassembler {
	return &Reassembler{
		sessions: make(map[uint8]*reassemblySession),
		clock:    time.Now,
	}
}

// Feed processes one Transport Service segment for nodeID. It returns
// complete=true and the reassembled datagram once every byte has
// arrived.
func (r *Reassembler) Feed(nodeID uint8, cmd CommandID, body []byte) (complete bool, full []byte, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock()
	session := r.sessions[nodeID]
	if session != nil && now.After(session.deadline) {
		delete(r.sessions, nodeID)
		session = nil
	}

	switch cmd {
	case CmdTransportFirstSegment:
		if err := validatePayload(len(body) >= 3); err != nil {
			return false, nil, err
		}
		total := int(binary.BigEndian.Uint16(body[0:2]))
		data := body[3:]
		if err := validatePayload(total >= len(data)); err != nil {
			return false, nil, err
		}
		session = &reassemblySession{
			sessionID: body[2],
			total:     total,
			buf:       make([]byte, total),
			deadline:  now.Add(reassemblyTimeout),
		}
		copy(session.buf, data)
		session.received = len(data)
		r.sessions[nodeID] = session

	case CmdTransportSubsequentSegment:
		if err := validatePayload(len(body) >= 5); err != nil {
			return false, nil, err
		}
		if session == nil {
			return false, nil, ErrSegmentOutOfOrder
		}
		offset := int(binary.BigEndian.Uint16(body[3:5]))
		data := body[5:]
		if err := validatePayload(offset+len(data) <= session.total); err != nil {
			return false, nil, ErrSegmentOutOfOrder
		}
		copy(session.buf[offset:], data)
		session.received += len(data)

	default:
		return false, nil, validatePayload(false)
	}

	if session.received >= session.total {
		delete(r.sessions, nodeID)
		return true, session.buf, nil
	}
	return false, nil, nil
}

// Segment splits payload into Transport Service frame bodies (CCID +
// CommandID + body, ready to hand to the send queue) no larger than
// mtu bytes of encapsulated data each. sessionID correlates the
// segments of one datagram.
func Segment(payload []byte, mtu int, sessionID uint8) [][]byte {
	if mtu <= 5 {
		mtu = 6
	}
	firstChunk := mtu - 3
	if firstChunk > len(payload) {
		firstChunk = len(payload)
	}

	frames := [][]byte{
		buildSegmentFrame(CmdTransportFirstSegment, len(payload), sessionID, 0, payload[:firstChunk]),
	}

	offset := firstChunk
	chunk := mtu - 5
	if chunk < 1 {
		chunk = 1
	}
	for offset < len(payload) {
		end := offset + chunk
		if end > len(payload) {
			end = len(payload)
		}
		frames = append(frames, buildSegmentFrame(CmdTransportSubsequentSegment, len(payload), sessionID, offset, payload[offset:end]))
		offset = end
	}
	return frames
}

func buildSegmentFrame(cmd CommandID, total int, sessionID uint8, offset int, data []byte) []byte {
	var header []byte
	if cmd == CmdTransportFirstSegment {
		header = make([]byte, 3)
		binary.BigEndian.PutUint16(header[0:2], uint16(total))
		header[2] = sessionID
	} else {
		header = make([]byte, 5)
		binary.BigEndian.PutUint16(header[0:2], uint16(total))
		header[2] = sessionID
		binary.BigEndian.PutUint16(header[3:5], uint16(offset))
	}
	out := make([]byte, 0, 2+len(header)+len(data))
	out = append(out, byte(CCIDTransportService), byte(cmd))
	out = append(out, header...)
	out = append(out, data...)
	return out
}
