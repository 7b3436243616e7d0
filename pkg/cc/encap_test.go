package cc

import (
	"bytes"
	"testing"
)

type fakeSecurity struct {
	class SecurityClass
}

func (f *fakeSecurity) Encrypt(nodeID uint8, class SecurityClass, payload []byte) ([]byte, error) {
	// Stand-in for AES-CCM/CBC: tag the payload with its length so
	// Decrypt can validate nothing was dropped.
	out := make([]byte, 0, len(payload)+1)
	out = append(out, byte(len(payload)))
	return append(out, payload...), nil
}

func (f *fakeSecurity) Decrypt(nodeID uint8, ccid CCID, payload []byte) ([]byte, SecurityClass, error) {
	if err := validatePayload(len(payload) >= 1 && int(payload[0]) == len(payload)-1); err != nil {
		return nil, SecurityClassNone, err
	}
	return payload[1:], f.class, nil
}

func TestEncode_SecurityWrapsAndDecodeUnwraps(t *testing.T) {
	sec := &fakeSecurity{class: SecurityClassS0}
	codec := NewCodec(func() *Registry { r := NewRegistry(); RegisterAll(r); return r }(), sec, NewReassembler())

	frames, _, err := codec.Encode(EncodeRequest{
		NodeID:        3,
		CCID:          CCIDBinarySwitch,
		CommandID:     CmdBinarySwitchSet,
		Value:         &BinarySwitchSet{TargetValue: true},
		SecurityClass: SecurityClassS0,
	}, noVersions)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(frames) != 1 {
		t.Fatalf("expected one frame, got %d", len(frames))
	}
	if CCID(frames[0][0]) != CCIDSecurity || CommandID(frames[0][1]) != CmdSecurityMessageEncap {
		t.Fatalf("outer frame not Security Message Encap: % X", frames[0])
	}

	inst, err := codec.Decode(3, frames[0], noVersions)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	set, ok := inst.Value.(*BinarySwitchSet)
	if !ok || !set.TargetValue {
		t.Fatalf("Value = %+v", inst.Value)
	}
	if len(inst.Encapsulation) != 1 || inst.Encapsulation[0].SecurityClass != SecurityClassS0 {
		t.Fatalf("Encapsulation = %+v", inst.Encapsulation)
	}
}

func TestEncode_NoSecurityProviderConfigured(t *testing.T) {
	r := NewRegistry()
	RegisterAll(r)
	codec := NewCodec(r, nil, NewReassembler())

	_, _, err := codec.Encode(EncodeRequest{
		NodeID:        3,
		CCID:          CCIDBinarySwitch,
		CommandID:     CmdBinarySwitchSet,
		Value:         &BinarySwitchSet{TargetValue: true},
		SecurityClass: SecurityClassS2Unauthenticated,
	}, noVersions)
	if err != ErrNotSecure {
		t.Fatalf("got %v, want ErrNotSecure", err)
	}
}

func TestSegmentReassemble_RoundTrip(t *testing.T) {
	payload := bytes.Repeat([]byte{0xAB}, 120)
	frames := Segment(payload, MTUUnencrypted, 0x11)
	if len(frames) < 2 {
		t.Fatalf("expected segmentation into multiple frames, got %d", len(frames))
	}

	reassembler := NewReassembler()
	var full []byte
	for i, frame := range frames {
		complete, data, err := reassembler.Feed(1, CommandID(frame[1]), frame[2:])
		if err != nil {
			t.Fatalf("Feed segment %d: %v", i, err)
		}
		if i < len(frames)-1 {
			if complete {
				t.Fatalf("segment %d unexpectedly completed reassembly", i)
			}
			continue
		}
		if !complete {
			t.Fatalf("final segment did not complete reassembly")
		}
		full = data
	}
	if !bytes.Equal(full, payload) {
		t.Fatalf("reassembled payload mismatch: got %d bytes, want %d", len(full), len(payload))
	}
}

func TestReassembler_OutOfOrderSubsequentSegment(t *testing.T) {
	r := NewReassembler()
	_, _, err := r.Feed(1, CmdTransportSubsequentSegment, []byte{0x00, 0x0A, 0x01, 0x00, 0x05, 0xAA})
	if err != ErrSegmentOutOfOrder {
		t.Fatalf("got %v, want ErrSegmentOutOfOrder", err)
	}
}

func TestEncode_TransportServiceSegmentsOversizedFrame(t *testing.T) {
	const fakeCCID CCID = 0xF0
	const fakeCmd CommandID = 0x01

	r := NewRegistry()
	r.Register(fakeCCID, fakeCmd, Definition{
		Version: 1,
		Serialize: func(v any) ([]byte, error) {
			return bytes.Repeat([]byte{0xCD}, 80), nil
		},
		Parse: func(p []byte, ctx Context) (any, error) { return append([]byte(nil), p...), nil },
	})
	codec := NewCodec(r, nil, NewReassembler())

	frames, _, err := codec.Encode(EncodeRequest{
		NodeID:    1,
		CCID:      fakeCCID,
		CommandID: fakeCmd,
	}, noVersions)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(frames) < 2 {
		t.Fatalf("oversized payload should segment, got %d frames", len(frames))
	}

	reassembler := NewReassembler()
	var full []byte
	for _, frame := range frames {
		complete, data, err := reassembler.Feed(1, CommandID(frame[1]), frame[2:])
		if err != nil {
			t.Fatalf("Feed: %v", err)
		}
		if complete {
			full = data
		}
	}
	inst, err := codec.Decode(1, full, noVersions)
	if err != nil {
		t.Fatalf("decode reassembled payload: %v", err)
	}
	got := inst.Value.([]byte)
	if len(got) != 80 {
		t.Fatalf("reassembled CC payload length = %d, want 80", len(got))
	}
}
