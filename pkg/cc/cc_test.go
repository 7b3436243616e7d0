package cc

import (
	"bytes"
	"testing"
)

func newTestCodec() (*Codec, *Registry) {
	r := NewRegistry()
	RegisterAll(r)
	return NewCodec(r, nil, NewReassembler()), r
}

func noVersions(CCID) uint8 { return 0 }

// A BinarySwitchCC::Get addressed to endpoint 2 wraps as Multi Channel
// CmdEncap(source=0, dest=2) around the plain Get.
func TestEncode_MultiChannelWrapsEndpoint(t *testing.T) {
	codec, _ := newTestCodec()

	frames, _, err := codec.Encode(EncodeRequest{
		NodeID:        5,
		EndpointIndex: 2,
		CCID:          CCIDBinarySwitch,
		CommandID:     CmdBinarySwitchGet,
	}, noVersions)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(frames) != 1 {
		t.Fatalf("expected a single frame, got %d", len(frames))
	}

	want := []byte{byte(CCIDMultiChannel), byte(CmdMultiChannelCmdEncap), 0x00, 0x02, byte(CCIDBinarySwitch), byte(CmdBinarySwitchGet)}
	if !bytes.Equal(frames[0], want) {
		t.Fatalf("got % X, want % X", frames[0], want)
	}
}

func TestDecode_MultiChannelUnwrapsEndpoint(t *testing.T) {
	codec, _ := newTestCodec()

	raw := []byte{byte(CCIDMultiChannel), byte(CmdMultiChannelCmdEncap), 0x00, 0x02, byte(CCIDBinarySwitch), byte(CmdBinarySwitchSet), 0xFF}
	inst, err := codec.Decode(5, raw, noVersions)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if inst.EndpointIndex != 2 {
		t.Fatalf("EndpointIndex = %d, want 2", inst.EndpointIndex)
	}
	if len(inst.Encapsulation) != 1 || inst.Encapsulation[0].CCID != CCIDMultiChannel {
		t.Fatalf("Encapsulation = %+v", inst.Encapsulation)
	}
	set, ok := inst.Value.(*BinarySwitchSet)
	if !ok || !set.TargetValue {
		t.Fatalf("Value = %+v", inst.Value)
	}
}

// A supervised Multilevel Switch Set reports its session back via a
// standalone Supervision Report.
func TestEncode_SupervisionWrapsSetAndReportRoundTrips(t *testing.T) {
	codec, r := newTestCodec()

	frames, _, err := codec.Encode(EncodeRequest{
		NodeID:             7,
		CCID:               CCIDMultilevelSwitch,
		CommandID:          CmdMultilevelSwitchSet,
		Value:              &MultilevelSwitchSet{TargetValue: 50},
		RequestSupervision: true,
	}, noVersions)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(frames) != 1 {
		t.Fatalf("expected a single frame, got %d", len(frames))
	}

	inst, err := codec.Decode(7, frames[0], noVersions)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !inst.SupervisionRequested {
		t.Fatalf("expected SupervisionRequested")
	}
	set, ok := inst.Value.(*MultilevelSwitchSet)
	if !ok || set.TargetValue != 50 {
		t.Fatalf("Value = %+v", inst.Value)
	}

	def, ok := r.Lookup(CCIDSupervision, CmdSupervisionReport, 0)
	if !ok {
		t.Fatal("supervision report not registered")
	}
	payload, err := def.Serialize(&SupervisionReport{SessionID: inst.SupervisionSessionID, Status: SupervisionStatusSuccess})
	if err != nil {
		t.Fatalf("Serialize report: %v", err)
	}
	rep, err := def.Parse(payload, Context{})
	if err != nil {
		t.Fatalf("Parse report: %v", err)
	}
	got := rep.(*SupervisionReport)
	if got.SessionID != inst.SupervisionSessionID || got.Status != SupervisionStatusSuccess {
		t.Fatalf("report round trip = %+v", got)
	}
}

func TestEncode_CRC16WrapsAndValidates(t *testing.T) {
	codec, _ := newTestCodec()

	frames, _, err := codec.Encode(EncodeRequest{
		NodeID:       9,
		CCID:         CCIDBinarySwitch,
		CommandID:    CmdBinarySwitchSet,
		Value:        &BinarySwitchSet{TargetValue: true},
		RequestCRC16: true,
	}, noVersions)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	inst, err := codec.Decode(9, frames[0], noVersions)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	set, ok := inst.Value.(*BinarySwitchSet)
	if !ok || !set.TargetValue {
		t.Fatalf("Value = %+v", inst.Value)
	}

	corrupt := append([]byte(nil), frames[0]...)
	corrupt[len(corrupt)-1] ^= 0xFF
	if _, err := codec.Decode(9, corrupt, noVersions); err != ErrMalformedCC {
		t.Fatalf("corrupted CRC16 frame: got err %v, want ErrMalformedCC", err)
	}
}

func TestDecode_UnknownCC(t *testing.T) {
	codec, _ := newTestCodec()
	_, err := codec.Decode(1, []byte{0xEF, 0x01}, noVersions)
	if err != ErrUnknownCC {
		t.Fatalf("got %v, want ErrUnknownCC", err)
	}
}
