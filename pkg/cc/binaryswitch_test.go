package cc

import (
	"bytes"
	"testing"
)

// Set(nodeId=5, endpoint=0, targetValue=true) serializes to
// 0x25 0x01 0xFF.
func TestBinarySwitchSet_Serialize(t *testing.T) {
	r := NewRegistry()
	RegisterBinarySwitch(r)

	def, ok := r.Lookup(CCIDBinarySwitch, CmdBinarySwitchSet, 0)
	if !ok {
		t.Fatal("BinarySwitchSet not registered")
	}
	payload, err := def.Serialize(&BinarySwitchSet{TargetValue: true})
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	frame := append([]byte{byte(CCIDBinarySwitch), byte(CmdBinarySwitchSet)}, payload...)
	if want := []byte{0x25, 0x01, 0xFF}; !bytes.Equal(frame, want) {
		t.Fatalf("got % X, want % X", frame, want)
	}
}

func TestBinarySwitchReport_ParseRoundTrip(t *testing.T) {
	r := NewRegistry()
	RegisterBinarySwitch(r)
	def, _ := r.Lookup(CCIDBinarySwitch, CmdBinarySwitchReport, 0)

	for _, on := range []bool{true, false} {
		payload, err := def.Serialize(&BinarySwitchReport{CurrentValue: on})
		if err != nil {
			t.Fatalf("Serialize(%v): %v", on, err)
		}
		v, err := def.Parse(payload, Context{})
		if err != nil {
			t.Fatalf("Parse(%v): %v", on, err)
		}
		if got := v.(*BinarySwitchReport).CurrentValue; got != on {
			t.Fatalf("CurrentValue = %v, want %v", got, on)
		}
	}
}

func TestBinarySwitchSet_ParseTooShort(t *testing.T) {
	r := NewRegistry()
	RegisterBinarySwitch(r)
	def, _ := r.Lookup(CCIDBinarySwitch, CmdBinarySwitchSet, 0)
	if _, err := def.Parse(nil, Context{}); err != ErrMalformedCC {
		t.Fatalf("got %v, want ErrMalformedCC", err)
	}
}
