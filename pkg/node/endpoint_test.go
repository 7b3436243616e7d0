package node

import (
	"testing"

	"github.com/gozwave/core/pkg/cc"
)

func TestEndpoint_SupportedCCs_PreservesOrder(t *testing.T) {
	ep := NewEndpoint(0)
	ep.AddSupportedCC(CCSupport{CCID: cc.CCIDBinarySwitch, Version: 1})
	ep.AddSupportedCC(CCSupport{CCID: cc.CCIDVersion, Version: 2})
	ep.AddSupportedCC(CCSupport{CCID: cc.CCIDMultilevelSwitch, Version: 3})

	got := ep.SupportedCCs()
	want := []cc.CCID{cc.CCIDBinarySwitch, cc.CCIDVersion, cc.CCIDMultilevelSwitch}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i, w := range want {
		if got[i].CCID != w {
			t.Errorf("index %d: got %v, want %v", i, got[i].CCID, w)
		}
	}
}

func TestEndpoint_AddSupportedCC_UpdatesVersionWithoutDuplicating(t *testing.T) {
	ep := NewEndpoint(0)
	ep.AddSupportedCC(CCSupport{CCID: cc.CCIDBinarySwitch, Version: 1})
	ep.AddSupportedCC(CCSupport{CCID: cc.CCIDBinarySwitch, Version: 2})

	if len(ep.SupportedCCs()) != 1 {
		t.Fatalf("len = %d, want 1 (re-adding the same CCID must not duplicate)", len(ep.SupportedCCs()))
	}
	s, ok := ep.SupportsCC(cc.CCIDBinarySwitch)
	if !ok || s.Version != 2 {
		t.Fatalf("SupportsCC = %+v, ok=%v, want version 2", s, ok)
	}
}

func TestEndpoint_SupportsCC_Unknown(t *testing.T) {
	ep := NewEndpoint(0)
	if _, ok := ep.SupportsCC(cc.CCIDBinarySwitch); ok {
		t.Fatal("SupportsCC should report false for an unregistered CC")
	}
}

func TestEndpoint_ControlledCCs(t *testing.T) {
	ep := NewEndpoint(1)
	ep.AddControlledCC(CCSupport{CCID: cc.CCIDBinarySwitch, Version: 1})
	if _, ok := ep.ControlsCC(cc.CCIDBinarySwitch); !ok {
		t.Fatal("ControlsCC should report true for a registered controlled CC")
	}
	if len(ep.ControlledCCs()) != 1 {
		t.Fatalf("len(ControlledCCs()) = %d, want 1", len(ep.ControlledCCs()))
	}
}

func TestEndpoint_Index(t *testing.T) {
	if NewEndpoint(3).Index() != 3 {
		t.Fatal("Index() mismatch")
	}
}
