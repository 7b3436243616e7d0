package cc

import "testing"

func TestMultilevelSwitchSet_VersionedSerialize(t *testing.T) {
	r := NewRegistry()
	RegisterMultilevelSwitch(r)

	v1, _ := r.Lookup(CCIDMultilevelSwitch, CmdMultilevelSwitchSet, 1)
	payload, err := v1.Serialize(&MultilevelSwitchSet{TargetValue: 50, Duration: 5})
	if err != nil {
		t.Fatalf("v1 Serialize: %v", err)
	}
	if len(payload) != 1 || payload[0] != 50 {
		t.Fatalf("v1 payload = % X, want [32] (duration dropped)", payload)
	}

	v2, _ := r.Lookup(CCIDMultilevelSwitch, CmdMultilevelSwitchSet, 2)
	payload, err = v2.Serialize(&MultilevelSwitchSet{TargetValue: 50, Duration: 5})
	if err != nil {
		t.Fatalf("v2 Serialize: %v", err)
	}
	if len(payload) != 2 || payload[1] != 5 {
		t.Fatalf("v2 payload = % X, want duration included", payload)
	}
}

func TestMultilevelSwitchReport_V1VsV4(t *testing.T) {
	r := NewRegistry()
	RegisterMultilevelSwitch(r)

	v1, _ := r.Lookup(CCIDMultilevelSwitch, CmdMultilevelSwitchReport, 1)
	rep, err := v1.Parse([]byte{42}, Context{})
	if err != nil {
		t.Fatalf("v1 Parse: %v", err)
	}
	if got := rep.(*MultilevelSwitchReport); got.HasTarget || got.CurrentValue != 42 {
		t.Fatalf("v1 report = %+v", got)
	}

	v4, _ := r.Lookup(CCIDMultilevelSwitch, CmdMultilevelSwitchReport, 4)
	rep, err = v4.Parse([]byte{42, 60, 3}, Context{})
	if err != nil {
		t.Fatalf("v4 Parse: %v", err)
	}
	got := rep.(*MultilevelSwitchReport)
	if !got.HasTarget || got.CurrentValue != 42 || got.TargetValue != 60 || got.Duration != 3 {
		t.Fatalf("v4 report = %+v", got)
	}
}

func TestSwitchType_PropertyLabels(t *testing.T) {
	cases := []struct {
		t                  SwitchType
		increase, decrease string
	}{
		{SwitchTypeUpDown, "up", "down"},
		{SwitchTypeOpenClose, "open", "close"},
		{SwitchTypeDimUpDown, "dim up", "dim down"},
	}
	for _, c := range cases {
		inc, dec := c.t.PropertyLabels()
		if inc != c.increase || dec != c.decrease {
			t.Errorf("%v: got (%q, %q), want (%q, %q)", c.t, inc, dec, c.increase, c.decrease)
		}
	}
}
