package cc

// SwitchType identifies the physical up/down semantics of a Multilevel
// Switch, reported by CmdMultilevelSwitchSupportedRpt. Property names
// are derived from this at runtime — it belongs in metadata, not the
// value type: the ValueDB key is always the raw tuple, and labels are
// metadata.
type SwitchType uint8

const (
	SwitchTypeUndefined  SwitchType = 0x00
	SwitchTypeUpDown     SwitchType = 0x03
	SwitchTypeOpenClose  SwitchType = 0x04
	SwitchTypeDimUpDown  SwitchType = 0x0F
)

// PropertyLabels returns the {increase, decrease} property labels for
// a SwitchType, for ValueDB metadata only — never part of the value
// key itself.
func (t SwitchType) PropertyLabels() (increase, decrease string) {
	switch t {
	case SwitchTypeOpenClose:
		return "open", "close"
	case SwitchTypeDimUpDown:
		return "dim up", "dim down"
	default:
		return "up", "down"
	}
}

// MultilevelSwitchSet is the typed payload for CmdMultilevelSwitchSet.
type MultilevelSwitchSet struct {
	TargetValue uint8 // 0-99, or 0xFF for "last non-zero value"
	Duration    uint8 // 0 = instant, 1-127 seconds, 128-254 = 1-127 minutes, 0xFF = factory default
}

// MultilevelSwitchReport is the typed payload for
// CmdMultilevelSwitchReport (version 4: current/target/duration).
type MultilevelSwitchReport struct {
	CurrentValue uint8
	TargetValue  uint8
	Duration     uint8
	HasTarget    bool // false for v1-3 reports, which carry only CurrentValue
}

// MultilevelSwitchSupportedReport is the typed payload for
// CmdMultilevelSwitchSupportedRpt.
type MultilevelSwitchSupportedReport struct {
	Primary   SwitchType
	Secondary SwitchType
}

// RegisterMultilevelSwitch registers the Multilevel Switch CC (0x26).
func RegisterMultilevelSwitch(r *Registry) {
	r.Register(CCIDMultilevelSwitch, CmdMultilevelSwitchSet, Definition{
		Version: 1,
		Serialize: func(v any) ([]byte, error) {
			s, ok := v.(*MultilevelSwitchSet)
			if err := validatePayload(ok); err != nil {
				return nil, err
			}
			return []byte{s.TargetValue}, nil
		},
		Parse: func(p []byte, ctx Context) (any, error) {
			if err := validatePayload(len(p) >= 1); err != nil {
				return nil, err
			}
			return &MultilevelSwitchSet{TargetValue: p[0]}, nil
		},
	})

	r.Register(CCIDMultilevelSwitch, CmdMultilevelSwitchSet, Definition{
		Version: 2,
		Serialize: func(v any) ([]byte, error) {
			s, ok := v.(*MultilevelSwitchSet)
			if err := validatePayload(ok); err != nil {
				return nil, err
			}
			return []byte{s.TargetValue, s.Duration}, nil
		},
		Parse: func(p []byte, ctx Context) (any, error) {
			if err := validatePayload(len(p) >= 1); err != nil {
				return nil, err
			}
			set := &MultilevelSwitchSet{TargetValue: p[0]}
			if len(p) >= 2 {
				set.Duration = p[1]
			}
			return set, nil
		},
	})

	r.Register(CCIDMultilevelSwitch, CmdMultilevelSwitchGet, Definition{
		Version:   1,
		Serialize: func(v any) ([]byte, error) { return nil, nil },
		Parse:     func(p []byte, ctx Context) (any, error) { return struct{}{}, nil },
		ExpectedResponse: func(sent any, received Raw) bool {
			return received.CCID == CCIDMultilevelSwitch && received.CommandID == CmdMultilevelSwitchReport
		},
	})

	r.Register(CCIDMultilevelSwitch, CmdMultilevelSwitchReport, Definition{
		Version: 1,
		Parse: func(p []byte, ctx Context) (any, error) {
			if err := validatePayload(len(p) >= 1); err != nil {
				return nil, err
			}
			return &MultilevelSwitchReport{CurrentValue: p[0]}, nil
		},
	})

	r.Register(CCIDMultilevelSwitch, CmdMultilevelSwitchReport, Definition{
		Version: 4,
		Parse: func(p []byte, ctx Context) (any, error) {
			if err := validatePayload(len(p) >= 3); err != nil {
				return nil, err
			}
			return &MultilevelSwitchReport{
				CurrentValue: p[0],
				TargetValue:  p[1],
				Duration:     p[2],
				HasTarget:    true,
			}, nil
		},
	})

	r.Register(CCIDMultilevelSwitch, CmdMultilevelSwitchSupportedGet, Definition{
		Version:   3,
		Serialize: func(v any) ([]byte, error) { return nil, nil },
		Parse:     func(p []byte, ctx Context) (any, error) { return struct{}{}, nil },
		ExpectedResponse: func(sent any, received Raw) bool {
			return received.CCID == CCIDMultilevelSwitch && received.CommandID == CmdMultilevelSwitchSupportedRpt
		},
	})

	r.Register(CCIDMultilevelSwitch, CmdMultilevelSwitchSupportedRpt, Definition{
		Version: 3,
		Parse: func(p []byte, ctx Context) (any, error) {
			if err := validatePayload(len(p) >= 2); err != nil {
				return nil, err
			}
			return &MultilevelSwitchSupportedReport{
				Primary:   SwitchType(p[0] & 0x1F),
				Secondary: SwitchType(p[1] & 0x1F),
			}, nil
		},
	})
}
