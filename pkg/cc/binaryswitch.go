package cc

// BinarySwitchSet is the typed payload for CmdBinarySwitchSet.
type BinarySwitchSet struct {
	TargetValue bool
}

// BinarySwitchReport is the typed payload for CmdBinarySwitchReport.
type BinarySwitchReport struct {
	CurrentValue bool
}

// RegisterBinarySwitch registers the Binary Switch CC (0x25), version 1
// (e.g. Set(nodeId=5, endpoint=0, targetValue=true) serializes to
// 0x25 0x01 0xFF).
func RegisterBinarySwitch(r *Registry) {
	r.Register(CCIDBinarySwitch, CmdBinarySwitchSet, Definition{
		Version: 1,
		Serialize: func(v any) ([]byte, error) {
			s, ok := v.(*BinarySwitchSet)
			if err := validatePayload(ok); err != nil {
				return nil, err
			}
			return []byte{boolToByte(s.TargetValue)}, nil
		},
		Parse: func(p []byte, ctx Context) (any, error) {
			if err := validatePayload(len(p) >= 1); err != nil {
				return nil, err
			}
			return &BinarySwitchSet{TargetValue: p[0] != 0x00}, nil
		},
	})

	r.Register(CCIDBinarySwitch, CmdBinarySwitchGet, Definition{
		Version:   1,
		Serialize: func(v any) ([]byte, error) { return nil, nil },
		Parse:     func(p []byte, ctx Context) (any, error) { return struct{}{}, nil },
		ExpectedResponse: func(sent any, received Raw) bool {
			return received.CCID == CCIDBinarySwitch && received.CommandID == CmdBinarySwitchReport
		},
	})

	r.Register(CCIDBinarySwitch, CmdBinarySwitchReport, Definition{
		Version: 1,
		Parse: func(p []byte, ctx Context) (any, error) {
			if err := validatePayload(len(p) >= 1); err != nil {
				return nil, err
			}
			return &BinarySwitchReport{CurrentValue: p[0] != 0x00}, nil
		},
		Serialize: func(v any) ([]byte, error) {
			r, ok := v.(*BinarySwitchReport)
			if err := validatePayload(ok); err != nil {
				return nil, err
			}
			return []byte{boolToByte(r.CurrentValue)}, nil
		},
	})
}

func boolToByte(b bool) byte {
	if b {
		return 0xFF
	}
	return 0x00
}
