package cc

// VersionReport is the typed payload for CmdVersionReport.
type VersionReport struct {
	LibraryType     uint8
	ProtocolVersion uint8
	ProtocolSubVersion uint8
	FirmwareVersion uint8
	FirmwareSubVersion uint8
	HardwareVersion uint8
}

// VersionCCGet is the typed payload for CmdVersionCCGet — queries the
// implemented version of a single other CC, driving the interview
// driver's per-CC version-query step in the CommandClasses stage.
type VersionCCGet struct {
	RequestedCCID CCID
}

// VersionCCReport is the typed payload for CmdVersionCCReport.
type VersionCCReport struct {
	RequestedCCID CCID
	Version       uint8
}

// RegisterVersion registers the Version CC (0x86).
func RegisterVersion(r *Registry) {
	r.Register(CCIDVersion, CmdVersionGet, Definition{
		Version:   1,
		Serialize: func(v any) ([]byte, error) { return nil, nil },
		Parse:     func(p []byte, ctx Context) (any, error) { return struct{}{}, nil },
		ExpectedResponse: func(sent any, received Raw) bool {
			return received.CCID == CCIDVersion && received.CommandID == CmdVersionReport
		},
	})

	r.Register(CCIDVersion, CmdVersionReport, Definition{
		Version: 1,
		Parse: func(p []byte, ctx Context) (any, error) {
			if err := validatePayload(len(p) >= 5); err != nil {
				return nil, err
			}
			rep := &VersionReport{
				LibraryType:        p[0],
				ProtocolVersion:    p[1],
				ProtocolSubVersion: p[2],
				FirmwareVersion:    p[3],
				FirmwareSubVersion: p[4],
			}
			if len(p) >= 6 {
				rep.HardwareVersion = p[5]
			}
			return rep, nil
		},
	})

	r.Register(CCIDVersion, CmdVersionCCGet, Definition{
		Version: 2,
		Serialize: func(v any) ([]byte, error) {
			g, ok := v.(*VersionCCGet)
			if err := validatePayload(ok); err != nil {
				return nil, err
			}
			return []byte{byte(g.RequestedCCID)}, nil
		},
		Parse: func(p []byte, ctx Context) (any, error) {
			if err := validatePayload(len(p) >= 1); err != nil {
				return nil, err
			}
			return &VersionCCGet{RequestedCCID: CCID(p[0])}, nil
		},
		ExpectedResponse: func(sent any, received Raw) bool {
			return received.CCID == CCIDVersion && received.CommandID == CmdVersionCCReport
		},
	})

	r.Register(CCIDVersion, CmdVersionCCReport, Definition{
		Version: 2,
		Parse: func(p []byte, ctx Context) (any, error) {
			if err := validatePayload(len(p) >= 2); err != nil {
				return nil, err
			}
			return &VersionCCReport{RequestedCCID: CCID(p[0]), Version: p[1]}, nil
		},
	})
}

// RegisterAll registers every CC definition this package ships.
func RegisterAll(r *Registry) {
	RegisterBinarySwitch(r)
	RegisterMultilevelSwitch(r)
	RegisterVersion(r)
	RegisterSupervisionReport(r)
	RegisterMultiChannel(r)
}
