package cc

// SupervisionReport is the typed payload of a standalone Supervision
// Report, sent back on the session ID carried by the Supervision Get
// that wrapped the original command.
type SupervisionReport struct {
	SessionID     int
	MoreUpdates   bool
	Status        SupervisionStatus
	Duration      uint8
}

// RegisterSupervisionReport registers the Supervision CC's Report
// command so it round-trips through the ordinary registry path;
// Supervision Get is intercepted directly in Codec.decodeLayer/Encode
// since it wraps another CC rather than carrying its own value.
func RegisterSupervisionReport(r *Registry) {
	r.Register(CCIDSupervision, CmdSupervisionReport, Definition{
		Version: 1,
		Serialize: func(v any) ([]byte, error) {
			rep, ok := v.(*SupervisionReport)
			if err := validatePayload(ok); err != nil {
				return nil, err
			}
			sessionByte := byte(rep.SessionID & 0x3F)
			if rep.MoreUpdates {
				sessionByte |= 0x80
			}
			return []byte{sessionByte, byte(rep.Status), rep.Duration}, nil
		},
		Parse: func(p []byte, ctx Context) (any, error) {
			if err := validatePayload(len(p) >= 3); err != nil {
				return nil, err
			}
			return &SupervisionReport{
				SessionID:   int(p[0] & 0x3F),
				MoreUpdates: p[0]&0x80 != 0,
				Status:      SupervisionStatus(p[1]),
				Duration:    p[2],
			}, nil
		},
	})
}
