package cc

// MultiChannelEndPointReport is the typed payload for
// CmdMultiChannelEndPointRpt, driving the Endpoints interview stage.
type MultiChannelEndPointReport struct {
	Identical    bool
	EndpointCount uint8
}

// RegisterMultiChannel registers the Multi Channel CC's endpoint
// discovery commands. CmdMultiChannelCmdEncap itself is handled
// directly by Codec.Encode/decodeLayer since it wraps another CC
// rather than carrying its own value.
func RegisterMultiChannel(r *Registry) {
	r.Register(CCIDMultiChannel, CmdMultiChannelEndPointGet, Definition{
		Version:   3,
		Serialize: func(v any) ([]byte, error) { return nil, nil },
		Parse:     func(p []byte, ctx Context) (any, error) { return struct{}{}, nil },
		ExpectedResponse: func(sent any, received Raw) bool {
			return received.CCID == CCIDMultiChannel && received.CommandID == CmdMultiChannelEndPointRpt
		},
	})

	r.Register(CCIDMultiChannel, CmdMultiChannelEndPointRpt, Definition{
		Version: 3,
		Parse: func(p []byte, ctx Context) (any, error) {
			if err := validatePayload(len(p) >= 2); err != nil {
				return nil, err
			}
			return &MultiChannelEndPointReport{
				Identical:     p[0]&0x40 != 0,
				EndpointCount: p[1] & 0x7F,
			}, nil
		},
	})
}
