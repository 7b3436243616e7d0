package cc

// Raw is the wire-level representation of a single (possibly
// encapsulated) Command Class frame, before the registry has decoded
// its command-specific payload.
type Raw struct {
	CCID      CCID
	CommandID CommandID
	Payload   []byte
}

// EncapLayer records one encapsulation CC that wrapped the innermost
// application CC, outermost-first: a decoded encapsulated CC exposes
// its innermost CC plus the ordered encapsulation stack.
type EncapLayer struct {
	CCID CCID

	// MultiChannel
	SourceEndpoint uint8
	DestEndpoint   uint8

	// Supervision
	SupervisionSessionID int
	StatusUpdates        bool

	// Security
	SecurityClass SecurityClass
}

// SecurityClass identifies which Z-Wave security class (if any)
// protected a decoded frame.
type SecurityClass uint8

const (
	SecurityClassNone SecurityClass = iota
	SecurityClassS0
	SecurityClassS2Unauthenticated
	SecurityClassS2Authenticated
	SecurityClassS2AccessControl
)

// Instance is a fully decoded Command Class frame: the innermost
// application CC plus the stack of encapsulations it travelled through.
type Instance struct {
	NodeID        uint8
	EndpointIndex uint8

	Inner         Raw
	Value         any // decoded via the registry's Parse hook, if registered
	Encapsulation []EncapLayer

	// SupervisionRequested/SupervisionSessionID let the queue/driver
	// reply with a SupervisionReport on the matching session.
	SupervisionRequested bool
	SupervisionSessionID int
}

// Context is passed to a registry Parse hook so CC-specific decoding
// can depend on the addressed node/endpoint (e.g. dynamic property
// naming driven by a previously-learned SwitchType).
type Context struct {
	NodeID        uint8
	EndpointIndex uint8
}

// EncodeRequest describes an application CC to encode, plus which
// encapsulations to apply. Encode applies them innermost-to-outermost
// in this fixed resolution order:
//
//	application CC -> CRC16 (if requested)
//	               -> Multi Channel (if EndpointIndex != 0)
//	               -> Supervision (if requested and supported)
//	               -> Security S2/S0 (if node is secure)
//	               -> Transport Service (only if the serialized size
//	                  exceeds the single-frame MTU)
type EncodeRequest struct {
	NodeID        uint8
	EndpointIndex uint8

	CCID      CCID
	CommandID CommandID
	Value     any // passed to the registry Serialize hook

	RequestCRC16     bool
	RequestSupervision bool
	SecurityClass    SecurityClass // SecurityClassNone if unsecured
}

// Codec decodes/encodes Instances against a Registry, with an
// optional SecurityProvider for Security S0/S2 encapsulation and an
// optional Reassembler for Transport Service segmentation.
type Codec struct {
	registry    *Registry
	security    SecurityProvider
	reassembler *Reassembler
}

// NewCodec creates a Codec. security and reassembler may be nil if the
// caller never needs Security or Transport Service handling (e.g. unit
// tests of a single plaintext CC).
func NewCodec(registry *Registry, security SecurityProvider, reassembler *Reassembler) *Codec {
	return &Codec{registry: registry, security: security, reassembler: reassembler}
}

// SecurityProvider abstracts pkg/security so this package can
// encapsulate/decapsulate Security CCs without importing AES details
// directly, and without ever logging key material.
type SecurityProvider interface {
	// Encrypt wraps payload for nodeID under the given security class,
	// returning the Security Message Encapsulation CC's payload bytes.
	Encrypt(nodeID uint8, class SecurityClass, payload []byte) ([]byte, error)

	// Decrypt unwraps a Security Message Encapsulation CC's payload,
	// returning the inner CC bytes and which security class verified.
	Decrypt(nodeID uint8, ccid CCID, payload []byte) ([]byte, SecurityClass, error)
}
