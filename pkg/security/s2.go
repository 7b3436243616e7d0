package security

// maxSPANResyncAttempts bounds consecutive MAC failures before the
// transaction aborts.
const maxSPANResyncAttempts = 3

// S2Engine implements Security S2: per-node SPAN state for singlecast
// traffic and per-group MPAN state for multicast, both driving an
// AES-128-CCM payload cipher with an 8-byte MAC.
type S2Engine struct {
	networkKey []byte
	spans      *spanTable
	failures   map[uint8]int
}

// NewS2Engine derives nothing eagerly: SPAN state is created lazily
// per peer the first time it's needed, since the entropy input is
// negotiated per pair at inclusion time.
func NewS2Engine(networkKey []byte) *S2Engine {
	return &S2Engine{networkKey: networkKey, spans: newSPANTable(), failures: make(map[uint8]int)}
}

// Bind registers the shared entropy negotiated with nodeID at
// inclusion, deriving that pair's SPAN key.
func (e *S2Engine) Bind(nodeID uint8, entropy []byte) error {
	key, err := deriveSPANKey(e.networkKey, entropy)
	if err != nil {
		return err
	}
	e.spans.set(nodeID, &spanState{key: key, synced: true})
	return nil
}

// Encrypt protects payload for nodeID using the current SPAN state,
// returning the Security 2 Message Encapsulation payload (nonce is
// implicit on the wire via the SPAN counter both sides track).
func (e *S2Engine) Encrypt(nodeID uint8, payload []byte) ([]byte, error) {
	state := e.spans.get(nodeID, nil)
	if state.key == nil {
		return nil, ErrUnknownSecurityClass
	}
	nonce, err := nextNonce(state.key, state.counter)
	if err != nil {
		return nil, err
	}
	cipher, err := newCCM(state.key)
	if err != nil {
		return nil, err
	}
	ct, err := cipher.Seal(nonce, payload, nil)
	if err != nil {
		return nil, err
	}
	state.counter++
	return ct, nil
}

// Decrypt unwraps a Security 2 Message Encapsulation payload. On MAC
// failure it advances a resync counter; three consecutive failures
// return ErrResyncExhausted so the caller can fail the transaction
// instead of resyncing forever.
func (e *S2Engine) Decrypt(nodeID uint8, ciphertext []byte) ([]byte, error) {
	state := e.spans.get(nodeID, nil)
	if state.key == nil {
		return nil, ErrUnknownSecurityClass
	}

	nonce, err := nextNonce(state.key, state.counter)
	if err != nil {
		return nil, err
	}
	cipher, err := newCCM(state.key)
	if err != nil {
		return nil, err
	}
	plaintext, err := cipher.Open(nonce, ciphertext, nil)
	if err != nil {
		e.failures[nodeID]++
		if e.failures[nodeID] >= maxSPANResyncAttempts {
			e.failures[nodeID] = 0
			return nil, ErrResyncExhausted
		}
		e.spans.resync(nodeID)
		return nil, ErrMACFailed
	}
	e.failures[nodeID] = 0
	state.counter++
	return plaintext, nil
}

// MulticastEncrypt protects payload for groupID under that group's
// MPAN state, which RotateGroupKey replaces.
func (e *S2Engine) MulticastEncrypt(groupID uint8, groupKey, payload []byte) ([]byte, error) {
	state := e.spans.mpanFor(groupID, groupKey)
	nonce, err := nextNonce(state.key, state.counter)
	if err != nil {
		return nil, err
	}
	cipher, err := newCCM(state.key)
	if err != nil {
		return nil, err
	}
	ct, err := cipher.Seal(nonce, payload, nil)
	if err != nil {
		return nil, err
	}
	state.counter++
	return ct, nil
}

// RotateGroupKey replaces groupID's MPAN key, resetting its counter.
func (e *S2Engine) RotateGroupKey(groupID uint8, newKey []byte) {
	e.spans.setMPAN(groupID, &mpanState{key: newKey})
}
