package security

import "github.com/gozwave/core/pkg/cc"

// Provider adapts S0Engine/S2Engine to cc.SecurityProvider, so the CC
// codec can encapsulate/decapsulate Security frames without knowing
// about AES, SPAN state, or nonce tables — key material never reaches
// the codec at all.
type Provider struct {
	s0 *S0Engine
	s2 *S2Engine

	// pendingSenderNonce/pendingReceiverNonce hold the most recent S0
	// nonce pair per node, populated by the driver after a NonceGet/
	// NonceReport exchange completes. A production driver would thread
	// these through explicitly; this package keeps the minimal state
	// needed to exercise S0 encode/decode against the codec.
	s0Nonces map[uint8][2][8]byte
}

// NewProvider builds a Provider backed by both engines. Either may be
// nil if the node set never uses that security class.
func NewProvider(s0 *S0Engine, s2 *S2Engine) *Provider {
	return &Provider{s0: s0, s2: s2, s0Nonces: make(map[uint8][2][8]byte)}
}

// SetS0Nonces records the sender/receiver nonce pair to use for the
// next S0 Encrypt/Decrypt call against nodeID.
func (p *Provider) SetS0Nonces(nodeID uint8, sender, receiver [8]byte) {
	p.s0Nonces[nodeID] = [2][8]byte{sender, receiver}
}

// Encrypt implements cc.SecurityProvider.
func (p *Provider) Encrypt(nodeID uint8, class cc.SecurityClass, payload []byte) ([]byte, error) {
	switch class {
	case cc.SecurityClassS0:
		if p.s0 == nil {
			return nil, ErrUnknownSecurityClass
		}
		pair, ok := p.s0Nonces[nodeID]
		if !ok {
			return nil, ErrNoNonce
		}
		ciphertext, mac, err := p.s0.Encrypt(pair[0], pair[1], 0, 0, nodeID, payload)
		if err != nil {
			return nil, err
		}
		out := make([]byte, 0, 8+len(ciphertext)+8)
		out = append(out, pair[0][:]...)
		out = append(out, ciphertext...)
		out = append(out, mac...)
		return out, nil

	default:
		if p.s2 == nil {
			return nil, ErrUnknownSecurityClass
		}
		return p.s2.Encrypt(nodeID, payload)
	}
}

// Decrypt implements cc.SecurityProvider.
func (p *Provider) Decrypt(nodeID uint8, ccid cc.CCID, payload []byte) ([]byte, cc.SecurityClass, error) {
	if ccid == cc.CCIDSecurity {
		if p.s0 == nil {
			return nil, cc.SecurityClassNone, ErrUnknownSecurityClass
		}
		if len(payload) < 8+8 {
			return nil, cc.SecurityClassNone, ErrCiphertextTooShort
		}
		var senderNonce [8]byte
		copy(senderNonce[:], payload[:8])
		ciphertext := payload[8 : len(payload)-8]
		mac := payload[len(payload)-8:]

		pair, ok := p.s0Nonces[nodeID]
		if !ok {
			return nil, cc.SecurityClassNone, ErrNoNonce
		}
		plaintext, err := p.s0.Decrypt(senderNonce, pair[1], 0, 0, nodeID, ciphertext, mac)
		if err != nil {
			return nil, cc.SecurityClassNone, err
		}
		return plaintext, cc.SecurityClassS0, nil
	}

	if p.s2 == nil {
		return nil, cc.SecurityClassNone, ErrUnknownSecurityClass
	}
	plaintext, err := p.s2.Decrypt(nodeID, payload)
	if err != nil {
		return nil, cc.SecurityClassNone, err
	}
	return plaintext, cc.SecurityClassS2Unauthenticated, nil
}
