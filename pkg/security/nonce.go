package security

import (
	"crypto/rand"
	"sync"
	"time"
)

// s0NonceLifetime bounds how long an S0 NonceReport stays usable:
// nonces expire after 10s or on first use.
const s0NonceLifetime = 10 * time.Second

type s0Nonce struct {
	value    [8]byte
	issuedAt time.Time
	used     bool
}

// nonceStore owns the outstanding S0 nonces, one per node, per spec
// §5's note that "the nonce store is owned by the Security engine and
// never shared across nodes".
type nonceStore struct {
	mu    sync.Mutex
	nonce map[uint8]*s0Nonce
	clock func() time.Time
}

func newNonceStore() *nonceStore {
	return &nonceStore{nonce: make(map[uint8]*s0Nonce), clock: time.Now}
}

// Issue generates a fresh 8-byte nonce for nodeID, replacing any prior
// unused one (an unused nonce is abandoned once a new NonceGet
// arrives, matching single-nonce-in-flight-per-node behavior).
func (s *nonceStore) Issue(nodeID uint8) ([8]byte, error) {
	var n s0Nonce
	if _, err := rand.Read(n.value[:]); err != nil {
		return n.value, err
	}
	n.issuedAt = s.clock()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.nonce[nodeID] = &n
	return n.value, nil
}

// Consume checks that value is the still-valid receiver nonce bound to
// nodeID and removes it from the store, so a second use fails.
func (s *nonceStore) Consume(nodeID uint8, value [8]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.nonce[nodeID]
	if !ok || n.used || n.value != value {
		return ErrNoNonce
	}
	if s.clock().Sub(n.issuedAt) > s0NonceLifetime {
		delete(s.nonce, nodeID)
		return ErrNonceExpired
	}
	n.used = true
	delete(s.nonce, nodeID)
	return nil
}

// spanState is the singlecast nonce generator for one (local, peer)
// node pair. Each successful exchange advances the AES-CTR-driven
// nonce counter.
type spanState struct {
	key     []byte
	counter uint64
	synced  bool
}

// mpanState is the multicast equivalent of spanState, keyed by group
// ID rather than peer node.
type mpanState struct {
	key     []byte
	counter uint64
}

// spanTable owns every node's SPAN/MPAN state for an S2Engine.
type spanTable struct {
	mu    sync.Mutex
	span  map[uint8]*spanState
	mpan  map[uint8]*mpanState
}

func newSPANTable() *spanTable {
	return &spanTable{span: make(map[uint8]*spanState), mpan: make(map[uint8]*mpanState)}
}

func (t *spanTable) get(nodeID uint8, key []byte) *spanState {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.span[nodeID]
	if !ok {
		s = &spanState{key: key, synced: true}
		t.span[nodeID] = s
	}
	return s
}

func (t *spanTable) set(nodeID uint8, s *spanState) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.span[nodeID] = s
}

func (t *spanTable) resync(nodeID uint8) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if s, ok := t.span[nodeID]; ok {
		s.counter = 0
		s.synced = true
	}
}

func (t *spanTable) setMPAN(groupID uint8, m *mpanState) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.mpan[groupID] = m
}

func (t *spanTable) mpanFor(groupID uint8, key []byte) *mpanState {
	t.mu.Lock()
	defer t.mu.Unlock()
	m, ok := t.mpan[groupID]
	if !ok {
		m = &mpanState{key: key}
		t.mpan[groupID] = m
	}
	return m
}

// nextNonce derives the next 13-byte CCM nonce for a SPAN/MPAN state by
// encrypting the current counter under the state's key — AES-CTR under
// a shared entropy input.
func nextNonce(key []byte, counter uint64) ([]byte, error) {
	cipher, err := newCCM(key)
	if err != nil {
		return nil, err
	}
	block := cipher.keystreamBlock(zeroNonce(), counter)
	return block[:ccmNonceSize], nil
}

func zeroNonce() []byte {
	return make([]byte, ccmNonceSize)
}
