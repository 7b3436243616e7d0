package node

import (
	"sync"

	"github.com/gozwave/core/pkg/cc"
)

// CCSupport records a single supported or controlled Command Class and
// the highest version the interview negotiated for it (queried via a
// Version CC Get, then followed by any CC-specific discovery).
type CCSupport struct {
	CCID    cc.CCID
	Version uint8
	Secure  bool
}

// Endpoint is one addressable unit within a Node (index 0 is the
// root). It tracks which Command Classes it supports and controls,
// populated by the interview driver's CommandClasses and Endpoints
// stages.
type Endpoint struct {
	mu         sync.RWMutex
	index      uint8
	supported  map[cc.CCID]CCSupport
	controlled map[cc.CCID]CCSupport
	order      []cc.CCID
}

// NewEndpoint creates an empty endpoint at the given index.
func NewEndpoint(index uint8) *Endpoint {
	return &Endpoint{
		index:      index,
		supported:  make(map[cc.CCID]CCSupport),
		controlled: make(map[cc.CCID]CCSupport),
	}
}

// Index returns the endpoint's index (0 is the root endpoint).
func (e *Endpoint) Index() uint8 { return e.index }

// AddSupportedCC records a Command Class this endpoint implements.
func (e *Endpoint) AddSupportedCC(s CCSupport) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.supported[s.CCID]; !exists {
		e.order = append(e.order, s.CCID)
	}
	e.supported[s.CCID] = s
}

// AddControlledCC records a Command Class this endpoint can send.
func (e *Endpoint) AddControlledCC(s CCSupport) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.controlled[s.CCID] = s
}

// SupportsCC reports whether id is among this endpoint's supported
// Command Classes, returning its negotiated version.
func (e *Endpoint) SupportsCC(id cc.CCID) (CCSupport, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	s, ok := e.supported[id]
	return s, ok
}

// ControlsCC reports whether id is among this endpoint's controlled
// Command Classes.
func (e *Endpoint) ControlsCC(id cc.CCID) (CCSupport, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	s, ok := e.controlled[id]
	return s, ok
}

// SupportedCCs returns the endpoint's supported Command Classes in the
// order they were first recorded.
func (e *Endpoint) SupportedCCs() []CCSupport {
	e.mu.RLock()
	defer e.mu.RUnlock()
	result := make([]CCSupport, 0, len(e.order))
	for _, id := range e.order {
		result = append(result, e.supported[id])
	}
	return result
}

// ControlledCCs returns the endpoint's controlled Command Classes.
func (e *Endpoint) ControlledCCs() []CCSupport {
	e.mu.RLock()
	defer e.mu.RUnlock()
	result := make([]CCSupport, 0, len(e.controlled))
	for _, s := range e.controlled {
		result = append(result, s)
	}
	return result
}
