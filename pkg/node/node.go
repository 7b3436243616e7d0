package node

import (
	"sync"

	"github.com/gozwave/core/pkg/cc"
)

// SecurityClass aliases cc.SecurityClass: a node's granted security
// class is the same enumeration the CC encapsulation layer uses to
// pick its wrapper.
type SecurityClass = cc.SecurityClass

const (
	SecurityClassNone              = cc.SecurityClassNone
	SecurityClassS0                = cc.SecurityClassS0
	SecurityClassS2Unauthenticated = cc.SecurityClassS2Unauthenticated
	SecurityClassS2Authenticated   = cc.SecurityClassS2Authenticated
	SecurityClassS2AccessControl   = cc.SecurityClassS2AccessControl
)

// DeviceClass is the coarse device classification reported in a
// node's protocol info (generic/specific device class pair).
type DeviceClass struct {
	Generic  uint8
	Specific uint8
}

// extendedNodeIDThreshold is the classic 8-bit controller's node ID
// ceiling. Newer controllers hand out IDs up to 255; a node above the
// threshold still works but may confuse firmware that assumes the
// older range, so New flags it rather than rejecting it.
const extendedNodeIDThreshold = 232

// Node is one Z-Wave device, identified by NodeID ∈ [1, 255].
// Mutation happens only from the driver's scheduler goroutine;
// readers may call the exported getters concurrently.
type Node struct {
	mu sync.RWMutex

	id                   uint8
	extendedID           bool
	deviceClass          DeviceClass
	isListening          bool
	isFrequentListening  bool
	isRouting            bool
	maxBaudRate          uint32
	isSecure             bool
	protocolVersion      uint8
	isBeaming            bool
	securityClass        SecurityClass
	interviewStage       InterviewStage

	endpoints map[uint8]*Endpoint
	order     []uint8

	stageListeners []StageListener
}

// StageListener is notified when a Node's InterviewStage changes.
type StageListener interface {
	OnInterviewStageChanged(nodeID uint8, from, to InterviewStage)
}

// New creates a Node with the given ID and a root endpoint (index 0).
// IDs above extendedNodeIDThreshold are accepted but marked
// ExtendedID, since some controller firmware assumes the classic
// [1, 232] range.
func New(id uint8) (*Node, error) {
	if id < 1 {
		return nil, ErrInvalidNodeID
	}
	n := &Node{
		id:         id,
		extendedID: id > extendedNodeIDThreshold,
		endpoints:  make(map[uint8]*Endpoint),
	}
	n.endpoints[0] = NewEndpoint(0)
	n.order = append(n.order, 0)
	return n, nil
}

func (n *Node) ID() uint8 { return n.id }

// ExtendedID reports whether this node's ID falls outside the classic
// [1, 232] range some controller firmware assumes. The node is fully
// usable either way; this is a capability warning, not an error.
func (n *Node) ExtendedID() bool { return n.extendedID }

// SetListening sets isListening/isFrequentListening together,
// rejecting combinations that violate the invariant that a listening
// node cannot also be frequent-listening.
func (n *Node) SetListening(listening, frequentListening bool) error {
	if listening && frequentListening {
		return ErrInvalidListeningCombo
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.isListening = listening
	n.isFrequentListening = frequentListening
	return nil
}

func (n *Node) IsListening() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.isListening
}

func (n *Node) IsFrequentListening() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.isFrequentListening
}

func (n *Node) SetRouting(v bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.isRouting = v
}

func (n *Node) IsRouting() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.isRouting
}

func (n *Node) SetBeaming(v bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.isBeaming = v
}

func (n *Node) IsBeaming() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.isBeaming
}

func (n *Node) SetMaxBaudRate(v uint32) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.maxBaudRate = v
}

func (n *Node) MaxBaudRate() uint32 {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.maxBaudRate
}

func (n *Node) SetProtocolVersion(v uint8) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.protocolVersion = v
}

func (n *Node) ProtocolVersion() uint8 {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.protocolVersion
}

func (n *Node) SetDeviceClass(dc DeviceClass) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.deviceClass = dc
}

func (n *Node) DeviceClass() DeviceClass {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.deviceClass
}

func (n *Node) SetSecurityClass(sc SecurityClass) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.securityClass = sc
	n.isSecure = sc != SecurityClassNone
}

func (n *Node) SecurityClass() SecurityClass {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.securityClass
}

func (n *Node) IsSecure() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.isSecure
}

// InterviewStage returns the node's current stage.
func (n *Node) InterviewStage() InterviewStage {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.interviewStage
}

// AdvanceInterviewStage moves the node to stage, rejecting any stage
// that is not strictly later than the current one.
func (n *Node) AdvanceInterviewStage(stage InterviewStage) error {
	n.mu.Lock()
	if !n.interviewStage.Before(stage) {
		n.mu.Unlock()
		return ErrStageRegression
	}
	from := n.interviewStage
	n.interviewStage = stage
	listeners := append([]StageListener(nil), n.stageListeners...)
	n.mu.Unlock()

	for _, l := range listeners {
		l.OnInterviewStageChanged(n.id, from, stage)
	}
	return nil
}

// ResetInterviewStage forces the stage back to an earlier point, the
// one deliberate exception to the otherwise monotonic advance.
func (n *Node) ResetInterviewStage(stage InterviewStage) {
	n.mu.Lock()
	from := n.interviewStage
	n.interviewStage = stage
	listeners := append([]StageListener(nil), n.stageListeners...)
	n.mu.Unlock()

	for _, l := range listeners {
		l.OnInterviewStageChanged(n.id, from, stage)
	}
}

// AddStageListener registers a listener for future interview stage
// transitions.
func (n *Node) AddStageListener(l StageListener) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.stageListeners = append(n.stageListeners, l)
}

// AddEndpoint registers ep. Returns ErrEndpointExists if its index is
// already taken.
func (n *Node) AddEndpoint(ep *Endpoint) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, exists := n.endpoints[ep.Index()]; exists {
		return ErrEndpointExists
	}
	n.endpoints[ep.Index()] = ep
	n.order = append(n.order, ep.Index())
	return nil
}

// Endpoint returns the endpoint at index, or nil if it doesn't exist.
func (n *Node) Endpoint(index uint8) *Endpoint {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.endpoints[index]
}

// Endpoints returns all endpoints in registration order (root first).
func (n *Node) Endpoints() []*Endpoint {
	n.mu.RLock()
	defer n.mu.RUnlock()
	result := make([]*Endpoint, 0, len(n.order))
	for _, idx := range n.order {
		result = append(result, n.endpoints[idx])
	}
	return result
}

// RootEndpoint is a convenience accessor for endpoint 0.
func (n *Node) RootEndpoint() *Endpoint { return n.Endpoint(0) }
