package queue

import (
	"container/heap"
	"errors"
	"sync"
	"time"

	"github.com/pion/logging"
)

// ErrTimeout is returned by a TransactionIO wait method when its
// deadline elapses without the expected event.
var ErrTimeout = errors.New("queue: timed out waiting for link-layer event")

// ErrNoAck is returned by WaitCallback when the node's radio never
// acknowledged the frame at the MAC layer (TransmitStatus NoAck), as
// opposed to an outright timeout or a higher-layer failure status.
// Run treats it specially: see handleNoAck.
var ErrNoAck = errors.New("queue: no ack from node")

// TransactionIO is the link-layer side of running one Transaction: it
// writes a frame and waits for the ACK/Response/Callback events the
// transaction declares it expects. pkg/driver implements this over
// pkg/frame + pkg/message.
type TransactionIO interface {
	Write(frame []byte) error
	WaitACK(timeout time.Duration) error
	WaitResponse(timeout time.Duration) error
	WaitCallback(timeout time.Duration) (success bool, err error)
}

// Timeouts configures a Manager's wait budgets: timeouts.ack,
// timeouts.response, timeouts.sendDataCallback.
type Timeouts struct {
	ACK         time.Duration
	Response    time.Duration
	Callback    time.Duration
	MaxAttempts int

	// IsListening reports whether nodeID is a listening (mains-powered)
	// node, used only to pick the NoAck outcome in handleNoAck. nil
	// treats every node as listening.
	IsListening func(nodeID uint8) bool
}

// DefaultTimeouts matches the controller's conservative defaults.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		ACK:         1600 * time.Millisecond,
		Response:    10 * time.Second,
		Callback:    65 * time.Second,
		MaxAttempts: 3,
	}
}

// Manager owns the priority send queue and per-node pending sets for
// non-listening/battery nodes, and drives each Transaction through the
// send FSM.
type Manager struct {
	mu       sync.Mutex
	ready    txHeap
	sleeping map[uint8][]*Transaction
	awake    map[uint8]bool

	backoff *BackoffCalculator
	log     logging.LeveledLogger
	closed  bool
}

// NewManager creates a Manager. loggerFactory may be nil, in which
// case logs are discarded.
func NewManager(loggerFactory logging.LoggerFactory) *Manager {
	var log logging.LeveledLogger
	if loggerFactory != nil {
		log = loggerFactory.NewLogger("queue")
	} else {
		log = logging.NewDefaultLoggerFactory().NewLogger("queue")
	}
	return &Manager{
		sleeping: make(map[uint8][]*Transaction),
		awake:    make(map[uint8]bool),
		backoff:  NewBackoffCalculator(nil),
		log:      log,
	}
}

// MarkAwake marks nodeID as reachable, flushing any transactions
// buffered while it was asleep into the ready queue.
func (m *Manager) MarkAwake(nodeID uint8) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.awake[nodeID] = true
	pending := m.sleeping[nodeID]
	delete(m.sleeping, nodeID)
	for _, tx := range pending {
		heap.Push(&m.ready, tx)
	}
}

// MarkAsleep marks nodeID as unreachable until its next wake-up;
// subsequent Enqueue calls for it buffer instead of becoming ready.
func (m *Manager) MarkAsleep(nodeID uint8) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.awake[nodeID] = false
}

// Enqueue adds tx to the ready queue, or to nodeID's pending set if
// the node is known asleep and tx isn't itself a wake-up transaction.
func (m *Manager) Enqueue(tx *Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrQueueClosed
	}
	if tx.Priority != PriorityWakeUp && m.awake[tx.NodeID] == false && m.isKnownAsleep(tx.NodeID) {
		m.sleeping[tx.NodeID] = append(m.sleeping[tx.NodeID], tx)
		return nil
	}
	heap.Push(&m.ready, tx)
	return nil
}

func (m *Manager) isKnownAsleep(nodeID uint8) bool {
	_, known := m.awake[nodeID]
	return known
}

// Pop removes and returns the highest-priority ready transaction.
func (m *Manager) Pop() (*Transaction, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ready.Len() == 0 {
		return nil, false
	}
	return heap.Pop(&m.ready).(*Transaction), true
}

// Len reports how many transactions are ready to send.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ready.Len()
}

// Close marks the manager closed; further Enqueue calls fail.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
}

// Run drives tx through the send FSM against io, retrying with
// jittered backoff on ACK timeout up to Timeouts.MaxAttempts, and
// fails the transaction (without a further send) on response/callback
// timeout since those indicate the node accepted the frame but never
// replied.
func (m *Manager) Run(tx *Transaction, io TransactionIO, cfg Timeouts) error {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}

	for _, frame := range tx.Frames {
		if err := m.runFrame(tx, frame, io, cfg); err != nil {
			tx.fail(err)
			return err
		}
	}

	if tx.ExpectsResponse {
		if err := tx.transition(StateWaitingForResponse); err != nil {
			tx.fail(err)
			return err
		}
		if err := io.WaitResponse(cfg.Response); err != nil {
			tx.fail(err)
			return err
		}
	}

	if tx.ExpectsCallback {
		if err := tx.transition(StateWaitingForCallback); err != nil {
			tx.fail(err)
			return err
		}
		success, err := io.WaitCallback(cfg.Callback)
		if errors.Is(err, ErrNoAck) {
			return m.handleNoAck(tx, io, cfg)
		}
		if err != nil {
			tx.fail(err)
			return err
		}
		if !success {
			tx.fail(ErrAttemptsExhausted)
			return ErrAttemptsExhausted
		}
	}

	tx.complete()
	return nil
}

// handleNoAck resolves a NoAck TransmitStatus. A listening node gets
// exactly one retry of the send using tx.RetryFrames (falling back to
// tx.Frames if the transaction carries no route-reset variant) in
// place of the original frames. A node for which cfg.IsListening
// reports false is parked in its per-node pending set, left
// non-terminal, to resume once MarkAwake flushes it back to the ready
// queue; with cfg.IsListening nil every node counts as listening.
func (m *Manager) handleNoAck(tx *Transaction, io TransactionIO, cfg Timeouts) error {
	if cfg.IsListening != nil && !cfg.IsListening(tx.NodeID) {
		m.mu.Lock()
		m.awake[tx.NodeID] = false
		m.sleeping[tx.NodeID] = append(m.sleeping[tx.NodeID], tx)
		m.mu.Unlock()
		return nil
	}

	retryFrames := tx.RetryFrames
	if retryFrames == nil {
		retryFrames = tx.Frames
	}
	for _, frame := range retryFrames {
		if err := m.runFrame(tx, frame, io, cfg); err != nil {
			tx.fail(err)
			return err
		}
	}

	if tx.ExpectsResponse {
		if err := tx.transition(StateWaitingForResponse); err != nil {
			tx.fail(err)
			return err
		}
		if err := io.WaitResponse(cfg.Response); err != nil {
			tx.fail(err)
			return err
		}
	}

	if err := tx.transition(StateWaitingForCallback); err != nil {
		tx.fail(err)
		return err
	}
	success, err := io.WaitCallback(cfg.Callback)
	if err != nil {
		tx.fail(err)
		return err
	}
	if !success {
		tx.fail(ErrAttemptsExhausted)
		return ErrAttemptsExhausted
	}
	tx.complete()
	return nil
}

func (m *Manager) runFrame(tx *Transaction, frame []byte, io TransactionIO, cfg Timeouts) error {
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if tx.State() == StateQueued {
			if err := tx.transition(StateSending); err != nil {
				return err
			}
		} else if err := tx.transition(StateSending); err != nil {
			return err
		}

		if err := io.Write(frame); err != nil {
			return err
		}
		if err := tx.transition(StateWaitingForACK); err != nil {
			return err
		}

		err := io.WaitACK(cfg.ACK)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrTimeout) {
			return err
		}
		if attempt == cfg.MaxAttempts {
			return ErrAttemptsExhausted
		}
		m.log.Debugf("node %d: ACK timeout, retry %d/%d", tx.NodeID, attempt, cfg.MaxAttempts)
		time.Sleep(m.backoff.Calculate(attempt))
	}
	return ErrAttemptsExhausted
}

