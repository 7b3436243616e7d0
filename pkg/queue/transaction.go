package queue

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Transaction is one outgoing unit of work: a node-addressed command,
// already serialized to frame bodies by the CC codec, tracked through
// the send FSM until it completes or fails.
type Transaction struct {
	ID       uuid.UUID
	NodeID   uint8
	Priority Priority
	Frames   [][]byte

	// RetryFrames, if set, replaces Frames for the single NoAck retry a
	// listening node gets (e.g. the same command re-encoded with a
	// route-reset TXOptions byte). Left nil when there's nothing
	// different to send on retry.
	RetryFrames [][]byte

	// ExpectsCallback is set when the underlying message (e.g.
	// SendData) carries a callback ID the controller will report a
	// TransmitStatus against.
	ExpectsCallback bool

	// ExpectsResponse is set when a Response frame (not just ACK) must
	// arrive before the transaction can advance to WaitingForCallback.
	ExpectsResponse bool

	mu        sync.Mutex
	state     State
	attempts  int
	createdAt time.Time
	done      chan struct{}
	err       error
}

// NewTransaction creates a Transaction in StateQueued.
func NewTransaction(nodeID uint8, priority Priority, frames [][]byte) *Transaction {
	return &Transaction{
		ID:        uuid.New(),
		NodeID:    nodeID,
		Priority:  priority,
		Frames:    frames,
		state:     StateQueued,
		createdAt: time.Now(),
		done:      make(chan struct{}),
	}
}

// State returns the transaction's current FSM state.
func (t *Transaction) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Attempts returns how many times this transaction has been sent.
func (t *Transaction) Attempts() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.attempts
}

// Done returns a channel closed once the transaction reaches a
// terminal state; Err then reports the terminal error (nil on success).
func (t *Transaction) Done() <-chan struct{} {
	return t.done
}

// Err returns the terminal error, valid only after Done() is closed.
func (t *Transaction) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// transition enforces the fixed FSM order and records attempts when
// (re)entering StateSending.
func (t *Transaction) transition(next State) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state.Terminal() {
		return ErrInvalidTransition
	}
	if !validTransition(t.state, next) {
		return ErrInvalidTransition
	}
	if next == StateSending {
		t.attempts++
	}
	t.state = next
	if next.Terminal() {
		close(t.done)
	}
	return nil
}

func (t *Transaction) fail(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state.Terminal() {
		return
	}
	t.state = StateFailed
	t.err = err
	close(t.done)
}

func (t *Transaction) complete() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state.Terminal() {
		return
	}
	t.state = StateCompleted
	close(t.done)
}

func validTransition(from, to State) bool {
	switch from {
	case StateQueued:
		return to == StateSending
	case StateSending:
		return to == StateWaitingForACK || to == StateFailed
	case StateWaitingForACK:
		return to == StateWaitingForResponse || to == StateWaitingForCallback ||
			to == StateCompleted || to == StateSending || to == StateFailed
	case StateWaitingForResponse:
		return to == StateWaitingForCallback || to == StateCompleted ||
			to == StateSending || to == StateFailed
	case StateWaitingForCallback:
		return to == StateCompleted || to == StateSending || to == StateFailed
	default:
		return false
	}
}
