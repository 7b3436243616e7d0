package queue

import (
	"errors"
	"testing"
	"time"
)

// fakeIO is a scripted TransactionIO: each Wait* call consumes the next
// queued result for that kind of event.
type fakeIO struct {
	writes       [][]byte
	ackResults   []error
	responseErr  error
	callbackOK   bool
	callbackErr  error
	writeErr     error
	ackCallCount int

	// callbackResults, when set, scripts successive WaitCallback calls
	// (e.g. an initial NoAck followed by a retry's success) instead of
	// the single fixed callbackOK/callbackErr pair.
	callbackResults   []callbackScript
	callbackCallCount int
}

type callbackScript struct {
	ok  bool
	err error
}

func (f *fakeIO) Write(frame []byte) error {
	f.writes = append(f.writes, frame)
	return f.writeErr
}

func (f *fakeIO) WaitACK(timeout time.Duration) error {
	idx := f.ackCallCount
	f.ackCallCount++
	if idx < len(f.ackResults) {
		return f.ackResults[idx]
	}
	return nil
}

func (f *fakeIO) WaitResponse(timeout time.Duration) error {
	return f.responseErr
}

func (f *fakeIO) WaitCallback(timeout time.Duration) (bool, error) {
	if len(f.callbackResults) == 0 {
		return f.callbackOK, f.callbackErr
	}
	idx := f.callbackCallCount
	f.callbackCallCount++
	if idx >= len(f.callbackResults) {
		idx = len(f.callbackResults) - 1
	}
	r := f.callbackResults[idx]
	return r.ok, r.err
}

func fastTimeouts() Timeouts {
	return Timeouts{
		ACK:         time.Millisecond,
		Response:    time.Millisecond,
		Callback:    time.Millisecond,
		MaxAttempts: 3,
	}
}

func TestManager_EnqueuePop_PriorityOrder(t *testing.T) {
	m := NewManager(nil)
	low := NewTransaction(1, PriorityWakeUp, nil)
	high := NewTransaction(2, PriorityController, nil)
	if err := m.Enqueue(low); err != nil {
		t.Fatal(err)
	}
	if err := m.Enqueue(high); err != nil {
		t.Fatal(err)
	}
	if m.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", m.Len())
	}
	got, ok := m.Pop()
	if !ok || got != high {
		t.Fatalf("first pop = %v, want the controller-priority transaction", got)
	}
	got, ok = m.Pop()
	if !ok || got != low {
		t.Fatalf("second pop = %v, want the wake-up-priority transaction", got)
	}
	if _, ok := m.Pop(); ok {
		t.Fatal("Pop() on empty manager returned ok=true")
	}
}

func TestManager_EnqueueAfterClose(t *testing.T) {
	m := NewManager(nil)
	m.Close()
	tx := NewTransaction(1, PriorityNormal, nil)
	if err := m.Enqueue(tx); err != ErrQueueClosed {
		t.Fatalf("err = %v, want ErrQueueClosed", err)
	}
}

func TestManager_SleepingNodeBuffersTransactions(t *testing.T) {
	m := NewManager(nil)
	m.MarkAsleep(9)

	tx := NewTransaction(9, PriorityNormal, nil)
	if err := m.Enqueue(tx); err != nil {
		t.Fatal(err)
	}
	if m.Len() != 0 {
		t.Fatalf("Len() = %d, want 0 (transaction for sleeping node should be buffered)", m.Len())
	}

	m.MarkAwake(9)
	if m.Len() != 1 {
		t.Fatalf("Len() = %d, want 1 after MarkAwake flushes the buffer", m.Len())
	}
	got, ok := m.Pop()
	if !ok || got != tx {
		t.Fatal("flushed transaction does not match the buffered one")
	}
}

func TestManager_WakeUpPriorityBypassesSleepBuffer(t *testing.T) {
	m := NewManager(nil)
	m.MarkAsleep(9)

	tx := NewTransaction(9, PriorityWakeUp, nil)
	if err := m.Enqueue(tx); err != nil {
		t.Fatal(err)
	}
	if m.Len() != 1 {
		t.Fatalf("Len() = %d, want 1 (wake-up priority must not buffer)", m.Len())
	}
}

func TestManager_UnknownNodeDoesNotBuffer(t *testing.T) {
	m := NewManager(nil)
	tx := NewTransaction(42, PriorityNormal, nil)
	if err := m.Enqueue(tx); err != nil {
		t.Fatal(err)
	}
	if m.Len() != 1 {
		t.Fatalf("Len() = %d, want 1 (nodes are awake until marked asleep)", m.Len())
	}
}

func TestManager_Run_HappyPathNoResponseNoCallback(t *testing.T) {
	m := NewManager(nil)
	tx := NewTransaction(1, PriorityNormal, [][]byte{{0xAA, 0xBB}})
	io := &fakeIO{}

	if err := m.Run(tx, io, fastTimeouts()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if tx.State() != StateCompleted {
		t.Fatalf("state = %v, want completed", tx.State())
	}
	if len(io.writes) != 1 {
		t.Fatalf("writes = %d, want 1", len(io.writes))
	}
	if tx.Attempts() != 1 {
		t.Fatalf("attempts = %d, want 1", tx.Attempts())
	}
}

func TestManager_Run_ACKTimeoutRetriesThenSucceeds(t *testing.T) {
	m := NewManager(nil)
	tx := NewTransaction(1, PriorityNormal, [][]byte{{0x01}})
	io := &fakeIO{
		ackResults: []error{ErrTimeout, ErrTimeout, nil},
	}

	if err := m.Run(tx, io, fastTimeouts()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(io.writes) != 3 {
		t.Fatalf("writes = %d, want 3 (two retries before success)", len(io.writes))
	}
	if tx.Attempts() != 3 {
		t.Fatalf("attempts = %d, want 3", tx.Attempts())
	}
}

func TestManager_Run_ACKTimeoutExhaustsAttempts(t *testing.T) {
	m := NewManager(nil)
	tx := NewTransaction(1, PriorityNormal, [][]byte{{0x01}})
	io := &fakeIO{
		ackResults: []error{ErrTimeout, ErrTimeout, ErrTimeout},
	}

	err := m.Run(tx, io, fastTimeouts())
	if !errors.Is(err, ErrAttemptsExhausted) {
		t.Fatalf("Run() error = %v, want ErrAttemptsExhausted", err)
	}
	if tx.State() != StateFailed {
		t.Fatalf("state = %v, want failed", tx.State())
	}
	if tx.Err() != ErrAttemptsExhausted {
		t.Fatalf("tx.Err() = %v, want ErrAttemptsExhausted", tx.Err())
	}
}

func TestManager_Run_WriteErrorFailsImmediately(t *testing.T) {
	m := NewManager(nil)
	tx := NewTransaction(1, PriorityNormal, [][]byte{{0x01}})
	writeErr := errors.New("serial port closed")
	io := &fakeIO{writeErr: writeErr}

	err := m.Run(tx, io, fastTimeouts())
	if !errors.Is(err, writeErr) {
		t.Fatalf("Run() error = %v, want %v", err, writeErr)
	}
	if tx.State() != StateFailed {
		t.Fatalf("state = %v, want failed", tx.State())
	}
}

func TestManager_Run_WaitsForResponseAndCallback(t *testing.T) {
	m := NewManager(nil)
	tx := NewTransaction(1, PriorityNormal, [][]byte{{0x01}})
	tx.ExpectsResponse = true
	tx.ExpectsCallback = true
	io := &fakeIO{callbackOK: true}

	if err := m.Run(tx, io, fastTimeouts()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if tx.State() != StateCompleted {
		t.Fatalf("state = %v, want completed", tx.State())
	}
}

func TestManager_Run_ResponseTimeoutFails(t *testing.T) {
	m := NewManager(nil)
	tx := NewTransaction(1, PriorityNormal, [][]byte{{0x01}})
	tx.ExpectsResponse = true
	io := &fakeIO{responseErr: ErrTimeout}

	err := m.Run(tx, io, fastTimeouts())
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("Run() error = %v, want ErrTimeout", err)
	}
	if tx.State() != StateFailed {
		t.Fatalf("state = %v, want failed", tx.State())
	}
}

func TestManager_Run_CallbackReportsFailureTransmitStatus(t *testing.T) {
	m := NewManager(nil)
	tx := NewTransaction(1, PriorityNormal, [][]byte{{0x01}})
	tx.ExpectsCallback = true
	io := &fakeIO{callbackOK: false}

	err := m.Run(tx, io, fastTimeouts())
	if !errors.Is(err, ErrAttemptsExhausted) {
		t.Fatalf("Run() error = %v, want ErrAttemptsExhausted", err)
	}
	if tx.State() != StateFailed {
		t.Fatalf("state = %v, want failed", tx.State())
	}
}

func TestManager_Run_MultiFrameTransportServiceTransaction(t *testing.T) {
	m := NewManager(nil)
	frames := [][]byte{{0x01, 0xAA}, {0x02, 0xBB}, {0x03, 0xCC}}
	tx := NewTransaction(1, PriorityNormal, frames)
	io := &fakeIO{}

	if err := m.Run(tx, io, fastTimeouts()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(io.writes) != 3 {
		t.Fatalf("writes = %d, want 3", len(io.writes))
	}
	for i, f := range frames {
		if string(io.writes[i]) != string(f) {
			t.Errorf("write %d = % x, want % x", i, io.writes[i], f)
		}
	}
}

func TestManager_Run_NoAckListeningNodeRetriesWithRouteReset(t *testing.T) {
	m := NewManager(nil)
	tx := NewTransaction(1, PriorityNormal, [][]byte{{0x01}})
	tx.RetryFrames = [][]byte{{0x02}}
	tx.ExpectsCallback = true
	io := &fakeIO{
		callbackResults: []callbackScript{
			{ok: false, err: ErrNoAck},
			{ok: true, err: nil},
		},
	}

	cfg := fastTimeouts()
	cfg.IsListening = func(nodeID uint8) bool { return true }
	if err := m.Run(tx, io, cfg); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if tx.State() != StateCompleted {
		t.Fatalf("state = %v, want completed", tx.State())
	}
	if len(io.writes) != 2 {
		t.Fatalf("writes = %d, want 2 (original send plus one NoAck retry)", len(io.writes))
	}
	if string(io.writes[1]) != string(tx.RetryFrames[0]) {
		t.Fatalf("retry write = % x, want the route-reset frame % x", io.writes[1], tx.RetryFrames[0])
	}
}

func TestManager_Run_NoAckNonListeningNodeParksTransaction(t *testing.T) {
	m := NewManager(nil)
	tx := NewTransaction(9, PriorityNormal, [][]byte{{0x01}})
	tx.ExpectsCallback = true
	io := &fakeIO{callbackResults: []callbackScript{{ok: false, err: ErrNoAck}}}

	cfg := fastTimeouts()
	cfg.IsListening = func(nodeID uint8) bool { return false }
	if err := m.Run(tx, io, cfg); err != nil {
		t.Fatalf("Run() error = %v, want nil (parked, not failed)", err)
	}
	if tx.State().Terminal() {
		t.Fatalf("state = %v, want non-terminal (parked, pending wake-up)", tx.State())
	}
	if m.Len() != 0 {
		t.Fatalf("Len() = %d, want 0 (parked transaction isn't ready yet)", m.Len())
	}

	m.MarkAwake(9)
	if m.Len() != 1 {
		t.Fatalf("Len() = %d, want 1 after MarkAwake flushes the parked transaction", m.Len())
	}
	got, ok := m.Pop()
	if !ok || got != tx {
		t.Fatal("flushed transaction does not match the parked one")
	}
}

func TestManager_Run_MaxAttemptsZeroDefaultsToOne(t *testing.T) {
	m := NewManager(nil)
	tx := NewTransaction(1, PriorityNormal, [][]byte{{0x01}})
	io := &fakeIO{ackResults: []error{ErrTimeout}}

	cfg := fastTimeouts()
	cfg.MaxAttempts = 0
	err := m.Run(tx, io, cfg)
	if !errors.Is(err, ErrAttemptsExhausted) {
		t.Fatalf("Run() error = %v, want ErrAttemptsExhausted", err)
	}
	if len(io.writes) != 1 {
		t.Fatalf("writes = %d, want 1 (MaxAttempts<=0 should clamp to 1)", len(io.writes))
	}
}
