package driver

import (
	"sync"
	"time"

	"github.com/gozwave/core/pkg/frame"
	"github.com/gozwave/core/pkg/message"
	"github.com/gozwave/core/pkg/queue"
)

// ioAdapter implements queue.TransactionIO against the driver's single
// physical link. Only one transaction is ever in flight at a time, so
// a single set of correlation channels is enough instead of
// per-transaction routing.
type ioAdapter struct {
	d *Driver

	ackCh      chan error
	responseCh chan struct{}
	callbackCh chan callbackResult

	mu           sync.Mutex
	lastResponse any
}

type callbackResult struct {
	success bool
	err     error
}

func newIOAdapter(d *Driver) *ioAdapter {
	return &ioAdapter{
		d:          d,
		ackCh:      make(chan error, 1),
		responseCh: make(chan struct{}, 1),
		callbackCh: make(chan callbackResult, 1),
	}
}

// takeResponse returns the most recently captured Response payload.
// Safe to call only after WaitResponse has returned successfully,
// since the single in-flight transaction invariant guarantees no
// other response can have overwritten it in between.
func (io *ioAdapter) takeResponse() any {
	io.mu.Lock()
	defer io.mu.Unlock()
	return io.lastResponse
}

func (io *ioAdapter) Write(f []byte) error {
	_, err := io.d.cfg.Transport.Write(f)
	return err
}

func (io *ioAdapter) WaitACK(timeout time.Duration) error {
	select {
	case err := <-io.ackCh:
		return err
	case <-time.After(timeout):
		return queue.ErrTimeout
	}
}

func (io *ioAdapter) WaitResponse(timeout time.Duration) error {
	select {
	case <-io.responseCh:
		return nil
	case <-time.After(timeout):
		return queue.ErrTimeout
	}
}

func (io *ioAdapter) WaitCallback(timeout time.Duration) (bool, error) {
	select {
	case r := <-io.callbackCh:
		return r.success, r.err
	case <-time.After(timeout):
		return false, queue.ErrTimeout
	}
}

// deliverFrame routes one decoded link-layer Frame to whichever
// correlation channel is waiting, per the fixed send FSM. NAK/CAN are
// reported on the ACK channel as a retryable timeout, same as an
// outright timeout — the send queue doesn't distinguish the three
// causes beyond logging them.
func (io *ioAdapter) deliverFrame(f frame.Frame) {
	switch f.Kind {
	case frame.KindACK:
		select {
		case io.ackCh <- nil:
		default:
		}
	case frame.KindNAK, frame.KindCAN:
		select {
		case io.ackCh <- queue.ErrTimeout:
		default:
		}
	case frame.KindData:
		io.deliverData(f)
	}
}

func (io *ioAdapter) deliverData(f frame.Frame) {
	fn := message.Function(f.Function)

	// These two functions are always unsolicited (the driver never
	// issues a request under either opcode), regardless of whether a
	// transaction happens to be in flight.
	switch fn {
	case message.FuncApplicationCommandHandler:
		if msg, err := io.d.msgCodec.Parse(f.Type, fn, 0, f.Payload); err == nil {
			if r, ok := msg.Payload.(*message.ApplicationCommandHandlerRequest); ok {
				io.d.handleApplicationCommand(r)
			}
		}
		return
	case message.FuncApplicationUpdate:
		if msg, err := io.d.msgCodec.Parse(f.Type, fn, 0, f.Payload); err == nil {
			if r, ok := msg.Payload.(*message.ApplicationUpdateRequest); ok {
				io.d.handleApplicationUpdate(r)
			}
		}
		return
	}

	if f.Type == frame.TypeResponse {
		msg, _ := io.d.msgCodec.Parse(f.Type, fn, 0, f.Payload)
		io.mu.Lock()
		io.lastResponse = msg.Payload
		io.mu.Unlock()
		select {
		case io.responseCh <- struct{}{}:
		default:
		}
		return
	}

	// A Request-type DATA frame while we're mid-transaction is this
	// exchange's callback (e.g. SendData's TransmitStatus).
	success, err := io.d.interpretCallback(f)
	select {
	case io.callbackCh <- callbackResult{success: success, err: err}:
	default:
	}
}
