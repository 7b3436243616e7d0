package transport

import (
	"context"
	"math/rand"
	"net"
	"sync"
	"time"

	"github.com/pion/transport/v3/test"
)

// NetworkCondition configures fault injection on a Pipe endpoint's
// writes, for exercising the send queue's retry/backoff behavior
// without real serial hardware.
type NetworkCondition struct {
	// DropRate is the probability (0.0-1.0) that a Write is silently
	// swallowed, simulating a byte stream that never reaches the peer
	// (the controller will then never ACK, and the frame codec's
	// receive timeout or the queue's ACK timeout fires).
	DropRate float64

	// DelayMin/DelayMax bound a uniformly distributed delay applied
	// before a Write reaches the peer.
	DelayMin time.Duration
	DelayMax time.Duration
}

// Pipe is a bidirectional in-memory byte pipe built on pion's
// test.Bridge, giving two Transport endpoints that exchange bytes
// without real I/O.
type Pipe struct {
	bridge *test.Bridge

	mu   sync.RWMutex
	rng  *rand.Rand
	cond [2]NetworkCondition
}

// NewPipe creates a connected pair of endpoints; Endpoint(0) and
// Endpoint(1) are each other's peer.
func NewPipe() *Pipe {
	return &Pipe{
		bridge: test.NewBridge(),
		rng:    rand.New(rand.NewSource(1)),
	}
}

// SetCondition configures fault injection for writes originating from
// endpoint id (0 or 1).
func (p *Pipe) SetCondition(id int, cond NetworkCondition) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cond[id&1] = cond
}

// Endpoint returns a Transport for side id (0 or 1).
func (p *Pipe) Endpoint(id int) *pipeEndpoint {
	var conn net.Conn
	if id == 0 {
		conn = p.bridge.GetConn0()
	} else {
		conn = p.bridge.GetConn1()
	}
	return &pipeEndpoint{pipe: p, id: id & 1, conn: conn}
}

// Tick delivers queued bytes between the two endpoints; most tests
// run with the bridge's own background processing, so Tick is only
// needed for manually-stepped scenarios.
func (p *Pipe) Tick() int { return p.bridge.Tick() }

// Close closes both endpoints.
func (p *Pipe) Close() error {
	err0 := p.bridge.GetConn0().Close()
	err1 := p.bridge.GetConn1().Close()
	if err0 != nil {
		return err0
	}
	return err1
}

type pipeEndpoint struct {
	pipe *Pipe
	id   int
	conn net.Conn
}

func (e *pipeEndpoint) Open(ctx context.Context) error { return nil }

func (e *pipeEndpoint) Read(b []byte) (int, error) { return e.conn.Read(b) }

func (e *pipeEndpoint) Write(b []byte) (int, error) {
	e.pipe.mu.RLock()
	cond := e.pipe.cond[e.id]
	rng := e.pipe.rng
	e.pipe.mu.RUnlock()

	if cond.DropRate > 0 && rng.Float64() < cond.DropRate {
		return len(b), nil
	}
	if cond.DelayMax > 0 {
		delay := cond.DelayMin
		if cond.DelayMax > cond.DelayMin {
			delay += time.Duration(rng.Int63n(int64(cond.DelayMax - cond.DelayMin)))
		}
		if delay > 0 {
			time.Sleep(delay)
		}
	}
	return e.conn.Write(b)
}

func (e *pipeEndpoint) Close() error { return e.conn.Close() }

var _ Transport = (*pipeEndpoint)(nil)
