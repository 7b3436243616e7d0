package driver

import (
	"context"
	"sync"
)

// nifWaiters lets the NodeInfo interview stage block until the node's
// Node Information Frame has actually arrived via ApplicationUpdate,
// instead of racing the RequestNodeInfo Response (which only confirms
// the controller accepted the request) against the later callback.
type nifWaiters struct {
	mu      sync.Mutex
	waiting map[uint8]chan struct{}
}

func newNIFWaiters() *nifWaiters {
	return &nifWaiters{waiting: make(map[uint8]chan struct{})}
}

func (w *nifWaiters) register(nodeID uint8) chan struct{} {
	w.mu.Lock()
	defer w.mu.Unlock()
	ch := make(chan struct{})
	w.waiting[nodeID] = ch
	return ch
}

func (w *nifWaiters) signal(nodeID uint8) {
	w.mu.Lock()
	ch, ok := w.waiting[nodeID]
	delete(w.waiting, nodeID)
	w.mu.Unlock()
	if ok {
		close(ch)
	}
}

func (d *Driver) signalNIF(nodeID uint8) {
	d.nifs.signal(nodeID)
}

// waitForNIF blocks on a channel obtained from an earlier register
// call. Registration happens before the RequestNodeInfo request is
// sent so the NIF can't arrive and be missed in between.
func (d *Driver) waitForNIF(ctx context.Context, ch chan struct{}) error {
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
