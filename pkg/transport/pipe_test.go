package transport

import (
	"context"
	"testing"
	"time"
)

func TestPipe_RoundTrip(t *testing.T) {
	p := NewPipe()
	defer p.Close()

	a := p.Endpoint(0)
	b := p.Endpoint(1)
	if err := a.Open(context.Background()); err != nil {
		t.Fatal(err)
	}

	msg := []byte{0x01, 0x03, 0x00, 0x15, 0xE9}
	done := make(chan struct{})
	go func() {
		defer close(done)
		buf := make([]byte, len(msg))
		n, err := b.Read(buf)
		if err != nil {
			t.Errorf("Read error: %v", err)
			return
		}
		if n != len(msg) {
			t.Errorf("read %d bytes, want %d", n, len(msg))
			return
		}
		if string(buf) != string(msg) {
			t.Errorf("read %x, want %x", buf, msg)
		}
	}()

	if _, err := a.Write(msg); err != nil {
		t.Fatal(err)
	}
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for the peer to read")
	}
}

func TestPipe_DropRateSwallowsWrites(t *testing.T) {
	p := NewPipe()
	defer p.Close()
	p.SetCondition(0, NetworkCondition{DropRate: 1.0})

	a := p.Endpoint(0)
	b := p.Endpoint(1)

	n, err := a.Write([]byte{0x06})
	if err != nil || n != 1 {
		t.Fatalf("Write() = %d, %v, want 1, nil (dropped writes report success to the sender)", n, err)
	}

	readDone := make(chan error, 1)
	go func() {
		buf := make([]byte, 1)
		b.conn.SetReadDeadline(time.Now().Add(50 * time.Millisecond))
		_, err := b.Read(buf)
		readDone <- err
	}()

	err = <-readDone
	if err == nil {
		t.Fatal("peer should not have received a dropped write")
	}
}

func TestPipe_Close(t *testing.T) {
	p := NewPipe()
	a := p.Endpoint(0)
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := a.Write([]byte{0x01}); err == nil {
		t.Fatal("Write after Close should error")
	}
}
