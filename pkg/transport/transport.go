// Package transport implements the duplex byte-stream contract the
// driver requires of its link layer: open, close, write(bytes), and an
// incoming byte stream, identical in production and test.
package transport

import (
	"context"
	"errors"
	"io"
)

// ErrClosed is returned by Write/Read after Close.
var ErrClosed = errors.New("transport: closed")

// Transport is a duplex byte stream. Reads feed pkg/frame's Codec
// directly (it only needs io.Reader); Write sends a fully serialized
// frame. Close is idempotent.
type Transport interface {
	io.ReadWriteCloser

	// Open establishes the connection (e.g. opens the serial port).
	// For transports that are already connected at construction (the
	// in-memory Pipe), Open is a no-op.
	Open(ctx context.Context) error
}
