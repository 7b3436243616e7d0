package frame

import (
	"bufio"
	"io"
	"time"

	"github.com/pion/logging"
)

// Codec reads bytes from an underlying stream and reassembles them into
// Frame values, per this state machine:
//
//	Idle -> (on SOF) LengthByte -> PayloadBytes[length-1] -> ChecksumByte -> emit(DATA)
//
// Short frames (ACK/NAK/CAN) are emitted immediately. Bytes seen while
// Idle that are not SOF/ACK/NAK/CAN are discarded and logged.
//
// The codec is pure with respect to writes: it never writes to the
// stream itself. Next's caller is responsible for replying ACK/NAK per
// the protocol (NAK on ErrChecksumMismatch/ErrFrameTooShort/
// ErrFrameTimeout, ACK only once the message layer has accepted the
// decoded DATA frame).
type Codec struct {
	src io.Reader
	r   *bufio.Reader
	log logging.LeveledLogger

	clock func() time.Time
}

// NewCodec creates a Codec reading from r. loggerFactory may be nil, in
// which case a default logger is used.
func NewCodec(r io.Reader, loggerFactory logging.LoggerFactory) *Codec {
	if loggerFactory == nil {
		loggerFactory = logging.NewDefaultLoggerFactory()
	}
	return &Codec{
		src:   r,
		r:     bufio.NewReader(r),
		log:   loggerFactory.NewLogger("zwave-frame"),
		clock: time.Now,
	}
}

// Next blocks until a complete Frame is available or the stream ends.
// It returns ErrChecksumMismatch, ErrFrameTooShort or ErrFrameTimeout
// for a malformed/incomplete DATA frame; the codec has already
// discarded the partial frame and returned to Idle, so Next remains
// usable for the caller's next call.
func (c *Codec) Next() (Frame, error) {
	for {
		b, err := c.r.ReadByte()
		if err != nil {
			return Frame{}, err
		}

		switch b {
		case ACK:
			return NewACK(), nil
		case NAK:
			return NewNAK(), nil
		case CAN:
			return NewCAN(), nil
		case SOF:
			return c.readDataFrame()
		default:
			c.log.Debugf("discarding stray byte 0x%02x while idle", b)
		}
	}
}

// readDataFrame is entered right after SOF has been consumed.
func (c *Codec) readDataFrame() (Frame, error) {
	deadline := c.clock().Add(ReceiveTimeout)

	length, err := c.readByteBeforeDeadline(deadline)
	if err != nil {
		return Frame{}, err
	}
	if int(length) < minDataFrameLen {
		c.log.Warnf("data frame length %d too short, discarding", length)
		return Frame{}, ErrFrameTooShort
	}

	body := make([]byte, length)
	for i := range body {
		b, err := c.readByteBeforeDeadline(deadline)
		if err != nil {
			return Frame{}, err
		}
		body[i] = b
	}

	typ := Type(body[0])
	function := body[1]
	payload := body[2 : len(body)-1]
	checksum := body[len(body)-1]

	lengthAndBody := make([]byte, 0, 1+len(body)-1)
	lengthAndBody = append(lengthAndBody, length)
	lengthAndBody = append(lengthAndBody, body[:len(body)-1]...)

	want := Checksum(lengthAndBody)
	if want != checksum {
		c.log.Warnf("checksum mismatch: got 0x%02x want 0x%02x", checksum, want)
		return Frame{}, ErrChecksumMismatch
	}

	// Copy payload out of body so body's backing array isn't retained
	// beyond this call via an aliasing slice.
	out := make([]byte, len(payload))
	copy(out, payload)

	return NewData(typ, function, out), nil
}

// deadlineSetter is implemented by transports that support per-read
// deadlines (e.g. net.Conn; pkg/transport's Serial and Pipe endpoints
// do not implement it). When the
// underlying reader doesn't support it, the timeout is enforced only
// at a coarse level (checked before each byte) rather than mid-read.
type deadlineSetter interface {
	SetReadDeadline(time.Time) error
}

// readByteBeforeDeadline reads one byte, failing with ErrFrameTimeout
// once deadline has passed. If the underlying reader supports
// SetReadDeadline it is used so a blocked read is interrupted exactly
// at the deadline; otherwise the deadline is only checked between
// reads.
func (c *Codec) readByteBeforeDeadline(deadline time.Time) (byte, error) {
	if c.clock().After(deadline) {
		return 0, ErrFrameTimeout
	}
	if ds, ok := c.src.(deadlineSetter); ok {
		_ = ds.SetReadDeadline(deadline)
	}
	b, err := c.r.ReadByte()
	if err != nil {
		if ne, ok := err.(interface{ Timeout() bool }); ok && ne.Timeout() {
			return 0, ErrFrameTimeout
		}
		return 0, err
	}
	return b, nil
}
