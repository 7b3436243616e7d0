//go:build linux

package transport

import (
	"context"
	"fmt"
	"os"
	"sync"

	"golang.org/x/sys/unix"
)

// Serial is a Transport backed by a tty device, the link most Z-Wave
// controllers expose (a USB-serial stick enumerated as /dev/ttyACM0 or
// similar). Framing itself is handled entirely by pkg/frame; Serial
// only has to deliver raw bytes at the configured baud rate.
type Serial struct {
	path string
	baud int

	mu     sync.Mutex
	file   *os.File
	closed bool
}

// NewSerial returns a Serial transport for path at baud (the Z-Wave
// default is 115200 8N1). Open must be called before use.
func NewSerial(path string, baud int) *Serial {
	if baud <= 0 {
		baud = 115200
	}
	return &Serial{path: path, baud: baud}
}

// Open opens the device and configures it as a raw 8N1 line with no
// flow control, the mode every Z-Wave serial API expects.
func (s *Serial) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file != nil {
		return nil
	}

	f, err := os.OpenFile(s.path, unix.O_RDWR|unix.O_NOCTTY, 0)
	if err != nil {
		return fmt.Errorf("open %s: %w", s.path, err)
	}

	if err := configureRaw(f, s.baud); err != nil {
		f.Close()
		return fmt.Errorf("configure %s: %w", s.path, err)
	}

	s.file = f
	return nil
}

func (s *Serial) Read(b []byte) (int, error) {
	s.mu.Lock()
	f, closed := s.file, s.closed
	s.mu.Unlock()
	if closed || f == nil {
		return 0, ErrClosed
	}
	return f.Read(b)
}

func (s *Serial) Write(b []byte) (int, error) {
	s.mu.Lock()
	f, closed := s.file, s.closed
	s.mu.Unlock()
	if closed || f == nil {
		return 0, ErrClosed
	}
	return f.Write(b)
}

func (s *Serial) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.file == nil {
		return nil
	}
	return s.file.Close()
}

var baudRates = map[int]uint32{
	9600:   unix.B9600,
	19200:  unix.B19200,
	38400:  unix.B38400,
	57600:  unix.B57600,
	115200: unix.B115200,
}

// configureRaw puts fd into non-canonical, 8N1, no-parity, no-flow-
// control mode via termios, the configuration the Z-Wave serial API
// assumes (it does its own framing over a clean byte pipe).
func configureRaw(f *os.File, baud int) error {
	rate, ok := baudRates[baud]
	if !ok {
		return fmt.Errorf("unsupported baud rate %d", baud)
	}

	fd := int(f.Fd())
	t, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return err
	}

	t.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP |
		unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON
	t.Oflag &^= unix.OPOST
	t.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
	t.Cflag &^= unix.CSIZE | unix.PARENB | unix.CSTOPB
	t.Cflag |= unix.CS8 | unix.CREAD | unix.CLOCAL
	t.Cc[unix.VMIN] = 1
	t.Cc[unix.VTIME] = 0

	t.Ispeed = rate
	t.Ospeed = rate

	return unix.IoctlSetTermios(fd, unix.TCSETS, t)
}

var _ Transport = (*Serial)(nil)
