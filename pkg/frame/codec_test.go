package frame

import (
	"bytes"
	"testing"
)

// garbageThenFrame builds a byte stream with arbitrary non-frame bytes
// surrounding one valid DATA frame, to check that the codec extracts
// the embedded frame unchanged.
func garbageThenFrame(t *testing.T, f Frame) []byte {
	t.Helper()
	enc, err := f.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	var buf bytes.Buffer
	buf.Write([]byte{0x42, 0x99, 0x00})
	buf.Write(enc)
	buf.Write([]byte{0xAB})
	return buf.Bytes()
}

func TestCodec_SkipsGarbageBeforeFrame(t *testing.T) {
	want := NewData(TypeResponse, 0x15, []byte{0xAA, 0xBB})
	stream := garbageThenFrame(t, want)

	c := NewCodec(bytes.NewReader(stream), nil)
	got, err := c.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if got.Kind != KindData || got.Function != want.Function || !bytes.Equal(got.Payload, want.Payload) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestCodec_ShortFramesInterleaved(t *testing.T) {
	stream := []byte{ACK, NAK, CAN, ACK}
	c := NewCodec(bytes.NewReader(stream), nil)

	wantKinds := []Kind{KindACK, KindNAK, KindCAN, KindACK}
	for i, want := range wantKinds {
		got, err := c.Next()
		if err != nil {
			t.Fatalf("Next()[%d]: %v", i, err)
		}
		if got.Kind != want {
			t.Fatalf("Next()[%d] = %v, want %v", i, got.Kind, want)
		}
	}
}

func TestCodec_ChecksumMismatchReturnsError(t *testing.T) {
	f := NewData(TypeRequest, 0x15, []byte{0x01})
	enc, err := f.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	enc[len(enc)-1] ^= 0xFF // corrupt checksum byte

	c := NewCodec(bytes.NewReader(enc), nil)
	_, err = c.Next()
	if err != ErrChecksumMismatch {
		t.Fatalf("Next() err = %v, want ErrChecksumMismatch", err)
	}
}

func TestCodec_TooShortLengthRejected(t *testing.T) {
	// SOF, length=1 (too short to cover type+function+checksum), then
	// a single filler byte so the reader doesn't hang on nothing.
	stream := []byte{SOF, 0x01, 0x00}
	c := NewCodec(bytes.NewReader(stream), nil)
	_, err := c.Next()
	if err != ErrFrameTooShort {
		t.Fatalf("Next() err = %v, want ErrFrameTooShort", err)
	}
}
