package frame

// Frame is a single link-layer unit: a short ACK/NAK/CAN byte, or a
// full DATA frame carrying a type, function opcode and payload.
//
// Only fields relevant to Kind are meaningful; e.g. for KindACK, Type,
// Function and Payload are zero.
type Frame struct {
	Kind     Kind
	Type     Type
	Function uint8
	Payload  []byte
}

// NewACK, NewNAK and NewCAN build the corresponding short frames.
func NewACK() Frame { return Frame{Kind: KindACK} }
func NewNAK() Frame { return Frame{Kind: KindNAK} }
func NewCAN() Frame { return Frame{Kind: KindCAN} }

// NewData builds a DATA frame.
func NewData(typ Type, function uint8, payload []byte) Frame {
	return Frame{Kind: KindData, Type: typ, Function: function, Payload: payload}
}

// Checksum computes the Z-Wave frame checksum: XOR of all bytes after
// SOF (length, type, function, payload), with initial value 0xFF.
func Checksum(lengthAndBody []byte) byte {
	sum := byte(0xFF)
	for _, b := range lengthAndBody {
		sum ^= b
	}
	return sum
}

// Encode serializes a Frame to wire bytes.
//
// Short frames (ACK/NAK/CAN) are a single byte. A DATA frame is
// serialized as SOF | length | type | function | payload | checksum,
// where length = 1 (type) + 1 (function) + len(payload) + 1 (checksum).
func (f Frame) Encode() ([]byte, error) {
	switch f.Kind {
	case KindACK:
		return []byte{ACK}, nil
	case KindNAK:
		return []byte{NAK}, nil
	case KindCAN:
		return []byte{CAN}, nil
	case KindData:
		return f.encodeData()
	default:
		return nil, ErrFrameTooShort
	}
}

func (f Frame) encodeData() ([]byte, error) {
	length := 1 + 1 + len(f.Payload) + 1
	if length > 0xFF {
		return nil, ErrPayloadTooLarge
	}

	buf := make([]byte, 1+1+len(f.Payload)+1+1+1)
	buf[0] = SOF
	buf[1] = byte(length)
	buf[2] = byte(f.Type)
	buf[3] = f.Function
	copy(buf[4:], f.Payload)

	// Checksum covers every byte after SOF, i.e. length..payload.
	buf[len(buf)-1] = Checksum(buf[1 : len(buf)-1])
	return buf, nil
}
