package message

import "sync"

// ParseFunc decodes a raw DATA frame payload into a typed Message
// payload. The frame's callbackID is not passed to it; Codec.Parse
// records it on the returned Message.
type ParseFunc func(payload []byte) (any, error)

// SerializeFunc encodes a typed Message payload into a raw DATA frame
// payload. Codec.Serialize returns the hook's bytes unchanged: no
// CallbackID is appended by the codec or the registry.
type SerializeFunc func(v any) ([]byte, error)

// Entry is a function's registration: the set of parse/serialize hooks
// available for each Message.Type. A function need not populate all
// four — e.g. a request-only function leaves the Response hooks nil.
type Entry struct {
	ParseRequest      ParseFunc
	ParseResponse     ParseFunc
	SerializeRequest  SerializeFunc
	SerializeResponse SerializeFunc

	// HasCallback indicates the controller may deliver one or more
	// later Request-type callbacks sharing this function's opcode, on
	// top of any immediate Response.
	HasCallback bool
}

// Registry is an extensible function -> Entry table. Construct it with
// NewRegistry, which returns an empty table that RegisterDefaults can
// seed; the zero Registry has no table, and Register on it panics.
type Registry struct {
	mu      sync.RWMutex
	entries map[Function]Entry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[Function]Entry)}
}

// Register adds an entry for function. Returns ErrAlreadyRegistered if
// one already exists — callers that want to override should Unregister
// first.
func (r *Registry) Register(function Function, entry Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[function]; exists {
		return ErrAlreadyRegistered
	}
	r.entries[function] = entry
	return nil
}

// Unregister removes a function's entry, if any.
func (r *Registry) Unregister(function Function) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, function)
}

// Lookup returns the entry for function, if registered.
func (r *Registry) Lookup(function Function) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[function]
	return e, ok
}

// Codec dispatches parse/serialize calls through a Registry. It is
// pure with respect to I/O: it never reads or writes a stream itself.
type Codec struct {
	registry *Registry
}

// NewCodec creates a Codec bound to registry.
func NewCodec(registry *Registry) *Codec {
	return &Codec{registry: registry}
}

// Parse decodes a raw DATA frame into a Message.
func (c *Codec) Parse(typ Type, function Function, callbackID uint8, payload []byte) (Message, error) {
	entry, ok := c.registry.Lookup(function)
	if !ok {
		return Message{}, ErrUnknownFunction
	}

	var parse ParseFunc
	switch typ {
	case Request:
		parse = entry.ParseRequest
	case Response:
		parse = entry.ParseResponse
	}
	if parse == nil {
		return Message{}, ErrNoParser
	}

	v, err := parse(payload)
	if err != nil {
		return Message{}, err
	}

	return Message{Type: typ, Function: function, CallbackID: callbackID, Payload: v}, nil
}

// Serialize encodes a Message's payload back to raw bytes.
func (c *Codec) Serialize(m Message) ([]byte, error) {
	entry, ok := c.registry.Lookup(m.Function)
	if !ok {
		return nil, ErrUnknownFunction
	}

	var serialize SerializeFunc
	switch m.Type {
	case Request:
		serialize = entry.SerializeRequest
	case Response:
		serialize = entry.SerializeResponse
	}
	if serialize == nil {
		return nil, ErrNoSerializer
	}

	return serialize(m.Payload)
}

// ExpectsCallback reports whether function is registered as expecting
// one or more later callback Requests.
func (c *Codec) ExpectsCallback(function Function) bool {
	entry, ok := c.registry.Lookup(function)
	return ok && entry.HasCallback
}
