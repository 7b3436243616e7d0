package message

// Message is a typed host<->controller unit.
//
// CallbackID is the one-byte token correlating an asynchronous callback
// with its initiating request; 0 means "no callback". Payload is the
// function-specific structured value produced by the registry's parser
// (e.g. *SendDataRequest, *GetControllerVersionResponse) — callers type-
// assert it after dispatch.
type Message struct {
	Type       Type
	Function   Function
	CallbackID uint8
	Payload    any
}

// IsCallback reports whether this message carries a callback token.
// CallbackID == 0 means "no callback".
func (m Message) IsCallback() bool {
	return m.CallbackID != 0
}
