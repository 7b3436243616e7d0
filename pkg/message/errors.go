package message

import "errors"

// Errors returned by the message package.
var (
	// ErrMalformedPayload is returned when a payload's structure doesn't
	// match what the registered function expects.
	ErrMalformedPayload = errors.New("message: malformed payload")

	// ErrUnknownFunction is returned when no entry is registered for a
	// function opcode.
	ErrUnknownFunction = errors.New("message: unknown function")

	// ErrPayloadTooShort is returned when a payload is shorter than the
	// minimum length the function's parser requires.
	ErrPayloadTooShort = errors.New("message: payload too short")

	// ErrNoParser is returned when a function is registered but has no
	// parser for the requested Type (e.g. a request-only function
	// asked to parse a response).
	ErrNoParser = errors.New("message: no parser registered for this message type")

	// ErrNoSerializer mirrors ErrNoParser for the serialize direction.
	ErrNoSerializer = errors.New("message: no serializer registered for this message type")

	// ErrAlreadyRegistered is returned by Registry.Register when a
	// function already has an entry.
	ErrAlreadyRegistered = errors.New("message: function already registered")
)
