package security

import "errors"

var (
	ErrInvalidKeySize     = errors.New("security: invalid key size, must be 16 bytes")
	ErrInvalidNonceSize   = errors.New("security: invalid nonce size")
	ErrCiphertextTooShort = errors.New("security: ciphertext too short")
	ErrMACFailed          = errors.New("security: message authentication failed")
	ErrNonceExpired       = errors.New("security: nonce expired or already used")
	ErrNoNonce            = errors.New("security: no nonce available for node, request one first")
	ErrUnknownSecurityClass = errors.New("security: no key configured for security class")
	ErrResyncExhausted    = errors.New("security: SPAN resync failed three times, aborting transaction")
)
