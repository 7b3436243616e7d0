package security

import (
	"crypto/aes"
	"crypto/cipher"
)

// S0Engine implements Security S0: nonce-based message encapsulation
// under a single pre-shared network key, split into an encryption key
// and a MAC key.
type S0Engine struct {
	encKey []byte
	macKey []byte
	nonces *nonceStore
}

// NewS0Engine derives the S0 encryption/MAC keys from the network key
// and starts a fresh nonce store.
func NewS0Engine(networkKey []byte) (*S0Engine, error) {
	encKey, authKey, _, err := deriveKeys(networkKey)
	if err != nil {
		return nil, err
	}
	return &S0Engine{encKey: encKey, macKey: authKey, nonces: newNonceStore()}, nil
}

// IssueNonce answers a NonceGet from nodeID with a fresh receiver
// nonce, to be sent back in a NonceReport.
func (e *S0Engine) IssueNonce(nodeID uint8) ([8]byte, error) {
	return e.nonces.Issue(nodeID)
}

// Encrypt wraps payload for nodeID using senderNonce (locally
// generated) and receiverNonce (from the node's NonceReport), building
// the IV from their concatenation and a CMAC over the ciphertext.
func (e *S0Engine) Encrypt(senderNonce, receiverNonce [8]byte, ccCommand byte, sourceNode, destNode uint8, payload []byte) (ciphertext, mac []byte, err error) {
	iv := append(append([]byte{}, senderNonce[:]...), receiverNonce[:]...)
	ciphertext, err = cbcCrypt(e.encKey, iv, payload, true)
	if err != nil {
		return nil, nil, err
	}

	macInput := macInputBytes(senderNonce, receiverNonce, ccCommand, sourceNode, destNode, ciphertext)
	full, err := cmac(e.macKey, macInput)
	if err != nil {
		return nil, nil, err
	}
	return ciphertext, full[:8], nil
}

// Decrypt unwraps a Security Message Encapsulation payload, verifying
// the MAC before decrypting. receiverNonce is the nonce this engine
// previously issued via IssueNonce for destNode. Decrypt consumes it
// from the nonce store before checking the MAC, so each receiver nonce
// decrypts at most one message.
func (e *S0Engine) Decrypt(senderNonce, receiverNonce [8]byte, ccCommand byte, sourceNode, destNode uint8, ciphertext, mac []byte) ([]byte, error) {
	if err := e.nonces.Consume(destNode, receiverNonce); err != nil {
		return nil, err
	}

	macInput := macInputBytes(senderNonce, receiverNonce, ccCommand, sourceNode, destNode, ciphertext)
	expected, err := cmac(e.macKey, macInput)
	if err != nil {
		return nil, err
	}
	if !constantTimeEqual(expected[:8], mac) {
		return nil, ErrMACFailed
	}

	iv := append(append([]byte{}, senderNonce[:]...), receiverNonce[:]...)
	return cbcCrypt(e.encKey, iv, ciphertext, false)
}

func macInputBytes(senderNonce, receiverNonce [8]byte, ccCommand byte, sourceNode, destNode uint8, encrypted []byte) []byte {
	out := make([]byte, 0, 8+8+1+1+1+len(encrypted))
	out = append(out, senderNonce[:]...)
	out = append(out, receiverNonce[:]...)
	out = append(out, ccCommand, sourceNode, destNode)
	return append(out, encrypted...)
}

// cbcCrypt AES-CBC encrypts/decrypts data under key with a 16-byte IV
// built from the sender/receiver nonce pair. Encryption PKCS#7-pads
// data to a whole number of blocks; decryption strips that padding.
func cbcCrypt(key, iv, data []byte, encrypt bool) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	padded := padPKCS7(data, aes.BlockSize)
	out := make([]byte, len(padded))
	if encrypt {
		cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, padded)
		return out, nil
	}
	if len(data)%aes.BlockSize != 0 {
		return nil, ErrCiphertextTooShort
	}
	plain := make([]byte, len(data))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, data)
	return unpadPKCS7(plain)
}

func padPKCS7(data []byte, blockSize int) []byte {
	padLen := blockSize - len(data)%blockSize
	out := make([]byte, len(data)+padLen)
	copy(out, data)
	for i := len(data); i < len(out); i++ {
		out[i] = byte(padLen)
	}
	return out
}

func unpadPKCS7(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, ErrCiphertextTooShort
	}
	padLen := int(data[len(data)-1])
	if padLen <= 0 || padLen > len(data) {
		return nil, ErrMACFailed
	}
	return data[:len(data)-padLen], nil
}

func constantTimeEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	var diff byte
	for i := range a {
		diff |= a[i] ^ b[i]
	}
	return diff == 0
}
