package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/subtle"
	"encoding/binary"
)

// AES-CCM parameters for Security S2 payload protection: AES-128-CCM
// with an 8-byte MAC, adapted from a fixed-128-bit-tag CCM
// construction — the block-cipher-driven CBC-MAC/CTR core is
// identical, only the tag size differs.
const (
	ccmKeySize   = 16
	ccmNonceSize = 13
	ccmTagSize   = 8
	aesBlockSize = 16
)

// ccmCipher is an AES-CCM instance scoped to Security S2's fixed
// parameters (16-byte key, 13-byte nonce, 8-byte tag).
type ccmCipher struct {
	block   cipher.Block
	lenSize int
}

func newCCM(key []byte) (*ccmCipher, error) {
	if len(key) != ccmKeySize {
		return nil, ErrInvalidKeySize
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return &ccmCipher{block: block, lenSize: 15 - ccmNonceSize}, nil
}

// Seal encrypts and authenticates plaintext, returning ciphertext||tag.
func (c *ccmCipher) Seal(nonce, plaintext, aad []byte) ([]byte, error) {
	if len(nonce) != ccmNonceSize {
		return nil, ErrInvalidNonceSize
	}
	tag := c.computeTag(nonce, plaintext, aad)
	out := make([]byte, len(plaintext)+ccmTagSize)
	s0 := c.keystreamBlock(nonce, 0)
	for i := 0; i < ccmTagSize; i++ {
		out[len(plaintext)+i] = tag[i] ^ s0[i]
	}
	c.ctr(nonce, out[:len(plaintext)], plaintext)
	return out, nil
}

// Open decrypts and verifies ciphertext, returning the plaintext.
func (c *ccmCipher) Open(nonce, ciphertext, aad []byte) ([]byte, error) {
	if len(nonce) != ccmNonceSize {
		return nil, ErrInvalidNonceSize
	}
	if len(ciphertext) < ccmTagSize {
		return nil, ErrCiphertextTooShort
	}
	encData := ciphertext[:len(ciphertext)-ccmTagSize]
	encTag := ciphertext[len(ciphertext)-ccmTagSize:]

	s0 := c.keystreamBlock(nonce, 0)
	receivedTag := make([]byte, ccmTagSize)
	for i := 0; i < ccmTagSize; i++ {
		receivedTag[i] = encTag[i] ^ s0[i]
	}

	plaintext := make([]byte, len(encData))
	c.ctr(nonce, plaintext, encData)

	expected := c.computeTag(nonce, plaintext, aad)
	if subtle.ConstantTimeCompare(receivedTag, expected[:ccmTagSize]) != 1 {
		return nil, ErrMACFailed
	}
	return plaintext, nil
}

func (c *ccmCipher) computeTag(nonce, plaintext, aad []byte) []byte {
	var b0 [aesBlockSize]byte
	flags := byte(0)
	if len(aad) > 0 {
		flags |= 1 << 6
	}
	flags |= byte((ccmTagSize-2)/2) << 3
	flags |= byte(c.lenSize - 1)
	b0[0] = flags
	copy(b0[1:1+ccmNonceSize], nonce)
	putLength(b0[1+ccmNonceSize:], len(plaintext), c.lenSize)

	mac := make([]byte, aesBlockSize)
	c.block.Encrypt(mac, b0[:])

	if len(aad) > 0 {
		var aadBlock [aesBlockSize]byte
		binary.BigEndian.PutUint16(aadBlock[0:2], uint16(len(aad)))
		n := copy(aadBlock[2:], aad)
		for i := range mac {
			mac[i] ^= aadBlock[i]
		}
		c.block.Encrypt(mac, mac)
		for remaining := aad[n:]; len(remaining) > 0; {
			var blk [aesBlockSize]byte
			m := copy(blk[:], remaining)
			remaining = remaining[m:]
			for i := range mac {
				mac[i] ^= blk[i]
			}
			c.block.Encrypt(mac, mac)
		}
	}

	for remaining := plaintext; len(remaining) > 0; {
		var blk [aesBlockSize]byte
		n := copy(blk[:], remaining)
		remaining = remaining[n:]
		for i := range mac {
			mac[i] ^= blk[i]
		}
		c.block.Encrypt(mac, mac)
	}
	return mac[:ccmTagSize]
}

func (c *ccmCipher) keystreamBlock(nonce []byte, counter uint64) []byte {
	var a [aesBlockSize]byte
	a[0] = byte(c.lenSize - 1)
	copy(a[1:1+ccmNonceSize], nonce)
	putLength(a[1+ccmNonceSize:], int(counter), c.lenSize)
	out := make([]byte, aesBlockSize)
	c.block.Encrypt(out, a[:])
	return out
}

func (c *ccmCipher) ctr(nonce []byte, dst, src []byte) {
	counter := uint64(1)
	for i := 0; i < len(src); i += aesBlockSize {
		keystream := c.keystreamBlock(nonce, counter)
		end := i + aesBlockSize
		if end > len(src) {
			end = len(src)
		}
		for j := i; j < end; j++ {
			dst[j] = src[j] ^ keystream[j-i]
		}
		counter++
	}
}

func putLength(dst []byte, length, lenSize int) {
	for i := lenSize - 1; i >= 0; i-- {
		dst[i] = byte(length)
		length >>= 8
	}
}
