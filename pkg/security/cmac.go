package security

import "crypto/aes"

// cmac computes AES-CMAC (NIST SP 800-38B) over message under key. No
// ecosystem package in the dependency graph exposes CMAC directly (the
// pack's x/crypto only carries HKDF/PBKDF2), so this is implemented
// directly against the stdlib AES block cipher — the same primitive
// the CCM and CBC code in this package already builds on.
func cmac(key, message []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	const blockSize = aes.BlockSize
	k1, k2 := subkeys(block)

	var blocks [][]byte
	if len(message) == 0 {
		blocks = [][]byte{nil}
	} else {
		for i := 0; i < len(message); i += blockSize {
			end := i + blockSize
			if end > len(message) {
				end = len(message)
			}
			blocks = append(blocks, message[i:end])
		}
	}

	last := blocks[len(blocks)-1]
	var lastBlock [blockSize]byte
	if len(last) == blockSize {
		xorInto(lastBlock[:], last, k1)
	} else {
		padded := padBlock(last, blockSize)
		xorInto(lastBlock[:], padded, k2)
	}

	mac := make([]byte, blockSize)
	for _, b := range blocks[:len(blocks)-1] {
		xorInto(mac, mac, b)
		block.Encrypt(mac, mac)
	}
	xorInto(mac, mac, lastBlock[:])
	block.Encrypt(mac, mac)
	return mac, nil
}

func subkeys(block cipherBlock) (k1, k2 []byte) {
	const blockSize = aes.BlockSize
	zero := make([]byte, blockSize)
	l := make([]byte, blockSize)
	block.Encrypt(l, zero)

	k1 = leftShiftOne(l)
	if l[0]&0x80 != 0 {
		k1[blockSize-1] ^= 0x87
	}
	k2 = leftShiftOne(k1)
	if k1[0]&0x80 != 0 {
		k2[blockSize-1] ^= 0x87
	}
	return k1, k2
}

// cipherBlock is the subset of cipher.Block subkeys needs, kept
// narrow so callers don't need to import crypto/cipher here.
type cipherBlock interface {
	Encrypt(dst, src []byte)
}

func leftShiftOne(in []byte) []byte {
	out := make([]byte, len(in))
	var carry byte
	for i := len(in) - 1; i >= 0; i-- {
		out[i] = in[i]<<1 | carry
		carry = in[i] >> 7
	}
	return out
}

func padBlock(b []byte, size int) []byte {
	out := make([]byte, size)
	copy(out, b)
	out[len(b)] = 0x80
	return out
}

func xorInto(dst, a, b []byte) {
	for i := range dst {
		dst[i] = a[i] ^ b[i]
	}
}
