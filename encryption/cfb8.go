// Package encryption implements the connection cipher: AES-128 in 8 bit
// cipher feedback mode, keyed with the shared secret from the login
// handshake, which also serves as the initialization vector.
package encryption

import "crypto/cipher"

type cfb8 struct {
	block   cipher.Block
	shift   []byte
	out     []byte
	decrypt bool
}

// NewCFB8Encrypter returns a stream that encrypts with b in CFB8 mode.
// The length of iv must equal the block size.
func NewCFB8Encrypter(b cipher.Block, iv []byte) cipher.Stream {
	return newCFB8(b, iv, false)
}

// NewCFB8Decrypter returns a stream that decrypts with b in CFB8 mode.
func NewCFB8Decrypter(b cipher.Block, iv []byte) cipher.Stream {
	return newCFB8(b, iv, true)
}

func newCFB8(b cipher.Block, iv []byte, decrypt bool) *cfb8 {
	if len(iv) != b.BlockSize() {
		panic("encryption: iv length must equal block size")
	}

	shift := make([]byte, len(iv))
	copy(shift, iv)

	return &cfb8{
		block:   b,
		shift:   shift,
		out:     make([]byte, b.BlockSize()),
		decrypt: decrypt,
	}
}

// XORKeyStream processes one byte per block operation. dst and src may
// overlap entirely.
func (x *cfb8) XORKeyStream(dst, src []byte) {
	if len(dst) < len(src) {
		panic("encryption: output smaller than input")
	}

	last := len(x.shift) - 1

	for i, in := range src {
		x.block.Encrypt(x.out, x.shift)
		res := in ^ x.out[0]

		copy(x.shift, x.shift[1:])
		if x.decrypt {
			x.shift[last] = in
		} else {
			x.shift[last] = res
		}

		dst[i] = res
	}
}
