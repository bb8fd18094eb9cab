package encryption

import (
	"crypto/aes"
	"crypto/cipher"
	"errors"
	"fmt"
	"io"
)

const (
	// KeySize is the length of the shared secret.
	KeySize = 16

	// OutboundChunk and InboundChunk bound how many bytes are transformed
	// per step.
	OutboundChunk = 8192
	InboundChunk  = 512
)

var (
	ErrAlreadyEnabled = errors.New("encryption: cipher already enabled")
	ErrKeySize        = errors.New("encryption: key must be 16 bytes")
)

// Layer is the cipher state of one connection. Until Init succeeds both
// directions pass bytes through untouched, afterwards every byte goes
// through exactly one of the two streams, in order.
//
// Layer does no locking. Encrypt must only be called by the outbound
// writer and Decrypt by the inbound flow, and Init must be serialized with
// both.
type Layer struct {
	enc     cipher.Stream
	dec     cipher.Stream
	enabled bool
}

// Init derives both streams from key. It can only be called once.
func (l *Layer) Init(key []byte) error {
	if l.enabled {
		return ErrAlreadyEnabled
	}

	if len(key) != KeySize {
		return fmt.Errorf("%w: got %d", ErrKeySize, len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return err
	}

	l.enc = NewCFB8Encrypter(block, key)
	l.dec = NewCFB8Decrypter(block, key)
	l.enabled = true

	return nil
}

func (l *Layer) Enabled() bool {
	return l.enabled
}

// Encrypt returns the ciphertext of p in a new slice, or p itself while
// the layer is disabled.
func (l *Layer) Encrypt(p []byte) []byte {
	return transform(l.enc, l.enabled, p, OutboundChunk)
}

// Decrypt returns the plaintext of p in a new slice, or p itself while
// the layer is disabled.
func (l *Layer) Decrypt(p []byte) []byte {
	return transform(l.dec, l.enabled, p, InboundChunk)
}

// EncryptTo encrypts p through a fixed size scratch buffer and writes the
// result to w chunk by chunk.
func (l *Layer) EncryptTo(w io.Writer, p []byte) error {
	if !l.enabled {
		_, err := w.Write(p)
		return err
	}

	var scratch [OutboundChunk]byte

	for len(p) > 0 {
		n := len(p)
		if n > OutboundChunk {
			n = OutboundChunk
		}

		l.enc.XORKeyStream(scratch[:n], p[:n])
		if _, err := w.Write(scratch[:n]); err != nil {
			return err
		}

		p = p[n:]
	}

	return nil
}

func transform(s cipher.Stream, enabled bool, p []byte, chunk int) []byte {
	if !enabled {
		return p
	}

	out := make([]byte, len(p))
	for off := 0; off < len(p); off += chunk {
		end := off + chunk
		if end > len(p) {
			end = len(p)
		}

		s.XORKeyStream(out[off:end], p[off:end])
	}

	return out
}
