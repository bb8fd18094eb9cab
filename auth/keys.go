// Package auth holds the server key pair used by the login encryption
// exchange and the authenticators that verify a joining player.
package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"fmt"
)

// DefaultKeyBits is the size of the generated server key. Clients accept
// 1024 bit keys only.
const DefaultKeyBits = 1024

// KeyPair is the server's RSA key. The public half is sent to clients in
// its PKIX DER form.
type KeyPair struct {
	private   *rsa.PrivateKey
	publicDER []byte
}

func GenerateKeyPair(bits int) (*KeyPair, error) {
	priv, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, fmt.Errorf("generating %d bit server key: %w", bits, err)
	}

	return NewKeyPair(priv)
}

func NewKeyPair(priv *rsa.PrivateKey) (*KeyPair, error) {
	der, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("encoding server public key: %w", err)
	}

	return &KeyPair{private: priv, publicDER: der}, nil
}

// PublicDER returns the encoded public key. Callers must not modify it.
func (k *KeyPair) PublicDER() []byte {
	return k.publicDER
}

func (k *KeyPair) PublicKey() *rsa.PublicKey {
	return &k.private.PublicKey
}

// Decrypt reverses a client's PKCS #1 v1.5 encryption under the public
// key.
func (k *KeyPair) Decrypt(ciphertext []byte) ([]byte, error) {
	plain, err := rsa.DecryptPKCS1v15(rand.Reader, k.private, ciphertext)
	if err != nil {
		return nil, fmt.Errorf("decrypting with server key: %w", err)
	}

	return plain, nil
}
