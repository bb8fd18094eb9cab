package auth

import (
	"crypto/sha1"
	"math/big"
)

var twoTo160 = new(big.Int).Lsh(big.NewInt(1), 160)

// ServerHash is the digest a client and the session server agree on for
// one login: SHA-1 over the server id, the shared secret and the public
// key, printed as a signed big endian hex number without leading zeros.
func ServerHash(serverID string, secret, publicDER []byte) string {
	h := sha1.New()
	h.Write([]byte(serverID))
	h.Write(secret)
	h.Write(publicDER)

	return signedHex(h.Sum(nil))
}

func signedHex(digest []byte) string {
	n := new(big.Int).SetBytes(digest)

	// two's complement
	if len(digest) > 0 && digest[0]&0x80 != 0 {
		n.Sub(n, twoTo160)
	}

	return n.Text(16)
}
