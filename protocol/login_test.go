package protocol_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"strings"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/luma/lodestone/auth"
	"github.com/luma/lodestone/chat"
	"github.com/luma/lodestone/codec"
	"github.com/luma/lodestone/protocol"
)

var serverKeys *auth.KeyPair

func keys() *auth.KeyPair {
	if serverKeys == nil {
		k, err := auth.GenerateKeyPair(auth.DefaultKeyBits)
		Expect(err).NotTo(HaveOccurred())
		serverKeys = k
	}

	return serverKeys
}

func encryptionResponse(encKey, encNonce []byte) []byte {
	return framed(packet(protocol.EncryptionResponseID, func(w *codec.Writer) {
		w.WriteByteArray(encKey)
		w.WriteByteArray(encNonce)
	}), false)
}

func rsaEncrypt(pub *rsa.PublicKey, p []byte) []byte {
	out, err := rsa.EncryptPKCS1v15(rand.Reader, pub, p)
	ExpectWithOffset(1, err).NotTo(HaveOccurred())
	return out
}

func expectLoginDisconnect(p *peer, reason string) {
	r := p.mustNext()
	ExpectWithOffset(1, r.Type).To(Equal(uint32(0x00)))
	ExpectWithOffset(1, chat.Plain(readString(r.Body))).To(Equal(reason))
}

var _ = Describe("login", func() {
	var (
		rec *recorder
		t   *fakeTransport
		p   *peer
	)

	BeforeEach(func() {
		rec = &recorder{}
		t = &fakeTransport{}
		p = newPeer(t)
	})

	Context("offline", func() {
		var c *protocol.Conn

		BeforeEach(func() {
			c = protocol.NewConn(context.Background(), protocol.Options{Transport: t, Handler: rec})
		})

		It("announces compression and confirms the offline identity", func() {
			Expect(c.DataReceived(append(handshake(protocol.ProtocolVersion, 2), loginStart("Steve")...))).To(Succeed())

			setCompression := p.mustNext()
			Expect(setCompression.Type).To(Equal(uint32(0x03)))
			Expect(readVarInt(setCompression.Body)).To(BeEquivalentTo(256))

			p.compressed = true
			success := p.mustNext()
			Expect(success.Type).To(Equal(uint32(0x02)))
			Expect(readString(success.Body)).To(Equal(auth.OfflineUUID("Steve").String()))
			Expect(readString(success.Body)).To(Equal("Steve"))

			Expect(c.State()).To(Equal(protocol.StatePlay))
			Expect(rec.Logins()).To(ConsistOf(auth.OfflineProfile("Steve")))
		})

		It("kicks an outdated client", func() {
			in := append(handshake(5, 2), loginStart("Steve")...)
			Expect(c.DataReceived(in)).To(Succeed())

			expectLoginDisconnect(p, "Outdated client or server")
			p.expectNothing()

			Expect(rec.Logins()).To(BeEmpty())
			Expect(t.Disconnected()).To(BeTrue())
		})

		It("kicks with the reason the handler gives", func() {
			rec.rejectLogin = "The server is full"

			Expect(c.DataReceived(append(handshake(protocol.ProtocolVersion, 2), loginStart("Steve")...))).To(Succeed())

			expectLoginDisconnect(p, "The server is full")
			Expect(rec.Disconnects()).To(Equal([]string{"The server is full"}))
		})

		It("refuses a name longer than allowed", func() {
			Expect(c.DataReceived(append(handshake(protocol.ProtocolVersion, 2),
				loginStart(strings.Repeat("a", protocol.MaxNameLen+1))...))).To(Succeed())

			expectLoginDisconnect(p, "Bad username")
		})

		It("kicks a client that sends an unexpected encryption response", func() {
			in := append(handshake(protocol.ProtocolVersion, 2), encryptionResponse([]byte{1}, []byte{2})...)
			Expect(c.DataReceived(in)).To(Succeed())

			expectLoginDisconnect(p, "Hacked client")
		})
	})

	Context("authenticated", func() {
		var (
			c      *protocol.Conn
			fa     *fakeAuth
			secret []byte
			pub    *rsa.PublicKey
			nonce  []byte
		)

		BeforeEach(func() {
			fa = &fakeAuth{}
			c = protocol.NewConn(context.Background(), protocol.Options{
				Transport:     t,
				Handler:       rec,
				Authenticate:  true,
				Keys:          keys(),
				Authenticator: fa,
			})

			Expect(c.DataReceived(append(handshake(protocol.ProtocolVersion, 2), loginStart("Notch")...))).To(Succeed())

			req := p.mustNext()
			Expect(req.Type).To(Equal(uint32(0x01)))
			Expect(readString(req.Body)).To(Equal(""))

			der, err := req.Body.ReadByteArray(0)
			Expect(err).NotTo(HaveOccurred())
			Expect(der).To(Equal(keys().PublicDER()))

			key, err := x509.ParsePKIXPublicKey(der)
			Expect(err).NotTo(HaveOccurred())
			pub = key.(*rsa.PublicKey)

			nonce, err = req.Body.ReadByteArray(0)
			Expect(err).NotTo(HaveOccurred())
			Expect(nonce).To(HaveLen(4))
			nonce = append([]byte(nil), nonce...)

			secret = []byte("0123456789abcdef")
		})

		It("switches to encryption mid-chunk and completes the login", func() {
			in := encryptionResponse(rsaEncrypt(pub, secret), rsaEncrypt(pub, nonce))

			Expect(p.cipher.Init(secret)).To(Succeed())
			in = append(in, p.cipher.Encrypt(framed(packet(0x05, nil), false))...)

			fa.release = make(chan struct{})
			Expect(c.DataReceived(in)).To(Succeed())
			Expect(c.State()).To(Equal(protocol.StateLogin))
			Expect(rec.unknown).To(Equal([]uint32{0x05}))

			close(fa.release)
			Eventually(rec.Logins).Should(HaveLen(1))

			Expect(fa.Hash()).To(Equal(auth.ServerHash("", secret, keys().PublicDER())))

			Expect(p.mustNext().Type).To(Equal(uint32(0x03)))
			p.compressed = true

			success := p.mustNext()
			Expect(success.Type).To(Equal(uint32(0x02)))
			Expect(readString(success.Body)).To(Equal(auth.OfflineUUID("Notch").String()))
			Expect(readString(success.Body)).To(Equal("Notch"))

			Expect(c.DataReceived(p.cipher.Encrypt(chatMessage("encrypted hello")))).To(Succeed())
			Expect(rec.chats).To(Equal([]string{"encrypted hello"}))
		})

		It("kicks when the nonce does not match", func() {
			bad := []byte{nonce[0] ^ 0xff, nonce[1], nonce[2], nonce[3]}
			Expect(c.DataReceived(encryptionResponse(rsaEncrypt(pub, secret), rsaEncrypt(pub, bad)))).To(Succeed())

			expectLoginDisconnect(p, "Hacked client")
			Expect(rec.Logins()).To(BeEmpty())
		})

		It("kicks when the shared secret has the wrong size", func() {
			Expect(c.DataReceived(encryptionResponse(rsaEncrypt(pub, secret[:8]), rsaEncrypt(pub, nonce)))).To(Succeed())

			expectLoginDisconnect(p, "Hacked client")
		})

		It("kicks when a field is longer than any key could produce", func() {
			long := make([]byte, protocol.MaxEncryptedLen+1)
			Expect(c.DataReceived(encryptionResponse(long, rsaEncrypt(pub, nonce)))).To(Succeed())

			expectLoginDisconnect(p, "Hacked client")
		})

		It("kicks when the session server does not know the player", func() {
			fa.err = auth.ErrNotVerified

			Expect(c.DataReceived(encryptionResponse(rsaEncrypt(pub, secret), rsaEncrypt(pub, nonce)))).To(Succeed())
			Eventually(rec.Disconnects).Should(Equal([]string{"Failed to verify username!"}))

			Expect(p.cipher.Init(secret)).To(Succeed())
			expectLoginDisconnect(p, "Failed to verify username!")
			Expect(rec.Logins()).To(BeEmpty())
		})
	})

	It("kicks when authentication is on without a key pair", func() {
		c := protocol.NewConn(context.Background(), protocol.Options{
			Transport:    t,
			Handler:      rec,
			Authenticate: true,
		})

		Expect(c.DataReceived(append(handshake(protocol.ProtocolVersion, 2), loginStart("Steve")...))).To(Succeed())
		expectLoginDisconnect(p, "Failed to verify username!")
	})
})
