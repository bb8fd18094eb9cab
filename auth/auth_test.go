package auth_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo"
	"github.com/onsi/ginkgo/extensions/table"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/luma/lodestone/auth"
)

var _ = Describe("auth", func() {
	Describe("ServerHash", func() {
		table.DescribeTable("prints a signed hex digest",
			func(input, expected string) {
				Expect(auth.ServerHash(input, nil, nil)).To(Equal(expected))
			},
			table.Entry("positive", "Notch", "4ed1f46bbe04bc756bcb17c0c7ce3e4632f06a48"),
			table.Entry("negative", "jeb_", "-7c9d5b0044c130109a5d7b5fb5c317c02b4e28c1"),
			table.Entry("leading zero", "simon", "88e16a1019277b15d58faf0541e11910eb756f6"),
		)

		It("covers the secret and the key", func() {
			base := auth.ServerHash("", []byte("secret"), []byte("key"))
			Expect(auth.ServerHash("", []byte("secreT"), []byte("key"))).NotTo(Equal(base))
			Expect(auth.ServerHash("", []byte("secret"), []byte("kez"))).NotTo(Equal(base))
			Expect(auth.ServerHash("", []byte("sec"), []byte("retkey"))).To(Equal(base))
		})
	})

	Describe("KeyPair", func() {
		var keys *auth.KeyPair

		BeforeEach(func() {
			var err error
			keys, err = auth.GenerateKeyPair(1024)
			Expect(err).NotTo(HaveOccurred())
		})

		It("exposes a PKIX public key", func() {
			pub, err := x509.ParsePKIXPublicKey(keys.PublicDER())
			Expect(err).NotTo(HaveOccurred())
			Expect(pub.(*rsa.PublicKey).N).To(Equal(keys.PublicKey().N))
		})

		It("decrypts what a client encrypts", func() {
			secret := []byte("0123456789abcdef")
			enc, err := rsa.EncryptPKCS1v15(rand.Reader, keys.PublicKey(), secret)
			Expect(err).NotTo(HaveOccurred())

			plain, err := keys.Decrypt(enc)
			Expect(err).NotTo(HaveOccurred())
			Expect(plain).To(Equal(secret))
		})

		It("rejects garbage", func() {
			_, err := keys.Decrypt([]byte{1, 2, 3})
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("SessionServer", func() {
		var (
			server *httptest.Server
			status int
			body   string
			query  map[string]string
		)

		BeforeEach(func() {
			status = http.StatusOK
			body = ""
			query = map[string]string{}

			server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				query["username"] = r.URL.Query().Get("username")
				query["serverId"] = r.URL.Query().Get("serverId")
				w.WriteHeader(status)
				_, _ = w.Write([]byte(body))
			}))
		})

		AfterEach(func() {
			server.Close()
		})

		It("returns the verified profile", func() {
			body = `{"id":"069a79f444e94726a5befca90e38aaf5","name":"Notch","properties":[{"name":"textures","value":"abc","signature":"sig"}]}`

			s := auth.NewSessionServer(server.URL, nil, zap.NewNop())
			p, err := s.Authenticate(context.Background(), "Notch", "-1a2b")
			Expect(err).NotTo(HaveOccurred())

			Expect(query).To(HaveKeyWithValue("username", "Notch"))
			Expect(query).To(HaveKeyWithValue("serverId", "-1a2b"))
			Expect(p.Name).To(Equal("Notch"))
			Expect(p.UUID.String()).To(Equal("069a79f4-44e9-4726-a5be-fca90e38aaf5"))
			Expect(p.Properties).To(Equal([]auth.Property{{Name: "textures", Value: "abc", Signature: "sig"}}))
		})

		It("denies unknown joins", func() {
			status = http.StatusNoContent

			s := auth.NewSessionServer(server.URL, nil, zap.NewNop())
			_, err := s.Authenticate(context.Background(), "Notch", "00")
			Expect(err).To(MatchError(auth.ErrNotVerified))
		})

		It("fails on server errors", func() {
			status = http.StatusInternalServerError

			s := auth.NewSessionServer(server.URL, nil, zap.NewNop())
			_, err := s.Authenticate(context.Background(), "Notch", "00")
			Expect(err).To(HaveOccurred())
			Expect(err).NotTo(MatchError(auth.ErrNotVerified))
		})
	})

	Describe("ParseProfile", func() {
		It("rejects invalid documents", func() {
			_, err := auth.ParseProfile([]byte(`{"id":`))
			Expect(err).To(MatchError(auth.ErrBadProfile))

			_, err = auth.ParseProfile([]byte(`{"id":"zz","name":"a"}`))
			Expect(err).To(MatchError(auth.ErrBadProfile))

			_, err = auth.ParseProfile([]byte(`{}`))
			Expect(err).To(MatchError(auth.ErrNotVerified))
		})
	})

	Describe("Offline", func() {
		It("derives a stable version 3 id", func() {
			p, err := auth.Offline{}.Authenticate(context.Background(), "Steve", "")
			Expect(err).NotTo(HaveOccurred())
			Expect(p.Name).To(Equal("Steve"))
			Expect(p.UUID).To(Equal(auth.OfflineUUID("Steve")))
			Expect(p.UUID).NotTo(Equal(auth.OfflineUUID("Alex")))
			Expect(p.UUID[6] >> 4).To(Equal(byte(3)))
			Expect(p.UUID[8] & 0xc0).To(Equal(byte(0x80)))
		})
	})
})
