package session_test

import (
	"bytes"
	"context"
	"errors"
	"sync"

	. "github.com/onsi/gomega"

	"github.com/luma/lodestone/auth"
	"github.com/luma/lodestone/codec"
	"github.com/luma/lodestone/frame"
	"github.com/luma/lodestone/protocol"
)

type fakeTransport struct {
	mu           sync.Mutex
	buf          bytes.Buffer
	disconnected bool
}

func (t *fakeTransport) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.buf.Write(p)
}

func (t *fakeTransport) Disconnect() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.disconnected = true
	return nil
}

func (t *fakeTransport) Bytes() []byte {
	t.mu.Lock()
	defer t.mu.Unlock()

	return append([]byte(nil), t.buf.Bytes()...)
}

func (t *fakeTransport) Disconnected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.disconnected
}

func packet(typ uint32, build func(w *codec.Writer)) []byte {
	w := codec.NewWriter()
	w.WriteVarUInt32(typ)
	if build != nil {
		build(w)
	}
	return w.Bytes()
}

func framed(payload []byte, compressed bool) []byte {
	out, err := frame.Encode(payload, compressed, frame.DefaultThreshold)
	ExpectWithOffset(1, err).NotTo(HaveOccurred())
	return out
}

func login(name string) []byte {
	hs := framed(packet(protocol.HandshakeID, func(w *codec.Writer) {
		w.WriteVarUInt32(protocol.ProtocolVersion)
		w.WriteString("localhost")
		w.WriteUint16(25565)
		w.WriteVarUInt32(2)
	}), false)

	start := framed(packet(protocol.LoginStartID, func(w *codec.Writer) {
		w.WriteString(name)
	}), false)

	return append(hs, start...)
}

type received struct {
	Type uint32
	Body *codec.Buffer
}

// peer decodes what a connection wrote, starting after the login packets.
type peer struct {
	transport  *fakeTransport
	offset     int
	buf        *codec.Buffer
	compressed bool
}

func (p *peer) next() (received, bool) {
	data := p.transport.Bytes()
	if len(data) > p.offset {
		_, err := p.buf.Write(data[p.offset:])
		Expect(err).NotTo(HaveOccurred())
		p.offset = len(data)
	}

	payload, err := frame.Decode(p.buf, p.compressed)
	if errors.Is(err, codec.ErrTruncated) {
		return received{}, false
	}
	Expect(err).NotTo(HaveOccurred())
	payload = append([]byte(nil), payload...)
	p.buf.Commit()

	typ, body, err := frame.SplitType(payload)
	Expect(err).NotTo(HaveOccurred())

	return received{Type: typ, Body: codec.NewBuffer(body)}, true
}

func (p *peer) mustNext() received {
	r, ok := p.next()
	ExpectWithOffset(1, ok).To(BeTrue(), "expected another packet")
	return r
}

func (p *peer) all() []received {
	var out []received
	for {
		r, ok := p.next()
		if !ok {
			return out
		}
		out = append(out, r)
	}
}

// types drains the peer and returns the packet types it read.
func (p *peer) types() []uint32 {
	var out []uint32
	for _, r := range p.all() {
		out = append(out, r.Type)
	}
	return out
}

// join logs name in offline and returns the connection with the peer
// positioned on the first packet written after LoginSuccess.
func join(h protocol.Handler, name string) (*protocol.Conn, *fakeTransport, *peer) {
	t := &fakeTransport{}
	c := protocol.NewConn(context.Background(), protocol.Options{
		Transport: t,
		Handler:   h,
	})

	ExpectWithOffset(1, c.DataReceived(login(name))).To(Succeed())

	p := &peer{transport: t, buf: codec.NewBuffer(nil)}
	if c.State() != protocol.StatePlay {
		return c, t, p
	}

	ExpectWithOffset(1, p.mustNext().Type).To(Equal(uint32(0x03)))
	p.compressed = true
	ExpectWithOffset(1, p.mustNext().Type).To(Equal(uint32(0x02)))

	return c, t, p
}

// startLogin sends name's LoginStart to an online mode connection, which
// then waits for the client's encryption response.
func startLogin(h protocol.Handler, name string, keys *auth.KeyPair) (*protocol.Conn, *fakeTransport) {
	t := &fakeTransport{}
	c := protocol.NewConn(context.Background(), protocol.Options{
		Transport:    t,
		Handler:      h,
		Authenticate: true,
		Keys:         keys,
	})

	ExpectWithOffset(1, c.DataReceived(login(name))).To(Succeed())

	return c, t
}

func send(c *protocol.Conn, typ uint32, build func(w *codec.Writer)) {
	ExpectWithOffset(1, c.DataReceived(framed(packet(typ, build), true))).To(Succeed())
}

func readString(b *codec.Buffer) string {
	s, err := b.ReadString()
	ExpectWithOffset(1, err).NotTo(HaveOccurred())
	return s
}

func readVarInt(b *codec.Buffer) uint32 {
	v, err := b.ReadVarUInt32()
	ExpectWithOffset(1, err).NotTo(HaveOccurred())
	return v
}
