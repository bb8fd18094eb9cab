package protocol_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/tidwall/gjson"

	"github.com/luma/lodestone/chat"
	"github.com/luma/lodestone/codec"
	"github.com/luma/lodestone/protocol"
)

func chatMessage(msg string) []byte {
	return framed(packet(protocol.ChatMessageID, func(w *codec.Writer) {
		w.WriteString(msg)
	}), true)
}

var _ = Describe("Conn", func() {
	var (
		rec *recorder
		t   *fakeTransport
		c   *protocol.Conn
	)

	BeforeEach(func() {
		rec = &recorder{status: protocol.StatusInfo{Description: "A lodestone server", Online: 3, Max: 20}}
		t = &fakeTransport{}
		c = protocol.NewConn(context.Background(), protocol.Options{Transport: t, Handler: rec})
	})

	Describe("status", func() {
		It("answers the status request and echoes the ping", func() {
			in := handshake(protocol.ProtocolVersion, 1)
			in = append(in, framed(packet(protocol.StatusRequestID, nil), false)...)
			in = append(in, framed(packet(protocol.StatusPingID, func(w *codec.Writer) {
				w.WriteInt64(1234567890123)
			}), false)...)

			Expect(c.DataReceived(in)).To(Succeed())
			Expect(c.State()).To(Equal(protocol.StateStatus))

			p := newPeer(t)

			resp := p.mustNext()
			Expect(resp.Type).To(Equal(uint32(0x00)))

			doc := readString(resp.Body)
			Expect(gjson.Get(doc, "version.protocol").Int()).To(BeEquivalentTo(47))
			Expect(gjson.Get(doc, "version.name").String()).To(Equal(protocol.VersionName))
			Expect(gjson.Get(doc, "players.online").Int()).To(BeEquivalentTo(3))
			Expect(gjson.Get(doc, "players.max").Int()).To(BeEquivalentTo(20))
			Expect(gjson.Get(doc, "description.text").String()).To(Equal("A lodestone server"))
			Expect(gjson.Get(doc, "favicon").Exists()).To(BeFalse())

			pong := p.mustNext()
			Expect(pong.Type).To(Equal(uint32(0x01)))
			ts, err := pong.Body.ReadInt64()
			Expect(err).NotTo(HaveOccurred())
			Expect(ts).To(BeEquivalentTo(1234567890123))

			p.expectNothing()
		})
	})

	Describe("DataReceived", func() {
		It("logs in no matter where the input is split", func() {
			in := append(handshake(protocol.ProtocolVersion, 2), loginStart("Steve")...)

			for i := 0; i <= len(in); i++ {
				rec := &recorder{}
				t := &fakeTransport{}
				c := protocol.NewConn(context.Background(), protocol.Options{Transport: t, Handler: rec})

				Expect(c.DataReceived(in[:i])).To(Succeed())
				Expect(c.DataReceived(in[i:])).To(Succeed())

				Expect(c.State()).To(Equal(protocol.StatePlay), "split at %d", i)
				Expect(rec.Logins()).To(HaveLen(1), "split at %d", i)
				Expect(rec.Logins()[0].Name).To(Equal("Steve"))
			}
		})

		It("feeds one byte at a time", func() {
			in := append(handshake(protocol.ProtocolVersion, 2), loginStart("Alex")...)

			for _, b := range in {
				Expect(c.DataReceived([]byte{b})).To(Succeed())
			}

			Expect(rec.Logins()).To(HaveLen(1))
			Expect(c.Name()).To(Equal("Alex"))

			profile, ok := c.Profile()
			Expect(ok).To(BeTrue())
			Expect(profile.Name).To(Equal("Alex"))
		})

		It("keeps going after an unknown packet", func() {
			rec := &recorder{}
			c, _, _ := playConn(rec)

			in := framed(packet(0x30, func(w *codec.Writer) { w.WriteRaw([]byte{1, 2, 3}) }), true)
			in = append(in, chatMessage("hi")...)

			Expect(c.DataReceived(in)).To(Succeed())
			Expect(rec.unknown).To(Equal([]uint32{0x30}))
			Expect(rec.chats).To(Equal([]string{"hi"}))
			Expect(rec.packetErrors).To(BeEmpty())
		})

		It("reports a body that is too short without calling the handler", func() {
			rec := &recorder{}
			c, _, _ := playConn(rec)

			in := framed(packet(protocol.ChatMessageID, func(w *codec.Writer) {
				w.WriteVarUInt32(10)
				w.WriteRaw([]byte("ab"))
			}), true)
			in = append(in, chatMessage("after")...)

			Expect(c.DataReceived(in)).To(Succeed())
			Expect(rec.chats).To(Equal([]string{"after"}))
			Expect(rec.packetErrors).To(HaveLen(1))
			Expect(errors.Is(rec.packetErrors[0], protocol.ErrPacketLength)).To(BeTrue())
			Expect(errors.Is(rec.packetErrors[0], codec.ErrTruncated)).To(BeTrue())
			Expect(c.State()).To(Equal(protocol.StatePlay))
		})

		It("reports leftover bytes after the handler ran", func() {
			rec := &recorder{}
			c, _, _ := playConn(rec)

			in := framed(packet(protocol.KeepAliveID, func(w *codec.Writer) {
				w.WriteVarUInt32(7)
				w.WriteRaw([]byte{1, 2})
			}), true)

			Expect(c.DataReceived(in)).To(Succeed())
			Expect(rec.keepAlives).To(Equal([]uint32{7}))
			Expect(rec.packetErrors).To(HaveLen(1))
			Expect(errors.Is(rec.packetErrors[0], protocol.ErrPacketLength)).To(BeTrue())
			Expect(rec.packetErrors[0].Error()).To(ContainSubstring("2 bytes left"))
		})

		It("reports an empty packet and continues", func() {
			rec := &recorder{}
			c, _, _ := playConn(rec)

			in := []byte{0x01, 0x00}
			in = append(in, chatMessage("still here")...)

			Expect(c.DataReceived(in)).To(Succeed())
			Expect(rec.packetErrors).To(HaveLen(1))
			Expect(rec.chats).To(Equal([]string{"still here"}))
		})

		It("drops all input once errored", func() {
			rec := &recorder{}
			c, t, p := playConn(rec)

			c.Kick("bye")
			Expect(c.State()).To(Equal(protocol.StateErrored))
			Expect(t.Disconnected()).To(BeTrue())

			disconnect := p.mustNext()
			Expect(disconnect.Type).To(Equal(uint32(0x40)))
			Expect(chat.Plain(readString(disconnect.Body))).To(Equal("bye"))

			Expect(c.DataReceived(chatMessage("ignored"))).To(Succeed())
			Expect(rec.chats).To(BeEmpty())
			Expect(rec.Disconnects()).To(Equal([]string{"bye"}))

			Expect(c.SendChat("late", protocol.ChatSystem)).To(MatchError(protocol.ErrClosed))
			p.expectNothing()
		})

		It("kicks on a frame that fails to inflate", func() {
			rec := &recorder{}
			c, t, p := playConn(rec)

			body := codec.AppendVarUInt32(nil, 300)
			body = append(body, 1, 2, 3, 4)
			in := append(codec.AppendVarUInt32(nil, uint32(len(body))), body...)

			err := c.DataReceived(in)

			var fatal *protocol.FatalError
			Expect(errors.As(err, &fatal)).To(BeTrue())
			Expect(fatal.Reason).To(Equal("Compression failure"))

			disconnect := p.mustNext()
			Expect(disconnect.Type).To(Equal(uint32(0x40)))
			Expect(chat.Plain(readString(disconnect.Body))).To(Equal("Compression failure"))

			Expect(t.Disconnected()).To(BeTrue())
			Expect(c.State()).To(Equal(protocol.StateErrored))
			Expect(rec.Disconnects()).To(Equal([]string{"Compression failure"}))
		})

		It("kicks on a declared size above the limit", func() {
			rec := &recorder{}
			c, _, _ := playConn(rec)

			body := codec.AppendVarUInt32(nil, 1<<22)
			body = append(body, 0)
			in := append(codec.AppendVarUInt32(nil, uint32(len(body))), body...)

			var fatal *protocol.FatalError
			Expect(errors.As(c.DataReceived(in), &fatal)).To(BeTrue())
			Expect(fatal.Reason).To(Equal("Bad compression"))
		})

		It("kicks when the unframed input outgrows the receive buffer", func() {
			c := protocol.NewConn(context.Background(), protocol.Options{
				Transport:     t,
				Handler:       rec,
				ReceiveBuffer: 16,
			})

			in := append(codec.AppendVarUInt32(nil, 100), make([]byte, 20)...)

			var fatal *protocol.FatalError
			Expect(errors.As(c.DataReceived(in), &fatal)).To(BeTrue())
			Expect(fatal.Reason).To(Equal(protocol.ErrBufferFull.Error()))
			Expect(t.Disconnected()).To(BeTrue())

			// no disconnect packet exists while handshaking
			Expect(t.Bytes()).To(BeEmpty())
		})

		It("stops reading after an unknown next state", func() {
			in := handshake(protocol.ProtocolVersion, 5)
			in = append(in, loginStart("Steve")...)

			Expect(c.DataReceived(in)).To(Succeed())
			Expect(c.State()).To(Equal(protocol.StateErrored))
			Expect(rec.Logins()).To(BeEmpty())
		})
	})

	Describe("Closed", func() {
		It("tells the handler once", func() {
			c.Closed("EOF")
			c.Closed("again")
			c.Kick("too late")

			Expect(rec.Disconnects()).To(Equal([]string{"EOF"}))
			Expect(t.Disconnected()).To(BeFalse())
			Expect(c.Context().Err()).To(HaveOccurred())
		})
	})
})
