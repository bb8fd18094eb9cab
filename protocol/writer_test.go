package protocol_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/tidwall/gjson"

	"github.com/luma/lodestone/chat"
	"github.com/luma/lodestone/codec"
	"github.com/luma/lodestone/entity"
	"github.com/luma/lodestone/item"
	"github.com/luma/lodestone/protocol"
)

var _ = Describe("Writer", func() {
	var (
		c *protocol.Conn
		t *fakeTransport
		p *peer
	)

	BeforeEach(func() {
		c, t, p = playConn(&recorder{})
	})

	It("never interleaves packets written concurrently", func() {
		const writers, each = 8, 50

		var wg sync.WaitGroup
		for g := 0; g < writers; g++ {
			wg.Add(1)
			go func(g int) {
				defer GinkgoRecover()
				defer wg.Done()

				for i := 0; i < each; i++ {
					Expect(c.SendChat(fmt.Sprintf("message %d from %d", i, g), protocol.ChatPlayer)).To(Succeed())
				}
			}(g)
		}
		wg.Wait()

		seen := map[string]bool{}
		for _, r := range p.all() {
			Expect(r.Type).To(Equal(uint32(0x02)))

			msg := chat.Plain(readString(r.Body))
			Expect(msg).To(HavePrefix("message "))
			seen[msg] = true
		}

		Expect(seen).To(HaveLen(writers * each))
	})

	It("sends nothing when building a packet fails", func() {
		boom := errors.New("boom")

		err := c.WritePacket(0x02, func(w *codec.Writer) error {
			w.WriteString("half a packet")
			return boom
		})
		Expect(errors.Is(err, boom)).To(BeTrue())
		p.expectNothing()

		Expect(c.SendChat("whole", protocol.ChatSystem)).To(Succeed())

		r := p.mustNext()
		Expect(chat.Plain(readString(r.Body))).To(Equal("whole"))
		pos, err := r.Body.ReadInt8()
		Expect(err).NotTo(HaveOccurred())
		Expect(pos).To(BeEquivalentTo(protocol.ChatSystem))
		p.expectNothing()
	})

	It("compresses payloads above the threshold", func() {
		long := strings.Repeat("lodestone ", 100)
		Expect(c.SendChat(long, protocol.ChatPlayer)).To(Succeed())

		Expect(chat.Plain(readString(p.mustNext().Body))).To(Equal(long))
		Expect(len(t.Bytes())).To(BeNumerically("<", len(long)))
	})

	Describe("state dependent packets", func() {
		var (
			c *protocol.Conn
			t *fakeTransport
		)

		BeforeEach(func() {
			t = &fakeTransport{}
			c = protocol.NewConn(context.Background(), protocol.Options{Transport: t})
		})

		It("drops keep-alives before play", func() {
			Expect(c.SendKeepAlive(1)).To(Succeed())
			Expect(t.Bytes()).To(BeEmpty())
		})

		It("has no disconnect packet in the status state", func() {
			Expect(c.DataReceived(handshake(protocol.ProtocolVersion, 1))).To(Succeed())

			Expect(c.SendDisconnect("bye")).To(Succeed())
			Expect(t.Bytes()).To(BeEmpty())
		})
	})

	Describe("layouts", func() {
		It("freezes the clock with a negative time of day", func() {
			Expect(c.SendTimeUpdate(100, 6000, false)).To(Succeed())
			Expect(c.SendTimeUpdate(100, 0, false)).To(Succeed())
			Expect(c.SendTimeUpdate(100, 6000, true)).To(Succeed())

			for _, want := range []int64{-6000, -1, 6000} {
				r := p.mustNext()
				Expect(r.Type).To(Equal(uint32(0x03)))

				age, _ := r.Body.ReadInt64()
				tod, _ := r.Body.ReadInt64()
				Expect(age).To(BeEquivalentTo(100))
				Expect(tod).To(Equal(want))
			}
		})

		It("moves item frames onto the wall they hang from", func() {
			e := &entity.Entity{
				ID:       9,
				Position: entity.Vector3{X: 10.5, Y: 64, Z: 3.5},
				Kind:     entity.ItemFrame{Facing: 1},
			}
			Expect(c.SendSpawnItemFrame(e)).To(Succeed())

			r := p.mustNext()
			Expect(r.Type).To(Equal(uint32(0x0e)))
			Expect(readVarInt(r.Body)).To(BeEquivalentTo(9))

			objectType, _ := r.Body.ReadUint8()
			Expect(objectType).To(Equal(protocol.ObjectItemFrame))

			x, _ := r.Body.ReadInt32()
			y, _ := r.Body.ReadInt32()
			z, _ := r.Body.ReadInt32()
			Expect([]int32{x, y, z}).To(Equal([]int32{304, 2048, 112}))

			pitch, _ := r.Body.ReadUint8()
			yaw, _ := r.Body.ReadUint8()
			Expect(pitch).To(BeEquivalentTo(0))
			Expect(yaw).To(BeEquivalentTo(64))

			data, _ := r.Body.ReadInt32()
			Expect(data).To(BeEquivalentTo(1))

			// non zero data carries the velocity
			Expect(r.Body.Remaining()).To(Equal(6))
		})

		It("rejects an entity of the wrong kind", func() {
			err := c.SendSpawnItemFrame(&entity.Entity{Kind: entity.Minecart{}})
			Expect(errors.Is(err, protocol.ErrWrongKind)).To(BeTrue())
			p.expectNothing()
		})

		It("adds the item data to crack particles", func() {
			Expect(c.SendParticle(protocol.Particle{Name: "iconCrack", Count: 4, Data: [2]int32{280, 3}})).To(Succeed())
			Expect(c.SendParticle(protocol.Particle{Name: "no such particle", Count: 1})).To(Succeed())

			crack := p.mustNext()
			Expect(crack.Type).To(Equal(uint32(0x2a)))
			id, _ := crack.Body.ReadInt32()
			Expect(id).To(BeEquivalentTo(protocol.ParticleIconCrack))
			Expect(crack.Body.Skip(1 + 6*4 + 4 + 4)).To(Succeed())
			Expect(readVarInt(crack.Body)).To(BeEquivalentTo(280))
			Expect(readVarInt(crack.Body)).To(BeEquivalentTo(3))
			Expect(crack.Body.Remaining()).To(BeZero())

			unknown := p.mustNext()
			id, _ = unknown.Body.ReadInt32()
			Expect(id).To(BeZero())
			Expect(unknown.Body.Remaining()).To(Equal(1 + 6*4 + 4 + 4))
		})

		It("only respawns into the same dimension when forced", func() {
			Expect(c.SendJoinGame(protocol.JoinGame{EntityID: 1, Dimension: protocol.DimensionOverworld})).To(Succeed())
			Expect(c.SendRespawn(protocol.DimensionOverworld, protocol.GameModeSurvival, false)).To(Succeed())
			Expect(c.SendRespawn(protocol.DimensionNether, protocol.GameModeSurvival, false)).To(Succeed())
			Expect(c.SendRespawn(protocol.DimensionNether, protocol.GameModeSurvival, true)).To(Succeed())

			join := p.mustNext()
			Expect(join.Type).To(Equal(uint32(0x01)))
			Expect(join.Body.Skip(4 + 1 + 1 + 1 + 1)).To(Succeed())
			Expect(readString(join.Body)).To(Equal("default"))

			for i := 0; i < 2; i++ {
				r := p.mustNext()
				Expect(r.Type).To(Equal(uint32(0x07)))
				dim, _ := r.Body.ReadInt32()
				Expect(dim).To(BeEquivalentTo(protocol.DimensionNether))
			}
			p.expectNothing()
		})

		It("marks creative players invulnerable", func() {
			Expect(c.SendPlayerAbilities(protocol.Abilities{Creative: true, CanFly: true, FlyingSpeed: 1, WalkingSpeed: 1})).To(Succeed())

			r := p.mustNext()
			Expect(r.Type).To(Equal(uint32(0x39)))
			flags, _ := r.Body.ReadUint8()
			Expect(flags).To(BeEquivalentTo(0x0d))
			fly, _ := r.Body.ReadFloat32()
			walk, _ := r.Body.ReadFloat32()
			Expect(fly).To(BeNumerically("~", 0.05, 1e-6))
			Expect(walk).To(BeNumerically("~", 0.1, 1e-6))
		})

		It("sends an empty slot as the type sentinel", func() {
			Expect(c.SendSetSlot(0, 36, item.Item{Type: 1, Count: 0})).To(Succeed())

			r := p.mustNext()
			Expect(r.Type).To(Equal(uint32(0x2f)))
			Expect(r.Body.ReadAll()).To(Equal([]byte{0x00, 0x00, 0x24, 0xff, 0xff}))
		})

		It("skips opening the player's own inventory", func() {
			Expect(c.SendOpenWindow(protocol.Window{ID: 0, Type: protocol.WindowInventory})).To(Succeed())
			Expect(c.SendOpenWindow(protocol.Window{ID: 2, Type: protocol.WindowWorkbench, Title: "Crafting", Slots: 10})).To(Succeed())

			r := p.mustNext()
			Expect(r.Type).To(Equal(uint32(0x2d)))
			id, _ := r.Body.ReadInt8()
			Expect(id).To(BeEquivalentTo(2))
			Expect(readString(r.Body)).To(Equal("minecraft:crafting_table"))
			Expect(chat.Plain(readString(r.Body))).To(Equal("Crafting"))

			slots, _ := r.Body.ReadUint8()
			Expect(slots).To(BeZero())
			p.expectNothing()
		})
	})

	Describe("StatusJSON", func() {
		It("embeds the favicon as a data url", func() {
			doc, err := protocol.StatusJSON(protocol.StatusInfo{
				Description: `say "hi"`,
				Max:         10,
				Favicon:     []byte{0x89, 'P', 'N', 'G'},
			})
			Expect(err).NotTo(HaveOccurred())

			Expect(gjson.Valid(doc)).To(BeTrue())
			Expect(gjson.Get(doc, "description.text").String()).To(Equal(`say "hi"`))
			Expect(gjson.Get(doc, "favicon").String()).To(HavePrefix("data:image/png;base64,"))
		})
	})
})
