package entity_test

import (
	. "github.com/onsi/ginkgo"
	"github.com/onsi/ginkgo/extensions/table"
	. "github.com/onsi/gomega"

	"github.com/luma/lodestone/codec"
	"github.com/luma/lodestone/entity"
	"github.com/luma/lodestone/item"
	"github.com/luma/lodestone/nbt"
)

func encodeMetadata(e *entity.Entity) []byte {
	w := codec.NewWriter()
	Expect(entity.WriteMetadata(w, e.Metadata())).To(Succeed())
	return w.Bytes()
}

var _ = Describe("entity", func() {
	Describe("metadata", func() {
		It("always starts with the common flags and ends with the terminator", func() {
			e := &entity.Entity{OnFire: true, Sprinting: true, Invisible: true}

			Expect(encodeMetadata(e)).To(Equal([]byte{0x00, 0x29, 0x7f}))
		})

		table.DescribeTable("writes mob entries with kind specific keys",
			func(kind entity.Kind, expected []byte) {
				e := &entity.Entity{Kind: kind, Health: 10, MaxHealth: 20}
				Expect(encodeMetadata(e)).To(Equal(append(append([]byte{0x00, 0x00}, expected...), 0x7f)))
			},
			table.Entry("bat", entity.Bat{Hanging: true}, []byte{0x10, 0x01}),
			table.Entry("idle creeper", entity.Creeper{}, []byte{0x10, 0xff, 0x11, 0x00}),
			table.Entry("skeleton", entity.Skeleton{Wither: true}, []byte{0x0d, 0x01}),
			table.Entry("sheared sheep", entity.Sheep{Color: 3, Sheared: true}, []byte{0x10, 0x13}),
			table.Entry("witch", entity.Witch{Angry: true}, []byte{0x15, 0x01}),
			table.Entry("enderman", entity.Enderman{CarriedBlock: 2, CarriedMeta: 1},
				[]byte{0x30, 0x00, 0x02, 0x11, 0x01, 0x12, 0x00}),
			table.Entry("villager", entity.Villager{Profession: 3}, []byte{0x50, 0x00, 0x00, 0x00, 0x03}),
			table.Entry("zombie", entity.Zombie{Baby: true},
				[]byte{0x0c, 0x01, 0x0d, 0x00, 0x0e, 0x00}),
			table.Entry("cow", entity.GenericMob{Type: entity.MobCow}, []byte{}),
		)

		It("writes wolf health as a float", func() {
			e := &entity.Entity{Health: 8, Kind: entity.Wolf{Tame: true, Sitting: true, CollarColor: 14}}

			Expect(encodeMetadata(e)).To(Equal([]byte{
				0x00, 0x00,
				0x10, 0x05,
				0x72, 0x41, 0x00, 0x00, 0x00,
				0x13, 0x00,
				0x14, 0x0e,
				0x7f,
			}))
		})

		It("packs horse flags and appearance", func() {
			e := &entity.Entity{Kind: entity.Horse{Tame: true, Saddled: true, MouthOpen: true, HorseType: 1, Color: 2, Style: 3, Armour: 1}}

			entries, err := entity.ReadMetadata(codec.NewBuffer(encodeMetadata(e)))
			Expect(err).To(Succeed())
			Expect(entries).To(Equal([]entity.MetadataEntry{
				entity.ByteEntry(0, 0),
				entity.IntEntry(16, 0x86),
				entity.ByteEntry(19, 1),
				entity.IntEntry(20, 0x0302),
				entity.IntEntry(22, 1),
			}))
		})

		It("writes a rideable minecart's content block", func() {
			e := &entity.Entity{
				Health:    6,
				MaxHealth: 6,
				Kind: entity.Minecart{
					LastDamage:  2,
					Content:     item.Item{Type: 54, Count: 1, Damage: 2},
					BlockHeight: 6,
				},
			}

			entries, err := entity.ReadMetadata(codec.NewBuffer(encodeMetadata(e)))
			Expect(err).To(Succeed())
			Expect(entries).To(Equal([]entity.MetadataEntry{
				entity.ByteEntry(0, 0),
				entity.IntEntry(17, 0),
				entity.IntEntry(18, 1),
				entity.FloatEntry(19, 12),
				entity.IntEntry(20, 54|2<<8),
				entity.IntEntry(21, 6),
				entity.ByteEntry(22, 1),
			}))
		})

		It("round trips slots for pickups and item frames", func() {
			sword := item.Item{Type: 276, Count: 1, CustomName: "Blade"}

			pickup := &entity.Entity{Kind: entity.Pickup{Item: sword}}
			entries, err := entity.ReadMetadata(codec.NewBuffer(encodeMetadata(pickup)))
			Expect(err).To(Succeed())
			Expect(entries).To(HaveLen(2))
			Expect(entries[1]).To(Equal(entity.SlotEntry(10, sword)))

			frame := &entity.Entity{Kind: entity.ItemFrame{Item: sword, Rotation: 3}}
			entries, err = entity.ReadMetadata(codec.NewBuffer(encodeMetadata(frame)))
			Expect(err).To(Succeed())
			Expect(entries[1:]).To(Equal([]entity.MetadataEntry{
				entity.SlotEntry(8, sword),
				entity.ByteEntry(9, 3),
			}))
		})

		It("reports a missing terminator as truncation", func() {
			_, err := entity.ReadMetadata(codec.NewBuffer([]byte{0x00, 0x01}))
			Expect(err).To(MatchError(codec.ErrTruncated))
		})
	})

	Describe("mob types", func() {
		It("exposes spawn ids and vanilla names", func() {
			var mob entity.Mob = entity.Horse{}
			Expect(mob.MobType()).To(Equal(entity.MobHorse))
			Expect(entity.MobHorse.VanillaName()).To(Equal("EntityHorse"))
			Expect(entity.MobType(1).VanillaName()).To(BeEmpty())

			e := &entity.Entity{Kind: entity.Creeper{}}
			Expect(e.IsMob()).To(BeTrue())

			e.Kind = entity.Arrow{}
			Expect(e.IsMob()).To(BeFalse())
		})
	})

	Describe("block entities", func() {
		It("encodes a mob spawner", func() {
			data, err := entity.EncodeBlockEntity(entity.MobSpawner{
				Pos:   codec.Position{X: 1, Y: 2, Z: 3},
				Mob:   entity.MobZombiePigman,
				Delay: 20,
			})
			Expect(err).To(Succeed())

			root, err := nbt.Parse(data)
			Expect(err).To(Succeed())
			Expect(root.Child("x").Int()).To(Equal(int32(1)))
			Expect(root.Child("EntityId").Text()).To(Equal("PigZombie"))
			Expect(root.Child("Delay").Short()).To(Equal(int16(20)))
			Expect(root.Child("id").Text()).To(Equal("MobSpawner"))
		})

		It("adds the last output of a command block as a text component", func() {
			data, err := entity.EncodeBlockEntity(entity.CommandBlock{Command: "say hi", LastOutput: "hi"})
			Expect(err).To(Succeed())

			root, err := nbt.Parse(data)
			Expect(err).To(Succeed())
			Expect(root.Child("LastOutput").Text()).To(MatchJSON(`{"text":"hi"}`))
			Expect(root.Child("CustomName").Text()).To(Equal("@"))
		})

		table.DescribeTable("assigns update actions",
			func(be entity.BlockEntity, action uint8) {
				Expect(be.Action()).To(Equal(action))
			},
			table.Entry("spawner", entity.MobSpawner{}, uint8(1)),
			table.Entry("command block", entity.CommandBlock{}, uint8(2)),
			table.Entry("beacon", entity.Beacon{}, uint8(3)),
			table.Entry("head", entity.MobHead{}, uint8(4)),
			table.Entry("flower pot", entity.FlowerPot{}, uint8(5)),
		)
	})
})
