package item_test

import (
	"errors"

	. "github.com/onsi/ginkgo"
	"github.com/onsi/ginkgo/extensions/table"
	. "github.com/onsi/gomega"

	"github.com/luma/lodestone/codec"
	"github.com/luma/lodestone/item"
)

func encode(it item.Item) []byte {
	w := codec.NewWriter()
	Expect(item.Write(w, it)).To(Succeed())
	return w.Bytes()
}

var _ = Describe("item", func() {
	table.DescribeTable("writes absent stacks as FF FF",
		func(it item.Item) {
			Expect(encode(it)).To(Equal([]byte{0xff, 0xff}))
		},
		table.Entry("empty sentinel", item.Empty),
		table.Entry("zero count", item.Item{Type: 1, Count: 0, Damage: 3, CustomName: "ignored"}),
		table.Entry("negative count", item.Item{Type: 276, Count: -4}),
		table.Entry("air", item.Item{Type: 0, Count: 10}),
	)

	It("reads the sentinel back as absent", func() {
		it, err := item.Read(codec.NewBuffer([]byte{0xff, 0xff}), 0)
		Expect(err).To(Succeed())
		Expect(it.IsEmpty()).To(BeTrue())
	})

	It("writes a plain stack with an empty metadata marker", func() {
		Expect(encode(item.Item{Type: 1, Count: 64, Damage: 2})).To(Equal([]byte{
			0x00, 0x01,
			0x40,
			0x00, 0x02,
			0x00,
		}))
	})

	It("round trips enchantments, name and lore", func() {
		in := item.Item{
			Type:         276,
			Count:        1,
			Damage:       12,
			Enchantments: []item.Enchantment{{ID: 16, Level: 5}, {ID: 34, Level: 3}},
			CustomName:   "Excalibur",
			Lore:         []string{"first", "second"},
			RepairCost:   7,
		}

		data := encode(in)
		Expect(data[5]).To(Equal(byte(0x0a)))

		out, err := item.Read(codec.NewBuffer(data), 0)
		Expect(err).To(Succeed())
		Expect(out).To(Equal(in))
	})

	It("stores enchanted book enchantments under StoredEnchantments", func() {
		in := item.Item{Type: item.EnchantedBook, Count: 1, Enchantments: []item.Enchantment{{ID: 0, Level: 4}}}

		meta, err := item.EncodeMetadata(in)
		Expect(err).To(Succeed())
		Expect(string(meta)).To(ContainSubstring("StoredEnchantments"))

		out, err := item.Read(codec.NewBuffer(encode(in)), 0)
		Expect(err).To(Succeed())
		Expect(out.Enchantments).To(Equal(in.Enchantments))
	})

	It("round trips firework rockets and stars", func() {
		rocket := item.Item{
			Type:  item.FireworkRocket,
			Count: 3,
			Firework: &item.Firework{
				Flight: 2,
				Explosions: []item.Explosion{
					{Flicker: true, Shape: 1, Colors: []int32{0xff0000}},
					{Trail: true, Shape: 4, Colors: []int32{1, 2}, FadeColors: []int32{3}},
				},
			},
		}

		out, err := item.Read(codec.NewBuffer(encode(rocket)), 0)
		Expect(err).To(Succeed())
		Expect(out).To(Equal(rocket))

		star := item.Item{
			Type:     item.FireworkStar,
			Count:    1,
			Firework: &item.Firework{Explosions: []item.Explosion{{Shape: 2, Colors: []int32{5}}}},
		}

		out, err = item.Read(codec.NewBuffer(encode(star)), 0)
		Expect(err).To(Succeed())
		Expect(out).To(Equal(star))
	})

	It("leaves the kept bytes for the fields that follow", func() {
		w := codec.NewWriter()
		Expect(item.Write(w, item.Item{Type: 5, Count: 1, CustomName: "x"})).To(Succeed())
		w.WriteRaw([]byte{7, 8, 9})

		buf := codec.NewBuffer(w.Bytes())
		it, err := item.Read(buf, 3)
		Expect(err).To(Succeed())
		Expect(it.CustomName).To(Equal("x"))
		Expect(buf.ReadAll()).To(Equal([]byte{7, 8, 9}))
	})

	It("keeps the item when its metadata is malformed", func() {
		data := []byte{0x00, 0x05, 0x01, 0x00, 0x00, 0x0a, 0x00, 0x00, 0x01}

		it, err := item.Read(codec.NewBuffer(data), 0)
		Expect(it.Type).To(Equal(int16(5)))
		Expect(it.Count).To(Equal(int8(1)))

		var metaErr *item.MetadataError
		Expect(errors.As(err, &metaErr)).To(BeTrue())
		Expect(metaErr.Type).To(Equal(int16(5)))
	})

	It("consumes metadata of zero count stacks and returns them absent", func() {
		w := codec.NewWriter()
		w.WriteInt16(276)
		w.WriteInt8(0)
		w.WriteInt16(0)
		meta, err := item.EncodeMetadata(item.Item{Type: 276, CustomName: "gone"})
		Expect(err).To(Succeed())
		w.WriteRaw(meta)

		buf := codec.NewBuffer(w.Bytes())
		it, err := item.Read(buf, 0)
		Expect(err).To(Succeed())
		Expect(it.IsEmpty()).To(BeTrue())
		Expect(buf.Remaining()).To(BeZero())
	})

	It("reports truncation inside the header", func() {
		_, err := item.Read(codec.NewBuffer([]byte{0x00, 0x05, 0x01}), 0)
		Expect(err).To(MatchError(codec.ErrTruncated))
	})
})
