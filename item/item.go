// Package item encodes and decodes item stacks ("slots") together with the
// optional tag tree holding enchantments, display data and firework data.
package item

import (
	"fmt"

	"github.com/luma/lodestone/codec"
	"github.com/luma/lodestone/nbt"
)

const (
	// TypeEmpty marks an absent stack on the wire.
	TypeEmpty int16 = -1

	FireworkRocket int16 = 401
	FireworkStar   int16 = 402
	EnchantedBook  int16 = 403
)

type Enchantment struct {
	ID    int16
	Level int16
}

// Explosion describes one firework effect.
type Explosion struct {
	Flicker    bool
	Trail      bool
	Shape      int8
	Colors     []int32
	FadeColors []int32
}

// Firework is the extra data of rockets and stars. Stars only use the
// first explosion.
type Firework struct {
	Flight     int8
	Explosions []Explosion
}

type Item struct {
	Type   int16
	Count  int8
	Damage int16

	Enchantments []Enchantment
	CustomName   string
	Lore         []string
	RepairCost   int32

	Firework *Firework
}

// Empty is the absent stack.
var Empty = Item{Type: TypeEmpty}

// IsEmpty reports whether the stack is absent. A non-positive count makes
// any stack absent regardless of its type.
func (i Item) IsEmpty() bool {
	return i.Type <= 0 || i.Count <= 0
}

func (i Item) IsFirework() bool {
	return i.Type == FireworkRocket || i.Type == FireworkStar
}

// HasMetadata reports whether the stack needs a tag tree on the wire.
func (i Item) HasMetadata() bool {
	return len(i.Enchantments) > 0 ||
		i.CustomName != "" ||
		len(i.Lore) > 0 ||
		i.RepairCost != 0 ||
		i.IsFirework()
}

func (i Item) String() string {
	if i.IsEmpty() {
		return "item{empty}"
	}

	return fmt.Sprintf("item{type: %d, count: %d, damage: %d}", i.Type, i.Count, i.Damage)
}

// MetadataError is returned next to a usable item when the embedded tag
// tree could not be parsed. Callers log it and keep the item.
type MetadataError struct {
	Type int16
	Raw  []byte
	Err  error
}

func (e *MetadataError) Error() string {
	return fmt.Sprintf("item %d: cannot parse metadata (%d bytes): %v", e.Type, len(e.Raw), e.Err)
}

func (e *MetadataError) Unwrap() error {
	return e.Err
}

// Write encodes i. Empty stacks are written as the bare type sentinel.
func Write(w *codec.Writer, i Item) error {
	if i.IsEmpty() {
		w.WriteInt16(TypeEmpty)
		return nil
	}

	w.WriteInt16(i.Type)
	w.WriteInt8(i.Count)
	w.WriteInt16(i.Damage)

	if !i.HasMetadata() {
		w.WriteUint8(0)
		return nil
	}

	meta, err := EncodeMetadata(i)
	if err != nil {
		return err
	}

	w.WriteRaw(meta)
	return nil
}

// Read decodes a stack. The metadata blob runs to the end of b except for
// the last keep bytes, which belong to fields that follow the item.
//
// A stack with a non-positive count still has its metadata consumed, it
// is then returned as Empty.
func Read(b *codec.Buffer, keep int) (Item, error) {
	typ, err := b.ReadInt16()
	if err != nil {
		return Empty, err
	}

	if typ == TypeEmpty {
		return Empty, nil
	}

	count, err := b.ReadInt8()
	if err != nil {
		return Empty, err
	}

	damage, err := b.ReadInt16()
	if err != nil {
		return Empty, err
	}

	it := Item{Type: typ, Count: count, Damage: damage}

	n := b.Remaining() - keep
	if n < 0 {
		return Empty, codec.ErrTruncated
	}

	raw, err := b.ReadBytes(n)
	if err != nil {
		return Empty, err
	}

	var metaErr error
	if len(raw) > 0 && raw[0] != 0 {
		if err := DecodeMetadata(raw, &it); err != nil {
			metaErr = &MetadataError{Type: typ, Raw: raw, Err: err}
		}
	}

	if count <= 0 {
		return Empty, metaErr
	}

	return it, metaErr
}

// ReadStream decodes a stack that is followed by an unknown amount of
// data, such as a metadata slot entry. The tag tree is measured instead of
// assumed to run to a fixed offset.
func ReadStream(b *codec.Buffer) (Item, error) {
	mark := b.Mark()

	typ, err := b.ReadInt16()
	if err != nil {
		return Empty, err
	}

	if typ == TypeEmpty {
		return Empty, nil
	}

	count, err := b.ReadInt8()
	if err != nil {
		b.ResetTo(mark)
		return Empty, err
	}

	damage, err := b.ReadInt16()
	if err != nil {
		b.ResetTo(mark)
		return Empty, err
	}

	it := Item{Type: typ, Count: count, Damage: damage}

	first, err := b.Peek(1)
	if err != nil {
		b.ResetTo(mark)
		return Empty, err
	}

	if first[0] == 0 {
		_ = b.Skip(1)
	} else {
		rest, _ := b.Peek(b.Remaining())

		_, n, err := nbt.ParsePrefix(rest)
		if err != nil {
			// without a parsable tree there is no way to find where it ends
			b.ResetTo(mark)
			return Empty, &MetadataError{Type: typ, Raw: rest, Err: err}
		}

		raw, _ := b.ReadBytes(n)
		if err := DecodeMetadata(raw, &it); err != nil {
			return Empty, &MetadataError{Type: typ, Raw: raw, Err: err}
		}
	}

	if count <= 0 {
		return Empty, nil
	}

	return it, nil
}

// EncodeMetadata builds the tag tree carried after a stack's damage.
func EncodeMetadata(i Item) ([]byte, error) {
	w := nbt.NewWriter()

	if i.RepairCost != 0 {
		w.AddInt("RepairCost", i.RepairCost)
	}

	if len(i.Enchantments) > 0 {
		name := "ench"
		if i.Type == EnchantedBook {
			name = "StoredEnchantments"
		}

		w.BeginList(name, nbt.TagCompound)
		for _, e := range i.Enchantments {
			w.BeginCompound("")
			w.AddShort("id", e.ID)
			w.AddShort("lvl", e.Level)
			w.EndCompound()
		}
		w.EndList()
	}

	if i.CustomName != "" || len(i.Lore) > 0 {
		w.BeginCompound("display")
		if i.CustomName != "" {
			w.AddString("Name", i.CustomName)
		}

		if len(i.Lore) > 0 {
			w.BeginList("Lore", nbt.TagString)
			for _, l := range i.Lore {
				w.AddString("", l)
			}
			w.EndList()
		}
		w.EndCompound()
	}

	if i.IsFirework() {
		fw := i.Firework
		if fw == nil {
			fw = &Firework{}
		}

		writeFirework(w, i.Type, fw)
	}

	return w.Finish()
}

func writeFirework(w *nbt.Writer, typ int16, fw *Firework) {
	if typ == FireworkStar {
		var e Explosion
		if len(fw.Explosions) > 0 {
			e = fw.Explosions[0]
		}

		w.BeginCompound("Explosion")
		writeExplosion(w, e)
		w.EndCompound()
		return
	}

	w.BeginCompound("Fireworks")
	w.AddByte("Flight", fw.Flight)
	w.BeginList("Explosions", nbt.TagCompound)
	for _, e := range fw.Explosions {
		w.BeginCompound("")
		writeExplosion(w, e)
		w.EndCompound()
	}
	w.EndList()
	w.EndCompound()
}

func writeExplosion(w *nbt.Writer, e Explosion) {
	w.AddByte("Flicker", boolByte(e.Flicker))
	w.AddByte("Trail", boolByte(e.Trail))
	w.AddByte("Type", e.Shape)

	if len(e.Colors) > 0 {
		w.AddIntArray("Colors", e.Colors)
	}

	if len(e.FadeColors) > 0 {
		w.AddIntArray("FadeColors", e.FadeColors)
	}
}

// DecodeMetadata parses a tag tree into the optional fields of i. Unknown
// tags are ignored.
func DecodeMetadata(raw []byte, i *Item) error {
	root, err := nbt.Parse(raw)
	if err != nil {
		return err
	}

	for _, tag := range root.Children {
		switch tag.Name {
		case "ench", "StoredEnchantments":
			for _, e := range tag.Children {
				id, _ := e.Child("id").Integer()
				lvl, _ := e.Child("lvl").Integer()
				i.Enchantments = append(i.Enchantments, Enchantment{ID: int16(id), Level: int16(lvl)})
			}

		case "display":
			if name := tag.Child("Name"); name != nil {
				i.CustomName = name.Text()
			}

			if lore := tag.Child("Lore"); lore != nil {
				for _, l := range lore.Children {
					i.Lore = append(i.Lore, l.Text())
				}
			}

		case "RepairCost":
			v, _ := tag.Integer()
			i.RepairCost = int32(v)

		case "Fireworks":
			fw := &Firework{Flight: tag.Child("Flight").Byte()}
			if list := tag.Child("Explosions"); list != nil {
				for _, e := range list.Children {
					fw.Explosions = append(fw.Explosions, readExplosion(e))
				}
			}
			i.Firework = fw

		case "Explosion":
			i.Firework = &Firework{Explosions: []Explosion{readExplosion(tag)}}
		}
	}

	return nil
}

func readExplosion(t *nbt.Tag) Explosion {
	return Explosion{
		Flicker:    t.Child("Flicker").Byte() != 0,
		Trail:      t.Child("Trail").Byte() != 0,
		Shape:      t.Child("Type").Byte(),
		Colors:     t.Child("Colors").IntArray(),
		FadeColors: t.Child("FadeColors").IntArray(),
	}
}

func boolByte(b bool) int8 {
	if b {
		return 1
	}

	return 0
}
