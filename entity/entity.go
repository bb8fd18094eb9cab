// Package entity holds the protocol's view of entities, mobs and block
// entities: the fields their encoders need and nothing else.
//
// Entity kinds are a closed set of variants. Each variant produces its own
// metadata entries, so encoders never switch on a concrete type.
package entity

import (
	"github.com/luma/lodestone/codec"
	"github.com/luma/lodestone/item"
)

type Vector3 struct {
	X, Y, Z float64
}

// Entity is anything the client tracks by id.
type Entity struct {
	ID uint32

	Position Vector3

	// Speed is in blocks per second.
	Speed Vector3

	Yaw, Pitch, HeadYaw float64
	OnGround            bool

	OnFire        bool
	Crouched      bool
	Sprinting     bool
	RightClicking bool
	Invisible     bool

	Health    float32
	MaxHealth float32

	Kind Kind
}

// Kind is the variant part of an entity. Only types in this package
// implement it.
type Kind interface {
	metadata(e *Entity) []MetadataEntry
}

// Flag bits of the common metadata byte at index 0.
const (
	FlagOnFire        = 0x01
	FlagCrouched      = 0x02
	FlagSprinting     = 0x08
	FlagRightClicking = 0x10
	FlagInvisible     = 0x20
)

// Flags returns the common metadata byte.
func (e *Entity) Flags() uint8 {
	var f uint8

	if e.OnFire {
		f |= FlagOnFire
	}

	if e.Crouched {
		f |= FlagCrouched
	}

	if e.Sprinting {
		f |= FlagSprinting
	}

	if e.RightClicking {
		f |= FlagRightClicking
	}

	if e.Invisible {
		f |= FlagInvisible
	}

	return f
}

// Metadata returns the entity's metadata entries in wire order, starting
// with the common flags.
func (e *Entity) Metadata() []MetadataEntry {
	entries := []MetadataEntry{ByteEntry(0, e.Flags())}

	if e.Kind != nil {
		entries = append(entries, e.Kind.metadata(e)...)
	}

	return entries
}

// IsMob reports whether the entity is a mob of any type.
func (e *Entity) IsMob() bool {
	_, ok := e.Kind.(Mob)
	return ok
}

// Player is another player seen by the client.
type Player struct {
	Name string
	UUID codec.UUID

	// EquippedType is the held item type, 0 when the hand is empty.
	EquippedType int16
}

func (Player) metadata(*Entity) []MetadataEntry { return nil }

// Pickup is a dropped item stack.
type Pickup struct {
	Item item.Item
}

func (p Pickup) metadata(*Entity) []MetadataEntry {
	return []MetadataEntry{SlotEntry(10, p.Item)}
}

type MinecartPayload uint8

const (
	MinecartRideable MinecartPayload = 0
	MinecartChest    MinecartPayload = 1
	MinecartFurnace  MinecartPayload = 2
	MinecartTNT      MinecartPayload = 3
	MinecartHopper   MinecartPayload = 5
)

type Minecart struct {
	Payload    MinecartPayload
	LastDamage int32

	// Content and BlockHeight describe the block shown inside a rideable
	// minecart.
	Content     item.Item
	BlockHeight int32

	// Fueled applies to furnace minecarts.
	Fueled bool
}

func (m Minecart) metadata(e *Entity) []MetadataEntry {
	half := e.MaxHealth / 2

	// less health left or more damage taken makes the cart shake harder
	shake := int32((half - (e.Health - half)) * float32(m.LastDamage) * 4)

	entries := []MetadataEntry{
		IntEntry(17, shake),
		IntEntry(18, 1),
		FloatEntry(19, float32(m.LastDamage+10)),
	}

	switch m.Payload {
	case MinecartRideable:
		if !m.Content.IsEmpty() {
			entries = append(entries,
				IntEntry(20, int32(m.Content.Type)|int32(m.Content.Damage)<<8),
				IntEntry(21, m.BlockHeight),
				ByteEntry(22, 1),
			)
		}

	case MinecartFurnace:
		entries = append(entries, ByteEntry(16, boolByte(m.Fueled)))
	}

	return entries
}

type Arrow struct {
	Critical bool
}

func (a Arrow) metadata(*Entity) []MetadataEntry {
	return []MetadataEntry{ByteEntry(16, boolByte(a.Critical))}
}

// FireworkRocket is a launched rocket. Item carries its flight data.
type FireworkRocket struct {
	Item item.Item
}

func (f FireworkRocket) metadata(*Entity) []MetadataEntry {
	return []MetadataEntry{SlotEntry(8, f.Item)}
}

type ItemFrame struct {
	Item     item.Item
	Rotation uint8

	// Facing is the object data sent on spawn, 0 to 3.
	Facing int32
}

func (f ItemFrame) metadata(*Entity) []MetadataEntry {
	return []MetadataEntry{
		SlotEntry(8, f.Item),
		ByteEntry(9, f.Rotation),
	}
}

func boolByte(b bool) uint8 {
	if b {
		return 1
	}

	return 0
}
