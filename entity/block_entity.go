package entity

import (
	"github.com/luma/lodestone/chat"
	"github.com/luma/lodestone/codec"
	"github.com/luma/lodestone/item"
	"github.com/luma/lodestone/nbt"
)

// BlockEntity is a block with extra state the client renders, sent with
// the update block entity packet.
type BlockEntity interface {
	BlockPosition() codec.Position

	// Action is the update action code identifying the kind.
	Action() uint8

	writeTags(w *nbt.Writer)
}

// EncodeBlockEntity returns the tag tree of be.
func EncodeBlockEntity(be BlockEntity) ([]byte, error) {
	w := nbt.NewWriter()
	be.writeTags(w)
	return w.Finish()
}

func writePos(w *nbt.Writer, p codec.Position) {
	w.AddInt("x", int32(p.X))
	w.AddInt("y", int32(p.Y))
	w.AddInt("z", int32(p.Z))
}

type MobSpawner struct {
	Pos   codec.Position
	Mob   MobType
	Delay int16
}

func (b MobSpawner) BlockPosition() codec.Position { return b.Pos }
func (MobSpawner) Action() uint8                   { return 1 }

func (b MobSpawner) writeTags(w *nbt.Writer) {
	writePos(w, b.Pos)
	w.AddString("EntityId", b.Mob.VanillaName())
	w.AddShort("Delay", b.Delay)
	w.AddString("id", "MobSpawner")
}

type CommandBlock struct {
	Pos        codec.Position
	Command    string
	Result     int32
	LastOutput string
}

func (b CommandBlock) BlockPosition() codec.Position { return b.Pos }
func (CommandBlock) Action() uint8                   { return 2 }

func (b CommandBlock) writeTags(w *nbt.Writer) {
	w.AddByte("TrackOutput", 1)
	w.AddInt("SuccessCount", b.Result)
	writePos(w, b.Pos)
	w.AddString("Command", b.Command)
	w.AddString("CustomName", "@")
	w.AddString("id", "Control")

	if b.LastOutput != "" {
		w.AddString("LastOutput", chat.Text(b.LastOutput))
	}
}

type Beacon struct {
	Pos       codec.Position
	Primary   int32
	Secondary int32
	Levels    int32
}

func (b Beacon) BlockPosition() codec.Position { return b.Pos }
func (Beacon) Action() uint8                   { return 3 }

func (b Beacon) writeTags(w *nbt.Writer) {
	writePos(w, b.Pos)
	w.AddInt("Primary", b.Primary)
	w.AddInt("Secondary", b.Secondary)
	w.AddInt("Levels", b.Levels)
	w.AddString("id", "Beacon")
}

type MobHead struct {
	Pos      codec.Position
	Type     uint8
	Rotation uint8
	Owner    string
}

func (b MobHead) BlockPosition() codec.Position { return b.Pos }
func (MobHead) Action() uint8                   { return 4 }

func (b MobHead) writeTags(w *nbt.Writer) {
	writePos(w, b.Pos)
	w.AddByte("SkullType", int8(b.Type))
	w.AddByte("Rot", int8(b.Rotation))
	w.AddString("ExtraType", b.Owner)
	w.AddString("id", "Skull")
}

type FlowerPot struct {
	Pos  codec.Position
	Item item.Item
}

func (b FlowerPot) BlockPosition() codec.Position { return b.Pos }
func (FlowerPot) Action() uint8                   { return 5 }

func (b FlowerPot) writeTags(w *nbt.Writer) {
	writePos(w, b.Pos)
	w.AddInt("Item", int32(b.Item.Type))
	w.AddInt("Data", int32(b.Item.Damage))
	w.AddString("id", "FlowerPot")
}

