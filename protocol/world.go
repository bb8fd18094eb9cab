package protocol

import (
	"go.uber.org/zap"

	"github.com/luma/lodestone/chat"
	"github.com/luma/lodestone/codec"
	"github.com/luma/lodestone/entity"
)

// BlockChange is one block of a multi block change, relative to its chunk.
type BlockChange struct {
	RelX, RelY, RelZ uint8
	Type             uint16
	Meta             uint8
}

// Particle is one particle effect. Data holds the extra values of the
// crack and dust particles.
type Particle struct {
	Name     string
	Src      [3]float32
	Offset   [3]float32
	Speed    float32
	Count    int32
	LongDist bool
	Data     [2]int32
}

// MapDecorator is an icon drawn on a map.
type MapDecorator struct {
	Type     uint8
	Rotation uint8
	X, Z     uint8
}

// SendUnloadChunk tells the client to forget a chunk column.
func (c *Conn) SendUnloadChunk(chunkX, chunkZ int32) error {
	return c.WritePacket(outChunkData, func(w *codec.Writer) error {
		w.WriteInt32(chunkX)
		w.WriteInt32(chunkZ)
		w.WriteBool(true)
		w.WriteInt16(0)
		w.WriteVarUInt32(0)
		return nil
	})
}

func (c *Conn) SendBlockChange(pos codec.Position, blockType uint16, meta uint8) error {
	return c.WritePacket(outBlockChange, func(w *codec.Writer) error {
		w.WritePosition(pos)
		w.WriteVarUInt32(uint32(blockType)<<4 | uint32(meta&0x0f))
		return nil
	})
}

func (c *Conn) SendMultiBlockChange(chunkX, chunkZ int32, changes []BlockChange) error {
	return c.WritePacket(outMultiBlockChange, func(w *codec.Writer) error {
		w.WriteInt32(chunkX)
		w.WriteInt32(chunkZ)
		w.WriteVarUInt32(uint32(len(changes)))

		for _, ch := range changes {
			w.WriteInt16(int16(uint16(ch.RelY) | uint16(ch.RelZ)<<8 | uint16(ch.RelX)<<12))
			w.WriteVarUInt32(uint32(ch.Type&0xfff)<<4 | uint32(ch.Meta&0x0f))
		}
		return nil
	})
}

func (c *Conn) SendBlockAction(pos codec.Position, b1, b2 int8, blockType uint16) error {
	return c.WritePacket(outBlockAction, func(w *codec.Writer) error {
		w.WritePosition(pos)
		w.WriteInt8(b1)
		w.WriteInt8(b2)
		w.WriteVarUInt32(uint32(blockType))
		return nil
	})
}

// SendBlockBreakAnimation shows the crack stage 0 to 9 of a block being
// dug by entityID.
func (c *Conn) SendBlockBreakAnimation(entityID uint32, pos codec.Position, stage int8) error {
	return c.WritePacket(outBlockBreakAnimation, func(w *codec.Writer) error {
		w.WriteVarUInt32(entityID)
		w.WritePosition(pos)
		w.WriteInt8(stage)
		return nil
	})
}

// SendExplosion plays an explosion. affected holds block offsets from the
// center and motion is the knockback applied to the client's player.
func (c *Conn) SendExplosion(center entity.Vector3, radius float32, affected [][3]int8, motion entity.Vector3) error {
	return c.WritePacket(outExplosion, func(w *codec.Writer) error {
		w.WriteFloat32(float32(center.X))
		w.WriteFloat32(float32(center.Y))
		w.WriteFloat32(float32(center.Z))
		w.WriteFloat32(radius)

		w.WriteUint32(uint32(len(affected)))
		for _, b := range affected {
			w.WriteInt8(b[0])
			w.WriteInt8(b[1])
			w.WriteInt8(b[2])
		}

		w.WriteFloat32(float32(motion.X))
		w.WriteFloat32(float32(motion.Y))
		w.WriteFloat32(float32(motion.Z))
		return nil
	})
}

// SendEffect plays a sound or particle effect by id.
func (c *Conn) SendEffect(effectID int32, pos codec.Position, data int32) error {
	return c.WritePacket(outEffect, func(w *codec.Writer) error {
		w.WriteInt32(effectID)
		w.WritePosition(pos)
		w.WriteInt32(data)
		w.WriteBool(false)
		return nil
	})
}

// SendSoundEffect plays a named sound. Coordinates are sent in 1/8 blocks
// and the pitch scaled to 63.
func (c *Conn) SendSoundEffect(name string, pos entity.Vector3, volume, pitch float32) error {
	return c.WritePacket(outSoundEffect, func(w *codec.Writer) error {
		w.WriteString(name)
		w.WriteInt32(int32(pos.X * 8))
		w.WriteInt32(int32(pos.Y * 8))
		w.WriteInt32(int32(pos.Z * 8))
		w.WriteFloat32(volume)
		w.WriteUint8(uint8(pitch * 63))
		return nil
	})
}

// SendParticle spawns particles. An unknown name is sent as particle 0.
func (c *Conn) SendParticle(p Particle) error {
	id, ok := ParticleID(p.Name)
	if !ok {
		c.log.Warn("Unknown particle", zap.String("name", p.Name))
	}

	return c.WritePacket(outParticle, func(w *codec.Writer) error {
		w.WriteInt32(id)
		w.WriteBool(p.LongDist)

		for _, v := range p.Src {
			w.WriteFloat32(v)
		}

		for _, v := range p.Offset {
			w.WriteFloat32(v)
		}

		w.WriteFloat32(p.Speed)
		w.WriteInt32(p.Count)

		for i := 0; i < particleDataLen(id); i++ {
			w.WriteVarUInt32(uint32(p.Data[i]))
		}
		return nil
	})
}

func (c *Conn) SendUpdateSign(pos codec.Position, lines [4]string) error {
	return c.WritePacket(outUpdateSign, func(w *codec.Writer) error {
		w.WritePosition(pos)
		for _, l := range lines {
			w.WriteString(chat.Text(l))
		}
		return nil
	})
}

func (c *Conn) SendOpenSignEditor(pos codec.Position) error {
	return c.WritePacket(outOpenSignEditor, func(w *codec.Writer) error {
		w.WritePosition(pos)
		return nil
	})
}

// SendUpdateBlockEntity sends the tag tree of a block entity, the action
// identifies its kind.
func (c *Conn) SendUpdateBlockEntity(be entity.BlockEntity) error {
	tags, err := entity.EncodeBlockEntity(be)
	if err != nil {
		return err
	}

	return c.WritePacket(outUpdateBlockEntity, func(w *codec.Writer) error {
		w.WritePosition(be.BlockPosition())
		w.WriteUint8(be.Action())
		w.WriteRaw(tags)
		return nil
	})
}

// SendMapColumn updates one column of map pixels starting at x, y.
func (c *Conn) SendMapColumn(id uint32, scale uint8, x, y uint8, colors []byte) error {
	return c.WritePacket(outMaps, func(w *codec.Writer) error {
		w.WriteVarUInt32(id)
		w.WriteUint8(scale)
		w.WriteVarUInt32(0)

		w.WriteUint8(1)
		w.WriteUint8(uint8(len(colors)))
		w.WriteUint8(x)
		w.WriteUint8(y)
		w.WriteByteArray(colors)
		return nil
	})
}

// SendMapDecorators replaces the icons of a map.
func (c *Conn) SendMapDecorators(id uint32, scale uint8, decorators []MapDecorator) error {
	return c.WritePacket(outMaps, func(w *codec.Writer) error {
		w.WriteVarUInt32(id)
		w.WriteUint8(scale)

		w.WriteVarUInt32(uint32(len(decorators)))
		for _, d := range decorators {
			w.WriteUint8(d.Type<<4 | d.Rotation&0x0f)
			w.WriteUint8(d.X)
			w.WriteUint8(d.Z)
		}

		w.WriteUint8(0)
		return nil
	})
}
