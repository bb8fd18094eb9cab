package protocol

import (
	"errors"
	"fmt"

	"github.com/luma/lodestone/codec"
	"github.com/luma/lodestone/entity"
	"github.com/luma/lodestone/item"
)

// ErrWrongKind is returned when an entity is passed to a sender for a
// different kind of entity.
var ErrWrongKind = errors.New("entity is of the wrong kind")

// Object types of the spawn object packet that need special handling.
const (
	ObjectPickup       uint8 = 2
	ObjectMinecart     uint8 = 10
	ObjectFallingBlock uint8 = 70
	ObjectItemFrame    uint8 = 71
)

// velocity converts blocks per second to the client's unit.
func velocity(v float64) int16 {
	return int16(v * 400)
}

func writeVelocity(w *codec.Writer, s entity.Vector3) {
	w.WriteInt16(velocity(s.X))
	w.WriteInt16(velocity(s.Y))
	w.WriteInt16(velocity(s.Z))
}

// itemFramePosition moves an item frame from the block it hangs in onto
// the wall it hangs from and turns it to face away from the wall.
func itemFramePosition(facing int32, x, z, yaw float64) (float64, float64, float64) {
	switch facing {
	case 0:
		return x, z + 1, 0
	case 1:
		return x - 1, z, 90
	case 2:
		return x, z - 1, 180
	case 3:
		return x + 1, z, 270
	}

	return x, z, yaw
}

// SendSpawnObject spawns a non living entity. Velocity is only sent along
// with non zero object data.
func (c *Conn) SendSpawnObject(e *entity.Entity, objectType uint8, data int32) error {
	x, z, yaw := e.Position.X, e.Position.Z, e.Yaw
	if objectType == ObjectItemFrame {
		x, z, yaw = itemFramePosition(data, x, z, yaw)
	}

	return c.WritePacket(outSpawnObject, func(w *codec.Writer) error {
		w.WriteVarUInt32(e.ID)
		w.WriteUint8(objectType)
		w.WriteFixedPoint(x)
		w.WriteFixedPoint(e.Position.Y)
		w.WriteFixedPoint(z)
		w.WriteAngle(e.Pitch)
		w.WriteAngle(yaw)
		w.WriteInt32(data)

		if data != 0 {
			writeVelocity(w, e.Speed)
		}
		return nil
	})
}

// SendSpawnItemFrame spawns an item frame with its facing as object data.
func (c *Conn) SendSpawnItemFrame(e *entity.Entity) error {
	f, ok := e.Kind.(entity.ItemFrame)
	if !ok {
		return fmt.Errorf("%w: want item frame, got %T", ErrWrongKind, e.Kind)
	}

	return c.SendSpawnObject(e, ObjectItemFrame, f.Facing)
}

// SendSpawnVehicle spawns a boat or minecart, subType is the object data.
func (c *Conn) SendSpawnVehicle(e *entity.Entity, vehicleType uint8, subType int8) error {
	return c.SendSpawnObject(e, vehicleType, int32(subType))
}

// SendSpawnFallingBlock spawns a falling block, which always carries its
// velocity.
func (c *Conn) SendSpawnFallingBlock(e *entity.Entity, blockType uint16, meta uint8) error {
	return c.WritePacket(outSpawnObject, func(w *codec.Writer) error {
		w.WriteVarUInt32(e.ID)
		w.WriteUint8(ObjectFallingBlock)
		w.WriteFixedPoint(e.Position.X)
		w.WriteFixedPoint(e.Position.Y)
		w.WriteFixedPoint(e.Position.Z)
		w.WriteAngle(e.Yaw)
		w.WriteAngle(e.Pitch)
		w.WriteInt32(int32(blockType) | int32(meta)<<12)
		writeVelocity(w, e.Speed)
		return nil
	})
}

// SendSpawnPickup spawns a dropped stack, followed by the metadata that
// tells the client which item it is.
func (c *Conn) SendSpawnPickup(e *entity.Entity) error {
	p, ok := e.Kind.(entity.Pickup)
	if !ok {
		return fmt.Errorf("%w: want pickup, got %T", ErrWrongKind, e.Kind)
	}

	err := c.WritePacket(outSpawnObject, func(w *codec.Writer) error {
		w.WriteVarUInt32(e.ID)
		w.WriteUint8(ObjectPickup)
		w.WriteFixedPoint(e.Position.X)
		w.WriteFixedPoint(e.Position.Y)
		w.WriteFixedPoint(e.Position.Z)
		w.WriteAngle(e.Yaw)
		w.WriteAngle(e.Pitch)
		w.WriteInt32(0)
		return nil
	})
	if err != nil {
		return err
	}

	return c.WritePacket(outEntityMetadata, func(w *codec.Writer) error {
		w.WriteVarUInt32(e.ID)
		return entity.WriteMetadata(w, []entity.MetadataEntry{entity.SlotEntry(10, p.Item)})
	})
}

func (c *Conn) SendSpawnMob(e *entity.Entity) error {
	m, ok := e.Kind.(entity.Mob)
	if !ok {
		return fmt.Errorf("%w: want mob, got %T", ErrWrongKind, e.Kind)
	}

	return c.WritePacket(outSpawnMob, func(w *codec.Writer) error {
		w.WriteVarUInt32(e.ID)
		w.WriteUint8(uint8(m.MobType()))
		w.WriteFixedPoint(e.Position.X)
		w.WriteFixedPoint(e.Position.Y)
		w.WriteFixedPoint(e.Position.Z)
		w.WriteAngle(e.Pitch)
		w.WriteAngle(e.HeadYaw)
		w.WriteAngle(e.Yaw)
		writeVelocity(w, e.Speed)
		return entity.WriteMetadata(w, e.Metadata())
	})
}

// SendSpawnPlayer spawns another player for the client.
func (c *Conn) SendSpawnPlayer(e *entity.Entity) error {
	p, ok := e.Kind.(entity.Player)
	if !ok {
		return fmt.Errorf("%w: want player, got %T", ErrWrongKind, e.Kind)
	}

	return c.WritePacket(outSpawnPlayer, func(w *codec.Writer) error {
		w.WriteVarUInt32(e.ID)
		w.WriteUUID(p.UUID)
		w.WriteFixedPoint(e.Position.X)
		w.WriteFixedPoint(e.Position.Y + 0.001)
		w.WriteFixedPoint(e.Position.Z)
		w.WriteAngle(e.Yaw)
		w.WriteAngle(e.Pitch)
		w.WriteInt16(p.EquippedType)
		return entity.WriteMetadata(w, []entity.MetadataEntry{
			entity.FloatEntry(6, e.Health),
			entity.StringEntry(2, p.Name),
		})
	})
}

func (c *Conn) SendSpawnPainting(id uint32, title string, pos codec.Position, facing int8) error {
	return c.WritePacket(outSpawnPainting, func(w *codec.Writer) error {
		w.WriteVarUInt32(id)
		w.WriteString(title)
		w.WritePosition(pos)
		w.WriteInt8(facing)
		return nil
	})
}

func (c *Conn) SendSpawnExperienceOrb(id uint32, pos entity.Vector3, reward int16) error {
	return c.WritePacket(outSpawnExperienceOrb, func(w *codec.Writer) error {
		w.WriteVarUInt32(id)
		w.WriteFixedPoint(pos.X)
		w.WriteFixedPoint(pos.Y)
		w.WriteFixedPoint(pos.Z)
		w.WriteInt16(reward)
		return nil
	})
}

// SendThunderbolt strikes lightning at a block.
func (c *Conn) SendThunderbolt(pos codec.Position) error {
	return c.WritePacket(outSpawnGlobalEntity, func(w *codec.Writer) error {
		w.WriteVarUInt32(0)
		w.WriteUint8(1)
		w.WriteFixedPoint(float64(pos.X))
		w.WriteFixedPoint(float64(pos.Y))
		w.WriteFixedPoint(float64(pos.Z))
		return nil
	})
}

func (c *Conn) SendEntityVelocity(e *entity.Entity) error {
	return c.WritePacket(outEntityVelocity, func(w *codec.Writer) error {
		w.WriteVarUInt32(e.ID)
		writeVelocity(w, e.Speed)
		return nil
	})
}

func (c *Conn) SendDestroyEntities(ids ...uint32) error {
	return c.WritePacket(outDestroyEntities, func(w *codec.Writer) error {
		w.WriteVarUInt32(uint32(len(ids)))
		for _, id := range ids {
			w.WriteVarUInt32(id)
		}
		return nil
	})
}

// SendEntityRelativeMove moves an entity by a delta in 1/32 blocks.
func (c *Conn) SendEntityRelativeMove(e *entity.Entity, dx, dy, dz int8) error {
	return c.WritePacket(outEntityRelativeMove, func(w *codec.Writer) error {
		w.WriteVarUInt32(e.ID)
		w.WriteInt8(dx)
		w.WriteInt8(dy)
		w.WriteInt8(dz)
		w.WriteBool(e.OnGround)
		return nil
	})
}

func (c *Conn) SendEntityLookRelativeMove(e *entity.Entity, dx, dy, dz int8) error {
	return c.WritePacket(outEntityLookMove, func(w *codec.Writer) error {
		w.WriteVarUInt32(e.ID)
		w.WriteInt8(dx)
		w.WriteInt8(dy)
		w.WriteInt8(dz)
		w.WriteAngle(e.Yaw)
		w.WriteAngle(e.Pitch)
		w.WriteBool(e.OnGround)
		return nil
	})
}

func (c *Conn) SendEntityLook(e *entity.Entity) error {
	return c.WritePacket(outEntityLook, func(w *codec.Writer) error {
		w.WriteVarUInt32(e.ID)
		w.WriteAngle(e.Yaw)
		w.WriteAngle(e.Pitch)
		w.WriteBool(e.OnGround)
		return nil
	})
}

func (c *Conn) SendEntityTeleport(e *entity.Entity) error {
	return c.WritePacket(outEntityTeleport, func(w *codec.Writer) error {
		w.WriteVarUInt32(e.ID)
		w.WriteFixedPoint(e.Position.X)
		w.WriteFixedPoint(e.Position.Y)
		w.WriteFixedPoint(e.Position.Z)
		w.WriteAngle(e.Yaw)
		w.WriteAngle(e.Pitch)
		w.WriteBool(e.OnGround)
		return nil
	})
}

func (c *Conn) SendEntityHeadLook(e *entity.Entity) error {
	return c.WritePacket(outEntityHeadLook, func(w *codec.Writer) error {
		w.WriteVarUInt32(e.ID)
		w.WriteAngle(e.HeadYaw)
		return nil
	})
}

// SendEntityStatus plays a status effect such as hurt or death. The id is
// a plain int here, not a varint.
func (c *Conn) SendEntityStatus(id uint32, status int8) error {
	return c.WritePacket(outEntityStatus, func(w *codec.Writer) error {
		w.WriteUint32(id)
		w.WriteInt8(status)
		return nil
	})
}

// SendAttachEntity seats id in vehicle, a vehicle of 0 detaches it.
func (c *Conn) SendAttachEntity(id, vehicle uint32) error {
	return c.WritePacket(outAttachEntity, func(w *codec.Writer) error {
		w.WriteUint32(id)
		w.WriteUint32(vehicle)
		w.WriteBool(false)
		return nil
	})
}

func (c *Conn) SendEntityMetadata(e *entity.Entity) error {
	return c.WritePacket(outEntityMetadata, func(w *codec.Writer) error {
		w.WriteVarUInt32(e.ID)
		return entity.WriteMetadata(w, e.Metadata())
	})
}

func (c *Conn) SendEntityEffect(id uint32, effect, amplifier uint8, duration int16) error {
	return c.WritePacket(outEntityEffect, func(w *codec.Writer) error {
		w.WriteVarUInt32(id)
		w.WriteUint8(effect)
		w.WriteUint8(amplifier)
		w.WriteVarUInt32(uint32(duration))
		w.WriteBool(false)
		return nil
	})
}

func (c *Conn) SendRemoveEntityEffect(id uint32, effect uint8) error {
	return c.WritePacket(outRemoveEntityEffect, func(w *codec.Writer) error {
		w.WriteVarUInt32(id)
		w.WriteUint8(effect)
		return nil
	})
}

// SendEntityProperties sends an entity's attributes. No entity carries
// any yet, so the list is always empty.
func (c *Conn) SendEntityProperties(e *entity.Entity) error {
	return c.WritePacket(outEntityProperties, func(w *codec.Writer) error {
		w.WriteVarUInt32(e.ID)
		w.WriteInt32(0)
		return nil
	})
}

func (c *Conn) SendEntityEquipment(id uint32, slot int16, it item.Item) error {
	return c.WritePacket(outEntityEquipment, func(w *codec.Writer) error {
		w.WriteVarUInt32(id)
		w.WriteInt16(slot)
		return item.Write(w, it)
	})
}

func (c *Conn) SendEntityAnimation(id uint32, animation int8) error {
	return c.WritePacket(outAnimation, func(w *codec.Writer) error {
		w.WriteVarUInt32(id)
		w.WriteInt8(animation)
		return nil
	})
}

// SendCollectItem shows collector picking up the collected entity.
func (c *Conn) SendCollectItem(collected, collector uint32) error {
	return c.WritePacket(outCollectItem, func(w *codec.Writer) error {
		w.WriteVarUInt32(collected)
		w.WriteVarUInt32(collector)
		return nil
	})
}

func (c *Conn) SendUseBed(id uint32, pos codec.Position) error {
	return c.WritePacket(outUseBed, func(w *codec.Writer) error {
		w.WriteVarUInt32(id)
		w.WritePosition(pos)
		return nil
	})
}
