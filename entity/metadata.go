package entity

import (
	"fmt"

	"github.com/luma/lodestone/codec"
	"github.com/luma/lodestone/item"
)

// MetadataType is the value type of a metadata entry.
type MetadataType uint8

const (
	MetaByte MetadataType = iota
	MetaShort
	MetaInt
	MetaFloat
	MetaString
	MetaSlot
	MetaBlockPos
	MetaRotation
)

// MetadataEnd terminates a metadata record.
const MetadataEnd = 0x7f

type BlockPos struct {
	X, Y, Z int32
}

type Rotation struct {
	Pitch, Yaw, Roll float32
}

// MetadataEntry is one (index, type, value) triple. Value holds a uint8,
// int16, int32, float32, string, item.Item, BlockPos or Rotation matching
// Type.
type MetadataEntry struct {
	Index uint8
	Type  MetadataType
	Value interface{}
}

// Key returns the entry's header byte: the type in the top three bits and
// the index in the low five.
func (m MetadataEntry) Key() byte {
	return byte(m.Type)<<5 | m.Index&0x1f
}

func ByteEntry(index uint8, v uint8) MetadataEntry {
	return MetadataEntry{Index: index, Type: MetaByte, Value: v}
}

func ShortEntry(index uint8, v int16) MetadataEntry {
	return MetadataEntry{Index: index, Type: MetaShort, Value: v}
}

func IntEntry(index uint8, v int32) MetadataEntry {
	return MetadataEntry{Index: index, Type: MetaInt, Value: v}
}

func FloatEntry(index uint8, v float32) MetadataEntry {
	return MetadataEntry{Index: index, Type: MetaFloat, Value: v}
}

func StringEntry(index uint8, v string) MetadataEntry {
	return MetadataEntry{Index: index, Type: MetaString, Value: v}
}

func SlotEntry(index uint8, v item.Item) MetadataEntry {
	return MetadataEntry{Index: index, Type: MetaSlot, Value: v}
}

// WriteMetadata writes entries followed by the terminator.
func WriteMetadata(w *codec.Writer, entries []MetadataEntry) error {
	for _, m := range entries {
		w.WriteUint8(m.Key())

		if err := writeValue(w, m); err != nil {
			return fmt.Errorf("metadata index %d: %w", m.Index, err)
		}
	}

	w.WriteUint8(MetadataEnd)
	return nil
}

func writeValue(w *codec.Writer, m MetadataEntry) error {
	switch v := m.Value.(type) {
	case uint8:
		w.WriteUint8(v)
	case int16:
		w.WriteInt16(v)
	case int32:
		w.WriteInt32(v)
	case float32:
		w.WriteFloat32(v)
	case string:
		w.WriteString(v)
	case item.Item:
		return item.Write(w, v)
	case BlockPos:
		w.WriteInt32(v.X)
		w.WriteInt32(v.Y)
		w.WriteInt32(v.Z)
	case Rotation:
		w.WriteFloat32(v.Pitch)
		w.WriteFloat32(v.Yaw)
		w.WriteFloat32(v.Roll)
	default:
		return fmt.Errorf("unsupported value %T for type %d", m.Value, m.Type)
	}

	return nil
}

// ReadMetadata reads entries up to and including the terminator.
func ReadMetadata(b *codec.Buffer) ([]MetadataEntry, error) {
	var entries []MetadataEntry

	for {
		key, err := b.ReadByte()
		if err != nil {
			return nil, err
		}

		if key == MetadataEnd {
			return entries, nil
		}

		m := MetadataEntry{Index: key & 0x1f, Type: MetadataType(key >> 5)}
		if m.Value, err = readValue(b, m.Type); err != nil {
			return nil, fmt.Errorf("metadata index %d: %w", m.Index, err)
		}

		entries = append(entries, m)
	}
}

func readValue(b *codec.Buffer, t MetadataType) (interface{}, error) {
	switch t {
	case MetaByte:
		return b.ReadUint8()
	case MetaShort:
		return b.ReadInt16()
	case MetaInt:
		return b.ReadInt32()
	case MetaFloat:
		return b.ReadFloat32()
	case MetaString:
		return b.ReadString()
	case MetaSlot:
		return item.ReadStream(b)
	case MetaBlockPos:
		var p BlockPos
		var err error
		if p.X, err = b.ReadInt32(); err != nil {
			return nil, err
		}
		if p.Y, err = b.ReadInt32(); err != nil {
			return nil, err
		}
		if p.Z, err = b.ReadInt32(); err != nil {
			return nil, err
		}
		return p, nil
	case MetaRotation:
		var r Rotation
		var err error
		if r.Pitch, err = b.ReadFloat32(); err != nil {
			return nil, err
		}
		if r.Yaw, err = b.ReadFloat32(); err != nil {
			return nil, err
		}
		if r.Roll, err = b.ReadFloat32(); err != nil {
			return nil, err
		}
		return r, nil
	}

	return nil, fmt.Errorf("unknown metadata type %d", t)
}
