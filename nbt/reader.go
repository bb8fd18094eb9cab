package nbt

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Tag is one node of a parsed tree.
type Tag struct {
	Type TagType
	Name string

	// ElemType is the element type of a list tag.
	ElemType TagType

	// Children holds the members of a compound or the elements of a list,
	// in wire order.
	Children []*Tag

	value interface{}
}

// Child returns the first member of a compound named name, or nil.
func (t *Tag) Child(name string) *Tag {
	if t == nil || t.Type != TagCompound {
		return nil
	}

	for _, c := range t.Children {
		if c.Name == name {
			return c
		}
	}

	return nil
}

// Byte returns the value of a byte tag. Like the other accessors it
// returns the zero value for a nil tag or a tag of another type.
func (t *Tag) Byte() int8 {
	v, _ := t.get(TagByte).(int8)
	return v
}

func (t *Tag) Short() int16 {
	v, _ := t.get(TagShort).(int16)
	return v
}

func (t *Tag) Int() int32 {
	v, _ := t.get(TagInt).(int32)
	return v
}

func (t *Tag) Long() int64 {
	v, _ := t.get(TagLong).(int64)
	return v
}

func (t *Tag) Float() float32 {
	v, _ := t.get(TagFloat).(float32)
	return v
}

func (t *Tag) Double() float64 {
	v, _ := t.get(TagDouble).(float64)
	return v
}

func (t *Tag) Text() string {
	v, _ := t.get(TagString).(string)
	return v
}

func (t *Tag) ByteArray() []byte {
	v, _ := t.get(TagByteArray).([]byte)
	return v
}

func (t *Tag) IntArray() []int32 {
	v, _ := t.get(TagIntArray).([]int32)
	return v
}

// Integer widens any integral tag to int64. It is used where the protocol
// is lax about the width a client picks for a field.
func (t *Tag) Integer() (int64, bool) {
	if t == nil {
		return 0, false
	}

	switch v := t.value.(type) {
	case int8:
		return int64(v), true
	case int16:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	}

	return 0, false
}

func (t *Tag) get(typ TagType) interface{} {
	if t == nil || t.Type != typ {
		return nil
	}

	return t.value
}

// Parse decodes the tree at the start of data and returns its root
// compound. Trailing bytes after the root's end tag are ignored.
func Parse(data []byte) (*Tag, error) {
	root, _, err := ParsePrefix(data)
	return root, err
}

// ParsePrefix is Parse that also reports how many bytes the tree occupied.
func ParsePrefix(data []byte) (*Tag, int, error) {
	p := &parser{data: data}

	typ, err := p.u8()
	if err != nil {
		return nil, 0, err
	}

	if TagType(typ) != TagCompound {
		return nil, 0, fmt.Errorf("%w: got %s", ErrUnexpectedRoot, TagType(typ))
	}

	name, err := p.str()
	if err != nil {
		return nil, 0, fmt.Errorf("root name: %w", err)
	}

	root := &Tag{Type: TagCompound, Name: name}
	if err := p.payload(root, 1); err != nil {
		return nil, 0, err
	}

	return root, p.pos, nil
}

type parser struct {
	data []byte
	pos  int
}

func (p *parser) need(n int) error {
	if n < 0 || len(p.data)-p.pos < n {
		return fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrMalformed, n, p.pos, len(p.data)-p.pos)
	}

	return nil
}

func (p *parser) u8() (byte, error) {
	if err := p.need(1); err != nil {
		return 0, err
	}

	v := p.data[p.pos]
	p.pos++
	return v, nil
}

func (p *parser) u16() (uint16, error) {
	if err := p.need(2); err != nil {
		return 0, err
	}

	v := binary.BigEndian.Uint16(p.data[p.pos:])
	p.pos += 2
	return v, nil
}

func (p *parser) u32() (uint32, error) {
	if err := p.need(4); err != nil {
		return 0, err
	}

	v := binary.BigEndian.Uint32(p.data[p.pos:])
	p.pos += 4
	return v, nil
}

func (p *parser) u64() (uint64, error) {
	if err := p.need(8); err != nil {
		return 0, err
	}

	v := binary.BigEndian.Uint64(p.data[p.pos:])
	p.pos += 8
	return v, nil
}

func (p *parser) str() (string, error) {
	n, err := p.u16()
	if err != nil {
		return "", err
	}

	if err := p.need(int(n)); err != nil {
		return "", err
	}

	s := string(p.data[p.pos : p.pos+int(n)])
	p.pos += int(n)
	return s, nil
}

// length reads a signed 32 bit element count and checks that at least
// size bytes per element are left.
func (p *parser) length(size int) (int, error) {
	v, err := p.u32()
	if err != nil {
		return 0, err
	}

	n := int(int32(v))
	if n < 0 {
		return 0, fmt.Errorf("%w: negative length %d", ErrMalformed, n)
	}

	if err := p.need(n * size); err != nil {
		return 0, err
	}

	return n, nil
}

func (p *parser) payload(t *Tag, depth int) error {
	switch t.Type {
	case TagByte:
		v, err := p.u8()
		t.value = int8(v)
		return err

	case TagShort:
		v, err := p.u16()
		t.value = int16(v)
		return err

	case TagInt:
		v, err := p.u32()
		t.value = int32(v)
		return err

	case TagLong:
		v, err := p.u64()
		t.value = int64(v)
		return err

	case TagFloat:
		v, err := p.u32()
		t.value = math.Float32frombits(v)
		return err

	case TagDouble:
		v, err := p.u64()
		t.value = math.Float64frombits(v)
		return err

	case TagString:
		v, err := p.str()
		t.value = v
		return err

	case TagByteArray:
		n, err := p.length(1)
		if err != nil {
			return err
		}

		v := make([]byte, n)
		copy(v, p.data[p.pos:])
		p.pos += n
		t.value = v
		return nil

	case TagIntArray:
		n, err := p.length(4)
		if err != nil {
			return err
		}

		v := make([]int32, n)
		for i := range v {
			v[i] = int32(binary.BigEndian.Uint32(p.data[p.pos:]))
			p.pos += 4
		}
		t.value = v
		return nil

	case TagList:
		return p.list(t, depth)

	case TagCompound:
		return p.compound(t, depth)
	}

	return fmt.Errorf("%w: unknown tag type %d", ErrMalformed, t.Type)
}

func (p *parser) compound(t *Tag, depth int) error {
	if depth > MaxDepth {
		return ErrTooDeep
	}

	for {
		typ, err := p.u8()
		if err != nil {
			return fmt.Errorf("compound %q is missing its end tag: %w", t.Name, err)
		}

		if TagType(typ) == TagEnd {
			return nil
		}

		name, err := p.str()
		if err != nil {
			return fmt.Errorf("name of member in %q: %w", t.Name, err)
		}

		child := &Tag{Type: TagType(typ), Name: name}
		if err := p.payload(child, depth+1); err != nil {
			return fmt.Errorf("%q: %w", name, err)
		}

		t.Children = append(t.Children, child)
	}
}

func (p *parser) list(t *Tag, depth int) error {
	if depth > MaxDepth {
		return ErrTooDeep
	}

	elem, err := p.u8()
	if err != nil {
		return err
	}

	t.ElemType = TagType(elem)

	// every element occupies at least one byte except for end tags
	size := 1
	if t.ElemType == TagEnd {
		size = 0
	}

	n, err := p.length(size)
	if err != nil {
		return err
	}

	if n > 0 && t.ElemType == TagEnd {
		return fmt.Errorf("%w: non-empty list of end tags", ErrMalformed)
	}

	t.Children = make([]*Tag, 0, n)
	for i := 0; i < n; i++ {
		child := &Tag{Type: t.ElemType}
		if err := p.payload(child, depth+1); err != nil {
			return fmt.Errorf("element %d: %w", i, err)
		}

		t.Children = append(t.Children, child)
	}

	return nil
}
