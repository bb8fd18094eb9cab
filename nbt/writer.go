package nbt

import (
	"encoding/binary"
	"fmt"
	"math"
)

type container struct {
	typ TagType

	// lists only
	elemType TagType
	count    int32
	countPos int

	// compounds only
	names map[string]struct{}
}

// Writer builds a tag tree top-down straight into its wire form.
//
// The nameless root compound is opened by NewWriter and closed by Finish.
// The first misuse (duplicate name, list type mismatch, unbalanced End*)
// is remembered and returned by Finish, later calls become no-ops.
type Writer struct {
	buf   []byte
	stack []container
	err   error
}

func NewWriter() *Writer {
	w := &Writer{buf: make([]byte, 0, 128)}
	w.buf = append(w.buf, byte(TagCompound), 0, 0)
	w.stack = append(w.stack, container{typ: TagCompound, names: map[string]struct{}{}})

	return w
}

// Finish closes the root compound and returns the encoded tree.
func (w *Writer) Finish() ([]byte, error) {
	if w.err != nil {
		return nil, w.err
	}

	if len(w.stack) != 1 {
		return nil, fmt.Errorf("%w: %d containers still open", ErrUnbalanced, len(w.stack)-1)
	}

	w.buf = append(w.buf, byte(TagEnd))
	w.stack = w.stack[:0]

	return w.buf, nil
}

func (w *Writer) BeginCompound(name string) {
	if !w.header(TagCompound, name) {
		return
	}

	w.stack = append(w.stack, container{typ: TagCompound, names: map[string]struct{}{}})
}

func (w *Writer) EndCompound() {
	if w.err != nil {
		return
	}

	if len(w.stack) < 2 || w.top().typ != TagCompound {
		w.err = fmt.Errorf("%w: EndCompound without BeginCompound", ErrUnbalanced)
		return
	}

	w.buf = append(w.buf, byte(TagEnd))
	w.stack = w.stack[:len(w.stack)-1]
}

// BeginList opens a list whose elements all have elemType. The element
// count is back-filled by EndList.
func (w *Writer) BeginList(name string, elemType TagType) {
	if !w.header(TagList, name) {
		return
	}

	w.buf = append(w.buf, byte(elemType))
	pos := len(w.buf)
	w.buf = append(w.buf, 0, 0, 0, 0)

	w.stack = append(w.stack, container{typ: TagList, elemType: elemType, countPos: pos})
}

func (w *Writer) EndList() {
	if w.err != nil {
		return
	}

	if len(w.stack) < 2 || w.top().typ != TagList {
		w.err = fmt.Errorf("%w: EndList without BeginList", ErrUnbalanced)
		return
	}

	c := w.top()
	binary.BigEndian.PutUint32(w.buf[c.countPos:], uint32(c.count))
	w.stack = w.stack[:len(w.stack)-1]
}

func (w *Writer) AddByte(name string, v int8) {
	if w.header(TagByte, name) {
		w.buf = append(w.buf, byte(v))
	}
}

func (w *Writer) AddShort(name string, v int16) {
	if w.header(TagShort, name) {
		w.buf = binary.BigEndian.AppendUint16(w.buf, uint16(v))
	}
}

func (w *Writer) AddInt(name string, v int32) {
	if w.header(TagInt, name) {
		w.buf = binary.BigEndian.AppendUint32(w.buf, uint32(v))
	}
}

func (w *Writer) AddLong(name string, v int64) {
	if w.header(TagLong, name) {
		w.buf = binary.BigEndian.AppendUint64(w.buf, uint64(v))
	}
}

func (w *Writer) AddFloat(name string, v float32) {
	if w.header(TagFloat, name) {
		w.buf = binary.BigEndian.AppendUint32(w.buf, math.Float32bits(v))
	}
}

func (w *Writer) AddDouble(name string, v float64) {
	if w.header(TagDouble, name) {
		w.buf = binary.BigEndian.AppendUint64(w.buf, math.Float64bits(v))
	}
}

func (w *Writer) AddString(name string, v string) {
	if len(v) > math.MaxUint16 {
		w.fail(fmt.Errorf("%w: string tag %q", ErrNameTooLong, name))
		return
	}

	if w.header(TagString, name) {
		w.appendString(v)
	}
}

func (w *Writer) AddByteArray(name string, v []byte) {
	if w.header(TagByteArray, name) {
		w.buf = binary.BigEndian.AppendUint32(w.buf, uint32(len(v)))
		w.buf = append(w.buf, v...)
	}
}

func (w *Writer) AddIntArray(name string, v []int32) {
	if w.header(TagIntArray, name) {
		w.buf = binary.BigEndian.AppendUint32(w.buf, uint32(len(v)))
		for _, i := range v {
			w.buf = binary.BigEndian.AppendUint32(w.buf, uint32(i))
		}
	}
}

// header writes the type and name of a new tag, or only counts it when the
// enclosing container is a list.
func (w *Writer) header(typ TagType, name string) bool {
	if w.err != nil {
		return false
	}

	if len(w.stack) == 0 {
		w.err = fmt.Errorf("%w: write after Finish", ErrUnbalanced)
		return false
	}

	if typ == TagCompound || typ == TagList {
		if len(w.stack) >= MaxDepth {
			w.err = ErrTooDeep
			return false
		}
	}

	c := w.top()

	if c.typ == TagList {
		if c.elemType != typ {
			w.err = fmt.Errorf("%w: got %s, list holds %s", ErrListType, typ, c.elemType)
			return false
		}

		c.count++
		return true
	}

	if _, ok := c.names[name]; ok {
		w.err = fmt.Errorf("%w: %q", ErrDuplicateName, name)
		return false
	}

	if len(name) > math.MaxUint16 {
		w.err = fmt.Errorf("%w: tag name of %d bytes", ErrNameTooLong, len(name))
		return false
	}

	c.names[name] = struct{}{}

	w.buf = append(w.buf, byte(typ))
	w.appendString(name)

	return true
}

func (w *Writer) appendString(s string) {
	w.buf = binary.BigEndian.AppendUint16(w.buf, uint16(len(s)))
	w.buf = append(w.buf, s...)
}

func (w *Writer) top() *container {
	return &w.stack[len(w.stack)-1]
}

func (w *Writer) fail(err error) {
	if w.err == nil {
		w.err = err
	}
}
