// Package nbt reads and writes the named binary tag trees carried inside
// item stacks and block entity updates.
//
// A tree is always rooted in a nameless compound. Integers are big-endian,
// names and strings carry an unsigned 16 bit length prefix.
package nbt

import "errors"

type TagType byte

const (
	TagEnd TagType = iota
	TagByte
	TagShort
	TagInt
	TagLong
	TagFloat
	TagDouble
	TagByteArray
	TagString
	TagList
	TagCompound
	TagIntArray
)

var tagNames = [...]string{
	"End", "Byte", "Short", "Int", "Long", "Float", "Double",
	"ByteArray", "String", "List", "Compound", "IntArray",
}

func (t TagType) String() string {
	if int(t) < len(tagNames) {
		return tagNames[t]
	}

	return "Unknown"
}

// MaxDepth bounds compound and list nesting on both read and write.
const MaxDepth = 512

var (
	ErrMalformed      = errors.New("nbt: malformed tag tree")
	ErrTooDeep        = errors.New("nbt: nesting exceeds maximum depth")
	ErrListType       = errors.New("nbt: list element does not match the declared element type")
	ErrDuplicateName  = errors.New("nbt: duplicate name in compound")
	ErrUnbalanced     = errors.New("nbt: unbalanced compound or list")
	ErrNameTooLong    = errors.New("nbt: name or string longer than 65535 bytes")
	ErrUnexpectedRoot = errors.New("nbt: root tag is not a compound")
)
