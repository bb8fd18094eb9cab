package codec

// AppendVarUInt32 appends the minimal LEB128 encoding of v to dst.
func AppendVarUInt32(dst []byte, v uint32) []byte {
	for v >= 0x80 {
		dst = append(dst, byte(v)|0x80)
		v >>= 7
	}

	return append(dst, byte(v))
}

// DecodeVarUInt32 decodes a varint from the start of p and returns the
// value together with the number of bytes consumed.
//
// ErrTruncated means p ended before the final byte, ErrVarIntTooLong
// means the continuation bit was still set on the fifth byte or the fifth
// byte carries bits above bit 31.
func DecodeVarUInt32(p []byte) (uint32, int, error) {
	var v uint32

	for i := 0; i < MaxVarIntLen; i++ {
		if i >= len(p) {
			return 0, 0, ErrTruncated
		}

		b := p[i]
		if i == MaxVarIntLen-1 && b > 0x0f {
			return 0, 0, ErrVarIntTooLong
		}

		v |= uint32(b&0x7f) << (7 * uint(i))

		if b&0x80 == 0 {
			return v, i + 1, nil
		}
	}

	return 0, 0, ErrVarIntTooLong
}

// VarUInt32Size returns the number of bytes AppendVarUInt32 emits for v.
func VarUInt32Size(v uint32) int {
	n := 1
	for v >= 0x80 {
		v >>= 7
		n++
	}

	return n
}
