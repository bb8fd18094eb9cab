// Package frame implements the length prefixed framing of the byte stream
// and the compression envelope used once a connection is in play.
//
// Uncompressed framing:  varint(len(payload)) payload
// Compressed framing:    varint(len(rest)) varint(dataLen) rest
//
// where dataLen is 0 and rest is the raw payload for payloads below the
// threshold, or dataLen is the payload length and rest is its zlib stream.
// A payload always starts with the varint packet type.
package frame

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/zlib"

	"github.com/luma/lodestone/codec"
)

const (
	// DefaultThreshold is the smallest payload that gets compressed.
	DefaultThreshold = 256

	// MaxPacketSize bounds both the outer frame length and the declared
	// uncompressed size. It is the largest value a 3 byte varint holds.
	MaxPacketSize = 1<<21 - 1
)

var (
	ErrBadCompression     = errors.New("Bad compression")
	ErrCompressionFailure = errors.New("Compression failure")
	ErrFrameTooLarge      = errors.New("Packet too large")
	ErrEmptyFrame         = errors.New("Empty packet")
)

var writers = sync.Pool{
	New: func() interface{} {
		return zlib.NewWriter(nil)
	},
}

// Encode frames payload. With compressed false the plain length prefix is
// used, otherwise the compression envelope is added and payloads of at
// least threshold bytes are deflated.
func Encode(payload []byte, compressed bool, threshold int) ([]byte, error) {
	if !compressed {
		out := make([]byte, 0, codec.MaxVarIntLen+len(payload))
		out = codec.AppendVarUInt32(out, uint32(len(payload)))
		return append(out, payload...), nil
	}

	if len(payload) < threshold {
		out := make([]byte, 0, codec.MaxVarIntLen+1+len(payload))
		out = codec.AppendVarUInt32(out, uint32(len(payload)+1))
		out = append(out, 0)
		return append(out, payload...), nil
	}

	var z bytes.Buffer
	zw := writers.Get().(*zlib.Writer)
	defer writers.Put(zw)

	zw.Reset(&z)
	if _, err := zw.Write(payload); err != nil {
		return nil, fmt.Errorf("compress: %w", err)
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("compress: %w", err)
	}

	dataLen := uint32(len(payload))
	total := z.Len() + codec.VarUInt32Size(dataLen)

	out := make([]byte, 0, codec.MaxVarIntLen+total)
	out = codec.AppendVarUInt32(out, uint32(total))
	out = codec.AppendVarUInt32(out, dataLen)
	return append(out, z.Bytes()...), nil
}

// Decode reads one frame from buf and returns its payload.
//
// When buf does not yet hold the whole frame the cursor is restored and
// codec.ErrTruncated is returned. Every other error is fatal to the
// connection.
func Decode(buf *codec.Buffer, compressed bool) ([]byte, error) {
	mark := buf.Mark()

	length, err := buf.ReadVarUInt32()
	if err != nil {
		buf.ResetTo(mark)
		return nil, err
	}

	if length > MaxPacketSize {
		return nil, ErrFrameTooLarge
	}

	body, err := buf.ReadBytes(int(length))
	if err != nil {
		buf.ResetTo(mark)
		return nil, err
	}

	if !compressed {
		return body, nil
	}

	dataLen, n, err := codec.DecodeVarUInt32(body)
	if err != nil {
		return nil, ErrBadCompression
	}

	rest := body[n:]
	if dataLen == 0 {
		return rest, nil
	}

	// The declared size is only bounded by MaxPacketSize, deflate routinely
	// shrinks below the outer length. A frame too short for its declared size
	// fails in inflate as a Compression failure.
	if dataLen > MaxPacketSize {
		return nil, ErrBadCompression
	}

	return inflate(rest, int(dataLen))
}

func inflate(z []byte, size int) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(z))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCompressionFailure, err)
	}
	defer zr.Close()

	out := make([]byte, size+1)

	n, err := io.ReadFull(zr, out)
	switch {
	case n == size && err == io.ErrUnexpectedEOF:
		return out[:size], nil
	case err == nil:
		return nil, fmt.Errorf("%w: inflated more than %d bytes", ErrCompressionFailure, size)
	case err == io.ErrUnexpectedEOF || err == io.EOF:
		return nil, fmt.Errorf("%w: inflated %d bytes, expected %d", ErrCompressionFailure, n, size)
	}

	return nil, fmt.Errorf("%w: %v", ErrCompressionFailure, err)
}

// SplitType splits a payload into its packet type and body.
func SplitType(payload []byte) (uint32, []byte, error) {
	typ, n, err := codec.DecodeVarUInt32(payload)
	if err != nil {
		return 0, nil, ErrEmptyFrame
	}

	return typ, payload[n:], nil
}
