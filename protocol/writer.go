package protocol

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/luma/lodestone/codec"
	"github.com/luma/lodestone/frame"
)

// BuildFunc writes the fields of one packet, after the type code.
type BuildFunc func(w *codec.Writer) error

// WritePacket serializes one packet, frames it for the current state,
// encrypts it and hands it to the transport. The write lock is held for
// the whole sequence so packets written from different goroutines never
// interleave. When build fails nothing is sent.
func (c *Conn) WritePacket(typ uint32, build BuildFunc) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	return c.writePacketLocked(typ, build)
}

func (c *Conn) writePacketLocked(typ uint32, build BuildFunc) error {
	state := c.State()
	if state == StateErrored {
		return ErrClosed
	}

	w := c.out
	w.Reset()
	w.WriteVarUInt32(typ)

	if build != nil {
		if err := build(w); err != nil {
			return fmt.Errorf("building packet 0x%02x: %w", typ, err)
		}
	}

	payload := w.Bytes()

	data, err := frame.Encode(payload, state.compressed(), c.threshold)
	if err != nil {
		return fmt.Errorf("framing packet 0x%02x: %w", typ, err)
	}

	if c.trace {
		c.log.Debug("Outgoing packet",
			zap.Uint32("packetType", typ),
			zap.Stringer("state", state),
			zap.Int("length", len(payload)),
			zap.Binary("payload", payload))
	}

	c.metrics.FrameSent(state.compressed() && len(payload) >= c.threshold)
	c.metrics.BytesSent(len(data))

	if c.transport == nil {
		return ErrClosed
	}

	return c.cipher.EncryptTo(c.transport, data)
}
