package codec

import (
	"encoding/hex"
	"fmt"
	"math"
)

// Position is an absolute block coordinate.
type Position struct {
	X, Y, Z int
}

func (p Position) String() string {
	return fmt.Sprintf("{%d, %d, %d}", p.X, p.Y, p.Z)
}

// PackPosition packs p as 26 bits of X, 12 bits of Y and 26 bits of Z,
// most significant first.
func PackPosition(p Position) uint64 {
	return (uint64(p.X)&0x3ffffff)<<38 |
		(uint64(p.Y)&0xfff)<<26 |
		uint64(p.Z)&0x3ffffff
}

// UnpackPosition is the inverse of PackPosition, sign extending each field.
func UnpackPosition(v uint64) Position {
	return Position{
		X: signExtend(int64(v>>38)&0x3ffffff, 26),
		Y: signExtend(int64(v>>26)&0xfff, 12),
		Z: signExtend(int64(v)&0x3ffffff, 26),
	}
}

func signExtend(v int64, bits uint) int {
	shift := 64 - bits
	return int((v << shift) >> shift)
}

// DegreesToAngle converts degrees to 1/256 turn steps, rounding to the
// nearest step and wrapping outside [0, 360).
func DegreesToAngle(deg float64) byte {
	return byte(int64(math.Round(deg*256/360)) & 0xff)
}

func AngleToDegrees(a byte) float64 {
	return float64(a) * 360 / 256
}

// ToFixedPoint converts an entity coordinate to the legacy 1/32 block
// fixed point representation. The fractional remainder is truncated.
func ToFixedPoint(v float64) int32 {
	return int32(v * 32)
}

// UUID is a 128 bit player or modifier id in wire order.
type UUID [16]byte

// ParseUUID accepts both the dashed and the 32 hex digit form.
func ParseUUID(s string) (UUID, error) {
	var id UUID

	clean := make([]byte, 0, 32)
	for i := 0; i < len(s); i++ {
		if s[i] != '-' {
			clean = append(clean, s[i])
		}
	}

	if len(clean) != 32 {
		return id, fmt.Errorf("invalid uuid %q", s)
	}

	if _, err := hex.Decode(id[:], clean); err != nil {
		return id, fmt.Errorf("invalid uuid %q: %w", s, err)
	}

	return id, nil
}

// String returns the dashed 8-4-4-4-12 form.
func (u UUID) String() string {
	h := hex.EncodeToString(u[:])
	return h[0:8] + "-" + h[8:12] + "-" + h[12:16] + "-" + h[16:20] + "-" + h[20:]
}

// Short returns the 32 hex digit form without dashes.
func (u UUID) Short() string {
	return hex.EncodeToString(u[:])
}
