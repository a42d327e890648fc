// Package mask turns PowerPC rotate-and-mask operations into minimal C
// expressions for 32- and 64-bit operands.
//
// Bits are numbered the PowerPC way: bit 0 is the most significant bit of
// the operand. A mask range [mb, me] is inclusive; mb == me+1 selects every
// bit and mb > me+1 wraps around (bits 0..me plus mb..width-1).
package mask

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidRange      = errors.New("mask: bit index out of range")
	ErrUnsupportedBranch = errors.New("mask: unsupported branch encoding")
	ErrMalformedOperand  = errors.New("mask: malformed operand")
	ErrUnknownForm       = errors.New("mask: unknown rotate form")
)

// AllOnes returns the all-ones value for a 32- or 64-bit operand.
func AllOnes(width int) uint64 {
	if width >= 64 {
		return ^uint64(0)
	}
	return uint64(1)<<uint(width) - 1
}

// Generate returns the mask with bits mb..me set for an operand of the given
// width. An index outside [0, width-1] yields ErrInvalidRange and a zero mask,
// which callers must not confuse with a legitimately empty mask.
func Generate(width, mb, me int) (uint64, error) {
	if width != 32 && width != 64 {
		return 0, fmt.Errorf("%w: width %d", ErrInvalidRange, width)
	}
	if mb < 0 || me < 0 || mb > width-1 || me > width-1 {
		return 0, fmt.Errorf("%w: mask(%d, %d) for %d-bit operand", ErrInvalidRange, mb, me, width)
	}

	var m uint64
	switch {
	case mb <= me:
		for i := mb; i <= me; i++ {
			m |= uint64(1) << uint(width-1-i)
		}
	case mb == me+1:
		m = AllOnes(width)
	default:
		lo, _ := Generate(width, 0, me)
		hi, _ := Generate(width, mb, width-1)
		m = lo | hi
	}
	return m, nil
}

// Format renders a mask as a C literal. Values below 10 print in decimal;
// 64-bit values whose upper half is zero print like 32-bit ones.
func Format(m uint64) string {
	switch {
	case m < 0xA:
		return fmt.Sprintf("%d", m)
	case m>>32 == 0:
		return fmt.Sprintf("0x%X", m)
	}
	return fmt.Sprintf("0x%X%08X", m>>32, m&0xFFFFFFFF)
}

// Rotate renders src rotated left by left bits (equivalently right by
// right bits) given the mask that will be applied afterwards. When one shift
// direction alone already clears every bit outside the mask, only that shift
// is emitted; if that shift reproduces the mask exactly, *m is widened to
// all-ones so the caller can drop the AND.
//
// The boolean reports whether the expression needs parentheses before an
// operator is appended.
func Rotate(width int, src string, left, right int, m *uint64) (string, bool) {
	if (left == 0 && right == width) || (left == width && right == 0) {
		return src, false
	}

	ones := AllOnes(width)
	shl := (ones << uint(left)) & ones
	shr := ones >> uint(right)

	switch {
	case shl&*m == 0:
		// right shift only
		if shr == *m {
			*m = ones
		}
		return fmt.Sprintf("%s >> %d", src, right), true
	case shr&*m == 0:
		// left shift only
		if shl == *m {
			*m = ones
		}
		return fmt.Sprintf("%s << %d", src, left), true
	}
	return fmt.Sprintf("(%s << %d) | (%s >> %d)", src, left, src, right), true
}
