package mask

import "fmt"

func checkShift(width, sh int) error {
	if sh < 0 || sh > width {
		return fmt.Errorf("%w: rotate by %d for %d-bit operand", ErrInvalidRange, sh, width)
	}
	return nil
}

// RotateAnd renders dst = rotl(src, sh) & mask(mb, me), the shape of
// rlwinm, rldicl, rldicr and rldic.
func RotateAnd(width int, dst, src string, sh, mb, me int) (string, error) {
	if err := checkShift(width, sh); err != nil {
		return "", err
	}
	m, err := Generate(width, mb, me)
	if err != nil {
		return "", err
	}
	return andMasked(width, dst, src, sh, m), nil
}

func andMasked(width int, dst, src string, sh int, m uint64) string {
	if m == 0 {
		return dst + " = 0"
	}
	rot, parens := Rotate(width, src, sh, width-sh, &m)
	switch {
	case m == AllOnes(width):
		return fmt.Sprintf("%s = %s", dst, rot)
	case parens:
		return fmt.Sprintf("%s = (%s) & %s", dst, rot, Format(m))
	}
	return fmt.Sprintf("%s = %s & %s", dst, rot, Format(m))
}

// RotateInsert renders the rlwimi/rldimi shape: the bits of rotl(src, sh)
// selected by mask(mb, me) replace the same bits of dst.
func RotateInsert(width int, dst, src string, sh, mb, me int) (string, error) {
	if err := checkShift(width, sh); err != nil {
		return "", err
	}
	m, err := Generate(width, mb, me)
	if err != nil {
		return "", err
	}
	return insertMasked(width, dst, src, sh, m), nil
}

func insertMasked(width int, dst, src string, sh int, m uint64) string {
	if m == 0 {
		return fmt.Sprintf("%s = %s", dst, dst)
	}

	rotMask := m
	rot, parens := Rotate(width, src, sh, width-sh, &rotMask)
	ones := AllOnes(width)

	switch {
	case m == ones:
		return fmt.Sprintf("%s = %s | %s", dst, dst, rot)
	case rotMask == ones && parens:
		return fmt.Sprintf("%s = (%s & ~%s) | (%s)", dst, dst, Format(m), rot)
	case rotMask == ones:
		return fmt.Sprintf("%s = (%s & ~%s) | %s", dst, dst, Format(m), rot)
	case parens:
		return fmt.Sprintf("%s = (%s & ~%s) | ((%s) & %s)", dst, dst, Format(m), rot, Format(rotMask))
	}
	return fmt.Sprintf("%s = (%s & ~%s) | (%s & %s)", dst, dst, Format(m), rot, Format(rotMask))
}

// RegRotateAnd renders dst = rotl(src, amt) & mask(mb, me) where the
// rotate amount is a register, so the double-shift form is always used.
func RegRotateAnd(width int, dst, src, amt string, mb, me int) (string, error) {
	m, err := Generate(width, mb, me)
	if err != nil {
		return "", err
	}
	if m == 0 {
		return dst + " = 0", nil
	}

	rot := fmt.Sprintf("(%s << %s) | (%s >> %d-%s)", src, amt, src, width, amt)
	if m == AllOnes(width) {
		return fmt.Sprintf("%s = %s", dst, rot), nil
	}
	return fmt.Sprintf("%s = (%s) & %s", dst, rot, Format(m)), nil
}
