package mask

import (
	"fmt"
	"strconv"
	"strings"
)

// Shape selects which composition a rotate form delegates to.
type Shape int

const (
	ShapeAnd    Shape = iota // rotate then AND
	ShapeInsert              // rotate then insert under mask
	ShapeRegAnd              // rotate by register then AND
)

// Form describes one rotate-and-mask mnemonic by how it derives
// (sh, mb, me) from its numeric operands.
type Form struct {
	Width int
	Shape Shape
	NArgs int // numeric operands after RA, RS (and RB for ShapeRegAnd)
	// Derive maps the numeric operands to the rotate amount and mask
	// range. For ShapeRegAnd the returned sh is ignored.
	Derive func(a []int) (sh, mb, me int)
}

var forms = map[string]Form{
	// 32-bit
	"rlwinm":   {32, ShapeAnd, 3, func(a []int) (int, int, int) { return a[0], a[1], a[2] }},
	"rlwimi":   {32, ShapeInsert, 3, func(a []int) (int, int, int) { return a[0], a[1], a[2] }},
	"rlwnm":    {32, ShapeRegAnd, 2, func(a []int) (int, int, int) { return 0, a[0], a[1] }},
	"rotlw":    {32, ShapeRegAnd, 0, func(a []int) (int, int, int) { return 0, 0, 31 }},
	"clrlwi":   {32, ShapeAnd, 1, func(a []int) (int, int, int) { return 0, a[0], 31 }},
	"clrrwi":   {32, ShapeAnd, 1, func(a []int) (int, int, int) { return 0, 0, 31 - a[0] }},
	"clrlslwi": {32, ShapeAnd, 2, func(a []int) (int, int, int) { b, n := a[0], a[1]; return n, b - n, 31 - n }},
	"extlwi":   {32, ShapeAnd, 2, func(a []int) (int, int, int) { n, b := a[0], a[1]; return b, 0, n - 1 }},
	"extrwi":   {32, ShapeAnd, 2, func(a []int) (int, int, int) { n, b := a[0], a[1]; return b + n, 32 - n, 31 }},
	"inslwi":   {32, ShapeInsert, 2, func(a []int) (int, int, int) { n, b := a[0], a[1]; return 32 - b, b, b + n - 1 }},
	"insrwi":   {32, ShapeInsert, 2, func(a []int) (int, int, int) { n, b := a[0], a[1]; return 32 - (b + n), b, b + n - 1 }},
	"rotlwi":   {32, ShapeAnd, 1, func(a []int) (int, int, int) { return a[0], 0, 31 }},
	"rotrwi":   {32, ShapeAnd, 1, func(a []int) (int, int, int) { return 32 - a[0], 0, 31 }},
	"slwi":     {32, ShapeAnd, 1, func(a []int) (int, int, int) { return a[0], 0, 31 - a[0] }},
	"srwi":     {32, ShapeAnd, 1, func(a []int) (int, int, int) { return 32 - a[0], a[0], 31 }},

	// 64-bit
	"rldicl":   {64, ShapeAnd, 2, func(a []int) (int, int, int) { return a[0], a[1], 63 }},
	"rldicr":   {64, ShapeAnd, 2, func(a []int) (int, int, int) { return a[0], 0, a[1] }},
	"rldic":    {64, ShapeAnd, 2, func(a []int) (int, int, int) { return a[0], a[1], 63 - a[0] }},
	"rldimi":   {64, ShapeInsert, 2, func(a []int) (int, int, int) { return a[0], a[1], 63 - a[0] }},
	"rldcl":    {64, ShapeRegAnd, 1, func(a []int) (int, int, int) { return 0, a[0], 63 }},
	"rldcr":    {64, ShapeRegAnd, 1, func(a []int) (int, int, int) { return 0, 0, a[0] }},
	"rotld":    {64, ShapeRegAnd, 0, func(a []int) (int, int, int) { return 0, 0, 63 }},
	"clrldi":   {64, ShapeAnd, 1, func(a []int) (int, int, int) { return 0, a[0], 63 }},
	"clrrdi":   {64, ShapeAnd, 1, func(a []int) (int, int, int) { return 0, 0, 63 - a[0] }},
	"clrlsldi": {64, ShapeAnd, 2, func(a []int) (int, int, int) { b, n := a[0], a[1]; return n, b - n, 63 - n }},
	"extldi":   {64, ShapeAnd, 2, func(a []int) (int, int, int) { n, b := a[0], a[1]; return b, 0, n - 1 }},
	"extrdi":   {64, ShapeAnd, 2, func(a []int) (int, int, int) { n, b := a[0], a[1]; return b + n, 64 - n, 63 }},
	"insrdi":   {64, ShapeInsert, 2, func(a []int) (int, int, int) { n, b := a[0], a[1]; return 64 - (b + n), b, b + n - 1 }},
	"rotldi":   {64, ShapeAnd, 1, func(a []int) (int, int, int) { return a[0], 0, 63 }},
	"rotrdi":   {64, ShapeAnd, 1, func(a []int) (int, int, int) { return 64 - a[0], 0, 63 }},
	"sldi":     {64, ShapeAnd, 1, func(a []int) (int, int, int) { return a[0], 0, 63 - a[0] }},
	"srdi":     {64, ShapeAnd, 1, func(a []int) (int, int, int) { return 64 - a[0], a[0], 63 }},
}

// LookupForm returns the rotate form for a mnemonic.
func LookupForm(mnemonic string) (Form, bool) {
	f, ok := forms[mnemonic]
	return f, ok
}

// Mnemonics returns every mnemonic handled by Expand.
func Mnemonics() []string {
	names := make([]string, 0, len(forms))
	for name := range forms {
		names = append(names, name)
	}
	return names
}

// Expand renders a rotate-and-mask instruction. ops holds the operand
// text as it appears after the mnemonic: RA, RS, then the register rotate
// amount (ShapeRegAnd only), then the numeric operands.
func Expand(mnemonic string, ops []string) (string, error) {
	f, ok := forms[mnemonic]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownForm, mnemonic)
	}

	want := 2 + f.NArgs
	if f.Shape == ShapeRegAnd {
		want++
	}
	if len(ops) != want {
		return "", fmt.Errorf("%w: %s takes %d operands, got %d", ErrMalformedOperand, mnemonic, want, len(ops))
	}

	first := 2
	if f.Shape == ShapeRegAnd {
		first = 3
	}
	args := make([]int, 0, f.NArgs)
	for _, s := range ops[first:] {
		v, err := parseInt(s)
		if err != nil {
			return "", fmt.Errorf("%w: %s operand %q", ErrMalformedOperand, mnemonic, s)
		}
		args = append(args, v)
	}

	sh, mb, me := f.Derive(args)
	dst, src := ops[0], ops[1]
	switch f.Shape {
	case ShapeInsert:
		return RotateInsert(f.Width, dst, src, sh, mb, me)
	case ShapeRegAnd:
		return RegRotateAnd(f.Width, dst, src, ops[2], mb, me)
	}
	return RotateAnd(f.Width, dst, src, sh, mb, me)
}

func parseInt(s string) (int, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 0, 64)
	return int(v), err
}
