package ppc

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Kind tags an Instruction entity.
type Kind int

const (
	KindInstruction   Kind = iota // machine instruction
	KindLabel                     // label at Addr, Name is the label
	KindComment                   // block comment, Name is the text
	KindInlineComment             // trails the next statement
	KindFlow                      // explicit transfer to label Name
	KindDirective                 // preprocessor directive, Name is the text
)

func (k Kind) String() string {
	switch k {
	case KindInstruction:
		return "inst"
	case KindLabel:
		return "label"
	case KindComment:
		return "comment"
	case KindInlineComment:
		return "inline"
	case KindFlow:
		return "flow"
	case KindDirective:
		return "directive"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// MaxOperands is the most explicit fields any PowerPC encoding uses.
const MaxOperands = 5

// Instruction is one entity of a function body. Entities are created by
// the collector and never mutated afterwards.
type Instruction struct {
	Kind Kind
	Addr uint64
	Name string // mnemonic, label, comment or directive text
	Ops  [MaxOperands]string

	// Structured metadata for KindInstruction.
	Raw       uint32
	Target    uint64 // branch target
	HasTarget bool
}

// Operands returns the operands up to the first empty one.
func (i Instruction) Operands() []string {
	n := 0
	for n < MaxOperands && i.Ops[n] != "" {
		n++
	}
	return i.Ops[:n]
}

// Arity is the number of non-empty operands.
func (i Instruction) Arity() int { return len(i.Operands()) }

func (i Instruction) String() string {
	switch i.Kind {
	case KindInstruction:
		ops := i.Operands()
		if len(ops) == 0 {
			return i.Name
		}
		return i.Name + " " + strings.Join(ops, ",")
	case KindLabel:
		return i.Name + ":"
	case KindFlow:
		return "goto " + i.Name
	}
	return i.Name
}

// Decoded is what a decoder reports for one address: the mnemonic, three
// native operand fields (the third may hold several comma-separated
// operands and a trailing " # comment") and structured metadata.
type Decoded struct {
	Addr      uint64
	Raw       uint32
	Len       int
	Mnemonic  string
	Fields    [3]string
	Target    uint64
	HasTarget bool
}

// InlineSep separates an operand from a trailing comment.
const InlineSep = " # "

// Split turns decoder output into an instruction entity. An inline comment
// embedded in any operand is removed from the operand and returned
// separately ("" if none).
func Split(d Decoded) (Instruction, string) {
	inst := Instruction{
		Kind:      KindInstruction,
		Addr:      d.Addr,
		Name:      NormalizeMnemonic(d.Mnemonic),
		Raw:       d.Raw,
		Target:    d.Target,
		HasTarget: d.HasTarget,
	}

	var comment string
	fields := d.Fields
	for i := range fields {
		if j := strings.Index(fields[i], InlineSep); j >= 0 {
			if comment == "" {
				comment = strings.TrimSpace(fields[i][j+len(InlineSep):])
			}
			fields[i] = fields[i][:j]
		}
		fields[i] = strings.TrimSpace(fields[i])
	}

	inst.Ops[0] = fields[0]
	inst.Ops[1] = fields[1]
	rest := strings.SplitN(fields[2], ",", 3)
	for k, s := range rest {
		inst.Ops[2+k] = strings.TrimSpace(s)
	}
	return inst, comment
}

// NormalizeMnemonic strips the record-form dot and branch-prediction
// suffixes.
func NormalizeMnemonic(m string) string {
	return strings.TrimRight(strings.TrimSpace(m), ".+-")
}

// LocName is the synthesised label for an address with no symbol.
func LocName(addr uint64) string {
	return fmt.Sprintf("loc_%X", addr)
}

// SubName is the synthesised name for a function with no symbol.
func SubName(addr uint64) string {
	return fmt.Sprintf("sub_%X", addr)
}

var ErrBadMemOperand = errors.New("ppc: malformed memory operand")

// ParseMem parses a displacement(base) operand such as "-16(r1)" or
// "0x8(%r3)".
func ParseMem(s string) (int64, Register, error) {
	s = strings.TrimSpace(s)
	open := strings.IndexByte(s, '(')
	if open < 0 || !strings.HasSuffix(s, ")") {
		return 0, Register{}, fmt.Errorf("%w: %q", ErrBadMemOperand, s)
	}
	var disp int64
	if d := strings.TrimSpace(s[:open]); d != "" {
		v, err := strconv.ParseInt(d, 0, 64)
		if err != nil {
			return 0, Register{}, fmt.Errorf("%w: %q", ErrBadMemOperand, s)
		}
		disp = v
	}
	base := ParseRegister(s[open+1 : len(s)-1])
	if !base.Valid() {
		return 0, Register{}, fmt.Errorf("%w: %q", ErrBadMemOperand, s)
	}
	return disp, base, nil
}

// ParseDirective builds a directive entity from text such as
// "set BUF_SIZE, 0x100".
func ParseDirective(addr uint64, text string) Instruction {
	d := Instruction{Kind: KindDirective, Addr: addr}
	text = strings.TrimSpace(text)
	name, rest, _ := strings.Cut(text, " ")
	d.Name = name
	rest = strings.TrimSpace(rest)
	if rest == "" {
		return d
	}
	for k, s := range strings.SplitN(rest, ",", MaxOperands) {
		d.Ops[k] = strings.TrimSpace(s)
	}
	return d
}
