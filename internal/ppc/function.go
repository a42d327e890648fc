package ppc

import "fmt"

// EdgeKind classifies a control-flow edge out of an instruction.
type EdgeKind int

const (
	EdgeFlow     EdgeKind = iota // fall-through to the next instruction
	EdgeNearJump                 // relative branch
	EdgeFarJump                  // absolute branch
	EdgeNearCall                 // relative branch-and-link
	EdgeFarCall                  // absolute branch-and-link
)

func (k EdgeKind) String() string {
	switch k {
	case EdgeFlow:
		return "flow"
	case EdgeNearJump:
		return "near_jump"
	case EdgeFarJump:
		return "far_jump"
	case EdgeNearCall:
		return "near_call"
	case EdgeFarCall:
		return "far_call"
	}
	return fmt.Sprintf("edge(%d)", int(k))
}

func (k EdgeKind) IsJump() bool { return k == EdgeNearJump || k == EdgeFarJump }
func (k EdgeKind) IsCall() bool { return k == EdgeNearCall || k == EdgeFarCall }

// Edge is one control-flow successor.
type Edge struct {
	Kind   EdgeKind
	Target uint64
}

// Function is a collected function: its bounds and its entities in
// discovery order.
type Function struct {
	Name    string
	Start   uint64
	End     uint64
	Params  int
	Returns bool
	Insts   []Instruction
	Calls   []uint64 // call targets in discovery order
}

// Contains reports whether addr lies within [Start, End).
func (f *Function) Contains(addr uint64) bool {
	return addr >= f.Start && addr < f.End
}

// NumMachine counts the machine instructions in f.
func (f *Function) NumMachine() int {
	n := 0
	for _, in := range f.Insts {
		if in.Kind == KindInstruction {
			n++
		}
	}
	return n
}

// CmpSize is the operand width of a recorded comparison.
type CmpSize int

const (
	SizeByte CmpSize = 1
	SizeHalf CmpSize = 2
	SizeWord CmpSize = 4
	SizeQuad CmpSize = 8
)

// CondField records the last comparison written to a CR field.
type CondField struct {
	Valid     bool
	Reg       Register // first compared operand
	Other     Register // second operand when Immediate is false
	Imm       string   // second operand text when Immediate is true
	Size      CmpSize
	Signed    bool
	Immediate bool
}

// Rhs renders the second compared operand.
func (c CondField) Rhs() string {
	if c.Immediate {
		return c.Imm
	}
	return c.Other.String()
}

// NumCRFields is the number of condition-register fields.
const NumCRFields = 8
