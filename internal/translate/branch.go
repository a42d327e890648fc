package translate

import (
	"fmt"
	"strconv"
	"strings"

	"ppc2c/internal/mask"
	"ppc2c/internal/ppc"
)

func compare(size ppc.CmpSize, signed, imm bool) handler {
	return func(c *Context, in ppc.Instruction, ops []string) (Result, error) {
		field := ppc.ParseRegister(ops[0])
		if field.Kind != ppc.RegCR {
			return Result{}, fmt.Errorf("%w: %s: %q is not a CR field", ErrMalformedOperand, dump(in), ops[0])
		}
		a := ppc.ParseRegister(ops[1])
		cf := ppc.CondField{
			Valid:     true,
			Reg:       a,
			Size:      size,
			Signed:    signed,
			Immediate: imm,
		}
		res := Result{Out: field, In1: a}
		if imm {
			cf.Imm = ops[2]
		} else {
			cf.Other = ppc.ParseRegister(ops[2])
			res.In2 = cf.Other
		}
		c.CR[field.N] = cf
		return res, nil
	}
}

// comparisonNames phrase a condition code against a recorded comparison.
var comparisonNames = map[string]string{
	"lt": "less than",
	"le": "less than or equal to",
	"eq": "equal to",
	"ge": "greater than or equal to",
	"gt": "greater than",
	"nl": "not less than",
	"ne": "not equal to",
	"ng": "not greater than",
}

// condition renders the test of CR bit code in field. When the field holds
// a recorded comparison the test is phrased over its operands.
func (c *Context) condition(field int, code string) mask.Condition {
	cf := c.CR[field]
	phrase, ok := comparisonNames[code]
	if !cf.Valid || !ok {
		return mask.FieldCondition(field, code)
	}
	lhs := cf.Reg.String()
	return mask.Condition{
		Is:    fmt.Sprintf("%s is %s %s", lhs, phrase, cf.Rhs()),
		IsNot: fmt.Sprintf("%s is not %s %s", lhs, phrase, cf.Rhs()),
	}
}

// target resolves a branch target address from the instruction metadata or
// its last operand. ok is false when the operand is symbolic text.
func target(in ppc.Instruction, op string) (uint64, bool) {
	if in.HasTarget {
		return in.Target, true
	}
	v, err := strconv.ParseUint(strings.TrimSpace(op), 0, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// label names a jump target inside the current function.
func (c *Context) label(in ppc.Instruction, op string) string {
	addr, ok := target(in, op)
	if !ok {
		return op
	}
	if c.names != nil {
		if name, ok := c.names.SymbolAt(addr); ok {
			return name
		}
	}
	return ppc.LocName(addr)
}

// callee names a call target.
func (c *Context) callee(in ppc.Instruction, op string) string {
	addr, ok := target(in, op)
	if !ok {
		return op
	}
	if c.names != nil {
		if name, ok := c.names.SymbolAt(addr); ok {
			return name
		}
	}
	return ppc.SubName(addr)
}

// outside reports whether the branch leaves the current function.
func (c *Context) outside(in ppc.Instruction, op string) bool {
	addr, ok := target(in, op)
	return ok && c.fn != nil && !c.fn.Contains(addr)
}

// Indirect call expressions through CTR and LR.
const (
	ctrCall = "((void (*)(void))CTR)()"
	lrCall  = "((void (*)(void))LR)()"
)

// tail renders a tail call of expr for a branch with the given BO: the
// call followed by return, braced when it sits under a test.
func tail(bo int, expr string) string {
	if mask.Unconditional(bo) {
		return expr + "; return"
	}
	return "{ " + expr + "; return; }"
}

// always returns a fixed guarded action.
func always(action string) func(int) string {
	return func(int) string { return action }
}

func handleB(c *Context, in ppc.Instruction, ops []string) (Result, error) {
	if c.outside(in, ops[0]) {
		return Result{Code: c.callee(in, ops[0]) + "(); return"}, nil
	}
	return Result{Code: "goto " + c.label(in, ops[0])}, nil
}

func handleBl(c *Context, in ppc.Instruction, ops []string) (Result, error) {
	return Result{Code: c.callee(in, ops[0]) + "()", Out: ppc.LR}, nil
}

func handleBlr(c *Context, in ppc.Instruction, ops []string) (Result, error) {
	return Result{Code: "return", In1: ppc.LR}, nil
}

func handleBctr(c *Context, in ppc.Instruction, ops []string) (Result, error) {
	return Result{Code: ctrCall + "; return", In1: ppc.CTR}, nil
}

func handleBctrl(c *Context, in ppc.Instruction, ops []string) (Result, error) {
	return Result{Code: ctrCall, Out: ppc.LR, In1: ppc.CTR}, nil
}

func parseBO(in ppc.Instruction, s string) (int, error) {
	bo, err := strconv.ParseInt(strings.TrimSpace(s), 0, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: BO %q", mask.ErrUnsupportedBranch, dump(in), s)
	}
	return int(bo), nil
}

// jump renders a conditional branch. A target outside the current
// function becomes a conditional tail call.
func (c *Context) jump(in ppc.Instruction, bo int, cond mask.Condition, op string) (string, error) {
	if !c.outside(in, op) {
		return mask.Branch(bo, cond, c.label(in, op))
	}
	return mask.Guard(bo, cond, tail(bo, c.callee(in, op)+"()"))
}

func handleBc(c *Context, in ppc.Instruction, ops []string) (Result, error) {
	bo, err := parseBO(in, ops[0])
	if err != nil {
		return Result{}, err
	}
	field, code := mask.ParseBI(ops[1])
	s, err := c.jump(in, bo, c.condition(field, code), ops[2])
	if err != nil {
		return Result{}, err
	}
	return Result{Code: s, In1: ppc.CR(field)}, nil
}

func handleBcl(c *Context, in ppc.Instruction, ops []string) (Result, error) {
	bo, err := parseBO(in, ops[0])
	if err != nil {
		return Result{}, err
	}
	// bcl 20,31,$+4 reads the program counter into LR.
	if addr, ok := target(in, ops[2]); ok && mask.Unconditional(bo) && addr == in.Addr+4 {
		return Result{Code: fmt.Sprintf("LR = 0x%X", addr), Out: ppc.LR}, nil
	}
	field, code := mask.ParseBI(ops[1])
	s, err := mask.Call(bo, c.condition(field, code), c.callee(in, ops[2]))
	if err != nil {
		return Result{}, err
	}
	return Result{Code: s, Out: ppc.LR, In1: ppc.CR(field)}, nil
}

func handleBlrl(c *Context, in ppc.Instruction, ops []string) (Result, error) {
	return Result{Code: lrCall, Out: ppc.LR, In1: ppc.LR}, nil
}

// guardedRegister renders the conditional forms of blr, bctr and their
// linking variants: bclr BO,BI. action builds the guarded statement from BO.
func guardedRegister(action func(bo int) string, in1, out ppc.Register) handler {
	return func(c *Context, in ppc.Instruction, ops []string) (Result, error) {
		bo, err := parseBO(in, ops[0])
		if err != nil {
			return Result{}, err
		}
		field, code := mask.ParseBI(ops[1])
		s, err := mask.Guard(bo, c.condition(field, code), action(bo))
		if err != nil {
			return Result{}, err
		}
		return Result{Code: s, Out: out, In1: in1, In2: ppc.CR(field)}, nil
	}
}

// handleExtended renders the extended conditional mnemonics (beq, bdnz,
// ...) through the BO table. The CR field operand is optional and defaults
// to cr0; the bd*t/bd*f forms take a BI operand instead.
func handleExtended(c *Context, in ppc.Instruction, ops []string) (Result, error) {
	ext := mask.ExtendedBranch[in.Name]
	var field int
	code := ext.Code
	switch {
	case needsBI(in.Name):
		if len(ops) != 2 {
			return Result{}, fmt.Errorf("%w: %s: want BI and target", ErrArity, dump(in))
		}
		field, code = mask.ParseBI(ops[0])
	case len(ops) == 1:
	case len(ops) == 2 && code != "":
		cr := ppc.ParseRegister(ops[0])
		if cr.Kind != ppc.RegCR {
			return Result{}, fmt.Errorf("%w: %s: %q is not a CR field", ErrMalformedOperand, dump(in), ops[0])
		}
		field = cr.N
	default:
		return Result{}, fmt.Errorf("%w: %s: got %d", ErrArity, dump(in), len(ops))
	}

	s, err := c.jump(in, ext.BO, c.condition(field, code), ops[len(ops)-1])
	if err != nil {
		return Result{}, err
	}
	return Result{Code: s, In1: ppc.CR(field)}, nil
}

func needsBI(name string) bool {
	switch name {
	case "bdnzt", "bdnzf", "bdzt", "bdzf":
		return true
	}
	return false
}

func handleMask(c *Context, in ppc.Instruction, ops []string) (Result, error) {
	f, _ := mask.LookupForm(in.Name)
	want := 2 + f.NArgs
	if f.Shape == mask.ShapeRegAnd {
		want++
	}
	if len(ops) != want {
		return Result{}, fmt.Errorf("%w: %s: got %d, want %d", ErrArity, dump(in), len(ops), want)
	}
	norm := make([]string, len(ops))
	for i, op := range ops {
		if r := ppc.ParseRegister(op); r.Valid() {
			norm[i] = r.String()
		} else {
			norm[i] = op
		}
	}
	s, err := mask.Expand(in.Name, norm)
	if err != nil {
		return Result{}, err
	}
	return Result{Code: s, Out: ppc.ParseRegister(ops[0]), In1: ppc.ParseRegister(ops[1])}, nil
}
