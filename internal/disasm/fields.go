package disasm

import (
	"fmt"
	"strings"

	"golang.org/x/arch/ppc64/ppc64asm"
)

// Fields renders a decoded instruction as a mnemonic and operand list in
// the form the translator consumes:
//
//   - memory operands print as disp(rN)
//   - compares always name their CR field, cr0 included
//   - bc-family branches keep numeric BO and BI fields
//   - branch targets are absolute hex addresses
//
// A handful of simplified mnemonics are applied (li, lis, mr, nop, mflr,
// mtlr, mfctr, mtctr, blr, bctr, bctrl). Everything else keeps its base
// mnemonic, record-form dot included. target is the branch target when ok
// is set.
func Fields(inst ppc64asm.Inst, pc uint64) (mnemonic string, ops []string, target uint64, ok bool) {
	mnemonic = inst.Op.String()
	args := args(inst)

	for i := 0; i < len(args); i++ {
		switch a := args[i].(type) {
		case ppc64asm.Offset:
			base := "r0"
			if i+1 < len(args) {
				if r, isReg := args[i+1].(ppc64asm.Reg); isReg {
					base = r.String()
					i++
				}
			}
			ops = append(ops, fmt.Sprintf("%d(%s)", int64(a), base))
		case ppc64asm.PCRel:
			target, ok = pc+uint64(int64(a)), true
			ops = append(ops, fmt.Sprintf("0x%x", target))
		case ppc64asm.Label:
			target, ok = uint64(a), true
			ops = append(ops, fmt.Sprintf("0x%x", target))
		default:
			ops = append(ops, arg(a))
		}
	}

	mnemonic, ops = simplify(mnemonic, args, ops)
	return mnemonic, ops, target, ok
}

func args(inst ppc64asm.Inst) []ppc64asm.Arg {
	var out []ppc64asm.Arg
	for _, a := range inst.Args {
		if a == nil {
			break
		}
		out = append(out, a)
	}
	return out
}

func arg(a ppc64asm.Arg) string {
	switch a := a.(type) {
	case ppc64asm.Reg:
		return a.String()
	case ppc64asm.CondReg:
		if a >= ppc64asm.CR0 {
			return fmt.Sprintf("cr%d", int(a-ppc64asm.CR0))
		}
		// CR bit: numeric BI.
		return fmt.Sprintf("%d", int(a-ppc64asm.Cond0LT))
	case ppc64asm.SpReg:
		switch a {
		case 8:
			return "lr"
		case 9:
			return "ctr"
		}
		return fmt.Sprintf("%d", int(a))
	case ppc64asm.Imm:
		return fmt.Sprintf("%d", int64(a))
	}
	return a.String()
}

func isZeroReg(a ppc64asm.Arg) bool {
	r, ok := a.(ppc64asm.Reg)
	return ok && r == ppc64asm.R0
}

func spr(a ppc64asm.Arg) int {
	if s, ok := a.(ppc64asm.SpReg); ok {
		return int(s)
	}
	return -1
}

func bo(a ppc64asm.Arg) int {
	if v, ok := a.(ppc64asm.Imm); ok {
		return int(v)
	}
	return -1
}

func simplify(mnemonic string, args []ppc64asm.Arg, ops []string) (string, []string) {
	switch mnemonic {
	case "addi":
		if len(ops) == 3 && isZeroReg(args[1]) {
			return "li", []string{ops[0], ops[2]}
		}
	case "addis":
		if len(ops) == 3 && isZeroReg(args[1]) {
			return "lis", []string{ops[0], ops[2]}
		}
	case "or":
		if len(ops) == 3 && ops[1] == ops[2] {
			return "mr", ops[:2]
		}
	case "ori":
		if len(ops) == 3 && ops[0] == "r0" && ops[1] == "r0" && ops[2] == "0" {
			return "nop", nil
		}
	case "mfspr":
		switch spr(args[1]) {
		case 8:
			return "mflr", ops[:1]
		case 9:
			return "mfctr", ops[:1]
		}
	case "mtspr":
		switch spr(args[0]) {
		case 8:
			return "mtlr", ops[1:]
		case 9:
			return "mtctr", ops[1:]
		}
	case "bclr", "bclrl", "bcctr", "bcctrl":
		// Drop the BH hint.
		if len(ops) == 3 {
			ops = ops[:2]
		}
		if bo(args[0])&0x14 == 0x14 {
			return strings.Replace(mnemonic, "bc", "b", 1), nil
		}
	}
	return mnemonic, ops
}
