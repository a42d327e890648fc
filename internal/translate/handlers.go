package translate

import (
	"fmt"
	"strings"

	"ppc2c/internal/diag"
	"ppc2c/internal/ppc"
)

// reg parses an operand and returns it with its display form. Operands
// that are not registers display verbatim.
func reg(s string) (ppc.Register, string) {
	r := ppc.ParseRegister(s)
	return r, r.String()
}

func handleSet(c *Context, in ppc.Instruction, ops []string) (Result, error) {
	return Result{Code: fmt.Sprintf("#define %s %s", ops[0], ops[1])}, nil
}

func handleNop(c *Context, in ppc.Instruction, ops []string) (Result, error) {
	return Result{}, nil
}

func handleLi(c *Context, in ppc.Instruction, ops []string) (Result, error) {
	out, dst := reg(ops[0])
	return Result{Code: dst + " = " + ops[1], Out: out}, nil
}

func handleLis(c *Context, in ppc.Instruction, ops []string) (Result, error) {
	out, dst := reg(ops[0])
	return Result{Code: dst + " = " + ops[1] + " << 16", Out: out}, nil
}

func handleMr(c *Context, in ppc.Instruction, ops []string) (Result, error) {
	out, dst := reg(ops[0])
	src, s := reg(ops[1])
	return Result{Code: dst + " = " + s, Out: out, In1: src}, nil
}

func handleMoveFrom(spr ppc.Register) handler {
	return func(c *Context, in ppc.Instruction, ops []string) (Result, error) {
		out, dst := reg(ops[0])
		return Result{Code: dst + " = " + spr.String(), Out: out, In1: spr}, nil
	}
}

func handleMoveTo(spr ppc.Register) handler {
	return func(c *Context, in ppc.Instruction, ops []string) (Result, error) {
		src, s := reg(ops[0])
		return Result{Code: spr.String() + " = " + s, Out: spr, In1: src}, nil
	}
}

// special resolves the special-purpose register named by one of the two
// operands of mfspr/mtspr. The other operand is the GPR. Anything but LR
// and CTR is reported and treated as LR.
func (c *Context) special(in ppc.Instruction, ops []string) (spr, gpr ppc.Register) {
	a, b := ppc.ParseRegister(ops[0]), ppc.ParseRegister(ops[1])
	idx := 1
	if in.Name == "mtspr" {
		idx = 0
	}
	switch {
	case a.Kind == ppc.RegGPR && b.Kind != ppc.RegGPR:
		idx = 1
	case b.Kind == ppc.RegGPR && a.Kind != ppc.RegGPR:
		idx = 0
	}
	sprText := ops[idx]
	gpr = ppc.ParseRegister(ops[1-idx])

	switch strings.ToLower(strings.TrimSpace(sprText)) {
	case "lr", "8":
		return ppc.LR, gpr
	case "ctr", "9":
		return ppc.CTR, gpr
	}
	diag.Reportf(c.sink, in.Addr, diag.SevWarning, diag.KindRegister, "%s: unrecognized special register %s, assuming LR", in.Name, sprText)
	return ppc.LR, gpr
}

func handleMfspr(c *Context, in ppc.Instruction, ops []string) (Result, error) {
	spr, gpr := c.special(in, ops)
	return Result{Code: gpr.String() + " = " + spr.String(), Out: gpr, In1: spr}, nil
}

func handleMtspr(c *Context, in ppc.Instruction, ops []string) (Result, error) {
	spr, gpr := c.special(in, ops)
	return Result{Code: spr.String() + " = " + gpr.String(), Out: spr, In1: gpr}, nil
}

func mem(in ppc.Instruction, s string) (int64, ppc.Register, error) {
	disp, base, err := ppc.ParseMem(s)
	if err != nil {
		return 0, base, fmt.Errorf("%w: %s: %v", ErrMalformedOperand, dump(in), err)
	}
	return disp, base, nil
}

// deref renders ((T*)(base + disp))[0], omitting the arithmetic for a zero
// displacement.
func deref(ctype string, base ppc.Register, disp int64) string {
	switch {
	case disp > 0:
		return fmt.Sprintf("((%s*)(%s + %d))[0]", ctype, base, disp)
	case disp < 0:
		return fmt.Sprintf("((%s*)(%s - %d))[0]", ctype, base, -disp)
	}
	return fmt.Sprintf("((%s*)%s)[0]", ctype, base)
}

func handleLoad(ctype string) handler {
	return func(c *Context, in ppc.Instruction, ops []string) (Result, error) {
		out, dst := reg(ops[0])
		disp, base, err := mem(in, ops[1])
		if err != nil {
			return Result{}, err
		}
		return Result{Code: dst + " = " + deref(ctype, base, disp), Out: out, In1: base}, nil
	}
}

func handleStore(ctype string) handler {
	return func(c *Context, in ppc.Instruction, ops []string) (Result, error) {
		src, s := reg(ops[0])
		disp, base, err := mem(in, ops[1])
		if err != nil {
			return Result{}, err
		}
		return Result{Code: deref(ctype, base, disp) + " = " + s, Out: base, In1: src}, nil
	}
}

var handleLwz = handleLoad("uint32_t")

func handleLbz(c *Context, in ppc.Instruction, ops []string) (Result, error) {
	out, dst := reg(ops[0])
	disp, base, err := mem(in, ops[1])
	if err != nil {
		return Result{}, err
	}
	return Result{Code: fmt.Sprintf("%s = ((uint8_t*)%s)[%d]", dst, base, disp), Out: out, In1: base}, nil
}

func handleStb(c *Context, in ppc.Instruction, ops []string) (Result, error) {
	src, s := reg(ops[0])
	disp, base, err := mem(in, ops[1])
	if err != nil {
		return Result{}, err
	}
	return Result{Code: fmt.Sprintf("((uint8_t*)%s)[%d] = %s", base, disp, s), Out: base, In1: src}, nil
}

// handleLd treats a reload of r2 from the stack as the TOC restore that
// follows cross-module calls and emits nothing for it.
func handleLd(c *Context, in ppc.Instruction, ops []string) (Result, error) {
	out, _ := reg(ops[0])
	_, base, err := mem(in, ops[1])
	if err != nil {
		return Result{}, err
	}
	if out.IsTOC() && base.IsStackPointer() {
		return Result{Out: out, In1: base}, nil
	}
	return handleLoad("uint64_t")(c, in, ops)
}

func handleStd(c *Context, in ppc.Instruction, ops []string) (Result, error) {
	src, s := reg(ops[0])
	disp, base, err := mem(in, ops[1])
	if err != nil {
		return Result{}, err
	}
	return Result{Code: fmt.Sprintf("%s[%d] = %s", base, disp, s), Out: base, In1: src}, nil
}

// handleStdu recognises the stack-frame push. Frames are not modelled, so
// it emits nothing.
func handleStdu(c *Context, in ppc.Instruction, ops []string) (Result, error) {
	sp, _ := reg(ops[0])
	_, base, err := mem(in, ops[1])
	if err != nil {
		return Result{}, err
	}
	if !sp.IsStackPointer() || !base.IsStackPointer() {
		diag.Reportf(c.sink, in.Addr, diag.SevWarning, diag.KindRegister, "stdu does not update the stack pointer: %s", dump(in))
	}
	return Result{Out: base, In1: sp}, nil
}

func binary(op string) handler {
	return func(c *Context, in ppc.Instruction, ops []string) (Result, error) {
		out, dst := reg(ops[0])
		a, as := reg(ops[1])
		b, bs := reg(ops[2])
		return Result{Code: fmt.Sprintf("%s = %s %s %s", dst, as, op, bs), Out: out, In1: a, In2: b}, nil
	}
}

// immediate renders dst = src OP imm with the immediate text unchanged.
func immediate(op string) handler {
	return func(c *Context, in ppc.Instruction, ops []string) (Result, error) {
		out, dst := reg(ops[0])
		a, as := reg(ops[1])
		return Result{Code: fmt.Sprintf("%s = %s %s %s", dst, as, op, ops[2]), Out: out, In1: a}, nil
	}
}

// shifted renders the *is forms: dst = (src OP imm) << 16.
func shifted(op string) handler {
	return func(c *Context, in ppc.Instruction, ops []string) (Result, error) {
		out, dst := reg(ops[0])
		a, as := reg(ops[1])
		return Result{Code: fmt.Sprintf("%s = (%s %s %s) << 16", dst, as, op, ops[2]), Out: out, In1: a}, nil
	}
}

func handleSubf(c *Context, in ppc.Instruction, ops []string) (Result, error) {
	out, dst := reg(ops[0])
	a, as := reg(ops[1])
	b, bs := reg(ops[2])
	return Result{Code: fmt.Sprintf("%s = %s - %s", dst, bs, as), Out: out, In1: b, In2: a}, nil
}

func handleNeg(c *Context, in ppc.Instruction, ops []string) (Result, error) {
	out, dst := reg(ops[0])
	a, as := reg(ops[1])
	return Result{Code: fmt.Sprintf("%s = -%s", dst, as), Out: out, In1: a}, nil
}

func handleNor(c *Context, in ppc.Instruction, ops []string) (Result, error) {
	out, dst := reg(ops[0])
	a, as := reg(ops[1])
	b, bs := reg(ops[2])
	if as == bs {
		return Result{Code: fmt.Sprintf("%s = ~%s", dst, as), Out: out, In1: a}, nil
	}
	return Result{Code: fmt.Sprintf("%s = ~(%s | %s)", dst, as, bs), Out: out, In1: a, In2: b}, nil
}

func extend(ctype string) handler {
	return func(c *Context, in ppc.Instruction, ops []string) (Result, error) {
		out, dst := reg(ops[0])
		a, as := reg(ops[1])
		return Result{Code: fmt.Sprintf("%s = (%s)%s", dst, ctype, as), Out: out, In1: a}, nil
	}
}

func handleSrawi(c *Context, in ppc.Instruction, ops []string) (Result, error) {
	out, dst := reg(ops[0])
	a, as := reg(ops[1])
	return Result{Code: fmt.Sprintf("%s = (int32_t)%s >> %s", dst, as, ops[2]), Out: out, In1: a}, nil
}

func handleSraw(c *Context, in ppc.Instruction, ops []string) (Result, error) {
	out, dst := reg(ops[0])
	a, as := reg(ops[1])
	b, bs := reg(ops[2])
	return Result{Code: fmt.Sprintf("%s = (int32_t)%s >> %s", dst, as, bs), Out: out, In1: a, In2: b}, nil
}
