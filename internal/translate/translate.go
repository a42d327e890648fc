// Package translate turns single PowerPC instruction entities into C
// statement fragments.
//
// Lookup is by mnemonic in a fixed table. Each entry carries an arity
// check; a failed check is an error the caller resolves through its
// failure policy. Mnemonics missing from the table are not errors: they
// come back as a pass-through comment.
package translate

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"ppc2c/internal/diag"
	"ppc2c/internal/mask"
	"ppc2c/internal/ppc"
)

var (
	ErrArity            = errors.New("translate: wrong number of operands")
	ErrMalformedOperand = errors.New("translate: malformed operand")
)

// Variable marks an entry that validates its own operands.
const Variable = -1

// Result is the translation of one entity.
type Result struct {
	Code    string // C fragment without trailing ';'; empty means no-op
	Comment string // set instead of Code for pass-through comments
	Out     ppc.Register
	In1     ppc.Register
	In2     ppc.Register
}

// Names resolves addresses to symbols.
type Names interface {
	SymbolAt(addr uint64) (string, bool)
}

type handler func(c *Context, in ppc.Instruction, ops []string) (Result, error)

type entry struct {
	arity int
	fn    handler
}

// Context is the translation state of one batch. The condition register
// persists across instructions and functions, last writer wins.
type Context struct {
	CR [ppc.NumCRFields]ppc.CondField

	names Names
	sink  diag.Sink
	fn    *ppc.Function
}

// NewContext returns a context. names and sink may be nil.
func NewContext(names Names, sink diag.Sink) *Context {
	if sink == nil {
		sink = diag.Discard
	}
	return &Context{names: names, sink: sink}
}

// Begin sets the function whose instructions follow.
func (c *Context) Begin(fn *ppc.Function) { c.fn = fn }

// Translate renders one instruction or directive entity.
//
// Invalid mask ranges and unsupported branch encodings are recoverable:
// they are reported as warnings and rendered as a comment. Arity and
// operand errors are returned.
func (c *Context) Translate(in ppc.Instruction) (Result, error) {
	e, ok := lookup(in.Kind, in.Name)
	if !ok {
		diag.Reportf(c.sink, in.Addr, diag.SevWarning, diag.KindUnknownMnemonic, "unknown instruction %s", in.Name)
		return Result{Comment: "Unknown instruction : " + dump(in)}, nil
	}

	ops := in.Operands()
	if e.arity != Variable && len(ops) != e.arity {
		return Result{}, fmt.Errorf("%w: %s at 0x%x: got %d, want %d", ErrArity, dump(in), in.Addr, len(ops), e.arity)
	}

	res, err := e.fn(c, in, ops)
	switch {
	case errors.Is(err, mask.ErrInvalidRange):
		diag.Reportf(c.sink, in.Addr, diag.SevWarning, diag.KindInvalidRange, "%s: %v", dump(in), err)
		return Result{Comment: "Invalid mask range : " + dump(in)}, nil
	case errors.Is(err, mask.ErrUnsupportedBranch):
		diag.Reportf(c.sink, in.Addr, diag.SevWarning, diag.KindBranch, "%s: %v", dump(in), err)
		return Result{Comment: "Unsupported branch encoding : " + dump(in)}, nil
	case errors.Is(err, mask.ErrMalformedOperand):
		return Result{}, fmt.Errorf("%w: %s at 0x%x", ErrMalformedOperand, dump(in), in.Addr)
	case errors.Is(err, ErrArity), errors.Is(err, ErrMalformedOperand):
		return Result{}, fmt.Errorf("%w (at 0x%x)", err, in.Addr)
	case err != nil:
		return Result{}, err
	}
	return res, nil
}

// dump renders the mnemonic followed by every non-empty operand.
func dump(in ppc.Instruction) string {
	var b strings.Builder
	b.WriteString(in.Name)
	for _, op := range in.Ops {
		if op != "" {
			b.WriteByte(' ')
			b.WriteString(op)
		}
	}
	return b.String()
}

// known reports whether the table has an instruction entry for mnemonic.
func known(mnemonic string) bool {
	_, ok := lookup(ppc.KindInstruction, mnemonic)
	return ok
}

// mnemonics lists the instruction mnemonics in the table, sorted.
func mnemonics() []string {
	var out []string
	for k := range table {
		if k.kind == ppc.KindInstruction {
			out = append(out, k.name)
		}
	}
	sort.Strings(out)
	return out
}

type key struct {
	kind ppc.Kind
	name string
}

var table = make(map[key]entry)

func lookup(kind ppc.Kind, name string) (entry, bool) {
	e, ok := table[key{kind, name}]
	return e, ok
}

func register(kind ppc.Kind, arity int, fn handler, names ...string) {
	for _, name := range names {
		table[key{kind, name}] = entry{arity: arity, fn: fn}
	}
}

func init() {
	register(ppc.KindDirective, 2, handleSet, "set")

	// data movement
	register(ppc.KindInstruction, 2, handleLi, "li")
	register(ppc.KindInstruction, 2, handleLis, "lis")
	register(ppc.KindInstruction, 2, handleMr, "mr")
	register(ppc.KindInstruction, 1, handleMoveFrom(ppc.LR), "mflr")
	register(ppc.KindInstruction, 1, handleMoveFrom(ppc.CTR), "mfctr")
	register(ppc.KindInstruction, 1, handleMoveTo(ppc.LR), "mtlr")
	register(ppc.KindInstruction, 1, handleMoveTo(ppc.CTR), "mtctr")
	register(ppc.KindInstruction, 2, handleMfspr, "mfspr")
	register(ppc.KindInstruction, 2, handleMtspr, "mtspr")

	// memory
	register(ppc.KindInstruction, 2, handleLwz, "lwz")
	register(ppc.KindInstruction, 2, handleLbz, "lbz")
	register(ppc.KindInstruction, 2, handleLoad("uint16_t"), "lhz")
	register(ppc.KindInstruction, 2, handleLd, "ld")
	register(ppc.KindInstruction, 2, handleStd, "std")
	register(ppc.KindInstruction, 2, handleStore("uint32_t"), "stw")
	register(ppc.KindInstruction, 2, handleStore("uint16_t"), "sth")
	register(ppc.KindInstruction, 2, handleStb, "stb")
	register(ppc.KindInstruction, 2, handleStdu, "stdu")

	// arithmetic and logic
	register(ppc.KindInstruction, 3, binary("+"), "add")
	register(ppc.KindInstruction, 3, immediate("+"), "addi")
	register(ppc.KindInstruction, 3, shifted("+"), "addis")
	register(ppc.KindInstruction, 3, handleSubf, "subf")
	register(ppc.KindInstruction, 2, handleNeg, "neg")
	register(ppc.KindInstruction, 3, binary("*"), "mullw")
	register(ppc.KindInstruction, 3, binary("|"), "or")
	register(ppc.KindInstruction, 3, immediate("|"), "ori")
	register(ppc.KindInstruction, 3, shifted("|"), "oris")
	register(ppc.KindInstruction, 3, binary("^"), "xor")
	register(ppc.KindInstruction, 3, immediate("^"), "xori")
	register(ppc.KindInstruction, 3, binary("&"), "and")
	register(ppc.KindInstruction, 3, immediate("&"), "andi")
	register(ppc.KindInstruction, 3, handleNor, "nor")

	// sign extension and shifts
	register(ppc.KindInstruction, 2, extend("int8_t"), "extsb")
	register(ppc.KindInstruction, 2, extend("int16_t"), "extsh")
	register(ppc.KindInstruction, 2, extend("int32_t"), "extsw")
	register(ppc.KindInstruction, 3, handleSrawi, "srawi")
	register(ppc.KindInstruction, 3, binary("<<"), "slw")
	register(ppc.KindInstruction, 3, binary(">>"), "srw")
	register(ppc.KindInstruction, 3, handleSraw, "sraw")

	// compares
	register(ppc.KindInstruction, 3, compare(ppc.SizeWord, true, false), "cmpw")
	register(ppc.KindInstruction, 3, compare(ppc.SizeWord, false, false), "cmplw")
	register(ppc.KindInstruction, 3, compare(ppc.SizeWord, true, true), "cmpwi")
	register(ppc.KindInstruction, 3, compare(ppc.SizeWord, false, true), "cmplwi")
	register(ppc.KindInstruction, 3, compare(ppc.SizeQuad, true, false), "cmpd")
	register(ppc.KindInstruction, 3, compare(ppc.SizeQuad, false, false), "cmpld")
	register(ppc.KindInstruction, 3, compare(ppc.SizeQuad, true, true), "cmpdi")
	register(ppc.KindInstruction, 3, compare(ppc.SizeQuad, false, true), "cmpldi")

	// branches
	register(ppc.KindInstruction, 1, handleB, "b", "ba")
	register(ppc.KindInstruction, 1, handleBl, "bl", "bla")
	register(ppc.KindInstruction, 0, handleBlr, "blr")
	register(ppc.KindInstruction, 0, handleBctr, "bctr")
	register(ppc.KindInstruction, 0, handleBctrl, "bctrl")
	register(ppc.KindInstruction, 0, handleBlrl, "blrl")
	register(ppc.KindInstruction, 2, guardedRegister(always("return"), ppc.LR, ppc.Register{}), "bclr")
	register(ppc.KindInstruction, 2, guardedRegister(func(bo int) string { return tail(bo, ctrCall) }, ppc.CTR, ppc.Register{}), "bcctr")
	register(ppc.KindInstruction, 2, guardedRegister(always(lrCall), ppc.LR, ppc.LR), "bclrl")
	register(ppc.KindInstruction, 2, guardedRegister(always(ctrCall), ppc.CTR, ppc.LR), "bcctrl")
	register(ppc.KindInstruction, 3, handleBc, "bc", "bca")
	register(ppc.KindInstruction, 3, handleBcl, "bcl", "bcla")
	for name := range mask.ExtendedBranch {
		register(ppc.KindInstruction, Variable, handleExtended, name)
	}

	// rotate and mask
	for _, name := range mask.Mnemonics() {
		register(ppc.KindInstruction, Variable, handleMask, name)
	}

	register(ppc.KindInstruction, 0, handleNop, "nop")
}
