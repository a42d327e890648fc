// Package emit prints collected functions as C source.
//
// The output is a single translation unit: the include, one prototype per
// collected function, declaration-only prototypes for call targets that
// have no body, then the bodies in discovery order.
package emit

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"ppc2c/internal/collect"
	"ppc2c/internal/diag"
	"ppc2c/internal/ppc"
	"ppc2c/internal/translate"
)

const indent = "  "

// Emitter renders one batch. The translation context, and with it the
// condition register state, is shared by every function of the batch.
type Emitter struct {
	ctx   *translate.Context
	names translate.Names
	opts  diag.Options
	sink  diag.Sink
}

// New returns an emitter. names and sink may be nil.
func New(names translate.Names, opts diag.Options, sink diag.Sink) *Emitter {
	if sink == nil {
		sink = diag.Discard
	}
	return &Emitter{
		ctx:   translate.NewContext(names, sink),
		names: names,
		opts:  opts,
		sink:  sink,
	}
}

// Emit writes res to w. Under PolicyAbort a translation error discards the
// whole batch: nothing is written and the error is returned.
func Emit(w io.Writer, res collect.Result, names translate.Names, opts diag.Options, sink diag.Sink) error {
	return New(names, opts, sink).Emit(w, res)
}

// Emit renders res and writes it to w in one piece.
func (e *Emitter) Emit(w io.Writer, res collect.Result) error {
	var sb strings.Builder
	sb.WriteString("#include <stdint.h>\n\n")

	for _, fn := range res.Functions {
		fmt.Fprintf(&sb, "void %s();\n", fn.Name)
	}
	for _, name := range e.declarations(res) {
		fmt.Fprintf(&sb, "void %s(); /* declaration only, no body produced */\n", name)
	}

	for _, fn := range res.Functions {
		body, err := e.Function(fn)
		if err != nil {
			return err
		}
		sb.WriteByte('\n')
		sb.WriteString(body)
	}

	if _, err := io.WriteString(w, sb.String()); err != nil {
		return fmt.Errorf("emit: write: %w", err)
	}
	return nil
}

// declarations names the failed functions, then every call target that is
// not the start of a collected function, each once, in discovery order.
func (e *Emitter) declarations(res collect.Result) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	for _, f := range res.Failed {
		add(f.Name)
	}

	collected := make(map[string]bool, len(res.Functions))
	for _, fn := range res.Functions {
		collected[fn.Name] = true
	}
	for _, fn := range res.Functions {
		for _, target := range fn.Calls {
			if startsAt(res.Functions, target) {
				continue
			}
			if name := e.nameOf(target); !collected[name] {
				add(name)
			}
		}
	}
	return out
}

func startsAt(fns []*ppc.Function, addr uint64) bool {
	for _, fn := range fns {
		if fn.Start == addr {
			return true
		}
	}
	return false
}

func (e *Emitter) nameOf(addr uint64) string {
	if e.names != nil {
		if name, ok := e.names.SymbolAt(addr); ok {
			return name
		}
	}
	return ppc.SubName(addr)
}

// Function renders the body of fn. The returned error is non-nil only under
// PolicyAbort.
func (e *Emitter) Function(fn *ppc.Function) (string, error) {
	e.ctx.Begin(fn)

	var sb strings.Builder
	fmt.Fprintf(&sb, "void %s()\n{\n", fn.Name)
	sb.WriteString(indent + registerDecl() + "\n")

	var pending string
	stmt := func(s string) {
		sb.WriteString(indent + s)
		if pending != "" {
			sb.WriteString(" // " + pending)
			pending = ""
		}
		sb.WriteByte('\n')
	}
	flush := func() {
		if pending != "" {
			sb.WriteString(indent + "// " + pending + "\n")
			pending = ""
		}
	}

	for _, in := range fn.Insts {
		switch in.Kind {
		case ppc.KindComment:
			sb.WriteString(indent + comment(in.Name) + "\n")

		case ppc.KindInlineComment:
			flush()
			pending = in.Name

		case ppc.KindLabel:
			if in.Name != fn.Name {
				sb.WriteString(in.Name + ":\n")
			}

		case ppc.KindFlow:
			stmt("goto " + in.Name + ";")

		case ppc.KindDirective:
			res, err := e.ctx.Translate(in)
			if err != nil {
				diag.Reportf(e.sink, in.Addr, diag.SevWarning, diag.KindOperand, "%s: %v", fn.Name, err)
				sb.WriteString(comment(in.String()) + "\n")
				continue
			}
			if res.Comment != "" {
				sb.WriteString(comment(res.Comment) + "\n")
				continue
			}
			sb.WriteString(res.Code + "\n")

		case ppc.KindInstruction:
			res, err := e.ctx.Translate(in)
			if err != nil {
				switch e.opts.Policy {
				case diag.PolicySkipFunction:
					diag.Reportf(e.sink, in.Addr, diag.SevError, kindOf(err), "%s: body dropped: %v", fn.Name, err)
					return skipped(fn, err), nil
				case diag.PolicySkipInstruction:
					diag.Reportf(e.sink, in.Addr, diag.SevError, kindOf(err), "%s: instruction skipped: %v", fn.Name, err)
					stmt(comment("skipped: " + in.String()))
					continue
				}
				diag.Reportf(e.sink, in.Addr, diag.SevFatal, kindOf(err), "%s: %v", fn.Name, err)
				return "", fmt.Errorf("emit: %s: %w", fn.Name, err)
			}
			switch {
			case res.Comment != "":
				stmt(comment(res.Comment))
			case res.Code == "":
				flush()
			case strings.HasSuffix(res.Code, "}"):
				stmt(res.Code)
			default:
				stmt(res.Code + ";")
			}
		}
	}
	flush()
	sb.WriteString("}\n")
	return sb.String(), nil
}

func skipped(fn *ppc.Function, err error) string {
	return fmt.Sprintf("void %s()\n{\n%s%s\n}\n", fn.Name, indent, comment("body omitted: "+err.Error()))
}

func kindOf(err error) diag.Kind {
	if errors.Is(err, translate.ErrArity) {
		return diag.KindArity
	}
	return diag.KindOperand
}

// registerDecl is the fixed declaration block opening every body.
func registerDecl() string {
	var sb strings.Builder
	sb.WriteString("uint64_t LR, CTR, *sp, *rtoc")
	for i := 0; i < ppc.NumGPR; i++ {
		fmt.Fprintf(&sb, ", r%d", i)
	}
	sb.WriteByte(';')
	return sb.String()
}

// comment wraps text in a block comment, breaking any terminator it holds.
func comment(text string) string {
	return "/* " + strings.ReplaceAll(text, "*/", "* /") + " */"
}
