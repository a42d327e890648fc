package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/tebeka/atexit"

	"ppc2c/internal/collect"
	"ppc2c/internal/diag"
	"ppc2c/internal/disasm"
	"ppc2c/internal/elfx"
	"ppc2c/internal/symtab"
)

// inputFlags are shared by every subcommand.
type inputFlags struct {
	elfPath     *string
	rawPath     *string
	base        *string
	little      *bool
	entry       *string
	annotations *string
	maxSteps    *int
	noRecurse   *bool
}

func addInputFlags(fs *flag.FlagSet) *inputFlags {
	return &inputFlags{
		elfPath:     fs.String("elf", "", "PowerPC ELF file"),
		rawPath:     fs.String("raw", "", "flat code image"),
		base:        fs.String("base", "0", "load address of --raw"),
		little:      fs.Bool("le", false, "--raw image is little-endian"),
		entry:       fs.String("entry", "", "entry address or symbol"),
		annotations: fs.String("annotations", "", "YAML annotation file"),
		maxSteps:    fs.Int("max-steps", 0, "per-function discovery cap (0 = 10M)"),
		noRecurse:   fs.Bool("no-recurse", false, "collect the entry function only"),
	}
}

// program is a loaded code image with its symbols and entry point.
type program struct {
	image *disasm.Image
	syms  *symtab.Table
	entry uint64
}

func (in *inputFlags) collectOptions() collect.Options {
	return collect.Options{MaxSteps: *in.maxSteps, NoRecurse: *in.noRecurse}
}

func parseAddr(s string) (uint64, error) {
	return strconv.ParseUint(s, 0, 64)
}

func (in *inputFlags) load() (*program, error) {
	var (
		prog     program
		defEntry uint64
		hasEntry bool
	)
	switch {
	case *in.elfPath != "" && *in.rawPath != "":
		return nil, fmt.Errorf("--elf and --raw are mutually exclusive")
	case *in.elfPath != "":
		ef, err := elfx.Open(*in.elfPath)
		if err != nil {
			return nil, err
		}
		atexit.Register(func() { ef.Close() })

		addr, data, err := ef.Text()
		if err != nil {
			return nil, err
		}
		prog.image = &disasm.Image{Base: addr, Data: data, Order: ef.ByteOrder()}
		if prog.syms, err = symtab.FromELF(ef); err != nil {
			return nil, err
		}
		if e, err := ef.CodeAddr(ef.Entry()); err == nil && e != 0 {
			defEntry, hasEntry = e, true
		}
		fmt.Fprintf(os.Stderr, "elf: %s text=0x%x (%d bytes) functions=%d\n",
			*in.elfPath, addr, len(data), len(prog.syms.Functions()))
	case *in.rawPath != "":
		data, err := os.ReadFile(*in.rawPath)
		if err != nil {
			return nil, fmt.Errorf("read raw image: %w", err)
		}
		base, err := parseAddr(*in.base)
		if err != nil {
			return nil, fmt.Errorf("--base: %w", err)
		}
		var order binary.ByteOrder = binary.BigEndian
		if *in.little {
			order = binary.LittleEndian
		}
		prog.image = &disasm.Image{Base: base, Data: data, Order: order}
		prog.syms = symtab.New(base + uint64(len(data)))
		defEntry, hasEntry = base, true
	default:
		return nil, fmt.Errorf("--elf or --raw is required")
	}

	if *in.annotations != "" {
		a, err := symtab.LoadAnnotations(*in.annotations)
		if err != nil {
			return nil, err
		}
		prog.syms.Apply(a)
	}

	switch {
	case *in.entry != "":
		if addr, ok := prog.syms.Lookup(*in.entry); ok {
			prog.entry = addr
		} else if addr, err := parseAddr(*in.entry); err == nil {
			prog.entry = addr
		} else {
			return nil, fmt.Errorf("--entry: unknown symbol %q", *in.entry)
		}
	case hasEntry:
		prog.entry = defEntry
	default:
		return nil, fmt.Errorf("--entry is required")
	}

	discoverFunctions(&prog)
	prog.image.Annotate = disasm.Chain(prog.annotators()...)
	return &prog, nil
}

// discoverFunctions registers the entry and every direct call target in
// the image as a function start, so images without symbols still have
// function bounds.
func discoverFunctions(prog *program) {
	syms, im := prog.syms, prog.image
	add := func(addr uint64) {
		if start, _, ok := syms.FunctionBounds(addr); ok && start == addr {
			return
		}
		if im.Contains(addr) {
			syms.AddFunction("", addr, 0)
		}
	}
	add(prog.entry)

	insts := disasm.Disassemble(im.Data, disasm.Options{BaseAddr: im.Base, ByteOrder: im.Order})
	for _, inst := range insts {
		ci := disasm.DecodeCall(inst.Raw, inst.Addr)
		if ci == nil || ci.Indirect || ci.Target == inst.Addr+4 {
			continue
		}
		add(ci.Target)
	}
}

// annotators returns the listing annotators for prog, the stateful TOC
// peephole first so it sees every instruction.
func (p *program) annotators() []disasm.Annotator {
	toc := p.syms.TOC()
	return []disasm.Annotator{
		disasm.NewPeepholeState(toc).Annotator(),
		disasm.TOCAnnotator(toc),
		disasm.StackAnnotator(),
	}
}

// collectAll runs the collector from the entry point, reporting to sink.
func collectAll(prog *program, in *inputFlags, sink diag.Sink) (collect.Result, error) {
	c := collect.New(prog.image, prog.image, prog.syms, in.collectOptions(), sink)
	res, err := c.Collect(prog.entry)
	if err != nil {
		return res, err
	}
	fmt.Fprintf(os.Stderr, "collected %d functions from 0x%x (%d failed)\n",
		len(res.Functions), prog.entry, len(res.Failed))
	return res, nil
}

func stderrSink(d *diag.Diags) diag.Sink {
	return diag.Tee(d, diag.Writer{W: os.Stderr, Prefix: "ppc2c: "})
}
