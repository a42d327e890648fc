package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"ppc2c/internal/callgraph"
	"ppc2c/internal/diag"
	"ppc2c/internal/disasm"
	"ppc2c/internal/output"
)

func cmdDisasm(args []string) error {
	fs := flag.NewFlagSet("disasm", flag.ExitOnError)
	in := addInputFlags(fs)
	outDir := fs.String("out", "", "output directory for asm/<func>.txt (default: stdout)")
	single := fs.Bool("single", false, "with --out, write one asm.txt instead of per-function files")

	if err := fs.Parse(args); err != nil {
		return err
	}

	prog, err := in.load()
	if err != nil {
		return err
	}

	var diags diag.Diags
	res, err := collectAll(prog, in, stderrSink(&diags))
	if err != nil {
		return err
	}

	lookup := disasm.SymbolLookup(prog.syms.SymbolAt)
	if *outDir != "" {
		if err := os.MkdirAll(*outDir, 0755); err != nil {
			return fmt.Errorf("mkdir: %w", err)
		}
	}

	if *outDir != "" && *single {
		var all []disasm.Inst
		for _, fn := range res.Functions {
			all = append(all, callgraph.Insts(fn)...)
		}
		if err := output.WriteASMSingle(*outDir, all, lookup, prog.annotators()...); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "wrote %d instructions to %s\n", len(all), filepath.Join(*outDir, "asm.txt"))
		return nil
	}

	var b strings.Builder
	for _, fn := range res.Functions {
		insts := callgraph.Insts(fn)
		anns := prog.annotators()
		if *outDir != "" {
			if err := output.WriteASM(*outDir, fn.Name, insts, lookup, anns...); err != nil {
				return err
			}
			continue
		}
		fmt.Fprintf(&b, "; %s [0x%x, 0x%x) %d instructions\n", fn.Name, fn.Start, fn.End, len(insts))
		b.WriteString(disasm.Format(insts, lookup, anns...))
		b.WriteByte('\n')
	}

	if *outDir == "" {
		_, err := os.Stdout.WriteString(b.String())
		return err
	}
	fmt.Fprintf(os.Stderr, "wrote %d listings to %s\n", len(res.Functions), *outDir)
	return nil
}
