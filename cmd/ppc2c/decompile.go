package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"os"

	"ppc2c/internal/diag"
	"ppc2c/internal/emit"
	"ppc2c/internal/output"
)

func cmdDecompile(args []string) error {
	fs := flag.NewFlagSet("decompile", flag.ExitOnError)
	in := addInputFlags(fs)
	outPath := fs.String("out", "", "output C file (default: stdout)")
	policyName := fs.String("policy", "abort", "failure policy: abort, skip-function or skip-instruction")

	if err := fs.Parse(args); err != nil {
		return err
	}
	policy, err := diag.ParsePolicy(*policyName)
	if err != nil {
		return err
	}

	prog, err := in.load()
	if err != nil {
		return err
	}

	var diags diag.Diags
	sink := stderrSink(&diags)
	res, err := collectAll(prog, in, sink)
	if err != nil {
		return err
	}

	opts := diag.Options{Policy: policy, MaxSteps: *in.maxSteps}
	render := func(w io.Writer) error {
		return emit.Emit(w, res, prog.syms, opts, sink)
	}

	if *outPath == "" {
		var buf bytes.Buffer
		if err := render(&buf); err != nil {
			return err
		}
		if _, err := os.Stdout.Write(buf.Bytes()); err != nil {
			return err
		}
	} else {
		if err := output.WriteC(*outPath, render); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "wrote %s\n", *outPath)
	}

	fmt.Fprintf(os.Stderr, "%d functions, %d warnings, %d errors\n",
		len(res.Functions), diags.Count(diag.SevWarning), diags.Count(diag.SevError))
	return nil
}
