package main

import (
	"fmt"
	"os"

	"github.com/tebeka/atexit"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		atexit.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "decompile":
		err = cmdDecompile(os.Args[2:])
	case "disasm":
		err = cmdDisasm(os.Args[2:])
	case "graph":
		err = cmdGraph(os.Args[2:])
	case "help", "-h", "--help":
		usage()
		atexit.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		usage()
		atexit.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		atexit.Exit(1)
	}
	atexit.Exit(0)
}

func usage() {
	fmt.Fprintf(os.Stderr, `ppc2c: PowerPC to C function recovery

Usage:
  ppc2c decompile --elf <path> --entry <addr|symbol> [--out <file>]   Emit C for reachable functions
  ppc2c disasm    --elf <path> --entry <addr|symbol> [--out <dir>]    Listing of collected functions
  ppc2c graph     --elf <path> --entry <addr|symbol> --out <dir>      Call graph, CFGs and JSONL

Input flags (all commands):
  --elf <path>            PowerPC ELF executable or shared object
  --raw <path>            flat code image (with --base, optional --le)
  --entry <addr|symbol>   entry function (default: ELF entry point)
  --annotations <yaml>    names, comments, directives and TOC entries
  --max-steps N           per-function discovery cap (default 10000000)
  --no-recurse            collect the entry function only

disasm flags:
  --single                with --out, write one asm.txt

decompile flags:
  --policy abort|skip-function|skip-instruction
`)
}
