package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"ppc2c/internal/callgraph"
	"ppc2c/internal/diag"
	"ppc2c/internal/disasm"
	"ppc2c/internal/output"
	"ppc2c/internal/render"
)

func cmdGraph(args []string) error {
	fs := flag.NewFlagSet("graph", flag.ExitOnError)
	in := addInputFlags(fs)
	outDir := fs.String("out", "", "output directory")
	title := fs.String("title", "ppc2c", "graph title")
	minBlocks := fs.Int("min-blocks", 2, "skip CFGs with fewer basic blocks")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *outDir == "" {
		return fmt.Errorf("--out is required")
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

	if err := os.MkdirAll(*outDir, 0755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}

	lookup := disasm.SymbolLookup(prog.syms.SymbolAt)
	infos := callgraph.FromFunctions(res.Functions, lookup, prog.annotators())

	// JSONL records.
	var funcRecs []disasm.FuncRecord
	var edgeRecs []disasm.CallEdgeRecord
	for i, fn := range res.Functions {
		funcRecs = append(funcRecs, disasm.FuncRecord{
			PC:      fmt.Sprintf("0x%x", fn.Start),
			Size:    int(fn.End - fn.Start),
			Name:    fn.Name,
			Insts:   fn.NumMachine(),
			Calls:   len(fn.Calls),
			Returns: fn.Returns,
		})
		for _, e := range infos[i].CallEdges {
			edgeRecs = append(edgeRecs, disasm.EdgeRecord(fn.Name, e))
		}
	}
	if err := output.WriteFunctionsJSONL(*outDir, funcRecs); err != nil {
		return err
	}
	if err := output.WriteCallEdgesJSONL(*outDir, edgeRecs); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "wrote %d functions, %d call edges\n", len(funcRecs), len(edgeRecs))

	var syms []output.SymbolEntry
	for _, f := range prog.syms.Functions() {
		name, _ := prog.syms.SymbolAt(f.Start)
		syms = append(syms, output.SymbolEntry{Address: f.Start, Name: name, Size: f.End - f.Start})
	}
	if err := output.WriteSymbolsJSON(*outDir, syms); err != nil {
		return err
	}

	// Call graph.
	cg := callgraph.BuildCallGraph(infos)
	if err := output.WriteCallGraphDOT(*outDir, cg, *title); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "wrote %s (%d nodes, %d edges)\n",
		filepath.Join(*outDir, "callgraph.dot"), len(cg.Nodes), len(cg.Edges))

	// Reachability from entry points.
	entries := render.FindEntryPoints(funcRecs, edgeRecs)
	if len(res.Functions) > 0 && !slices.Contains(entries, res.Functions[0].Name) {
		entries = append(entries, res.Functions[0].Name)
	}
	reach := render.ReachableSet(entries, edgeRecs)
	dot := render.ReachabilityDOT(edgeRecs, reach, entries, *title+" (reachable)", render.NASA)
	if err := output.WriteDOT(*outDir, "reachable.dot", dot); err != nil {
		return err
	}

	// Per-function CFGs.
	var cfgs int
	for _, info := range infos {
		lcfg, n := callgraph.BuildFuncCFG(info.Name, info.Insts, info.CallEdges)
		if n < *minBlocks {
			continue
		}
		if err := output.WriteCFGDOT(*outDir, lcfg); err != nil {
			return err
		}
		cfgs++
	}
	fmt.Fprintf(os.Stderr, "wrote %d CFGs to %s\n", cfgs, filepath.Join(*outDir, "cfg"))
	return nil
}
