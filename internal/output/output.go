// Package output writes ppc2c results to files.
package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/zboralski/lattice"
	"github.com/zboralski/lattice/render"

	"ppc2c/internal/disasm"
)

// WriteC renders C source through fn and writes it to path. Nothing is
// written when fn fails.
func WriteC(path string, fn func(io.Writer) error) error {
	var buf bytes.Buffer
	if err := fn(&buf); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("output: write %s: %w", path, err)
	}
	return nil
}

// SymbolEntry represents a named code address.
type SymbolEntry struct {
	Address uint64 `json:"address"`
	Name    string `json:"name"`
	Size    uint64 `json:"size,omitempty"`
}

// WriteSymbolsJSON writes symbols to symbols.json.
func WriteSymbolsJSON(dir string, symbols []SymbolEntry) error {
	return writeJSON(filepath.Join(dir, "symbols.json"), symbols)
}

// WriteASM writes disassembled instructions to asm/<name>.txt.
func WriteASM(dir string, name string, insts []disasm.Inst, lookup disasm.SymbolLookup, annotators ...disasm.Annotator) error {
	path := filepath.Join(dir, "asm", name+".txt")
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("output: mkdir asm: %w", err)
	}

	text := disasm.Format(insts, lookup, annotators...)
	return os.WriteFile(path, []byte(text), 0644)
}

// WriteASMSingle writes all instructions to a single asm.txt file.
func WriteASMSingle(dir string, insts []disasm.Inst, lookup disasm.SymbolLookup, annotators ...disasm.Annotator) error {
	path := filepath.Join(dir, "asm.txt")
	text := disasm.Format(insts, lookup, annotators...)
	return os.WriteFile(path, []byte(text), 0644)
}

// WriteFunctionsJSONL writes one FuncRecord per line to functions.jsonl.
func WriteFunctionsJSONL(dir string, recs []disasm.FuncRecord) error {
	return writeJSONL(filepath.Join(dir, "functions.jsonl"), recs)
}

// WriteCallEdgesJSONL writes one CallEdgeRecord per line to call_edges.jsonl.
func WriteCallEdgesJSONL(dir string, recs []disasm.CallEdgeRecord) error {
	return writeJSONL(filepath.Join(dir, "call_edges.jsonl"), recs)
}

// WriteCallGraphDOT writes callgraph.dot.
func WriteCallGraphDOT(dir string, g *lattice.Graph, title string) error {
	return writeText(filepath.Join(dir, "callgraph.dot"), render.DOT(g, title))
}

// WriteCFGDOT writes one function's CFG to cfg/<name>.dot.
func WriteCFGDOT(dir string, fn *lattice.FuncCFG) error {
	path := filepath.Join(dir, "cfg", fn.Name+".dot")
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("output: mkdir cfg: %w", err)
	}
	cg := &lattice.CFGGraph{Funcs: []*lattice.FuncCFG{fn}}
	return writeText(path, render.DOTCFG(cg, fn.Name))
}

// WriteDOT writes arbitrary DOT text to dir/name.
func WriteDOT(dir, name, dot string) error {
	return writeText(filepath.Join(dir, name), dot)
}

func writeText(path, text string) error {
	if err := os.WriteFile(path, []byte(text), 0644); err != nil {
		return fmt.Errorf("output: write %s: %w", path, err)
	}
	return nil
}

func writeJSONL[T any](path string, recs []T) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("output: create %s: %w", path, err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	for _, r := range recs {
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("output: encode %s: %w", path, err)
		}
	}
	return nil
}

// ReadJSONL decodes one T per line from path.
func ReadJSONL[T any](path string) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var records []T
	dec := json.NewDecoder(f)
	for dec.More() {
		var rec T
		if err := dec.Decode(&rec); err != nil {
			return records, fmt.Errorf("line %d: %w", len(records)+1, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("output: create %s: %w", path, err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("output: encode %s: %w", path, err)
	}
	return nil
}
