// Package disasm provides PowerPC disassembly for ELF code regions.
package disasm

import (
	"encoding/binary"
	"fmt"
	"strings"

	"golang.org/x/arch/ppc64/ppc64asm"
)

// Inst is a decoded PowerPC instruction with address and raw bytes.
type Inst struct {
	Addr     uint64
	Raw      uint32
	Size     int    // 4, or 8 for prefixed instructions
	Mnemonic string // simplified mnemonic, see Fields
	Operands string
	Text     string // full disassembly line

	Target    uint64 // branch target, when HasTarget
	HasTarget bool
}

// SymbolLookup resolves an address to a symbolic name. Returns ("", false) if unknown.
type SymbolLookup func(addr uint64) (name string, ok bool)

// Options controls disassembly behavior.
type Options struct {
	BaseAddr  uint64           // VA of the first byte in Data
	MaxSteps  int              // maximum instructions to decode; 0 = 10M
	Symbols   SymbolLookup     // optional symbol resolver
	ByteOrder binary.ByteOrder // nil = big-endian
}

const defaultMaxSteps = 10_000_000

func (o Options) effectiveMax() int {
	if o.MaxSteps > 0 {
		return o.MaxSteps
	}
	return defaultMaxSteps
}

func (o Options) order() binary.ByteOrder {
	if o.ByteOrder != nil {
		return o.ByteOrder
	}
	return binary.BigEndian
}

// Disassemble decodes PowerPC instructions from a byte region.
// Returns decoded instructions up to MaxSteps or end of data.
func Disassemble(data []byte, opts Options) []Inst {
	maxSteps := opts.effectiveMax()
	order := opts.order()

	var result []Inst
	for off := 0; off+4 <= len(data) && len(result) < maxSteps; {
		inst := decodeAt(data[off:], opts.BaseAddr+uint64(off), order)
		result = append(result, inst)
		off += inst.Size
	}
	return result
}

// decodeAt decodes one instruction. Undecodable words become .long.
func decodeAt(src []byte, addr uint64, order binary.ByteOrder) Inst {
	raw := order.Uint32(src[:4])
	d, err := ppc64asm.Decode(src, order)
	if err != nil || d.Op == 0 {
		return Inst{
			Addr:     addr,
			Raw:      raw,
			Size:     4,
			Mnemonic: ".long",
			Operands: fmt.Sprintf("0x%08x", raw),
			Text:     fmt.Sprintf(".long 0x%08x", raw),
		}
	}

	mnemonic, ops, target, ok := Fields(d, addr)
	operands := strings.Join(ops, ",")
	text := mnemonic
	if operands != "" {
		text += " " + operands
	}
	return Inst{
		Addr:      addr,
		Raw:       raw,
		Size:      d.Len,
		Mnemonic:  mnemonic,
		Operands:  operands,
		Text:      text,
		Target:    target,
		HasTarget: ok,
	}
}

// annotate runs every annotator on inst, so stateful ones observe the
// whole stream, and returns the first non-empty result.
// Chain combines annotators into one that runs all of them on every
// instruction and keeps the first non-empty note.
func Chain(annotators ...Annotator) Annotator {
	return func(inst Inst) string { return annotate(inst, annotators) }
}

func annotate(inst Inst, annotators []Annotator) string {
	var note string
	for _, ann := range annotators {
		if s := ann(inst); s != "" && note == "" {
			note = s
		}
	}
	return note
}

// Format renders a slice of instructions as stable text output.
// Each line: <addr>  <raw word>  <disasm>  ; <comments>
// A symbolized branch target wins over annotators; among annotators the
// first non-empty result is used.
func Format(insts []Inst, lookup SymbolLookup, annotators ...Annotator) string {
	var b strings.Builder
	for _, inst := range insts {
		if lookup != nil {
			if name, ok := lookup(inst.Addr); ok {
				fmt.Fprintf(&b, "%s:\n", name)
			}
		}
		fmt.Fprintf(&b, "0x%08x  %08x  ", inst.Addr, inst.Raw)
		b.WriteString(inst.Text)

		note := annotate(inst, annotators)
		if lookup != nil && inst.HasTarget {
			if name, ok := lookup(inst.Target); ok {
				note = "<" + name + ">"
			}
		}
		if note != "" {
			fmt.Fprintf(&b, "  ; %s", note)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// DisasmOne decodes a single instruction from its raw encoding.
// Returns the disassembly text, or "" if decoding fails.
func DisasmOne(raw uint32, addr uint64, order binary.ByteOrder) string {
	if order == nil {
		order = binary.BigEndian
	}
	buf := make([]byte, 4)
	order.PutUint32(buf, raw)
	d, err := ppc64asm.Decode(buf, order)
	if err != nil || d.Op == 0 {
		return ""
	}
	mnemonic, ops, _, _ := Fields(d, addr)
	if len(ops) == 0 {
		return mnemonic
	}
	return mnemonic + " " + strings.Join(ops, ",")
}

// PlaceholderLookup returns a SymbolLookup over a fixed name table.
func PlaceholderLookup(entryPoints map[uint64]string) SymbolLookup {
	return func(addr uint64) (string, bool) {
		if name, ok := entryPoints[addr]; ok {
			return name, true
		}
		return "", false
	}
}
