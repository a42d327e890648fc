package disasm

import (
	"encoding/binary"
	"strings"
	"testing"
)

// words encodes raw instruction words in big-endian order.
func words(ws ...uint32) []byte {
	data := make([]byte, 4*len(ws))
	for i, w := range ws {
		binary.BigEndian.PutUint32(data[i*4:], w)
	}
	return data
}

const (
	encNOP   = 0x60000000
	encBLR   = 0x4E800020
	encBCTR  = 0x4E800420
	encBCTRL = 0x4E800421
	encBLRL  = 0x4E800021
	encLI    = 0x38600001 // li r3,1
	encLWZ   = 0x80640008 // lwz r3,8(r4)
)

func TestDisassembleNOP(t *testing.T) {
	insts := Disassemble(words(encNOP, encNOP), Options{BaseAddr: 0x1000})
	if len(insts) != 2 {
		t.Fatalf("got %d instructions, want 2", len(insts))
	}
	if insts[0].Addr != 0x1000 {
		t.Errorf("addr[0] = 0x%x, want 0x1000", insts[0].Addr)
	}
	if insts[1].Addr != 0x1004 {
		t.Errorf("addr[1] = 0x%x, want 0x1004", insts[1].Addr)
	}
	if insts[0].Text != "nop" {
		t.Errorf("expected nop, got: %s", insts[0].Text)
	}
}

func TestDisassembleLittleEndian(t *testing.T) {
	data := make([]byte, 4)
	binary.LittleEndian.PutUint32(data, encNOP)
	insts := Disassemble(data, Options{ByteOrder: binary.LittleEndian})
	if len(insts) != 1 || insts[0].Text != "nop" {
		t.Fatalf("got %+v, want one nop", insts)
	}
}

func TestDisassembleMaxSteps(t *testing.T) {
	// 100 nops but max 10.
	ws := make([]uint32, 100)
	for i := range ws {
		ws[i] = encNOP
	}
	insts := Disassemble(words(ws...), Options{MaxSteps: 10})
	if len(insts) != 10 {
		t.Fatalf("got %d instructions, want 10", len(insts))
	}
}

func TestDisassembleEmpty(t *testing.T) {
	insts := Disassemble(nil, Options{})
	if len(insts) != 0 {
		t.Fatalf("got %d instructions for nil data", len(insts))
	}
}

func TestDisassembleShort(t *testing.T) {
	// Less than 4 bytes.
	insts := Disassemble([]byte{0x01, 0x02}, Options{})
	if len(insts) != 0 {
		t.Fatalf("got %d instructions for 2 bytes", len(insts))
	}
}

func TestDisassembleUndecodable(t *testing.T) {
	insts := Disassemble(words(0x00000000), Options{})
	if len(insts) != 1 {
		t.Fatalf("got %d instructions, want 1", len(insts))
	}
	if insts[0].Mnemonic != ".long" || insts[0].Text != ".long 0x00000000" {
		t.Errorf("got %q, want .long", insts[0].Text)
	}
}

func TestDisassembleFields(t *testing.T) {
	tests := []struct {
		raw  uint32
		want string
	}{
		{encLI, "li r3,1"},
		{encLWZ, "lwz r3,8(r4)"},
		{encBLR, "blr"},
		{encBCTR, "bctr"},
		{encBCTRL, "bctrl"},
		{0x7D8903A6, "mtctr r12"},
		{0x7C0802A6, "mflr r0"},
		{0x7C9F2378, "mr r31,r4"},
	}
	for _, tt := range tests {
		if got := DisasmOne(tt.raw, 0x1000, nil); got != tt.want {
			t.Errorf("DisasmOne(%08x) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestDisassembleBranchTarget(t *testing.T) {
	insts := Disassemble(words(encNOP, 0x48000010), Options{BaseAddr: 0x1000})
	b := insts[1]
	if !b.HasTarget || b.Target != 0x1014 {
		t.Fatalf("target = 0x%x (%v), want 0x1014", b.Target, b.HasTarget)
	}
	if b.Text != "b 0x1014" {
		t.Errorf("text = %q, want %q", b.Text, "b 0x1014")
	}
}

func TestFormat(t *testing.T) {
	insts := Disassemble(words(encNOP), Options{BaseAddr: 0x1000})
	lookup := PlaceholderLookup(map[uint64]string{0x1000: "entry"})

	got := Format(insts, lookup)
	want := "entry:\n0x00001000  60000000  nop\n"
	if got != want {
		t.Errorf("Format = %q, want %q", got, want)
	}
}

func TestFormatBranchSymbol(t *testing.T) {
	insts := Disassemble(words(0x48000101), Options{BaseAddr: 0x1000}) // bl 0x1100
	lookup := PlaceholderLookup(map[uint64]string{0x1100: "helper"})

	got := Format(insts, lookup, func(Inst) string { return "ignored" })
	if !strings.HasSuffix(got, "  ; <helper>\n") {
		t.Errorf("Format = %q, want branch target comment", got)
	}
}

func TestFormatAnnotator(t *testing.T) {
	insts := Disassemble(words(encNOP, encNOP), Options{BaseAddr: 0x1000})
	empty := func(Inst) string { return "" }
	second := func(inst Inst) string {
		if inst.Addr == 0x1004 {
			return "here"
		}
		return ""
	}
	got := Format(insts, nil, empty, second)
	want := "0x00001000  60000000  nop\n0x00001004  60000000  nop  ; here\n"
	if got != want {
		t.Errorf("Format = %q, want %q", got, want)
	}
}

func TestFormatDeterministic(t *testing.T) {
	insts := Disassemble(words(encLI, encLWZ, encBLR), Options{BaseAddr: 0x2000})
	a := Format(insts, nil)
	b := Format(insts, nil)
	if a != b {
		t.Error("Format output not deterministic")
	}
}
