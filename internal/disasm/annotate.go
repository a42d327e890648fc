package disasm

import "fmt"

// Annotator returns an optional inline comment for an instruction.
// Empty string means no annotation. Receives the full Inst for access
// to both raw encoding and address.
type Annotator func(inst Inst) string

// PowerPC ELF ABI register numbers.
const (
	regSP  = 1 // r1 = stack pointer
	regTOC = 2 // r2 = table of contents pointer
)

const (
	opADDI  = 14
	opADDIS = 15
	opLWZ   = 32
	opLD    = 58 // DS-form, XO in the low two bits
)

func rtField(raw uint32) int { return int((raw >> 21) & 0x1F) }
func raField(raw uint32) int { return int((raw >> 16) & 0x1F) }
func simm16(raw uint32) int  { return int(int16(raw & 0xFFFF)) }

// isLoad returns true if raw is lwz RT,D(RA) or ld RT,DS(RA). Returns the
// base register, the signed displacement and the destination.
func isLoad(raw uint32) (base, disp, rt int, ok bool) {
	switch primary(raw) {
	case opLWZ:
		return raField(raw), simm16(raw), rtField(raw), true
	case opLD:
		if raw&3 != 0 {
			return 0, 0, 0, false
		}
		return raField(raw), int(int16(raw & 0xFFFC)), rtField(raw), true
	}
	return 0, 0, 0, false
}

// isADDI returns true if raw is addi RT,RA,SI with RA != 0 (not li).
func isADDI(raw uint32) (rt, ra, imm int, ok bool) {
	if primary(raw) != opADDI || raField(raw) == 0 {
		return 0, 0, 0, false
	}
	return rtField(raw), raField(raw), simm16(raw), true
}

// isADDIS returns true if raw is addis RT,RA,SI with RA != 0 (not lis).
// imm is the shifted value.
func isADDIS(raw uint32) (rt, ra, imm int, ok bool) {
	if primary(raw) != opADDIS || raField(raw) == 0 {
		return 0, 0, 0, false
	}
	return rtField(raw), raField(raw), simm16(raw) << 16, true
}

// tocLabel renders a TOC-relative offset with its entry name, if known.
func tocLabel(entries map[int]string, off int) string {
	if s, found := entries[off]; found {
		return fmt.Sprintf("TOC%+#x %s", off, s)
	}
	return fmt.Sprintf("TOC%+#x", off)
}

// TOCAnnotator annotates single-instruction r2-relative accesses:
// ld/lwz RT,D(r2) and addi RT,r2,D. entries maps TOC offsets to names.
func TOCAnnotator(entries map[int]string) Annotator {
	return func(inst Inst) string {
		if base, off, _, ok := isLoad(inst.Raw); ok && base == regTOC {
			return tocLabel(entries, off)
		}
		if _, ra, off, ok := isADDI(inst.Raw); ok && ra == regTOC {
			return tocLabel(entries, off)
		}
		return ""
	}
}

// StackAnnotator annotates r1-relative loads with their frame slot.
func StackAnnotator() Annotator {
	return func(inst Inst) string {
		if base, off, _, ok := isLoad(inst.Raw); ok && base == regSP {
			return fmt.Sprintf("sp%+#x", off)
		}
		return ""
	}
}

// PeepholeState tracks state for multi-instruction annotation patterns.
type PeepholeState struct {
	entries   map[int]string
	prevRaw   uint32
	prevValid bool
}

// NewPeepholeState creates a peephole annotator for the medium code model
// TOC pattern: addis RX,r2,hi followed by ld/addi RY,lo(RX).
func NewPeepholeState(entries map[int]string) *PeepholeState {
	return &PeepholeState{entries: entries}
}

// Reset clears the peephole state. Call between functions.
func (p *PeepholeState) Reset() {
	p.prevValid = false
}

// Annotate checks the current instruction against the previous one.
// Call this for each instruction in sequence.
func (p *PeepholeState) Annotate(inst Inst) string {
	defer func() {
		p.prevRaw = inst.Raw
		p.prevValid = true
	}()

	if !p.prevValid {
		return ""
	}
	hiRt, hiRa, hi, ok := isADDIS(p.prevRaw)
	if !ok || hiRa != regTOC {
		return ""
	}
	if base, lo, _, ok := isLoad(inst.Raw); ok && base == hiRt {
		return tocLabel(p.entries, hi+lo)
	}
	if _, ra, lo, ok := isADDI(inst.Raw); ok && ra == hiRt {
		return tocLabel(p.entries, hi+lo)
	}
	return ""
}

// Annotator adapts the peephole state to the Annotator signature. The
// instructions must be presented in order.
func (p *PeepholeState) Annotator() Annotator {
	return p.Annotate
}
