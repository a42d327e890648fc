// Package ppc is the in-memory model of decoded PowerPC code: registers,
// instruction entities, flow edges and collected functions.
package ppc

import (
	"fmt"
	"strconv"
	"strings"
)

// RegKind tags the variant held by a Register.
type RegKind int

const (
	RegRaw RegKind = iota // unrecognised operand text
	RegGPR                // general-purpose r0..r32
	RegSP                 // stack pointer alias
	RegLR                 // link register
	RegCTR                // count register
	RegCR                 // condition-register field cr0..cr7
	RegTOC                // table-of-contents alias of r2
)

// NumGPR is the number of general-purpose register slots declared in
// emitted code (r0..r32).
const NumGPR = 33

// Register is a parsed register operand.
type Register struct {
	Kind RegKind
	N    int    // GPR number or CR field
	Raw  string // original text for RegRaw
}

var (
	SP  = Register{Kind: RegSP}
	LR  = Register{Kind: RegLR}
	CTR = Register{Kind: RegCTR}
	TOC = Register{Kind: RegTOC}
)

// GPR returns general-purpose register n.
func GPR(n int) Register { return Register{Kind: RegGPR, N: n} }

// CR returns condition-register field n.
func CR(n int) Register { return Register{Kind: RegCR, N: n} }

// ParseRegister parses an operand as a register. Text that names no known
// register is kept verbatim as RegRaw.
func ParseRegister(s string) Register {
	t := strings.TrimSpace(s)
	t = strings.TrimPrefix(t, "%")
	switch strings.ToLower(t) {
	case "sp":
		return SP
	case "rtoc", "toc":
		return TOC
	case "lr":
		return LR
	case "ctr":
		return CTR
	}
	if n, ok := indexed(t, "r", NumGPR-1); ok {
		return GPR(n)
	}
	if n, ok := indexed(t, "cr", 7); ok {
		return CR(n)
	}
	return Register{Kind: RegRaw, Raw: strings.TrimSpace(s)}
}

func indexed(s, prefix string, max int) (int, bool) {
	if !strings.HasPrefix(s, prefix) || len(s) == len(prefix) {
		return 0, false
	}
	n, err := strconv.Atoi(s[len(prefix):])
	if err != nil || n < 0 || n > max {
		return 0, false
	}
	return n, true
}

func (r Register) String() string {
	switch r.Kind {
	case RegGPR:
		return fmt.Sprintf("r%d", r.N)
	case RegSP:
		return "sp"
	case RegLR:
		return "LR"
	case RegCTR:
		return "CTR"
	case RegCR:
		return fmt.Sprintf("cr%d", r.N)
	case RegTOC:
		return "rtoc"
	}
	return r.Raw
}

// IsStackPointer reports whether r is the stack pointer, either by alias
// or as r1.
func (r Register) IsStackPointer() bool {
	return r.Kind == RegSP || (r.Kind == RegGPR && r.N == 1)
}

// IsTOC reports whether r is the TOC register, either by alias or as r2.
func (r Register) IsTOC() bool {
	return r.Kind == RegTOC || (r.Kind == RegGPR && r.N == 2)
}

// Valid reports whether r parsed as a known register.
func (r Register) Valid() bool { return r.Kind != RegRaw }
