package disasm

import "fmt"

// CallEdge represents a call site extracted from disassembly.
type CallEdge struct {
	FromPC     uint64 `json:"from_pc"`
	Kind       string `json:"kind"`                // "bl", "bctrl" or "blrl"
	TargetPC   uint64 `json:"target_pc,omitempty"` // resolved VA for bl
	TargetName string `json:"target_name,omitempty"`
	Reg        string `json:"reg,omitempty"` // "CTR" or "LR" for indirect calls
	Via        string `json:"via,omitempty"` // provenance: "TOC+0x8010 printf", "r12", ""
}

// RegDef records the last definition of a register within the window.
type RegDef struct {
	Annotation string // e.g. "TOC+0x8010 printf"
	Age        int    // instructions since definition
}

// RegTracker tracks last-def provenance for GPRs r0-r31.
// Definitions older than the window are expired.
type RegTracker struct {
	defs [32]RegDef
	w    int
}

// NewRegTracker creates a tracker with the given window size.
func NewRegTracker(w int) *RegTracker {
	return &RegTracker{w: w}
}

// Reset clears all tracked definitions. Call between functions.
func (rt *RegTracker) Reset() {
	for i := range rt.defs {
		rt.defs[i] = RegDef{}
	}
}

// Tick ages all definitions by 1 and expires those beyond the window.
func (rt *RegTracker) Tick() {
	for i := range rt.defs {
		if rt.defs[i].Annotation != "" {
			rt.defs[i].Age++
			if rt.defs[i].Age > rt.w {
				rt.defs[i] = RegDef{}
			}
		}
	}
}

// Define records that register rd was defined with the given annotation.
func (rt *RegTracker) Define(rd int, annotation string) {
	if rd < 0 || rd > 31 {
		return
	}
	rt.defs[rd] = RegDef{Annotation: annotation}
}

// Lookup returns the annotation for register rd, or "" if expired/unknown.
func (rt *RegTracker) Lookup(rd int) string {
	if rd < 0 || rd > 31 {
		return ""
	}
	return rt.defs[rd].Annotation
}

// Kill clears the definition for a register.
func (rt *RegTracker) Kill(rd int) {
	if rd < 0 || rd > 31 {
		return
	}
	rt.defs[rd] = RegDef{}
}

const (
	opX     = 31
	opORI   = 24
	xoMTSPR = 467
	xoOR    = 444
	sprLR   = 8
	sprCTR  = 9
)

// isMTSPR detects mtspr SPR,RS. The SPR number is stored with its two
// 5-bit halves swapped.
func isMTSPR(raw uint32) (spr, rs int, ok bool) {
	if primary(raw) != opX || xoField(raw) != xoMTSPR {
		return 0, 0, false
	}
	spr = int((raw>>16)&0x1F) | int((raw>>11)&0x1F)<<5
	return spr, rtField(raw), true
}

// dstRegOfInst returns the destination GPR of a load, add-immediate or
// register move, or -1 if not detected.
func dstRegOfInst(raw uint32) int {
	if _, _, rt, ok := isLoad(raw); ok {
		return rt
	}
	switch primary(raw) {
	case opADDI, opADDIS:
		return rtField(raw)
	case opORI:
		return raField(raw)
	case opX:
		if xoField(raw) == xoOR {
			return raField(raw)
		}
	}
	return -1
}

// ExtractCallEdges scans instructions for direct and indirect call sites.
// Indirect targets are resolved through the register that was moved into
// CTR or LR, tracked with window w. annotators are run per instruction to
// populate the tracker. symbols resolves direct targets to names.
func ExtractCallEdges(insts []Inst, symbols SymbolLookup, annotators []Annotator, w int) []CallEdge {
	rt := NewRegTracker(w)
	var ctrVia, lrVia string
	var edges []CallEdge

	for _, inst := range insts {
		annotation := annotate(inst, annotators)

		if ci := DecodeCall(inst.Raw, inst.Addr); ci != nil {
			switch {
			case !ci.Indirect && ci.Target == inst.Addr+uint64(inst.Size):
				// bcl 20,31,$+4 reads the PC; not a call.
			case !ci.Indirect:
				e := CallEdge{FromPC: inst.Addr, Kind: "bl", TargetPC: ci.Target}
				if symbols != nil {
					if name, found := symbols(ci.Target); found {
						e.TargetName = name
					}
				}
				edges = append(edges, e)
			case ci.Reg == "CTR":
				edges = append(edges, CallEdge{FromPC: inst.Addr, Kind: "bctrl", Reg: "CTR", Via: ctrVia})
			default:
				edges = append(edges, CallEdge{FromPC: inst.Addr, Kind: "blrl", Reg: "LR", Via: lrVia})
			}
			rt.Tick()
			continue
		}

		if spr, rs, ok := isMTSPR(inst.Raw); ok {
			via := rt.Lookup(rs)
			if via == "" {
				via = fmt.Sprintf("r%d", rs)
			}
			switch spr {
			case sprCTR:
				ctrVia = via
			case sprLR:
				lrVia = via
			}
			rt.Tick()
			continue
		}

		rd := dstRegOfInst(inst.Raw)
		switch {
		case annotation != "" && rd >= 0:
			rt.Tick()
			rt.Define(rd, annotation)
			continue
		case rd >= 0:
			rt.Kill(rd)
		}
		rt.Tick()
	}

	return edges
}
