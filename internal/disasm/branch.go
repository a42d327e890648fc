package disasm

// PowerPC branch instruction detection from raw 32-bit encoding.
// These functions identify basic-block terminators and extract branch targets.

// BranchInfo describes a decoded branch instruction.
type BranchInfo struct {
	Target   uint64 // absolute target address (0 if IsRet or Indirect)
	Cond     bool   // true if conditional (has fallthrough)
	IsRet    bool   // true if bclr (blr and its conditional forms)
	Indirect bool   // true if bcctr (bctr and its conditional forms)
}

const (
	opBranch   = 18 // I-form: b, ba, bl, bla
	opBC       = 16 // B-form: bc, bca, bcl, bcla
	opXL       = 19 // XL-form: bclr, bcctr
	xoBCLR     = 16
	xoBCCTR    = 528
	boAlways   = 0x14
	fieldLK    = 1
	fieldAA    = 2
	primaryOff = 26
)

func primary(raw uint32) uint32 { return raw >> primaryOff }
func linked(raw uint32) bool    { return raw&fieldLK != 0 }
func absolute(raw uint32) bool  { return raw&fieldAA != 0 }
func boField(raw uint32) int    { return int((raw >> 21) & 0x1F) }
func biField(raw uint32) int    { return int((raw >> 16) & 0x1F) }
func xoField(raw uint32) uint32 { return (raw >> 1) & 0x3FF }

// conditional reports whether a BO value tests CTR or a CR bit.
func conditional(bo int) bool { return bo&boAlways != boAlways }

// branchTarget resolves the target of an I-form or B-form branch.
func branchTarget(raw uint32, pc uint64) uint64 {
	var disp int64
	if primary(raw) == opBranch {
		disp = int64(signExtend(raw&0x03FFFFFC, 26))
	} else {
		disp = int64(signExtend(raw&0xFFFC, 16))
	}
	if absolute(raw) {
		return uint64(disp)
	}
	return uint64(int64(pc) + disp)
}

// DecodeBranch attempts to decode a branch instruction from raw encoding at the given PC.
// Returns nil if the instruction is not a branch, or is a linking branch (a call).
func DecodeBranch(raw uint32, pc uint64) *BranchInfo {
	if linked(raw) {
		return nil
	}
	switch primary(raw) {
	case opBranch:
		return &BranchInfo{Target: branchTarget(raw, pc)}
	case opBC:
		return &BranchInfo{Target: branchTarget(raw, pc), Cond: conditional(boField(raw))}
	case opXL:
		switch xoField(raw) {
		case xoBCLR:
			return &BranchInfo{IsRet: true, Cond: conditional(boField(raw))}
		case xoBCCTR:
			return &BranchInfo{Indirect: true, Cond: conditional(boField(raw))}
		}
	}
	return nil
}

// CallInfo describes a linking branch.
type CallInfo struct {
	Target   uint64 // absolute target (0 if Indirect)
	Cond     bool
	Indirect bool   // bcctrl or bclrl
	Reg      string // "CTR" or "LR" for indirect calls
}

// DecodeCall decodes bl, bla, bcl, bcla, bcctrl and bclrl. Returns nil for
// anything else.
func DecodeCall(raw uint32, pc uint64) *CallInfo {
	if !linked(raw) {
		return nil
	}
	switch primary(raw) {
	case opBranch:
		return &CallInfo{Target: branchTarget(raw, pc)}
	case opBC:
		return &CallInfo{Target: branchTarget(raw, pc), Cond: conditional(boField(raw))}
	case opXL:
		switch xoField(raw) {
		case xoBCCTR:
			return &CallInfo{Indirect: true, Reg: "CTR", Cond: conditional(boField(raw))}
		case xoBCLR:
			return &CallInfo{Indirect: true, Reg: "LR", Cond: conditional(boField(raw))}
		}
	}
	return nil
}

// signExtend sign-extends a value from the given bit width to int32.
func signExtend(val uint32, bits int) int32 {
	sign := uint32(1) << (bits - 1)
	mask := sign - 1
	if val&sign != 0 {
		return int32(val | ^mask) // negative
	}
	return int32(val & mask)
}

// IsBranchTerminator returns true if the instruction terminates a basic block.
// This includes every non-linking branch but NOT bl/bcl/bctrl
// (calls return to the next instruction).
func IsBranchTerminator(raw uint32) bool {
	return DecodeBranch(raw, 0) != nil
}
