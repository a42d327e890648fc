package disasm

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/arch/ppc64/ppc64asm"

	"ppc2c/internal/ppc"
)

var (
	ErrOutOfImage = errors.New("disasm: address outside image")
	ErrUnaligned  = errors.New("disasm: unaligned address")
	ErrBadOpcode  = errors.New("disasm: undecodable instruction")
)

// Image is a flat code image loaded at Base. It decodes instructions and
// enumerates their control-flow edges for the collector.
type Image struct {
	Base  uint64
	Data  []byte
	Order binary.ByteOrder // nil = big-endian

	// Annotate, when set, attaches a note to decoded instructions. The note
	// travels as an inline comment on the last operand field.
	Annotate Annotator
}

func (im *Image) order() binary.ByteOrder {
	if im.Order == nil {
		return binary.BigEndian
	}
	return im.Order
}

// Contains reports whether addr lies inside the image.
func (im *Image) Contains(addr uint64) bool {
	return addr >= im.Base && addr-im.Base < uint64(len(im.Data))
}

func (im *Image) word(addr uint64) (uint32, error) {
	if addr&3 != 0 {
		return 0, fmt.Errorf("%w: 0x%x", ErrUnaligned, addr)
	}
	if !im.Contains(addr) || addr-im.Base+4 > uint64(len(im.Data)) {
		return 0, fmt.Errorf("%w: 0x%x", ErrOutOfImage, addr)
	}
	off := addr - im.Base
	return im.order().Uint32(im.Data[off : off+4]), nil
}

// Decode decodes the instruction at addr into the collector's field form.
// Operands past the second are joined into the third field. A note from
// Annotate is appended to the last operand after ppc.InlineSep.
func (im *Image) Decode(addr uint64) (ppc.Decoded, error) {
	raw, err := im.word(addr)
	if err != nil {
		return ppc.Decoded{}, err
	}
	off := addr - im.Base
	inst, err := ppc64asm.Decode(im.Data[off:off+4], im.order())
	if err != nil || inst.Op == 0 {
		return ppc.Decoded{}, fmt.Errorf("%w: 0x%x: %08x", ErrBadOpcode, addr, raw)
	}
	mnemonic, ops, target, ok := Fields(inst, addr)

	d := ppc.Decoded{
		Addr:      addr,
		Raw:       raw,
		Len:       4,
		Mnemonic:  mnemonic,
		Target:    target,
		HasTarget: ok,
	}
	for i := 0; i < len(ops) && i < 2; i++ {
		d.Fields[i] = ops[i]
	}
	if len(ops) > 2 {
		d.Fields[2] = strings.Join(ops[2:], ",")
	}
	if im.Annotate != nil {
		inst := Inst{Addr: addr, Raw: raw, Size: 4, Mnemonic: mnemonic, Operands: strings.Join(ops, ","), Target: target, HasTarget: ok}
		if note := im.Annotate(inst); note != "" {
			last := min(len(ops), len(d.Fields)) - 1
			if last < 0 {
				last = 0
			}
			d.Fields[last] += ppc.InlineSep + note
		}
	}
	return d, nil
}

// EdgesFrom enumerates the successors of the instruction at addr:
//
//	b, ba          jump
//	bl, bla        flow + call
//	bc (cond)      flow + jump
//	bc (always)    jump
//	bcl $+4        flow
//	blr, bctr      none; flow when conditional
//	blrl, bctrl    flow
//
// An undecodable address has no successors.
func (im *Image) EdgesFrom(addr uint64) []ppc.Edge {
	raw, err := im.word(addr)
	if err != nil {
		return nil
	}
	next := ppc.Edge{Kind: ppc.EdgeFlow, Target: addr + 4}
	jumpKind, callKind := ppc.EdgeNearJump, ppc.EdgeNearCall
	if absolute(raw) {
		jumpKind, callKind = ppc.EdgeFarJump, ppc.EdgeFarCall
	}

	switch primary(raw) {
	case opBranch:
		t := branchTarget(raw, addr)
		if linked(raw) {
			return []ppc.Edge{next, {Kind: callKind, Target: t}}
		}
		return []ppc.Edge{{Kind: jumpKind, Target: t}}
	case opBC:
		t := branchTarget(raw, addr)
		cond := conditional(boField(raw))
		switch {
		case linked(raw) && t == addr+4:
			return []ppc.Edge{next}
		case linked(raw):
			return []ppc.Edge{next, {Kind: callKind, Target: t}}
		case cond:
			return []ppc.Edge{next, {Kind: jumpKind, Target: t}}
		}
		return []ppc.Edge{{Kind: jumpKind, Target: t}}
	case opXL:
		switch xoField(raw) {
		case xoBCLR, xoBCCTR:
			if linked(raw) || conditional(boField(raw)) {
				return []ppc.Edge{next}
			}
			return nil
		}
	}
	return []ppc.Edge{next}
}
