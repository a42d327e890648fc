// Package elfx provides ELF loading helpers for PowerPC executables and
// shared objects.
package elfx

import (
	"debug/elf"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
)

var (
	ErrNotELF      = errors.New("elfx: not an ELF file")
	ErrNotPowerPC  = errors.New("elfx: not PowerPC (EM_PPC or EM_PPC64)")
	ErrNotLoadable = errors.New("elfx: not an executable or shared object")
	ErrNoSymbol    = errors.New("elfx: symbol not found")
	ErrNoSegment   = errors.New("elfx: no PT_LOAD segment covers address")
	ErrNoText      = errors.New("elfx: no .text section")
)

// File wraps a debug/elf.File with convenience methods for PowerPC analysis.
type File struct {
	ELF  *elf.File
	raw  io.ReaderAt
	size int64
	c    io.Closer
}

// Open opens an ELF file and validates it is a PowerPC executable or
// shared object.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("elfx: open: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("elfx: stat: %w", err)
	}

	ef, err := NewFile(f, info.Size())
	if err != nil {
		f.Close()
		return nil, err
	}
	ef.c = f
	return ef, nil
}

// NewFile validates an ELF image read from r.
func NewFile(r io.ReaderAt, size int64) (*File, error) {
	ef, err := elf.NewFile(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotELF, err)
	}
	if ef.Machine != elf.EM_PPC && ef.Machine != elf.EM_PPC64 {
		ef.Close()
		return nil, fmt.Errorf("%w: %v", ErrNotPowerPC, ef.Machine)
	}
	if ef.Type != elf.ET_EXEC && ef.Type != elf.ET_DYN {
		ef.Close()
		return nil, fmt.Errorf("%w: %v", ErrNotLoadable, ef.Type)
	}
	return &File{ELF: ef, raw: r, size: size}, nil
}

// Close releases resources.
func (f *File) Close() error {
	err := f.ELF.Close()
	if f.c != nil {
		if cerr := f.c.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// FileSize returns the size of the underlying file.
func (f *File) FileSize() int64 { return f.size }

// Is64 reports whether the image is ELFCLASS64.
func (f *File) Is64() bool { return f.ELF.Class == elf.ELFCLASS64 }

// Entry returns the ELF entry point. For ELFv1 64-bit images this is the
// address of a function descriptor; use CodeAddr to resolve it.
func (f *File) Entry() uint64 { return f.ELF.Entry }

// ByteOrder returns the ELF byte order.
func (f *File) ByteOrder() binary.ByteOrder {
	return f.ELF.ByteOrder
}

// allSymbols returns .symtab followed by .dynsym entries.
func (f *File) allSymbols() []elf.Symbol {
	var out []elf.Symbol
	if syms, err := f.ELF.Symbols(); err == nil {
		out = append(out, syms...)
	}
	if syms, err := f.ELF.DynamicSymbols(); err == nil {
		out = append(out, syms...)
	}
	return out
}

// Symbol looks up a static or dynamic symbol by exact name.
// Returns the symbol's virtual address and size.
func (f *File) Symbol(name string) (addr, size uint64, err error) {
	for _, s := range f.allSymbols() {
		if s.Name == name {
			return s.Value, s.Size, nil
		}
	}
	return 0, 0, fmt.Errorf("%w: %s", ErrNoSymbol, name)
}

// FuncSym is a function symbol resolved to its code address.
type FuncSym struct {
	Name string
	Addr uint64
	Size uint64
}

// FuncSymbols returns the STT_FUNC symbols sorted by address, one per
// address. Symbols pointing into .opd are resolved through their function
// descriptor.
func (f *File) FuncSymbols() []FuncSym {
	opd := f.ELF.Section(".opd")
	seen := make(map[uint64]bool)
	var out []FuncSym
	for _, s := range f.allSymbols() {
		if elf.ST_TYPE(s.Info) != elf.STT_FUNC || s.Value == 0 || s.Name == "" {
			continue
		}
		addr := s.Value
		if opd != nil && addr >= opd.Addr && addr < opd.Addr+opd.Size {
			code, err := f.CodeAddr(addr)
			if err != nil {
				continue
			}
			addr = code
		}
		if seen[addr] {
			continue
		}
		seen[addr] = true
		out = append(out, FuncSym{Name: s.Name, Addr: addr, Size: s.Size})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Addr < out[j].Addr })
	return out
}

// CodeAddr resolves a 64-bit ELFv1 function descriptor at va to the code
// address it holds. Addresses outside .opd are returned unchanged.
func (f *File) CodeAddr(va uint64) (uint64, error) {
	opd := f.ELF.Section(".opd")
	if opd == nil || va < opd.Addr || va >= opd.Addr+opd.Size {
		return va, nil
	}
	b, err := f.ReadBytesAtVA(va, 8)
	if err != nil {
		return 0, err
	}
	if len(b) < 8 {
		return 0, fmt.Errorf("elfx: short descriptor at 0x%x", va)
	}
	return f.ByteOrder().Uint64(b), nil
}

// Text returns the .text section's address and contents.
func (f *File) Text() (addr uint64, data []byte, err error) {
	s := f.ELF.Section(".text")
	if s == nil || s.Type == elf.SHT_NOBITS {
		return 0, nil, ErrNoText
	}
	data, err = s.Data()
	if err != nil {
		return 0, nil, fmt.Errorf("elfx: read .text: %w", err)
	}
	return s.Addr, data, nil
}

// VAToFileOffset converts a virtual address to a file offset using PT_LOAD segments.
func (f *File) VAToFileOffset(va uint64) (uint64, error) {
	for _, p := range f.ELF.Progs {
		if p.Type != elf.PT_LOAD {
			continue
		}
		if va >= p.Vaddr && va < p.Vaddr+p.Memsz {
			offset := va - p.Vaddr + p.Off
			if offset >= uint64(f.size) {
				return 0, fmt.Errorf("elfx: VA 0x%x maps to offset 0x%x beyond file size 0x%x", va, offset, f.size)
			}
			return offset, nil
		}
	}
	return 0, fmt.Errorf("%w: VA 0x%x", ErrNoSegment, va)
}

// ReadAt reads bytes from the underlying file at the given file offset.
func (f *File) ReadAt(buf []byte, off int64) (int, error) {
	return f.raw.ReadAt(buf, off)
}

// ReadBytesAtVA reads n bytes starting at the given virtual address.
func (f *File) ReadBytesAtVA(va uint64, n int) ([]byte, error) {
	off, err := f.VAToFileOffset(va)
	if err != nil {
		return nil, err
	}
	// Clamp to file size.
	avail := f.size - int64(off)
	if avail <= 0 {
		return nil, fmt.Errorf("elfx: offset 0x%x at or past end of file", off)
	}
	if int64(n) > avail {
		n = int(avail)
	}
	buf := make([]byte, n)
	_, err = f.raw.ReadAt(buf, int64(off))
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("elfx: read at 0x%x: %w", off, err)
	}
	return buf, nil
}

// SegmentInfo describes a PT_LOAD segment.
type SegmentInfo struct {
	Vaddr  uint64
	Memsz  uint64
	Filesz uint64
	Offset uint64
	Flags  elf.ProgFlag
}

// LoadSegments returns all PT_LOAD segments.
func (f *File) LoadSegments() []SegmentInfo {
	var segs []SegmentInfo
	for _, p := range f.ELF.Progs {
		if p.Type != elf.PT_LOAD {
			continue
		}
		segs = append(segs, SegmentInfo{
			Vaddr:  p.Vaddr,
			Memsz:  p.Memsz,
			Filesz: p.Filesz,
			Offset: p.Off,
			Flags:  p.Flags,
		})
	}
	return segs
}
