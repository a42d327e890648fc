// Package symtab is an address-ordered symbol table. It names functions and
// labels, answers function-bounds queries, and carries the comments,
// directives and TOC entries supplied by an annotation file.
package symtab

import (
	"fmt"
	"sort"

	"ppc2c/internal/elfx"
)

// Func is one function's extent. End is exclusive; 0 means the function
// runs to the next function start or the table limit.
type Func struct {
	Name  string
	Start uint64
	End   uint64
}

// Table implements collect.Symbols and collect.Annotations.
type Table struct {
	funcs  []Func // sorted by Start, unique
	names  map[uint64]string
	byName map[string]uint64
	limit  uint64

	comments   map[uint64][2]string
	directives map[uint64][]string
	toc        map[int]string
}

// New returns an empty table whose open-ended functions stop at limit.
func New(limit uint64) *Table {
	return &Table{
		names:      make(map[uint64]string),
		byName:     make(map[string]uint64),
		limit:      limit,
		comments:   make(map[uint64][2]string),
		directives: make(map[uint64][]string),
		toc:        make(map[int]string),
	}
}

// FromELF builds a table from the function symbols of ef, limited to the
// end of its .text section.
func FromELF(ef *elfx.File) (*Table, error) {
	addr, data, err := ef.Text()
	if err != nil {
		return nil, fmt.Errorf("symtab: %w", err)
	}
	t := New(addr + uint64(len(data)))
	for _, s := range ef.FuncSymbols() {
		var end uint64
		if s.Size > 0 {
			end = s.Addr + s.Size
		}
		t.AddFunction(s.Name, s.Addr, end)
	}
	return t, nil
}

// AddFunction records a function. A second function at the same start
// keeps the first name but adopts a known end.
func (t *Table) AddFunction(name string, start, end uint64) {
	t.AddSymbol(name, start)
	i := sort.Search(len(t.funcs), func(i int) bool { return t.funcs[i].Start >= start })
	if i < len(t.funcs) && t.funcs[i].Start == start {
		if t.funcs[i].End == 0 {
			t.funcs[i].End = end
		}
		return
	}
	t.funcs = append(t.funcs, Func{})
	copy(t.funcs[i+1:], t.funcs[i:])
	t.funcs[i] = Func{Name: t.names[start], Start: start, End: end}
}

// AddSymbol names an address. The first name given to an address wins.
func (t *Table) AddSymbol(name string, addr uint64) {
	if name == "" {
		return
	}
	if _, dup := t.names[addr]; !dup {
		t.names[addr] = name
	}
	if _, dup := t.byName[name]; !dup {
		t.byName[name] = addr
	}
}

// SymbolAt returns the name attached to addr.
func (t *Table) SymbolAt(addr uint64) (string, bool) {
	name, ok := t.names[addr]
	return name, ok
}

// Lookup returns the address of a named symbol.
func (t *Table) Lookup(name string) (uint64, bool) {
	addr, ok := t.byName[name]
	return addr, ok
}

// FunctionBounds returns the extent of the function containing addr.
func (t *Table) FunctionBounds(addr uint64) (start, end uint64, ok bool) {
	i := sort.Search(len(t.funcs), func(i int) bool { return t.funcs[i].Start > addr }) - 1
	if i < 0 {
		return 0, 0, false
	}
	f := t.funcs[i]
	end = t.endOf(i)
	if addr >= end {
		return 0, 0, false
	}
	return f.Start, end, true
}

func (t *Table) endOf(i int) uint64 {
	if e := t.funcs[i].End; e != 0 {
		return e
	}
	if i+1 < len(t.funcs) {
		return t.funcs[i+1].Start
	}
	return t.limit
}

// Functions returns every function with its resolved end, in address order.
func (t *Table) Functions() []Func {
	out := make([]Func, len(t.funcs))
	for i, f := range t.funcs {
		f.End = t.endOf(i)
		out[i] = f
	}
	return out
}

// CommentsAt returns the regular and repeatable comments at addr.
func (t *Table) CommentsAt(addr uint64) (regular, repeatable string) {
	c := t.comments[addr]
	return c[0], c[1]
}

// DirectivesAt returns the preprocessor directives at addr in file order.
func (t *Table) DirectivesAt(addr uint64) []string {
	return t.directives[addr]
}

// TOC returns the TOC offset names, keyed by r2-relative offset.
func (t *Table) TOC() map[int]string {
	return t.toc
}
