package collect

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"

	"ppc2c/internal/ppc"
)

type bounds struct{ start, end uint64 }

// prog is an in-memory program implementing every collaborator.
type prog struct {
	insts      map[uint64]ppc.Decoded
	edges      map[uint64][]ppc.Edge
	syms       map[uint64]string
	funcs      []bounds
	comments   map[uint64][2]string
	directives map[uint64][]string
	bad        map[uint64]bool
}

func newProg() *prog {
	return &prog{
		insts:      make(map[uint64]ppc.Decoded),
		edges:      make(map[uint64][]ppc.Edge),
		syms:       make(map[uint64]string),
		comments:   make(map[uint64][2]string),
		directives: make(map[uint64][]string),
		bad:        make(map[uint64]bool),
	}
}

func (p *prog) fn(name string, start, end uint64) {
	p.syms[start] = name
	p.funcs = append(p.funcs, bounds{start, end})
}

func (p *prog) inst(addr uint64, mnemonic string, fields []string, edges ...ppc.Edge) {
	d := ppc.Decoded{Addr: addr, Len: 4, Mnemonic: mnemonic}
	copy(d.Fields[:], fields)
	p.insts[addr] = d
	p.edges[addr] = edges
}

func flow(a uint64) ppc.Edge { return ppc.Edge{Kind: ppc.EdgeFlow, Target: a} }
func jump(a uint64) ppc.Edge { return ppc.Edge{Kind: ppc.EdgeNearJump, Target: a} }
func call(a uint64) ppc.Edge { return ppc.Edge{Kind: ppc.EdgeNearCall, Target: a} }

func (p *prog) Decode(addr uint64) (ppc.Decoded, error) {
	d, ok := p.insts[addr]
	if !ok || p.bad[addr] {
		return ppc.Decoded{}, fmt.Errorf("no instruction at 0x%x", addr)
	}
	return d, nil
}

func (p *prog) EdgesFrom(addr uint64) []ppc.Edge { return p.edges[addr] }

func (p *prog) SymbolAt(addr uint64) (string, bool) {
	name, ok := p.syms[addr]
	return name, ok
}

func (p *prog) FunctionBounds(addr uint64) (uint64, uint64, bool) {
	for _, b := range p.funcs {
		if addr >= b.start && addr < b.end {
			return b.start, b.end, true
		}
	}
	return 0, 0, false
}

func (p *prog) CommentsAt(addr uint64) (string, string) {
	c := p.comments[addr]
	return c[0], c[1]
}

func (p *prog) DirectivesAt(addr uint64) []string { return p.directives[addr] }

func collector(p *prog, opts Options) *Collector {
	return New(p, p, p, opts, nil)
}

// summary renders entities compactly for comparison.
func summary(fn *ppc.Function) []string {
	var out []string
	for _, in := range fn.Insts {
		out = append(out, fmt.Sprintf("%x %s %s", in.Addr, in.Kind, in.String()))
	}
	return out
}

func TestCollect_SingleReturn(t *testing.T) {
	p := newProg()
	p.fn("leaf", 0x1000, 0x1004)
	p.inst(0x1000, "blr", nil)

	res, err := collector(p, Options{}).Collect(0x1000)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Functions) != 1 {
		t.Fatalf("functions = %d, want 1", len(res.Functions))
	}
	fn := res.Functions[0]
	if n := fn.NumMachine(); n != 1 {
		t.Errorf("instructions = %d, want 1", n)
	}
	if len(fn.Calls) != 0 {
		t.Errorf("calls = %v, want none", fn.Calls)
	}
	if fn.Name != "leaf" || fn.Start != 0x1000 || fn.End != 0x1004 {
		t.Errorf("fn = %s [0x%x, 0x%x)", fn.Name, fn.Start, fn.End)
	}
	if !fn.Returns {
		t.Error("Returns = false for a function ending in blr")
	}
}

// backward builds a function whose discovery order places a fall-through
// target before its predecessor.
func backward() *prog {
	p := newProg()
	p.fn("f", 0x100, 0x118)
	p.inst(0x100, "beq", []string{"0x10c"}, flow(0x104), jump(0x10C))
	p.inst(0x104, "b", []string{"0x114"}, jump(0x114))
	p.inst(0x108, "li", []string{"r3", "1"}, flow(0x10C))
	p.inst(0x10C, "li", []string{"r3", "0"}, flow(0x110))
	p.inst(0x110, "b", []string{"0x108"}, jump(0x108))
	p.inst(0x114, "blr", nil)
	return p
}

func TestCollect_BackwardFallThrough(t *testing.T) {
	res, err := collector(backward(), Options{}).Collect(0x100)
	if err != nil {
		t.Fatal(err)
	}
	got := summary(res.Functions[0])
	want := []string{
		"100 label f:",
		"100 inst beq 0x10c",
		"104 inst b 0x114",
		"10c label loc_10C:",
		"10c inst li r3,0",
		"110 inst b 0x108",
		"114 label loc_114:",
		"114 inst blr",
		"108 label loc_108:",
		"108 inst li r3,1",
		"108 flow goto loc_10C",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("entities mismatch (-want +got):\n%s", diff)
	}
}

func TestCollect_Idempotent(t *testing.T) {
	p := backward()
	a, err := collector(p, Options{}).Collect(0x100)
	if err != nil {
		t.Fatal(err)
	}
	b, err := collector(p, Options{}).Collect(0x100)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(a.Functions, b.Functions); diff != "" {
		t.Errorf("second run differs (-first +second):\n%s", diff)
	}
}

func callGraph() *prog {
	p := newProg()
	p.fn("main", 0x100, 0x10C)
	p.inst(0x100, "bl", []string{"0x200"}, flow(0x104), call(0x200))
	p.inst(0x104, "bl", []string{"0x300"}, flow(0x108), call(0x300))
	p.inst(0x108, "blr", nil)

	p.fn("a", 0x200, 0x208)
	p.inst(0x200, "bl", []string{"0x300"}, flow(0x204), call(0x300))
	p.inst(0x204, "blr", nil)

	p.fn("b", 0x300, 0x308)
	p.inst(0x300, "bl", []string{"0x100"}, flow(0x304), call(0x100))
	p.inst(0x304, "blr", nil)
	return p
}

func names(fns []*ppc.Function) []string {
	var out []string
	for _, fn := range fns {
		out = append(out, fn.Name)
	}
	return out
}

func TestCollect_CallCycle(t *testing.T) {
	res, err := collector(callGraph(), Options{}).Collect(0x100)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"main", "a", "b"}, names(res.Functions)); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
	if len(res.Failed) != 0 {
		t.Errorf("failed = %v", res.Failed)
	}
	main := res.Functions[0]
	if diff := cmp.Diff([]uint64{0x200, 0x300}, main.Calls); diff != "" {
		t.Errorf("calls mismatch (-want +got):\n%s", diff)
	}
}

func TestCollect_NoRecurse(t *testing.T) {
	res, err := collector(callGraph(), Options{NoRecurse: true}).Collect(0x100)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Functions) != 1 || res.Functions[0].Name != "main" {
		t.Errorf("functions = %v, want [main]", names(res.Functions))
	}
}

func TestCollect_FailedCallee(t *testing.T) {
	p := callGraph()
	p.bad[0x204] = true

	res, err := collector(p, Options{}).Collect(0x100)
	if err != nil {
		t.Fatalf("entry should still collect: %v", err)
	}
	if diff := cmp.Diff([]string{"main", "b"}, names(res.Functions)); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
	if len(res.Failed) != 1 {
		t.Fatalf("failed = %d, want 1", len(res.Failed))
	}
	f := res.Failed[0]
	if f.Name != "a" || f.Addr != 0x200 || !errors.Is(f.Err, ErrDecode) {
		t.Errorf("failure = %+v", f)
	}
}

func TestCollect_EntryFails(t *testing.T) {
	p := callGraph()
	p.bad[0x108] = true
	res, err := collector(p, Options{}).Collect(0x100)
	if !errors.Is(err, ErrDecode) {
		t.Fatalf("err = %v, want ErrDecode", err)
	}
	if len(res.Functions) != 0 {
		t.Errorf("functions = %v, want none", names(res.Functions))
	}
}

func TestCollect_NotInFunction(t *testing.T) {
	_, err := collector(callGraph(), Options{}).Collect(0x9000)
	if !errors.Is(err, ErrNotInFunction) {
		t.Errorf("err = %v, want ErrNotInFunction", err)
	}
}

func TestCollect_MaxSteps(t *testing.T) {
	p := newProg()
	p.fn("long", 0x100, 0x110)
	p.inst(0x100, "nop", nil, flow(0x104))
	p.inst(0x104, "nop", nil, flow(0x108))
	p.inst(0x108, "nop", nil, flow(0x10C))
	p.inst(0x10C, "blr", nil)

	_, err := collector(p, Options{MaxSteps: 2}).Collect(0x100)
	if !errors.Is(err, ErrMaxSteps) {
		t.Errorf("err = %v, want ErrMaxSteps", err)
	}
}

func TestCollect_TailCall(t *testing.T) {
	p := newProg()
	p.fn("thunk", 0x100, 0x104)
	p.inst(0x100, "b", []string{"0x200"}, jump(0x200))
	p.fn("target", 0x200, 0x204)
	p.inst(0x200, "blr", nil)

	res, err := collector(p, Options{}).Collect(0x100)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]uint64{0x200}, res.Functions[0].Calls); diff != "" {
		t.Errorf("calls mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"thunk", "target"}, names(res.Functions)); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestCollect_Annotations(t *testing.T) {
	p := newProg()
	p.fn("f", 0x100, 0x108)
	p.inst(0x100, "bl", []string{"0x200 # helper"}, flow(0x104), call(0x200))
	p.inst(0x104, "blr", nil)
	p.comments[0x100] = [2]string{"save state", "shared note"}
	p.directives[0x100] = []string{"set LIMIT, 16"}

	res, err := collector(p, Options{NoRecurse: true}).Collect(0x100)
	if err != nil {
		t.Fatal(err)
	}
	got := summary(res.Functions[0])
	want := []string{
		"100 label f:",
		"100 comment save state",
		"100 comment shared note",
		"100 directive set",
		"100 inline helper",
		"100 inst bl 0x200",
		"104 inst blr",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("entities mismatch (-want +got):\n%s", diff)
	}
}
