// Package collect discovers the instructions of a function by flood-filling
// its flow edges, and follows call edges to every reachable function.
package collect

import (
	"errors"
	"fmt"

	"ppc2c/internal/diag"
	"ppc2c/internal/ppc"
)

var (
	ErrNotInFunction = errors.New("collect: address is not inside a function")
	ErrDecode        = errors.New("collect: decode failed")
	ErrMaxSteps      = errors.New("collect: step limit exceeded")
)

// Decoder decodes the instruction at an address.
type Decoder interface {
	Decode(addr uint64) (ppc.Decoded, error)
}

// FlowGraph enumerates the control-flow edges leaving an address.
type FlowGraph interface {
	EdgesFrom(addr uint64) []ppc.Edge
}

// Symbols resolves names and function bounds.
type Symbols interface {
	SymbolAt(addr uint64) (string, bool)
	FunctionBounds(addr uint64) (start, end uint64, ok bool)
}

// Annotations supplies comments and directives attached to addresses.
// A Symbols value that also implements Annotations is used for both.
type Annotations interface {
	CommentsAt(addr uint64) (regular, repeatable string)
	DirectivesAt(addr uint64) []string
}

// Options controls collection.
type Options struct {
	MaxSteps  int  // flood-fill iteration cap per function; 0 = 10M
	NoRecurse bool // collect the entry function only
}

func (o Options) effectiveMax() int {
	return diag.Options{MaxSteps: o.MaxSteps}.EffectiveMaxSteps()
}

// Failure records a function that could not be collected.
type Failure struct {
	Addr uint64
	Name string
	Err  error
}

// Result is the outcome of one collection run.
type Result struct {
	Functions []*ppc.Function // discovery order
	Failed    []Failure
}

// Collector owns the discovered-function set of one invocation.
type Collector struct {
	dec  Decoder
	flow FlowGraph
	syms Symbols
	ann  Annotations
	opts Options
	sink diag.Sink

	seen  map[uint64]bool
	edges map[uint64][]ppc.Edge
}

// New returns a collector over the given collaborators. sink may be nil.
func New(dec Decoder, flow FlowGraph, syms Symbols, opts Options, sink diag.Sink) *Collector {
	if sink == nil {
		sink = diag.Discard
	}
	c := &Collector{
		dec:   dec,
		flow:  flow,
		syms:  syms,
		opts:  opts,
		sink:  sink,
		seen:  make(map[uint64]bool),
		edges: make(map[uint64][]ppc.Edge),
	}
	if ann, ok := syms.(Annotations); ok {
		c.ann = ann
	}
	return c
}

// Collect discovers the function containing entry and, unless NoRecurse is
// set, every function reachable from it through call edges. Functions are
// returned in pre-order: a caller precedes its callees, and callees appear
// in the order their call sites were discovered.
//
// The returned error is non-nil only when the entry function itself cannot
// be collected; failed callees are listed in Result.Failed.
func (c *Collector) Collect(entry uint64) (Result, error) {
	var res Result

	start, _, ok := c.syms.FunctionBounds(entry)
	if !ok {
		diag.Reportf(c.sink, entry, diag.SevError, diag.KindNoFunction, "no function contains 0x%x", entry)
		return res, fmt.Errorf("%w: 0x%x", ErrNotInFunction, entry)
	}

	if c.seen[start] {
		return res, nil
	}

	type item struct {
		addr uint64
		root bool
	}
	stack := []item{{addr: entry, root: true}}

	var rootErr error
	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		key := c.key(it.addr)
		if c.seen[key] {
			continue
		}
		c.seen[key] = true

		fn, err := c.Function(it.addr)
		if err != nil {
			name := c.nameOf(it.addr)
			if fn != nil {
				name = fn.Name
			}
			res.Failed = append(res.Failed, Failure{Addr: it.addr, Name: name, Err: err})
			if it.root {
				rootErr = err
			}
			continue
		}
		res.Functions = append(res.Functions, fn)
		if c.opts.NoRecurse {
			continue
		}

		// Push in reverse so the first call site is expanded first.
		for i := len(fn.Calls) - 1; i >= 0; i-- {
			if target := fn.Calls[i]; !c.seen[c.key(target)] {
				stack = append(stack, item{addr: target})
			}
		}
	}
	return res, rootErr
}

// key is the start of the function owning addr, or addr itself when no
// function does.
func (c *Collector) key(addr uint64) uint64 {
	if start, _, ok := c.syms.FunctionBounds(addr); ok {
		return start
	}
	return addr
}

func (c *Collector) nameOf(addr uint64) string {
	if name, ok := c.syms.SymbolAt(addr); ok {
		return name
	}
	return ppc.SubName(addr)
}

func (c *Collector) edgesFrom(addr uint64) []ppc.Edge {
	if e, ok := c.edges[addr]; ok {
		return e
	}
	e := c.flow.EdgesFrom(addr)
	c.edges[addr] = e
	return e
}
