package collect

import (
	"fmt"

	"ppc2c/internal/diag"
	"ppc2c/internal/ppc"
)

// Function collects the function containing entry without following its
// calls. On failure the partially built function is returned alongside the
// error so callers can still name it.
func (c *Collector) Function(entry uint64) (*ppc.Function, error) {
	start, end, ok := c.syms.FunctionBounds(entry)
	if !ok {
		diag.Reportf(c.sink, entry, diag.SevError, diag.KindNoFunction, "no function contains 0x%x", entry)
		return nil, fmt.Errorf("%w: 0x%x", ErrNotInFunction, entry)
	}
	fn := &ppc.Function{Name: c.nameOf(start), Start: start, End: end}

	order, err := c.flood(entry, start, end)
	if err != nil {
		diag.Reportf(c.sink, entry, diag.SevError, diag.KindClamped, "%s: %v", fn.Name, err)
		return fn, err
	}
	if err := c.build(fn, order); err != nil {
		return fn, err
	}
	return fn, nil
}

// flood computes the function's instruction addresses in discovery order.
// Fall-through chains are always closed before the next jump target is
// admitted, and only one jump target is admitted per round.
func (c *Collector) flood(entry, start, end uint64) ([]uint64, error) {
	inBounds := func(a uint64) bool { return a >= start && a < end }

	order := []uint64{entry}
	index := map[uint64]int{entry: 0}
	add := func(a uint64) bool {
		if _, dup := index[a]; dup || !inBounds(a) {
			return false
		}
		index[a] = len(order)
		order = append(order, a)
		return true
	}

	maxSteps := c.opts.effectiveMax()
	steps := 0
	flowNext, jumpNext := 0, 0
	for {
		for ; flowNext < len(order); flowNext++ {
			if steps++; steps > maxSteps {
				return nil, fmt.Errorf("%w: function at 0x%x", ErrMaxSteps, start)
			}
			for _, e := range c.edgesFrom(order[flowNext]) {
				if e.Kind == ppc.EdgeFlow {
					add(e.Target)
				}
			}
		}

		added := false
		for jumpNext < len(order) && !added {
			if steps++; steps > maxSteps {
				return nil, fmt.Errorf("%w: function at 0x%x", ErrMaxSteps, start)
			}
			for _, e := range c.edgesFrom(order[jumpNext]) {
				if e.Kind.IsJump() && add(e.Target) {
					added = true
					break
				}
			}
			if !added {
				jumpNext++
			}
		}
		if !added {
			return order, nil
		}
	}
}

// build emits the entities for each address in discovery order and
// gathers the call targets.
func (c *Collector) build(fn *ppc.Function, order []uint64) error {
	index := make(map[uint64]int, len(order))
	for i, a := range order {
		index[a] = i
	}

	needLabel := make(map[uint64]bool)
	for i, a := range order {
		for _, e := range c.edgesFrom(a) {
			j, inside := index[e.Target]
			switch {
			case e.Kind.IsJump() && inside:
				needLabel[e.Target] = true
			case e.Kind == ppc.EdgeFlow && inside && j != i+1:
				needLabel[e.Target] = true
			}
		}
	}

	called := make(map[uint64]bool)
	addCall := func(target uint64) {
		if !called[target] {
			called[target] = true
			fn.Calls = append(fn.Calls, target)
		}
	}

	for i, a := range order {
		if name, ok := c.syms.SymbolAt(a); ok {
			fn.Insts = append(fn.Insts, ppc.Instruction{Kind: ppc.KindLabel, Addr: a, Name: name})
		} else if needLabel[a] {
			fn.Insts = append(fn.Insts, ppc.Instruction{Kind: ppc.KindLabel, Addr: a, Name: ppc.LocName(a)})
		}

		if c.ann != nil {
			regular, repeatable := c.ann.CommentsAt(a)
			for _, text := range []string{regular, repeatable} {
				if text != "" {
					fn.Insts = append(fn.Insts, ppc.Instruction{Kind: ppc.KindComment, Addr: a, Name: text})
				}
			}
			for _, text := range c.ann.DirectivesAt(a) {
				fn.Insts = append(fn.Insts, ppc.ParseDirective(a, text))
			}
		}

		d, err := c.dec.Decode(a)
		if err != nil {
			diag.Reportf(c.sink, a, diag.SevError, diag.KindDecode, "%s: %v", fn.Name, err)
			return fmt.Errorf("%w: 0x%x: %v", ErrDecode, a, err)
		}
		inst, comment := ppc.Split(d)
		inst.Addr = a
		if comment != "" {
			fn.Insts = append(fn.Insts, ppc.Instruction{Kind: ppc.KindInlineComment, Addr: a, Name: comment})
		}
		fn.Insts = append(fn.Insts, inst)
		if inst.Name == "blr" || inst.Name == "bclr" {
			fn.Returns = true
		}

		for _, e := range c.edgesFrom(a) {
			_, inside := index[e.Target]
			switch {
			case e.Kind == ppc.EdgeFlow && inside && index[e.Target] != i+1:
				fn.Insts = append(fn.Insts, ppc.Instruction{Kind: ppc.KindFlow, Addr: a, Name: c.labelOf(e.Target)})
			case e.Kind.IsCall():
				addCall(e.Target)
			case e.Kind.IsJump() && !fn.Contains(e.Target):
				addCall(e.Target)
			}
		}
	}
	return nil
}

func (c *Collector) labelOf(addr uint64) string {
	if name, ok := c.syms.SymbolAt(addr); ok {
		return name
	}
	return ppc.LocName(addr)
}
