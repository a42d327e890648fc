// Package callgraph builds lattice call graphs and control-flow graphs from
// collected functions.
package callgraph

import (
	"sort"
	"strings"

	"github.com/zboralski/lattice"

	"ppc2c/internal/disasm"
	"ppc2c/internal/ppc"
)

// Window is the register-provenance window used for indirect call edges.
const Window = 8

// FuncInfo holds the data needed to build call graph and CFG for one function.
type FuncInfo struct {
	Name      string
	Insts     []disasm.Inst // address order
	CallEdges []disasm.CallEdge
}

// FromFunctions converts collected functions into FuncInfo. Only the
// reachable machine instructions of each function are kept, sorted by
// address. Call edges are extracted with lookup naming direct targets and
// annotators seeding indirect-call provenance.
func FromFunctions(funcs []*ppc.Function, lookup disasm.SymbolLookup, annotators []disasm.Annotator) []FuncInfo {
	out := make([]FuncInfo, 0, len(funcs))
	for _, fn := range funcs {
		insts := Insts(fn)
		out = append(out, FuncInfo{
			Name:      fn.Name,
			Insts:     insts,
			CallEdges: disasm.ExtractCallEdges(insts, lookup, annotators, Window),
		})
	}
	return out
}

// Insts returns fn's machine instructions in address order.
func Insts(fn *ppc.Function) []disasm.Inst {
	var insts []disasm.Inst
	for _, in := range fn.Insts {
		if in.Kind != ppc.KindInstruction {
			continue
		}
		ops := strings.Join(in.Operands(), ",")
		insts = append(insts, disasm.Inst{
			Addr:      in.Addr,
			Raw:       in.Raw,
			Size:      4,
			Mnemonic:  in.Name,
			Operands:  ops,
			Text:      in.String(),
			Target:    in.Target,
			HasTarget: in.HasTarget,
		})
	}
	sort.Slice(insts, func(i, j int) bool { return insts[i].Addr < insts[j].Addr })
	return insts
}

// callee names the target of a call edge: its symbol, the provenance of an
// indirect call, or the synthesised sub_ name of a direct one.
func callee(e disasm.CallEdge) string {
	switch {
	case e.TargetName != "":
		return e.TargetName
	case e.Via != "":
		return e.Via
	case e.Kind == "bl":
		return ppc.SubName(e.TargetPC)
	}
	return ""
}

// BuildCallGraph constructs a lattice.Graph from disassembled functions.
// Each function becomes a node. Each resolved call edge becomes an edge.
// Indirect calls with no provenance are skipped.
func BuildCallGraph(funcs []FuncInfo) *lattice.Graph {
	g := &lattice.Graph{}
	for _, f := range funcs {
		g.Nodes = append(g.Nodes, f.Name)
		for _, e := range f.CallEdges {
			name := callee(e)
			if name == "" {
				continue
			}
			g.Edges = append(g.Edges, lattice.Edge{
				Caller: f.Name,
				Callee: name,
			})
		}
	}
	g.Dedup()
	return g
}
