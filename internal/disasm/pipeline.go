package disasm

import (
	"fmt"

	"ppc2c/internal/ppc"
)

// FuncRecord is one line in functions.jsonl.
type FuncRecord struct {
	PC      string `json:"pc"`
	Size    int    `json:"size"`
	Name    string `json:"name"`
	Insts   int    `json:"insts"`
	Calls   int    `json:"calls,omitempty"`
	Returns bool   `json:"returns,omitempty"`
}

// CallEdgeRecord is one line in call_edges.jsonl.
type CallEdgeRecord struct {
	FromFunc string `json:"from_func"`
	FromPC   string `json:"from_pc"`
	Kind     string `json:"kind"`             // "bl", "bctrl" or "blrl"
	Target   string `json:"target,omitempty"` // resolved name or sub_ name for bl
	Reg      string `json:"reg,omitempty"`    // "CTR" or "LR" for indirect calls
	Via      string `json:"via,omitempty"`    // provenance for indirect calls
}

// EdgeRecord converts a call edge extracted from function fn.
func EdgeRecord(fn string, e CallEdge) CallEdgeRecord {
	r := CallEdgeRecord{
		FromFunc: fn,
		FromPC:   fmt.Sprintf("0x%x", e.FromPC),
		Kind:     e.Kind,
		Reg:      e.Reg,
		Via:      e.Via,
	}
	if e.Kind == "bl" {
		r.Target = e.TargetName
		if r.Target == "" {
			r.Target = ppc.SubName(e.TargetPC)
		}
	}
	return r
}
