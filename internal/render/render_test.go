package render

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"ppc2c/internal/disasm"
)

var (
	testFuncs = []disasm.FuncRecord{
		{Name: "main"},
		{Name: "init"},
		{Name: "orphan"},
		{Name: "sub_4000"},
		{Name: "dead"},
	}
	testEdges = []disasm.CallEdgeRecord{
		{FromFunc: "main", Kind: "bl", Target: "init"},
		{FromFunc: "main", Kind: "bl", Target: "init"},
		{FromFunc: "init", Kind: "bl", Target: "sub_4000"},
		{FromFunc: "init", Kind: "bctrl", Reg: "CTR", Via: "TOC+0x10 printf"},
		{FromFunc: "init", Kind: "bctrl", Reg: "CTR"},
		{FromFunc: "dead", Kind: "bl", Target: "dead"},
	}
)

func TestClassifyEdgeProv(t *testing.T) {
	tests := []struct {
		e    disasm.CallEdgeRecord
		want string
	}{
		{disasm.CallEdgeRecord{Kind: "bl", Target: "f"}, ProvDirect},
		{disasm.CallEdgeRecord{Kind: "bctrl", Via: "TOC+0x10 printf"}, ProvTOC},
		{disasm.CallEdgeRecord{Kind: "blrl", Via: "r0"}, ProvRegister},
		{disasm.CallEdgeRecord{Kind: "bctrl"}, ProvUnresolved},
	}
	for _, tt := range tests {
		if got := ClassifyEdgeProv(tt.e); got != tt.want {
			t.Errorf("ClassifyEdgeProv(%+v) = %q, want %q", tt.e, got, tt.want)
		}
	}
}

func TestFindEntryPoints(t *testing.T) {
	got := FindEntryPoints(testFuncs, testEdges)
	if diff := cmp.Diff([]string{"main", "orphan"}, got); diff != "" {
		t.Errorf("entry points (-want +got):\n%s", diff)
	}
}

func TestReachableSet(t *testing.T) {
	got := ReachableSet([]string{"main"}, testEdges)
	want := map[string]bool{"main": true, "init": true, "sub_4000": true}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("reachable (-want +got):\n%s", diff)
	}
}

func TestReachabilityDOT(t *testing.T) {
	reach := ReachableSet([]string{"main"}, testEdges)
	dot := ReachabilityDOT(testEdges, reach, []string{"main"}, "demo", NASA)

	for _, want := range []string{
		"digraph reachable {",
		`n_main [label="main", penwidth=1.5, color="#0B3D91"];`,
		`n_sub_4000 [label="sub_4000", fillcolor="#ECEFF1"];`,
		`n_main -> n_init [color="#424242", penwidth=0.7];`,
		`-> n_TOC_002b0x10_0020printf [color="#00695C"];`,
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT missing %q:\n%s", want, dot)
		}
	}
	if strings.Contains(dot, "n_dead") {
		t.Error("unreachable function rendered")
	}
	if again := ReachabilityDOT(testEdges, reach, []string{"main"}, "demo", NASA); again != dot {
		t.Error("ReachabilityDOT output not deterministic")
	}
}
