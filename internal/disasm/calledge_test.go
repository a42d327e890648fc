package disasm

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestRegTracker(t *testing.T) {
	rt := NewRegTracker(2)
	rt.Define(12, "TOC+0x10 printf")
	if got := rt.Lookup(12); got != "TOC+0x10 printf" {
		t.Fatalf("Lookup = %q", got)
	}
	rt.Tick()
	rt.Tick()
	if got := rt.Lookup(12); got == "" {
		t.Error("definition expired too early")
	}
	rt.Tick()
	if got := rt.Lookup(12); got != "" {
		t.Errorf("definition should have expired, got %q", got)
	}
}

func TestRegTrackerKill(t *testing.T) {
	rt := NewRegTracker(8)
	rt.Define(3, "x")
	rt.Kill(3)
	if got := rt.Lookup(3); got != "" {
		t.Errorf("Lookup after Kill = %q", got)
	}
	rt.Define(40, "out of range")
	if got := rt.Lookup(40); got != "" {
		t.Errorf("out-of-range register tracked: %q", got)
	}
}

func TestIsMTSPR(t *testing.T) {
	spr, rs, ok := isMTSPR(0x7D8903A6) // mtctr r12
	if !ok || spr != sprCTR || rs != 12 {
		t.Errorf("mtctr: spr=%d rs=%d ok=%v", spr, rs, ok)
	}
	spr, rs, ok = isMTSPR(0x7C0803A6) // mtlr r0
	if !ok || spr != sprLR || rs != 0 {
		t.Errorf("mtlr: spr=%d rs=%d ok=%v", spr, rs, ok)
	}
	if _, _, ok := isMTSPR(0x7C0802A6); ok { // mflr r0
		t.Error("mflr matched mtspr")
	}
}

func TestExtractCallEdges_Direct(t *testing.T) {
	insts := []Inst{
		makeInst(0x1000, 0x48000101), // bl 0x1100
		makeInst(0x1004, 0x48000101), // bl 0x1104
		makeInst(0x1008, 0x429F0005), // bcl 20,31,$+4
		makeInst(0x100C, encBLR),
	}
	syms := PlaceholderLookup(map[uint64]string{0x1100: "helper"})

	got := ExtractCallEdges(insts, syms, nil, 8)
	want := []CallEdge{
		{FromPC: 0x1000, Kind: "bl", TargetPC: 0x1100, TargetName: "helper"},
		{FromPC: 0x1004, Kind: "bl", TargetPC: 0x1104},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("edges (-want +got):\n%s", diff)
	}
}

func TestExtractCallEdges_IndirectWithProvenance(t *testing.T) {
	insts := []Inst{
		makeInst(0x1000, 0xE9820010), // ld r12,16(r2)
		makeInst(0x1004, 0x7D8903A6), // mtctr r12
		makeInst(0x1008, encBCTRL),
		makeInst(0x100C, 0x7C0803A6), // mtlr r0
		makeInst(0x1010, encBLRL),
	}
	anns := []Annotator{TOCAnnotator(map[int]string{0x10: "printf"})}

	got := ExtractCallEdges(insts, nil, anns, 8)
	want := []CallEdge{
		{FromPC: 0x1008, Kind: "bctrl", Reg: "CTR", Via: "TOC+0x10 printf"},
		{FromPC: 0x1010, Kind: "blrl", Reg: "LR", Via: "r0"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("edges (-want +got):\n%s", diff)
	}
}

func TestExtractCallEdges_Overwritten(t *testing.T) {
	insts := []Inst{
		makeInst(0x1000, 0xE9820010), // ld r12,16(r2)
		makeInst(0x1004, 0x80640008), // lwz r3,8(r4)
		makeInst(0x1008, 0x7D8C6378), // mr r12,r12
		makeInst(0x100C, 0x7D8903A6), // mtctr r12
		makeInst(0x1010, encBCTRL),
	}
	anns := []Annotator{TOCAnnotator(nil)}

	got := ExtractCallEdges(insts, nil, anns, 8)
	if len(got) != 1 || got[0].Via != "r12" {
		t.Errorf("got %+v, want via r12", got)
	}
}

func TestEdgeRecord(t *testing.T) {
	got := EdgeRecord("main", CallEdge{FromPC: 0x1000, Kind: "bl", TargetPC: 0x1100})
	want := CallEdgeRecord{FromFunc: "main", FromPC: "0x1000", Kind: "bl", Target: "sub_1100"}
	if got != want {
		t.Errorf("EdgeRecord = %+v, want %+v", got, want)
	}
}
