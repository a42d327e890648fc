package symtab

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func table() *Table {
	t := New(0x1100)
	t.AddFunction("main", 0x1000, 0x1040)
	t.AddFunction("helper", 0x1080, 0)
	t.AddFunction("tail", 0x10C0, 0)
	return t
}

func TestFunctionBounds(t *testing.T) {
	tab := table()
	tests := []struct {
		addr       uint64
		start, end uint64
		ok         bool
	}{
		{0x1000, 0x1000, 0x1040, true},
		{0x103C, 0x1000, 0x1040, true},
		{0x1040, 0, 0, false}, // gap after sized main
		{0x0FFC, 0, 0, false},
		{0x1080, 0x1080, 0x10C0, true},
		{0x10BC, 0x1080, 0x10C0, true},
		{0x10C0, 0x10C0, 0x1100, true},
		{0x1100, 0, 0, false},
	}
	for _, tt := range tests {
		start, end, ok := tab.FunctionBounds(tt.addr)
		if ok != tt.ok || start != tt.start || end != tt.end {
			t.Errorf("FunctionBounds(0x%x) = 0x%x, 0x%x, %v; want 0x%x, 0x%x, %v",
				tt.addr, start, end, ok, tt.start, tt.end, tt.ok)
		}
	}
}

func TestFunctionBoundsEmpty(t *testing.T) {
	if _, _, ok := New(0x2000).FunctionBounds(0x1000); ok {
		t.Error("empty table reported a function")
	}
}

func TestAddFunctionOrder(t *testing.T) {
	tab := New(0x2000)
	tab.AddFunction("c", 0x1800, 0)
	tab.AddFunction("a", 0x1000, 0)
	tab.AddFunction("b", 0x1400, 0)
	tab.AddFunction("dup", 0x1400, 0x1500)

	want := []Func{
		{Name: "a", Start: 0x1000, End: 0x1400},
		{Name: "b", Start: 0x1400, End: 0x1500},
		{Name: "c", Start: 0x1800, End: 0x2000},
	}
	if diff := cmp.Diff(want, tab.Functions()); diff != "" {
		t.Errorf("Functions (-want +got):\n%s", diff)
	}
	if addr, ok := tab.Lookup("dup"); !ok || addr != 0x1400 {
		t.Errorf("Lookup(dup) = 0x%x, %v", addr, ok)
	}
	if name, _ := tab.SymbolAt(0x1400); name != "b" {
		t.Errorf("SymbolAt(0x1400) = %q, want b", name)
	}
}

const doc = `
functions:
  - {name: entry, addr: 0x1000}
  - {name: extra, addr: 0x10E0, end: 0x10F0}
symbols:
  - {name: retry, addr: 0x1010}
comments:
  - {addr: 0x1000, text: "entry point"}
  - {addr: 0x1000, text: "argc in r3", repeatable: true}
  - {addr: 0x1000, text: "second line"}
directives:
  - {addr: 0x1000, text: "set BUF_SIZE, 0x100"}
  - {addr: 0x1000, text: "set FLAGS, 3"}
toc:
  - {offset: -0x7ff0, name: printf}
  - {offset: 16, name: table}
`

func TestApply(t *testing.T) {
	a, err := ParseAnnotations([]byte(doc))
	if err != nil {
		t.Fatal(err)
	}
	tab := table()
	tab.Apply(a)

	if name, _ := tab.SymbolAt(0x1000); name != "entry" {
		t.Errorf("SymbolAt(0x1000) = %q, want entry", name)
	}
	if _, ok := tab.Lookup("main"); ok {
		t.Error("renamed symbol still resolves")
	}
	if addr, ok := tab.Lookup("retry"); !ok || addr != 0x1010 {
		t.Errorf("Lookup(retry) = 0x%x, %v", addr, ok)
	}
	if start, end, ok := tab.FunctionBounds(0x1000); !ok || start != 0x1000 || end != 0x1040 {
		t.Errorf("entry bounds = 0x%x..0x%x", start, end)
	}
	if start, end, ok := tab.FunctionBounds(0x10E4); !ok || start != 0x10E0 || end != 0x10F0 {
		t.Errorf("extra bounds = 0x%x..0x%x %v", start, end, ok)
	}

	regular, repeatable := tab.CommentsAt(0x1000)
	if regular != "entry point\nsecond line" || repeatable != "argc in r3" {
		t.Errorf("CommentsAt = %q, %q", regular, repeatable)
	}
	if diff := cmp.Diff([]string{"set BUF_SIZE, 0x100", "set FLAGS, 3"}, tab.DirectivesAt(0x1000)); diff != "" {
		t.Errorf("DirectivesAt (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(map[int]string{-0x7ff0: "printf", 16: "table"}, tab.TOC()); diff != "" {
		t.Errorf("TOC (-want +got):\n%s", diff)
	}
}

func TestParseAnnotationsErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"bad address", "functions:\n  - {name: f, addr: zzz}\n"},
		{"missing name", "functions:\n  - {addr: 0x10}\n"},
		{"inverted", "functions:\n  - {name: f, addr: 0x20, end: 0x10}\n"},
		{"not yaml", "functions: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseAnnotations([]byte(tt.doc))
			if !errors.Is(err, ErrAnnotations) {
				t.Fatalf("err = %v, want ErrAnnotations", err)
			}
		})
	}
}

func TestLoadAnnotations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ann.yaml")
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}
	a, err := LoadAnnotations(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(a.Functions) != 2 || len(a.TOC) != 2 {
		t.Errorf("got %d functions, %d toc entries", len(a.Functions), len(a.TOC))
	}

	if _, err := LoadAnnotations(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
