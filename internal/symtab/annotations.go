package symtab

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

var ErrAnnotations = errors.New("symtab: bad annotation file")

// Addr is an address written in YAML as a decimal or 0x-prefixed integer.
type Addr uint64

func (a *Addr) UnmarshalYAML(n *yaml.Node) error {
	v, err := strconv.ParseUint(n.Value, 0, 64)
	if err != nil {
		return fmt.Errorf("line %d: address %q: %w", n.Line, n.Value, err)
	}
	*a = Addr(v)
	return nil
}

// Offset is a signed displacement written like Addr.
type Offset int

func (o *Offset) UnmarshalYAML(n *yaml.Node) error {
	v, err := strconv.ParseInt(n.Value, 0, 32)
	if err != nil {
		return fmt.Errorf("line %d: offset %q: %w", n.Line, n.Value, err)
	}
	*o = Offset(v)
	return nil
}

// Annotations is the on-disk overlay:
//
//	functions:
//	  - {name: main, addr: 0x10000078, end: 0x100000c0}
//	symbols:
//	  - {name: retry, addr: 0x10000090}
//	comments:
//	  - {addr: 0x10000078, text: "entry point"}
//	  - {addr: 0x10000080, text: "argc", repeatable: true}
//	directives:
//	  - {addr: 0x10000078, text: "set BUF_SIZE, 0x100"}
//	toc:
//	  - {offset: -0x7ff0, name: printf}
type Annotations struct {
	Functions []struct {
		Name string `yaml:"name"`
		Addr Addr   `yaml:"addr"`
		End  Addr   `yaml:"end"`
	} `yaml:"functions"`
	Symbols []struct {
		Name string `yaml:"name"`
		Addr Addr   `yaml:"addr"`
	} `yaml:"symbols"`
	Comments []struct {
		Addr       Addr   `yaml:"addr"`
		Text       string `yaml:"text"`
		Repeatable bool   `yaml:"repeatable"`
	} `yaml:"comments"`
	Directives []struct {
		Addr Addr   `yaml:"addr"`
		Text string `yaml:"text"`
	} `yaml:"directives"`
	TOC []struct {
		Offset Offset `yaml:"offset"`
		Name   string `yaml:"name"`
	} `yaml:"toc"`
}

// ParseAnnotations decodes an annotation document.
func ParseAnnotations(data []byte) (*Annotations, error) {
	var a Annotations
	if err := yaml.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAnnotations, err)
	}
	for _, f := range a.Functions {
		if f.Name == "" {
			return nil, fmt.Errorf("%w: function at 0x%x has no name", ErrAnnotations, uint64(f.Addr))
		}
		if f.End != 0 && f.End <= f.Addr {
			return nil, fmt.Errorf("%w: function %s ends before it starts", ErrAnnotations, f.Name)
		}
	}
	return &a, nil
}

// LoadAnnotations reads and decodes an annotation file.
func LoadAnnotations(path string) (*Annotations, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("symtab: read annotations: %w", err)
	}
	return ParseAnnotations(data)
}

// Apply merges a into the table. Annotated names take precedence over
// names already present.
func (t *Table) Apply(a *Annotations) {
	for _, f := range a.Functions {
		addr := uint64(f.Addr)
		t.rename(f.Name, addr)
		t.AddFunction(f.Name, addr, uint64(f.End))
		if f.End != 0 {
			t.setEnd(addr, uint64(f.End))
		}
	}
	for _, s := range a.Symbols {
		t.rename(s.Name, uint64(s.Addr))
	}
	for _, c := range a.Comments {
		addr := uint64(c.Addr)
		cur := t.comments[addr]
		slot := 0
		if c.Repeatable {
			slot = 1
		}
		if cur[slot] != "" {
			cur[slot] += "\n" + c.Text
		} else {
			cur[slot] = c.Text
		}
		t.comments[addr] = cur
	}
	for _, d := range a.Directives {
		addr := uint64(d.Addr)
		t.directives[addr] = append(t.directives[addr], d.Text)
	}
	for _, e := range a.TOC {
		t.toc[int(e.Offset)] = e.Name
	}
}

func (t *Table) rename(name string, addr uint64) {
	if old, ok := t.names[addr]; ok && t.byName[old] == addr {
		delete(t.byName, old)
	}
	t.names[addr] = name
	t.byName[name] = addr
	for i := range t.funcs {
		if t.funcs[i].Start == addr {
			t.funcs[i].Name = name
		}
	}
}

func (t *Table) setEnd(start, end uint64) {
	for i := range t.funcs {
		if t.funcs[i].Start == start {
			t.funcs[i].End = end
		}
	}
}
