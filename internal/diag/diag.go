// Package diag provides diagnostics and failure policy shared by the
// collector, the translator and the emitter.
package diag

import (
	"fmt"
	"io"
)

// Severity distinguishes recoverable diagnostics from batch-ending ones.
type Severity int

const (
	SevWarning Severity = iota // recoverable, processing continues
	SevError                   // recoverable, the affected unit is dropped
	SevFatal                   // the current batch is aborted
)

func (s Severity) String() string {
	switch s {
	case SevWarning:
		return "warning"
	case SevError:
		return "error"
	case SevFatal:
		return "fatal"
	}
	return fmt.Sprintf("severity(%d)", int(s))
}

// Kind classifies a diagnostic message.
type Kind string

const (
	KindInvalidRange    Kind = "invalid_range"
	KindBranch          Kind = "unsupported_branch"
	KindArity           Kind = "arity"
	KindOperand         Kind = "operand"
	KindRegister        Kind = "register"
	KindDecode          Kind = "decode"
	KindNoFunction      Kind = "no_function"
	KindLabel           Kind = "label"
	KindClamped         Kind = "clamped"
	KindUnknownMnemonic Kind = "unknown_mnemonic"
)

// Diag records one issue at an address.
type Diag struct {
	Addr     uint64   `json:"addr"`
	Severity Severity `json:"severity"`
	Kind     Kind     `json:"kind"`
	Msg      string   `json:"msg"`
}

func (d Diag) String() string {
	return fmt.Sprintf("%s: [%s] 0x%x: %s", d.Severity, d.Kind, d.Addr, d.Msg)
}

// Sink receives diagnostics.
type Sink interface {
	Report(d Diag)
}

// Discard drops every diagnostic.
var Discard Sink = discard{}

type discard struct{}

func (discard) Report(Diag) {}

// Diags accumulates diagnostics.
type Diags struct {
	items []Diag
}

func (d *Diags) Report(x Diag) { d.items = append(d.items, x) }

func (d *Diags) Add(addr uint64, sev Severity, kind Kind, msg string) {
	d.items = append(d.items, Diag{Addr: addr, Severity: sev, Kind: kind, Msg: msg})
}

func (d *Diags) Items() []Diag { return d.items }
func (d *Diags) Len() int      { return len(d.items) }

// Count returns how many diagnostics have the given severity.
func (d *Diags) Count(sev Severity) int {
	n := 0
	for _, x := range d.items {
		if x.Severity == sev {
			n++
		}
	}
	return n
}

// Writer prints each diagnostic as one line to w.
type Writer struct {
	W      io.Writer
	Prefix string
}

func (w Writer) Report(d Diag) {
	fmt.Fprintf(w.W, "%s%s\n", w.Prefix, d)
}

// Tee forwards each diagnostic to every sink.
func Tee(sinks ...Sink) Sink { return tee(sinks) }

type tee []Sink

func (t tee) Report(d Diag) {
	for _, s := range t {
		s.Report(d)
	}
}

// Reportf builds and reports a diagnostic. A nil sink is ignored.
func Reportf(s Sink, addr uint64, sev Severity, kind Kind, format string, args ...any) {
	if s == nil {
		return
	}
	s.Report(Diag{Addr: addr, Severity: sev, Kind: kind, Msg: fmt.Sprintf(format, args...)})
}
