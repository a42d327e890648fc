package diag

import (
	"bytes"
	"testing"
)

func TestDiags_Count(t *testing.T) {
	var d Diags
	Reportf(&d, 0x10, SevWarning, KindBranch, "bo=%d", 40)
	d.Add(0x20, SevError, KindDecode, "bad word")
	Reportf(&d, 0x30, SevWarning, KindRegister, "dscr")
	Reportf(nil, 0x40, SevFatal, KindArity, "ignored")

	if d.Len() != 3 {
		t.Fatalf("len = %d, want 3", d.Len())
	}
	if got := d.Count(SevWarning); got != 2 {
		t.Errorf("warnings = %d, want 2", got)
	}
	if got := d.Items()[0].Msg; got != "bo=40" {
		t.Errorf("msg = %q, want %q", got, "bo=40")
	}
}

func TestWriterAndTee(t *testing.T) {
	var buf bytes.Buffer
	var d Diags
	s := Tee(Writer{W: &buf, Prefix: "ppc2c: "}, &d, Discard)
	Reportf(s, 0x1000, SevError, KindDecode, "no instruction")

	want := "ppc2c: error: [decode] 0x1000: no instruction\n"
	if got := buf.String(); got != want {
		t.Errorf("got = %q, want %q", got, want)
	}
	if d.Len() != 1 {
		t.Errorf("tee len = %d, want 1", d.Len())
	}
}

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		in   string
		want Policy
	}{
		{"", PolicyAbort},
		{"abort", PolicyAbort},
		{"skip-function", PolicySkipFunction},
		{"skip-instruction", PolicySkipInstruction},
	}
	for _, tt := range tests {
		got, err := ParsePolicy(tt.in)
		if err != nil {
			t.Errorf("ParsePolicy(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParsePolicy(%q) = %v, want %v", tt.in, got, tt.want)
		}
		if tt.in != "" && got.String() != tt.in {
			t.Errorf("String() = %q, want %q", got.String(), tt.in)
		}
	}
	if _, err := ParsePolicy("retry"); err == nil {
		t.Error("ParsePolicy(retry) succeeded")
	}
}

func TestEffectiveMaxSteps(t *testing.T) {
	if got := (Options{}).EffectiveMaxSteps(); got != DefaultMaxSteps {
		t.Errorf("default = %d, want %d", got, DefaultMaxSteps)
	}
	if got := (Options{MaxSteps: 5}).EffectiveMaxSteps(); got != 5 {
		t.Errorf("explicit = %d, want 5", got)
	}
}
