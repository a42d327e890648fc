package mask

import (
	"errors"
	"testing"
)

func TestBranch_ScenarioF(t *testing.T) {
	// BO=12: branch if CR bit true, no CTR. BI=2: cr0 eq.
	field, code := ParseBI("2")
	got, err := Branch(12, FieldCondition(field, code), "loc_100")
	if err != nil {
		t.Fatal(err)
	}
	if want := "if (cr0 is equal) goto loc_100"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestBranch_Patterns(t *testing.T) {
	c := FieldCondition(1, "lt")
	tests := []struct {
		bo   int
		want string
	}{
		{0, "CTR--; if (CTR != 0 && cr1 is not less than) goto L"},
		{2, "CTR--; if (CTR == 0 && cr1 is not less than) goto L"},
		{4, "if (cr1 is not less than) goto L"},
		{6, "if (cr1 is not less than) goto L"},
		{8, "CTR--; if (CTR != 0 && cr1 is less than) goto L"},
		{10, "CTR--; if (CTR == 0 && cr1 is less than) goto L"},
		{12, "if (cr1 is less than) goto L"},
		{15, "if (cr1 is less than) goto L"},
		{16, "CTR--; if (CTR != 0) goto L"},
		{25, "CTR--; if (CTR != 0) goto L"},
		{18, "CTR--; if (CTR == 0) goto L"},
		{20, "goto L"},
		{31, "goto L"},
	}
	for _, tt := range tests {
		got, err := Branch(tt.bo, c, "L")
		if err != nil {
			t.Fatalf("Branch(%d): %v", tt.bo, err)
		}
		if got != tt.want {
			t.Errorf("Branch(%d) = %q, want %q", tt.bo, got, tt.want)
		}
	}
}

func TestBranch_EveryBOHandled(t *testing.T) {
	c := FieldCondition(0, "eq")
	for bo := 0; bo < 32; bo++ {
		got, err := Branch(bo, c, "L")
		if err != nil {
			t.Errorf("Branch(%d): %v", bo, err)
		}
		if got == "" {
			t.Errorf("Branch(%d) returned empty output", bo)
		}
	}
}

func TestBranch_Unsupported(t *testing.T) {
	for _, bo := range []int{-1, 32, 0x40} {
		got, err := Branch(bo, FieldCondition(0, "eq"), "L")
		if !errors.Is(err, ErrUnsupportedBranch) {
			t.Errorf("Branch(%d) err = %v, want ErrUnsupportedBranch", bo, err)
		}
		if got != "" {
			t.Errorf("Branch(%d) = %q, want empty", bo, got)
		}
	}
}

func TestParseBI(t *testing.T) {
	tests := []struct {
		in    string
		field int
		code  string
	}{
		{"eq", 0, "eq"},
		{"4*cr7+eq", 7, "eq"},
		{"4*cr1+lt", 1, "lt"},
		{"cr6+gt", 6, "gt"},
		{"cr3so", 3, "so"},
		{"2", 0, "eq"},
		{"30", 7, "eq"},
		{"5", 1, "gt"},
	}
	for _, tt := range tests {
		field, code := ParseBI(tt.in)
		if field != tt.field || code != tt.code {
			t.Errorf("ParseBI(%q) = %d, %q; want %d, %q", tt.in, field, code, tt.field, tt.code)
		}
	}
}

func TestConditionName(t *testing.T) {
	tests := map[string]string{
		"lt": "less than",
		"ge": "greater than or equal",
		"ns": "not summary overflow",
		"nu": "not unordered",
		"xx": "xx",
	}
	for in, want := range tests {
		if got := ConditionName(in); got != want {
			t.Errorf("ConditionName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCall(t *testing.T) {
	got, err := Call(12, FieldCondition(6, "gt"), "helper")
	if err != nil {
		t.Fatal(err)
	}
	if want := "if (cr6 is greater than) helper()"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if got, _ := Call(20, FieldCondition(0, "lt"), "helper"); got != "helper()" {
		t.Errorf("unconditional call = %q", got)
	}
	if !Unconditional(20) || Unconditional(12) {
		t.Error("Unconditional misclassifies BO")
	}
}

func TestExtendedBranchUnordered(t *testing.T) {
	for name, want := range map[string]string{"bun": "cr0 is unordered", "bnu": "cr0 is not unordered"} {
		ext := ExtendedBranch[name]
		got, err := Branch(ext.BO, FieldCondition(0, ext.Code), "L")
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if want := "if (" + want + ") goto L"; got != want {
			t.Errorf("%s = %q, want %q", name, got, want)
		}
	}
}
