package mask

import (
	"fmt"
	"strconv"
	"strings"
)

// Condition is the text of the condition a conditional branch tests, in
// its positive and negated forms.
type Condition struct {
	Is    string // e.g. "cr0 is equal"
	IsNot string // e.g. "cr0 is not equal"
}

// FieldCondition builds the condition for a bare CR field, with the
// condition code translated through the English table.
func FieldCondition(field int, code string) Condition {
	name := ConditionName(code)
	return Condition{
		Is:    fmt.Sprintf("cr%d is %s", field, name),
		IsNot: fmt.Sprintf("cr%d is not %s", field, name),
	}
}

var conditionNames = map[string]string{
	"lt": "less than",
	"le": "less than or equal",
	"eq": "equal",
	"ge": "greater than or equal",
	"gt": "greater than",
	"nl": "not less than",
	"ne": "not equal",
	"ng": "not greater than",
	"so": "summary overflow",
	"ns": "not summary overflow",
	"un": "unordered",
	"nu": "not unordered",
}

// ConditionName translates a condition mnemonic ("lt", "eq", ...) to
// English. Unmapped codes are returned unchanged.
func ConditionName(code string) string {
	if s, ok := conditionNames[code]; ok {
		return s
	}
	return code
}

var crBits = [4]string{"lt", "gt", "eq", "so"}

// ParseBI splits a BI operand into its CR field and condition code. It
// accepts "eq", "4*cr7+eq", "cr7+eq", "cr7eq" and the numeric bit index.
func ParseBI(s string) (field int, code string) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil && n >= 0 && n < 32 {
		return n / 4, crBits[n%4]
	}
	s = strings.TrimPrefix(s, "4*")
	if !strings.HasPrefix(s, "cr") || len(s) < 3 || s[2] < '0' || s[2] > '7' {
		return 0, s
	}
	field = int(s[2] - '0')
	rest := strings.TrimPrefix(s[3:], "+")
	return field, rest
}

// BitCode returns the condition code tested by BI bit n within its field.
func BitCode(n int) string {
	return crBits[n&3]
}

// Branch renders a bc-family branch from its BO field, the condition
// selected by BI and the target label. BO values outside the nine known
// patterns yield ErrUnsupportedBranch, never an empty statement.
func Branch(bo int, c Condition, target string) (string, error) {
	return Guard(bo, c, "goto "+target)
}

// Call renders a bcl-family conditional call of callee.
func Call(bo int, c Condition, callee string) (string, error) {
	return Guard(bo, c, callee+"()")
}

// Guard wraps action in the test selected by BO: a CTR decrement, the CR
// condition, both, or neither.
func Guard(bo int, c Condition, action string) (string, error) {
	if bo < 0 || bo > 31 {
		return "", fmt.Errorf("%w: BO=%d", ErrUnsupportedBranch, bo)
	}
	switch {
	case bo&0x1E == 0x00:
		return fmt.Sprintf("CTR--; if (CTR != 0 && %s) %s", c.IsNot, action), nil
	case bo&0x1E == 0x02:
		return fmt.Sprintf("CTR--; if (CTR == 0 && %s) %s", c.IsNot, action), nil
	case bo&0x1C == 0x04:
		return fmt.Sprintf("if (%s) %s", c.IsNot, action), nil
	case bo&0x1E == 0x08:
		return fmt.Sprintf("CTR--; if (CTR != 0 && %s) %s", c.Is, action), nil
	case bo&0x1E == 0x0A:
		return fmt.Sprintf("CTR--; if (CTR == 0 && %s) %s", c.Is, action), nil
	case bo&0x1C == 0x0C:
		return fmt.Sprintf("if (%s) %s", c.Is, action), nil
	case bo&0x16 == 0x10:
		return fmt.Sprintf("CTR--; if (CTR != 0) %s", action), nil
	case bo&0x16 == 0x12:
		return fmt.Sprintf("CTR--; if (CTR == 0) %s", action), nil
	case bo&0x14 == 0x14:
		return action, nil
	}
	return "", fmt.Errorf("%w: BO=%d", ErrUnsupportedBranch, bo)
}

// Unconditional reports whether BO ignores both CTR and the CR bit.
func Unconditional(bo int) bool { return bo >= 0 && bo <= 31 && bo&0x14 == 0x14 }

// ExtendedBranch maps the extended conditional-branch mnemonics to the BO
// value and condition code of the equivalent bc.
var ExtendedBranch = map[string]struct {
	BO   int
	Code string
}{
	"blt":   {12, "lt"},
	"bgt":   {12, "gt"},
	"beq":   {12, "eq"},
	"bso":   {12, "so"},
	"bun":   {12, "un"},
	"bge":   {4, "lt"},
	"bnl":   {4, "lt"},
	"ble":   {4, "gt"},
	"bng":   {4, "gt"},
	"bne":   {4, "eq"},
	"bns":   {4, "so"},
	"bnu":   {4, "un"},
	"bdnz":  {16, ""},
	"bdz":   {18, ""},
	"bdnzt": {8, ""},
	"bdnzf": {0, ""},
	"bdzt":  {10, ""},
	"bdzf":  {2, ""},
}
