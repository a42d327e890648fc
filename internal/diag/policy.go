package diag

import "fmt"

// Policy controls what a malformed instruction does to a batch.
type Policy int

const (
	PolicyAbort           Policy = iota // discard all output of the batch
	PolicySkipFunction                  // drop the body of the offending function
	PolicySkipInstruction               // replace the offending instruction by a comment
)

func (p Policy) String() string {
	switch p {
	case PolicyAbort:
		return "abort"
	case PolicySkipFunction:
		return "skip-function"
	case PolicySkipInstruction:
		return "skip-instruction"
	}
	return fmt.Sprintf("policy(%d)", int(p))
}

// ParsePolicy parses the flag spelling of a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "abort":
		return PolicyAbort, nil
	case "skip-function":
		return PolicySkipFunction, nil
	case "skip-instruction":
		return PolicySkipInstruction, nil
	}
	return 0, fmt.Errorf("diag: unknown policy %q (want abort, skip-function or skip-instruction)", s)
}

// DefaultMaxSteps is the global default loop cap.
const DefaultMaxSteps = 10_000_000

// Options controls analysis behavior across packages.
type Options struct {
	Policy   Policy
	MaxSteps int // global loop cap; 0 = use default
}

func (o Options) EffectiveMaxSteps() int {
	if o.MaxSteps > 0 {
		return o.MaxSteps
	}
	return DefaultMaxSteps
}
