// pkg/taint/propagation.go
package taint

import "fmt"

// Propagate folds any number of operand values into the single result
// of the named operation.
//
// An empty operand list yields a fresh untainted value with no
// provenance; it is the identity element of the fold. A non-empty list
// folds left to right through Combine, so the result level is the join
// of all operand levels and the result source belongs to the overall
// highest-level operand, with ties resolved pairwise in favor of the
// earlier operand. The left-to-right order is part of the contract:
// reordering operands can change which source wins a tie.
func Propagate(op string, operands []Value, merge MergeFunc) Value {
	if len(operands) == 0 {
		return NewUntainted(nil)
	}

	acc := operands[0]
	for _, next := range operands[1:] {
		acc = Combine(acc, next, merge)
	}

	if acc.Meta == nil {
		acc.Meta = &Metadata{Confidence: 1.0}
	} else {
		acc.Meta = acc.Meta.clone()
	}
	acc.Meta.Path = append(acc.Meta.Path, TraceStep{
		Kind:        StepPropagate,
		Description: fmt.Sprintf("operation %q over %d operands", op, len(operands)),
		InputLevel:  operands[0].Level,
		OutputLevel: acc.Level,
	})
	return acc
}
