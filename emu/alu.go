package emu

import (
	"math"

	"github.com/sarchlab/tomasim/insts"
)

// Compute evaluates an arithmetic instruction on two operand values.
// Division by zero yields NaN. Integer-class results are truncated toward
// zero so that integer division and immediates behave like integers.
func Compute(inst *insts.Instruction, a, b float64) float64 {
	var result float64
	switch inst.Arith() {
	case insts.ArithAdd:
		result = a + b
	case insts.ArithSub:
		result = a - b
	case insts.ArithMul:
		result = a * b
	case insts.ArithDiv:
		if b == 0 {
			return math.NaN()
		}
		result = a / b
	default:
		return 0
	}

	if inst.Class == insts.ClassIntALU {
		result = math.Trunc(result)
	}
	if inst.Op == insts.OpADDS || inst.Op == insts.OpSUBS ||
		inst.Op == insts.OpMULS || inst.Op == insts.OpDIVS {
		result = float64(float32(result))
	}
	return result
}

// BranchTaken evaluates a conditional branch on its two operand values.
func BranchTaken(inst *insts.Instruction, a, b float64) bool {
	switch inst.Op {
	case insts.OpBEQ:
		return a == b
	case insts.OpBNE:
		return a != b
	default:
		return false
	}
}
