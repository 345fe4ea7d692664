// Package insts provides instruction definitions and assembly parsing for the
// Tomasulo simulator.
//
// Programs are written in a small MIPS-like assembly dialect. It supports:
//   - Floating-point arithmetic: ADD.D, SUB.D, MUL.D, DIV.D and their .S forms
//   - Integer arithmetic: DADD, DADDI, DSUB, DSUBI, DMUL, DDIV and the
//     ADD, ADDI, SUB, SUBI, MUL, DIV word forms
//   - Loads and stores: L.D, L.S, LD, LW, S.D, S.S, SD, SW
//   - Conditional branches: BEQ, BNE
//
// Usage:
//
//	prog, err := insts.Parse(strings.NewReader("LOOP: L.D F0, 0(R1)\nBNE R1, R2, LOOP"))
//	fmt.Println(prog.Len(), prog.At(0).Op)
package insts
