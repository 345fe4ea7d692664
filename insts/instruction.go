package insts

import (
	"fmt"
	"strconv"
	"strings"
)

// Op represents an opcode.
type Op uint16

// Opcodes.
const (
	OpUnknown Op = iota

	// Floating-point add/sub.
	OpADDD
	OpSUBD
	OpADDS
	OpSUBS

	// Floating-point mul/div.
	OpMULD
	OpDIVD
	OpMULS
	OpDIVS

	// Integer arithmetic.
	OpDADD
	OpDADDI
	OpDSUB
	OpDSUBI
	OpADD
	OpADDI
	OpSUB
	OpSUBI
	OpDMUL
	OpDDIV
	OpMUL
	OpDIV

	// Loads.
	OpLD
	OpLS
	OpLDI
	OpLW

	// Stores.
	OpSD
	OpSS
	OpSDI
	OpSW

	// Branches.
	OpBEQ
	OpBNE
)

// Class is the operation class of an instruction. The class decides which
// scheduler resource receives the instruction.
type Class uint8

// Operation classes.
const (
	ClassUnknown Class = iota
	ClassFloatALU
	ClassIntALU
	ClassLoad
	ClassStore
	ClassBranch
)

// String returns a short name for the class.
func (c Class) String() string {
	switch c {
	case ClassFloatALU:
		return "FP"
	case ClassIntALU:
		return "INT"
	case ClassLoad:
		return "LOAD"
	case ClassStore:
		return "STORE"
	case ClassBranch:
		return "BRANCH"
	default:
		return "UNKNOWN"
	}
}

// ArithKind groups arithmetic opcodes by the operation they compute.
type ArithKind uint8

// Arithmetic kinds.
const (
	ArithNone ArithKind = iota
	ArithAdd
	ArithSub
	ArithMul
	ArithDiv
)

type opInfo struct {
	op    Op
	class Class
	arith ArithKind
	width int
}

var opTable = map[string]opInfo{
	"ADD.D": {OpADDD, ClassFloatALU, ArithAdd, 0},
	"SUB.D": {OpSUBD, ClassFloatALU, ArithSub, 0},
	"ADD.S": {OpADDS, ClassFloatALU, ArithAdd, 0},
	"SUB.S": {OpSUBS, ClassFloatALU, ArithSub, 0},
	"MUL.D": {OpMULD, ClassFloatALU, ArithMul, 0},
	"DIV.D": {OpDIVD, ClassFloatALU, ArithDiv, 0},
	"MUL.S": {OpMULS, ClassFloatALU, ArithMul, 0},
	"DIV.S": {OpDIVS, ClassFloatALU, ArithDiv, 0},

	"DADD":  {OpDADD, ClassIntALU, ArithAdd, 0},
	"DADDI": {OpDADDI, ClassIntALU, ArithAdd, 0},
	"DSUB":  {OpDSUB, ClassIntALU, ArithSub, 0},
	"DSUBI": {OpDSUBI, ClassIntALU, ArithSub, 0},
	"ADD":   {OpADD, ClassIntALU, ArithAdd, 0},
	"ADDI":  {OpADDI, ClassIntALU, ArithAdd, 0},
	"SUB":   {OpSUB, ClassIntALU, ArithSub, 0},
	"SUBI":  {OpSUBI, ClassIntALU, ArithSub, 0},
	"DMUL":  {OpDMUL, ClassIntALU, ArithMul, 0},
	"DDIV":  {OpDDIV, ClassIntALU, ArithDiv, 0},
	"MUL":   {OpMUL, ClassIntALU, ArithMul, 0},
	"DIV":   {OpDIV, ClassIntALU, ArithDiv, 0},

	"L.D": {OpLD, ClassLoad, ArithNone, 8},
	"L.S": {OpLS, ClassLoad, ArithNone, 4},
	"LD":  {OpLDI, ClassLoad, ArithNone, 8},
	"LW":  {OpLW, ClassLoad, ArithNone, 4},

	"S.D": {OpSD, ClassStore, ArithNone, 8},
	"S.S": {OpSS, ClassStore, ArithNone, 4},
	"SD":  {OpSDI, ClassStore, ArithNone, 8},
	"SW":  {OpSW, ClassStore, ArithNone, 4},

	"BEQ": {OpBEQ, ClassBranch, ArithNone, 0},
	"BNE": {OpBNE, ClassBranch, ArithNone, 0},
}

var opInfoByOp = func() map[Op]opInfo {
	m := make(map[Op]opInfo, len(opTable))
	for _, info := range opTable {
		m[info.op] = info
	}
	return m
}()

// Lookup returns the opcode and class for a mnemonic. Unsupported mnemonics
// return OpUnknown and ClassUnknown.
func Lookup(mnemonic string) (Op, Class) {
	info, ok := opTable[strings.ToUpper(mnemonic)]
	if !ok {
		return OpUnknown, ClassUnknown
	}
	return info.op, info.class
}

// Operand is a source operand: either a register name or an immediate value.
type Operand struct {
	Reg   string
	Imm   float64
	IsImm bool
}

// RegOperand returns an operand naming a register.
func RegOperand(name string) Operand {
	return Operand{Reg: name}
}

// ImmOperand returns an immediate operand.
func ImmOperand(v float64) Operand {
	return Operand{Imm: v, IsImm: true}
}

// IsZero reports whether the operand is absent.
func (o Operand) IsZero() bool {
	return o.Reg == "" && !o.IsImm
}

// String formats the operand as it appears in assembly.
func (o Operand) String() string {
	if o.IsImm {
		return strconv.FormatFloat(o.Imm, 'g', -1, 64)
	}
	return o.Reg
}

// Instruction is one parsed program instruction. Instructions are never
// modified once the program is loaded.
type Instruction struct {
	// Label is the label defined on this instruction, if any.
	Label string
	// Opcode is the upper-cased mnemonic as written.
	Opcode string
	Op     Op
	Class  Class

	// Dest is the destination register. Empty for stores and branches.
	Dest string
	// Src1 is the first source. For stores it names the value register.
	Src1 Operand
	// Src2 is the second source. Absent for loads and stores.
	Src2 Operand

	// Offset and Base form the effective address of loads and stores.
	Offset int64
	Base   string

	// Target is the branch target label.
	Target string

	// Text is the original source text, trimmed.
	Text string
}

// Arith returns the arithmetic kind of an ALU instruction.
func (i *Instruction) Arith() ArithKind {
	return opInfoByOp[i.Op].arith
}

// Width returns the access size in bytes of a load or store. Zero otherwise.
func (i *Instruction) Width() int {
	return opInfoByOp[i.Op].width
}

// IsMulDiv reports whether the instruction is a multiply or divide.
func (i *Instruction) IsMulDiv() bool {
	a := i.Arith()
	return a == ArithMul || a == ArithDiv
}

// IsDivide reports whether the instruction is a divide.
func (i *Instruction) IsDivide() bool {
	return i.Arith() == ArithDiv
}

// IsFloatAccess reports whether a load or store moves a floating-point value.
func (i *Instruction) IsFloatAccess() bool {
	switch i.Op {
	case OpLD, OpLS, OpSD, OpSS, OpLDI, OpSDI:
		return true
	}
	return false
}

// Sources returns the register names this instruction reads.
func (i *Instruction) Sources() []string {
	var regs []string
	switch i.Class {
	case ClassLoad:
		regs = append(regs, i.Base)
	case ClassStore:
		regs = append(regs, i.Src1.Reg, i.Base)
	default:
		if !i.Src1.IsImm && i.Src1.Reg != "" {
			regs = append(regs, i.Src1.Reg)
		}
		if !i.Src2.IsImm && i.Src2.Reg != "" {
			regs = append(regs, i.Src2.Reg)
		}
	}
	return regs
}

// String formats the instruction in assembly syntax.
func (i *Instruction) String() string {
	switch i.Class {
	case ClassLoad:
		return fmt.Sprintf("%s %s, %d(%s)", i.Opcode, i.Dest, i.Offset, i.Base)
	case ClassStore:
		return fmt.Sprintf("%s %s, %d(%s)", i.Opcode, i.Src1, i.Offset, i.Base)
	case ClassBranch:
		return fmt.Sprintf("%s %s, %s, %s", i.Opcode, i.Src1, i.Src2, i.Target)
	case ClassFloatALU, ClassIntALU:
		return fmt.Sprintf("%s %s, %s, %s", i.Opcode, i.Dest, i.Src1, i.Src2)
	default:
		return i.Text
	}
}
