package insts

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"
)

// Parse errors.
var (
	ErrSyntax         = errors.New("syntax error")
	ErrBadRegister    = errors.New("bad register")
	ErrDuplicateLabel = errors.New("duplicate label")
	ErrUnknownLabel   = errors.New("unknown label")
)

// NumRegisters is the number of registers in each register bank.
const NumRegisters = 32

// ParseError reports the source line on which parsing failed.
type ParseError struct {
	Line int
	Text string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %q: %v", e.Line, e.Text, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Program is an ordered list of instructions together with its label table.
type Program struct {
	instructions []*Instruction
	labels       map[string]int
}

// NewProgram creates a program from instructions and a label table.
func NewProgram(instructions []*Instruction, labels map[string]int) *Program {
	l := make(map[string]int, len(labels))
	for k, v := range labels {
		l[strings.ToUpper(k)] = v
	}
	return &Program{
		instructions: append([]*Instruction(nil), instructions...),
		labels:       l,
	}
}

// Len returns the number of instructions.
func (p *Program) Len() int {
	return len(p.instructions)
}

// At returns the instruction at index i.
func (p *Program) At(i int) *Instruction {
	return p.instructions[i]
}

// Instructions returns the instructions in program order.
func (p *Program) Instructions() []*Instruction {
	return append([]*Instruction(nil), p.instructions...)
}

// LabelIndex returns the instruction index of a label.
func (p *Program) LabelIndex(label string) (int, bool) {
	idx, ok := p.labels[strings.ToUpper(label)]
	return idx, ok
}

// Labels returns a copy of the label table.
func (p *Program) Labels() map[string]int {
	l := make(map[string]int, len(p.labels))
	for k, v := range p.labels {
		l[k] = v
	}
	return l
}

// Validate checks that every branch target resolves to a label.
func (p *Program) Validate() error {
	for i, inst := range p.instructions {
		if inst.Class != ClassBranch {
			continue
		}
		if _, ok := p.LabelIndex(inst.Target); !ok {
			return fmt.Errorf("instruction %d (%s): %w %q",
				i, inst.Text, ErrUnknownLabel, inst.Target)
		}
	}
	return nil
}

// Parse reads assembly source and builds a program. Lines may carry a
// "LABEL:" prefix or consist of a label alone, in which case the label binds
// to the next instruction. Text after '#' or ';' is a comment. Mnemonics that
// are not supported parse as ClassUnknown instructions.
func Parse(r io.Reader) (*Program, error) {
	var (
		instructions []*Instruction
		labels       = make(map[string]int)
		pending      []string
	)

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		raw := scanner.Text()
		line := stripComment(raw)
		if line == "" {
			continue
		}

		label, rest := splitLabel(line)
		if label != "" {
			if _, dup := labels[label]; dup {
				return nil, &ParseError{Line: lineNo, Text: raw, Err: ErrDuplicateLabel}
			}
			labels[label] = len(instructions)
			pending = append(pending, label)
		}
		if rest == "" {
			continue
		}

		inst, err := ParseLine(rest)
		if err != nil {
			return nil, &ParseError{Line: lineNo, Text: raw, Err: err}
		}
		if len(pending) > 0 {
			inst.Label = pending[0]
			pending = pending[:0]
		}
		instructions = append(instructions, inst)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read program: %w", err)
	}

	return NewProgram(instructions, labels), nil
}

// ParseString parses assembly held in a string.
func ParseString(src string) (*Program, error) {
	return Parse(strings.NewReader(src))
}

// MustParse parses assembly and panics on error. It is intended for
// programs embedded in code.
func MustParse(src string) *Program {
	p, err := ParseString(src)
	if err != nil {
		panic(err)
	}
	return p
}

// ParseLine parses a single instruction without a label.
func ParseLine(line string) (*Instruction, error) {
	line = strings.TrimSpace(line)
	mnemonic, rest := line, ""
	if sp := strings.IndexFunc(line, unicode.IsSpace); sp >= 0 {
		mnemonic, rest = line[:sp], line[sp+1:]
	}
	mnemonic = strings.ToUpper(mnemonic)
	operands := splitOperands(rest)

	op, class := Lookup(mnemonic)
	inst := &Instruction{
		Opcode: mnemonic,
		Op:     op,
		Class:  class,
		Text:   line,
	}

	var err error
	switch class {
	case ClassLoad:
		err = parseMemory(inst, operands, func(reg string) { inst.Dest = reg })
	case ClassStore:
		err = parseMemory(inst, operands, func(reg string) { inst.Src1 = RegOperand(reg) })
	case ClassBranch:
		err = parseBranch(inst, operands)
	case ClassFloatALU, ClassIntALU:
		err = parseALU(inst, operands)
	}
	if err != nil {
		return nil, err
	}

	return inst, nil
}

func parseALU(inst *Instruction, operands []string) error {
	if len(operands) != 3 {
		return fmt.Errorf("%w: %s expects 3 operands, got %d",
			ErrSyntax, inst.Opcode, len(operands))
	}

	dest, err := parseRegister(operands[0])
	if err != nil {
		return err
	}
	inst.Dest = dest

	if inst.Src1, err = parseSource(operands[1]); err != nil {
		return err
	}
	if inst.Src2, err = parseSource(operands[2]); err != nil {
		return err
	}
	return nil
}

func parseMemory(inst *Instruction, operands []string, setReg func(string)) error {
	if len(operands) != 2 {
		return fmt.Errorf("%w: %s expects 2 operands, got %d",
			ErrSyntax, inst.Opcode, len(operands))
	}

	reg, err := parseRegister(operands[0])
	if err != nil {
		return err
	}
	setReg(reg)

	offset, base, err := parseAddress(operands[1])
	if err != nil {
		return err
	}
	inst.Offset = offset
	inst.Base = base
	return nil
}

func parseBranch(inst *Instruction, operands []string) error {
	if len(operands) != 3 {
		return fmt.Errorf("%w: %s expects 3 operands, got %d",
			ErrSyntax, inst.Opcode, len(operands))
	}

	var err error
	if inst.Src1, err = parseSource(operands[0]); err != nil {
		return err
	}
	if inst.Src2, err = parseSource(operands[1]); err != nil {
		return err
	}
	if !isIdent(operands[2]) {
		return fmt.Errorf("%w: bad branch target %q", ErrSyntax, operands[2])
	}
	inst.Target = strings.ToUpper(operands[2])
	return nil
}

// parseAddress parses "offset(base)". The offset may be omitted.
func parseAddress(s string) (int64, string, error) {
	open := strings.IndexByte(s, '(')
	if open < 0 || !strings.HasSuffix(s, ")") {
		return 0, "", fmt.Errorf("%w: bad address %q", ErrSyntax, s)
	}

	var offset int64
	if off := strings.TrimSpace(s[:open]); off != "" {
		v, err := strconv.ParseInt(off, 0, 64)
		if err != nil {
			return 0, "", fmt.Errorf("%w: bad offset %q", ErrSyntax, off)
		}
		offset = v
	}

	base, err := parseRegister(s[open+1 : len(s)-1])
	if err != nil {
		return 0, "", err
	}
	return offset, base, nil
}

func parseSource(s string) (Operand, error) {
	if IsRegister(s) {
		return RegOperand(strings.ToUpper(strings.TrimSpace(s))), nil
	}
	if v, ok := parseImmediate(s); ok {
		return ImmOperand(v), nil
	}
	return Operand{}, fmt.Errorf("%w %q", ErrBadRegister, s)
}

func parseImmediate(s string) (float64, bool) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "$")
	if v, err := strconv.ParseInt(s, 0, 64); err == nil {
		return float64(v), true
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v, true
	}
	return 0, false
}

func parseRegister(s string) (string, error) {
	if !IsRegister(s) {
		return "", fmt.Errorf("%w %q", ErrBadRegister, s)
	}
	return strings.ToUpper(strings.TrimSpace(s)), nil
}

// IsRegister reports whether s names an integer (R0-R31) or floating-point
// (F0-F31) register.
func IsRegister(s string) bool {
	s = strings.ToUpper(strings.TrimSpace(s))
	if len(s) < 2 || (s[0] != 'R' && s[0] != 'F') {
		return false
	}
	n, err := strconv.Atoi(s[1:])
	if err != nil || s[1] == '+' || s[1] == '-' {
		return false
	}
	return n >= 0 && n < NumRegisters
}

func stripComment(line string) string {
	if i := strings.IndexAny(line, "#;"); i >= 0 {
		line = line[:i]
	}
	return strings.TrimSpace(line)
}

// splitLabel separates a leading "LABEL:" from the rest of the line.
func splitLabel(line string) (string, string) {
	colon := strings.IndexByte(line, ':')
	if colon < 0 {
		return "", line
	}
	label := strings.TrimSpace(line[:colon])
	if !isIdent(label) {
		return "", line
	}
	return strings.ToUpper(label), strings.TrimSpace(line[colon+1:])
}

func splitOperands(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || r == '.':
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
