package bytecode

// Program is an ordered, immutable sequence of instructions. It is
// constructed once and consumed read-only by the label resolver and the
// code generator.
type Program struct {
	instrs []Instruction
}

// NewProgram copies the given instructions into a new program.
func NewProgram(instrs ...Instruction) *Program {
	p := &Program{instrs: make([]Instruction, len(instrs))}
	copy(p.instrs, instrs)
	return p
}

// Len returns the number of instructions.
func (p *Program) Len() int {
	return len(p.instrs)
}

// At returns the instruction at index i.
func (p *Program) At(i int) Instruction {
	return p.instrs[i]
}

// Instructions returns a copy of the instruction sequence.
func (p *Program) Instructions() []Instruction {
	out := make([]Instruction, len(p.instrs))
	copy(out, p.instrs)
	return out
}
