package bytecode

import (
	"stackjit/pkg/errors"
)

// LabelTable maps a label id to the instruction index of its Label marker.
// Jumps land on the instruction following that position (the marker itself
// generates no code). The table is built once per compilation and discarded
// once jump displacements are resolved.
type LabelTable map[LabelID]int

// ResolveLabels scans a program and builds its label table. It fails with
// KindDuplicateLabel if two Label instructions share an id, and with
// KindDanglingLabel naming the first jump whose id has no matching Label.
// Resolution must complete before code generation begins.
func ResolveLabels(p *Program) (LabelTable, error) {
	table := make(LabelTable)
	for i := 0; i < p.Len(); i++ {
		in := p.At(i)
		if in.Op != OpLabel {
			continue
		}
		if prev, ok := table[in.Label]; ok {
			return nil, errors.CompileErrorf(errors.KindDuplicateLabel,
				"label %d defined at instruction %d and again at %d", in.Label, prev, i)
		}
		table[in.Label] = i
	}

	for i := 0; i < p.Len(); i++ {
		in := p.At(i)
		switch in.Op {
		case OpJmp, OpJmpIf, OpJmpIfNot:
			if _, ok := table[in.Label]; !ok {
				return nil, errors.CompileErrorf(errors.KindDanglingLabel,
					"jump at instruction %d references undefined label %d", i, in.Label)
			}
		}
	}

	return table, nil
}
