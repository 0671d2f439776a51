package bytecode

import (
	"stackjit/pkg/errors"
)

// MaxVarSlots bounds the variable slot index space. The slot array actually
// allocated for a program is sized by the highest slot it references.
const MaxVarSlots = 256

// stackEffect returns how many operands an instruction pops and pushes.
// The bool is false for opcodes with no defined effect.
func stackEffect(op Op) (pops, pushes int, ok bool) {
	switch op {
	case OpLoad, OpLoadVar:
		return 0, 1, true
	case OpStore, OpPop, OpJmpIf, OpJmpIfNot, OpRet:
		return 1, 0, true
	case OpAdd, OpSub, OpMul, OpDiv, OpMod,
		OpEq, OpNe, OpLt, OpLte, OpGt, OpGte,
		OpShl, OpShr, OpAnd, OpOr, OpXor:
		return 2, 1, true
	case OpNeg, OpNot:
		return 1, 1, true
	case OpDup:
		return 1, 2, true
	case OpSwap:
		return 2, 2, true
	case OpLabel, OpJmp:
		return 0, 0, true
	default:
		return 0, 0, false
	}
}

// Verify checks a resolved program before any code is generated: the
// symbolic operand stack must never underflow on any path, every path must
// terminate in Ret, and every slot reference must be in bounds. It returns
// the number of variable slots the compiled program needs and the peak
// operand stack depth reached on any path, which sizes the native stack
// the program runs on. All violations are translation-time failures;
// nothing malformed reaches the emitter.
func Verify(p *Program, labels LabelTable) (slotCount, maxDepth int, err error) {
	maxSlot := -1
	for i := 0; i < p.Len(); i++ {
		in := p.At(i)
		if in.Op != OpLoadVar && in.Op != OpStore {
			continue
		}
		if in.Slot < 0 || in.Slot >= MaxVarSlots {
			return 0, 0, errors.CompileErrorf(errors.KindSlotOutOfRange,
				"%s at instruction %d references slot %d (bound %d)", in.Op, i, in.Slot, MaxVarSlots)
		}
		if in.Slot > maxSlot {
			maxSlot = in.Slot
		}
	}

	if p.Len() == 0 {
		return 0, 0, errors.CompileErrorf(errors.KindMissingRet, "empty program")
	}

	// Propagate the compile-time stack depth over the control-flow graph.
	// depthAt[i] is the depth on entry to instruction i once seen.
	depthAt := make([]int, p.Len())
	seen := make([]bool, p.Len())
	worklist := []int{0}
	seen[0] = true

	// enter queues instruction i with entry depth d.
	enter := func(i, d int) error {
		if i >= p.Len() {
			return errors.CompileErrorf(errors.KindMissingRet,
				"control flow runs past the end of the program")
		}
		if seen[i] {
			if depthAt[i] != d {
				return errors.CompileErrorf(errors.KindStackUnderflow,
					"inconsistent stack depth at instruction %d: %d vs %d", i, depthAt[i], d)
			}
			return nil
		}
		seen[i] = true
		depthAt[i] = d
		worklist = append(worklist, i)
		return nil
	}

	for len(worklist) > 0 {
		i := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]

		in := p.At(i)
		pops, pushes, ok := stackEffect(in.Op)
		if !ok {
			return 0, 0, errors.CompileErrorf(errors.KindUnsupportedInstruction,
				"instruction %d: %s", i, in)
		}

		depth := depthAt[i] - pops
		if depth < 0 {
			return 0, 0, errors.CompileErrorf(errors.KindStackUnderflow,
				"%s at instruction %d pops %d with %d on the stack", in.Op, i, pops, depthAt[i])
		}
		depth += pushes
		if depth > maxDepth {
			maxDepth = depth
		}

		switch in.Op {
		case OpRet:
			// Terminal, no successors.
		case OpJmp:
			if err := enter(labels[in.Label], depth); err != nil {
				return 0, 0, err
			}
		case OpJmpIf, OpJmpIfNot:
			if err := enter(labels[in.Label], depth); err != nil {
				return 0, 0, err
			}
			if err := enter(i+1, depth); err != nil {
				return 0, 0, err
			}
		default:
			if err := enter(i+1, depth); err != nil {
				return 0, 0, err
			}
		}
	}

	return maxSlot + 1, maxDepth, nil
}
