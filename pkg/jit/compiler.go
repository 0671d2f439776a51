//go:build linux && amd64

// Package jit translates verified stack bytecode into x86-64 machine code
// and runs it from executable memory.
package jit

import (
	"stackjit/pkg/bytecode"
	"stackjit/pkg/errors"
)

// Register model
//
// The operand stack is a real native stack: every bytecode push is an x86
// push and every pop an x86 pop, exactly mirroring the compile-time depth
// the verifier computed. The trampoline points RSP at a dedicated
// allocation sized from that verified depth before entering the code, so
// pushes never land on the goroutine stack. Only caller-saved scratch
// registers are touched.
//
//   RDI = variable slots base pointer (first argument, never written)
//   RAX = first operand / result
//   RCX = second operand / shift count
//   RDX = comparison result, idiv high half
//   RBP = frame pointer, saved in the prologue and restored at Ret
const (
	SlotsReg = RDI

	ScratchReg1 = RAX
	ScratchReg2 = RCX
	ScratchReg3 = RDX
)

// slotWidth is the byte width of one variable slot (int64).
const slotWidth = 8

// pendingJump is a control transfer whose displacement is not known at
// emission time. The patch list is drained after the whole program has been
// emitted and before the buffer is handed to executable memory.
type pendingJump struct {
	dispOffset int              // byte offset of the rel32 placeholder
	target     bytecode.LabelID // label the jump resolves against
}

// Compiler translates a verified program into x86-64 machine code.
type Compiler struct {
	asm *Assembler

	labels       bytecode.LabelTable
	instrOffsets []int // instruction index -> byte offset of its first emitted byte
	pending      []pendingJump
}

// NewCompiler creates a compiler. A Compiler is single-use per program;
// independent compilations never share one.
func NewCompiler() *Compiler {
	return &Compiler{}
}

// Compile emits machine code for the whole program and resolves every jump
// displacement. The returned bytes are complete: nothing in them needs
// patching after this call, so they are safe to finalize into executable
// memory. The program must already have passed ResolveLabels and Verify.
func (c *Compiler) Compile(p *bytecode.Program, labels bytecode.LabelTable) ([]byte, error) {
	c.asm = NewAssembler()
	c.labels = labels
	c.instrOffsets = make([]int, p.Len())
	c.pending = nil

	c.emitPrologue()

	for i := 0; i < p.Len(); i++ {
		c.instrOffsets[i] = c.asm.Offset()
		if err := c.compileInstruction(i, p.At(i)); err != nil {
			return nil, err
		}
	}

	c.patchPendingJumps()

	return c.asm.Bytes(), nil
}

// compileInstruction generates code for a single instruction.
func (c *Compiler) compileInstruction(idx int, in bytecode.Instruction) error {
	switch in.Op {
	case bytecode.OpLoad:
		c.emitLoadImm(in.Value)

	case bytecode.OpLoadVar:
		c.emitLoadVar(in.Slot)

	case bytecode.OpStore:
		c.emitStore(in.Slot)

	case bytecode.OpAdd, bytecode.OpSub, bytecode.OpMul,
		bytecode.OpAnd, bytecode.OpOr, bytecode.OpXor:
		c.emitBinop(in.Op)

	case bytecode.OpDiv:
		c.emitDiv()

	case bytecode.OpMod:
		c.emitMod()

	case bytecode.OpNeg, bytecode.OpNot:
		c.emitUnary(in.Op)

	case bytecode.OpEq, bytecode.OpNe, bytecode.OpLt,
		bytecode.OpLte, bytecode.OpGt, bytecode.OpGte:
		c.emitCompare(in.Op)

	case bytecode.OpShl, bytecode.OpShr:
		c.emitShift(in.Op)

	case bytecode.OpDup:
		c.emitDup()

	case bytecode.OpSwap:
		c.emitSwap()

	case bytecode.OpPop:
		c.emitDiscard()

	case bytecode.OpLabel:
		// Marker only: the byte offset recorded for this position is the
		// jump target. No bytes are emitted.

	case bytecode.OpJmp:
		c.emitJmp(in.Label)

	case bytecode.OpJmpIf:
		c.emitJmpCond(in.Label, true)

	case bytecode.OpJmpIfNot:
		c.emitJmpCond(in.Label, false)

	case bytecode.OpRet:
		c.emitRet()

	default:
		return errors.CompileErrorf(errors.KindUnsupportedInstruction,
			"no native lowering for instruction %d: %s", idx, in)
	}

	return nil
}

// patchPendingJumps resolves every deferred displacement against the final
// label byte offsets. A Label emits no bytes, so the offset recorded at its
// instruction index is exactly the first byte of the instruction that
// follows it. The list must be fully drained before the buffer becomes
// non-writable.
func (c *Compiler) patchPendingJumps() {
	for _, pj := range c.pending {
		targetOffset := c.instrOffsets[c.labels[pj.target]]
		rel := int32(targetOffset - (pj.dispOffset + 4))
		c.asm.PatchInt32(pj.dispOffset, rel)
	}
	c.pending = nil
}

// Helper to patch near jumps (6-byte jcc) emitted for intra-lowering guards
func (c *Compiler) patchJumpNear(jumpOffset int) {
	rel := int32(c.asm.Offset() - jumpOffset - 6)
	c.asm.PatchInt32(jumpOffset+2, rel)
}

// Helper to patch 5-byte jmp rel32 emitted for intra-lowering guards
func (c *Compiler) patchJump32(jumpOffset int) {
	rel := int32(c.asm.Offset() - jumpOffset - 5)
	c.asm.PatchInt32(jumpOffset+1, rel)
}
