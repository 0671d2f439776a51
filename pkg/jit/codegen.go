//go:build linux && amd64

package jit

import "stackjit/pkg/bytecode"

// Code generation for each bytecode instruction. Binary operations pop the
// second operand into RCX and the first into RAX, so non-commutative ops
// compute first-op-pushed <op> second-op-pushed.

// emitPrologue sets up the frame. RSP is restored from RBP at Ret, so the
// operand stack never has to be empty when the program terminates.
func (c *Compiler) emitPrologue() {
	c.asm.Push(RBP)
	c.asm.MovRegReg(RBP, RSP)
}

// emitLoadImm: push an immediate constant
func (c *Compiler) emitLoadImm(v int64) {
	c.asm.MovRegImm64(ScratchReg1, uint64(v))
	c.asm.Push(ScratchReg1)
}

// emitLoadVar: push a variable slot
func (c *Compiler) emitLoadVar(slot int) {
	c.asm.MovRegMem64(ScratchReg1, SlotsReg, int32(slot*slotWidth))
	c.asm.Push(ScratchReg1)
}

// emitStore: pop into a variable slot
func (c *Compiler) emitStore(slot int) {
	c.asm.Pop(ScratchReg1)
	c.asm.MovMemReg64(SlotsReg, int32(slot*slotWidth), ScratchReg1)
}

// emitBinop: pop two, apply, push result
func (c *Compiler) emitBinop(op bytecode.Op) {
	c.asm.Pop(ScratchReg2)
	c.asm.Pop(ScratchReg1)
	switch op {
	case bytecode.OpAdd:
		c.asm.AddRegReg(ScratchReg1, ScratchReg2)
	case bytecode.OpSub:
		c.asm.SubRegReg(ScratchReg1, ScratchReg2)
	case bytecode.OpMul:
		c.asm.IMulRegReg(ScratchReg1, ScratchReg2)
	case bytecode.OpAnd:
		c.asm.AndRegReg(ScratchReg1, ScratchReg2)
	case bytecode.OpOr:
		c.asm.OrRegReg(ScratchReg1, ScratchReg2)
	case bytecode.OpXor:
		c.asm.XorRegReg(ScratchReg1, ScratchReg2)
	}
	c.asm.Push(ScratchReg1)
}

// emitUnary: pop one, apply, push result
func (c *Compiler) emitUnary(op bytecode.Op) {
	c.asm.Pop(ScratchReg1)
	if op == bytecode.OpNeg {
		c.asm.NegReg(ScratchReg1)
	} else {
		c.asm.NotReg(ScratchReg1)
	}
	c.asm.Push(ScratchReg1)
}

// emitDiv: signed division with defined edge behavior. Division by zero
// yields -1 (all ones) and MinInt64/-1 yields MinInt64, so generated code
// can never raise #DE. Same guards as 64-bit signed division in the
// interpreter this backend replaces.
func (c *Compiler) emitDiv() {
	c.asm.Pop(ScratchReg2) // divisor
	c.asm.Pop(ScratchReg1) // dividend

	c.asm.TestRegReg(ScratchReg2, ScratchReg2)
	zeroJump := c.asm.Offset()
	c.asm.JneNear(0)
	c.asm.MovRegImm64(ScratchReg1, 0xFFFFFFFFFFFFFFFF)
	doneJump := c.asm.Offset()
	c.asm.JmpRel32(0)
	c.patchJumpNear(zeroJump)

	c.asm.MovRegImm64(ScratchReg3, 0x8000000000000000)
	c.asm.CmpRegReg(ScratchReg1, ScratchReg3)
	oc1 := c.asm.Offset()
	c.asm.JneNear(0)
	c.asm.CmpRegImm32(ScratchReg2, -1)
	oc2 := c.asm.Offset()
	c.asm.JneNear(0)
	// MinInt64 / -1: quotient is the dividend, already in RAX
	overflowJump := c.asm.Offset()
	c.asm.JmpRel32(0)
	c.patchJumpNear(oc1)
	c.patchJumpNear(oc2)

	c.asm.Cqo()
	c.asm.IDiv(ScratchReg2)

	c.patchJump32(doneJump)
	c.patchJump32(overflowJump)
	c.asm.Push(ScratchReg1)
}

// emitMod: signed remainder with the same guards as emitDiv. Remainder by
// zero and the MinInt64/-1 edge both yield 0.
func (c *Compiler) emitMod() {
	c.asm.Pop(ScratchReg2) // divisor
	c.asm.Pop(ScratchReg1) // dividend

	c.asm.TestRegReg(ScratchReg2, ScratchReg2)
	zeroJump := c.asm.Offset()
	c.asm.JneNear(0)
	c.asm.XorRegReg(ScratchReg1, ScratchReg1)
	doneJump := c.asm.Offset()
	c.asm.JmpRel32(0)
	c.patchJumpNear(zeroJump)

	c.asm.MovRegImm64(ScratchReg3, 0x8000000000000000)
	c.asm.CmpRegReg(ScratchReg1, ScratchReg3)
	oc1 := c.asm.Offset()
	c.asm.JneNear(0)
	c.asm.CmpRegImm32(ScratchReg2, -1)
	oc2 := c.asm.Offset()
	c.asm.JneNear(0)
	c.asm.XorRegReg(ScratchReg1, ScratchReg1)
	overflowJump := c.asm.Offset()
	c.asm.JmpRel32(0)
	c.patchJumpNear(oc1)
	c.patchJumpNear(oc2)

	c.asm.Cqo()
	c.asm.IDiv(ScratchReg2)
	c.asm.MovRegReg(ScratchReg1, ScratchReg3) // remainder lands in RDX

	c.patchJump32(doneJump)
	c.patchJump32(overflowJump)
	c.asm.Push(ScratchReg1)
}

// emitCompare: pop two, push 1 or 0
func (c *Compiler) emitCompare(op bytecode.Op) {
	c.asm.Pop(ScratchReg2)
	c.asm.Pop(ScratchReg1)
	c.asm.XorRegReg(ScratchReg3, ScratchReg3) // zero before compare (xor clobbers flags)
	c.asm.CmpRegReg(ScratchReg1, ScratchReg2)
	switch op {
	case bytecode.OpEq:
		c.asm.Sete(ScratchReg3)
	case bytecode.OpNe:
		c.asm.Setne(ScratchReg3)
	case bytecode.OpLt:
		c.asm.Setl(ScratchReg3)
	case bytecode.OpLte:
		c.asm.Setle(ScratchReg3)
	case bytecode.OpGt:
		c.asm.Setg(ScratchReg3)
	case bytecode.OpGte:
		c.asm.Setge(ScratchReg3)
	}
	c.asm.Push(ScratchReg3)
}

// emitShift: pop count into CL, pop value, shift, push
func (c *Compiler) emitShift(op bytecode.Op) {
	c.asm.Pop(ScratchReg2) // count, CL is the low byte of RCX
	c.asm.Pop(ScratchReg1)
	if op == bytecode.OpShl {
		c.asm.ShlRegCL(ScratchReg1)
	} else {
		c.asm.ShrRegCL(ScratchReg1)
	}
	c.asm.Push(ScratchReg1)
}

// emitDup: push a copy of the top of stack
func (c *Compiler) emitDup() {
	c.asm.MovRegMem64(ScratchReg1, RSP, 0)
	c.asm.Push(ScratchReg1)
}

// emitSwap: exchange the top two stack entries in place
func (c *Compiler) emitSwap() {
	c.asm.MovRegMem64(ScratchReg1, RSP, 0)
	c.asm.MovRegMem64(ScratchReg2, RSP, slotWidth)
	c.asm.MovMemReg64(RSP, 0, ScratchReg2)
	c.asm.MovMemReg64(RSP, slotWidth, ScratchReg1)
}

// emitDiscard: drop the top of stack
func (c *Compiler) emitDiscard() {
	c.asm.Pop(ScratchReg1)
}

// emitJmp: unconditional transfer, displacement deferred to the patch list
func (c *Compiler) emitJmp(target bytecode.LabelID) {
	c.asm.JmpRel32(0)
	c.pending = append(c.pending, pendingJump{dispOffset: c.asm.Offset() - 4, target: target})
}

// emitJmpCond: pop the condition and branch on it. taken=true branches on
// nonzero (JmpIf), taken=false on zero (JmpIfNot).
func (c *Compiler) emitJmpCond(target bytecode.LabelID, taken bool) {
	c.asm.Pop(ScratchReg1)
	c.asm.TestRegReg(ScratchReg1, ScratchReg1)
	if taken {
		c.asm.JneNear(0)
	} else {
		c.asm.JeNear(0)
	}
	c.pending = append(c.pending, pendingJump{dispOffset: c.asm.Offset() - 4, target: target})
}

// emitRet: pop the result into RAX and return it per the System V
// convention. Restoring RSP from RBP discards whatever operand stack
// remains below the result.
func (c *Compiler) emitRet() {
	c.asm.Pop(ScratchReg1)
	c.asm.MovRegReg(RSP, RBP)
	c.asm.Pop(RBP)
	c.asm.Ret()
}
