package jit

import (
	"encoding/binary"
)

// x86-64 register encoding
type Reg byte

const (
	RAX Reg = 0
	RCX Reg = 1
	RDX Reg = 2
	RBX Reg = 3
	RSP Reg = 4
	RBP Reg = 5
	RSI Reg = 6
	RDI Reg = 7
	R8  Reg = 8
	R9  Reg = 9
	R10 Reg = 10
	R11 Reg = 11
	R12 Reg = 12
	R13 Reg = 13
	R14 Reg = 14
	R15 Reg = 15
)

// Assembler emits x86-64 machine code into a growing byte buffer.
type Assembler struct {
	buf []byte
}

// NewAssembler creates an empty assembler.
func NewAssembler() *Assembler {
	return &Assembler{buf: make([]byte, 0, 256)}
}

// Offset returns current write position
func (a *Assembler) Offset() int {
	return len(a.buf)
}

// Bytes returns the assembled code
func (a *Assembler) Bytes() []byte {
	return a.buf
}

// emit appends bytes to the buffer
func (a *Assembler) emit(bytes ...byte) {
	a.buf = append(a.buf, bytes...)
}

// emitInt32 appends a little-endian int32
func (a *Assembler) emitInt32(v int32) {
	a.buf = binary.LittleEndian.AppendUint32(a.buf, uint32(v))
}

// emitUint64 appends a little-endian uint64
func (a *Assembler) emitUint64(v uint64) {
	a.buf = binary.LittleEndian.AppendUint64(a.buf, v)
}

// PatchInt32 overwrites a previously emitted little-endian int32 at offset.
// Used to resolve jump displacements once their targets are known.
func (a *Assembler) PatchInt32(offset int, v int32) {
	binary.LittleEndian.PutUint32(a.buf[offset:], uint32(v))
}

// rex builds REX prefix: 0100WRXB
// W=1 for 64-bit operand size
// R=1 if reg field uses R8-R15
// X=1 if SIB index uses R8-R15
// B=1 if rm field uses R8-R15
func rex(w, r, x, b bool) byte {
	var prefix byte = 0x40
	if w {
		prefix |= 0x08
	}
	if r {
		prefix |= 0x04
	}
	if x {
		prefix |= 0x02
	}
	if b {
		prefix |= 0x01
	}
	return prefix
}

// rexW returns REX.W prefix for 64-bit operations
func rexW(reg, rm Reg) byte {
	return rex(true, reg >= 8, false, rm >= 8)
}

// modRM builds ModR/M byte: [mod:2][reg:3][rm:3]
// mod should be pre-shifted: 0x00=no disp, 0x40=disp8, 0x80=disp32, 0xC0=register
func modRM(mod byte, reg, rm Reg) byte {
	return mod | ((byte(reg) & 7) << 3) | (byte(rm) & 7)
}

// emitMemOperand emits ModR/M and displacement for [base + disp] operands
func (a *Assembler) emitMemOperand(reg, base Reg, disp int32) {
	if base == RSP || base == R12 {
		// RSP/R12 base needs a SIB byte
		if disp == 0 {
			a.emit(modRM(0x00, reg, RSP), 0x24)
		} else if disp >= -128 && disp <= 127 {
			a.emit(modRM(0x40, reg, RSP), 0x24, byte(disp))
		} else {
			a.emit(modRM(0x80, reg, RSP), 0x24)
			a.emitInt32(disp)
		}
	} else if base == RBP || base == R13 {
		// RBP/R13 with mod=00 means RIP-relative, always emit a displacement
		if disp >= -128 && disp <= 127 {
			a.emit(modRM(0x40, reg, base), byte(disp))
		} else {
			a.emit(modRM(0x80, reg, base))
			a.emitInt32(disp)
		}
	} else if disp == 0 {
		a.emit(modRM(0x00, reg, base))
	} else if disp >= -128 && disp <= 127 {
		a.emit(modRM(0x40, reg, base), byte(disp))
	} else {
		a.emit(modRM(0x80, reg, base))
		a.emitInt32(disp)
	}
}

// MovRegReg: mov dst, src (64-bit)
func (a *Assembler) MovRegReg(dst, src Reg) {
	a.emit(rexW(src, dst), 0x89, modRM(0xC0, src, dst))
}

// MovRegImm64: mov reg, imm64
func (a *Assembler) MovRegImm64(reg Reg, imm uint64) {
	// REX.W + B8+rd + imm64
	a.emit(rex(true, false, false, reg >= 8), 0xB8|byte(reg&7))
	a.emitUint64(imm)
}

// MovRegMem64: mov reg, [base + disp] (64-bit load)
func (a *Assembler) MovRegMem64(reg, base Reg, disp int32) {
	a.emit(rexW(reg, base), 0x8B)
	a.emitMemOperand(reg, base, disp)
}

// MovMemReg64: mov [base + disp], reg (64-bit store)
func (a *Assembler) MovMemReg64(base Reg, disp int32, reg Reg) {
	a.emit(rexW(reg, base), 0x89)
	a.emitMemOperand(reg, base, disp)
}

// AddRegReg: add dst, src (64-bit)
func (a *Assembler) AddRegReg(dst, src Reg) {
	a.emit(rexW(src, dst), 0x01, modRM(0xC0, src, dst))
}

// SubRegReg: sub dst, src (64-bit)
func (a *Assembler) SubRegReg(dst, src Reg) {
	a.emit(rexW(src, dst), 0x29, modRM(0xC0, src, dst))
}

// IMulRegReg: imul dst, src (64-bit signed multiply)
func (a *Assembler) IMulRegReg(dst, src Reg) {
	a.emit(rexW(dst, src), 0x0F, 0xAF, modRM(0xC0, dst, src))
}

// AndRegReg: and dst, src (64-bit)
func (a *Assembler) AndRegReg(dst, src Reg) {
	a.emit(rexW(src, dst), 0x21, modRM(0xC0, src, dst))
}

// OrRegReg: or dst, src (64-bit)
func (a *Assembler) OrRegReg(dst, src Reg) {
	a.emit(rexW(src, dst), 0x09, modRM(0xC0, src, dst))
}

// XorRegReg: xor dst, src (64-bit)
func (a *Assembler) XorRegReg(dst, src Reg) {
	a.emit(rexW(src, dst), 0x31, modRM(0xC0, src, dst))
}

// NotReg: not reg (64-bit)
func (a *Assembler) NotReg(reg Reg) {
	a.emit(rexW(0, reg), 0xF7, modRM(0xC0, 2, reg))
}

// NegReg: neg reg (64-bit)
func (a *Assembler) NegReg(reg Reg) {
	a.emit(rexW(0, reg), 0xF7, modRM(0xC0, 3, reg))
}

// ShlRegCL: shl reg, cl (64-bit)
func (a *Assembler) ShlRegCL(reg Reg) {
	a.emit(rexW(0, reg), 0xD3, modRM(0xC0, 4, reg))
}

// ShrRegCL: shr reg, cl (64-bit logical)
func (a *Assembler) ShrRegCL(reg Reg) {
	a.emit(rexW(0, reg), 0xD3, modRM(0xC0, 5, reg))
}

// CmpRegReg: cmp left, right (64-bit)
func (a *Assembler) CmpRegReg(left, right Reg) {
	a.emit(rexW(right, left), 0x39, modRM(0xC0, right, left))
}

// CmpRegImm32: cmp reg, imm32 (64-bit, sign-extended)
func (a *Assembler) CmpRegImm32(reg Reg, imm int32) {
	if imm >= -128 && imm <= 127 {
		a.emit(rexW(0, reg), 0x83, modRM(0xC0, 7, reg), byte(imm))
	} else {
		a.emit(rexW(0, reg), 0x81, modRM(0xC0, 7, reg))
		a.emitInt32(imm)
	}
}

// TestRegReg: test left, right (64-bit)
func (a *Assembler) TestRegReg(left, right Reg) {
	a.emit(rexW(right, left), 0x85, modRM(0xC0, right, left))
}

// Setcc instructions (set byte based on condition)
func (a *Assembler) Sete(reg Reg) { // set if equal (ZF=1)
	if reg >= 8 || reg >= RSP {
		a.emit(rex(false, false, false, reg >= 8))
	}
	a.emit(0x0F, 0x94, modRM(0xC0, 0, reg))
}

func (a *Assembler) Setne(reg Reg) { // set if not equal (ZF=0)
	if reg >= 8 || reg >= RSP {
		a.emit(rex(false, false, false, reg >= 8))
	}
	a.emit(0x0F, 0x95, modRM(0xC0, 0, reg))
}

func (a *Assembler) Setl(reg Reg) { // set if less (SF≠OF, signed)
	if reg >= 8 || reg >= RSP {
		a.emit(rex(false, false, false, reg >= 8))
	}
	a.emit(0x0F, 0x9C, modRM(0xC0, 0, reg))
}

func (a *Assembler) Setge(reg Reg) { // set if greater or equal (SF=OF, signed)
	if reg >= 8 || reg >= RSP {
		a.emit(rex(false, false, false, reg >= 8))
	}
	a.emit(0x0F, 0x9D, modRM(0xC0, 0, reg))
}

func (a *Assembler) Setg(reg Reg) { // set if greater (ZF=0 and SF=OF, signed)
	if reg >= 8 || reg >= RSP {
		a.emit(rex(false, false, false, reg >= 8))
	}
	a.emit(0x0F, 0x9F, modRM(0xC0, 0, reg))
}

func (a *Assembler) Setle(reg Reg) { // set if less or equal (ZF=1 or SF≠OF, signed)
	if reg >= 8 || reg >= RSP {
		a.emit(rex(false, false, false, reg >= 8))
	}
	a.emit(0x0F, 0x9E, modRM(0xC0, 0, reg))
}

// Conditional jumps - near form (rel32)
func (a *Assembler) JeNear(rel32 int32) {
	a.emit(0x0F, 0x84)
	a.emitInt32(rel32)
}

func (a *Assembler) JneNear(rel32 int32) {
	a.emit(0x0F, 0x85)
	a.emitInt32(rel32)
}

// JmpRel32: jmp rel32
func (a *Assembler) JmpRel32(rel32 int32) {
	a.emit(0xE9)
	a.emitInt32(rel32)
}

// Ret: ret
func (a *Assembler) Ret() {
	a.emit(0xC3)
}

// Push: push reg
func (a *Assembler) Push(reg Reg) {
	if reg >= 8 {
		a.emit(rex(false, false, false, true))
	}
	a.emit(0x50 | byte(reg&7))
}

// Pop: pop reg
func (a *Assembler) Pop(reg Reg) {
	if reg >= 8 {
		a.emit(rex(false, false, false, true))
	}
	a.emit(0x58 | byte(reg&7))
}

// Cqo: cqo (sign-extend RAX to RDX:RAX)
func (a *Assembler) Cqo() {
	a.emit(0x48, 0x99)
}

// IDiv: idiv reg (signed divide RDX:RAX by reg)
func (a *Assembler) IDiv(reg Reg) {
	a.emit(rexW(0, reg), 0xF7, modRM(0xC0, 7, reg))
}
