package bytecode

import "fmt"

// Op identifies a bytecode instruction. The set is closed: both the label
// resolver and the code generator switch over it exhaustively, so adding an
// opcode forces every consumer to handle it.
type Op uint8

const (
	OpLoad Op = iota // push immediate
	OpLoadVar        // push variable slot
	OpStore          // pop into variable slot
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpNeg
	OpEq
	OpNe
	OpLt
	OpLte
	OpGt
	OpGte
	OpShl
	OpShr
	OpAnd
	OpOr
	OpXor
	OpNot
	OpDup
	OpSwap
	OpPop
	OpLabel // jump target marker, no runtime effect
	OpJmp
	OpJmpIf    // pop condition, jump if nonzero
	OpJmpIfNot // pop condition, jump if zero
	OpRet      // pop result, terminate
)

func (op Op) String() string {
	switch op {
	case OpLoad:
		return "load"
	case OpLoadVar:
		return "loadvar"
	case OpStore:
		return "store"
	case OpAdd:
		return "add"
	case OpSub:
		return "sub"
	case OpMul:
		return "mul"
	case OpDiv:
		return "div"
	case OpMod:
		return "mod"
	case OpNeg:
		return "neg"
	case OpEq:
		return "eq"
	case OpNe:
		return "ne"
	case OpLt:
		return "lt"
	case OpLte:
		return "lte"
	case OpGt:
		return "gt"
	case OpGte:
		return "gte"
	case OpShl:
		return "shl"
	case OpShr:
		return "shr"
	case OpAnd:
		return "and"
	case OpOr:
		return "or"
	case OpXor:
		return "xor"
	case OpNot:
		return "not"
	case OpDup:
		return "dup"
	case OpSwap:
		return "swap"
	case OpPop:
		return "pop"
	case OpLabel:
		return "label"
	case OpJmp:
		return "jmp"
	case OpJmpIf:
		return "jmpif"
	case OpJmpIfNot:
		return "jmpifnot"
	case OpRet:
		return "ret"
	default:
		return fmt.Sprintf("op(%d)", uint8(op))
	}
}

// LabelID names a jump target within a single program. Ids are small
// integers chosen by the program's author; each must be defined by exactly
// one Label instruction.
type LabelID int

// Instruction is one unit of a program: an opcode plus the operand fields
// that opcode uses. Fields not used by the opcode are zero.
type Instruction struct {
	Op    Op
	Value int64   // OpLoad immediate
	Slot  int     // OpLoadVar / OpStore
	Label LabelID // OpLabel / OpJmp / OpJmpIf / OpJmpIfNot
}

func (in Instruction) String() string {
	switch in.Op {
	case OpLoad:
		return fmt.Sprintf("load %d", in.Value)
	case OpLoadVar:
		return fmt.Sprintf("loadvar %d", in.Slot)
	case OpStore:
		return fmt.Sprintf("store %d", in.Slot)
	case OpLabel, OpJmp, OpJmpIf, OpJmpIfNot:
		return fmt.Sprintf("%s %d", in.Op, in.Label)
	default:
		return in.Op.String()
	}
}

// Constructor helpers so program literals read like listings.

func Load(v int64) Instruction  { return Instruction{Op: OpLoad, Value: v} }
func LoadVar(s int) Instruction { return Instruction{Op: OpLoadVar, Slot: s} }
func Store(s int) Instruction   { return Instruction{Op: OpStore, Slot: s} }
func Add() Instruction          { return Instruction{Op: OpAdd} }
func Sub() Instruction          { return Instruction{Op: OpSub} }
func Mul() Instruction          { return Instruction{Op: OpMul} }
func Div() Instruction          { return Instruction{Op: OpDiv} }
func Mod() Instruction          { return Instruction{Op: OpMod} }
func Neg() Instruction          { return Instruction{Op: OpNeg} }
func Eq() Instruction           { return Instruction{Op: OpEq} }
func Ne() Instruction           { return Instruction{Op: OpNe} }
func Lt() Instruction           { return Instruction{Op: OpLt} }
func Lte() Instruction          { return Instruction{Op: OpLte} }
func Gt() Instruction           { return Instruction{Op: OpGt} }
func Gte() Instruction          { return Instruction{Op: OpGte} }
func Shl() Instruction          { return Instruction{Op: OpShl} }
func Shr() Instruction          { return Instruction{Op: OpShr} }
func And() Instruction          { return Instruction{Op: OpAnd} }
func Or() Instruction           { return Instruction{Op: OpOr} }
func Xor() Instruction          { return Instruction{Op: OpXor} }
func Not() Instruction          { return Instruction{Op: OpNot} }
func Dup() Instruction          { return Instruction{Op: OpDup} }
func Swap() Instruction         { return Instruction{Op: OpSwap} }
func Pop() Instruction          { return Instruction{Op: OpPop} }
func Ret() Instruction          { return Instruction{Op: OpRet} }

func Label(id LabelID) Instruction    { return Instruction{Op: OpLabel, Label: id} }
func Jmp(id LabelID) Instruction      { return Instruction{Op: OpJmp, Label: id} }
func JmpIf(id LabelID) Instruction    { return Instruction{Op: OpJmpIf, Label: id} }
func JmpIfNot(id LabelID) Instruction { return Instruction{Op: OpJmpIfNot, Label: id} }
