//go:build linux && amd64

package jit

import (
	"runtime"
	"unsafe"

	"stackjit/pkg/bytecode"
)

// CompiledProgram is a finalized, invocable program. It owns its executable
// region; nothing is shared with other compilations.
type CompiledProgram struct {
	region     *ExecutableRegion
	slotCount  int
	stackWords int
}

// stackSlack covers the call return address, the saved frame pointer, and
// a little headroom beyond the verified peak operand depth.
const stackSlack = 16

// Compile runs the whole pipeline on a program: label resolution,
// verification, code generation with jump patching, and the
// writable-to-executable memory transition. Any stage failure is returned
// as a *errors.CompileError and nothing partially built is ever finalized.
func Compile(p *bytecode.Program) (*CompiledProgram, error) {
	labels, err := bytecode.ResolveLabels(p)
	if err != nil {
		return nil, err
	}

	slotCount, maxDepth, err := bytecode.Verify(p, labels)
	if err != nil {
		return nil, err
	}

	code, err := NewCompiler().Compile(p, labels)
	if err != nil {
		return nil, err
	}

	region, err := AllocateWritable(len(code))
	if err != nil {
		return nil, err
	}

	exec, err := region.Finalize(code)
	if err != nil {
		region.Release()
		return nil, err
	}

	return &CompiledProgram{
		region:     exec,
		slotCount:  slotCount,
		stackWords: maxDepth + stackSlack,
	}, nil
}

// Run invokes the generated code and returns the integer it left in the
// return register. Each invocation gets its own zeroed variable slots and
// its own operand stack sized for the program's verified peak depth, so
// successive runs are independent and operand pushes can never spill past
// their allocation. The call is synchronous: control only comes back when
// the generated code reaches its Ret.
func (cp *CompiledProgram) Run() int64 {
	var base uintptr
	var slots []int64
	if cp.slotCount > 0 {
		slots = make([]int64, cp.slotCount)
		base = uintptr(unsafe.Pointer(&slots[0]))
	}

	// The stack grows down from its high end.
	stack := make([]uint64, cp.stackWords)
	top := uintptr(unsafe.Pointer(&stack[0])) + uintptr(len(stack))*8

	result := callCode(cp.region.Entry(), base, top)
	runtime.KeepAlive(slots)
	runtime.KeepAlive(stack)
	return result
}

// SlotCount returns the number of variable slots the program uses.
func (cp *CompiledProgram) SlotCount() int {
	return cp.slotCount
}

// CodeSize returns the size of the generated machine code in bytes.
func (cp *CompiledProgram) CodeSize() int {
	return cp.region.CodeSize()
}

// Code returns a copy of the generated machine code, for inspection, or
// nil once the program is closed.
func (cp *CompiledProgram) Code() []byte {
	return cp.region.Code()
}

// Close releases the executable region. Running a closed program panics;
// Code on a closed program returns nil. Closing twice is a no-op.
func (cp *CompiledProgram) Close() error {
	return cp.region.Unmap()
}
