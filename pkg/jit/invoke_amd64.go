//go:build linux && amd64

package jit

import (
	"stackjit/pkg/jit/asm"
)

// callCode transfers control to generated code with the System V AMD64 ABI:
// slots base pointer in RDI, integer result back in RAX, RSP switched to
// stack for the duration of the call. The call blocks until the generated
// code reaches its Ret.
func callCode(entry, slots, stack uintptr) int64 {
	return asm.Call(entry, slots, stack)
}
