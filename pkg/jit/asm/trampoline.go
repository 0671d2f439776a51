//go:build linux && amd64

// Package asm provides the assembly trampoline used to enter generated
// code. It is a separate package so the jit package itself stays pure Go.
package asm

// Call transfers control to generated code at entry.
// entry: address of the finalized code
// slots: variable slots base pointer (passed in RDI per System V ABI)
// stack: top of the operand stack the generated code runs on; RSP is
// switched to it for the duration of the call, so operand pushes never
// touch the goroutine stack
// Returns: the integer the generated code left in RAX
func Call(entry, slots, stack uintptr) int64
