//go:build !linux || !amd64

// Package jit provides stubs for unsupported platforms.
// The native backend is only available on linux/amd64.
package jit

import (
	"stackjit/pkg/bytecode"
	"stackjit/pkg/errors"
)

// CompiledProgram is a stub for unsupported platforms
type CompiledProgram struct{}

// Compile always fails off linux/amd64: there is no native lowering for
// any instruction on other targets.
func Compile(p *bytecode.Program) (*CompiledProgram, error) {
	return nil, errors.CompileErrorf(errors.KindUnsupportedInstruction,
		"native backend requires linux/amd64")
}

func (cp *CompiledProgram) Run() int64     { return 0 }
func (cp *CompiledProgram) SlotCount() int { return 0 }
func (cp *CompiledProgram) CodeSize() int  { return 0 }
func (cp *CompiledProgram) Code() []byte   { return nil }
func (cp *CompiledProgram) Close() error   { return nil }
