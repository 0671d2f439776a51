package errors

import (
	"fmt"
)

// Kind identifies the stage-specific failure that aborted a compilation.
type Kind int

const (
	KindUnknown Kind = iota
	KindDanglingLabel
	KindDuplicateLabel
	KindStackUnderflow
	KindSlotOutOfRange
	KindUnsupportedInstruction
	KindMissingRet
	KindExecMemory
)

func (k Kind) String() string {
	switch k {
	case KindDanglingLabel:
		return "dangling label"
	case KindDuplicateLabel:
		return "duplicate label"
	case KindStackUnderflow:
		return "stack underflow"
	case KindSlotOutOfRange:
		return "slot out of range"
	case KindUnsupportedInstruction:
		return "unsupported instruction"
	case KindMissingRet:
		return "missing ret"
	case KindExecMemory:
		return "executable memory"
	default:
		return "unknown"
	}
}

// CompileError is the typed failure surfaced by every stage of the
// compilation pipeline. A program that produced one is never executed.
type CompileError struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *CompileError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *CompileError) Unwrap() error {
	return e.Cause
}

// IsCompileError checks if an error is a compile error
func IsCompileError(err error) bool {
	if _, ok := err.(*CompileError); ok {
		return true
	}
	return false
}

// KindOf returns the kind of a compile error, or KindUnknown for any
// other error (including nil).
func KindOf(err error) Kind {
	if ce, ok := err.(*CompileError); ok {
		return ce.Kind
	}
	return KindUnknown
}

// WrapCompileError wraps an existing error as a compile error
func WrapCompileError(err error, kind Kind, message string) *CompileError {
	return &CompileError{
		Kind:    kind,
		Message: message,
		Cause:   err,
	}
}

// CompileErrorf creates a new compile error with formatted message
func CompileErrorf(kind Kind, format string, args ...interface{}) *CompileError {
	return &CompileError{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Cause:   nil,
	}
}
