//go:build linux && amd64

package jit

import (
	"unsafe"

	"golang.org/x/sys/unix"

	"stackjit/pkg/errors"
)

var pageSize = unix.Getpagesize()

// pageAlign rounds n up to a whole number of pages.
func pageAlign(n int) int {
	return (n + pageSize - 1) &^ (pageSize - 1)
}

// WritableRegion is mmap'd memory in its emission phase: readable and
// writable, never executable. Finalize is the only way out of this state.
type WritableRegion struct {
	buffer []byte
}

// ExecutableRegion is finalized code memory: readable and executable, no
// longer writable. The type exposes no write path; the only remaining
// operation besides entry lookup is Unmap.
type ExecutableRegion struct {
	buffer   []byte
	codeSize int
}

// AllocateWritable reserves a page-aligned region of at least size bytes
// with read/write permission.
func AllocateWritable(size int) (*WritableRegion, error) {
	if size <= 0 {
		return nil, errors.CompileErrorf(errors.KindExecMemory, "invalid region size %d", size)
	}

	buffer, err := unix.Mmap(
		-1, 0,
		pageAlign(size),
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_PRIVATE|unix.MAP_ANONYMOUS,
	)
	if err != nil {
		return nil, errors.WrapCompileError(err, errors.KindExecMemory, "mmap failed")
	}

	return &WritableRegion{buffer: buffer}, nil
}

// Finalize copies the generated code into the region and flips its
// protection to read/execute. The writable region is consumed: its buffer
// is detached, so no write to the code is representable afterwards. Every
// jump displacement must be patched before this point.
func (w *WritableRegion) Finalize(code []byte) (*ExecutableRegion, error) {
	if w.buffer == nil {
		return nil, errors.CompileErrorf(errors.KindExecMemory, "region already finalized or released")
	}
	if len(code) > len(w.buffer) {
		return nil, errors.CompileErrorf(errors.KindExecMemory,
			"code size %d exceeds region size %d", len(code), len(w.buffer))
	}

	copy(w.buffer, code)

	if err := unix.Mprotect(w.buffer, unix.PROT_READ|unix.PROT_EXEC); err != nil {
		return nil, errors.WrapCompileError(err, errors.KindExecMemory, "mprotect failed")
	}

	region := &ExecutableRegion{buffer: w.buffer, codeSize: len(code)}
	w.buffer = nil
	return region, nil
}

// Release unmaps a region that never got finalized. Used on error paths.
func (w *WritableRegion) Release() error {
	if w.buffer == nil {
		return nil
	}
	err := unix.Munmap(w.buffer)
	w.buffer = nil
	return err
}

// Entry returns the address of the first code byte. Asking an unmapped
// region for an entry point is a programming error.
func (r *ExecutableRegion) Entry() uintptr {
	if r.buffer == nil {
		panic("jit: Entry on unmapped executable region")
	}
	return uintptr(unsafe.Pointer(&r.buffer[0]))
}

// CodeSize returns the number of code bytes in the region.
func (r *ExecutableRegion) CodeSize() int {
	return r.codeSize
}

// Code returns a copy of the finalized machine code, for inspection, or
// nil once the region has been unmapped.
func (r *ExecutableRegion) Code() []byte {
	if r.buffer == nil {
		return nil
	}
	out := make([]byte, r.codeSize)
	copy(out, r.buffer[:r.codeSize])
	return out
}

// Unmap releases the region. Safe to call more than once; the munmap
// happens exactly once. Must not be called while a call into the region is
// in flight.
func (r *ExecutableRegion) Unmap() error {
	if r.buffer == nil {
		return nil
	}
	err := unix.Munmap(r.buffer)
	r.buffer = nil
	return err
}
