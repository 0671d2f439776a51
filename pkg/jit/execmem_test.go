//go:build linux && amd64

package jit

import (
	"bytes"
	"os"
	"runtime"
	"testing"
	"unsafe"

	"stackjit/pkg/errors"
)

func TestExecMemLifecycle(t *testing.T) {
	// mov rax, 7; ret
	a := NewAssembler()
	a.MovRegImm64(RAX, 7)
	a.Ret()
	code := a.Bytes()

	region, err := AllocateWritable(len(code))
	if err != nil {
		t.Fatalf("AllocateWritable failed: %v", err)
	}

	exec, err := region.Finalize(code)
	if err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}

	if exec.Entry() == 0 {
		t.Fatal("Entry is null")
	}
	if exec.CodeSize() != len(code) {
		t.Errorf("CodeSize = %d, want %d", exec.CodeSize(), len(code))
	}
	if !bytes.Equal(exec.Code(), code) {
		t.Errorf("Code = %x, want %x", exec.Code(), code)
	}

	stack := make([]uint64, 16)
	top := uintptr(unsafe.Pointer(&stack[0])) + uintptr(len(stack))*8
	if got := callCode(exec.Entry(), 0, top); got != 7 {
		t.Errorf("executed result = %d, want 7", got)
	}
	runtime.KeepAlive(stack)

	if err := exec.Unmap(); err != nil {
		t.Fatalf("Unmap failed: %v", err)
	}
	if err := exec.Unmap(); err != nil {
		t.Errorf("second Unmap returned %v, want nil", err)
	}

	if exec.Code() != nil {
		t.Error("Code on an unmapped region is not nil")
	}
	func() {
		defer func() {
			if recover() == nil {
				t.Error("Entry on an unmapped region did not panic")
			}
		}()
		exec.Entry()
	}()
}

func TestFinalizeConsumesRegion(t *testing.T) {
	region, err := AllocateWritable(16)
	if err != nil {
		t.Fatalf("AllocateWritable failed: %v", err)
	}

	exec, err := region.Finalize([]byte{0xC3})
	if err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}
	defer exec.Unmap()

	if _, err := region.Finalize([]byte{0xC3}); err == nil {
		t.Error("second Finalize succeeded on a consumed region")
	}
	if err := region.Release(); err != nil {
		t.Errorf("Release after Finalize returned %v, want nil", err)
	}
}

func TestFinalizeRejectsOversizedCode(t *testing.T) {
	region, err := AllocateWritable(8)
	if err != nil {
		t.Fatalf("AllocateWritable failed: %v", err)
	}
	defer region.Release()

	// The region is page-rounded, so oversized means more than a page here.
	if _, err := region.Finalize(make([]byte, pageSize+1)); err == nil {
		t.Error("Finalize accepted code larger than the region")
	}
}

func TestAllocateWritableRejectsBadSize(t *testing.T) {
	for _, size := range []int{0, -1} {
		_, err := AllocateWritable(size)
		if err == nil {
			t.Errorf("AllocateWritable(%d) succeeded", size)
		}
		if kind := errors.KindOf(err); kind != errors.KindExecMemory {
			t.Errorf("AllocateWritable(%d) error kind = %v, want %v", size, kind, errors.KindExecMemory)
		}
	}
}

func TestReleaseUnfinalized(t *testing.T) {
	region, err := AllocateWritable(32)
	if err != nil {
		t.Fatalf("AllocateWritable failed: %v", err)
	}
	if err := region.Release(); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if err := region.Release(); err != nil {
		t.Errorf("second Release returned %v, want nil", err)
	}
}

func TestPageAlign(t *testing.T) {
	if pageSize != os.Getpagesize() {
		t.Fatalf("pageSize = %d, want the system's %d", pageSize, os.Getpagesize())
	}

	cases := []struct{ in, want int }{
		{1, pageSize},
		{pageSize, pageSize},
		{pageSize + 1, 2 * pageSize},
	}
	for _, tc := range cases {
		if got := pageAlign(tc.in); got != tc.want {
			t.Errorf("pageAlign(%d) = %d, want %d", tc.in, got, tc.want)
		}
	}
}
