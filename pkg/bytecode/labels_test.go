package bytecode

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"stackjit/pkg/errors"
)

func TestResolveLabels(t *testing.T) {
	p := NewProgram(
		Load(0),
		Store(0),
		Label(1),
		LoadVar(0),
		Load(10),
		Gte(),
		JmpIf(2),
		LoadVar(0),
		Load(1),
		Add(),
		Store(0),
		Jmp(1),
		Label(2),
		LoadVar(0),
		Ret(),
	)

	table, err := ResolveLabels(p)
	if err != nil {
		t.Fatalf("ResolveLabels failed: %v", err)
	}

	want := LabelTable{1: 2, 2: 12}
	if diff := cmp.Diff(want, table); diff != "" {
		t.Errorf("label table mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveLabelsNoLabels(t *testing.T) {
	p := NewProgram(Load(1), Load(2), Add(), Ret())

	table, err := ResolveLabels(p)
	if err != nil {
		t.Fatalf("ResolveLabels failed: %v", err)
	}
	if len(table) != 0 {
		t.Errorf("table has %d entries, want 0", len(table))
	}
}

func TestResolveLabelsDangling(t *testing.T) {
	p := NewProgram(
		Load(1),
		JmpIf(7), // no Label(7) anywhere
		Load(0),
		Ret(),
	)

	_, err := ResolveLabels(p)
	if err == nil {
		t.Fatal("expected error for jump to undefined label")
	}
	if kind := errors.KindOf(err); kind != errors.KindDanglingLabel {
		t.Errorf("error kind = %v, want %v", kind, errors.KindDanglingLabel)
	}
}

func TestResolveLabelsDanglingReportsFirst(t *testing.T) {
	p := NewProgram(
		Jmp(5),
		Jmp(9),
		Ret(),
	)

	_, err := ResolveLabels(p)
	if err == nil {
		t.Fatal("expected error")
	}
	ce, ok := err.(*errors.CompileError)
	if !ok {
		t.Fatalf("error type = %T, want *errors.CompileError", err)
	}
	// The first unresolved reference in program order wins.
	if got := ce.Message; got != "jump at instruction 0 references undefined label 5" {
		t.Errorf("unexpected message: %q", got)
	}
}

func TestResolveLabelsDuplicate(t *testing.T) {
	p := NewProgram(
		Label(3),
		Load(1),
		Label(3),
		Ret(),
	)

	_, err := ResolveLabels(p)
	if err == nil {
		t.Fatal("expected error for duplicate label")
	}
	if kind := errors.KindOf(err); kind != errors.KindDuplicateLabel {
		t.Errorf("error kind = %v, want %v", kind, errors.KindDuplicateLabel)
	}
}

func TestResolveLabelsMatchedJumps(t *testing.T) {
	// Forward and backward references to the same label are both fine.
	p := NewProgram(
		Label(0),
		Load(1),
		JmpIf(1),
		Jmp(0),
		Label(1),
		Load(42),
		Ret(),
	)

	table, err := ResolveLabels(p)
	if err != nil {
		t.Fatalf("ResolveLabels failed: %v", err)
	}

	want := LabelTable{0: 0, 1: 4}
	if diff := cmp.Diff(want, table); diff != "" {
		t.Errorf("label table mismatch (-want +got):\n%s", diff)
	}
}
