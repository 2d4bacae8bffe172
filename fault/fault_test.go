package fault

import (
	"strings"
	"testing"
)

func TestInvokeRunsBodyNormally(t *testing.T) {
	r := NewRecover()
	ran := false
	recoveryCalled := false

	r.Invoke(func() {
		ran = true
	}, func(stack []StackFrame) {
		recoveryCalled = true
	})

	if !ran {
		t.Fatal("expected body to run")
	}
	if recoveryCalled {
		t.Fatal("recovery should not run when body does not panic")
	}
}

func TestInvokeCatchesPanicAndCapturesStack(t *testing.T) {
	r := NewRecover()
	var captured []StackFrame

	r.Invoke(func() {
		panic("boom")
	}, func(stack []StackFrame) {
		captured = stack
	})

	if len(captured) == 0 {
		t.Fatal("expected a non-empty captured stack")
	}
	if !strings.Contains(captured[0].Function, "boom") {
		t.Fatalf("expected panic message in first frame, got %q", captured[0].Function)
	}
}

func TestInvokeCatchesRuntimePanic(t *testing.T) {
	r := NewRecover()
	recovered := false

	r.Invoke(func() {
		var m map[string]int
		m["x"] = 1
	}, func(stack []StackFrame) {
		recovered = true
	})

	if !recovered {
		t.Fatal("expected runtime panic to be recovered")
	}
}

func TestStringsRendersFrames(t *testing.T) {
	stack := []StackFrame{
		{Function: "pkg.Fn", File: "pkg/file.go", Line: 42},
	}
	lines := Strings(stack)
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	if !strings.Contains(lines[0], "pkg.Fn") || !strings.Contains(lines[0], "42") {
		t.Fatalf("unexpected rendering: %q", lines[0])
	}
}
