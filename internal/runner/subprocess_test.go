package runner

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestNewSubprocess_EmptyArgv(t *testing.T) {
	if _, err := NewSubprocess(nil); err == nil {
		t.Fatal("expected error for empty interpreter command")
	}
}

func TestSubprocess_CapturesStdout(t *testing.T) {
	r, err := NewSubprocess([]string{"/bin/sh"})
	if err != nil {
		t.Fatalf("NewSubprocess failed: %v", err)
	}

	stdout, err := r.Run(context.Background(), "echo hello\necho world\n")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if stdout != "hello\nworld\n" {
		t.Errorf("unexpected stdout: %q", stdout)
	}
}

func TestSubprocess_ScriptFailure(t *testing.T) {
	r, err := NewSubprocess([]string{"/bin/sh"})
	if err != nil {
		t.Fatalf("NewSubprocess failed: %v", err)
	}

	_, err = r.Run(context.Background(), "echo something went wrong >&2\nexit 3\n")
	var scriptErr *ScriptError
	if !errors.As(err, &scriptErr) {
		t.Fatalf("expected *ScriptError, got %v", err)
	}
	if !strings.Contains(scriptErr.Message, "something went wrong") {
		t.Errorf("message does not carry stderr text: %q", scriptErr.Message)
	}
	if !strings.Contains(scriptErr.Traceback, "something went wrong") {
		t.Errorf("traceback does not carry stderr text: %q", scriptErr.Traceback)
	}
}

func TestSubprocess_CanceledContext(t *testing.T) {
	r, err := NewSubprocess([]string{"/bin/sh"})
	if err != nil {
		t.Fatalf("NewSubprocess failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = r.Run(ctx, "echo hello\n")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestSubprocess_MissingInterpreter(t *testing.T) {
	r, err := NewSubprocess([]string{"/nonexistent/interpreter"})
	if err != nil {
		t.Fatalf("NewSubprocess failed: %v", err)
	}

	_, err = r.Run(context.Background(), "anything")
	if err == nil {
		t.Fatal("expected error for missing interpreter")
	}
	var scriptErr *ScriptError
	if errors.As(err, &scriptErr) {
		t.Error("a missing interpreter is not a script failure")
	}
}
