package sysio

import (
	"errors"
	"os"
	"path/filepath"
	"syscall"
	"testing"
)

func TestInjectedFailAndClear(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "f")

	f, err := os.Create(path) //nolint:gosec // test-controlled path
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	t.Cleanup(func() { _ = f.Close() })

	injected := NewInjected(NewReal())
	injected.Fail(OpWrite, syscall.EIO)

	_, werr := injected.Write(int(f.Fd()), []byte("x"))
	if !errors.Is(werr, syscall.EIO) {
		t.Fatalf("expected injected EIO, got %v", werr)
	}

	if !IsInjected(werr) {
		t.Fatal("expected the failure to be marked as injected")
	}

	injected.Clear(OpWrite)

	if _, err := injected.Write(int(f.Fd()), []byte("x")); err != nil {
		t.Fatalf("expected passthrough after Clear, got %v", err)
	}

	if got := injected.Calls(OpWrite); got != 2 {
		t.Fatalf("expected 2 recorded calls, got %d", got)
	}
}

func TestInjectedFailAt(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "f")

	f, err := os.Create(path) //nolint:gosec // test-controlled path
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	t.Cleanup(func() { _ = f.Close() })

	injected := NewInjected(NewReal())
	injected.FailAt(OpWrite, 2, syscall.ENOSPC)

	fd := int(f.Fd())

	if _, err := injected.Write(fd, []byte("a")); err != nil {
		t.Fatalf("call 1 should pass through, got %v", err)
	}

	if _, err := injected.Write(fd, []byte("b")); !errors.Is(err, syscall.ENOSPC) {
		t.Fatalf("call 2 should fail with ENOSPC, got %v", err)
	}

	if _, err := injected.Write(fd, []byte("c")); err != nil {
		t.Fatalf("call 3 should pass through, got %v", err)
	}
}

func TestIsInjectedOnRealError(t *testing.T) {
	t.Parallel()

	r := NewReal()

	_, err := r.Write(-1, []byte("x"))
	if err == nil {
		t.Fatal("expected failure on invalid descriptor")
	}

	if IsInjected(err) {
		t.Fatal("real errors must not be reported as injected")
	}
}
