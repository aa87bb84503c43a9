package dedup

import (
	"errors"
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"writededuper/internal/sysio"
	"writededuper/internal/wddlog"
	"writededuper/pkg/dedup/index"
)

// newFaultShim returns a shim whose system calls pass through to the
// real ones until a failure is injected.
func newFaultShim(t *testing.T) (*Shim, *sysio.Injected, *index.Memory) {
	t.Helper()

	mem := index.NewMemory()
	injected := sysio.NewInjected(sysio.NewReal())
	s := newShim(Options{Index: mem, Logger: wddlog.NewNop()}, injected)

	t.Cleanup(func() { _ = s.Close() })

	return s, injected, mem
}

func TestReadlinkFailureFallsBackWholeCall(t *testing.T) {
	t.Parallel()

	s, injected, mem := newFaultShim(t)

	path := filepath.Join(t.TempDir(), "a")
	fd := openFile(t, path, os.O_RDWR|os.O_CREATE)

	injected.Fail(sysio.OpReadlink, syscall.EACCES)

	// The whole call passes through, tail included.
	payload := make([]byte, BlockSize+100)
	for i := range payload {
		payload[i] = byte(i)
	}

	n, err := s.Write(fd, payload)
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	if n != len(payload) {
		t.Fatalf("expected full passthrough of %d bytes, got %d", len(payload), n)
	}

	mustContent(t, path, payload)

	if mem.Len() != 0 {
		t.Fatalf("expected nothing indexed, got %d entries", mem.Len())
	}
}

func TestCloneFailureDegradesToLiteralWrite(t *testing.T) {
	t.Parallel()

	s, injected, _ := newFaultShim(t)

	dir := t.TempDir()
	block := filledBlock(0x55)

	fdA := openFile(t, filepath.Join(dir, "a"), os.O_RDWR|os.O_CREATE)
	if _, err := s.Write(fdA, block); err != nil {
		t.Fatalf("seeding Write failed: %v", err)
	}

	injected.Fail(sysio.OpCopyFileRange, syscall.EXDEV)

	pathB := filepath.Join(dir, "b")
	fdB := openFile(t, pathB, os.O_RDWR|os.O_CREATE)

	n, err := s.Write(fdB, block)
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	if n != BlockSize {
		t.Fatalf("expected %d bytes written, got %d", BlockSize, n)
	}

	mustContent(t, pathB, block)

	stats := s.Stats()

	if stats.ClonedBlocks != 0 {
		t.Fatalf("expected no cloned blocks, got %d", stats.ClonedBlocks)
	}

	if stats.HitBlocks != 1 {
		t.Fatalf("expected 1 hit block, got %d", stats.HitBlocks)
	}
}

func TestWorkingFdOpenFailureDegradesToLiteralWrite(t *testing.T) {
	t.Parallel()

	s, injected, _ := newFaultShim(t)

	dir := t.TempDir()
	block := filledBlock(0x66)

	fdA := openFile(t, filepath.Join(dir, "a"), os.O_RDWR|os.O_CREATE)
	if _, err := s.Write(fdA, block); err != nil {
		t.Fatalf("seeding Write failed: %v", err)
	}

	injected.Fail(sysio.OpOpen, syscall.EMFILE)

	pathB := filepath.Join(dir, "b")
	fdB := openFile(t, pathB, os.O_RDWR|os.O_CREATE)

	n, err := s.Write(fdB, block)
	if err != nil || n != BlockSize {
		t.Fatalf("Write: n=%d err=%v", n, err)
	}

	mustContent(t, pathB, block)

	if got := s.Stats().ClonedBlocks; got != 0 {
		t.Fatalf("expected no cloned blocks, got %d", got)
	}
}

func TestVerifyReadFailureDegradesToLiteralWrite(t *testing.T) {
	t.Parallel()

	s, injected, _ := newFaultShim(t)

	dir := t.TempDir()
	block := filledBlock(0x77)

	fdA := openFile(t, filepath.Join(dir, "a"), os.O_RDWR|os.O_CREATE)
	if _, err := s.Write(fdA, block); err != nil {
		t.Fatalf("seeding Write failed: %v", err)
	}

	injected.Fail(sysio.OpPread, syscall.EIO)

	pathB := filepath.Join(dir, "b")
	fdB := openFile(t, pathB, os.O_RDWR|os.O_CREATE)

	n, err := s.Write(fdB, block)
	if err != nil || n != BlockSize {
		t.Fatalf("Write: n=%d err=%v", n, err)
	}

	mustContent(t, pathB, block)

	stats := s.Stats()

	if stats.ClonedBlocks != 0 {
		t.Fatalf("expected no cloned blocks, got %d", stats.ClonedBlocks)
	}

	if stats.VerifyRejects != 1 {
		t.Fatalf("expected 1 verify reject, got %d", stats.VerifyRejects)
	}
}

func TestMissBranchWriteFailureReturnsError(t *testing.T) {
	t.Parallel()

	s, injected, _ := newFaultShim(t)

	path := filepath.Join(t.TempDir(), "a")
	fd := openFile(t, path, os.O_RDWR|os.O_CREATE)

	injected.Fail(sysio.OpWrite, syscall.ENOSPC)

	n, err := s.Write(fd, filledBlock(0x88))
	if err == nil {
		t.Fatal("expected the underlying write failure to propagate")
	}

	if !errors.Is(err, syscall.ENOSPC) {
		t.Fatalf("expected ENOSPC, got %v", err)
	}

	if n != -1 {
		t.Fatalf("expected -1, got %d", n)
	}
}

func TestPostClonePositionUpdateFailureReturnsError(t *testing.T) {
	t.Parallel()

	s, injected, _ := newFaultShim(t)

	dir := t.TempDir()
	block := filledBlock(0x99)

	fdA := openFile(t, filepath.Join(dir, "a"), os.O_RDWR|os.O_CREATE)
	if _, err := s.Write(fdA, block); err != nil {
		t.Fatalf("seeding Write failed: %v", err)
	}

	fdB := openFile(t, filepath.Join(dir, "b"), os.O_RDWR|os.O_CREATE)

	// Seek #1 is the classification query; #2 is the post-clone
	// position update.
	injected.FailAt(sysio.OpSeek, 3, syscall.EIO)

	// The seeding write already consumed one Seek call.
	n, err := s.Write(fdB, block)
	if err == nil {
		t.Fatal("expected the position-update failure to propagate")
	}

	if n != -1 {
		t.Fatalf("expected -1, got %d", n)
	}
}

func TestSeekFailureFallsBackWholeCall(t *testing.T) {
	t.Parallel()

	s, injected, mem := newFaultShim(t)

	path := filepath.Join(t.TempDir(), "a")
	fd := openFile(t, path, os.O_RDWR|os.O_CREATE)

	injected.Fail(sysio.OpSeek, syscall.ESPIPE)

	block := filledBlock(0xAB)

	n, err := s.Write(fd, block)
	if err != nil || n != BlockSize {
		t.Fatalf("Write: n=%d err=%v", n, err)
	}

	mustContent(t, path, block)

	if mem.Len() != 0 {
		t.Fatalf("expected nothing indexed, got %d entries", mem.Len())
	}
}
