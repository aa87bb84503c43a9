// Package sysio provides the underlying I/O primitives the dedup shim
// builds on, behind an interface so tests can inject faults.
//
// The main types are:
//   - [SysIO]: interface over the raw descriptor-level system calls
//   - [Real]: production implementation dispatching to [golang.org/x/sys/unix]
//   - [Injected]: testing implementation that fails selected operations
//
// All shim-internal I/O goes through a SysIO value, never through the shim's
// own public entry points, so the shim cannot re-enter itself.
package sysio

// SysIO is the contract for the resolved underlying I/O primitives.
//
// Every method has the semantics of the like-named system call. Byte counts
// are non-negative on success; failures carry the errno as the error value.
type SysIO interface {
	// Write writes len(p) bytes at the descriptor's current position.
	Write(fd int, p []byte) (int, error)

	// Pwrite writes len(p) bytes at offset without moving the position.
	Pwrite(fd int, p []byte, offset int64) (int, error)

	// Read reads up to len(p) bytes from the current position.
	Read(fd int, p []byte) (int, error)

	// Pread reads up to len(p) bytes from offset without moving the position.
	Pread(fd int, p []byte, offset int64) (int, error)

	// Seek repositions the descriptor and returns the resulting offset.
	Seek(fd int, offset int64, whence int) (int64, error)

	// Getfl returns the descriptor's open-file status flags (F_GETFL).
	Getfl(fd int) (int, error)

	// Open opens path and returns a raw descriptor.
	Open(path string, mode int, perm uint32) (int, error)

	// Close closes a raw descriptor.
	Close(fd int) error

	// Readlink reads the target of the symlink at path into buf and
	// returns the number of bytes placed there.
	Readlink(path string, buf []byte) (int, error)

	// CopyFileRange transfers up to length bytes between two descriptors
	// in kernel space, advancing *roff and *woff by the amount
	// transferred. On CoW filesystems the transferred range shares
	// extents with the source.
	CopyFileRange(rfd int, roff *int64, wfd int, woff *int64, length int) (int, error)
}
