package sysio

import (
	"golang.org/x/sys/unix"
)

// Real implements [SysIO] using the real system calls.
//
// All methods are pure passthroughs to [golang.org/x/sys/unix] with
// identical behavior and error semantics.
type Real struct{}

// NewReal returns a new [Real].
func NewReal() *Real {
	return &Real{}
}

// A passthrough wrapper for [unix.Write].
func (r *Real) Write(fd int, p []byte) (int, error) {
	return unix.Write(fd, p)
}

// A passthrough wrapper for [unix.Pwrite].
func (r *Real) Pwrite(fd int, p []byte, offset int64) (int, error) {
	return unix.Pwrite(fd, p, offset)
}

// A passthrough wrapper for [unix.Read].
func (r *Real) Read(fd int, p []byte) (int, error) {
	return unix.Read(fd, p)
}

// A passthrough wrapper for [unix.Pread].
func (r *Real) Pread(fd int, p []byte, offset int64) (int, error) {
	return unix.Pread(fd, p, offset)
}

// A passthrough wrapper for [unix.Seek].
func (r *Real) Seek(fd int, offset int64, whence int) (int64, error) {
	return unix.Seek(fd, offset, whence)
}

// Getfl returns the open-file status flags via fcntl(F_GETFL).
func (r *Real) Getfl(fd int) (int, error) {
	return unix.FcntlInt(uintptr(fd), unix.F_GETFL, 0)
}

// A passthrough wrapper for [unix.Open].
func (r *Real) Open(path string, mode int, perm uint32) (int, error) {
	return unix.Open(path, mode, perm)
}

// A passthrough wrapper for [unix.Close].
func (r *Real) Close(fd int) error {
	return unix.Close(fd)
}

// A passthrough wrapper for [unix.Readlink].
func (r *Real) Readlink(path string, buf []byte) (int, error) {
	return unix.Readlink(path, buf)
}

// A passthrough wrapper for [unix.CopyFileRange].
func (r *Real) CopyFileRange(rfd int, roff *int64, wfd int, woff *int64, length int) (int, error) {
	return unix.CopyFileRange(rfd, roff, wfd, woff, length, 0)
}
