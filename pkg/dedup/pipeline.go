package dedup

import (
	"bytes"
	"fmt"
	"io"

	"golang.org/x/sys/unix"

	"writededuper/internal/sysio"
	"writededuper/pkg/dedup/index"
)

// op tags which host primitive a pipeline invocation stands in for.
type op int

const (
	opWrite op = iota
	opPwrite
	opRead
	opPread
)

// fallbackWrite dispatches a write to the underlying primitive with the
// caller's original semantics.
func (s *Shim) fallbackWrite(kind op, fd int, buf []byte, offset int64) (int, error) {
	if kind == opWrite {
		return s.sys.Write(fd, buf)
	}

	return s.sys.Pwrite(fd, buf, offset)
}

// fallbackRead dispatches a read to the underlying primitive with the
// caller's original semantics.
func (s *Shim) fallbackRead(kind op, fd int, buf []byte, offset int64) (int, error) {
	if kind == opRead {
		return s.sys.Read(fd, buf)
	}

	return s.sys.Pread(fd, buf, offset)
}

// handleWrite classifies a write call and runs the block loop over its
// payload.
//
// offset is the caller-supplied offset for positioned operations and
// ignored for sequential ones, where the descriptor's current position
// is queried instead.
func (s *Shim) handleWrite(kind op, fd int, buf []byte, offset int64) (int, error) {
	count := len(buf)

	// Fast rejects: calls the block loop cannot handle safely pass
	// through with the caller's original arguments.
	if fl, err := s.sys.Getfl(fd); err != nil || fl&unix.O_APPEND != 0 {
		s.stats.fallbackCalls.Add(1)

		return s.fallbackWrite(kind, fd, buf, offset)
	}

	if count < BlockSize {
		s.stats.fallbackCalls.Add(1)

		return s.fallbackWrite(kind, fd, buf, offset)
	}

	if kind == opWrite {
		pos, err := s.sys.Seek(fd, 0, io.SeekCurrent)
		if err != nil || pos%BlockSize != 0 {
			s.stats.fallbackCalls.Add(1)

			return s.fallbackWrite(kind, fd, buf, offset)
		}

		offset = pos
	} else if offset%BlockSize != 0 {
		s.stats.fallbackCalls.Add(1)

		return s.fallbackWrite(kind, fd, buf, offset)
	}

	path, err := sysio.FdPath(s.sys, fd)
	if err != nil {
		s.log.WithError(err).Debugf("couldn't readlink on file descriptor %d", fd)
		s.stats.fallbackCalls.Add(1)

		return s.fallbackWrite(kind, fd, buf, offset)
	}

	var blockBuf, sourceBuf [BlockSize]byte

	total := 0

	for blockOff := 0; blockOff+BlockSize <= count; blockOff += BlockSize {
		copy(blockBuf[:], buf[blockOff:blockOff+BlockSize])

		fp := Fingerprint(blockBuf[:])

		entry, ok, lookupErr := s.idx.Get(fp)
		if lookupErr != nil {
			s.log.WithError(lookupErr).Debugf("index lookup for %08x failed", fp)

			ok = false
		}

		written := 0
		cloned := false

		if ok {
			s.stats.hitBlocks.Add(1)

			written, cloned, err = s.cloneBlock(kind, fd, blockBuf[:], sourceBuf[:], entry, &offset)
			if err != nil {
				return -1, err
			}
		}

		if !cloned {
			// Record the block's new location before issuing the write
			// so a later block in this same call can clone from it. A
			// failed write leaves a speculative entry behind;
			// verification refutes it on the next lookup.
			s.stats.missBlocks.Add(1)

			setErr := s.idx.Set(fp, index.Entry{Path: path, Offset: offset})
			if setErr != nil {
				s.log.WithError(setErr).Debugf("index insert for %08x failed", fp)
			}

			written, err = s.fallbackWrite(kind, fd, blockBuf[:], offset)
			if err != nil {
				s.log.WithError(err).Errorf("couldn't write to file descriptor %d", fd)

				return -1, err
			}

			offset += BlockSize
		}

		total += written
	}

	return total, nil
}

// cloneBlock attempts to satisfy one block of a write with a range clone
// from the location the index claims.
//
// Any verification or clone failure reports cloned == false and the
// caller degrades the block to a literal write. The only hard error is a
// failed file-position update after a clone already transferred bytes:
// at that point the sequential position no longer matches what the
// caller will be told, so the call must fail.
func (s *Shim) cloneBlock(kind op, fd int, block, sourceBuf []byte, entry index.Entry, offset *int64) (int, bool, error) {
	// The append-mode classification is re-checked here: the descriptor
	// flags can change between the fast-reject filter and this block.
	if fl, err := s.sys.Getfl(fd); err != nil || fl&unix.O_APPEND != 0 {
		return 0, false, nil
	}

	srcFd, err := s.fds.Acquire(entry.Path)
	if err != nil {
		return 0, false, nil
	}

	// Mandatory verification: the entry is a stale-able claim and the
	// fingerprint is not collision-resistant.
	n, err := s.sys.Pread(srcFd, sourceBuf, entry.Offset)
	if err != nil || n < BlockSize {
		s.stats.verifyRejects.Add(1)

		return 0, false, nil
	}

	if !bytes.Equal(block, sourceBuf) {
		s.stats.verifyRejects.Add(1)

		return 0, false, nil
	}

	srcOff := entry.Offset

	written, err := s.sys.CopyFileRange(srcFd, &srcOff, fd, offset, BlockSize)
	if err != nil || written <= 0 {
		if err != nil {
			s.log.WithError(err).Debugf("couldn't copy_file_range on file descriptor %d", fd)
		}

		return 0, false, nil
	}

	// copy_file_range advanced its own offset variable, not the
	// descriptor's position; sequential callers observe the position, so
	// it must be moved along by hand.
	if kind == opWrite {
		if _, err := s.sys.Seek(fd, int64(written), io.SeekCurrent); err != nil {
			s.log.WithError(err).Errorf("couldn't lseek %d bytes on file descriptor %d", written, fd)

			return 0, false, fmt.Errorf("updating file position on descriptor %d: %w", fd, err)
		}
	}

	s.stats.clonedBlocks.Add(1)

	return written, true, nil
}

// handleRead classifies a read call, satisfies it through the underlying
// primitive, and indexes the whole blocks it returned.
func (s *Shim) handleRead(kind op, fd int, buf []byte, offset int64) (int, error) {
	count := len(buf)

	if count < BlockSize {
		s.stats.fallbackCalls.Add(1)

		return s.fallbackRead(kind, fd, buf, offset)
	}

	if kind == opRead {
		pos, err := s.sys.Seek(fd, 0, io.SeekCurrent)
		if err != nil || pos%BlockSize != 0 {
			s.stats.fallbackCalls.Add(1)

			return s.fallbackRead(kind, fd, buf, offset)
		}

		offset = pos
	} else if offset%BlockSize != 0 {
		s.stats.fallbackCalls.Add(1)

		return s.fallbackRead(kind, fd, buf, offset)
	}

	path, err := sysio.FdPath(s.sys, fd)
	if err != nil {
		s.log.WithError(err).Debugf("couldn't readlink on file descriptor %d", fd)
		s.stats.fallbackCalls.Add(1)

		return s.fallbackRead(kind, fd, buf, offset)
	}

	// The read itself is never substituted; the caller sees exactly what
	// the underlying primitive produced.
	n, err := s.fallbackRead(kind, fd, buf, offset)
	if err != nil {
		return n, err
	}

	// Index only whole blocks of the returned count; a partial tail is
	// not a block and is skipped.
	for blockOff := 0; blockOff+BlockSize <= n; blockOff += BlockSize {
		fp := Fingerprint(buf[blockOff : blockOff+BlockSize])

		setErr := s.idx.Set(fp, index.Entry{Path: path, Offset: offset})
		if setErr != nil {
			s.log.WithError(setErr).Debugf("index insert for %08x failed", fp)
		} else {
			s.stats.indexedBlocks.Add(1)
		}

		offset += BlockSize
	}

	return n, nil
}
