package dedup

import (
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"writededuper/internal/fdcache"
	"writededuper/internal/sysio"
	"writededuper/internal/wddlog"
	"writededuper/pkg/dedup/index"
)

// Shim owns the deduplication state shared by all calls routed through
// it: the fingerprint index and the working-descriptor cache. Entry
// points may be called from arbitrary goroutines in parallel; the shim
// adds no ordering of its own beyond the safety of its shared state.
type Shim struct {
	sys   sysio.SysIO
	idx   index.Index
	fds   *fdcache.Cache
	log   *logrus.Logger
	stats stats
}

// New constructs a Shim from opts, filling unset fields with production
// defaults.
func New(opts Options) *Shim {
	return newShim(opts, sysio.NewReal())
}

// newShim lets tests supply the system-call layer.
func newShim(opts Options, sys sysio.SysIO) *Shim {
	idx := opts.Index
	if idx == nil {
		idx = index.NewMemory()
	}

	log := opts.Logger
	if log == nil {
		log = wddlog.New(false)
	}

	return &Shim{
		sys: sys,
		idx: idx,
		fds: fdcache.New(sys),
		log: log,
	}
}

// Write interposes the sequential write primitive: write len(buf) bytes
// to fd at its current position.
//
// Dedup-eligible calls (non-append descriptor, block-aligned position,
// len(buf) >= [BlockSize]) are processed in whole blocks; any trailing
// partial block is not written and not counted. All other calls pass
// through untouched. Returns the byte count on success and -1 with a
// non-nil error on failure, mirroring the underlying primitive.
func (s *Shim) Write(fd int, buf []byte) (int, error) {
	return s.handleWrite(opWrite, fd, buf, -1)
}

// Pwrite interposes the positioned write primitive: write len(buf) bytes
// to fd at offset, leaving the file position alone. Semantics otherwise
// match [Shim.Write].
func (s *Shim) Pwrite(fd int, buf []byte, offset int64) (int, error) {
	return s.handleWrite(opPwrite, fd, buf, offset)
}

// Read interposes the sequential read primitive. The call is satisfied
// by the underlying primitive unchanged; whole blocks of the result are
// added to the index so future writes of the same content can clone from
// this file.
func (s *Shim) Read(fd int, buf []byte) (int, error) {
	return s.handleRead(opRead, fd, buf, -1)
}

// Pread interposes the positioned read primitive. Semantics otherwise
// match [Shim.Read].
func (s *Shim) Pread(fd int, buf []byte, offset int64) (int, error) {
	return s.handleRead(opPread, fd, buf, offset)
}

// Close releases the index and every cached working descriptor. The shim
// must not be used afterwards.
func (s *Shim) Close() error {
	err := s.idx.Close()

	if cerr := s.fds.Close(); err == nil {
		err = cerr
	}

	return err
}

// The process-wide shim behind the package-level entry points.
// Initialized once, on the first call that needs it; parallel first
// callers are safe.
var (
	defaultOnce sync.Once
	defaultShim *Shim
)

// Default returns the process-wide shim, building it from the
// environment on first use. A configured-but-unreachable external index
// is fatal and terminates the process with a diagnostic.
func Default() *Shim {
	defaultOnce.Do(func() {
		env := make(map[string]string)

		for _, kv := range os.Environ() {
			if k, v, ok := strings.Cut(kv, "="); ok {
				env[k] = v
			}
		}

		opts, err := OptionsFromEnv(env)
		if err != nil {
			wddlog.New(false).WithError(err).Fatal("couldn't initialize fingerprint index")
		}

		defaultShim = New(opts)
	})

	return defaultShim
}

// Write routes a sequential write through the process-wide shim.
func Write(fd int, buf []byte) (int, error) {
	return Default().Write(fd, buf)
}

// Pwrite routes a positioned write through the process-wide shim.
func Pwrite(fd int, buf []byte, offset int64) (int, error) {
	return Default().Pwrite(fd, buf, offset)
}

// Read routes a sequential read through the process-wide shim.
func Read(fd int, buf []byte) (int, error) {
	return Default().Read(fd, buf)
}

// Pread routes a positioned read through the process-wide shim.
func Pread(fd int, buf []byte, offset int64) (int, error) {
	return Default().Pread(fd, buf, offset)
}
