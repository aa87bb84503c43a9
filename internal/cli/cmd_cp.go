package cli

import (
	"errors"
	"io"
	"os"

	flag "github.com/spf13/pflag"

	"writededuper/pkg/dedup"
)

// copyBufBlocks sizes the copy buffer in blocks. Larger batches give the
// pipeline more whole blocks per call.
const copyBufBlocks = 32

var errCpUsage = errors.New("usage: wdd cp SRC DST")

// runCp copies SRC to DST with both sides routed through the shim: the
// read populates the fingerprint index, the write clones every block the
// index already knows.
func (a *app) runCp(args []string) int {
	flags := flag.NewFlagSet("cp", flag.ContinueOnError)
	flags.SetOutput(io.Discard)
	flagStats := flags.Bool("stats", false, "Print shim counters afterwards")

	if err := flags.Parse(args); err != nil {
		fprintln(a.errOut, "error:", err)

		return 1
	}

	if flags.NArg() != 2 {
		fprintln(a.errOut, "error:", errCpUsage)

		return 1
	}

	src, dst := flags.Arg(0), flags.Arg(1)

	if err := a.copyFile(src, dst); err != nil {
		fprintln(a.errOut, "error:", err)

		return 1
	}

	if *flagStats {
		return a.runStat(nil)
	}

	return 0
}

// copyFile streams src to dst through the shim's entry points.
func (a *app) copyFile(src, dst string) error {
	in, err := os.Open(src) //nolint:gosec // path is intentionally user-controlled
	if err != nil {
		return err
	}

	defer func() { _ = in.Close() }()

	out, err := os.OpenFile(dst, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644) //nolint:gosec // same
	if err != nil {
		return err
	}

	defer func() { _ = out.Close() }()

	inFd, outFd := int(in.Fd()), int(out.Fd())

	buf := make([]byte, copyBufBlocks*dedup.BlockSize)

	for {
		n, readErr := a.shim.Read(inFd, buf)
		if readErr != nil {
			return readErr
		}

		if n == 0 {
			return nil
		}

		if err := a.writeFull(outFd, buf[:n]); err != nil {
			return err
		}
	}
}

// writeFull pushes all of p through the shim. The pipeline only consumes
// whole blocks per call; the remainder re-enters as a short call and
// passes through.
func (a *app) writeFull(fd int, p []byte) error {
	for len(p) > 0 {
		n, err := a.shim.Write(fd, p)
		if err != nil {
			return err
		}

		if n <= 0 {
			return io.ErrShortWrite
		}

		p = p[n:]
	}

	return nil
}
