package cli

import (
	"errors"
	"os"

	"writededuper/pkg/dedup"
)

var errSeedUsage = errors.New("usage: wdd seed FILE...")

// runSeed reads each file through the shim so its blocks land in the
// fingerprint index. Only useful with an external index; an in-process
// index dies with this invocation.
func (a *app) runSeed(args []string) int {
	if len(args) == 0 {
		fprintln(a.errOut, "error:", errSeedUsage)

		return 1
	}

	exitCode := 0

	for _, path := range args {
		if err := a.seedFile(path); err != nil {
			fprintln(a.errOut, "error:", err)

			exitCode = 1
		}
	}

	return exitCode
}

// seedFile reads path block-aligned from offset 0 so every whole block
// is indexed.
func (a *app) seedFile(path string) error {
	f, err := os.Open(path) //nolint:gosec // path is intentionally user-controlled
	if err != nil {
		return err
	}

	defer func() { _ = f.Close() }()

	fd := int(f.Fd())
	buf := make([]byte, copyBufBlocks*dedup.BlockSize)

	for {
		n, err := a.shim.Read(fd, buf)
		if err != nil {
			return err
		}

		if n == 0 {
			return nil
		}
	}
}
