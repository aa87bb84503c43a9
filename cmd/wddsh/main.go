// wddsh is an interactive shell for inspecting a writededuper
// fingerprint index.
//
// Usage:
//
//	wddsh [-c config]
//
// Commands (in REPL):
//
//	hash <file> [block#]         Fingerprint a block of a file
//	get <fp>                     Look up a fingerprint
//	put <fp> <path> <offset>     Record a location for a fingerprint
//	seed <file>                  Index every whole block of a file
//	stats                        Show shim counters
//	help                         Show this help
//	exit / quit / q              Exit
//
// Fingerprints are decimal or 0x-prefixed hex. With no redis
// configuration the index lives in this process and vanishes on exit;
// point LIBWRITEDEDUPER_REDIS_HOST/_PORT (or the config file) at a store
// to inspect shared state.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/peterh/liner"
	flag "github.com/spf13/pflag"

	"writededuper/internal/cli"
	"writededuper/pkg/dedup"
	"writededuper/pkg/dedup/index"
)

func main() {
	err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	flags := flag.NewFlagSet("wddsh", flag.ContinueOnError)
	flagConfig := flags.StringP("config", "c", "", "Use specified config `file`")

	if err := flags.Parse(os.Args[1:]); err != nil {
		return err
	}

	environ := os.Environ()
	env := make(map[string]string, len(environ))

	for _, e := range environ {
		if k, v, ok := strings.Cut(e, "="); ok {
			env[k] = v
		}
	}

	workDir, err := os.Getwd()
	if err != nil {
		return err
	}

	cfg, err := cli.LoadConfig(workDir, *flagConfig, env)
	if err != nil {
		return err
	}

	opts, err := cfg.Options()
	if err != nil {
		return err
	}

	// Keep a handle on the index: the REPL pokes at it directly, the
	// shim routes the file-facing commands.
	repl := &REPL{
		idx:  opts.Index,
		shim: dedup.New(opts),
	}
	defer repl.shim.Close()

	return repl.Run()
}

// REPL is the interactive command loop.
type REPL struct {
	idx   index.Index
	shim  *dedup.Shim
	liner *liner.State
}

// historyFile returns the path to the history file.
func historyFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	return filepath.Join(home, ".wddsh_history")
}

// Run starts the REPL loop.
func (r *REPL) Run() error {
	r.liner = liner.NewLiner()
	defer r.liner.Close()

	r.liner.SetCtrlCAborts(true)
	r.liner.SetCompleter(r.completer)

	if f, err := os.Open(historyFile()); err == nil {
		r.liner.ReadHistory(f)
		f.Close()
	}

	fmt.Println("wddsh - fingerprint index shell")
	fmt.Println("Type 'help' for available commands.")
	fmt.Println()

	for {
		line, err := r.liner.Prompt("wddsh> ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				fmt.Println("\nBye!")

				break
			}

			return fmt.Errorf("reading input: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		r.liner.AppendHistory(line)

		parts := strings.Fields(line)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "exit", "quit", "q":
			fmt.Println("Bye!")

			r.saveHistory()

			return nil

		case "help", "?":
			r.printHelp()

		case "hash":
			r.cmdHash(args)

		case "get":
			r.cmdGet(args)

		case "put":
			r.cmdPut(args)

		case "seed":
			r.cmdSeed(args)

		case "stats":
			r.cmdStats()

		case "clear", "cls":
			fmt.Print("\033[H\033[2J")

		default:
			fmt.Printf("Unknown command: %s (type 'help' for commands)\n", cmd)
		}
	}

	r.saveHistory()

	return nil
}

// saveHistory persists command history to disk.
func (r *REPL) saveHistory() {
	if path := historyFile(); path != "" {
		if f, err := os.Create(path); err == nil {
			r.liner.WriteHistory(f)
			f.Close()
		}
	}
}

// completer provides tab completion for commands.
func (r *REPL) completer(line string) []string {
	commands := []string{
		"hash", "get", "put", "seed", "stats",
		"clear", "cls", "help", "exit", "quit", "q",
	}

	var completions []string

	lower := strings.ToLower(line)
	for _, cmd := range commands {
		if strings.HasPrefix(cmd, lower) {
			completions = append(completions, cmd)
		}
	}

	return completions
}

func (r *REPL) printHelp() {
	fmt.Println("Commands:")
	fmt.Println("  hash <file> [block#]       Fingerprint a block of a file (default block 0)")
	fmt.Println("  get <fp>                   Look up a fingerprint")
	fmt.Println("  put <fp> <path> <offset>   Record a location for a fingerprint")
	fmt.Println("  seed <file>                Index every whole block of a file")
	fmt.Println("  stats                      Show shim counters")
	fmt.Println("  help                       Show this help")
	fmt.Println("  exit / quit / q            Exit")
	fmt.Println()
	fmt.Println("Fingerprints: decimal (e.g., '305419896') or hex (e.g., '0x12345678').")
}

// parseFp parses a fingerprint from user input.
func parseFp(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid fingerprint %q", s)
	}

	return uint32(v), nil
}

func (r *REPL) cmdHash(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: hash <file> [block#]")

		return
	}

	blockNum := int64(0)

	if len(args) > 1 {
		n, err := strconv.ParseInt(args[1], 0, 64)
		if err != nil || n < 0 {
			fmt.Printf("Invalid block number: %s\n", args[1])

			return
		}

		blockNum = n
	}

	f, err := os.Open(args[0])
	if err != nil {
		fmt.Printf("Error: %v\n", err)

		return
	}
	defer f.Close()

	buf := make([]byte, dedup.BlockSize)

	n, err := f.ReadAt(buf, blockNum*dedup.BlockSize)
	if err != nil && !errors.Is(err, io.EOF) {
		fmt.Printf("Error: %v\n", err)

		return
	}

	if n < dedup.BlockSize {
		fmt.Printf("Short block: only %d bytes at block %d\n", n, blockNum)

		return
	}

	fp := dedup.Fingerprint(buf)
	fmt.Printf("fp=%d (0x%08x) block=%d offset=%d\n", fp, fp, blockNum, blockNum*dedup.BlockSize)
}

func (r *REPL) cmdGet(args []string) {
	if len(args) != 1 {
		fmt.Println("Usage: get <fp>")

		return
	}

	fp, err := parseFp(args[0])
	if err != nil {
		fmt.Printf("Error: %v\n", err)

		return
	}

	entry, ok, err := r.idx.Get(fp)
	if err != nil {
		fmt.Printf("Error: %v\n", err)

		return
	}

	if !ok {
		fmt.Println("(not found)")

		return
	}

	fmt.Printf("path=%s offset=%d\n", entry.Path, entry.Offset)
}

func (r *REPL) cmdPut(args []string) {
	if len(args) != 3 {
		fmt.Println("Usage: put <fp> <path> <offset>")

		return
	}

	fp, err := parseFp(args[0])
	if err != nil {
		fmt.Printf("Error: %v\n", err)

		return
	}

	offset, err := strconv.ParseInt(args[2], 0, 64)
	if err != nil || offset < 0 || offset%dedup.BlockSize != 0 {
		fmt.Printf("Invalid offset (must be a non-negative multiple of %d): %s\n", dedup.BlockSize, args[2])

		return
	}

	path, err := filepath.Abs(args[1])
	if err != nil {
		fmt.Printf("Error: %v\n", err)

		return
	}

	if err := r.idx.Set(fp, index.Entry{Path: path, Offset: offset}); err != nil {
		fmt.Printf("Error: %v\n", err)

		return
	}

	fmt.Println("OK")
}

func (r *REPL) cmdSeed(args []string) {
	if len(args) != 1 {
		fmt.Println("Usage: seed <file>")

		return
	}

	f, err := os.Open(args[0])
	if err != nil {
		fmt.Printf("Error: %v\n", err)

		return
	}
	defer f.Close()

	fd := int(f.Fd())
	buf := make([]byte, 32*dedup.BlockSize)
	total := 0

	for {
		n, err := r.shim.Read(fd, buf)
		if err != nil {
			fmt.Printf("Error: %v\n", err)

			return
		}

		if n == 0 {
			break
		}

		total += n
	}

	fmt.Printf("Indexed %d whole blocks (%d bytes read).\n", total/dedup.BlockSize, total)
}

func (r *REPL) cmdStats() {
	s := r.shim.Stats()

	fmt.Printf("fallback_calls:  %d\n", s.FallbackCalls)
	fmt.Printf("miss_blocks:     %d\n", s.MissBlocks)
	fmt.Printf("hit_blocks:      %d\n", s.HitBlocks)
	fmt.Printf("verify_rejects:  %d\n", s.VerifyRejects)
	fmt.Printf("cloned_blocks:   %d\n", s.ClonedBlocks)
	fmt.Printf("indexed_blocks:  %d\n", s.IndexedBlocks)
}
