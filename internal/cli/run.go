// Package cli implements the wdd command line tool: a thin exerciser
// that routes ordinary file operations through the dedup shim.
package cli

import (
	"fmt"
	"io"
	"os"

	flag "github.com/spf13/pflag"

	"writededuper/pkg/dedup"
)

// app carries the state shared by all subcommands of one invocation.
type app struct {
	shim   *dedup.Shim
	cfg    Config
	out    io.Writer
	errOut io.Writer
}

// Run is the main entry point. Returns the process exit code.
func Run(out io.Writer, errOut io.Writer, args []string, env map[string]string) int {
	globalFlags := flag.NewFlagSet("wdd", flag.ContinueOnError)
	globalFlags.SetInterspersed(false)
	globalFlags.Usage = func() {}
	globalFlags.SetOutput(io.Discard)

	flagHelp := globalFlags.BoolP("help", "h", false, "Show help")
	flagCwd := globalFlags.StringP("cwd", "C", "", "Run as if started in `dir`")
	flagConfig := globalFlags.StringP("config", "c", "", "Use specified config `file`")
	flagVerbose := globalFlags.BoolP("verbose", "v", false, "Debug-level diagnostics")

	if err := globalFlags.Parse(args[1:]); err != nil {
		fprintln(errOut, "error:", err)
		printUsage(errOut)

		return 1
	}

	workDir := *flagCwd
	if workDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			fprintln(errOut, "error:", err)

			return 1
		}

		workDir = wd
	}

	cfg, err := LoadConfig(workDir, *flagConfig, env)
	if err != nil {
		fprintln(errOut, "error:", err)

		return 1
	}

	if *flagVerbose {
		cfg.Verbose = true
	}

	commandAndArgs := globalFlags.Args()

	if *flagHelp || len(commandAndArgs) == 0 {
		printUsage(out)

		if *flagHelp {
			return 0
		}

		return 1
	}

	opts, err := cfg.Options()
	if err != nil {
		fprintln(errOut, "error:", err)

		return 1
	}

	a := &app{
		shim:   dedup.New(opts),
		cfg:    cfg,
		out:    out,
		errOut: errOut,
	}
	defer func() { _ = a.shim.Close() }()

	command, commandArgs := commandAndArgs[0], commandAndArgs[1:]

	switch command {
	case "cp":
		return a.runCp(commandArgs)
	case "seed":
		return a.runSeed(commandArgs)
	case "stat":
		return a.runStat(commandArgs)
	case "help":
		printUsage(out)

		return 0
	default:
		fprintln(errOut, "error: unknown command:", command)
		printUsage(errOut)

		return 1
	}
}

func printUsage(w io.Writer) {
	fprintln(w, "Usage: wdd [options] <command> [args]")
	fprintln(w, "")
	fprintln(w, "Commands:")
	fprintln(w, "  cp SRC DST        Copy a file through the dedup pipeline")
	fprintln(w, "  seed FILE...      Read files to populate the fingerprint index")
	fprintln(w, "  stat [--out FILE] Report shim counters as JSON")
	fprintln(w, "  help              Show this help")
	fprintln(w, "")
	fprintln(w, "Options:")
	fprintln(w, "  -C, --cwd dir     Run as if started in dir")
	fprintln(w, "  -c, --config file Use specified config file")
	fprintln(w, "  -v, --verbose     Debug-level diagnostics")
	fprintln(w, "  -h, --help        Show help")
}

// fprintln writes a line, ignoring write errors on the output streams.
func fprintln(w io.Writer, a ...any) {
	_, _ = fmt.Fprintln(w, a...)
}
