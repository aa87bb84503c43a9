package cli

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/natefinch/atomic"
	flag "github.com/spf13/pflag"
)

// statReport is the JSON document the stat command produces.
type statReport struct {
	Backend string      `json:"backend"`
	Bloom   bool        `json:"bloom"`
	Stats   interface{} `json:"stats"`
}

// runStat reports the shim's counters as JSON, to stdout or atomically
// to a file.
func (a *app) runStat(args []string) int {
	flags := flag.NewFlagSet("stat", flag.ContinueOnError)
	flags.SetOutput(io.Discard)
	flagOut := flags.String("out", "", "Write the report to `file` instead of stdout")

	if err := flags.Parse(args); err != nil {
		fprintln(a.errOut, "error:", err)

		return 1
	}

	backend := "memory"
	if a.cfg.RedisHost != "" || a.cfg.RedisPort != "" {
		backend = "redis"
	}

	report := statReport{
		Backend: backend,
		Bloom:   a.cfg.Bloom,
		Stats:   a.shim.Stats(),
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		fprintln(a.errOut, "error:", err)

		return 1
	}

	data = append(data, '\n')

	if *flagOut != "" {
		if err := atomic.WriteFile(*flagOut, bytes.NewReader(data)); err != nil {
			fprintln(a.errOut, "error:", err)

			return 1
		}

		return 0
	}

	if _, err := a.out.Write(data); err != nil {
		fprintln(a.errOut, "error:", err)

		return 1
	}

	return 0
}
