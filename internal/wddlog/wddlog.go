// Package wddlog configures the shim's stderr diagnostics.
package wddlog

import (
	"bytes"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Tag prefixes every diagnostic line.
const Tag = "libwritededuper"

// New returns a logger emitting tag-prefixed lines to stderr.
//
// The default level is warn: per-call fallbacks are logged at debug and
// stay silent unless verbose is set, while real failures (failed writes,
// failed position updates) always reach stderr.
func New(verbose bool) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&tagFormatter{})
	l.SetLevel(logrus.WarnLevel)

	if verbose {
		l.SetLevel(logrus.DebugLevel)
	}

	return l
}

// NewNop returns a logger that discards everything, for tests.
func NewNop() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)

	return l
}

// tagFormatter renders "libwritededuper: message: error" lines, matching
// the diagnostic format the shim's consumers scrape.
type tagFormatter struct{}

func (*tagFormatter) Format(e *logrus.Entry) ([]byte, error) {
	var b bytes.Buffer

	b.WriteString(Tag)
	b.WriteString(": ")
	b.WriteString(e.Message)

	if err, ok := e.Data[logrus.ErrorKey]; ok {
		b.WriteString(": ")
		if ferr, ok := err.(error); ok {
			b.WriteString(ferr.Error())
		}
	}

	b.WriteByte('\n')

	return b.Bytes(), nil
}
