// Package logging provides the proxy's verbosity-gated logger,
// grounded on the teacher's log.go: a Writer that both prints to
// stdout and appends to a rotated log file, installed via
// log.SetOutput, with the previous run's log renamed aside rather than
// overwritten.
package logging

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/hako/durafmt"
)

// Writer both prints to stdout and appends to a rotated log file.
// Installing it via log.SetOutput makes every log.Printf call in the
// process go through both sinks.
type Writer struct {
	dir string
}

// NewWriter prepares dir as the log directory, rotating any existing
// latest.txt to last.txt the way the teacher's newLogger does, and
// returns a Writer appending to a fresh latest.txt.
func NewWriter(dir string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o777); err != nil {
		return nil, fmt.Errorf("logging: creating %s: %w", dir, err)
	}
	latest := filepath.Join(dir, "latest.txt")
	last := filepath.Join(dir, "last.txt")
	os.Rename(latest, last)

	return &Writer{dir: dir}, nil
}

// Write implements io.Writer, satisfying log.SetOutput.
func (w *Writer) Write(p []byte) (int, error) {
	fmt.Print(string(p))

	latest := filepath.Join(w.dir, "latest.txt")
	f, err := os.OpenFile(latest, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o666)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	if _, err := f.Write(p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Logger gates log lines by verbosity against a configured threshold,
// matching spec.md §7's taxonomy: verbosity 1 is resource exhaustion
// and protocol desync, verbosity 3 is informational warnings such as
// the mobile-update "no such mobile" notice.
type Logger struct {
	threshold int
}

// New returns a Logger that emits lines at or below threshold. Callers
// install the process-wide sink with log.SetOutput(w) separately
// (typically via NewWriter); Logger itself only decides what to emit,
// not where it goes.
func New(threshold int) *Logger {
	return &Logger{threshold: threshold}
}

// logPrintf is indirected for testability: tests substitute it to
// capture output without depending on the process-wide log sink.
var logPrintf = log.Printf

// Logf emits a formatted line through the standard log package if
// verbosity is within the configured threshold.
func (l *Logger) Logf(verbosity int, format string, args ...any) {
	if verbosity > l.threshold {
		return
	}
	logPrintf(format, args...)
}

// ReconnectBackoff renders a human-readable phrase for a reconnect
// delay, used by internal/console's "reconnecting in…" notices.
func ReconnectBackoff(d time.Duration) string {
	return durafmt.Parse(d).String()
}

// Uptime renders a human-readable phrase for a session's connected
// duration.
func Uptime(d time.Duration) string {
	return durafmt.Parse(d).LimitFirstN(2).String()
}

// PacketSize renders a byte count for oversized/undersized packet
// warnings.
func PacketSize(n int) string {
	return humanize.Bytes(uint64(n))
}
