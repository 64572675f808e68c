// Package debug provides conditional debug logging for cg.
//
// Debug logging is enabled by setting the CG_DEBUG environment variable:
//
//	CG_DEBUG=1 cg --graph case.json
//
// When enabled, debug messages go to stderr through a charmbracelet/log
// logger at debug level. When disabled (default), every function returns
// before formatting anything.
//
// Usage:
//
//	import "github.com/vanderheijden86/casegraph/pkg/debug"
//
//	func paint() {
//	    defer debug.LogEnterExit("paint")()
//	    debug.Log("painting %d nodes", n)
//	}
package debug

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
)

var (
	enabled atomic.Bool

	mu     sync.Mutex
	logger *log.Logger
)

func init() {
	if os.Getenv("CG_DEBUG") != "" {
		SetEnabled(true)
	}
}

func newLogger(w io.Writer) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.000",
		Level:           log.DebugLevel,
		Prefix:          "CG_DEBUG",
	})
}

func current() *log.Logger {
	mu.Lock()
	defer mu.Unlock()
	if logger == nil {
		logger = newLogger(os.Stderr)
	}
	return logger
}

// Enabled returns whether debug logging is enabled.
func Enabled() bool {
	return enabled.Load()
}

// SetEnabled allows programmatic control of debug logging.
func SetEnabled(e bool) {
	enabled.Store(e)
}

// SetOutput redirects debug output. The TUI points it at a file so log
// lines do not corrupt the alternate screen.
func SetOutput(w io.Writer) {
	mu.Lock()
	logger = newLogger(w)
	mu.Unlock()
}

// Log writes a debug message if debug logging is enabled.
// Uses printf-style formatting.
func Log(format string, args ...any) {
	if !enabled.Load() {
		return
	}
	current().Debug(fmt.Sprintf(format, args...))
}

// LogTiming writes a timing message if debug logging is enabled.
func LogTiming(name string, d time.Duration) {
	if !enabled.Load() {
		return
	}
	current().Debug(name, "took", d)
}

// LogIf writes a debug message only if the condition is true.
func LogIf(cond bool, format string, args ...any) {
	if !cond {
		return
	}
	Log(format, args...)
}

// LogFunc returns a function that logs a debug message when called.
// Useful for deferred logging:
//
//	defer debug.LogFunc("reload done")()
func LogFunc(msg string) func() {
	if !enabled.Load() {
		return func() {}
	}
	return func() {
		current().Debug(msg)
	}
}

// LogEnterExit logs function entry and exit with timing.
func LogEnterExit(name string) func() {
	if !enabled.Load() {
		return func() {}
	}
	l := current()
	l.Debug("-> " + name)
	start := time.Now()
	return func() {
		l.Debug("<- "+name, "elapsed", time.Since(start))
	}
}

// Dump logs a value with its type for debugging complex structures.
func Dump(name string, v any) {
	if !enabled.Load() {
		return
	}
	current().Debug(fmt.Sprintf("%s: %T = %+v", name, v, v))
}

// Section logs a section header for visual organization in debug output.
func Section(name string) {
	if !enabled.Load() {
		return
	}
	current().Debug("=== " + name + " ===")
}
