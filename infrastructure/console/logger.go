package console

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
)

// ColorMode selects when ANSI colors are emitted
type ColorMode int

const (
	ColorAuto ColorMode = iota
	ColorAlways
	ColorNever
)

const (
	red    = "\033[1;91m"
	green  = "\033[1;92m"
	yellow = "\033[1;93m"
	blue   = "\033[1;94m"
	reset  = "\033[0m"
)

// Logger writes leveled, optionally colored lines. ERROR goes to the error
// writer, everything else to the output writer.
type Logger struct {
	mu     sync.Mutex
	out    io.Writer
	errOut io.Writer
	color  bool
}

// NewLogger creates a logger; ColorAuto colors only when out is a terminal
// and NO_COLOR is unset
func NewLogger(out, errOut io.Writer, mode ColorMode) *Logger {
	if out == nil {
		out = io.Discard
	}
	if errOut == nil {
		errOut = out
	}
	l := &Logger{out: out, errOut: errOut}
	switch mode {
	case ColorAlways:
		l.color = true
	case ColorAuto:
		l.color = IsTerminal(out) && os.Getenv("NO_COLOR") == "" && strings.ToLower(os.Getenv("TERM")) != "dumb"
	}
	return l
}

// IsTerminal reports whether w is a terminal
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Writer returns the plain output writer, for step-by-step progress
func (l *Logger) Writer() io.Writer {
	return l.out
}

func (l *Logger) line(level, color, text string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := l.out
	if level == "ERROR" {
		out = l.errOut
	}
	if l.color {
		fmt.Fprintf(out, "%s[%s]%s %s\n", color, level, reset, text)
		return
	}
	fmt.Fprintf(out, "[%s] %s\n", level, text)
}

// Info logs at INFO level (blue)
func (l *Logger) Info(format string, args ...any) {
	l.line("INFO", blue, fmt.Sprintf(format, args...))
}

// Success logs at SUCCESS level (green)
func (l *Logger) Success(format string, args ...any) {
	l.line("SUCCESS", green, fmt.Sprintf(format, args...))
}

// Warn logs at WARN level (yellow)
func (l *Logger) Warn(format string, args ...any) {
	l.line("WARN", yellow, fmt.Sprintf(format, args...))
}

// Error logs at ERROR level (red) to the error writer
func (l *Logger) Error(format string, args ...any) {
	l.line("ERROR", red, fmt.Sprintf(format, args...))
}
