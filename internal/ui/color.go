// Package ui provides colored console output for berth commands.
package ui

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fatih/color"
	"golang.org/x/term"
)

var (
	// Colors
	Red    = color.New(color.FgRed)
	Green  = color.New(color.FgGreen)
	Yellow = color.New(color.FgYellow)
	Blue   = color.New(color.FgBlue)
	Cyan   = color.New(color.FgCyan)
	Bold   = color.New(color.Bold)
)

var (
	mu  sync.Mutex
	out io.Writer = os.Stdout
)

// SetOutput redirects console output and returns the previous writer.
func SetOutput(w io.Writer) io.Writer {
	mu.Lock()
	defer mu.Unlock()
	prev := out
	out = w
	return prev
}

// Configure disables color when noColor is set or when w is not a terminal.
func Configure(w io.Writer, noColor bool) {
	SetOutput(w)
	color.NoColor = noColor || !isTerminal(w)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func emit(c *color.Color, prefix, format string, args ...any) {
	mu.Lock()
	defer mu.Unlock()
	c.Fprintf(out, prefix+format+"\n", args...)
}

// Success prints a green success message with checkmark.
func Success(format string, args ...any) {
	emit(Green, "✓ ", format, args...)
}

// Error prints a red error message with X.
func Error(format string, args ...any) {
	emit(Red, "✗ ", format, args...)
}

// Warning prints a yellow warning message.
func Warning(format string, args ...any) {
	emit(Yellow, "⚠ ", format, args...)
}

// Info prints a blue info message.
func Info(format string, args ...any) {
	emit(Blue, "", format, args...)
}

// Step prints a numbered step in cyan.
func Step(n int, format string, args ...any) {
	mu.Lock()
	defer mu.Unlock()
	Cyan.Fprintf(out, "[%d] ", n)
	fmt.Fprintf(out, format+"\n", args...)
}

// Header prints a bold header.
func Header(format string, args ...any) {
	emit(Bold, "", format, args...)
}

// Anchor marks a resource that landed in the cluster.
func Anchor(format string, args ...any) {
	emit(Blue, "⚓ ", format, args...)
}

// Ship marks an artifact bound into a manifest.
func Ship(format string, args ...any) {
	emit(Green, "🚢 ", format, args...)
}

// Fatal prints an error to stderr and exits.
func Fatal(format string, args ...any) {
	Red.Fprintf(os.Stderr, "✗ "+format+"\n", args...)
	os.Exit(1)
}
