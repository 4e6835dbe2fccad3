package main

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

// Output prints human-facing status lines. Structured logs go through slog.
type Output struct {
	out     io.Writer
	errOut  io.Writer
	noColor bool
}

// NewOutput creates an Output writing to stdout and stderr.
func NewOutput() *Output {
	return &Output{out: os.Stdout, errOut: os.Stderr}
}

// SetNoColor disables colored output. Passing false keeps color's own
// terminal detection.
func (o *Output) SetNoColor(noColor bool) {
	o.noColor = noColor
	if noColor {
		color.NoColor = true
	}
}

// Info prints an informational message in default color.
func (o *Output) Info(format string, args ...interface{}) {
	fmt.Fprintf(o.out, format+"\n", args...)
}

// Success prints a success message in green with checkmark.
func (o *Output) Success(format string, args ...interface{}) {
	green := color.New(color.FgGreen)
	green.Fprintf(o.out, "✓ "+format+"\n", args...)
}

// Warn prints a warning message in yellow.
func (o *Output) Warn(format string, args ...interface{}) {
	yellow := color.New(color.FgYellow)
	yellow.Fprintf(o.errOut, "Warning: "+format+"\n", args...)
}

// Error prints an error message in red.
func (o *Output) Error(format string, args ...interface{}) {
	red := color.New(color.FgRed)
	red.Fprintf(o.errOut, "Error: "+format+"\n", args...)
}
