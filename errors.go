package pyext

import (
	"errors"
	"fmt"
	"strings"

	"github.com/magefile/mage/sh"
)

// Fatal error classes of an orchestration run. Match them with errors.Is.
var (
	ErrConfigureFailed  = errors.New("configure failed")
	ErrBuildFailed      = errors.New("build failed")
	ErrArtifactNotFound = errors.New("artifact not found")
	ErrPlacementFailed  = errors.New("placement failed")
)

// outputTailLines bounds how much subprocess output a CommandError keeps.
const outputTailLines = 40

// CommandError reports an external command that exited unsuccessfully.
//
// The error carries everything needed to diagnose the failure without a
// verbose rerun: the full command line, the working directory, the exit
// status and the tail of the combined output.
type CommandError struct {
	Kind     error // ErrConfigureFailed or ErrBuildFailed
	Command  string
	Args     []string
	Dir      string
	ExitCode int
	Output   []string
	Err      error
}

func (e *CommandError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%v: %s %s (in %s) exited with status %d",
		e.Kind, e.Command, strings.Join(e.Args, " "), e.Dir, e.ExitCode)
	if tail := tailLines(e.Output, outputTailLines); len(tail) > 0 {
		b.WriteString("\n\nBuild output:\n")
		b.WriteString(strings.Join(tail, "\n"))
	}
	return b.String()
}

func (e *CommandError) Unwrap() error { return e.Err }

// Is matches the error class.
func (e *CommandError) Is(target error) bool { return target == e.Kind }

// ExitStatus returns the external command's exit status.
func (e *CommandError) ExitStatus() int {
	if e.ExitCode == 0 {
		return 1
	}
	return e.ExitCode
}

// newCommandError wraps a failed run of command. The exit status is taken
// from err the same way mage reports it.
func newCommandError(kind error, command string, args []string, dir string, output []string, err error) *CommandError {
	return &CommandError{
		Kind:     kind,
		Command:  command,
		Args:     append([]string(nil), args...),
		Dir:      dir,
		ExitCode: sh.ExitStatus(err),
		Output:   output,
		Err:      err,
	}
}

// ArtifactNotFoundError lists every directory searched for a target.
type ArtifactNotFoundError struct {
	Target   string
	Searched []string
}

func (e *ArtifactNotFoundError) Error() string {
	return fmt.Sprintf("%v: no compiled module for %s in %s",
		ErrArtifactNotFound, e.Target, strings.Join(e.Searched, ", "))
}

func (e *ArtifactNotFoundError) Is(target error) bool { return target == ErrArtifactNotFound }

func (e *ArtifactNotFoundError) ExitStatus() int { return 1 }

// PlacementError reports a primary artifact that could not be copied.
//
// ResolveErr is set when path resolution failed and the direct fallback copy
// was attempted; Err is the copy failure.
type PlacementError struct {
	Source     string
	Dest       string
	ResolveErr error
	Err        error
}

func (e *PlacementError) Error() string {
	if e.ResolveErr != nil {
		return fmt.Sprintf("%v: copy %s -> %s: %v (after path resolution failed: %v)",
			ErrPlacementFailed, e.Source, e.Dest, e.Err, e.ResolveErr)
	}
	return fmt.Sprintf("%v: copy %s -> %s: %v", ErrPlacementFailed, e.Source, e.Dest, e.Err)
}

func (e *PlacementError) Unwrap() error { return e.Err }

func (e *PlacementError) Is(target error) bool { return target == ErrPlacementFailed }

func (e *PlacementError) ExitStatus() int { return 1 }

func tailLines(lines []string, n int) []string {
	// Drop trailing blank lines left by splitting output on "\n".
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	if len(lines) <= n {
		return lines
	}
	return lines[len(lines)-n:]
}
