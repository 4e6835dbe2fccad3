package pyext

import (
	"context"
	"os/exec"
	"strings"
)

// Command is one external process invocation.
type Command struct {
	Name string
	Args []string
	Dir  string
	Env  Environment
}

// String renders the command line for logs.
func (c Command) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// CommandRunner runs external commands for the invoker.
//
// Run blocks until the process exits and returns its combined output split
// into lines. A non-nil error means the process could not be started or
// exited unsuccessfully; its exit status is read with sh.ExitStatus.
type CommandRunner interface {
	Run(ctx context.Context, cmd Command) ([]string, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run executes cmd and captures its combined output.
func (ExecRunner) Run(ctx context.Context, cmd Command) ([]string, error) {
	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir
	// An empty Env inherits the parent environment.
	if len(cmd.Env) > 0 {
		c.Env = cmd.Env.Pairs()
	}

	output, err := c.CombinedOutput()
	return strings.Split(string(output), "\n"), err
}
