package pyext

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/magefile/mage/sh"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const helperEnv = "PYEXT_WANT_HELPER_PROCESS"

// TestRunnerHelperProcess is run as a subprocess by the runner tests. It
// prints the value of PYEXT_RUNNER_VALUE.
func TestRunnerHelperProcess(t *testing.T) {
	if os.Getenv(helperEnv) != "1" {
		return
	}
	fmt.Printf("value=%s\n", os.Getenv("PYEXT_RUNNER_VALUE"))
	os.Exit(0)
}

func helperCommand(env Environment) Command {
	return Command{
		Name: os.Args[0],
		Args: []string{"-test.run=TestRunnerHelperProcess"},
		Env:  env,
	}
}

func TestExecRunnerInheritsEnvironmentWhenEmpty(t *testing.T) {
	t.Setenv(helperEnv, "1")
	t.Setenv("PYEXT_RUNNER_VALUE", "inherited")

	cfg, err := Assemble(baseOptions(), nil)
	require.NoError(t, err)
	assert.Nil(t, cfg.Env)

	for _, env := range []Environment{cfg.Env, {}} {
		output, err := ExecRunner{}.Run(context.Background(), helperCommand(env))
		require.NoError(t, err, strings.Join(output, "\n"))
		assert.Contains(t, output, "value=inherited")
	}
}

func TestExecRunnerPassesSnapshot(t *testing.T) {
	t.Setenv("PYEXT_RUNNER_VALUE", "parent")

	env := Environment{helperEnv: "1", "PYEXT_RUNNER_VALUE": "snapshot"}
	output, err := ExecRunner{}.Run(context.Background(), helperCommand(env))
	require.NoError(t, err, strings.Join(output, "\n"))
	assert.Contains(t, output, "value=snapshot")
}

func TestExecRunnerReportsExitStatus(t *testing.T) {
	_, err := ExecRunner{}.Run(context.Background(), Command{Name: os.Args[0], Args: []string{"-test.run=^$", "-test.count=bogus"}})
	require.Error(t, err)
	assert.Equal(t, 2, sh.ExitStatus(err), "flag parse errors exit with status 2")
}
