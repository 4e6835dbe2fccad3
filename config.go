package pyext

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
)

// Environment variables read by Assemble.
const (
	EnvDebug         = "DEBUG"
	EnvGenerator     = "CMAKE_GENERATOR"
	EnvCMakeArgs     = "CMAKE_ARGS"
	EnvParallelLevel = "CMAKE_BUILD_PARALLEL_LEVEL"
	EnvArchFlags     = "ARCHFLAGS"
	EnvVerbose       = "VERBOSE"
	EnvMacOSTarget   = "MACOSX_DEPLOYMENT_TARGET"
)

// Environment is a snapshot of environment variables.
type Environment map[string]string

// EnvironmentFromOS snapshots the process environment.
func EnvironmentFromOS() Environment {
	env := make(Environment)
	for _, kv := range os.Environ() {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			continue
		}
		env[key] = value
	}
	return env
}

// Get returns the value of key, or "" when unset.
func (e Environment) Get(key string) string {
	return e[key]
}

// Truthy reports whether key is set to 1, true, yes or on.
func (e Environment) Truthy(key string) bool {
	switch strings.ToLower(strings.TrimSpace(e[key])) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// Merge returns a copy of e with the entries of other added. Entries already
// present in e win.
func (e Environment) Merge(other Environment) Environment {
	merged := e.Clone()
	for key, value := range other {
		if _, ok := merged[key]; !ok {
			merged[key] = value
		}
	}
	return merged
}

// Clone returns an independent copy.
func (e Environment) Clone() Environment {
	clone := make(Environment, len(e))
	for key, value := range e {
		clone[key] = value
	}
	return clone
}

// Pairs returns the environment as sorted KEY=VALUE strings for exec.Cmd.
func (e Environment) Pairs() []string {
	pairs := make([]string, 0, len(e))
	for key, value := range e {
		pairs = append(pairs, key+"="+value)
	}
	sort.Strings(pairs)
	return pairs
}

// AssembleOptions carries the caller's intent for one run.
type AssembleOptions struct {
	Target ExtensionTarget

	// ExpectedPath is where the installer expects the compiled module.
	ExpectedPath string
	BuildTemp    string
	ProjectRoot  string

	// Debug overrides the DEBUG environment flag when non-nil.
	Debug *bool
	// Jobs overrides CMAKE_BUILD_PARALLEL_LEVEL when positive.
	Jobs int

	Verbose          bool
	PythonExecutable string
	LibraryPrefix    string

	// SharedLibs disables the static linking preference.
	SharedLibs bool

	// GOOS selects platform-specific parsing; runtime.GOOS when empty.
	GOOS string
}

// Assemble builds the configuration snapshot for a run.
//
// It has no side effects: nothing is read from the process environment or
// the filesystem, so the same inputs always give the same snapshot.
//
// # Parameters
//
//   - opts: Caller intent; Target.Name, ExpectedPath, BuildTemp and
//     ProjectRoot are required
//   - env: Environment snapshot, usually EnvironmentFromOS() merged with a
//     dotenv file; may be nil
//
// # Returns
//
// A BuildConfig resolved as follows:
//   - build type: opts.Debug, then DEBUG, then Release
//   - output directory: the directory of opts.ExpectedPath
//   - parallelism: opts.Jobs, then CMAKE_BUILD_PARALLEL_LEVEL, then unset
//   - architectures: "-arch <name>" pairs from ARCHFLAGS, darwin only
//   - extra arguments: CMAKE_ARGS split on whitespace, unvalidated
//   - Env: a copy of env, or nil when env is empty so subprocesses
//     inherit the parent environment
//
// An error is returned only when a required option is missing.
//
// # Example
//
//	cfg, err := pyext.Assemble(project.AssembleOptions(".so"), pyext.EnvironmentFromOS())
//	if err != nil {
//	    return err
//	}
//
// # Thread Safety
//
// Assemble is a pure function and safe to call concurrently. env is only
// read.
func Assemble(opts AssembleOptions, env Environment) (BuildConfig, error) {
	if opts.Target.Name == "" {
		return BuildConfig{}, errors.New("extension target name is required")
	}
	if opts.ExpectedPath == "" {
		return BuildConfig{}, errors.New("expected extension path is required")
	}
	if opts.BuildTemp == "" {
		return BuildConfig{}, errors.New("build temp directory is required")
	}
	if opts.ProjectRoot == "" {
		return BuildConfig{}, errors.New("project root is required")
	}

	goos := opts.GOOS
	if goos == "" {
		goos = runtime.GOOS
	}

	buildType := BuildTypeRelease
	debug := env.Truthy(EnvDebug)
	if opts.Debug != nil {
		debug = *opts.Debug
	}
	if debug {
		buildType = BuildTypeDebug
	}

	parallel := opts.Jobs
	if parallel <= 0 {
		parallel = parsePositiveInt(env.Get(EnvParallelLevel))
	}

	var archs []string
	if goos == platformDarwin {
		archs = ParseArchFlags(env.Get(EnvArchFlags))
	}

	prefix := opts.LibraryPrefix
	if prefix == "" {
		prefix = rootPackage(opts.Target.Name)
	}

	return BuildConfig{
		ProjectRoot:      filepath.Clean(opts.ProjectRoot),
		BuildTemp:        filepath.Clean(opts.BuildTemp),
		OutputDir:        filepath.Dir(filepath.Clean(opts.ExpectedPath)),
		ExpectedPath:     filepath.Clean(opts.ExpectedPath),
		BuildType:        buildType,
		PreferStatic:     !opts.SharedLibs,
		Generator:        env.Get(EnvGenerator),
		ExtraArgs:        strings.Fields(env.Get(EnvCMakeArgs)),
		Architectures:    archs,
		Parallel:         parallel,
		PythonExecutable: opts.PythonExecutable,
		LibraryPrefix:    prefix,
		Verbose:          opts.Verbose || env.Truthy(EnvVerbose),
		Env:              snapshot(env),
	}, nil
}

// ParseArchFlags extracts every "-arch <name>" pair from flags.
// A trailing "-arch" without a name is ignored and repeats are dropped.
func ParseArchFlags(flags string) []string {
	var archs []string
	fields := strings.Fields(flags)
	for i := 0; i < len(fields)-1; i++ {
		if fields[i] == "-arch" {
			archs = append(archs, fields[i+1])
			i++
		}
	}
	return uniqueStrings(archs)
}

// snapshot copies env for subprocesses. An empty environment stays nil so
// subprocesses inherit the parent's.
func snapshot(env Environment) Environment {
	if len(env) == 0 {
		return nil
	}
	return env.Clone()
}

func parsePositiveInt(value string) int {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n <= 0 {
		return 0
	}
	return n
}

func rootPackage(name string) string {
	root, _, _ := strings.Cut(name, ".")
	return root
}
