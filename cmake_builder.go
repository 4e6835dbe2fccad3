package pyext

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/magefile/mage/sh"
)

// cmakeCacheFile is the cache cmake writes into every build tree. It records
// absolute paths, so a copy surviving a relocation poisons the next configure.
const cmakeCacheFile = "CMakeCache.txt"

// removeFile deletes a path, ignoring paths that do not exist.
var removeFile = sh.Rm

// CMakeInvoker runs the configure and build steps of cmake.
//
// Both steps are synchronous. No timeout is applied here; a hung compiler
// blocks the run until the caller's context ends.
type CMakeInvoker struct {
	Runner CommandRunner
	Logger *slog.Logger

	// CMake is the cmake executable, "cmake" when empty.
	CMake string
}

// NewCMakeInvoker creates an invoker that runs cmake from PATH.
func NewCMakeInvoker(logger *slog.Logger) *CMakeInvoker {
	if logger == nil {
		logger = slog.Default()
	}
	return &CMakeInvoker{Runner: ExecRunner{}, Logger: logger}
}

// Name returns the build system name
func (b *CMakeInvoker) Name() string {
	return "CMake"
}

// RequiredTools returns the tools needed for cmake builds
func (b *CMakeInvoker) RequiredTools() []ToolRequirement {
	return []ToolRequirement{
		{
			Name:    b.cmakeProgram(),
			Purpose: "CMake build system",
		},
		{
			Name:         "c++",
			Alternatives: []string{"g++", "clang++", "cl"},
			Purpose:      "C++ compiler",
		},
		{
			Name:     "ninja",
			Optional: true,
			Purpose:  "Ninja generator",
		},
	}
}

// CheckTools verifies that cmake and a C++ compiler are available
func (b *CMakeInvoker) CheckTools() error {
	return CheckRequiredTools(b.RequiredTools())
}

// Configure generates the build tree for target in cfg.BuildTemp.
//
// Stale cache files in the build-temp directory and the project root are
// removed before cmake starts. A non-zero exit yields ErrConfigureFailed.
func (b *CMakeInvoker) Configure(ctx context.Context, target ExtensionTarget, cfg BuildConfig) error {
	for _, dir := range []string{cfg.BuildTemp, cfg.ProjectRoot} {
		cache := filepath.Join(dir, cmakeCacheFile)
		if err := removeFile(cache); err != nil {
			return fmt.Errorf("%w: remove stale %s: %v", ErrConfigureFailed, cache, err)
		}
	}

	if err := os.MkdirAll(cfg.BuildTemp, 0o755); err != nil {
		return fmt.Errorf("%w: create build directory %s: %v", ErrConfigureFailed, cfg.BuildTemp, err)
	}

	cmd := Command{
		Name: b.cmakeProgram(),
		Args: configureArgs(target, cfg),
		Dir:  cfg.BuildTemp,
		Env:  cfg.Env,
	}
	return b.run(ctx, ErrConfigureFailed, cmd, cfg.Verbose)
}

// Build compiles the single extension target. A non-zero exit yields
// ErrBuildFailed.
func (b *CMakeInvoker) Build(ctx context.Context, target ExtensionTarget, cfg BuildConfig) error {
	cmd := Command{
		Name: b.cmakeProgram(),
		Args: buildArgs(target, cfg),
		Dir:  cfg.BuildTemp,
		Env:  cfg.Env,
	}
	return b.run(ctx, ErrBuildFailed, cmd, cfg.Verbose)
}

func (b *CMakeInvoker) run(ctx context.Context, kind error, cmd Command, verbose bool) error {
	logger := b.logger()
	logger.Info("running cmake", Stage(phaseName(kind)), Dir(cmd.Dir))
	if verbose {
		logger.Debug("command line", slog.String(KeyCommand, cmd.String()))
	}

	output, err := b.Runner.Run(ctx, cmd)
	if verbose {
		for _, line := range output {
			if strings.TrimSpace(line) != "" {
				logger.Debug(line, Stage(phaseName(kind)))
			}
		}
	}
	if err != nil {
		return newCommandError(kind, cmd.Name, cmd.Args, cmd.Dir, output, err)
	}
	return nil
}

func (b *CMakeInvoker) cmakeProgram() string {
	if b.CMake != "" {
		return b.CMake
	}
	return "cmake"
}

func (b *CMakeInvoker) logger() *slog.Logger {
	if b.Logger != nil {
		return b.Logger
	}
	return slog.Default()
}

// configureArgs derives the configure command line from cfg.
func configureArgs(target ExtensionTarget, cfg BuildConfig) []string {
	sourceDir := cfg.ProjectRoot
	if target.SourceDir != "" {
		sourceDir = target.SourceDir
	}

	args := []string{
		sourceDir,
		"-DCMAKE_LIBRARY_OUTPUT_DIRECTORY=" + cfg.OutputDir,
		"-DCMAKE_BUILD_TYPE=" + string(cfg.BuildType),
		"-DBUILD_PYTHON_MODULE=ON",
		"-DBUILD_UNIT_TESTS=OFF",
		"-DBUILD_BENCHMARKS=OFF",
		"-DBUILD_SHARED_LIBS=" + onOff(!cfg.PreferStatic),
	}

	if cfg.PythonExecutable != "" {
		args = append(args, "-DPython3_EXECUTABLE="+cfg.PythonExecutable)
	}

	if cfg.Generator != "" {
		args = append(args, "-G", cfg.Generator)
	}

	if len(cfg.Architectures) > 0 {
		args = append(args, "-DCMAKE_OSX_ARCHITECTURES="+strings.Join(cfg.Architectures, ";"))
	}

	return append(args, cfg.ExtraArgs...)
}

// buildArgs derives the build command line from cfg.
func buildArgs(target ExtensionTarget, cfg BuildConfig) []string {
	args := []string{
		"--build", ".",
		"--target", target.BaseName(),
		"--config", string(cfg.BuildType),
	}

	if cfg.Parallel > 0 {
		args = append(args, "-j", fmt.Sprintf("%d", cfg.Parallel))
	}

	return args
}

func onOff(v bool) string {
	if v {
		return "ON"
	}
	return "OFF"
}

func phaseName(kind error) string {
	if kind == ErrBuildFailed {
		return "build"
	}
	return "configure"
}
