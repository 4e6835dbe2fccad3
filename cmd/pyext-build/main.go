package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/magefile/mage/sh"
)

// CLI is the command-line interface of pyext-build.
type CLI struct {
	Verbose bool `short:"v" help:"Enable verbose logging and build output"`
	NoColor bool `help:"Disable colored output"`

	BuildExt BuildExtCmd `cmd:"" name:"build-ext" help:"Build the compiled extension and place it for the installer"`
	Install  InstallCmd  `cmd:"" help:"Install the package into a single library directory"`
	Retag    RetagCmd    `cmd:"" help:"Rewrite the platform tag of a built wheel"`
	Doctor   DoctorCmd   `cmd:"" help:"Check that the build tools are available"`
}

// BuildExtCmd builds the extension declared in the project file.
type BuildExtCmd struct {
	Project      string `short:"p" help:"Project file (pyext.toml or pyext.yaml); searched in the working directory when empty"`
	ExtSuffix    string `help:"Compiled module suffix expected by the installer" env:"EXT_SUFFIX"`
	ExpectedPath string `help:"Full path the installer expects the module at (overrides the project layout)"`
	Debug        bool   `help:"Build the Debug configuration (overrides DEBUG)"`
	Jobs         int    `short:"j" help:"Parallel build jobs (overrides CMAKE_BUILD_PARALLEL_LEVEL)"`
	EnvFile      string `help:"Dotenv file merged under the process environment" type:"existingfile"`
	StrictDeps   bool   `help:"Fail when a runtime library cannot be copied"`
}

// InstallCmd installs a package directory.
type InstallCmd struct {
	Platlib     string `required:"" help:"Platform library directory"`
	Purelib     string `help:"Pure library directory (ignored, forced to --platlib)"`
	PackageDir  string `required:"" help:"Package directory to install" type:"existingdir"`
	PackageName string `help:"Installed package name (defaults to the directory name)"`
}

// RetagCmd rewrites a wheel's tags.
type RetagCmd struct {
	Wheel     string `arg:"" help:"Wheel file to retag" type:"existingfile"`
	PythonTag string `help:"Interpreter tag used when the wheel is pure (e.g. cp310)"`
	Machine   string `help:"Machine name override (e.g. x86_64, arm64); defaults to the architecture this binary was built for"`
}

// DoctorCmd reports build tool availability.
type DoctorCmd struct{}

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("pyext-build"),
		kong.Description("Build and package the native extension of a Python project."),
		kong.UsageOnError(),
	)

	level := slog.LevelInfo
	if cli.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	out := NewOutput()
	out.SetNoColor(cli.NoColor)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &app{logger: logger, out: out, verbose: cli.Verbose}

	var err error
	switch kctx.Command() {
	case "build-ext":
		err = app.buildExt(ctx, &cli.BuildExt)
	case "install":
		err = app.install(&cli.Install)
	case "retag <wheel>":
		err = app.retag(&cli.Retag)
	case "doctor":
		err = app.doctor()
	default:
		err = kctx.PrintUsage(false)
	}

	if err != nil {
		out.Error("%v", err)
		stop()
		os.Exit(sh.ExitStatus(err))
	}
}
