package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"

	pyext "github.com/contriboss/python-extension-go"
)

type app struct {
	logger  *slog.Logger
	out     *Output
	verbose bool

	// env and buildSystem are replaced in tests.
	env         pyext.Environment
	buildSystem pyext.BuildSystem
}

func (a *app) environment() pyext.Environment {
	if a.env != nil {
		return a.env
	}
	return pyext.EnvironmentFromOS()
}

func defaultExtSuffix() string {
	if runtime.GOOS == "windows" {
		return ".pyd"
	}
	return ".so"
}

func (a *app) buildExt(ctx context.Context, cmd *BuildExtCmd) error {
	projectPath := cmd.Project
	if projectPath == "" {
		wd, err := os.Getwd()
		if err != nil {
			return err
		}
		if projectPath, err = pyext.FindProject(wd); err != nil {
			return err
		}
	}

	project, err := pyext.LoadProject(projectPath)
	if err != nil {
		return err
	}

	env := a.environment()
	if cmd.EnvFile != "" {
		fileEnv, err := pyext.LoadEnvFile(cmd.EnvFile)
		if err != nil {
			return err
		}
		env = env.Merge(fileEnv)
	}

	suffix := cmd.ExtSuffix
	if suffix == "" {
		suffix = defaultExtSuffix()
	}

	opts := project.AssembleOptions(suffix)
	opts.Jobs = cmd.Jobs
	opts.Verbose = a.verbose
	if cmd.Debug {
		debug := true
		opts.Debug = &debug
	}
	if cmd.ExpectedPath != "" {
		abs, err := filepath.Abs(cmd.ExpectedPath)
		if err != nil {
			return err
		}
		opts.ExpectedPath = abs
	}

	cfg, err := pyext.Assemble(opts, env)
	if err != nil {
		return err
	}

	bs := a.buildSystem
	if bs == nil {
		bs = pyext.NewCMakeInvoker(a.logger)
	}
	if checker, ok := bs.(pyext.ToolChecker); ok {
		if err := checker.CheckTools(); err != nil {
			return fmt.Errorf("%w: %v", pyext.ErrConfigureFailed, err)
		}
	}
	if cfg.PythonExecutable != "" {
		if err := pyext.CheckToolAvailable(cfg.PythonExecutable); err != nil {
			return fmt.Errorf("%w: %v", pyext.ErrConfigureFailed, err)
		}
	}

	orch := pyext.NewOrchestrator(bs, a.logger)
	orch.StrictDependencies = cmd.StrictDeps

	report, err := orch.Run(ctx, project.Target(), cfg)
	if err != nil {
		return err
	}

	for _, dep := range report.Placement.Failures() {
		a.out.Warn("runtime library %s was not copied: %v", dep.Source, dep.Err)
	}
	a.out.Success("%s -> %s (%s)", report.Artifact.Name, cfg.ExpectedPath, report.Placement.Primary.Status)
	return nil
}

func (a *app) install(cmd *InstallCmd) error {
	layout := pyext.ResolveInstallPaths(pyext.InstallLayout{
		PureLib: cmd.Purelib,
		PlatLib: cmd.Platlib,
	})
	if cmd.Purelib != "" && cmd.Purelib != layout.PureLib {
		a.logger.Debug("pure library directory overridden", slog.String("purelib", cmd.Purelib), pyext.Dest(layout.PureLib))
	}

	installed, err := pyext.InstallPackage(layout, cmd.PackageDir, cmd.PackageName)
	if err != nil {
		return err
	}

	copied := 0
	for _, f := range installed {
		if f.Status == pyext.CopyCopied {
			copied++
		}
	}
	a.out.Success("installed %d files into %s (%d unchanged)", copied, layout.Lib, len(installed)-copied)
	return nil
}

func (a *app) retag(cmd *RetagCmd) error {
	host := pyext.DetectHost(a.environment())
	host.PythonTag = cmd.PythonTag
	if cmd.Machine != "" {
		host.Machine = pyext.NormalizeMachine(host.OS, cmd.Machine)
	}

	newPath, err := pyext.RetagWheel(cmd.Wheel, host)
	if err != nil {
		return err
	}
	if newPath == cmd.Wheel {
		a.out.Info("%s already carries the correct tags", filepath.Base(newPath))
		return nil
	}
	a.out.Success("%s -> %s", filepath.Base(cmd.Wheel), filepath.Base(newPath))
	return nil
}

func (a *app) doctor() error {
	invoker := pyext.NewCMakeInvoker(a.logger)
	for _, status := range pyext.LookupTools(invoker.RequiredTools()) {
		req := status.Requirement
		switch {
		case status.Found:
			a.out.Success("%s: %s", req.Purpose, status.Path)
		case req.Optional:
			a.out.Warn("%s: %s not found (optional)", req.Purpose, req.Name)
		default:
			a.out.Error("%s: %s not found", req.Purpose, req.Name)
		}
	}
	return invoker.CheckTools()
}
