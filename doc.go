// Package pyext builds the native extension module of a Python package with
// CMake and places it where the packaging toolchain expects it.
//
// This package is the Go counterpart of a setuptools build_ext/bdist_wheel
// customization for a project with exactly one compiled module.
//
// # Pipeline
//
// A run assembles one immutable configuration and walks it through four
// phases:
//
//	Assemble            environment + caller intent -> BuildConfig
//	CMakeInvoker        cmake configure, cmake --build --target <module>
//	Locate              search <out>/<BuildType>, <out>, then build-temp
//	Place               copy the module, then sweep runtime libraries
//
// Two phases are independent of the build and run from their own commands:
//   - RewriteTag / RetagWheel correct a wheel's platform tag
//   - ResolveInstallPaths installs pure and compiled files into one directory
//
// # Basic Usage
//
//	project, err := pyext.LoadProject("pyext.toml")
//	if err != nil {
//	    return err
//	}
//	cfg, err := pyext.Assemble(project.AssembleOptions(suffix), pyext.EnvironmentFromOS())
//	if err != nil {
//	    return err
//	}
//	orch := pyext.NewOrchestrator(pyext.NewCMakeInvoker(logger), logger)
//	report, err := orch.Run(ctx, project.Target(), cfg)
//
// # Errors
//
// Fatal failures match ErrConfigureFailed, ErrBuildFailed,
// ErrArtifactNotFound or ErrPlacementFailed. Nothing is retried: native
// builds are fixed by correcting the input and running again. Runtime
// library copy failures are reported in PlacementOutcome and only logged.
//
// # Platform Support
//
// Linux, macOS (including ARCHFLAGS cross builds) and Windows (.pyd
// modules, .dll runtime libraries).
package pyext
