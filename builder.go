package pyext

import "context"

// BuildSystem is the external native build system driven by the
// orchestrator.
//
// CMakeInvoker is the implementation used in production; tests supply fakes
// that record calls and deposit artifacts.
//
// # Contract
//
//  1. Configure prepares a build tree for the target in cfg.BuildTemp
//  2. Build compiles the single extension target
//
// Both calls block until the external process exits. Failures are returned
// as errors matching ErrConfigureFailed or ErrBuildFailed.
type BuildSystem interface {
	// Name returns the human-readable name used in logs.
	Name() string

	// Configure generates the build tree. It must remove stale cache files
	// before the external tool starts.
	Configure(ctx context.Context, target ExtensionTarget, cfg BuildConfig) error

	// Build compiles the extension target.
	Build(ctx context.Context, target ExtensionTarget, cfg BuildConfig) error
}

var _ BuildSystem = (*CMakeInvoker)(nil)
