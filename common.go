package pyext

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// State is a step of the per-run state machine:
//
//	NotConfigured -> Configuring -> Configured -> Building -> Built
//	    -> Located -> Placed -> Done
//
// Any fatal error moves the run to Failed, which is terminal.
type State int

const (
	StateNotConfigured State = iota
	StateConfiguring
	StateConfigured
	StateBuilding
	StateBuilt
	StateLocated
	StatePlaced
	StateDone
	StateFailed
)

var stateNames = map[State]string{
	StateNotConfigured: "not-configured",
	StateConfiguring:   "configuring",
	StateConfigured:    "configured",
	StateBuilding:      "building",
	StateBuilt:         "built",
	StateLocated:       "located",
	StatePlaced:        "placed",
	StateDone:          "done",
	StateFailed:        "failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Orchestrator runs configure, build, locate and place for one target.
//
// # Usage
//
//	cfg, err := pyext.Assemble(opts, pyext.EnvironmentFromOS())
//	if err != nil {
//	    return err
//	}
//	orch := pyext.NewOrchestrator(pyext.NewCMakeInvoker(logger), logger)
//	report, err := orch.Run(ctx, target, cfg)
//
// Run is not safe for concurrent use on the same build tree; the design
// assumes one target per process.
type Orchestrator struct {
	BuildSystem BuildSystem
	Logger      *slog.Logger

	// StrictDependencies turns a failed dependency copy into a fatal
	// ErrPlacementFailed instead of a warning.
	StrictDependencies bool

	now func() time.Time
}

// NewOrchestrator creates an orchestrator around a build system.
func NewOrchestrator(bs BuildSystem, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{BuildSystem: bs, Logger: logger, now: time.Now}
}

// run tracks the state of a single Run call.
type run struct {
	report *RunReport
	logger *slog.Logger
}

func (r *run) advance(next State) {
	r.report.State = next
	r.logger.Debug("state transition", StateAttr(next))
}

func (r *run) fail(err error) error {
	r.report.FailedIn = r.report.State
	r.report.State = StateFailed
	r.logger.Error("orchestration failed", Stage(r.report.FailedIn.String()), Error(err))
	return err
}

// Run executes the full pipeline for target with cfg.
//
// The returned report is always populated with the final state. The error is
// non-nil exactly when the state is StateFailed.
func (o *Orchestrator) Run(ctx context.Context, target ExtensionTarget, cfg BuildConfig) (*RunReport, error) {
	now := o.now
	if now == nil {
		now = time.Now
	}
	logger := o.Logger
	if logger == nil {
		logger = slog.Default()
	}

	report := &RunReport{RunID: uuid.NewString(), State: StateNotConfigured}
	logger = logger.With(RunID(report.RunID), Target(target.Name))
	r := &run{report: report, logger: logger}

	start := now()
	defer func() { report.Duration = now().Sub(start) }()

	if o.BuildSystem == nil {
		return report, r.fail(errors.New("no build system configured"))
	}

	r.advance(StateConfiguring)
	if err := o.BuildSystem.Configure(ctx, target, cfg); err != nil {
		return report, r.fail(err)
	}
	r.advance(StateConfigured)

	r.advance(StateBuilding)
	if err := o.BuildSystem.Build(ctx, target, cfg); err != nil {
		return report, r.fail(err)
	}
	r.advance(StateBuilt)

	artifact, err := Locate(target, cfg)
	if err != nil {
		return report, r.fail(err)
	}
	report.Artifact = artifact
	r.advance(StateLocated)

	if cfg.Verbose {
		logger.Info("selected artifact",
			Path(artifact.Path), Tier(artifact.Tier), Dest(cfg.ExpectedPath))
	}

	primary, err := Place(artifact, cfg.ExpectedPath)
	report.Placement.Primary = primary
	if err != nil {
		return report, r.fail(err)
	}
	if primary.Status == CopySkipped {
		logger.Debug("artifact already in place", Path(cfg.ExpectedPath))
	}

	report.Placement.Dependencies = SweepDependencies(
		filepath.Dir(artifact.Path), filepath.Dir(cfg.ExpectedPath), cfg.LibraryPrefix, artifact.Path)
	for _, dep := range report.Placement.Failures() {
		logger.Warn("failed to copy runtime dependency", Path(dep.Source), Dest(dep.Dest), Error(dep.Err))
	}
	if failures := report.Placement.Failures(); o.StrictDependencies && len(failures) > 0 {
		first := failures[0]
		return report, r.fail(&PlacementError{Source: first.Source, Dest: first.Dest, Err: first.Err})
	}
	r.advance(StatePlaced)

	r.advance(StateDone)
	logger.Info("extension placed", Path(cfg.ExpectedPath),
		slog.Int("dependencies", len(report.Placement.Dependencies)),
		DurationMS(now().Sub(start).Milliseconds()))
	return report, nil
}
