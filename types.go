package pyext

import (
	"path/filepath"
	"strings"
	"time"
)

// ExtensionTarget identifies the one native module built per run.
//
// Name is the dotted module path the interpreter imports (for example
// "tiny3d.cpu.pybind"). SourceDir is the root of the native sources,
// normally the directory holding the top-level CMakeLists.txt.
type ExtensionTarget struct {
	Name      string // Dotted module path
	SourceDir string // Root of the native sources
}

// BaseName returns the last dotted component of the module name.
//
// It doubles as the CMake target name and as the stem of the compiled
// module file ("pybind" for "tiny3d.cpu.pybind").
func (t ExtensionTarget) BaseName() string {
	if i := strings.LastIndex(t.Name, "."); i >= 0 {
		return t.Name[i+1:]
	}
	return t.Name
}

// PackageDir returns the package portion of the module name as a relative
// path ("tiny3d/cpu" for "tiny3d.cpu.pybind"). Top-level modules return "".
func (t ExtensionTarget) PackageDir() string {
	i := strings.LastIndex(t.Name, ".")
	if i < 0 {
		return ""
	}
	return filepath.FromSlash(strings.ReplaceAll(t.Name[:i], ".", "/"))
}

// BuildType selects the CMake configuration.
type BuildType string

const (
	BuildTypeDebug   BuildType = "Debug"
	BuildTypeRelease BuildType = "Release"
)

// BuildConfig is the configuration snapshot shared by every phase of a run.
//
// It is produced once by Assemble and passed by value afterwards. Slices and
// maps are copied on construction, so phases cannot observe each other's
// changes.
//
// Paths:
//   - ProjectRoot: directory passed to cmake as the source tree
//   - BuildTemp: per-target working directory for the cmake build tree
//   - OutputDir: directory the installer expects the module in
//   - ExpectedPath: full path the installer expects the module at
//
// Build options:
//   - BuildType: Debug or Release
//   - PreferStatic: link the project's own libraries statically
//   - Generator: cmake generator override, empty for the cmake default
//   - ExtraArgs: raw arguments appended to the configure step verbatim
//   - Architectures: macOS cross-compile architectures (possibly empty)
//   - Parallel: job count for the build step (0 lets cmake decide)
type BuildConfig struct {
	// Paths
	ProjectRoot  string
	BuildTemp    string
	OutputDir    string
	ExpectedPath string

	// Build options
	BuildType        BuildType
	PreferStatic     bool
	Generator        string
	ExtraArgs        []string
	Architectures    []string
	Parallel         int
	PythonExecutable string

	// LibraryPrefix is the naming stem of the project's runtime libraries,
	// used by the dependency sweep (libtiny3d.so, tiny3d.dll).
	LibraryPrefix string

	Verbose bool

	// Env is the environment handed to subprocesses; nil inherits the
	// parent environment.
	Env Environment
}

// ArtifactTier records where in the search order an artifact was found.
type ArtifactTier int

const (
	TierFlavorDir ArtifactTier = iota + 1 // <OutputDir>/<BuildType>
	TierOutputDir                         // <OutputDir>
	TierBuildTemp                         // anywhere below BuildTemp
)

func (t ArtifactTier) String() string {
	switch t {
	case TierFlavorDir:
		return "flavor-dir"
	case TierOutputDir:
		return "output-dir"
	case TierBuildTemp:
		return "build-temp"
	default:
		return "unknown"
	}
}

// BuildArtifact is a compiled module file found by the locator.
type BuildArtifact struct {
	Path string // Absolute path
	Name string // Base filename
	Tier ArtifactTier
}

// DependencyLibrary is a runtime library shipped beside the module.
type DependencyLibrary struct {
	Path string
	Name string
}

// CopyStatus is the result of a single placement copy.
type CopyStatus int

const (
	CopyCopied CopyStatus = iota
	CopySkipped
	CopyFailed
)

func (s CopyStatus) String() string {
	switch s {
	case CopyCopied:
		return "copied"
	case CopySkipped:
		return "skipped"
	case CopyFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// FileCopy describes one copy attempted by the placer.
type FileCopy struct {
	Source string
	Dest   string
	Status CopyStatus
	Err    error // Set when Status is CopyFailed
}

// PlacementOutcome collects the primary artifact copy and the dependency
// sweep of one run.
type PlacementOutcome struct {
	Primary      FileCopy
	Dependencies []FileCopy
}

// Failures returns the dependency copies that failed.
func (o PlacementOutcome) Failures() []FileCopy {
	var failed []FileCopy
	for _, c := range o.Dependencies {
		if c.Status == CopyFailed {
			failed = append(failed, c)
		}
	}
	return failed
}

// RunReport is returned by Orchestrator.Run.
//
// On failure State is StateFailed and FailedIn holds the last state reached
// before the fatal error (StateBuilt for a locate failure, StateLocated for
// a placement failure).
type RunReport struct {
	RunID     string
	State     State
	FailedIn  State
	Artifact  BuildArtifact
	Placement PlacementOutcome
	Duration  time.Duration
}
