package pyext

import (
	"fmt"
	"os/exec"
	"strings"
)

// execLookPath resolves tool names. Tests replace it.
var execLookPath = exec.LookPath

// ToolChecker is implemented by build systems that depend on external tools.
//
// Callers can verify the tools before a run to fail with a clear message
// instead of a configure error:
//
//	if checker, ok := bs.(ToolChecker); ok {
//	    if err := checker.CheckTools(); err != nil {
//	        return fmt.Errorf("build tools missing: %w", err)
//	    }
//	}
type ToolChecker interface {
	// RequiredTools returns the list of tools this build system needs.
	RequiredTools() []ToolRequirement

	// CheckTools returns nil if every non-optional tool is found.
	CheckTools() error
}

// ToolRequirement describes a build tool dependency.
//
// A requirement is satisfied by Name or by any of its Alternatives.
// Optional requirements never cause an error.
type ToolRequirement struct {
	Name         string   // Primary binary name (e.g. "cmake")
	Alternatives []string // Other binaries that satisfy the requirement
	Optional     bool
	Purpose      string // Human-readable reason, used in error messages
}

// ToolStatus is the result of looking up one requirement.
type ToolStatus struct {
	Requirement ToolRequirement
	Found       bool
	Path        string // Resolved path of the tool that satisfied it
}

// CheckToolAvailable checks if a tool is available in the system PATH.
func CheckToolAvailable(tool string) error {
	_, err := execLookPath(tool)
	if err != nil {
		return fmt.Errorf("%s not found in PATH", tool)
	}
	return nil
}

// LookupTools resolves every requirement without failing.
func LookupTools(requirements []ToolRequirement) []ToolStatus {
	statuses := make([]ToolStatus, 0, len(requirements))
	for _, req := range requirements {
		status := ToolStatus{Requirement: req}
		for _, name := range append([]string{req.Name}, req.Alternatives...) {
			if path, err := execLookPath(name); err == nil {
				status.Found = true
				status.Path = path
				break
			}
		}
		statuses = append(statuses, status)
	}
	return statuses
}

// CheckRequiredTools verifies all required tools are available.
//
// # Parameters
//
//   - requirements: Tools to look up; a requirement is satisfied by its Name
//     or any of its Alternatives
//
// # Returns
//
// nil when every non-optional requirement is found. Otherwise an error
// naming the missing tools, with their Purpose when set.
//
// Single missing tool:
//
//	cmake (CMake build system) not found in PATH
//
// Multiple missing tools:
//
//	missing required tools: cmake (CMake build system), c++ (C++ compiler)
//
// # Example
//
//	if err := pyext.CheckRequiredTools(invoker.RequiredTools()); err != nil {
//	    return fmt.Errorf("build tools missing: %w", err)
//	}
//
// # Thread Safety
//
// This function is thread-safe and can be called concurrently.
func CheckRequiredTools(requirements []ToolRequirement) error {
	var missingTools []string

	for _, status := range LookupTools(requirements) {
		req := status.Requirement
		if status.Found || req.Optional {
			continue
		}
		if req.Purpose != "" {
			missingTools = append(missingTools, fmt.Sprintf("%s (%s)", req.Name, req.Purpose))
		} else {
			missingTools = append(missingTools, req.Name)
		}
	}

	if len(missingTools) == 0 {
		return nil
	}

	if len(missingTools) == 1 {
		return fmt.Errorf("%s not found in PATH", missingTools[0])
	}

	return fmt.Errorf("missing required tools: %s", strings.Join(missingTools, ", "))
}
