package pyext

import (
	"fmt"
	"runtime"
	"strings"
)

// Platform constants
const (
	platformLinux   = "linux"
	platformDarwin  = "darwin"
	platformWindows = "windows"
)

const (
	manylinuxX86_64 = "manylinux2014_x86_64"
	universal2      = "universal2"
	defaultMacOS    = "11.0"
)

// Tag is the python/abi/platform compatibility triple of a wheel.
type Tag struct {
	Python   string
	ABI      string
	Platform string
}

func (t Tag) String() string {
	return t.Python + "-" + t.ABI + "-" + t.Platform
}

// IsPure reports whether the tag describes an interpreter-only package.
func (t Tag) IsPure() bool {
	return t.Platform == "any"
}

// ParseTag parses "python-abi-platform".
func ParseTag(s string) (Tag, error) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return Tag{}, fmt.Errorf("invalid wheel tag %q", s)
	}
	return Tag{Python: parts[0], ABI: parts[1], Platform: parts[2]}, nil
}

// Host describes the machine a wheel is built for.
//
// OS uses Go's names (linux, darwin, windows). Machine uses the names the
// interpreter reports (x86_64, aarch64, arm64, AMD64); NormalizeMachine
// converts Go architecture names.
type Host struct {
	OS      string
	Machine string

	// PythonTag replaces the interpreter and ABI tags of a pure wheel
	// (for example "cp310").
	PythonTag string

	// MacOSTarget is the deployment target used when a pure wheel needs a
	// macOS platform tag, "11.0" when empty.
	MacOSTarget string
}

// DetectHost describes the running machine.
//
// Machine comes from runtime.GOARCH, the architecture this binary was built
// for. An amd64 binary running under Rosetta on Apple silicon reports
// x86_64; pass the machine explicitly (pyext-build retag --machine) when
// the two differ.
func DetectHost(env Environment) Host {
	return Host{
		OS:          runtime.GOOS,
		Machine:     NormalizeMachine(runtime.GOOS, runtime.GOARCH),
		MacOSTarget: env.Get(EnvMacOSTarget),
	}
}

// NormalizeMachine maps a Go architecture name to the machine name Python
// reports on goos. Unknown names pass through.
func NormalizeMachine(goos, arch string) string {
	switch arch {
	case "amd64", "x86_64":
		if goos == platformWindows {
			return "AMD64"
		}
		return "x86_64"
	case "arm64", "aarch64":
		if goos == platformLinux {
			return "aarch64"
		}
		return "arm64"
	case "386":
		return "i686"
	default:
		return arch
	}
}

// RewriteTag corrects a wheel tag for a package that contains a compiled
// module built for host.
//
// The result is always platform-specific. On Linux a plain linux_x86_64 tag
// is labelled manylinux2014_x86_64; other architectures keep their tag since
// no broad compatibility is claimed for them. On macOS a macosx_*_universal2
// tag is narrowed to the single architecture that was built. Tags for
// another platform, and manylinux tags that are already set, pass through.
// The function is pure.
func RewriteTag(tag Tag, host Host) Tag {
	out := tag
	if out.IsPure() {
		out = platformTag(out, host)
	}

	switch host.OS {
	case platformLinux:
		if strings.HasPrefix(out.Platform, "linux_") && isX86_64(host.Machine) {
			out.Platform = manylinuxX86_64
		}
	case platformDarwin, "macos":
		if strings.HasPrefix(out.Platform, "macosx_") && strings.Contains(out.Platform, universal2) && host.Machine != "" {
			out.Platform = strings.ReplaceAll(out.Platform, universal2, NormalizeMachine(platformDarwin, host.Machine))
		}
	}

	return out
}

// platformTag turns a pure tag into one bound to host.
func platformTag(tag Tag, host Host) Tag {
	out := tag
	if host.PythonTag != "" {
		out.Python = host.PythonTag
		out.ABI = host.PythonTag
	}
	out.Platform = hostPlatform(host)
	return out
}

func hostPlatform(host Host) string {
	machine := host.Machine
	switch host.OS {
	case platformDarwin, "macos":
		target := host.MacOSTarget
		if target == "" {
			target = defaultMacOS
		}
		target = strings.NewReplacer(".", "_", "-", "_").Replace(target)
		if !strings.Contains(target, "_") {
			target += "_0"
		}
		return "macosx_" + target + "_" + NormalizeMachine(platformDarwin, machine)
	case platformWindows:
		switch NormalizeMachine(platformWindows, machine) {
		case "AMD64":
			return "win_amd64"
		case "arm64":
			return "win_arm64"
		default:
			return "win32"
		}
	default:
		return strings.ReplaceAll(host.OS+"_"+machine, "-", "_")
	}
}

func isX86_64(machine string) bool {
	switch strings.ToLower(machine) {
	case "x86_64", "amd64":
		return true
	default:
		return false
	}
}
