package pyext

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// fakeRunner records commands instead of executing them.
type fakeRunner struct {
	calls []Command
	onRun func(cmd Command) ([]string, error)
}

func (f *fakeRunner) Run(_ context.Context, cmd Command) ([]string, error) {
	f.calls = append(f.calls, cmd)
	if f.onRun != nil {
		return f.onRun(cmd)
	}
	return nil, nil
}

// exitError mimics a process that exited with a status.
type exitError int

func (e exitError) Error() string   { return fmt.Sprintf("exit status %d", int(e)) }
func (e exitError) ExitStatus() int { return int(e) }

func writeTestFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("failed to create %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

func TestMatchesPattern(t *testing.T) {
	testCases := []struct {
		filename string
		patterns []string
		expected bool
	}{
		{"libtiny3d.so", []string{`\.so(\.[0-9]+)*$`}, true},
		{"libtiny3d.so.1.2", []string{`\.so(\.[0-9]+)*$`}, true},
		{"libtiny3d.so.debug", []string{`\.so(\.[0-9]+)*$`}, false},
		{"CMakeLists.txt", []string{`\.so$`, `CMakeLists\.txt$`}, true},
		{"unknown.file", []string{`\.so$`, `\.pyd$`}, false},
	}

	for _, tc := range testCases {
		t.Run(tc.filename, func(t *testing.T) {
			result := MatchesPattern(tc.filename, tc.patterns...)
			if result != tc.expected {
				t.Errorf("MatchesPattern(%s, %v) = %v, expected %v",
					tc.filename, tc.patterns, result, tc.expected)
			}
		})
	}
}

func TestMatchesExtension(t *testing.T) {
	testCases := []struct {
		filename   string
		extensions []string
		expected   bool
	}{
		{"tiny3d.dll", []string{".dll"}, true},
		{"TINY3D.DLL", []string{".dll"}, true},
		{"libtiny3d.dylib", []string{".so", ".dylib"}, true},
		{"pybind.pyd", []string{".so", ".dylib"}, false},
		{"noext", []string{".so"}, false},
	}

	for _, tc := range testCases {
		t.Run(tc.filename, func(t *testing.T) {
			result := MatchesExtension(tc.filename, tc.extensions...)
			if result != tc.expected {
				t.Errorf("MatchesExtension(%s, %v) = %v, expected %v",
					tc.filename, tc.extensions, result, tc.expected)
			}
		})
	}
}

func TestUniqueStrings(t *testing.T) {
	got := uniqueStrings([]string{"arm64", "", "x86_64", "arm64"})
	if len(got) != 2 || got[0] != "arm64" || got[1] != "x86_64" {
		t.Errorf("unexpected result %v", got)
	}
}
