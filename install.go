package pyext

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// copyFileFunc performs every placement copy. Tests replace it to count or
// fail copies.
var copyFileFunc = copyFile

// Place puts the selected artifact at expectedPath.
//
// # Parameters
//
//   - artifact: The module found by Locate
//   - expectedPath: Full path the installer expects the module at
//
// # Returns
//
// A FileCopy describing what happened:
//   - CopySkipped when both paths resolve to the same file (after making
//     them absolute and following symlinks); nothing is written, so
//     repeated calls are idempotent
//   - CopyCopied after parent directories are created and the file is
//     copied with its permission bits and modification time
//   - CopyFailed together with a *PlacementError matching ErrPlacementFailed
//
// When path resolution itself fails a direct copy is still attempted; only
// a failure of that copy is returned, with the resolution error kept in
// PlacementError.ResolveErr.
//
// # Example
//
//	result, err := pyext.Place(artifact, cfg.ExpectedPath)
//	if err != nil {
//	    return err
//	}
//	log.Printf("%s: %s", result.Dest, result.Status)
//
// # Thread Safety
//
// Place writes to expectedPath. Concurrent calls for the same destination
// race; the orchestrator runs one target per process.
func Place(artifact BuildArtifact, expectedPath string) (FileCopy, error) {
	result := FileCopy{Source: artifact.Path, Dest: expectedPath}

	same, resolveErr := samePath(artifact.Path, expectedPath)
	if resolveErr == nil && same {
		result.Status = CopySkipped
		return result, nil
	}

	if err := copyFileFunc(artifact.Path, expectedPath); err != nil {
		result.Status = CopyFailed
		result.Err = err
		return result, &PlacementError{
			Source:     artifact.Path,
			Dest:       expectedPath,
			ResolveErr: resolveErr,
			Err:        err,
		}
	}

	result.Status = CopyCopied
	return result, nil
}

// samePath reports whether a and b name the same file after making them
// absolute and resolving symlinks. A destination that does not exist yet is
// never the same file.
func samePath(a, b string) (bool, error) {
	absA, err := filepath.Abs(a)
	if err != nil {
		return false, err
	}
	absB, err := filepath.Abs(b)
	if err != nil {
		return false, err
	}
	if absA == absB {
		return true, nil
	}

	realA, err := filepath.EvalSymlinks(absA)
	if err != nil {
		return false, err
	}
	realB, err := filepath.EvalSymlinks(absB)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return realA == realB, nil
}

// FindDependencyLibraries lists the project runtime libraries in dir.
//
// A library matches lib<prefix>*.so[.N...], lib<prefix>*.dylib or
// <prefix>*.dll; suffix comparison ignores case. Paths in exclude (the
// compiled module itself) are skipped. Results are sorted by name.
func FindDependencyLibraries(dir, prefix string, exclude ...string) ([]DependencyLibrary, error) {
	if prefix == "" {
		return nil, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	skip := make(map[string]struct{}, len(exclude))
	for _, p := range exclude {
		skip[filepath.Base(p)] = struct{}{}
	}

	var libs []DependencyLibrary
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() {
			continue
		}
		if _, ok := skip[name]; ok {
			continue
		}
		if isDependencyLibrary(name, prefix) {
			libs = append(libs, DependencyLibrary{Path: filepath.Join(dir, name), Name: name})
		}
	}

	sort.Slice(libs, func(i, j int) bool { return libs[i].Name < libs[j].Name })
	return libs, nil
}

func isDependencyLibrary(name, prefix string) bool {
	lower := strings.ToLower(name)
	lowerPrefix := strings.ToLower(prefix)

	if strings.HasPrefix(lower, "lib"+lowerPrefix) {
		if MatchesExtension(lower, ".dylib") {
			return true
		}
		// Versioned sonames: libfoo.so, libfoo.so.1, libfoo.so.1.2.3
		return MatchesPattern(lower, `\.so(\.[0-9]+)*$`)
	}

	return strings.HasPrefix(lower, lowerPrefix) && MatchesExtension(lower, ".dll")
}

// SweepDependencies copies the project runtime libraries found beside the
// artifact into destDir.
//
// # Parameters
//
//   - artifactDir: Directory the compiled module was found in
//   - destDir: Directory the module was placed in
//   - prefix: Library naming stem; see FindDependencyLibraries
//   - exclude: Paths to leave alone, normally the module itself
//
// # Returns
//
// One FileCopy per matching library, in name order. Each file is handled
// on its own:
//   - a file already identical at the destination is CopySkipped
//   - a failed copy is recorded as CopyFailed and the sweep continues
//
// A directory that cannot be listed yields a single failed entry for the
// directory itself. The sweep never returns an error; callers decide
// whether failures are fatal (see Orchestrator.StrictDependencies).
//
// # Example
//
//	results := pyext.SweepDependencies(filepath.Dir(artifact.Path),
//	    filepath.Dir(cfg.ExpectedPath), cfg.LibraryPrefix, artifact.Path)
//	for _, r := range results {
//	    if r.Status == pyext.CopyFailed {
//	        log.Printf("runtime library %s not copied: %v", r.Source, r.Err)
//	    }
//	}
//
// # Thread Safety
//
// Like Place, the sweep writes into destDir and is not meant to run
// concurrently for the same directory.
func SweepDependencies(artifactDir, destDir, prefix string, exclude ...string) []FileCopy {
	libs, err := FindDependencyLibraries(artifactDir, prefix, exclude...)
	if err != nil {
		return []FileCopy{{Source: artifactDir, Dest: destDir, Status: CopyFailed, Err: err}}
	}

	results := make([]FileCopy, 0, len(libs))
	for _, lib := range libs {
		dest := filepath.Join(destDir, lib.Name)
		result := FileCopy{Source: lib.Path, Dest: dest}

		if identical, cmpErr := sameContent(lib.Path, dest); cmpErr == nil && identical {
			result.Status = CopySkipped
		} else if err := copyFileFunc(lib.Path, dest); err != nil {
			result.Status = CopyFailed
			result.Err = err
		} else {
			result.Status = CopyCopied
		}

		results = append(results, result)
	}
	return results
}

// sameContent reports whether two files have identical bytes. A missing
// destination is reported as not identical without error.
func sameContent(src, dest string) (bool, error) {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return false, err
	}
	destInfo, err := os.Stat(dest)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if os.SameFile(srcInfo, destInfo) {
		return true, nil
	}
	if srcInfo.Size() != destInfo.Size() {
		return false, nil
	}

	a, err := os.ReadFile(src)
	if err != nil {
		return false, err
	}
	b, err := os.ReadFile(dest)
	if err != nil {
		return false, err
	}
	return bytes.Equal(a, b), nil
}

// copyFile copies srcPath to destPath, creating parent directories and
// keeping the permission bits and modification time of the source.
func copyFile(srcPath, destPath string) error {
	info, err := os.Stat(srcPath)
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%s is not a regular file", srcPath)
	}

	dir := filepath.Dir(destPath)
	if mkErr := os.MkdirAll(dir, 0o755); mkErr != nil {
		return mkErr
	}

	in, err := os.Open(srcPath)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}

	if _, err = io.Copy(out, in); err != nil {
		out.Close()
		return err
	}

	if err := out.Close(); err != nil {
		return err
	}

	// O_CREATE honors the umask and leaves an existing file's mode alone.
	if err := os.Chmod(destPath, info.Mode().Perm()); err != nil {
		return err
	}
	return os.Chtimes(destPath, info.ModTime(), info.ModTime())
}
