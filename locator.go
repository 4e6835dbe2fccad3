package pyext

import (
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
)

// moduleSuffixes are the compiled-module suffixes accepted on any platform,
// so a cross build is found regardless of the host.
var moduleSuffixes = []string{".so", ".pyd", ".dylib"}

// Locate finds the compiled module for target.
//
// Directories are searched in strict priority order and the first one that
// yields a match wins:
//  1. <OutputDir>/<BuildType>, where multi-config generators write
//  2. <OutputDir>
//  3. every directory below BuildTemp
//
// A file matches when its name is the target's base name, optionally
// followed by dotted tags, ending in .so, .pyd or .dylib. All three suffixes
// are accepted on every host so cross builds are found.
//
// # Parameters
//
//   - target: The extension target; only BaseName() is used for matching
//   - cfg: The run configuration supplying OutputDir, BuildType and BuildTemp
//
// # Returns
//
// The selected BuildArtifact with an absolute Path and the tier it came
// from. Among matches of the same tier the longest filename is selected, on
// the assumption that a longer name carries a fuller ABI tag
// ("mod.cpython-310-x86_64-linux-gnu.so" over "mod.so"). Equal lengths fall
// back to lexical order so the choice never depends on directory order.
//
// When no tier matches, an *ArtifactNotFoundError listing every searched
// directory is returned; it matches ErrArtifactNotFound.
//
// # Example
//
//	artifact, err := pyext.Locate(target, cfg)
//	if errors.Is(err, pyext.ErrArtifactNotFound) {
//	    // the build succeeded but wrote the module somewhere unexpected
//	}
//	fmt.Println(artifact.Path, artifact.Tier)
//
// # Thread Safety
//
// Locate only reads the filesystem and is safe to call concurrently.
func Locate(target ExtensionTarget, cfg BuildConfig) (BuildArtifact, error) {
	pattern := modulePattern(target.BaseName())

	tiers := []struct {
		tier      ArtifactTier
		dir       string
		recursive bool
	}{
		{TierFlavorDir, filepath.Join(cfg.OutputDir, string(cfg.BuildType)), false},
		{TierOutputDir, cfg.OutputDir, false},
		{TierBuildTemp, cfg.BuildTemp, true},
	}

	var searched []string
	for _, t := range tiers {
		searched = append(searched, t.dir)

		var candidates []string
		if t.recursive {
			candidates = findModulesRecursive(t.dir, pattern)
		} else {
			candidates = findModules(t.dir, pattern)
		}
		if len(candidates) == 0 {
			continue
		}

		selected := selectLongest(candidates)
		abs, err := filepath.Abs(selected)
		if err != nil {
			abs = selected
		}
		return BuildArtifact{Path: abs, Name: filepath.Base(abs), Tier: t.tier}, nil
	}

	return BuildArtifact{}, &ArtifactNotFoundError{Target: target.Name, Searched: searched}
}

// modulePattern matches "<base>[.tag...]<suffix>".
func modulePattern(base string) *regexp.Regexp {
	suffixes := make([]string, len(moduleSuffixes))
	for i, s := range moduleSuffixes {
		suffixes[i] = regexp.QuoteMeta(s)
	}
	expr := `^` + regexp.QuoteMeta(base) + `(\.[A-Za-z0-9_-]+)*(`
	for i, s := range suffixes {
		if i > 0 {
			expr += "|"
		}
		expr += s
	}
	return regexp.MustCompile(expr + `)$`)
}

func findModules(dir string, pattern *regexp.Regexp) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	var matches []string
	for _, entry := range entries {
		if !entry.Type().IsRegular() && entry.Type()&fs.ModeSymlink == 0 {
			continue
		}
		if pattern.MatchString(entry.Name()) {
			matches = append(matches, filepath.Join(dir, entry.Name()))
		}
	}
	return matches
}

func findModulesRecursive(root string, pattern *regexp.Regexp) []string {
	var matches []string
	// Unreadable subtrees are skipped rather than failing the search.
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if pattern.MatchString(d.Name()) {
			matches = append(matches, path)
		}
		return nil
	})
	return matches
}

func selectLongest(paths []string) string {
	sorted := append([]string(nil), paths...)
	sort.Slice(sorted, func(i, j int) bool {
		ni, nj := filepath.Base(sorted[i]), filepath.Base(sorted[j])
		if len(ni) != len(nj) {
			return len(ni) > len(nj)
		}
		if ni != nj {
			return ni < nj
		}
		return sorted[i] < sorted[j]
	})
	return sorted[0]
}
