package pyext

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// InstallLayout holds the installer's destination directories.
type InstallLayout struct {
	PureLib string // Destination for interpreter-only files
	PlatLib string // Destination for compiled files and their companions
	Lib     string // Directory the package is actually installed into
}

// ResolveInstallPaths returns layout with every library destination set to
// PlatLib. The compiled module and the pure sources of one package must be
// importable from a single directory.
func ResolveInstallPaths(layout InstallLayout) InstallLayout {
	layout.PureLib = layout.PlatLib
	layout.Lib = layout.PlatLib
	return layout
}

// InstallPackage copies packageDir into <Lib>/<packageName> of the resolved
// layout and returns the installed files.
//
// Every regular file is copied, compiled modules and sources alike; files
// already identical at the destination are left alone. The first copy error
// aborts the install.
func InstallPackage(layout InstallLayout, packageDir, packageName string) ([]FileCopy, error) {
	resolved := ResolveInstallPaths(layout)
	if resolved.Lib == "" {
		return nil, errors.New("platform library directory is required")
	}
	if packageName == "" {
		packageName = filepath.Base(filepath.Clean(packageDir))
	}

	root := filepath.Join(resolved.Lib, filepath.FromSlash(packageName))
	var installed []FileCopy

	err := filepath.WalkDir(packageDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == "__pycache__" {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(packageDir, path)
		if err != nil {
			return err
		}
		dest := filepath.Join(root, rel)
		result := FileCopy{Source: path, Dest: dest, Status: CopyCopied}

		if identical, cmpErr := sameContent(path, dest); cmpErr == nil && identical {
			result.Status = CopySkipped
		} else if err := copyFileFunc(path, dest); err != nil {
			return fmt.Errorf("install %s: %w", rel, err)
		}

		installed = append(installed, result)
		return nil
	})
	if err != nil {
		return installed, err
	}

	if len(installed) == 0 {
		if _, statErr := os.Stat(packageDir); statErr != nil {
			return nil, statErr
		}
	}
	return installed, nil
}
