package pyext

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveInstallPaths(t *testing.T) {
	layout := ResolveInstallPaths(InstallLayout{
		PureLib: "/venv/lib/python3.10/site-packages",
		PlatLib: "/venv/lib64/python3.10/site-packages",
	})

	assert.Equal(t, "/venv/lib64/python3.10/site-packages", layout.PlatLib)
	assert.Equal(t, layout.PlatLib, layout.PureLib)
	assert.Equal(t, layout.PlatLib, layout.Lib)

	// Applying it again changes nothing.
	assert.Equal(t, layout, ResolveInstallPaths(layout))
}

func TestInstallPackage(t *testing.T) {
	dir := t.TempDir()
	pkg := filepath.Join(dir, "build", "lib", "tiny3d")
	writeTestFile(t, filepath.Join(pkg, "__init__.py"), "")
	writeTestFile(t, filepath.Join(pkg, "cpu", "pybind.cpython-310-x86_64-linux-gnu.so"), "module")
	writeTestFile(t, filepath.Join(pkg, "cpu", "libtiny3d.so.0"), "runtime")
	writeTestFile(t, filepath.Join(pkg, "__pycache__", "__init__.cpython-310.pyc"), "bytecode")

	purelib := filepath.Join(dir, "purelib")
	platlib := filepath.Join(dir, "platlib")
	layout := InstallLayout{PureLib: purelib, PlatLib: platlib}

	installed, err := InstallPackage(layout, pkg, "")
	require.NoError(t, err)
	require.Len(t, installed, 3)
	for _, f := range installed {
		assert.Equal(t, CopyCopied, f.Status, f.Dest)
	}

	assert.FileExists(t, filepath.Join(platlib, "tiny3d", "__init__.py"))
	assert.FileExists(t, filepath.Join(platlib, "tiny3d", "cpu", "pybind.cpython-310-x86_64-linux-gnu.so"))
	assert.FileExists(t, filepath.Join(platlib, "tiny3d", "cpu", "libtiny3d.so.0"))
	assert.NoDirExists(t, filepath.Join(platlib, "tiny3d", "__pycache__"))
	assert.NoDirExists(t, purelib)

	// A second install finds everything in place.
	installed, err = InstallPackage(layout, pkg, "tiny3d")
	require.NoError(t, err)
	for _, f := range installed {
		assert.Equal(t, CopySkipped, f.Status, f.Dest)
	}
}

func TestInstallPackageErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := InstallPackage(InstallLayout{}, dir, "pkg")
	assert.Error(t, err, "platlib is required")

	_, err = InstallPackage(InstallLayout{PlatLib: dir}, filepath.Join(dir, "missing"), "pkg")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestInstallPackageCopyFailure(t *testing.T) {
	dir := t.TempDir()
	pkg := filepath.Join(dir, "pkg")
	writeTestFile(t, filepath.Join(pkg, "a.py"), "a")

	orig := copyFileFunc
	defer func() { copyFileFunc = orig }()
	copyFileFunc = func(string, string) error { return os.ErrPermission }

	_, err := InstallPackage(InstallLayout{PlatLib: filepath.Join(dir, "site")}, pkg, "")
	assert.ErrorIs(t, err, os.ErrPermission)
	assert.Contains(t, err.Error(), "a.py")
}
