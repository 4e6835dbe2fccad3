package pyext

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tomlProject = `
[extension]
name = "tiny3d.cpu.pybind"
library_prefix = "tiny3d"

[build]
build_temp = "out/temp"
python = "python3.10"
shared_libs = true
`

const yamlProject = `
extension:
  name: tiny3d.cpu.pybind
  source_dir: cpp
build:
  lib_dir: /abs/lib
`

func TestLoadProjectTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pyext.toml")
	writeTestFile(t, path, tomlProject)

	p, err := LoadProject(path)
	require.NoError(t, err)

	assert.Equal(t, dir, p.Root)
	assert.Equal(t, "tiny3d.cpu.pybind", p.Extension.Name)
	assert.Equal(t, dir, p.Extension.SourceDir)
	assert.Equal(t, filepath.Join(dir, "out", "temp"), p.Build.BuildTemp)
	assert.Equal(t, filepath.Join(dir, "build", "lib"), p.Build.LibDir)
	assert.True(t, p.Build.SharedLibs)

	assert.Equal(t, filepath.Join(dir, "out", "temp", "tiny3d.cpu.pybind"), p.BuildTempDir())
	assert.Equal(t,
		filepath.Join(dir, "build", "lib", "tiny3d", "cpu", "pybind.cpython-310-x86_64-linux-gnu.so"),
		p.ExpectedPath(".cpython-310-x86_64-linux-gnu.so"))

	opts := p.AssembleOptions(".so")
	assert.Equal(t, p.Target(), opts.Target)
	assert.Equal(t, "python3.10", opts.PythonExecutable)
	assert.Equal(t, "tiny3d", opts.LibraryPrefix)
	assert.True(t, opts.SharedLibs)
	assert.Equal(t, dir, opts.ProjectRoot)
}

func TestLoadProjectYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pyext.yml")
	writeTestFile(t, path, yamlProject)

	p, err := LoadProject(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "cpp"), p.Extension.SourceDir)
	assert.Equal(t, filepath.Clean("/abs/lib"), p.Build.LibDir)
	assert.Equal(t, filepath.Join(dir, "build", "temp"), p.Build.BuildTemp)
}

func TestLoadProjectErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadProject(filepath.Join(dir, "missing.toml"))
	assert.Error(t, err)

	unnamed := filepath.Join(dir, "unnamed.toml")
	writeTestFile(t, unnamed, "[build]\nlib_dir = \"lib\"\n")
	_, err = LoadProject(unnamed)
	assert.ErrorContains(t, err, "extension.name")

	ini := filepath.Join(dir, "pyext.ini")
	writeTestFile(t, ini, "name=x")
	_, err = LoadProject(ini)
	assert.ErrorContains(t, err, "unsupported")

	broken := filepath.Join(dir, "broken.toml")
	writeTestFile(t, broken, "[extension\nname=")
	_, err = LoadProject(broken)
	assert.Error(t, err)
}

func TestFindProject(t *testing.T) {
	dir := t.TempDir()
	_, err := FindProject(dir)
	assert.Error(t, err)

	writeTestFile(t, filepath.Join(dir, "pyext.yaml"), yamlProject)
	writeTestFile(t, filepath.Join(dir, "pyext.toml"), tomlProject)

	found, err := FindProject(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "pyext.toml"), found)
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	writeTestFile(t, path, "# build overrides\nCMAKE_GENERATOR=Ninja\nCMAKE_ARGS=\"-DWITH_OPENMP=OFF -DFOO=bar\"\n")

	env, err := LoadEnvFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Ninja", env.Get(EnvGenerator))
	assert.Equal(t, "-DWITH_OPENMP=OFF -DFOO=bar", env.Get(EnvCMakeArgs))

	_, err = LoadEnvFile(path + ".missing")
	assert.Error(t, err)
}
