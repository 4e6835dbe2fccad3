package pyext

import (
	"archive/zip"
	"crypto/sha256"
	"encoding/base64"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeWheel creates a wheel with the given entries, in order.
func writeWheel(t *testing.T, path string, entries [][2]string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for _, e := range entries {
		w, err := zw.Create(e[0])
		require.NoError(t, err)
		_, err = w.Write([]byte(e[1]))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
}

func readWheel(t *testing.T, path string) map[string]string {
	t.Helper()
	zr, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer zr.Close()

	files := map[string]string{}
	for _, f := range zr.File {
		r, err := f.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(r)
		r.Close()
		require.NoError(t, err)
		files[f.Name] = string(data)
	}
	return files
}

func TestParseWheelName(t *testing.T) {
	w, err := ParseWheelName("/dist/tiny3d-0.18.0-py3-none-any.whl")
	require.NoError(t, err)
	assert.Equal(t, "tiny3d", w.Distribution)
	assert.Equal(t, "0.18.0", w.Version)
	assert.Empty(t, w.Build)
	assert.Equal(t, Tag{Python: "py3", ABI: "none", Platform: "any"}, w.Tag)
	assert.Equal(t, "tiny3d-0.18.0-py3-none-any.whl", w.String())

	w, err = ParseWheelName("tiny3d-0.18.0-1-cp310-cp310-linux_x86_64.whl")
	require.NoError(t, err)
	assert.Equal(t, "1", w.Build)
	assert.Equal(t, "tiny3d-0.18.0-1-cp310-cp310-linux_x86_64.whl", w.String())

	_, err = ParseWheelName("tiny3d-0.18.0.tar.gz")
	assert.Error(t, err)
	_, err = ParseWheelName("tiny3d-any.whl")
	assert.Error(t, err)
}

func TestRetagWheel(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "tiny3d-0.18.0-py3-none-any.whl")
	module := "\x7fELF module"
	writeWheel(t, input, [][2]string{
		{"tiny3d/__init__.py", "from .cpu import pybind\n"},
		{"tiny3d/cpu/pybind.cpython-310-x86_64-linux-gnu.so", module},
		{"tiny3d-0.18.0.dist-info/WHEEL", "Wheel-Version: 1.0\nGenerator: bdist_wheel\nRoot-Is-Purelib: true\nTag: py3-none-any\n"},
		{"tiny3d-0.18.0.dist-info/RECORD", "tiny3d/__init__.py,,\ntiny3d-0.18.0.dist-info/WHEEL,sha256=stale,10\ntiny3d-0.18.0.dist-info/RECORD,,\n"},
	})

	host := Host{OS: "linux", Machine: "x86_64", PythonTag: "cp310"}
	out, err := RetagWheel(input, host)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "tiny3d-0.18.0-cp310-cp310-manylinux2014_x86_64.whl"), out)
	assert.NoFileExists(t, input)
	assert.NoFileExists(t, out+".tmp")

	files := readWheel(t, out)
	wheel := files["tiny3d-0.18.0.dist-info/WHEEL"]
	assert.Contains(t, wheel, "Root-Is-Purelib: false\n")
	assert.Contains(t, wheel, "Tag: cp310-cp310-manylinux2014_x86_64\n")
	assert.NotContains(t, wheel, "py3-none-any")
	assert.Contains(t, wheel, "Generator: bdist_wheel\n")

	assert.Equal(t, module, files["tiny3d/cpu/pybind.cpython-310-x86_64-linux-gnu.so"])

	sum := sha256.Sum256([]byte(wheel))
	row := "tiny3d-0.18.0.dist-info/WHEEL,sha256=" +
		base64.RawURLEncoding.EncodeToString(sum[:]) + "," + strconv.Itoa(len(wheel))
	record := files["tiny3d-0.18.0.dist-info/RECORD"]
	assert.Contains(t, strings.Split(record, "\n"), row)
	assert.NotContains(t, record, "sha256=stale")
}

func TestRetagWheelCollapsesDuplicateTags(t *testing.T) {
	metadata := []byte("Root-Is-Purelib: false\nTag: cp311-cp311-macosx_11_0_universal2\nTag: cp311-cp311-macosx_11_0_arm64\n")

	out, changed := rewriteWheelMetadata(metadata, Host{OS: "darwin", Machine: "arm64"})
	assert.True(t, changed)
	assert.Equal(t, "Root-Is-Purelib: false\nTag: cp311-cp311-macosx_11_0_arm64\n", string(out))
}

func TestRetagWheelAddsMissingPurelib(t *testing.T) {
	metadata := []byte("Wheel-Version: 1.0\nTag: cp310-cp310-linux_aarch64\n")

	out, changed := rewriteWheelMetadata(metadata, Host{OS: "linux", Machine: "aarch64"})
	assert.True(t, changed)
	assert.Equal(t, "Wheel-Version: 1.0\nTag: cp310-cp310-linux_aarch64\nRoot-Is-Purelib: false\n", string(out))

	dir := t.TempDir()
	input := filepath.Join(dir, "tiny3d-0.18.0-cp310-cp310-linux_aarch64.whl")
	writeWheel(t, input, [][2]string{{"tiny3d-0.18.0.dist-info/WHEEL", string(metadata)}})

	result, err := RetagWheel(input, Host{OS: "linux", Machine: "aarch64"})
	require.NoError(t, err)
	assert.Equal(t, input, result, "the name keeps its tag")
	assert.Contains(t, readWheel(t, result)["tiny3d-0.18.0.dist-info/WHEEL"], "Root-Is-Purelib: false\n")
}

func TestRetagWheelUnchanged(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "tiny3d-0.18.0-cp310-cp310-linux_aarch64.whl")
	writeWheel(t, input, [][2]string{
		{"tiny3d-0.18.0.dist-info/WHEEL", "Wheel-Version: 1.0\nRoot-Is-Purelib: false\nTag: cp310-cp310-linux_aarch64\n"},
		{"tiny3d-0.18.0.dist-info/RECORD", ""},
	})
	before, err := os.ReadFile(input)
	require.NoError(t, err)

	out, err := RetagWheel(input, Host{OS: "linux", Machine: "aarch64"})
	require.NoError(t, err)
	assert.Equal(t, input, out)

	after, err := os.ReadFile(input)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestRetagWheelMissingMetadata(t *testing.T) {
	input := filepath.Join(t.TempDir(), "tiny3d-0.18.0-py3-none-any.whl")
	writeWheel(t, input, [][2]string{{"tiny3d/__init__.py", ""}})

	_, err := RetagWheel(input, Host{OS: "linux", Machine: "x86_64"})
	assert.Error(t, err)
	assert.FileExists(t, input)
}
