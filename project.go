package pyext

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// DefaultProjectFiles are probed in order when no project file is given.
var DefaultProjectFiles = []string{"pyext.toml", "pyext.yaml", "pyext.yml"}

// Project is the declaration of the extension a repository builds.
//
// Example pyext.toml:
//
//	[extension]
//	name = "tiny3d.cpu.pybind"
//	source_dir = "."
//	library_prefix = "tiny3d"
//
//	[build]
//	build_temp = "build/temp"
//	lib_dir = "build/lib"
//	python = "python3"
type Project struct {
	Extension ProjectExtension `toml:"extension" yaml:"extension"`
	Build     ProjectBuild     `toml:"build" yaml:"build"`

	// Root is the directory containing the project file.
	Root string `toml:"-" yaml:"-"`
}

// ProjectExtension declares the single extension target.
type ProjectExtension struct {
	Name          string `toml:"name" yaml:"name"`
	SourceDir     string `toml:"source_dir" yaml:"source_dir"`
	LibraryPrefix string `toml:"library_prefix" yaml:"library_prefix"`
}

// ProjectBuild holds build directory defaults.
type ProjectBuild struct {
	BuildTemp  string `toml:"build_temp" yaml:"build_temp"`
	LibDir     string `toml:"lib_dir" yaml:"lib_dir"`
	Python     string `toml:"python" yaml:"python"`
	SharedLibs bool   `toml:"shared_libs" yaml:"shared_libs"`
}

// LoadProject reads a project file. The format follows the extension:
// .toml, or .yaml/.yml. Relative directories are resolved against the
// directory holding the file.
func LoadProject(path string) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read project file: %w", err)
	}

	var p Project
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(data, &p)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &p)
	default:
		return nil, fmt.Errorf("unsupported project file format: %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	if p.Extension.Name == "" {
		return nil, fmt.Errorf("%s: extension.name is required", path)
	}

	root, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, err
	}
	p.Root = root
	p.applyDefaults()
	return &p, nil
}

// FindProject returns the first default project file present in dir.
func FindProject(dir string) (string, error) {
	for _, name := range DefaultProjectFiles {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("no project file (%s) in %s", strings.Join(DefaultProjectFiles, ", "), dir)
}

func (p *Project) applyDefaults() {
	if p.Extension.SourceDir == "" {
		p.Extension.SourceDir = "."
	}
	if p.Build.BuildTemp == "" {
		p.Build.BuildTemp = filepath.Join("build", "temp")
	}
	if p.Build.LibDir == "" {
		p.Build.LibDir = filepath.Join("build", "lib")
	}

	p.Extension.SourceDir = p.resolve(p.Extension.SourceDir)
	p.Build.BuildTemp = p.resolve(p.Build.BuildTemp)
	p.Build.LibDir = p.resolve(p.Build.LibDir)
}

func (p *Project) resolve(dir string) string {
	if filepath.IsAbs(dir) {
		return filepath.Clean(dir)
	}
	return filepath.Join(p.Root, dir)
}

// Target returns the declared extension target.
func (p *Project) Target() ExtensionTarget {
	return ExtensionTarget{Name: p.Extension.Name, SourceDir: p.Extension.SourceDir}
}

// BuildTempDir returns the per-target build-temp directory.
func (p *Project) BuildTempDir() string {
	return filepath.Join(p.Build.BuildTemp, p.Extension.Name)
}

// ExpectedPath returns where the installer expects the compiled module for
// the given filename suffix (".cpython-310-x86_64-linux-gnu.so").
func (p *Project) ExpectedPath(suffix string) string {
	t := p.Target()
	return filepath.Join(p.Build.LibDir, t.PackageDir(), t.BaseName()+suffix)
}

// AssembleOptions returns options for Assemble derived from the project.
func (p *Project) AssembleOptions(suffix string) AssembleOptions {
	return AssembleOptions{
		Target:           p.Target(),
		ExpectedPath:     p.ExpectedPath(suffix),
		BuildTemp:        p.BuildTempDir(),
		ProjectRoot:      p.Root,
		PythonExecutable: p.Build.Python,
		LibraryPrefix:    p.Extension.LibraryPrefix,
		SharedLibs:       p.Build.SharedLibs,
	}
}

// LoadEnvFile reads KEY=VALUE pairs from a dotenv file without touching the
// process environment.
func LoadEnvFile(path string) (Environment, error) {
	values, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("read env file %s: %w", path, err)
	}
	return Environment(values), nil
}
