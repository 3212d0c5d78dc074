package config

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/sakif/mpi-testslot/internal/model"
)

// ManifestNames are the file names FindManifests looks for.
var ManifestNames = []string{"tests.yaml", "tests.yml"}

// Loader reads manifests relative to a base directory.
type Loader struct {
	basePath string
}

// NewLoader creates a loader; an empty basePath means the working directory.
func NewLoader(basePath string) *Loader {
	if basePath == "" {
		basePath = "."
	}
	return &Loader{basePath: basePath}
}

// LoadManifest reads, expands, defaults and validates one manifest.
// ${VAR} references are expanded from the environment before parsing.
func (l *Loader) LoadManifest(path string) (*Manifest, error) {
	fullPath := l.resolvePath(path)

	data, err := os.ReadFile(fullPath)
	if err != nil {
		return nil, fmt.Errorf("config: reading manifest %s: %w", fullPath, err)
	}
	data = []byte(os.ExpandEnv(string(data)))

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("config: parsing manifest %s: %w", fullPath, err)
	}

	dir, err := filepath.Abs(filepath.Dir(fullPath))
	if err != nil {
		return nil, fmt.Errorf("config: resolving %s: %w", fullPath, err)
	}
	m.Dir = dir

	setDefaults(&m)

	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("config: manifest %s: %w", fullPath, err)
	}
	return &m, nil
}

// LoadTests loads every manifest in paths and concatenates their tests in
// order.
func (l *Loader) LoadTests(paths []string) ([]*model.Test, error) {
	var tests []*model.Test
	for _, p := range paths {
		m, err := l.LoadManifest(p)
		if err != nil {
			return nil, err
		}
		tests = append(tests, m.BuildTests()...)
	}
	return tests, nil
}

// FindManifests walks dir and returns every manifest below it, sorted. The
// out/ directories where runs write their output are not descended into.
func (l *Loader) FindManifests(dir string) ([]string, error) {
	root := l.resolvePath(dir)
	var found []string

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && d.Name() == "out" {
				return filepath.SkipDir
			}
			return nil
		}
		for _, name := range ManifestNames {
			if d.Name() == name {
				found = append(found, path)
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("config: searching %s: %w", root, err)
	}

	sort.Strings(found)
	return found, nil
}

func (l *Loader) resolvePath(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(l.basePath, path)
}

func setDefaults(m *Manifest) {
	if m.Defaults.NumProcs < 1 {
		m.Defaults.NumProcs = 1
	}
	for i := range m.Tests {
		t := &m.Tests[i]
		if t.NumProcs == 0 {
			t.NumProcs = m.Defaults.NumProcs
		}
		if t.Args == nil {
			t.Args = m.Defaults.Args
		}
		// A test without checks is judged by its exit code alone.
		if len(t.Checks) == 0 && t.Skip == "" {
			t.Checks = []CheckSpec{{Type: CheckExitCode}}
		}
	}
}
