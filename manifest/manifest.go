// Package manifest handles rill.toml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// FileName is the manifest file looked up in a project directory.
const FileName = "rill.toml"

// Manifest represents a rill.toml project configuration.
type Manifest struct {
	Project Project `toml:"project"`
	Build   Build   `toml:"build"`

	// Dir is the directory containing the rill.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

// Build configures compilation input and output.
type Build struct {
	Entry  string `toml:"entry"`
	Output string `toml:"output"`
	Debug  bool   `toml:"debug"`
}

// Load parses a rill.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	m.applyDefaults()
	if err := m.validate(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", path, err)
	}

	return &m, nil
}

// FindAndLoad walks up from startDir to find a rill.toml file, then loads
// and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

func (m *Manifest) applyDefaults() {
	if m.Build.Entry == "" {
		m.Build.Entry = "main.rill"
	}
	if m.Build.Output == "" {
		base := m.Project.Name
		if base == "" {
			base = "out"
		}
		m.Build.Output = base + ".rlbc"
	}
}

func (m *Manifest) validate() error {
	if m.Project.Name == "" {
		return fmt.Errorf("project.name is required")
	}
	if filepath.Ext(m.Build.Entry) != ".rill" {
		return fmt.Errorf("build.entry %q must be a .rill file", m.Build.Entry)
	}
	return nil
}

// EntryPath returns the absolute path of the entry source file.
func (m *Manifest) EntryPath() string {
	return filepath.Join(m.Dir, m.Build.Entry)
}

// OutputPath returns the absolute path of the compiled output file.
func (m *Manifest) OutputPath() string {
	if filepath.IsAbs(m.Build.Output) {
		return m.Build.Output
	}
	return filepath.Join(m.Dir, m.Build.Output)
}

// CacheDir returns the path to the .rill/cache directory.
func (m *Manifest) CacheDir() string {
	return filepath.Join(m.Dir, ".rill", "cache")
}
