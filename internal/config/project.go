// Package config locates a harvest project and loads its configuration from
// .harvest/config.toml.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/newhook/harvest/internal/logging"
)

const (
	// ConfigDir is the directory name for project configuration.
	ConfigDir = logging.ConfigDir
	// ConfigFile is the name of the project config file.
	ConfigFile = "config.toml"
	// HistoryDB is the default name of the history database file.
	HistoryDB = "history.db"
)

// ErrNoProject is returned when no .harvest directory is found.
var ErrNoProject = errors.New("no project found")

// Project is a directory holding a .harvest/config.toml.
type Project struct {
	Root   string  // Project directory path
	Config *Config // Parsed config.toml
}

// Find finds a project from a flag value or current directory.
// If flagValue is non-empty, uses that path; otherwise uses cwd.
func Find(flagValue string) (*Project, error) {
	if flagValue != "" {
		return find(flagValue)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	return find(cwd)
}

// FindOrDefault is Find, falling back to a rootless project with the
// default configuration when there is no project. Scans work without
// `harvest init`; history and disk caching need a root.
func FindOrDefault(flagValue string) (*Project, error) {
	proj, err := Find(flagValue)
	if errors.Is(err, ErrNoProject) {
		return &Project{Config: &Config{}}, nil
	}
	return proj, err
}

// find walks up from startDir looking for a .harvest/ directory.
func find(startDir string) (*Project, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}

	for {
		configPath := filepath.Join(dir, ConfigDir, ConfigFile)
		if _, err := os.Stat(configPath); err == nil {
			return load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root
			return nil, fmt.Errorf("%w (no %s directory)", ErrNoProject, ConfigDir)
		}
		dir = parent
	}
}

// load loads a project from the given root directory.
func load(root string) (*Project, error) {
	configPath := filepath.Join(root, ConfigDir, ConfigFile)
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
	}

	// Initialize logging to .harvest/debug.log
	if err := logging.Init(root); err != nil {
		logging.Warn("failed to initialize logging", "error", err)
	}

	return &Project{Root: root, Config: cfg}, nil
}

// Create initializes a new project at the given directory by writing a
// documented config file.
func Create(dir string) (*Project, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}

	configDir := filepath.Join(absDir, ConfigDir)
	configPath := filepath.Join(configDir, ConfigFile)
	if _, err := os.Stat(configPath); err == nil {
		return nil, fmt.Errorf("project already exists at %s", absDir)
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create project directory: %w", err)
	}

	cfg := &Config{
		Project: ProjectConfig{
			Name:      filepath.Base(absDir),
			CreatedAt: time.Now().UTC().Truncate(time.Second),
		},
	}
	if err := cfg.SaveDocumentedConfig(configPath); err != nil {
		return nil, err
	}

	return &Project{Root: absDir, Config: cfg}, nil
}

// HasRoot reports whether the project lives on disk.
func (p *Project) HasRoot() bool {
	return p.Root != ""
}

// ConfigPath returns the path of config.toml.
func (p *Project) ConfigPath() string {
	return filepath.Join(p.Root, ConfigDir, ConfigFile)
}

// HistoryPath returns the path of the history database.
func (p *Project) HistoryPath() string {
	return filepath.Join(p.Root, ConfigDir, p.Config.History.GetDB())
}

// CachePath returns the on-disk report cache directory.
func (p *Project) CachePath() string {
	dir := p.Config.Cache.GetDir()
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(p.Root, dir)
}
