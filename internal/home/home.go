// Package home manages the cedesk home directory layout (~/.cedesk).
package home

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DefaultDirName is the default name for the cedesk home directory.
	DefaultDirName = ".cedesk"

	// SourcesDirName is the subdirectory uploaded source PDFs are kept in.
	SourcesDirName = "sources"

	// ConfigFileName is the default config file name.
	ConfigFileName = "config.yaml"
)

// Dir represents the cedesk home directory structure.
type Dir struct {
	path string
}

// New creates a new Dir with the given path.
// If path is empty, uses the default (~/.cedesk).
func New(path string) (*Dir, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		path = filepath.Join(home, DefaultDirName)
	}

	return &Dir{path: path}, nil
}

// Path returns the root path of the home directory.
func (d *Dir) Path() string {
	return d.path
}

// ConfigPath returns the path to the default config file.
func (d *Dir) ConfigPath() string {
	return filepath.Join(d.path, ConfigFileName)
}

// SourcesPath returns the directory uploaded source PDFs are kept in.
func (d *Dir) SourcesPath() string {
	return filepath.Join(d.path, SourcesDirName)
}

// SourcePDFPath returns the storage path for an uploaded PDF, keyed by its
// content hash.
func (d *Dir) SourcePDFPath(sha256 string) string {
	return filepath.Join(d.SourcesPath(), sha256+".pdf")
}

// EnsureExists creates the home directory and subdirectories if they don't
// exist.
func (d *Dir) EnsureExists() error {
	if err := os.MkdirAll(d.SourcesPath(), 0o755); err != nil {
		return fmt.Errorf("failed to create sources directory: %w", err)
	}
	return nil
}

// Exists returns true if the home directory exists.
func (d *Dir) Exists() bool {
	_, err := os.Stat(d.path)
	return err == nil
}

// ConfigExists returns true if the config file exists in the home directory.
func (d *Dir) ConfigExists() bool {
	_, err := os.Stat(d.ConfigPath())
	return err == nil
}
