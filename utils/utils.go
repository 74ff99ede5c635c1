package utils

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const ROOT_MARKER = "config.yaml"

var ErrRootNotFound = errors.New("project root not found")

// FindRootPath walks up from the working directory until it finds a directory
// holding marker, then tries a few well-known install locations.
func FindRootPath(marker string) (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current working directory: %w", err)
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	commonPaths := []string{
		"/app",
		"/etc/wappi2mqtt",
	}

	for _, path := range commonPaths {
		if _, err := os.Stat(filepath.Join(path, marker)); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("%w: %s not found while traversing up the directory tree", ErrRootNotFound, marker)
}

// GetRootPath is FindRootPath with ROOT_MARKER, falling back to the working directory.
func GetRootPath() string {
	if root, err := FindRootPath(ROOT_MARKER); err == nil {
		return root
	}
	if wd, err := os.Getwd(); err == nil {
		return wd
	}
	return "."
}

// MkdirIfNotExists creates the directory for path. A path with an extension is
// treated as a file and its parent is created. Relative paths resolve against GetRootPath.
func MkdirIfNotExists(path string) error {
	if path == "" {
		return errors.New("path cannot be empty")
	}

	path = filepath.Clean(path)

	if filepath.Ext(path) != "" {
		path = filepath.Dir(path)
	}

	if !filepath.IsAbs(path) {
		path = filepath.Join(GetRootPath(), path)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, 0755)
	}
	return nil
}
