package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Paths are the install locations next to the executable. They are used
// when the working directory holds no configuration of its own.
type Paths struct {
	ExecutableDir string
	ConfigFile    string
}

// GetPaths resolves Paths from the running executable, following symlinks.
func GetPaths() (*Paths, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to get executable path: %w", err)
	}

	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve executable symlinks: %w", err)
	}

	return PathsFrom(filepath.Dir(exe)), nil
}

// PathsFrom lays out Paths under dir.
func PathsFrom(dir string) *Paths {
	return &Paths{
		ExecutableDir: dir,
		ConfigFile:    filepath.Join(dir, "config.yaml"),
	}
}

// FileExists reports whether path names an existing file or directory.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
