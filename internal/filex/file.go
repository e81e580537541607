// Package filex has small filesystem helpers.
package filex

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// EnsureParentDir creates the directory that will hold path, including any
// missing parents, and returns it. A leading "~/" is expanded to the home
// directory; the expanded path is returned as the second value.
func EnsureParentDir(path string) (dir, expanded string, err error) {
	expanded, err = ExpandHome(path)
	if err != nil {
		return "", "", err
	}

	dir = filepath.Dir(expanded)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", "", fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return dir, expanded, nil
}

// ExpandHome replaces a leading "~/" with the user's home directory.
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home dir: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
