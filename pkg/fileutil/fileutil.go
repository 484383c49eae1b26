// Package fileutil locates files whose names may differ in case from the
// name asked for, as with SoundFonts copied between systems.
package fileutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotFound is returned when no directory holds the requested file.
var ErrNotFound = errors.New("file not found")

// FindFileCaseInsensitive searches dir for a regular file named filename,
// ignoring case.
//
// Example:
//
//	path, err := FindFileCaseInsensitive("/usr/share/sounds/sf2", "generaluser-gs.SF2")
//	// finds "GeneralUser-GS.sf2"
func FindFileCaseInsensitive(dir, filename string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	// An exact match wins over a case-folded one.
	var folded string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if entry.Name() == filename {
			return filepath.Join(dir, entry.Name()), nil
		}
		if folded == "" && strings.EqualFold(entry.Name(), filename) {
			folded = filepath.Join(dir, entry.Name())
		}
	}
	if folded != "" {
		return folded, nil
	}

	return "", fmt.Errorf("%w: %s (searched in %s)", ErrNotFound, filename, dir)
}

// FindInDirs returns the first match for filename across dirs, in order.
// Empty and unreadable directories are skipped.
func FindInDirs(dirs []string, filename string) (string, error) {
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if path, err := FindFileCaseInsensitive(dir, filename); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNotFound, filename)
}
