package fileutil

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestFindFileCaseInsensitive(t *testing.T) {
	tmpDir := t.TempDir()

	for _, filename := range []string{"GeneralUser-GS.sf2", "UPPERCASE.SF2", "lowercase.yml"} {
		path := filepath.Join(tmpDir, filename)
		if err := os.WriteFile(path, []byte("test"), 0644); err != nil {
			t.Fatalf("Failed to create test file: %v", err)
		}
	}
	if err := os.Mkdir(filepath.Join(tmpDir, "dir.sf2"), 0755); err != nil {
		t.Fatalf("Failed to create test dir: %v", err)
	}

	tests := []struct {
		name          string
		searchName    string
		shouldFind    bool
		expectedMatch string
	}{
		{
			name:          "exact match",
			searchName:    "GeneralUser-GS.sf2",
			shouldFind:    true,
			expectedMatch: "GeneralUser-GS.sf2",
		},
		{
			name:          "lowercase search for mixed case file",
			searchName:    "generaluser-gs.sf2",
			shouldFind:    true,
			expectedMatch: "GeneralUser-GS.sf2",
		},
		{
			name:          "mixed case search for uppercase file",
			searchName:    "Uppercase.sf2",
			shouldFind:    true,
			expectedMatch: "UPPERCASE.SF2",
		},
		{
			name:          "uppercase search for lowercase file",
			searchName:    "LOWERCASE.YML",
			shouldFind:    true,
			expectedMatch: "lowercase.yml",
		},
		{
			name:       "directories are ignored",
			searchName: "dir.sf2",
			shouldFind: false,
		},
		{
			name:       "file not found",
			searchName: "nonexistent.sf2",
			shouldFind: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, err := FindFileCaseInsensitive(tmpDir, tt.searchName)

			if !tt.shouldFind {
				if !errors.Is(err, ErrNotFound) {
					t.Errorf("Expected ErrNotFound, got path %q err %v", path, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Expected to find file, but got error: %v", err)
			}
			if got := filepath.Base(path); got != tt.expectedMatch {
				t.Errorf("Expected filename %s, got %s", tt.expectedMatch, got)
			}
			if _, err := os.Stat(path); err != nil {
				t.Errorf("Returned path does not exist: %s", path)
			}
		})
	}
}

func TestFindFileCaseInsensitive_MissingDir(t *testing.T) {
	_, err := FindFileCaseInsensitive(filepath.Join(t.TempDir(), "missing"), "a.sf2")
	if err == nil || errors.Is(err, ErrNotFound) {
		t.Errorf("Expected a read error, got %v", err)
	}
}

func TestFindInDirs(t *testing.T) {
	first := t.TempDir()
	second := t.TempDir()
	os.WriteFile(filepath.Join(second, "gm.SF2"), []byte("b"), 0644)

	path, err := FindInDirs([]string{"", "/nonexistent/dir", first, second}, "gm.sf2")
	if err != nil {
		t.Fatalf("FindInDirs() error = %v", err)
	}
	if want := filepath.Join(second, "gm.SF2"); path != want {
		t.Errorf("FindInDirs() = %s, want %s", path, want)
	}

	os.WriteFile(filepath.Join(first, "gm.sf2"), []byte("a"), 0644)
	path, _ = FindInDirs([]string{first, second}, "gm.sf2")
	if want := filepath.Join(first, "gm.sf2"); path != want {
		t.Errorf("FindInDirs() = %s, want earlier directory %s", path, want)
	}

	if _, err := FindInDirs([]string{first}, "other.sf2"); !errors.Is(err, ErrNotFound) {
		t.Errorf("FindInDirs() error = %v, want ErrNotFound", err)
	}
}
