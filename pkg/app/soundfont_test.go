package app

import (
	"os"
	"path/filepath"
	"testing"
)

// isolate moves into an empty directory with no user config SoundFont.
func isolate(t *testing.T) string {
	t.Helper()
	tmpDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmpDir, "config"))
	t.Setenv("HOME", tmpDir)
	t.Chdir(tmpDir)
	return tmpDir
}

func TestFindSoundFont_Explicit(t *testing.T) {
	isolate(t)

	result := findSoundFont("/does/not/exist.sf2", "")
	if result == nil {
		t.Fatal("Expected explicit path to be returned")
	}
	if !result.Explicit || result.Path != "/does/not/exist.sf2" {
		t.Errorf("result = %+v", result)
	}
}

func TestFindSoundFont_CurrentDirectory(t *testing.T) {
	tmpDir := isolate(t)
	if err := os.WriteFile(filepath.Join(tmpDir, "generaluser-gs.SF2"), []byte("RIFF....sfbk"), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	result := findSoundFont("", "")
	if result == nil {
		t.Fatal("Expected to find SoundFont in current directory")
	}
	if result.Explicit {
		t.Error("Expected a discovered file, got explicit")
	}
	if filepath.Base(result.Path) != "generaluser-gs.SF2" {
		t.Errorf("Expected the case-folded match, got %s", result.Path)
	}
}

func TestFindSoundFont_PatternDir(t *testing.T) {
	tmpDir := isolate(t)
	patternDir := filepath.Join(tmpDir, "patterns")
	os.MkdirAll(patternDir, 0755)

	sfPath := filepath.Join(patternDir, DefaultSoundFontName)
	if err := os.WriteFile(sfPath, []byte("RIFF....sfbk"), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	result := findSoundFont("", patternDir)
	if result == nil {
		t.Fatal("Expected to find SoundFont in pattern directory")
	}
	if result.Path != sfPath {
		t.Errorf("Expected path %s, got %s", sfPath, result.Path)
	}
}

func TestFindSoundFont_UserConfigDir(t *testing.T) {
	tmpDir := isolate(t)
	configDir, err := os.UserConfigDir()
	if err != nil {
		t.Skipf("no user config dir: %v", err)
	}
	dir := filepath.Join(configDir, "metronome")
	os.MkdirAll(dir, 0755)
	os.WriteFile(filepath.Join(dir, DefaultSoundFontName), []byte("RIFF"), 0644)

	result := findSoundFont("", filepath.Join(tmpDir, "nowhere"))
	if result == nil {
		t.Fatal("Expected to find SoundFont in user config directory")
	}
	if filepath.Dir(result.Path) != dir {
		t.Errorf("Expected file in %s, got %s", dir, result.Path)
	}
}

func TestFindSoundFont_NotFound(t *testing.T) {
	isolate(t)

	if result := findSoundFont("", "/nonexistent/path"); result != nil {
		t.Errorf("Expected nil when no SoundFont found, got %+v", result)
	}
}

func TestFindSoundFont_Priority(t *testing.T) {
	tmpDir := isolate(t)
	patternDir := filepath.Join(tmpDir, "patterns")
	os.MkdirAll(patternDir, 0755)

	os.WriteFile(filepath.Join(tmpDir, DefaultSoundFontName), []byte("RIFF-current"), 0644)
	os.WriteFile(filepath.Join(patternDir, DefaultSoundFontName), []byte("RIFF-pattern"), 0644)

	result := findSoundFont("", patternDir)
	if result == nil {
		t.Fatal("Expected to find SoundFont")
	}
	// Current directory should be found first
	if result.Path != DefaultSoundFontName {
		t.Errorf("Expected current directory SoundFont, got %s", result.Path)
	}
}
