package app

import (
	"os"
	"path/filepath"

	"github.com/zurustar/metronome/pkg/fileutil"
)

// DefaultSoundFontName is the default SoundFont filename to search for.
const DefaultSoundFontName = "GeneralUser-GS.sf2"

// SoundFontLocation represents the location of a SoundFont file.
type SoundFontLocation struct {
	// Path is the path to the SoundFont file
	Path string
	// Explicit is true when the path came from --soundfont or SOUNDFONT
	Explicit bool
}

// findSoundFont searches for a SoundFont file in the following order:
// 1. Explicit path (--soundfont or SOUNDFONT)
// 2. Current directory
// 3. Pattern file directory
// 4. User config directory (metronome/)
//
// 明示的に指定されたパスは存在しなくてもそのまま返す（読み込み時にエラーにする）
//
// Parameters:
//   - explicit: Path given on the command line or in the environment
//   - patternDir: Directory of the pattern file, or "" for presets
//
// Returns:
//   - *SoundFontLocation: Location of the SoundFont file, or nil if not found
func findSoundFont(explicit, patternDir string) *SoundFontLocation {
	// 1. 明示的な指定
	if explicit != "" {
		return &SoundFontLocation{Path: explicit, Explicit: true}
	}

	// 2-4. 既定のファイル名を大文字小文字を無視して検索
	dirs := []string{"."}
	if patternDir != "" {
		dirs = append(dirs, patternDir)
	}
	if configDir, err := os.UserConfigDir(); err == nil {
		dirs = append(dirs, filepath.Join(configDir, "metronome"))
	}

	path, err := fileutil.FindInDirs(dirs, DefaultSoundFontName)
	if err != nil {
		return nil
	}
	return &SoundFontLocation{Path: path}
}
