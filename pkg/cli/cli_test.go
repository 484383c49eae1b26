package cli

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

// clearEnv は環境変数の影響を受けないようにする
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"HEADLESS", "TIMEOUT", "LOG_LEVEL", "METRONOME_BPM", "SOUNDFONT"} {
		t.Setenv(key, "")
	}
}

func TestParseArgs_ValidArgs(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected Config
	}{
		{
			name: "デフォルト設定",
			args: []string{},
			expected: Config{
				Volume:   -1,
				Beats:    4,
				Accent:   true,
				LogLevel: "info",
				Measures: DefaultMeasures,
			},
		},
		{
			name: "パターンファイル指定",
			args: []string{"/path/to/groove.yml"},
			expected: Config{
				PatternFile: "/path/to/groove.yml",
				Volume:      -1,
				Beats:       4,
				Accent:      true,
				LogLevel:    "info",
				Measures:    DefaultMeasures,
			},
		},
		{
			name: "テンポ指定",
			args: []string{"--bpm", "90"},
			expected: Config{
				Tempo:    90,
				Volume:   -1,
				Beats:    4,
				Accent:   true,
				LogLevel: "info",
				Measures: DefaultMeasures,
			},
		},
		{
			name: "テンポ指定（短縮形）",
			args: []string{"-b", "200"},
			expected: Config{
				Tempo:    200,
				Volume:   -1,
				Beats:    4,
				Accent:   true,
				LogLevel: "info",
				Measures: DefaultMeasures,
			},
		},
		{
			name: "シンプルモード（3拍子、アクセントなし）",
			args: []string{"--beats", "3", "--accent=false", "--volume", "0.5", "--beat-unit", "8"},
			expected: Config{
				Volume:   0.5,
				BeatUnit: 8,
				Beats:    3,
				Accent:   false,
				LogLevel: "info",
				Measures: DefaultMeasures,
			},
		},
		{
			name: "プリセット指定",
			args: []string{"--preset", "son-clave", "--headless"},
			expected: Config{
				Preset:   "son-clave",
				Volume:   -1,
				Beats:    4,
				Accent:   true,
				LogLevel: "info",
				Headless: true,
				Measures: DefaultMeasures,
			},
		},
		{
			name: "タイムアウト指定（短縮形）",
			args: []string{"-t", "5"},
			expected: Config{
				Volume:   -1,
				Beats:    4,
				Accent:   true,
				Timeout:  5 * time.Second,
				LogLevel: "info",
				Measures: DefaultMeasures,
			},
		},
		{
			name: "ログレベル指定（短縮形）",
			args: []string{"-l", "error"},
			expected: Config{
				Volume:   -1,
				Beats:    4,
				Accent:   true,
				LogLevel: "error",
				Measures: DefaultMeasures,
			},
		},
		{
			name: "エクスポート",
			args: []string{"--preset", "waltz-3-4", "--export-midi", "out.mid", "--render-wav", "out.wav", "--measures", "8"},
			expected: Config{
				Preset:     "waltz-3-4",
				Volume:     -1,
				Beats:      4,
				Accent:     true,
				LogLevel:   "info",
				ExportMIDI: "out.mid",
				RenderWAV:  "out.wav",
				Measures:   8,
			},
		},
		{
			name: "ヘルプ表示（短縮形）",
			args: []string{"-h"},
			expected: Config{
				Volume:   -1,
				Beats:    4,
				Accent:   true,
				LogLevel: "info",
				Measures: DefaultMeasures,
				ShowHelp: true,
			},
		},
		{
			name: "プリセット一覧",
			args: []string{"--list-presets"},
			expected: Config{
				Volume:      -1,
				Beats:       4,
				Accent:      true,
				LogLevel:    "info",
				Measures:    DefaultMeasures,
				ListPresets: true,
			},
		},
		{
			name: "位置引数が最初（順序に関係なく動作）",
			args: []string{"groove.json", "--timeout", "10", "--headless", "--soundfont", "gm.sf2"},
			expected: Config{
				PatternFile: "groove.json",
				Volume:      -1,
				Beats:       4,
				Accent:      true,
				SoundFont:   "gm.sf2",
				Timeout:     10 * time.Second,
				LogLevel:    "info",
				Headless:    true,
				Measures:    DefaultMeasures,
			},
		},
		{
			name: "ブール型フラグの後の位置引数",
			args: []string{"--accent", "groove.yml", "--bpm", "120"},
			expected: Config{
				PatternFile: "groove.yml",
				Tempo:       120,
				Volume:      -1,
				Beats:       4,
				Accent:      true,
				LogLevel:    "info",
				Measures:    DefaultMeasures,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			config, err := ParseArgs(tt.args)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if *config != tt.expected {
				t.Errorf("config = %+v, want %+v", *config, tt.expected)
			}
		})
	}
}

func TestParseArgs_Environment(t *testing.T) {
	clearEnv(t)
	t.Setenv("HEADLESS", "true")
	t.Setenv("TIMEOUT", "7")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("METRONOME_BPM", "100")
	t.Setenv("SOUNDFONT", "/sf/gm.sf2")

	config, err := ParseArgs(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !config.Headless {
		t.Error("Headless should be enabled by HEADLESS")
	}
	if config.Timeout != 7*time.Second {
		t.Errorf("Timeout = %v, want 7s", config.Timeout)
	}
	if config.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", config.LogLevel)
	}
	if config.Tempo != 100 {
		t.Errorf("Tempo = %d, want 100", config.Tempo)
	}
	if config.SoundFont != "/sf/gm.sf2" {
		t.Errorf("SoundFont = %q", config.SoundFont)
	}

	// コマンドラインフラグが優先
	config, err = ParseArgs([]string{"--bpm", "60", "-t", "3", "--soundfont", "other.sf2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if config.Tempo != 60 || config.Timeout != 3*time.Second || config.SoundFont != "other.sf2" {
		t.Errorf("flags should win over environment: %+v", *config)
	}
}

func TestParseArgs_InvalidArgs(t *testing.T) {
	tests := []struct {
		name string
		args []string
		env  map[string]string
	}{
		{name: "負のタイムアウト", args: []string{"--timeout", "-10"}},
		{name: "無効なログレベル", args: []string{"--log-level", "invalid"}},
		{name: "無効なログレベル（短縮形）", args: []string{"-l", "trace"}},
		{name: "負のテンポ", args: []string{"--bpm", "-5"}},
		{name: "拍数が0", args: []string{"--beats", "0"}},
		{name: "小節数が0", args: []string{"--measures", "0"}},
		{name: "パターンとプリセットの併用", args: []string{"groove.yml", "--preset", "son-clave"}},
		{name: "位置引数が多すぎる", args: []string{"a.yml", "b.yml"}},
		{name: "未知のフラグ", args: []string{"--tempo", "120"}},
		{name: "無効なMETRONOME_BPM", env: map[string]string{"METRONOME_BPM": "fast"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := ParseArgs(tt.args)
			if err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestReorderArgs(t *testing.T) {
	got := reorderArgs([]string{"groove.yml", "--headless", "-b", "90", "--volume=0.4", "--timeout", "-1"})
	want := []string{"--headless", "-b", "90", "--volume=0.4", "--timeout", "-1", "groove.yml"}
	if strings.Join(got, " ") != strings.Join(want, " ") {
		t.Errorf("reorderArgs() = %v, want %v", got, want)
	}
}

func TestConfigHelpers(t *testing.T) {
	c := Config{Volume: -1}
	if c.VolumeSet() || c.Exporting() {
		t.Errorf("zero config: VolumeSet=%v Exporting=%v", c.VolumeSet(), c.Exporting())
	}
	c = Config{Volume: 0, RenderWAV: "a.wav"}
	if !c.VolumeSet() || !c.Exporting() {
		t.Errorf("VolumeSet=%v Exporting=%v, want both true", c.VolumeSet(), c.Exporting())
	}
}

func TestPrintHelp(t *testing.T) {
	var buf bytes.Buffer
	PrintHelp(&buf)
	for _, flag := range []string{"--bpm", "--preset", "--export-midi", "--render-wav", "--headless", "METRONOME_BPM"} {
		if !strings.Contains(buf.String(), flag) {
			t.Errorf("help does not mention %s", flag)
		}
	}
}
