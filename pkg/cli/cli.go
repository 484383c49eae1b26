package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultMeasures はエクスポート時のデフォルト小節数
const DefaultMeasures = 4

// Config はコマンドライン引数から解析された設定を保持する
type Config struct {
	PatternFile string        // パターンファイルのパス（.yml, .yaml, .json）
	Preset      string        // 組み込みプリセット名
	Tempo       int           // テンポ（BPM、0は未指定）
	Volume      float64       // 音量 0〜1（負の値は未指定）
	BeatUnit    int           // 拍の単位（2, 4, 8, 16、0は未指定）
	Beats       int           // シンプルモードの1小節の拍数
	Accent      bool          // シンプルモードで1拍目にアクセントを付ける
	SoundFont   string        // SoundFontファイルのパス
	Timeout     time.Duration // タイムアウト時間（0は無制限）
	LogLevel    string        // ログレベル（debug, info, warn, error）
	Headless    bool          // ヘッドレスモード（音声デバイスを使わない）
	ExportMIDI  string        // MIDIファイルの出力先
	RenderWAV   string        // WAVファイルの出力先
	Measures    int           // エクスポートする小節数
	ListPresets bool          // プリセット一覧表示フラグ
	ShowHelp    bool          // ヘルプ表示フラグ
}

// VolumeSet は音量が指定されたかどうかを返す
func (c *Config) VolumeSet() bool {
	return c.Volume >= 0
}

// Exporting はエクスポートモードかどうかを返す
func (c *Config) Exporting() bool {
	return c.ExportMIDI != "" || c.RenderWAV != ""
}

// ブール型フラグ（値を取らない）
var boolFlags = map[string]bool{
	"-h": true, "--help": true, "-help": true,
	"--headless": true, "-headless": true,
	"--accent": true, "-accent": true,
	"--list-presets": true, "-list-presets": true,
}

// ParseArgs コマンドライン引数を解析してConfigを返す
func ParseArgs(args []string) (*Config, error) {
	// 引数を並べ替え：フラグを前に、位置引数を後ろに
	reorderedArgs := reorderArgs(args)

	fs := flag.NewFlagSet("metronome", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	config := &Config{}

	var timeoutSec int
	fs.IntVar(&config.Tempo, "bpm", 0, "テンポ（BPM）")
	fs.IntVar(&config.Tempo, "b", 0, "テンポ（BPM）（短縮形）")
	fs.Float64Var(&config.Volume, "volume", -1, "音量（0〜1）")
	fs.IntVar(&config.BeatUnit, "beat-unit", 0, "拍の単位（2, 4, 8, 16）")
	fs.IntVar(&config.Beats, "beats", 4, "1小節の拍数")
	fs.BoolVar(&config.Accent, "accent", true, "1拍目にアクセント")
	fs.StringVar(&config.PatternFile, "pattern", "", "パターンファイル")
	fs.StringVar(&config.PatternFile, "p", "", "パターンファイル（短縮形）")
	fs.StringVar(&config.Preset, "preset", "", "プリセット名")
	fs.StringVar(&config.SoundFont, "soundfont", "", "SoundFontファイル")
	fs.IntVar(&timeoutSec, "timeout", 0, "タイムアウト時間（秒）")
	fs.IntVar(&timeoutSec, "t", 0, "タイムアウト時間（秒）（短縮形）")
	fs.StringVar(&config.LogLevel, "log-level", "info", "ログレベル（debug, info, warn, error）")
	fs.StringVar(&config.LogLevel, "l", "info", "ログレベル（短縮形）")
	fs.BoolVar(&config.Headless, "headless", false, "ヘッドレスモード")
	fs.StringVar(&config.ExportMIDI, "export-midi", "", "MIDIファイルを書き出す")
	fs.StringVar(&config.RenderWAV, "render-wav", "", "WAVファイルを書き出す")
	fs.IntVar(&config.Measures, "measures", DefaultMeasures, "エクスポートする小節数")
	fs.BoolVar(&config.ListPresets, "list-presets", false, "プリセット一覧を表示")
	fs.BoolVar(&config.ShowHelp, "help", false, "ヘルプを表示")
	fs.BoolVar(&config.ShowHelp, "h", false, "ヘルプを表示（短縮形）")

	if err := fs.Parse(reorderedArgs); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			config.ShowHelp = true
			return config, nil
		}
		return nil, err
	}

	// 環境変数からの設定（コマンドラインフラグが優先）
	if !config.Headless {
		if headlessEnv := os.Getenv("HEADLESS"); headlessEnv != "" {
			config.Headless = headlessEnv == "1" || strings.ToLower(headlessEnv) == "true"
		}
	}

	// 環境変数からタイムアウトを取得（コマンドラインフラグが優先）
	if timeoutSec == 0 {
		if timeoutEnv := os.Getenv("TIMEOUT"); timeoutEnv != "" {
			if t, err := strconv.Atoi(timeoutEnv); err == nil && t > 0 {
				timeoutSec = t
			}
		}
	}

	// 環境変数からログレベルを取得（コマンドラインフラグが優先）
	if config.LogLevel == "info" {
		if logLevelEnv := os.Getenv("LOG_LEVEL"); logLevelEnv != "" {
			config.LogLevel = strings.ToLower(logLevelEnv)
		}
	}

	// 環境変数からテンポを取得（コマンドラインフラグが優先）
	if config.Tempo == 0 {
		if bpmEnv := os.Getenv("METRONOME_BPM"); bpmEnv != "" {
			bpm, err := strconv.Atoi(bpmEnv)
			if err != nil {
				return nil, fmt.Errorf("invalid METRONOME_BPM: %q", bpmEnv)
			}
			config.Tempo = bpm
		}
	}

	// 環境変数からSoundFontを取得（コマンドラインフラグが優先）
	if config.SoundFont == "" {
		config.SoundFont = os.Getenv("SOUNDFONT")
	}

	// タイムアウトの検証
	if timeoutSec < 0 {
		return nil, fmt.Errorf("timeout must be non-negative, got %d", timeoutSec)
	}
	config.Timeout = time.Duration(timeoutSec) * time.Second

	// ログレベルの検証
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[config.LogLevel] {
		return nil, fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", config.LogLevel)
	}

	// 数値オプションの検証（範囲の詳細はパターン検証で行う）
	if config.Tempo < 0 {
		return nil, fmt.Errorf("bpm must be positive, got %d", config.Tempo)
	}
	if config.Beats < 1 {
		return nil, fmt.Errorf("beats must be at least 1, got %d", config.Beats)
	}
	if config.Measures < 1 {
		return nil, fmt.Errorf("measures must be at least 1, got %d", config.Measures)
	}

	// 位置引数（パターンファイルのパス）
	if fs.NArg() > 0 {
		if config.PatternFile != "" && config.PatternFile != fs.Arg(0) {
			return nil, fmt.Errorf("pattern file given twice: %s and %s", config.PatternFile, fs.Arg(0))
		}
		config.PatternFile = fs.Arg(0)
	}
	if fs.NArg() > 1 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args()[1:])
	}

	// パターンファイルとプリセットは排他
	if config.PatternFile != "" && config.Preset != "" {
		return nil, fmt.Errorf("--pattern and --preset cannot be used together")
	}

	return config, nil
}

// reorderArgs 引数を並べ替えて、フラグを前に、位置引数を後ろに配置する
func reorderArgs(args []string) []string {
	var flags []string
	var positional []string

	for i := 0; i < len(args); i++ {
		arg := args[i]

		// フラグかどうかを判定（-または--で始まる）
		if len(arg) > 1 && arg[0] == '-' {
			flags = append(flags, arg)

			// 次の引数が値である可能性をチェック
			// （-t 5 のような場合）
			if strings.Contains(arg, "=") || boolFlags[arg] {
				continue
			}
			if i+1 < len(args) && len(args[i+1]) > 0 && (args[i+1][0] != '-' || isNumber(args[i+1])) {
				i++
				flags = append(flags, args[i])
			}
		} else {
			// 位置引数
			positional = append(positional, arg)
		}
	}

	// フラグを前に、位置引数を後ろに配置
	return append(flags, positional...)
}

// isNumber は負の数値をフラグと区別するために使う
func isNumber(s string) bool {
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

// PrintHelp ヘルプメッセージを表示
func PrintHelp(w io.Writer) {
	fmt.Fprintf(w, `metronome - lookahead metronome

Usage:
  metronome [options] [pattern-file]

Arguments:
  pattern-file    パターンファイル（.yml, .yaml, .json）のパス（省略可）
                  省略した場合は --preset またはシンプルモードで再生

Options:
  -b, --bpm <bpm>             テンポ（40〜240、デフォルト: パターンの値または120）
  --volume <0-1>              音量（デフォルト: パターンの値または0.8）
  --beat-unit <n>             拍の単位: 2, 4, 8, 16（デフォルト: 4）
  --beats <n>                 シンプルモードの1小節の拍数（デフォルト: 4）
  --accent                    シンプルモードで1拍目にアクセント（デフォルト: true）
  -p, --pattern <file>        パターンファイル
  --preset <name>             組み込みプリセット
  --list-presets              プリセット一覧を表示
  --soundfont <file>          SoundFont（.sf2）で発音（省略時は内蔵音源）
  --export-midi <file>        MIDIファイルを書き出して終了
  --render-wav <file>         WAVファイルを書き出して終了
  --measures <n>              書き出す小節数（デフォルト: 4）
  -t, --timeout <seconds>     指定秒数後に停止（デフォルト: 無制限）
  -l, --log-level <level>     ログレベル: debug, info, warn, error（デフォルト: info）
  --headless                  ヘッドレスモード（音声デバイスなしで拍を表示）
  -h, --help                  このヘルプを表示

Environment Variables:
  METRONOME_BPM=<bpm>         テンポ
  HEADLESS=1                  ヘッドレスモードを有効化
  TIMEOUT=<seconds>           タイムアウト時間（秒）
  LOG_LEVEL=<level>           ログレベル
  SOUNDFONT=<file>            SoundFontファイル

Examples:
  metronome --bpm 90 --beats 3            3拍子、90 BPM
  metronome --preset son-clave            プリセットを再生
  metronome patterns/groove.yml -t 30     パターンファイルを30秒再生
  metronome --preset waltz-3-4 --export-midi waltz.mid --measures 8
  HEADLESS=1 metronome --bpm 120          音声デバイスなしで実行
`)
}
