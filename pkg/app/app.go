package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/zurustar/metronome/pkg/cli"
	"github.com/zurustar/metronome/pkg/display"
	"github.com/zurustar/metronome/pkg/engine"
	"github.com/zurustar/metronome/pkg/export"
	"github.com/zurustar/metronome/pkg/logger"
	"github.com/zurustar/metronome/pkg/metronome"
	"github.com/zurustar/metronome/pkg/pattern"
	"github.com/zurustar/metronome/pkg/scheduler"
)

// Application はアプリケーションのメインロジックを管理する
type Application struct {
	config *cli.Config
	log    *slog.Logger
	stdout io.Writer
	stderr io.Writer
	doc    pattern.Document // 再生するパターン
}

// New Applicationを作成
func New() *Application {
	return NewWithOutput(os.Stdout, os.Stderr)
}

// NewWithOutput 出力先を指定してApplicationを作成
func NewWithOutput(stdout, stderr io.Writer) *Application {
	return &Application{
		stdout: stdout,
		stderr: stderr,
	}
}

// Run アプリケーションを実行
func (app *Application) Run(args []string) error {
	// 1. コマンドライン引数の解析
	if err := app.parseArgs(args); err != nil {
		return fmt.Errorf("failed to parse args: %w", err)
	}

	if app.config.ShowHelp {
		cli.PrintHelp(app.stdout)
		return nil
	}

	if app.config.ListPresets {
		return app.listPresets()
	}

	// 2. ロガーの初期化
	if err := app.initLogger(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	app.log.Info("Application started")

	// 3. パターンの読み込み
	doc, err := app.loadPattern()
	if err != nil {
		return fmt.Errorf("failed to load pattern: %w", err)
	}
	app.doc = doc

	app.log.Info("Pattern selected",
		"name", doc.Name,
		"tempo", doc.Tempo,
		"volume", doc.Volume,
		"beatUnit", doc.EffectiveBeatUnit(),
		"beats", doc.BeatsPerMeasure(),
		"layers", doc.Layers.Names())

	// シグナルで停止できるようにする
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 4. エクスポート（指定されている場合は再生しない）
	if app.config.Exporting() {
		if err := app.export(ctx); err != nil {
			return fmt.Errorf("failed to export: %w", err)
		}
		app.log.Info("Application terminated normally")
		return nil
	}

	// 5. 再生
	if err := app.play(ctx); err != nil {
		return fmt.Errorf("failed to play: %w", err)
	}

	app.log.Info("Application terminated normally")
	return nil
}

// parseArgs コマンドライン引数を解析
func (app *Application) parseArgs(args []string) error {
	config, err := cli.ParseArgs(args)
	if err != nil {
		return err
	}
	app.config = config
	return nil
}

// initLogger ロガーを初期化（拍の表示と混ざらないよう標準エラーに出力）
func (app *Application) initLogger() error {
	if err := logger.InitLoggerTo(app.stderr, app.config.LogLevel); err != nil {
		return err
	}
	app.log = logger.GetLogger()
	return nil
}

// listPresets 組み込みプリセットの一覧を表示
func (app *Application) listPresets() error {
	for _, name := range pattern.PresetNames() {
		doc, err := pattern.Preset(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(app.stdout, "%-16s %3d bpm  %d/%d  %s\n",
			name, doc.Tempo, doc.BeatsPerMeasure(), doc.EffectiveBeatUnit(), doc.Description)
	}
	return nil
}

// loadPattern パターンを決定してコマンドライン指定で上書きする
// 優先順位: パターンファイル → プリセット → シンプルモード
func (app *Application) loadPattern() (pattern.Document, error) {
	var doc pattern.Document
	var err error

	switch {
	case app.config.PatternFile != "":
		doc, err = pattern.Load(app.config.PatternFile)
		if err != nil {
			return doc, err
		}
		if doc.Name == "" {
			base := filepath.Base(app.config.PatternFile)
			doc.Name = base[:len(base)-len(filepath.Ext(base))]
		}
	case app.config.Preset != "":
		doc, err = pattern.Preset(app.config.Preset)
		if err != nil {
			return doc, err
		}
	default:
		doc = pattern.Document{
			Name:   "simple",
			Config: pattern.Simple(pattern.DefaultTempo, pattern.DefaultVolume, app.config.Beats, app.config.Accent),
		}
	}

	// コマンドライン指定で上書き
	if app.config.Tempo != 0 {
		doc.Tempo = app.config.Tempo
	}
	if app.config.VolumeSet() {
		doc.Volume = app.config.Volume
	}
	if app.config.BeatUnit != 0 {
		doc.BeatUnit = app.config.BeatUnit
	}

	if err := pattern.Validate(doc.Config); err != nil {
		return doc, err
	}
	return doc, nil
}

// patternDir パターンファイルのディレクトリ（SoundFont検索用）
func (app *Application) patternDir() string {
	if app.config.PatternFile == "" {
		return ""
	}
	return filepath.Dir(app.config.PatternFile)
}

// newBank 音源を作成する
// SoundFontが見つからない場合は内蔵の合成音源を使う
func (app *Application) newBank(sampleRate int) (engine.Bank, error) {
	loc := findSoundFont(app.config.SoundFont, app.patternDir())
	if loc == nil {
		app.log.Debug("No SoundFont found, using built-in voices")
		return engine.NewSynthBank(sampleRate), nil
	}

	bank, err := engine.LoadSoundFontBank(loc.Path, sampleRate)
	if err != nil {
		// 明示的に指定されたSoundFontの読み込み失敗はエラー
		if loc.Explicit {
			return nil, err
		}
		app.log.Warn("Failed to load SoundFont, using built-in voices", "path", loc.Path, "error", err)
		return engine.NewSynthBank(sampleRate), nil
	}

	app.log.Info("SoundFont loaded", "path", loc.Path)
	return bank, nil
}

// export MIDI/WAVファイルを書き出す
func (app *Application) export(ctx context.Context) error {
	measures := app.config.Measures

	if path := app.config.ExportMIDI; path != "" {
		if err := export.SaveMIDI(path, app.doc.Name, app.doc.Config, measures); err != nil {
			return err
		}
		app.log.Info("MIDI file written", "path", path, "measures", measures)
	}

	if path := app.config.RenderWAV; path != "" {
		bank, err := app.newBank(engine.SampleRate)
		if err != nil {
			return err
		}
		if err := export.SaveWAV(ctx, path, app.doc.Config, measures, bank); err != nil {
			return err
		}
		app.log.Info("WAV file written", "path", path, "measures", measures, "tail", export.Tail)
	}

	return nil
}

// engineFactory エンジンの生成関数を返す
// ヘッドレスモードでは音声デバイスを使わず壁時計で進むエンジンを使う
func (app *Application) engineFactory() metronome.EngineFactory {
	return func() (engine.Engine, error) {
		bank, err := app.newBank(engine.SampleRate)
		if err != nil {
			return nil, err
		}
		if app.config.Headless {
			app.log.Info("Headless mode: audio output disabled")
			return engine.NewPaced(engine.SampleRate, bank), nil
		}
		return engine.NewRealtime(bank, engine.WithLogger(app.log))
	}
}

// play メトロノームを再生し、タイムアウトかシグナルまで待つ
func (app *Application) play(ctx context.Context) error {
	provider := metronome.NewProvider(app.engineFactory(), scheduler.WithLogger(app.log))
	defer func() {
		if err := provider.Release(); err != nil {
			app.log.Warn("Failed to release metronome", "error", err)
		}
	}()

	svc, err := provider.Acquire()
	if err != nil {
		return err
	}

	// タイムアウトが指定されている場合は、その時間だけ再生
	if app.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, app.config.Timeout)
		defer cancel()
		app.log.Info("Playing until timeout", "duration", app.config.Timeout)
	}

	disp := display.New(app.stdout, app.doc.Layers)
	if err := svc.Start(ctx, app.doc.Config, disp.Beat); err != nil {
		return err
	}

	<-ctx.Done()
	svc.Stop()

	app.log.Info("Metronome stopped", "beats", disp.Count())
	return nil
}
