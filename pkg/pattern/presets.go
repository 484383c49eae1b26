package pattern

import (
	"embed"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"
)

// ErrUnknownPreset is returned by Preset for names that are not built in.
var ErrUnknownPreset = errors.New("unknown preset")

//go:embed presets/*.yml
var presetFS embed.FS

var (
	presetsOnce sync.Once
	presets     map[string]Document
	presetsErr  error
)

func loadPresets() {
	presets = make(map[string]Document)
	entries, err := presetFS.ReadDir("presets")
	if err != nil {
		presetsErr = err
		return
	}
	for _, e := range entries {
		data, err := presetFS.ReadFile(path.Join("presets", e.Name()))
		if err != nil {
			presetsErr = err
			return
		}
		doc, err := Parse(data)
		if err != nil {
			presetsErr = fmt.Errorf("preset %s: %w", e.Name(), err)
			return
		}
		if doc.Name == "" {
			doc.Name = strings.TrimSuffix(e.Name(), path.Ext(e.Name()))
		}
		presets[doc.Name] = doc
	}
}

// Preset returns a copy of the built-in pattern with the given name.
func Preset(name string) (Document, error) {
	presetsOnce.Do(loadPresets)
	if presetsErr != nil {
		return Document{}, presetsErr
	}
	doc, ok := presets[name]
	if !ok {
		return Document{}, fmt.Errorf("%w: %s (available: %s)", ErrUnknownPreset, name, strings.Join(PresetNames(), ", "))
	}
	doc.Config = doc.Config.Clone()
	return doc, nil
}

// PresetNames lists the built-in patterns in alphabetical order.
func PresetNames() []string {
	presetsOnce.Do(loadPresets)
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
