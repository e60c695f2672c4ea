package assets

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
)

// PresetsFS embeds the named rule lists shipped with the CLI and the wasm module.
//
// NOTE: go:embed patterns must not use ".." and must be relative to this file.
//
//go:embed presets/*.json
var PresetsFS embed.FS

// Preset returns the JSON rule document of a named preset.
func Preset(name string) ([]byte, error) {
	data, err := PresetsFS.ReadFile(path.Join("presets", name+".json"))
	if err != nil {
		return nil, fmt.Errorf("unknown preset %q (available: %s)", name, strings.Join(PresetNames(), ", "))
	}
	return data, nil
}

// PresetNames lists the embedded presets in alphabetical order.
func PresetNames() []string {
	entries, err := fs.ReadDir(PresetsFS, "presets")
	if err != nil {
		return nil
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if name, ok := strings.CutSuffix(e.Name(), ".json"); ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
