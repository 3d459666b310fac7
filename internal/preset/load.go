package preset

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// File is the on-disk preset definition format.
type File struct {
	Presets []Definition `yaml:"presets"`
}

// Definition is a single user-defined preset entry.
type Definition struct {
	ID            string         `yaml:"id"`
	Label         string         `yaml:"label"`
	Format        string         `yaml:"format"`
	FilePrefix    string         `yaml:"file_prefix"`
	NamingPattern string         `yaml:"naming_pattern"`
	Settings      map[string]any `yaml:"settings"`
}

// LoadFile reads a YAML preset file and replaces the store's user-defined
// presets with its contents. Built-in presets remain available unless a file
// entry reuses their id. The store is left unchanged on any error.
func (s *Store) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read preset file %q: %w", path, err)
	}

	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse preset file %q: %w", path, err)
	}

	presets := make([]*Preset, 0, len(file.Presets))
	for i, def := range file.Presets {
		p, err := def.build()
		if err != nil {
			return fmt.Errorf("preset file %q entry %d: %w", path, i, err)
		}
		presets = append(presets, p)
	}

	s.replace(presets)
	return nil
}

func (d Definition) build() (*Preset, error) {
	if d.ID == "" {
		return nil, fmt.Errorf("preset id is required")
	}

	format, err := ParseFormat(d.Format)
	if err != nil {
		return nil, err
	}

	p := &Preset{
		ID:            d.ID,
		Label:         d.Label,
		Format:        format,
		FilePrefix:    d.FilePrefix,
		NamingPattern: d.NamingPattern,
		Settings:      d.Settings,
	}
	if p.Label == "" {
		p.Label = p.ID
	}
	if p.Settings == nil {
		p.Settings = map[string]any{}
	}
	if p.NamingPattern != "" {
		re, err := regexp.Compile(p.NamingPattern)
		if err != nil {
			return nil, fmt.Errorf("invalid naming pattern %q: %w", p.NamingPattern, err)
		}
		p.naming = re
	}
	return p, nil
}
