// Package preset defines export presets: named bundles of output format,
// file-naming constraints, and encoder settings applied when an export
// collection is created. Presets are process-wide configuration; collections
// snapshot a preset's format and settings at creation time and never hold a
// live binding.
package preset

import (
	"fmt"
	"regexp"
	"sort"
	"sync"
)

// Format identifies the on-disk model format an export produces.
type Format string

const (
	FormatFBX Format = "FBX"
	FormatOBJ Format = "OBJ"
)

// Extension returns the lowercase file extension for the format, without dot.
func (f Format) Extension() string {
	switch f {
	case FormatFBX:
		return "fbx"
	case FormatOBJ:
		return "obj"
	}
	return ""
}

// ParseFormat validates a format string from the API or a preset file.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatFBX, FormatOBJ:
		return Format(s), nil
	}
	return "", fmt.Errorf("unknown export format %q", s)
}

// NamingError reports a collection name that violates a preset's naming pattern.
type NamingError struct {
	PresetID string
	Name     string
	Pattern  string
}

func (e *NamingError) Error() string {
	return fmt.Sprintf("name %q does not match naming pattern %q of preset %q", e.Name, e.Pattern, e.PresetID)
}

// Preset is an immutable export configuration for one asset class.
type Preset struct {
	ID            string
	Label         string
	Format        Format
	FilePrefix    string // prepended to derived file names, e.g. "SM"
	NamingPattern string // optional regexp a collection name must match
	Settings      map[string]any

	naming *regexp.Regexp
}

// ValidateName checks a proposed collection name against the preset's naming
// pattern. Presets without a pattern accept any name.
func (p *Preset) ValidateName(name string) error {
	if p.naming == nil {
		return nil
	}
	if !p.naming.MatchString(name) {
		return &NamingError{PresetID: p.ID, Name: name, Pattern: p.NamingPattern}
	}
	return nil
}

// FileName derives the default output file name for a collection exported
// with this preset, e.g. "SM_Crate.fbx".
func (p *Preset) FileName(name string) string {
	if p.FilePrefix == "" {
		return fmt.Sprintf("%s.%s", name, p.Format.Extension())
	}
	return fmt.Sprintf("%s_%s.%s", p.FilePrefix, name, p.Format.Extension())
}

// CloneSettings returns a copy of the preset's settings map for a collection
// snapshot.
func (p *Preset) CloneSettings() map[string]any {
	out := make(map[string]any, len(p.Settings))
	for k, v := range p.Settings {
		out[k] = v
	}
	return out
}

// Store holds the process-wide preset set. Built-in presets are always
// present; a preset file can add to or override them.
type Store struct {
	mu      sync.RWMutex
	presets map[string]*Preset
}

// NewStore creates a store populated with the built-in presets.
func NewStore() *Store {
	s := &Store{presets: make(map[string]*Preset)}
	for _, p := range builtins() {
		s.presets[p.ID] = p
	}
	return s
}

// Get returns the preset with the given id.
func (s *Store) Get(id string) (*Preset, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.presets[id]
	return p, ok
}

// List returns all presets sorted by id.
func (s *Store) List() []*Preset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Preset, 0, len(s.presets))
	for _, p := range s.presets {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Store) replace(presets []*Preset) {
	next := make(map[string]*Preset)
	for _, p := range builtins() {
		next[p.ID] = p
	}
	for _, p := range presets {
		next[p.ID] = p
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.presets = next
}

// FilePrefixes returns the known file prefixes, used to strip a type prefix
// a user typed into a collection name by hand.
func (s *Store) FilePrefixes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]bool)
	var out []string
	for _, p := range s.presets {
		if p.FilePrefix != "" && !seen[p.FilePrefix] {
			seen[p.FilePrefix] = true
			out = append(out, p.FilePrefix)
		}
	}
	sort.Strings(out)
	return out
}

const defaultNamingPattern = `^[A-Za-z][A-Za-z0-9_]*$`

func builtins() []*Preset {
	presets := []*Preset{
		{
			ID:            "static-mesh",
			Label:         "Static Mesh",
			Format:        FormatFBX,
			FilePrefix:    "SM",
			NamingPattern: defaultNamingPattern,
			Settings: map[string]any{
				"axis_up":         "Z",
				"axis_forward":    "Y",
				"scale":           1.0,
				"apply_modifiers": true,
				"apply_transform": false,
			},
		},
		{
			ID:            "skeletal-mesh",
			Label:         "Skeletal Mesh",
			Format:        FormatFBX,
			FilePrefix:    "SK",
			NamingPattern: defaultNamingPattern,
			Settings: map[string]any{
				"axis_up":         "Z",
				"axis_forward":    "Y",
				"scale":           1.0,
				"apply_modifiers": true,
				"add_leaf_bones":  false,
			},
		},
		{
			ID:            "midpoly-bake",
			Label:         "Mid Poly",
			Format:        FormatOBJ,
			FilePrefix:    "MID",
			NamingPattern: defaultNamingPattern,
			Settings: map[string]any{
				"apply_modifiers": true,
				"triangulate":     false,
			},
		},
		{
			ID:            "highpoly-bake",
			Label:         "High Poly",
			Format:        FormatOBJ,
			FilePrefix:    "HIGH",
			NamingPattern: defaultNamingPattern,
			Settings: map[string]any{
				"apply_modifiers": true,
				"triangulate":     true,
			},
		},
	}
	for _, p := range presets {
		p.naming = regexp.MustCompile(p.NamingPattern)
	}
	return presets
}
