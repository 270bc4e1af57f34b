package plugin

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"lumen/internal/config"
	"lumen/internal/domain"
)

// PreferenceDef is one preference a manifest declares. Required
// preferences without a stored user value gate the entrypoint behind
// the preference-required error screen.
type PreferenceDef struct {
	Name     string                `json:"name"`
	Type     config.PreferenceType `json:"type"`
	Required bool                  `json:"required"`
}

// Entrypoint is one invocable screen a plugin exposes.
type Entrypoint struct {
	ID          domain.EntrypointID `json:"id"`
	Name        string              `json:"name"`
	Path        string              `json:"path"` // source file, relative to the bundle dir
	Preferences []PreferenceDef     `json:"preferences"`
	Shortcuts   map[string]string   `json:"shortcuts"` // action id -> key chord
}

type manifest struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Entrypoints []Entrypoint    `json:"entrypoints"`
	Preferences []PreferenceDef `json:"preferences"`
}

// Bundle is one loaded plugin: manifest plus source code.
type Bundle struct {
	Dir         string
	ID          domain.PluginID
	Name        string
	Entrypoints []Entrypoint
	Preferences []PreferenceDef

	// sourceOrder preserves manifest order for deterministic evaluation
	sourceOrder []string
	sources     map[string]string
}

// LoadBundle reads a bundle directory: manifest.json plus the source
// file of every entrypoint.
func LoadBundle(dir string) (*Bundle, error) {
	raw, err := os.ReadFile(filepath.Join(dir, "manifest.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to read plugin manifest: %w", err)
	}

	var m manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("failed to parse plugin manifest: %w", err)
	}
	if m.ID == "" {
		return nil, fmt.Errorf("plugin manifest in %s has no id", dir)
	}
	if len(m.Entrypoints) == 0 {
		return nil, fmt.Errorf("plugin %s declares no entrypoints", m.ID)
	}
	name := m.Name
	if name == "" {
		name = m.ID
	}

	b := &Bundle{
		Dir:         dir,
		ID:          domain.PluginID(m.ID),
		Name:        name,
		Entrypoints: m.Entrypoints,
		Preferences: m.Preferences,
		sources:     make(map[string]string),
	}

	for _, ep := range m.Entrypoints {
		if ep.ID == "" || ep.Path == "" {
			return nil, fmt.Errorf("plugin %s has an entrypoint without id or path", m.ID)
		}
		if _, ok := b.sources[ep.Path]; ok {
			continue // entrypoints may share a source file
		}
		src, err := os.ReadFile(filepath.Join(dir, ep.Path))
		if err != nil {
			return nil, fmt.Errorf("failed to read source for entrypoint %s: %w", ep.ID, err)
		}
		b.sources[ep.Path] = string(src)
		b.sourceOrder = append(b.sourceOrder, ep.Path)
	}

	return b, nil
}

// Entrypoint returns the entrypoint with the given id.
func (b *Bundle) Entrypoint(id domain.EntrypointID) (Entrypoint, bool) {
	for _, ep := range b.Entrypoints {
		if ep.ID == id {
			return ep, true
		}
	}
	return Entrypoint{}, false
}

// missingRequired reports whether any required preference in defs lacks
// a stored user value.
func missingRequired(defs []PreferenceDef, values map[string]config.PreferenceValue) bool {
	for _, def := range defs {
		if !def.Required {
			continue
		}
		if _, ok := values[def.Name]; !ok {
			return true
		}
	}
	return false
}
