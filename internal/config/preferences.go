package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/pelletier/go-toml/v2"

	"lumen/internal/domain"
	"lumen/internal/eventbus"
)

// PreferenceType enumerates the value types a preference may hold
type PreferenceType string

const (
	PreferenceString PreferenceType = "string"
	PreferenceNumber PreferenceType = "number"
	PreferenceBool   PreferenceType = "bool"
	PreferenceEnum   PreferenceType = "enum"
)

// PreferenceValue is one typed user-supplied preference value
type PreferenceValue struct {
	Type PreferenceType `toml:"type"`
	Str  string         `toml:"str,omitempty"`
	Num  float64        `toml:"num,omitempty"`
	Bool bool           `toml:"bool,omitempty"`
	Enum string         `toml:"enum,omitempty"`
}

func (v PreferenceValue) valid() bool {
	switch v.Type {
	case PreferenceString, PreferenceNumber, PreferenceBool, PreferenceEnum:
		return true
	}
	return false
}

type prefEntrypointSection struct {
	Preferences map[string]PreferenceValue `toml:"preferences"`
}

type prefPluginSection struct {
	Preferences map[string]PreferenceValue       `toml:"preferences"`
	Entrypoints map[string]prefEntrypointSection `toml:"entrypoints"`
}

type prefFile struct {
	Plugins map[string]prefPluginSection `toml:"plugins"`
}

// PreferencesStore is the persisted (plugin, entrypoint?) -> name -> value
// mapping. Reads happen on the capability path; writes only through the
// explicit Save path. Read-mostly, guarded by one RWMutex.
type PreferencesStore struct {
	mu       sync.RWMutex
	filePath string
	data     prefFile
	bus      eventbus.EventBus

	// plugin ids written since the last successful Save
	dirty map[string]struct{}
}

// DefaultPreferencesPath returns the preferences file location in the
// user config dir, next to config.toml.
func DefaultPreferencesPath() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir, err = os.UserHomeDir()
		if err != nil {
			configDir = "."
		}
		configDir = filepath.Join(configDir, ".config")
	}
	return filepath.Join(configDir, "lumen", "preferences.toml")
}

// OpenPreferencesStore loads the store at path, creating an empty one if
// the file does not exist. Unreadable or malformed content is reported as
// a ConfigurationError.
func OpenPreferencesStore(path string) (*PreferencesStore, error) {
	return OpenPreferencesStoreWithBus(path, nil)
}

// OpenPreferencesStoreWithBus additionally publishes a
// PreferencesChangedEvent per written plugin on each successful Save.
func OpenPreferencesStoreWithBus(path string, bus eventbus.EventBus) (*PreferencesStore, error) {
	s := &PreferencesStore{
		filePath: path,
		data:     prefFile{Plugins: make(map[string]prefPluginSection)},
		bus:      bus,
		dirty:    make(map[string]struct{}),
	}

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, &domain.ConfigurationError{Path: path, Err: err}
	}

	if err := toml.Unmarshal(raw, &s.data); err != nil {
		return nil, &domain.ConfigurationError{Path: path, Err: err}
	}
	if s.data.Plugins == nil {
		s.data.Plugins = make(map[string]prefPluginSection)
	}
	for name, section := range s.data.Plugins {
		for key, v := range section.Preferences {
			if !v.valid() {
				return nil, &domain.ConfigurationError{
					Path: path,
					Err:  fmt.Errorf("plugin %s preference %s has unknown type %q", name, key, v.Type),
				}
			}
		}
	}

	return s, nil
}

// PluginPreferences returns the stored values for a plugin.
func (s *PreferencesStore) PluginPreferences(plugin domain.PluginID) map[string]PreferenceValue {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyValues(s.data.Plugins[plugin.String()].Preferences)
}

// EntrypointPreferences returns the stored values for one entrypoint.
func (s *PreferencesStore) EntrypointPreferences(plugin domain.PluginID, entrypoint domain.EntrypointID) map[string]PreferenceValue {
	s.mu.RLock()
	defer s.mu.RUnlock()
	section := s.data.Plugins[plugin.String()]
	if section.Entrypoints == nil {
		return map[string]PreferenceValue{}
	}
	return copyValues(section.Entrypoints[entrypoint.String()].Preferences)
}

// SetPluginPreference stores one plugin-level value. The caller is the
// settings surface; sandboxed plugin code has no write path.
func (s *PreferencesStore) SetPluginPreference(plugin domain.PluginID, name string, value PreferenceValue) {
	s.mu.Lock()
	defer s.mu.Unlock()
	section := s.data.Plugins[plugin.String()]
	if section.Preferences == nil {
		section.Preferences = make(map[string]PreferenceValue)
	}
	section.Preferences[name] = value
	s.data.Plugins[plugin.String()] = section
	s.dirty[plugin.String()] = struct{}{}
}

// SetEntrypointPreference stores one entrypoint-level value.
func (s *PreferencesStore) SetEntrypointPreference(plugin domain.PluginID, entrypoint domain.EntrypointID, name string, value PreferenceValue) {
	s.mu.Lock()
	defer s.mu.Unlock()
	section := s.data.Plugins[plugin.String()]
	if section.Entrypoints == nil {
		section.Entrypoints = make(map[string]prefEntrypointSection)
	}
	ep := section.Entrypoints[entrypoint.String()]
	if ep.Preferences == nil {
		ep.Preferences = make(map[string]PreferenceValue)
	}
	ep.Preferences[name] = value
	section.Entrypoints[entrypoint.String()] = ep
	s.data.Plugins[plugin.String()] = section
	s.dirty[plugin.String()] = struct{}{}
}

// Save writes the store back to disk and announces which plugins had
// values written since the last save.
func (s *PreferencesStore) Save() error {
	s.mu.Lock()
	data, err := toml.Marshal(&s.data)
	if err != nil {
		s.mu.Unlock()
		return &domain.ConfigurationError{Path: s.filePath, Err: err}
	}
	changed := make([]string, 0, len(s.dirty))
	for id := range s.dirty {
		changed = append(changed, id)
	}
	s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.filePath), 0755); err != nil {
		return &domain.ConfigurationError{Path: s.filePath, Err: err}
	}
	if err := os.WriteFile(s.filePath, data, 0644); err != nil {
		return &domain.ConfigurationError{Path: s.filePath, Err: err}
	}

	s.mu.Lock()
	for _, id := range changed {
		delete(s.dirty, id)
	}
	s.mu.Unlock()

	if s.bus != nil {
		sort.Strings(changed)
		for _, id := range changed {
			s.bus.Publish(eventbus.PreferencesChangedEvent{PluginID: domain.PluginID(id)})
		}
	}
	return nil
}

func copyValues(in map[string]PreferenceValue) map[string]PreferenceValue {
	out := make(map[string]PreferenceValue, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
