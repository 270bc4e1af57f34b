package plugin

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"lumen/internal/apps"
	"lumen/internal/config"
	"lumen/internal/domain"
	"lumen/internal/eventbus"
	"lumen/internal/search"
	"lumen/internal/ui/widgets"
)

// PreferenceGateError reports that an entrypoint cannot render until
// required preferences are supplied. It is produced before any render
// is requested from the plugin.
type PreferenceGateError struct {
	PluginID           domain.PluginID
	EntrypointID       domain.EntrypointID
	PluginRequired     bool
	EntrypointRequired bool
}

func (e *PreferenceGateError) Error() string {
	return fmt.Sprintf("preferences required for %s/%s", e.PluginID, e.EntrypointID)
}

type entryKey struct {
	Plugin     domain.PluginID
	Entrypoint domain.EntrypointID
}

type loadedPlugin struct {
	bundle  *Bundle
	sandbox *Sandbox
}

type pendingRender struct {
	token string
	timer *time.Timer
}

// Manager owns the plugin lifecycle: loading bundles into sandboxes,
// opening views (with preference gating and render timeouts), routing
// render submissions into per-entrypoint widget containers, and feeding
// the search index.
type Manager struct {
	mu sync.Mutex

	bus   eventbus.EventBus
	index *search.Index
	prefs *config.PreferencesStore
	apps  *apps.Service

	plugins    map[domain.PluginID]*loadedPlugin
	containers map[entryKey]*widgets.Container
	active     map[domain.PluginID]domain.EntrypointID
	pending    map[entryKey]*pendingRender

	renderTimeout time.Duration
}

// NewManager creates a manager. renderTimeout bounds the open-view to
// first-render round trip.
func NewManager(bus eventbus.EventBus, index *search.Index, prefs *config.PreferencesStore, appsSvc *apps.Service, renderTimeout time.Duration) *Manager {
	if renderTimeout <= 0 {
		renderTimeout = 3 * time.Second
	}
	return &Manager{
		bus:           bus,
		index:         index,
		prefs:         prefs,
		apps:          appsSvc,
		plugins:       make(map[domain.PluginID]*loadedPlugin),
		containers:    make(map[entryKey]*widgets.Container),
		active:        make(map[domain.PluginID]domain.EntrypointID),
		pending:       make(map[entryKey]*pendingRender),
		renderTimeout: renderTimeout,
	}
}

// LoadPlugin loads the bundle at dir, starts its sandbox and indexes
// its entrypoints.
func (m *Manager) LoadPlugin(dir string) (*Bundle, error) {
	bundle, err := LoadBundle(dir)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	if _, ok := m.plugins[bundle.ID]; ok {
		m.mu.Unlock()
		return nil, fmt.Errorf("plugin %s is already loaded", bundle.ID)
	}
	m.mu.Unlock()

	bridge := NewBridge(bundle, m.prefs, m.apps, m)
	sandbox, err := NewSandbox(bundle, bridge, m.reportFault)
	if err != nil {
		return nil, err
	}

	// re-check under the lock: a concurrent load of the same id may
	// have won while the sandbox was starting
	m.mu.Lock()
	if _, ok := m.plugins[bundle.ID]; ok {
		m.mu.Unlock()
		sandbox.Close()
		return nil, fmt.Errorf("plugin %s is already loaded", bundle.ID)
	}
	m.plugins[bundle.ID] = &loadedPlugin{bundle: bundle, sandbox: sandbox}
	m.mu.Unlock()

	entries := make([]search.Entry, 0, len(bundle.Entrypoints))
	for _, ep := range bundle.Entrypoints {
		entries = append(entries, search.Entry{
			PluginID:       bundle.ID,
			PluginName:     bundle.Name,
			EntrypointID:   ep.ID,
			EntrypointName: ep.Name,
		})
	}
	m.index.ReplacePlugin(bundle.ID, entries)
	m.index.Commit()

	m.bus.Publish(eventbus.PluginLoadedEvent{PluginID: bundle.ID, PluginName: bundle.Name})
	return bundle, nil
}

// UnloadPlugin terminates the plugin's sandbox, drops its view state
// and removes it from the index. In-flight capability ops are cancelled
// by the sandbox close.
func (m *Manager) UnloadPlugin(id domain.PluginID) error {
	m.mu.Lock()
	loaded, ok := m.plugins[id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("plugin %s is not loaded", id)
	}
	delete(m.plugins, id)
	delete(m.active, id)
	for key := range m.containers {
		if key.Plugin == id {
			delete(m.containers, key)
		}
	}
	for key, p := range m.pending {
		if key.Plugin == id {
			p.timer.Stop()
			delete(m.pending, key)
		}
	}
	m.mu.Unlock()

	loaded.sandbox.Close()

	m.index.RemovePlugin(id)
	m.index.Commit()

	m.bus.Publish(eventbus.PluginUnloadedEvent{PluginID: id})
	return nil
}

// UnloadAll unloads every plugin; used on shutdown.
func (m *Manager) UnloadAll() {
	m.mu.Lock()
	ids := make([]domain.PluginID, 0, len(m.plugins))
	for id := range m.plugins {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	for _, id := range ids {
		if err := m.UnloadPlugin(id); err != nil {
			log.Printf("manager: unload %s: %v", id, err)
		}
	}
}

// OpenView runs the open-view flow for an entrypoint: preference
// gating, then a render request with a bounded wait armed. When gating
// fails the plugin is never asked to render; the caller shows the
// preference-required screen from the returned error.
func (m *Manager) OpenView(plugin domain.PluginID, entrypoint domain.EntrypointID, topLevel bool) (domain.PluginViewData, error) {
	m.mu.Lock()
	loaded, ok := m.plugins[plugin]
	m.mu.Unlock()
	if !ok {
		return domain.PluginViewData{}, fmt.Errorf("plugin %s is not loaded", plugin)
	}

	ep, ok := loaded.bundle.Entrypoint(entrypoint)
	if !ok {
		return domain.PluginViewData{}, fmt.Errorf("plugin %s has no entrypoint %s", plugin, entrypoint)
	}

	pluginMissing := missingRequired(loaded.bundle.Preferences, m.prefs.PluginPreferences(plugin))
	epMissing := missingRequired(ep.Preferences, m.prefs.EntrypointPreferences(plugin, entrypoint))
	if pluginMissing || epMissing {
		return domain.PluginViewData{}, &PreferenceGateError{
			PluginID:           plugin,
			EntrypointID:       entrypoint,
			PluginRequired:     pluginMissing,
			EntrypointRequired: epMissing,
		}
	}

	key := entryKey{Plugin: plugin, Entrypoint: entrypoint}
	token := uuid.NewString()

	m.mu.Lock()
	if prev, ok := m.pending[key]; ok {
		prev.timer.Stop()
	}
	m.pending[key] = &pendingRender{
		token: token,
		timer: time.AfterFunc(m.renderTimeout, func() { m.renderTimedOut(key, token) }),
	}
	m.active[plugin] = entrypoint
	m.mu.Unlock()

	if err := loaded.sandbox.Dispatch(ViewOpened{EntrypointID: entrypoint}); err != nil {
		m.clearPending(key)
		return domain.PluginViewData{}, err
	}

	return domain.PluginViewData{
		PluginID:        plugin,
		PluginName:      loaded.bundle.Name,
		EntrypointID:    entrypoint,
		EntrypointName:  ep.Name,
		TopLevel:        topLevel,
		ActionShortcuts: ep.Shortcuts,
	}, nil
}

// CloseView tells the plugin its active view was torn down.
func (m *Manager) CloseView(plugin domain.PluginID) {
	m.mu.Lock()
	loaded, ok := m.plugins[plugin]
	entrypoint, active := m.active[plugin]
	delete(m.active, plugin)
	m.mu.Unlock()

	if !ok || !active {
		return
	}
	if err := loaded.sandbox.Dispatch(ViewClosed{EntrypointID: entrypoint}); err != nil {
		log.Printf("manager: close view for %s: %v", plugin, err)
	}
}

// SubmitRender implements RenderSink: installs the view into the
// entrypoint's container (reconciling widget state), disarms the render
// timeout and notifies listeners. The installed pair swaps atomically;
// a failed conversion upstream never reaches this point.
func (m *Manager) SubmitRender(view widgets.View) error {
	key := entryKey{Plugin: view.PluginID, Entrypoint: view.EntrypointID}

	m.mu.Lock()
	container, ok := m.containers[key]
	if !ok {
		container = widgets.NewContainer()
		m.containers[key] = container
	}
	m.mu.Unlock()

	container.Replace(view)
	m.clearPending(key)

	m.bus.Publish(eventbus.RenderSubmittedEvent{
		PluginID:     view.PluginID,
		EntrypointID: view.EntrypointID,
	})
	return nil
}

// ForwardViewEvent implements widgets.EventSink: delivers one outbound
// widget event to the owning plugin's handler for its active
// entrypoint. Events for inactive or unloaded plugins are dropped.
func (m *Manager) ForwardViewEvent(plugin domain.PluginID, event domain.ViewEvent) {
	m.mu.Lock()
	loaded, ok := m.plugins[plugin]
	entrypoint, active := m.active[plugin]
	m.mu.Unlock()

	if !ok || !active {
		log.Printf("manager: dropping view event for inactive plugin %s", plugin)
		return
	}
	if err := loaded.sandbox.Dispatch(ViewEvent{EntrypointID: entrypoint, Event: event}); err != nil {
		log.Printf("manager: forward event to %s: %v", plugin, err)
	}
}

// Container returns the installed container for an entrypoint, nil if
// it has never rendered.
func (m *Manager) Container(plugin domain.PluginID, entrypoint domain.EntrypointID) *widgets.Container {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.containers[entryKey{Plugin: plugin, Entrypoint: entrypoint}]
}

// Bundle returns a loaded plugin's bundle.
func (m *Manager) Bundle(plugin domain.PluginID) (*Bundle, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	loaded, ok := m.plugins[plugin]
	if !ok {
		return nil, false
	}
	return loaded.bundle, true
}

func (m *Manager) clearPending(key entryKey) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.pending[key]; ok {
		p.timer.Stop()
		delete(m.pending, key)
	}
}

// renderTimedOut fires when no render arrived within the bound. The
// token guards against a stale timer outliving a newer open request.
func (m *Manager) renderTimedOut(key entryKey, token string) {
	m.mu.Lock()
	p, ok := m.pending[key]
	if !ok || p.token != token {
		m.mu.Unlock()
		return
	}
	delete(m.pending, key)
	m.mu.Unlock()

	err := &domain.RenderTimeoutError{PluginID: key.Plugin, EntrypointID: key.Entrypoint}
	log.Printf("manager: %v", err)
	m.bus.Publish(eventbus.ViewErrorEvent{
		PluginID:     key.Plugin,
		EntrypointID: key.Entrypoint,
		Err:          err,
	})
}

// reportFault forwards a sandbox fault and disarms any pending render
// for the faulting entrypoint.
func (m *Manager) reportFault(fault *domain.PluginFaultError) {
	if fault.EntrypointID != "" {
		m.clearPending(entryKey{Plugin: fault.PluginID, Entrypoint: fault.EntrypointID})
	}
	m.bus.Publish(eventbus.ViewErrorEvent{
		PluginID:     fault.PluginID,
		EntrypointID: fault.EntrypointID,
		Err:          fault,
	})
}
