package widgets

import (
	"log"
	"sync"

	"lumen/internal/domain"
)

// View is one immutable render submission: the tree, its binary assets,
// and the display names it was rendered under. The tree must not be
// mutated after submission.
type View struct {
	Root           *domain.RootWidget
	Assets         map[domain.WidgetID][]byte
	PluginID       domain.PluginID
	PluginName     string
	EntrypointID   domain.EntrypointID
	EntrypointName string
}

// Snapshot is the display-agnostic description handed to the rendering
// backend: the installed tree with a consistent copy of every widget's
// state. Nil Root means nothing has rendered yet.
type Snapshot struct {
	Root           *domain.RootWidget
	States         map[domain.WidgetID]State
	Assets         map[domain.WidgetID][]byte
	PluginID       domain.PluginID
	PluginName     string
	EntrypointID   domain.EntrypointID
	EntrypointName string
}

// Container owns the installed (tree, state, assets) triple for one
// plugin view. All access goes through its methods, each of which holds
// the one lock for its full duration and never across a suspension
// point; callers always observe tree and state as a consistent pair.
type Container struct {
	mu sync.Mutex

	root   *domain.RootWidget
	states map[domain.WidgetID]State
	assets map[domain.WidgetID][]byte

	pluginID       domain.PluginID
	pluginName     string
	entrypointID   domain.EntrypointID
	entrypointName string
}

// NewContainer creates an empty container.
func NewContainer() *Container {
	return &Container{states: make(map[domain.WidgetID]State)}
}

// Replace installs a new view, reconciling widget state: surviving ids
// keep their value, new ids get defaults, vanished ids are dropped. The
// swap is atomic; no reader sees the old tree with the new state map.
func (c *Container) Replace(view View) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.states = reconcile(c.states, view.Root)
	c.root = view.Root
	c.assets = view.Assets
	c.pluginID = view.PluginID
	c.pluginName = view.PluginName
	c.entrypointID = view.EntrypointID
	c.entrypointName = view.EntrypointName
}

// ApplyEvent looks up the widget the event targets, applies its
// transition and writes the result back. If the widget vanished since
// the event was generated this is a no-op: no mutation, no outbound
// event. Returns the outbound event to forward, if any.
func (c *Container) ApplyEvent(event Event) (*domain.ViewEvent, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	old, ok := c.states[event.WidgetID()]
	if !ok {
		log.Printf("widgets: dropping event for vanished widget %d", event.WidgetID())
		return nil, false
	}

	next, outbound := transition(event, old)
	c.states[event.WidgetID()] = next
	return outbound, true
}

// Snapshot returns a consistent copy of the installed pair for the
// rendering backend.
func (c *Container) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	states := make(map[domain.WidgetID]State, len(c.states))
	for id, s := range c.states {
		states[id] = s
	}

	return Snapshot{
		Root:           c.root,
		States:         states,
		Assets:         c.assets,
		PluginID:       c.pluginID,
		PluginName:     c.pluginName,
		EntrypointID:   c.entrypointID,
		EntrypointName: c.entrypointName,
	}
}

// ActionPanel derives the current action panel without mutating state.
func (c *Container) ActionPanel(shortcuts map[string]string) (ActionPanel, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return deriveActionPanel(c.root, shortcuts)
}

// ActionIDs returns the focusable action widget ids in tree order.
func (c *Container) ActionIDs() []domain.WidgetID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return actionIDs(c.root)
}

// PluginID returns the owning plugin id; valid after the first Replace.
func (c *Container) PluginID() domain.PluginID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pluginID
}

// stateFor is a test hook; it reads one widget's state consistently.
func (c *Container) stateFor(id domain.WidgetID) (State, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.states[id]
	return s, ok
}
