package domain

// EventType represents the type of domain event
type EventType string

// Event types
const (
	EventPluginLoaded       EventType = "PluginLoaded"
	EventPluginUnloaded     EventType = "PluginUnloaded"
	EventRenderSubmitted    EventType = "RenderSubmitted"
	EventViewError          EventType = "ViewError"
	EventIndexUpdated       EventType = "IndexUpdated"
	EventPreferencesChanged EventType = "PreferencesChanged"
)

// DomainEvent is the interface for all domain events
type DomainEvent interface {
	Type() EventType
}

// PluginLoadedEvent is emitted when a plugin bundle has been loaded and
// its sandbox is running
type PluginLoadedEvent struct {
	PluginID   PluginID
	PluginName string
}

func (e PluginLoadedEvent) Type() EventType { return EventPluginLoaded }

// PluginUnloadedEvent is emitted after a sandbox has been terminated
type PluginUnloadedEvent struct {
	PluginID PluginID
}

func (e PluginUnloadedEvent) Type() EventType { return EventPluginUnloaded }

// RenderSubmittedEvent is emitted after a render has been installed into
// the widget store. The tree itself travels through the render sink, not
// the bus; this event only tells listeners to repaint.
type RenderSubmittedEvent struct {
	PluginID     PluginID
	EntrypointID EntrypointID
}

func (e RenderSubmittedEvent) Type() EventType { return EventRenderSubmitted }

// ViewErrorEvent is emitted when an unrecovered failure on the render or
// event path must replace the current screen
type ViewErrorEvent struct {
	PluginID     PluginID
	EntrypointID EntrypointID
	Err          error
}

func (e ViewErrorEvent) Type() EventType { return EventViewError }

// IndexUpdatedEvent is emitted after the search index committed a write
type IndexUpdatedEvent struct {
	Docs int
}

func (e IndexUpdatedEvent) Type() EventType { return EventIndexUpdated }

// PreferencesChangedEvent is emitted when the preference store was saved
type PreferencesChangedEvent struct {
	PluginID PluginID
}

func (e PreferencesChangedEvent) Type() EventType { return EventPreferencesChanged }
