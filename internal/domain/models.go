package domain

// PluginID identifies a loaded plugin
type PluginID string

// EntrypointID identifies one invocable entrypoint within a plugin
type EntrypointID string

func (p PluginID) String() string     { return string(p) }
func (e EntrypointID) String() string { return string(e) }

// SearchResult is one match surfaced by the search index
type SearchResult struct {
	PluginID       PluginID
	PluginName     string
	EntrypointID   EntrypointID
	EntrypointName string
}

// PluginViewData describes a screen currently attributed to a plugin
type PluginViewData struct {
	PluginID        PluginID
	PluginName      string
	EntrypointID    EntrypointID
	EntrypointName  string
	TopLevel        bool              // standalone window vs nested under the search palette
	ActionShortcuts map[string]string // action id -> shortcut label
}

// ViewEvent is one outbound event delivered into a plugin's sandbox
type ViewEvent struct {
	WidgetID WidgetID
	Name     string
	Payload  map[string]PropertyValue
}
