// Package state holds the top-level screen selector: which of the
// search palette, a plugin screen, or an error screen currently owns
// keyboard input, and how focus commands move within it.
package state

import "lumen/internal/domain"

// Command is one abstract keyboard-navigation command. Embedding input
// layers translate native key events into these.
type Command int

const (
	CommandEnter Command = iota
	CommandEscape
	CommandTab
	CommandShiftTab
	CommandArrowUp
	CommandArrowDown
	CommandArrowLeft
	CommandArrowRight
)

// FocusNone marks an unfocused result list.
const FocusNone = -1

// Effect is an outbound command emitted by a state transition for the
// surrounding application to execute.
type Effect interface {
	isEffect()
}

// RunSearchResult requests the default action of a search result.
type RunSearchResult struct {
	Result domain.SearchResult
}

// RunAction requests running the action widget with the given id.
type RunAction struct {
	WidgetID domain.WidgetID
}

// HideWindow requests hiding the launcher window.
type HideWindow struct{}

// ClosePluginView requests tearing down a standalone plugin view.
type ClosePluginView struct {
	PluginID domain.PluginID
}

// OpenPluginView requests re-opening the parent view for an entrypoint.
type OpenPluginView struct {
	PluginID     domain.PluginID
	EntrypointID domain.EntrypointID
}

// FocusSearchInput requests focusing the search prompt input.
type FocusSearchInput struct{}

// ClearPrompt requests resetting the prompt and re-running the search.
type ClearPrompt struct{}

func (RunSearchResult) isEffect()  {}
func (RunAction) isEffect()        {}
func (HideWindow) isEffect()       {}
func (ClosePluginView) isEffect()  {}
func (OpenPluginView) isEffect()   {}
func (FocusSearchInput) isEffect() {}
func (ClearPrompt) isEffect()      {}

// ErrorViewData is the variant shown by the error screen.
type ErrorViewData interface {
	isErrorView()
}

// PreferenceRequired gates an entrypoint on missing required
// preferences at plugin and/or entrypoint level.
type PreferenceRequired struct {
	PluginID           domain.PluginID
	EntrypointID       domain.EntrypointID
	PluginRequired     bool
	EntrypointRequired bool
}

// PluginError reports a plugin fault attributed to an entrypoint.
type PluginError struct {
	PluginID     domain.PluginID
	EntrypointID domain.EntrypointID
}

// BackendTimeout reports a render round trip exceeding its bound.
type BackendTimeout struct{}

// UnknownError carries a display string for everything else.
type UnknownError struct {
	Display string
}

func (PreferenceRequired) isErrorView() {}
func (PluginError) isErrorView()        {}
func (BackendTimeout) isErrorView()     {}
func (UnknownError) isErrorView()       {}

// ActionPanelSub is the action-panel overlay sub-state of the main
// view: an ordered action id list with its own focus cursor.
type ActionPanelSub struct {
	IDs    []domain.WidgetID
	Cursor int
}

// GlobalState is the active screen. Exactly one variant is live at any
// time; constructing a new one fully replaces the old.
type GlobalState interface {
	isGlobalState()
}

// MainView is the search palette.
type MainView struct {
	Prompt  string
	Results []domain.SearchResult
	Focus   int             // index into Results, or FocusNone
	Sub     *ActionPanelSub // nil when no overlay
	Pending *domain.PluginViewData
}

// PluginView is a screen attributed to a plugin entrypoint.
type PluginView struct {
	Data domain.PluginViewData
}

// ErrorView replaces the prior screen on unrecovered failures.
type ErrorView struct {
	Data ErrorViewData
}

func (*MainView) isGlobalState()   {}
func (*PluginView) isGlobalState() {}
func (*ErrorView) isGlobalState()  {}

func newMainView() *MainView {
	return &MainView{Focus: FocusNone}
}
