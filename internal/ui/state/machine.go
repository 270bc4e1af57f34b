package state

import "lumen/internal/domain"

// Machine drives GlobalState through focus commands and
// backend-originated replacements.
type Machine struct {
	current GlobalState
}

// NewMachine starts in the initial state: empty main view, nothing
// focused, search input focused.
func NewMachine() *Machine {
	return &Machine{current: newMainView()}
}

// Current returns the active state. Callers must not retain it across
// a Reset/ShowPlugin/ShowError.
func (m *Machine) Current() GlobalState { return m.current }

// Reset re-enters a fresh main view: prompt cleared, results cleared,
// search input refocused. Used on top-level plugin escape and on
// external reset.
func (m *Machine) Reset() []Effect {
	m.current = newMainView()
	return []Effect{FocusSearchInput{}, ClearPrompt{}}
}

// ShowPlugin replaces the active screen with a plugin view.
func (m *Machine) ShowPlugin(data domain.PluginViewData) {
	m.current = &PluginView{Data: data}
}

// ShowError replaces the active screen with an error view.
func (m *Machine) ShowError(data ErrorViewData) {
	m.current = &ErrorView{Data: data}
}

// SetPrompt updates the main view's prompt text. No-op on other views.
func (m *Machine) SetPrompt(prompt string) {
	if mv, ok := m.current.(*MainView); ok {
		mv.Prompt = prompt
	}
}

// SetResults replaces the result list, clamping the focus cursor so it
// stays either FocusNone or a valid index.
func (m *Machine) SetResults(results []domain.SearchResult) {
	mv, ok := m.current.(*MainView)
	if !ok {
		return
	}
	mv.Results = results
	if len(results) == 0 {
		mv.Focus = FocusNone
	} else if mv.Focus >= len(results) {
		mv.Focus = len(results) - 1
	}
}

// SetPending records plugin view metadata while its render is in
// flight, so a late render or a timeout knows which screen it was for.
func (m *Machine) SetPending(data *domain.PluginViewData) {
	if mv, ok := m.current.(*MainView); ok {
		mv.Pending = data
	}
}

// Pending returns the in-flight plugin view metadata, if any.
func (m *Machine) Pending() *domain.PluginViewData {
	if mv, ok := m.current.(*MainView); ok {
		return mv.Pending
	}
	return nil
}

// OpenActionPanel opens the action-panel overlay over the main view
// with the given focusable action ids. No-op when the list is empty or
// another screen is active.
func (m *Machine) OpenActionPanel(ids []domain.WidgetID) {
	mv, ok := m.current.(*MainView)
	if !ok || len(ids) == 0 {
		return
	}
	mv.Sub = &ActionPanelSub{IDs: ids, Cursor: 0}
}

// Handle interprets one focus command against the active variant. Each
// command yields at most one state transition.
func (m *Machine) Handle(cmd Command) []Effect {
	switch s := m.current.(type) {
	case *MainView:
		return m.handleMainView(s, cmd)
	case *PluginView:
		return m.handlePluginView(s, cmd)
	case *ErrorView:
		return m.handleErrorView(cmd)
	}
	return nil
}

func (m *Machine) handleMainView(mv *MainView, cmd Command) []Effect {
	switch cmd {
	case CommandEnter:
		if mv.Sub != nil {
			id := mv.Sub.IDs[mv.Sub.Cursor]
			mv.Sub = nil
			return []Effect{RunAction{WidgetID: id}}
		}
		if mv.Focus >= 0 && mv.Focus < len(mv.Results) {
			return []Effect{RunSearchResult{Result: mv.Results[mv.Focus]}}
		}
		return nil

	case CommandEscape:
		if mv.Sub != nil {
			mv.Sub = nil
			return nil
		}
		return []Effect{HideWindow{}}

	case CommandArrowUp:
		if mv.Sub != nil {
			if mv.Sub.Cursor > 0 {
				mv.Sub.Cursor--
			}
			return nil
		}
		if mv.Focus > 0 {
			mv.Focus--
		}
		return nil

	case CommandArrowDown:
		if mv.Sub != nil {
			if mv.Sub.Cursor < len(mv.Sub.IDs)-1 {
				mv.Sub.Cursor++
			}
			return nil
		}
		if len(mv.Results) == 0 {
			return nil
		}
		if mv.Focus < len(mv.Results)-1 {
			mv.Focus++
		}
		return nil
	}

	// tab, shift-tab, left, right are reserved extension points
	return nil
}

func (m *Machine) handlePluginView(pv *PluginView, cmd Command) []Effect {
	if cmd != CommandEscape {
		return nil
	}

	if pv.Data.TopLevel {
		plugin := pv.Data.PluginID
		effects := []Effect{ClosePluginView{PluginID: plugin}}
		return append(effects, m.Reset()...)
	}

	// one level of back-navigation
	return []Effect{OpenPluginView{
		PluginID:     pv.Data.PluginID,
		EntrypointID: pv.Data.EntrypointID,
	}}
}

func (m *Machine) handleErrorView(cmd Command) []Effect {
	if cmd == CommandEscape {
		return []Effect{HideWindow{}}
	}
	return nil
}
