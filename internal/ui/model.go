package ui

import (
	"errors"
	"fmt"
	"log"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"lumen/internal/config"
	"lumen/internal/domain"
	"lumen/internal/eventbus"
	"lumen/internal/plugin"
	"lumen/internal/search"
	"lumen/internal/ui/state"
	"lumen/internal/ui/widgets"
)

// Model is the bubbletea model for the launcher window. All screen
// decisions live in the view state machine; the model translates keys
// into commands, executes the effects the machine returns and paints
// whatever variant is active.
type Model struct {
	bus     eventbus.EventBus
	config  *config.Config
	machine *state.Machine
	manager *plugin.Manager
	index   *search.Index

	input    textinput.Model
	width    int
	height   int
	renderer *Renderer
	logPath  string

	// Program reference for terminal handover to the log pager
	program     *tea.Program
	inPagerMode bool

	unsubscribe []func()
}

// NewModel creates the UI model and wires its bus subscriptions.
func NewModel(bus eventbus.EventBus, cfg *config.Config, manager *plugin.Manager, index *search.Index, logPath string) *Model {
	ti := textinput.New()
	ti.Placeholder = "Search..."
	ti.Prompt = "> "
	ti.Focus()

	m := &Model{
		bus:      bus,
		config:   cfg,
		machine:  state.NewMachine(),
		manager:  manager,
		index:    index,
		input:    ti,
		renderer: NewRenderer(),
		logPath:  logPath,
	}
	return m
}

// SetProgram sets the program reference and starts forwarding domain
// events into the bubbletea loop. Must be called before program.Run.
func (m *Model) SetProgram(p *tea.Program) {
	m.program = p
	forward := func(event eventbus.DomainEvent) {
		p.Send(EventMsg{Event: event})
	}
	for _, t := range []domain.EventType{
		domain.EventPluginLoaded,
		domain.EventPluginUnloaded,
		domain.EventRenderSubmitted,
		domain.EventViewError,
		domain.EventIndexUpdated,
		domain.EventPreferencesChanged,
	} {
		m.unsubscribe = append(m.unsubscribe, m.bus.Subscribe(t, forward))
	}
}

// Init returns an initial command
func (m *Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = msg.Width - 4
		return m, nil

	case tea.KeyMsg:
		if m.inPagerMode {
			return m, nil
		}
		return m.handleKey(msg)

	case EventMsg:
		return m.handleEvent(msg.Event)

	case logPagerMsg:
		m.inPagerMode = false
		if msg.err != nil {
			log.Printf("ui: log pager: %v", msg.err)
		}
		return m, nil
	}

	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "enter":
		return m.runCommand(state.CommandEnter)
	case "esc":
		return m.runCommand(state.CommandEscape)
	case "tab":
		return m.runCommand(state.CommandTab)
	case "shift+tab":
		return m.runCommand(state.CommandShiftTab)
	case "up":
		return m.runCommand(state.CommandArrowUp)
	case "down":
		return m.runCommand(state.CommandArrowDown)
	case "left":
		return m.runCommand(state.CommandArrowLeft)
	case "right":
		return m.runCommand(state.CommandArrowRight)
	case "ctrl+k":
		m.toggleActionPanel()
		return m, nil
	case "ctrl+l":
		if _, ok := m.machine.Current().(*state.ErrorView); ok {
			return m, m.openLogPager()
		}
	}

	switch s := m.machine.Current().(type) {
	case *state.MainView:
		if s.Sub != nil {
			return m, nil // overlay swallows typing
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		prompt := m.input.Value()
		if prompt != s.Prompt {
			m.machine.SetPrompt(prompt)
			m.machine.SetResults(m.index.Search(prompt))
		}
		return m, cmd
	case *state.PluginView:
		if id, ok := m.shortcutAction(s.Data, msg.String()); ok {
			m.dispatchClick(s.Data, id)
		}
		return m, nil
	}
	return m, nil
}

// runCommand feeds one command into the state machine and executes the
// effects it returns.
func (m *Model) runCommand(cmd state.Command) (tea.Model, tea.Cmd) {
	effects := m.machine.Handle(cmd)
	return m.applyEffects(effects)
}

func (m *Model) applyEffects(effects []state.Effect) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	for _, effect := range effects {
		switch e := effect.(type) {
		case state.RunSearchResult:
			m.openView(e.Result.PluginID, e.Result.EntrypointID, true)
		case state.RunAction:
			if pending := m.machine.Pending(); pending != nil {
				m.dispatchClick(*pending, e.WidgetID)
			}
		case state.HideWindow:
			cmds = append(cmds, tea.Quit)
		case state.ClosePluginView:
			m.manager.CloseView(e.PluginID)
		case state.OpenPluginView:
			m.openView(e.PluginID, e.EntrypointID, false)
		case state.FocusSearchInput:
			m.input.Focus()
		case state.ClearPrompt:
			m.input.SetValue("")
			m.machine.SetPrompt("")
			m.machine.SetResults(nil)
		}
	}
	return m, tea.Batch(cmds...)
}

// openView asks the manager to open an entrypoint and moves the screen
// accordingly: gate failures go to the preference-required error view,
// success shows the plugin view while its first render is in flight.
func (m *Model) openView(pluginID domain.PluginID, entrypointID domain.EntrypointID, topLevel bool) {
	data, err := m.manager.OpenView(pluginID, entrypointID, topLevel)
	if err != nil {
		var gate *plugin.PreferenceGateError
		if errors.As(err, &gate) {
			m.machine.ShowError(state.PreferenceRequired{
				PluginID:           gate.PluginID,
				EntrypointID:       gate.EntrypointID,
				PluginRequired:     gate.PluginRequired,
				EntrypointRequired: gate.EntrypointRequired,
			})
			return
		}
		log.Printf("ui: open view %s/%s: %v", pluginID, entrypointID, err)
		m.machine.ShowError(state.UnknownError{Display: err.Error()})
		return
	}

	// From the main view the screen only switches once the render lands;
	// until then the view data stays pending. From inside plugin-land the
	// screen switches immediately and paints the waiting state.
	if _, ok := m.machine.Current().(*state.MainView); ok {
		m.machine.SetPending(&data)
		return
	}
	m.machine.ShowPlugin(data)
}

// toggleActionPanel opens or closes the action-panel overlay over the
// main view, sourced from the pending entrypoint's rendered actions.
func (m *Model) toggleActionPanel() {
	mv, ok := m.machine.Current().(*state.MainView)
	if !ok {
		return
	}
	if mv.Sub != nil {
		mv.Sub = nil
		return
	}
	pending := mv.Pending
	if pending == nil {
		return
	}
	container := m.manager.Container(pending.PluginID, pending.EntrypointID)
	if container == nil {
		return
	}
	m.machine.OpenActionPanel(container.ActionIDs())
}

// dispatchClick routes a widget activation through the container so the
// owning plugin sees it as an onClick event.
func (m *Model) dispatchClick(data domain.PluginViewData, id domain.WidgetID) {
	container := m.manager.Container(data.PluginID, data.EntrypointID)
	if container == nil {
		return
	}
	dispatcher := widgets.NewDispatcher(container, m.manager)
	dispatcher.Dispatch(widgets.Clicked{ID: id})
}

// handleEvent processes domain events forwarded from the bus.
func (m *Model) handleEvent(event eventbus.DomainEvent) (tea.Model, tea.Cmd) {
	switch e := event.(type) {
	case eventbus.ViewErrorEvent:
		m.showViewError(e)
	case eventbus.IndexUpdatedEvent, eventbus.PluginLoadedEvent, eventbus.PluginUnloadedEvent:
		if mv, ok := m.machine.Current().(*state.MainView); ok {
			m.machine.SetResults(m.index.Search(mv.Prompt))
		}
	case eventbus.RenderSubmittedEvent:
		// a render arriving for the pending entrypoint completes the
		// open; otherwise the repaint on return is enough
		if pending := m.machine.Pending(); pending != nil &&
			pending.PluginID == e.PluginID && pending.EntrypointID == e.EntrypointID {
			m.machine.ShowPlugin(*pending)
		}
	}
	return m, nil
}

func (m *Model) showViewError(e eventbus.ViewErrorEvent) {
	var timeout *domain.RenderTimeoutError
	var fault *domain.PluginFaultError
	switch {
	case errors.As(e.Err, &timeout):
		m.machine.ShowError(state.BackendTimeout{})
	case errors.As(e.Err, &fault):
		m.machine.ShowError(state.PluginError{
			PluginID:     fault.PluginID,
			EntrypointID: fault.EntrypointID,
		})
	default:
		m.machine.ShowError(state.UnknownError{Display: fmt.Sprintf("%v", e.Err)})
	}
}

// View renders the active screen
func (m *Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	switch s := m.machine.Current().(type) {
	case *state.MainView:
		return m.renderer.RenderMain(s, m.input.View(), m.mainPanel(s), m.width, m.height)
	case *state.PluginView:
		container := m.manager.Container(s.Data.PluginID, s.Data.EntrypointID)
		if container == nil {
			return m.renderer.RenderWaiting(s.Data, m.width, m.height)
		}
		snapshot := container.Snapshot()
		return m.renderer.RenderPlugin(s.Data, snapshot, m.width, m.height)
	case *state.ErrorView:
		return m.renderer.RenderError(s.Data, m.width, m.height)
	}
	return ""
}

// mainPanel resolves the overlay's action labels from the pending
// entrypoint's rendered tree.
func (m *Model) mainPanel(mv *state.MainView) *widgets.ActionPanel {
	if mv.Sub == nil || mv.Pending == nil {
		return nil
	}
	container := m.manager.Container(mv.Pending.PluginID, mv.Pending.EntrypointID)
	if container == nil {
		return nil
	}
	panel, ok := container.ActionPanel(mv.Pending.ActionShortcuts)
	if !ok {
		return nil
	}
	return &panel
}

// shortcutAction matches a key chord against the view's declared action
// shortcuts and resolves the action's widget id from the rendered tree.
func (m *Model) shortcutAction(data domain.PluginViewData, chord string) (domain.WidgetID, bool) {
	container := m.manager.Container(data.PluginID, data.EntrypointID)
	if container == nil {
		return 0, false
	}
	panel, ok := container.ActionPanel(data.ActionShortcuts)
	if !ok {
		return 0, false
	}
	for _, item := range panel.Items {
		if item.Shortcut == chord {
			return item.WidgetID, true
		}
	}
	return 0, false
}

// Close drops the model's bus subscriptions.
func (m *Model) Close() {
	for _, unsub := range m.unsubscribe {
		unsub()
	}
	m.unsubscribe = nil
}
