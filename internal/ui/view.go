package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"lumen/internal/domain"
	"lumen/internal/ui/state"
	"lumen/internal/ui/widgets"
)

// Styles contains the style definitions for the UI
type Styles struct {
	Title     lipgloss.Style
	Dim       lipgloss.Style
	Highlight lipgloss.Style
	Selection lipgloss.Style
	ErrorBox  lipgloss.Style
	PanelBox  lipgloss.Style
	Status    lipgloss.Style
	Shortcut  lipgloss.Style
}

// NewStyles creates a new Styles instance with default values
func NewStyles() *Styles {
	return &Styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("99")).
			MarginBottom(1),
		Dim:       lipgloss.NewStyle().Faint(true),
		Highlight: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		Selection: lipgloss.NewStyle().
			Foreground(lipgloss.Color("229")).
			Background(lipgloss.Color("57")),
		ErrorBox: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			Padding(1).
			BorderForeground(lipgloss.Color("196")),
		PanelBox: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			Padding(0, 1).
			BorderForeground(lipgloss.Color("241")),
		Status:   lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		Shortcut: lipgloss.NewStyle().Faint(true),
	}
}

// Renderer paints the three screen variants
type Renderer struct {
	styles *Styles
}

// NewRenderer creates a new renderer
func NewRenderer() *Renderer {
	return &Renderer{styles: NewStyles()}
}

// RenderMain paints the search palette: prompt line, result list with
// the focus row highlighted, and the action-panel overlay when open.
func (r *Renderer) RenderMain(mv *state.MainView, inputView string, panel *widgets.ActionPanel, width, height int) string {
	var b strings.Builder

	b.WriteString(inputView)
	b.WriteString("\n\n")

	if len(mv.Results) == 0 {
		if mv.Prompt != "" {
			b.WriteString(r.styles.Dim.Render("No matches"))
		}
	} else {
		for i, result := range mv.Results {
			line := fmt.Sprintf("%s  %s", result.EntrypointName, r.styles.Dim.Render(result.PluginName))
			if i == mv.Focus {
				line = r.styles.Selection.Render("▶ " + result.EntrypointName + "  " + result.PluginName)
			} else {
				line = "  " + line
			}
			b.WriteString(line)
			b.WriteString("\n")
		}
	}

	if mv.Sub != nil && panel != nil {
		b.WriteString("\n")
		b.WriteString(r.renderActionPanel(mv.Sub, panel))
	}

	b.WriteString("\n")
	b.WriteString(r.styles.Status.Render("enter run · ctrl+k actions · esc hide"))

	return lipgloss.NewStyle().Width(width).Render(b.String())
}

func (r *Renderer) renderActionPanel(sub *state.ActionPanelSub, panel *widgets.ActionPanel) string {
	var b strings.Builder
	for i, item := range panel.Items {
		if i >= len(sub.IDs) {
			break
		}
		line := item.Label
		if item.Shortcut != "" {
			line += "  " + r.styles.Shortcut.Render(item.Shortcut)
		}
		if i == sub.Cursor {
			line = r.styles.Selection.Render(line)
		}
		b.WriteString(line)
		if i < len(panel.Items)-1 {
			b.WriteString("\n")
		}
	}
	return r.styles.PanelBox.Render(b.String())
}

// RenderWaiting paints the plugin screen before its first render lands.
func (r *Renderer) RenderWaiting(data domain.PluginViewData, width, height int) string {
	title := r.styles.Title.Render(data.EntrypointName)
	body := r.styles.Dim.Render("Loading " + data.PluginName + "...")
	return lipgloss.NewStyle().Width(width).Render(title + "\n" + body)
}

// RenderPlugin paints the installed widget tree with its current state.
func (r *Renderer) RenderPlugin(data domain.PluginViewData, snapshot widgets.Snapshot, width, height int) string {
	var b strings.Builder
	b.WriteString(r.styles.Title.Render(data.EntrypointName))
	b.WriteString("\n")

	if snapshot.Root != nil {
		for _, child := range snapshot.Root.Root.Children {
			r.renderNode(&b, child, snapshot, 0)
		}
	}

	b.WriteString("\n")
	b.WriteString(r.styles.Status.Render("esc back"))
	return lipgloss.NewStyle().Width(width).Render(b.String())
}

func (r *Renderer) renderNode(b *strings.Builder, node domain.WidgetNode, snapshot widgets.Snapshot, depth int) {
	indent := strings.Repeat("  ", depth)

	switch node.Kind {
	case domain.KindLabel:
		b.WriteString(indent + node.StringProp("value") + "\n")
	case domain.KindTextField:
		value := ""
		if s, ok := snapshot.States[node.ID].(widgets.TextFieldState); ok {
			value = s.Value
		}
		b.WriteString(indent + "[" + value + "]\n")
	case domain.KindCheckbox:
		mark := "[ ]"
		if s, ok := snapshot.States[node.ID].(widgets.CheckboxState); ok && s.Checked {
			mark = "[x]"
		}
		b.WriteString(indent + mark + " " + node.StringProp("label") + "\n")
	case domain.KindSelect:
		value := ""
		if s, ok := snapshot.States[node.ID].(widgets.SelectState); ok {
			value = s.Value
		}
		b.WriteString(indent + node.StringProp("label") + ": " + r.styles.Highlight.Render(value) + "\n")
	case domain.KindList:
		cursor := widgets.CursorNone
		if s, ok := snapshot.States[node.ID].(widgets.ListState); ok {
			cursor = s.Cursor
		}
		for i, child := range node.Children {
			prefix := "  "
			if i == cursor {
				prefix = r.styles.Selection.Render("▶") + " "
			}
			b.WriteString(indent + prefix + child.StringProp("title") + "\n")
		}
		return
	case domain.KindImage:
		if asset, ok := snapshot.Assets[node.ID]; ok {
			b.WriteString(indent + r.styles.Dim.Render(fmt.Sprintf("[image %d bytes]", len(asset))) + "\n")
		}
	case domain.KindActionPanel:
		return // rendered as an overlay, not inline
	}

	for _, child := range node.Children {
		r.renderNode(b, child, snapshot, depth+1)
	}
}

// RenderError paints the error screen for each failure variant.
func (r *Renderer) RenderError(data state.ErrorViewData, width, height int) string {
	var body string
	switch e := data.(type) {
	case state.PreferenceRequired:
		var lines []string
		lines = append(lines, r.styles.Title.Render("Preferences required"))
		if e.PluginRequired {
			lines = append(lines, fmt.Sprintf("Plugin %s needs required preferences set.", e.PluginID))
		}
		if e.EntrypointRequired {
			lines = append(lines, fmt.Sprintf("Command %s needs required preferences set.", e.EntrypointID))
		}
		body = strings.Join(lines, "\n")
	case state.PluginError:
		body = r.styles.Title.Render("Plugin error") + "\n" +
			fmt.Sprintf("%s/%s failed while handling the view.", e.PluginID, e.EntrypointID)
	case state.BackendTimeout:
		body = r.styles.Title.Render("Timeout") + "\n" +
			"The plugin did not render in time."
	case state.UnknownError:
		body = r.styles.Title.Render("Error") + "\n" + e.Display
	default:
		body = r.styles.Title.Render("Error")
	}

	body += "\n\n" + r.styles.Status.Render("esc hide · ctrl+l view log")
	return lipgloss.NewStyle().Width(width).Render(r.styles.ErrorBox.Render(body))
}
