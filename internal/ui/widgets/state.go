// Package widgets owns the installed (tree, state) pair for a plugin
// view: per-widget mutable state, the reconciler that carries it across
// renders, and the event transitions that mutate it.
package widgets

import "lumen/internal/domain"

// State is the per-widget mutable UI state, one variant per widget kind
// that carries any. Keyed by widget id in the container.
type State interface {
	widgetState()
}

// TextFieldState holds the current contents of a text field.
type TextFieldState struct {
	Value string
}

// CheckboxState holds a toggle value.
type CheckboxState struct {
	Checked bool
}

// SelectState holds the chosen option value, empty when none chosen.
type SelectState struct {
	Value string
}

// ListState holds the focus cursor over a list's items. CursorNone means
// nothing focused.
type ListState struct {
	Cursor int
}

// StaticState is the state of widget kinds that carry none. Every id in
// the installed tree has an entry, stateful or not.
type StaticState struct{}

// CursorNone marks an unfocused list.
const CursorNone = -1

func (TextFieldState) widgetState() {}
func (CheckboxState) widgetState()  {}
func (SelectState) widgetState()    {}
func (ListState) widgetState()      {}
func (StaticState) widgetState()    {}

// defaultState returns the initial state for a widget kind. Defaults may
// seed from the node's declared properties (a checkbox's initial value,
// a select's preselected option).
func defaultState(node *domain.WidgetNode) State {
	switch node.Kind {
	case domain.KindTextField:
		return TextFieldState{Value: node.StringProp("value")}
	case domain.KindCheckbox:
		if p, ok := node.Properties["checked"]; ok && p.Kind == domain.PropertyBool {
			return CheckboxState{Checked: p.Bool}
		}
		return CheckboxState{}
	case domain.KindSelect:
		return SelectState{Value: node.StringProp("value")}
	case domain.KindList:
		return ListState{Cursor: CursorNone}
	default:
		return StaticState{}
	}
}

// newStateMap builds a default state entry for every id in the tree.
func newStateMap(root *domain.RootWidget) map[domain.WidgetID]State {
	states := make(map[domain.WidgetID]State)
	root.Walk(func(n *domain.WidgetNode) {
		states[n.ID] = defaultState(n)
	})
	return states
}
