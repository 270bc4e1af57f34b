package widgets

import "lumen/internal/domain"

// ActionItem is one contextual action offered by the current view.
type ActionItem struct {
	WidgetID domain.WidgetID
	Label    string
	Shortcut string // display label, empty when none assigned
}

// ActionPanel is the ordered action list derived from the installed
// tree. It is recomputed on demand, never mutated separately.
type ActionPanel struct {
	Items []ActionItem
}

// deriveActionPanel collects the action nodes under the tree's
// action-panel node, in tree order, resolving shortcut labels from the
// view's action shortcuts by action id.
func deriveActionPanel(root *domain.RootWidget, shortcuts map[string]string) (ActionPanel, bool) {
	if root == nil {
		return ActionPanel{}, false
	}

	var panel ActionPanel
	found := false
	root.Walk(func(n *domain.WidgetNode) {
		if n.Kind != domain.KindActionPanel {
			return
		}
		found = true
		for i := range n.Children {
			child := &n.Children[i]
			if child.Kind != domain.KindAction {
				continue
			}
			item := ActionItem{
				WidgetID: child.ID,
				Label:    child.StringProp("label"),
			}
			if actionID := child.StringProp("id"); actionID != "" {
				item.Shortcut = shortcuts[actionID]
			}
			panel.Items = append(panel.Items, item)
		}
	})

	return panel, found && len(panel.Items) > 0
}

// actionIDs returns the widget ids of all actions in tree order.
func actionIDs(root *domain.RootWidget) []domain.WidgetID {
	if root == nil {
		return nil
	}
	var ids []domain.WidgetID
	root.Walk(func(n *domain.WidgetNode) {
		if n.Kind == domain.KindAction {
			ids = append(ids, n.ID)
		}
	})
	return ids
}
