package widgets

import (
	"testing"

	"github.com/stretchr/testify/require"

	"lumen/internal/domain"
)

func tree(children ...domain.WidgetNode) *domain.RootWidget {
	return &domain.RootWidget{
		Root: domain.WidgetNode{
			ID:       0,
			Kind:     domain.KindRoot,
			Children: children,
		},
	}
}

func textField(id domain.WidgetID, value string) domain.WidgetNode {
	return domain.WidgetNode{
		ID:   id,
		Kind: domain.KindTextField,
		Properties: map[string]domain.PropertyValue{
			"value": domain.StringProperty(value),
		},
	}
}

func label(id domain.WidgetID, value string) domain.WidgetNode {
	return domain.WidgetNode{
		ID:   id,
		Kind: domain.KindLabel,
		Properties: map[string]domain.PropertyValue{
			"value": domain.StringProperty(value),
		},
	}
}

func TestReconcilePreservesSurvivingState(t *testing.T) {
	t.Parallel()

	old := map[domain.WidgetID]State{
		1: TextFieldState{Value: "typed by user"},
		2: StaticState{},
	}
	next := reconcile(old, tree(textField(1, "default"), label(2, "hello")))

	require.Equal(t, TextFieldState{Value: "typed by user"}, next[1],
		"surviving text field should keep the user's value")
	require.Contains(t, next, domain.WidgetID(2), "label keeps a static entry")
}

func TestReconcileDropsVanishedIDs(t *testing.T) {
	t.Parallel()

	old := map[domain.WidgetID]State{
		1: TextFieldState{Value: "gone"},
		2: CheckboxState{Checked: true},
	}
	next := reconcile(old, tree(checkbox(2, false)))

	require.NotContains(t, next, domain.WidgetID(1), "vanished id must not linger")
	require.Equal(t, CheckboxState{Checked: true}, next[2])
}

func TestReconcileSeedsNewIDsFromDefaults(t *testing.T) {
	t.Parallel()

	next := reconcile(nil, tree(textField(5, "initial"), checkbox(6, true)))

	require.Equal(t, TextFieldState{Value: "initial"}, next[5])
	require.Equal(t, CheckboxState{Checked: true}, next[6])
}

func TestReconcileRenumberedIDLosesState(t *testing.T) {
	t.Parallel()

	// Same widget semantically, different id. Identity is the id, so
	// the value resets to the new tree's default.
	old := reconcile(nil, tree(textField(1, "")))
	old[1] = TextFieldState{Value: "draft"}

	next := reconcile(old, tree(textField(2, "")))

	require.Equal(t, TextFieldState{Value: ""}, next[2],
		"renumbered widget starts from its declared default")
	require.NotContains(t, next, domain.WidgetID(1))
}

func TestReconcileStateMapCoversEveryID(t *testing.T) {
	t.Parallel()

	root := tree(
		label(1, "a"),
		domain.WidgetNode{
			ID:   2,
			Kind: domain.KindList,
			Children: []domain.WidgetNode{
				{ID: 3, Kind: domain.KindListItem},
				{ID: 4, Kind: domain.KindListItem},
			},
		},
	)
	next := reconcile(nil, root)

	for id := range root.IDs() {
		require.Contains(t, next, id, "every id in the tree gets a state entry")
	}
	require.Len(t, next, 5, "root plus four children")
}

func checkbox(id domain.WidgetID, checked bool) domain.WidgetNode {
	return domain.WidgetNode{
		ID:   id,
		Kind: domain.KindCheckbox,
		Properties: map[string]domain.PropertyValue{
			"checked": domain.BoolProperty(checked),
		},
	}
}
