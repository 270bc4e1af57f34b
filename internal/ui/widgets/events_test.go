package widgets

import (
	"testing"

	"github.com/stretchr/testify/require"

	"lumen/internal/domain"
)

func TestTransitionTextChanged(t *testing.T) {
	t.Parallel()

	next, out := transition(TextChanged{ID: 1, Value: "abc"}, TextFieldState{Value: "ab"})

	require.Equal(t, TextFieldState{Value: "abc"}, next)
	require.NotNil(t, out, "text change emits an onChange event")
	require.Equal(t, "onChange", out.Name)
	require.Equal(t, domain.WidgetID(1), out.WidgetID)
	require.Equal(t, "abc", out.Payload["value"].Str)
}

func TestTransitionToggleFlips(t *testing.T) {
	t.Parallel()

	next, out := transition(Toggled{ID: 2}, CheckboxState{Checked: false})
	require.Equal(t, CheckboxState{Checked: true}, next)
	require.NotNil(t, out)

	next, out = transition(Toggled{ID: 2}, next)
	require.Equal(t, CheckboxState{Checked: false}, next)
	require.NotNil(t, out)
	require.Equal(t, false, out.Payload["value"].Bool)
}

func TestTransitionClickedLeavesStateAlone(t *testing.T) {
	t.Parallel()

	prev := CheckboxState{Checked: true}
	next, out := transition(Clicked{ID: 3}, prev)

	require.Equal(t, prev, next, "click is outbound only, no state change")
	require.NotNil(t, out)
	require.Equal(t, "onClick", out.Name)
}

func TestTransitionKindMismatchIsNoOp(t *testing.T) {
	t.Parallel()

	prev := CheckboxState{Checked: true}
	next, out := transition(TextChanged{ID: 4, Value: "x"}, prev)

	require.Equal(t, prev, next, "event for the wrong kind leaves state unchanged")
	require.Nil(t, out)
}

func TestTransitionListCursor(t *testing.T) {
	t.Parallel()

	next, out := transition(ListCursorChanged{ID: 5, Cursor: 2}, ListState{Cursor: 0})
	require.Equal(t, ListState{Cursor: 2}, next)
	require.Nil(t, out, "cursor movement stays local")

	next, out = transition(ListCursorChanged{ID: 5, Cursor: -3}, next)
	require.Equal(t, ListState{Cursor: CursorNone}, next, "negative cursor normalizes to none")
	require.Nil(t, out)
}
