package widgets

import "lumen/internal/domain"

// Event is a native interaction tagged with a widget id and a
// kind-specific payload.
type Event interface {
	WidgetID() domain.WidgetID
}

// TextChanged reports new text-field contents.
type TextChanged struct {
	ID    domain.WidgetID
	Value string
}

// Toggled reports a checkbox flip.
type Toggled struct {
	ID domain.WidgetID
}

// SelectionChanged reports a select widget choosing an option.
type SelectionChanged struct {
	ID    domain.WidgetID
	Value string
}

// Clicked reports activation of a clickable widget.
type Clicked struct {
	ID domain.WidgetID
}

// ListCursorChanged reports the list focus moving to an item index.
type ListCursorChanged struct {
	ID     domain.WidgetID
	Cursor int
}

func (e TextChanged) WidgetID() domain.WidgetID       { return e.ID }
func (e Toggled) WidgetID() domain.WidgetID           { return e.ID }
func (e SelectionChanged) WidgetID() domain.WidgetID  { return e.ID }
func (e Clicked) WidgetID() domain.WidgetID           { return e.ID }
func (e ListCursorChanged) WidgetID() domain.WidgetID { return e.ID }

// transition applies one event to one widget's state. Pure: returns the
// next state and at most one outbound event for the owning plugin.
// Events that don't fit the state's kind leave it unchanged.
func transition(event Event, old State) (State, *domain.ViewEvent) {
	switch ev := event.(type) {
	case TextChanged:
		if _, ok := old.(TextFieldState); !ok {
			return old, nil
		}
		return TextFieldState{Value: ev.Value}, &domain.ViewEvent{
			WidgetID: ev.ID,
			Name:     "onChange",
			Payload: map[string]domain.PropertyValue{
				"value": domain.StringProperty(ev.Value),
			},
		}

	case Toggled:
		state, ok := old.(CheckboxState)
		if !ok {
			return old, nil
		}
		next := CheckboxState{Checked: !state.Checked}
		return next, &domain.ViewEvent{
			WidgetID: ev.ID,
			Name:     "onChange",
			Payload: map[string]domain.PropertyValue{
				"value": domain.BoolProperty(next.Checked),
			},
		}

	case SelectionChanged:
		if _, ok := old.(SelectState); !ok {
			return old, nil
		}
		return SelectState{Value: ev.Value}, &domain.ViewEvent{
			WidgetID: ev.ID,
			Name:     "onChange",
			Payload: map[string]domain.PropertyValue{
				"value": domain.StringProperty(ev.Value),
			},
		}

	case ListCursorChanged:
		if _, ok := old.(ListState); !ok {
			return old, nil
		}
		cursor := ev.Cursor
		if cursor < 0 {
			cursor = CursorNone
		}
		return ListState{Cursor: cursor}, nil

	case Clicked:
		// click state is not retained; the event only travels outward
		return old, &domain.ViewEvent{
			WidgetID: ev.ID,
			Name:     "onClick",
			Payload:  map[string]domain.PropertyValue{},
		}
	}

	return old, nil
}
