package widgets

import "lumen/internal/domain"

// reconcile merges the previous state map with a freshly emitted tree:
// every id in the new tree gets a default entry, then ids that survived
// keep their old value, and ids only in the old map are dropped. This is
// a replace-and-splice keyed purely on ids; a plugin that renumbers its
// widgets each render loses all prior state. Linear in old + new size.
func reconcile(old map[domain.WidgetID]State, root *domain.RootWidget) map[domain.WidgetID]State {
	next := newStateMap(root)
	for id, value := range old {
		if _, ok := next[id]; ok {
			next[id] = value
		}
	}
	return next
}
