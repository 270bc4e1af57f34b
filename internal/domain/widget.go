package domain

import "fmt"

// WidgetID identifies a widget within one emitted tree. IDs are only
// stable across renders if the plugin keeps them stable.
type WidgetID uint32

// WidgetKind tags a widget node with its behavior
type WidgetKind string

const (
	KindRoot        WidgetKind = "root"
	KindLabel       WidgetKind = "label"
	KindImage       WidgetKind = "image"
	KindTextField   WidgetKind = "text-field"
	KindCheckbox    WidgetKind = "checkbox"
	KindSelect      WidgetKind = "select"
	KindSelectItem  WidgetKind = "select-item"
	KindList        WidgetKind = "list"
	KindListItem    WidgetKind = "list-item"
	KindActionPanel WidgetKind = "action-panel"
	KindAction      WidgetKind = "action"
	KindDetail      WidgetKind = "detail"
)

// PropertyKind tags the value type of a widget property
type PropertyKind int

const (
	PropertyString PropertyKind = iota
	PropertyNumber
	PropertyBool
)

// PropertyValue is a typed widget property
type PropertyValue struct {
	Kind PropertyKind
	Str  string
	Num  float64
	Bool bool
}

func StringProperty(v string) PropertyValue { return PropertyValue{Kind: PropertyString, Str: v} }
func NumberProperty(v float64) PropertyValue {
	return PropertyValue{Kind: PropertyNumber, Num: v}
}
func BoolProperty(v bool) PropertyValue { return PropertyValue{Kind: PropertyBool, Bool: v} }

// WidgetNode is one node in a declarative widget tree
type WidgetNode struct {
	ID         WidgetID
	Kind       WidgetKind
	Properties map[string]PropertyValue
	Children   []WidgetNode
}

// StringProp returns the named string property or "".
func (n *WidgetNode) StringProp(name string) string {
	if p, ok := n.Properties[name]; ok && p.Kind == PropertyString {
		return p.Str
	}
	return ""
}

// RootWidget is the declarative description a plugin emits for one
// entrypoint's current screen. It replaces the previous tree wholesale.
type RootWidget struct {
	Root WidgetNode
}

// Walk visits every node in the tree, depth first.
func (r *RootWidget) Walk(fn func(*WidgetNode)) {
	var visit func(*WidgetNode)
	visit = func(n *WidgetNode) {
		fn(n)
		for i := range n.Children {
			visit(&n.Children[i])
		}
	}
	visit(&r.Root)
}

// IDs returns the kind of every widget id present in the tree.
func (r *RootWidget) IDs() map[WidgetID]WidgetKind {
	ids := make(map[WidgetID]WidgetKind)
	r.Walk(func(n *WidgetNode) {
		ids[n.ID] = n.Kind
	})
	return ids
}

// Find returns the node carrying the given id, or nil.
func (r *RootWidget) Find(id WidgetID) *WidgetNode {
	var found *WidgetNode
	r.Walk(func(n *WidgetNode) {
		if n.ID == id && found == nil {
			found = n
		}
	})
	return found
}

// Validate checks that the tree is rooted correctly and that no widget
// id appears twice.
func (r *RootWidget) Validate() error {
	if r.Root.Kind != KindRoot {
		return fmt.Errorf("tree root must have kind %q, got %q", KindRoot, r.Root.Kind)
	}
	seen := make(map[WidgetID]struct{})
	var dup *WidgetNode
	r.Walk(func(n *WidgetNode) {
		if _, ok := seen[n.ID]; ok && dup == nil {
			dup = n
		}
		seen[n.ID] = struct{}{}
	})
	if dup != nil {
		return fmt.Errorf("duplicate widget id %d in tree", dup.ID)
	}
	return nil
}
