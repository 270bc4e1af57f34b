package plugin

import (
	"encoding/base64"
	"fmt"
	"math"
	"strconv"

	"lumen/internal/domain"
)

// convertTree builds a RootWidget from the plain value a plugin passed
// to submitRender. The expected shape is nested objects
// {id, kind, props?, children?}; anything else is rejected so a bad
// render never installs a partial tree.
func convertTree(value interface{}) (*domain.RootWidget, error) {
	node, err := convertNode(value)
	if err != nil {
		return nil, err
	}
	root := &domain.RootWidget{Root: *node}
	if err := root.Validate(); err != nil {
		return nil, err
	}
	return root, nil
}

func convertNode(value interface{}) (*domain.WidgetNode, error) {
	obj, ok := value.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("widget node must be an object, got %T", value)
	}

	id, err := convertWidgetID(obj["id"])
	if err != nil {
		return nil, err
	}

	kind, ok := obj["kind"].(string)
	if !ok || kind == "" {
		return nil, fmt.Errorf("widget %d has no kind", id)
	}

	node := &domain.WidgetNode{
		ID:         id,
		Kind:       domain.WidgetKind(kind),
		Properties: make(map[string]domain.PropertyValue),
	}

	if props, ok := obj["props"].(map[string]interface{}); ok {
		for name, raw := range props {
			prop, err := convertProperty(raw)
			if err != nil {
				return nil, fmt.Errorf("widget %d property %s: %w", id, name, err)
			}
			node.Properties[name] = prop
		}
	}

	if rawChildren, ok := obj["children"]; ok && rawChildren != nil {
		children, ok := rawChildren.([]interface{})
		if !ok {
			return nil, fmt.Errorf("widget %d children must be an array", id)
		}
		for _, rawChild := range children {
			child, err := convertNode(rawChild)
			if err != nil {
				return nil, err
			}
			node.Children = append(node.Children, *child)
		}
	}

	return node, nil
}

func convertWidgetID(raw interface{}) (domain.WidgetID, error) {
	switch v := raw.(type) {
	case int64:
		if v < 0 || v > math.MaxUint32 {
			return 0, fmt.Errorf("widget id out of range, got %d", v)
		}
		return domain.WidgetID(v), nil
	case float64:
		if v < 0 || v != float64(uint32(v)) {
			return 0, fmt.Errorf("widget id must be an unsigned integer, got %v", v)
		}
		return domain.WidgetID(v), nil
	default:
		return 0, fmt.Errorf("widget id must be a number, got %T", raw)
	}
}

func convertProperty(raw interface{}) (domain.PropertyValue, error) {
	switch v := raw.(type) {
	case string:
		return domain.StringProperty(v), nil
	case bool:
		return domain.BoolProperty(v), nil
	case int64:
		return domain.NumberProperty(float64(v)), nil
	case float64:
		return domain.NumberProperty(v), nil
	default:
		return domain.PropertyValue{}, fmt.Errorf("unsupported property type %T", raw)
	}
}

// convertAssets decodes a {widgetId: base64} object into binary assets.
func convertAssets(value interface{}) (map[domain.WidgetID][]byte, error) {
	assets := make(map[domain.WidgetID][]byte)
	if value == nil {
		return assets, nil
	}

	obj, ok := value.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("assets must be an object, got %T", value)
	}

	for key, raw := range obj {
		id, err := strconv.ParseUint(key, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("asset key %q is not a widget id", key)
		}
		encoded, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("asset %s must be a base64 string", key)
		}
		data, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("asset %s is not valid base64: %w", key, err)
		}
		assets[domain.WidgetID(id)] = data
	}

	return assets, nil
}
