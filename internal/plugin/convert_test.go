package plugin

import (
	"testing"

	"github.com/stretchr/testify/require"

	"lumen/internal/domain"
)

func TestConvertTree(t *testing.T) {
	t.Parallel()

	raw := map[string]interface{}{
		"id":   int64(0),
		"kind": "root",
		"children": []interface{}{
			map[string]interface{}{
				"id":   int64(1),
				"kind": "label",
				"props": map[string]interface{}{
					"value": "hello",
					"bold":  true,
					"size":  int64(14),
				},
			},
		},
	}

	root, err := convertTree(raw)
	require.NoError(t, err)

	label := root.Find(1)
	require.NotNil(t, label)
	require.Equal(t, domain.KindLabel, label.Kind)
	require.Equal(t, "hello", label.StringProp("value"))
	require.Equal(t, true, label.Properties["bold"].Bool)
	require.Equal(t, float64(14), label.Properties["size"].Num)
}

func TestConvertTreeRejections(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		raw  interface{}
	}{
		{"not an object", "just a string"},
		{"negative id", map[string]interface{}{"id": int64(-1), "kind": "root"}},
		{"fractional id", map[string]interface{}{"id": 1.5, "kind": "root"}},
		{"id beyond uint32", map[string]interface{}{"id": int64(1 << 40), "kind": "root"}},
		{"float id beyond uint32", map[string]interface{}{"id": float64(1 << 40), "kind": "root"}},
		{"missing kind", map[string]interface{}{"id": int64(0)}},
		{"non-root top", map[string]interface{}{"id": int64(0), "kind": "label"}},
		{"children not array", map[string]interface{}{
			"id": int64(0), "kind": "root", "children": "nope",
		}},
		{"bad property", map[string]interface{}{
			"id": int64(0), "kind": "root", "children": []interface{}{
				map[string]interface{}{
					"id": int64(1), "kind": "label",
					"props": map[string]interface{}{"value": []interface{}{}},
				},
			},
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := convertTree(tc.raw)
			require.Error(t, err)
		})
	}
}

func TestConvertTreeDoesNotTruncateWideIDs(t *testing.T) {
	t.Parallel()

	// An id above 2^32 must be rejected outright. Truncating it would
	// alias the widget to an unrelated id and outbound events would
	// carry an id the plugin never emitted.
	raw := map[string]interface{}{
		"id":   int64(0),
		"kind": "root",
		"children": []interface{}{
			map[string]interface{}{"id": int64(1<<32 + 7), "kind": "label"},
		},
	}

	root, err := convertTree(raw)
	require.Error(t, err, "out-of-range child id must fail the whole tree")
	require.Nil(t, root)
}

func TestConvertAssets(t *testing.T) {
	t.Parallel()

	assets, err := convertAssets(map[string]interface{}{
		"3": "aGVsbG8=", // "hello"
	})
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), assets[domain.WidgetID(3)])

	_, err = convertAssets(map[string]interface{}{"x": "aGVsbG8="})
	require.Error(t, err, "asset keys must be widget ids")

	_, err = convertAssets(map[string]interface{}{"3": "not base64 !!!"})
	require.Error(t, err)

	empty, err := convertAssets(nil)
	require.NoError(t, err)
	require.Empty(t, empty)
}
