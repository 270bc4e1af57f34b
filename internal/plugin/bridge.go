package plugin

import (
	"errors"
	"fmt"
	"log"
	"runtime"

	"github.com/atotto/clipboard"
	"github.com/dop251/goja"

	"lumen/internal/apps"
	"lumen/internal/config"
	"lumen/internal/domain"
	"lumen/internal/ui/widgets"
)

// BridgeVersion is the version of the capability call surface.
const BridgeVersion = 1

// Failure kinds a plugin sees on a thrown capability failure.
const (
	failConfiguration = "configuration"
	failCapability    = "capability"
	failInvalidRender = "invalid-render"
)

// ErrBridgeClosed reports an awaited op whose reply path closed.
var ErrBridgeClosed = errors.New("bridge closed")

// RenderSink accepts render submissions from sandboxes. Implemented by
// the plugin manager; submissions for one plugin arrive in the order
// the plugin issued them.
type RenderSink interface {
	SubmitRender(view widgets.View) error
}

// Bridge is the only channel through which one plugin's code reaches
// host services. Ops are either fast (return immediately on the sandbox
// goroutine) or awaited (block the sandbox goroutine on a worker's
// reply; the worker does the OS/filesystem part).
type Bridge struct {
	bundle *Bundle
	prefs  *config.PreferencesStore
	apps   *apps.Service
	sink   RenderSink

	// closed when the owning sandbox unloads; awaited ops give up on it
	// instead of retaining the host
	done chan struct{}
}

// NewBridge builds the capability bridge for one plugin.
func NewBridge(bundle *Bundle, prefs *config.PreferencesStore, appsSvc *apps.Service, sink RenderSink) *Bridge {
	return &Bridge{
		bundle: bundle,
		prefs:  prefs,
		apps:   appsSvc,
		sink:   sink,
		done:   make(chan struct{}),
	}
}

// close cancels in-flight awaited ops. Idempotence is the sandbox's
// concern; it calls this exactly once.
func (b *Bridge) close() {
	close(b.done)
}

// install publishes the capability surface into the VM as the global
// `host` object. Runs on the sandbox goroutine.
func (b *Bridge) install(vm *goja.Runtime, registerFn func(string, *goja.Object) error) error {
	host := vm.NewObject()

	set := func(name string, fn interface{}) error {
		return host.Set(name, fn)
	}

	pairs := []struct {
		name string
		fn   interface{}
	}{
		{"version", func() int { return BridgeVersion }},
		{"currentOS", func() string { return runtime.GOOS }},
		{"log", func(msg string) {
			log.Printf("plugin %s: %s", b.bundle.ID, msg)
		}},

		{"register", func(entrypointID string, handlers *goja.Object) {
			if err := registerFn(entrypointID, handlers); err != nil {
				b.throw(vm, failCapability, "register", err)
			}
		}},

		{"getPluginPreferences", func() map[string]interface{} {
			return exportPreferences(b.prefs.PluginPreferences(b.bundle.ID))
		}},
		{"getEntrypointPreferences", func(entrypointID string) map[string]interface{} {
			values := b.prefs.EntrypointPreferences(b.bundle.ID, domain.EntrypointID(entrypointID))
			return exportPreferences(values)
		}},

		{"pluginPreferencesRequired", func() bool {
			v, err := b.await("pluginPreferencesRequired", func() (interface{}, error) {
				return missingRequired(b.bundle.Preferences, b.prefs.PluginPreferences(b.bundle.ID)), nil
			})
			if err != nil {
				b.throw(vm, failCapability, "pluginPreferencesRequired", err)
			}
			return v.(bool)
		}},
		{"entrypointPreferencesRequired", func(entrypointID string) bool {
			v, err := b.await("entrypointPreferencesRequired", func() (interface{}, error) {
				ep, ok := b.bundle.Entrypoint(domain.EntrypointID(entrypointID))
				if !ok {
					return nil, fmt.Errorf("unknown entrypoint %q", entrypointID)
				}
				values := b.prefs.EntrypointPreferences(b.bundle.ID, ep.ID)
				return missingRequired(ep.Preferences, values), nil
			})
			if err != nil {
				b.throw(vm, failCapability, "entrypointPreferencesRequired", err)
			}
			return v.(bool)
		}},

		{"clipboardWrite", func(text string) {
			if err := clipboard.WriteAll(text); err != nil {
				b.throw(vm, failCapability, "clipboardWrite", err)
			}
		}},

		{"listApplications", func() []map[string]interface{} {
			v, err := b.await("listApplications", func() (interface{}, error) {
				deltas, err := b.apps.Scan()
				if err != nil {
					return nil, err
				}
				return exportDeltas(deltas), nil
			})
			if err != nil {
				b.throw(vm, failCapability, "listApplications", err)
			}
			return v.([]map[string]interface{})
		}},
		{"launchApplication", func(id string) {
			_, err := b.await("launchApplication", func() (interface{}, error) {
				return nil, b.apps.Launch(id)
			})
			if err != nil {
				b.throw(vm, failCapability, "launchApplication", err)
			}
		}},
		{"resolveIcon", func(id string) goja.Value {
			v, err := b.await("resolveIcon", func() (interface{}, error) {
				return b.apps.Icon(id)
			})
			if err != nil {
				b.throw(vm, failCapability, "resolveIcon", err)
			}
			data, _ := v.([]byte)
			if data == nil {
				return goja.Null()
			}
			return vm.ToValue(vm.NewArrayBuffer(data))
		}},

		{"submitRender", func(entrypointID string, tree goja.Value, assets goja.Value) {
			b.submitRender(vm, entrypointID, tree, assets)
		}},
	}

	for _, p := range pairs {
		if err := set(p.name, p.fn); err != nil {
			return fmt.Errorf("failed to install host.%s: %w", p.name, err)
		}
	}

	return vm.Set("host", host)
}

// submitRender validates and forwards one render submission. A tree is
// installed wholly or not at all.
func (b *Bridge) submitRender(vm *goja.Runtime, entrypointID string, tree goja.Value, assets goja.Value) {
	ep, ok := b.bundle.Entrypoint(domain.EntrypointID(entrypointID))
	if !ok {
		b.throw(vm, failInvalidRender, "submitRender", fmt.Errorf("unknown entrypoint %q", entrypointID))
	}

	root, err := convertTree(tree.Export())
	if err != nil {
		b.throw(vm, failInvalidRender, "submitRender", err)
	}

	var assetMap map[domain.WidgetID][]byte
	if assets == nil || goja.IsUndefined(assets) || goja.IsNull(assets) {
		assetMap = map[domain.WidgetID][]byte{}
	} else {
		assetMap, err = convertAssets(assets.Export())
		if err != nil {
			b.throw(vm, failInvalidRender, "submitRender", err)
		}
	}

	view := widgets.View{
		Root:           root,
		Assets:         assetMap,
		PluginID:       b.bundle.ID,
		PluginName:     b.bundle.Name,
		EntrypointID:   ep.ID,
		EntrypointName: ep.Name,
	}
	if err := b.sink.SubmitRender(view); err != nil {
		b.throw(vm, failCapability, "submitRender", err)
	}
}

// await runs fn on a worker goroutine and blocks the sandbox goroutine
// until it replies or the bridge closes. The reply channel is buffered,
// so a cancelled op never retains the worker, and a closed bridge is an
// immediate CapabilityError rather than an indefinite suspension.
func (b *Bridge) await(op string, fn func() (interface{}, error)) (interface{}, error) {
	type result struct {
		value interface{}
		err   error
	}
	reply := make(chan result, 1)

	go func() {
		v, err := fn()
		reply <- result{value: v, err: err}
	}()

	select {
	case r := <-reply:
		if r.err != nil {
			return nil, &domain.CapabilityError{Op: op, Err: r.err}
		}
		return r.value, nil
	case <-b.done:
		return nil, &domain.CapabilityError{Op: op, Err: ErrBridgeClosed}
	}
}

// throw raises a typed JS exception the plugin may catch:
// {kind, op, message}.
func (b *Bridge) throw(vm *goja.Runtime, kind, op string, err error) {
	message := fmt.Sprintf("%s error in %s: %v", kind, op, err)
	obj := vm.NewObject()
	obj.Set("kind", kind)
	obj.Set("op", op)
	obj.Set("message", err.Error())
	obj.Set("toString", func() string { return message })
	panic(vm.ToValue(obj))
}

func exportPreferences(values map[string]config.PreferenceValue) map[string]interface{} {
	out := make(map[string]interface{}, len(values))
	for name, v := range values {
		switch v.Type {
		case config.PreferenceString:
			out[name] = v.Str
		case config.PreferenceNumber:
			out[name] = v.Num
		case config.PreferenceBool:
			out[name] = v.Bool
		case config.PreferenceEnum:
			out[name] = v.Enum
		}
	}
	return out
}

func exportDeltas(deltas []apps.Delta) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(deltas))
	for _, d := range deltas {
		entry := map[string]interface{}{
			"type": string(d.Kind),
			"id":   d.ID,
		}
		if d.App != nil {
			entry["name"] = d.App.Name
		}
		out = append(out, entry)
	}
	return out
}
