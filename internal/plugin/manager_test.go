package plugin

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"lumen/internal/apps"
	"lumen/internal/config"
	"lumen/internal/domain"
	"lumen/internal/eventbus"
	"lumen/internal/search"
	"lumen/internal/ui/widgets"
)

const managerSource = `
host.register("main", {
	render: function (ep) {
		host.submitRender(ep, {
			id: 0, kind: "root", children: [
				{ id: 1, kind: "label", props: { value: "rendered" } }
			]
		}, null);
	},
	onEvent: function (ev) {
		host.submitRender("main", {
			id: 0, kind: "root", children: [
				{ id: 1, kind: "label", props: { value: "saw " + ev.name } }
			]
		}, null);
	}
});
`

type managerFixture struct {
	manager *Manager
	bus     eventbus.EventBus
	index   *search.Index
	prefs   *config.PreferencesStore
}

func newManagerFixture(t *testing.T, renderTimeout time.Duration) *managerFixture {
	t.Helper()

	bus := eventbus.New()
	t.Cleanup(bus.Close)

	prefs, err := config.OpenPreferencesStore(t.TempDir() + "/preferences.toml")
	require.NoError(t, err)

	index := search.New(10, nil)
	m := NewManager(bus, index, prefs, apps.NewServiceWithDirs(nil), renderTimeout)
	t.Cleanup(m.UnloadAll)

	return &managerFixture{manager: m, bus: bus, index: index, prefs: prefs}
}

func (f *managerFixture) load(t *testing.T, manifestJSON, source string) *Bundle {
	t.Helper()
	dir := writeBundle(t, manifestJSON, map[string]string{"main.js": source})
	bundle, err := f.manager.LoadPlugin(dir)
	require.NoError(t, err)
	return bundle
}

func waitContainer(t *testing.T, m *Manager, plugin domain.PluginID, entrypoint domain.EntrypointID) *widgets.Container {
	t.Helper()
	var c *widgets.Container
	require.Eventually(t, func() bool {
		c = m.Container(plugin, entrypoint)
		return c != nil
	}, 2*time.Second, 10*time.Millisecond, "render never arrived")
	return c
}

func TestManagerLoadIndexesEntrypoints(t *testing.T) {
	t.Parallel()

	f := newManagerFixture(t, time.Second)
	f.load(t, demoManifest, managerSource)

	results := f.index.Search("Main")
	require.Len(t, results, 1, "load commits the plugin's entrypoints synchronously")
	require.Equal(t, domain.PluginID("demo"), results[0].PluginID)
}

func TestManagerOpenViewRendersIntoContainer(t *testing.T) {
	t.Parallel()

	f := newManagerFixture(t, time.Second)
	f.load(t, demoManifest, managerSource)

	data, err := f.manager.OpenView("demo", "main", true)
	require.NoError(t, err)
	require.True(t, data.TopLevel)
	require.Equal(t, "Main", data.EntrypointName)

	c := waitContainer(t, f.manager, "demo", "main")
	require.Eventually(t, func() bool {
		snap := c.Snapshot()
		return snap.Root != nil && len(snap.Root.Root.Children) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestManagerPreferenceGating(t *testing.T) {
	t.Parallel()

	manifest := `{
		"id": "gated",
		"name": "Gated",
		"preferences": [{"name": "token", "type": "string", "required": true}],
		"entrypoints": [{
			"id": "main", "name": "Main", "path": "main.js",
			"preferences": [{"name": "folder", "type": "string", "required": true}]
		}]
	}`
	f := newManagerFixture(t, time.Second)
	f.load(t, manifest, managerSource)

	// Neither level satisfied: both flags set, no render requested.
	_, err := f.manager.OpenView("gated", "main", true)
	var gate *PreferenceGateError
	require.ErrorAs(t, err, &gate)
	require.True(t, gate.PluginRequired)
	require.True(t, gate.EntrypointRequired)
	require.Nil(t, f.manager.Container("gated", "main"), "gated open never reaches the plugin")

	// Plugin level satisfied, entrypoint still missing.
	f.prefs.SetPluginPreference("gated", "token", config.PreferenceValue{
		Type: config.PreferenceString, Str: "abc",
	})
	_, err = f.manager.OpenView("gated", "main", true)
	require.ErrorAs(t, err, &gate)
	require.False(t, gate.PluginRequired)
	require.True(t, gate.EntrypointRequired)

	// Both satisfied: the view opens and renders.
	f.prefs.SetEntrypointPreference("gated", "main", "folder", config.PreferenceValue{
		Type: config.PreferenceString, Str: "/tmp",
	})
	_, err = f.manager.OpenView("gated", "main", true)
	require.NoError(t, err)
	waitContainer(t, f.manager, "gated", "main")
}

func TestManagerRenderTimeout(t *testing.T) {
	t.Parallel()

	silent := `host.register("main", { render: function () { /* never submits */ } });`

	f := newManagerFixture(t, 50*time.Millisecond)
	f.load(t, demoManifest, silent)

	errs := make(chan error, 1)
	f.bus.Subscribe(eventbus.EventViewError, func(e eventbus.DomainEvent) {
		if ev, ok := e.(eventbus.ViewErrorEvent); ok {
			errs <- ev.Err
		}
	})

	_, err := f.manager.OpenView("demo", "main", true)
	require.NoError(t, err)

	select {
	case err := <-errs:
		var timeout *domain.RenderTimeoutError
		require.ErrorAs(t, err, &timeout)
		require.Equal(t, domain.PluginID("demo"), timeout.PluginID)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout never fired")
	}
}

func TestManagerRenderDisarmsTimeout(t *testing.T) {
	t.Parallel()

	f := newManagerFixture(t, 200*time.Millisecond)
	f.load(t, demoManifest, managerSource)

	fired := make(chan struct{}, 1)
	f.bus.Subscribe(eventbus.EventViewError, func(eventbus.DomainEvent) {
		fired <- struct{}{}
	})

	_, err := f.manager.OpenView("demo", "main", true)
	require.NoError(t, err)
	waitContainer(t, f.manager, "demo", "main")

	select {
	case <-fired:
		t.Fatal("timeout fired even though the render arrived")
	case <-time.After(400 * time.Millisecond):
	}
}

func TestManagerForwardsViewEvents(t *testing.T) {
	t.Parallel()

	f := newManagerFixture(t, time.Second)
	f.load(t, demoManifest, managerSource)

	_, err := f.manager.OpenView("demo", "main", true)
	require.NoError(t, err)
	c := waitContainer(t, f.manager, "demo", "main")

	f.manager.ForwardViewEvent("demo", domain.ViewEvent{
		WidgetID: 1,
		Name:     "onClick",
		Payload:  map[string]domain.PropertyValue{},
	})

	require.Eventually(t, func() bool {
		snap := c.Snapshot()
		if snap.Root == nil || len(snap.Root.Root.Children) == 0 {
			return false
		}
		return snap.Root.Root.Children[0].StringProp("value") == "saw onClick"
	}, 2*time.Second, 10*time.Millisecond, "plugin never saw the event")
}

func TestManagerUnloadRemovesEverything(t *testing.T) {
	t.Parallel()

	f := newManagerFixture(t, time.Second)
	f.load(t, demoManifest, managerSource)

	_, err := f.manager.OpenView("demo", "main", true)
	require.NoError(t, err)
	waitContainer(t, f.manager, "demo", "main")

	require.NoError(t, f.manager.UnloadPlugin("demo"))

	require.Nil(t, f.manager.Container("demo", "main"))
	require.Empty(t, f.index.Search("Main"), "unload removes index entries synchronously")
	require.Error(t, f.manager.UnloadPlugin("demo"), "double unload reports an error")

	_, ok := f.manager.Bundle("demo")
	require.False(t, ok)
}

func TestManagerRejectsDuplicateLoad(t *testing.T) {
	t.Parallel()

	f := newManagerFixture(t, time.Second)
	dir := writeBundle(t, demoManifest, map[string]string{"main.js": managerSource})

	_, err := f.manager.LoadPlugin(dir)
	require.NoError(t, err)

	_, err = f.manager.LoadPlugin(dir)
	require.Error(t, err, "one plugin id loads at most once")
}

func TestManagerConcurrentLoadsOfSameID(t *testing.T) {
	t.Parallel()

	f := newManagerFixture(t, time.Second)
	dir := writeBundle(t, demoManifest, map[string]string{"main.js": managerSource})

	const loaders = 4
	errs := make(chan error, loaders)
	var start sync.WaitGroup
	start.Add(loaders)
	for i := 0; i < loaders; i++ {
		go func() {
			start.Done()
			start.Wait()
			_, err := f.manager.LoadPlugin(dir)
			errs <- err
		}()
	}

	succeeded := 0
	for i := 0; i < loaders; i++ {
		if err := <-errs; err == nil {
			succeeded++
		}
	}
	require.Equal(t, 1, succeeded, "exactly one load per plugin id wins")

	// the winner's sandbox is the one installed and it still works
	_, err := f.manager.OpenView("demo", "main", true)
	require.NoError(t, err)
	waitContainer(t, f.manager, "demo", "main")
}

func TestManagerOpenViewUnknownTargets(t *testing.T) {
	t.Parallel()

	f := newManagerFixture(t, time.Second)
	f.load(t, demoManifest, managerSource)

	_, err := f.manager.OpenView("ghost", "main", true)
	require.Error(t, err)

	_, err = f.manager.OpenView("demo", "ghost", true)
	require.Error(t, err)
}
