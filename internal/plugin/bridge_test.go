package plugin

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"lumen/internal/apps"
	"lumen/internal/config"
	"lumen/internal/domain"
	"lumen/internal/ui/widgets"
)

type nullSink struct{}

func (nullSink) SubmitRender(widgets.View) error { return nil }

func testBridge(t *testing.T) *Bridge {
	t.Helper()
	dir := writeBundle(t, `{
		"id": "demo",
		"entrypoints": [{"id": "main", "name": "Main", "path": "main.js"}]
	}`, map[string]string{"main.js": ""})
	bundle, err := LoadBundle(dir)
	require.NoError(t, err)

	prefs, err := config.OpenPreferencesStore(dir + "/preferences.toml")
	require.NoError(t, err)

	return NewBridge(bundle, prefs, apps.NewServiceWithDirs(nil), nullSink{})
}

func TestAwaitReturnsWorkerResult(t *testing.T) {
	t.Parallel()

	b := testBridge(t)
	v, err := b.await("op", func() (interface{}, error) { return 42, nil })
	require.NoError(t, err)
	require.Equal(t, 42, v)
}

func TestAwaitWrapsWorkerError(t *testing.T) {
	t.Parallel()

	b := testBridge(t)
	scanErr := errors.New("scan failed")
	_, err := b.await("listApplications", func() (interface{}, error) {
		return nil, scanErr
	})

	var capErr *domain.CapabilityError
	require.ErrorAs(t, err, &capErr)
	require.Equal(t, "listApplications", capErr.Op)
	require.ErrorIs(t, err, scanErr)
}

func TestAwaitOnClosedBridgeFailsInsteadOfHanging(t *testing.T) {
	t.Parallel()

	b := testBridge(t)
	b.close()

	block := make(chan struct{})
	defer close(block)

	done := make(chan error, 1)
	go func() {
		_, err := b.await("slow", func() (interface{}, error) {
			<-block
			return nil, nil
		})
		done <- err
	}()

	select {
	case err := <-done:
		var capErr *domain.CapabilityError
		require.ErrorAs(t, err, &capErr, "closed bridge yields a capability error")
		require.ErrorIs(t, err, ErrBridgeClosed)
	case <-time.After(time.Second):
		t.Fatal("await hung on a closed bridge")
	}
}

func TestAwaitCloseDuringFlight(t *testing.T) {
	t.Parallel()

	b := testBridge(t)

	block := make(chan struct{})
	defer close(block)

	done := make(chan error, 1)
	go func() {
		_, err := b.await("slow", func() (interface{}, error) {
			<-block
			return nil, nil
		})
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	b.close()

	select {
	case err := <-done:
		require.ErrorIs(t, err, ErrBridgeClosed, "in-flight op resolves with an error, never a hang")
	case <-time.After(time.Second):
		t.Fatal("in-flight await did not resolve after close")
	}
}
