package eventbus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPublishReachesSubscriber(t *testing.T) {
	t.Parallel()

	b := New()
	defer b.Close()

	got := make(chan DomainEvent, 1)
	b.Subscribe(EventPluginLoaded, func(e DomainEvent) { got <- e })

	b.Publish(PluginLoadedEvent{PluginID: "calc", PluginName: "Calculator"})

	select {
	case e := <-got:
		loaded, ok := e.(PluginLoadedEvent)
		require.True(t, ok)
		require.Equal(t, "Calculator", loaded.PluginName)
	case <-time.After(time.Second):
		t.Fatal("event was not delivered")
	}
}

func TestSubscribersAreTypeScoped(t *testing.T) {
	t.Parallel()

	b := New()
	defer b.Close()

	loaded := make(chan DomainEvent, 4)
	b.Subscribe(EventPluginLoaded, func(e DomainEvent) { loaded <- e })

	b.Publish(PluginUnloadedEvent{PluginID: "calc"})
	b.Publish(PluginLoadedEvent{PluginID: "notes"})

	e := <-loaded
	require.Equal(t, EventPluginLoaded, e.Type(), "only subscribed type is delivered")

	select {
	case extra := <-loaded:
		t.Fatalf("unexpected extra event %v", extra.Type())
	case <-time.After(100 * time.Millisecond):
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	t.Parallel()

	b := New()
	defer b.Close()

	got := make(chan DomainEvent, 4)
	unsub := b.Subscribe(EventIndexUpdated, func(e DomainEvent) { got <- e })

	b.Publish(IndexUpdatedEvent{Docs: 1})
	<-got

	unsub()
	b.Publish(IndexUpdatedEvent{Docs: 2})

	select {
	case e := <-got:
		t.Fatalf("delivered after unsubscribe: %v", e)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestUnsubscribeDetachesOnlyItsOwnHandler(t *testing.T) {
	t.Parallel()

	b := New()
	defer b.Close()

	first := make(chan DomainEvent, 4)
	second := make(chan DomainEvent, 4)
	unsubFirst := b.Subscribe(EventIndexUpdated, func(e DomainEvent) { first <- e })
	unsubSecond := b.Subscribe(EventIndexUpdated, func(e DomainEvent) { second <- e })

	unsubFirst()
	b.Publish(IndexUpdatedEvent{Docs: 1})

	select {
	case <-second:
	case <-time.After(time.Second):
		t.Fatal("remaining subscriber lost its events")
	}
	select {
	case e := <-first:
		t.Fatalf("delivered after unsubscribe: %v", e)
	case <-time.After(100 * time.Millisecond):
	}

	// unsubscribing the survivor afterwards still works and is
	// idempotent
	unsubSecond()
	unsubSecond()
	b.Publish(IndexUpdatedEvent{Docs: 2})

	select {
	case e := <-second:
		t.Fatalf("delivered after unsubscribe: %v", e)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestPanickingHandlerDoesNotStopOthers(t *testing.T) {
	t.Parallel()

	b := New()
	defer b.Close()

	got := make(chan DomainEvent, 1)
	b.Subscribe(EventViewError, func(DomainEvent) { panic("handler bug") })
	b.Subscribe(EventViewError, func(e DomainEvent) { got <- e })

	b.Publish(ViewErrorEvent{PluginID: "calc"})

	select {
	case <-got:
	case <-time.After(time.Second):
		t.Fatal("second handler never ran")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	t.Parallel()

	b := New()
	b.Publish(IndexUpdatedEvent{Docs: 1})
	b.Close()
	b.Close()
}
