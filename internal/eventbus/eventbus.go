package eventbus

import (
	"log"
	"runtime/debug"
	"sync"

	"lumen/internal/domain"
)

// Re-export domain types for convenience
type DomainEvent = domain.DomainEvent
type EventType = domain.EventType

// Event type constants
const (
	EventPluginLoaded       = domain.EventPluginLoaded
	EventPluginUnloaded     = domain.EventPluginUnloaded
	EventRenderSubmitted    = domain.EventRenderSubmitted
	EventViewError          = domain.EventViewError
	EventIndexUpdated       = domain.EventIndexUpdated
	EventPreferencesChanged = domain.EventPreferencesChanged
)

// Re-export domain event types
type PluginLoadedEvent = domain.PluginLoadedEvent
type PluginUnloadedEvent = domain.PluginUnloadedEvent
type RenderSubmittedEvent = domain.RenderSubmittedEvent
type ViewErrorEvent = domain.ViewErrorEvent
type IndexUpdatedEvent = domain.IndexUpdatedEvent
type PreferencesChangedEvent = domain.PreferencesChangedEvent

// EventHandler is a function that handles domain events
type EventHandler func(DomainEvent)

// EventBus carries ambient notifications between components. Delivery is
// asynchronous and unordered across subscribers; the render submission
// path does not go through here because it needs per-plugin ordering.
type EventBus interface {
	Publish(event DomainEvent)
	Subscribe(eventType EventType, handler EventHandler) func()
	Close()
}

// subscription gives each handler its own identity, so unsubscribing
// one never detaches a different handler for the same type.
type subscription struct {
	handler EventHandler
}

// bus is the concrete implementation of EventBus
type bus struct {
	mu        sync.RWMutex
	handlers  map[EventType][]*subscription
	eventChan chan DomainEvent
	wg        sync.WaitGroup
	quit      chan struct{}
	once      sync.Once
}

// New creates a new event bus
func New() EventBus {
	b := &bus{
		handlers:  make(map[EventType][]*subscription),
		eventChan: make(chan DomainEvent, 256),
		quit:      make(chan struct{}),
	}

	b.wg.Add(1)
	go b.dispatch()

	return b
}

// Publish publishes an event to all subscribers
func (b *bus) Publish(event DomainEvent) {
	switch event.Type() {
	case EventRenderSubmitted:
		// too frequent to log
	default:
		log.Printf("EventBus: publishing %s", event.Type())
	}

	select {
	case b.eventChan <- event:
	default:
		log.Printf("Event bus channel full, dropping event: %v", event.Type())
	}
}

// Subscribe subscribes to events of a specific type
// Returns an unsubscribe function
func (b *bus) Subscribe(eventType EventType, handler EventHandler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := &subscription{handler: handler}
	b.handlers[eventType] = append(b.handlers[eventType], sub)

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()

		subs := b.handlers[eventType]
		for i, s := range subs {
			if s == sub {
				b.handlers[eventType] = append(subs[:i], subs[i+1:]...)
				return
			}
		}
	}
}

// Close stops the dispatch loop and discards queued events.
func (b *bus) Close() {
	b.once.Do(func() { close(b.quit) })
	b.wg.Wait()
}

// dispatch handles event distribution to subscribers
func (b *bus) dispatch() {
	defer b.wg.Done()

	for {
		select {
		case event := <-b.eventChan:
			b.mu.RLock()
			subs := b.handlers[event.Type()]
			handlersCopy := make([]EventHandler, len(subs))
			for i, s := range subs {
				handlersCopy[i] = s.handler
			}
			b.mu.RUnlock()

			for _, handler := range handlersCopy {
				func(h EventHandler, eventType EventType) {
					defer func() {
						if r := recover(); r != nil {
							log.Printf("Event handler panic for %s: %v\nStack: %s", eventType, r, debug.Stack())
						}
					}()
					h(event)
				}(handler, event.Type())
			}

		case <-b.quit:
			for {
				select {
				case <-b.eventChan:
					// discard
				default:
					return
				}
			}
		}
	}
}
