package widgets

import (
	"log"

	"lumen/internal/domain"
)

// EventSink receives the outbound event produced by a widget
// transition, addressed to the owning plugin's sandbox.
type EventSink interface {
	ForwardViewEvent(plugin domain.PluginID, event domain.ViewEvent)
}

// Dispatcher turns native interactions into state transitions plus at
// most one outbound plugin event each. No batching or coalescing.
type Dispatcher struct {
	container *Container
	sink      EventSink
}

// NewDispatcher wires a dispatcher over a container and a sink.
func NewDispatcher(container *Container, sink EventSink) *Dispatcher {
	return &Dispatcher{container: container, sink: sink}
}

// Dispatch applies one native event. Events for vanished widgets are
// dropped silently.
func (d *Dispatcher) Dispatch(event Event) {
	outbound, applied := d.container.ApplyEvent(event)
	if !applied || outbound == nil {
		return
	}

	plugin := d.container.PluginID()
	if plugin == "" {
		log.Printf("widgets: no plugin attached, dropping outbound %s", outbound.Name)
		return
	}
	d.sink.ForwardViewEvent(plugin, *outbound)
}
