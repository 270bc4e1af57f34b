package plugin

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/dop251/goja"
	"github.com/google/uuid"

	"lumen/internal/domain"
)

// ErrSandboxClosed reports a dispatch against an unloaded sandbox.
var ErrSandboxClosed = errors.New("sandbox closed")

// ErrEventQueueFull reports a dispatch dropped because the plugin is not
// draining its queue.
var ErrEventQueueFull = errors.New("sandbox event queue full")

// FaultReporter receives plugin faults caught at the dispatch boundary.
type FaultReporter func(fault *domain.PluginFaultError)

// InboundEvent is one event delivered into the sandbox.
type InboundEvent interface {
	entrypoint() domain.EntrypointID
}

// ViewOpened asks the plugin to render an entrypoint.
type ViewOpened struct {
	EntrypointID domain.EntrypointID
}

// ViewClosed tells the plugin an entrypoint's view was torn down.
type ViewClosed struct {
	EntrypointID domain.EntrypointID
}

// ViewEvent carries one outbound widget event to the plugin's handler.
type ViewEvent struct {
	EntrypointID domain.EntrypointID
	Event        domain.ViewEvent
}

func (e ViewOpened) entrypoint() domain.EntrypointID { return e.EntrypointID }
func (e ViewClosed) entrypoint() domain.EntrypointID { return e.EntrypointID }
func (e ViewEvent) entrypoint() domain.EntrypointID  { return e.EntrypointID }

// handlers are the callables a plugin registered for one entrypoint.
// Only the sandbox goroutine touches them.
type handlers struct {
	render  goja.Callable
	onEvent goja.Callable
	onClose goja.Callable
}

// Sandbox is one isolated execution context running a single plugin's
// code. Scheduling is cooperative and single-threaded: the sandbox
// goroutine is the only one that runs plugin code, one inbound event at
// a time, suspending only inside awaited capability ops.
type Sandbox struct {
	bundle   *Bundle
	bridge   *Bridge
	faults   FaultReporter
	instance string // for log correlation

	vm       *goja.Runtime
	registry map[domain.EntrypointID]*handlers

	events    chan InboundEvent
	done      chan struct{}
	closeOnce sync.Once
	loopDone  chan struct{}
}

// NewSandbox builds the VM, installs the capability bridge, evaluates
// the bundle sources (during which the plugin registers its entrypoint
// handlers), and starts the event loop. A source-evaluation fault fails
// the load rather than producing a half-initialized context.
func NewSandbox(bundle *Bundle, bridge *Bridge, faults FaultReporter) (*Sandbox, error) {
	s := &Sandbox{
		bundle:   bundle,
		bridge:   bridge,
		faults:   faults,
		instance: uuid.NewString(),
		registry: make(map[domain.EntrypointID]*handlers),
		events:   make(chan InboundEvent, 64),
		done:     make(chan struct{}),
		loopDone: make(chan struct{}),
	}

	ready := make(chan error, 1)
	go s.run(ready)

	if err := <-ready; err != nil {
		s.Close()
		return nil, err
	}

	log.Printf("sandbox %s: plugin %s loaded", s.instance, bundle.ID)
	return s, nil
}

// Dispatch delivers one inbound event to the sandbox. Per-plugin order
// is preserved; events across different sandboxes are unordered. A
// plugin stuck in a long handler with a full queue never blocks the
// caller: the event is dropped with ErrEventQueueFull.
func (s *Sandbox) Dispatch(event InboundEvent) error {
	select {
	case <-s.done:
		return ErrSandboxClosed
	default:
	}

	select {
	case s.events <- event:
		return nil
	case <-s.done:
		return ErrSandboxClosed
	default:
		log.Printf("sandbox %s: plugin %s queue full, dropping %T for %s",
			s.instance, s.bundle.ID, event, event.entrypoint())
		return ErrEventQueueFull
	}
}

// Close terminates the context: cancels in-flight capability ops,
// interrupts running plugin code, and waits for the loop to exit.
func (s *Sandbox) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.bridge.close()
		s.vm.Interrupt(ErrSandboxClosed)
		<-s.loopDone
		log.Printf("sandbox %s: plugin %s unloaded", s.instance, s.bundle.ID)
	})
}

// run is the sandbox goroutine: initialization, then the event loop.
func (s *Sandbox) run(ready chan<- error) {
	defer close(s.loopDone)

	s.vm = goja.New()
	s.vm.SetFieldNameMapper(goja.UncapFieldNameMapper())

	if err := s.bridge.install(s.vm, s.register); err != nil {
		ready <- err
		return
	}

	for _, path := range s.bundle.sourceOrder {
		if _, err := s.vm.RunScript(path, s.bundle.sources[path]); err != nil {
			ready <- &domain.PluginFaultError{
				PluginID: s.bundle.ID,
				Detail:   fmt.Sprintf("evaluating %s: %v", path, err),
			}
			return
		}
	}
	ready <- nil

	for {
		select {
		case <-s.done:
			return
		case event := <-s.events:
			s.handle(event)
		}
	}
}

// register is called from plugin code via host.register during source
// evaluation (and legally later, on the same goroutine).
func (s *Sandbox) register(entrypointID string, obj *goja.Object) error {
	ep, ok := s.bundle.Entrypoint(domain.EntrypointID(entrypointID))
	if !ok {
		return fmt.Errorf("unknown entrypoint %q", entrypointID)
	}

	h := &handlers{}
	if render, ok := goja.AssertFunction(obj.Get("render")); ok {
		h.render = render
	}
	if onEvent, ok := goja.AssertFunction(obj.Get("onEvent")); ok {
		h.onEvent = onEvent
	}
	if onClose, ok := goja.AssertFunction(obj.Get("onClose")); ok {
		h.onClose = onClose
	}
	if h.render == nil {
		return fmt.Errorf("entrypoint %q registered without a render handler", entrypointID)
	}

	s.registry[ep.ID] = h
	return nil
}

// handle runs one inbound event through the plugin's handler. Faults
// are caught here and reported; they never crash the host.
func (s *Sandbox) handle(event InboundEvent) {
	defer func() {
		if r := recover(); r != nil {
			s.reportFault(event.entrypoint(), fmt.Sprintf("panic: %v", r))
		}
	}()

	h, ok := s.registry[event.entrypoint()]
	if !ok {
		s.reportFault(event.entrypoint(), "no handler registered")
		return
	}

	var err error
	switch ev := event.(type) {
	case ViewOpened:
		_, err = h.render(goja.Undefined(), s.vm.ToValue(string(ev.EntrypointID)))
	case ViewClosed:
		if h.onClose != nil {
			_, err = h.onClose(goja.Undefined(), s.vm.ToValue(string(ev.EntrypointID)))
		}
	case ViewEvent:
		if h.onEvent == nil {
			return
		}
		_, err = h.onEvent(goja.Undefined(), s.eventValue(ev.Event))
	}

	if err != nil {
		s.reportFault(event.entrypoint(), err.Error())
	}
}

func (s *Sandbox) eventValue(event domain.ViewEvent) goja.Value {
	payload := make(map[string]interface{}, len(event.Payload))
	for name, p := range event.Payload {
		switch p.Kind {
		case domain.PropertyString:
			payload[name] = p.Str
		case domain.PropertyNumber:
			payload[name] = p.Num
		case domain.PropertyBool:
			payload[name] = p.Bool
		}
	}
	return s.vm.ToValue(map[string]interface{}{
		"widgetId": uint32(event.WidgetID),
		"name":     event.Name,
		"payload":  payload,
	})
}

func (s *Sandbox) reportFault(entrypoint domain.EntrypointID, detail string) {
	fault := &domain.PluginFaultError{
		PluginID:     s.bundle.ID,
		EntrypointID: entrypoint,
		Detail:       detail,
	}
	log.Printf("sandbox %s: %v", s.instance, fault)
	if s.faults != nil {
		s.faults(fault)
	}
}
