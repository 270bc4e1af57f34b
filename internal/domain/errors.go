package domain

import "fmt"

// ConfigurationError reports unreadable or malformed preferences.
type ConfigurationError struct {
	Path string
	Err  error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error (%s): %v", e.Path, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// CapabilityError reports a capability op whose channel closed or whose
// underlying host call failed.
type CapabilityError struct {
	Op  string
	Err error
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("capability %s failed: %v", e.Op, e.Err)
}

func (e *CapabilityError) Unwrap() error { return e.Err }

// RenderTimeoutError reports that no render completed within the bound.
type RenderTimeoutError struct {
	PluginID     PluginID
	EntrypointID EntrypointID
}

func (e *RenderTimeoutError) Error() string {
	return fmt.Sprintf("render timed out for %s/%s", e.PluginID, e.EntrypointID)
}

// PluginFaultError reports plugin code faulting while handling an event
// or producing a tree. It is caught at the dispatch boundary and never
// propagates as a host crash.
type PluginFaultError struct {
	PluginID     PluginID
	EntrypointID EntrypointID
	Detail       string
}

func (e *PluginFaultError) Error() string {
	return fmt.Sprintf("plugin %s faulted in %s: %s", e.PluginID, e.EntrypointID, e.Detail)
}
