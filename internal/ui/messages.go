package ui

import (
	"lumen/internal/eventbus"
)

// EventMsg wraps a domain event for the UI
type EventMsg struct {
	Event eventbus.DomainEvent
}

// logPagerMsg reports the log pager finishing
type logPagerMsg struct {
	err error
}
