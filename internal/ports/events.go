package ports

import "cryptoSignalDash/internal/domain"

// EventPublisher delivers incremental updates to the rendering collaborator.
// Publish must never block the caller for long; slow consumers are the
// publisher's problem.
type EventPublisher interface {
	Publish(event domain.Event)
}

// NopPublisher discards all events. Useful for tests and headless runs.
type NopPublisher struct{}

func (NopPublisher) Publish(domain.Event) {}
