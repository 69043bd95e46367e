package events

// Event represents a structured state change emitted by the launchpad.
type Event interface {
	EventType() string
}

// Emitter broadcasts events to downstream subscribers (RPC feeds, indexers).
type Emitter interface {
	Emit(Event)
}

// NoopEmitter satisfies the Emitter interface while discarding all events.
// Engines default to it so event wiring stays optional.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}
