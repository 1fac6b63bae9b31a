// Package eventstream defines the study events emitted by the learning
// service and the transport-neutral Publisher that carries them.
package eventstream

import "context"

// Publisher publishes study events to an event stream backend.
type Publisher interface {
	Publish(ctx context.Context, event *Event) error
	Close() error
}
