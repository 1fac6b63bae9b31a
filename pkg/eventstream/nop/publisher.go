// Package nop provides the publisher used when no event transport is
// configured. Events are dropped after an optional debug log line.
package nop

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/papercomputeco/eduverse/pkg/eventstream"
	"github.com/papercomputeco/eduverse/pkg/logger"
)

type Publisher struct {
	logger  *slog.Logger
	dropped atomic.Int64
}

// NewPublisher creates a Publisher. A nil logger discards the debug lines.
func NewPublisher(log *slog.Logger) *Publisher {
	return &Publisher{logger: logger.OrNop(log)}
}

func (p *Publisher) Publish(ctx context.Context, event *eventstream.Event) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}

	p.dropped.Add(1)
	p.logger.DebugContext(ctx, "event dropped, no transport configured",
		"event_type", event.EventType,
		"event_id", event.EventID,
		"key", event.Key(),
	)
	return nil
}

// Dropped reports how many events Publish has accepted.
func (p *Publisher) Dropped() int64 {
	return p.dropped.Load()
}

func (p *Publisher) Close() error {
	return nil
}
