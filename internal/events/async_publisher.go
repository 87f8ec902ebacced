package events

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// AsyncPublisher publishes events in the background. Publish failures are
// logged and never reach the caller.
type AsyncPublisher struct {
	publisher EventPublisher
	timeout   time.Duration
	logger    *slog.Logger
	wg        sync.WaitGroup
}

func NewAsyncPublisher(publisher EventPublisher, timeout time.Duration, logger *slog.Logger) *AsyncPublisher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &AsyncPublisher{publisher: publisher, timeout: timeout, logger: logger}
}

// PublishAsync returns immediately
func (p *AsyncPublisher) PublishAsync(ctx context.Context, topic string, event *Event) {
	base := context.WithoutCancel(ctx)

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		ctx, cancel := context.WithTimeout(base, p.timeout)
		defer cancel()

		if err := p.publisher.Publish(ctx, topic, event); err != nil {
			p.logger.ErrorContext(ctx, "Failed to publish event",
				"topic", topic,
				"type", event.Type,
				"event_id", event.ID,
				"error", err)
		}
	}()
}

// Wait blocks until every pending publish has finished
func (p *AsyncPublisher) Wait() {
	p.wg.Wait()
}
