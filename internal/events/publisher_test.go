package events

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"
)

func TestInMemoryEventPublisher_Delivers(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	publisher, pubSub := NewInMemoryEventPublisher(logger)
	defer publisher.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	messages, err := pubSub.Subscribe(ctx, "exam.events")
	if err != nil {
		t.Fatalf("Subscribe() error: %v", err)
	}

	event := NewEvent(TypeExamGraded, ExamGradedEvent{SessionID: 4, Score: 9, Total: 10, Tier: "pass"})
	if err := publisher.Publish(ctx, "exam.events", event); err != nil {
		t.Fatalf("Publish() error: %v", err)
	}

	select {
	case msg := <-messages:
		msg.Ack()
		if msg.UUID != event.ID {
			t.Errorf("message id = %s, want %s", msg.UUID, event.ID)
		}
		if msg.Metadata.Get("type") != TypeExamGraded {
			t.Errorf("type metadata = %q", msg.Metadata.Get("type"))
		}
		var decoded struct {
			Source string          `json:"source"`
			Data   ExamGradedEvent `json:"data"`
		}
		if err := json.Unmarshal(msg.Payload, &decoded); err != nil {
			t.Fatalf("payload is not JSON: %v", err)
		}
		if decoded.Source != EventSource || decoded.Data.Score != 9 {
			t.Errorf("unexpected payload %+v", decoded)
		}
	case <-ctx.Done():
		t.Fatal("event was not delivered")
	}
}

func TestNewEvent(t *testing.T) {
	a := NewEvent(TypeCertificateRequested, nil)
	b := NewEvent(TypeCertificateRequested, nil)
	if a.ID == "" || a.ID == b.ID {
		t.Errorf("event ids must be unique and non-empty: %q %q", a.ID, b.ID)
	}
	if a.Version != EventVersion || a.Timestamp.IsZero() {
		t.Errorf("unexpected envelope %+v", a)
	}
}

type blockingPublisher struct {
	cancelled chan struct{}
}

func (b *blockingPublisher) Publish(ctx context.Context, topic string, event *Event) error {
	<-ctx.Done()
	close(b.cancelled)
	return ctx.Err()
}

func (b *blockingPublisher) Close() error { return nil }

func TestAsyncPublisher_DoesNotBlockCaller(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	inner := &blockingPublisher{cancelled: make(chan struct{})}
	publisher := NewAsyncPublisher(inner, 500*time.Millisecond, logger)

	ctx, cancel := context.WithCancel(context.Background())
	start := time.Now()
	publisher.PublishAsync(ctx, "exam.events", NewEvent(TypeExamGraded, nil))
	if elapsed := time.Since(start); elapsed > 250*time.Millisecond {
		t.Errorf("PublishAsync() took %v", elapsed)
	}
	// a finished request must not cancel the pending publish
	cancel()

	publisher.Wait()
	select {
	case <-inner.cancelled:
	default:
		t.Fatal("publish did not run")
	}
}

func TestAsyncPublisher_Delivers(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mock := NewMockEventPublisher(logger)
	publisher := NewAsyncPublisher(mock, time.Second, logger)

	publisher.PublishAsync(context.Background(), "exam.events", NewEvent(TypeExamGraded, nil))
	publisher.Wait()

	if topics := mock.GetTopics(); len(topics) != 1 || topics[0] != "exam.events" {
		t.Errorf("topics = %v", topics)
	}
}
