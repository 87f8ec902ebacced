// Package certificate requests personalized certificates for passed exams.
// Image compositing happens in an external worker that consumes the requests.
package certificate

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/SAP-F-2025/exam-service/internal/events"
)

// DateLayout formats the exam date on the certificate (dd.mm.yyyy)
const DateLayout = "02.01.2006"

// DefaultTemplate is used when no subject names its own template
const DefaultTemplate = "default"

// Request is the input contract of the certificate generator
type Request struct {
	SessionID    uint      `json:"session_id"`
	TelegramID   int64     `json:"telegram_id"`
	Template     string    `json:"template"`
	FullName     [3]string `json:"full_name"`
	Date         string    `json:"date"`
	GradingToken string    `json:"grading_token"`
	Score        int       `json:"score"`
	Total        int       `json:"total"`
	Percentage   float64   `json:"percentage"`
	Language     string    `json:"language"`
}

// Issuer hands a request to the certificate generator
type Issuer interface {
	Issue(ctx context.Context, req Request) error
}

// EventIssuer publishes requests on a topic
type EventIssuer struct {
	publisher events.EventPublisher
	topic     string
}

func NewEventIssuer(publisher events.EventPublisher, topic string) *EventIssuer {
	return &EventIssuer{publisher: publisher, topic: topic}
}

func (i *EventIssuer) Issue(ctx context.Context, req Request) error {
	if req.GradingToken == "" {
		return fmt.Errorf("certificate request for session %d has no grading token", req.SessionID)
	}
	return i.publisher.Publish(ctx, i.topic, events.NewEvent(events.TypeCertificateRequested, req))
}

// Dispatcher issues certificates in the background. Failures are logged and
// never reach the caller.
type Dispatcher struct {
	issuer  Issuer
	timeout time.Duration
	logger  *slog.Logger
	wg      sync.WaitGroup
}

func NewDispatcher(issuer Issuer, timeout time.Duration, logger *slog.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Dispatcher{issuer: issuer, timeout: timeout, logger: logger}
}

// Dispatch returns immediately. onIssued runs after a successful issue.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request, onIssued func(context.Context) error) {
	// detach from the request so the caller's response does not cancel us
	base := context.WithoutCancel(ctx)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		ctx, cancel := context.WithTimeout(base, d.timeout)
		defer cancel()

		if err := d.issuer.Issue(ctx, req); err != nil {
			d.logger.ErrorContext(ctx, "Certificate issuance failed",
				"session_id", req.SessionID,
				"error", err)
			return
		}
		if onIssued != nil {
			if err := onIssued(ctx); err != nil {
				d.logger.WarnContext(ctx, "Failed to record certificate issuance",
					"session_id", req.SessionID,
					"error", err)
				return
			}
		}
		d.logger.InfoContext(ctx, "Certificate requested", "session_id", req.SessionID)
	}()
}

// Wait blocks until every dispatched request has finished
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
