package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/noah-isme/lms-go-api/internal/observability"
)

// Domain event names.
const (
	EventContentPublished    = "content.published"
	EventContentScheduled    = "content.scheduled"
	EventContentUnpublished  = "content.unpublished"
	EventSubmissionSubmitted = "submission.submitted"
	EventSubmissionGraded    = "submission.graded"
	EventSubmissionReturned  = "submission.returned"
	EventEnrollmentActivated = "enrollment.activated"
	EventInvoicePaid         = "invoice.paid"
)

// EventPublisher emits domain events.
type EventPublisher interface {
	Publish(ctx context.Context, event string, payload interface{}) error
}

// Event is the envelope written to the bus.
type Event struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	OccurredAt time.Time   `json:"occurred_at"`
	Payload    interface{} `json:"payload"`
}

type natsEventPublisher struct {
	conn   *nats.Conn
	prefix string
	logger zerolog.Logger
}

// NewEventPublisher publishes events to NATS subjects "<prefix>.<event>". A nil connection
// yields a publisher that only logs.
func NewEventPublisher(conn *nats.Conn, prefix string, logger zerolog.Logger) EventPublisher {
	prefix = strings.Trim(strings.TrimSpace(prefix), ".")
	if prefix == "" {
		prefix = "lms.events"
	}
	return &natsEventPublisher{
		conn:   conn,
		prefix: prefix,
		logger: logger.With().Str("component", "event_publisher").Logger(),
	}
}

func (p *natsEventPublisher) Publish(ctx context.Context, event string, payload interface{}) error {
	if p.conn == nil {
		p.logger.Debug().Str("event", event).Msg("event bus disabled; event dropped")
		observability.EventsPublished().WithLabelValues(event, "skipped").Inc()
		return nil
	}

	body, err := json.Marshal(Event{
		ID:         uuid.NewString(),
		Name:       event,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	})
	if err != nil {
		observability.EventsPublished().WithLabelValues(event, "error").Inc()
		return err
	}

	subject := p.prefix + "." + event
	if err := p.conn.Publish(subject, body); err != nil {
		observability.EventsPublished().WithLabelValues(event, "error").Inc()
		return err
	}

	observability.EventsPublished().WithLabelValues(event, "ok").Inc()
	return nil
}

func emit(ctx context.Context, publisher EventPublisher, logger zerolog.Logger, event string, payload interface{}) {
	if publisher == nil {
		return
	}
	if err := publisher.Publish(ctx, event, payload); err != nil {
		logger.Warn().Err(err).Str("event", event).Msg("failed to publish event")
	}
}
