package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"provenancegraph/src/domain"
	"provenancegraph/src/infra/kafka"
)

// MessageProducer is the producing half of the Kafka client.
type MessageProducer interface {
	Producer(messages []kafka.Message, topic string) error
}

// AuditPublisher appends audit events to a Kafka topic. The storage format
// of the trail belongs to whoever consumes it.
type AuditPublisher struct {
	logger   *slog.Logger
	producer MessageProducer
	topic    string
}

func NewAuditPublisher(logger *slog.Logger, producer MessageProducer, topic string) *AuditPublisher {
	return &AuditPublisher{
		logger:   logger,
		producer: producer,
		topic:    topic,
	}
}

// Record publishes a single audit event
func (p *AuditPublisher) Record(ctx context.Context, event domain.AuditEvent) error {
	return p.RecordBatch(ctx, []domain.AuditEvent{event})
}

// RecordBatch publishes a batch of audit events to Kafka
func (p *AuditPublisher) RecordBatch(ctx context.Context, events []domain.AuditEvent) error {
	if len(events) == 0 {
		return nil
	}

	kafkaMessages := make([]kafka.Message, 0, len(events))

	for _, event := range events {
		eventBytes, err := json.Marshal(event)
		if err != nil {
			p.logger.Error("Failed to marshal audit event",
				"error", err,
				"event_id", event.ID.String(),
				"auditable", event.Auditable.String())
			continue
		}

		kafkaMessages = append(kafkaMessages, kafka.Message{
			Key:     event.Auditable.String(), // Partition by auditable for ordering
			Value:   eventBytes,
			Headers: p.createEventHeaders(event),
		})
	}

	if err := p.producer.Producer(kafkaMessages, p.topic); err != nil {
		p.logger.Error("Failed to publish audit events to Kafka",
			"error", err,
			"topic", p.topic,
			"events_count", len(kafkaMessages))
		return fmt.Errorf("failed to publish audit events to topic %s: %w", p.topic, err)
	}

	p.logger.Debug("Audit events published", "topic", p.topic, "events_count", len(kafkaMessages))

	return nil
}

// createEventHeaders creates Kafka headers for consumer-side filtering
func (p *AuditPublisher) createEventHeaders(event domain.AuditEvent) map[string]string {
	headers := map[string]string{
		"event_type":     "audit." + event.Action,
		"source_service": "provenance-api",
		"schema_version": "v1",
		"event_id":       event.ID.String(),
		"auditable_type": event.Auditable.Kind,
	}

	if event.ActorID != "" {
		headers["actor_id"] = event.ActorID
	}

	if len(event.Changes) > 0 {
		fields := make([]string, 0, len(event.Changes))
		for field := range event.Changes {
			fields = append(fields, field)
		}
		sort.Strings(fields)
		headers["fields_changed"] = strings.Join(fields, ",")
	}

	return headers
}
