package events

import (
	"context"
	"log/slog"

	"provenancegraph/src/domain"
)

// LogRecorder writes audit events to the structured log. Used when no
// Kafka broker or no audit topic is configured.
type LogRecorder struct {
	logger *slog.Logger
}

func NewLogRecorder(logger *slog.Logger) *LogRecorder {
	return &LogRecorder{logger: logger}
}

func (r *LogRecorder) Record(ctx context.Context, event domain.AuditEvent) error {
	r.logger.InfoContext(ctx, "Audit event",
		"event_id", event.ID.String(),
		"action", event.Action,
		"actor_id", event.ActorID,
		"auditable", event.Auditable.String(),
		"changes", event.Changes,
		"occurred_at", event.OccurredAt)
	return nil
}

// NewAuditRecorder publica no tópico quando há producer e tópico; sem um dos
// dois a trilha vai para o log.
func NewAuditRecorder(logger *slog.Logger, producer MessageProducer, topic string) domain.AuditRecorder {
	if producer == nil || topic == "" {
		logger.Info("Audit events go to the log", "reason", "no kafka producer or audit topic")
		return NewLogRecorder(logger)
	}
	return NewAuditPublisher(logger, producer, topic)
}
