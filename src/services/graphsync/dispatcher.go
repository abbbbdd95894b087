package graphsync

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"provenancegraph/src/domain"
	"provenancegraph/src/infra/kafka"
)

// InlineDispatcher applies mirror commands synchronously, right after the
// relational commit.
type InlineDispatcher struct {
	synchronizer *Synchronizer
}

func NewInlineDispatcher(synchronizer *Synchronizer) *InlineDispatcher {
	return &InlineDispatcher{synchronizer: synchronizer}
}

func (d *InlineDispatcher) Dispatch(ctx context.Context, command domain.MirrorCommand) error {
	return d.synchronizer.Apply(ctx, command)
}

// DeferredDispatcher leaves mirroring to the CDC pipeline: the committed
// row reaches the graph through Debezium, so nothing is sent from here.
type DeferredDispatcher struct {
	logger *slog.Logger
}

func NewDeferredDispatcher(logger *slog.Logger) *DeferredDispatcher {
	return &DeferredDispatcher{logger: logger}
}

func (d *DeferredDispatcher) Dispatch(ctx context.Context, command domain.MirrorCommand) error {
	d.logger.Debug("Mirror command deferred to CDC", "operation", command.Operation)
	return nil
}

// MessageProducer is the producing half of the Kafka client.
type MessageProducer interface {
	Producer(messages []kafka.Message, topic string) error
}

// KafkaDispatcher publishes mirror commands for cmd/graph-sync-consumer.
type KafkaDispatcher struct {
	logger   *slog.Logger
	producer MessageProducer
	topic    string
}

func NewKafkaDispatcher(logger *slog.Logger, producer MessageProducer, topic string) *KafkaDispatcher {
	return &KafkaDispatcher{
		logger:   logger,
		producer: producer,
		topic:    topic,
	}
}

func (d *KafkaDispatcher) Dispatch(ctx context.Context, command domain.MirrorCommand) error {
	key, err := commandKey(command)
	if err != nil {
		return err
	}

	value, err := json.Marshal(command)
	if err != nil {
		return fmt.Errorf("KafkaDispatcher.Dispatch - failed to marshal command: %w", err)
	}

	message := kafka.Message{
		// Mesma chave, mesma partição: os comandos de um objeto chegam em ordem.
		Key:   key,
		Value: value,
		Headers: map[string]string{
			"operation":      string(command.Operation),
			"source_service": "provenance-api",
			"schema_version": "v1",
		},
	}

	if err := d.producer.Producer([]kafka.Message{message}, d.topic); err != nil {
		return &domain.SyncError{Operation: string(command.Operation), Err: fmt.Errorf("publish to %s: %w", d.topic, err)}
	}

	d.logger.Debug("Mirror command published", "topic", d.topic, "operation", command.Operation, "key", key)
	return nil
}

func commandKey(command domain.MirrorCommand) (string, error) {
	switch {
	case command.Edge != nil:
		return command.Edge.Ref().String(), nil
	case command.Node != nil:
		return command.Node.Ref().String(), nil
	default:
		return "", fmt.Errorf("KafkaDispatcher.Dispatch - %s carries neither edge nor node", command.Operation)
	}
}
