package consumers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"provenancegraph/src/domain"
	"provenancegraph/src/infra/kafka"
)

// MirrorApplier runs a mirror command against the graph substrate.
type MirrorApplier interface {
	Apply(ctx context.Context, command domain.MirrorCommand) error
}

// MessageConsumer is the consuming half of the Kafka client.
type MessageConsumer interface {
	Consumer(ctx context.Context, handler kafka.Handler, topic string) error
}

type GraphSyncConsumer struct {
	logger  *slog.Logger
	applier MirrorApplier
}

func NewGraphSyncConsumer(logger *slog.Logger, applier MirrorApplier) *GraphSyncConsumer {
	return &GraphSyncConsumer{
		logger:  logger,
		applier: applier,
	}
}

func (c *GraphSyncConsumer) Start(ctx context.Context, kafkaClient MessageConsumer, topic string) error {
	c.logger.Info("Starting graph sync consumer", "topic", topic)

	handler := func(messages []kafka.Message) error {
		return c.HandleMessages(ctx, messages)
	}

	return kafkaClient.Consumer(ctx, handler, topic)
}

// HandleMessages aplica os comandos na ordem recebida. Uma falha do grafo
// devolve erro e o lote inteiro é reprocessado; como toda operação é
// idempotente, reaplicar o que já passou é seguro.
func (c *GraphSyncConsumer) HandleMessages(ctx context.Context, messages []kafka.Message) error {
	if len(messages) == 0 {
		return nil
	}

	c.logger.Debug("Processing mirror commands batch", "count", len(messages))

	applied := 0
	for _, msg := range messages {
		var command domain.MirrorCommand
		if err := json.Unmarshal(msg.Value, &command); err != nil {
			// Mensagem inválida nunca vai passar; não trava a partição.
			c.logger.Error("Discarding malformed mirror command",
				"error", err,
				"key", msg.Key,
				"value", string(msg.Value))
			continue
		}

		if err := c.applier.Apply(ctx, command); err != nil {
			if errors.Is(err, domain.ErrSyncFailed) {
				return fmt.Errorf("failed to apply mirror command with key %s: %w", msg.Key, err)
			}

			c.logger.Error("Discarding invalid mirror command",
				"error", err,
				"key", msg.Key,
				"operation", command.Operation)
			continue
		}
		applied++
	}

	c.logger.Info("Mirror commands applied", "count", applied, "batch", len(messages))
	return nil
}
