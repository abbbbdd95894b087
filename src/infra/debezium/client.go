package debezium

import (
	"context"
	"fmt"
	"log/slog"

	"provenancegraph/src/infra/kafka"
)

// CDCBatchEventHandler is the function signature for handling batches of CDC events
type CDCBatchEventHandler func(ctx context.Context, events []*CDCEvent) error

// MessageConsumer is the consuming half of the Kafka client.
type MessageConsumer interface {
	Consumer(ctx context.Context, handler kafka.Handler, topic string) error
	Close() error
}

// CDCClient implements CDC event consumption using Kafka
type CDCClient struct {
	logger     *slog.Logger
	consumer   MessageConsumer
	serializer *CDCSerializer
	topic      string
}

// NewCDCClient creates a new CDC client
func NewCDCClient(logger *slog.Logger, topic string, consumer MessageConsumer, tables []string) *CDCClient {
	return &CDCClient{
		logger:     logger,
		consumer:   consumer,
		serializer: &CDCSerializer{IncludeTables: tables},
		topic:      topic,
	}
}

// ConsumeCDCEventsBatch starts consuming CDC events and calls handler for batches of valid events
func (c *CDCClient) ConsumeCDCEventsBatch(ctx context.Context, handler CDCBatchEventHandler) error {
	c.logger.Info("Starting CDC batch event consumption", "topic", c.topic)

	kafkaHandler := func(messages []kafka.Message) error {
		return c.ProcessMessages(ctx, messages, handler)
	}

	return c.consumer.Consumer(ctx, kafkaHandler, c.topic)
}

// ProcessMessages parses a batch of Kafka messages and calls handler with all
// valid CDC events at once. Unparseable messages are skipped; a handler
// error fails the batch so it is delivered again.
func (c *CDCClient) ProcessMessages(ctx context.Context, messages []kafka.Message, handler CDCBatchEventHandler) error {
	if len(messages) == 0 {
		return nil
	}

	c.logger.Debug("Processing CDC messages batch", "count", len(messages))

	var validEvents []*CDCEvent
	skippedCount := 0
	errorCount := 0

	for _, msg := range messages {
		// Tombstones do Debezium chegam sem valor depois de cada delete.
		if len(msg.Value) == 0 {
			skippedCount++
			continue
		}

		cdcEvent, err := c.serializer.ParseCDCEvent(msg.Value)
		if err != nil {
			c.logger.Error("Failed to parse CDC message",
				"error", err,
				"key", msg.Key,
				"value_length", len(msg.Value))
			errorCount++
			continue
		}

		if !c.serializer.ShouldProcessEvent(cdcEvent) {
			c.logger.Debug("Skipping CDC event",
				"table", cdcEvent.Source.Table,
				"operation", cdcEvent.Operation,
				"snapshot", cdcEvent.Source.Snapshot)
			skippedCount++
			continue
		}

		validEvents = append(validEvents, cdcEvent)
	}

	if len(validEvents) > 0 {
		if err := handler(ctx, validEvents); err != nil {
			c.logger.Error("CDC batch event handler failed",
				"error", err,
				"valid_events", len(validEvents))
			return fmt.Errorf("failed to handle CDC events batch: %w", err)
		}
	}

	c.logger.Info("Completed CDC messages batch processing",
		"total", len(messages),
		"processed", len(validEvents),
		"skipped", skippedCount,
		"errors", errorCount)

	return nil
}

// Close closes the CDC client
func (c *CDCClient) Close() error {
	c.logger.Info("Closing CDC client")
	return c.consumer.Close()
}
