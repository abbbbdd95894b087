package consumers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"provenancegraph/src/domain"
	"provenancegraph/src/infra/debezium"
)

// CDCEventSource delivers Debezium events in batches.
type CDCEventSource interface {
	ConsumeCDCEventsBatch(ctx context.Context, handler debezium.CDCBatchEventHandler) error
	Close() error
}

type CDCTransformer interface {
	TransformCDCEvent(cdcEvent *debezium.CDCEvent) ([]domain.MirrorCommand, error)
}

// CDCMirrorConsumer mirrors relational changes captured by Debezium.
type CDCMirrorConsumer struct {
	logger      *slog.Logger
	source      CDCEventSource
	transformer CDCTransformer
	applier     MirrorApplier
}

func NewCDCMirrorConsumer(logger *slog.Logger, source CDCEventSource, transformer CDCTransformer, applier MirrorApplier) *CDCMirrorConsumer {
	return &CDCMirrorConsumer{
		logger:      logger,
		source:      source,
		transformer: transformer,
		applier:     applier,
	}
}

func (c *CDCMirrorConsumer) Start(ctx context.Context) error {
	c.logger.Info("Starting CDC mirror consumer")
	return c.source.ConsumeCDCEventsBatch(ctx, c.HandleEvents)
}

func (c *CDCMirrorConsumer) Close() error {
	return c.source.Close()
}

// HandleEvents segue a mesma regra do GraphSyncConsumer: só falha do grafo
// derruba o lote.
func (c *CDCMirrorConsumer) HandleEvents(ctx context.Context, cdcEvents []*debezium.CDCEvent) error {
	applied := 0

	for _, cdcEvent := range cdcEvents {
		commands, err := c.transformer.TransformCDCEvent(cdcEvent)
		if err != nil {
			c.logger.Error("Discarding untransformable CDC event",
				"error", err,
				"table", cdcEvent.Source.Table,
				"operation", cdcEvent.Operation,
				"lsn", cdcEvent.Source.LSN)
			continue
		}

		for _, command := range commands {
			if err := c.applier.Apply(ctx, command); err != nil {
				if errors.Is(err, domain.ErrSyncFailed) {
					return fmt.Errorf("failed to apply CDC mirror command at lsn %d: %w", cdcEvent.Source.LSN, err)
				}

				c.logger.Error("Discarding invalid CDC mirror command",
					"error", err,
					"operation", command.Operation)
				continue
			}
			applied++
		}
	}

	c.logger.Info("CDC mirror commands applied", "count", applied, "events", len(cdcEvents))
	return nil
}
