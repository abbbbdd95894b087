package graphsync

import (
	"context"
	"log/slog"

	"provenancegraph/src/domain"
	"provenancegraph/src/domain/entities"
)

// GraphWriter is the write side of the graph substrate.
type GraphWriter interface {
	MergeNode(ctx context.Context, node entities.GraphNode) error
	MergeEdge(ctx context.Context, edge entities.GraphEdge) error
	DeleteEdge(ctx context.Context, edge entities.GraphEdge) error
	DeleteNode(ctx context.Context, node entities.GraphNode) error
	MarkNodeDeleted(ctx context.Context, node entities.GraphNode) error
}

// CacheInvalidator drops cached reads that mention any of refs.
type CacheInvalidator interface {
	InvalidateByReferences(ctx context.Context, refs []entities.Reference) error
}

// Synchronizer keeps the graph mirror in step with the relational store.
// Every operation is safe to repeat.
type Synchronizer struct {
	graphWriter GraphWriter
	invalidator CacheInvalidator
	logger      *slog.Logger
}

// NewSynchronizer aceita invalidator nil quando não há cache na frente do grafo.
func NewSynchronizer(graphWriter GraphWriter, invalidator CacheInvalidator, logger *slog.Logger) *Synchronizer {
	return &Synchronizer{
		graphWriter: graphWriter,
		invalidator: invalidator,
		logger:      logger,
	}
}

func (s *Synchronizer) invalidate(ctx context.Context, refs ...entities.Reference) {
	if s.invalidator == nil {
		return
	}

	if err := s.invalidator.InvalidateByReferences(ctx, refs); err != nil {
		s.logger.Warn("Failed to invalidate projection cache", "error", err, "references", len(refs))
	}
}

func syncError(operation domain.MirrorOperation, target entities.Reference, err error) error {
	return &domain.SyncError{Operation: string(operation), Target: target, Err: err}
}
