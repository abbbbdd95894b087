package graphsync

import (
	"context"

	"provenancegraph/src/domain"
	"provenancegraph/src/domain/entities"
)

// CreateEdge ensures both endpoint nodes and the typed edge in one write.
// The edge is keyed by the relation id, so a replay is a no-op.
func (s *Synchronizer) CreateEdge(ctx context.Context, edge entities.GraphEdge) error {
	if err := s.graphWriter.MergeEdge(ctx, edge); err != nil {
		return syncError(domain.MirrorCreateEdge, edge.Ref(), err)
	}

	s.invalidate(ctx, edge.From.Ref(), edge.To.Ref())
	return nil
}
